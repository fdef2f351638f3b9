package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	stations "borsibaar-cloud/internal/stations/domain"
)

// Store is an in-memory station and user store for demo/testing.
// Saving or deleting a station updates both sides of the user assignment.
type Store struct {
	mu       sync.RWMutex
	stations map[int64]*stations.Station
	users    map[string]*stations.User
	nextID   int64
	now      func() time.Time
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		stations: make(map[int64]*stations.Station),
		users:    make(map[string]*stations.User),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Stations returns the station repository view of the store.
func (s *Store) Stations() *StationRepository {
	return &StationRepository{store: s}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(user stations.User) error {
	if user.ID == "" {
		return errors.New("memory store: empty user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyUser(user)
	s.users[user.ID] = &stored
	return nil
}

// StationRepository implements stations.StationRepository.
type StationRepository struct {
	store *Store
}

// FindByOrganization returns the organization's stations ordered by id.
func (r *StationRepository) FindByOrganization(ctx context.Context, organizationID int64) ([]stations.Station, error) {
	_ = ctx
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]stations.Station, 0)
	for _, station := range s.stations {
		if station.OrganizationID == organizationID {
			result = append(result, copyStation(*station))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// FindByOrganizationAndID loads a station scoped to its organization.
func (r *StationRepository) FindByOrganizationAndID(ctx context.Context, organizationID, stationID int64) (*stations.Station, error) {
	_ = ctx
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	station, ok := s.stations[stationID]
	if !ok || station.OrganizationID != organizationID {
		return nil, nil
	}
	found := copyStation(*station)
	return &found, nil
}

// Save inserts or updates a station, assigning an id to new stations.
func (r *StationRepository) Save(ctx context.Context, station *stations.Station) (*stations.Station, error) {
	_ = ctx
	if station == nil {
		return nil, stations.ErrNilStation
	}
	if err := station.Validate(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.stations {
		if other.ID != station.ID && other.OrganizationID == station.OrganizationID && other.Name == station.Name {
			return nil, fmt.Errorf("%w: station name %q already exists", stations.ErrDuplicateResource, station.Name)
		}
	}
	for _, user := range station.Users {
		if _, ok := s.users[user.ID]; !ok {
			return nil, fmt.Errorf("%w: user %s", stations.ErrNotFound, user.ID)
		}
	}

	now := s.now()
	saved := copyStation(*station)
	if saved.ID == 0 {
		s.nextID++
		saved.ID = s.nextID
		saved.CreatedAt = now
	} else if existing, ok := s.stations[saved.ID]; ok {
		if existing.OrganizationID != saved.OrganizationID {
			return nil, fmt.Errorf("%w: station %d belongs to another organization", stations.ErrBadRequest, saved.ID)
		}
		saved.CreatedAt = existing.CreatedAt
		for _, previous := range existing.Users {
			if !saved.HasUser(previous.ID) {
				if user, ok := s.users[previous.ID]; ok {
					user.RemoveStation(saved.ID)
				}
			}
		}
	} else if saved.ID > s.nextID {
		s.nextID = saved.ID
	}
	saved.UpdatedAt = now
	for i, assigned := range saved.Users {
		user := s.users[assigned.ID]
		user.AddStation(saved.ID)
		saved.Users[i].Name = user.Name
	}

	s.stations[saved.ID] = &saved
	result := copyStation(saved)
	return &result, nil
}

// Delete removes a station and its assignments.
func (r *StationRepository) Delete(ctx context.Context, station *stations.Station) error {
	_ = ctx
	if station == nil {
		return stations.ErrNilStation
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.stations[station.ID]
	if !ok || existing.OrganizationID != station.OrganizationID {
		return fmt.Errorf("%w: station %d", stations.ErrNotFound, station.ID)
	}
	for _, user := range s.users {
		user.RemoveStation(station.ID)
	}
	delete(s.stations, station.ID)
	return nil
}

// UserRepository implements stations.UserRepository.
type UserRepository struct {
	store *Store
}

// FindByID returns a copy of the user, or nil when unknown.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*stations.User, error) {
	_ = ctx
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	found := copyUser(*user)
	return &found, nil
}

func copyStation(station stations.Station) stations.Station {
	out := station
	if station.Description != nil {
		description := *station.Description
		out.Description = &description
	}
	out.Users = append([]stations.AssignedUser(nil), station.Users...)
	return out
}

func copyUser(user stations.User) stations.User {
	out := user
	out.StationIDs = append([]int64(nil), user.StationIDs...)
	return out
}
