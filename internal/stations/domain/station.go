package stations

import (
	"context"
	"errors"
	"sort"
	"time"
)

// DefaultActive is the active flag applied when a create request omits it.
const DefaultActive = true

// Station is a named bar station owned by an organization.
type Station struct {
	ID             int64
	OrganizationID int64
	Name           string
	Description    *string
	Active         bool
	Users          []AssignedUser
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AssignedUser is the station-side view of an assigned user.
type AssignedUser struct {
	ID   string
	Name string
}

// Validate checks station invariants.
func (s Station) Validate() error {
	if s.OrganizationID == 0 {
		return errors.New("station: empty organization id")
	}
	if s.Name == "" {
		return errors.New("station: empty name")
	}
	seen := make(map[string]struct{}, len(s.Users))
	for _, user := range s.Users {
		if user.ID == "" {
			return errors.New("station: empty user id")
		}
		if _, ok := seen[user.ID]; ok {
			return errors.New("station: duplicate user " + user.ID)
		}
		seen[user.ID] = struct{}{}
	}
	return nil
}

// UserIDs returns the ids of assigned users, sorted.
func (s Station) UserIDs() []string {
	ids := make([]string, 0, len(s.Users))
	for _, user := range s.Users {
		ids = append(ids, user.ID)
	}
	sort.Strings(ids)
	return ids
}

// HasUser reports whether the user is assigned to the station.
func (s Station) HasUser(userID string) bool {
	for _, user := range s.Users {
		if user.ID == userID {
			return true
		}
	}
	return false
}

// AssignUser adds a user to the station. Already assigned users are ignored.
func (s *Station) AssignUser(user User) {
	if s.HasUser(user.ID) {
		return
	}
	s.Users = append(s.Users, AssignedUser{ID: user.ID, Name: user.Name})
}

// UnassignUser removes a user from the station.
func (s *Station) UnassignUser(userID string) {
	kept := make([]AssignedUser, 0, len(s.Users))
	for _, user := range s.Users {
		if user.ID != userID {
			kept = append(kept, user)
		}
	}
	s.Users = kept
}

// User is a member of an organization that can be assigned to stations.
type User struct {
	ID             string
	OrganizationID int64
	Name           string
	StationIDs     []int64
}

// HasStation reports whether the user belongs to the station.
func (u User) HasStation(stationID int64) bool {
	for _, id := range u.StationIDs {
		if id == stationID {
			return true
		}
	}
	return false
}

// AddStation records the station on the user side of the assignment.
func (u *User) AddStation(stationID int64) {
	if u.HasStation(stationID) {
		return
	}
	u.StationIDs = append(u.StationIDs, stationID)
}

// RemoveStation drops the station from the user side of the assignment.
func (u *User) RemoveStation(stationID int64) {
	kept := make([]int64, 0, len(u.StationIDs))
	for _, id := range u.StationIDs {
		if id != stationID {
			kept = append(kept, id)
		}
	}
	u.StationIDs = kept
}

// StationRepository manages station persistence.
// Find methods return nil, nil when nothing matches.
type StationRepository interface {
	FindByOrganization(ctx context.Context, organizationID int64) ([]Station, error)
	FindByOrganizationAndID(ctx context.Context, organizationID, stationID int64) (*Station, error)
	Save(ctx context.Context, station *Station) (*Station, error)
	Delete(ctx context.Context, station *Station) error
}

// UserRepository looks up users.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
}
