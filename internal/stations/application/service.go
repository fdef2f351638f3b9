package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"borsibaar-cloud/internal/observability/metrics"
	stations "borsibaar-cloud/internal/stations/domain"
)

const (
	opCreate    = "create"
	opUpdate    = "update"
	opDelete    = "delete"
	opGet       = "get"
	opList      = "list"
	opUserList  = "user_stations"
	resultOK    = metrics.ResultSuccess
	resultError = metrics.ResultError
)

// StationService enforces naming, tenancy and assignment rules for bar stations.
type StationService struct {
	stations  stations.StationRepository
	users     stations.UserRepository
	converter Converter
}

// NewStationService constructs a station service.
func NewStationService(stationRepo stations.StationRepository, userRepo stations.UserRepository, converter Converter) (*StationService, error) {
	if stationRepo == nil {
		return nil, errors.New("station service: nil station repository")
	}
	if userRepo == nil {
		return nil, errors.New("station service: nil user repository")
	}
	if converter == nil {
		converter = ResponseMapper{}
	}
	return &StationService{stations: stationRepo, users: userRepo, converter: converter}, nil
}

// CreateStation creates a station in the organization and assigns the requested users.
func (s *StationService) CreateStation(ctx context.Context, organizationID int64, req StationRequest) (resp *StationResponse, err error) {
	defer observe(opCreate, time.Now(), &err)

	if organizationID == 0 {
		return nil, fmt.Errorf("%w: organization id required", stations.ErrBadRequest)
	}
	name, err := requireName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, organizationID, name, 0); err != nil {
		return nil, err
	}

	var users []*stations.User
	if req.UserIDs.Present() {
		users, err = s.resolveUsers(ctx, organizationID, req.UserIDs.Value)
		if err != nil {
			return nil, err
		}
	}

	station := &stations.Station{
		OrganizationID: organizationID,
		Name:           name,
		Active:         stations.DefaultActive,
	}
	if req.Description.Present() {
		description := req.Description.Value
		station.Description = &description
	}
	if req.Active.Present() {
		station.Active = req.Active.Value
	}
	for _, user := range users {
		station.AssignUser(*user)
	}

	saved, err := s.stations.Save(ctx, station)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, errors.New("station service: store returned nil station")
	}
	for _, user := range users {
		user.AddStation(saved.ID)
	}

	out := s.converter.ToResponse(*saved)
	return &out, nil
}

// UpdateStation applies the present request fields to an existing station.
func (s *StationService) UpdateStation(ctx context.Context, organizationID, stationID int64, req StationRequest) (resp *StationResponse, err error) {
	defer observe(opUpdate, time.Now(), &err)

	current, err := s.findStation(ctx, organizationID, stationID)
	if err != nil {
		return nil, err
	}
	updated := *current

	if req.Name.Set {
		name, err := requireName(req.Name)
		if err != nil {
			return nil, err
		}
		if err := s.ensureUniqueName(ctx, organizationID, name, current.ID); err != nil {
			return nil, err
		}
		updated.Name = name
	}
	if req.Description.Set {
		updated.Description = nil
		if !req.Description.Null {
			description := req.Description.Value
			updated.Description = &description
		}
	}
	if req.Active.Present() {
		updated.Active = req.Active.Value
	}

	var assigned, released []*stations.User
	if req.UserIDs.Present() {
		assigned, err = s.resolveUsers(ctx, organizationID, req.UserIDs.Value)
		if err != nil {
			return nil, err
		}
		keep := make(map[string]struct{}, len(assigned))
		for _, user := range assigned {
			keep[user.ID] = struct{}{}
		}
		for _, id := range current.UserIDs() {
			if _, ok := keep[id]; ok {
				continue
			}
			user, err := s.users.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if user != nil {
				released = append(released, user)
			}
		}
		updated.Users = make([]stations.AssignedUser, 0, len(assigned))
		for _, user := range assigned {
			updated.AssignUser(*user)
		}
	}

	saved, err := s.stations.Save(ctx, &updated)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, errors.New("station service: store returned nil station")
	}
	for _, user := range released {
		user.RemoveStation(saved.ID)
	}
	for _, user := range assigned {
		user.AddStation(saved.ID)
	}

	out := s.converter.ToResponse(*saved)
	return &out, nil
}

// DeleteStation unassigns every user from the station and removes it.
func (s *StationService) DeleteStation(ctx context.Context, organizationID, stationID int64) (err error) {
	defer observe(opDelete, time.Now(), &err)

	station, err := s.findStation(ctx, organizationID, stationID)
	if err != nil {
		return err
	}

	users := make([]*stations.User, 0, len(station.Users))
	for _, id := range station.UserIDs() {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if user != nil {
			users = append(users, user)
		}
	}

	if err := s.stations.Delete(ctx, station); err != nil {
		return err
	}
	for _, user := range users {
		user.RemoveStation(station.ID)
	}
	return nil
}

// GetStationByID loads a single station of the organization.
func (s *StationService) GetStationByID(ctx context.Context, organizationID, stationID int64) (resp *StationResponse, err error) {
	defer observe(opGet, time.Now(), &err)

	station, err := s.findStation(ctx, organizationID, stationID)
	if err != nil {
		return nil, err
	}
	out := s.converter.ToResponse(*station)
	return &out, nil
}

// ListStations returns all stations of the organization ordered by id.
func (s *StationService) ListStations(ctx context.Context, organizationID int64) (resp []StationResponse, err error) {
	defer observe(opList, time.Now(), &err)

	list, err := s.stations.FindByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	result := make([]StationResponse, 0, len(list))
	for _, station := range list {
		result = append(result, s.converter.ToResponse(station))
	}
	return result, nil
}

// GetUserStations returns the stations a user is assigned to.
// The user must belong to the requested organization.
func (s *StationService) GetUserStations(ctx context.Context, userID string, organizationID int64) (resp []StationResponse, err error) {
	defer observe(opUserList, time.Now(), &err)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", stations.ErrNotFound, userID)
	}
	if user.OrganizationID != organizationID {
		return nil, fmt.Errorf("%w: user %s does not belong to organization %d", stations.ErrBadRequest, userID, organizationID)
	}

	ids := append([]int64(nil), user.StationIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]StationResponse, 0, len(ids))
	for _, id := range ids {
		station, err := s.stations.FindByOrganizationAndID(ctx, organizationID, id)
		if err != nil {
			return nil, err
		}
		if station == nil {
			continue
		}
		result = append(result, s.converter.ToResponse(*station))
	}
	return result, nil
}

func (s *StationService) findStation(ctx context.Context, organizationID, stationID int64) (*stations.Station, error) {
	station, err := s.stations.FindByOrganizationAndID(ctx, organizationID, stationID)
	if err != nil {
		return nil, err
	}
	if station == nil {
		return nil, fmt.Errorf("%w: station %d in organization %d", stations.ErrNotFound, stationID, organizationID)
	}
	return station, nil
}

// ensureUniqueName rejects a name used by any station of the organization other
// than excludeID. Stored stations always have a non-zero id.
func (s *StationService) ensureUniqueName(ctx context.Context, organizationID int64, name string, excludeID int64) error {
	existing, err := s.stations.FindByOrganization(ctx, organizationID)
	if err != nil {
		return err
	}
	for _, station := range existing {
		if station.ID == excludeID {
			continue
		}
		if station.Name == name {
			return fmt.Errorf("%w: station name %q already exists", stations.ErrDuplicateResource, name)
		}
	}
	return nil
}

// resolveUsers loads every requested user, in request order without duplicates.
func (s *StationService) resolveUsers(ctx context.Context, organizationID int64, ids []string) ([]*stations.User, error) {
	seen := make(map[string]struct{}, len(ids))
	users := make([]*stations.User, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%w: empty user id", stations.ErrBadRequest)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("%w: user %s", stations.ErrNotFound, id)
		}
		if user.OrganizationID != organizationID {
			return nil, fmt.Errorf("%w: user %s belongs to another organization", stations.ErrBadRequest, id)
		}
		users = append(users, user)
	}
	return users, nil
}

func requireName(name Optional[string]) (string, error) {
	if !name.Present() || strings.TrimSpace(name.Value) == "" {
		return "", fmt.Errorf("%w: name is required", stations.ErrBadRequest)
	}
	return name.Value, nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.ObserveStationOperation(operation, operationResult(*err), time.Since(start))
}

func operationResult(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, stations.ErrNotFound):
		return "not_found"
	case errors.Is(err, stations.ErrDuplicateResource):
		return "duplicate"
	case errors.Is(err, stations.ErrBadRequest):
		return "bad_request"
	default:
		return resultError
	}
}
