package application

import (
	"sort"
	"time"

	stations "borsibaar-cloud/internal/stations/domain"
)

// StationResponse is the external representation of a station.
type StationResponse struct {
	ID             int64         `json:"id"`
	OrganizationID int64         `json:"organization_id"`
	Name           string        `json:"name"`
	Description    *string       `json:"description"`
	Active         bool          `json:"active"`
	AssignedUsers  []UserSummary `json:"assigned_users"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// UserSummary describes a user assigned to a station.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Converter turns persisted stations into responses.
type Converter interface {
	ToResponse(station stations.Station) StationResponse
}

// ResponseMapper is the default Converter.
type ResponseMapper struct{}

// ToResponse maps a station, ordering assigned users by name then id.
func (ResponseMapper) ToResponse(station stations.Station) StationResponse {
	users := make([]UserSummary, 0, len(station.Users))
	for _, user := range station.Users {
		users = append(users, UserSummary{ID: user.ID, Name: user.Name})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})

	var description *string
	if station.Description != nil {
		value := *station.Description
		description = &value
	}
	return StationResponse{
		ID:             station.ID,
		OrganizationID: station.OrganizationID,
		Name:           station.Name,
		Description:    description,
		Active:         station.Active,
		AssignedUsers:  users,
		CreatedAt:      station.CreatedAt,
		UpdatedAt:      station.UpdatedAt,
	}
}
