package stations

import "errors"

var (
	// ErrNotFound is returned when a station or user does not exist in the queried scope.
	ErrNotFound = errors.New("station: not found")
	// ErrDuplicateResource is returned when a station name is already taken in the organization.
	ErrDuplicateResource = errors.New("station: duplicate resource")
	// ErrBadRequest is returned for invalid input, including cross-organization references.
	ErrBadRequest = errors.New("station: bad request")
	// ErrNilStation is returned when saving or deleting a nil station.
	ErrNilStation = errors.New("station: nil station")
)
