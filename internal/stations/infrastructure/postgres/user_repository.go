package postgres

import (
	"context"
	"database/sql"
	"errors"

	stations "borsibaar-cloud/internal/stations/domain"
)

// UserRepository reads users and their station assignments.
type UserRepository struct {
	db DBTX
}

// NewUserRepository constructs a repository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID loads a user by id, returning nil when missing.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*stations.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	if id == "" {
		return nil, nil
	}

	var user stations.User
	if err := r.db.QueryRowContext(ctx, `
SELECT id, organization_id, name
FROM users
WHERE id = $1`, id).Scan(&user.ID, &user.OrganizationID, &user.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT bar_station_id
FROM bar_station_users
WHERE user_id = $1
ORDER BY bar_station_id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var stationID int64
		if err := rows.Scan(&stationID); err != nil {
			return nil, err
		}
		user.StationIDs = append(user.StationIDs, stationID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &user, nil
}
