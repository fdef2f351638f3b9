package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	stations "borsibaar-cloud/internal/stations/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StationRepository is a Postgres implementation for bar stations.
// Assignments live in bar_station_users and are written with the station row.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository constructs a repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// FindByOrganization loads all stations of an organization.
func (r *StationRepository) FindByOrganization(ctx context.Context, organizationID int64) ([]stations.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, organization_id, name, description, is_active, created_at, updated_at
FROM bar_stations
WHERE organization_id = $1
ORDER BY id ASC`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []stations.Station
	index := make(map[int64]int)
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		index[station.ID] = len(result)
		result = append(result, *station)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	assigned, err := r.db.QueryContext(ctx, `
SELECT su.bar_station_id, u.id, u.name
FROM bar_station_users su
JOIN bar_stations s ON s.id = su.bar_station_id
JOIN users u ON u.id = su.user_id
WHERE s.organization_id = $1
ORDER BY su.bar_station_id ASC, u.id ASC`, organizationID)
	if err != nil {
		return nil, err
	}
	defer assigned.Close()

	for assigned.Next() {
		var (
			stationID int64
			user      stations.AssignedUser
		)
		if err := assigned.Scan(&stationID, &user.ID, &user.Name); err != nil {
			return nil, err
		}
		if i, ok := index[stationID]; ok {
			result[i].Users = append(result[i].Users, user)
		}
	}
	if err := assigned.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindByOrganizationAndID loads a station scoped to its organization.
func (r *StationRepository) FindByOrganizationAndID(ctx context.Context, organizationID, stationID int64) (*stations.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}
	return loadStation(ctx, r.db, organizationID, stationID)
}

// Save inserts a new station or updates an existing one, replacing its assignments.
func (r *StationRepository) Save(ctx context.Context, station *stations.Station) (*stations.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}
	if station == nil {
		return nil, stations.ErrNilStation
	}
	if err := station.Validate(); err != nil {
		return nil, err
	}

	var saved *stations.Station
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		id := station.ID
		if id == 0 {
			if err := tx.QueryRowContext(ctx, `
INSERT INTO bar_stations (organization_id, name, description, is_active)
VALUES ($1, $2, $3, $4)
RETURNING id`,
				station.OrganizationID, station.Name, nullString(station.Description), station.Active,
			).Scan(&id); err != nil {
				return err
			}
		} else {
			res, err := tx.ExecContext(ctx, `
UPDATE bar_stations
SET name = $3,
	description = $4,
	is_active = $5,
	updated_at = NOW()
WHERE id = $1 AND organization_id = $2`,
				id, station.OrganizationID, station.Name, nullString(station.Description), station.Active,
			)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return fmt.Errorf("%w: station %d in organization %d", stations.ErrNotFound, id, station.OrganizationID)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM bar_station_users WHERE bar_station_id = $1`, id); err != nil {
				return err
			}
		}

		for _, userID := range station.UserIDs() {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO bar_station_users (bar_station_id, user_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`, id, userID); err != nil {
				return err
			}
		}

		loaded, err := loadStation(ctx, tx, station.OrganizationID, id)
		if err != nil {
			return err
		}
		if loaded == nil {
			return fmt.Errorf("%w: station %d", stations.ErrNotFound, id)
		}
		saved = loaded
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return saved, nil
}

// Delete removes a station and its assignments.
func (r *StationRepository) Delete(ctx context.Context, station *stations.Station) error {
	if r == nil || r.db == nil {
		return errors.New("station repo: nil db")
	}
	if station == nil {
		return stations.ErrNilStation
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bar_station_users WHERE bar_station_id = $1`, station.ID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
DELETE FROM bar_stations
WHERE id = $1 AND organization_id = $2`, station.ID, station.OrganizationID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: station %d", stations.ErrNotFound, station.ID)
		}
		return nil
	})
}

func (r *StationRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func loadStation(ctx context.Context, db DBTX, organizationID, stationID int64) (*stations.Station, error) {
	row := db.QueryRowContext(ctx, `
SELECT id, organization_id, name, description, is_active, created_at, updated_at
FROM bar_stations
WHERE organization_id = $1 AND id = $2`, organizationID, stationID)
	station, err := scanStation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
SELECT u.id, u.name
FROM bar_station_users su
JOIN users u ON u.id = su.user_id
WHERE su.bar_station_id = $1
ORDER BY u.id ASC`, station.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var user stations.AssignedUser
		if err := rows.Scan(&user.ID, &user.Name); err != nil {
			return nil, err
		}
		station.Users = append(station.Users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return station, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStation(row scanner) (*stations.Station, error) {
	var (
		station     stations.Station
		description sql.NullString
	)
	if err := row.Scan(
		&station.ID,
		&station.OrganizationID,
		&station.Name,
		&description,
		&station.Active,
		&station.CreatedAt,
		&station.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if description.Valid {
		value := description.String
		station.Description = &value
	}
	station.CreatedAt = station.CreatedAt.UTC()
	station.UpdatedAt = station.UpdatedAt.UTC()
	return &station, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

// translateError maps constraint violations onto domain errors.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", stations.ErrDuplicateResource, pgErr.ConstraintName)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", stations.ErrNotFound, pgErr.ConstraintName)
	}
	return err
}
