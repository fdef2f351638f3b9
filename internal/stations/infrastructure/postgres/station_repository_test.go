package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	stations "borsibaar-cloud/internal/stations/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	content, err := os.ReadFile(filepath.Join(projectRoot(), "migrations", "001_bar_stations.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.Exec(string(content)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	return db
}

func projectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..")
}

func resetOrganization(t *testing.T, db *sql.DB, organizationID int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `DELETE FROM bar_stations WHERE organization_id = $1`, organizationID); err != nil {
		t.Fatalf("reset stations: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM users WHERE organization_id = $1`, organizationID); err != nil {
		t.Fatalf("reset users: %v", err)
	}
}

func TestStationRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	const org = int64(90001)
	resetOrganization(t, db, org)
	ctx := context.Background()

	for _, id := range []string{"it-user-a", "it-user-b"} {
		if _, err := db.ExecContext(ctx, `
INSERT INTO users (id, organization_id, name) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET organization_id = EXCLUDED.organization_id`, id, org, id); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}

	repo := NewStationRepository(db)
	users := NewUserRepository(db)
	desc := "Front bar"
	saved, err := repo.Save(ctx, &stations.Station{
		OrganizationID: org,
		Name:           "Main",
		Description:    &desc,
		Active:         true,
		Users:          []stations.AssignedUser{{ID: "it-user-a"}},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == 0 || saved.Description == nil || *saved.Description != desc {
		t.Fatalf("unexpected saved station: %+v", saved)
	}
	if len(saved.Users) != 1 || saved.Users[0].Name != "it-user-a" {
		t.Fatalf("unexpected saved users: %+v", saved.Users)
	}

	userA, err := users.FindByID(ctx, "it-user-a")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if userA == nil || !userA.HasStation(saved.ID) {
		t.Fatalf("expected user a assigned, got %+v", userA)
	}

	if _, err := repo.Save(ctx, &stations.Station{OrganizationID: org, Name: "Main"}); !errors.Is(err, stations.ErrDuplicateResource) {
		t.Fatalf("expected duplicate resource, got %v", err)
	}

	saved.Users = []stations.AssignedUser{{ID: "it-user-b"}}
	saved.Description = nil
	updated, err := repo.Save(ctx, saved)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != nil || !updated.HasUser("it-user-b") || updated.HasUser("it-user-a") {
		t.Fatalf("unexpected updated station: %+v", updated)
	}

	list, err := repo.FindByOrganization(ctx, org)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || len(list[0].Users) != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := repo.Delete(ctx, updated); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if found, err := repo.FindByOrganizationAndID(ctx, org, updated.ID); err != nil || found != nil {
		t.Fatalf("expected station gone, got %+v err=%v", found, err)
	}
	userB, _ := users.FindByID(ctx, "it-user-b")
	if userB.HasStation(updated.ID) {
		t.Fatalf("expected assignment removed")
	}
	if err := repo.Delete(ctx, updated); !errors.Is(err, stations.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
