package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"borsibaar-cloud/internal/auth"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	dsn             string
	baseURL         string
	jwtSecret       string
	organizationID  int64
	userPrefix      string
	userCount       int
	stationPrefix   string
	stationCount    int
	usersPerStation int
	stationIDsOut   string
}

func main() {
	cfg := parseConfig()
	if cfg.dsn == "" {
		log.Fatal("PG_DSN or DATABASE_URL is required")
	}
	if cfg.organizationID <= 0 {
		log.Fatal("organization-id must be > 0")
	}
	if cfg.userCount < 0 || cfg.stationCount < 0 {
		log.Fatal("user-count and station-count must be >= 0")
	}

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	userIDs := buildUserIDs(cfg.userPrefix, cfg.userCount)
	log.Printf("seeding users: organization=%d count=%d", cfg.organizationID, len(userIDs))
	if err := seedUsers(ctx, db, cfg.organizationID, userIDs); err != nil {
		log.Fatalf("seed users: %v", err)
	}

	if cfg.stationCount > 0 {
		if cfg.baseURL == "" || cfg.jwtSecret == "" {
			log.Fatal("base-url and jwt-secret are required when station-count > 0")
		}
		token, err := auth.SignJWT([]byte(cfg.jwtSecret), cfg.organizationID, auth.RoleAdmin, "seed-tool", time.Hour)
		if err != nil {
			log.Fatalf("sign token: %v", err)
		}
		log.Printf("creating stations: count=%d users_per_station=%d", cfg.stationCount, cfg.usersPerStation)
		ids, err := createStations(ctx, cfg, token, userIDs)
		if err != nil {
			log.Fatalf("create stations: %v", err)
		}
		if cfg.stationIDsOut != "" {
			if err := writeLines(cfg.stationIDsOut, ids); err != nil {
				log.Fatalf("write station ids: %v", err)
			}
			log.Printf("station ids written to %s", cfg.stationIDsOut)
		}
	}

	log.Printf("seed completed")
}

func parseConfig() config {
	cfg := config{}
	var organizationID int
	flag.StringVar(&cfg.dsn, "pg-dsn", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	flag.StringVar(&cfg.baseURL, "base-url", envOrDefault("BASE_URL", ""), "API base URL for station creation")
	flag.StringVar(&cfg.jwtSecret, "jwt-secret", envOrDefault("AUTH_JWT_SECRET", envOrDefault("JWT_SECRET", "")), "secret used to sign the admin token")
	flag.IntVar(&organizationID, "organization-id", envOrInt("ORGANIZATION_ID", 1), "organization the seeded data belongs to")
	flag.StringVar(&cfg.userPrefix, "user-prefix", envOrDefault("USER_PREFIX", "seed-user-"), "user id prefix")
	flag.IntVar(&cfg.userCount, "user-count", envOrInt("USER_COUNT", 10), "number of users to seed")
	flag.StringVar(&cfg.stationPrefix, "station-prefix", envOrDefault("STATION_PREFIX", "Station "), "station name prefix")
	flag.IntVar(&cfg.stationCount, "station-count", envOrInt("STATION_COUNT", 0), "number of stations to create via the API")
	flag.IntVar(&cfg.usersPerStation, "users-per-station", envOrInt("USERS_PER_STATION", 2), "users assigned to each created station")
	flag.StringVar(&cfg.stationIDsOut, "station-ids-out", envOrDefault("STATION_IDS_OUT", ""), "output file for created station ids")
	flag.Parse()
	cfg.organizationID = int64(organizationID)
	return cfg
}

func buildUserIDs(prefix string, count int) []string {
	list := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		list = append(list, fmt.Sprintf("%s%04d", prefix, i))
	}
	return list
}

func seedUsers(ctx context.Context, db *sql.DB, organizationID int64, userIDs []string) error {
	const upsertSQL = `
INSERT INTO users (id, organization_id, name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (id)
DO UPDATE SET
	organization_id = EXCLUDED.organization_id,
	name = EXCLUDED.name,
	updated_at = EXCLUDED.updated_at`

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	now := time.Now().UTC()
	for idx, id := range userIDs {
		name := fmt.Sprintf("Seed User %d", idx+1)
		if _, err := stmt.ExecContext(ctx, id, organizationID, name, now); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func createStations(ctx context.Context, cfg config, token string, userIDs []string) ([]string, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	baseURL := strings.TrimRight(cfg.baseURL, "/")
	ids := make([]string, 0, cfg.stationCount)
	for i := 0; i < cfg.stationCount; i++ {
		body := map[string]any{
			"name":     fmt.Sprintf("%s%d", cfg.stationPrefix, i+1),
			"active":   true,
			"user_ids": pickUsers(userIDs, i, cfg.usersPerStation),
		}
		payload, _ := json.Marshal(body)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/stations", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("create station %d failed: http %d", i+1, resp.StatusCode)
		}
		var respBody struct {
			ID int64 `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
			_ = resp.Body.Close()
			return nil, err
		}
		_ = resp.Body.Close()
		if respBody.ID == 0 {
			return nil, fmt.Errorf("empty station id for station %d", i+1)
		}
		ids = append(ids, strconv.FormatInt(respBody.ID, 10))
	}
	return ids, nil
}

// pickUsers rotates through the seeded users so assignments spread evenly.
func pickUsers(userIDs []string, offset, count int) []string {
	if len(userIDs) == 0 || count <= 0 {
		return []string{}
	}
	if count > len(userIDs) {
		count = len(userIDs)
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, userIDs[(offset+i)%len(userIDs)])
	}
	return out
}

func writeLines(path string, lines []string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
