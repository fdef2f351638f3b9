package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BARSTATION_CONFIG", "HTTP_ADDR", "DATABASE_URL", "PG_DSN", "STORE_DRIVER", "AUTH_JWT_SECRET", "JWT_SECRET", "SHUTDOWN_SECONDS"} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PG_DSN", "postgres://localhost/bar")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/bar" || cfg.HTTPAddr != ":9090" || cfg.StoreDriver != DriverPostgres {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
store_driver: memory
jwt_secret: from-file
seed_users:
  - id: u-1
    organization_id: 1
    name: Anna
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BARSTATION_CONFIG", path)
	t.Setenv("HTTP_ADDR", ":7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != DriverMemory || cfg.JWTSecret != "from-file" || cfg.HTTPAddr != ":7070" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.SeedUsers) != 1 || cfg.SeedUsers[0].Name != "Anna" {
		t.Fatalf("unexpected seed users: %+v", cfg.SeedUsers)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := Config{StoreDriver: "mongo", JWTSecret: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
