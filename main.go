package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"borsibaar-cloud/internal/audit"
	"borsibaar-cloud/internal/auth"
	"borsibaar-cloud/internal/config"
	"borsibaar-cloud/internal/observability/metrics"
	stationapp "borsibaar-cloud/internal/stations/application"
	stations "borsibaar-cloud/internal/stations/domain"
	"borsibaar-cloud/internal/stations/infrastructure/memory"
	stationrepo "borsibaar-cloud/internal/stations/infrastructure/postgres"
	stationhttp "borsibaar-cloud/internal/stations/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	var (
		stationRepo stations.StationRepository
		userRepo    stations.UserRepository
		auditLogger audit.Logger
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		metrics.Init(db, logger)
		stationRepo = stationrepo.NewStationRepository(db)
		userRepo = stationrepo.NewUserRepository(db)
		auditLogger = audit.NewRepository(db)
	case config.DriverMemory:
		metrics.Init(nil, logger)
		store := memory.NewStore()
		for _, seed := range cfg.SeedUsers {
			if err := store.PutUser(stations.User{ID: seed.ID, OrganizationID: seed.OrganizationID, Name: seed.Name}); err != nil {
				logger.Fatalf("seed user %s: %v", seed.ID, err)
			}
		}
		stationRepo = store.Stations()
		userRepo = store.Users()
		auditLogger = audit.NewStdLogger(logger)
		logger.Printf("using in-memory store with %d seeded users", len(cfg.SeedUsers))
	}

	service, err := stationapp.NewStationService(stationRepo, userRepo, stationapp.ResponseMapper{})
	if err != nil {
		logger.Fatalf("station service init error: %v", err)
	}
	stationHandler, err := stationhttp.NewHandler(service, auditLogger, logger)
	if err != nil {
		logger.Fatalf("station handler init error: %v", err)
	}

	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil))

	mux := http.NewServeMux()
	mux.Handle("/api/v1/stations", stationHandler)
	mux.Handle("/api/v1/stations/", stationHandler)
	mux.Handle("/api/v1/users/", stationHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownSeconds)*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("http shutdown error: %v", err)
		}
	}()

	logger.Printf("http listening on %s (store=%s)", cfg.HTTPAddr, cfg.StoreDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(err)
	}
	logger.Printf("http server stopped")
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		metrics.IncHTTPRequest(r.Method, strconv.Itoa(resp.status))
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
