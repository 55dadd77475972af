// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	archivecache "civicdesk/internal/archive/cache"
	"civicdesk/internal/archive/guard"
	archivehandler "civicdesk/internal/archive/handler"
	archivemetrics "civicdesk/internal/archive/metrics"
	archiveservice "civicdesk/internal/archive/service"
	"civicdesk/internal/archive/snapshot"
	archivestore "civicdesk/internal/archive/store"
	"civicdesk/internal/audit"
	"civicdesk/internal/directory"
	"civicdesk/internal/platform/config"
	"civicdesk/internal/platform/httpserver"
	"civicdesk/internal/platform/logger"
	"civicdesk/internal/platform/middleware"
	platformredis "civicdesk/internal/platform/redis"
	"civicdesk/internal/platform/token"
	"civicdesk/internal/retention"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store archivestore.Store
		dir   directory.Directory
		sink  audit.Store
	)

	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pgStore := archivestore.NewPostgres(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure archive schema", "error", err)
			os.Exit(1)
		}
		auditStore := audit.NewPostgresStore(db)
		if err := auditStore.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure audit schema", "error", err)
			os.Exit(1)
		}
		store = pgStore
		dir = directory.NewPostgres(db)
		sink = auditStore
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
		store = archivestore.NewInMemory()
		dir = directory.NewInMemory()
		sink = audit.NewInMemoryStore()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	policies, err := retention.LoadPolicies(cfg.PolicyFile)
	if err != nil {
		// Without policies the sweep skips everything; the service still runs.
		log.Warn("failed to load retention policies", "file", cfg.PolicyFile, "error", err)
	}
	engine := retention.NewEngine(policies)

	metrics := archivemetrics.New()
	resolver := snapshot.NewResolver(dir)
	publisher := audit.NewPublisher(sink)

	archives := archiveservice.New(store, resolver, log,
		archiveservice.WithAudit(publisher),
		archiveservice.WithStatusCache(archivecache.NewStatusCache(redisClient)),
		archiveservice.WithMetrics(metrics),
	)

	sweeper := retention.NewSweeper(dir, archives, store, engine, log, metrics)
	scheduler := retention.NewScheduler(sweeper, cfg.SweepSchedule, log)

	tokens := token.NewService(cfg.JWTSigningKey)
	handler := archivehandler.New(archives, scheduler, sweeper, engine, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, log))
		// Archived principals lose access everywhere, including here.
		r.Use(guard.Self(archives, log))
		r.Use(middleware.RequireRole(log, "admin"))
		handler.Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting civicdesk archival service", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		return scheduler.Start(groupCtx)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		scheduler.Stop()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
