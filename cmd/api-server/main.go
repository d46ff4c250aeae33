package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/calmcare/therapy-booking/internal/api"
	"github.com/calmcare/therapy-booking/internal/appointment"
	"github.com/calmcare/therapy-booking/internal/config"
	"github.com/calmcare/therapy-booking/internal/db"
	"github.com/calmcare/therapy-booking/internal/events"
	"github.com/calmcare/therapy-booking/internal/integrations"
	"github.com/calmcare/therapy-booking/internal/monitor"
	redisclient "github.com/calmcare/therapy-booking/internal/redis"
	"github.com/calmcare/therapy-booking/internal/workflow"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s transition_engine=%t", cfg.Env, cfg.HTTPPort, cfg.UseTransitionEngine)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := appointment.NewPgRepository(pgPool)
	recorder := appointment.NewRecorder(repo)
	calendar := integrations.LogCalendarSync{}
	notifier := integrations.LogNotifier{}
	payouts := integrations.LogPayoutService{}
	dispatcher := events.NewDispatcher(repo, calendar, notifier, payouts)
	locker := redisclient.NewRedisAppointmentLocker(rdb, cfg.LockTTL)
	engine := appointment.NewEngine(repo, recorder, dispatcher, locker)
	wf := workflow.NewService(engine, repo, calendar, notifier, func() bool { return cfg.UseTransitionEngine })
	mon := monitor.NewService(repo, cfg.MetricsCacheTTL, nil)

	handler := api.NewRouter(api.RouterConfig{
		Workflow: wf,
		History:  recorder,
		Monitor:  mon,
		PgPool:   pgPool,
		Redis:    rdb,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
