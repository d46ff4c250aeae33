package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/calmcare/therapy-booking/internal/appointment"
	"github.com/calmcare/therapy-booking/internal/config"
	"github.com/calmcare/therapy-booking/internal/db"
	"github.com/calmcare/therapy-booking/internal/monitor"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("status-monitor starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running status monitor in env=%s interval=%s", cfg.Env, cfg.MonitorInterval)

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

	repo := appointment.NewPgRepository(pgPool)
	mon := monitor.NewService(repo, cfg.MetricsCacheTTL, nil)

	// Run once at startup
	runOnce(rootCtx, mon)

	ticker := time.NewTicker(cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping status monitor")
			return
		case <-ticker.C:
			runOnce(rootCtx, mon)
		}
	}
}

func runOnce(ctx context.Context, mon *monitor.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	report, err := mon.DetailedReport(runCtx)
	if err != nil {
		log.Printf("report run error: %v", err)
		return
	}

	m := report.Metrics
	log.Printf("report: total=%d transitions_24h=%d legacy=%d inconsistent=%d missing=%d",
		m.TotalAppointments, m.TransitionsLast24h,
		m.Health.LegacyStatusCount, m.Health.InconsistentStateCount, m.Health.MissingFieldsCount)

	for _, alert := range report.Alerts {
		log.Printf("ALERT: %s", alert)
	}
	for _, rec := range report.Recommendations {
		log.Printf("recommendation: %s", rec)
	}

	log.Printf("report run complete in %s", time.Since(start))
}
