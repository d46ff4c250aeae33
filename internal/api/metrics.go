package api

import (
	"context"
	"net/http"

	"github.com/calmcare/therapy-booking/internal/monitor"
)

// MetricsSource is the status monitor as the handlers see it.
type MetricsSource interface {
	Metrics(ctx context.Context) (monitor.StatusMetrics, error)
	DetailedReport(ctx context.Context) (monitor.Report, error)
}

func statusMetricsHandler(src MetricsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := src.Metrics(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func statusReportHandler(src MetricsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := src.DetailedReport(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
