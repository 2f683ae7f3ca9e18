package handler

import (
	"fmt"
	"net/http"

	"github.com/messagely/messagely/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "messagely_users_registered_total %d\n", snap.UsersRegistered)

	writeMetric(w, "messagely_logins_total{outcome=\"%s\"} %d\n", metrics.LoginSuccess, snap.LoginsSucceeded)
	writeMetric(w, "messagely_logins_total{outcome=\"%s\"} %d\n", metrics.LoginBadPassword, snap.LoginsBadPassword)
	writeMetric(w, "messagely_logins_total{outcome=\"%s\"} %d\n", metrics.LoginUnknownUser, snap.LoginsUnknownUser)

	writeMetric(w, "messagely_messages_sent_total %d\n", snap.MessagesSent)
	writeMetric(w, "messagely_messages_read_total %d\n", snap.MessagesRead)
	writeMetric(w, "messagely_access_denied_total %d\n", snap.AccessDenied)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
