// internal/app/features/health/handler.go
package health

import (
	"context"
	"encoding/json"
	"net/http"

	metricsstore "github.com/dalemusser/identitymongo/internal/app/store/metrics"
	"github.com/dalemusser/identitymongo/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// PingFunc checks database connectivity.
type PingFunc func(ctx context.Context) error

// CountsFunc reports document totals. It must not fail; missing totals
// are zero.
type CountsFunc func(ctx context.Context) metricsstore.Counts

// MongoPing pings the primary of client.
func MongoPing(client *mongo.Client) PingFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Ping   PingFunc
	Counts CountsFunc // optional
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. counts may be nil.
func NewHandler(ping PingFunc, counts CountsFunc, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Ping: ping, Counts: counts, Log: logger}
}

type healthResponse struct {
	Status   string               `json:"status"`
	Database string               `json:"database"`
	Message  string               `json:"message,omitempty"`
	Error    string               `json:"error,omitempty"`
	Counts   *metricsstore.Counts `json:"counts,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "counts":{"users":3,"roles":1} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	pingCtx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	err := h.Ping(pingCtx)
	cancel()

	if err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:   "error",
			Database: "disconnected",
			Message:  "Database unavailable",
			Error:    err.Error(),
		})
		return
	}

	resp := healthResponse{Status: "ok", Database: "connected"}
	if h.Counts != nil {
		countCtx, cancel := context.WithTimeout(r.Context(), timeouts.Counts())
		c := h.Counts(countCtx)
		cancel()
		resp.Counts = &c
	}

	_ = json.NewEncoder(w).Encode(resp)
}
