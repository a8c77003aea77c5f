// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"errors"
	"net/http"

	healthfeature "github.com/dalemusser/identitymongo/internal/app/features/health"
	metricsstore "github.com/dalemusser/identitymongo/internal/app/store/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var errNoClient = errors.New("no MongoDB client")

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// The identity store is a library surface, so the router only carries the
// operational endpoints: /health for load balancers and /metrics for
// Prometheus when enabled.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Health check endpoint for load balancers and orchestrators
	var ping healthfeature.PingFunc = func(context.Context) error { return errNoClient }
	if deps.MongoClient != nil {
		ping = healthfeature.MongoPing(deps.MongoClient)
	}
	var counts healthfeature.CountsFunc
	if deps.Identity != nil {
		counts = func(ctx context.Context) metricsstore.Counts {
			return metricsstore.FetchCounts(ctx, deps.Identity)
		}
	}
	healthHandler := healthfeature.NewHandler(ping, counts, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if appCfg.MetricsEnabled && deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	return r, nil
}
