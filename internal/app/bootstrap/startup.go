// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/identitymongo/internal/app/store/audit"
	metricsstore "github.com/dalemusser/identitymongo/internal/app/store/metrics"
	"github.com/dalemusser/identitymongo/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs after DB connections and schema setup are complete, but
// before the HTTP handler is built. It checks that the stores were wired
// and logs what the service is serving.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Identity == nil || deps.Users == nil || deps.Roles == nil {
		return errors.New("identity stores not initialized")
	}

	countCtx, cancel := context.WithTimeout(ctx, timeouts.Counts())
	defer cancel()
	counts := metricsstore.FetchCounts(countCtx, deps.Identity)

	logger.Info("identity store ready",
		zap.String("users_collection", appCfg.UsersCollection),
		zap.String("roles_collection", appCfg.RolesCollection),
		zap.Bool("auto_save_changes", deps.Users.AutoSaveChanges()),
		zap.Int64("users", counts.Users),
		zap.Int64("roles", counts.Roles),
		zap.Any("timeouts", timeouts.Current()))

	if deps.Audit != nil {
		logRecentConflicts(ctx, deps.Audit, logger)
	}
	return nil
}

// conflictWindow is how far back Startup looks for rejected writes.
const conflictWindow = 24 * time.Hour

// logRecentConflicts warns about concurrency failures recorded in the
// audit log during the last conflictWindow. Read errors are logged only.
func logRecentConflicts(ctx context.Context, store *audit.Store, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Counts())
	defer cancel()

	since := time.Now().Add(-conflictWindow)
	latest, err := store.RecentConflicts(ctx, since, 5)
	if err != nil {
		logger.Warn("failed to read audit log", zap.Error(err))
		return
	}
	if len(latest) == 0 {
		return
	}
	total, err := store.CountByFilter(ctx, audit.QueryFilter{
		EventType: audit.EventConcurrencyFailure,
		StartTime: &since,
	})
	if err != nil {
		total = int64(len(latest))
	}

	subjects := make([]string, 0, len(latest))
	for _, e := range latest {
		subjects = append(subjects, e.Subject+":"+e.SubjectID)
	}
	logger.Warn("recent concurrency failures",
		zap.Int64("count", total),
		zap.Duration("window", conflictWindow),
		zap.Strings("latest", subjects))
}
