// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/identitymongo/internal/app/store/identityctx"
	"github.com/dalemusser/identitymongo/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for identitymongo.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, users_collection, etc.
//   - Environment variables: IDENTITYMONGO_MONGO_URI, IDENTITYMONGO_USERS_COLLECTION, etc.
//   - Command-line flags: --mongo_uri, --users_collection, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "identity", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Collections
	{Name: "users_collection", Default: identityctx.DefaultUsersCollection, Desc: "Collection holding user documents"},
	{Name: "roles_collection", Default: identityctx.DefaultRolesCollection, Desc: "Collection holding role documents"},

	// Store behavior
	{Name: "auto_save_changes", Default: true, Desc: "Flush after every store operation"},

	// Audit logging settings
	{Name: "audit_log_admin", Default: "all", Desc: "User/role change logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_security", Default: "all", Desc: "Concurrency failure logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Health check ping timeout"},
	{Name: "timeout_counts", Default: "5s", Desc: "Timeout for document counts on the health endpoint"},
	{Name: "timeout_schema", Default: "60s", Desc: "Timeout for index reconciliation at startup"},

	// Metrics
	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics at /metrics"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, IDENTITYMONGO_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "IDENTITYMONGO", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		UsersCollection: strings.TrimSpace(appValues.String("users_collection")),
		RolesCollection: strings.TrimSpace(appValues.String("roles_collection")),

		AutoSaveChanges: appValues.Bool("auto_save_changes"),

		AuditLogAdmin:    appValues.String("audit_log_admin"),
		AuditLogSecurity: appValues.String("audit_log_security"),

		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutCounts: appValues.Duration("timeout_counts", timeouts.DefaultCounts),
		TimeoutSchema: appValues.Duration("timeout_schema", timeouts.DefaultSchema),

		MetricsEnabled: appValues.Bool("metrics_enabled"),
	}

	return coreCfg, appCfg, nil
}

var auditModes = map[string]bool{"": true, "all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI format is checked before any connection attempt, and the
// collection names must be usable and distinct.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return errors.New("mongo_database must not be empty")
	}
	if appCfg.UsersCollection == "" || appCfg.RolesCollection == "" {
		return errors.New("users_collection and roles_collection must not be empty")
	}
	if appCfg.UsersCollection == appCfg.RolesCollection {
		return fmt.Errorf("users_collection and roles_collection must differ (both %q)", appCfg.UsersCollection)
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)", appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}
	for key, v := range map[string]string{"audit_log_admin": appCfg.AuditLogAdmin, "audit_log_security": appCfg.AuditLogSecurity} {
		if !auditModes[v] {
			return fmt.Errorf("%s: unknown mode %q (want all, db, log, or off)", key, v)
		}
	}
	for key, d := range map[string]time.Duration{"timeout_ping": appCfg.TimeoutPing, "timeout_counts": appCfg.TimeoutCounts, "timeout_schema": appCfg.TimeoutSchema} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}
