// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/identitymongo/internal/app/store/audit"
	"github.com/dalemusser/identitymongo/internal/app/store/identityctx"
	rolestore "github.com/dalemusser/identitymongo/internal/app/store/roles"
	userstore "github.com/dalemusser/identitymongo/internal/app/store/users"
	"github.com/dalemusser/identitymongo/internal/app/system/auditlog"
	"github.com/dalemusser/identitymongo/internal/app/system/bsonkeys"
	"github.com/dalemusser/identitymongo/internal/app/system/indexes"
	"github.com/dalemusser/identitymongo/internal/app/system/keyconv"
	"github.com/dalemusser/identitymongo/internal/app/system/storemetrics"
	"github.com/dalemusser/identitymongo/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and builds the identity stores on top of it.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	// Index reconciliation logs through the global logger.
	zap.ReplaceGlobals(logger)
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Counts: appCfg.TimeoutCounts,
		Schema: appCfg.TimeoutSchema,
	})

	clientOpts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize).
		SetRegistry(bsonkeys.Registry())

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		logger.Error("mongo connect failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		logger.Error("mongo ping failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize),
		zap.Uint64("min_pool", appCfg.MongoMinPoolSize))

	deps, err := buildDeps(db, appCfg, logger)
	if err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, err
	}
	deps.MongoClient = client
	return deps, nil
}

// buildDeps wires the stores over db. Split from ConnectDB so tests can
// build against their own database.
func buildDeps(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := storemetrics.New(reg)
	if err != nil {
		return DBDeps{}, fmt.Errorf("register store metrics: %w", err)
	}

	identity := identityctx.NewMongo[Key](db, identityctx.Options{
		UsersCollection: appCfg.UsersCollection,
		RolesCollection: appCfg.RolesCollection,
	}, logger.Named("identityctx"))

	auditStore := audit.New(db)
	auditLog := auditlog.New(auditStore, logger, auditlog.Config{
		Admin:    appCfg.AuditLogAdmin,
		Security: appCfg.AuditLogSecurity,
	})

	users := userstore.New[Key](identity, keyconv.ObjectID{}, userstore.Options{
		Logger:  logger.Named("userstore"),
		Audit:   auditLog,
		Metrics: metrics,
	})
	roles := rolestore.New[Key](identity, keyconv.ObjectID{}, rolestore.Options{
		Logger:  logger.Named("rolestore"),
		Audit:   auditLog,
		Metrics: metrics,
	})
	users.SetAutoSaveChanges(appCfg.AutoSaveChanges)
	roles.SetAutoSaveChanges(appCfg.AutoSaveChanges)

	return DBDeps{
		MongoDatabase: db,
		Identity:      identity,
		Users:         users,
		Roles:         roles,
		Audit:         auditStore,
		Registry:      reg,
		Metrics:       metrics,
	}, nil
}

// EnsureSchema reconciles the indexes on the users, roles, and audit
// collections.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Schema(), logger, "ensure indexes")
	defer cancel()

	err := indexes.EnsureAll(ctx, deps.MongoDatabase, identityctx.Options{
		UsersCollection: appCfg.UsersCollection,
		RolesCollection: appCfg.RolesCollection,
	})
	if err != nil {
		logger.Error("index reconciliation failed", zap.Error(err))
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("indexes ensured")
	return nil
}
