package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/identitymongo/internal/app/store/audit"
	"github.com/dalemusser/identitymongo/internal/app/store/identityctx"
	rolestore "github.com/dalemusser/identitymongo/internal/app/store/roles"
	userstore "github.com/dalemusser/identitymongo/internal/app/store/users"
	"github.com/dalemusser/identitymongo/internal/app/system/keyconv"
	"github.com/dalemusser/identitymongo/internal/app/system/storemetrics"
	"github.com/dalemusser/identitymongo/internal/domain/identity"
	"github.com/dalemusser/identitymongo/internal/domain/models"
	"github.com/dalemusser/identitymongo/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "identity",
		MongoMaxPoolSize: 100,
		MongoMinPoolSize: 10,
		UsersCollection:  "users",
		RolesCollection:  "roles",
		AutoSaveChanges:  true,
		AuditLogAdmin:    "all",
		AuditLogSecurity: "log",
		MetricsEnabled:   true,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"no database", func(c *AppConfig) { c.MongoDatabase = "" }, "mongo_database"},
		{"empty collection", func(c *AppConfig) { c.RolesCollection = "" }, "must not be empty"},
		{"same collection", func(c *AppConfig) { c.RolesCollection = "users" }, "must differ"},
		{"pool sizes", func(c *AppConfig) { c.MongoMinPoolSize = 200 }, "exceeds"},
		{"audit mode", func(c *AppConfig) { c.AuditLogSecurity = "sometimes" }, "audit_log_security"},
		{"blank audit mode", func(c *AppConfig) { c.AuditLogAdmin = "" }, ""},
		{"negative timeout", func(c *AppConfig) { c.TimeoutPing = -time.Second }, "timeout_ping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := ValidateConfig(nil, cfg, testLogger())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// memoryDeps wires the stores over the in-memory backend.
func memoryDeps(t *testing.T) DBDeps {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics, err := storemetrics.New(reg)
	require.NoError(t, err)

	db := identityctx.NewMemory[Key](identityctx.NewMemoryDB(), identityctx.Options{}, nil)
	return DBDeps{
		Identity: db,
		Users:    userstore.New[Key](db, keyconv.ObjectID{}, userstore.Options{Metrics: metrics}),
		Roles:    rolestore.New[Key](db, keyconv.ObjectID{}, rolestore.Options{Metrics: metrics}),
		Registry: reg,
		Metrics:  metrics,
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestBuildHandler_Routes(t *testing.T) {
	deps := memoryDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := deps.Users.Create(ctx, models.NewUser(primitive.NewObjectID(), "alice"))
	require.NoError(t, err)

	h, err := BuildHandler(nil, validConfig(), deps, testLogger())
	require.NoError(t, err)

	// no client: the ping fails and the endpoint reports it
	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no MongoDB client")

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "identitymongo_store_operations_total"))
}

func TestBuildHandler_MetricsDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.MetricsEnabled = false

	h, err := BuildHandler(nil, cfg, memoryDeps(t), testLogger())
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/metrics").Code)
}

func TestStartup_RequiresStores(t *testing.T) {
	err := Startup(context.Background(), nil, validConfig(), DBDeps{}, testLogger())
	assert.Error(t, err)

	assert.NoError(t, Startup(context.Background(), nil, validConfig(), memoryDeps(t), testLogger()))
}

func TestShutdown_DisposesStores(t *testing.T) {
	deps := memoryDeps(t)

	require.NoError(t, Shutdown(context.Background(), nil, validConfig(), deps, testLogger()))

	_, err := deps.Users.FindByName(context.Background(), "ALICE")
	assert.True(t, errors.Is(err, identity.ErrDisposed))
	_, err = deps.Roles.FindByName(context.Background(), "ADMIN")
	assert.True(t, errors.Is(err, identity.ErrDisposed))
}

func TestBuildDeps_EnsureSchema(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := validConfig()
	cfg.AutoSaveChanges = false
	deps, err := buildDeps(db, cfg, testLogger())
	require.NoError(t, err)
	assert.False(t, deps.Users.AutoSaveChanges())
	assert.False(t, deps.Roles.AutoSaveChanges())

	require.NoError(t, EnsureSchema(ctx, nil, cfg, deps, testLogger()))

	role := models.NewRole(primitive.NewObjectID(), "Admin")
	role.NormalizedName = "ADMIN"
	res, err := deps.Roles.Create(ctx, role)
	require.NoError(t, err)
	assert.True(t, res.Succeeded)

	// auto-save is off: nothing persisted until the shared context flushes
	found, err := deps.Roles.FindByName(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = deps.Identity.SaveChanges(ctx)
	require.NoError(t, err)

	found, err = deps.Roles.FindByName(ctx, "ADMIN")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, role.ID, found.ID)

	require.NoError(t, Startup(ctx, nil, cfg, deps, testLogger()))
}

func TestStartup_ReportsRecentConflicts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := memoryDeps(t)
	deps.Audit = audit.New(db)

	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, Startup(ctx, nil, validConfig(), deps, zap.New(core)))
	assert.Equal(t, 0, logs.FilterMessage("recent concurrency failures").Len())

	require.NoError(t, deps.Audit.Log(ctx, audit.Event{
		Category:  audit.CategorySecurity,
		EventType: audit.EventConcurrencyFailure,
		Subject:   audit.SubjectUser,
		SubjectID: "u1",
	}))
	require.NoError(t, Startup(ctx, nil, validConfig(), deps, zap.New(core)))

	entries := logs.FilterMessage("recent concurrency failures").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(1), fields["count"])
	assert.Equal(t, []interface{}{"user:u1"}, fields["latest"])
}
