package auditlog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/identitymongo/internal/app/store/audit"
	"github.com/dalemusser/identitymongo/internal/app/system/auditlog"
	"github.com/dalemusser/identitymongo/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	events []audit.Event
	err    error
}

func (r *recorder) Log(_ context.Context, e audit.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func TestLogger_NilLogger(t *testing.T) {
	// nil logger should be a no-op (not panic)
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.UserCreated(ctx, "u1", "alice")
	logger.ConcurrencyFailure(ctx, audit.SubjectUser, "u1", "update")
}

func TestLogger_Log_Settings(t *testing.T) {
	tests := []struct {
		setting string
		wantDB  int
		wantLog int
	}{
		{"all", 1, 1},
		{"db", 1, 0},
		{"log", 0, 1},
		{"off", 0, 0},
		{"", 1, 1},
	}
	for _, tt := range tests {
		t.Run("setting="+tt.setting, func(t *testing.T) {
			ctx, cancel := testutil.TestContext()
			defer cancel()

			core, logs := observer.New(zap.InfoLevel)
			rec := &recorder{}
			logger := auditlog.New(rec, zap.New(core), auditlog.Config{Admin: tt.setting})

			logger.UserCreated(ctx, "u1", "alice")

			if len(rec.events) != tt.wantDB {
				t.Errorf("expected %d stored events, got %d", tt.wantDB, len(rec.events))
			}
			if logs.Len() != tt.wantLog {
				t.Errorf("expected %d log entries, got %d", tt.wantLog, logs.Len())
			}
		})
	}
}

func TestLogger_CategoriesAreIndependent(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := &recorder{}
	logger := auditlog.New(rec, zap.NewNop(), auditlog.Config{Admin: "off", Security: "db"})

	logger.RoleDeleted(ctx, "r1", "Admins")
	logger.ConcurrencyFailure(ctx, audit.SubjectRole, "r1", "delete")

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(rec.events))
	}
	e := rec.events[0]
	if e.EventType != audit.EventConcurrencyFailure || e.Success {
		t.Errorf("unexpected event %+v", e)
	}
	if e.Details["op"] != "delete" {
		t.Errorf("expected op=delete, got %q", e.Details["op"])
	}
}

func TestLogger_StoreErrorIsLogged(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	core, logs := observer.New(zap.ErrorLevel)
	logger := auditlog.New(&recorder{err: errors.New("boom")}, zap.New(core), auditlog.Config{Admin: "db"})

	logger.UserDeleted(ctx, "u1", "alice")

	if logs.FilterMessage("failed to store audit event").Len() != 1 {
		t.Error("expected store failure to be logged")
	}
}

func TestLogger_WithMongoStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Admin: "db"})
	logger.UserUpdated(ctx, "u1", "alice")

	events, err := store.Query(ctx, audit.QueryFilter{Subject: audit.SubjectUser, SubjectID: "u1", Limit: 10})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].EventType != audit.EventUserUpdated {
		t.Errorf("unexpected events %+v", events)
	}
}
