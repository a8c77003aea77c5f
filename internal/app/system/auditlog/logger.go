// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/identitymongo/internal/app/store/audit"
	"go.uber.org/zap"
)

// Recorder persists audit events. *audit.Store is the production recorder.
type Recorder interface {
	Log(ctx context.Context, event audit.Event) error
}

// Config holds audit logging configuration.
type Config struct {
	// Admin controls logging for user and role create/update/delete events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
	// Security controls logging for rejected writes (stale concurrency stamps).
	// Same values as Admin.
	Security string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via a Recorder) and structured logs (via zap).
type Logger struct {
	store  Recorder
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. A nil store disables the "db" half.
func New(store Recorder, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.String("subject", event.Subject),
		zap.Bool("success", event.Success),
	}
	if event.SubjectID != "" {
		fields = append(fields, zap.String("subject_id", event.SubjectID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategorySecurity:
		setting = l.config.Security
	}
	if setting == "" {
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) admin(ctx context.Context, eventType, subject, id string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		Subject:   subject,
		SubjectID: id,
		Success:   true,
		Details:   details,
	})
}

// --- User Events ---

// UserCreated logs a new user document.
func (l *Logger) UserCreated(ctx context.Context, userID, userName string) {
	l.admin(ctx, audit.EventUserCreated, audit.SubjectUser, userID, map[string]string{"user_name": userName})
}

// UserUpdated logs a saved user update.
func (l *Logger) UserUpdated(ctx context.Context, userID, userName string) {
	l.admin(ctx, audit.EventUserUpdated, audit.SubjectUser, userID, map[string]string{"user_name": userName})
}

// UserDeleted logs a removed user document.
func (l *Logger) UserDeleted(ctx context.Context, userID, userName string) {
	l.admin(ctx, audit.EventUserDeleted, audit.SubjectUser, userID, map[string]string{"user_name": userName})
}

// --- Role Events ---

// RoleCreated logs a new role document.
func (l *Logger) RoleCreated(ctx context.Context, roleID, name string) {
	l.admin(ctx, audit.EventRoleCreated, audit.SubjectRole, roleID, map[string]string{"name": name})
}

// RoleUpdated logs a saved role update.
func (l *Logger) RoleUpdated(ctx context.Context, roleID, name string) {
	l.admin(ctx, audit.EventRoleUpdated, audit.SubjectRole, roleID, map[string]string{"name": name})
}

// RoleDeleted logs a removed role document.
func (l *Logger) RoleDeleted(ctx context.Context, roleID, name string) {
	l.admin(ctx, audit.EventRoleDeleted, audit.SubjectRole, roleID, map[string]string{"name": name})
}

// --- Security Events ---

// ConcurrencyFailure logs an update or delete rejected for a stale stamp.
// op is "update" or "delete".
func (l *Logger) ConcurrencyFailure(ctx context.Context, subject, id, op string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     audit.EventConcurrencyFailure,
		Subject:       subject,
		SubjectID:     id,
		Success:       false,
		FailureReason: "stale concurrency stamp",
		Details:       map[string]string{"op": op},
	})
}
