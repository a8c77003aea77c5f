// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers the framework-level settings (ports, TLS,
// logging level and format, request limits). Everything the identity
// store itself needs lives here and is loaded in LoadConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connections in the driver pool
	MongoMinPoolSize uint64 // Connections kept warm in the driver pool

	// Collection names
	UsersCollection string
	RolesCollection string

	// AutoSaveChanges is the initial flush mode of the stores. When false,
	// callers flush through the shared identity context.
	AutoSaveChanges bool

	// Audit logging: "all" (db+log), "db", "log", or "off"
	AuditLogAdmin    string
	AuditLogSecurity string

	// Timeouts for work the service starts on its own
	TimeoutPing   time.Duration
	TimeoutCounts time.Duration
	TimeoutSchema time.Duration

	// MetricsEnabled mounts /metrics.
	MetricsEnabled bool
}
