// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration: CoreConfig already covers
// ports, TLS, logging level, and the rest of the framework surface.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connections in the driver pool
	MongoMinPoolSize uint64 // Min connections kept warm in the pool

	// Type registry
	TypesFile string // Path to the YAML file registering platform content/presence types

	// Scheduler configuration
	LeaseTTL       time.Duration // How long a queue lease stays exclusive before it may be re-issued
	QueueBatchMax  int           // Upper bound on profiles returned per queue request
	ReaperInterval time.Duration // How often the background sweep clears expired leases

	// Read configuration
	ViewPageLimit int // Default and maximum rows per profile in /view responses
}
