// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for TrackHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, lease_ttl, etc.
//   - Environment variables: TRACKHUB_MONGO_URI, TRACKHUB_LEASE_TTL, etc.
//   - Command-line flags: --mongo_uri, --lease_ttl, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "trackhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Type registry
	{Name: "types_file", Default: "types.yaml", Desc: "Path to the platform type registry file"},

	// Scheduler
	{Name: "lease_ttl", Default: "30s", Desc: "Queue lease exclusivity window (e.g., 30s, 2m)"},
	{Name: "queue_batch_max", Default: 64, Desc: "Maximum profiles returned per queue request"},
	{Name: "reaper_interval", Default: "1m", Desc: "How often expired leases are swept"},

	// Reads
	{Name: "view_page_limit", Default: 100, Desc: "Maximum data rows per profile in view responses"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TRACKHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		TypesFile: appValues.String("types_file"),

		LeaseTTL:       appValues.Duration("lease_ttl", 30*time.Second),
		QueueBatchMax:  appValues.Int("queue_batch_max"),
		ReaperInterval: appValues.Duration("reaper_interval", time.Minute),

		ViewPageLimit: appValues.Int("view_page_limit"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// TrackHub validates the MongoDB URI format and the scheduler knobs so
// configuration errors surface before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.TypesFile == "" {
		return fmt.Errorf("types_file must be set")
	}
	if appCfg.LeaseTTL <= 0 {
		return fmt.Errorf("lease_ttl must be positive, got %s", appCfg.LeaseTTL)
	}
	if appCfg.QueueBatchMax <= 0 {
		return fmt.Errorf("queue_batch_max must be positive, got %d", appCfg.QueueBatchMax)
	}
	if appCfg.ViewPageLimit <= 0 {
		return fmt.Errorf("view_page_limit must be positive, got %d", appCfg.ViewPageLimit)
	}

	return nil
}
