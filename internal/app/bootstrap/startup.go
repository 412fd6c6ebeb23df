// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	queuestore "github.com/dalemusser/trackhub/internal/app/store/queue"
	userstore "github.com/dalemusser/trackhub/internal/app/store/users"
	"github.com/dalemusser/trackhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// leaseReaper is started here and stopped in Shutdown.
var leaseReaper *workers.LeaseReaper

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// TrackHub seeds the root account when the users collection is empty. The
// raw key is logged exactly once; it exists nowhere else, so the operator
// must capture it from the startup log.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := seedRootAccount(ctx, deps, logger); err != nil {
		return err
	}

	queue := queuestore.New(deps.TrackHubMongoDatabase)
	leaseReaper = workers.NewLeaseReaper(queue, logger, appCfg.ReaperInterval, appCfg.LeaseTTL)
	leaseReaper.Start()

	return nil
}

// seedRootAccount creates the root user on an empty installation. The key
// is logged once and never stored in raw form.
func seedRootAccount(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	users := userstore.New(deps.TrackHubMongoDatabase)

	count, err := users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	root, key, err := users.Create(ctx, "root")
	if err != nil {
		return err
	}
	logger.Warn("no users found, created root account",
		zap.String("uuid", root.UUID),
		zap.String("api_key", key))
	return nil
}
