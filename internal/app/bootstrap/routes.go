// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	accountsfeature "github.com/dalemusser/trackhub/internal/app/features/accounts"
	addfeature "github.com/dalemusser/trackhub/internal/app/features/add"
	errorsfeature "github.com/dalemusser/trackhub/internal/app/features/errors"
	frontpagefeature "github.com/dalemusser/trackhub/internal/app/features/frontpage"
	healthfeature "github.com/dalemusser/trackhub/internal/app/features/health"
	managefeature "github.com/dalemusser/trackhub/internal/app/features/manage"
	queuefeature "github.com/dalemusser/trackhub/internal/app/features/queue"
	typesfeature "github.com/dalemusser/trackhub/internal/app/features/types"
	viewfeature "github.com/dalemusser/trackhub/internal/app/features/view"
	datastore "github.com/dalemusser/trackhub/internal/app/store/data"
	groupstore "github.com/dalemusser/trackhub/internal/app/store/groups"
	queuestore "github.com/dalemusser/trackhub/internal/app/store/queue"
	subjectstore "github.com/dalemusser/trackhub/internal/app/store/subjects"
	userstore "github.com/dalemusser/trackhub/internal/app/store/users"
	"github.com/dalemusser/trackhub/internal/app/system/apikey"
	"github.com/dalemusser/trackhub/internal/app/system/ingest"
	"github.com/dalemusser/trackhub/internal/app/system/typereg"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// The surface splits in two: public endpoints (frontpage, types registry,
// registration, health, static files) and everything else behind the
// x-api-key middleware.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	reg, err := typereg.Load(appCfg.TypesFile)
	if err != nil {
		logger.Error("type registry load failed", zap.Error(err))
		return nil, err
	}

	db := deps.TrackHubMongoDatabase
	users := userstore.New(db)
	subjects := subjectstore.New(db)
	groups := groupstore.New(db)
	data := datastore.New(db)
	queue := queuestore.New(db)

	validator := ingest.New(reg, subjects, data, queue, logger)

	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()
	r.NotFound(errorsfeature.NotFound)

	// Public surface
	frontpagefeature.Mount(r, frontpagefeature.NewHandler(logger))
	typesfeature.Mount(r, typesfeature.NewHandler(reg, logger))

	accountsHandler := accountsfeature.NewHandler(users, subjects, groups, errLog, logger)
	accountsfeature.MountPublic(r, accountsHandler)

	healthHandler := healthfeature.NewHandler(deps.TrackHubMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/files/*", fileserver.Handler("/files", "files"))

	// Authenticated surface
	r.Group(func(r chi.Router) {
		r.Use(apikey.Require(users, logger))

		addHandler := addfeature.NewHandler(validator, errLog, logger)
		r.Mount("/add", addfeature.Routes(addHandler))

		viewHandler := viewfeature.NewHandler(subjects, data, appCfg.ViewPageLimit, errLog, logger)
		r.Mount("/view", viewfeature.Routes(viewHandler))

		queueHandler := queuefeature.NewHandler(queue, appCfg.LeaseTTL, appCfg.QueueBatchMax, errLog, logger)
		r.Mount("/queue", queuefeature.Routes(queueHandler))

		manageHandler := managefeature.NewHandler(subjects, groups, queue, reg, errLog, logger)
		managefeature.Mount(r, manageHandler)

		accountsfeature.MountAuthed(r, accountsHandler)
	})

	return r, nil
}
