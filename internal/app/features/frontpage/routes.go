// internal/app/features/frontpage/routes.go
package frontpage

import "github.com/go-chi/chi/v5"

// Mount registers the frontpage at the router root.
func Mount(r chi.Router, h *Handler) {
	r.Get("/", h.Serve)
}
