// internal/app/features/types/routes.go
package types

import "github.com/go-chi/chi/v5"

// Mount registers the registry endpoint on r.
func Mount(r chi.Router, h *Handler) {
	r.Get("/types", h.Serve)
}
