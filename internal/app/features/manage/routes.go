// internal/app/features/manage/routes.go
package manage

import "github.com/go-chi/chi/v5"

// Mount registers the management endpoints on r. They live at the top
// level of the API, so this registers onto the parent router rather than
// returning a subrouter.
func Mount(r chi.Router, h *Handler) {
	r.Post("/create", h.Create)
	r.Post("/update", h.Update)
	r.Post("/delete", h.Delete)
}
