// internal/app/features/accounts/routes.go
package accounts

import "github.com/go-chi/chi/v5"

// MountAuthed registers the account endpoints that require a valid key.
func MountAuthed(r chi.Router, h *Handler) {
	r.Get("/invite", h.Invite)
	r.Get("/login", h.Login)
	r.Get("/reset", h.Reset)
}

// MountPublic registers the account endpoints reachable without a key.
// Registration is public by necessity: the referral code is the
// credential.
func MountPublic(r chi.Router, h *Handler) {
	r.Post("/register", h.Register)
}
