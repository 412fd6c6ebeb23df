// internal/app/features/accounts/handler.go

// Package accounts implements account lifecycle: referral minting,
// referral-based registration, the login summary, and key rotation.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/trackhub/internal/app/features/errors"
	groupstore "github.com/dalemusser/trackhub/internal/app/store/groups"
	subjectstore "github.com/dalemusser/trackhub/internal/app/store/subjects"
	userstore "github.com/dalemusser/trackhub/internal/app/store/users"
	"github.com/dalemusser/trackhub/internal/app/system/apikey"
	"github.com/dalemusser/trackhub/internal/app/system/timeouts"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

type Handler struct {
	Users    *userstore.Store
	Subjects *subjectstore.Store
	Groups   *groupstore.Store
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger

	sanitize *bluemonday.Policy
}

func NewHandler(users *userstore.Store, subjects *subjectstore.Store, groups *groupstore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Subjects: subjects,
		Groups:   groups,
		Log:      logger,
		ErrLog:   errLog,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// Invite handles GET /invite: mints a single-use referral code tied to
// the caller.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	caller, ok := apikey.CurrentUser(r)
	if !ok {
		uierrors.RenderError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ref, err := h.Users.CreateReferral(ctx, caller.UUID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create referral failed", err, "Storage unavailable, retry.")
		return
	}
	uierrors.RenderOK(w, map[string]any{"code": ref.Code})
}

// registerRequest is the POST /register body.
type registerRequest struct {
	RefCode string `json:"ref_code"`
	Name    string `json:"name"`
}

// Register handles POST /register. No credential: the referral code is
// the credential. The new account's raw key appears only in this
// response.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode register body failed", err, "Invalid request body.")
		return
	}
	req.Name = h.sanitize.Sanitize(req.Name)
	if req.RefCode == "" || req.Name == "" {
		h.ErrLog.LogBadRequest(w, r, "incomplete register body", nil, "ref_code and name are required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	u, key, err := h.Users.Register(ctx, req.RefCode, req.Name)
	switch {
	case err == nil:
		uierrors.RenderOK(w, map[string]any{
			"uuid":    u.UUID,
			"name":    u.Name,
			"api_key": key,
		})
	case errors.Is(err, userstore.ErrInvalidReferral):
		h.ErrLog.LogBadRequest(w, r, "register with bad referral", err, "Referral code is invalid or already used.")
	case errors.Is(err, userstore.ErrNameTaken):
		h.ErrLog.LogConflict(w, r, "register with taken name", err, "A user with this name already exists.")
	default:
		h.ErrLog.LogServerError(w, r, "register failed", err, "Storage unavailable, retry.")
	}
}

// Login handles GET /login: the caller's own record plus the subjects
// and groups they have created. The name mirrors the original API; there
// is no session, the key itself is the login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	caller, ok := apikey.CurrentUser(r)
	if !ok {
		uierrors.RenderError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	subjects, err := h.Subjects.ByCreator(ctx, caller.UUID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load subjects failed", err, "Storage unavailable, retry.")
		return
	}
	groups, err := h.Groups.ByCreator(ctx, caller.UUID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load groups failed", err, "Storage unavailable, retry.")
		return
	}

	uierrors.RenderOK(w, map[string]any{
		"user":     caller,
		"subjects": subjects,
		"groups":   groups,
	})
}

// Reset handles GET /reset: rotates the caller's key. The old key stops
// working the moment this returns; the new one appears only here.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	caller, ok := apikey.CurrentUser(r)
	if !ok {
		uierrors.RenderError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	key, err := h.Users.RotateKey(ctx, caller.UUID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "rotate key failed", err, "Storage unavailable, retry.")
		return
	}
	uierrors.RenderOK(w, map[string]any{"api_key": key})
}
