// internal/app/features/manage/handler.go

// Package manage implements subject and group management: /create,
// /update and /delete. Request bodies are untagged unions in the
// original API's style: a body with a "profiles" field is a subject, a
// body with a "subjects" field is a group.
package manage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/trackhub/internal/app/features/errors"
	groupstore "github.com/dalemusser/trackhub/internal/app/store/groups"
	queuestore "github.com/dalemusser/trackhub/internal/app/store/queue"
	subjectstore "github.com/dalemusser/trackhub/internal/app/store/subjects"
	"github.com/dalemusser/trackhub/internal/app/system/apikey"
	"github.com/dalemusser/trackhub/internal/app/system/timeouts"
	"github.com/dalemusser/trackhub/internal/app/system/typereg"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Handler owns the entity-management handlers.
type Handler struct {
	Subjects *subjectstore.Store
	Groups   *groupstore.Store
	Queue    *queuestore.Store
	Types    *typereg.Registry
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger

	sanitize *bluemonday.Policy
}

func NewHandler(subjects *subjectstore.Store, groups *groupstore.Store, queue *queuestore.Store, reg *typereg.Registry, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Subjects: subjects,
		Groups:   groups,
		Queue:    queue,
		Types:    reg,
		Log:      logger,
		ErrLog:   errLog,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// manageRequest covers all three endpoints. Which fields are set decides
// what the caller means.
type manageRequest struct {
	UUID        string              `json:"uuid,omitempty"`
	Name        string              `json:"name"`
	Profiles    map[string][]string `json:"profiles,omitempty"`
	Subjects    []string            `json:"subjects,omitempty"`
	Metadata    map[string]string   `json:"metadata,omitempty"`
	Description string              `json:"description,omitempty"`
}

func (req manageRequest) isSubject() bool { return req.Profiles != nil }
func (req manageRequest) isGroup() bool   { return req.Subjects != nil }

// Create handles POST /create.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	switch {
	case req.isSubject():
		h.createSubject(ctx, w, r, caller.UUID, req)
	case req.isGroup():
		h.createGroup(ctx, w, r, caller.UUID, req)
	default:
		h.ErrLog.LogBadRequest(w, r, "ambiguous create body", nil, "Provide profiles for a subject or subjects for a group.")
	}
}

// Update handles POST /update. The posted document fully replaces the
// entity's mutable fields.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.UUID == "" {
		h.ErrLog.LogBadRequest(w, r, "update without uuid", nil, "uuid is required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	switch {
	case req.isSubject():
		h.updateSubject(ctx, w, r, caller.UUID, req)
	case req.isGroup():
		h.updateGroup(ctx, w, r, caller.UUID, req)
	default:
		h.ErrLog.LogBadRequest(w, r, "ambiguous update body", nil, "Provide profiles for a subject or subjects for a group.")
	}
}

// Delete handles POST /delete. The body carries only a uuid; the entity
// kind is resolved by looking the uuid up as a subject first, then as a
// group.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.UUID == "" {
		h.ErrLog.LogBadRequest(w, r, "delete without uuid", nil, "uuid is required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	subj, err := h.Subjects.Delete(ctx, caller.UUID, req.UUID)
	if err == nil {
		h.cleanupSubject(ctx, subj)
		uierrors.RenderOK(w, map[string]any{"deleted": subj.UUID})
		return
	}
	if !errors.Is(err, subjectstore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "delete subject failed", err, "Storage unavailable, retry.")
		return
	}

	switch err := h.Groups.Delete(ctx, caller.UUID, req.UUID); {
	case err == nil:
		uierrors.RenderOK(w, map[string]any{"deleted": req.UUID})
	case errors.Is(err, groupstore.ErrNotFound):
		h.ErrLog.LogNotFound(w, r, "delete of unknown entity", err, "No such subject or group.")
	default:
		h.ErrLog.LogServerError(w, r, "delete group failed", err, "Storage unavailable, retry.")
	}
}

func (h *Handler) createSubject(ctx context.Context, w http.ResponseWriter, r *http.Request, caller string, req manageRequest) {
	if !h.knownPlatforms(req.Profiles) {
		h.ErrLog.LogBadRequest(w, r, "subject with unregistered platform", nil, "One or more platforms are not registered.")
		return
	}

	subj, err := h.Subjects.Create(ctx, models.Subject{
		Name:        h.sanitize.Sanitize(req.Name),
		CreatedBy:   caller,
		Profiles:    req.Profiles,
		Metadata:    h.sanitizeMetadata(req.Metadata),
		Description: h.sanitize.Sanitize(req.Description),
	})
	if err != nil {
		h.renderSubjectErr(w, r, "create subject failed", err)
		return
	}

	h.registerProfiles(ctx, subj.ProfileKeys())
	uierrors.RenderOK(w, map[string]any{"subject": subj})
}

func (h *Handler) updateSubject(ctx context.Context, w http.ResponseWriter, r *http.Request, caller string, req manageRequest) {
	if !h.knownPlatforms(req.Profiles) {
		h.ErrLog.LogBadRequest(w, r, "subject with unregistered platform", nil, "One or more platforms are not registered.")
		return
	}

	added, removed, err := h.Subjects.Update(ctx, caller, req.UUID, models.Subject{
		Name:        h.sanitize.Sanitize(req.Name),
		Profiles:    req.Profiles,
		Metadata:    h.sanitizeMetadata(req.Metadata),
		Description: h.sanitize.Sanitize(req.Description),
	})
	if err != nil {
		h.renderSubjectErr(w, r, "update subject failed", err)
		return
	}

	h.registerProfiles(ctx, added)
	for _, k := range removed {
		if err := h.Queue.Remove(ctx, k.Platform, k.ID); err != nil {
			h.Log.Warn("queue remove failed",
				zap.String("platform", k.Platform),
				zap.String("id", k.ID),
				zap.Error(err))
		}
	}
	uierrors.RenderOK(w, map[string]any{"updated": req.UUID})
}

func (h *Handler) createGroup(ctx context.Context, w http.ResponseWriter, r *http.Request, caller string, req manageRequest) {
	if !h.subjectsExist(ctx, w, r, req.Subjects) {
		return
	}

	g, err := h.Groups.Create(ctx, models.Group{
		Name:        h.sanitize.Sanitize(req.Name),
		CreatedBy:   caller,
		Subjects:    req.Subjects,
		Description: h.sanitize.Sanitize(req.Description),
	})
	if err != nil {
		h.renderGroupErr(w, r, "create group failed", err)
		return
	}
	uierrors.RenderOK(w, map[string]any{"group": g})
}

func (h *Handler) updateGroup(ctx context.Context, w http.ResponseWriter, r *http.Request, caller string, req manageRequest) {
	if !h.subjectsExist(ctx, w, r, req.Subjects) {
		return
	}

	err := h.Groups.Update(ctx, caller, req.UUID, models.Group{
		Name:        h.sanitize.Sanitize(req.Name),
		Subjects:    req.Subjects,
		Description: h.sanitize.Sanitize(req.Description),
	})
	if err != nil {
		h.renderGroupErr(w, r, "update group failed", err)
		return
	}
	uierrors.RenderOK(w, map[string]any{"updated": req.UUID})
}

// cleanupSubject detaches a deleted subject from the scheduler and from
// every group referencing it. Failures are logged, not surfaced: the
// subject is already gone and these are reconcilable leftovers.
func (h *Handler) cleanupSubject(ctx context.Context, subj models.Subject) {
	for _, k := range subj.ProfileKeys() {
		if err := h.Queue.Remove(ctx, k.Platform, k.ID); err != nil {
			h.Log.Warn("queue remove failed",
				zap.String("platform", k.Platform),
				zap.String("id", k.ID),
				zap.Error(err))
		}
	}
	if _, err := h.Groups.RemoveSubjectFromAll(ctx, subj.UUID); err != nil {
		h.Log.Warn("group membership cleanup failed",
			zap.String("subject", subj.UUID),
			zap.Error(err))
	}
}

func (h *Handler) registerProfiles(ctx context.Context, keys []models.ProfileKey) {
	for _, k := range keys {
		if err := h.Queue.Register(ctx, k.Platform, k.ID); err != nil {
			h.Log.Warn("queue register failed",
				zap.String("platform", k.Platform),
				zap.String("id", k.ID),
				zap.Error(err))
		}
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (models.User, manageRequest, bool) {
	caller, ok := apikey.CurrentUser(r)
	if !ok {
		uierrors.RenderError(w, http.StatusUnauthorized, "Unauthorized.")
		return models.User{}, manageRequest{}, false
	}
	var req manageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode manage body failed", err, "Invalid request body.")
		return models.User{}, manageRequest{}, false
	}
	return caller, req, true
}

func (h *Handler) knownPlatforms(profiles map[string][]string) bool {
	for platform := range profiles {
		if !h.Types.KnownPlatform(platform) {
			return false
		}
	}
	return true
}

func (h *Handler) subjectsExist(ctx context.Context, w http.ResponseWriter, r *http.Request, uuids []string) bool {
	for _, su := range uuids {
		exists, err := h.Subjects.Exists(ctx, su)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "subject lookup failed", err, "Storage unavailable, retry.")
			return false
		}
		if !exists {
			h.ErrLog.LogBadRequest(w, r, "group references unknown subject", nil, "One or more subjects do not exist.")
			return false
		}
	}
	return true
}

func (h *Handler) sanitizeMetadata(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	clean := make(map[string]string, len(meta))
	for k, v := range meta {
		clean[h.sanitize.Sanitize(k)] = h.sanitize.Sanitize(v)
	}
	return clean
}

func (h *Handler) renderSubjectErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, subjectstore.ErrNotFound):
		h.ErrLog.LogNotFound(w, r, op, err, "No such subject.")
	case errors.Is(err, subjectstore.ErrProfileConflict):
		h.ErrLog.LogConflict(w, r, op, err, "One or more profiles already belong to another subject.")
	case errors.Is(err, subjectstore.ErrDuplicateName):
		h.ErrLog.LogConflict(w, r, op, err, "You already have a subject with this name.")
	case errors.Is(err, subjectstore.ErrNoProfiles):
		h.ErrLog.LogBadRequest(w, r, op, err, "A subject needs at least one profile.")
	default:
		h.ErrLog.LogServerError(w, r, op, err, "Storage unavailable, retry.")
	}
}

func (h *Handler) renderGroupErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, groupstore.ErrNotFound):
		h.ErrLog.LogNotFound(w, r, op, err, "No such group.")
	case errors.Is(err, groupstore.ErrDuplicateName):
		h.ErrLog.LogConflict(w, r, op, err, "You already have a group with this name.")
	default:
		h.ErrLog.LogServerError(w, r, op, err, "Storage unavailable, retry.")
	}
}
