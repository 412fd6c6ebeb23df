// internal/app/features/view/handler.go
package view

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/trackhub/internal/app/features/errors"
	datastore "github.com/dalemusser/trackhub/internal/app/store/data"
	subjectstore "github.com/dalemusser/trackhub/internal/app/store/subjects"
	"github.com/dalemusser/trackhub/internal/app/system/timeouts"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler answers read queries over stored data, attributed through the
// entity graph as it stands at query time.
type Handler struct {
	Subjects  *subjectstore.Store
	Data      *datastore.Store
	PageLimit int
	Log       *zap.Logger
	ErrLog    *uierrors.ErrorLogger
}

func NewHandler(subjects *subjectstore.Store, data *datastore.Store, pageLimit int, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Subjects:  subjects,
		Data:      data,
		PageLimit: pageLimit,
		Log:       logger,
		ErrLog:    errLog,
	}
}

// subjectView groups one subject's rows in the response.
type subjectView struct {
	Subject models.Subject      `json:"subject"`
	Data    []models.DataRecord `json:"data"`
}

// Serve handles GET /view?subjects=a,b&order=asc|desc&limit=n.
//
// Rows are fetched for the profiles attached to each subject right now.
// Data from profiles a subject no longer holds is not attributed to it;
// those rows remain stored and follow the key's current owner, if any.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	uuids := splitList(r.URL.Query().Get("subjects"))
	if len(uuids) == 0 {
		h.ErrLog.LogBadRequest(w, r, "view without subjects", nil, "At least one subject is required.")
		return
	}

	reverse := false
	switch r.URL.Query().Get("order") {
	case "", "asc":
	case "desc":
		reverse = true
	default:
		h.ErrLog.LogBadRequest(w, r, "bad view order", nil, "order must be asc or desc.")
		return
	}

	limit := h.PageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.ErrLog.LogBadRequest(w, r, "bad view limit", err, "limit must be a positive integer.")
			return
		}
		if n < limit {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	subjects, err := h.Subjects.ByUUIDs(ctx, uuids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load subjects failed", err, "Storage unavailable, retry.")
		return
	}
	if len(subjects) != len(uuids) {
		h.ErrLog.LogNotFound(w, r, "view of unknown subject", nil, "One or more subjects do not exist.")
		return
	}

	views := make([]subjectView, 0, len(subjects))
	for _, subj := range subjects {
		rows, err := h.Data.ByProfiles(ctx, subj.ProfileKeys(), reverse, int64(limit))
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load data failed", err, "Storage unavailable, retry.")
			return
		}
		if rows == nil {
			rows = []models.DataRecord{}
		}
		views = append(views, subjectView{Subject: subj, Data: rows})
	}

	uierrors.RenderOK(w, map[string]any{"subjects": views})
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
