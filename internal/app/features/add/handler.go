// internal/app/features/add/handler.go
package add

import (
	"context"
	"encoding/json"
	"net/http"

	uierrors "github.com/dalemusser/trackhub/internal/app/features/errors"
	"github.com/dalemusser/trackhub/internal/app/system/apikey"
	"github.com/dalemusser/trackhub/internal/app/system/ingest"
	"github.com/dalemusser/trackhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler accepts batches of observations from agents and runs them
// through the ingestion validator.
type Handler struct {
	Validator *ingest.Validator
	Log       *zap.Logger
	ErrLog    *uierrors.ErrorLogger
}

func NewHandler(v *ingest.Validator, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Validator: v,
		Log:       logger,
		ErrLog:    errLog,
	}
}

// addRequest is the POST /add body.
type addRequest struct {
	Data []ingest.Item `json:"data"`
}

// Serve handles POST /add.
//
// The whole batch is evaluated item by item and the response reports a
// result per item in submission order. Rejections are final; a 503 means
// storage failed partway and unreported items may be resubmitted safely.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	caller, ok := apikey.CurrentUser(r)
	if !ok {
		uierrors.RenderError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode add body failed", err, "Invalid request body.")
		return
	}
	if len(req.Data) == 0 {
		h.ErrLog.LogBadRequest(w, r, "empty add batch", nil, "No data submitted.")
		return
	}
	for i, item := range req.Data {
		if item.Platform == "" || item.ID == "" || item.Type == "" || item.ObservedAt.IsZero() {
			h.Log.Warn("malformed add item",
				zap.Int("index", i),
				zap.String("platform", item.Platform),
				zap.String("id", item.ID))
			h.ErrLog.LogBadRequest(w, r, "malformed add item", nil, "Each item needs platform, id, type and observed_at.")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	results, err := h.Validator.IngestAll(ctx, caller, req.Data)
	if err != nil {
		h.Log.Error("ingest batch failed",
			zap.Int("processed", len(results)),
			zap.Int("submitted", len(req.Data)),
			zap.Error(err))
		uierrors.RenderError(w, http.StatusServiceUnavailable, "Storage unavailable, resubmit the batch.")
		return
	}

	uierrors.RenderOK(w, map[string]any{"results": results})
}
