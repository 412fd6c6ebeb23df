// internal/app/features/frontpage/handler.go
package frontpage

import (
	"net/http"

	uierrors "github.com/dalemusser/trackhub/internal/app/features/errors"
	"go.uber.org/zap"
)

// Handler serves the root endpoint.
type Handler struct {
	Log *zap.Logger
}

// NewHandler constructs a frontpage Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// Serve handles GET /. It answers the OK envelope so agents can probe
// whether they are talking to a live server without a credential.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	uierrors.RenderOK(w, map[string]any{
		"text": "TrackHub is up.",
	})
}
