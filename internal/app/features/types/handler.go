// internal/app/features/types/handler.go
package types

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/trackhub/internal/app/system/typereg"
	"go.uber.org/zap"
)

// Handler serves the platform type registry so agents can discover what
// the server will accept before submitting anything.
type Handler struct {
	Registry *typereg.Registry
	Log      *zap.Logger
}

func NewHandler(reg *typereg.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		Registry: reg,
		Log:      logger,
	}
}

// Serve handles GET /types. No credential required: the registry is not
// sensitive and agents need it to configure themselves.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Registry)
}
