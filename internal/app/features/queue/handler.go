// internal/app/features/queue/handler.go
package queue

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/trackhub/internal/app/features/errors"
	queuestore "github.com/dalemusser/trackhub/internal/app/store/queue"
	"github.com/dalemusser/trackhub/internal/app/system/apikey"
	"github.com/dalemusser/trackhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler leases crawl work to agents.
type Handler struct {
	Queue    *queuestore.Store
	LeaseTTL time.Duration
	BatchMax int
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

func NewHandler(queue *queuestore.Store, leaseTTL time.Duration, batchMax int, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Queue:    queue,
		LeaseTTL: leaseTTL,
		BatchMax: batchMax,
		Log:      logger,
		ErrLog:   errLog,
	}
}

// leasedProfile is one unit of work handed to an agent.
type leasedProfile struct {
	Platform       string    `json:"platform"`
	ID             string    `json:"id"`
	LastObservedAt time.Time `json:"last_observed_at"`
	LeaseExpiresAt time.Time `json:"lease_expires_at"`
}

// Serve handles GET /queue?platforms=a,b&limit=n.
//
// Each returned profile is leased exclusively to the caller until the
// lease TTL lapses or the agent submits data for it. An empty list is a
// normal answer meaning nothing is currently eligible.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	caller, ok := apikey.CurrentUser(r)
	if !ok {
		uierrors.RenderError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	platforms := splitList(r.URL.Query().Get("platforms"))
	if len(platforms) == 0 {
		h.ErrLog.LogBadRequest(w, r, "queue without platforms", nil, "At least one platform is required.")
		return
	}

	limit := h.BatchMax
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.ErrLog.LogBadRequest(w, r, "bad queue limit", err, "limit must be a positive integer.")
			return
		}
		if n < limit {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	entries, err := h.Queue.Lease(ctx, platforms, limit, caller.UUID, h.LeaseTTL)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "lease failed", err, "Storage unavailable, retry.")
		return
	}

	profiles := make([]leasedProfile, 0, len(entries))
	for _, e := range entries {
		exp := time.Now().UTC().Add(h.LeaseTTL)
		if e.LastLeasedAt != nil {
			exp = e.LastLeasedAt.Add(h.LeaseTTL)
		}
		profiles = append(profiles, leasedProfile{
			Platform:       e.Platform,
			ID:             e.PlatformID,
			LastObservedAt: e.LastObservedAt,
			LeaseExpiresAt: exp,
		})
	}

	uierrors.RenderOK(w, map[string]any{"queue": profiles})
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
