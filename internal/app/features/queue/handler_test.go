package queue_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	uierrors "github.com/dalemusser/trackhub/internal/app/features/errors"
	queuefeature "github.com/dalemusser/trackhub/internal/app/features/queue"
	queuestore "github.com/dalemusser/trackhub/internal/app/store/queue"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/trackhub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, ttl time.Duration) (*queuefeature.Handler, *queuestore.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	store := queuestore.New(db)
	return queuefeature.NewHandler(store, ttl, 64, uierrors.NewErrorLogger(logger), logger), store
}

type queueResponse struct {
	Response string `json:"response"`
	Queue    []struct {
		Platform       string    `json:"platform"`
		ID             string    `json:"id"`
		LastObservedAt time.Time `json:"last_observed_at"`
		LeaseExpiresAt time.Time `json:"lease_expires_at"`
	} `json:"queue"`
}

func serve(t *testing.T, h *queuefeature.Handler, target, agentUUID string) (*httptest.ResponseRecorder, queueResponse) {
	t.Helper()
	req := testutil.WithCaller(testutil.NewRequest("GET", target), models.User{UUID: agentUUID})
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	var resp queueResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
	}
	return rec, resp
}

func TestServe_TwoAgentsNeverShareProfiles(t *testing.T) {
	handler, store := newTestHandler(t, 30*time.Second)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := store.Register(ctx, "twitter", id); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	rec, first := serve(t, handler, "/queue?platforms=twitter&limit=2", "agent-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	_, second := serve(t, handler, "/queue?platforms=twitter&limit=4", "agent-2")

	if len(first.Queue) != 2 {
		t.Fatalf("first agent: got %d profiles, want 2", len(first.Queue))
	}
	if len(second.Queue) != 2 {
		t.Fatalf("second agent: got %d profiles, want the remaining 2", len(second.Queue))
	}

	seen := make(map[string]bool)
	for _, p := range first.Queue {
		seen[p.Platform+"/"+p.ID] = true
	}
	for _, p := range second.Queue {
		if seen[p.Platform+"/"+p.ID] {
			t.Errorf("profile %s/%s leased to both agents", p.Platform, p.ID)
		}
	}
}

func TestServe_EmptyQueueIsOK(t *testing.T) {
	handler, _ := newTestHandler(t, 30*time.Second)

	rec, resp := serve(t, handler, "/queue?platforms=twitter", "agent-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if resp.Response != "OK" {
		t.Errorf("response: got %q", resp.Response)
	}
	if len(resp.Queue) != 0 {
		t.Errorf("queue: got %d profiles, want 0", len(resp.Queue))
	}
}

func TestServe_LimitCappedAtBatchMax(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	store := queuestore.New(db)
	handler := queuefeature.NewHandler(store, 30*time.Second, 2, uierrors.NewErrorLogger(logger), logger)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Register(ctx, "twitter", id); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	_, resp := serve(t, handler, "/queue?platforms=twitter&limit=100", "agent-1")
	if len(resp.Queue) != 2 {
		t.Errorf("cap ignored: got %d profiles, want 2", len(resp.Queue))
	}
}

func TestServe_MissingPlatforms(t *testing.T) {
	handler, _ := newTestHandler(t, 30*time.Second)

	rec, _ := serve(t, handler, "/queue", "agent-1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServe_BadLimit(t *testing.T) {
	handler, _ := newTestHandler(t, 30*time.Second)

	rec, _ := serve(t, handler, "/queue?platforms=twitter&limit=zero", "agent-1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServe_Unauthenticated(t *testing.T) {
	handler, _ := newTestHandler(t, 30*time.Second)

	req := testutil.NewRequest("GET", "/queue?platforms=twitter")
	rec := httptest.NewRecorder()
	handler.Serve(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
