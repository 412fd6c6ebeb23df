package manage_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/trackhub/internal/app/features/errors"
	managefeature "github.com/dalemusser/trackhub/internal/app/features/manage"
	groupstore "github.com/dalemusser/trackhub/internal/app/store/groups"
	queuestore "github.com/dalemusser/trackhub/internal/app/store/queue"
	subjectstore "github.com/dalemusser/trackhub/internal/app/store/subjects"
	"github.com/dalemusser/trackhub/internal/app/system/typereg"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/trackhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	handler  *managefeature.Handler
	subjects *subjectstore.Store
	groups   *groupstore.Store
	queue    *queuestore.Store
	db       *mongo.Database
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	reg := &typereg.Registry{
		Content:  map[string][]string{"twitter": {"tweet"}},
		Presence: map[string][]string{"twitch": {"livestream"}},
	}
	subjects := subjectstore.New(db)
	groups := groupstore.New(db)
	queue := queuestore.New(db)
	return &env{
		handler:  managefeature.NewHandler(subjects, groups, queue, reg, uierrors.NewErrorLogger(logger), logger),
		subjects: subjects,
		groups:   groups,
		queue:    queue,
		db:       db,
	}
}

func caller() models.User {
	return models.User{UUID: "owner-1", Name: "owner"}
}

func do(t *testing.T, h http.HandlerFunc, body string, u models.User) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.WithCaller(testutil.NewJSONRequest("POST", "/", body), u)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func createdSubjectUUID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Subject models.Subject `json:"subject"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp.Subject.UUID
}

func TestCreate_SubjectRegistersQueueEntries(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := do(t, e.handler.Create, `{"name":"Alice","profiles":{"twitter":["alice"],"twitch":["alice_tv"]}}`, caller())
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	for _, key := range []models.ProfileKey{
		{Platform: "twitter", ID: "alice"},
		{Platform: "twitch", ID: "alice_tv"},
	} {
		entry, err := e.queue.Entry(ctx, key.Platform, key.ID)
		if err != nil {
			t.Fatalf("queue entry for %v missing: %v", key, err)
		}
		if !entry.LastObservedAt.Equal(models.NeverObserved) {
			t.Errorf("new entry not at never-observed floor: %v", entry.LastObservedAt)
		}
	}
}

func TestCreate_ProfileConflictIs409(t *testing.T) {
	e := setup(t)

	rec := do(t, e.handler.Create, `{"name":"Alice","profiles":{"twitter":["shared"]}}`, caller())
	if rec.Code != http.StatusOK {
		t.Fatalf("first create: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e.handler.Create, `{"name":"Bob","profiles":{"twitter":["shared"]}}`, models.User{UUID: "owner-2"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestCreate_UnregisteredPlatform(t *testing.T) {
	e := setup(t)

	rec := do(t, e.handler.Create, `{"name":"Alice","profiles":{"myspace":["alice"]}}`, caller())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreate_AmbiguousBody(t *testing.T) {
	e := setup(t)

	rec := do(t, e.handler.Create, `{"name":"Thing"}`, caller())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUpdate_SubjectSwapsQueueEntries(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := do(t, e.handler.Create, `{"name":"Alice","profiles":{"twitter":["old"]}}`, caller())
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	uuid := createdSubjectUUID(t, rec)

	rec = do(t, e.handler.Update, `{"uuid":"`+uuid+`","name":"Alice","profiles":{"twitter":["new"]}}`, caller())
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	if _, err := e.queue.Entry(ctx, "twitter", "old"); err == nil {
		t.Error("detached profile still queued")
	}
	if _, err := e.queue.Entry(ctx, "twitter", "new"); err != nil {
		t.Errorf("attached profile not queued: %v", err)
	}
}

func TestDelete_SubjectCleansQueueAndGroups(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := do(t, e.handler.Create, `{"name":"Alice","profiles":{"twitter":["alice"]}}`, caller())
	if rec.Code != http.StatusOK {
		t.Fatalf("create subject: %d", rec.Code)
	}
	uuid := createdSubjectUUID(t, rec)

	rec = do(t, e.handler.Create, `{"name":"Team","subjects":["`+uuid+`"]}`, caller())
	if rec.Code != http.StatusOK {
		t.Fatalf("create group: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e.handler.Delete, `{"uuid":"`+uuid+`"}`, caller())
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}

	if _, err := e.queue.Entry(ctx, "twitter", "alice"); err == nil {
		t.Error("deleted subject's profile still queued")
	}
	groups, err := e.groups.ByCreator(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ByCreator failed: %v", err)
	}
	for _, g := range groups {
		for _, su := range g.Subjects {
			if su == uuid {
				t.Errorf("deleted subject still referenced by group %s", g.UUID)
			}
		}
	}
}

func TestDelete_GroupFallback(t *testing.T) {
	e := setup(t)

	rec := do(t, e.handler.Create, `{"name":"Team","subjects":[]}`, caller())
	if rec.Code != http.StatusOK {
		t.Fatalf("create group: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Group models.Group `json:"group"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	rec = do(t, e.handler.Delete, `{"uuid":"`+resp.Group.UUID+`"}`, caller())
	if rec.Code != http.StatusOK {
		t.Fatalf("delete group: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e.handler.Delete, `{"uuid":"`+resp.Group.UUID+`"}`, caller())
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreate_GroupWithUnknownSubject(t *testing.T) {
	e := setup(t)

	rec := do(t, e.handler.Create, `{"name":"Team","subjects":["no-such-subject"]}`, caller())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreate_SanitizesDisplayText(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := do(t, e.handler.Create, `{"name":"Alice <script>alert(1)</script>","profiles":{"twitter":["alice"]}}`, caller())
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	uuid := createdSubjectUUID(t, rec)

	subj, err := e.subjects.ByUUID(ctx, uuid)
	if err != nil {
		t.Fatalf("ByUUID failed: %v", err)
	}
	if subj.Name != "Alice " {
		t.Errorf("name not sanitized: %q", subj.Name)
	}
}
