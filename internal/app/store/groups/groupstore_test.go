package groupstore_test

import (
	"errors"
	"testing"

	groupstore "github.com/dalemusser/trackhub/internal/app/store/groups"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/trackhub/internal/testutil"
)

func TestStore_CreateAndUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g, err := store.Create(ctx, models.Group{
		Name:      "Streamers",
		CreatedBy: "user-1",
		Subjects:  []string{"subj-1"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if g.UUID == "" {
		t.Error("expected UUID to be set")
	}

	err = store.Update(ctx, "user-1", g.UUID, models.Group{
		Name:     "Streamers",
		Subjects: []string{"subj-1", "subj-2"},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	found, err := store.ByUUID(ctx, g.UUID)
	if err != nil {
		t.Fatalf("ByUUID failed: %v", err)
	}
	if len(found.Subjects) != 2 {
		t.Errorf("subjects: got %v", found.Subjects)
	}

	// Ownership scopes updates.
	err = store.Update(ctx, "user-2", g.UUID, models.Group{Name: "Hijacked"})
	if !errors.Is(err, groupstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
	}
}

func TestStore_DuplicateNamePerOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.Group{Name: "Team", CreatedBy: "user-1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, models.Group{Name: "team", CreatedBy: "user-1"}); !errors.Is(err, groupstore.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if _, err := store.Create(ctx, models.Group{Name: "Team", CreatedBy: "user-2"}); err != nil {
		t.Fatalf("Create for second owner failed: %v", err)
	}
}

func TestStore_RemoveSubjectFromAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, err := store.Create(ctx, models.Group{Name: "A", CreatedBy: "user-1", Subjects: []string{"gone", "stays"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	b, err := store.Create(ctx, models.Group{Name: "B", CreatedBy: "user-2", Subjects: []string{"gone"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	count, err := store.RemoveSubjectFromAll(ctx, "gone")
	if err != nil {
		t.Fatalf("RemoveSubjectFromAll failed: %v", err)
	}
	if count != 2 {
		t.Errorf("touched: got %d, want 2", count)
	}

	foundA, _ := store.ByUUID(ctx, a.UUID)
	if len(foundA.Subjects) != 1 || foundA.Subjects[0] != "stays" {
		t.Errorf("group A subjects: got %v", foundA.Subjects)
	}
	foundB, _ := store.ByUUID(ctx, b.UUID)
	if len(foundB.Subjects) != 0 {
		t.Errorf("group B subjects: got %v", foundB.Subjects)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g, err := store.Create(ctx, models.Group{Name: "Doomed", CreatedBy: "user-1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Delete(ctx, "user-2", g.UUID); !errors.Is(err, groupstore.ErrNotFound) {
		t.Fatalf("non-owner delete succeeded: %v", err)
	}
	if err := store.Delete(ctx, "user-1", g.UUID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.ByUUID(ctx, g.UUID); !errors.Is(err, groupstore.ErrNotFound) {
		t.Fatalf("group still present: %v", err)
	}
}
