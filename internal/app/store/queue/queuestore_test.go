package queuestore_test

import (
	"testing"
	"time"

	queuestore "github.com/dalemusser/trackhub/internal/app/store/queue"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/trackhub/internal/testutil"
)

const ttl = 30 * time.Second

func TestStore_Register_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := queuestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Register(ctx, "twitter", "a"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	entry, err := store.Entry(ctx, "twitter", "a")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if !entry.LastObservedAt.Equal(models.NeverObserved) {
		t.Errorf("LastObservedAt: got %v, want never-observed floor", entry.LastObservedAt)
	}

	// Advance freshness, then re-register: the entry must keep its state.
	observed := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.Observe(ctx, "twitter", "a", observed); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := store.Register(ctx, "twitter", "a"); err != nil {
		t.Fatalf("second Register failed: %v", err)
	}
	entry, err = store.Entry(ctx, "twitter", "a")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if !entry.LastObservedAt.Equal(observed) {
		t.Errorf("re-register reset LastObservedAt: got %v, want %v", entry.LastObservedAt, observed)
	}
}

func TestStore_Lease_OrderAndExclusivity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := queuestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, id := range []string{"b", "a", "c"} {
		if err := store.Register(ctx, "twitter", id); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	// "c" has produced data, so it ranks behind the never-observed pair.
	if err := store.Observe(ctx, "twitter", "c", time.Now().UTC()); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	leased, err := store.Lease(ctx, []string{"twitter"}, 2, "agent-1", ttl)
	if err != nil {
		t.Fatalf("Lease failed: %v", err)
	}
	if len(leased) != 2 {
		t.Fatalf("leased: got %d entries, want 2", len(leased))
	}
	if leased[0].PlatformID != "a" || leased[1].PlatformID != "b" {
		t.Errorf("order: got %q,%q, want a,b", leased[0].PlatformID, leased[1].PlatformID)
	}

	// A second agent asking for everything can only get what is left.
	second, err := store.Lease(ctx, []string{"twitter"}, 10, "agent-2", ttl)
	if err != nil {
		t.Fatalf("second Lease failed: %v", err)
	}
	if len(second) != 1 || second[0].PlatformID != "c" {
		t.Fatalf("second agent: got %v, want only c", second)
	}

	// Nothing is eligible now; an empty batch is a normal answer.
	third, err := store.Lease(ctx, []string{"twitter"}, 10, "agent-3", ttl)
	if err != nil {
		t.Fatalf("third Lease failed: %v", err)
	}
	if len(third) != 0 {
		t.Errorf("third agent: got %d entries, want 0", len(third))
	}
}

func TestStore_Lease_PlatformFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := queuestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Register(ctx, "twitter", "a"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := store.Register(ctx, "twitch", "b"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	leased, err := store.Lease(ctx, []string{"twitch"}, 10, "agent-1", ttl)
	if err != nil {
		t.Fatalf("Lease failed: %v", err)
	}
	if len(leased) != 1 || leased[0].Platform != "twitch" {
		t.Fatalf("platform filter leaked: got %v", leased)
	}
}

func TestStore_Lease_ExpiredLeaseIsReclaimable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := queuestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Register(ctx, "twitter", "a"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	shortTTL := 50 * time.Millisecond
	first, err := store.Lease(ctx, []string{"twitter"}, 1, "agent-1", shortTTL)
	if err != nil || len(first) != 1 {
		t.Fatalf("first Lease: %v %v", first, err)
	}

	// Within the TTL the entry is invisible to others.
	blocked, err := store.Lease(ctx, []string{"twitter"}, 1, "agent-2", shortTTL)
	if err != nil {
		t.Fatalf("blocked Lease failed: %v", err)
	}
	if len(blocked) != 0 {
		t.Fatalf("lease was not exclusive: %v", blocked)
	}

	time.Sleep(2 * shortTTL)

	reclaimed, err := store.Lease(ctx, []string{"twitter"}, 1, "agent-2", shortTTL)
	if err != nil {
		t.Fatalf("reclaim Lease failed: %v", err)
	}
	if len(reclaimed) != 1 {
		t.Fatalf("expired lease was not reclaimable")
	}
	if reclaimed[0].LeaseHolder != "agent-2" {
		t.Errorf("holder: got %q, want agent-2", reclaimed[0].LeaseHolder)
	}
}

func TestStore_Release_OnlyHolder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := queuestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Register(ctx, "twitter", "a"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := store.Lease(ctx, []string{"twitter"}, 1, "agent-1", ttl); err != nil {
		t.Fatalf("Lease failed: %v", err)
	}

	// A non-holder release is a no-op.
	if err := store.Release(ctx, "twitter", "a", "agent-2"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	entry, err := store.Entry(ctx, "twitter", "a")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if entry.LeaseHolder != "agent-1" {
		t.Errorf("non-holder release cleared the lease")
	}

	// The holder's release frees the entry for the next caller.
	if err := store.Release(ctx, "twitter", "a", "agent-1"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	leased, err := store.Lease(ctx, []string{"twitter"}, 1, "agent-2", ttl)
	if err != nil || len(leased) != 1 {
		t.Fatalf("released entry not leaseable: %v %v", leased, err)
	}
}

func TestStore_Observe_OnlyMovesForward(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := queuestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Register(ctx, "twitter", "a"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	newer := time.Now().UTC().Truncate(time.Millisecond)
	older := newer.Add(-time.Hour)

	if err := store.Observe(ctx, "twitter", "a", newer); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := store.Observe(ctx, "twitter", "a", older); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	entry, err := store.Entry(ctx, "twitter", "a")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if !entry.LastObservedAt.Equal(newer) {
		t.Errorf("out-of-order observation moved freshness backward: got %v, want %v", entry.LastObservedAt, newer)
	}
}

func TestStore_ClearExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := queuestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Register(ctx, "twitter", "a"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	shortTTL := 10 * time.Millisecond
	if _, err := store.Lease(ctx, []string{"twitter"}, 1, "agent-1", shortTTL); err != nil {
		t.Fatalf("Lease failed: %v", err)
	}
	time.Sleep(3 * shortTTL)

	count, err := store.ClearExpired(ctx, shortTTL)
	if err != nil {
		t.Fatalf("ClearExpired failed: %v", err)
	}
	if count != 1 {
		t.Errorf("cleared: got %d, want 1", count)
	}
	entry, err := store.Entry(ctx, "twitter", "a")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if entry.LeaseHolder != "" || entry.LastLeasedAt != nil {
		t.Errorf("expired lease fields were not cleared: %+v", entry)
	}
}
