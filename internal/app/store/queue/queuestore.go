// Package queuestore maintains the crawl queue: one entry per attached
// profile, ranked by staleness and handed out under time-bounded exclusive
// leases.
//
// The correctness core is Lease: claim and expiry-check are a single
// FindOneAndUpdate per entry, so two concurrent callers can never both
// claim the same profile, and a lease whose TTL has lapsed is reclaimable
// in the same atomic step with no separate sweep required.
package queuestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("queue")}
}

// Register creates the queue entry for a newly attached profile. The entry
// starts at the "never crawled" floor so it ranks ahead of every profile
// that has produced data. Re-attaching a profile that already has an entry
// is a no-op.
func (s *Store) Register(ctx context.Context, platform, id string) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"platform": platform, "platform_id": id},
		bson.M{"$setOnInsert": bson.M{
			"uuid":             uuid.NewString(),
			"platform":         platform,
			"platform_id":      id,
			"last_observed_at": models.NeverObserved,
			"created_at":       now,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Remove deletes the queue entry for a detached profile; the profile stops
// being leased immediately, whatever its lease state.
func (s *Store) Remove(ctx context.Context, platform, id string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"platform": platform, "platform_id": id})
	return err
}

// Lease claims up to batch entries for agentUUID, most stale first, ties
// broken by (platform, platform_id) ascending so concurrent runs are
// deterministic. An entry is eligible when its platform is requested and
// it is unleased or its lease is older than ttl. Each claim is one atomic
// FindOneAndUpdate; when no entry is eligible the loop stops and whatever
// was claimed so far (possibly nothing) is returned. Lease never blocks.
func (s *Store) Lease(ctx context.Context, platforms []string, batch int, agentUUID string, ttl time.Duration) ([]models.QueueEntry, error) {
	if len(platforms) == 0 || batch <= 0 {
		return nil, nil
	}

	var leased []models.QueueEntry
	for i := 0; i < batch; i++ {
		now := time.Now().UTC()
		filter := bson.M{
			"platform": bson.M{"$in": platforms},
			"$or": []bson.M{
				{"lease_holder": bson.M{"$exists": false}},
				{"last_leased_at": bson.M{"$lt": now.Add(-ttl)}},
			},
		}
		update := bson.M{"$set": bson.M{
			"lease_holder":   agentUUID,
			"last_leased_at": now,
		}}
		opts := options.FindOneAndUpdate().
			SetSort(bson.D{
				{Key: "last_observed_at", Value: 1},
				{Key: "platform", Value: 1},
				{Key: "platform_id", Value: 1},
			}).
			SetReturnDocument(options.After)

		var entry models.QueueEntry
		err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&entry)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return leased, err
		}
		leased = append(leased, entry)
	}
	return leased, nil
}

// Release clears agentUUID's lease on a profile ahead of its TTL. Releases
// by anyone other than the current holder are ignored, so a stale agent
// cannot free a profile re-leased to someone else.
func (s *Store) Release(ctx context.Context, platform, id, agentUUID string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"platform": platform, "platform_id": id, "lease_holder": agentUUID},
		bson.M{"$unset": bson.M{"lease_holder": "", "last_leased_at": ""}},
	)
	return err
}

// Observe records a successful ingestion for a profile. last_observed_at
// only moves forward ($max), so replayed or out-of-order submissions never
// make a profile look staler than it is. The fresh observation pushes the
// entry to the back of the ranking.
func (s *Store) Observe(ctx context.Context, platform, id string, observedAt time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"platform": platform, "platform_id": id},
		bson.M{"$max": bson.M{"last_observed_at": observedAt.UTC()}},
	)
	return err
}

// ClearExpired unsets leases older than ttl. Lease already treats those
// entries as eligible; this sweep just keeps the collection tidy and its
// count is useful operationally.
func (s *Store) ClearExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"last_leased_at": bson.M{"$lt": time.Now().UTC().Add(-ttl)}},
		bson.M{"$unset": bson.M{"lease_holder": "", "last_leased_at": ""}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Entry fetches one queue entry; tests and diagnostics use it.
func (s *Store) Entry(ctx context.Context, platform, id string) (models.QueueEntry, error) {
	var entry models.QueueEntry
	err := s.c.FindOne(ctx, bson.M{"platform": platform, "platform_id": id}).Decode(&entry)
	return entry, err
}
