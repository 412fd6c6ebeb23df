// Package datastore commits immutable observations and answers view
// queries. The unique index on the dedup hash makes the commit idempotent:
// concurrent submissions of the same fact converge to exactly one row
// without a check-then-insert race.
package datastore

import (
	"context"
	"time"

	"github.com/dalemusser/trackhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("data")}
}

// Insert commits one record, stamping received_at at commit time. It
// returns false when an identical record (by dedup key) is already stored;
// that is success, not an error, so retrying agents get Accepted again.
func (s *Store) Insert(ctx context.Context, rec models.DataRecord) (bool, error) {
	rec.ReceivedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		if wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ByProfiles returns records for the given profile keys ordered by
// received_at (ascending unless reverse), with _id as the insertion-order
// tiebreak for rows committed in the same instant.
func (s *Store) ByProfiles(ctx context.Context, keys []models.ProfileKey, reverse bool, limit int64) ([]models.DataRecord, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	or := make([]bson.M, 0, len(keys))
	for _, k := range keys {
		or = append(or, bson.M{"platform": k.Platform, "id": k.ID})
	}
	dir := 1
	if reverse {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: dir}, {Key: "_id", Value: dir}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"$or": or}, opts)
	if err != nil {
		return nil, err
	}
	var records []models.DataRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ByProfile returns every record for one profile key in commit order.
// Detached profiles stay queryable here; only /view attribution follows
// the graph.
func (s *Store) ByProfile(ctx context.Context, platform, id string) ([]models.DataRecord, error) {
	return s.ByProfiles(ctx, []models.ProfileKey{{Platform: platform, ID: id}}, false, 0)
}

// Count reports the number of stored rows matching a profile key, used by
// tests and by the health surface.
func (s *Store) Count(ctx context.Context, platform, id string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"platform": platform, "id": id})
}
