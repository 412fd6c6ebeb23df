package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/trackhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound      = errors.New("group does not exist or is not owned by the caller")
	ErrDuplicateName = errors.New("a group with this name already exists for the caller")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	g.UUID = uuid.NewString()
	g.NameCI = text.Fold(g.Name)
	g.CreatedAt = now
	g.UpdatedAt = now
	if g.Subjects == nil {
		g.Subjects = []string{}
	}
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateName
		}
		return models.Group{}, err
	}
	return g, nil
}

// Update replaces the group's name, subject list and description. As with
// subjects, updates post the full document.
func (s *Store) Update(ctx context.Context, createdBy, groupUUID string, upd models.Group) error {
	set := bson.M{
		"name":        upd.Name,
		"name_ci":     text.Fold(upd.Name),
		"subjects":    upd.Subjects,
		"description": upd.Description,
		"updated_at":  time.Now().UTC(),
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"uuid": groupUUID, "created_by": createdBy},
		bson.M{"$set": set},
	)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateName
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, createdBy, groupUUID string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"uuid": groupUUID, "created_by": createdBy})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ByUUID(ctx context.Context, groupUUID string) (models.Group, error) {
	var g models.Group
	err := s.c.FindOne(ctx, bson.M{"uuid": groupUUID}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, ErrNotFound
	}
	return g, err
}

func (s *Store) ByCreator(ctx context.Context, createdBy string) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, bson.M{"created_by": createdBy})
	if err != nil {
		return nil, err
	}
	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// RemoveSubjectFromAll pulls a deleted subject out of every group that
// references it. Returns the number of groups touched.
func (s *Store) RemoveSubjectFromAll(ctx context.Context, subjUUID string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"subjects": subjUUID},
		bson.M{"$pull": bson.M{"subjects": subjUUID}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
