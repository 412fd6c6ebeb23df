// Package subjectstore maintains the entity graph's subjects and the
// profile-attachment records that enforce global profile-key uniqueness.
//
// Attachment records are the source of truth for "which subject owns this
// (platform, id) right now"; the profiles map embedded in the subject
// document is the display copy. Claims are taken against the attachment
// collection before the subject document is written, so a conflicting
// request fails before any change becomes visible through the graph.
package subjectstore

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
	ErrNotFound        = errors.New("subject does not exist or is not owned by the caller")
	ErrProfileConflict = errors.New("one or more profiles already belong to another subject")
	ErrDuplicateName   = errors.New("a subject with this name already exists for the caller")
	ErrNoProfiles      = errors.New("a subject must hold at least one profile")
)

type Store struct {
	subjects *mongo.Collection
	profiles *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		subjects: db.Collection("subjects"),
		profiles: db.Collection("profiles"),
	}
}

// Create inserts a new subject and claims every requested profile key.
// Either all claims and the subject document land, or none do: claims made
// by this call are removed again if a later step fails.
func (s *Store) Create(ctx context.Context, subj models.Subject) (models.Subject, error) {
	keys := subj.ProfileKeys()
	if len(keys) == 0 {
		return models.Subject{}, ErrNoProfiles
	}

	now := time.Now().UTC()
	subj.UUID = uuid.NewString()
	subj.NameCI = text.Fold(subj.Name)
	subj.CreatedAt = now
	subj.UpdatedAt = now

	claimed, err := s.claim(ctx, subj.UUID, keys, now)
	if err != nil {
		s.unclaim(ctx, subj.UUID, claimed)
		return models.Subject{}, err
	}

	if _, err := s.subjects.InsertOne(ctx, subj); err != nil {
		s.unclaim(ctx, subj.UUID, claimed)
		if wafflemongo.IsDup(err) {
			return models.Subject{}, ErrDuplicateName
		}
		return models.Subject{}, err
	}
	return subj, nil
}

// Update replaces a subject's name, profiles, metadata and description, as
// the original API requires the full document to be posted. It returns the
// profile keys that were attached and detached so the caller can adjust
// crawl-queue state.
func (s *Store) Update(ctx context.Context, createdBy, subjUUID string, upd models.Subject) (added, removed []models.ProfileKey, err error) {
	current, err := s.owned(ctx, createdBy, subjUUID)
	if err != nil {
		return nil, nil, err
	}

	added, removed = diffProfiles(current.Profiles, upd.Profiles)
	if len(upd.ProfileKeys()) == 0 {
		return nil, nil, ErrNoProfiles
	}

	now := time.Now().UTC()
	claimed, err := s.claim(ctx, subjUUID, added, now)
	if err != nil {
		s.unclaim(ctx, subjUUID, claimed)
		return nil, nil, err
	}

	set := bson.M{
		"name":        upd.Name,
		"name_ci":     text.Fold(upd.Name),
		"profiles":    upd.Profiles,
		"metadata":    upd.Metadata,
		"description": upd.Description,
		"updated_at":  now,
	}
	if _, err := s.subjects.UpdateOne(ctx,
		bson.M{"uuid": subjUUID, "created_by": createdBy},
		bson.M{"$set": set},
	); err != nil {
		s.unclaim(ctx, subjUUID, claimed)
		if wafflemongo.IsDup(err) {
			return nil, nil, ErrDuplicateName
		}
		return nil, nil, err
	}

	if err := s.detach(ctx, subjUUID, removed, now); err != nil {
		return nil, nil, err
	}
	return added, removed, nil
}

// Delete removes a subject and detaches all of its profiles. Data rows for
// the detached keys are untouched and stay addressable by (platform, id).
// The deleted subject is returned so the caller can clean up queue entries
// and group memberships.
func (s *Store) Delete(ctx context.Context, createdBy, subjUUID string) (models.Subject, error) {
	subj, err := s.owned(ctx, createdBy, subjUUID)
	if err != nil {
		return models.Subject{}, err
	}
	if _, err := s.subjects.DeleteOne(ctx, bson.M{"uuid": subjUUID, "created_by": createdBy}); err != nil {
		return models.Subject{}, err
	}
	if err := s.detach(ctx, subjUUID, subj.ProfileKeys(), time.Now().UTC()); err != nil {
		return models.Subject{}, err
	}
	return subj, nil
}

// Resolve maps a profile key to the subject that currently owns it.
// The ingestion validator uses this as its membership gate.
func (s *Store) Resolve(ctx context.Context, platform, id string) (string, error) {
	var att models.ProfileAttachment
	err := s.profiles.FindOne(ctx, bson.M{
		"platform":    platform,
		"platform_id": id,
		"attached":    true,
	}).Decode(&att)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return att.SubjectUUID, nil
}

func (s *Store) ByUUID(ctx context.Context, subjUUID string) (models.Subject, error) {
	var subj models.Subject
	err := s.subjects.FindOne(ctx, bson.M{"uuid": subjUUID}).Decode(&subj)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Subject{}, ErrNotFound
	}
	return subj, err
}

func (s *Store) ByUUIDs(ctx context.Context, uuids []string) ([]models.Subject, error) {
	cur, err := s.subjects.Find(ctx, bson.M{"uuid": bson.M{"$in": uuids}})
	if err != nil {
		return nil, err
	}
	var subjects []models.Subject
	if err := cur.All(ctx, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (s *Store) ByCreator(ctx context.Context, createdBy string) ([]models.Subject, error) {
	cur, err := s.subjects.Find(ctx, bson.M{"created_by": createdBy})
	if err != nil {
		return nil, err
	}
	var subjects []models.Subject
	if err := cur.All(ctx, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

// Exists reports whether a subject with the given UUID exists, regardless
// of owner. Group membership checks use this.
func (s *Store) Exists(ctx context.Context, subjUUID string) (bool, error) {
	n, err := s.subjects.CountDocuments(ctx, bson.M{"uuid": subjUUID})
	return n > 0, err
}

func (s *Store) owned(ctx context.Context, createdBy, subjUUID string) (models.Subject, error) {
	var subj models.Subject
	err := s.subjects.FindOne(ctx, bson.M{"uuid": subjUUID, "created_by": createdBy}).Decode(&subj)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Subject{}, ErrNotFound
	}
	return subj, err
}

// claim inserts one attachment record per key. The partial unique index on
// (platform, platform_id, attached:true) turns a concurrent or existing
// claim into a duplicate-key error. Keys claimed before the failure are
// returned so the caller can roll them back.
func (s *Store) claim(ctx context.Context, subjUUID string, keys []models.ProfileKey, now time.Time) ([]models.ProfileKey, error) {
	var claimed []models.ProfileKey
	for _, k := range keys {
		att := models.ProfileAttachment{
			Platform:      k.Platform,
			PlatformID:    k.ID,
			SubjectUUID:   subjUUID,
			Attached:      true,
			FirstLinkedAt: now,
		}
		if _, err := s.profiles.InsertOne(ctx, att); err != nil {
			if wafflemongo.IsDup(err) {
				return claimed, ErrProfileConflict
			}
			return claimed, err
		}
		claimed = append(claimed, k)
	}
	return claimed, nil
}

// unclaim removes attachment records made earlier in the same call. It is
// best-effort: a leftover claim for a subject that was never written blocks
// re-use of the key until cleaned up, but never misattributes data.
func (s *Store) unclaim(ctx context.Context, subjUUID string, keys []models.ProfileKey) {
	for _, k := range keys {
		_, _ = s.profiles.DeleteOne(ctx, bson.M{
			"platform":     k.Platform,
			"platform_id":  k.ID,
			"subject_uuid": subjUUID,
			"attached":     true,
		})
	}
}

func (s *Store) detach(ctx context.Context, subjUUID string, keys []models.ProfileKey, now time.Time) error {
	for _, k := range keys {
		if _, err := s.profiles.UpdateOne(ctx,
			bson.M{"platform": k.Platform, "platform_id": k.ID, "subject_uuid": subjUUID, "attached": true},
			bson.M{"$set": bson.M{"attached": false, "detached_at": now}},
		); err != nil {
			return err
		}
	}
	return nil
}

func diffProfiles(old, new map[string][]string) (added, removed []models.ProfileKey) {
	oldSet := keySet(old)
	newSet := keySet(new)
	for k := range newSet {
		if _, ok := oldSet[k]; !ok {
			added = append(added, k)
		}
	}
	for k := range oldSet {
		if _, ok := newSet[k]; !ok {
			removed = append(removed, k)
		}
	}
	return added, removed
}

func keySet(profiles map[string][]string) map[models.ProfileKey]struct{} {
	set := make(map[models.ProfileKey]struct{})
	for platform, ids := range profiles {
		for _, id := range ids {
			set[models.ProfileKey{Platform: platform, ID: id}] = struct{}{}
		}
	}
	return set
}
