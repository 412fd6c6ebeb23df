package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/trackhub/internal/app/system/apikey"
	"github.com/dalemusser/trackhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound        = errors.New("no such user")
	ErrNameTaken       = errors.New("a user with this name already exists")
	ErrInvalidReferral = errors.New("referral code is invalid or already used")
)

type Store struct {
	users     *mongo.Collection
	referrals *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		users:     db.Collection("users"),
		referrals: db.Collection("referrals"),
	}
}

// Create registers a new user and returns the raw API key exactly once.
// Only the key's digest is stored.
func (s *Store) Create(ctx context.Context, name string) (models.User, string, error) {
	key, err := apikey.Generate()
	if err != nil {
		return models.User{}, "", err
	}
	u := models.User{
		UUID:      uuid.NewString(),
		Name:      name,
		KeyDigest: apikey.Digest(key),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, "", ErrNameTaken
		}
		return models.User{}, "", err
	}
	return u, key, nil
}

// ByKeyDigest resolves an API-key digest to its unbanned owner. This is
// the credential-validation call behind every authenticated request.
func (s *Store) ByKeyDigest(ctx context.Context, digest string) (models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"key_digest": digest, "banned": false}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

// Lookup adapts ByKeyDigest to the apikey middleware's resolver shape:
// an unknown digest is a (zero, false, nil) miss, not an error.
func (s *Store) Lookup(ctx context.Context, digest string) (models.User, bool, error) {
	u, err := s.ByKeyDigest(ctx, digest)
	if errors.Is(err, ErrNotFound) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	return u, true, nil
}

// RotateKey issues a fresh key for the user and invalidates the old one in
// the same write. The new raw key is returned once.
func (s *Store) RotateKey(ctx context.Context, userUUID string) (string, error) {
	key, err := apikey.Generate()
	if err != nil {
		return "", err
	}
	res, err := s.users.UpdateOne(ctx,
		bson.M{"uuid": userUUID},
		bson.M{"$set": bson.M{"key_digest": apikey.Digest(key)}},
	)
	if err != nil {
		return "", err
	}
	if res.MatchedCount == 0 {
		return "", ErrNotFound
	}
	return key, nil
}

// Count returns the number of registered users; startup seeds the root
// account when this is zero.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{})
}

// Register redeems a referral code for a new account. The referral is
// consumed atomically before the user row is written; a name collision in
// the final insert burns the code, matching the pre-checks' best effort
// rather than a cross-collection transaction.
func (s *Store) Register(ctx context.Context, code, name string) (models.User, string, error) {
	taken, err := s.NameTaken(ctx, name)
	if err != nil {
		return models.User{}, "", err
	}
	if taken {
		return models.User{}, "", ErrNameTaken
	}

	key, err := apikey.Generate()
	if err != nil {
		return models.User{}, "", err
	}
	u := models.User{
		UUID:      uuid.NewString(),
		Name:      name,
		KeyDigest: apikey.Digest(key),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.ConsumeReferral(ctx, code, u.UUID); err != nil {
		return models.User{}, "", err
	}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, "", ErrNameTaken
		}
		return models.User{}, "", err
	}
	return u, key, nil
}

// CreateReferral mints a single-use registration code for createdBy.
func (s *Store) CreateReferral(ctx context.Context, createdBy string) (models.Referral, error) {
	code, err := apikey.Generate()
	if err != nil {
		return models.Referral{}, err
	}
	ref := models.Referral{
		Code:      code,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.referrals.InsertOne(ctx, ref); err != nil {
		return models.Referral{}, err
	}
	return ref, nil
}

// ConsumeReferral atomically flips an unused code to used. The
// FindOneAndUpdate is the guard against double registration from one code:
// exactly one concurrent caller wins.
func (s *Store) ConsumeReferral(ctx context.Context, code, usedBy string) error {
	err := s.referrals.FindOneAndUpdate(ctx,
		bson.M{"code": code, "used": false},
		bson.M{"$set": bson.M{"used": true, "used_by": usedBy}},
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrInvalidReferral
	}
	return err
}

// ReferralUsable reports whether a code exists and is unspent, letting
// /register fail fast before creating anything.
func (s *Store) ReferralUsable(ctx context.Context, code string) (bool, error) {
	n, err := s.referrals.CountDocuments(ctx, bson.M{"code": code, "used": false})
	return n > 0, err
}

// NameTaken reports whether a user name is in use.
func (s *Store) NameTaken(ctx context.Context, name string) (bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"name": name})
	return n > 0, err
}
