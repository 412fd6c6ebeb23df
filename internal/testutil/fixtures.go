package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user directly. The key digest is fake; tests that
// exercise the credential path use the userstore instead.
func (f *Fixtures) CreateUser(ctx context.Context, name string) models.User {
	f.t.Helper()

	u := models.User{
		UUID:      uuid.NewString(),
		Name:      name,
		KeyDigest: "digest-" + uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateSubject inserts a subject document and its attachment records,
// mirroring what subjectstore.Create would produce.
func (f *Fixtures) CreateSubject(ctx context.Context, createdBy, name string, profiles map[string][]string) models.Subject {
	f.t.Helper()

	now := time.Now().UTC()
	subj := models.Subject{
		UUID:      uuid.NewString(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
		Profiles:  profiles,
	}
	if _, err := f.db.Collection("subjects").InsertOne(ctx, subj); err != nil {
		f.t.Fatalf("failed to create test subject: %v", err)
	}
	for _, k := range subj.ProfileKeys() {
		att := models.ProfileAttachment{
			Platform:      k.Platform,
			PlatformID:    k.ID,
			SubjectUUID:   subj.UUID,
			Attached:      true,
			FirstLinkedAt: now,
		}
		if _, err := f.db.Collection("profiles").InsertOne(ctx, att); err != nil {
			f.t.Fatalf("failed to attach test profile: %v", err)
		}
	}
	return subj
}

// CreateGroup inserts a group referencing the given subject UUIDs.
func (f *Fixtures) CreateGroup(ctx context.Context, createdBy, name string, subjects []string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	if subjects == nil {
		subjects = []string{}
	}
	g := models.Group{
		UUID:      uuid.NewString(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
		Subjects:  subjects,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}
