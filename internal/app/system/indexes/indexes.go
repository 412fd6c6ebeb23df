// Package indexes creates the indexes the core invariants depend on.
// Uniqueness is enforced here, in the store, not by application-level
// check-then-insert: the dedup index is the idempotence guarantee for
// ingestion and the partial profile index is the single-owner guarantee
// for the entity graph.
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureAll is called at startup. CreateMany is idempotent for identical
// definitions; errors are aggregated so every problem is visible and
// startup can fail fast.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureReferrals(ctx, db); err != nil {
		problems = append(problems, "referrals: "+err.Error())
	}
	if err := ensureSubjects(ctx, db); err != nil {
		problems = append(problems, "subjects: "+err.Error())
	}
	if err := ensureGroups(ctx, db); err != nil {
		problems = append(problems, "groups: "+err.Error())
	}
	if err := ensureProfiles(ctx, db); err != nil {
		problems = append(problems, "profiles: "+err.Error())
	}
	if err := ensureData(ctx, db); err != nil {
		problems = append(problems, "data: "+err.Error())
	}
	if err := ensureQueue(ctx, db); err != nil {
		problems = append(problems, "queue: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key_digest", Value: 1}},
			Options: options.Index().SetName("users_key_digest").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("users_name").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "uuid", Value: 1}},
			Options: options.Index().SetName("users_uuid").SetUnique(true),
		},
	})
	return err
}

func ensureReferrals(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("referrals").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetName("referrals_code").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "code", Value: 1}, {Key: "used", Value: 1}},
			Options: options.Index().SetName("referrals_code_used"),
		},
	})
	return err
}

func ensureSubjects(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("subjects").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uuid", Value: 1}},
			Options: options.Index().SetName("subjects_uuid").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("subjects_owner_name").SetUnique(true),
		},
	})
	return err
}

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("groups").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uuid", Value: 1}},
			Options: options.Index().SetName("groups_uuid").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("groups_owner_name").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "subjects", Value: 1}},
			Options: options.Index().SetName("groups_subjects"),
		},
	})
	return err
}

// ensureProfiles creates the single-owner guarantee: at most one attached
// record may exist per (platform, platform_id). Detached records fall
// outside the partial filter and accumulate as history.
func ensureProfiles(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("profiles").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "platform", Value: 1}, {Key: "platform_id", Value: 1}},
			Options: options.Index().
				SetName("profiles_active_key").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "attached", Value: true}}),
		},
		{
			Keys:    bson.D{{Key: "subject_uuid", Value: 1}},
			Options: options.Index().SetName("profiles_subject"),
		},
	})
	return err
}

func ensureData(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("data").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "dedup", Value: 1}},
			Options: options.Index().SetName("data_dedup").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "platform", Value: 1},
				{Key: "id", Value: 1},
				{Key: "received_at", Value: 1},
			},
			Options: options.Index().SetName("data_profile_received"),
		},
	})
	return err
}

func ensureQueue(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("queue").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "platform", Value: 1}, {Key: "platform_id", Value: 1}},
			Options: options.Index().SetName("queue_profile_key").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "platform", Value: 1},
				{Key: "last_observed_at", Value: 1},
			},
			Options: options.Index().SetName("queue_lease_scan"),
		},
	})
	return err
}
