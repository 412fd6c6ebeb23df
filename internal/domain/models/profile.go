package models

import "time"

// ProfileKey identifies one discrete information source: an account on a
// platform. The key is immutable; display metadata about the account lives
// in the data collection (metadata records), not here.
type ProfileKey struct {
	Platform string `bson:"platform" json:"platform"`
	ID       string `bson:"id" json:"id"`
}

// ProfileAttachment records which subject currently owns a profile key.
// A partial unique index on (platform, platform_id) where attached is true
// is what guarantees a profile identifies at most one subject at a time.
// Detaching flips Attached to false; the record and all data rows for the
// key are kept forever.
type ProfileAttachment struct {
	Platform      string     `bson:"platform"`
	PlatformID    string     `bson:"platform_id"`
	SubjectUUID   string     `bson:"subject_uuid"`
	Attached      bool       `bson:"attached"`
	FirstLinkedAt time.Time  `bson:"first_linked_at"`
	DetachedAt    *time.Time `bson:"detached_at,omitempty"`
}
