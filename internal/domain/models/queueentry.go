package models

import "time"

// NeverObserved is the last_observed_at value given to a queue entry whose
// profile has never produced data. It sorts ahead of every real
// observation, so fresh profiles are crawled first.
var NeverObserved = time.Unix(0, 0).UTC()

// QueueEntry is per-profile scheduling state. One entry exists for each
// profile currently attached to a subject; the entry is removed when the
// profile is detached.
//
// A lease is active when LeaseHolder is set and LastLeasedAt is within the
// configured TTL. Lease grant, expiry check and freshness updates all go
// through single-document atomic operations so that two agents can never
// hold the same profile at once.
type QueueEntry struct {
	UUID           string     `bson:"uuid" json:"uuid"`
	Platform       string     `bson:"platform" json:"platform"`
	PlatformID     string     `bson:"platform_id" json:"id"`
	LastObservedAt time.Time  `bson:"last_observed_at" json:"last_observed_at"`
	LastLeasedAt   *time.Time `bson:"last_leased_at,omitempty" json:"last_leased_at,omitempty"`
	LeaseHolder    string     `bson:"lease_holder,omitempty" json:"-"`
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
}
