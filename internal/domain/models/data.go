package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// DataKind separates discrete events (content) from observations of
// continuous state (presence).
type DataKind string

const (
	KindContent  DataKind = "content"
	KindPresence DataKind = "presence"
)

// DataRecord is one immutable observation about a profile. Records are
// never updated or deleted after commit; re-submissions of the same fact
// are absorbed by the unique index on Dedup.
//
// ObservedAt is the time the fact was true on the platform as reported by
// the agent; ReceivedAt is stamped by this server at commit and is the
// global ordering key for views.
type DataRecord struct {
	Platform   string         `bson:"platform" json:"platform"`
	ID         string         `bson:"id" json:"id"`
	Kind       DataKind       `bson:"kind" json:"kind"`
	Type       string         `bson:"type" json:"type"`
	Payload    map[string]any `bson:"payload,omitempty" json:"payload,omitempty"`
	ObservedAt time.Time      `bson:"observed_at" json:"observed_at"`
	ReceivedAt time.Time      `bson:"received_at" json:"received_at"`
	AddedBy    string         `bson:"added_by" json:"added_by"`
	Dedup      string         `bson:"dedup" json:"-"`
}

// ComputeDedup fills Dedup with the hex SHA-256 of the record's identity
// tuple. encoding/json writes map keys in sorted order, so two payloads
// with equal content hash equally regardless of how the agent ordered its
// JSON fields.
func (d *DataRecord) ComputeDedup() error {
	payload, err := json.Marshal(d.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload for dedup: %w", err)
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\x00", d.Platform, d.ID, d.Type, d.ObservedAt.UTC().UnixNano())
	h.Write(payload)
	d.Dedup = hex.EncodeToString(h.Sum(nil))
	return nil
}
