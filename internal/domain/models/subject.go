package models

import "time"

// Subject represents a person or organisation being tracked. It owns an
// ordered set of profiles per platform (array order is display order) and
// free-form metadata. Subjects are the unit of ownership: only the creating
// user may update or delete one.
type Subject struct {
	UUID        string              `bson:"uuid" json:"uuid"`
	Name        string              `bson:"name" json:"name"`
	NameCI      string              `bson:"name_ci" json:"-"`
	CreatedBy   string              `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
	Profiles    map[string][]string `bson:"profiles" json:"profiles"`
	Metadata    map[string]string   `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
}

// ProfileKeys flattens the profiles map into keys, platforms in sorted
// order is not guaranteed; within a platform, insertion order is kept.
func (s Subject) ProfileKeys() []ProfileKey {
	var keys []ProfileKey
	for platform, ids := range s.Profiles {
		for _, id := range ids {
			keys = append(keys, ProfileKey{Platform: platform, ID: id})
		}
	}
	return keys
}
