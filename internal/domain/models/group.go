package models

import "time"

// Group is a named collection of subjects owned by one user. Membership is
// many-to-many: a subject may appear in any number of groups, and deleting
// a group never deletes its subjects.
type Group struct {
	UUID        string    `bson:"uuid" json:"uuid"`
	Name        string    `bson:"name" json:"name"`
	NameCI      string    `bson:"name_ci" json:"-"`
	CreatedBy   string    `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
	Subjects    []string  `bson:"subjects" json:"subjects"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
}
