package models

import "time"

// User is an API consumer: a data-providing agent or a human operator.
// Users hold no password; they authenticate with an API key whose SHA3-256
// digest is stored in KeyDigest. The raw key is shown exactly once, at
// registration or reset time.
type User struct {
	UUID      string    `bson:"uuid" json:"uuid"`
	Name      string    `bson:"name" json:"name"`
	KeyDigest string    `bson:"key_digest" json:"-"`
	Banned    bool      `bson:"banned" json:"banned"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Referral is a single-use registration code minted by an existing user.
type Referral struct {
	Code      string    `bson:"code" json:"code"`
	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	Used      bool      `bson:"used" json:"used"`
	UsedBy    string    `bson:"used_by,omitempty" json:"used_by,omitempty"`
}
