// internal/domain/models/class.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminRef is the embedded entry for a co-administering teacher on a class.
// Same shape and lifecycle as GuardianRef, joined by email.
type AdminRef struct {
	Email     string    `bson:"email" json:"email"` // always lowercase
	AccountID string    `bson:"account_id,omitempty" json:"account_id,omitempty"`
	Status    string    `bson:"status" json:"status"` // pending | accepted
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// Class is a roster collection owned by one teacher.
//
// StudentCount is denormalized: it is only ever moved with $inc by the
// student create/delete paths and is never recomputed by scanning. A crash
// between a student write and the counter write leaves bounded drift.
type Class struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID      string             `bson:"owner_id" json:"owner_id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"`
	StudentCount int64              `bson:"student_count" json:"student_count"`
	Admins       []AdminRef         `bson:"admins,omitempty" json:"admins,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}
