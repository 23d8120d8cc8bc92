// internal/domain/models/invite.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invite / guardian-ref / admin-ref statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// Invite joins a guardian email to a target student before (or while) that
// email has an account. The invites collection is an append-only ledger:
// documents are never deleted, and acceptance flips status at most once.
// Re-processing an accepted invite is a no-op, which is what lets the
// reconciliation pass repair half-applied earlier runs.
type Invite struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email      string             `bson:"email" json:"email"` // always lowercase
	StudentID  primitive.ObjectID `bson:"student_id" json:"student_id"`
	OwnerID    string             `bson:"owner_id" json:"owner_id"` // inviting teacher's account id
	Status     string             `bson:"status" json:"status"`
	AcceptedAt *time.Time         `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	AcceptedBy string             `bson:"accepted_by,omitempty" json:"accepted_by,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// AdminInvite is the Invite shape against a class instead of a student,
// mediating co-administrator linking.
type AdminInvite struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email      string             `bson:"email" json:"email"`
	ClassID    primitive.ObjectID `bson:"class_id" json:"class_id"`
	OwnerID    string             `bson:"owner_id" json:"owner_id"`
	Status     string             `bson:"status" json:"status"`
	AcceptedAt *time.Time         `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	AcceptedBy string             `bson:"accepted_by,omitempty" json:"accepted_by,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
