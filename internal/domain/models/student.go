// internal/domain/models/student.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxGuardians is the cap on guardian refs embedded in one student.
const MaxGuardians = 2

// GuardianRef is the embedded contact + link status for a guardian attached
// to a student. Email is the join key to accounts; AccountID is set when the
// guardian is linked. A ref can be accepted with an empty AccountID only
// transiently after a partial reconciliation run; the next run repairs it.
type GuardianRef struct {
	FirstName string    `bson:"first_name" json:"first_name"`
	LastName  string    `bson:"last_name" json:"last_name"`
	Email     string    `bson:"email" json:"email"` // always lowercase
	AccountID string    `bson:"account_id,omitempty" json:"account_id,omitempty"`
	Status    string    `bson:"status" json:"status"` // pending | accepted
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// Student is one child's enrollment record scoped to a single class. The same
// real-world child enrolled in several classes is several Student documents;
// the dedup view groups them for display, storage never merges them.
type Student struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClassID     primitive.ObjectID `bson:"class_id" json:"class_id"`
	OwnerID     string             `bson:"owner_id" json:"owner_id"` // creating teacher's account id
	FirstName   string             `bson:"first_name" json:"first_name"`
	LastName    string             `bson:"last_name" json:"last_name"`
	FirstNameCI string             `bson:"first_name_ci" json:"-"` // folded, for dedup grouping
	LastNameCI  string             `bson:"last_name_ci" json:"-"`
	Guardians   []GuardianRef      `bson:"guardians,omitempty" json:"guardians,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
