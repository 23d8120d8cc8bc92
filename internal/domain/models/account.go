// internal/domain/models/account.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account roles.
const (
	RoleTeacher  = "teacher"
	RoleGuardian = "guardian"
)

// Account represents a signed-up teacher or guardian.
//
// The _id is the opaque subject issued by the external identity provider,
// not an ObjectID; this engine never creates identities, it only consumes
// them.
//
// NOTE:
//   - ClassIDs / StudentIDs / AdminClassIDs are maintained exclusively with
//     $addToSet / $pull so that concurrent sessions for the same account
//     converge to the same set regardless of interleaving. Never rewrite
//     these arrays wholesale.
type Account struct {
	ID             string               `bson:"_id" json:"id"`
	Email          string               `bson:"email" json:"email"` // always lowercase
	Role           string               `bson:"role" json:"role"`   // teacher | guardian
	ClassIDs       []primitive.ObjectID `bson:"class_ids,omitempty" json:"class_ids,omitempty"`             // classes owned (teachers)
	StudentIDs     []primitive.ObjectID `bson:"student_ids,omitempty" json:"student_ids,omitempty"`         // linked children (guardians)
	AdminClassIDs  []primitive.ObjectID `bson:"admin_class_ids,omitempty" json:"admin_class_ids,omitempty"` // co-administered classes (teachers)
	NotifyHomework bool                 `bson:"notify_homework" json:"notify_homework"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}
