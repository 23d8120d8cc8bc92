// Package authz holds the pure ownership checks the feature handlers share.
// All decisions are made over already-loaded documents; nothing here touches
// the database.
package authz

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dalemusser/rosterhub/internal/domain/models"
)

// CanManageClass reports whether the account may mutate a class and its
// students: the owner always can, an admin only once their ref is accepted.
func CanManageClass(class *models.Class, accountID string) bool {
	if class.OwnerID == accountID {
		return true
	}
	for _, a := range class.Admins {
		if a.AccountID == accountID && a.Status == models.StatusAccepted {
			return true
		}
	}
	return false
}

// IsOwner reports whether the account owns the class. Admin management and
// class deletion are owner-only.
func IsOwner(class *models.Class, accountID string) bool {
	return class.OwnerID == accountID
}

// GuardianSees reports whether a student id is in the guardian account's
// linked set. Guardians only ever read through this gate.
func GuardianSees(acct *models.Account, studentID primitive.ObjectID) bool {
	for _, id := range acct.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}
