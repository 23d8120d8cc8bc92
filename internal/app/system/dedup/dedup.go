// Package dedup is the read-side identity view over roster entries.
//
// Storage keeps one Student document per class enrollment, so the same child
// enrolled in three classes is three documents. This package groups a
// guardian's students by folded (first, last) name into display identities
// and expands an identity back to the underlying storage ids. It is a pure
// transform over a snapshot: nothing here is persisted and nothing here may
// influence a write path — merging storage records would break the
// per-enrollment cascade and counter invariants.
package dedup

import (
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dalemusser/rosterhub/internal/domain/models"
)

// DisplayChild is one display identity: a distinct child name and every
// roster entry that carries it.
type DisplayChild struct {
	Key        string               `json:"key"` // folded "first|last", stable lookup key
	FirstName  string               `json:"first_name"`
	LastName   string               `json:"last_name"`
	StudentIDs []primitive.ObjectID `json:"student_ids"`
	ClassIDs   []primitive.ObjectID `json:"class_ids"`
}

// Key returns the grouping key for a first/last name pair.
func Key(firstName, lastName string) string {
	return text.Fold(firstName) + "|" + text.Fold(lastName)
}

// Group collapses students into display identities, one per distinct folded
// name. Display casing comes from the first entry seen; output order is the
// order of first appearance, so the result is deterministic over its input.
func Group(students []models.Student) []DisplayChild {
	var out []DisplayChild
	index := make(map[string]int)

	for _, s := range students {
		k := Key(s.FirstName, s.LastName)
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, DisplayChild{
				Key:       k,
				FirstName: s.FirstName,
				LastName:  s.LastName,
			})
			i = len(out) - 1
		}
		out[i].StudentIDs = append(out[i].StudentIDs, s.ID)
		out[i].ClassIDs = append(out[i].ClassIDs, s.ClassID)
	}
	return out
}

// ResolveStudentIDs expands a display-identity key back to all underlying
// student ids sharing that name. Used to scope homework/attendance filters.
func ResolveStudentIDs(students []models.Student, key string) []primitive.ObjectID {
	var ids []primitive.ObjectID
	for _, s := range students {
		if Key(s.FirstName, s.LastName) == key {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
