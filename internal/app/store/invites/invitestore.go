// internal/app/store/invites/invitestore.go
package invitestore

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dalemusser/rosterhub/internal/app/system/normalize"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

// Store is the append-only invite ledger. Invites mediate the lag between
// "a guardian is referenced by email" and "that email has an account":
// documents are created by the add paths, flipped to accepted at most once
// by reconciliation, and never deleted — so no linking work is ever
// unrecoverable.
type Store struct {
	invites      *mongo.Collection
	adminInvites *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		invites:      db.Collection("invites"),
		adminInvites: db.Collection("admin_invites"),
	}
}

// Create appends an invite joining an email to a student. A concurrent
// duplicate (unique on email+student) is treated as success: the ledger
// entry exists either way.
func (s *Store) Create(ctx context.Context, email string, studentID primitive.ObjectID, ownerID string) (models.Invite, error) {
	inv := models.Invite{
		ID:        primitive.NewObjectID(),
		Email:     normalize.Email(email),
		StudentID: studentID,
		OwnerID:   ownerID,
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.invites.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			var existing models.Invite
			if ferr := s.invites.FindOne(ctx, bson.M{"email": inv.Email, "student_id": studentID}).Decode(&existing); ferr == nil {
				return existing, nil
			}
		}
		return models.Invite{}, err
	}
	return inv, nil
}

// ListByEmail returns every invite for an email regardless of status.
// Reconciliation re-examines previously accepted invites on purpose: an
// earlier run may have flipped the invite but failed the mirrored ref write.
func (s *Store) ListByEmail(ctx context.Context, email string) ([]models.Invite, error) {
	cur, err := s.invites.Find(ctx, bson.M{"email": normalize.Email(email)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Invite
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Accept conditionally flips a pending invite to accepted, stamping time and
// account. Already-accepted invites match nothing and the call is a no-op,
// never an error.
func (s *Store) Accept(ctx context.Context, id primitive.ObjectID, accountID string) error {
	now := time.Now().UTC()
	_, err := s.invites.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{
			"status":      models.StatusAccepted,
			"accepted_at": now,
			"accepted_by": accountID,
		}},
	)
	return err
}

// CreateAdmin appends an admin invite joining an email to a class.
func (s *Store) CreateAdmin(ctx context.Context, email string, classID primitive.ObjectID, ownerID string) (models.AdminInvite, error) {
	inv := models.AdminInvite{
		ID:        primitive.NewObjectID(),
		Email:     normalize.Email(email),
		ClassID:   classID,
		OwnerID:   ownerID,
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.adminInvites.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			var existing models.AdminInvite
			if ferr := s.adminInvites.FindOne(ctx, bson.M{"email": inv.Email, "class_id": classID}).Decode(&existing); ferr == nil {
				return existing, nil
			}
		}
		return models.AdminInvite{}, err
	}
	return inv, nil
}

// ListAdminByEmail returns every admin invite for an email regardless of status.
func (s *Store) ListAdminByEmail(ctx context.Context, email string) ([]models.AdminInvite, error) {
	cur, err := s.adminInvites.Find(ctx, bson.M{"email": normalize.Email(email)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AdminInvite
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AcceptAdmin conditionally flips a pending admin invite to accepted.
// A no-op on already-accepted invites, same as Accept.
func (s *Store) AcceptAdmin(ctx context.Context, id primitive.ObjectID, accountID string) error {
	now := time.Now().UTC()
	_, err := s.adminInvites.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{
			"status":      models.StatusAccepted,
			"accepted_at": now,
			"accepted_by": accountID,
		}},
	)
	return err
}
