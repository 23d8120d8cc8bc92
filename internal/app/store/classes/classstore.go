// internal/app/store/classes/classstore.go
package classstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dalemusser/rosterhub/internal/app/system/normalize"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

// maxInBatch caps the size of one $in disjunction; larger id sets are
// sharded into sequential batches.
const maxInBatch = 10

var (
	// ErrSelfAdmin is returned when a class owner tries to add themselves as
	// a co-administrator.
	ErrSelfAdmin = errors.New("class owner cannot be added as a co-administrator")
	// ErrDuplicateAdmin is returned when the email is already among the
	// class's admin refs.
	ErrDuplicateAdmin = errors.New("an administrator with this email is already on this class")
	// ErrAdminNotFound is returned when no admin ref matches the email.
	ErrAdminNotFound = errors.New("no administrator with this email on this class")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("classes")}
}

// GetByID loads a class by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Class, error) {
	var c models.Class
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new class with a zero student counter.
func (s *Store) Create(ctx context.Context, c models.Class) (models.Class, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.Name = normalize.Name(c.Name)
	c.NameCI = text.Fold(c.Name)
	c.StudentCount = 0
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Class{}, err
	}
	return c, nil
}

// ListByOwner returns the classes owned by an account.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]models.Class, error) {
	cur, err := s.c.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Class
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByIDs loads classes for an id set, sharding the $in disjunction into
// batches of at most maxInBatch ids.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Class, error) {
	var out []models.Class
	for start := 0; start < len(ids); start += maxInBatch {
		end := start + maxInBatch
		if end > len(ids) {
			end = len(ids)
		}
		cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids[start:end]}})
		if err != nil {
			return nil, err
		}
		var batch []models.Class
		if err := cur.All(ctx, &batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// AppendAdmin adds an admin ref, enforcing the unique-email rule in the
// update filter. The caller decides the ref's status (dual add path:
// accepted immediately when the account already exists, pending otherwise).
func (s *Store) AppendAdmin(ctx context.Context, classID primitive.ObjectID, ref models.AdminRef) error {
	ref.Email = normalize.Email(ref.Email)
	if ref.Status == "" {
		ref.Status = models.StatusPending
	}
	if ref.AddedAt.IsZero() {
		ref.AddedAt = time.Now().UTC()
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": classID, "admins.email": bson.M{"$ne": ref.Email}},
		bson.M{
			"$push": bson.M{"admins": ref},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	// Filter missed: either the class is gone or the email is taken.
	if err := s.c.FindOne(ctx, bson.M{"_id": classID}).Err(); err != nil {
		return err
	}
	return ErrDuplicateAdmin
}

// RemoveAdmin pulls the admin ref with the given email and returns the
// removed ref so the caller can issue the compensating account unlink.
func (s *Store) RemoveAdmin(ctx context.Context, classID primitive.ObjectID, email string) (models.AdminRef, error) {
	email = normalize.Email(email)

	c, err := s.GetByID(ctx, classID)
	if err != nil {
		return models.AdminRef{}, err
	}
	var removed *models.AdminRef
	for i := range c.Admins {
		if c.Admins[i].Email == email {
			removed = &c.Admins[i]
			break
		}
	}
	if removed == nil {
		return models.AdminRef{}, ErrAdminNotFound
	}

	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": classID}, bson.M{
		"$pull": bson.M{"admins": bson.M{"email": email}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}); err != nil {
		return models.AdminRef{}, err
	}
	return *removed, nil
}

// AcceptAdmin flips the matching admin ref to accepted and attaches the
// account id. Returns whether a ref was actually modified.
func (s *Store) AcceptAdmin(ctx context.Context, classID primitive.ObjectID, email, accountID string) (bool, error) {
	email = normalize.Email(email)
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id": classID,
			"admins": bson.M{"$elemMatch": bson.M{
				"email": email,
				"$or": []bson.M{
					{"status": bson.M{"$ne": models.StatusAccepted}},
					{"account_id": bson.M{"$ne": accountID}},
				},
			}},
		},
		bson.M{"$set": bson.M{
			"admins.$.status":     models.StatusAccepted,
			"admins.$.account_id": accountID,
			"updated_at":          time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// IncStudentCount moves the denormalized counter by delta. The counter is
// never recomputed by scanning; create/delete paths are its only writers.
func (s *Store) IncStudentCount(ctx context.Context, classID primitive.ObjectID, delta int64) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": classID}, bson.M{
		"$inc": bson.M{"student_count": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// DeleteOne removes a single class document. The student cascade belongs to
// roster.Maintainer.
func (s *Store) DeleteOne(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
