// internal/app/store/accounts/accountstore.go
package accountstore

// Terminology: Account Identifiers
//   - AccountID / accountID / _id: the opaque subject issued by the external
//     identity provider. This engine never mints account ids.
//   - Email: the lowercase join key between invites, embedded refs, and accounts.

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dalemusser/rosterhub/internal/app/system/normalize"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("accounts")}
}

// GetByID loads an account by identity subject.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var a models.Account
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByEmail looks up an account by case-insensitive email.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Ensure upserts the account document for an identity on session start. The
// first session creates it; later sessions only touch updated_at. Safe under
// concurrent sessions for the same account: the upsert is keyed on _id and
// the insert-only fields use $setOnInsert.
func (s *Store) Ensure(ctx context.Context, id, email, role string) (*models.Account, error) {
	now := time.Now().UTC()
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"email":      normalize.Email(email),
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"role":            role,
			"notify_homework": true,
			"created_at":      now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var a models.Account
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&a); err != nil {
		// Two first-sessions racing can both try the insert; one loses on
		// the unique email index and retries as a plain update.
		if wafflemongo.IsDup(err) {
			return s.GetByID(ctx, id)
		}
		return nil, err
	}
	return &a, nil
}

// LinkStudents unions student ids into the account's linked-child set.
// One $addToSet/$each write; concurrent sessions cannot clobber each other.
func (s *Store) LinkStudents(ctx context.Context, accountID string, studentIDs []primitive.ObjectID) error {
	if len(studentIDs) == 0 {
		return nil
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": accountID}, bson.M{
		"$addToSet": bson.M{"student_ids": bson.M{"$each": studentIDs}},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// UnlinkStudent removes one student id from the account's linked-child set.
// The compensating inverse of LinkStudents.
func (s *Store) UnlinkStudent(ctx context.Context, accountID string, studentID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": accountID}, bson.M{
		"$pull": bson.M{"student_ids": studentID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// LinkAdminClasses unions class ids into the account's administered set.
func (s *Store) LinkAdminClasses(ctx context.Context, accountID string, classIDs []primitive.ObjectID) error {
	if len(classIDs) == 0 {
		return nil
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": accountID}, bson.M{
		"$addToSet": bson.M{"admin_class_ids": bson.M{"$each": classIDs}},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// UnlinkAdminClass removes one class id from the account's administered set.
func (s *Store) UnlinkAdminClass(ctx context.Context, accountID string, classID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": accountID}, bson.M{
		"$pull": bson.M{"admin_class_ids": classID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// AddOwnedClass unions a class id into a teacher's owned set.
func (s *Store) AddOwnedClass(ctx context.Context, accountID string, classID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": accountID}, bson.M{
		"$addToSet": bson.M{"class_ids": classID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// RemoveOwnedClass removes a class id from a teacher's owned set.
func (s *Store) RemoveOwnedClass(ctx context.Context, accountID string, classID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": accountID}, bson.M{
		"$pull": bson.M{"class_ids": classID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// SetNotifyHomework flips the account's homework notification preference.
func (s *Store) SetNotifyHomework(ctx context.Context, accountID string, enabled bool) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": accountID}, bson.M{
		"$set": bson.M{"notify_homework": enabled, "updated_at": time.Now().UTC()},
	})
	return err
}

// maxInBatch caps the size of one $in disjunction; larger id sets are
// queried in batches.
const maxInBatch = 10

// FilterNotifiable returns the subset of account ids that have homework
// notifications enabled. Used to build the target list for the notification
// collaborator.
func (s *Store) FilterNotifiable(ctx context.Context, accountIDs []string) ([]string, error) {
	var out []string
	for start := 0; start < len(accountIDs); start += maxInBatch {
		end := start + maxInBatch
		if end > len(accountIDs) {
			end = len(accountIDs)
		}
		batch, err := s.filterNotifiable(ctx, accountIDs[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (s *Store) filterNotifiable(ctx context.Context, accountIDs []string) ([]string, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"_id":             bson.M{"$in": accountIDs},
		"notify_homework": true,
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []string
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.ID)
	}
	return out, cur.Err()
}
