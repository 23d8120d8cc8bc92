// internal/app/store/students/studentstore.go
package studentstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dalemusser/rosterhub/internal/app/system/normalize"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

// maxInBatch caps the size of one $in disjunction. Larger id sets are
// sharded into sequential batches.
const maxInBatch = 10

var (
	// ErrDuplicateGuardian is returned when the email already appears among
	// the student's guardian refs.
	ErrDuplicateGuardian = errors.New("a guardian with this email is already on this student")
	// ErrGuardianLimit is returned when the student already carries the
	// maximum number of guardian refs.
	ErrGuardianLimit = errors.New("student already has the maximum number of guardians")
	// ErrGuardianNotFound is returned when no guardian ref matches the email.
	ErrGuardianNotFound = errors.New("no guardian with this email on this student")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("students")}
}

// GetByID loads a student by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Student, error) {
	var st models.Student
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Insert writes a new student document after normalizing names and guardian
// emails. Counter maintenance belongs to the caller (roster.Maintainer).
func (s *Store) Insert(ctx context.Context, st models.Student) (models.Student, error) {
	now := time.Now().UTC()
	st.ID = primitive.NewObjectID()
	st.FirstName = normalize.Name(st.FirstName)
	st.LastName = normalize.Name(st.LastName)
	st.FirstNameCI = text.Fold(st.FirstName)
	st.LastNameCI = text.Fold(st.LastName)
	for i := range st.Guardians {
		st.Guardians[i].Email = normalize.Email(st.Guardians[i].Email)
		if st.Guardians[i].Status == "" {
			st.Guardians[i].Status = models.StatusPending
		}
		if st.Guardians[i].AddedAt.IsZero() {
			st.Guardians[i].AddedAt = now
		}
	}
	st.CreatedAt = now
	st.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, st); err != nil {
		return models.Student{}, err
	}
	return st, nil
}

// ListByClass returns all students enrolled in a class.
func (s *Store) ListByClass(ctx context.Context, classID primitive.ObjectID) ([]models.Student, error) {
	cur, err := s.c.Find(ctx, bson.M{"class_id": classID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Student
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByIDs loads students for an id set, sharding the $in disjunction into
// batches of at most maxInBatch ids. Missing ids are silently absent from
// the result.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Student, error) {
	var out []models.Student
	for start := 0; start < len(ids); start += maxInBatch {
		end := start + maxInBatch
		if end > len(ids) {
			end = len(ids)
		}
		cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids[start:end]}})
		if err != nil {
			return nil, err
		}
		var batch []models.Student
		if err := cur.All(ctx, &batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// FindByGuardianEmail returns all students carrying a guardian ref with this
// email, across all classes. Feeds the "add this same child" lookup flow.
func (s *Store) FindByGuardianEmail(ctx context.Context, email string) ([]models.Student, error) {
	cur, err := s.c.Find(ctx, bson.M{"guardians.email": normalize.Email(email)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Student
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendGuardian adds a pending guardian ref, enforcing the cap and the
// unique-email rule in the update filter itself so two concurrent adds
// cannot both slip in. On a miss the student is re-read to report which
// rule failed.
func (s *Store) AppendGuardian(ctx context.Context, studentID primitive.ObjectID, ref models.GuardianRef) error {
	ref.Email = normalize.Email(ref.Email)
	ref.Status = models.StatusPending
	ref.AccountID = ""
	if ref.AddedAt.IsZero() {
		ref.AddedAt = time.Now().UTC()
	}

	filter := bson.M{
		"_id":             studentID,
		"guardians.email": bson.M{"$ne": ref.Email},
		// cap check: slot index MaxGuardians-1 must be empty
		"guardians." + strconv.Itoa(models.MaxGuardians-1): bson.M{"$exists": false},
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"guardians": ref},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	st, err := s.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	for _, g := range st.Guardians {
		if g.Email == ref.Email {
			return ErrDuplicateGuardian
		}
	}
	return ErrGuardianLimit
}

// RemoveGuardian pulls the guardian ref with the given email and returns the
// removed ref so the caller can issue the compensating account unlink.
func (s *Store) RemoveGuardian(ctx context.Context, studentID primitive.ObjectID, email string) (models.GuardianRef, error) {
	email = normalize.Email(email)

	st, err := s.GetByID(ctx, studentID)
	if err != nil {
		return models.GuardianRef{}, err
	}
	var removed *models.GuardianRef
	for i := range st.Guardians {
		if st.Guardians[i].Email == email {
			removed = &st.Guardians[i]
			break
		}
	}
	if removed == nil {
		return models.GuardianRef{}, ErrGuardianNotFound
	}

	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": studentID}, bson.M{
		"$pull": bson.M{"guardians": bson.M{"email": email}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}); err != nil {
		return models.GuardianRef{}, err
	}
	return *removed, nil
}

// AcceptGuardian flips the matching guardian ref to accepted and attaches
// the account id. Returns whether a ref was actually modified; a ref that is
// already accepted with this account matches nothing, which keeps repeated
// reconciliation runs cheap.
func (s *Store) AcceptGuardian(ctx context.Context, studentID primitive.ObjectID, email, accountID string) (bool, error) {
	email = normalize.Email(email)
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id": studentID,
			"guardians": bson.M{"$elemMatch": bson.M{
				"email": email,
				"$or": []bson.M{
					{"status": bson.M{"$ne": models.StatusAccepted}},
					{"account_id": bson.M{"$ne": accountID}},
				},
			}},
		},
		bson.M{"$set": bson.M{
			"guardians.$.status":     models.StatusAccepted,
			"guardians.$.account_id": accountID,
			"updated_at":             time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// DeleteOne removes a single student document. Cascades and counters belong
// to roster.Maintainer.
func (s *Store) DeleteOne(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByClass removes all students of a class in one batched write.
// Returns the number of documents deleted.
func (s *Store) DeleteByClass(ctx context.Context, classID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"class_id": classID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ExistsInClass reports whether a student with the given folded name is
// already enrolled in the class. Used to reject enrolling the same child
// into a class twice via the clone flow.
func (s *Store) ExistsInClass(ctx context.Context, classID primitive.ObjectID, firstName, lastName string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"class_id":      classID,
		"first_name_ci": text.Fold(firstName),
		"last_name_ci":  text.Fold(lastName),
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
