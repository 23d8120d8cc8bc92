// internal/app/store/homework/homeworkstore.go
package homeworkstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dalemusser/rosterhub/internal/domain/models"
)

// Store holds homework leaf records. No reconciliation logic lives here;
// records are deleted en masse by the student cascade.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("homework")}
}

// Create inserts a homework record. Instructions are expected to be
// sanitized by the caller before they reach the store.
func (s *Store) Create(ctx context.Context, hw models.HomeworkRecord) (models.HomeworkRecord, error) {
	now := time.Now().UTC()
	hw.ID = primitive.NewObjectID()
	hw.CreatedAt = now
	hw.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, hw); err != nil {
		return models.HomeworkRecord{}, err
	}
	return hw, nil
}

// GetByID fetches one homework record. Returns mongo.ErrNoDocuments when
// absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.HomeworkRecord, error) {
	var hw models.HomeworkRecord
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&hw); err != nil {
		return nil, err
	}
	return &hw, nil
}

// ListByStudent returns a student's homework, newest first.
func (s *Store) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.HomeworkRecord, error) {
	return s.list(ctx, bson.M{"student_id": studentID})
}

// ListByStudents returns homework across a set of students, newest first.
// Used by the dedup view to show one child's homework across classes; the
// id set is small (one entry per enrollment) so a single query batch per
// maxInBatch ids suffices.
func (s *Store) ListByStudents(ctx context.Context, studentIDs []primitive.ObjectID) ([]models.HomeworkRecord, error) {
	const maxInBatch = 10
	var out []models.HomeworkRecord
	for start := 0; start < len(studentIDs); start += maxInBatch {
		end := start + maxInBatch
		if end > len(studentIDs) {
			end = len(studentIDs)
		}
		batch, err := s.list(ctx, bson.M{"student_id": bson.M{"$in": studentIDs[start:end]}})
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// SetDone flips a homework record's done flag.
func (s *Store) SetDone(ctx context.Context, id primitive.ObjectID, done bool) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"done": done, "updated_at": time.Now().UTC()},
	})
	return err
}

// DeleteByStudent removes all homework for a student in one batched write.
func (s *Store) DeleteByStudent(ctx context.Context, studentID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"student_id": studentID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByClass removes all homework for a class's students.
func (s *Store) DeleteByClass(ctx context.Context, classID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"class_id": classID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.HomeworkRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.HomeworkRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
