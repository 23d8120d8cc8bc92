// internal/app/store/attendance/attendancestore.go
package attendancestore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dalemusser/rosterhub/internal/domain/models"
)

// Store holds attendance leaf records, deleted en masse by the student
// cascade.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("attendance")}
}

// Create inserts an attendance record.
func (s *Store) Create(ctx context.Context, rec models.AttendanceRecord) (models.AttendanceRecord, error) {
	rec.ID = primitive.NewObjectID()
	rec.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return models.AttendanceRecord{}, err
	}
	return rec, nil
}

// ListByStudent returns a student's attendance, newest date first.
func (s *Store) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.AttendanceRecord, error) {
	return s.list(ctx, bson.M{"student_id": studentID})
}

// ListByStudents returns attendance across a set of students, sharded into
// $in batches of at most 10 ids.
func (s *Store) ListByStudents(ctx context.Context, studentIDs []primitive.ObjectID) ([]models.AttendanceRecord, error) {
	const maxInBatch = 10
	var out []models.AttendanceRecord
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

// DeleteByStudent removes all attendance for a student in one batched write.
func (s *Store) DeleteByStudent(ctx context.Context, studentID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"student_id": studentID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByClass removes all attendance for a class's students.
func (s *Store) DeleteByClass(ctx context.Context, classID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"class_id": classID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.AttendanceRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AttendanceRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
