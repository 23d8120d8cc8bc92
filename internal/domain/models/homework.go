// internal/domain/models/homework.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HomeworkRecord is a leaf record owned by exactly one student. It carries no
// reconciliation logic and is deleted en masse when its student is deleted.
type HomeworkRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID    primitive.ObjectID `bson:"student_id" json:"student_id"`
	ClassID      primitive.ObjectID `bson:"class_id" json:"class_id"`
	Title        string             `bson:"title" json:"title"`
	Instructions string             `bson:"instructions,omitempty" json:"instructions,omitempty"` // sanitized HTML
	DueDate      *time.Time         `bson:"due_date,omitempty" json:"due_date,omitempty"`
	Done         bool               `bson:"done" json:"done"`
	CreatedBy    string             `bson:"created_by" json:"created_by"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}
