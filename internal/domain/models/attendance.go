// internal/domain/models/attendance.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attendance statuses.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
)

// AttendanceRecord is a leaf record owned by exactly one student, deleted en
// masse when its student is deleted.
type AttendanceRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID primitive.ObjectID `bson:"student_id" json:"student_id"`
	ClassID   primitive.ObjectID `bson:"class_id" json:"class_id"`
	Date      time.Time          `bson:"date" json:"date"`
	Status    string             `bson:"status" json:"status"` // present | absent | late
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedBy string             `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
