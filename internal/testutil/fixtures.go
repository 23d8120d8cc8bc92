package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dalemusser/rosterhub/internal/app/system/normalize"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateAccount creates an account document with the given identity subject,
// email, and role.
func (f *Fixtures) CreateAccount(ctx context.Context, id, email, role string) models.Account {
	f.t.Helper()

	now := time.Now().UTC()
	acct := models.Account{
		ID:             id,
		Email:          normalize.Email(email),
		Role:           role,
		NotifyHomework: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("accounts").InsertOne(ctx, acct); err != nil {
		f.t.Fatalf("failed to create test account: %v", err)
	}
	return acct
}

// CreateTeacher creates a teacher account.
func (f *Fixtures) CreateTeacher(ctx context.Context, id, email string) models.Account {
	f.t.Helper()
	return f.CreateAccount(ctx, id, email, models.RoleTeacher)
}

// CreateGuardian creates a guardian account.
func (f *Fixtures) CreateGuardian(ctx context.Context, id, email string) models.Account {
	f.t.Helper()
	return f.CreateAccount(ctx, id, email, models.RoleGuardian)
}

// CreateClass creates a class owned by the given teacher account id.
func (f *Fixtures) CreateClass(ctx context.Context, name, ownerID string) models.Class {
	f.t.Helper()

	now := time.Now().UTC()
	class := models.Class{
		ID:        primitive.NewObjectID(),
		OwnerID:   ownerID,
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("classes").InsertOne(ctx, class); err != nil {
		f.t.Fatalf("failed to create test class: %v", err)
	}
	return class
}

// CreateStudent creates a student in the given class with the given guardian
// refs. The class counter is incremented to keep the aggregate invariant
// true for tests that assert on it.
func (f *Fixtures) CreateStudent(ctx context.Context, firstName, lastName string, classID primitive.ObjectID, ownerID string, guardians ...models.GuardianRef) models.Student {
	f.t.Helper()

	now := time.Now().UTC()
	for i := range guardians {
		guardians[i].Email = normalize.Email(guardians[i].Email)
		if guardians[i].Status == "" {
			guardians[i].Status = models.StatusPending
		}
		if guardians[i].AddedAt.IsZero() {
			guardians[i].AddedAt = now
		}
	}
	s := models.Student{
		ID:          primitive.NewObjectID(),
		ClassID:     classID,
		OwnerID:     ownerID,
		FirstName:   firstName,
		LastName:    lastName,
		FirstNameCI: text.Fold(firstName),
		LastNameCI:  text.Fold(lastName),
		Guardians:   guardians,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("students").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to create test student: %v", err)
	}
	if _, err := f.db.Collection("classes").UpdateByID(ctx, classID,
		map[string]any{"$inc": map[string]any{"student_count": 1}}); err != nil {
		f.t.Fatalf("failed to bump class counter: %v", err)
	}
	return s
}

// GuardianRef builds an embedded guardian ref (pending, unlinked).
func (f *Fixtures) GuardianRef(firstName, lastName, email string) models.GuardianRef {
	return models.GuardianRef{
		FirstName: firstName,
		LastName:  lastName,
		Email:     normalize.Email(email),
		Status:    models.StatusPending,
		AddedAt:   time.Now().UTC(),
	}
}

// CreateInvite creates an invite ledger entry with the given status.
func (f *Fixtures) CreateInvite(ctx context.Context, email string, studentID primitive.ObjectID, ownerID, status string) models.Invite {
	f.t.Helper()

	inv := models.Invite{
		ID:        primitive.NewObjectID(),
		Email:     normalize.Email(email),
		StudentID: studentID,
		OwnerID:   ownerID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("invites").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("failed to create test invite: %v", err)
	}
	return inv
}

// CreateAdminInvite creates an admin-invite ledger entry with the given status.
func (f *Fixtures) CreateAdminInvite(ctx context.Context, email string, classID primitive.ObjectID, ownerID, status string) models.AdminInvite {
	f.t.Helper()

	inv := models.AdminInvite{
		ID:        primitive.NewObjectID(),
		Email:     normalize.Email(email),
		ClassID:   classID,
		OwnerID:   ownerID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("admin_invites").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("failed to create test admin invite: %v", err)
	}
	return inv
}

// CreateHomework creates a homework record for the given student.
func (f *Fixtures) CreateHomework(ctx context.Context, studentID, classID primitive.ObjectID, title, createdBy string) models.HomeworkRecord {
	f.t.Helper()

	now := time.Now().UTC()
	hw := models.HomeworkRecord{
		ID:        primitive.NewObjectID(),
		StudentID: studentID,
		ClassID:   classID,
		Title:     title,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("homework").InsertOne(ctx, hw); err != nil {
		f.t.Fatalf("failed to create test homework: %v", err)
	}
	return hw
}

// CreateAttendance creates an attendance record for the given student.
func (f *Fixtures) CreateAttendance(ctx context.Context, studentID, classID primitive.ObjectID, day time.Time, status, createdBy string) models.AttendanceRecord {
	f.t.Helper()

	rec := models.AttendanceRecord{
		ID:        primitive.NewObjectID(),
		StudentID: studentID,
		ClassID:   classID,
		Date:      day,
		Status:    status,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("attendance").InsertOne(ctx, rec); err != nil {
		f.t.Fatalf("failed to create test attendance: %v", err)
	}
	return rec
}
