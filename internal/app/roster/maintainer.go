// Package roster owns the multi-collection write paths around classes and
// students: create/delete cascades, the denormalized per-class counter, the
// guardian/admin add and remove paths, and cloning a child into another
// class.
//
// The store offers no cross-collection transactions, so each operation here
// is an ordered sequence of single-document writes. The ordering is chosen
// for user-visible consistency, not atomicity: guardian/admin link state is
// always repairable by the next reconciliation pass, while counter drift
// from a crash mid-sequence is accepted and never self-healed.
package roster

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	accountstore "github.com/dalemusser/rosterhub/internal/app/store/accounts"
	attendancestore "github.com/dalemusser/rosterhub/internal/app/store/attendance"
	classstore "github.com/dalemusser/rosterhub/internal/app/store/classes"
	homeworkstore "github.com/dalemusser/rosterhub/internal/app/store/homework"
	invitestore "github.com/dalemusser/rosterhub/internal/app/store/invites"
	studentstore "github.com/dalemusser/rosterhub/internal/app/store/students"
	"github.com/dalemusser/rosterhub/internal/app/system/normalize"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

var (
	// ErrTooManyGuardians is returned when a create carries more guardian
	// refs than the cap allows.
	ErrTooManyGuardians = errors.New("a student can have at most two guardians")
	// ErrAlreadyEnrolled is returned when the clone flow targets a class
	// that already holds this child.
	ErrAlreadyEnrolled = errors.New("this child is already enrolled in the target class")
)

type Maintainer struct {
	students   *studentstore.Store
	classes    *classstore.Store
	invites    *invitestore.Store
	accounts   *accountstore.Store
	homework   *homeworkstore.Store
	attendance *attendancestore.Store
	log        *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Maintainer {
	return &Maintainer{
		students:   studentstore.New(db),
		classes:    classstore.New(db),
		invites:    invitestore.New(db),
		accounts:   accountstore.New(db),
		homework:   homeworkstore.New(db),
		attendance: attendancestore.New(db),
		log:        logger,
	}
}

// CreateClass inserts a class and unions its id into the owner's owned set.
func (m *Maintainer) CreateClass(ctx context.Context, ownerID, name string) (models.Class, error) {
	class, err := m.classes.Create(ctx, models.Class{OwnerID: ownerID, Name: name})
	if err != nil {
		return models.Class{}, err
	}
	if err := m.accounts.AddOwnedClass(ctx, ownerID, class.ID); err != nil {
		return models.Class{}, err
	}
	return class, nil
}

// CreateStudent writes the student, bumps the owning class's counter, and
// appends one invite per guardian. A crash between the steps can leave the
// counter transiently low; that drift is accepted (no automated repair).
func (m *Maintainer) CreateStudent(ctx context.Context, classID primitive.ObjectID, ownerID, firstName, lastName string, guardians []models.GuardianRef) (models.Student, error) {
	if len(guardians) > models.MaxGuardians {
		return models.Student{}, ErrTooManyGuardians
	}
	seen := make(map[string]struct{}, len(guardians))
	for _, g := range guardians {
		email := normalize.Email(g.Email)
		if _, dup := seen[email]; dup {
			return models.Student{}, studentstore.ErrDuplicateGuardian
		}
		seen[email] = struct{}{}
	}

	// The class lookup is a user-driven mutation: a missing class is a hard
	// failure, not a benign skip.
	if _, err := m.classes.GetByID(ctx, classID); err != nil {
		return models.Student{}, err
	}

	st, err := m.students.Insert(ctx, models.Student{
		ClassID:   classID,
		OwnerID:   ownerID,
		FirstName: firstName,
		LastName:  lastName,
		Guardians: guardians,
	})
	if err != nil {
		return models.Student{}, err
	}

	if err := m.classes.IncStudentCount(ctx, classID, 1); err != nil {
		return models.Student{}, err
	}

	for _, g := range st.Guardians {
		if _, err := m.invites.Create(ctx, g.Email, st.ID, ownerID); err != nil {
			return models.Student{}, err
		}
	}
	return st, nil
}

// AddGuardian appends a pending guardian ref and its ledger invite.
// Ref append and invite create are one conceptual step; a crash between
// them leaves a ref no reconciliation can ever link, which this design
// flags but does not repair.
func (m *Maintainer) AddGuardian(ctx context.Context, studentID primitive.ObjectID, ref models.GuardianRef) (models.GuardianRef, error) {
	st, err := m.students.GetByID(ctx, studentID)
	if err != nil {
		return models.GuardianRef{}, err
	}

	ref.Email = normalize.Email(ref.Email)
	if err := m.students.AppendGuardian(ctx, studentID, ref); err != nil {
		return models.GuardianRef{}, err
	}
	if _, err := m.invites.Create(ctx, ref.Email, studentID, st.OwnerID); err != nil {
		return models.GuardianRef{}, err
	}
	ref.Status = models.StatusPending
	ref.AccountID = ""
	return ref, nil
}

// RemoveGuardian pulls the ref and, when it was linked, issues the
// compensating set-remove against the guardian's account. The two writes
// are not transactional; the account write is best-effort (logged, never
// surfaced) exactly like reconciliation's set-union is.
func (m *Maintainer) RemoveGuardian(ctx context.Context, studentID primitive.ObjectID, email string) error {
	removed, err := m.students.RemoveGuardian(ctx, studentID, email)
	if err != nil {
		return err
	}
	if removed.AccountID != "" {
		if err := m.accounts.UnlinkStudent(ctx, removed.AccountID, studentID); err != nil {
			m.log.Warn("guardian account unlink failed",
				zap.String("account_id", removed.AccountID),
				zap.String("student_id", studentID.Hex()),
				zap.Error(err))
		}
	}
	return nil
}

// AddAdmin adds a co-administrator by email. Dual path: when an account
// with the email already exists the ref is accepted and linked immediately
// (no waiting for that account's next session); otherwise the ref stays
// pending and an admin invite is written for reconciliation to pick up.
func (m *Maintainer) AddAdmin(ctx context.Context, classID primitive.ObjectID, email string) (models.AdminRef, error) {
	email = normalize.Email(email)

	class, err := m.classes.GetByID(ctx, classID)
	if err != nil {
		return models.AdminRef{}, err
	}
	if owner, err := m.accounts.GetByID(ctx, class.OwnerID); err == nil && owner.Email == email {
		return models.AdminRef{}, classstore.ErrSelfAdmin
	}

	ref := models.AdminRef{Email: email, AddedAt: time.Now().UTC()}

	existing, err := m.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		ref.Status = models.StatusAccepted
		ref.AccountID = existing.ID
		if err := m.classes.AppendAdmin(ctx, classID, ref); err != nil {
			return models.AdminRef{}, err
		}
		if err := m.accounts.LinkAdminClasses(ctx, existing.ID, []primitive.ObjectID{classID}); err != nil {
			return models.AdminRef{}, err
		}
	case err == mongo.ErrNoDocuments:
		ref.Status = models.StatusPending
		if err := m.classes.AppendAdmin(ctx, classID, ref); err != nil {
			return models.AdminRef{}, err
		}
		if _, err := m.invites.CreateAdmin(ctx, email, classID, class.OwnerID); err != nil {
			return models.AdminRef{}, err
		}
	default:
		return models.AdminRef{}, err
	}
	return ref, nil
}

// RemoveAdmin pulls the ref and best-effort removes the class from the
// linked account's administered set.
func (m *Maintainer) RemoveAdmin(ctx context.Context, classID primitive.ObjectID, email string) error {
	removed, err := m.classes.RemoveAdmin(ctx, classID, email)
	if err != nil {
		return err
	}
	if removed.AccountID != "" {
		if err := m.accounts.UnlinkAdminClass(ctx, removed.AccountID, classID); err != nil {
			m.log.Warn("admin account unlink failed",
				zap.String("account_id", removed.AccountID),
				zap.String("class_id", classID.Hex()),
				zap.Error(err))
		}
	}
	return nil
}

// DeleteStudent unlinks guardians (fire-and-forget per guardian), deletes
// the dependent homework and attendance batches plus the student itself,
// then decrements the class counter. A batch-delete failure is surfaced:
// orphaned leaf records are worse than an unlinked guardian.
func (m *Maintainer) DeleteStudent(ctx context.Context, studentID primitive.ObjectID) error {
	st, err := m.students.GetByID(ctx, studentID)
	if err != nil {
		return err
	}

	for _, g := range st.Guardians {
		if g.AccountID == "" {
			continue
		}
		if err := m.accounts.UnlinkStudent(ctx, g.AccountID, studentID); err != nil {
			m.log.Warn("guardian unlink during student delete failed",
				zap.String("account_id", g.AccountID),
				zap.String("student_id", studentID.Hex()),
				zap.Error(err))
		}
	}

	if _, err := m.homework.DeleteByStudent(ctx, studentID); err != nil {
		return err
	}
	if _, err := m.attendance.DeleteByStudent(ctx, studentID); err != nil {
		return err
	}
	deleted, err := m.students.DeleteOne(ctx, studentID)
	if err != nil {
		return err
	}
	// Only the delete that actually removed the document moves the counter:
	// a concurrent delete that lost the race must not decrement again.
	if deleted == 0 {
		return nil
	}

	return m.classes.IncStudentCount(ctx, st.ClassID, -1)
}

// DeleteClass cascades over the whole class: every student's guardian and
// admin links are best-effort removed, then the dependent record batches,
// the students, and finally the class itself are deleted.
func (m *Maintainer) DeleteClass(ctx context.Context, classID primitive.ObjectID) error {
	class, err := m.classes.GetByID(ctx, classID)
	if err != nil {
		return err
	}

	students, err := m.students.ListByClass(ctx, classID)
	if err != nil {
		return err
	}
	for _, st := range students {
		for _, g := range st.Guardians {
			if g.AccountID == "" {
				continue
			}
			if err := m.accounts.UnlinkStudent(ctx, g.AccountID, st.ID); err != nil {
				m.log.Warn("guardian unlink during class delete failed",
					zap.String("account_id", g.AccountID),
					zap.String("student_id", st.ID.Hex()),
					zap.Error(err))
			}
		}
	}
	for _, a := range class.Admins {
		if a.AccountID == "" {
			continue
		}
		if err := m.accounts.UnlinkAdminClass(ctx, a.AccountID, classID); err != nil {
			m.log.Warn("admin unlink during class delete failed",
				zap.String("account_id", a.AccountID),
				zap.String("class_id", classID.Hex()),
				zap.Error(err))
		}
	}

	if _, err := m.homework.DeleteByClass(ctx, classID); err != nil {
		return err
	}
	if _, err := m.attendance.DeleteByClass(ctx, classID); err != nil {
		return err
	}
	if _, err := m.students.DeleteByClass(ctx, classID); err != nil {
		return err
	}
	if _, err := m.classes.DeleteOne(ctx, classID); err != nil {
		return err
	}

	if err := m.accounts.RemoveOwnedClass(ctx, class.OwnerID, classID); err != nil {
		m.log.Warn("owner class unlink during class delete failed",
			zap.String("account_id", class.OwnerID),
			zap.String("class_id", classID.Hex()),
			zap.Error(err))
	}
	return nil
}

// CloneIntoClass enrolls an existing child into another class by cloning
// the entry: students are never shared across classes, so the clone is a
// new document scoped to the target class. Per guardian, an already
// accepted+linked ref gets the new entry unioned straight into its account;
// anything else gets a fresh invite for reconciliation.
func (m *Maintainer) CloneIntoClass(ctx context.Context, studentID, targetClassID primitive.ObjectID, ownerID string) (models.Student, error) {
	src, err := m.students.GetByID(ctx, studentID)
	if err != nil {
		return models.Student{}, err
	}
	if _, err := m.classes.GetByID(ctx, targetClassID); err != nil {
		return models.Student{}, err
	}
	if src.ClassID == targetClassID {
		return models.Student{}, ErrAlreadyEnrolled
	}
	exists, err := m.students.ExistsInClass(ctx, targetClassID, src.FirstName, src.LastName)
	if err != nil {
		return models.Student{}, err
	}
	if exists {
		return models.Student{}, ErrAlreadyEnrolled
	}

	guardians := make([]models.GuardianRef, len(src.Guardians))
	copy(guardians, src.Guardians)

	clone, err := m.students.Insert(ctx, models.Student{
		ClassID:   targetClassID,
		OwnerID:   ownerID,
		FirstName: src.FirstName,
		LastName:  src.LastName,
		Guardians: guardians,
	})
	if err != nil {
		return models.Student{}, err
	}
	if err := m.classes.IncStudentCount(ctx, targetClassID, 1); err != nil {
		return models.Student{}, err
	}

	for _, g := range clone.Guardians {
		if g.Status == models.StatusAccepted && g.AccountID != "" {
			if err := m.accounts.LinkStudents(ctx, g.AccountID, []primitive.ObjectID{clone.ID}); err != nil {
				m.log.Warn("guardian link during clone failed",
					zap.String("account_id", g.AccountID),
					zap.String("student_id", clone.ID.Hex()),
					zap.Error(err))
			}
			continue
		}
		if _, err := m.invites.Create(ctx, g.Email, clone.ID, ownerID); err != nil {
			m.log.Warn("invite create during clone failed",
				zap.String("email", g.Email),
				zap.String("student_id", clone.ID.Hex()),
				zap.Error(err))
		}
	}
	return clone, nil
}
