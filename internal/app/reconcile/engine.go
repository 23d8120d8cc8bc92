// Package reconcile is the roster linking & reconciliation engine.
//
// Accounts, embedded guardian/admin refs, and the invite ledger live in
// separate collections with no cross-collection transactions, so any linking
// operation can be interrupted between its two mirrored writes. The engine
// converges them: it runs at every session start, re-examines the whole
// invite ledger for the account's email (accepted invites included), and
// reapplies whatever state is missing. Every step is idempotent and every
// set mutation goes through $addToSet/$pull, so concurrent runs from two
// devices signed into the same account converge to the same sets regardless
// of interleaving.
package reconcile

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	accountstore "github.com/dalemusser/rosterhub/internal/app/store/accounts"
	classstore "github.com/dalemusser/rosterhub/internal/app/store/classes"
	invitestore "github.com/dalemusser/rosterhub/internal/app/store/invites"
	studentstore "github.com/dalemusser/rosterhub/internal/app/store/students"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

type Engine struct {
	invites  *invitestore.Store
	students *studentstore.Store
	classes  *classstore.Store
	accounts *accountstore.Store
	log      *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Engine {
	return &Engine{
		invites:  invitestore.New(db),
		students: studentstore.New(db),
		classes:  classstore.New(db),
		accounts: accountstore.New(db),
		log:      logger,
	}
}

// Guardian converges the account's linked-child set against the invite
// ledger. It returns the student ids newly linked by this pass; an empty
// result means the account was already fully converged.
//
// Per-invite work is best-effort: a failure on one invite (say, its target
// student was deleted concurrently) is logged and the rest of the batch
// still runs. Since invites are never deleted, anything skipped here is
// retried on the next pass.
func (e *Engine) Guardian(ctx context.Context, accountID, email string, existingLinkedIDs []primitive.ObjectID) ([]primitive.ObjectID, error) {
	invites, err := e.invites.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	linked := make(map[primitive.ObjectID]struct{}, len(existingLinkedIDs))
	for _, id := range existingLinkedIDs {
		linked[id] = struct{}{}
	}

	var newly []primitive.ObjectID
	for _, inv := range invites {
		if _, ok := linked[inv.StudentID]; ok {
			continue // already fully linked
		}

		// Flip the invite first. Conditional on still-pending, so an invite
		// accepted by an earlier (possibly partial) run is untouched.
		if inv.Status == models.StatusPending {
			if err := e.invites.Accept(ctx, inv.ID, accountID); err != nil {
				e.log.Warn("invite accept failed",
					zap.String("invite_id", inv.ID.Hex()),
					zap.Error(err))
				continue
			}
		}

		// Repair the mirrored guardian ref regardless of the invite's prior
		// status. This is what makes a half-applied earlier run converge.
		st, err := e.students.GetByID(ctx, inv.StudentID)
		if err != nil {
			if err != mongo.ErrNoDocuments {
				e.log.Warn("invite target load failed",
					zap.String("student_id", inv.StudentID.Hex()),
					zap.Error(err))
			}
			continue // target gone: benign, skip
		}

		ref := guardianRefByEmail(st, email)
		if ref == nil {
			// Ref was removed after the invite was written; the ledger entry
			// stays but there is nothing to link.
			continue
		}
		if ref.Status != models.StatusAccepted || ref.AccountID != accountID {
			if _, err := e.students.AcceptGuardian(ctx, st.ID, email, accountID); err != nil {
				e.log.Warn("guardian ref repair failed",
					zap.String("student_id", st.ID.Hex()),
					zap.Error(err))
				continue
			}
		}

		newly = append(newly, inv.StudentID)
		linked[inv.StudentID] = struct{}{}
	}

	// One set-union write for the whole batch. $addToSet cannot double-count,
	// so a concurrent pass racing us here is harmless.
	if len(newly) > 0 {
		if err := e.accounts.LinkStudents(ctx, accountID, newly); err != nil {
			return nil, err
		}
	}
	return newly, nil
}

// Admin is the Guardian pass against admin invites, classes, and embedded
// admin refs. Identical shape and guarantees.
func (e *Engine) Admin(ctx context.Context, accountID, email string, existingAdminIDs []primitive.ObjectID) ([]primitive.ObjectID, error) {
	invites, err := e.invites.ListAdminByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	linked := make(map[primitive.ObjectID]struct{}, len(existingAdminIDs))
	for _, id := range existingAdminIDs {
		linked[id] = struct{}{}
	}

	var newly []primitive.ObjectID
	for _, inv := range invites {
		if _, ok := linked[inv.ClassID]; ok {
			continue
		}

		if inv.Status == models.StatusPending {
			if err := e.invites.AcceptAdmin(ctx, inv.ID, accountID); err != nil {
				e.log.Warn("admin invite accept failed",
					zap.String("invite_id", inv.ID.Hex()),
					zap.Error(err))
				continue
			}
		}

		class, err := e.classes.GetByID(ctx, inv.ClassID)
		if err != nil {
			if err != mongo.ErrNoDocuments {
				e.log.Warn("admin invite target load failed",
					zap.String("class_id", inv.ClassID.Hex()),
					zap.Error(err))
			}
			continue
		}

		ref := adminRefByEmail(class, email)
		if ref == nil {
			continue
		}
		if ref.Status != models.StatusAccepted || ref.AccountID != accountID {
			if _, err := e.classes.AcceptAdmin(ctx, class.ID, email, accountID); err != nil {
				e.log.Warn("admin ref repair failed",
					zap.String("class_id", class.ID.Hex()),
					zap.Error(err))
				continue
			}
		}

		newly = append(newly, inv.ClassID)
		linked[inv.ClassID] = struct{}{}
	}

	if len(newly) > 0 {
		if err := e.accounts.LinkAdminClasses(ctx, accountID, newly); err != nil {
			return nil, err
		}
	}
	return newly, nil
}

// SessionResult is what a session-start reconciliation hands back to the
// caller: the fresh account view plus what this pass linked.
type SessionResult struct {
	Account         *models.Account
	NewStudentIDs   []primitive.ObjectID
	NewAdminClasses []primitive.ObjectID
}

// Session runs the full session-start flow: ensure the account document
// exists, run the reconciliation pass for the account's role, and re-read
// the account afterwards so the caller gets fresh state without a second
// round trip.
func (e *Engine) Session(ctx context.Context, accountID, email, role string) (SessionResult, error) {
	acct, err := e.accounts.Ensure(ctx, accountID, email, role)
	if err != nil {
		return SessionResult{}, err
	}

	res := SessionResult{Account: acct}
	switch acct.Role {
	case models.RoleGuardian:
		res.NewStudentIDs, err = e.Guardian(ctx, acct.ID, acct.Email, acct.StudentIDs)
	case models.RoleTeacher:
		res.NewAdminClasses, err = e.Admin(ctx, acct.ID, acct.Email, acct.AdminClassIDs)
	}
	if err != nil {
		return SessionResult{}, err
	}

	if len(res.NewStudentIDs) > 0 || len(res.NewAdminClasses) > 0 {
		fresh, err := e.accounts.GetByID(ctx, acct.ID)
		if err != nil {
			return SessionResult{}, err
		}
		res.Account = fresh
	}
	return res, nil
}

func guardianRefByEmail(st *models.Student, email string) *models.GuardianRef {
	for i := range st.Guardians {
		if st.Guardians[i].Email == email {
			return &st.Guardians[i]
		}
	}
	return nil
}

func adminRefByEmail(c *models.Class, email string) *models.AdminRef {
	for i := range c.Admins {
		if c.Admins[i].Email == email {
			return &c.Admins[i]
		}
	}
	return nil
}
