package reconcile

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	accountstore "github.com/dalemusser/rosterhub/internal/app/store/accounts"
	classstore "github.com/dalemusser/rosterhub/internal/app/store/classes"
	invitestore "github.com/dalemusser/rosterhub/internal/app/store/invites"
	studentstore "github.com/dalemusser/rosterhub/internal/app/store/students"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/rosterhub/internal/testutil"
)

func TestGuardianFirstSessionLinksAllPendingInvites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	teacher := fix.CreateTeacher(ctx, "sub-teacher", "t@x.com")
	class := fix.CreateClass(ctx, "Room 4", teacher.ID)
	e1 := fix.CreateStudent(ctx, "Amy", "Lee", class.ID, teacher.ID,
		fix.GuardianRef("Pat", "Lee", "p@x.com"))
	e2 := fix.CreateStudent(ctx, "Ben", "Lee", class.ID, teacher.ID,
		fix.GuardianRef("Pat", "Lee", "p@x.com"))
	fix.CreateInvite(ctx, "p@x.com", e1.ID, teacher.ID, models.StatusPending)
	fix.CreateInvite(ctx, "p@x.com", e2.ID, teacher.ID, models.StatusPending)

	engine := New(db, zap.NewNop())
	res, err := engine.Session(ctx, "sub-pat", "P@X.com", models.RoleGuardian)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if got := len(res.NewStudentIDs); got != 2 {
		t.Fatalf("expected 2 newly linked students, got %d", got)
	}
	if got := len(res.Account.StudentIDs); got != 2 {
		t.Fatalf("expected account to hold 2 student ids, got %d", got)
	}

	invites := invitestore.New(db)
	all, err := invites.ListByEmail(ctx, "p@x.com")
	if err != nil {
		t.Fatalf("list invites: %v", err)
	}
	for _, inv := range all {
		if inv.Status != models.StatusAccepted {
			t.Errorf("invite %s still %s", inv.ID.Hex(), inv.Status)
		}
		if inv.AcceptedBy != "sub-pat" {
			t.Errorf("invite %s accepted_by = %q", inv.ID.Hex(), inv.AcceptedBy)
		}
	}

	students := studentstore.New(db)
	for _, id := range []primitive.ObjectID{e1.ID, e2.ID} {
		st, err := students.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("load student: %v", err)
		}
		ref := st.Guardians[0]
		if ref.Status != models.StatusAccepted || ref.AccountID != "sub-pat" {
			t.Errorf("student %s ref not repaired: status=%s account=%q",
				id.Hex(), ref.Status, ref.AccountID)
		}
	}
}

func TestGuardianPassIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	teacher := fix.CreateTeacher(ctx, "sub-teacher", "t@x.com")
	class := fix.CreateClass(ctx, "Room 4", teacher.ID)
	st := fix.CreateStudent(ctx, "Amy", "Lee", class.ID, teacher.ID,
		fix.GuardianRef("Pat", "Lee", "p@x.com"))
	fix.CreateInvite(ctx, "p@x.com", st.ID, teacher.ID, models.StatusPending)

	engine := New(db, zap.NewNop())
	first, err := engine.Session(ctx, "sub-pat", "p@x.com", models.RoleGuardian)
	if err != nil {
		t.Fatalf("first session: %v", err)
	}
	if len(first.NewStudentIDs) != 1 {
		t.Fatalf("first pass linked %d students, want 1", len(first.NewStudentIDs))
	}

	second, err := engine.Session(ctx, "sub-pat", "p@x.com", models.RoleGuardian)
	if err != nil {
		t.Fatalf("second session: %v", err)
	}
	if len(second.NewStudentIDs) != 0 {
		t.Fatalf("second pass linked %d students, want 0", len(second.NewStudentIDs))
	}
	if got := len(second.Account.StudentIDs); got != 1 {
		t.Fatalf("account student set grew to %d, want 1", got)
	}
}

func TestGuardianRepairsHalfAppliedAcceptance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	teacher := fix.CreateTeacher(ctx, "sub-teacher", "t@x.com")
	class := fix.CreateClass(ctx, "Room 4", teacher.ID)
	st := fix.CreateStudent(ctx, "Amy", "Lee", class.ID, teacher.ID,
		fix.GuardianRef("Pat", "Lee", "p@x.com"))

	// Simulate a crash after the invite flip but before the ref repair and
	// the account union: invite already accepted, ref still pending.
	inv := fix.CreateInvite(ctx, "p@x.com", st.ID, teacher.ID, models.StatusAccepted)

	engine := New(db, zap.NewNop())
	newly, err := engine.Guardian(ctx, "sub-pat", "p@x.com", nil)
	if err != nil {
		t.Fatalf("guardian pass: %v", err)
	}
	if len(newly) != 1 || newly[0] != st.ID {
		t.Fatalf("expected the half-applied student to be linked, got %v", newly)
	}

	students := studentstore.New(db)
	loaded, err := students.GetByID(ctx, st.ID)
	if err != nil {
		t.Fatalf("load student: %v", err)
	}
	if loaded.Guardians[0].Status != models.StatusAccepted || loaded.Guardians[0].AccountID != "sub-pat" {
		t.Fatalf("ref not repaired: %+v", loaded.Guardians[0])
	}

	// The already-accepted invite must not be re-flipped.
	invites := invitestore.New(db)
	all, err := invites.ListByEmail(ctx, "p@x.com")
	if err != nil {
		t.Fatalf("list invites: %v", err)
	}
	if len(all) != 1 || all[0].ID != inv.ID || all[0].Status != models.StatusAccepted {
		t.Fatalf("invite ledger mutated unexpectedly: %+v", all)
	}
}

func TestGuardianSkipsDeletedTargetAndRemovedRef(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	teacher := fix.CreateTeacher(ctx, "sub-teacher", "t@x.com")
	class := fix.CreateClass(ctx, "Room 4", teacher.ID)

	// Invite whose target student no longer exists.
	fix.CreateInvite(ctx, "p@x.com", primitive.NewObjectID(), teacher.ID, models.StatusPending)

	// Invite whose target exists but the guardian ref was removed after the
	// invite was written.
	orphanRef := fix.CreateStudent(ctx, "Ben", "Lee", class.ID, teacher.ID)
	fix.CreateInvite(ctx, "p@x.com", orphanRef.ID, teacher.ID, models.StatusPending)

	// A healthy invite alongside them, to prove the batch continues.
	healthy := fix.CreateStudent(ctx, "Amy", "Lee", class.ID, teacher.ID,
		fix.GuardianRef("Pat", "Lee", "p@x.com"))
	fix.CreateInvite(ctx, "p@x.com", healthy.ID, teacher.ID, models.StatusPending)

	engine := New(db, zap.NewNop())
	newly, err := engine.Guardian(ctx, "sub-pat", "p@x.com", nil)
	if err != nil {
		t.Fatalf("guardian pass: %v", err)
	}
	if len(newly) != 1 || newly[0] != healthy.ID {
		t.Fatalf("expected only the healthy student linked, got %v", newly)
	}
}

func TestAdminPassMirrorsGuardianPass(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	owner := fix.CreateTeacher(ctx, "sub-owner", "owner@x.com")
	class := fix.CreateClass(ctx, "Room 4", owner.ID)

	classes := classstore.New(db)
	if err := classes.AppendAdmin(ctx, class.ID, models.AdminRef{Email: "co@x.com"}); err != nil {
		t.Fatalf("append admin: %v", err)
	}
	fix.CreateAdminInvite(ctx, "co@x.com", class.ID, owner.ID, models.StatusPending)

	engine := New(db, zap.NewNop())
	res, err := engine.Session(ctx, "sub-co", "co@x.com", models.RoleTeacher)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if len(res.NewAdminClasses) != 1 || res.NewAdminClasses[0] != class.ID {
		t.Fatalf("expected the class linked, got %v", res.NewAdminClasses)
	}
	if len(res.Account.AdminClassIDs) != 1 {
		t.Fatalf("account admin set = %v", res.Account.AdminClassIDs)
	}

	loaded, err := classes.GetByID(ctx, class.ID)
	if err != nil {
		t.Fatalf("load class: %v", err)
	}
	if loaded.Admins[0].Status != models.StatusAccepted || loaded.Admins[0].AccountID != "sub-co" {
		t.Fatalf("admin ref not repaired: %+v", loaded.Admins[0])
	}

	// Second pass: nothing new.
	again, err := engine.Session(ctx, "sub-co", "co@x.com", models.RoleTeacher)
	if err != nil {
		t.Fatalf("second session: %v", err)
	}
	if len(again.NewAdminClasses) != 0 {
		t.Fatalf("second pass relinked: %v", again.NewAdminClasses)
	}
}

func TestSessionEnsuresAccountOnFirstSeen(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	engine := New(db, zap.NewNop())
	res, err := engine.Session(ctx, "sub-new", "New@X.com", models.RoleGuardian)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if res.Account == nil || res.Account.ID != "sub-new" {
		t.Fatalf("account not ensured: %+v", res.Account)
	}
	if res.Account.Email != "new@x.com" {
		t.Fatalf("email not normalized: %q", res.Account.Email)
	}
	if len(res.NewStudentIDs) != 0 {
		t.Fatalf("no invites exist, but linked %v", res.NewStudentIDs)
	}
}

func TestGuardianStaleSnapshotNeverDuplicatesLinks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	teacher := fix.CreateTeacher(ctx, "sub-teacher", "t@x.com")
	guardian := fix.CreateGuardian(ctx, "sub-pat", "p@x.com")
	class := fix.CreateClass(ctx, "Room 4", teacher.ID)
	e1 := fix.CreateStudent(ctx, "Amy", "Lee", class.ID, teacher.ID,
		fix.GuardianRef("Pat", "Lee", "p@x.com"))
	e2 := fix.CreateStudent(ctx, "Ben", "Lee", class.ID, teacher.ID,
		fix.GuardianRef("Pat", "Lee", "p@x.com"))
	fix.CreateInvite(ctx, "p@x.com", e1.ID, teacher.ID, models.StatusPending)
	fix.CreateInvite(ctx, "p@x.com", e2.ID, teacher.ID, models.StatusPending)

	// Two devices signed into the same account each start from an empty
	// linked-set snapshot. The second pass re-walks the whole ledger with the
	// same stale view the first one had; the set-union write must still leave
	// each id in the account exactly once.
	engine := New(db, zap.NewNop())
	for pass := 0; pass < 2; pass++ {
		if _, err := engine.Guardian(ctx, guardian.ID, guardian.Email, nil); err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
	}

	acct, err := accountstore.New(db).GetByID(ctx, guardian.ID)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	counts := make(map[primitive.ObjectID]int)
	for _, id := range acct.StudentIDs {
		counts[id]++
	}
	if len(counts) != 2 {
		t.Fatalf("linked set holds %d distinct ids, want 2: %v", len(counts), acct.StudentIDs)
	}
	for _, id := range []primitive.ObjectID{e1.ID, e2.ID} {
		if counts[id] != 1 {
			t.Errorf("student %s appears %d times in linked set", id.Hex(), counts[id])
		}
	}
}
