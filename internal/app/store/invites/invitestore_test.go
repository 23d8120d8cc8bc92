package invitestore

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dalemusser/rosterhub/internal/app/system/indexes"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/rosterhub/internal/testutil"
)

func TestCreateIsIdempotentOnDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// The dup short-circuit depends on the unique (email, student_id) index.
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	store := New(db)
	studentID := primitive.NewObjectID()

	first, err := store.Create(ctx, "P@X.com", studentID, "sub-teacher")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Email != "p@x.com" {
		t.Errorf("email not normalized: %q", first.Email)
	}

	second, err := store.Create(ctx, "p@x.com", studentID, "sub-teacher")
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("duplicate create minted a new invite: %s vs %s", second.ID.Hex(), first.ID.Hex())
	}

	all, err := store.ListByEmail(ctx, "p@x.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ledger holds %d invites, want 1", len(all))
	}
}

func TestAcceptFlipsPendingOnlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	inv, err := store.Create(ctx, "p@x.com", primitive.NewObjectID(), "sub-teacher")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.Accept(ctx, inv.ID, "sub-pat"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	all, err := store.ListByEmail(ctx, "p@x.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all[0].Status != models.StatusAccepted || all[0].AcceptedBy != "sub-pat" {
		t.Fatalf("invite not accepted: %+v", all[0])
	}
	firstAcceptedAt := all[0].AcceptedAt

	// A second accept, even from a different account, is a no-op.
	if err := store.Accept(ctx, inv.ID, "sub-other"); err != nil {
		t.Fatalf("second accept: %v", err)
	}
	all, err = store.ListByEmail(ctx, "p@x.com")
	if err != nil {
		t.Fatalf("relist: %v", err)
	}
	if all[0].AcceptedBy != "sub-pat" {
		t.Errorf("accepted_by overwritten: %q", all[0].AcceptedBy)
	}
	if !all[0].AcceptedAt.Equal(*firstAcceptedAt) {
		t.Errorf("accepted_at overwritten")
	}
}

func TestListByEmailIsCaseInsensitive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	if _, err := store.Create(ctx, "Mixed@Case.com", primitive.NewObjectID(), "sub-teacher"); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := store.ListByEmail(ctx, "mixed@case.COM")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("found %d invites, want 1", len(all))
	}
}

func TestAdminInviteMirror(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	classID := primitive.NewObjectID()

	inv, err := store.CreateAdmin(ctx, "co@x.com", classID, "sub-owner")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := store.AcceptAdmin(ctx, inv.ID, "sub-co"); err != nil {
		t.Fatalf("accept admin: %v", err)
	}

	all, err := store.ListAdminByEmail(ctx, "co@x.com")
	if err != nil {
		t.Fatalf("list admin: %v", err)
	}
	if len(all) != 1 || all[0].Status != models.StatusAccepted || all[0].ClassID != classID {
		t.Fatalf("admin ledger wrong: %+v", all)
	}
}
