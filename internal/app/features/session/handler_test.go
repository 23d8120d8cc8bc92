package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dalemusser/rosterhub/internal/app/reconcile"
	accountstore "github.com/dalemusser/rosterhub/internal/app/store/accounts"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/rosterhub/internal/testutil"
)

func TestStartReconcilesAndReturnsAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	teacher := fix.CreateTeacher(ctx, "sub-teacher", "t@x.com")
	class := fix.CreateClass(ctx, "Room 4", teacher.ID)
	st := fix.CreateStudent(ctx, "Amy", "Lee", class.ID, teacher.ID,
		fix.GuardianRef("Pat", "Lee", "p@x.com"))
	fix.CreateInvite(ctx, "p@x.com", st.ID, teacher.ID, models.StatusPending)

	h := NewHandler(reconcile.New(db, zap.NewNop()), accountstore.New(db), zap.NewNop())

	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/session",
		testutil.GuardianIdentity("sub-pat", "p@x.com"))
	rec := httptest.NewRecorder()
	h.Start(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Account       models.Account `json:"account"`
		NewStudentIDs []string       `json:"new_student_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Account.ID != "sub-pat" {
		t.Errorf("account id = %q", resp.Account.ID)
	}
	if len(resp.NewStudentIDs) != 1 || resp.NewStudentIDs[0] != st.ID.Hex() {
		t.Errorf("new_student_ids = %v", resp.NewStudentIDs)
	}
}

func TestSetNotifications(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	guardian := fix.CreateGuardian(ctx, "sub-pat", "p@x.com")

	accounts := accountstore.New(db)
	h := NewHandler(reconcile.New(db, zap.NewNop()), accounts, zap.NewNop())

	req := httptest.NewRequest(http.MethodPut, "/session/notifications",
		strings.NewReader(`{"enabled": false}`))
	req = auth.WithTestIdentity(req, testutil.GuardianIdentity(guardian.ID, guardian.Email))
	rec := httptest.NewRecorder()
	h.SetNotifications(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	acct, err := accounts.GetByID(ctx, guardian.ID)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if acct.NotifyHomework {
		t.Error("preference not flipped off")
	}
}
