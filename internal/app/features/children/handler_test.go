package children

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/dalemusser/rosterhub/internal/app/system/dedup"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/rosterhub/internal/testutil"
)

func TestListGroupsEntriesByName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	teacher := fix.CreateTeacher(ctx, "sub-teacher", "t@x.com")
	guardian := fix.CreateGuardian(ctx, "sub-pat", "p@x.com")
	classA := fix.CreateClass(ctx, "Room 4", teacher.ID)
	classB := fix.CreateClass(ctx, "Room 5", teacher.ID)

	// Same child enrolled twice (different casing), plus a distinct sibling.
	e1 := fix.CreateStudent(ctx, "Amy", "Lee", classA.ID, teacher.ID)
	e2 := fix.CreateStudent(ctx, "amy", "lee", classB.ID, teacher.ID)
	e3 := fix.CreateStudent(ctx, "Amy", "Leo", classA.ID, teacher.ID)

	if _, err := db.Collection("accounts").UpdateByID(ctx, guardian.ID, bson.M{
		"$set": bson.M{"student_ids": []any{e1.ID, e2.ID, e3.ID}},
	}); err != nil {
		t.Fatalf("seed links: %v", err)
	}

	h := NewHandler(db, zap.NewNop())
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/children",
		testutil.GuardianIdentity(guardian.ID, guardian.Email))
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Children []dedup.DisplayChild `json:"children"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Children) != 2 {
		t.Fatalf("got %d display children, want 2: %+v", len(resp.Children), resp.Children)
	}
	// The merged identity spans both enrollments.
	var amyLee *dedup.DisplayChild
	for i := range resp.Children {
		if resp.Children[i].Key == dedup.Key("Amy", "Lee") {
			amyLee = &resp.Children[i]
		}
	}
	if amyLee == nil || len(amyLee.StudentIDs) != 2 {
		t.Fatalf("amy lee identity not merged: %+v", resp.Children)
	}
}

func TestHomeworkScopedToIdentity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	teacher := fix.CreateTeacher(ctx, "sub-teacher", "t@x.com")
	guardian := fix.CreateGuardian(ctx, "sub-pat", "p@x.com")
	classA := fix.CreateClass(ctx, "Room 4", teacher.ID)
	classB := fix.CreateClass(ctx, "Room 5", teacher.ID)

	e1 := fix.CreateStudent(ctx, "Amy", "Lee", classA.ID, teacher.ID)
	e2 := fix.CreateStudent(ctx, "Amy", "Lee", classB.ID, teacher.ID)
	sibling := fix.CreateStudent(ctx, "Ben", "Lee", classA.ID, teacher.ID)

	fix.CreateHomework(ctx, e1.ID, classA.ID, "Reading log", teacher.ID)
	fix.CreateHomework(ctx, e2.ID, classB.ID, "Math sheet", teacher.ID)
	fix.CreateHomework(ctx, sibling.ID, classA.ID, "Spelling", teacher.ID)

	if _, err := db.Collection("accounts").UpdateByID(ctx, guardian.ID, bson.M{
		"$set": bson.M{"student_ids": []any{e1.ID, e2.ID, sibling.ID}},
	}); err != nil {
		t.Fatalf("seed links: %v", err)
	}

	h := NewHandler(db, zap.NewNop())
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/children/x/homework",
		testutil.GuardianIdentity(guardian.ID, guardian.Email))
	req = testutil.WithChiURLParam(req, "key", dedup.Key("Amy", "Lee"))
	rec := httptest.NewRecorder()
	h.Homework(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Homework []models.HomeworkRecord `json:"homework"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Homework) != 2 {
		t.Fatalf("got %d records, want the 2 for Amy Lee only", len(resp.Homework))
	}
	for _, hw := range resp.Homework {
		if hw.Title == "Spelling" {
			t.Error("sibling's homework leaked into the identity view")
		}
	}
}

func TestUnknownIdentityKeyIs404(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	guardian := fix.CreateGuardian(ctx, "sub-pat", "p@x.com")

	h := NewHandler(db, zap.NewNop())
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/children/x/homework",
		testutil.GuardianIdentity(guardian.ID, guardian.Email))
	req = testutil.WithChiURLParam(req, "key", "nobody|here")
	rec := httptest.NewRecorder()
	h.Homework(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
