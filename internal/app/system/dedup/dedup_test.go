package dedup_test

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dalemusser/rosterhub/internal/app/system/dedup"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

func student(first, last string) models.Student {
	return models.Student{
		ID:        primitive.NewObjectID(),
		ClassID:   primitive.NewObjectID(),
		FirstName: first,
		LastName:  last,
	}
}

func TestGroup_CaseInsensitive(t *testing.T) {
	a := student("Amy", "Lee") // class A
	b := student("amy", "lee") // class B
	c := student("Amy", "Leo") // class C

	children := dedup.Group([]models.Student{a, b, c})

	if len(children) != 2 {
		t.Fatalf("expected 2 display identities, got %d", len(children))
	}

	amyLee := children[0]
	if amyLee.FirstName != "Amy" || amyLee.LastName != "Lee" {
		t.Errorf("display casing should come from first entry: got %q %q", amyLee.FirstName, amyLee.LastName)
	}
	if len(amyLee.StudentIDs) != 2 {
		t.Fatalf("Amy Lee should span 2 entries, got %d", len(amyLee.StudentIDs))
	}
	if amyLee.StudentIDs[0] != a.ID || amyLee.StudentIDs[1] != b.ID {
		t.Errorf("Amy Lee entry ids wrong: %v", amyLee.StudentIDs)
	}

	amyLeo := children[1]
	if len(amyLeo.StudentIDs) != 1 || amyLeo.StudentIDs[0] != c.ID {
		t.Errorf("Amy Leo should stay separate: %v", amyLeo.StudentIDs)
	}
}

func TestGroup_Deterministic(t *testing.T) {
	in := []models.Student{student("Bo", "Li"), student("Cy", "Yu"), student("bo", "li")}

	first := dedup.Group(in)
	second := dedup.Group(in)

	if len(first) != len(second) {
		t.Fatalf("group counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key {
			t.Errorf("order not deterministic at %d: %q vs %q", i, first[i].Key, second[i].Key)
		}
	}
}

func TestGroup_Empty(t *testing.T) {
	if got := dedup.Group(nil); len(got) != 0 {
		t.Errorf("expected no identities, got %d", len(got))
	}
}

func TestResolveStudentIDs(t *testing.T) {
	a := student("Amy", "Lee")
	b := student("AMY", "LEE")
	c := student("Amy", "Leo")

	ids := dedup.ResolveStudentIDs([]models.Student{a, b, c}, dedup.Key("amy", "lee"))
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if ids[0] != a.ID || ids[1] != b.ID {
		t.Errorf("wrong ids resolved: %v", ids)
	}

	if got := dedup.ResolveStudentIDs([]models.Student{a, b, c}, dedup.Key("no", "body")); len(got) != 0 {
		t.Errorf("unknown key should resolve to nothing, got %v", got)
	}
}
