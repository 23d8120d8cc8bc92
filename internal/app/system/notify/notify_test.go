package notify_test

import (
	"encoding/json"
	"testing"

	"github.com/dalemusser/rosterhub/internal/app/system/notify"
)

func TestNewEvent(t *testing.T) {
	ev := notify.NewEvent("Amy Lee", "Reading log", []string{"acct-1", "acct-2"})

	if ev.EventID == "" {
		t.Error("EventID should be generated")
	}
	if ev.StudentName != "Amy Lee" || ev.HomeworkTitle != "Reading log" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if len(ev.AccountIDs) != 2 {
		t.Errorf("AccountIDs: got %v", ev.AccountIDs)
	}

	other := notify.NewEvent("Amy Lee", "Reading log", nil)
	if other.EventID == ev.EventID {
		t.Error("event ids should be unique per event")
	}
}

func TestEventJSONShape(t *testing.T) {
	ev := notify.NewEvent("Amy Lee", "Reading log", []string{"acct-1"})
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"event_id", "student_name", "homework_title", "account_ids"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("payload missing %q", key)
		}
	}
}
