package models

import (
	"encoding/json"
	"testing"
)

func TestNullStringJSON(t *testing.T) {
	b, err := json.Marshal(NewNullString("   "))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != "null" {
		t.Fatalf("expected null for blank string, got %s", b)
	}

	b, err = json.Marshal(NewNullString(" https://x/y.png "))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"https://x/y.png"` {
		t.Fatalf("unexpected value %s", b)
	}

	var ns NullString
	if err := json.Unmarshal([]byte("null"), &ns); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ns.Valid {
		t.Fatalf("expected invalid NullString after null")
	}
}

func TestQuestionStatusRank(t *testing.T) {
	if !(QuestionStatusPending.Rank() < QuestionStatusInProgress.Rank() &&
		QuestionStatusInProgress.Rank() < QuestionStatusCompleted.Rank()) {
		t.Fatalf("status ranks are out of order")
	}
	if QuestionStatus("ARCHIVED").Valid() {
		t.Fatalf("ARCHIVED must not be a valid status")
	}
}
