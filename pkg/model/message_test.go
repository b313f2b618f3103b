package model

import "testing"

func TestMessageLogMergeIdempotent(t *testing.T) {
	log := NewMessageLog(nil)

	m1 := Message{ID: "a", Message: "hello"}
	m2 := Message{ID: "b", Message: "world"}

	if !log.Merge(m1) {
		t.Fatal("first merge of a should append")
	}
	if !log.Merge(m2) {
		t.Fatal("first merge of b should append")
	}
	if log.Merge(m1) {
		t.Fatal("duplicate merge of a should be a no-op")
	}
	if log.Merge(Message{ID: "a", Message: "changed"}) {
		t.Fatal("same id with different body must not append")
	}

	got := log.Snapshot()
	if len(got) != 2 {
		t.Fatalf("want 2 messages, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("arrival order broken: %v", got)
	}
	if got[0].Message != "hello" {
		t.Fatalf("duplicate overwrote original body: %q", got[0].Message)
	}
}

func TestMessageLogSeedsFromSnapshot(t *testing.T) {
	log := NewMessageLog([]Message{{ID: "a"}, {ID: "b"}, {ID: "a"}})
	if log.Len() != 2 {
		t.Fatalf("seed should dedupe, got %d", log.Len())
	}
}

func TestMessageLogSnapshotIsCopy(t *testing.T) {
	log := NewMessageLog([]Message{{ID: "a", Message: "orig"}})
	snap := log.Snapshot()
	snap[0].Message = "mutated"
	if log.Snapshot()[0].Message != "orig" {
		t.Fatal("snapshot must not alias internal storage")
	}
}

func TestRosterFirstSeenWins(t *testing.T) {
	r := NewRoster(nil)
	if !r.Observe(Participant{ID: "p1", Name: "alice", Role: RolePublic}) {
		t.Fatal("first observation should add")
	}
	if r.Observe(Participant{ID: "p1", Name: "renamed", Role: RoleAdmin}) {
		t.Fatal("second observation of same id should be a no-op")
	}
	r.Observe(Participant{ID: "p2", Name: "bob"})

	got := r.Snapshot()
	if len(got) != 2 {
		t.Fatalf("want 2 participants, got %d", len(got))
	}
	if got[0].Name != "alice" || got[0].Role != RolePublic {
		t.Fatalf("later sighting must not update entry: %+v", got[0])
	}
}
