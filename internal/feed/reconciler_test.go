package feed

import (
	"slices"
	"testing"

	"github.com/nhle/replydeck/internal/model"
)

func card(id, summary string) model.NotificationCard {
	return model.NotificationCard{ID: id, Summary: summary}
}

func ids(r *Reconciler) []string {
	var out []string
	for _, c := range r.Cards() {
		out = append(out, c.ID)
	}
	return out
}

func TestPushPrependsAfterSnapshot(t *testing.T) {
	r := NewReconciler()
	r.LoadSnapshot([]model.NotificationCard{card("A", ""), card("B", ""), card("C", "")})
	r.Push(card("D", ""))
	r.Push(card("E", ""))

	want := []string{"E", "D", "A", "B", "C"}
	if got := ids(r); !slices.Equal(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
}

func TestPushDuplicateKeepsFirstOccurrence(t *testing.T) {
	r := NewReconciler()
	r.LoadSnapshot([]model.NotificationCard{card("A", "first"), card("B", "")})

	if r.Push(card("A", "second")) {
		t.Fatalf("duplicate push should be discarded")
	}
	r.Push(card("C", "c1"))
	if r.Push(card("C", "c2")) {
		t.Fatalf("duplicate push should be discarded")
	}

	want := []string{"C", "A", "B"}
	if got := ids(r); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	a, _ := r.Get("A")
	if a.Summary != "first" {
		t.Fatalf("expected first delivered value, got %q", a.Summary)
	}
	c, _ := r.Get("C")
	if c.Summary != "c1" {
		t.Fatalf("expected first delivered value, got %q", c.Summary)
	}
}

func TestSnapshotDeduplicates(t *testing.T) {
	r := NewReconciler()
	r.LoadSnapshot([]model.NotificationCard{card("A", "1"), card("A", "2"), card("B", "")})
	if got := ids(r); !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("unexpected ids %v", got)
	}
	a, _ := r.Get("A")
	if a.Summary != "1" {
		t.Fatalf("expected first occurrence, got %q", a.Summary)
	}
}

func TestSnapshotReplacesCollection(t *testing.T) {
	r := NewReconciler()
	r.Push(card("X", ""))
	r.LoadSnapshot([]model.NotificationCard{card("A", "")})
	if got := ids(r); !slices.Equal(got, []string{"A"}) {
		t.Fatalf("expected snapshot to replace collection, got %v", got)
	}
	if r.Contains("X") {
		t.Fatalf("stale id left in index")
	}
	if !r.Push(card("X", "")) {
		t.Fatalf("X should be insertable again after snapshot")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := NewReconciler()
	r.LoadSnapshot([]model.NotificationCard{card("A", ""), card("B", "")})

	if !r.Remove("A") {
		t.Fatalf("expected first remove to succeed")
	}
	before := ids(r)
	if r.Remove("A") {
		t.Fatalf("second remove should be a no-op")
	}
	if r.Remove("never") {
		t.Fatalf("removing an absent id should be a no-op")
	}
	if got := ids(r); !slices.Equal(got, before) {
		t.Fatalf("feed changed on no-op remove: %v -> %v", before, got)
	}
}

func TestDedupInvariantOverManyPushes(t *testing.T) {
	r := NewReconciler()
	r.LoadSnapshot([]model.NotificationCard{card("1", "snap")})
	pushes := []string{"2", "3", "1", "2", "4", "3", "5", "5"}
	for i, id := range pushes {
		r.Push(card(id, string(rune('a'+i))))
	}

	seen := map[string]int{}
	for _, id := range ids(r) {
		seen[id]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("id %s appears %d times", id, n)
		}
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 distinct ids, got %d", len(seen))
	}
	if c, _ := r.Get("1"); c.Summary != "snap" {
		t.Fatalf("snapshot value should win, got %q", c.Summary)
	}
	if c, _ := r.Get("2"); c.Summary != "a" {
		t.Fatalf("first push should win, got %q", c.Summary)
	}
}

func TestCardsReturnsCopy(t *testing.T) {
	r := NewReconciler()
	r.Push(card("A", "orig"))
	cs := r.Cards()
	cs[0].Summary = "mutated"
	if c, _ := r.Get("A"); c.Summary != "orig" {
		t.Fatalf("Cards() exposed internal storage")
	}
}
