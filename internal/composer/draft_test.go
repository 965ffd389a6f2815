package composer

import (
	"math/rand"
	"slices"
	"testing"
)

func TestNewDraftCopiesInput(t *testing.T) {
	src := []string{"a", "b"}
	d := NewDraft(src...)
	_ = d.Update(0, "z")
	if src[0] != "a" {
		t.Fatalf("draft aliases its input: %q", src)
	}
}

func TestRemoveLastBubbleClearsText(t *testing.T) {
	d := NewDraft("only")
	if err := d.Remove(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if d.Len() != 1 || d.At(0) != "" {
		t.Fatalf("expected single empty bubble, got %q", d.Messages())
	}
}

func TestRemoveOutOfRange(t *testing.T) {
	d := NewDraft("a")
	if err := d.Remove(3); err == nil {
		t.Fatalf("expected error")
	}
	if err := d.Update(-1, "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDraftNeverEmpty(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	d := NewDraft()
	for i := 0; i < 500; i++ {
		if r.Intn(2) == 0 {
			d.Add()
		} else {
			_ = d.Remove(r.Intn(d.Len()))
		}
		if d.Len() < 1 {
			t.Fatalf("draft empty after %d operations", i+1)
		}
	}
}

func TestValidAndClean(t *testing.T) {
	tests := []struct {
		name  string
		msgs  []string
		valid bool
		clean []string
	}{
		{"empty", nil, false, []string{}},
		{"whitespace", []string{" ", "\t\n"}, false, []string{}},
		{"mixed", []string{"hello", "", "world"}, true, []string{"hello", "world"}},
		{"keeps inner spacing", []string{"  hi  "}, true, []string{"  hi  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft(tt.msgs...)
			if d.Valid() != tt.valid {
				t.Fatalf("Valid() = %v, want %v", d.Valid(), tt.valid)
			}
			if got := d.Clean(); !slices.Equal(got, tt.clean) {
				t.Fatalf("Clean() = %q, want %q", got, tt.clean)
			}
		})
	}
}
