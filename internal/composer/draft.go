package composer

import (
	"fmt"
	"slices"
	"strings"
)

// Draft is an editable sequence of chat bubbles. It always holds at
// least one bubble so there is a slot to type into.
type Draft struct {
	msgs []string
}

// NewDraft returns a draft holding a copy of msgs, or a single empty
// bubble when msgs is empty.
func NewDraft(msgs ...string) Draft {
	if len(msgs) == 0 {
		return Draft{msgs: []string{""}}
	}
	return Draft{msgs: slices.Clone(msgs)}
}

// Len returns the number of bubbles.
func (d Draft) Len() int {
	return len(d.msgs)
}

// At returns the bubble at index i.
func (d Draft) At(i int) string {
	if i < 0 || i >= len(d.msgs) {
		return ""
	}
	return d.msgs[i]
}

// Messages returns a copy of all bubbles, blank ones included.
func (d Draft) Messages() []string {
	return slices.Clone(d.msgs)
}

// Update replaces the text of bubble i.
func (d *Draft) Update(i int, text string) error {
	if i < 0 || i >= len(d.msgs) {
		return fmt.Errorf("bubble index %d out of range [0,%d)", i, len(d.msgs))
	}
	d.msgs[i] = text
	return nil
}

// Add appends an empty bubble at the end.
func (d *Draft) Add() {
	d.msgs = append(d.msgs, "")
}

// Remove deletes bubble i. Removing the only bubble clears its text
// instead, so the draft never becomes empty.
func (d *Draft) Remove(i int) error {
	if i < 0 || i >= len(d.msgs) {
		return fmt.Errorf("bubble index %d out of range [0,%d)", i, len(d.msgs))
	}
	if len(d.msgs) == 1 {
		d.msgs[0] = ""
		return nil
	}
	d.msgs = slices.Delete(d.msgs, i, i+1)
	return nil
}

// Valid reports whether at least one bubble has non-blank text.
func (d Draft) Valid() bool {
	for _, m := range d.msgs {
		if strings.TrimSpace(m) != "" {
			return true
		}
	}
	return false
}

// Clean returns the non-blank bubbles in their original order.
func (d Draft) Clean() []string {
	out := make([]string, 0, len(d.msgs))
	for _, m := range d.msgs {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}
