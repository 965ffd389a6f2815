package feed

import (
	"slices"

	"github.com/nhle/replydeck/internal/model"
)

// Reconciler holds the cards visible in the dashboard, newest first, at
// most once per id. It merges one bulk snapshot with cards pushed one at
// a time and drops cards the user has acted on.
//
// A Reconciler is not safe for concurrent use; it is owned by the UI
// update loop.
type Reconciler struct {
	cards []model.NotificationCard
	ids   map[string]struct{}
}

// NewReconciler returns an empty feed.
func NewReconciler() *Reconciler {
	return &Reconciler{ids: make(map[string]struct{})}
}

// LoadSnapshot replaces the whole collection with cards, keeping their
// order. A repeated id keeps its first occurrence.
func (r *Reconciler) LoadSnapshot(cards []model.NotificationCard) {
	r.cards = make([]model.NotificationCard, 0, len(cards))
	r.ids = make(map[string]struct{}, len(cards))
	for _, c := range cards {
		if _, dup := r.ids[c.ID]; dup {
			continue
		}
		r.ids[c.ID] = struct{}{}
		r.cards = append(r.cards, c)
	}
}

// Push prepends card unless a card with the same id is already present,
// in which case the event is discarded and the feed is left untouched.
// It reports whether the card was inserted.
func (r *Reconciler) Push(card model.NotificationCard) bool {
	if _, dup := r.ids[card.ID]; dup {
		return false
	}
	r.ids[card.ID] = struct{}{}
	r.cards = slices.Insert(r.cards, 0, card)
	return true
}

// Remove drops the card with the given id. Removing an absent id is a
// no-op. It reports whether a card was removed.
func (r *Reconciler) Remove(id string) bool {
	if _, ok := r.ids[id]; !ok {
		return false
	}
	delete(r.ids, id)
	r.cards = slices.DeleteFunc(r.cards, func(c model.NotificationCard) bool {
		return c.ID == id
	})
	return true
}

// Get returns the card with the given id.
func (r *Reconciler) Get(id string) (model.NotificationCard, bool) {
	if _, ok := r.ids[id]; !ok {
		return model.NotificationCard{}, false
	}
	for _, c := range r.cards {
		if c.ID == id {
			return c, true
		}
	}
	return model.NotificationCard{}, false
}

// Contains reports whether a card with the given id is present.
func (r *Reconciler) Contains(id string) bool {
	_, ok := r.ids[id]
	return ok
}

// Cards returns the cards in display order.
func (r *Reconciler) Cards() []model.NotificationCard {
	return slices.Clone(r.cards)
}

// Len returns the number of cards.
func (r *Reconciler) Len() int {
	return len(r.cards)
}
