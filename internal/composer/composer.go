// Package composer implements the per-card reply workflow: a choice
// between replying and ignoring, a grid of pre-authored options, and a
// multi-bubble editor for edited or custom replies.
package composer

import (
	"errors"
	"fmt"

	"github.com/nhle/replydeck/internal/model"
)

// ErrInvalidTransition is returned when an action is not allowed in the
// composer's current state. The state is left unchanged.
var ErrInvalidTransition = errors.New("invalid composer transition")

// State is the step of the reply workflow a composer is in.
type State int

const (
	StateInitial State = iota
	StateSelecting
	StateComposing
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateSelecting:
		return "selecting"
	case StateComposing:
		return "composing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DecisionKind is the terminal outcome of a composer session.
type DecisionKind int

const (
	DecisionIgnore DecisionKind = iota
	DecisionReply
)

func (k DecisionKind) String() string {
	if k == DecisionReply {
		return "reply"
	}
	return "ignore"
}

// Decision is what the user chose for a card. Messages and Meta are only
// set for replies.
type Decision struct {
	Kind     DecisionKind
	CardID   string
	Messages []string
	Meta     model.ReplyMetadata
}

// Composer is the reply state machine of a single card. It keeps a
// read-only copy of the card and owns its draft exclusively.
type Composer struct {
	card  model.NotificationCard
	state State
	draft Draft
	meta  model.ReplyMetadata
}

// New returns a composer for card in StateInitial.
func New(card model.NotificationCard) *Composer {
	return &Composer{
		card:  card,
		state: StateInitial,
		draft: NewDraft(),
		meta:  model.CustomReplyMetadata(),
	}
}

// Card returns the card this composer drafts a reply for.
func (c *Composer) Card() model.NotificationCard {
	return c.card
}

// State returns the current step.
func (c *Composer) State() State {
	return c.state
}

// Draft returns a snapshot of the current draft.
func (c *Composer) Draft() Draft {
	return NewDraft(c.draft.msgs...)
}

// Meta returns the metadata that will accompany a sent draft.
func (c *Composer) Meta() model.ReplyMetadata {
	return c.meta
}

// CanSend reports whether Send would produce a decision.
func (c *Composer) CanSend() bool {
	return c.state == StateComposing && c.draft.Valid()
}

// Reply opens the option grid.
func (c *Composer) Reply() error {
	if err := c.expect("reply", StateInitial); err != nil {
		return err
	}
	c.state = StateSelecting
	return nil
}

// Ignore dismisses the card without replying.
func (c *Composer) Ignore() (Decision, error) {
	if err := c.expect("ignore", StateInitial); err != nil {
		return Decision{}, err
	}
	c.reset()
	return Decision{Kind: DecisionIgnore, CardID: c.card.ID}, nil
}

// Select replies with option i exactly as authored. The draft is not
// touched and blank bubbles are not filtered.
func (c *Composer) Select(i int) (Decision, error) {
	if err := c.expect("select", StateSelecting); err != nil {
		return Decision{}, err
	}
	opt, err := c.option(i)
	if err != nil {
		return Decision{}, err
	}
	c.reset()
	return Decision{
		Kind:     DecisionReply,
		CardID:   c.card.ID,
		Messages: opt.Messages(),
		Meta:     opt.Metadata(),
	}, nil
}

// Edit opens the composer on a copy of option i.
func (c *Composer) Edit(i int) error {
	if err := c.expect("edit", StateSelecting); err != nil {
		return err
	}
	opt, err := c.option(i)
	if err != nil {
		return err
	}
	c.draft = NewDraft(opt.Text...)
	c.meta = opt.Metadata()
	c.state = StateComposing
	return nil
}

// Custom opens the composer on a single empty bubble.
func (c *Composer) Custom() error {
	if err := c.expect("custom", StateSelecting); err != nil {
		return err
	}
	c.draft = NewDraft()
	c.meta = model.CustomReplyMetadata()
	c.state = StateComposing
	return nil
}

// Back discards the draft and returns to the option grid.
func (c *Composer) Back() error {
	if err := c.expect("back", StateComposing); err != nil {
		return err
	}
	c.draft = NewDraft()
	c.meta = model.CustomReplyMetadata()
	c.state = StateSelecting
	return nil
}

// Cancel returns to StateInitial from any state, discarding the draft.
func (c *Composer) Cancel() {
	c.reset()
}

// Send replies with the non-blank bubbles of the draft. An all-blank
// draft is not an error: ok is false and nothing changes.
func (c *Composer) Send() (d Decision, ok bool, err error) {
	if err := c.expect("send", StateComposing); err != nil {
		return Decision{}, false, err
	}
	if !c.draft.Valid() {
		return Decision{}, false, nil
	}
	d = Decision{
		Kind:     DecisionReply,
		CardID:   c.card.ID,
		Messages: c.draft.Clean(),
		Meta:     c.meta,
	}
	c.reset()
	return d, true, nil
}

// UpdateMessage sets the text of bubble i.
func (c *Composer) UpdateMessage(i int, text string) error {
	if err := c.expect("update", StateComposing); err != nil {
		return err
	}
	return c.draft.Update(i, text)
}

// AddBubble appends an empty bubble to the draft.
func (c *Composer) AddBubble() error {
	if err := c.expect("add bubble", StateComposing); err != nil {
		return err
	}
	c.draft.Add()
	return nil
}

// RemoveBubble deletes bubble i, or clears it if it is the last one.
func (c *Composer) RemoveBubble(i int) error {
	if err := c.expect("remove bubble", StateComposing); err != nil {
		return err
	}
	return c.draft.Remove(i)
}

func (c *Composer) expect(action string, want State) error {
	if c.state != want {
		return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, action, c.state)
	}
	return nil
}

func (c *Composer) option(i int) (model.ReplyOption, error) {
	if i < 0 || i >= len(c.card.ReplyOptions) {
		return model.ReplyOption{}, fmt.Errorf(
			"option index %d out of range [0,%d)", i, len(c.card.ReplyOptions),
		)
	}
	return c.card.ReplyOptions[i], nil
}

func (c *Composer) reset() {
	c.state = StateInitial
	c.draft = NewDraft()
	c.meta = model.CustomReplyMetadata()
}
