package composer

import (
	"errors"
	"slices"
	"testing"

	"github.com/nhle/replydeck/internal/model"
)

func testCard() model.NotificationCard {
	return model.NotificationCard{
		ID:     "card-1",
		ChatID: 42,
		Sender: "Alice",
		ReplyOptions: []model.ReplyOption{
			{Label: "Yes", Text: []string{"Sure, see you then"}, Sentiment: model.SentimentPositive},
			{Label: "Later", Text: []string{"can't now", "", "call you later"}, Sentiment: model.SentimentNeutral},
		},
	}
}

func TestInitialTransitions(t *testing.T) {
	c := New(testCard())
	if c.State() != StateInitial {
		t.Fatalf("expected initial state, got %s", c.State())
	}
	if err := c.Reply(); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if c.State() != StateSelecting {
		t.Fatalf("expected selecting, got %s", c.State())
	}
	c.Cancel()
	if c.State() != StateInitial {
		t.Fatalf("expected cancel to return to initial, got %s", c.State())
	}
}

func TestIgnoreFromInitial(t *testing.T) {
	c := New(testCard())
	d, err := c.Ignore()
	if err != nil {
		t.Fatalf("ignore: %v", err)
	}
	if d.Kind != DecisionIgnore || d.CardID != "card-1" {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.Messages != nil {
		t.Fatalf("ignore should carry no messages, got %v", d.Messages)
	}
}

func TestInvalidTransitionsLeaveStateUnchanged(t *testing.T) {
	c := New(testCard())
	if _, err := c.Select(0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for select in initial, got %v", err)
	}
	if err := c.Back(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for back in initial, got %v", err)
	}
	if _, _, err := c.Send(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for send in initial, got %v", err)
	}
	if c.State() != StateInitial {
		t.Fatalf("state changed to %s", c.State())
	}

	_ = c.Reply()
	if _, err := c.Ignore(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for ignore in selecting, got %v", err)
	}
	if c.State() != StateSelecting {
		t.Fatalf("state changed to %s", c.State())
	}
}

func TestSelectDispatchesOptionVerbatim(t *testing.T) {
	c := New(testCard())
	_ = c.Reply()
	d, err := c.Select(1)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := []string{"can't now", "", "call you later"}
	if !slices.Equal(d.Messages, want) {
		t.Fatalf("expected verbatim %q, got %q", want, d.Messages)
	}
	if d.Meta.IsCustom || d.Meta.Label != "Later" || d.Meta.Sentiment != model.SentimentNeutral {
		t.Fatalf("unexpected meta: %+v", d.Meta)
	}
	if c.State() != StateInitial {
		t.Fatalf("expected reset after dispatch, got %s", c.State())
	}
}

func TestSelectOutOfRange(t *testing.T) {
	c := New(testCard())
	_ = c.Reply()
	if _, err := c.Select(5); err == nil {
		t.Fatalf("expected out of range error")
	}
	if c.State() != StateSelecting {
		t.Fatalf("expected to stay selecting, got %s", c.State())
	}
}

func TestEditRoundTrip(t *testing.T) {
	card := testCard()
	c := New(card)
	_ = c.Reply()
	if err := c.Edit(0); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if c.State() != StateComposing {
		t.Fatalf("expected composing, got %s", c.State())
	}
	d, ok, err := c.Send()
	if err != nil || !ok {
		t.Fatalf("send: ok=%v err=%v", ok, err)
	}
	if !slices.Equal(d.Messages, []string{"Sure, see you then"}) {
		t.Fatalf("unexpected messages %q", d.Messages)
	}
	want := model.ReplyMetadata{Label: "Yes", Sentiment: model.SentimentPositive, IsCustom: false}
	if d.Meta != want {
		t.Fatalf("expected meta %+v, got %+v", want, d.Meta)
	}
}

func TestEditDoesNotMutateOption(t *testing.T) {
	card := testCard()
	c := New(card)
	_ = c.Reply()
	_ = c.Edit(0)
	if err := c.UpdateMessage(0, "changed"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if card.ReplyOptions[0].Text[0] != "Sure, see you then" {
		t.Fatalf("option mutated: %q", card.ReplyOptions[0].Text[0])
	}
	if c.Card().ReplyOptions[0].Text[0] != "Sure, see you then" {
		t.Fatalf("composer card mutated: %q", c.Card().ReplyOptions[0].Text[0])
	}
}

func TestCustomSendFiltersBlankBubbles(t *testing.T) {
	c := New(testCard())
	_ = c.Reply()
	if err := c.Custom(); err != nil {
		t.Fatalf("custom: %v", err)
	}
	if got := c.Meta(); got != model.CustomReplyMetadata() {
		t.Fatalf("unexpected custom meta %+v", got)
	}
	_ = c.UpdateMessage(0, "hello")
	_ = c.AddBubble()
	_ = c.AddBubble()
	_ = c.UpdateMessage(1, "  ")
	_ = c.UpdateMessage(2, "world")

	d, ok, err := c.Send()
	if err != nil || !ok {
		t.Fatalf("send: ok=%v err=%v", ok, err)
	}
	if !slices.Equal(d.Messages, []string{"hello", "world"}) {
		t.Fatalf("expected [hello world], got %q", d.Messages)
	}
	if !d.Meta.IsCustom || d.Meta.Label != "Custom Reply" {
		t.Fatalf("unexpected meta %+v", d.Meta)
	}
}

func TestSendBlankDraftIsNoop(t *testing.T) {
	c := New(testCard())
	_ = c.Reply()
	_ = c.Custom()
	_ = c.UpdateMessage(0, "   ")
	_, ok, err := c.Send()
	if err != nil {
		t.Fatalf("blank send should not error, got %v", err)
	}
	if ok {
		t.Fatalf("blank send should not produce a decision")
	}
	if c.State() != StateComposing {
		t.Fatalf("expected to stay composing, got %s", c.State())
	}
	if c.CanSend() {
		t.Fatalf("CanSend should be false for a blank draft")
	}
}

func TestBackDiscardsDraft(t *testing.T) {
	c := New(testCard())
	_ = c.Reply()
	_ = c.Edit(1)
	if c.Draft().Len() != 3 {
		t.Fatalf("expected 3 bubbles, got %d", c.Draft().Len())
	}
	if err := c.Back(); err != nil {
		t.Fatalf("back: %v", err)
	}
	if c.State() != StateSelecting {
		t.Fatalf("expected selecting, got %s", c.State())
	}
	if c.Draft().Len() != 1 || c.Draft().At(0) != "" {
		t.Fatalf("draft not discarded: %q", c.Draft().Messages())
	}
}

func TestCancelFromComposingResets(t *testing.T) {
	c := New(testCard())
	_ = c.Reply()
	_ = c.Custom()
	_ = c.UpdateMessage(0, "draft text")
	c.Cancel()
	if c.State() != StateInitial {
		t.Fatalf("expected initial, got %s", c.State())
	}
	if c.Draft().Valid() {
		t.Fatalf("draft should be cleared after cancel")
	}
}

func TestComposersDoNotShareDrafts(t *testing.T) {
	a := New(testCard())
	b := New(testCard())
	for _, c := range []*Composer{a, b} {
		_ = c.Reply()
		_ = c.Custom()
	}
	_ = a.UpdateMessage(0, "only in a")
	if b.Draft().At(0) != "" {
		t.Fatalf("draft leaked between composers: %q", b.Draft().At(0))
	}
}
