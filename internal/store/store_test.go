package store_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/store"
	"github.com/nhle/replydeck/internal/testutil"
)

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) store.Store { return testutil.NewTestStore(t) })
}

func TestPostgresStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) store.Store { return testutil.NewPostgresStore(t) })
}

func runStoreSuite(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("PromptDefaults", func(t *testing.T) { testPromptDefaults(t, open(t)) })
	t.Run("PromptUpdate", func(t *testing.T) { testPromptUpdate(t, open(t)) })
	t.Run("PromptDelete", func(t *testing.T) { testPromptDelete(t, open(t)) })
	t.Run("Cards", func(t *testing.T) { testCards(t, open(t)) })
	t.Run("CardCalendar", func(t *testing.T) { testCardCalendar(t, open(t)) })
	t.Run("ReplyLog", func(t *testing.T) { testReplyLog(t, open(t)) })
}

func testPromptDefaults(t *testing.T, s store.Store) {
	ctx := context.Background()

	created, err := s.CreatePrompt(ctx, model.PromptTemplate{SystemPrompt: "be terse"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("id and createdAt must be assigned: %+v", created)
	}
	if created.Title != model.DefaultPromptTitle || created.Summary != model.DefaultPromptSummary {
		t.Fatalf("defaults not applied: %+v", created)
	}
	if created.Model != model.DefaultPromptModel {
		t.Fatalf("expected default model, got %q", created.Model)
	}
	if !slices.Equal(created.Inputs, []model.InputType{model.InputText}) {
		t.Fatalf("expected text input, got %v", created.Inputs)
	}

	got, err := s.GetPrompt(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SystemPrompt != "be terse" || got.Title != created.Title {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	list, err := s.ListPrompts(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}
}

func TestCreatePromptIgnoresClientID(t *testing.T) {
	s := testutil.NewTestStore(t)
	p, err := s.CreatePrompt(context.Background(), model.PromptTemplate{ID: "mine", Title: "T"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "mine" {
		t.Fatalf("server must assign the id")
	}
}

func testPromptUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, err := s.CreatePrompt(ctx, model.PromptTemplate{
		Title:        "Old",
		SystemPrompt: "keep me",
		AddSysPrompt: []string{"be kind"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "New"
	inputs := []model.InputType{model.InputText, model.InputImage}
	updated, err := s.UpdatePrompt(ctx, created.ID, model.PromptPatch{Title: &title, Inputs: &inputs})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "New" || updated.SystemPrompt != "keep me" {
		t.Fatalf("patch not merged: %+v", updated)
	}
	if !slices.Equal(updated.AddSysPrompt, []string{"be kind"}) {
		t.Fatalf("untouched field changed: %v", updated.AddSysPrompt)
	}

	got, _ := s.GetPrompt(ctx, created.ID)
	if !got.Accepts(model.InputImage) || got.Title != "New" {
		t.Fatalf("update not persisted: %+v", got)
	}

	_, err = s.UpdatePrompt(ctx, "missing", model.PromptPatch{Title: &title})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testPromptDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, _ := s.CreatePrompt(ctx, model.PromptTemplate{Title: "x"})

	if err := s.DeletePrompt(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeletePrompt(ctx, created.ID); err != nil {
		t.Fatalf("deleting twice should succeed: %v", err)
	}
	if _, err := s.GetPrompt(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testCards(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cards := []model.NotificationCard{
		{ID: "old", ChatID: 1, Sender: "Ann", Urgency: model.UrgencyLow, Timestamp: base},
		{ID: "new", ChatID: 2, Sender: "Bo", Urgency: model.UrgencyHigh, Timestamp: base.Add(time.Minute),
			ReplyOptions: []model.ReplyOption{
				{Label: "Ok", Text: []string{"ok", "👍"}, Sentiment: model.SentimentPositive},
			},
			ConversationHistory: []string{"Bo: lunch?"},
		},
	}
	for _, c := range cards {
		if err := s.SaveCard(ctx, c); err != nil {
			t.Fatalf("save %s: %v", c.ID, err)
		}
	}

	list, err := s.ListCards(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if !slices.Equal(list[0].ReplyOptions[0].Text, []string{"ok", "👍"}) {
		t.Fatalf("reply options not preserved: %+v", list[0].ReplyOptions)
	}
	if !list[0].Timestamp.Equal(base.Add(time.Minute)) {
		t.Fatalf("timestamp not preserved: %v", list[0].Timestamp)
	}

	byChat, err := s.CardsForChat(ctx, 2)
	if err != nil || len(byChat) != 1 || byChat[0].ID != "new" {
		t.Fatalf("cards for chat: %+v %v", byChat, err)
	}

	deleted, err := s.DeleteCard(ctx, "old")
	if err != nil || !deleted {
		t.Fatalf("expected delete, got %v %v", deleted, err)
	}
	deleted, err = s.DeleteCard(ctx, "old")
	if err != nil || deleted {
		t.Fatalf("second delete should report false, got %v %v", deleted, err)
	}
	if _, err := s.GetCard(ctx, "old"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testCardCalendar(t *testing.T, s store.Store) {
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := model.CalendarEvent{Title: "Dentist", Datetime: "2026-03-04T09:30:00Z", Duration: 45, EventType: "Misc"}

	if err := s.SaveCard(ctx, model.NotificationCard{ID: "cal", ChatID: 1, Urgency: model.UrgencyMedium,
		SuggestedAction: model.ActionCalendar, CalendarDetails: &event, Timestamp: ts}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveCard(ctx, model.NotificationCard{ID: "plain", ChatID: 2, Urgency: model.UrgencyLow, Timestamp: ts}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetCard(ctx, "cal")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CalendarDetails == nil || *got.CalendarDetails != event {
		t.Fatalf("calendar details not preserved: %+v", got.CalendarDetails)
	}
	plain, err := s.GetCard(ctx, "plain")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if plain.CalendarDetails != nil {
		t.Fatalf("expected no calendar details, got %+v", plain.CalendarDetails)
	}
}

func testReplyLog(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []model.ReplyLogEntry{
		{CardID: "a", ChatID: 1, History: []string{"hi"}, ChosenReply: []string{"hey"},
			Meta: model.CustomReplyMetadata(), CreatedAt: first},
		{CardID: "b", ChatID: 2, ChosenReply: []string{"no"},
			Meta: model.ReplyMetadata{Label: "Decline", Sentiment: model.SentimentNegative}, CreatedAt: first.Add(time.Second)},
	}
	for _, e := range entries {
		if err := s.AppendReplyLog(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.ListReplyLog(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].CardID != "b" || got[0].Meta.Sentiment != model.SentimentNegative {
		t.Fatalf("unexpected entries %+v", got)
	}

	all, _ := s.ListReplyLog(ctx, 0)
	if len(all) != 2 || !all[1].Meta.IsCustom || all[1].ID == "" {
		t.Fatalf("unexpected entries %+v", all)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := store.Open(context.Background(), model.ServerConfig{StoreDriver: "mysql"})
	if err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
