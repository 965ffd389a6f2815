package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/nhle/replydeck/internal/credential"
	"github.com/nhle/replydeck/internal/hub"
	"github.com/nhle/replydeck/internal/ingest"
	"github.com/nhle/replydeck/internal/logging"
	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/outbox"
	"github.com/nhle/replydeck/internal/relay"
	"github.com/nhle/replydeck/internal/server"
	"github.com/nhle/replydeck/internal/store"
)

func serveCmd(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the notification hub and generation relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logging.Setup(cfg.Log, os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, cfg *model.AppConfig) error {
	st, err := store.Open(ctx, cfg.Server)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	sender, err := newSender(cfg.Telegram)
	if err != nil {
		return err
	}
	var ingestor *ingest.Worker
	if cfg.Ingest.Enabled {
		if ingestor, err = newIngestor(ctx, cfg); err != nil {
			return err
		}
		sender = ingestor.Recorder(sender)
	}
	queue := outbox.NewQueue(sender, 0)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	go queue.Run(workerCtx)

	h := hub.New(st, hub.NewBroker(16), queue)

	ingestCtx, stopIngest := context.WithCancel(ctx)
	ingestDone := make(chan struct{})
	go func() {
		defer close(ingestDone)
		if ingestor == nil {
			return
		}
		if err := ingestor.Run(ingestCtx, h); err != nil {
			slog.Error("ingest stopped", "error", err)
		}
	}()

	srv := server.New(st, h, relay.NewHandler(newGenerator(ctx), cfg.AI.Model), server.Options{
		KeepAlive: time.Duration(cfg.Server.KeepAliveSec) * time.Second,
	})

	err = srv.ListenAndServe(ctx, cfg.Server.Addr)
	stopIngest()
	<-ingestDone

	// Let replies accepted before shutdown finish sending.
	drained := make(chan struct{})
	go func() {
		queue.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(30 * time.Second):
		slog.Warn("outbox still busy at exit")
	}
	stopWorker()
	return err
}

func newSender(cfg model.TelegramConfig) (outbox.Sender, error) {
	if !cfg.Enabled {
		slog.Info("telegram disabled, replies are only logged")
		return outbox.LogSender{}, nil
	}
	token, err := credential.Lookup(credential.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram enabled but no bot token: %w", err)
	}
	return outbox.NewTelegramSender(token, cfg.Pacing)
}

func newIngestor(ctx context.Context, cfg *model.AppConfig) (*ingest.Worker, error) {
	token, err := credential.Lookup(credential.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ingest enabled but no bot token: %w", err)
	}
	key, err := credential.Lookup(credential.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("ingest enabled but no gemini key: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	sum, err := ingest.NewGeminiSummarizer(ctx, key, cfg.AI.Model)
	if err != nil {
		return nil, err
	}
	return ingest.New(bot, sum, ingest.Options{
		Debounce:     time.Duration(cfg.Ingest.DebounceSec) * time.Second,
		HistoryLimit: cfg.Ingest.HistoryLimit,
		Muted:        cfg.Ingest.MutedChats,
		OmitGroups:   cfg.Ingest.OmitGroups,
	}), nil
}

func newGenerator(ctx context.Context) relay.Generator {
	key, err := credential.Lookup(credential.GeminiAPIKey)
	if errors.Is(err, credential.ErrNotFound) {
		err = relay.ErrNoAPIKey
	}
	if err == nil {
		var gen *relay.GeminiGenerator
		if gen, err = relay.NewGeminiGenerator(ctx, key); err == nil {
			return gen
		}
	}
	slog.Warn("generation disabled", "error", err)
	return relay.Unavailable(err)
}
