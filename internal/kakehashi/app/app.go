// Package app wires the pipeline together and runs the chat message loop:
// resolve → dispatch → render, one goroutine per inbound message.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/kakehashi/kakehashi/common/redact"
	"github.com/kakehashi/kakehashi/common/trace"
	"github.com/kakehashi/kakehashi/internal/kakehashi/config"
	"github.com/kakehashi/kakehashi/internal/kakehashi/confluence"
	"github.com/kakehashi/kakehashi/internal/kakehashi/intent"
	"github.com/kakehashi/kakehashi/internal/kakehashi/jira"
	"github.com/kakehashi/kakehashi/internal/kakehashi/matrix"
	"github.com/kakehashi/kakehashi/internal/kakehashi/render"
	"github.com/kakehashi/kakehashi/internal/kakehashi/store"
	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

const clarificationMessage = "🤔 I couldn't map that to a tool call. " +
	"Say \"help\" to see what I can do."

// App owns every long-lived component of the bot process.
type App struct {
	cfg        *config.Config
	store      *store.Store
	matrix     *matrix.Client
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	resolver   intent.Resolver
}

// New builds the full pipeline from configuration. Backend adapters are only
// constructed for families running live; mock families need no client.
func New(cfg *config.Config) (*App, error) {
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	mx, err := matrix.New(&matrix.Config{
		Homeserver:  cfg.Matrix.Homeserver,
		UserID:      cfg.Matrix.UserID,
		AccessToken: cfg.Matrix.AccessToken,
		Rooms:       cfg.Matrix.Rooms,
		DB:          st.DB(),
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: create matrix client: %w", err)
	}

	regCfg := tools.RegistryConfig{
		TrackerMode: cfg.TrackerMode(),
		WikiMode:    cfg.WikiMode(),
	}
	if regCfg.TrackerMode == tools.Live {
		regCfg.Tracker = jira.New(jira.Config{
			BaseURL:  cfg.Tracker.URL,
			Email:    cfg.Tracker.Email,
			APIToken: cfg.Tracker.APIToken,
			Timeout:  cfg.BackendTimeout,
		})
	}
	if regCfg.WikiMode == tools.Live {
		regCfg.Wiki = confluence.New(confluence.Config{
			BaseURL:  cfg.Wiki.URL,
			Email:    cfg.Wiki.Email,
			APIToken: cfg.Wiki.APIToken,
			Timeout:  cfg.BackendTimeout,
		})
	}
	slog.Info("backend modes", "tracker", regCfg.TrackerMode, "wiki", regCfg.WikiMode)
	slog.Debug("tracker configuration", "settings", redact.Map(map[string]any{
		"url":       cfg.Tracker.URL,
		"email":     cfg.Tracker.Email,
		"api_token": cfg.Tracker.APIToken,
	}))
	slog.Debug("wiki configuration", "settings", redact.Map(map[string]any{
		"url":       cfg.Wiki.URL,
		"email":     cfg.Wiki.Email,
		"api_token": cfg.Wiki.APIToken,
	}))

	registry := tools.NewRegistry(regCfg)
	dispatcher, err := tools.NewDispatcher(registry)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: build dispatcher: %w", err)
	}

	var resolver intent.Resolver
	switch cfg.Resolver {
	case config.ResolverModel:
		resolver = intent.NewModelResolver(intent.ModelConfig{
			BaseURL: cfg.Model.URL,
			Model:   cfg.Model.Name,
			Timeout: cfg.Model.Timeout,
		}, registry.Catalog())
		slog.Info("intent resolver: model-assisted", "endpoint", cfg.Model.URL, "model", cfg.Model.Name)
	default:
		resolver = intent.NewTokenParser(registry.Catalog())
		slog.Info("intent resolver: positional parser")
	}

	return &App{
		cfg:        cfg,
		store:      st,
		matrix:     mx,
		registry:   registry,
		dispatcher: dispatcher,
		resolver:   resolver,
	}, nil
}

// Run starts the Matrix sync loop and blocks until an interrupt signal.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("starting Matrix sync")
	if err := a.matrix.Start(ctx, a.handleMessage); err != nil {
		return fmt.Errorf("app: start matrix client: %w", err)
	}

	for _, roomID := range a.cfg.Matrix.Rooms {
		if err := a.matrix.SendNotice(ctx, roomID,
			"✅ Kakehashi is up. Say \"help\" to list available tools."); err != nil {
			slog.Warn("startup notice failed", "room", roomID, "err", err)
		}
	}

	slog.Info("kakehashi is running; press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop tears the long-lived components down.
func (a *App) Stop() {
	a.matrix.Stop()
	if err := a.store.Close(); err != nil {
		slog.Warn("closing store", "err", err)
	}
}

// handleMessage runs the pipeline for one inbound room message. Each message
// gets its own goroutine so a slow backend call never stalls unrelated
// messages; the pipeline touches no shared mutable state.
func (a *App) handleMessage(_ context.Context, evt *event.Event) {
	msg := evt.Content.AsMessage()
	if msg == nil {
		return
	}
	text := msg.Body
	roomID := evt.RoomID.String()
	eventID := evt.ID.String()

	go func() {
		ctx := trace.WithID(context.Background(), trace.NewID())
		a.process(ctx, roomID, eventID, text)
	}()
}

func (a *App) process(ctx context.Context, roomID, eventID, text string) {
	slog.Info("message received",
		"trace_id", trace.FromContext(ctx),
		"room", roomID,
		"chars", len(text),
	)

	// The positional parser's grammar treats the first token as the bot
	// mention, so it receives the message untouched; the model resolver gets
	// the mention stripped so it does not leak into the prompt.
	message := text
	if a.cfg.Resolver == config.ResolverModel {
		message = stripMention(text, a.matrix.UserID())
	}

	call, err := a.resolver.Resolve(ctx, message)
	if err != nil {
		if errors.Is(err, intent.ErrNoMatch) {
			a.reply(ctx, roomID, eventID, clarificationMessage)
			return
		}
		a.reply(ctx, roomID, eventID, fmt.Sprintf("❌ Error: %s", err))
		return
	}

	if call.Tool == intent.ListToolsName {
		a.send(ctx, roomID, render.RenderCatalog(a.registry.Catalog()))
		return
	}

	if err := a.matrix.SendNotice(ctx, roomID,
		fmt.Sprintf("Got it! Calling %s…", call.Tool)); err != nil {
		slog.Warn("ack notice failed", "room", roomID, "err", err)
	}
	if err := a.matrix.SetTyping(ctx, roomID, true, 30*time.Second); err != nil {
		slog.Debug("typing indicator failed", "err", err)
	}
	defer a.matrix.SetTyping(ctx, roomID, false, 0)

	raw := make(map[string]any, len(call.Arguments))
	for k, v := range call.Arguments {
		raw[k] = v
	}
	result := a.dispatcher.Dispatch(ctx, call.Tool, raw)

	a.send(ctx, roomID, render.Render(call.Tool, result))
}

func (a *App) send(ctx context.Context, roomID, text string) {
	if err := a.matrix.SendFormattedMessage(ctx, roomID, markdownToHTML(text), text); err != nil {
		slog.Error("send response failed", "room", roomID, "err", err)
	}
}

func (a *App) reply(ctx context.Context, roomID, eventID, text string) {
	if err := a.matrix.ReplyToMessage(ctx, roomID, eventID, text); err != nil {
		slog.Error("send reply failed", "room", roomID, "err", err)
	}
}

// stripMention drops a leading bot mention so the model resolver sees only
// the request. Matrix clients render mentions as the display name or the
// full user ID followed by a colon.
func stripMention(text, userID string) string {
	trimmed := strings.TrimSpace(text)
	localpart := strings.TrimPrefix(strings.SplitN(userID, ":", 2)[0], "@")

	first, rest, found := strings.Cut(trimmed, " ")
	if !found {
		return trimmed
	}
	mention := strings.TrimSuffix(first, ":")
	if mention == userID || strings.EqualFold(strings.TrimPrefix(mention, "@"), localpart) {
		return strings.TrimSpace(rest)
	}
	return trimmed
}
