// Package main is the entry point for the Parley demo application.
package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"Parley/pkg/backends"
	"Parley/pkg/cache"
	"Parley/pkg/core"
	"Parley/pkg/logging"
	"Parley/pkg/models"
	"Parley/pkg/session"
)

// App wires one conversation view over the mock backend: a session, the
// message cache and a terminal renderer driven by session callbacks.
type App struct {
	log      zerolog.Logger
	closeLog func() error
	backend  *backends.MockBackend
	cache    *cache.Cache
	session  *session.Session

	conversationID string
	localUser      models.Sender

	mu      sync.Mutex
	renders int
}

// NewApp creates the demo application for one conversation.
func NewApp(conversationID string) *App {
	return &App{
		conversationID: conversationID,
		localUser:      models.Sender{UID: "me", Name: "Me"},
	}
}

// Startup initializes logging, the cache and the backend, then opens the
// session. Cache failures are logged and tolerated; the session runs without
// persistence.
func (a *App) Startup() error {
	log, closeLog, err := logging.NewFileLogger("app", a.conversationID)
	if err != nil {
		log = logging.New(os.Stderr, "app")
		closeLog = func() error { return nil }
	}
	a.log = log
	a.closeLog = closeLog

	if err := logging.CleanupOldLogs(7); err != nil {
		a.log.Warn().Err(err).Msg("log cleanup failed")
	}

	c, err := cache.OpenDefault()
	if err != nil {
		a.log.Warn().Err(err).Msg("cache unavailable, running without persistence")
	} else {
		a.cache = c
	}

	cfg := make(core.BackendConfig)
	cfg.Set("reply_delay_ms", 800)
	a.backend = backends.NewMockBackend(cfg, logging.New(os.Stderr, "mock"))
	a.backend.Seed(a.conversationID, core.RawSender{UID: a.conversationID, Name: "Peer"}, 40)

	s, err := session.New(a.backend, a.conversationID, session.Options{
		LocalUser: a.localUser,
		Cache:     a.cache,
		Logger:    a.log,
		OnUpdate:  a.scheduleRender,
		OnSendFailed: func(localID string, err error) {
			a.log.Error().Err(err).Str("local_id", localID).Msg("send failed")
		},
		OnError: func(op string, err error) {
			a.log.Error().Err(err).Str("op", op).Msg("intent failed, change reverted")
		},
		OnGroupChange: func(ev core.GroupChangeEvent) {
			a.log.Info().
				Str("change", string(ev.ChangeType)).
				Str("participant", ev.ParticipantID).
				Msg("group changed")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	a.session = s
	return nil
}

// scheduleRender runs on the session goroutine, so it only flags that a
// repaint is due; Render reads the snapshots from the caller's goroutine.
func (a *App) scheduleRender() {
	a.mu.Lock()
	a.renders++
	a.mu.Unlock()
}

// Render paints the current conversation snapshot to stdout.
func (a *App) Render() {
	msgs := a.session.Messages()
	typing := a.session.Typing()

	a.mu.Lock()
	updates := a.renders
	a.mu.Unlock()

	fmt.Printf("--- %s (%d messages, %d updates) ---\n", a.conversationID, len(msgs), updates)
	start := 0
	if len(msgs) > 10 {
		start = len(msgs) - 10
	}
	for _, m := range msgs[start:] {
		a.renderMessage(m)
	}
	if len(typing) > 0 {
		names := make([]string, 0, len(typing))
		for _, t := range typing {
			names = append(names, t.UserName)
		}
		fmt.Printf("  %s typing...\n", strings.Join(names, ", "))
	}
}

func (a *App) renderMessage(m models.Message) {
	marker := " "
	if m.IsLocalOnly {
		marker = "~"
	}
	line := fmt.Sprintf("%s [%s] %s: %s", marker,
		time.UnixMilli(m.SentAt).Format("15:04"), m.Sender.Name, m.Text)
	if m.EditedAt > 0 && !m.IsDeleted {
		line += " (edited)"
	}
	if m.ThreadCount > 0 {
		line += fmt.Sprintf(" [%d replies]", m.ThreadCount)
	}
	for _, r := range m.Reactions {
		line += fmt.Sprintf(" %s%d", r.Emoji, r.Count)
	}
	if m.Status == models.StatusSeen && m.Sender.UID == a.localUser.UID {
		line += " ✓✓"
	}
	fmt.Println(line)
}

// Shutdown tears the session down and releases the logger.
func (a *App) Shutdown() {
	if a.session != nil {
		a.session.Close()
	}
	if a.backend != nil {
		a.backend.Stop()
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}
