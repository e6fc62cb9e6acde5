package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	tea "github.com/charmbracelet/bubbletea"

	"claudewatch/internal/broadcast"
	"claudewatch/internal/runtime"
	"claudewatch/internal/types"
	"claudewatch/internal/ui"
	"claudewatch/internal/usage"
	"claudewatch/internal/watcher"
)

const (
	surfaceBuffer   = 256
	shutdownTimeout = 2 * time.Second
)

// =============================================================================
// SERVE - source, surfaces and front end under one errgroup
// =============================================================================

// serve runs the event source, every enabled surface and the front end.
// It returns when ctx is done, the dashboard quits or a component fails.
func (a *App) serve(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// Surfaces subscribe before the source starts so no envelope is missed.
	if a.journal != nil {
		envs, unsubscribe := a.rt.Subscribe(surfaceBuffer)
		g.Go(func() error {
			defer unsubscribe()
			a.journal.Run(ctx, envs)
			return nil
		})
	}
	if a.cfg.WebSocketPort > 0 {
		a.serveWebSocket(ctx, g)
	}
	if a.mcpServer != nil {
		g.Go(optional("mcp", func() error { return a.mcpServer.Run(ctx) }))
	}
	if a.cfg.UsageCommand != "" {
		poller := usage.NewPoller(a.cfg.UsageCommand, a.cfg.UsageInterval, a.rt.Emit, nil)
		g.Go(optional("usage", func() error { return poller.Run(ctx) }))
	}

	if a.cfg.Headless {
		envs, unsubscribe := a.rt.Subscribe(surfaceBuffer)
		g.Go(func() error {
			defer unsubscribe()
			logEvents(ctx, envs)
			return nil
		})
	} else {
		g.Go(func() error {
			// quitting the dashboard stops everything else
			defer cancel()
			return a.runDashboard(ctx)
		})
	}

	if a.cfg.Follow != "" {
		g.Go(func() error {
			err := broadcast.Follow(ctx, a.cfg.Follow, a.rt.Emit)
			if err == nil && ctx.Err() == nil {
				log.Printf("[ws] upstream %s closed the stream", a.cfg.Follow)
			}
			return err
		})
	} else {
		a.watcher.Start(ctx)
		g.Go(func() error {
			<-ctx.Done()
			a.watcher.Stop()
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveWebSocket starts the broadcast hub and its HTTP listener.
func (a *App) serveWebSocket(ctx context.Context, g *errgroup.Group) {
	hub := broadcast.NewHub(a.slotsSnapshot)
	envs, unsubscribe := a.rt.Subscribe(surfaceBuffer)
	g.Go(func() error {
		defer unsubscribe()
		hub.Run(ctx, envs)
		return nil
	})

	addr := fmt.Sprintf(":%d", a.cfg.WebSocketPort)
	srv := &http.Server{Addr: addr, Handler: hub.Handler()}
	g.Go(optional("ws", func() error {
		log.Printf("[ws] listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("websocket server: %w", err)
		}
		return nil
	}))
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})
}

// optional wraps a surface so its failure is logged and leaves the source
// and the dashboard running.
func optional(name string, run func() error) func() error {
	return func() error {
		if err := run(); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[%s] disabled: %v", name, err)
		}
		return nil
	}
}

// slotsState is the body served at /slots.
type slotsState struct {
	Slots    []runtime.SlotSnapshot `json:"slots"`
	Watchers []watcher.SlotStatus   `json:"watchers,omitempty"`
}

func (a *App) slotsSnapshot() any {
	state := slotsState{Slots: a.rt.Slots()}
	if a.watcher != nil {
		state.Watchers = a.watcher.Status()
	}
	return state
}

// runDashboard runs the bubbletea dashboard until the user quits or ctx is done.
func (a *App) runDashboard(ctx context.Context) error {
	sub, unsubscribe := a.rt.Subscribe(surfaceBuffer)
	defer unsubscribe()

	model := ui.New(a.rt, sub, a.labels)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// logEvents writes every envelope to the log in headless mode.
func logEvents(ctx context.Context, envs <-chan types.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-envs:
			if !ok {
				return
			}
			logEnvelope(env)
		}
	}
}

func logEnvelope(env types.Envelope) {
	switch env.Type {
	case types.EnvelopeFile:
		log.Printf("[slot %d] following %s", env.Slot, env.Path)
	case types.EnvelopeNoFile:
		log.Printf("[slot %d] no session", env.Slot)
	case types.EnvelopeUsage:
		if u := env.Usage; u != nil {
			log.Printf("[usage] %d tokens, $%.2f total, %.0f tokens/min", u.TotalTokens, u.TotalCost, u.TokensPerMinute)
		}
	case types.EnvelopeEvent:
		if ev := env.Event; ev != nil {
			marker := ""
			switch {
			case ev.IsHistory:
				marker = " (history)"
			case ev.IsUpdate:
				marker = " (update)"
			}
			log.Printf("[slot %d] [%s]%s %s", env.Slot, ev.Kind, marker, ev.Content)
		}
	}
}
