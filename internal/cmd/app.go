package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/Lcking/throttle/internal/arbiter"
	"github.com/Lcking/throttle/internal/behavior"
	"github.com/Lcking/throttle/internal/config"
	"github.com/Lcking/throttle/internal/docdrift"
	"github.com/Lcking/throttle/internal/locale"
	"github.com/Lcking/throttle/internal/state"
)

// app bundles the wired runtime every command needs: resolved config,
// open stores, suppression state seeded from disk, and the terminal
// presenter.
type app struct {
	cfg       *config.Config
	strings   locale.Table
	workspace string

	settings  *state.Store
	events    *behavior.Store
	cooldowns *arbiter.CooldownGate
	dedupe    *arbiter.DedupeSet
	session   *arbiter.SessionMutes
	presenter *terminalPresenter
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	settings, err := state.Open(cfg.StateDBPath(), workspace)
	if err != nil {
		return nil, err
	}
	events, err := behavior.NewStore(cfg.BehaviorDBPath())
	if err != nil {
		settings.Close()
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		strings:   locale.Pick(cfg.Locale),
		workspace: workspace,
		settings:  settings,
		events:    events,
		cooldowns: arbiter.NewCooldownGate(arbiter.CooldownWindow),
		dedupe:    arbiter.NewDedupeSet(),
		session:   arbiter.NewSessionMutes(),
	}
	a.presenter = newTerminalPresenter(a.strings, os.Stdin, os.Stdout)

	// Cooldowns outlive the process; replay persisted fire times into the
	// gate so a fresh invocation honors the window.
	fired, err := settings.Cooldowns(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("loading persisted cooldowns")
	}
	for ruleID, t := range fired {
		a.cooldowns.Fired(ruleID, t)
	}

	return a, nil
}

func (a *app) Close() {
	if err := a.events.Close(); err != nil {
		log.Warn().Err(err).Msg("closing behavior store")
	}
	if err := a.settings.Close(); err != nil {
		log.Warn().Err(err).Msg("closing state store")
	}
}

// arbiter builds the pipeline, attaching the doc drift sentinel as the
// no-findings hook when enabled.
func (a *app) arbiter() *arbiter.Arbiter {
	var opts []arbiter.Option
	if a.cfg.DocDriftEnabled {
		sentinel := docdrift.New(a.workspace, a.cfg.Eval, a.presenter)
		opts = append(opts, arbiter.WithHook(func(ctx context.Context, prompt string) {
			sentinel.Check(prompt)
		}))
	}
	return arbiter.New(a.cfg, a.settings, a.events,
		a.cooldowns, a.dedupe, a.session, a.presenter, opts...)
}

// withApp wires the runtime, runs fn, and tears down.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
