// Package arbiter orchestrates one submission through the pre-flight
// pipeline: resolve mode and tier, evaluate the rule catalogue, apply
// mute/cooldown/dedupe suppression, present at most one nudge, and record
// the outcome in the behavior log.
//
// The pipeline is a literal state machine that runs exactly once per
// submission and holds no cross-invocation state beyond what it explicitly
// persists. Evaluation itself cannot fail; only interactive resolution steps
// can fail, by cancellation, and cancellation always aborts with no side
// effects.
package arbiter

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Lcking/throttle/internal/behavior"
	"github.com/Lcking/throttle/internal/config"
	throttleotel "github.com/Lcking/throttle/internal/otel"
	"github.com/Lcking/throttle/internal/override"
	"github.com/Lcking/throttle/internal/rules"
	"github.com/Lcking/throttle/internal/state"
)

var tracer = throttleotel.Tracer("github.com/Lcking/throttle/internal/arbiter")

// State names the terminal state a submission ended in.
type State string

const (
	StateDisabled       State = "disabled"
	StateAwaitingPrompt State = "awaiting_prompt"
	StateResolving      State = "resolving"
	StateEvaluating     State = "evaluating"
	StateSuppressing    State = "suppressing"
	StateGating         State = "gating"
	StateCooldown       State = "cooldown"
	StateDedupe         State = "dedupe"
	StateRecording      State = "recording"
	StatePresenting     State = "presenting"
	StateActing         State = "acting"
)

// Settings is the persisted-state surface the arbiter needs.
type Settings interface {
	Mode(ctx context.Context) (rules.Mode, bool, error)
	SetMode(ctx context.Context, mode rules.Mode) error
	ModelTier(ctx context.Context) (rules.ModelTier, bool, error)
	SetModelTier(ctx context.Context, tier rules.ModelTier) error
	MutedRules(ctx context.Context, scope state.Scope) ([]string, error)
	MuteRule(ctx context.Context, scope state.Scope, ruleID string) error
	SetLastHit(ctx context.Context, ruleID string) error
	SetCooldown(ctx context.Context, ruleID string, t time.Time) error
	RuleSeen(ctx context.Context, ruleID string) (bool, error)
	MarkRuleSeen(ctx context.Context, ruleID string) error
}

// Recorder appends behavior events.
type Recorder interface {
	Record(ctx context.Context, event behavior.Event) error
}

// Hook is the non-governance collaborator invoked when evaluation produced
// nothing to show (e.g. the doc-drift sentinel).
type Hook func(ctx context.Context, prompt string)

// Outcome describes where a submission terminated.
type Outcome struct {
	State  State
	Mode   rules.Mode
	Tier   rules.ModelTier
	Result *rules.Result
	Action Action
}

// Presented reports whether a nudge reached the user.
func (o Outcome) Presented() bool {
	return o.State == StateActing
}

// Arbiter runs submissions. Construct with New; all collaborators are
// injected so the state machine is testable without a UI or databases.
type Arbiter struct {
	cfg       *config.Config
	settings  Settings
	recorder  Recorder
	cooldowns *CooldownGate
	dedupe    *DedupeSet
	session   *SessionMutes
	presenter Presenter
	hook      Hook

	now         func() time.Time
	fingerprint func() string
}

// Option tweaks an Arbiter, mostly for tests.
type Option func(*Arbiter)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(a *Arbiter) { a.now = now }
}

// WithFingerprint replaces the working-context fingerprint function.
func WithFingerprint(fn func() string) Option {
	return func(a *Arbiter) { a.fingerprint = fn }
}

// WithHook sets the no-findings collaborator hook.
func WithHook(hook Hook) Option {
	return func(a *Arbiter) { a.hook = hook }
}

// New wires an arbiter. cooldowns, dedupe, and session are owned by the
// caller so their lifetime (process-wide, explicitly clearable) is visible
// at the call site.
func New(cfg *config.Config, settings Settings, recorder Recorder,
	cooldowns *CooldownGate, dedupe *DedupeSet, session *SessionMutes,
	presenter Presenter, opts ...Option) *Arbiter {
	a := &Arbiter{
		cfg:       cfg,
		settings:  settings,
		recorder:  recorder,
		cooldowns: cooldowns,
		dedupe:    dedupe,
		session:   session,
		presenter: presenter,
		now:       time.Now,
		fingerprint: func() string {
			wd, err := os.Getwd()
			if err != nil {
				return ""
			}
			return WorkingContextFingerprint(wd)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit runs the full pipeline for one raw prompt and returns the terminal
// outcome. It never returns an error: every failure mode is either a silent
// abort (cancellation) or a degraded continuation (storage warnings).
func (a *Arbiter) Submit(ctx context.Context, rawPrompt string) Outcome {
	ctx, span := tracer.Start(ctx, "arbiter.submit")
	defer span.End()

	outcome := a.run(ctx, rawPrompt)

	span.SetAttributes(attribute.String("arbiter.state", string(outcome.State)))
	if outcome.Result != nil {
		span.SetAttributes(
			attribute.String("arbiter.rule_id", outcome.Result.RuleID),
			attribute.Float64("arbiter.confidence", outcome.Result.Confidence),
		)
	}
	log.Debug().
		Str("state", string(outcome.State)).
		Str("action", string(outcome.Action)).
		Func(throttleotel.LogTraceFields(ctx)).
		Msg("submission settled")
	return outcome
}

func (a *Arbiter) run(ctx context.Context, rawPrompt string) Outcome {
	if !a.cfg.Enabled {
		a.presenter.NotifyDisabled()
		return Outcome{State: StateDisabled}
	}

	overrides := override.Parse(rawPrompt)
	if overrides.Prompt == "" {
		return Outcome{State: StateAwaitingPrompt}
	}

	mode, tier, ok := a.resolve(ctx, overrides)
	if !ok {
		return Outcome{State: StateResolving, Mode: mode, Tier: tier}
	}

	results := rules.Evaluate(rules.Context{
		Mode:   mode,
		Prompt: overrides.Prompt,
		Model:  rules.ModelInfo{Tier: tier},
	}, a.cfg.Eval)

	survivors := a.unmuted(ctx, results)
	if len(survivors) == 0 {
		if a.hook != nil {
			a.hook(ctx, overrides.Prompt)
		}
		return Outcome{State: StateSuppressing, Mode: mode, Tier: tier}
	}

	// The first surviving result wins; the display threshold is stricter
	// than per-rule tuning and suppresses borderline nudges at display time.
	winner := survivors[0]
	if winner.Confidence < a.cfg.MinDisplayConfidence {
		return Outcome{State: StateGating, Mode: mode, Tier: tier, Result: &winner}
	}

	now := a.now()
	if !a.cooldowns.Ready(winner.RuleID, now) {
		return Outcome{State: StateCooldown, Mode: mode, Tier: tier, Result: &winner}
	}

	fingerprint := a.fingerprint()
	if a.dedupe.Seen(winner.RuleID, fingerprint) {
		return Outcome{State: StateDedupe, Mode: mode, Tier: tier, Result: &winner}
	}

	fullDetail := a.record(ctx, winner, now, fingerprint)

	action, ok := a.presenter.PresentNudge(Nudge{
		Result:        winner,
		Mode:          mode,
		Tier:          tier,
		FullDetail:    fullDetail,
		OfferTemplate: winner.MismatchAxis != "",
	})
	if !ok {
		// Dismissing the nudge is a decision too.
		action = ActionContinue
	}

	a.act(ctx, winner, action)
	return Outcome{State: StateActing, Mode: mode, Tier: tier, Result: &winner, Action: action}
}

// resolve determines mode and tier: inline override, then stored value,
// then an interactive pick. Overrides that differ from the stored value are
// persisted as the new default. ok=false means the user cancelled.
func (a *Arbiter) resolve(ctx context.Context, overrides override.Overrides) (rules.Mode, rules.ModelTier, bool) {
	stored, hasStored, err := a.settings.Mode(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("reading stored mode")
	}

	var mode rules.Mode
	switch {
	case overrides.Mode != nil:
		mode = *overrides.Mode
		if !hasStored || stored != mode {
			a.persistMode(ctx, mode)
		}
	case hasStored:
		mode = stored
	default:
		picked, ok := a.presenter.PickMode(a.cfg.DefaultMode)
		if !ok {
			return "", "", false
		}
		mode = picked
		a.persistMode(ctx, mode)
	}

	storedTier, hasTier, err := a.settings.ModelTier(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("reading stored tier")
	}

	var tier rules.ModelTier
	switch {
	case overrides.Tier != nil:
		tier = *overrides.Tier
		if !hasTier || storedTier != tier {
			a.persistTier(ctx, tier)
		}
	case hasTier:
		tier = storedTier
	default:
		picked, ok := a.presenter.PickTier(defaultTier(mode))
		if !ok {
			return mode, "", false
		}
		tier = picked
		a.persistTier(ctx, tier)
	}

	return mode, tier, true
}

// defaultTier suggests a tier for modes that have no stored preference:
// planning defaults to standard, everything else to light.
func defaultTier(mode rules.Mode) rules.ModelTier {
	if mode == rules.ModePlan {
		return rules.TierStandard
	}
	return rules.TierLight
}

// unmuted filters out results whose rule is muted in any scope. The
// evaluator still returned them; suppression is a display concern.
func (a *Arbiter) unmuted(ctx context.Context, results []rules.Result) []rules.Result {
	muted := make(map[string]bool)
	for _, id := range a.session.List() {
		muted[id] = true
	}
	for _, scope := range []state.Scope{state.ScopeGlobal, state.ScopeWorkspace} {
		ids, err := a.settings.MutedRules(ctx, scope)
		if err != nil {
			log.Warn().Err(err).Str("scope", string(scope)).Msg("reading mute set")
			continue
		}
		for _, id := range ids {
			muted[id] = true
		}
	}

	var kept []rules.Result
	for _, result := range results {
		if !muted[result.RuleID] {
			kept = append(kept, result)
		}
	}
	return kept
}

// record commits the hit: behavior events, last-hit marker, seen-detail
// marker, cooldown token, dedupe key. Returns whether full detail should be
// shown (first sighting of the rule). Storage failures degrade to warnings;
// the pipeline continues.
func (a *Arbiter) record(ctx context.Context, winner rules.Result, now time.Time, fingerprint string) (fullDetail bool) {
	a.recordEvent(ctx, behavior.Event{Timestamp: now, Type: behavior.EventHit, RuleID: winner.RuleID})
	if categoryEvent, ok := behavior.CategoryEvent(winner.Category); ok {
		a.recordEvent(ctx, behavior.Event{Timestamp: now, Type: categoryEvent, RuleID: winner.RuleID})
	}

	if err := a.settings.SetLastHit(ctx, winner.RuleID); err != nil {
		log.Warn().Err(err).Msg("persisting last hit")
	}

	seen, err := a.settings.RuleSeen(ctx, winner.RuleID)
	if err != nil {
		log.Warn().Err(err).Msg("reading seen rules")
	}
	if !seen {
		if err := a.settings.MarkRuleSeen(ctx, winner.RuleID); err != nil {
			log.Warn().Err(err).Msg("marking rule seen")
		}
	}

	a.cooldowns.Fired(winner.RuleID, now)
	if err := a.settings.SetCooldown(ctx, winner.RuleID, now); err != nil {
		log.Warn().Err(err).Msg("persisting cooldown")
	}
	if fingerprint != "" {
		a.dedupe.Mark(winner.RuleID, fingerprint)
	}
	return !seen
}

// act applies the chosen action's state change and records the matching
// behavior event.
func (a *Arbiter) act(ctx context.Context, winner rules.Result, action Action) {
	now := a.now()
	switch action {
	case ActionSwitchAsk:
		if err := a.settings.SetMode(ctx, rules.ModeAsk); err != nil {
			log.Warn().Err(err).Msg("switching mode to ask")
		}
		a.recordEvent(ctx, behavior.Event{Timestamp: now, Type: behavior.EventSwitchAsk, RuleID: winner.RuleID})

	case ActionSwitchLight:
		if err := a.settings.SetModelTier(ctx, rules.TierLight); err != nil {
			log.Warn().Err(err).Msg("switching tier to light")
		}
		a.recordEvent(ctx, behavior.Event{Timestamp: now, Type: behavior.EventSwitchLight, RuleID: winner.RuleID})

	case ActionChangeMode:
		picked, ok := a.presenter.PickMode(a.cfg.DefaultMode)
		if !ok {
			a.recordEvent(ctx, behavior.Event{Timestamp: now, Type: behavior.EventContinue, RuleID: winner.RuleID})
			return
		}
		a.persistMode(ctx, picked)
		a.recordEvent(ctx, behavior.Event{Timestamp: now, Type: behavior.EventChangeMode, RuleID: winner.RuleID})

	case ActionMuteRule:
		scope, ok := a.presenter.PickMuteScope()
		if !ok {
			a.recordEvent(ctx, behavior.Event{Timestamp: now, Type: behavior.EventContinue, RuleID: winner.RuleID})
			return
		}
		a.mute(ctx, winner.RuleID, scope)
		a.recordEvent(ctx, behavior.Event{Timestamp: now, Type: behavior.EventMuteRule, RuleID: winner.RuleID})

	case ActionTemplate:
		if a.presenter.DeliverTemplate(ChecklistTemplate) {
			a.recordEvent(ctx, behavior.Event{Timestamp: now, Type: behavior.EventGuardTemplate, RuleID: winner.RuleID})
		} else {
			a.recordEvent(ctx, behavior.Event{Timestamp: now, Type: behavior.EventContinue, RuleID: winner.RuleID})
		}

	default:
		a.recordEvent(ctx, behavior.Event{Timestamp: now, Type: behavior.EventContinue, RuleID: winner.RuleID})
	}
}

func (a *Arbiter) mute(ctx context.Context, ruleID string, scope MuteScope) {
	switch scope {
	case MuteSession:
		a.session.Mute(ruleID)
	case MuteWorkspace, MuteGlobal:
		if err := a.settings.MuteRule(ctx, state.Scope(scope), ruleID); err != nil {
			log.Warn().Err(err).Str("scope", string(scope)).Msg("persisting mute")
		}
	}
}

func (a *Arbiter) persistMode(ctx context.Context, mode rules.Mode) {
	if err := a.settings.SetMode(ctx, mode); err != nil {
		log.Warn().Err(err).Msg("persisting mode")
	}
}

func (a *Arbiter) persistTier(ctx context.Context, tier rules.ModelTier) {
	if err := a.settings.SetModelTier(ctx, tier); err != nil {
		log.Warn().Err(err).Msg("persisting tier")
	}
}

func (a *Arbiter) recordEvent(ctx context.Context, event behavior.Event) {
	if err := a.recorder.Record(ctx, event); err != nil {
		log.Warn().Err(err).Str("type", string(event.Type)).Msg("recording behavior event")
	}
}
