package arbiter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lcking/throttle/internal/behavior"
	"github.com/Lcking/throttle/internal/config"
	"github.com/Lcking/throttle/internal/rules"
	"github.com/Lcking/throttle/internal/state"
	"github.com/Lcking/throttle/patterns"
)

// execPrompt trips the plan/exec/reasoning rule at confidence 0.9 under the
// shipped registry when mode=plan and tier=reasoning.
const execPrompt = "please write code for the ingest parser"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	registry, err := config.ParseRegistry(patterns.GovernanceYAML())
	require.NoError(t, err)
	intent, keywords, err := registry.Compile()
	require.NoError(t, err)
	return &config.Config{
		Enabled:              true,
		DefaultMode:          rules.ModePlan,
		MinDisplayConfidence: 0.75,
		Eval: rules.EvalConfig{
			ReasoningTiers:  []rules.ModelTier{rules.TierReasoning},
			ReasoningModels: config.DefaultReasoningModels(),
			Thresholds:      config.DefaultThresholds(),
			Intent:          intent,
			Keywords:        keywords,
		},
	}
}

// fakePresenter scripts every interactive decision.
type fakePresenter struct {
	disabledNotices int

	modePick rules.Mode
	modeOK   bool
	tierPick rules.ModelTier
	tierOK   bool

	action   Action
	actionOK bool

	muteScope MuteScope
	muteOK    bool

	templateOK bool

	nudges     []Nudge
	templates  []string
	modePicks  int
	tierPicks  int
	scopePicks int
}

func (p *fakePresenter) NotifyDisabled() { p.disabledNotices++ }

func (p *fakePresenter) PickMode(fallback rules.Mode) (rules.Mode, bool) {
	p.modePicks++
	if !p.modeOK {
		return fallback, false
	}
	return p.modePick, true
}

func (p *fakePresenter) PickTier(fallback rules.ModelTier) (rules.ModelTier, bool) {
	p.tierPicks++
	if !p.tierOK {
		return fallback, false
	}
	return p.tierPick, true
}

func (p *fakePresenter) PresentNudge(n Nudge) (Action, bool) {
	p.nudges = append(p.nudges, n)
	return p.action, p.actionOK
}

func (p *fakePresenter) PickMuteScope() (MuteScope, bool) {
	p.scopePicks++
	return p.muteScope, p.muteOK
}

func (p *fakePresenter) DeliverTemplate(text string) bool {
	p.templates = append(p.templates, text)
	return p.templateOK
}

type fixture struct {
	arb       *Arbiter
	presenter *fakePresenter
	settings  *state.Store
	events    *behavior.Store
	session   *SessionMutes
	now       time.Time
}

func newFixture(t *testing.T, cfg *config.Config, opts ...Option) *fixture {
	t.Helper()
	dir := t.TempDir()

	settings, err := state.Open(filepath.Join(dir, "state.db"), "/repo/demo")
	require.NoError(t, err)
	t.Cleanup(func() { settings.Close() })

	events, err := behavior.NewStore(filepath.Join(dir, "behavior.db"))
	require.NoError(t, err)
	t.Cleanup(func() { events.Close() })

	f := &fixture{
		presenter: &fakePresenter{},
		settings:  settings,
		events:    events,
		session:   NewSessionMutes(),
		now:       time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	base := []Option{
		WithClock(func() time.Time { return f.now }),
		WithFingerprint(func() string { return "fp-1" }),
	}
	f.arb = New(cfg, settings, events,
		NewCooldownGate(CooldownWindow), NewDedupeSet(), f.session,
		f.presenter, append(base, opts...)...)
	return f
}

// seed stores mode and tier so submissions resolve without interactive picks.
func (f *fixture) seed(t *testing.T, mode rules.Mode, tier rules.ModelTier) {
	t.Helper()
	require.NoError(t, f.settings.SetMode(context.Background(), mode))
	require.NoError(t, f.settings.SetModelTier(context.Background(), tier))
}

func (f *fixture) eventTypes(t *testing.T) []behavior.EventType {
	t.Helper()
	events, err := f.events.Events(context.Background())
	require.NoError(t, err)
	types := make([]behavior.EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func TestSubmitDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Enabled = false
	f := newFixture(t, cfg)

	out := f.arb.Submit(context.Background(), execPrompt)

	assert.Equal(t, StateDisabled, out.State)
	assert.Equal(t, 1, f.presenter.disabledNotices)
	assert.Empty(t, f.eventTypes(t))
}

func TestSubmitEmptyPrompt(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)

	out := f.arb.Submit(context.Background(), "   \n\t ")

	assert.Equal(t, StateAwaitingPrompt, out.State)
	assert.Empty(t, f.presenter.nudges)
}

func TestSubmitCancelledPickHasNoSideEffects(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.presenter.modeOK = false

	out := f.arb.Submit(context.Background(), execPrompt)

	assert.Equal(t, StateResolving, out.State)
	assert.Equal(t, 1, f.presenter.modePicks)
	assert.Empty(t, f.eventTypes(t))

	_, stored, err := f.settings.Mode(context.Background())
	require.NoError(t, err)
	assert.False(t, stored, "cancelled pick must not persist a mode")
}

func TestSubmitHitContinue(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.action = ActionContinue
	f.presenter.actionOK = true

	out := f.arb.Submit(context.Background(), execPrompt)

	require.Equal(t, StateActing, out.State)
	require.NotNil(t, out.Result)
	assert.Equal(t, rules.RulePlanExecReasoning, out.Result.RuleID)
	assert.Equal(t, ActionContinue, out.Action)
	assert.True(t, out.Presented())

	require.Len(t, f.presenter.nudges, 1)
	nudge := f.presenter.nudges[0]
	assert.True(t, nudge.FullDetail, "first sighting shows full detail")
	assert.True(t, nudge.OfferTemplate)
	assert.Equal(t, rules.ModePlan, nudge.Mode)

	assert.Equal(t, []behavior.EventType{behavior.EventHit, behavior.EventContinue}, f.eventTypes(t))

	last, err := f.settings.LastHit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rules.RulePlanExecReasoning, last)

	fired, err := f.settings.Cooldowns(context.Background())
	require.NoError(t, err)
	assert.Contains(t, fired, rules.RulePlanExecReasoning)
}

func TestSubmitDismissedNudgeRecordsContinue(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.actionOK = false

	out := f.arb.Submit(context.Background(), execPrompt)

	assert.Equal(t, StateActing, out.State)
	assert.Equal(t, ActionContinue, out.Action)
	assert.Equal(t, []behavior.EventType{behavior.EventHit, behavior.EventContinue}, f.eventTypes(t))
}

func TestSubmitCooldownSuppressesRepeat(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.action = ActionContinue
	f.presenter.actionOK = true

	first := f.arb.Submit(context.Background(), execPrompt)
	require.Equal(t, StateActing, first.State)
	countAfterFirst := len(f.eventTypes(t))

	f.now = f.now.Add(2 * time.Minute)
	second := f.arb.Submit(context.Background(), execPrompt)

	assert.Equal(t, StateCooldown, second.State)
	assert.Len(t, f.presenter.nudges, 1, "no second display inside the window")
	assert.Len(t, f.eventTypes(t), countAfterFirst, "no new events inside the window")
}

func TestSubmitDedupeSuppressesSameContext(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.action = ActionContinue
	f.presenter.actionOK = true

	first := f.arb.Submit(context.Background(), execPrompt)
	require.Equal(t, StateActing, first.State)

	// Past the cooldown window, but the working context is unchanged.
	f.now = f.now.Add(CooldownWindow + time.Minute)
	second := f.arb.Submit(context.Background(), execPrompt)

	assert.Equal(t, StateDedupe, second.State)
	assert.Len(t, f.presenter.nudges, 1)
}

func TestSubmitChangedContextNudgesAgain(t *testing.T) {
	fingerprint := "fp-1"
	f := newFixture(t, testConfig(t), WithFingerprint(func() string { return fingerprint }))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.action = ActionContinue
	f.presenter.actionOK = true

	require.Equal(t, StateActing, f.arb.Submit(context.Background(), execPrompt).State)

	f.now = f.now.Add(CooldownWindow + time.Minute)
	fingerprint = "fp-2"
	second := f.arb.Submit(context.Background(), execPrompt)

	assert.Equal(t, StateActing, second.State)
	require.Len(t, f.presenter.nudges, 2)
	assert.False(t, f.presenter.nudges[1].FullDetail, "repeat sighting is compact")
}

func TestSubmitMutedRuleSuppressed(t *testing.T) {
	hooked := 0
	f := newFixture(t, testConfig(t), WithHook(func(ctx context.Context, prompt string) { hooked++ }))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.session.Mute(rules.RulePlanExecReasoning)

	out := f.arb.Submit(context.Background(), execPrompt)

	assert.Equal(t, StateSuppressing, out.State)
	assert.Empty(t, f.presenter.nudges)
	assert.Empty(t, f.eventTypes(t))
	assert.Equal(t, 1, hooked, "no-findings hook runs when everything is muted")
}

func TestSubmitDisplayGate(t *testing.T) {
	cfg := testConfig(t)
	cfg.MinDisplayConfidence = 0.95
	f := newFixture(t, cfg)
	f.seed(t, rules.ModePlan, rules.TierReasoning)

	out := f.arb.Submit(context.Background(), execPrompt)

	assert.Equal(t, StateGating, out.State)
	require.NotNil(t, out.Result)
	assert.InDelta(t, 0.9, out.Result.Confidence, 1e-9)
	assert.Empty(t, f.presenter.nudges)
	assert.Empty(t, f.eventTypes(t))
}

func TestSubmitInlineOverridesPersist(t *testing.T) {
	f := newFixture(t, testConfig(t))

	out := f.arb.Submit(context.Background(), "[mode:exec] [tier:light] "+execPrompt)

	// exec mode on a light tier raises nothing; resolution still succeeded
	// without a single pick.
	assert.Equal(t, StateSuppressing, out.State)
	assert.Zero(t, f.presenter.modePicks)
	assert.Zero(t, f.presenter.tierPicks)

	mode, ok, err := f.settings.Mode(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rules.ModeExec, mode)

	tier, ok, err := f.settings.ModelTier(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rules.TierLight, tier)
}

func TestActionSwitchAsk(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.action = ActionSwitchAsk
	f.presenter.actionOK = true

	out := f.arb.Submit(context.Background(), execPrompt)

	assert.Equal(t, ActionSwitchAsk, out.Action)
	mode, ok, err := f.settings.Mode(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rules.ModeAsk, mode)
	assert.Equal(t, []behavior.EventType{behavior.EventHit, behavior.EventSwitchAsk}, f.eventTypes(t))
}

func TestActionEventsCarryArbiterClock(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.action = ActionSwitchAsk
	f.presenter.actionOK = true

	f.arb.Submit(context.Background(), execPrompt)

	events, err := f.events.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.True(t, e.Timestamp.Equal(f.now), "event %s stamped %s, want %s", e.Type, e.Timestamp, f.now)
	}
}

func TestActionSwitchLight(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.action = ActionSwitchLight
	f.presenter.actionOK = true

	f.arb.Submit(context.Background(), execPrompt)

	tier, ok, err := f.settings.ModelTier(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rules.TierLight, tier)
	assert.Equal(t, []behavior.EventType{behavior.EventHit, behavior.EventSwitchLight}, f.eventTypes(t))
}

func TestActionChangeModeCancelRecordsContinue(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.action = ActionChangeMode
	f.presenter.actionOK = true
	f.presenter.modeOK = false

	f.arb.Submit(context.Background(), execPrompt)

	assert.Equal(t, []behavior.EventType{behavior.EventHit, behavior.EventContinue}, f.eventTypes(t))
	mode, _, err := f.settings.Mode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rules.ModePlan, mode, "cancelled re-pick keeps the stored mode")
}

func TestActionMuteRuleGlobal(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.action = ActionMuteRule
	f.presenter.actionOK = true
	f.presenter.muteScope = MuteGlobal
	f.presenter.muteOK = true

	f.arb.Submit(context.Background(), execPrompt)

	muted, err := f.settings.MutedRules(context.Background(), state.ScopeGlobal)
	require.NoError(t, err)
	assert.Contains(t, muted, rules.RulePlanExecReasoning)
	assert.Equal(t, []behavior.EventType{behavior.EventHit, behavior.EventMuteRule}, f.eventTypes(t))

	// The mute takes effect on the very next submission.
	f.now = f.now.Add(CooldownWindow + time.Minute)
	out := f.arb.Submit(context.Background(), execPrompt)
	assert.Equal(t, StateSuppressing, out.State)
}

func TestActionTemplateDelivery(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.action = ActionTemplate
	f.presenter.actionOK = true
	f.presenter.templateOK = true

	f.arb.Submit(context.Background(), execPrompt)

	require.Len(t, f.presenter.templates, 1)
	assert.Equal(t, ChecklistTemplate, f.presenter.templates[0])
	assert.Equal(t, []behavior.EventType{behavior.EventHit, behavior.EventGuardTemplate}, f.eventTypes(t))
}

func TestActionTemplateDeliveryFailureRecordsContinue(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.seed(t, rules.ModePlan, rules.TierReasoning)
	f.presenter.action = ActionTemplate
	f.presenter.actionOK = true
	f.presenter.templateOK = false

	f.arb.Submit(context.Background(), execPrompt)

	assert.Equal(t, []behavior.EventType{behavior.EventHit, behavior.EventContinue}, f.eventTypes(t))
}
