package arbiter

import (
	"github.com/Lcking/throttle/internal/rules"
	"github.com/Lcking/throttle/internal/state"
)

// Action is what the user chose in response to a nudge.
type Action string

const (
	ActionContinue    Action = "continue"
	ActionSwitchAsk   Action = "switch_ask"
	ActionSwitchLight Action = "switch_light"
	ActionChangeMode  Action = "change_mode"
	ActionMuteRule    Action = "mute_rule"
	ActionTemplate    Action = "guard_template"
)

// Nudge is everything the UI collaborator needs to present one warning.
type Nudge struct {
	Result rules.Result
	Mode   rules.Mode
	Tier   rules.ModelTier
	// FullDetail is true the first time a rule is shown; later nudges for
	// the same rule are terse.
	FullDetail bool
	// OfferTemplate enables the engineering-checklist action.
	OfferTemplate bool
}

// Actions returns the offered actions in presentation order. Continue comes
// first: the least invasive action is always the pre-selected default.
func (n Nudge) Actions() []Action {
	actions := []Action{ActionContinue, ActionSwitchAsk, ActionSwitchLight, ActionChangeMode, ActionMuteRule}
	if n.OfferTemplate {
		actions = append(actions, ActionTemplate)
	}
	return actions
}

// Presenter is the external UI collaborator the arbiter delegates every
// interactive step to. Each method may return ok=false, meaning the user
// made no selection; the arbiter treats that as cancellation (or, for
// PresentNudge, as "continue").
//
// The presenter owns all user-facing text and localization; the arbiter
// only speaks rule ids, enumerations, and event types.
type Presenter interface {
	// NotifyDisabled tells the user the feature flag is off.
	NotifyDisabled()
	// PickMode asks for a working mode. fallback is the suggested default.
	PickMode(fallback rules.Mode) (rules.Mode, bool)
	// PickTier asks for a model tier. fallback is the suggested default.
	PickTier(fallback rules.ModelTier) (rules.ModelTier, bool)
	// PresentNudge shows the warning and returns the chosen action.
	PresentNudge(n Nudge) (Action, bool)
	// PickMuteScope asks which scope to mute a rule in.
	PickMuteScope() (MuteScope, bool)
	// DeliverTemplate hands the engineering checklist to the user
	// (typically the clipboard). Returns false when delivery failed.
	DeliverTemplate(text string) bool
}

// MuteScope is where a mute should live.
type MuteScope string

const (
	MuteSession   MuteScope = "session"
	MuteWorkspace MuteScope = MuteScope(state.ScopeWorkspace)
	MuteGlobal    MuteScope = MuteScope(state.ScopeGlobal)
)

// ChecklistTemplate is the engineering-constraints checklist offered on
// mismatch-axis nudges.
const ChecklistTemplate = `## Engineering constraints checklist

- [ ] Spec: is the requirement written down and agreed?
- [ ] Scope: smallest change that satisfies it?
- [ ] Inputs/outputs: edge cases listed?
- [ ] Tests: how will this be verified?
- [ ] Rollback: how is this undone if wrong?
`
