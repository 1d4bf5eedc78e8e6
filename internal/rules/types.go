// Package rules implements the deterministic pre-flight decision core:
// prompt normalization, feature extraction, and the rule catalogue that
// turns (mode, prompt, model) into zero or more advisory findings.
//
// Everything in this package is a pure function of its inputs. There is no
// I/O, no clock, and no shared state, which is what makes the evaluator
// trivially testable and safe to run from the sample-check harness without
// touching mute/cooldown/dedupe bookkeeping.
package rules

// Mode is the working mode the user has declared for the upcoming request.
type Mode string

const (
	ModePlan Mode = "plan"
	ModeAsk  Mode = "ask"
	ModeExec Mode = "exec"
)

// Modes lists all valid modes in presentation order.
var Modes = []Mode{ModePlan, ModeAsk, ModeExec}

// ParseMode returns the Mode for s, or ("", false) if s is not a mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModePlan, ModeAsk, ModeExec:
		return Mode(s), true
	}
	return "", false
}

// ModelTier is the capability class of the model about to receive the prompt.
type ModelTier string

const (
	TierLight     ModelTier = "light"
	TierStandard  ModelTier = "standard"
	TierReasoning ModelTier = "reasoning"
)

// Tiers lists all valid tiers in presentation order.
var Tiers = []ModelTier{TierLight, TierStandard, TierReasoning}

// ParseTier returns the ModelTier for s, or ("", false) if s is not a tier.
func ParseTier(s string) (ModelTier, bool) {
	switch ModelTier(s) {
	case TierLight, TierStandard, TierReasoning:
		return ModelTier(s), true
	}
	return "", false
}

// ModelInfo identifies the model bound to a request. ID is optional; when it
// matches the configured allowlist the model is treated as reasoning-tier
// regardless of its declared tier.
type ModelInfo struct {
	ID   string
	Tier ModelTier
}

// Context is the input to one evaluation. It is constructed fresh per
// submission and never mutated in place; the evaluator derives an effective
// copy with an adjusted tier.
type Context struct {
	Mode   Mode
	Prompt string
	Model  ModelInfo
}

// NormalizedInput is the canonical form of the prompt: lowercase with all
// whitespace runs collapsed to single spaces.
type NormalizedInput struct {
	Prompt string
}

// Features are the signals derived from normalized prompt text.
//
// ExecIntentScore is one of a small fixed set of values (0, 0.5, 0.9), not a
// continuous score. The three signal lists hold every configured governance
// keyword found in the prompt by literal containment.
type Features struct {
	ExecIntentScore  float64
	LoadSignals      []string
	AuthoritySignals []string
	NoiseSignals     []string
}

// Governance categories a rule may belong to. Category names double as
// behavior event types.
const (
	CategoryLoad      = "load"
	CategoryAuthority = "authority"
	CategoryNoise     = "noise"
)

// Result is the output of one rule firing.
type Result struct {
	RuleID     string
	Confidence float64
	Message    string
	// MismatchAxis tags which axis of mode/model mismatch the rule detects
	// ("reasoning_vs_doing", "noise_pollution"). Empty when untagged.
	MismatchAxis string
	// Category is the governance keyword category the rule belongs to, or
	// empty for non-governance rules.
	Category string
}

// Rule is one independent evaluator. Rules are polymorphic only in ID and
// Evaluate; there is no shared base state.
type Rule struct {
	ID       string
	Evaluate func(ctx Context, normalized NormalizedInput, features Features) *Result
}

// Thresholds maps rule id to the minimum confidence that the rule's results
// must clear to be returned. Unconfigured rules default to 1.0, which makes
// them unreachable.
type Thresholds map[string]float64
