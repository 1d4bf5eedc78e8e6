package rules

import "unicode/utf8"

// Rule identifiers. The numeric gap between R001 and R010 is historical:
// R002–R009 were reserved for mode-mismatch variants that never shipped.
const (
	RulePlanExecReasoning  = "R001_PLAN_EXEC_REASONING"
	RuleLoadOverflow       = "R010_LOAD_OVERFLOW"
	RuleAuthorityOverreach = "R011_AUTHORITY_OVERREACH"
	RuleNoiseOverload      = "R012_NOISE_OVERLOAD"
)

// Catalog returns the registered rules in evaluation order. The evaluator
// preserves this order in its results; it never sorts by confidence.
func Catalog() []Rule {
	return []Rule{
		{ID: RulePlanExecReasoning, Evaluate: evalPlanExecReasoning},
		{ID: RuleLoadOverflow, Evaluate: evalLoadOverflow},
		{ID: RuleAuthorityOverreach, Evaluate: evalAuthorityOverreach},
		{ID: RuleNoiseOverload, Evaluate: evalNoiseOverload},
	}
}

// evalPlanExecReasoning flags execution-intent prompts submitted in plan
// mode to a reasoning-tier model. Confidence is the intent score itself.
func evalPlanExecReasoning(ctx Context, _ NormalizedInput, features Features) *Result {
	if ctx.Mode != ModePlan {
		return nil
	}
	if ctx.Model.Tier != TierReasoning {
		return nil
	}
	if features.ExecIntentScore < 0.7 {
		return nil
	}
	return &Result{
		RuleID:       RulePlanExecReasoning,
		Confidence:   features.ExecIntentScore,
		Message:      "This looks like doing/execution work while in Plan with a reasoning model.",
		MismatchAxis: "reasoning_vs_doing",
	}
}

// evalLoadOverflow flags long prompts that ask for whole-codebase context
// before a reasoning-tier run.
func evalLoadOverflow(ctx Context, normalized NormalizedInput, features Features) *Result {
	if len(features.LoadSignals) == 0 {
		return nil
	}
	if utf8.RuneCountInString(normalized.Prompt) < 120 {
		return nil
	}
	if ctx.Model.Tier != TierReasoning {
		return nil
	}
	return &Result{
		RuleID:     RuleLoadOverflow,
		Confidence: signalConfidence(0.6, 0.9, len(features.LoadSignals)),
		Message:    "Possible load overflow: large context request before execution.",
		Category:   CategoryLoad,
	}
}

// evalAuthorityOverreach flags execution-intent prompts that mention
// privileged tools or credentials.
func evalAuthorityOverreach(_ Context, _ NormalizedInput, features Features) *Result {
	if len(features.AuthoritySignals) == 0 {
		return nil
	}
	if features.ExecIntentScore < 0.5 {
		return nil
	}
	return &Result{
		RuleID:     RuleAuthorityOverreach,
		Confidence: signalConfidence(0.55, 0.85, len(features.AuthoritySignals)),
		Message:    "Possible authority overreach: high-permission tools requested.",
		Category:   CategoryAuthority,
	}
}

// evalNoiseOverload flags longer prompts asking for bulk diagnostic capture.
func evalNoiseOverload(_ Context, normalized NormalizedInput, features Features) *Result {
	if len(features.NoiseSignals) == 0 {
		return nil
	}
	if utf8.RuneCountInString(normalized.Prompt) < 80 {
		return nil
	}
	return &Result{
		RuleID:       RuleNoiseOverload,
		Confidence:   signalConfidence(0.55, 0.85, len(features.NoiseSignals)),
		Message:      "Possible noise overload: high-noise capture requested.",
		MismatchAxis: "noise_pollution",
		Category:     CategoryNoise,
	}
}

// signalConfidence is base + 0.1 per signal, with the signal contribution
// capped at 0.3 and the total capped at max.
func signalConfidence(base, max float64, signals int) float64 {
	boost := 0.1 * float64(signals)
	if boost > 0.3 {
		boost = 0.3
	}
	confidence := base + boost
	if confidence > max {
		confidence = max
	}
	return confidence
}
