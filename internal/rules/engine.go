package rules

// IsReasoningModel reports whether the model is treated as reasoning-tier:
// either its id is in the configured allowlist or its declared tier is in
// the configured reasoning-tier set.
func IsReasoningModel(model ModelInfo, cfg EvalConfig) bool {
	if model.ID != "" {
		for _, id := range cfg.ReasoningModels {
			if id == model.ID {
				return true
			}
		}
	}
	for _, tier := range cfg.ReasoningTiers {
		if tier == model.Tier {
			return true
		}
	}
	return false
}

// Evaluate normalizes the prompt, extracts features, and runs every rule in
// the catalogue against an effective context whose tier is collapsed to the
// binary reasoning/light distinction. Rules never see the raw three-way tier
// label: they reason about "is this overkill", not about tier taxonomy.
//
// A candidate result is kept only when its confidence clears the configured
// threshold for its rule id (default 1.0 — unreachable — when unconfigured).
// Results come back in registration order.
func Evaluate(ctx Context, cfg EvalConfig) []Result {
	normalized := Normalize(ctx.Prompt)
	features := ExtractFeatures(normalized, cfg)

	effectiveTier := TierLight
	if IsReasoningModel(ctx.Model, cfg) {
		effectiveTier = TierReasoning
	}
	effective := Context{
		Mode:   ctx.Mode,
		Prompt: ctx.Prompt,
		Model:  ModelInfo{ID: ctx.Model.ID, Tier: effectiveTier},
	}

	var matches []Result
	for _, rule := range Catalog() {
		result := rule.Evaluate(effective, normalized, features)
		if result == nil {
			continue
		}
		threshold, ok := cfg.Thresholds[rule.ID]
		if !ok {
			threshold = 1.0
		}
		if result.Confidence >= threshold {
			matches = append(matches, *result)
		}
	}
	return matches
}
