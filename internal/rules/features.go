package rules

import (
	"regexp"
	"strings"
)

// KeywordSets are the per-category governance keyword lists. Matching is
// literal substring containment against normalized text, deliberately broad:
// governance scanning optimizes for recall where intent scoring optimizes
// for precision.
type KeywordSets struct {
	Load      []string
	Authority []string
	Noise     []string
}

// IntentPatterns are the curated execution-intent phrase patterns. A strong
// match yields score 0.9, otherwise a weak match yields 0.5, otherwise 0.
type IntentPatterns struct {
	Strong []*regexp.Regexp
	Weak   []*regexp.Regexp
}

// EvalConfig is the immutable configuration one evaluation runs against.
type EvalConfig struct {
	// ReasoningTiers are declared tiers promoted to reasoning.
	ReasoningTiers []ModelTier
	// ReasoningModels is the model-id allowlist promoted to reasoning.
	ReasoningModels []string
	// Thresholds gate rule results by confidence (default 1.0 per rule).
	Thresholds Thresholds
	// Keywords are the governance scan lists.
	Keywords KeywordSets
	// Intent are the execution-intent patterns.
	Intent IntentPatterns
}

// ExtractFeatures derives intent score and governance signals from a
// normalized prompt.
func ExtractFeatures(normalized NormalizedInput, cfg EvalConfig) Features {
	return Features{
		ExecIntentScore:  intentScore(normalized.Prompt, cfg.Intent),
		LoadSignals:      containedKeywords(normalized.Prompt, cfg.Keywords.Load),
		AuthoritySignals: containedKeywords(normalized.Prompt, cfg.Keywords.Authority),
		NoiseSignals:     containedKeywords(normalized.Prompt, cfg.Keywords.Noise),
	}
}

func intentScore(prompt string, patterns IntentPatterns) float64 {
	for _, p := range patterns.Strong {
		if p.MatchString(prompt) {
			return 0.9
		}
	}
	for _, p := range patterns.Weak {
		if p.MatchString(prompt) {
			return 0.5
		}
	}
	return 0
}

func containedKeywords(prompt string, keywords []string) []string {
	var found []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(prompt, kw) {
			found = append(found, kw)
		}
	}
	return found
}
