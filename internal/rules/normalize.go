package rules

import "strings"

// Normalize canonicalizes raw prompt text: trim, collapse every internal
// whitespace run to a single space, lowercase. Pure and total, and idempotent
// under re-normalization.
func Normalize(prompt string) NormalizedInput {
	collapsed := strings.Join(strings.Fields(prompt), " ")
	return NormalizedInput{Prompt: strings.ToLower(collapsed)}
}
