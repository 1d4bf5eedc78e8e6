// Package override strips inline mode/tier directives from the front of a
// submitted prompt. A directive overrides the persisted mode or tier for a
// single submission without mutating stored state; the arbiter decides
// whether to also persist it.
//
// Recognized surface forms, case-insensitive, composable in any order:
//
//	[mode:exec] [tier:light]        bracketed
//	mode: exec   tier: light        key-value
//	模式: exec   档位: light         localized labels
//	/exec /light                    slash commands
//
// Unrecognized directive values are not consumed; they stay part of the
// prompt text.
package override

import (
	"regexp"
	"strings"

	"github.com/Lcking/throttle/internal/rules"
)

// Overrides is the parse result: the residual prompt and at most one
// recognized mode and tier. When a directive type repeats, the first
// occurrence wins.
type Overrides struct {
	Prompt string
	Mode   *rules.Mode
	Tier   *rules.ModelTier
}

var (
	bracketRe  = regexp.MustCompile(`^\[\s*(mode|tier)\s*:\s*([a-z]+)\s*\]`)
	keyValueRe = regexp.MustCompile(`^(mode|tier|模式|档位)\s*[:：]\s*([a-z]+)\b`)
	slashRe    = regexp.MustCompile(`^/([a-z]+)\b`)
)

// Parse repeatedly strips a leading directive from prompt until none match,
// then returns the residual text and the recognized overrides.
func Parse(prompt string) Overrides {
	out := Overrides{}
	rest := strings.TrimSpace(prompt)

	for {
		lowered := strings.ToLower(rest)

		if m := bracketRe.FindStringSubmatch(lowered); m != nil {
			if out.apply(m[1], m[2]) {
				rest = strings.TrimSpace(rest[len(m[0]):])
				continue
			}
		}
		if m := keyValueRe.FindStringSubmatch(lowered); m != nil {
			if out.apply(directiveKind(m[1]), m[2]) {
				rest = strings.TrimSpace(rest[len(m[0]):])
				continue
			}
		}
		if m := slashRe.FindStringSubmatch(lowered); m != nil {
			if out.applySlash(m[1]) {
				rest = strings.TrimSpace(rest[len(m[0]):])
				continue
			}
		}
		break
	}

	out.Prompt = rest
	return out
}

func directiveKind(label string) string {
	switch label {
	case "mode", "模式":
		return "mode"
	case "tier", "档位":
		return "tier"
	}
	return label
}

// apply records a recognized directive value. Returns false when the value
// is not a valid mode/tier, in which case the directive is left as text.
func (o *Overrides) apply(kind, value string) bool {
	switch kind {
	case "mode":
		mode, ok := rules.ParseMode(value)
		if !ok {
			return false
		}
		if o.Mode == nil {
			o.Mode = &mode
		}
		return true
	case "tier":
		tier, ok := rules.ParseTier(value)
		if !ok {
			return false
		}
		if o.Tier == nil {
			o.Tier = &tier
		}
		return true
	}
	return false
}

// applySlash resolves a slash command against mode names first, then tiers.
// The two namespaces do not collide.
func (o *Overrides) applySlash(value string) bool {
	if _, ok := rules.ParseMode(value); ok {
		return o.apply("mode", value)
	}
	if _, ok := rules.ParseTier(value); ok {
		return o.apply("tier", value)
	}
	return false
}
