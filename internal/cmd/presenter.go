package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog/log"

	"github.com/Lcking/throttle/internal/arbiter"
	"github.com/Lcking/throttle/internal/docdrift"
	"github.com/Lcking/throttle/internal/locale"
	"github.com/Lcking/throttle/internal/rules"
)

// terminalPresenter renders picks and nudges as plain numbered prompts on
// the terminal. An empty answer takes the first (least invasive) option;
// EOF or "q" cancels.
type terminalPresenter struct {
	strings locale.Table
	in      *bufio.Scanner
	out     io.Writer
}

func newTerminalPresenter(table locale.Table, in io.Reader, out io.Writer) *terminalPresenter {
	return &terminalPresenter{
		strings: table,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

var actionLabels = map[arbiter.Action]string{
	arbiter.ActionContinue:    locale.KeyActionContinue,
	arbiter.ActionSwitchAsk:   locale.KeyActionAsk,
	arbiter.ActionSwitchLight: locale.KeyActionLight,
	arbiter.ActionChangeMode:  locale.KeyActionMode,
	arbiter.ActionMuteRule:    locale.KeyActionMute,
	arbiter.ActionTemplate:    locale.KeyActionTemplate,
}

// ask prints a prompt and reads one trimmed line. ok=false on EOF or "q".
func (p *terminalPresenter) ask(prompt string) (string, bool) {
	fmt.Fprintf(p.out, "%s ", prompt)
	if !p.in.Scan() {
		fmt.Fprintln(p.out)
		return "", false
	}
	answer := strings.TrimSpace(p.in.Text())
	if strings.EqualFold(answer, "q") {
		return "", false
	}
	return answer, true
}

// pick renders numbered options and returns the chosen index. Empty input
// picks the first option.
func (p *terminalPresenter) pick(title string, options []string) (int, bool) {
	fmt.Fprintln(p.out, title)
	for i, option := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, option)
	}
	for {
		answer, ok := p.ask(fmt.Sprintf("[1-%d, q]:", len(options)))
		if !ok {
			return 0, false
		}
		if answer == "" {
			return 0, true
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return n - 1, true
		}
		for i, option := range options {
			if strings.EqualFold(answer, option) {
				return i, true
			}
		}
	}
}

func (p *terminalPresenter) NotifyDisabled() {
	fmt.Fprintln(p.out, p.strings.Get(locale.KeyDisabled))
}

func (p *terminalPresenter) PickMode(fallback rules.Mode) (rules.Mode, bool) {
	options := make([]string, len(rules.Modes))
	for i, mode := range rules.Modes {
		options[i] = string(mode)
	}
	idx, ok := p.pick(p.strings.Get(locale.KeyPickMode), options)
	if !ok {
		return fallback, false
	}
	return rules.Modes[idx], true
}

func (p *terminalPresenter) PickTier(fallback rules.ModelTier) (rules.ModelTier, bool) {
	options := make([]string, len(rules.Tiers))
	for i, tier := range rules.Tiers {
		options[i] = string(tier)
	}
	idx, ok := p.pick(p.strings.Get(locale.KeyPickTier), options)
	if !ok {
		return fallback, false
	}
	return rules.Tiers[idx], true
}

func (p *terminalPresenter) PresentNudge(n arbiter.Nudge) (arbiter.Action, bool) {
	fmt.Fprintf(p.out, "\n%s: %s (%.0f%%)\n", p.strings.Get(locale.KeyNudgeTitle), n.Result.RuleID, n.Result.Confidence*100)
	fmt.Fprintf(p.out, "%s\n", n.Result.Message)
	if n.FullDetail {
		fmt.Fprintf(p.out, "mode=%s tier=%s", n.Mode, n.Tier)
		if n.Result.MismatchAxis != "" {
			fmt.Fprintf(p.out, " axis=%s", n.Result.MismatchAxis)
		}
		if n.Result.Category != "" {
			fmt.Fprintf(p.out, " category=%s", n.Result.Category)
		}
		fmt.Fprintf(p.out, "\n%s\n", p.strings.Get(locale.KeyNudgeHint))
	}

	actions := n.Actions()
	options := make([]string, len(actions))
	for i, action := range actions {
		options[i] = p.strings.Get(actionLabels[action])
	}
	idx, ok := p.pick("", options)
	if !ok {
		return arbiter.ActionContinue, false
	}
	return actions[idx], true
}

func (p *terminalPresenter) PickMuteScope() (arbiter.MuteScope, bool) {
	scopes := []arbiter.MuteScope{arbiter.MuteSession, arbiter.MuteWorkspace, arbiter.MuteGlobal}
	options := []string{
		p.strings.Get(locale.KeyScopeSession),
		p.strings.Get(locale.KeyScopeWorkspace),
		p.strings.Get(locale.KeyScopeGlobal),
	}
	idx, ok := p.pick(p.strings.Get(locale.KeyPickMuteScope), options)
	if !ok {
		return "", false
	}
	return scopes[idx], true
}

func (p *terminalPresenter) DeliverTemplate(text string) bool {
	if err := clipboard.WriteAll(text); err != nil {
		// No clipboard (headless session): fall back to printing it.
		log.Debug().Err(err).Msg("clipboard unavailable, printing template")
		fmt.Fprintln(p.out, text)
		return true
	}
	fmt.Fprintln(p.out, p.strings.Get(locale.KeyTemplateCopied))
	return true
}

func (p *terminalPresenter) PresentDrift(issue docdrift.Issue) (docdrift.Decision, bool) {
	fmt.Fprintf(p.out, "\n%s: %s\n%s\n", p.strings.Get(locale.KeyDriftTitle), issue.TargetPath, p.strings.Get(locale.KeyDriftHint))
	decisions := []docdrift.Decision{docdrift.DecisionContinue, docdrift.DecisionTemplate, docdrift.DecisionShowTarget}
	options := []string{
		p.strings.Get(locale.KeyActionContinue),
		p.strings.Get(locale.KeyActionTemplate),
		"show target path",
	}
	idx, ok := p.pick("", options)
	if !ok {
		return "", false
	}
	return decisions[idx], true
}

func (p *terminalPresenter) ShowTarget(path string) {
	fmt.Fprintln(p.out, path)
}
