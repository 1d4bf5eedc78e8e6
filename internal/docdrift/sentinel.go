// Package docdrift is the documentation sentinel: before an
// execution-intent prompt goes out, it looks for top-level directories that
// lack a README.md and offers to seed one. It piggybacks on the arbiter's
// no-findings hook so it only speaks when governance had nothing to say.
package docdrift

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog/log"

	"github.com/Lcking/throttle/internal/rules"
)

// execKeywords catch implementation-flavored prompts that score below the
// intent threshold.
var execKeywords = []string{
	"implement",
	"implementation",
	"refactor",
	"rewrite",
	"build",
	"create",
	"generate code",
	"write code",
	"实现",
	"重构",
	"改造",
	"写代码",
	"生成代码",
	"开发",
}

// ignoredDirs are tool and build output directories never expected to carry
// their own README.
var ignoredDirs = map[string]bool{
	".git":         true,
	".vscode":      true,
	".idea":        true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"out":          true,
	"build":        true,
	"assets":       true,
	"coverage":     true,
	"samples":      true,
}

// Issue is one directory missing its README.
type Issue struct {
	Dir        string
	TargetPath string
}

// Template returns the README skeleton for the issue's directory.
func (i Issue) Template() string {
	return "# " + i.Dir + "\n\nResponsibilities:\n- \n\nBoundaries:\n- \n"
}

// Decision is the user's pick on a drift notice.
type Decision string

const (
	DecisionContinue   Decision = "continue"
	DecisionTemplate   Decision = "template"
	DecisionShowTarget Decision = "show_target"
)

// Presenter shows drift notices. ok=false means dismissed.
type Presenter interface {
	PresentDrift(issue Issue) (Decision, bool)
	ShowTarget(path string)
}

// Sentinel checks one workspace root. Zero value is not usable; use New.
type Sentinel struct {
	root      string
	eval      rules.EvalConfig
	presenter Presenter
	copyText  func(string) error
}

// Option tweaks a Sentinel.
type Option func(*Sentinel)

// WithCopier replaces the clipboard writer, for tests.
func WithCopier(copy func(string) error) Option {
	return func(s *Sentinel) { s.copyText = copy }
}

func New(root string, eval rules.EvalConfig, presenter Presenter, opts ...Option) *Sentinel {
	s := &Sentinel{
		root:      root,
		eval:      eval,
		presenter: presenter,
		copyText:  clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExecIntent reports whether a prompt reads as implementation work: either
// the extractor scores it at or above 0.7, or it contains an exec keyword.
func (s *Sentinel) ExecIntent(prompt string) bool {
	normalized := rules.Normalize(prompt)
	features := rules.ExtractFeatures(normalized, s.eval)
	if features.ExecIntentScore >= 0.7 {
		return true
	}
	for _, kw := range execKeywords {
		if strings.Contains(normalized.Prompt, kw) {
			return true
		}
	}
	return false
}

// FindMissingReadme scans the root's top-level directories in name order and
// returns the first one without a README.md, or nil.
func (s *Sentinel) FindMissingReadme() *Issue {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		log.Debug().Err(err).Str("root", s.root).Msg("doc drift scan skipped")
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ignoredDirs[name] || strings.HasPrefix(name, ".") {
			continue
		}
		target := filepath.Join(s.root, name, "README.md")
		if _, err := os.Stat(target); err != nil {
			return &Issue{Dir: name, TargetPath: target}
		}
	}
	return nil
}

// Check runs the sentinel for one prompt: exec intent gate, README scan,
// notice, then the chosen follow-up. Non-exec prompts and clean trees are
// silent.
func (s *Sentinel) Check(prompt string) {
	if !s.ExecIntent(prompt) {
		return
	}
	issue := s.FindMissingReadme()
	if issue == nil {
		return
	}

	decision, ok := s.presenter.PresentDrift(*issue)
	if !ok {
		return
	}
	switch decision {
	case DecisionTemplate:
		if err := s.copyText(issue.Template()); err != nil {
			log.Warn().Err(err).Msg("copying readme template")
		}
	case DecisionShowTarget:
		s.presenter.ShowTarget(issue.TargetPath)
	}
}
