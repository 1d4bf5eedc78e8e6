// Package samples runs labelled prompt corpora through the evaluator and
// counts misclassifications. It exercises the evaluator only; mute, cooldown,
// and dedupe suppression are deliberately out of the loop so the report
// reflects rule quality, not session history.
package samples

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Lcking/throttle/internal/rules"
)

// Expectation labels a sample line.
type Expectation string

const (
	ExpectHit   Expectation = "HIT"
	ExpectNoHit Expectation = "NO_HIT"
	// ExpectLow marks prompts that legitimately brush a rule but should
	// stay below display. The harness counts it as a no-hit expectation.
	ExpectLow Expectation = "LOW"
)

// Sample is one JSONL record.
type Sample struct {
	Prompt    string      `json:"prompt"`
	Mode      rules.Mode  `json:"mode"`
	ModelTier string      `json:"modelTier"`
	Expected  Expectation `json:"expected"`
	Note      string      `json:"note,omitempty"`
}

// Mismatch is one misclassified sample with its 1-based line number.
type Mismatch struct {
	Line   int
	Prompt string
	Note   string
}

// Report summarizes one harness run. Malformed lines are skipped and not
// counted in Total.
type Report struct {
	Total          int
	FalsePositives []Mismatch
	FalseNegatives []Mismatch
}

// Clean reports whether the corpus produced no misclassifications.
func (r *Report) Clean() bool {
	return len(r.FalsePositives) == 0 && len(r.FalseNegatives) == 0
}

// Parse reads JSONL samples. Blank lines, invalid JSON, and records missing
// a required field are skipped silently; a bad line must never abort a
// corpus run.
func Parse(r io.Reader) ([]Sample, []int, error) {
	var (
		samples []Sample
		lines   []int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var s Sample
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			continue
		}
		if s.Prompt == "" || s.Mode == "" || s.ModelTier == "" || s.Expected == "" {
			continue
		}
		samples = append(samples, s)
		lines = append(lines, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading samples: %w", err)
	}
	return samples, lines, nil
}

// Run evaluates each sample and classifies the outcome against its label.
func Run(r io.Reader, cfg rules.EvalConfig) (*Report, error) {
	parsed, lines, err := Parse(r)
	if err != nil {
		return nil, err
	}

	report := &Report{Total: len(parsed)}
	for i, sample := range parsed {
		results := rules.Evaluate(rules.Context{
			Mode:   sample.Mode,
			Prompt: sample.Prompt,
			Model:  rules.ModelInfo{Tier: rules.ModelTier(sample.ModelTier)},
		}, cfg)
		hit := len(results) > 0

		mismatch := Mismatch{Line: lines[i], Prompt: sample.Prompt, Note: sample.Note}
		switch {
		case sample.Expected == ExpectHit && !hit:
			report.FalseNegatives = append(report.FalseNegatives, mismatch)
		case sample.Expected != ExpectHit && hit:
			report.FalsePositives = append(report.FalsePositives, mismatch)
		}
	}
	return report, nil
}

// Format renders the report the way the output channel of the original tool
// did: one line per mismatch, then a summary line.
func (r *Report) Format() string {
	var buf bytes.Buffer
	for _, m := range r.FalsePositives {
		fmt.Fprintf(&buf, "False positive [%d]: %s (%s)\n", m.Line, m.Prompt, noteOr(m.Note))
	}
	for _, m := range r.FalseNegatives {
		fmt.Fprintf(&buf, "False negative [%d]: %s (%s)\n", m.Line, m.Prompt, noteOr(m.Note))
	}
	fmt.Fprintf(&buf, "Samples: %d. False positives: %d. False negatives: %d.\n",
		r.Total, len(r.FalsePositives), len(r.FalseNegatives))
	return buf.String()
}

func noteOr(note string) string {
	if note == "" {
		return "no note"
	}
	return note
}
