package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims edges", "  hello  ", "hello"},
		{"collapses runs", "write \t code\n\nnow", "write code now"},
		{"lowercases", "Write CODE", "write code"},
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
		{"cjk preserved", "  写代码  实现", "写代码 实现"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input).Prompt)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Write code to implement a retry queue for failed jobs.",
		"  MIXED   Case \t with\nnewlines ",
		"already normalized text",
		"",
	}
	for _, s := range inputs {
		once := Normalize(s)
		twice := Normalize(once.Prompt)
		assert.Equal(t, once, twice, "normalize must be idempotent for %q", s)
	}
}
