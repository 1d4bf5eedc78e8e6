package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamplesCheckFileArgIsOptional(t *testing.T) {
	assert.NoError(t, samplesCheckCmd.Args(samplesCheckCmd, nil), "no argument falls back to "+defaultSamplesPath)
	assert.NoError(t, samplesCheckCmd.Args(samplesCheckCmd, []string{"corpus.jsonl"}))
	assert.Error(t, samplesCheckCmd.Args(samplesCheckCmd, []string{"a.jsonl", "b.jsonl"}))
}
