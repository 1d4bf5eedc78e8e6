// Package patterns provides the embedded default governance registry:
// execution-intent phrase patterns and per-category keyword lists in the
// registry YAML format parsed by internal/config.
package patterns

import _ "embed"

//go:embed governance.yaml
var governanceYAML []byte

// GovernanceYAML returns the embedded default governance registry.
func GovernanceYAML() []byte { return governanceYAML }
