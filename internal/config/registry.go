package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/Lcking/throttle/internal/rules"
)

// RegistryFile is the top-level YAML structure for a governance registry.
type RegistryFile struct {
	IntentPatterns []IntentPatternConfig `yaml:"intent_patterns"`
	KeywordSets    []KeywordSetConfig    `yaml:"keyword_sets"`
}

// IntentPatternConfig is a named group of execution-intent regexes.
// Group is "strong" (score 0.9) or "weak" (score 0.5).
type IntentPatternConfig struct {
	Name     string          `yaml:"name"`
	Group    string          `yaml:"group"`
	Enabled  *bool           `yaml:"enabled,omitempty"`
	Patterns []PatternConfig `yaml:"patterns,omitempty"`
}

// PatternConfig is a single regex within an intent pattern group.
type PatternConfig struct {
	Regex string `yaml:"regex"`
}

// KeywordSetConfig is a named keyword list for one governance category
// (load, authority, noise). Matching is literal containment, not regex.
type KeywordSetConfig struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Enabled  *bool    `yaml:"enabled,omitempty"`
	Keywords []string `yaml:"keywords,omitempty"`
}

func (c *IntentPatternConfig) isEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c *KeywordSetConfig) isEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ParseRegistry parses registry YAML bytes.
func ParseRegistry(data []byte) (*RegistryFile, error) {
	var rf RegistryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing governance registry YAML: %w", err)
	}
	return &rf, nil
}

// LoadRegistryFile reads and parses a registry file from disk. Returns nil
// (not an error) when the file does not exist, so a missing user registry is
// a no-op.
func LoadRegistryFile(path string) (*RegistryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading registry file %s: %w", path, err)
	}
	return ParseRegistry(data)
}

// MergeRegistries layers registries left to right: later entries override
// earlier ones by name, new entries are appended.
func MergeRegistries(layers ...*RegistryFile) *RegistryFile {
	merged := &RegistryFile{}
	intentIndex := make(map[string]int)
	keywordIndex := make(map[string]int)

	for _, layer := range layers {
		if layer == nil {
			continue
		}
		for _, ip := range layer.IntentPatterns {
			if idx, exists := intentIndex[ip.Name]; exists {
				merged.IntentPatterns[idx] = ip
			} else {
				intentIndex[ip.Name] = len(merged.IntentPatterns)
				merged.IntentPatterns = append(merged.IntentPatterns, ip)
			}
		}
		for _, ks := range layer.KeywordSets {
			if idx, exists := keywordIndex[ks.Name]; exists {
				merged.KeywordSets[idx] = ks
			} else {
				keywordIndex[ks.Name] = len(merged.KeywordSets)
				merged.KeywordSets = append(merged.KeywordSets, ks)
			}
		}
	}
	return merged
}

// Compile turns a merged registry into the intent patterns and keyword sets
// the evaluator consumes. Disabled entries are skipped.
func (rf *RegistryFile) Compile() (rules.IntentPatterns, rules.KeywordSets, error) {
	var intent rules.IntentPatterns
	for _, group := range rf.IntentPatterns {
		if !group.isEnabled() {
			continue
		}
		for _, p := range group.Patterns {
			compiled, err := regexp.Compile(p.Regex)
			if err != nil {
				return intent, rules.KeywordSets{}, fmt.Errorf("compiling pattern %q in group %q: %w", p.Regex, group.Name, err)
			}
			switch group.Group {
			case "strong":
				intent.Strong = append(intent.Strong, compiled)
			case "weak":
				intent.Weak = append(intent.Weak, compiled)
			default:
				return intent, rules.KeywordSets{}, fmt.Errorf("intent group %q has unknown group %q", group.Name, group.Group)
			}
		}
	}

	var keywords rules.KeywordSets
	for _, set := range rf.KeywordSets {
		if !set.isEnabled() {
			continue
		}
		switch set.Category {
		case rules.CategoryLoad:
			keywords.Load = append(keywords.Load, set.Keywords...)
		case rules.CategoryAuthority:
			keywords.Authority = append(keywords.Authority, set.Keywords...)
		case rules.CategoryNoise:
			keywords.Noise = append(keywords.Noise, set.Keywords...)
		default:
			return intent, keywords, fmt.Errorf("keyword set %q has unknown category %q", set.Name, set.Category)
		}
	}
	return intent, keywords, nil
}
