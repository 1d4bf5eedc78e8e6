// Package config resolves the tunable throttle policy for a process.
//
// Configuration merges three layers: hard-coded defaults, an optional
// throttle.config.yaml (cwd or ~/.throttle), and THROTTLE_* environment
// variables. Every key has a default; absence is never an error. The
// resulting Config is loaded once and treated as immutable for the duration
// of an evaluation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Lcking/throttle/internal/rules"
	"github.com/Lcking/throttle/patterns"
)

// Viper keys. Each maps to an env var with the THROTTLE_ prefix
// (e.g. "default_mode" → THROTTLE_DEFAULT_MODE) and to a YAML field in
// throttle.config.yaml.
const (
	KeyEnabled              = "enabled"
	KeyDataDir              = "data_dir"
	KeyDefaultMode          = "default_mode"
	KeyReasoningTiers       = "reasoning_tiers"
	KeyReasoningModels      = "reasoning_models"
	KeyRuleThresholds       = "rule_thresholds"
	KeyMinDisplayConfidence = "min_display_confidence"
	KeyTargetRerouteRate    = "target_reroute_rate"
	KeyLocale               = "locale"
	KeyRegistryFile         = "registry_file"
	KeyLogEnabled           = "log.enabled"
	KeyLogPath              = "log.path"
	KeyDocDriftEnabled      = "doc_drift.enabled"
)

const (
	DefaultMode              = rules.ModePlan
	DefaultMinDisplayConf    = 0.75
	DefaultTargetRerouteRate = 30
	DefaultLocale            = "en"
)

// DefaultThresholds are the per-rule confidence floors shipped with the
// binary. Rules absent from the map are gated at 1.0 by the evaluator.
func DefaultThresholds() rules.Thresholds {
	return rules.Thresholds{
		rules.RulePlanExecReasoning:  0.7,
		rules.RuleLoadOverflow:       0.7,
		rules.RuleAuthorityOverreach: 0.65,
		rules.RuleNoiseOverload:      0.65,
	}
}

// DefaultReasoningModels is the shipped model-id allowlist treated as
// reasoning-tier regardless of declared tier.
func DefaultReasoningModels() []string {
	return []string{"o1", "o3-mini", "gpt-4.1-reasoning"}
}

// Config is the resolved process-wide throttle policy.
type Config struct {
	Enabled bool
	DataDir string

	DefaultMode          rules.Mode
	MinDisplayConfidence float64
	TargetRerouteRate    int
	Locale               string

	LogEnabled bool
	LogPath    string

	DocDriftEnabled bool

	Eval rules.EvalConfig
}

// StateDBPath returns the path of the persisted-state SQLite database.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.DataDir, "state.db")
}

// BehaviorDBPath returns the path of the behavior event SQLite database.
func (c *Config) BehaviorDBPath() string {
	return filepath.Join(c.DataDir, "behavior.db")
}

// HitLogPath returns the resolved hit log file path.
func (c *Config) HitLogPath() string {
	if c.LogPath != "" {
		return c.LogPath
	}
	return filepath.Join(c.DataDir, "throttle.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

func init() {
	viper.SetEnvPrefix("THROTTLE")
	viper.AutomaticEnv()
	viper.SetDefault(KeyEnabled, true)
	viper.SetDefault(KeyDefaultMode, string(DefaultMode))
	viper.SetDefault(KeyReasoningTiers, []string{string(rules.TierReasoning)})
	viper.SetDefault(KeyReasoningModels, DefaultReasoningModels())
	viper.SetDefault(KeyMinDisplayConfidence, DefaultMinDisplayConf)
	viper.SetDefault(KeyTargetRerouteRate, DefaultTargetRerouteRate)
	viper.SetDefault(KeyLocale, DefaultLocale)
	viper.SetDefault(KeyLogEnabled, false)
	viper.SetDefault(KeyDocDriftEnabled, false)
}

// Load reads configuration from viper (env, config file, defaults), merges
// the governance registry layers, and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		Enabled:              viper.GetBool(KeyEnabled),
		DataDir:              resolveDataDir(),
		DefaultMode:          resolveMode(viper.GetString(KeyDefaultMode)),
		MinDisplayConfidence: viper.GetFloat64(KeyMinDisplayConfidence),
		TargetRerouteRate:    clampPercent(viper.GetInt(KeyTargetRerouteRate)),
		Locale:               viper.GetString(KeyLocale),
		LogEnabled:           viper.GetBool(KeyLogEnabled),
		LogPath:              viper.GetString(KeyLogPath),
		DocDriftEnabled:      viper.GetBool(KeyDocDriftEnabled),
	}

	cfg.Eval = rules.EvalConfig{
		ReasoningTiers:  resolveTiers(viper.GetStringSlice(KeyReasoningTiers)),
		ReasoningModels: viper.GetStringSlice(KeyReasoningModels),
		Thresholds:      resolveThresholds(),
	}

	registry, err := loadRegistry(viper.GetString(KeyRegistryFile))
	if err != nil {
		return nil, err
	}
	intent, keywords, err := registry.Compile()
	if err != nil {
		return nil, fmt.Errorf("compiling governance registry: %w", err)
	}
	cfg.Eval.Intent = intent
	cfg.Eval.Keywords = keywords

	if cfg.MinDisplayConfidence < 0 || cfg.MinDisplayConfidence > 1 {
		return nil, fmt.Errorf("min_display_confidence must be in [0,1], got %v", cfg.MinDisplayConfidence)
	}
	return cfg, nil
}

// loadRegistry merges the embedded defaults with an optional user registry.
func loadRegistry(userPath string) (*RegistryFile, error) {
	defaults, err := ParseRegistry(patterns.GovernanceYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded governance registry: %w", err)
	}
	if userPath == "" {
		return defaults, nil
	}
	user, err := LoadRegistryFile(userPath)
	if err != nil {
		return nil, err
	}
	return MergeRegistries(defaults, user), nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".throttle"
	}
	return filepath.Join(home, ".throttle")
}

func resolveMode(s string) rules.Mode {
	if mode, ok := rules.ParseMode(s); ok {
		return mode
	}
	return DefaultMode
}

func resolveTiers(values []string) []rules.ModelTier {
	var tiers []rules.ModelTier
	for _, v := range values {
		if tier, ok := rules.ParseTier(v); ok {
			tiers = append(tiers, tier)
		}
	}
	if len(tiers) == 0 {
		tiers = []rules.ModelTier{rules.TierReasoning}
	}
	return tiers
}

// resolveThresholds overlays configured thresholds onto the defaults.
// Unknown rule ids are kept: a user may gate rules added later.
func resolveThresholds() rules.Thresholds {
	thresholds := DefaultThresholds()
	for id, v := range viper.GetStringMap(KeyRuleThresholds) {
		if f, ok := toFloat(v); ok && f >= 0 && f <= 1 {
			thresholds[normalizeRuleID(id)] = f
		}
	}
	return thresholds
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// normalizeRuleID maps viper's lowercased map keys back onto catalogue ids.
func normalizeRuleID(id string) string {
	for _, rule := range rules.Catalog() {
		if strings.EqualFold(rule.ID, id) {
			return rule.ID
		}
	}
	return id
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
