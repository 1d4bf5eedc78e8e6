// Package state persists the small durable settings the pipeline reads and
// writes: current mode and tier, per-rule mute sets, last-hit rule id, the
// set of rules already shown with full detail, and the onboarding flag.
//
// Values live in a single SQLite key/value table with two scopes: "global"
// applies everywhere, "workspace" rows are keyed by working directory and
// mirror the per-workspace state of the original host editor.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Lcking/throttle/internal/rules"
)

// Scope selects where a value is stored.
type Scope string

const (
	ScopeGlobal    Scope = "global"
	ScopeWorkspace Scope = "workspace"
)

// Keys.
const (
	keyMode       = "mode"
	keyModelTier  = "model_tier"
	keyMutedRules = "muted_rules"
	keyLastHit    = "last_hit"
	keySeenRules  = "seen_rules"
	keyOnboarding = "onboarding_seen"
	keyCooldowns  = "cooldowns"
)

// Store is the SQLite-backed settings store.
type Store struct {
	db        *sql.DB
	workspace string
}

// Open opens (and if needed creates) the settings database. workspace keys
// the workspace-scoped rows, typically the current working directory.
func Open(dbPath, workspace string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		scope TEXT NOT NULL,
		workspace TEXT NOT NULL DEFAULT '',
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (scope, workspace, key)
	);
	`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state schema: %w", err)
	}

	return &Store{db: db, workspace: workspace}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) workspaceKey(scope Scope) string {
	if scope == ScopeWorkspace {
		return s.workspace
	}
	return ""
}

func (s *Store) get(ctx context.Context, scope Scope, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE scope = ? AND workspace = ? AND key = ?`,
		string(scope), s.workspaceKey(scope), key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading state %s/%s: %w", scope, key, err)
	}
	return value, true, nil
}

func (s *Store) set(ctx context.Context, scope Scope, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (scope, workspace, key, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope, workspace, key) DO UPDATE SET value = excluded.value`,
		string(scope), s.workspaceKey(scope), key, value,
	)
	if err != nil {
		return fmt.Errorf("writing state %s/%s: %w", scope, key, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, scope Scope, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM settings WHERE scope = ? AND workspace = ? AND key = ?`,
		string(scope), s.workspaceKey(scope), key,
	)
	if err != nil {
		return fmt.Errorf("deleting state %s/%s: %w", scope, key, err)
	}
	return nil
}

// Mode returns the stored mode, or ("", false) when none is stored.
func (s *Store) Mode(ctx context.Context) (rules.Mode, bool, error) {
	value, ok, err := s.get(ctx, ScopeGlobal, keyMode)
	if err != nil || !ok {
		return "", false, err
	}
	mode, valid := rules.ParseMode(value)
	return mode, valid, nil
}

// SetMode persists the current mode.
func (s *Store) SetMode(ctx context.Context, mode rules.Mode) error {
	return s.set(ctx, ScopeGlobal, keyMode, string(mode))
}

// ModelTier returns the stored tier, or ("", false) when none is stored.
func (s *Store) ModelTier(ctx context.Context) (rules.ModelTier, bool, error) {
	value, ok, err := s.get(ctx, ScopeGlobal, keyModelTier)
	if err != nil || !ok {
		return "", false, err
	}
	tier, valid := rules.ParseTier(value)
	return tier, valid, nil
}

// SetModelTier persists the current model tier.
func (s *Store) SetModelTier(ctx context.Context, tier rules.ModelTier) error {
	return s.set(ctx, ScopeGlobal, keyModelTier, string(tier))
}

// MutedRules returns the sorted mute set for one scope.
func (s *Store) MutedRules(ctx context.Context, scope Scope) ([]string, error) {
	value, ok, err := s.get(ctx, scope, keyMutedRules)
	if err != nil || !ok {
		return nil, err
	}
	var muted []string
	if err := json.Unmarshal([]byte(value), &muted); err != nil {
		// A corrupt set is treated as empty rather than wedging every submit.
		return nil, nil
	}
	sort.Strings(muted)
	return muted, nil
}

// MuteRule adds a rule id to the scope's mute set.
func (s *Store) MuteRule(ctx context.Context, scope Scope, ruleID string) error {
	return s.mutateSet(ctx, scope, keyMutedRules, ruleID, true)
}

// UnmuteRule removes a rule id from the scope's mute set.
func (s *Store) UnmuteRule(ctx context.Context, scope Scope, ruleID string) error {
	return s.mutateSet(ctx, scope, keyMutedRules, ruleID, false)
}

// ClearMutedRules empties both mute scopes.
func (s *Store) ClearMutedRules(ctx context.Context) error {
	if err := s.delete(ctx, ScopeGlobal, keyMutedRules); err != nil {
		return err
	}
	return s.delete(ctx, ScopeWorkspace, keyMutedRules)
}

// LastHit returns the id of the last rule that produced a nudge.
func (s *Store) LastHit(ctx context.Context) (string, error) {
	value, _, err := s.get(ctx, ScopeWorkspace, keyLastHit)
	return value, err
}

// SetLastHit persists the last-hit rule id.
func (s *Store) SetLastHit(ctx context.Context, ruleID string) error {
	return s.set(ctx, ScopeWorkspace, keyLastHit, ruleID)
}

// ClearLastHit removes the last-hit marker.
func (s *Store) ClearLastHit(ctx context.Context) error {
	return s.delete(ctx, ScopeWorkspace, keyLastHit)
}

// RuleSeen reports whether the rule was already shown with full detail.
func (s *Store) RuleSeen(ctx context.Context, ruleID string) (bool, error) {
	seen, err := s.setMembers(ctx, ScopeWorkspace, keySeenRules)
	if err != nil {
		return false, err
	}
	for _, id := range seen {
		if id == ruleID {
			return true, nil
		}
	}
	return false, nil
}

// MarkRuleSeen records that the rule's full detail has been shown.
func (s *Store) MarkRuleSeen(ctx context.Context, ruleID string) error {
	return s.mutateSet(ctx, ScopeWorkspace, keySeenRules, ruleID, true)
}

// Cooldowns returns per-rule last-fired times for this workspace. A corrupt
// map is treated as empty.
func (s *Store) Cooldowns(ctx context.Context) (map[string]time.Time, error) {
	value, ok, err := s.get(ctx, ScopeWorkspace, keyCooldowns)
	if err != nil || !ok {
		return nil, err
	}
	var millis map[string]int64
	if err := json.Unmarshal([]byte(value), &millis); err != nil {
		return nil, nil
	}
	fired := make(map[string]time.Time, len(millis))
	for id, ms := range millis {
		fired[id] = time.UnixMilli(ms)
	}
	return fired, nil
}

// SetCooldown records that a rule fired at t.
func (s *Store) SetCooldown(ctx context.Context, ruleID string, t time.Time) error {
	fired, err := s.Cooldowns(ctx)
	if err != nil {
		return err
	}
	millis := make(map[string]int64, len(fired)+1)
	for id, ts := range fired {
		millis[id] = ts.UnixMilli()
	}
	millis[ruleID] = t.UnixMilli()
	encoded, err := json.Marshal(millis)
	if err != nil {
		return fmt.Errorf("encoding cooldowns: %w", err)
	}
	return s.set(ctx, ScopeWorkspace, keyCooldowns, string(encoded))
}

// ClearCooldowns removes all persisted cooldown timestamps.
func (s *Store) ClearCooldowns(ctx context.Context) error {
	return s.delete(ctx, ScopeWorkspace, keyCooldowns)
}

// OnboardingSeen reports whether the onboarding hint was already shown.
func (s *Store) OnboardingSeen(ctx context.Context) (bool, error) {
	value, ok, err := s.get(ctx, ScopeGlobal, keyOnboarding)
	if err != nil {
		return false, err
	}
	return ok && value == "true", nil
}

// MarkOnboardingSeen sets the onboarding flag.
func (s *Store) MarkOnboardingSeen(ctx context.Context) error {
	return s.set(ctx, ScopeGlobal, keyOnboarding, "true")
}

func (s *Store) setMembers(ctx context.Context, scope Scope, key string) ([]string, error) {
	value, ok, err := s.get(ctx, scope, key)
	if err != nil || !ok {
		return nil, err
	}
	var members []string
	if err := json.Unmarshal([]byte(value), &members); err != nil {
		return nil, nil
	}
	return members, nil
}

func (s *Store) mutateSet(ctx context.Context, scope Scope, key, member string, add bool) error {
	members, err := s.setMembers(ctx, scope, key)
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(members)+1)
	for _, m := range members {
		set[m] = true
	}
	if add {
		set[member] = true
	} else {
		delete(set, member)
	}
	next := make([]string, 0, len(set))
	for m := range set {
		next = append(next, m)
	}
	sort.Strings(next)
	encoded, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding state set %s: %w", key, err)
	}
	return s.set(ctx, scope, key, string(encoded))
}
