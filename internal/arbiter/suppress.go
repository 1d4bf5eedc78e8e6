package arbiter

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CooldownWindow is how long a rule stays quiet after producing a nudge.
const CooldownWindow = 10 * time.Minute

// CooldownGate keeps one token-bucket limiter per rule (1 token per window,
// burst 1), so a rule that just fired cannot fire again until the window
// refills. Ready peeks without consuming; Fired consumes after the nudge was
// actually recorded, keeping "consulted before firing, updated after firing"
// semantics.
type CooldownGate struct {
	mu       sync.Mutex
	window   time.Duration
	limiters map[string]*rate.Limiter
}

// NewCooldownGate creates a gate with the given window.
func NewCooldownGate(window time.Duration) *CooldownGate {
	return &CooldownGate{
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (g *CooldownGate) limiter(ruleID string) *rate.Limiter {
	if limiter, ok := g.limiters[ruleID]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Every(g.window), 1)
	g.limiters[ruleID] = limiter
	return limiter
}

// Ready reports whether the rule may fire at now.
func (g *CooldownGate) Ready(ruleID string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limiter(ruleID).TokensAt(now) >= 1
}

// Fired consumes the rule's token, starting its cooldown.
func (g *CooldownGate) Fired(ruleID string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limiter(ruleID).AllowN(now, 1)
}

// ActiveCount returns how many rules are currently cooling down.
func (g *CooldownGate) ActiveCount(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	count := 0
	for _, limiter := range g.limiters {
		if limiter.TokensAt(now) < 1 {
			count++
		}
	}
	return count
}

// Clear forgets all cooldowns.
func (g *CooldownGate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limiters = make(map[string]*rate.Limiter)
}

// DedupeSet remembers (rule id, context fingerprint) pairs that already
// produced a nudge. In-memory only; a process restart clears it.
type DedupeSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedupeSet creates an empty dedupe set.
func NewDedupeSet() *DedupeSet {
	return &DedupeSet{seen: make(map[string]struct{})}
}

func dedupeKey(ruleID, fingerprint string) string {
	return ruleID + "\x00" + fingerprint
}

// Seen reports whether the pair was already shown.
func (d *DedupeSet) Seen(ruleID, fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[dedupeKey(ruleID, fingerprint)]
	return ok
}

// Mark records the pair.
func (d *DedupeSet) Mark(ruleID, fingerprint string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[dedupeKey(ruleID, fingerprint)] = struct{}{}
}

// Clear forgets all pairs.
func (d *DedupeSet) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]struct{})
}

// SessionMutes is the in-memory, session-scoped mute set. Persistent mute
// scopes live in the settings store; suppression takes the union.
type SessionMutes struct {
	mu    sync.Mutex
	rules map[string]struct{}
}

// NewSessionMutes creates an empty session mute set.
func NewSessionMutes() *SessionMutes {
	return &SessionMutes{rules: make(map[string]struct{})}
}

// Mute adds a rule id for the rest of the session.
func (m *SessionMutes) Mute(ruleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[ruleID] = struct{}{}
}

// Muted reports whether the rule is session-muted.
func (m *SessionMutes) Muted(ruleID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rules[ruleID]
	return ok
}

// List returns the session-muted rule ids, sorted.
func (m *SessionMutes) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.rules))
	for id := range m.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear unmutes everything session-scoped.
func (m *SessionMutes) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = make(map[string]struct{})
}

// WorkingContextFingerprint derives a stable fingerprint for the current
// working context: a SHA-256 over the sorted top-level entries of dir. The
// original keyed dedupe on the editor's visible files; a directory snapshot
// is the closest stable equivalent for a CLI.
func WorkingContextFingerprint(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	sum := sha256.Sum256([]byte(strings.Join(names, "\x00")))
	return hex.EncodeToString(sum[:])
}
