// Package featureflags evaluates rollout flags configured as a key=value list,
// e.g. "draft_cache=on" or "draft_cache=25%".
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// DraftCache gates the Redis cache in front of draft lookups.
const DraftCache = "draft_cache"

type Manager struct {
	flags map[string]string
}

// NewManager parses a comma-separated flag list. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return &Manager{flags: out}
}

// Defined reports whether the flag is configured at all.
func (m *Manager) Defined(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.flags[normalize(name)]
	return ok
}

// Enabled evaluates a flag for one user. Accepted values are on/true/1,
// off/false/0 and N%, a rollout that is stable per user. Unknown flags are off.
func (m *Manager) Enabled(name, userID string) bool {
	if m == nil {
		return false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == "" {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// EnabledOr is Enabled, except that an undefined flag yields def.
func (m *Manager) EnabledOr(name, userID string, def bool) bool {
	if !m.Defined(name) {
		return def
	}
	return m.Enabled(name, userID)
}

// Snapshot returns every configured flag evaluated for one user.
func (m *Manager) Snapshot(userID string) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + userID))
	return int(h.Sum32() % 100)
}
