package config

import (
	"sort"
	"strings"
	"sync"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEATURE FLAGS
// ══════════════════════════════════════════════════════════════════════════════

// Feature names used across the service.
const (
	// FeatureCoachNotifications records coach signals and low-mood alerts.
	FeatureCoachNotifications = "coach_notifications"

	// FeatureSessionScheduling proposes a session once a buddy is selected.
	FeatureSessionScheduling = "session_scheduling"
)

// Feature describes a single toggle.
type Feature struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// FeatureFlags holds the toggles and allows runtime changes.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// NewFeatureFlags creates flags with every known feature at its default.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}

	ff.register(FeatureCoachNotifications, "Record coach signals and low-mood alerts", true)
	ff.register(FeatureSessionScheduling, "Propose a session after a buddy is selected", true)

	return ff
}

// LoadFeatureFlags builds flags from the environment.
// FEATURE_<NAME>=true|false overrides a single feature, and
// FEATURES_DISABLED=a,b switches several off at once.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()

	for _, name := range ff.Names() {
		key := "FEATURE_" + strings.ToUpper(name)
		ff.Set(name, getEnvBool(key, ff.IsEnabled(name)))
	}

	for _, name := range getEnvStringSlice("FEATURES_DISABLED", nil) {
		ff.Set(strings.ToLower(name), false)
	}

	return ff
}

func (ff *FeatureFlags) register(name, description string, enabled bool) {
	ff.features[name] = &Feature{Name: name, Description: description, Enabled: enabled}
}

// IsEnabled reports whether a feature is on. Unknown features are off.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	if ff == nil {
		return false
	}

	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[name]
	return ok && f.Enabled
}

// Set toggles a known feature. Unknown names are ignored.
func (ff *FeatureFlags) Set(name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if f, ok := ff.features[name]; ok {
		f.Enabled = enabled
	}
}

// Names returns all feature names in sorted order.
func (ff *FeatureFlags) Names() []string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	names := make([]string, 0, len(ff.features))
	for name := range ff.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of every feature for logging.
func (ff *FeatureFlags) Snapshot() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
