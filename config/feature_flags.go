package config

import (
	"hash/fnv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages engine toggles with per-learner rollout.
// Learners are bucketed by a hash of their ID, so a learner stays in or
// out of a partial rollout across restarts.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled

	now func() time.Time
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`

	// Rollout percentage (0-100)
	RolloutPercent int `json:"rolloutPercent"`

	// Time-based activation
	EnabledFrom  *time.Time `json:"enabledFrom,omitempty"`
	EnabledUntil *time.Time `json:"enabledUntil,omitempty"`
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string
	IsAdmin bool
}

// Predefined feature flag names.
const (
	// === Risk detectors ===
	FeatureRiskAttentionDecline        = "risk.attention_decline"
	FeatureRiskMotivationDrop          = "risk.motivation_drop"
	FeatureRiskSkillPlateau            = "risk.skill_plateau"
	FeatureRiskMemoryDecay             = "risk.memory_decay"
	FeatureRiskPronunciationRegression = "risk.pronunciation_regression"

	// === Alerts ===
	FeatureAlertsAutoExecute = "alerts.auto_execute" // start non-critical strategies without a user action

	// === Learning paths ===
	FeaturePathAdaptiveAdjustments = "path.adaptive_adjustments"

	// === Reports ===
	FeatureReportCorrelations = "report.correlations"
)

// RiskFeature returns the flag name gating a risk detector.
func RiskFeature(riskType string) string {
	return "risk." + riskType
}

// LoadFeatureFlags creates feature flags with defaults and environment overrides.
func LoadFeatureFlags() *FeatureFlags {
	ff := newFeatureFlags(time.Now)
	ff.loadFromEnvironment(os.Getenv)
	return ff
}

// NewFeatureFlags returns the default flag set with an injectable time source.
func NewFeatureFlags(now func() time.Time) *FeatureFlags {
	if now == nil {
		now = time.Now
	}
	return newFeatureFlags(now)
}

func newFeatureFlags(now func() time.Time) *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
		now:           now,
	}
	ff.registerDefaults()
	return ff
}

// registerDefaults sets up default feature flags.
func (ff *FeatureFlags) registerDefaults() {
	// ══════════════════════════════════════════════════════════════════════════
	// RISK DETECTORS - all enabled
	// ══════════════════════════════════════════════════════════════════════════

	ff.register(&Feature{Name: FeatureRiskAttentionDecline, Description: "Detect attention decline", Enabled: true, RolloutPercent: 100})
	ff.register(&Feature{Name: FeatureRiskMotivationDrop, Description: "Detect motivation drop", Enabled: true, RolloutPercent: 100})
	ff.register(&Feature{Name: FeatureRiskSkillPlateau, Description: "Detect skill plateau", Enabled: true, RolloutPercent: 100})
	ff.register(&Feature{Name: FeatureRiskMemoryDecay, Description: "Detect memory decay", Enabled: true, RolloutPercent: 100})
	ff.register(&Feature{Name: FeatureRiskPronunciationRegression, Description: "Detect pronunciation regression", Enabled: true, RolloutPercent: 100})

	// ══════════════════════════════════════════════════════════════════════════
	// ALERTS, PATHS, REPORTS
	// ══════════════════════════════════════════════════════════════════════════

	ff.register(&Feature{
		Name:           FeatureAlertsAutoExecute,
		Description:    "Start strategies of non-critical alerts automatically",
		Enabled:        false,
		RolloutPercent: 0,
	})
	ff.register(&Feature{
		Name:           FeaturePathAdaptiveAdjustments,
		Description:    "Include adaptive setting adjustments in learning paths",
		Enabled:        true,
		RolloutPercent: 100,
	})
	ff.register(&Feature{
		Name:           FeatureReportCorrelations,
		Description:    "Include metric correlations in analytics reports",
		Enabled:        true,
		RolloutPercent: 100,
	})
}

func (ff *FeatureFlags) register(f *Feature) {
	ff.features[f.Name] = f
}

// loadFromEnvironment applies FEATURE_<NAME> overrides.
// Values: "true", "false" or a rollout percentage "0".."100".
// Example: FEATURE_ALERTS_AUTO_EXECUTE=25
func (ff *FeatureFlags) loadFromEnvironment(getenv func(string) string) {
	for name, feature := range ff.features {
		envName := "FEATURE_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))

		val := strings.TrimSpace(getenv(envName))
		if val == "" {
			continue
		}

		if enabled, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = enabled
			if enabled {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}

		if percent, err := strconv.Atoi(val); err == nil && percent >= 0 && percent <= 100 {
			feature.Enabled = percent > 0
			feature.RolloutPercent = percent
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION
// ══════════════════════════════════════════════════════════════════════════════

// IsEnabled checks if a feature is enabled for the given context.
// Unknown features are disabled.
func (ff *FeatureFlags) IsEnabled(name string, ctx FeatureContext) bool {
	if ff == nil {
		return false
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check user override first
	if ctx.UserID != "" {
		if overrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := overrides[name]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[name]
	if !ok || !feature.Enabled {
		return false
	}

	// Admins see everything that is switched on
	if ctx.IsAdmin {
		return true
	}

	now := ff.now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	if feature.RolloutPercent >= 100 {
		return true
	}
	if feature.RolloutPercent <= 0 {
		return false
	}
	// Without a learner there is nothing to bucket
	if ctx.UserID == "" {
		return false
	}
	return isInRollout(ctx.UserID, name, feature.RolloutPercent)
}

// IsEnabledFor is a shorthand for a non-admin learner.
func (ff *FeatureFlags) IsEnabledFor(name, userID string) bool {
	return ff.IsEnabled(name, FeatureContext{UserID: userID})
}

// IsEnabledGlobal checks a flag without a learner context.
func (ff *FeatureFlags) IsEnabledGlobal(name string) bool {
	return ff.IsEnabled(name, FeatureContext{})
}

// isInRollout determines if a user is in the rollout percentage.
// The feature name is mixed in so different features pick different users.
func isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(userID))
	h.Write([]byte(featureName))
	return int(h.Sum32()%100) < percent
}

// ══════════════════════════════════════════════════════════════════════════════
// MANAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

// SetUserOverride sets a feature override for a specific user.
func (ff *FeatureFlags) SetUserOverride(userID, name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.userOverrides[userID] == nil {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][name] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(name string, percent int) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[name]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.RolloutPercent = percent
	feature.Enabled = percent > 0
	return nil
}

// SetWindow limits a feature to [from, until]. Nil bounds are open.
func (ff *FeatureFlags) SetWindow(name string, from, until *time.Time) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[name]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.EnabledFrom = from
	feature.EnabledUntil = until
	return nil
}

// EnableFeature enables a feature for everyone.
func (ff *FeatureFlags) EnableFeature(name string) error {
	return ff.SetRolloutPercent(name, 100)
}

// DisableFeature disables a feature.
func (ff *FeatureFlags) DisableFeature(name string) error {
	return ff.SetRolloutPercent(name, 0)
}

// GetAllFeatures returns a copy of all features sorted by name.
func (ff *FeatureFlags) GetAllFeatures() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)
