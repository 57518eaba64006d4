package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := NewFeatureFlags(nil)

	for _, name := range []string{
		FeatureRiskAttentionDecline, FeatureRiskMotivationDrop, FeatureRiskSkillPlateau,
		FeatureRiskMemoryDecay, FeatureRiskPronunciationRegression,
	} {
		assert.True(t, ff.IsEnabledFor(name, "u-1"), name)
	}
	assert.Equal(t, FeatureRiskMemoryDecay, RiskFeature("memory_decay"))

	assert.False(t, ff.IsEnabledFor(FeatureAlertsAutoExecute, "u-1"))
	assert.True(t, ff.IsEnabledGlobal(FeaturePathAdaptiveAdjustments))
	assert.False(t, ff.IsEnabledGlobal("does.not.exist"))
}

func TestFeatureFlags_Environment(t *testing.T) {
	ff := NewFeatureFlags(nil)
	env := map[string]string{
		"FEATURE_ALERTS_AUTO_EXECUTE":       "true",
		"FEATURE_RISK_SKILL_PLATEAU":        "false",
		"FEATURE_REPORT_CORRELATIONS":       "30",
		"FEATURE_PATH_ADAPTIVE_ADJUSTMENTS": "not-a-number",
	}
	ff.loadFromEnvironment(func(k string) string { return env[k] })

	assert.True(t, ff.IsEnabledFor(FeatureAlertsAutoExecute, "u-1"))
	assert.False(t, ff.IsEnabledFor(FeatureRiskSkillPlateau, "u-1"))
	assert.True(t, ff.IsEnabledGlobal(FeaturePathAdaptiveAdjustments), "garbage is ignored")

	for _, f := range ff.GetAllFeatures() {
		if f.Name == FeatureReportCorrelations {
			assert.Equal(t, 30, f.RolloutPercent)
		}
	}
}

func TestFeatureFlags_RolloutIsStableAndProportional(t *testing.T) {
	ff := NewFeatureFlags(nil)
	require.NoError(t, ff.SetRolloutPercent(FeatureAlertsAutoExecute, 25))

	in := 0
	for i := 0; i < 4000; i++ {
		id := fmt.Sprintf("learner-%d", i)
		first := ff.IsEnabledFor(FeatureAlertsAutoExecute, id)
		assert.Equal(t, first, ff.IsEnabledFor(FeatureAlertsAutoExecute, id))
		if first {
			in++
		}
	}
	assert.InDelta(t, 1000, in, 200)

	assert.False(t, ff.IsEnabledGlobal(FeatureAlertsAutoExecute), "partial rollout needs a learner")
	assert.True(t, ff.IsEnabled(FeatureAlertsAutoExecute, FeatureContext{IsAdmin: true}))
}

func TestFeatureFlags_Overrides(t *testing.T) {
	ff := NewFeatureFlags(nil)

	ff.SetUserOverride("u-1", FeatureAlertsAutoExecute, true)
	assert.True(t, ff.IsEnabledFor(FeatureAlertsAutoExecute, "u-1"))
	assert.False(t, ff.IsEnabledFor(FeatureAlertsAutoExecute, "u-2"))

	ff.ClearUserOverrides("u-1")
	assert.False(t, ff.IsEnabledFor(FeatureAlertsAutoExecute, "u-1"))
}

func TestFeatureFlags_Window(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	ff := NewFeatureFlags(func() time.Time { return now })

	from := now.Add(time.Hour)
	require.NoError(t, ff.SetWindow(FeatureReportCorrelations, &from, nil))
	assert.False(t, ff.IsEnabledGlobal(FeatureReportCorrelations))

	until := now.Add(-time.Hour)
	require.NoError(t, ff.SetWindow(FeatureReportCorrelations, nil, &until))
	assert.False(t, ff.IsEnabledGlobal(FeatureReportCorrelations))

	require.NoError(t, ff.SetWindow(FeatureReportCorrelations, nil, nil))
	assert.True(t, ff.IsEnabledGlobal(FeatureReportCorrelations))
}

func TestFeatureFlags_Errors(t *testing.T) {
	ff := NewFeatureFlags(nil)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureAlertsAutoExecute, 101), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.EnableFeature("missing"), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.SetWindow("missing", nil, nil), ErrFeatureNotFound)

	require.NoError(t, ff.DisableFeature(FeatureRiskMemoryDecay))
	assert.False(t, ff.IsEnabledFor(FeatureRiskMemoryDecay, "u-1"))

	var nilFlags *FeatureFlags
	assert.False(t, nilFlags.IsEnabledGlobal(FeatureRiskMemoryDecay))
}
