package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 6, cfg.Orchestrator.MaxConcurrentProbes)
	assert.NotEmpty(t, cfg.Network.Ports)
	assert.NotEmpty(t, cfg.Email.DKIMSelectors)
	assert.NotEmpty(t, cfg.Web.SensitivePaths)

	// Lookups get at most one retry on top of the initial try.
	assert.Equal(t, 2, cfg.Email.RetryAttempts)
}

func TestDefaultPortRulesTiers(t *testing.T) {
	cfg := DefaultConfig()

	wantTiers := map[int]Severity{
		23:   SeverityCritical,
		3389: SeverityCritical,
		445:  SeverityCritical,
		21:   SeverityHigh,
		3306: SeverityHigh,
		80:   SeverityMedium,
		22:   SeverityLow,
		443:  SeverityLow,
	}
	for port, tier := range wantTiers {
		rule, ok := cfg.Network.PortRuleFor(port)
		require.True(t, ok, "port %d should have a rule", port)
		assert.Equal(t, tier, rule.Tier, "port %d", port)
	}

	_, ok := cfg.Network.PortRuleFor(31337)
	assert.False(t, ok)
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network.ConnectTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Orchestrator.MaxConcurrentProbes = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Risk.SeverityWeights[Severity("Severe")] = 3
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Email.RetryAttempts = 3
	assert.Error(t, cfg.Validate())
}

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Global.LogLevel = "debug"
	cfg.Storage.RetentionDays = 7
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, "debug", loaded.Global.LogLevel)
	assert.Equal(t, 7, loaded.Storage.RetentionDays)
	assert.Equal(t, cfg.Risk.Bands, loaded.Risk.Bands)
}

func TestDefaultRiskPolicyBands(t *testing.T) {
	policy := DefaultRiskPolicy()
	require.Len(t, policy.Bands, 6)

	// bands are ordered by descending minimum
	for i := 1; i < len(policy.Bands); i++ {
		assert.Greater(t, policy.Bands[i-1].Min, policy.Bands[i].Min)
	}
	assert.Equal(t, RiskLow, policy.Bands[0].Level)
	assert.Equal(t, "#28a745", policy.Bands[0].Color)
	assert.Equal(t, RiskCritical, policy.Bands[5].Level)
	assert.Equal(t, "#dc3545", policy.Bands[5].Color)

	assert.Equal(t, 10, policy.SeverityWeights[SeverityCritical])
	assert.Equal(t, 7, policy.SeverityWeights[SeverityHigh])
	assert.Equal(t, 5, policy.SeverityWeights[SeverityMedium])
	assert.Equal(t, 2, policy.SeverityWeights[SeverityLow])
	assert.Equal(t, 1, policy.SeverityWeights[SeverityInfo])
}
