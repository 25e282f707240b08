package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func validConfig() *Config {
	return &Config{
		CountryCode: "55",
		StatsWindow: 20,
	}
}

func TestConfig_ValidateDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_ValidateSMSRequiresCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.SMSEnabled = true

	assert.Error(t, cfg.Validate())

	cfg.TwilioAccountSID = "AC123"
	cfg.TwilioAuthToken = "secret"
	assert.Error(t, cfg.Validate())

	cfg.TwilioFromNumber = "+15550001111"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_ValidateAdminPasswordHash(t *testing.T) {
	cfg := validConfig()
	cfg.AdminPasswordHash = "not-a-bcrypt-hash"
	assert.Error(t, cfg.Validate())

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg.AdminPasswordHash = string(hash)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_ValidateStatsWindow(t *testing.T) {
	cfg := validConfig()
	cfg.StatsWindow = 0
	assert.Error(t, cfg.Validate())
}

func TestConfig_ValidateCountryCode(t *testing.T) {
	cfg := validConfig()
	cfg.CountryCode = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "55", cfg.CountryCode)
	assert.Equal(t, 20, cfg.StatsWindow)
	assert.Equal(t, 10, cfg.JoinRateLimit)
	assert.Equal(t, "9090", cfg.MetricsPort)
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("STATS_WINDOW", "5")
	t.Setenv("SMS_NOTIFY_DELAY", "500ms")
	t.Setenv("SMS_ENABLED", "true")

	cfg := LoadConfig()

	assert.Equal(t, 5, cfg.StatsWindow)
	assert.Equal(t, "500ms", cfg.NotifyDelay.String())
	assert.True(t, cfg.SMSEnabled)
}
