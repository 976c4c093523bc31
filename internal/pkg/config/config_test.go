package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piresc/payrelay/internal/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_123")
	t.Setenv("DEFAULT_CALLBACK_URL", "https://example.com/callback")
	t.Setenv("OUTBOUND_TIMEOUT_SECONDS", "5")
	t.Setenv("REDIS_HOST", "redis")

	cfg := InitConfig("does-not-matter.env")

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sk_test_123", cfg.Paystack.SecretKey)
	assert.Equal(t, "https://example.com/callback", cfg.Paystack.DefaultCallbackURL)
	assert.Equal(t, "https://api.paystack.co", cfg.Paystack.BaseURL)
	assert.Equal(t, 5, cfg.Payment.OutboundTimeoutSeconds)
	assert.True(t, cfg.Redis.Enabled())
}

func TestInitConfig_LockTTLCoversLockedCalls(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("OUTBOUND_TIMEOUT_SECONDS", "10")

	cfg := InitConfig("does-not-matter.env")
	assert.Equal(t, 60, cfg.Payment.LockTTLSeconds)

	t.Setenv("LOCK_TTL_SECONDS", "30")
	cfg = InitConfig("does-not-matter.env")
	assert.Equal(t, 60, cfg.Payment.LockTTLSeconds)

	t.Setenv("LOCK_TTL_SECONDS", "120")
	cfg = InitConfig("does-not-matter.env")
	assert.Equal(t, 120, cfg.Payment.LockTTLSeconds)

	t.Setenv("OUTBOUND_TIMEOUT_SECONDS", "2")
	t.Setenv("LOCK_TTL_SECONDS", "")
	cfg = InitConfig("does-not-matter.env")
	assert.Equal(t, 12, cfg.Payment.LockTTLSeconds)
}

func TestInitConfig_LocalDotenv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "payment.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SERVER_PORT=9099\n"), 0o600))

	t.Setenv("APP_ENV", "local")
	// registered with t.Setenv so the value loaded from file is restored on cleanup
	t.Setenv("SERVER_PORT", "unset")
	require.NoError(t, os.Unsetenv("SERVER_PORT"))

	cfg := InitConfig(envFile)

	assert.Equal(t, 9099, cfg.Server.Port)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_INT64", "42")

	assert.Equal(t, 7, GetEnvAsInt("TEST_INT", 7))
	assert.True(t, GetEnvAsBool("TEST_BOOL", false))
	assert.Equal(t, int64(42), GetEnvAsInt64("TEST_INT64", 0))
	assert.Equal(t, "fallback", GetEnv("TEST_MISSING_KEY", "fallback"))
}

func TestLoadCountryConfigs_Defaults(t *testing.T) {
	configs, err := LoadCountryConfigs("")
	require.NoError(t, err)

	ke, ok := configs.ForCurrency("kes")
	require.True(t, ok)
	assert.Equal(t, "KE", ke.Country)
	assert.True(t, ke.SupportsMethod(models.PaymentMethodMobileMoney))
	assert.True(t, ke.SupportsProvider("MPESA"))

	_, ok = configs.ForCurrency("USD")
	assert.False(t, ok)
}

func TestLoadCountryConfigs_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "countries.yaml")
	content := `
countries:
  - country: UG
    currency: UGX
    payment_methods: [mobile_money]
    mobile_providers: [mtn]
    min_amount: 500
    max_amount: 1000000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	configs, err := LoadCountryConfigs(path)
	require.NoError(t, err)
	require.Len(t, configs, 1)

	ug, ok := configs.ForCurrency("UGX")
	require.True(t, ok)
	assert.Equal(t, []models.PaymentMethod{models.PaymentMethodMobileMoney}, ug.PaymentMethods)
	assert.Equal(t, []string{"mtn"}, ug.MobileProviders)
	assert.Equal(t, 500.0, ug.MinAmount)
	assert.Equal(t, 1000000.0, ug.MaxAmount)
}

func TestLoadCountryConfigs_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		errText string
	}{
		{
			name:    "duplicate currency",
			content: "countries:\n  - currency: KES\n    payment_methods: [card]\n  - currency: kes\n    payment_methods: [card]\n",
			errText: "configured more than once",
		},
		{
			name:    "no methods",
			content: "countries:\n  - currency: KES\n",
			errText: "no payment methods",
		},
		{
			name:    "empty",
			content: "countries: []\n",
			errText: "no countries",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "c"+string(rune('a'+i))+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := LoadCountryConfigs(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}

	_, err := LoadCountryConfigs(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
