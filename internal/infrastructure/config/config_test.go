package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEnvKeys = []string{
	"LEADCRM_APP_NAME",
	"LEADCRM_APP_ENV",
	"LEADCRM_APP_PORT",
	"LEADCRM_KEYCRM_BASE_URL",
	"LEADCRM_KEYCRM_TIMEOUT",
	"LEADCRM_KEYCRM_API_KEY",
	"LEADCRM_KEYCRM_SOURCE_ID",
	"LEADCRM_KEYCRM_SKU_SPEC",
	"LEADCRM_NOTIFICATION_ADMIN_EMAIL",
	"LEADCRM_NOTIFICATION_SMTP_HOST",
	"LEADCRM_TELEMETRY_SAMPLING_RATIO",
	"LEADCRM_HTTP_CORS_ALLOW_ORIGINS",
}

// isolateEnv clears the variables Load reads and runs it from an empty directory
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range testEnvKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Chdir(t.TempDir())
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		isolateEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "leadcrm-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "https://openapi.keycrm.app/v1", cfg.KeyCRM.BaseURL)
		assert.Equal(t, 45*time.Second, cfg.KeyCRM.Timeout)
		assert.Equal(t, 587, cfg.Notification.SMTPPort)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("loads values from environment variables with LEADCRM prefix", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("LEADCRM_APP_PORT", "9000")
		t.Setenv("LEADCRM_KEYCRM_API_KEY", "secret")
		t.Setenv("LEADCRM_KEYCRM_SOURCE_ID", "12")
		t.Setenv("LEADCRM_KEYCRM_TIMEOUT", "10s")
		t.Setenv("LEADCRM_NOTIFICATION_ADMIN_EMAIL", "admin@example.com")
		t.Setenv("LEADCRM_NOTIFICATION_SMTP_HOST", "mail.example.com")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "secret", cfg.KeyCRM.APIKey)
		assert.Equal(t, "12", cfg.KeyCRM.SourceID)
		assert.Equal(t, 10*time.Second, cfg.KeyCRM.Timeout)
		assert.Equal(t, "admin@example.com", cfg.Notification.AdminEmail)
		assert.Equal(t, "mail.example.com", cfg.Notification.SMTPHost)
	})

	t.Run("reads config.toml", func(t *testing.T) {
		isolateEnv(t)
		dir, err := os.Getwd()
		require.NoError(t, err)
		content := `
[keycrm]
api_key = "from-file"
sku_spec = """
default-sku
example.com:alt-sku"""

[http]
cors_allow_origins = ["https://example.com"]
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "from-file", cfg.KeyCRM.APIKey)
		assert.Equal(t, "default-sku\nexample.com:alt-sku", cfg.KeyCRM.SkuSpec)
		assert.Equal(t, []string{"https://example.com"}, cfg.HTTP.CORSAllowOrigins)
	})

	t.Run("rejects invalid base url", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("LEADCRM_KEYCRM_BASE_URL", "openapi.keycrm.app")

		_, err := Load()
		assert.ErrorContains(t, err, "keycrm.base_url")
	})
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "sampling ratio out of range",
			mutate:  func(c *Config) { c.Telemetry.SamplingRatio = 1.5 },
			wantErr: "telemetry.sampling_ratio",
		},
		{
			name:    "admin email without smtp host",
			mutate:  func(c *Config) { c.Notification.AdminEmail = "admin@example.com" },
			wantErr: "notification.smtp_host",
		},
		{
			name: "plain http base url in production",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.KeyCRM.BaseURL = "http://openapi.keycrm.app/v1"
			},
			wantErr: "must use https in production",
		},
		{
			name: "wildcard cors origin in production",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.HTTP.CORSAllowOrigins = []string{"*"}
			},
			wantErr: "cors_allow_origins",
		},
		{
			name: "invalid rate limit burst",
			mutate: func(c *Config) {
				c.HTTP.RateLimitEnabled = true
				c.HTTP.RateLimitBurst = -1
			},
			wantErr: "rate_limit_burst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestKeyCRMConfig_Settings(t *testing.T) {
	assert.Empty(t, KeyCRMConfig{}.Settings())
	assert.Equal(t, map[string]string{
		"api_key":   "k",
		"source_id": "1",
		"sku_spec":  "sku",
	}, KeyCRMConfig{APIKey: "k", SourceID: "1", SkuSpec: "sku"}.Settings())
}
