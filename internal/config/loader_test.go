package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points default discovery at an empty directory so a developer's
// real config cannot leak into assertions.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	SetConfigFile("")
	t.Cleanup(func() { SetConfigFile("") })
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "http://localhost:8080/lunaris/predictor", cfg.Portal.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.Portal.Timeout)
		assert.Equal(t, 300*time.Millisecond, cfg.Poll.Interval)
		assert.Equal(t, 0.0, cfg.Submit.RateLimit)
		assert.False(t, cfg.Submit.RequireDescription)
		assert.Equal(t, 10*time.Minute, cfg.Masks.CacheTTL)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)

		overrides := map[string]any{
			"portal": map[string]any{
				"base_url": "http://portal.test/api",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "http://portal.test/api", cfg.Portal.BaseURL)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 300*time.Millisecond, cfg.Poll.Interval)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("VEPCLIENT_PORTAL_URL", "http://env.test")
		t.Setenv("VEPCLIENT_POLL_INTERVAL", "2s")
		t.Setenv("VEPCLIENT_REQUIRE_DESCRIPTION", "true")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "http://env.test", cfg.Portal.BaseURL)
		assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
		assert.True(t, cfg.Submit.RequireDescription)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)
		t.Setenv("VEPCLIENT_PORTAL_URL", "http://env.test")

		cfg, err := Load(ctx, map[string]any{"portal": map[string]any{"base_url": "http://override.test"}})
		require.NoError(t, err)

		assert.Equal(t, "http://override.test", cfg.Portal.BaseURL)
	})

	t.Run("ExplicitConfigFile", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "vep.yaml")
		require.NoError(t, os.WriteFile(path, []byte("portal:\n  base_url: http://file.test\npoll:\n  interval: 1s\n"), 0o644))
		SetConfigFile(path)

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "http://file.test", cfg.Portal.BaseURL)
		assert.Equal(t, time.Second, cfg.Poll.Interval)
	})

	t.Run("MissingExplicitConfigFile", func(t *testing.T) {
		isolate(t)
		SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))

		_, err := Load(ctx)
		require.Error(t, err)
	})

	t.Run("InvalidPollInterval", func(t *testing.T) {
		isolate(t)

		_, err := Load(ctx, map[string]any{"poll": map[string]any{"interval": "0s"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "poll.interval")
	})

	t.Run("S3StaticCredentials", func(t *testing.T) {
		isolate(t)
		t.Setenv("VEPCLIENT_S3_ACCESS_KEY_ID", "AKID")
		t.Setenv("VEPCLIENT_S3_SECRET_ACCESS_KEY", "secret")
		t.Setenv("VEPCLIENT_S3_FORCE_PATH_STYLE", "true")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AKID", cfg.S3.AccessKeyID)
		assert.Equal(t, "secret", cfg.S3.SecretAccessKey)
		assert.True(t, cfg.S3.ForcePathStyle)
	})

	t.Run("S3HalfCredentials", func(t *testing.T) {
		isolate(t)
		t.Setenv("VEPCLIENT_S3_ACCESS_KEY_ID", "AKID")

		_, err := Load(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "s3.secret_access_key is required when s3.access_key_id is set")
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Portal: PortalConfig{BaseURL: "http://localhost:8080/lunaris/predictor"},
			Poll:   PollConfig{Interval: 300 * time.Millisecond},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   []string
	}{
		{"valid", func(*Config) {}, nil},
		{"missing base url", func(c *Config) { c.Portal.BaseURL = "" }, []string{"portal.base_url is required"}},
		{"relative base url", func(c *Config) { c.Portal.BaseURL = "lunaris/predictor" }, []string{"portal.base_url must be an absolute URL"}},
		{"zero poll interval", func(c *Config) { c.Poll.Interval = 0 }, []string{"poll.interval must be positive"}},
		{"negative rate limit", func(c *Config) { c.Submit.RateLimit = -1 }, []string{"submit.rate_limit must be >= 0"}},
		{"negative cache ttl", func(c *Config) { c.Masks.CacheTTL = -time.Second }, []string{"masks.cache_ttl must be >= 0"}},
		{"secret without key", func(c *Config) { c.S3.SecretAccessKey = "s" }, []string{"s3.access_key_id is required when s3.secret_access_key is set"}},
		{"both keys", func(c *Config) { c.S3.AccessKeyID, c.S3.SecretAccessKey = "k", "s" }, nil},
		{
			"every failure reported",
			func(c *Config) {
				c.Portal.BaseURL = ""
				c.Poll.Interval = 0
			},
			[]string{"portal.base_url is required", "poll.interval must be positive"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestGetConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Portal.BaseURL, retrieved.Portal.BaseURL)
}

func TestEnvSpecsPrefixHandling(t *testing.T) {
	specs := getEnvSpecs()
	require.NotEmpty(t, specs)

	seen := map[string]bool{}
	for _, spec := range specs {
		assert.Contains(t, spec.Name, EnvPrefix+"_")
		assert.NotEmpty(t, spec.Path, "env var %s should have a path", spec.Name)
		_, ok := defaults[spec.Path]
		assert.True(t, ok, "env var %s maps to unknown path %s", spec.Name, spec.Path)
		assert.False(t, seen[spec.Name], "duplicate env var %s", spec.Name)
		seen[spec.Name] = true
	}
}

func TestFlatten(t *testing.T) {
	got := flatten("", map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
	})
	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "e": true}, got)
}
