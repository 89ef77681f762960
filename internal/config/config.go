// Package config loads vepclient configuration from defaults, an optional
// config file, VEPCLIENT_* environment variables and runtime overrides.
package config

import "time"

// EnvPrefix is prepended to every environment variable the loader binds.
const EnvPrefix = "VEPCLIENT"

// Config is the fully resolved client configuration.
type Config struct {
	Portal  PortalConfig  `mapstructure:"portal"`
	Poll    PollConfig    `mapstructure:"poll"`
	Submit  SubmitConfig  `mapstructure:"submit"`
	Masks   MasksConfig   `mapstructure:"masks"`
	Logging LoggingConfig `mapstructure:"logging"`
	S3      S3Config      `mapstructure:"s3"`
}

// PortalConfig locates the portal HTTP API.
type PortalConfig struct {
	// BaseURL is the API root; endpoint paths such as /upload are appended.
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// PollConfig controls status polling.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

// SubmitConfig controls batch submission.
type SubmitConfig struct {
	// RateLimit caps upload requests per second. Zero means unlimited.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`

	// RequireDescription rejects batches that carry no session description.
	RequireDescription bool `mapstructure:"require_description"`
}

// MasksConfig controls the mask catalog cache.
type MasksConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// S3Config is used when input references or result destinations are s3:// URIs.
type S3Config struct {
	Region   string `mapstructure:"region"`
	Profile  string `mapstructure:"profile"`
	Endpoint string `mapstructure:"endpoint"`

	// AccessKeyID and SecretAccessKey replace the SDK credential chain when
	// both are set.
	AccessKeyID     string `mapstructure:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`

	ForcePathStyle bool `mapstructure:"force_path_style"`
}
