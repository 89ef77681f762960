package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Defaults, keyed by viper path.
var defaults = map[string]any{
	"portal.base_url":            "http://localhost:8080/lunaris/predictor",
	"portal.timeout":             "30s",
	"poll.interval":              "300ms",
	"submit.rate_limit":          0.0,
	"submit.require_description": false,
	"masks.cache_ttl":            "10m",
	"logging.level":              "info",
	"logging.format":             "console",
	"s3.region":                  "",
	"s3.profile":                 "",
	"s3.endpoint":                "",
	"s3.access_key_id":           "",
	"s3.secret_access_key":       "",
	"s3.force_path_style":        false,
}

// EnvSpec maps one environment variable to a config path.
type EnvSpec struct {
	Name string
	Path string
}

var (
	mu      sync.RWMutex
	current *Config

	// configFile is set by SetConfigFile (the --config flag).
	configFile string
)

// SetConfigFile pins the config file used by subsequent Load calls.
// An empty path restores default discovery.
func SetConfigFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	configFile = strings.TrimSpace(path)
}

// Load resolves configuration.
//
// Precedence, highest first: runtime overrides, environment variables,
// config file, defaults. Overrides are nested maps mirroring the config
// layout, e.g. {"portal": {"base_url": "..."}}.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", spec.Name, err)
		}
	}

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.Lock()
	current = &cfg
	mu.Unlock()

	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func getEnvSpecs() []EnvSpec {
	return []EnvSpec{
		{Name: EnvPrefix + "_PORTAL_URL", Path: "portal.base_url"},
		{Name: EnvPrefix + "_PORTAL_TIMEOUT", Path: "portal.timeout"},
		{Name: EnvPrefix + "_POLL_INTERVAL", Path: "poll.interval"},
		{Name: EnvPrefix + "_SUBMIT_RATE_LIMIT", Path: "submit.rate_limit"},
		{Name: EnvPrefix + "_REQUIRE_DESCRIPTION", Path: "submit.require_description"},
		{Name: EnvPrefix + "_MASKS_CACHE_TTL", Path: "masks.cache_ttl"},
		{Name: EnvPrefix + "_LOG_LEVEL", Path: "logging.level"},
		{Name: EnvPrefix + "_LOG_FORMAT", Path: "logging.format"},
		{Name: EnvPrefix + "_S3_REGION", Path: "s3.region"},
		{Name: EnvPrefix + "_S3_PROFILE", Path: "s3.profile"},
		{Name: EnvPrefix + "_S3_ENDPOINT", Path: "s3.endpoint"},
		{Name: EnvPrefix + "_S3_ACCESS_KEY_ID", Path: "s3.access_key_id"},
		{Name: EnvPrefix + "_S3_SECRET_ACCESS_KEY", Path: "s3.secret_access_key"},
		{Name: EnvPrefix + "_S3_FORCE_PATH_STYLE", Path: "s3.force_path_style"},
	}
}

func readConfigFile(v *viper.Viper) error {
	mu.RLock()
	explicit := configFile
	mu.RUnlock()

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", explicit, err)
		}
		return nil
	}

	dir := defaultConfigDir()
	if dir == "" {
		return nil
	}
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func defaultConfigDir() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "vepclient")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vepclient")
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}
