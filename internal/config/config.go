// Package config loads hikelog's layered configuration: struct defaults, then
// an optional YAML file, then HIKELOG_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/retry"
	"github.com/example/hikelog/internal/validation"
)

// EnvPrefix prefixes every environment override: HIKELOG_REMOTE_URL -> remote.url.
const EnvPrefix = "HIKELOG_"

// PathEnvVar names an explicit config file.
const PathEnvVar = "HIKELOG_CONFIG"

// Config is the complete hikelog configuration.
type Config struct {
	Local       LocalConfig       `koanf:"local"`
	Remote      RemoteConfig      `koanf:"remote"`
	ObjectStore ObjectStoreConfig `koanf:"objectstore"`
	Retry       RetryConfig       `koanf:"retry"`
	Log         LogConfig         `koanf:"log"`
	Identity    IdentityConfig    `koanf:"identity"`
	Cleanup     CleanupConfig     `koanf:"cleanup"`
}

// LocalConfig locates the on-device stores.
type LocalConfig struct {
	DataDir       string `koanf:"data_dir" validate:"notblank"`
	DBFile        string `koanf:"db_file" validate:"notblank"`
	AssetsDir     string `koanf:"assets_dir"`
	MaxImageBytes int64  `koanf:"max_image_bytes" validate:"gte=0"`
}

// RemoteConfig points at the SurrealDB instance used by signed-in users.
// An empty URL runs hikelog in guest-only mode.
type RemoteConfig struct {
	URL              string        `koanf:"url"`
	Namespace        string        `koanf:"namespace"`
	Database         string        `koanf:"database"`
	Username         string        `koanf:"username"`
	Password         string        `koanf:"password"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

// Enabled reports whether a remote store is configured.
func (r RemoteConfig) Enabled() bool { return strings.TrimSpace(r.URL) != "" }

// ObjectStoreConfig points at the S3-compatible bucket holding uploaded images.
type ObjectStoreConfig struct {
	Endpoint  string        `koanf:"endpoint"`
	Bucket    string        `koanf:"bucket"`
	AccessKey string        `koanf:"access_key"`
	SecretKey string        `koanf:"secret_key"`
	UseTLS    bool          `koanf:"use_tls"`
	Region    string        `koanf:"region"`
	URLExpiry time.Duration `koanf:"url_expiry"`
}

// Enabled reports whether an object store is configured.
func (o ObjectStoreConfig) Enabled() bool { return strings.TrimSpace(o.Endpoint) != "" }

// RetryConfig selects the retry presets. Non-zero overrides replace the
// matching preset field.
type RetryConfig struct {
	Preset          string        `koanf:"preset" validate:"oneof=default aggressive"`
	MigrationPreset string        `koanf:"migration_preset" validate:"oneof=default aggressive"`
	MaxRetries      int           `koanf:"max_retries" validate:"gte=0"`
	InitialDelay    time.Duration `koanf:"initial_delay" validate:"gte=0"`
	MaxDelay        time.Duration `koanf:"max_delay" validate:"gte=0"`
}

// Policy returns the policy for normal data operations.
func (r RetryConfig) Policy() retry.Policy {
	return r.apply(retry.PolicyByName(r.Preset))
}

// MigrationPolicy returns the policy for the guest migration pipeline.
func (r RetryConfig) MigrationPolicy() retry.Policy {
	return r.apply(retry.PolicyByName(r.MigrationPreset))
}

func (r RetryConfig) apply(p retry.Policy) retry.Policy {
	if r.MaxRetries > 0 {
		p.MaxRetries = r.MaxRetries
	}
	if r.InitialDelay > 0 {
		p.InitialDelay = r.InitialDelay
	}
	if r.MaxDelay > 0 {
		p.MaxDelay = r.MaxDelay
	}
	return p
}

// LogConfig configures the global zerolog logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// IdentityConfig locates the badger store holding the guest identity and session.
type IdentityConfig struct {
	Dir string `koanf:"dir"`
}

// CleanupConfig controls removal of local copies of uploaded images.
type CleanupConfig struct {
	Retention time.Duration `koanf:"retention" validate:"gte=0"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	dataDir := ".hikelog"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".hikelog")
	}
	return &Config{
		Local: LocalConfig{
			DataDir:       dataDir,
			DBFile:        "hikelog.db",
			MaxImageBytes: 20 << 20,
		},
		Remote: RemoteConfig{
			Namespace:        "hikelog",
			Database:         "hikelog",
			FailureThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		ObjectStore: ObjectStoreConfig{
			Bucket:    "hikelog",
			UseTLS:    true,
			URLExpiry: 15 * time.Minute,
		},
		Retry: RetryConfig{
			Preset:          "default",
			MigrationPreset: "aggressive",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Cleanup: CleanupConfig{
			Retention: 7 * 24 * time.Hour,
		},
	}
}

// Load builds the configuration. path names a YAML file explicitly; when
// empty, $HIKELOG_CONFIG, ./hikelog.yaml and ~/.hikelog/config.yaml are tried
// in that order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps HIKELOG_OBJECTSTORE_ACCESS_KEY to objectstore.access_key.
// The first segment is the section; the rest is the key.
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok || key == "" {
		return ""
	}
	return section + "." + key
}

func findConfigFile() string {
	candidates := []string{os.Getenv(PathEnvVar), "hikelog.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".hikelog", "config.yaml"))
	}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks field rules and the rules that span fields.
func (c *Config) Validate() error {
	if err := validation.Struct("config", c); err != nil {
		return err
	}
	if c.ObjectStore.Enabled() && strings.TrimSpace(c.ObjectStore.Bucket) == "" {
		return apperr.Validation("config", "objectstore.bucket is required when objectstore.endpoint is set")
	}
	if c.Remote.Enabled() && (c.Remote.Namespace == "" || c.Remote.Database == "") {
		return apperr.Validation("config", "remote.namespace and remote.database are required when remote.url is set")
	}
	return nil
}

// DBPath is the SQLite database file.
func (c *Config) DBPath() string {
	return c.underDataDir(c.Local.DBFile)
}

// AssetsPath is the root of the local image store.
func (c *Config) AssetsPath() string {
	if c.Local.AssetsDir != "" {
		return c.underDataDir(c.Local.AssetsDir)
	}
	return filepath.Join(c.Local.DataDir, "assets")
}

// IdentityPath is the badger directory.
func (c *Config) IdentityPath() string {
	if c.Identity.Dir != "" {
		return c.underDataDir(c.Identity.Dir)
	}
	return filepath.Join(c.Local.DataDir, "identity")
}

func (c *Config) underDataDir(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Local.DataDir, p)
}
