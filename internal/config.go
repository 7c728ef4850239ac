package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/devspace/internal/backup"
	"github.com/starford/devspace/internal/kv"
	"github.com/starford/devspace/internal/persist"
	"github.com/starford/devspace/internal/syncstatus"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Backup drivers.
const (
	BackupDriverFS = "fs"
	BackupDriverS3 = "s3"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Persist PersistConfig     `yaml:"persist"`
	Backup  BackupConfig      `yaml:"backup"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Persist.Validate(); err != nil {
		return err
	}
	if err := c.Backup.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects where the document is persisted.
//
// Driver "none" runs without durable storage: every write is skipped with a
// warning and the document lives only for the session.
type StorageConfig struct {
	Driver         string `yaml:"driver"`
	Path           string `yaml:"path"`
	DataKey        string `yaml:"data_key"`
	CompressionKey string `yaml:"compression_key"`
	// Watch reloads the document when the file slot is edited by another process.
	Watch bool `yaml:"watch"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(kv.DriverFile, kv.DriverSQLite, kv.DriverMemory, kv.DriverNone)),
		validation.Field(&c.Path, validation.When(c.Driver == kv.DriverFile || c.Driver == kv.DriverSQLite, validation.Required)),
		validation.Field(&c.DataKey, validation.Required, validation.NotIn(c.CompressionKey).Error("must differ from compression_key")),
		validation.Field(&c.CompressionKey, validation.Required),
	)
}

// Durable reports whether the driver keeps data across restarts.
func (c *StorageConfig) Durable() bool {
	return c.Driver == kv.DriverFile || c.Driver == kv.DriverSQLite
}

// Keys returns the slot keys for the document and the compression flag.
func (c *StorageConfig) Keys() persist.Keys {
	return persist.Keys{Data: c.DataKey, Compression: c.CompressionKey}
}

// PersistConfig tunes the write-behind persister.
type PersistConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	// Retry is the wait before a failed write is attempted again.
	Retry time.Duration `yaml:"retry"`
}

// Validate validates the persist configuration.
func (c *PersistConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0)), validation.Max(time.Minute)),
		validation.Field(&c.Retry, validation.Min(time.Duration(0)), validation.Max(10*time.Minute)),
	)
}

// BackupConfig selects the backup destination.
type BackupConfig struct {
	Driver       string        `yaml:"driver"`
	Dir          string        `yaml:"dir"`
	S3           S3Config      `yaml:"s3"`
	StatusWindow time.Duration `yaml:"status_window"`
}

// S3Config holds S3-compatible storage settings for backups.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	Prefix    string `yaml:"prefix"`
}

// Target converts the YAML section into the backup package settings.
func (c S3Config) Target() backup.S3Config {
	return backup.S3Config{
		Bucket:    c.Bucket,
		Region:    c.Region,
		Endpoint:  c.Endpoint,
		PathStyle: c.PathStyle,
		Prefix:    c.Prefix,
	}
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = BackupDriverFS
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(BackupDriverFS, BackupDriverS3)),
		validation.Field(&c.Dir, validation.When(c.Driver == BackupDriverFS, validation.Required)),
		validation.Field(&c.StatusWindow, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.Driver == BackupDriverS3 && c.S3.Bucket == "" {
		return fmt.Errorf("backup: driver is %q but s3.bucket is empty", BackupDriverS3)
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	keys := persist.DefaultKeys()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Driver:         kv.DriverFile,
			Path:           "./data",
			DataKey:        keys.Data,
			CompressionKey: keys.Compression,
			Watch:          true,
		},
		Persist: PersistConfig{
			Debounce: persist.DefaultDebounce,
			Retry:    persist.DefaultRetry,
		},
		Backup: BackupConfig{
			Driver:       BackupDriverFS,
			Dir:          filepath.Join(".", "data", "backups"),
			StatusWindow: syncstatus.DefaultWindow,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
