package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claudekit-labs/claudekit/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Config keys.
const (
	KeySource              = "source"
	KeyCacheTTL            = "cache_ttl"
	KeyBackup              = "backup"
	KeyInstallDependencies = "install_dependencies"
	KeyVerbose             = "verbose"
)

// DefaultCacheTTL is how long a discovered registry stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// Defaults holds the typed values the install pipeline reads from config.
type Defaults struct {
	Source              string
	CacheTTL            time.Duration
	Backup              bool
	InstallDependencies bool
	Verbose             bool
}

// Dir returns the path to the config directory (~/.claudekit/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.claudekit/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyCacheTTL, DefaultCacheTTL)
	viper.SetDefault(KeyBackup, true)
	viper.SetDefault(KeyInstallDependencies, false)
	viper.SetDefault(KeyVerbose, false)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Current returns the typed defaults after Load has run.
func Current() Defaults {
	ttl := viper.GetDuration(KeyCacheTTL)
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return Defaults{
		Source:              viper.GetString(KeySource),
		CacheTTL:            ttl,
		Backup:              viper.GetBool(KeyBackup),
		InstallDependencies: viper.GetBool(KeyInstallDependencies),
		Verbose:             viper.GetBool(KeyVerbose),
	}
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
