package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Napageneral/imessage-max/imessage"
)

const defaultCacheTTL = time.Hour

// Config holds the imessage-max configuration. File values come from
// config.toml in the app directory; environment variables override them.
type Config struct {
	AppDir     string `toml:"-"`
	ConfigPath string `toml:"-"`

	ChatDBPath         string `toml:"chat_db"`
	ContactsFile       string `toml:"contacts_file"`
	AddressBookDir     string `toml:"address_book_dir"`
	DisableAddressBook bool   `toml:"disable_address_book"`
	RedisURL           string `toml:"redis_url"`
	ContactsCacheTTL   string `toml:"contacts_cache_ttl"`
	LogLevel           string `toml:"log_level"`
	LogPath            string `toml:"log_path"`
	Timezone           string `toml:"timezone"`
}

// GetAppDir returns the imessage-max application directory for the current OS
func GetAppDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "imessage-max")
	case "linux":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "imessage-max")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, _ := os.UserHomeDir()
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "imessage-max")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".imessage-max")
	}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	appDir := GetAppDir()
	return &Config{
		AppDir:     appDir,
		ConfigPath: filepath.Join(appDir, "config.toml"),
		ChatDBPath: imessage.DefaultChatDBPath(),
		LogLevel:   "info",
	}
}

// Load returns a Config with file values, env overrides and defaults. An
// empty path reads the default config.toml if it exists; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if explicit {
		cfg.ConfigPath = path
	}

	md, err := toml.DecodeFile(cfg.ConfigPath, cfg)
	switch {
	case err == nil:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("unknown keys in %s: %s", cfg.ConfigPath, strings.Join(keys, ", "))
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.ChatDBPath = getEnv("IMESSAGE_MAX_CHAT_DB", cfg.ChatDBPath)
	cfg.ContactsFile = getEnv("IMESSAGE_MAX_CONTACTS_FILE", cfg.ContactsFile)
	cfg.RedisURL = getEnv("IMESSAGE_MAX_REDIS_URL", cfg.RedisURL)
	cfg.LogLevel = getEnv("IMESSAGE_MAX_LOG_LEVEL", cfg.LogLevel)
	cfg.Timezone = getEnv("IMESSAGE_MAX_TZ", cfg.Timezone)

	cfg.ChatDBPath = imessage.ExpandHome(cfg.ChatDBPath)
	cfg.ContactsFile = imessage.ExpandHome(cfg.ContactsFile)
	cfg.AddressBookDir = imessage.ExpandHome(cfg.AddressBookDir)
	cfg.LogPath = imessage.ExpandHome(cfg.LogPath)

	if _, err := cfg.CacheTTL(); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// CacheTTL is how long a Redis-cached contact lookup stays valid.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.ContactsCacheTTL == "" {
		return defaultCacheTTL, nil
	}
	d, err := time.ParseDuration(c.ContactsCacheTTL)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid contacts_cache_ttl %q", c.ContactsCacheTTL)
	}
	return d, nil
}

// Location is the zone timestamps are rendered in, local time by default.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
