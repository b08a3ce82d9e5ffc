package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultServerURL = "http://localhost:9995"
	defaultDBPath    = "sitebag.db"
	defaultLogLevel  = "info"
	defaultTimeout   = 10 * time.Second

	EnvPrefix = "SITEBAG"
	configDir = ".sitebag"
)

// Config holds runtime settings for the CLI app.
type Config struct {
	ServerURL         string
	Username          string
	Password          string
	DBPath            string
	LogPath           string
	LogLevel          string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Keys are the viper keys; cobra flags bind to the same names.
const (
	KeyServerURL         = "server_url"
	KeyUsername          = "username"
	KeyPassword          = "password"
	KeyDBPath            = "db_path"
	KeyLogPath           = "log_path"
	KeyLogLevel          = "log_level"
	KeyTimeout           = "timeout"
	KeyRequestsPerSecond = "requests_per_second"
)

// NewViper returns a viper instance with defaults and SITEBAG_* env lookup.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyServerURL, defaultServerURL)
	v.SetDefault(KeyDBPath, defaultDBPath)
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetDefault(KeyTimeout, defaultTimeout)
	v.SetDefault(KeyRequestsPerSecond, 0.0)
	v.SetDefault(KeyUsername, "")
	v.SetDefault(KeyPassword, "")
	v.SetDefault(KeyLogPath, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and builds a validated Config.
// An explicit file must exist; the default $HOME/.sitebag/config.yaml may be
// absent.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, configDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		ServerURL:         strings.TrimSpace(v.GetString(KeyServerURL)),
		Username:          strings.TrimSpace(v.GetString(KeyUsername)),
		Password:          v.GetString(KeyPassword),
		DBPath:            v.GetString(KeyDBPath),
		LogPath:           v.GetString(KeyLogPath),
		LogLevel:          strings.ToLower(v.GetString(KeyLogLevel)),
		Timeout:           v.GetDuration(KeyTimeout),
		RequestsPerSecond: v.GetFloat64(KeyRequestsPerSecond),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("ServerURL is required")
	}
	if strings.HasSuffix(c.ServerURL, "/") {
		return fmt.Errorf("ServerURL must not end with '/': %s", c.ServerURL)
	}
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("ServerURL must be http or https: %s", c.ServerURL)
	}
	if c.Username == "" {
		return errors.New("SITEBAG_USERNAME is required")
	}
	if c.Password == "" {
		return errors.New("SITEBAG_PASSWORD is required")
	}
	if c.DBPath == "" {
		return errors.New("DBPath is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LogLevel must be debug, info, warn or error: %s", c.LogLevel)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("Timeout must be positive: %s", c.Timeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("RequestsPerSecond must not be negative: %v", c.RequestsPerSecond)
	}
	return nil
}
