package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rhystmorgan/contactbook/internal/api"
)

const (
	EnvConfigPath      = "CONTACTBOOK_CONFIG"
	EnvAPIURL          = "CONTACTBOOK_API_URL"
	EnvTimeout         = "CONTACTBOOK_TIMEOUT"
	EnvScrollThreshold = "CONTACTBOOK_SCROLL_THRESHOLD"
	EnvErrorToast      = "CONTACTBOOK_ERROR_TOAST"
	EnvInfoToast       = "CONTACTBOOK_INFO_TOAST"
	EnvLogLevel        = "CONTACTBOOK_LOG_LEVEL"
	EnvLogFile         = "CONTACTBOOK_LOG_FILE"
	EnvDebug           = "CONTACTBOOK_DEBUG"

	configDirName  = ".contactbook"
	configFileName = "config.yaml"
	logFileName    = "contactterm.log"
)

type Config struct {
	APIURL          string        `yaml:"api_url"`
	Timeout         time.Duration `yaml:"timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	ScrollThreshold int           `yaml:"scroll_threshold"`
	ErrorToast      time.Duration `yaml:"error_toast"`
	InfoToast       time.Duration `yaml:"info_toast"`
	LogLevel        string        `yaml:"log_level"`
	LogFile         string        `yaml:"log_file"`
	Debug           bool          `yaml:"debug"`
}

// Load reads the config file named by CONTACTBOOK_CONFIG (or the default
// path) and applies environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	config := GetDefaultConfig()

	if path != "" {
		if err := config.mergeFile(path); err != nil {
			return nil, err
		}
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Path returns the config file location.
func Path() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Dir returns ~/.contactbook.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIURL = getEnvOrDefault(EnvAPIURL, c.APIURL)
	c.Timeout = parseDurationOrDefault(EnvTimeout, c.Timeout)
	c.ScrollThreshold = parseIntOrDefault(EnvScrollThreshold, c.ScrollThreshold)
	c.ErrorToast = parseDurationOrDefault(EnvErrorToast, c.ErrorToast)
	c.InfoToast = parseDurationOrDefault(EnvInfoToast, c.InfoToast)
	c.LogLevel = strings.ToLower(getEnvOrDefault(EnvLogLevel, c.LogLevel))
	c.LogFile = getEnvOrDefault(EnvLogFile, c.LogFile)
	if IsDebugEnabled() {
		c.Debug = true
	}
	if c.Debug {
		c.LogLevel = "debug"
	}
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api url must not be empty")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("invalid api url: %s (must start with http:// or https://)", c.APIURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %v", c.Timeout)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got: %v", c.CacheTTL)
	}

	if c.ScrollThreshold < 0 {
		return fmt.Errorf("scroll threshold must be non-negative, got: %d", c.ScrollThreshold)
	}

	if c.ErrorToast <= 0 || c.InfoToast <= 0 {
		return fmt.Errorf("toast durations must be positive, got: %v and %v", c.ErrorToast, c.InfoToast)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn or error)", c.LogLevel)
	}

	return nil
}

func (c *Config) ToAPIConfig() api.Config {
	return api.Config{
		BaseURL:  c.APIURL,
		Timeout:  c.Timeout,
		CacheTTL: c.CacheTTL,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func GetDefaultConfig() *Config {
	logFile := logFileName
	if dir, err := Dir(); err == nil {
		logFile = filepath.Join(dir, logFileName)
	}
	return &Config{
		APIURL:          api.DefaultBaseURL,
		Timeout:         30 * time.Second,
		CacheTTL:        api.DefaultCacheTTL,
		ScrollThreshold: 200,
		ErrorToast:      5 * time.Second,
		InfoToast:       3 * time.Second,
		LogLevel:        "info",
		LogFile:         logFile,
	}
}

func IsDebugEnabled() bool {
	return os.Getenv(EnvDebug) == "true" || os.Getenv(EnvDebug) == "1"
}
