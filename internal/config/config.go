package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"ampyfm/internal/errors"

	"gopkg.in/yaml.v3"
)

// Default connection settings, used when the config file is missing or
// cannot be parsed.
const (
	DefaultPort     = "/dev/ttyUSB0"
	DefaultBaud     = 115200
	DefaultDelay    = 0.0
	DefaultTool     = "ampy"
	DefaultInterval = 3.0

	// MaxDelay bounds the inter-command delay accepted from the user.
	MaxDelay = 10.0
)

// BaudRates lists the rates offered by the baud selector, in display order.
var BaudRates = []int{
	300, 600, 1200, 2400, 4800, 9600, 14400, 19200, 28800, 38400, 57600, 115200,
	230400, 460800, 500000, 576000, 921600,
}

// DefaultIgnore is the local listing ignore list.
var DefaultIgnore = []string{".DS_Store", ".git", ".idea"}

// Config represents the application configuration structure.
// It is read once at startup and never written back.
type Config struct {
	Device struct {
		Port  string  `yaml:"port"`  // Serial port of the board
		Baud  int     `yaml:"baud"`  // Baud rate, one of BaudRates
		Delay float64 `yaml:"delay"` // Seconds ampy waits before entering raw REPL
	} `yaml:"device"`
	Tool struct {
		Command     string `yaml:"command"`      // Transfer tool executable
		ErrorMarker string `yaml:"error_marker"` // Marker in stderr preceding the readable error
	} `yaml:"tool"`
	Monitor struct {
		Enabled  bool    `yaml:"enabled"`  // Periodically re-probe the port while connected
		Interval float64 `yaml:"interval"` // Re-probe interval in seconds
	} `yaml:"monitor"`
	Local struct {
		StartDir string   `yaml:"start_dir"` // Initial local directory (default: working directory)
		Ignore   []string `yaml:"ignore"`    // Glob patterns hidden from the local listing
	} `yaml:"local"`
}

// DefaultConfigPath returns ~/.config/ampyfm/config.yaml
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ampyfm", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location.
func LoadConfig() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return New(), err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
// A missing file yields the defaults and no error. A file that cannot be read,
// parsed or validated also yields the defaults, together with an error the
// caller should report as a warning.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.NewFileError("error reading config file", path, errors.FileAccessDenied, err)
	}

	// Unmarshal over the defaults so fields absent from the file keep them
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return defaultConfig(), errors.NewConfigError("error parsing config file", path, errors.InvalidConfig, err)
	}
	if cfg.Tool.Command == "" {
		cfg.Tool.Command = DefaultTool
	}
	if cfg.Tool.ErrorMarker == "" {
		cfg.Tool.ErrorMarker = errors.DefaultErrorMarker
	}

	if err := cfg.Validate(); err != nil {
		return defaultConfig(), err
	}

	return cfg, nil
}

// defaultConfig returns the default configuration.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Device.Port = DefaultPort
	cfg.Device.Baud = DefaultBaud
	cfg.Device.Delay = DefaultDelay

	cfg.Tool.Command = DefaultTool
	cfg.Tool.ErrorMarker = errors.DefaultErrorMarker

	cfg.Monitor.Enabled = true
	cfg.Monitor.Interval = DefaultInterval

	cfg.Local.Ignore = append([]string(nil), DefaultIgnore...)

	return cfg
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil config", "", errors.InvalidConfig, nil)
	}
	if c.Device.Port == "" {
		return errors.NewConfigError("port is required", "device.port", errors.InvalidConfig, nil)
	}
	if err := ValidateBaud(c.Device.Baud); err != nil {
		return err
	}
	if err := ValidateDelay(c.Device.Delay); err != nil {
		return err
	}
	if c.Monitor.Enabled && !(c.Monitor.Interval > 0) {
		return errors.NewConfigError("monitor interval must be > 0 seconds", "monitor.interval", errors.InvalidConfig, nil)
	}
	return nil
}

// ValidateBaud reports whether baud is one of BaudRates
func ValidateBaud(baud int) error {
	for _, b := range BaudRates {
		if b == baud {
			return nil
		}
	}
	return errors.NewConfigError("unsupported baud rate", "device.baud", errors.InvalidConfig,
		fmt.Errorf("%d", baud))
}

// ValidateDelay reports whether delay is within [0, MaxDelay]. NaN fails.
func ValidateDelay(delay float64) error {
	if !(delay >= 0 && delay <= MaxDelay) {
		return errors.NewConfigError("delay out of range", "device.delay", errors.InvalidConfig,
			fmt.Errorf("%s not in [0, %s]", FormatDelay(delay), FormatDelay(MaxDelay)))
	}
	return nil
}

// ParseBaud parses and validates a baud rate string
func ParseBaud(s string) (int, error) {
	baud, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewConfigError("invalid baud rate", "device.baud", errors.InvalidConfig, err)
	}
	if err := ValidateBaud(baud); err != nil {
		return 0, err
	}
	return baud, nil
}

// ParseDelay parses and validates a delay string in seconds
func ParseDelay(s string) (float64, error) {
	delay, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.NewConfigError("invalid delay", "device.delay", errors.InvalidConfig, err)
	}
	if err := ValidateDelay(delay); err != nil {
		return 0, err
	}
	return delay, nil
}

// FormatDelay renders a delay the way it is passed on the command line
func FormatDelay(delay float64) string {
	return strconv.FormatFloat(delay, 'f', -1, 64)
}

// BaudLabels returns BaudRates as strings for selection widgets
func BaudLabels() []string {
	labels := make([]string, len(BaudRates))
	for i, b := range BaudRates {
		labels[i] = strconv.Itoa(b)
	}
	return labels
}
