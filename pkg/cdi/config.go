package cdi

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config controls one CrystalDiskInfo capture
type Config struct {
	ExecutablePath        string
	LogPath               string
	LogPrefix             string
	ScreenshotDriveLetter string
	TextName              string
	JSONName              string
	PNGName               string
	WindowTitle           string
	WindowClass           string
	SaveDialogTimeout     time.Duration
	SaveRetryMax          int
	Timeout               time.Duration
	CheckInterval         time.Duration
	ProcessName           string
	Strict                bool
}

// DefaultConfig returns the stock CrystalDiskInfo layout
func DefaultConfig() Config {
	return Config{
		ExecutablePath:    "./bin/CrystalDiskInfo/DiskInfo64.exe",
		LogPath:           "./testlog",
		TextName:          "DiskInfo.txt",
		JSONName:          "DiskInfo.json",
		WindowTitle:       " CrystalDiskInfo ",
		WindowClass:       "#32770",
		SaveDialogTimeout: 20 * time.Second,
		SaveRetryMax:      10,
		Timeout:           300 * time.Second,
		CheckInterval:     2 * time.Second,
		ProcessName:       "DiskInfo64.exe",
	}
}

// TextPath is where the exported plaintext report is written
func (c Config) TextPath() string {
	return filepath.Join(c.LogPath, c.LogPrefix+c.TextName)
}

// JSONPath is where the parsed snapshot is written
func (c Config) JSONPath() string {
	return filepath.Join(c.LogPath, c.LogPrefix+c.JSONName)
}

// Store returns the snapshot store rooted at the log directory
func (c Config) Store() *Store {
	return NewStore(c.LogPath, c.JSONName)
}

// Map returns c keyed by config name, suitable for Apply. Durations are seconds.
func (c Config) Map() map[string]interface{} {
	return map[string]interface{}{
		"executable_path":         c.ExecutablePath,
		"log_path":                c.LogPath,
		"log_prefix":              c.LogPrefix,
		"screenshot_drive_letter": c.ScreenshotDriveLetter,
		"diskinfo_txt_name":       c.TextName,
		"diskinfo_json_name":      c.JSONName,
		"diskinfo_png_name":       c.PNGName,
		"window_title":            c.WindowTitle,
		"window_class":            c.WindowClass,
		"save_dialog_timeout":     c.SaveDialogTimeout.Seconds(),
		"save_retry_max":          c.SaveRetryMax,
		"timeout_seconds":         c.Timeout.Seconds(),
		"check_interval_seconds":  c.CheckInterval.Seconds(),
		"process_name":            c.ProcessName,
		"strict":                  c.Strict,
	}
}

// configField binds one config key to its setter and validation rule
type configField struct {
	name  string
	set   func(*Config, interface{}) error
	check func(Config) error
}

var configFields = []configField{
	{"executable_path", setString(func(c *Config) *string { return &c.ExecutablePath }), notEmpty(func(c Config) string { return c.ExecutablePath })},
	{"log_path", setString(func(c *Config) *string { return &c.LogPath }), notEmpty(func(c Config) string { return c.LogPath })},
	{"log_prefix", setString(func(c *Config) *string { return &c.LogPrefix }), fileName(func(c Config) string { return c.LogPrefix }, true)},
	{"screenshot_drive_letter", setString(func(c *Config) *string { return &c.ScreenshotDriveLetter }), nil},
	{"diskinfo_txt_name", setString(func(c *Config) *string { return &c.TextName }), fileName(func(c Config) string { return c.TextName }, false)},
	{"diskinfo_json_name", setString(func(c *Config) *string { return &c.JSONName }), fileName(func(c Config) string { return c.JSONName }, false)},
	{"diskinfo_png_name", setString(func(c *Config) *string { return &c.PNGName }), fileName(func(c Config) string { return c.PNGName }, true)},
	{"window_title", setString(func(c *Config) *string { return &c.WindowTitle }), nil},
	{"window_class", setString(func(c *Config) *string { return &c.WindowClass }), nil},
	{"save_dialog_timeout", setDuration(func(c *Config) *time.Duration { return &c.SaveDialogTimeout }), positive(func(c Config) time.Duration { return c.SaveDialogTimeout })},
	{"save_retry_max", setInt(func(c *Config) *int { return &c.SaveRetryMax }), func(c Config) error {
		if c.SaveRetryMax < 1 {
			return fmt.Errorf("must be at least 1, got %d", c.SaveRetryMax)
		}
		return nil
	}},
	{"timeout_seconds", setDuration(func(c *Config) *time.Duration { return &c.Timeout }), positive(func(c Config) time.Duration { return c.Timeout })},
	{"check_interval_seconds", setDuration(func(c *Config) *time.Duration { return &c.CheckInterval }), positive(func(c Config) time.Duration { return c.CheckInterval })},
	{"process_name", setString(func(c *Config) *string { return &c.ProcessName }), notEmpty(func(c Config) string { return c.ProcessName })},
	{"strict", setBool(func(c *Config) *bool { return &c.Strict }), nil},
}

// legacyKeys maps the original Config.json field names
var legacyKeys = map[string]string{
	"ExePath":               "executable_path",
	"LogPath":               "log_path",
	"LogPrefix":             "log_prefix",
	"ScreenShotDriveLetter": "screenshot_drive_letter",
	"DiskInfo_txt_name":     "diskinfo_txt_name",
	"DiskInfo_json_name":    "diskinfo_json_name",
	"DiskInfo_png_name":     "diskinfo_png_name",
}

func lookupField(key string) (configField, bool) {
	if mapped, ok := legacyKeys[key]; ok {
		key = mapped
	}
	for _, f := range configFields {
		if f.name == key {
			return f, true
		}
	}
	return configField{}, false
}

// ConfigKeys returns every accepted config key
func ConfigKeys() []string {
	keys := make([]string, 0, len(configFields))
	for _, f := range configFields {
		keys = append(keys, f.name)
	}
	return keys
}

// Validate evaluates every field rule
func (c Config) Validate() error {
	for _, f := range configFields {
		if f.check == nil {
			continue
		}
		if err := f.check(c); err != nil {
			return &ConfigError{Field: f.name, Reason: err.Error()}
		}
	}
	return nil
}

// Apply merges overrides into a copy of c and validates the result.
// Keys are snake_case field names or legacy Config.json names.
func (c Config) Apply(overrides map[string]interface{}) (Config, error) {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := c
	for _, key := range keys {
		f, ok := lookupField(key)
		if !ok {
			return c, &ConfigError{Field: key, Reason: "unknown parameter"}
		}
		if err := f.set(&merged, overrides[key]); err != nil {
			return c, &ConfigError{Field: key, Reason: err.Error()}
		}
	}
	if err := merged.Validate(); err != nil {
		return c, err
	}
	return merged, nil
}

// LoadOptions tunes LoadConfig
type LoadOptions struct {
	// Section is the top-level key holding the CDI settings (default "cdi")
	Section string
	// LogRoot replaces "./testlog" in string values when set
	LogRoot string
	Logger  *slog.Logger
}

// LoadConfig reads a YAML, JSON or TOML file and applies its section on top
// of base. Unknown keys in the section are skipped.
func LoadConfig(path string, base Config, opts LoadOptions) (Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	section := opts.Section
	if section == "" {
		section = "cdi"
	}

	data, err := os.ReadFile(path) // #nosec G304 -- config path comes from the command line
	if err != nil {
		if os.IsNotExist(err) {
			return base, fmt.Errorf("%w: config file not found: %s", ErrConfig, path)
		}
		return base, fmt.Errorf("failed to read config: %w", err)
	}

	doc := map[string]interface{}{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return base, fmt.Errorf("%w: invalid config file %s: %v", ErrConfig, path, err)
	}

	raw, ok := doc[section]
	if !ok {
		return base, fmt.Errorf("%w: key %q not found in %s", ErrConfig, section, path)
	}
	values, ok := raw.(map[string]interface{})
	if !ok {
		return base, fmt.Errorf("%w: key %q in %s is not a table", ErrConfig, section, path)
	}

	overrides := make(map[string]interface{}, len(values))
	for key, value := range values {
		if _, ok := lookupField(key); !ok {
			logger.Debug("skipping unknown config key", "key", key, "path", path)
			continue
		}
		if s, ok := value.(string); ok && opts.LogRoot != "" && strings.Contains(s, "./testlog") {
			value = strings.ReplaceAll(s, "./testlog", opts.LogRoot)
		}
		overrides[key] = value
	}

	cfg, err := base.Apply(overrides)
	if err != nil {
		return base, err
	}
	logger.Info("config loaded", "path", path, "section", section, "keys", len(overrides))
	return cfg, nil
}

func setString(field func(*Config) *string) func(*Config, interface{}) error {
	return func(c *Config, v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("must be a string, got %T", v)
		}
		*field(c) = s
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, interface{}) error {
	return func(c *Config, v interface{}) error {
		switch n := v.(type) {
		case int:
			*field(c) = n
		case int64:
			*field(c) = int(n)
		case float64:
			if n != float64(int(n)) {
				return fmt.Errorf("must be an integer, got %v", n)
			}
			*field(c) = int(n)
		case string:
			i, err := strconv.Atoi(n)
			if err != nil {
				return fmt.Errorf("must be an integer, got %q", n)
			}
			*field(c) = i
		default:
			return fmt.Errorf("must be an integer, got %T", v)
		}
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, interface{}) error {
	return func(c *Config, v interface{}) error {
		switch b := v.(type) {
		case bool:
			*field(c) = b
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return fmt.Errorf("must be a boolean, got %q", b)
			}
			*field(c) = parsed
		default:
			return fmt.Errorf("must be a boolean, got %T", v)
		}
		return nil
	}
}

// setDuration accepts seconds as a number or numeric string, or a Go duration string
func setDuration(field func(*Config) *time.Duration) func(*Config, interface{}) error {
	return func(c *Config, v interface{}) error {
		switch n := v.(type) {
		case int:
			*field(c) = time.Duration(n) * time.Second
		case int64:
			*field(c) = time.Duration(n) * time.Second
		case float64:
			*field(c) = time.Duration(n * float64(time.Second))
		case time.Duration:
			*field(c) = n
		case string:
			if secs, err := strconv.ParseFloat(n, 64); err == nil {
				*field(c) = time.Duration(secs * float64(time.Second))
				return nil
			}
			d, err := time.ParseDuration(n)
			if err != nil {
				return fmt.Errorf("must be seconds or a duration, got %q", n)
			}
			*field(c) = d
		default:
			return fmt.Errorf("must be seconds or a duration, got %T", v)
		}
		return nil
	}
}

func notEmpty(get func(Config) string) func(Config) error {
	return func(c Config) error {
		if strings.TrimSpace(get(c)) == "" {
			return fmt.Errorf("must not be empty")
		}
		return nil
	}
}

func fileName(get func(Config) string, allowEmpty bool) func(Config) error {
	return func(c Config) error {
		v := get(c)
		if v == "" {
			if allowEmpty {
				return nil
			}
			return fmt.Errorf("must not be empty")
		}
		if strings.ContainsAny(v, `/\`) {
			return fmt.Errorf("must be a file name, got %q", v)
		}
		return nil
	}
}

func positive(get func(Config) time.Duration) func(Config) error {
	return func(c Config) error {
		if d := get(c); d <= 0 {
			return fmt.Errorf("must be positive, got %s", d)
		}
		return nil
	}
}
