package app

import (
	stderrors "errors"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ckdake/fitler"
	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/reconciler"
)

// Configuration defaults.
const (
	DefaultDatabase     = "fitler.db"
	DefaultHomeTimezone = "US/Eastern"
	defaultPriority     = 999
)

// SourceConfig configures one source.
type SourceConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Path is a directory of YAML or JSON activity exports.
	Path string `mapstructure:"path"`

	// Priority orders sources when no precedence list is given. Lower wins.
	Priority int `mapstructure:"priority"`
}

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Output  string

	// Config file
	ConfigFile string

	// Engine configuration
	Database          string
	HomeTimezone      string
	Precedence        []string
	Strategy          string
	MatchWindow       time.Duration
	DurationTolerance float64
	FetchTimeout      time.Duration
	Concurrency       int
	MetricsTextfile   string
	Sources           map[string]SourceConfig

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (FITLER_ prefix)
// 3. .env files
// 4. Config file (configFile, or ~/.fitler.yaml, or ./.fitler.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix("fitler")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".fitler")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !stderrors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "reading "+describe(configFile, v), err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Output:  v.GetString("output"),

		ConfigFile: v.ConfigFileUsed(),

		Database:          v.GetString("database"),
		HomeTimezone:      v.GetString("home_timezone"),
		Precedence:        v.GetStringSlice("precedence"),
		Strategy:          v.GetString("strategy"),
		MatchWindow:       v.GetDuration("match_window"),
		DurationTolerance: v.GetFloat64("duration_tolerance"),
		FetchTimeout:      v.GetDuration("fetch_timeout"),
		Concurrency:       v.GetInt("concurrency"),
		MetricsTextfile:   v.GetString("metrics_textfile"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", v.GetString("log.level")),
		LogFormat: getEnvOrDefault("LOG_FORMAT", v.GetString("log.format")),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", v.GetString("log.output")),
	}

	if len(config.Precedence) == 0 {
		if legacy := v.GetString("provider_priority"); legacy != "" {
			config.Precedence = splitList(legacy)
		}
	}

	if err := v.UnmarshalKey("sources", &config.Sources); err != nil {
		return nil, errors.NewConfigError("config", "decoding sources", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", DefaultDatabase)
	v.SetDefault("home_timezone", DefaultHomeTimezone)
	v.SetDefault("strategy", string(reconciler.StrategyTypeFillEmpty))
	v.SetDefault("match_window", reconciler.DefaultMatchWindow)
	v.SetDefault("duration_tolerance", reconciler.DefaultDurationTolerance)
	v.SetDefault("fetch_timeout", fitler.DefaultFetchTimeout)
	v.SetDefault("concurrency", fitler.DefaultConcurrency)
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

func describe(configFile string, v *viper.Viper) string {
	if configFile != "" {
		return configFile
	}
	return v.ConfigFileUsed()
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, output, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if output != "" {
		c.Output = output
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// Location resolves the home time zone.
func (c *Config) Location() (*time.Location, error) {
	name := c.HomeTimezone
	if name == "" {
		name = DefaultHomeTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.NewConfigError("home_timezone", name, err)
	}
	return loc, nil
}

// EnabledSources returns the enabled sources in priority order, then by name.
func (c *Config) EnabledSources() ([]activities.Source, error) {
	type ranked struct {
		source   activities.Source
		priority int
	}
	var out []ranked
	for name, sc := range c.Sources {
		if !sc.Enabled {
			continue
		}
		source, err := activities.ParseSource(name)
		if err != nil {
			return nil, errors.NewConfigError("sources", name, err)
		}
		if sc.Path == "" {
			return nil, errors.NewConfigError("sources", name, stderrors.New("path is required"))
		}
		priority := sc.Priority
		if priority == 0 {
			priority = defaultPriority
		}
		out = append(out, ranked{source: source, priority: priority})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority < out[j].priority
		}
		return out[i].source < out[j].source
	})

	sources := make([]activities.Source, len(out))
	for i, r := range out {
		sources[i] = r.source
	}
	return sources, nil
}

// SourcePath returns the export directory configured for source.
func (c *Config) SourcePath(source activities.Source) string {
	for name, sc := range c.Sources {
		if s, err := activities.ParseSource(name); err == nil && s == source {
			return sc.Path
		}
	}
	return ""
}

// PrecedenceOrder returns the configured precedence. Without an explicit
// list, enabled sources by priority follow the default order.
func (c *Config) PrecedenceOrder() ([]activities.Source, error) {
	if len(c.Precedence) > 0 {
		order, err := activities.ParseSources(c.Precedence...)
		if err != nil {
			return nil, errors.NewConfigError("precedence", strings.Join(c.Precedence, ","), err)
		}
		return order, nil
	}

	enabled, err := c.EnabledSources()
	if err != nil {
		return nil, err
	}
	if len(enabled) == 0 {
		return nil, nil
	}
	order := enabled
	for _, s := range activities.Sources() {
		if s != activities.Main && !contains(order, s) {
			order = append(order, s)
		}
	}
	return order, nil
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(list []activities.Source, s activities.Source) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
