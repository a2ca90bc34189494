package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Correlation defaults
	CorrelationMethod    string  `mapstructure:"correlation_method" yaml:"correlation_method"`
	CorrelationThreshold float64 `mapstructure:"correlation_threshold" yaml:"correlation_threshold"`

	// Outlier detection defaults, one threshold per method
	OutlierMethod           string  `mapstructure:"outlier_method" yaml:"outlier_method"`
	IQRMultiplier           float64 `mapstructure:"iqr_multiplier" yaml:"iqr_multiplier"`
	ZScoreThreshold         float64 `mapstructure:"zscore_threshold" yaml:"zscore_threshold"`
	ModifiedZScoreThreshold float64 `mapstructure:"modified_zscore_threshold" yaml:"modified_zscore_threshold"`

	SeasonalityMinACF float64 `mapstructure:"seasonality_min_acf" yaml:"seasonality_min_acf"`

	// Resource limits
	MaxColumns  int `mapstructure:"max_columns" yaml:"max_columns"`
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism"`
	MaxRows     int `mapstructure:"max_rows" yaml:"max_rows"`

	ReportsDir string `mapstructure:"reports_dir" yaml:"reports_dir"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// DefaultDir is ~/.tabstat.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabstat"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabstat/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file (cfgFile or ~/.tabstat/config.yaml) > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TABSTAT")
	v.AutomaticEnv()

	v.SetDefault("correlation_method", "pearson")
	v.SetDefault("correlation_threshold", 0.5)
	v.SetDefault("outlier_method", "iqr")
	v.SetDefault("iqr_multiplier", 1.5)
	v.SetDefault("zscore_threshold", 3.0)
	v.SetDefault("modified_zscore_threshold", 3.5)
	v.SetDefault("seasonality_min_acf", 0.5)
	v.SetDefault("max_columns", 50)
	v.SetDefault("parallelism", 0)
	v.SetDefault("max_rows", 0)
	v.SetDefault("reports_dir", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.ReportsDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		c.ReportsDir = filepath.Join(dir, "reports")
	}
	return &c, nil
}

// OutlierThreshold returns the configured threshold for an outlier method.
func (c *Global) OutlierThreshold(method string) float64 {
	switch strings.ToLower(method) {
	case "zscore":
		return c.ZScoreThreshold
	case "modified_zscore", "mad":
		return c.ModifiedZScoreThreshold
	default:
		return c.IQRMultiplier
	}
}

// Keys lists every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get renders the value of key as a string.
func (c *Global) Get(key string) (string, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return "", err
	}
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("unknown key: %s", key)
	}
	return fmt.Sprint(v), nil
}

// Set parses val for key and stores it.
func (c *Global) Set(key, val string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown key: %s (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return set(c, strings.TrimSpace(val))
}

var setters = map[string]func(c *Global, val string) error{
	"correlation_method": func(c *Global, val string) error {
		switch m := strings.ToLower(val); m {
		case "pearson", "spearman", "kendall":
			c.CorrelationMethod = m
			return nil
		}
		return fmt.Errorf("invalid correlation_method: %s (use pearson, spearman or kendall)", val)
	},
	"correlation_threshold": floatSetter("correlation_threshold", 0, 1, func(c *Global, f float64) { c.CorrelationThreshold = f }),
	"outlier_method": func(c *Global, val string) error {
		switch m := strings.ToLower(val); m {
		case "iqr", "zscore", "modified_zscore":
			c.OutlierMethod = m
			return nil
		case "mad":
			c.OutlierMethod = "modified_zscore"
			return nil
		}
		return fmt.Errorf("invalid outlier_method: %s (use iqr, zscore or modified_zscore)", val)
	},
	"iqr_multiplier":            floatSetter("iqr_multiplier", 0, -1, func(c *Global, f float64) { c.IQRMultiplier = f }),
	"zscore_threshold":          floatSetter("zscore_threshold", 0, -1, func(c *Global, f float64) { c.ZScoreThreshold = f }),
	"modified_zscore_threshold": floatSetter("modified_zscore_threshold", 0, -1, func(c *Global, f float64) { c.ModifiedZScoreThreshold = f }),
	"seasonality_min_acf":       floatSetter("seasonality_min_acf", 0, 1, func(c *Global, f float64) { c.SeasonalityMinACF = f }),
	"max_columns":               intSetter("max_columns", func(c *Global, i int) { c.MaxColumns = i }),
	"parallelism":               intSetter("parallelism", func(c *Global, i int) { c.Parallelism = i }),
	"max_rows":                  intSetter("max_rows", func(c *Global, i int) { c.MaxRows = i }),
	"reports_dir": func(c *Global, val string) error {
		c.ReportsDir = val
		return nil
	},
	"log_level": func(c *Global, val string) error {
		switch l := strings.ToLower(val); l {
		case "debug", "info", "warn", "error":
			c.LogLevel = l
			return nil
		}
		return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
	},
	"log_format": func(c *Global, val string) error {
		switch f := strings.ToLower(val); f {
		case "text", "json":
			c.LogFormat = f
			return nil
		}
		return fmt.Errorf("invalid log_format: %s (use text or json)", val)
	},
}

// floatSetter accepts values in [lo, hi]; hi < 0 means unbounded above.
func floatSetter(key string, lo, hi float64, apply func(*Global, float64)) func(*Global, string) error {
	return func(c *Global, val string) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < lo || (hi >= 0 && f > hi) {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		apply(c, f)
		return nil
	}
}

func intSetter(key string, apply func(*Global, int)) func(*Global, string) error {
	return func(c *Global, val string) error {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		apply(c, i)
		return nil
	}
}
