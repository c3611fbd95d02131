package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// LogFormat is "console" or "json". serve defaults to json.
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Ingest
	MaxUploadMB        int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	DecimalSeparator   string   `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string   `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	NullTokens         []string `mapstructure:"null_tokens" yaml:"null_tokens"`

	// Cleaning and classification
	CategoricalMaxDistinct int      `mapstructure:"categorical_max_distinct" yaml:"categorical_max_distinct"`
	CategoricalMaxRatio    float64  `mapstructure:"categorical_max_ratio" yaml:"categorical_max_ratio"`
	DateKeywords           []string `mapstructure:"date_keywords" yaml:"date_keywords"`

	// Summary and views
	NumericStatsLimit int `mapstructure:"numeric_stats_limit" yaml:"numeric_stats_limit"`
	TopN              int `mapstructure:"top_n" yaml:"top_n"`

	// Outputs
	ServerAddr   string `mapstructure:"server_addr" yaml:"server_addr"`
	ExportFormat string `mapstructure:"export_format" yaml:"export_format"`
}

// Dir returns ~/.sheetscope.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".sheetscope"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.sheetscope/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
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
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SHEETSCOPE")
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("max_upload_mb", 200)
	v.SetDefault("decimal_separator", ".")
	v.SetDefault("thousands_separator", ",")
	v.SetDefault("null_tokens", []string{"null", "nan", "n/a", "na", "#n/a", "none", "-"})
	v.SetDefault("categorical_max_distinct", 50)
	v.SetDefault("categorical_max_ratio", 0.0)
	v.SetDefault("date_keywords", []string{
		"date", "time", "day", "month", "year",
		"tanggal", "waktu", "bulan", "tahun",
		"fecha", "datum", "jour",
		"日期", "时间",
	})
	v.SetDefault("numeric_stats_limit", 5)
	v.SetDefault("top_n", 10)
	v.SetDefault("server_addr", "127.0.0.1:8080")
	v.SetDefault("export_format", "xlsx")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Rune returns the first rune of s, or 0 when s is empty.
func Rune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
