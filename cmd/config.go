package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/sheetscope-cli/internal/config"
	"github.com/KaramelBytes/sheetscope-cli/internal/export"
	"github.com/KaramelBytes/sheetscope-cli/internal/logging"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set SheetScope configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		fmt.Printf("log_format: %s\n", cfg.LogFormat)
		fmt.Printf("max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Printf("decimal_separator: %q\n", cfg.DecimalSeparator)
		fmt.Printf("thousands_separator: %q\n", cfg.ThousandsSeparator)
		fmt.Printf("null_tokens: %s\n", strings.Join(cfg.NullTokens, ", "))
		fmt.Printf("categorical_max_distinct: %d\n", cfg.CategoricalMaxDistinct)
		if cfg.CategoricalMaxRatio > 0 {
			fmt.Printf("categorical_max_ratio: %.3f\n", cfg.CategoricalMaxRatio)
		}
		fmt.Printf("date_keywords: %s\n", strings.Join(cfg.DateKeywords, ", "))
		fmt.Printf("numeric_stats_limit: %d\n", cfg.NumericStatsLimit)
		fmt.Printf("top_n: %d\n", cfg.TopN)
		fmt.Printf("server_addr: %s\n", cfg.ServerAddr)
		fmt.Printf("export_format: %s\n", cfg.ExportFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "log_level":
		if logging.ParseLevel(val).String() != strings.ToLower(strings.TrimSpace(val)) {
			return fmt.Errorf("invalid log_level: %s", val)
		}
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		switch strings.ToLower(val) {
		case "console", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
	case "max_upload_mb":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for max_upload_mb: %v", val)
		}
		c.MaxUploadMB = i
	case "decimal_separator":
		switch val {
		case ".", ",":
			c.DecimalSeparator = val
		case "comma":
			c.DecimalSeparator = ","
		default:
			return fmt.Errorf("invalid decimal_separator: %s (use '.' or ',')", val)
		}
	case "thousands_separator":
		switch val {
		case ",", ".", " ":
			c.ThousandsSeparator = val
		case "space":
			c.ThousandsSeparator = " "
		default:
			return fmt.Errorf("invalid thousands_separator: %s (use ',', '.' or 'space')", val)
		}
	case "null_tokens":
		c.NullTokens = splitList(val)
	case "categorical_max_distinct":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for categorical_max_distinct: %v", val)
		}
		c.CategoricalMaxDistinct = i
	case "categorical_max_ratio":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("invalid float for categorical_max_ratio: %v (use 0..1)", val)
		}
		c.CategoricalMaxRatio = f
	case "date_keywords":
		c.DateKeywords = splitList(val)
	case "numeric_stats_limit":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for numeric_stats_limit: %v", val)
		}
		c.NumericStatsLimit = i
	case "top_n":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for top_n: %v", val)
		}
		c.TopN = i
	case "server_addr":
		c.ServerAddr = val
	case "export_format":
		f, err := export.ParseFormat(val)
		if err != nil {
			return err
		}
		c.ExportFormat = string(f)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
