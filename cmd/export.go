package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/sheetscope-cli/internal/config"
	"github.com/KaramelBytes/sheetscope-cli/internal/export"
	"github.com/KaramelBytes/sheetscope-cli/internal/session"
	"github.com/spf13/cobra"
)

var (
	expOutputPath string
	expFormat     string
	expInput      inputFlags
	expFilter     filterFlags
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the cleaned (and optionally filtered) dataset as CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadState(cmd, args[0], &expInput, &expFilter)
		if err != nil {
			return err
		}
		format, err := exportFormat(expFormat, expOutputPath, currentConfig())
		if err != nil {
			return err
		}
		out := expOutputPath
		if out == "" {
			suffix := "_cleaned."
			if !st.Filter.IsEmpty() {
				suffix = "_filtered."
			}
			out = safeBase(st.FileName) + suffix + string(format)
		}
		return writeExport(out, format, st)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&expOutputPath, "output", "o", "", "output path (default: <name>_cleaned.<format>)")
	exportCmd.Flags().StringVar(&expFormat, "format", "", "csv | xlsx (default: from --output extension, then config)")
	expInput.register(exportCmd.Flags())
	expFilter.register(exportCmd.Flags())
}

// exportFormat picks the flag value, then the output extension, then the
// configured default.
func exportFormat(flag, out string, c *cfgpkg.Global) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	if out != "" {
		return export.FormatForPath(out), nil
	}
	if c.ExportFormat != "" {
		return export.ParseFormat(c.ExportFormat)
	}
	return export.XLSX, nil
}

func writeExport(path string, format export.Format, st *session.State) error {
	res, err := export.New().ExportFile(path, format, st.View, st.ViewReport)
	if err != nil {
		return err
	}
	if res.Notice != "" {
		fmt.Fprintln(os.Stderr, "⚠", res.Notice)
	}
	fmt.Printf("✓ Exported %d rows to %s\n", st.View.Rows(), res.Path)
	return nil
}
