package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/sheetscope-cli/internal/ingest"
	"github.com/KaramelBytes/sheetscope-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	abOutDir string
	abJSON   bool
	abCorr   bool
	abQuiet  bool
	abInput  inputFlags
	abFilter filterFlags
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple spreadsheets with progress output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		if abOutDir != "" {
			if err := utils.EnsureDir(abOutDir); err != nil {
				return err
			}
		}

		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			st, err := loadState(cmd, path, &abInput, &abFilter)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			out, err := renderAnalysis(st, abJSON, abCorr, 5)
			if err != nil {
				return err
			}
			if abOutDir == "" {
				if !abQuiet {
					fmt.Println(out)
				}
				continue
			}
			ext := ".summary.md"
			if abJSON {
				ext = ".summary.json"
			}
			outFile := uniquePath(abOutDir, safeBase(path), ext)
			if err := utils.SafeWriteFile(outFile, []byte(out)); err != nil {
				return err
			}
			if !abQuiet {
				fmt.Printf("✓ Wrote analysis to %s\n", outFile)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "write one summary file per input into this directory")
	analyzeBatchCmd.Flags().BoolVar(&abJSON, "json", false, "emit JSON instead of the text report")
	analyzeBatchCmd.Flags().BoolVar(&abCorr, "correlations", false, "include Pearson correlations among numeric columns")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	abInput.register(analyzeBatchCmd.Flags())
	abFilter.register(analyzeBatchCmd.Flags())
}

// expandInputs resolves globs, keeps literal paths that exist and skips
// files no loader accepts. The result is sorted and free of duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok || !ingest.Supported(m) {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func safeBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// uniquePath returns dir/base+ext, or dir/base__N+ext when that exists.
func uniquePath(dir, base, ext string) string {
	p := filepath.Join(dir, base+ext)
	if _, err := os.Stat(p); err != nil {
		return p
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			if !abQuiet {
				fmt.Printf("⚠ Detected existing summary, writing to %s to avoid overwrite.\n", filepath.Base(cand))
			}
			return cand
		}
	}
}
