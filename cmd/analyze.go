package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/sheetscope-cli/internal/classify"
	"github.com/KaramelBytes/sheetscope-cli/internal/filter"
	"github.com/KaramelBytes/sheetscope-cli/internal/session"
	"github.com/KaramelBytes/sheetscope-cli/internal/summary"
	"github.com/KaramelBytes/sheetscope-cli/internal/utils"
	"github.com/KaramelBytes/sheetscope-cli/internal/views"
	"github.com/spf13/cobra"
)

var (
	anaOutputPath string
	anaJSON       bool
	anaCorr       bool
	anaCorrTop    int
	anaInput      inputFlags
	anaFilter     filterFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Summarize a CSV/TSV/XLSX/XLS file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		st, err := loadState(cmd, path, &anaInput, &anaFilter)
		if err != nil {
			return err
		}
		out, err := renderAnalysis(st, anaJSON, anaCorr, anaCorrTop)
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(out)); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the analysis to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "emit JSON instead of the text report")
	analyzeCmd.Flags().BoolVar(&anaCorr, "correlations", false, "include Pearson correlations among numeric columns")
	analyzeCmd.Flags().IntVar(&anaCorrTop, "corr-top", 5, "number of strongest correlation pairs to list")
	anaInput.register(analyzeCmd.Flags())
	anaFilter.register(analyzeCmd.Flags())
}

type analysisJSON struct {
	File         string           `json:"file"`
	Filter       filter.Spec      `json:"filter"`
	Baseline     *summary.Report  `json:"baseline"`
	View         *summary.Report  `json:"view"`
	Correlations []views.PairCorr `json:"correlations,omitempty"`
	Columns      []classifyOutput `json:"columns"`
}

type classifyOutput struct {
	Name   string       `json:"name"`
	Tag    classify.Tag `json:"tag"`
	Reason string       `json:"reason"`
}

// renderAnalysis formats the view report of st as text or JSON.
func renderAnalysis(st *session.State, asJSON, corr bool, corrTop int) (string, error) {
	var pairs []views.PairCorr
	if corr {
		if cols := st.Classification.Columns(classify.Numeric); len(cols) >= 2 {
			m, err := views.Correlation(st.View, cols...)
			if err != nil {
				return "", err
			}
			pairs = m.Top(corrTop)
		}
	}

	if asJSON {
		out := analysisJSON{
			File:         filepath.Base(st.FileName),
			Filter:       st.Filter,
			Baseline:     st.Baseline,
			View:         st.ViewReport,
			Correlations: pairs,
		}
		for _, d := range st.Classification.Decisions() {
			out.Columns = append(out.Columns, classifyOutput{Name: d.Column, Tag: d.Tag, Reason: d.Reason})
		}
		b, err := utils.PrettyJSON(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	var b strings.Builder
	b.WriteString(st.ViewReport.Markdown())
	if !st.Filter.IsEmpty() {
		b.WriteString("\n[FILTER]\n")
		fmt.Fprintf(&b, "- Filter: %s\n", st.Filter)
		fmt.Fprintf(&b, "- Rows kept: %d of %d\n", st.ViewReport.Rows, st.Baseline.Rows)
	}
	b.WriteString("\n[COLUMN TYPES]\n")
	for _, d := range st.Classification.Decisions() {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", d.Column, d.Tag, d.Reason)
	}
	if corr {
		b.WriteString("\n[CORRELATIONS]\n")
		if len(pairs) == 0 {
			b.WriteString("- fewer than two numeric columns\n")
		}
		for _, p := range pairs {
			fmt.Fprintf(&b, "- %s ~ %s: r=%s\n", p.A, p.B, p.R.Format(3))
		}
	}
	return b.String(), nil
}
