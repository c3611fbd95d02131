package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/sheetscope-cli/internal/classify"
	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
	"github.com/KaramelBytes/sheetscope-cli/internal/stats"
	"github.com/KaramelBytes/sheetscope-cli/internal/utils"
	"github.com/KaramelBytes/sheetscope-cli/internal/views"
	"github.com/spf13/cobra"
)

var (
	viewJSON   bool
	viewInput  inputFlags
	viewFilter filterFlags

	vtsDate   string
	vtsValues []string

	vtopColumn string
	vtopN      int

	vcmCategory string
	vcmValue    string

	vcorrColumns []string
	vcorrTop     int
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Aggregated views over a spreadsheet",
}

var viewTimeSeriesCmd = &cobra.Command{
	Use:   "timeseries <file>",
	Short: "Sum value columns per date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadState(cmd, args[0], &viewInput, &viewFilter)
		if err != nil {
			return err
		}
		date := vtsDate
		if date == "" {
			date = firstOf(st.Classification.Columns(classify.Date))
		}
		values := vtsValues
		if len(values) == 0 {
			if v := firstOf(st.Classification.Columns(classify.Numeric)); v != "" {
				values = []string{v}
			}
		}
		if date == "" || len(values) == 0 {
			return fmt.Errorf("time series needs a date column and a numeric column (use --date and --value)")
		}
		s, err := views.TimeSeries(st.View, date, values...)
		if err != nil {
			return err
		}
		return printView(s, func(b *strings.Builder) {
			fmt.Fprintf(b, "[TIME SERIES] %s by %s\n", strings.Join(s.ValueColumns, ", "), s.DateColumn)
			for _, p := range s.Points {
				sums := make([]string, len(p.Sums))
				for k, v := range p.Sums {
					sums[k] = stats.Float(v).Format(2)
				}
				fmt.Fprintf(b, "- %s: %s\n", dataset.FormatTime(p.Date), strings.Join(sums, ", "))
			}
		})
	},
}

var viewTopCmd = &cobra.Command{
	Use:   "top <file>",
	Short: "Most frequent values of a categorical column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadState(cmd, args[0], &viewInput, &viewFilter)
		if err != nil {
			return err
		}
		col := vtopColumn
		if col == "" {
			col = firstOf(st.Classification.Columns(classify.Categorical))
		}
		if col == "" {
			return fmt.Errorf("no categorical column found (use --column)")
		}
		n := vtopN
		if !cmd.Flags().Changed("n") && currentConfig().TopN > 0 {
			n = currentConfig().TopN
		}
		top, err := views.TopCategories(st.View, col, n)
		if err != nil {
			return err
		}
		return printView(map[string]any{"column": col, "categories": top}, func(b *strings.Builder) {
			fmt.Fprintf(b, "[TOP CATEGORIES] %s\n", col)
			for _, c := range top {
				fmt.Fprintf(b, "- %s: %d\n", c.Value, c.Count)
			}
		})
	},
}

var viewCategoryMeansCmd = &cobra.Command{
	Use:   "category-means <file>",
	Short: "Mean of a numeric column per category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadState(cmd, args[0], &viewInput, &viewFilter)
		if err != nil {
			return err
		}
		cat, val := vcmCategory, vcmValue
		if cat == "" {
			cat = firstOf(st.Classification.Columns(classify.Categorical))
		}
		if val == "" {
			val = firstOf(st.Classification.Columns(classify.Numeric))
		}
		if cat == "" || val == "" {
			return fmt.Errorf("category means need a categorical and a numeric column (use --by and --value)")
		}
		means, err := views.CategoryMeans(st.View, cat, val)
		if err != nil {
			return err
		}
		return printView(map[string]any{"category": cat, "value": val, "means": means}, func(b *strings.Builder) {
			fmt.Fprintf(b, "[CATEGORY MEANS] %s by %s\n", val, cat)
			for _, m := range means {
				fmt.Fprintf(b, "- %s: %s (n=%d)\n", m.Category, m.Mean.Format(2), m.Count)
			}
		})
	},
}

var viewCorrelationCmd = &cobra.Command{
	Use:   "correlation <file>",
	Short: "Pearson correlation matrix of numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadState(cmd, args[0], &viewInput, &viewFilter)
		if err != nil {
			return err
		}
		cols := vcorrColumns
		if len(cols) == 0 {
			cols = st.Classification.Columns(classify.Numeric)
		}
		if len(cols) < 2 {
			return fmt.Errorf("correlation needs at least two numeric columns")
		}
		m, err := views.Correlation(st.View, cols...)
		if err != nil {
			return err
		}
		return printView(m, func(b *strings.Builder) {
			b.WriteString("[CORRELATION MATRIX]\n")
			b.WriteString("| |")
			for _, c := range m.Columns {
				fmt.Fprintf(b, " %s |", c)
			}
			b.WriteString("\n|---|")
			b.WriteString(strings.Repeat("---|", len(m.Columns)))
			b.WriteString("\n")
			for i, row := range m.Values {
				fmt.Fprintf(b, "| %s |", m.Columns[i])
				for _, r := range row {
					fmt.Fprintf(b, " %s |", r.Format(3))
				}
				b.WriteString("\n")
			}
			if top := m.Top(vcorrTop); len(top) > 0 {
				b.WriteString("\n[STRONGEST PAIRS]\n")
				for _, p := range top {
					fmt.Fprintf(b, "- %s ~ %s: r=%s\n", p.A, p.B, p.R.Format(3))
				}
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.PersistentFlags().BoolVar(&viewJSON, "json", false, "emit JSON")
	viewInput.register(viewCmd.PersistentFlags())
	viewFilter.register(viewCmd.PersistentFlags())

	viewCmd.AddCommand(viewTimeSeriesCmd)
	viewTimeSeriesCmd.Flags().StringVar(&vtsDate, "date", "", "date column (default: first date column)")
	viewTimeSeriesCmd.Flags().StringSliceVar(&vtsValues, "value", nil, "value columns to sum (default: first numeric column)")

	viewCmd.AddCommand(viewTopCmd)
	viewTopCmd.Flags().StringVar(&vtopColumn, "column", "", "categorical column (default: first categorical column)")
	viewTopCmd.Flags().IntVar(&vtopN, "n", views.DefaultTopN, "number of categories to list (0 = all)")

	viewCmd.AddCommand(viewCategoryMeansCmd)
	viewCategoryMeansCmd.Flags().StringVar(&vcmCategory, "by", "", "categorical column to group by (default: first categorical column)")
	viewCategoryMeansCmd.Flags().StringVar(&vcmValue, "value", "", "numeric column (default: first numeric column)")

	viewCmd.AddCommand(viewCorrelationCmd)
	viewCorrelationCmd.Flags().StringSliceVar(&vcorrColumns, "column", nil, "numeric columns (default: all numeric columns)")
	viewCorrelationCmd.Flags().IntVar(&vcorrTop, "top", 5, "number of strongest pairs to list")
}

func printView(v any, text func(b *strings.Builder)) error {
	if viewJSON {
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}
	var b strings.Builder
	text(&b)
	fmt.Print(b.String())
	return nil
}

func firstOf(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
