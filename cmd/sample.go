package cmd

import (
	"github.com/KaramelBytes/sheetscope-cli/internal/export"
	"github.com/KaramelBytes/sheetscope-cli/internal/sample"
	"github.com/KaramelBytes/sheetscope-cli/internal/session"
	"github.com/spf13/cobra"
)

var (
	smpOutputPath string
	smpDays       int
	smpSeed       int64
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a small demo sales dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session.New(pipelineOptions(currentConfig()))
		st, err := s.LoadDataset(commandContext(cmd), sample.Generate(smpDays, smpSeed))
		if err != nil {
			return err
		}
		return writeExport(smpOutputPath, export.FormatForPath(smpOutputPath), st)
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().StringVarP(&smpOutputPath, "output", "o", "sample_sales.xlsx", "output path (.xlsx or .csv)")
	sampleCmd.Flags().IntVar(&smpDays, "days", sample.DefaultDays, "number of days to generate")
	sampleCmd.Flags().Int64Var(&smpSeed, "seed", 42, "random seed")
}
