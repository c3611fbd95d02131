package cmd

import (
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/export"
	"github.com/KaramelBytes/sheetscope-cli/internal/server"
	"github.com/KaramelBytes/sheetscope-cli/internal/session"
	"github.com/spf13/cobra"
)

var (
	srvAddr      string
	srvLoad      string
	srvLogFormat string
	srvInput     inputFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the exploration session over a JSON HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		logger := newLogger(srvLogFormat)

		opt := pipelineOptions(c)
		if err := srvInput.apply(&opt.Ingest); err != nil {
			return err
		}
		sess := session.New(opt)
		if srvLoad != "" {
			if _, err := sess.LoadFile(withLogger(cmd, logger), srvLoad); err != nil {
				return err
			}
		}

		addr := srvAddr
		if addr == "" {
			addr = c.ServerAddr
		}
		format := export.XLSX
		if c.ExportFormat != "" {
			f, err := export.ParseFormat(c.ExportFormat)
			if err != nil {
				return err
			}
			format = f
		}

		api := server.NewWebAPI(server.Config{
			Addr:            addr,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  opt.Ingest.MaxBytes,
			TopN:            c.TopN,
			ExportFormat:    format,
			Dependencies: server.Dependencies{
				Session:  sess,
				Exporter: export.New(),
				Logger:   logger,
			},
		})
		return api.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default: server_addr from config)")
	serveCmd.Flags().StringVar(&srvLoad, "load", "", "spreadsheet to load before serving")
	serveCmd.Flags().StringVar(&srvLogFormat, "log-format", "json", "log format: json | console")
	srvInput.register(serveCmd.Flags())
}
