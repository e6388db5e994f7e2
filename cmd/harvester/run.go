package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bidplus-harvester/internal/config"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one harvest sweep and exit",
		Example: `  harvester run --keyword Toner --state "Uttar Pradesh" --pages 2 \
    --download-pdf --pdf-dir pdfs --upload-s3 --s3-bucket my-bucket --s3-prefix gemdw`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			d, err := buildDeps(cfg, log)
			if err != nil {
				return err
			}
			defer d.Close(log)

			report, err := d.pipeline.Run(cmd.Context())
			if err != nil {
				log.Error("run failed", zap.Error(err))
				return err
			}
			log.Info("saved manifest", zap.String("path", report.ManifestPath))
			return nil
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}
