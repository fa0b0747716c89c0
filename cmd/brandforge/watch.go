package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/brandforge/brandforge/build"
	"github.com/brandforge/brandforge/patch"
)

func watchCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild whenever a token layer or patch spec changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *logLevel)
			if err != nil {
				return err
			}
			if err := cfg.ValidateForBuild(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			b := build.NewBuilder(patch.Policy(cfg.Policy), logger)
			req := requestFromConfig(cfg)

			rebuild := func(changed []string) {
				logger.Info("rebuilding", slog.Int("changed_files", len(changed)))
				if _, err := b.Build(cmd.Context(), req); err != nil {
					logger.Error("rebuild failed", slog.String("error", err.Error()))
				}
			}

			var inputs []string
			for _, l := range cfg.Layers {
				inputs = append(inputs, l.Path)
			}
			inputs = append(inputs, cfg.Patches...)
			inputs = append(inputs, cfg.Base)

			// Initial build before entering the watch loop.
			rebuild(nil)

			w, err := build.NewWatcher(inputs, cfg.Watch.GetDebounceDelay(), rebuild, logger)
			if err != nil {
				return err
			}
			logger.Info("watching for changes", slog.Int("files", len(inputs)))
			return w.Run(cmd.Context())
		},
	}
}
