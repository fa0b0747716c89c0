package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/brandforge/brandforge/build"
	"github.com/brandforge/brandforge/config"
	"github.com/brandforge/brandforge/patch"
)

func buildCmd(configPath, logLevel *string) *cobra.Command {
	var bestEffort bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Resolve tokens and apply patches to the base package",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *logLevel)
			if err != nil {
				return err
			}
			if bestEffort {
				cfg.Policy = string(patch.PolicyBestEffort)
			}
			if err := cfg.ValidateForBuild(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			b := build.NewBuilder(patch.Policy(cfg.Policy), logger)
			res, err := b.Build(cmd.Context(), requestFromConfig(cfg))
			if err != nil {
				return err
			}

			fmt.Printf("✓ %s written (%d ops applied", res.Output, len(res.Patch.Applied))
			if n := len(res.Patch.Failed); n > 0 {
				fmt.Printf(", %d skipped", n)
			}
			fmt.Printf(", %s)\n", res.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&bestEffort, "best-effort", false, "Skip failing operations instead of rolling back")
	return cmd
}

func requestFromConfig(cfg *config.Config) build.Request {
	layers := make([]build.LayerFile, len(cfg.Layers))
	for i, l := range cfg.Layers {
		layers[i] = build.LayerFile{Name: l.Name, Path: l.Path}
	}
	return build.Request{
		Name:    "default",
		Layers:  layers,
		Patches: cfg.Patches,
		Base:    cfg.Base,
		Output:  cfg.Output,
	}
}
