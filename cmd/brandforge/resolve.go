package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brandforge/brandforge/build"
	"github.com/brandforge/brandforge/patch"
)

func resolveCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the token layer stack and print the flat token map",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *logLevel)
			if err != nil {
				return err
			}
			if len(cfg.Layers) == 0 {
				return fmt.Errorf("no token layers configured")
			}

			b := build.NewBuilder(patch.Policy(cfg.Policy), logger)
			layers := make([]build.LayerFile, len(cfg.Layers))
			for i, l := range cfg.Layers {
				layers[i] = build.LayerFile{Name: l.Name, Path: l.Path}
			}
			tokens, err := b.ResolveTokens(layers)
			if err != nil {
				return err
			}

			// Stable output order for diffing and scripting.
			paths := make([]string, 0, len(tokens))
			for p := range tokens {
				paths = append(paths, p)
			}
			sort.Strings(paths)

			for _, p := range paths {
				line, err := yaml.Marshal(map[string]any{p: tokens[p]})
				if err != nil {
					return err
				}
				if _, err := os.Stdout.Write(line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
