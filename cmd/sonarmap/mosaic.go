package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sonarmap/internal/sonar/pipeline"
)

func newMosaicCmd(g *globalFlags) *cobra.Command {
	var mode, grouping string
	cmd := &cobra.Command{
		Use:   "mosaic",
		Short: "Rebuild mosaics from a project's existing chunk rasters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if mode != "" {
				cfg.MosaicMode = &mode
			}
			if grouping != "" {
				cfg.MosaicGrouping = &grouping
			}
			p, err := pipeline.New(cfg, pipeline.Runtime{}, pipeline.Options{ProjectDir: g.project})
			if err != nil {
				return err
			}
			outs, skipped, err := p.Mosaic(cmd.Context())
			for _, o := range outs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rasters, %dx%d -> %s\n", o.Name, o.Inputs, o.Width, o.Height, o.Path)
			}
			for _, name := range skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: skipped\n", name)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "single or virtual; overrides the config")
	cmd.Flags().StringVar(&grouping, "grouping", "", "channel, pair or both; overrides the config")
	return cmd
}
