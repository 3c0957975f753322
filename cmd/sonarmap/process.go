package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sonarmap/internal/db"
	"github.com/banshee-data/sonarmap/internal/monitoring"
	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
	"github.com/banshee-data/sonarmap/internal/sonar/pipeline"
	sqlite "github.com/banshee-data/sonarmap/internal/sonar/storage/sqlite"
	"github.com/banshee-data/sonarmap/internal/version"
)

func newProcessCmd(g *globalFlags) *cobra.Command {
	var (
		epsg    int
		noDB    bool
		threads int
	)
	cmd := &cobra.Command{
		Use:   "process <ping-table.parquet>",
		Short: "Run bed picking, rectification and mosaicking over a ping table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threads") {
				cfg.Threads = &threads
			}
			if err := os.MkdirAll(g.project, 0o755); err != nil {
				return fmt.Errorf("create project directory: %w", err)
			}

			rt := pipeline.Runtime{}
			if !noDB {
				path, err := g.dbPath()
				if err != nil {
					return err
				}
				database, err := db.NewDB(path)
				if err != nil {
					return err
				}
				defer database.Close()
				rt.Runs = sqlite.NewRunStore(database.DB)
				rt.Depths = sqlite.NewDepthStore(database.DB)
				rt.Events = sqlite.NewChunkEventStore(database.DB)
			}

			p, err := pipeline.New(cfg, rt, pipeline.Options{
				ProjectDir: g.project,
				InputPath:  args[0],
				EPSG:       epsg,
			})
			if err != nil {
				return err
			}
			monitoring.Logf("%s: %d workers", version.String(), p.Workers())

			sum, err := p.Run(cmd.Context(), l1pings.ParquetSource{Path: args[0]})
			if sum != nil {
				fmt.Fprint(cmd.OutOrStdout(), sum)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&epsg, "epsg", 0, "project CRS as a WGS84 UTM EPSG code; 0 picks the zone of the first fix")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "skip the run database")
	cmd.Flags().IntVarP(&threads, "threads", "j", 0, "worker count: 0 all CPUs, negative all but N")
	return cmd
}
