package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/cobra"

	"github.com/banshee-data/sonarmap/internal/db"
	"github.com/banshee-data/sonarmap/internal/security"
	"github.com/banshee-data/sonarmap/internal/sonar"
	sqlite "github.com/banshee-data/sonarmap/internal/sonar/storage/sqlite"
)

// runDetail is the document printed by "runs show".
type runDetail struct {
	*sqlite.Run
	Provenance map[string]int      `json:"provenance"`
	Events     []sqlite.ChunkEvent `json:"events"`
}

func newRunsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and export recorded processing runs",
	}

	open := func() (*db.DB, error) {
		path, err := g.dbPath()
		if err != nil {
			return nil, err
		}
		return db.NewDB(path)
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := open()
			if err != nil {
				return err
			}
			defer database.Close()
			runs, err := sqlite.NewRunStore(database.DB).List(limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTATUS\tSTARTED\tINPUT")
			for _, r := range runs {
				started := time.Unix(0, r.StartedAt).UTC().Format(time.RFC3339)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.RunID, r.Status, started, r.InputPath)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a run's config, summary, provenance counts and events as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := open()
			if err != nil {
				return err
			}
			defer database.Close()
			run, err := sqlite.NewRunStore(database.DB).Get(args[0])
			if err != nil {
				return err
			}
			detail := runDetail{Run: run}
			if detail.Provenance, err = sqlite.NewDepthStore(database.DB).CountByProvenance(run.RunID); err != nil {
				return err
			}
			if detail.Events, err = sqlite.NewChunkEventStore(database.DB).ListByRun(run.RunID); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(detail)
		},
	}

	export := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write a run's persisted depths to <project>/exports as Parquet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := open()
			if err != nil {
				return err
			}
			defer database.Close()
			run, err := sqlite.NewRunStore(database.DB).Get(args[0])
			if err != nil {
				return err
			}
			depths := sqlite.NewDepthStore(database.DB)
			for _, b := range sonar.Beams {
				records, err := depths.ListByRun(run.RunID, b.String())
				if err != nil {
					return err
				}
				if len(records) == 0 {
					continue
				}
				name := fmt.Sprintf("%s_%s_depth.parquet", security.SanitizeFilename(run.RunID), b.Short())
				path, err := exportPath(g.project, name)
				if err != nil {
					return err
				}
				if err := parquet.WriteFile(path, records); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pings -> %s\n", b, len(records), path)
			}
			return nil
		},
	}

	cmd.AddCommand(list, show, export)
	return cmd
}

func exportPath(projectDir, name string) (string, error) {
	dir, err := security.ProjectPath(projectDir, "exports")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := security.ValidatePathWithinDirectory(path, dir); err != nil {
		return "", err
	}
	return path, nil
}
