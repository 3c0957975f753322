package main

import (
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/monitoring"
	"github.com/banshee-data/sonarmap/internal/security"
	"github.com/banshee-data/sonarmap/internal/sonar/pipeline"
)

// Environment variables read as flag defaults.
const (
	envDB     = "SONARMAP_DB"
	envConfig = "SONARMAP_CONFIG"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	project  string
	config   string
	db       string
	logLevel string
}

// NewRootCmd builds the sonarmap command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "sonarmap",
		Short: "Side-scan sonar bed picking, rectification and mosaicking",
		Long: `sonarmap turns a decoded side-scan ping table into georeferenced imagery.

It picks the water/bed boundary per ping, reconciles depth across both
channels, rectifies each chunk onto a north-up UTM grid and assembles the
chunk rasters into mosaics.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			if !cmd.Flags().Changed("db") {
				g.db = os.Getenv(envDB)
			}
			if !cmd.Flags().Changed("config") {
				g.config = os.Getenv(envConfig)
			}
			level, err := pipeline.ParseLogLevel(g.logLevel)
			if err != nil {
				return err
			}
			configureLogging(cmd.ErrOrStderr(), level)
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.project, "project", "p", ".", "project directory for rasters, mosaics and depth exports")
	pf.StringVarP(&g.config, "config", "c", "", "processing config (.json or .yaml); defaults to $"+envConfig)
	pf.StringVar(&g.db, "db", "", "SQLite database; defaults to $"+envDB+" or <project>/sonarmap.db")
	pf.StringVar(&g.logLevel, "log-level", "ops", "quiet, ops, diag (per-stage summaries) or trace (per-chunk timings)")

	cmd.AddCommand(newProcessCmd(g))
	cmd.AddCommand(newMosaicCmd(g))
	cmd.AddCommand(newMigrateCmd(g))
	cmd.AddCommand(newRunsCmd(g))
	return cmd
}

func configureLogging(w io.Writer, level pipeline.LogLevel) {
	pipeline.SetLogLevel(w, level)

	std := log.New(w, "", log.LstdFlags)
	monitoring.SetWarnLogger(nil)
	monitoring.SetLogger(nil)
	if level >= pipeline.LogOps {
		monitoring.SetWarnLogger(func(format string, v ...interface{}) { std.Printf("WARN "+format, v...) })
	}
	if level >= pipeline.LogDiag {
		monitoring.SetLogger(std.Printf)
	}
}

// loadConfig reads the processing config, or the built-in defaults when
// no path is set.
func (g *globalFlags) loadConfig() (*config.ProcessingConfig, error) {
	if g.config == "" {
		return config.EmptyProcessingConfig(), nil
	}
	return config.LoadProcessingConfig(g.config)
}

// dbPath resolves the database path; the default lives in the project.
func (g *globalFlags) dbPath() (string, error) {
	if g.db != "" {
		return g.db, nil
	}
	return security.ProjectPath(g.project, "sonarmap.db")
}
