package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/rowgit"
)

var (
	verbose   bool
	workDir   string
	backend   string
	systemDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rowgit",
	Short: "Version database rows as files in a git repository",
	Long: `rowgit keeps a git history of database content.
Each row becomes a canonical YAML or JSON file addressed by a stable id,
and every request is recorded as one descriptive commit.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "Workspace directory (default: nearest workspace above the current directory)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", `Version-control backend: "gogit" or "git"`)
	rootCmd.PersistentFlags().StringVar(&systemDir, "system-dir", "", "Name of the hidden system directory")
}

// commonOptions maps the persistent flags to workspace options.
func commonOptions() []rowgit.Option {
	opts := []rowgit.Option{rowgit.WithLogger(slog.Default())}
	if backend != "" {
		opts = append(opts, rowgit.WithBackend(backend))
	}
	if systemDir != "" {
		opts = append(opts, rowgit.WithSystemDir(systemDir))
	}
	return opts
}

// openWorkspace opens the workspace selected by --dir or found from the CWD.
func openWorkspace(opts ...rowgit.Option) *rowgit.Workspace {
	dir := workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fatal("Failed to get CWD", err)
		}
		dir, err = rowgit.FindRoot(cwd)
		if err != nil {
			fatal("Not inside a rowgit workspace", err)
		}
	}

	ws, err := rowgit.Open(dir, append(commonOptions(), opts...)...)
	if err != nil {
		fatal("Failed to open workspace", err)
	}
	return ws
}
