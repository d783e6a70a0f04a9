package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/rowgit"
)

var (
	initFormat      string
	initAuthorName  string
	initAuthorEmail string
	initLockTimeout time.Duration
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a rowgit workspace",
	Long: `Initialize a workspace: create the directory and the git repository when
missing, ignore the system directory and write its config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := workDir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				fatal("Failed to get CWD", err)
			}
			dir = cwd
		}

		opts := commonOptions()
		if initFormat != "" {
			opts = append(opts, rowgit.WithFormat(initFormat))
		}
		if initAuthorName != "" || initAuthorEmail != "" {
			opts = append(opts, rowgit.WithAuthor(initAuthorName, initAuthorEmail))
		}
		if initLockTimeout > 0 {
			opts = append(opts, rowgit.WithLockTimeout(initLockTimeout))
		}

		ws, err := rowgit.Init(dir, opts...)
		if err != nil {
			fatal("Failed to initialize workspace", err)
		}
		defer ws.Close()

		fmt.Println("Initialized rowgit workspace in", ws.Root)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initFormat, "format", "", `Entity file format: "yaml" or "json"`)
	initCmd.Flags().StringVar(&initAuthorName, "author-name", "", "Commit author name")
	initCmd.Flags().StringVar(&initAuthorEmail, "author-email", "", "Commit author email")
	initCmd.Flags().DurationVar(&initLockTimeout, "lock-timeout", 0, "Maximum wait for the commit lock")
}
