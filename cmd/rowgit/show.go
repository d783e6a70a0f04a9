package main

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/aretw0/rowgit"
)

var showRev string

var showCmd = &cobra.Command{
	Use:   "show [kind] [id]",
	Short: "Print an entity file as committed",
	Long:  `Print the file of an entity, addressed by kind and stable id, as recorded at --rev (default: the latest commit).`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ws := openWorkspace(rowgit.WithReadOnly(true))
		defer ws.Close()

		ctx := context.Background()
		rev := showRev
		if rev == "" {
			history, err := ws.History(ctx)
			if err != nil {
				fatal("Failed to read history", err)
			}
			if len(history) == 0 {
				fatal("Nothing committed yet", fmt.Errorf("empty history"))
			}
			rev = history[0].ID
		}

		p := path.Join(args[0], args[1]+ws.Serializer().Ext())
		data, err := ws.Show(ctx, rev, p)
		if err != nil {
			fatal("Failed to show "+p, err)
		}
		os.Stdout.Write(data)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVar(&showRev, "rev", "", "Commit id to read from")
}
