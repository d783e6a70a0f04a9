package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/rowgit"
)

var (
	listJSON    bool
	listPattern string
)

var listCmd = &cobra.Command{
	Use:   "list [kind]",
	Short: "List the stable ids of a kind",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ws := openWorkspace(rowgit.WithReadOnly(true))
		defer ws.Close()

		ctx := context.Background()
		var ids []string
		_, err := ws.Do(ctx, func(ctx context.Context, s *rowgit.Session) error {
			st, err := s.Storage(args[0])
			if err != nil {
				return err
			}
			ids, err = st.List(ctx, listPattern)
			return err
		})
		if err != nil {
			fatal("Failed to list "+args[0], err)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(ids); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}
		for _, id := range ids {
			fmt.Println(id)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&listPattern, "pattern", "", "Filter ids with a glob pattern")
}
