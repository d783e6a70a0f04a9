package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aretw0/rowgit"
)

var resolveReverse bool

var resolveCmd = &cobra.Command{
	Use:   "resolve [kind] [row-id|stable-id]",
	Short: "Map a row id to its stable id, or back with --reverse",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ws := openWorkspace(rowgit.WithReadOnly(true))
		defer ws.Close()

		ctx := context.Background()
		kind := args[0]

		if resolveReverse {
			vid, err := ws.Identity().ReverseResolve(ctx, kind, args[1])
			if err != nil {
				fatal("Failed to resolve "+args[1], err)
			}
			fmt.Println(vid)
			return
		}

		vid, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fatal("Invalid row id", err)
		}
		id, ok, err := ws.Identity().Lookup(ctx, kind, vid)
		if err != nil {
			fatal("Failed to resolve "+args[1], err)
		}
		if !ok {
			fatal("Failed to resolve "+args[1], fmt.Errorf("%s/%d is not tracked", kind, vid))
		}
		fmt.Println(id)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().BoolVarP(&resolveReverse, "reverse", "r", false, "Map a stable id back to its row id")
}
