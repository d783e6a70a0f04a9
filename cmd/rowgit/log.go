package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/rowgit"
	"github.com/aretw0/rowgit/pkg/changeinfo"
)

var (
	logJSON  bool
	logLimit int
)

type logEntry struct {
	ID       string    `json:"id"`
	When     time.Time `json:"when"`
	Headline string    `json:"headline"`
	Actions  []string  `json:"actions,omitempty"`
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the recorded commits",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ws := openWorkspace(rowgit.WithReadOnly(true))
		defer ws.Close()

		history, err := ws.History(context.Background())
		if err != nil {
			fatal("Failed to read history", err)
		}
		if logLimit > 0 && len(history) > logLimit {
			history = history[:logLimit]
		}

		entries := make([]logEntry, 0, len(history))
		for _, rev := range history {
			headline, _, _ := strings.Cut(rev.Message, "\n")
			entry := logEntry{ID: rev.ID, When: rev.When, Headline: headline}
			_, infos := changeinfo.ParseTrailers(rev.Message)
			for _, info := range infos {
				entry.Actions = append(entry.Actions, fmt.Sprintf("%s %s/%s", info.Action, info.SubjectKind, info.SubjectID))
			}
			entries = append(entries, entry)
		}

		if logJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(entries); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, e := range entries {
			fmt.Printf("%s %s %s\n", shortID(e.ID), e.When.Format(time.DateTime), e.Headline)
			if verbose {
				for _, a := range e.Actions {
					fmt.Printf("    %s\n", a)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().BoolVar(&logJSON, "json", false, "Output in JSON format")
	logCmd.Flags().IntVarP(&logLimit, "max-count", "n", 0, "Limit the number of commits")
}
