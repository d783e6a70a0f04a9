package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/aretw0/lifecycle"
	"github.com/spf13/cobra"

	"github.com/aretw0/rowgit"
)

var applyCmd = &cobra.Command{
	Use:   "apply [script.yaml...]",
	Short: "Replay recorded requests",
	Long: `Replay host requests from YAML scripts. Requests inside one script run in
order, each ending in at most one commit. Several scripts run concurrently,
like parallel requests of the host.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		scripts := make([]script, len(args))
		for i, path := range args {
			s, err := loadScript(path)
			if err != nil {
				fatal("Failed to load script", err)
			}
			scripts[i] = s
		}

		ws := openWorkspace()
		defer ws.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		errs := make([]error, len(args))
		var wg sync.WaitGroup
		for i := range scripts {
			wg.Add(1)
			lifecycle.Go(ctx, func(ctx context.Context) error {
				defer wg.Done()
				errs[i] = runScript(ctx, ws, args[i], scripts[i])
				return errs[i]
			}, lifecycle.WithErrorHandler(func(err error) {
				slog.Error("script crashed", "script", args[i], "error", err)
			}))
		}
		wg.Wait()

		if err := errors.Join(errs...); err != nil {
			fatal("Apply failed", err)
		}
	},
}

func runScript(ctx context.Context, ws *rowgit.Workspace, name string, s script) error {
	for n, req := range s.Requests {
		res, err := ws.Do(ctx, func(ctx context.Context, sess *rowgit.Session) error {
			for _, step := range req.Events {
				ev, err := step.event()
				if err != nil {
					return err
				}
				if err := sess.Dispatch(ctx, ev); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%s request %d: %w", name, n+1, err)
		}

		if res.Empty() {
			fmt.Printf("%s #%d: nothing to commit\n", name, n+1)
			continue
		}
		headline, _, _ := strings.Cut(res.Message, "\n")
		fmt.Printf("%s #%d: %s %s\n", name, n+1, shortID(res.CommitID), headline)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(applyCmd)
}
