package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/uptimeworker/internal/app"
)

var (
	listArchives bool
	rotateWait   time.Duration
)

func init() {
	logsListCmd.Flags().BoolVar(&listArchives, "archives", false, "include compressed archives")
	logsRotateCmd.Flags().DurationVar(&rotateWait, "wait", 2*time.Minute, "how long to wait for the rotation report; 0 returns once the cycle starts")
	logsCmd.AddCommand(logsListCmd, logsCatCmd, logsRotateCmd)
	rootCmd.AddCommand(logsCmd)
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect and rotate per-check outcome logs",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List outcome logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		book, err := app.Book(context.Background(), cfg, logger)
		if err != nil {
			return err
		}
		ids, err := book.List(listArchives)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var logsCatCmd = &cobra.Command{
	Use:   "cat <archiveID>",
	Short: "Print the records held in an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		book, err := app.Book(context.Background(), cfg, logger)
		if err != nil {
			return err
		}
		raw, err := book.Decompress(args[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	},
}

var logsRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Ask the running worker to start a rotation cycle now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		rep, err := newWorkerClient(cfg, workerURL, apiKey).rotate(cmd.Context(), rotateWait)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if rep == nil {
			fmt.Fprintln(out, "rotation cycle started")
			return nil
		}
		for _, id := range rep.Archived {
			fmt.Fprintln(out, "archived", id)
		}
		failed := make([]string, 0, len(rep.Failed))
		for id := range rep.Failed {
			failed = append(failed, id)
		}
		sort.Strings(failed)
		for _, id := range failed {
			fmt.Fprintf(out, "failed %s: %s\n", id, rep.Failed[id])
		}
		if len(failed) > 0 {
			return fmt.Errorf("rotation: %d log(s) failed", len(failed))
		}
		return nil
	},
}
