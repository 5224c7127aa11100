package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/uptimeworker/internal/monitor"
)

var gatherWait time.Duration

func init() {
	gatherCmd.Flags().DurationVar(&gatherWait, "wait", 2*time.Minute, "how long to wait for the cycle report; 0 returns once the cycle starts")
	rootCmd.AddCommand(gatherCmd)
}

var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Ask the running worker to start a gather cycle now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		rep, err := newWorkerClient(cfg, workerURL, apiKey).gather(cmd.Context(), gatherWait)
		if err != nil {
			return err
		}
		if rep == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "gather cycle started")
			return nil
		}
		if rep.Err != "" {
			return fmt.Errorf("gather: %s", rep.Err)
		}
		return printReport(cmd, *rep)
	},
}

func printReport(cmd *cobra.Command, rep monitor.CycleReport) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTATE\tALERT\tDETAIL")
	for _, c := range rep.Checks {
		detail := c.Err
		if c.Outcome != nil {
			if code, ok := c.Outcome.Code(); ok {
				detail = fmt.Sprintf("%d in %.0fms", code, c.Outcome.LatencyMS)
			} else {
				detail = c.Outcome.Error.Error()
			}
		}
		if c.AlertErr != "" {
			detail += " (alert failed: " + c.AlertErr + ")"
		}
		state := c.State.String()
		if state == "" {
			state = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", c.ID, c.Status, state, c.Alert, detail)
	}
	return w.Flush()
}
