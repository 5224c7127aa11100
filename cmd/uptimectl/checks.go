package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/uptimeworker/internal/app"
	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

func init() {
	checksCmd.AddCommand(checksImportCmd, checksListCmd)
	rootCmd.AddCommand(checksCmd)
}

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "Manage stored checks",
}

var checksImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create checks from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		checks, err := parseChecks(f, cfg.Limits(), time.Now())
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, closeStore, err := app.OpenStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		for _, c := range checks {
			if err := store.Create(ctx, c); err != nil {
				return fmt.Errorf("create %s: %w", c.ID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s %s\n", c.ID, strings.ToUpper(string(c.Method)), c.Target())
		}
		return nil
	},
}

var checksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored checks with their last state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := context.Background()
		store, closeStore, err := app.OpenStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()
		return listChecks(ctx, cmd.OutOrStdout(), store)
	},
}

type checksFile struct {
	Checks []domain.Check `yaml:"checks"`
}

// parseChecks decodes and validates a checks file. Missing ids are generated.
func parseChecks(r io.Reader, limits domain.Limits, now time.Time) ([]domain.Check, error) {
	var doc checksFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse checks: %w", err)
	}
	for i := range doc.Checks {
		c := &doc.Checks[i]
		if c.ID == "" {
			c.ID = newCheckID(limits.IDLength)
		}
		c.Protocol = domain.Protocol(strings.ToLower(string(c.Protocol)))
		c.Method = domain.Method(strings.ToLower(string(c.Method)))
		c.CreatedAt = now.UTC()
		if err := domain.Validate(*c, limits); err != nil {
			return nil, fmt.Errorf("check #%d: %w", i+1, err)
		}
	}
	return doc.Checks, nil
}

func newCheckID(n int) domain.CheckID {
	if n <= 0 {
		n = 25
	}
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return domain.CheckID(b.String()[:n])
}

func listChecks(ctx context.Context, out io.Writer, store repo.CheckStore) error {
	ids, err := store.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTARGET\tMETHOD\tSTATE\tLAST CHECKED")
	for _, id := range ids {
		c, err := store.Read(ctx, id)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t%v\n", id, err)
			continue
		}
		state, last := "-", "never"
		if c.State != domain.StateUnknown {
			state = c.State.String()
		}
		if c.Evaluated() {
			last = c.LastCheckedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Target(), strings.ToUpper(string(c.Method)), state, last)
	}
	return w.Flush()
}
