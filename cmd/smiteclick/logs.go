package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tturner/smiteclick/internal/errors"
	"github.com/tturner/smiteclick/internal/metrics"
	"github.com/tturner/smiteclick/internal/progress"
	"github.com/tturner/smiteclick/internal/store"
)

func newLogsCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "logs",
		Aliases: []string{"log"},
		Short:   "Inspect and manage session logs",
		Long: `Every click session is recorded with its start and end time, duration
and click count. These commands list, summarize, export and delete them.`,
	}
	cmd.AddCommand(newLogsListCmd(root))
	cmd.AddCommand(newLogsStatsCmd(root))
	cmd.AddCommand(newLogsExportCmd(root))
	cmd.AddCommand(newLogsDeleteCmd(root))
	cmd.AddCommand(newLogsClearCmd(root))
	return cmd
}

func newLogsListCmd(root *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				logs, err := st.ListLogs(ctx)
				if err != nil {
					return errors.WrapStorageError(err, st.Path())
				}
				if limit > 0 && len(logs) > limit {
					logs = logs[:limit]
				}
				printLogs(cmd.OutOrStdout(), logs)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many sessions (0 for all)")
	return cmd
}

func printLogs(w io.Writer, logs []store.LogEntry) {
	if len(logs) == 0 {
		fmt.Fprintln(w, "No sessions recorded")
		return
	}
	fmt.Fprintf(w, "%5s  %-19s  %10s  %8s  %7s\n", "ID", "STARTED", "DURATION", "CLICKS", "CPS")
	for _, l := range logs {
		fmt.Fprintf(w, "%5d  %-19s  %10s  %8d  %7.1f\n",
			l.ID,
			l.StartTime.Local().Format("2006-01-02 15:04:05"),
			progress.FormatDuration(time.Duration(l.DurationSeconds*float64(time.Second))),
			l.ClickCount,
			metrics.SessionCPS(l))
	}
}

func newLogsStatsCmd(root *rootFlags) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded sessions",
		Long: `Print totals, click rates and a per-day breakdown. With --from the
sessions are read from a CSV export instead of the database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				logs, err := metrics.ReadLogsCSV(from)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), metrics.FormatSummary(metrics.Summarize(logs)))
				return nil
			}
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				logs, err := st.ListLogs(ctx)
				if err != nil {
					return errors.WrapStorageError(err, st.Path())
				}
				fmt.Fprint(cmd.OutOrStdout(), metrics.FormatSummary(metrics.Summarize(logs)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Read sessions from this CSV export")
	return cmd
}

func newLogsExportCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every session to a CSV or JSON file",
		Long:  `Export session logs. A .json extension writes JSON, anything else CSV.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				logs, err := st.ListLogs(ctx)
				if err != nil {
					return errors.WrapStorageError(err, st.Path())
				}
				if err := metrics.ExportFile(args[0], logs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d sessions to %s (%s)\n",
					len(logs), args[0], metrics.FormatForPath(args[0]))
				return nil
			})
		},
	}
}

func newLogsDeleteCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one session log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid log id %q", args[0])
			}
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				if err := st.DeleteLog(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted log %d\n", id)
				return nil
			})
		},
	}
}

func newLogsClearCmd(root *rootFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every session log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				confirmed := false
				err := huh.NewConfirm().
					Title("Delete all session logs?").
					Description("This cannot be undone.").
					Value(&confirmed).
					Run()
				if err != nil {
					return fmt.Errorf("confirm clear (use --yes when not on a terminal): %w", err)
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				n, err := st.ClearLogs(ctx)
				if err != nil {
					return errors.WrapStorageError(err, st.Path())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d logs\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
