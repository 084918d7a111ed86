package main

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tturner/smiteclick/internal/platform"
)

func newWindowsCmd(root *rootFlags) *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "windows [filter]",
		Short: "List visible window titles",
		Long: `List the titles of visible top-level windows, for use as target_window.
A filter keeps titles containing it (case-insensitive). --match shows which
window a target_window value would resolve to.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			e, err := loadEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()
			b, err := e.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			titles, err := b.Windows.ListWindowTitles()
			if err != nil {
				return fmt.Errorf("list windows: %w", err)
			}
			out := cmd.OutOrStdout()
			if match != "" {
				i := platform.MatchTitle(titles, match)
				if i < 0 {
					return fmt.Errorf("no window matches %q", match)
				}
				fmt.Fprintln(out, titles[i])
				return nil
			}
			if len(args) == 1 {
				filter := strings.ToLower(args[0])
				titles = lo.Filter(titles, func(t string, _ int) bool {
					return strings.Contains(strings.ToLower(t), filter)
				})
			}
			if len(titles) == 0 {
				fmt.Fprintln(out, "No windows found")
				return nil
			}
			for _, t := range titles {
				fmt.Fprintln(out, t)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "Print the window this title resolves to")
	return cmd
}
