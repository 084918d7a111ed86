package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "smiteclick version %s\n", version)
			fmt.Fprintf(out, "commit: %s\n", commit)
			fmt.Fprintf(out, "date: %s\n", date)
		},
	}
}
