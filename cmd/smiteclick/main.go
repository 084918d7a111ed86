package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "smiteclick",
		Short: "Hotkey-driven mouse autoclicker",
		Long: `smiteclick clicks the mouse at a configurable rate while a global hotkey
is active. Settings, saved profiles and session logs are shared by the
terminal dashboard, the headless runner and the local HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	registerRootFlags(rootCmd, flags)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd(flags))
	rootCmd.AddCommand(newUICmd(flags))
	rootCmd.AddCommand(newSettingsCmd(flags))
	rootCmd.AddCommand(newProfileCmd(flags))
	rootCmd.AddCommand(newLogsCmd(flags))
	rootCmd.AddCommand(newWindowsCmd(flags))
	rootCmd.AddCommand(newCaptureKeyCmd(flags))

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != cmd.Root() {
			desc := cmd.Long
			if desc == "" {
				desc = cmd.Short
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s", desc, cmd.UsageString())
			return
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Usage:\n  %s <command> [arguments] [options]\n\n", cmd.Name())
		fmt.Fprintf(out, "Available Commands:\n")
		for _, subCmd := range cmd.Commands() {
			if !subCmd.Hidden {
				fmt.Fprintf(out, "  %-15s %s\n", subCmd.Name(), subCmd.Short)
			}
		}
		fmt.Fprintf(out, "\nUse \"%s help <command>\" for more information about a command.\n", cmd.Name())
	})

	return rootCmd
}
