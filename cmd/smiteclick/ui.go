package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tturner/smiteclick/internal/tui"
)

func newUICmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "ui",
		Aliases: []string{"tui"},
		Short:   "Open the terminal dashboard",
		Long: `Open the interactive dashboard. Start and stop clicking, edit settings,
manage profiles and browse session logs. The global hotkeys keep working
while the dashboard is open.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			e, err := loadEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()
			return runDashboard(e)
		},
	}
}

func runDashboard(e *env) error {
	svc, err := startServices(e)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	svc.watchConfig(ctx)

	runErr := make(chan error, 1)
	go func() {
		runErr <- svc.run(ctx)
	}()

	uiErr := tui.Run(tui.Deps{
		Control:   svc.orch,
		Settings:  svc.settings,
		Store:     svc.store,
		Pointer:   svc.backend.Pointer,
		Windows:   svc.backend.Windows,
		Hotkeys:   svc.hotkeys,
		KeySource: svc.backend.Keys,
		Logger:    e.log,
		Version:   version,
	})
	cancel()
	if err := <-runErr; err != nil && uiErr == nil {
		return err
	}
	return uiErr
}
