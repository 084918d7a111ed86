package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tturner/smiteclick/internal/errors"
	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/keys"
	"github.com/tturner/smiteclick/internal/settings"
)

func newCaptureKeyCmd(root *rootFlags) *cobra.Command {
	var (
		timeout time.Duration
		set     string
	)
	cmd := &cobra.Command{
		Use:   "capture-key",
		Short: "Press a key to see its hotkey name",
		Long: `Wait for the next key press and print the name to use for
start_hotkey or stop_hotkey. With --set start or --set stop the key is
saved as that hotkey.`,
		Example: `  smiteclick capture-key
  smiteclick capture-key --set start --timeout 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			var target settings.Key
			switch set {
			case "":
			case "start":
				target = settings.KeyStartHotkey
			case "stop":
				target = settings.KeyStopHotkey
			default:
				return fmt.Errorf("--set must be start or stop, got %q", set)
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

			fmt.Fprintf(cmd.ErrOrStderr(), "Press a key (waiting %s)...\n", timeout)
			k, err := captureKey(cmd.Context(), b.Keys, timeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", k, keys.Display(k))
			if target == "" {
				return nil
			}

			base, err := e.initialSettings()
			if err != nil {
				return err
			}
			next, err := planSettings(base, settings.Record{string(target): k})
			if err != nil {
				return errors.WrapSettingError(err, string(target))
			}
			changed, err := persistSettings(e.cfgPath, base, next)
			if err != nil {
				return err
			}
			if len(changed) == 0 {
				fmt.Fprintf(out, "%s is already %s\n", target, keys.Display(k))
				return nil
			}
			fmt.Fprintf(out, "%s = %s\n", target, keys.Display(k))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Give up after this long")
	cmd.Flags().StringVar(&set, "set", "", "Save the key as the start or stop hotkey")
	return cmd
}

func captureKey(parent context.Context, src hotkey.Source, timeout time.Duration) (string, error) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	k, err := hotkey.Capture(ctx, src)
	if stderrors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("no key pressed within %s", timeout)
	}
	return k, err
}
