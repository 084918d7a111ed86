package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tturner/smiteclick/internal/config"
	"github.com/tturner/smiteclick/internal/errors"
	"github.com/tturner/smiteclick/internal/keys"
	"github.com/tturner/smiteclick/internal/settings"
)

type settingsSetFlags struct {
	yes bool
}

func newSettingsCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the startup settings",
		Long: `Show or change the settings section of the config file. A running
smiteclick with watch enabled picks changes up immediately.`,
	}
	cmd.AddCommand(newSettingsShowCmd(root))
	cmd.AddCommand(newSettingsSetCmd(root))
	cmd.AddCommand(newSettingsModesCmd())
	return cmd
}

func newSettingsShowCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()
			s, err := e.initialSettings()
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newSettingsSetCmd(root *rootFlags) *cobra.Command {
	flags := &settingsSetFlags{}
	cmd := &cobra.Command{
		Use:   "set key=value [key=value...]",
		Short: "Change one or more settings",
		Long: `Change settings in the config file. Every assignment is validated
before anything is written, and start and stop hotkeys must differ.

cps is kept inside the range of cps_mode. Switching to Fast, Extreme or
Insane asks for confirmation unless --yes is given.`,
		Example: `  smiteclick settings set cps=25
  smiteclick settings set cps_mode=Fast cps=45 --yes
  smiteclick settings set start_hotkey=f8 stop_hotkey=f9 hotkey_mode=Hold
  smiteclick settings set target_mode=specific_pos specific_pos="640, 480"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseAssignments(args)
			if err != nil {
				return err
			}
			e, err := loadEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()
			base, err := e.initialSettings()
			if err != nil {
				return err
			}
			next, err := planSettings(base, rec)
			if err != nil {
				return errors.WrapSettingError(err, strings.Join(rec.SortedKeys(), ", "))
			}
			if next, err = confirmMode(cmd, base, next, flags.yes); err != nil {
				return err
			}
			changed, err := persistSettings(e.cfgPath, base, next)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(changed) == 0 {
				fmt.Fprintln(out, "No changes")
				return nil
			}
			nextRec := next.Record()
			for _, k := range changed {
				fmt.Fprintf(out, "%s = %v\n", k, displayValue(k, nextRec[string(k)]))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Skip the fast-mode confirmation")
	return cmd
}

func newSettingsModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List cps modes and their ranges",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, m := range settings.Modes() {
				fmt.Fprintf(out, "  %-8s %3g-%-3g cps", m.Mode, m.Min, m.Max)
				if m.Warning != "" {
					fmt.Fprintf(out, "  %s", m.Warning)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

// parseAssignments turns key=value arguments into a record. Values stay
// strings; the settings layer coerces them.
func parseAssignments(args []string) (settings.Record, error) {
	rec := settings.Record{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		if _, err := settings.ParseKey(k); err != nil {
			return nil, err
		}
		rec[k] = strings.TrimSpace(v)
	}
	return rec, nil
}

// planSettings applies rec to base and keeps cps inside the resulting
// mode's range. A cps of 0 is left alone.
func planSettings(base settings.Settings, rec settings.Record) (settings.Settings, error) {
	next, err := base.ApplyRecord(rec)
	if err != nil {
		return base, err
	}
	if next.CPS != 0 {
		next.CPS = settings.ClampToMode(next.CPS, next.CPSMode)
	}
	return next, nil
}

// confirmMode asks before moving into a mode that carries a warning. The
// confirmation only unlocks after the mode's cooldown. Declining keeps the
// previous mode and the rest of the changes.
func confirmMode(cmd *cobra.Command, base, next settings.Settings, yes bool) (settings.Settings, error) {
	if next.CPSMode == base.CPSMode || yes {
		return next, nil
	}
	info, ok := next.CPSMode.Info()
	if !ok || info.Warning == "" {
		return next, nil
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "%s mode: %s\n", info.Mode, info.Warning)
	waitCooldown(errOut, info.Cooldown, time.Sleep)

	var accept bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Switch to %s mode?", info.Mode)).
		Description(info.Warning).
		Affirmative("OK").
		Negative("Cancel").
		Value(&accept).
		Run()
	if err != nil {
		return base, fmt.Errorf("confirm %s mode (use --yes when not on a terminal): %w", info.Mode, err)
	}
	if accept {
		return next, nil
	}
	return revertMode(next, base.CPSMode), nil
}

func revertMode(s settings.Settings, mode settings.CPSMode) settings.Settings {
	s.CPSMode = mode
	if s.CPS != 0 {
		s.CPS = settings.ClampToMode(s.CPS, mode)
	}
	return s
}

func waitCooldown(w io.Writer, d time.Duration, sleep func(time.Duration)) {
	for left := int(d / time.Second); left > 0; left-- {
		fmt.Fprintf(w, "\rConfirm available in %2ds", left)
		sleep(time.Second)
	}
	if d >= time.Second {
		fmt.Fprint(w, "\r                         \r")
	}
}

// persistSettings writes the keys that differ between base and next into
// the settings section of the config file at path. The file is re-read
// raw so resolved paths and environment overrides are not written back.
func persistSettings(path string, base, next settings.Settings) ([]settings.Key, error) {
	changed := settings.Diff(base, next)
	if len(changed) == 0 {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(fmt.Errorf("read config file: %w", err), path)
	}
	cfg, err := config.Parse(data, path)
	if err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	if cfg.Settings == nil {
		cfg.Settings = settings.Record{}
	}
	rec := next.Record()
	for _, k := range changed {
		cfg.Settings[string(k)] = rec[string(k)]
	}
	if err := config.Write(cfg, path); err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	return changed, nil
}

func displayValue(k settings.Key, v any) any {
	if k == settings.KeyStartHotkey || k == settings.KeyStopHotkey {
		if s, ok := v.(string); ok {
			return keys.Display(s)
		}
	}
	return v
}

func printSettings(w io.Writer, s settings.Settings) {
	rec := s.Record()
	for _, k := range settings.Keys() {
		fmt.Fprintf(w, "%-26s %v\n", k, displayValue(k, rec[string(k)]))
	}
}
