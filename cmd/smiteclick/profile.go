package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/tturner/smiteclick/internal/errors"
	"github.com/tturner/smiteclick/internal/profile"
	"github.com/tturner/smiteclick/internal/store"
)

func newProfileCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profiles"},
		Short:   "Save, load and share settings profiles",
		Long: `Profiles are named snapshots of every setting. They live in the database
and can be exported to or imported from YAML and TOML files.`,
	}
	cmd.AddCommand(newProfileListCmd(root))
	cmd.AddCommand(newProfileShowCmd(root))
	cmd.AddCommand(newProfileSaveCmd(root))
	cmd.AddCommand(newProfileLoadCmd(root))
	cmd.AddCommand(newProfileDeleteCmd(root))
	cmd.AddCommand(newProfileExportCmd(root))
	cmd.AddCommand(newProfileImportCmd(root))
	return cmd
}

// withStore runs fn against the configured database.
func withStore(cmd *cobra.Command, root *rootFlags, fn func(ctx context.Context, e *env, st *store.Store) error) error {
	e, err := loadEnv(root)
	if err != nil {
		return err
	}
	defer e.Close()
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx, cancel := cmdContext(cmd)
	defer cancel()
	return fn(ctx, e, st)
}

// findProfile accepts a numeric id or a profile name.
func findProfile(ctx context.Context, st *store.Store, ref string) (*store.Profile, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		p, err := st.GetProfile(ctx, id)
		if err == nil || !stderrors.Is(err, store.ErrProfileNotFound) {
			return p, err
		}
	}
	return st.GetProfileByName(ctx, ref)
}

func newProfileListCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles and profile files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				out := cmd.OutOrStdout()
				saved, err := st.ListProfiles(ctx)
				if err != nil {
					return errors.WrapStorageError(err, st.Path())
				}
				if len(saved) == 0 {
					fmt.Fprintln(out, "No saved profiles")
				} else {
					fmt.Fprintln(out, "Saved profiles:")
					for _, p := range saved {
						fmt.Fprintf(out, "  %4d  %s\n", p.ID, p.Name)
					}
				}

				files, err := profile.ListProfiles(e.cfg.ProfilesDir)
				if err != nil {
					return err
				}
				if len(files) > 0 {
					fmt.Fprintf(out, "\nProfile files in %s:\n", e.cfg.ProfilesDir)
					for _, f := range files {
						fmt.Fprintf(out, "  %-24s %2d keys  %s\n", f.Name, f.Keys, filepath.Base(f.Path))
					}
				}
				return nil
			})
		},
	}
}

func newProfileShowCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name|id>",
		Short: "Print a saved profile as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				p, err := findProfile(ctx, st, args[0])
				if err != nil {
					return err
				}
				data, err := profile.Marshal(&profile.File{Name: p.Name, Settings: p.Settings}, "profile.yaml")
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
}

func newProfileSaveCmd(root *rootFlags) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save the current settings as a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				s, err := e.initialSettings()
				if err != nil {
					return err
				}
				save := st.SaveProfile
				if replace {
					save = st.ReplaceProfile
				}
				id, err := save(ctx, args[0], s.Record())
				if err != nil {
					if stderrors.Is(err, store.ErrProfileNameConflict) {
						return fmt.Errorf("a profile named %q already exists (use --replace)", args[0])
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q (id %d)\n", args[0], id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Overwrite a profile with the same name")
	return cmd
}

func newProfileLoadCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "load <name|id>",
		Short: "Make a saved profile the startup settings",
		Long: `Write a saved profile's settings into the config file. A running
smiteclick with watch enabled switches to them immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				p, err := findProfile(ctx, st, args[0])
				if err != nil {
					return err
				}
				base, err := e.initialSettings()
				if err != nil {
					return err
				}
				next, err := planSettings(base, p.Settings)
				if err != nil {
					return fmt.Errorf("profile %q: %w", p.Name, err)
				}
				changed, err := persistSettings(e.cfgPath, base, next)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded profile %q (%d settings changed)\n", p.Name, len(changed))
				return nil
			})
		},
	}
}

func newProfileDeleteCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name|id>",
		Short: "Delete a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				p, err := findProfile(ctx, st, args[0])
				if err != nil {
					return err
				}
				if err := st.DeleteProfile(ctx, p.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %q\n", p.Name)
				return nil
			})
		},
	}
}

func newProfileExportCmd(root *rootFlags) *cobra.Command {
	var (
		outPath string
		toClip  bool
	)
	cmd := &cobra.Command{
		Use:   "export <name|id>",
		Short: "Write a saved profile to a YAML or TOML file",
		Long: `Export a saved profile. The format follows the file extension
(.yaml, .yml or .toml). Without --out the file goes to the profiles
directory; --clipboard copies the YAML instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				p, err := findProfile(ctx, st, args[0])
				if err != nil {
					return err
				}
				f := &profile.File{Name: p.Name, Settings: p.Settings}
				if toClip {
					data, err := profile.Marshal(f, "profile.yaml")
					if err != nil {
						return err
					}
					if err := clipboard.WriteAll(string(data)); err != nil {
						return fmt.Errorf("copy to clipboard: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Copied profile %q to the clipboard\n", p.Name)
					return nil
				}
				path := outPath
				if path == "" {
					path = filepath.Join(e.cfg.ProfilesDir, profile.FileName(p.Name)+".yaml")
				}
				if err := profile.SaveProfile(path, f); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported profile %q to %s\n", p.Name, path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default <profiles_dir>/<name>.yaml)")
	cmd.Flags().BoolVar(&toClip, "clipboard", false, "Copy the YAML to the clipboard instead of writing a file")
	return cmd
}

func newProfileImportCmd(root *rootFlags) *cobra.Command {
	var (
		replace bool
		name    string
	)
	cmd := &cobra.Command{
		Use:   "import <file|name>",
		Short: "Save a profile file into the database",
		Long: `Import a YAML or TOML profile. The argument is a path, or the name of
a profile in the profiles directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, e *env, st *store.Store) error {
				f, err := readProfileArg(args[0], e.cfg.ProfilesDir)
				if err != nil {
					return err
				}
				if name != "" {
					f.Name = name
				}
				for _, k := range f.Unknown() {
					e.log.Info("profile %q: ignoring unknown setting %q", f.Name, k)
					delete(f.Settings, k)
				}
				save := st.SaveProfile
				if replace {
					save = st.ReplaceProfile
				}
				id, err := save(ctx, f.Name, f.Settings)
				if err != nil {
					if stderrors.Is(err, store.ErrProfileNameConflict) {
						return fmt.Errorf("a profile named %q already exists (use --replace or --name)", f.Name)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported profile %q (id %d)\n", f.Name, id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Overwrite a profile with the same name")
	cmd.Flags().StringVar(&name, "name", "", "Save under this name instead of the file's")
	return cmd
}

func readProfileArg(arg, dir string) (*profile.File, error) {
	if _, err := os.Stat(arg); err == nil {
		return profile.LoadProfile(arg)
	}
	return profile.LoadProfileByNameFromDir(arg, dir)
}
