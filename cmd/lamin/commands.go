package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"lamin/internal/setup"
)

// commandHandler runs a command once flags and args are parsed.
type commandHandler func(ctx *commandContext, cmd *cobra.Command, args []string) error

// commandSpec declares a thin command that delegates to internal/setup.
// bind registers the command's flags and returns the handler that reads them.
type commandSpec struct {
	use   string
	short string
	args  cobra.PositionalArgs
	bind  func(fs *pflag.FlagSet) commandHandler
}

func buildCommand(ctx *commandContext, spec commandSpec) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  spec.args,
	}
	handler := spec.bind(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return handler(ctx, cmd, args)
	}
	return cmd
}

// withManager adapts a handler that only needs the settings manager.
func withManager(fn func(mgr *setup.Manager, cmd *cobra.Command, args []string) error) commandHandler {
	return func(ctx *commandContext, cmd *cobra.Command, args []string) error {
		mgr, err := ctx.manager()
		if err != nil {
			return err
		}
		return fn(mgr, cmd, args)
	}
}

func noFlags(fn func(mgr *setup.Manager, cmd *cobra.Command, args []string) error) func(*pflag.FlagSet) commandHandler {
	return func(*pflag.FlagSet) commandHandler {
		return withManager(fn)
	}
}

func settingsCommands() []commandSpec {
	return []commandSpec{
		{
			use:   "login <user>",
			short: "Log into a user account (handle or email)",
			args:  cobra.ExactArgs(1),
			bind: func(fs *pflag.FlagSet) commandHandler {
				key := fs.String("key", "", "API key")
				password := fs.String("password", "", "Password (legacy)")
				return withManager(func(mgr *setup.Manager, cmd *cobra.Command, args []string) error {
					user, err := mgr.Login(setup.LoginOptions{User: args[0], Key: *key, Password: *password})
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "logged in with handle %s (uid: %s)\n", user.Handle, user.UID)
					return nil
				})
			},
		},
		{
			use:   "logout",
			short: "Log out of the current user account",
			args:  cobra.NoArgs,
			bind: noFlags(func(mgr *setup.Manager, cmd *cobra.Command, args []string) error {
				existed, err := mgr.Logout()
				if err != nil {
					return err
				}
				if !existed {
					fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			}),
		},
		{
			use:   "init",
			short: "Initialize a new instance",
			args:  cobra.NoArgs,
			bind: func(fs *pflag.FlagSet) commandHandler {
				var opts setup.InitOptions
				fs.StringVar(&opts.Storage, "storage", "", "Storage root: local directory, s3://bucket or gs://bucket")
				fs.StringVar(&opts.DB, "db", "", "Database: sqlite path or sqlite:/// URL (defaults to a file in storage)")
				fs.StringVar(&opts.Schema, "schema", "", "Comma-separated schema modules")
				fs.StringVar(&opts.Name, "name", "", "Instance name (defaults to the storage root name)")
				return withManager(func(mgr *setup.Manager, cmd *cobra.Command, args []string) error {
					settings, err := mgr.Init(opts)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "initialized instance %s (storage: %s)\n", settings.Slug(), settings.Storage)
					return nil
				})
			},
		},
		{
			use:   "load <instance>",
			short: "Load an instance (name, owner/name or URL)",
			args:  cobra.ExactArgs(1),
			bind: func(fs *pflag.FlagSet) commandHandler {
				db := fs.String("db", "", "Override the database")
				storageRoot := fs.String("storage", "", "Override the storage root")
				return withManager(func(mgr *setup.Manager, cmd *cobra.Command, args []string) error {
					settings, err := mgr.Load(args[0], *db, *storageRoot)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "loaded instance %s\n", settings.Slug())
					return nil
				})
			},
		},
		{
			use:   "delete <instance>",
			short: "Delete an instance",
			args:  cobra.ExactArgs(1),
			bind: func(fs *pflag.FlagSet) commandHandler {
				force := fs.Bool("force", false, "Do not ask for confirmation")
				return withManager(func(mgr *setup.Manager, cmd *cobra.Command, args []string) error {
					err := mgr.Delete(args[0], *force)
					if errors.Is(err, setup.ErrAborted) {
						fmt.Fprintln(cmd.OutOrStdout(), "aborted")
						return &ExitError{Code: 1, Err: err, Silent: true}
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted instance %s\n", args[0])
					return nil
				})
			},
		},
		{
			use:   "close",
			short: "Close the current instance",
			args:  cobra.NoArgs,
			bind: noFlags(func(mgr *setup.Manager, cmd *cobra.Command, args []string) error {
				existed, err := mgr.Close()
				if err != nil {
					return err
				}
				if !existed {
					fmt.Fprintln(cmd.OutOrStdout(), "no instance loaded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "closed instance")
				return nil
			}),
		},
		{
			use:   "register",
			short: "Register the current instance",
			args:  cobra.NoArgs,
			bind: noFlags(func(mgr *setup.Manager, cmd *cobra.Command, args []string) error {
				settings, err := mgr.Register()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered instance %s at %s\n", settings.Slug(), settings.RegisteredAt)
				return nil
			}),
		},
		{
			use:   "set",
			short: "Update settings of the current instance",
			args:  cobra.NoArgs,
			bind: func(fs *pflag.FlagSet) commandHandler {
				storageRoot := fs.String("storage", "", "New storage root")
				return withManager(func(mgr *setup.Manager, cmd *cobra.Command, args []string) error {
					if strings.TrimSpace(*storageRoot) == "" {
						return errors.New("nothing to set, pass --storage")
					}
					settings, err := mgr.SetStorage(*storageRoot)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "set storage of %s to %s\n", settings.Slug(), settings.Storage)
					return nil
				})
			},
		},
		{
			use:   "info",
			short: "Show user, instance and cache settings",
			args:  cobra.NoArgs,
			bind: func(fs *pflag.FlagSet) commandHandler {
				asJSON := fs.Bool("json", false, "Output as JSON")
				return withManager(func(mgr *setup.Manager, cmd *cobra.Command, args []string) error {
					info, err := mgr.Info()
					if err != nil {
						return err
					}
					if *asJSON {
						return writeJSON(cmd, info)
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderInfo(info))
					return nil
				})
			},
		},
	}
}
