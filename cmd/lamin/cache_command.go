package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the cache directory",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.manager()
			if err != nil {
				return err
			}
			dir, err := mgr.CacheGet()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "The cache directory is %s\n", dir)
			return nil
		},
	})
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "set <dir>",
		Short: "Change the cache directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.manager()
			if err != nil {
				return err
			}
			dir, err := mgr.CacheSet(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "The cache directory is now %s\n", dir)
			return nil
		},
	})
	var olderThan time.Duration
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove everything in the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.manager()
			if err != nil {
				return err
			}
			removed, err := mgr.CacheClear(olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries\n", removed)
			return nil
		},
	}
	clearCmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove entries older than this age (e.g. 72h)")
	cacheCmd.AddCommand(clearCmd)
	return cacheCmd
}
