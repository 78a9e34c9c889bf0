package main

import (
	"strings"

	"github.com/spf13/cobra"

	"lamin/internal/tracking"
)

func newTrackCommand(ctx *commandContext) *cobra.Command {
	var pypackage string
	cmd := &cobra.Command{
		Use:   "track <file>",
		Short: "Record a run of a script or notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := tracking.ContextFromFile(args[0])
			if err != nil {
				return err
			}
			if pypackage != "" {
				tc.PyPackages = strings.Split(pypackage, ",")
			}
			return ctx.withTracking(cmd.Context(), func(svc *tracking.Service) error {
				outcome, err := svc.Track(cmd.Context(), tc)
				return finishOutcome(cmd, outcome, err)
			})
		},
	}
	cmd.Flags().StringVar(&pypackage, "pypackage", "", "Python packages to track, delimited by ','")
	return cmd
}

func newSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save <file>",
		Short: "Save the source of a tracked script or notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracking(cmd.Context(), func(svc *tracking.Service) error {
				outcome, err := svc.Save(cmd.Context(), args[0])
				return finishOutcome(cmd, outcome, err)
			})
		},
	}
}

func newStageCommand(ctx *commandContext) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "stage <transform uid | url>",
		Short: "Download the saved source of a transform",
		Example: "  lamin stage transform m5uCHTTpJnjQ0000\n" +
			"  lamin stage https://lamin.ai/owner/instance/transform/m5uCHTTpJnjQ0000",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := strings.Join(args, " ")
			return ctx.withTracking(cmd.Context(), func(svc *tracking.Service) error {
				outcome, err := svc.Stage(cmd.Context(), ref, dir)
				return finishOutcome(cmd, outcome, err)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the source into")
	return cmd
}
