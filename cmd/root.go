package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "s1t",
		Short:         "Sentinel-1 tiles (s1t): search, filter and download GRD tiles for an area",
		Long:          "s1t searches a STAC catalog for Sentinel-1 GRD scenes over an area of interest, keeps the scenes whose footprint intersects it, groups them into 12-day repeat cycles and downloads the VV/VH assets of every cycle.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newFetchCmd(app),
		newPlanCmd(app),
	)

	return rootCmd
}
