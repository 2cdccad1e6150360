package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var hostFlag string
	var portFlag int
	var secretFlag string

	ctx := newCommandContext(&configFlag, &hostFlag, &portFlag, &secretFlag)

	rootCmd := &cobra.Command{
		Use:           "goensight",
		Short:         "EnSight remote control CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Engine host, overriding the configuration")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "Engine gRPC port, overriding the configuration")
	rootCmd.PersistentFlags().StringVar(&secretFlag, "secret", "", "Shared secret for engine authentication")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newExecCommand(ctx))
	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newGeometryCommand(ctx))
	rootCmd.AddCommand(newLoadCommand(ctx))
	rootCmd.AddCommand(newPartsCommand(ctx))
	rootCmd.AddCommand(newInfoCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newEventsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
