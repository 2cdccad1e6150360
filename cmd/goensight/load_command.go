package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"goensight/internal/session"
)

func newLoadCommand(ctx *commandContext) *cobra.Command {
	var resultFile string
	var fileFormat string
	var representation string
	var newCase bool
	var readerOptions []string

	cmd := &cobra.Command{
		Use:   "load <datafile>",
		Short: "Load a dataset into the engine",
		Long: `Load a dataset into the engine, replacing the current case contents.

The reader format is queried from the engine when --format is not given.
Reader-specific switches can be passed with repeated --reader-option
key=value flags; numeric and boolean values are converted automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := parseReaderOptions(readerOptions)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(runCtx context.Context, sess *session.Session) error {
				err := sess.LoadData(runCtx, session.LoadDataOptions{
					DataFile:       args[0],
					ResultFile:     resultFile,
					FileFormat:     fileFormat,
					ReaderOptions:  options,
					NewCase:        newCase,
					Representation: representation,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&resultFile, "result", "", "Companion result file for dual-file formats")
	cmd.Flags().StringVar(&fileFormat, "format", "", "Reader format name, queried from the engine when empty")
	cmd.Flags().StringVar(&representation, "representation", "", "Element representation applied at load time")
	cmd.Flags().BoolVar(&newCase, "new-case", false, "Load into a new case instead of replacing the current one")
	cmd.Flags().StringArrayVar(&readerOptions, "reader-option", nil, "Reader option as key=value, repeatable")
	return cmd
}
