package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"goensight/internal/session"
)

func newExecCommand(ctx *commandContext) *cobra.Command {
	var noResult bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "exec <python>",
		Short: "Run a Python command in the engine",
		Long: `Run a Python command in the engine's embedded interpreter.

By default the command is evaluated as an expression and the result is
printed. With --no-result it runs as statements in the full command
language and produces no output. With --json the engine encodes the
result as JSON before returning it, which keeps large numeric structures
exact.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noResult && jsonOutput {
				return errors.New("--no-result and --json are mutually exclusive")
			}
			command := strings.Join(args, " ")
			return ctx.withSession(cmd, func(runCtx context.Context, sess *session.Session) error {
				switch {
				case noResult:
					return sess.CmdExec(runCtx, command)
				case jsonOutput:
					value, err := sess.CmdJSON(runCtx, command)
					if err != nil {
						return err
					}
					return writeJSON(cmd, value)
				default:
					value, err := sess.Cmd(runCtx, command)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), formatPythonResult(value))
					return nil
				}
			})
		},
	}

	cmd.Flags().BoolVar(&noResult, "no-result", false, "Run as statements without computing a result")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Ask the engine to JSON-encode the result")
	return cmd
}
