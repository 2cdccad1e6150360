package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"goensight/internal/session"
)

type sessionInfo struct {
	Target        string `json:"target"`
	CEIHome       string `json:"cei_home"`
	Suffix        string `json:"suffix"`
	PythonVersion string `json:"python_version"`
	Core          string `json:"core"`
	EventPrefix   string `json:"event_prefix"`
	EventStream   string `json:"event_stream"`
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show identity details for the connected engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(runCtx context.Context, sess *session.Session) error {
				info := sessionInfo{
					Target:        sess.Target(),
					CEIHome:       sess.CEIHome(),
					Suffix:        sess.Suffix(),
					PythonVersion: strings.Join(sess.RemotePythonVersion(), "."),
					EventPrefix:   sess.EventPrefix(),
					EventStream:   sess.EventStreamState().String(),
				}
				if core := sess.Core(); core != nil {
					info.Core = core.String()
				}
				if jsonOutput {
					return writeJSON(cmd, info)
				}
				rows := [][]string{
					{"Target", info.Target},
					{"CEI home", info.CEIHome},
					{"Version suffix", info.Suffix},
					{"Remote Python", info.PythonVersion},
					{"Core object", info.Core},
					{"Event prefix", info.EventPrefix},
					{"Event stream", info.EventStream},
				}
				out := renderTable([]string{"FIELD", "VALUE"}, rows, nil)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit session details as JSON")
	return cmd
}
