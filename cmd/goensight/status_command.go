package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"goensight/internal/journal"
	"goensight/internal/logging"
	"goensight/internal/session"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the configured engine and local state",
		Long: `Check the configured engine and local state.

Reports configuration resolution, engine reachability, session identity, and
the journal. The command always exits zero; the lines tell the story.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			line := func(label string, kind statusKind, format string, args ...any) {
				fmt.Fprintln(out, renderStatusLine(label, kind, fmt.Sprintf(format, args...), colorize))
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				line("Configuration", statusError, "%v", err)
				return nil
			}
			source := ctx.configPath
			if !ctx.configExists {
				source += " (defaults)"
			}
			line("Configuration", statusOK, "%s", source)

			reportEngine(cmd, ctx, cfg.EngineTarget(), line)
			reportJournal(cmd, ctx, line)
			return nil
		},
	}
}

type statusLineFunc func(label string, kind statusKind, format string, args ...any)

func reportEngine(cmd *cobra.Command, ctx *commandContext, target string, line statusLineFunc) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		logger = logging.NewNop()
	}

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}

	sess := session.New(cfg, logger)
	if err := sess.Connect(runCtx); err != nil {
		if errors.Is(err, session.ErrEngineUnreachable) {
			line("Engine", statusError, "no response from %s", target)
		} else {
			line("Engine", statusError, "%v", err)
		}
		return
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = sess.Close(closeCtx, false)
	}()

	line("Engine", statusOK, "%s answers", target)
	line("Session", statusOK, "EnSight %s at %s, Python %s",
		sess.Suffix(), sess.CEIHome(), strings.Join(sess.RemotePythonVersion(), "."))
	line("Event stream", statusInfo, "%s", sess.EventStreamState())
}

func reportJournal(cmd *cobra.Command, ctx *commandContext, line statusLineFunc) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return
	}
	if !cfg.Journal.Enabled {
		line("Journal", statusInfo, "disabled")
		return
	}

	events, err := journal.Open(cfg)
	if err != nil {
		if errors.Is(err, journal.ErrLocked) {
			line("Journal", statusWarn, "%s is in use by another process", cfg.Journal.Path)
		} else {
			line("Journal", statusError, "%v", err)
		}
		return
	}
	defer events.Close()

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	count, err := events.Count(runCtx)
	if err != nil {
		line("Journal", statusError, "%v", err)
		return
	}
	line("Journal", statusOK, "%d events at %s", count, events.Path())
}
