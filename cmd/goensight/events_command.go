package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"goensight/internal/journal"
	"goensight/internal/logging"
	"goensight/internal/session"
)

const eventPollInterval = 100 * time.Millisecond

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var listen time.Duration
	var journalPath string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show journaled engine events or listen for new ones",
		Long: `Show journaled engine events or listen for new ones.

Without flags the most recent journal entries are listed. With --listen the
event stream is enabled in queue mode and raw event URLs are printed as the
engine emits them, for the given duration or until interrupted. --journal
selects a journal file other than the configured one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen > 0 {
				return ctx.withSession(cmd, func(runCtx context.Context, sess *session.Session) error {
					return runEventListen(cmd, ctx, sess, runCtx, listen, journalPath)
				})
			}
			return runEventList(cmd, ctx, limit, journalPath)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of journal entries to show")
	cmd.Flags().DurationVar(&listen, "listen", 0, "Listen for live events for this long")
	cmd.Flags().StringVar(&journalPath, "journal", "", "Journal file to read or append, overriding the configuration")
	return cmd
}

func runEventList(cmd *cobra.Command, cliCtx *commandContext, limit int, journalPath string) error {
	cfg, err := cliCtx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err = journalOverride(cfg, journalPath)
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "Journaling is disabled; set journal.enabled in the configuration to record events")
		return nil
	}

	events, err := journal.Open(cfg)
	if err != nil {
		if errors.Is(err, journal.ErrLocked) {
			return fmt.Errorf("open journal: %s is in use by another process", cfg.Journal.Path)
		}
		return fmt.Errorf("open journal: %w", err)
	}
	defer events.Close()

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	entries, err := events.Recent(runCtx, limit)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Journal is empty")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		uid := ""
		if entry.UID != 0 {
			uid = strconv.FormatInt(entry.UID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(entry.ID, 10),
			entry.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
			entry.Tag,
			entry.Enum,
			uid,
		})
	}
	out := renderTable(
		[]string{"ID", "RECEIVED", "TAG", "ENUM", "UID"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runEventListen(cmd *cobra.Command, cliCtx *commandContext, sess *session.Session, runCtx context.Context, duration time.Duration, journalPath string) error {
	cfg, err := cliCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cliCtx.ensureLogger()
	if err != nil {
		return err
	}
	cfg, err = journalOverride(cfg, journalPath)
	if err != nil {
		return err
	}

	var events *journal.Journal
	if cfg.Journal.Enabled {
		events, err = journal.Open(cfg)
		if err != nil {
			if errors.Is(err, journal.ErrLocked) {
				return fmt.Errorf("open journal: %s is in use by another process", cfg.Journal.Path)
			}
			return fmt.Errorf("open journal: %w", err)
		}
		defer events.Close()
	}

	if err := sess.EnableEvents(runCtx); err != nil {
		return fmt.Errorf("enable event stream: %w", err)
	}

	signalCtx, stop := signal.NotifyContext(runCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deadline := time.NewTimer(duration)
	defer deadline.Stop()
	ticker := time.NewTicker(eventPollInterval)
	defer ticker.Stop()

	out := cmd.OutOrStdout()
	received := 0
	drain := func() {
		for {
			eventURL, ok := sess.GetEvent()
			if !ok {
				return
			}
			received++
			fmt.Fprintln(out, eventURL)
			if events != nil {
				if err := events.Append(signalCtx, journal.EntryFromURL(eventURL, time.Now())); err != nil {
					logger.Warn("journal event", logging.Error(err))
				}
			}
		}
	}

	for {
		select {
		case <-signalCtx.Done():
			fmt.Fprintf(out, "Captured %d events\n", received)
			return nil
		case <-deadline.C:
			drain()
			fmt.Fprintf(out, "Captured %d events\n", received)
			return nil
		case <-ticker.C:
			drain()
		}
	}
}
