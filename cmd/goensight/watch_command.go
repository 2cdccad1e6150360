package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"goensight/internal/journal"
	"goensight/internal/logging"
	"goensight/internal/session"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var target string
	var tag string
	var attrSpecs []string
	var compress bool
	var duration time.Duration
	var journalPath string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch attribute change events from the engine",
		Long: `Watch attribute change events from the engine.

Arms a callback on the target object for the listed attributes and prints
each event URL as it arrives. Events are also appended to the journal when
journaling is enabled in the configuration or --journal names a file.
Runs until interrupted, or for --duration when given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs := parseAttrSpecs(attrSpecs)
			if len(attrs) == 0 {
				return errors.New("at least one --attr is required")
			}
			return ctx.withSession(cmd, func(runCtx context.Context, sess *session.Session) error {
				return runWatch(cmd, ctx, sess, runCtx, watchOptions{
					target:   target,
					tag:      tag,
					attrs:    attrs,
					compress: compress,
					duration: duration,
					journal:  journalPath,
				})
			})
		},
	}

	cmd.Flags().StringVar(&target, "target", "ensight.objs.core", "Remote object or class to watch")
	cmd.Flags().StringVar(&tag, "tag", "watch", "Tag identifying this registration")
	cmd.Flags().StringSliceVar(&attrSpecs, "attr", nil, "Attribute name or enum value to watch, repeatable")
	cmd.Flags().BoolVar(&compress, "compress", false, "Coalesce bursts into one event per flush")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long instead of waiting for an interrupt")
	cmd.Flags().StringVar(&journalPath, "journal", "", "Journal file to append events to, overriding the configuration")
	return cmd
}

type watchOptions struct {
	target   string
	tag      string
	attrs    []any
	compress bool
	duration time.Duration
	journal  string
}

func runWatch(cmd *cobra.Command, cliCtx *commandContext, sess *session.Session, runCtx context.Context, opts watchOptions) error {
	cfg, err := cliCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cliCtx.ensureLogger()
	if err != nil {
		return err
	}
	cfg, err = journalOverride(cfg, opts.journal)
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

	signalCtx, stop := signal.NotifyContext(runCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The callback fires on the event pump goroutine, so output and the
	// counter are shared with the waiting goroutine below.
	var mu sync.Mutex
	received := 0
	out := cmd.OutOrStdout()

	fn := func(eventURL string) {
		mu.Lock()
		received++
		fmt.Fprintln(out, eventURL)
		mu.Unlock()
		if events != nil {
			appendCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if err := events.Append(appendCtx, journal.EntryFromURL(eventURL, time.Now())); err != nil {
				logger.Warn("journal event", logging.Error(err))
			}
		}
	}

	if err := sess.AddCallback(signalCtx, opts.target, opts.tag, opts.attrs, fn, opts.compress); err != nil {
		return fmt.Errorf("arm callback: %w", err)
	}

	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		select {
		case <-signalCtx.Done():
		case <-timer.C:
		}
	} else {
		<-signalCtx.Done()
	}

	removeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := sess.RemoveCallback(removeCtx, opts.tag); err != nil {
		logger.Warn("remove callback", logging.Error(err))
	}

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "Captured %d events\n", received)
	if events != nil {
		fmt.Fprintf(out, "Journal: %s\n", events.Path())
	}
	return nil
}
