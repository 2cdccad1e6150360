package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"goensight/internal/config"
	"goensight/internal/logging"
	"goensight/internal/session"
)

const closeTimeout = 5 * time.Second

type commandContext struct {
	configFlag *string
	hostFlag   *string
	portFlag   *int
	secretFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, hostFlag *string, portFlag *int, secretFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		hostFlag:   hostFlag,
		portFlag:   portFlag,
		secretFlag: secretFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.applyOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
		c.configExists = exists
	})
	return c.config, c.configErr
}

// applyOverrides layers the engine connection flags over the loaded file so
// one-off invocations can target a different instance without editing it.
func (c *commandContext) applyOverrides(cfg *config.Config) {
	if c.hostFlag != nil && strings.TrimSpace(*c.hostFlag) != "" {
		cfg.Engine.Host = strings.TrimSpace(*c.hostFlag)
	}
	if c.portFlag != nil && *c.portFlag != 0 {
		cfg.Engine.GRPCPort = *c.portFlag
	}
	if c.secretFlag != nil && *c.secretFlag != "" {
		cfg.Engine.SecretKey = *c.secretFlag
	}
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// withSession connects to the configured engine, hands the live session to
// fn, and disconnects afterwards. The engine keeps running on close.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(context.Context, *session.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	sess := session.New(cfg, logger)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := sess.Connect(ctx); err != nil {
		return wrapConnectError(err, sess.Target())
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := sess.Close(closeCtx, false); err != nil {
			logger.Warn("close session", logging.Error(err))
		}
	}()

	return fn(ctx, sess)
}

func wrapConnectError(err error, target string) error {
	if errors.Is(err, session.ErrEngineUnreachable) {
		return fmt.Errorf("connect to engine: no response from %s; verify EnSight is running with -grpc_server and that host, port, and secret match", target)
	}
	return fmt.Errorf("connect to engine: %w", err)
}

// journalOverride applies the --journal flag to the loaded configuration.
// A non-empty path enables journaling at that location even when the file
// leaves it off. The returned config is a copy; the cached one is untouched.
func journalOverride(cfg *config.Config, path string) (*config.Config, error) {
	if path == "" {
		return cfg, nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expand journal path: %w", err)
	}
	override := *cfg
	override.Journal.Enabled = true
	override.Journal.Path = expanded
	return &override, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
