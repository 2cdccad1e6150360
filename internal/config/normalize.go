package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeEngine()
	c.normalizeTimeouts()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return c.normalizeJournal()
}

func (c *Config) normalizeEngine() {
	c.Engine.Host = strings.TrimSpace(c.Engine.Host)
	if c.Engine.Host == "" {
		c.Engine.Host = defaultEngineHost
	}
	if c.Engine.GRPCPort == 0 {
		c.Engine.GRPCPort = defaultGRPCPort
	}
	c.Engine.SecretKey = strings.TrimSpace(c.Engine.SecretKey)
	if c.Engine.SecretKey == "" {
		if value, ok := os.LookupEnv(SecretKeyEnvVar); ok {
			c.Engine.SecretKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeTimeouts() {
	if c.Timeouts.ConnectSeconds <= 0 {
		c.Timeouts.ConnectSeconds = defaultConnectSeconds
	}
	if c.Timeouts.SessionSeconds <= 0 {
		c.Timeouts.SessionSeconds = defaultSessionSeconds
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.LogDir) == "" {
		return nil
	}
	expanded, err := expandPath(c.Logging.LogDir)
	if err != nil {
		return fmt.Errorf("logging.log_dir: %w", err)
	}
	c.Logging.LogDir = expanded
	return nil
}

func (c *Config) normalizeJournal() error {
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = defaultJournalPath
	}
	expanded, err := expandPath(c.Journal.Path)
	if err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	c.Journal.Path = expanded
	return nil
}
