package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateJournal()
}

func (c *Config) validateEngine() error {
	if c.Engine.Host == "" {
		return errors.New("engine.host must be set")
	}
	if c.Engine.GRPCPort < 1 || c.Engine.GRPCPort > 65535 {
		return fmt.Errorf("engine.grpc_port must be between 1 and 65535, got %d", c.Engine.GRPCPort)
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	if c.Timeouts.ConnectSeconds < 1 {
		return errors.New("timeouts.connect_seconds must be at least 1")
	}
	if c.Timeouts.SessionSeconds < c.Timeouts.ConnectSeconds {
		return fmt.Errorf("timeouts.session_seconds (%d) must not be below timeouts.connect_seconds (%d)",
			c.Timeouts.SessionSeconds, c.Timeouts.ConnectSeconds)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}

func (c *Config) validateJournal() error {
	if c.Journal.Enabled && c.Journal.Path == "" {
		return errors.New("journal.path must be set when journal.enabled is true")
	}
	return nil
}
