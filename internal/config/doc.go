// Package config loads and validates goensight configuration.
//
// Configuration lives in a TOML file, resolved from an explicit path, the
// default ~/.config/goensight/config.toml, or a project-local goensight.toml.
// Absent files are not an error: every setting has a usable default so the
// client can reach an engine on localhost with nothing but the binary.
//
// Load applies three passes: decode, normalize (path expansion, environment
// fallbacks such as ENSIGHT_SECURITY_TOKEN, defaulting of blank values), and
// validate. Callers receive a config that is ready to use without further
// checking.
package config
