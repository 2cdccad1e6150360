package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"goensight/internal/config"
	"goensight/internal/enginetest"
)

type cliTestEnv struct {
	engine      *enginetest.Engine
	configPath  string
	journalPath string
	logDir      string
	base        string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	engine := enginetest.Start(t)
	engine.ScriptBootstrap()

	env := &cliTestEnv{
		engine:      engine,
		configPath:  filepath.Join(base, "config.toml"),
		journalPath: filepath.Join(base, "journal", "events.db"),
		logDir:      filepath.Join(base, "logs"),
		base:        base,
	}
	writeTestConfig(t, env, true)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv, journalEnabled bool) {
	t.Helper()
	content := fmt.Sprintf(`[engine]
host = %q
grpc_port = %d

[timeouts]
connect_seconds = 2
session_seconds = 10

[logging]
format = "console"
level = "error"
log_dir = %q

[journal]
enabled = %t
path = %q
`, env.engine.Host(), env.engine.Port(), env.logDir, journalEnabled, env.journalPath)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output missing %q:\n%s", needle, haystack)
	}
}

// testConfig loads the environment's config file the way the CLI would, for
// tests that need to open the journal directly.
func testConfig(t *testing.T, env *cliTestEnv) *config.Config {
	t.Helper()
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load test config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfg
}

// emitWhenStreaming waits for the engine to see an event stream and then
// broadcasts tail to it. Runs in a goroutine alongside a blocking CLI call.
func emitWhenStreaming(t *testing.T, env *cliTestEnv, tail string) chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if env.engine.StreamCount() > 0 {
				env.engine.Broadcast(tail)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Errorf("no event stream appeared before emitting %q", tail)
	}()
	return done
}
