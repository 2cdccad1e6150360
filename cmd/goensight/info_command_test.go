package main

import (
	"encoding/json"
	"testing"

	"goensight/internal/enginetest"
)

func TestInfoShowsEngineIdentity(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "info")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	requireContains(t, out, enginetest.BootstrapCEIHome)
	requireContains(t, out, enginetest.BootstrapSuffix)
	requireContains(t, out, "3.10.11")
	requireContains(t, out, "ENS_GLOBALS(id=220)")
	requireContains(t, out, "grpc://")
	requireContains(t, out, "idle")
}

func TestInfoJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "info", "--json")
	if err != nil {
		t.Fatalf("info --json: %v", err)
	}
	var info sessionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode info: %v\n%s", err, out)
	}
	if info.CEIHome != enginetest.BootstrapCEIHome {
		t.Fatalf("cei_home = %q", info.CEIHome)
	}
	if info.Suffix != enginetest.BootstrapSuffix {
		t.Fatalf("suffix = %q", info.Suffix)
	}
	if info.EventStream != "idle" {
		t.Fatalf("event_stream = %q", info.EventStream)
	}
}
