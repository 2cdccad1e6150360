package main

import (
	"strings"
	"testing"
)

func TestExecPrintsEvaluatedResult(t *testing.T) {
	env := setupCLITestEnv(t)
	env.engine.Script("2+2", "4")

	out, _, err := runCLI(t, env, "exec", "2+2")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if strings.TrimSpace(out) != "4" {
		t.Fatalf("exec output = %q, want 4", out)
	}
}

func TestExecMarshalsHandles(t *testing.T) {
	env := setupCLITestEnv(t)
	env.engine.Script("ensight.objs.core.CURRENTCASE[0]",
		"Class: ENS_CASE, desc: 'Case 1', CvfObjID: 1078, cached:no")

	out, _, err := runCLI(t, env, "exec", "ensight.objs.core.CURRENTCASE[0]")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	requireContains(t, out, "ENS_CASE(id=1078)")
}

func TestExecJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	env.engine.Script("dict(parts=3)", `{"parts": 3}`)

	out, _, err := runCLI(t, env, "exec", "--json", "dict(parts=3)")
	if err != nil {
		t.Fatalf("exec --json: %v", err)
	}
	requireContains(t, out, `"parts": 3`)
}

func TestExecStatementsProduceNoOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "exec", "--no-result", "ensight.view_transf.rotate(30, 0, 0)")
	if err != nil {
		t.Fatalf("exec --no-result: %v", err)
	}
	if out != "" {
		t.Fatalf("statement mode output = %q, want empty", out)
	}
	if got := env.engine.CommandCount("ensight.view_transf.rotate(30, 0, 0)"); got != 1 {
		t.Fatalf("engine saw command %d times, want 1", got)
	}
}

func TestExecModeFlagsConflict(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "exec", "--no-result", "--json", "1")
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected mutual exclusion error, got %v", err)
	}
}

func TestExecRemoteFailureSurfaces(t *testing.T) {
	env := setupCLITestEnv(t)
	env.engine.ScriptError("1/0", -1)

	_, _, err := runCLI(t, env, "exec", "1/0")
	if err == nil {
		t.Fatal("expected remote execution error")
	}
}
