package main

import (
	"encoding/json"
	"fmt"
	"testing"

	"goensight/internal/enginetest"
)

func scriptPartList(env *cliTestEnv) {
	env.engine.Script("ensight.objs.core.PARTS",
		"[Class: ENS_PART, desc: 'windshield', CvfObjID: 1078, cached:no, Class: ENS_PART, desc: 'engine block', CvfObjID: 1079, cached:no]")
	env.engine.Script(fmt.Sprintf("ensight.objs.wrap_id(1078).getattr(%d)", enginetest.BootstrapPartTypeAttr), "0")
	env.engine.Script(fmt.Sprintf("ensight.objs.wrap_id(1079).getattr(%d)", enginetest.BootstrapPartTypeAttr), "5")
	env.engine.Script("[(p.DESCRIPTION, p.VISIBLE) for p in ensight.objs.core.PARTS]",
		"[('windshield', True), ('engine block', False)]")
}

func TestPartsListsCurrentCase(t *testing.T) {
	env := setupCLITestEnv(t)
	scriptPartList(env)

	out, _, err := runCLI(t, env, "parts")
	if err != nil {
		t.Fatalf("parts: %v", err)
	}
	requireContains(t, out, "1078")
	requireContains(t, out, "ENS_PART_MODEL")
	requireContains(t, out, "windshield")
	requireContains(t, out, "1079")
	requireContains(t, out, "ENS_PART_ISOSURFACE")
	requireContains(t, out, "engine block")
	requireContains(t, out, "VISIBLE")
	requireContains(t, out, "yes")
}

func TestPartsEmptyCase(t *testing.T) {
	env := setupCLITestEnv(t)
	env.engine.Script("ensight.objs.core.PARTS", "[]")

	out, _, err := runCLI(t, env, "parts")
	if err != nil {
		t.Fatalf("parts: %v", err)
	}
	requireContains(t, out, "No parts are loaded")
	if got := env.engine.CommandCount("[(p.DESCRIPTION, p.VISIBLE) for p in ensight.objs.core.PARTS]"); got != 0 {
		t.Fatalf("attribute query issued %d times for empty case", got)
	}
}

func TestPartsJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	scriptPartList(env)

	out, _, err := runCLI(t, env, "parts", "--json")
	if err != nil {
		t.Fatalf("parts --json: %v", err)
	}
	var parts []partInfo
	if err := json.Unmarshal([]byte(out), &parts); err != nil {
		t.Fatalf("decode parts: %v\n%s", err, out)
	}
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	if parts[0].ID != 1078 || parts[0].Class != "ENS_PART_MODEL" || parts[0].Description != "windshield" {
		t.Fatalf("first part = %+v", parts[0])
	}
	if !parts[0].Visible || parts[1].Visible {
		t.Fatalf("visibility = %v/%v, want true/false", parts[0].Visible, parts[1].Visible)
	}
}
