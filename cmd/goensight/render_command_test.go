package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRenderWritesImageFile(t *testing.T) {
	env := setupCLITestEnv(t)
	env.engine.SetImage([]byte("png-bytes"))
	target := filepath.Join(env.base, "out", "view.png")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out, _, err := runCLI(t, env, "render", "-o", target, "--width", "640", "--height", "480", "--aa", "2")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	requireContains(t, out, "Wrote "+target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("image contents = %q", data)
	}

	renders := env.engine.Renders()
	if len(renders) != 1 {
		t.Fatalf("render requests = %d, want 1", len(renders))
	}
	req := renders[0]
	if req.Width != 640 || req.Height != 480 || req.AAPasses != 2 {
		t.Fatalf("render request = %+v", req)
	}
	if req.Format != "png" {
		t.Fatalf("render format = %q, want png", req.Format)
	}
}

func TestRenderRawFormat(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.base, "view.raw")

	if _, _, err := runCLI(t, env, "render", "-o", target, "--raw"); err != nil {
		t.Fatalf("render --raw: %v", err)
	}
	renders := env.engine.Renders()
	if len(renders) != 1 || renders[0].Format != "raw" {
		t.Fatalf("render requests = %+v, want one raw request", renders)
	}
}

func TestGeometryWritesFile(t *testing.T) {
	env := setupCLITestEnv(t)
	env.engine.SetGeometry([]byte("glb-bytes"))
	target := filepath.Join(env.base, "scene.glb")

	out, _, err := runCLI(t, env, "geometry", "-o", target)
	if err != nil {
		t.Fatalf("geometry: %v", err)
	}
	requireContains(t, out, "Wrote "+target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read geometry: %v", err)
	}
	if string(data) != "glb-bytes" {
		t.Fatalf("geometry contents = %q", data)
	}
}
