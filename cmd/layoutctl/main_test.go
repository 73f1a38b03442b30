package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/girlsclub/modular-dashboard/pkg/app"
	"github.com/girlsclub/modular-dashboard/pkg/config"
)

func newTestRuntime(t *testing.T) (*runtime, *bytes.Buffer) {
	t.Helper()
	a, err := app.Build(context.Background(), config.Default(), nil)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	out := &bytes.Buffer{}
	return &runtime{cli: &cli{Org: "org-1", Actor: "tester"}, out: out, app: a}, out
}

func writeLayout(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layout.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write layout: %v", err)
	}
	return path
}

func TestPublishVersionsAndRollback(t *testing.T) {
	rt, out := newTestRuntime(t)
	ctx := context.Background()

	first := writeLayout(t, "instances:\n  - id: a\n    key: promo\n")
	second := writeLayout(t, "- id: b\n  key: points\n")
	if err := (&publishCmd{File: first}).Run(ctx, rt); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := (&publishCmd{File: second}).Run(ctx, rt); err != nil {
		t.Fatalf("publish: %v", err)
	}
	versions := rt.app.Store.ListVersions(ctx, "org-1", 0)
	if len(versions) != 2 || versions[0].CreatedBy != "tester" {
		t.Fatalf("unexpected versions %+v", versions)
	}

	out.Reset()
	if err := (&versionsCmd{Limit: 5}).Run(ctx, rt); err != nil {
		t.Fatalf("versions: %v", err)
	}
	if strings.Count(out.String(), "published") != 2 {
		t.Fatalf("expected two rows, got %q", out.String())
	}

	if err := (&rollbackCmd{Version: versions[1].ID}).Run(ctx, rt); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	published := rt.app.Store.FetchPublished(ctx, "org-1")
	if published == nil || published.Instances[0].ID != "a" {
		t.Fatalf("expected rollback to version a, got %+v", published)
	}

	out.Reset()
	if err := (&exportCmd{}).Run(ctx, rt); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out.String(), "key: promo") {
		t.Fatalf("unexpected export %q", out.String())
	}
}

func TestPublishRejectsInvalidLayouts(t *testing.T) {
	rt, _ := newTestRuntime(t)
	path := writeLayout(t, "- id: x\n  key: weather\n")
	if err := (&publishCmd{File: path}).Run(context.Background(), rt); err == nil {
		t.Fatalf("expected unknown widget to be rejected")
	}
}

func TestFeatureSetAndSeed(t *testing.T) {
	rt, out := newTestRuntime(t)
	ctx := context.Background()

	if err := (&featureSetCmd{Key: "Commerce", State: "on"}).Run(ctx, rt); err != nil {
		t.Fatalf("feature set: %v", err)
	}
	if err := (&featureSetCmd{Key: "weather", State: "on"}).Run(ctx, rt); err == nil {
		t.Fatalf("expected unknown feature error")
	}
	out.Reset()
	if err := (&featuresCmd{}).Run(ctx, rt); err != nil {
		t.Fatalf("features: %v", err)
	}
	if !hasRow(out.String(), "commerce", "true") {
		t.Fatalf("unexpected features output %q", out.String())
	}

	if err := (&seedCmd{Feature: []string{"events"}}).Run(ctx, rt); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if rt.app.Store.FetchPublished(ctx, "org-1") == nil {
		t.Fatalf("seed should publish the starter layout")
	}
}

func TestShowAndCatalog(t *testing.T) {
	rt, out := newTestRuntime(t)
	ctx := context.Background()
	if err := (&showCmd{}).Run(ctx, rt); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out.String(), `"source": "scaffold"`) {
		t.Fatalf("expected scaffold view, got %q", out.String())
	}
	if err := (&showCmd{Version: 42}).Run(ctx, rt); err == nil {
		t.Fatalf("expected missing version error")
	}

	out.Reset()
	if err := (&catalogCmd{}).Run(ctx, rt); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if !strings.Contains(out.String(), string(dashboard.WidgetMiniCart)) {
		t.Fatalf("catalog should list mini cart, got %q", out.String())
	}

	rt.cli.Org = ""
	if err := (&showCmd{}).Run(ctx, rt); err == nil {
		t.Fatalf("expected --org to be required")
	}
}

func TestManifestCommands(t *testing.T) {
	rt, out := newTestRuntime(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := (&manifestExportCmd{Name: "club", Output: path}).Run(ctx, rt); err != nil {
		t.Fatalf("export manifest: %v", err)
	}
	if err := (&manifestValidateCmd{Path: path}).Run(ctx, rt); err != nil {
		t.Fatalf("validate manifest: %v", err)
	}
	if !strings.Contains(out.String(), "is valid") {
		t.Fatalf("unexpected output %q", out.String())
	}
	bad := writeLayout(t, "version: \"1\"\nwidgets:\n  - key: weather\n")
	if err := (&manifestValidateCmd{Path: bad}).Run(ctx, rt); err == nil {
		t.Fatalf("expected unknown widget error")
	}
}

func hasRow(table string, cells ...string) bool {
	for _, line := range strings.Split(table, "\n") {
		if strings.Join(strings.Fields(line), " ") == strings.Join(cells, " ") {
			return true
		}
	}
	return false
}
