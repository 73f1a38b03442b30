package main

import (
	"context"
	"fmt"
	"os"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
)

type manifestCmd struct {
	Validate manifestValidateCmd `cmd:"" help:"Check a manifest against the built-in catalog."`
	Export   manifestExportCmd   `cmd:"" help:"Write the built-in catalog as a manifest."`
}

type manifestValidateCmd struct {
	Path string `arg:"" type:"existingfile" help:"Manifest YAML file."`
}

func (cmd *manifestValidateCmd) Run(_ context.Context, rt *runtime) error {
	cat, err := dashboard.DefaultCatalog().LoadManifestFile(cmd.Path)
	if err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "✓ %s is valid (%d widgets)\n", cmd.Path, len(cat.Keys()))
	return nil
}

type manifestExportCmd struct {
	Name   string `default:"default" help:"Manifest name."`
	Output string `short:"O" type:"path" help:"Write to a file instead of stdout."`
}

func (cmd *manifestExportCmd) Run(_ context.Context, rt *runtime) error {
	doc := dashboard.ManifestFromCatalog(dashboard.DefaultCatalog(), cmd.Name)
	if cmd.Output == "" {
		return dashboard.EncodeManifest(rt.out, doc)
	}
	f, err := os.Create(cmd.Output)
	if err != nil {
		return fmt.Errorf("layoutctl: create %s: %w", cmd.Output, err)
	}
	defer f.Close()
	return dashboard.EncodeManifest(f, doc)
}
