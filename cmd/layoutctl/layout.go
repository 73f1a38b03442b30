package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/girlsclub/modular-dashboard/components/dashboard/commands"
	"github.com/girlsclub/modular-dashboard/components/dashboard/queries"
	"github.com/girlsclub/modular-dashboard/pkg/app"
)

type catalogCmd struct {
	JSON bool `help:"Print JSON instead of a table."`
}

func (cmd *catalogCmd) Run(ctx context.Context, rt *runtime) error {
	a, err := rt.App(ctx)
	if err != nil {
		return err
	}
	list := a.Catalog.List()
	if cmd.JSON {
		return writeJSON(rt, list)
	}
	tw := tabwriter.NewWriter(rt.out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tFEATURE\tSIZE")
	for _, meta := range list {
		feature := string(meta.FeatureFlag)
		if feature == "" {
			feature = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d\n", meta.Key, meta.Name, feature, meta.DefaultFootprint.W, meta.DefaultFootprint.H)
	}
	return tw.Flush()
}

type showCmd struct {
	Version int64 `help:"Show a stored version instead of the effective layout."`
}

func (cmd *showCmd) Run(ctx context.Context, rt *runtime) error {
	a, session, err := appSession(ctx, rt)
	if err != nil {
		return err
	}
	if cmd.Version > 0 {
		layout, err := queries.NewVersionQuery(a.Service).Query(ctx, queries.VersionInput{Session: session, VersionID: cmd.Version})
		if err != nil {
			return err
		}
		return writeJSON(rt, layout)
	}
	view, err := queries.NewLayoutQuery(a.Service).Query(ctx, queries.LayoutInput{Session: session})
	if err != nil {
		return err
	}
	return writeJSON(rt, view)
}

type versionsCmd struct {
	Limit int `default:"5" help:"Maximum versions to list."`
}

func (cmd *versionsCmd) Run(ctx context.Context, rt *runtime) error {
	a, session, err := appSession(ctx, rt)
	if err != nil {
		return err
	}
	list, err := queries.NewVersionsQuery(a.Service).Query(ctx, queries.VersionsInput{Session: session, Limit: cmd.Limit})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(rt.out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCREATED\tBY")
	for _, v := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.ID, v.Status, v.CreatedAt.Format("2006-01-02 15:04:05"), v.CreatedBy)
	}
	return tw.Flush()
}

type publishCmd struct {
	File  string `required:"" type:"existingfile" help:"Layout file: a list of instances or {instances: [...]}."`
	Draft bool   `help:"Save as draft instead of publishing."`
}

func (cmd *publishCmd) Run(ctx context.Context, rt *runtime) error {
	a, session, err := appSession(ctx, rt)
	if err != nil {
		return err
	}
	instances, err := readInstances(cmd.File)
	if err != nil {
		return err
	}
	publish := commands.NewPublishLayoutCommand(a.Service, a.Telemetry)
	if err := publish.Execute(ctx, commands.PublishLayoutInput{
		Session:   session,
		Instances: instances,
		ActorID:   rt.cli.Actor,
		Draft:     cmd.Draft,
	}); err != nil {
		return err
	}
	verb := "published"
	if cmd.Draft {
		verb = "saved draft of"
	}
	fmt.Fprintf(rt.out, "✓ %s %d widgets for %s\n", verb, len(instances), session.OrganizationID)
	return nil
}

type rollbackCmd struct {
	Version int64 `arg:"" help:"Version id to republish."`
}

func (cmd *rollbackCmd) Run(ctx context.Context, rt *runtime) error {
	a, session, err := appSession(ctx, rt)
	if err != nil {
		return err
	}
	rollback := commands.NewRollbackLayoutCommand(a.Service, a.Telemetry)
	if err := rollback.Execute(ctx, commands.RollbackLayoutInput{Session: session, VersionID: cmd.Version, ActorID: rt.cli.Actor}); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "✓ rolled %s back to version %d\n", session.OrganizationID, cmd.Version)
	return nil
}

type exportCmd struct {
	Output string `short:"O" type:"path" help:"Write to a file instead of stdout."`
}

func (cmd *exportCmd) Run(ctx context.Context, rt *runtime) error {
	a, session, err := appSession(ctx, rt)
	if err != nil {
		return err
	}
	view, err := a.Service.Layout(ctx, session, false)
	if err != nil {
		return err
	}
	doc := layoutFile{Instances: view.Instances}
	out := rt.out
	if cmd.Output != "" {
		f, err := os.Create(cmd.Output)
		if err != nil {
			return fmt.Errorf("layoutctl: create %s: %w", cmd.Output, err)
		}
		defer f.Close()
		out = f
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

type featuresCmd struct{}

func (cmd *featuresCmd) Run(ctx context.Context, rt *runtime) error {
	a, session, err := appSession(ctx, rt)
	if err != nil {
		return err
	}
	flags, err := a.Service.Features(ctx, session)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(rt.out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tENABLED")
	for _, key := range dashboard.AllFeatures() {
		fmt.Fprintf(tw, "%s\t%t\n", key, flags[key])
	}
	return tw.Flush()
}

type featureCmd struct {
	Set featureSetCmd `cmd:"" help:"Enable or disable a feature."`
}

type featureSetCmd struct {
	Key   string `arg:"" help:"Feature key (events, social, challenges, commerce)."`
	State string `arg:"" enum:"on,off,true,false" help:"on or off."`
}

func (cmd *featureSetCmd) Run(ctx context.Context, rt *runtime) error {
	a, session, err := appSession(ctx, rt)
	if err != nil {
		return err
	}
	enabled := cmd.State == "on" || cmd.State == "true"
	toggle := commands.NewSetFeatureCommand(a.Service, a.Telemetry)
	if err := toggle.Execute(ctx, commands.SetFeatureInput{Session: session, Feature: cmd.Key, Enabled: enabled, ActorID: rt.cli.Actor}); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "✓ %s %s for %s\n", strings.ToLower(strings.TrimSpace(cmd.Key)), cmd.State, session.OrganizationID)
	return nil
}

type seedCmd struct {
	Feature []string `help:"Features to enable (repeatable)."`
	Force   bool     `help:"Republish the starter layout even when one exists."`
}

func (cmd *seedCmd) Run(ctx context.Context, rt *runtime) error {
	a, session, err := appSession(ctx, rt)
	if err != nil {
		return err
	}
	seed := commands.NewSeedOrganizationCommand(a.Store, a.Features, a.Telemetry)
	if err := seed.Execute(ctx, commands.SeedOrganizationInput{
		OrganizationID: session.OrganizationID,
		ActorID:        rt.cli.Actor,
		Features:       cmd.Feature,
		Force:          cmd.Force,
	}); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "✓ seeded %s\n", session.OrganizationID)
	return nil
}

// layoutFile is the on-disk layout format used by publish and export.
type layoutFile struct {
	Instances []dashboard.WidgetInstance `yaml:"instances" json:"instances"`
}

func readInstances(path string) ([]dashboard.WidgetInstance, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layoutctl: read %s: %w", path, err)
	}
	var doc layoutFile
	if err := yaml.Unmarshal(raw, &doc); err == nil && len(doc.Instances) > 0 {
		return doc.Instances, nil
	}
	var list []dashboard.WidgetInstance
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("layoutctl: parse %s: %w", path, err)
	}
	return list, nil
}

func appSession(ctx context.Context, rt *runtime) (*app.App, dashboard.Session, error) {
	session, err := rt.Session()
	if err != nil {
		return nil, dashboard.Session{}, err
	}
	a, err := rt.App(ctx)
	if err != nil {
		return nil, dashboard.Session{}, err
	}
	return a, session, nil
}

func writeJSON(rt *runtime, v any) error {
	enc := json.NewEncoder(rt.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
