package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/girlsclub/modular-dashboard/pkg/app"
	"github.com/girlsclub/modular-dashboard/pkg/config"
	"github.com/girlsclub/modular-dashboard/pkg/observability"
)

type cli struct {
	Config  string   `short:"c" type:"path" help:"YAML config file."`
	EnvFile []string `name:"env-file" default:".env" help:"Env files loaded before the environment."`
	Org     string   `short:"o" env:"DASHBOARD_ORG" help:"Organization id."`
	User    string   `short:"u" help:"Member id, for override aware commands."`
	Actor   string   `default:"layoutctl" help:"Actor recorded on writes."`

	Catalog  catalogCmd  `cmd:"" help:"List the widget catalog."`
	Show     showCmd     `cmd:"" help:"Print the effective layout, or a stored version."`
	Versions versionsCmd `cmd:"" help:"List layout versions, newest first."`
	Publish  publishCmd  `cmd:"" help:"Publish (or save as draft) a layout from a YAML/JSON file."`
	Rollback rollbackCmd `cmd:"" help:"Republish a stored version."`
	Export   exportCmd   `cmd:"" help:"Write the effective layout as YAML."`
	Features featuresCmd `cmd:"" help:"List feature flags."`
	Feature  featureCmd  `cmd:"" help:"Change feature flags."`
	Seed     seedCmd     `cmd:"" help:"Publish the starter layout and enable features for an organization."`
	Manifest manifestCmd `cmd:"" help:"Catalog manifest tools."`
}

// runtime is shared by every command; the App is built on first use.
type runtime struct {
	cli *cli
	out io.Writer
	app *app.App
}

func (rt *runtime) App(ctx context.Context) (*app.App, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	cfg, err := config.Load(config.Options{File: rt.cli.Config, EnvFiles: rt.cli.EnvFile})
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Log.Mode, "warn")
	if err != nil {
		return nil, err
	}
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.app = a
	return a, nil
}

// Session acts as an organization admin unless a member is given.
func (rt *runtime) Session() (dashboard.Session, error) {
	if rt.cli.Org == "" {
		return dashboard.Session{}, fmt.Errorf("layoutctl: --org is required")
	}
	return dashboard.Session{
		OrganizationID: rt.cli.Org,
		UserID:         rt.cli.User,
		IsAdmin:        rt.cli.User == "",
	}, nil
}

func (rt *runtime) Close() {
	if rt.app != nil {
		_ = rt.app.Close()
	}
}

func main() {
	root := &cli{}
	rt := &runtime{cli: root, out: os.Stdout}
	ctx := kong.Parse(root,
		kong.Name("layoutctl"),
		kong.Description("Manage organization dashboard layouts, versions and feature flags."),
		kong.UsageOnError(),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
		kong.Bind(rt),
	)
	err := ctx.Run()
	rt.Close()
	ctx.FatalIfErrorf(err)
}
