// Package goadmin seeds dashboard navigation into go-admin style shells.
package goadmin

import (
	"context"
	"errors"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	dashboardpkg "github.com/girlsclub/modular-dashboard/pkg/dashboard"
)

// MenuBuilder ensures dashboard entries exist within the admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures dashboard link metadata.
type MenuItem struct {
	Label    string
	Route    string
	Icon     string
	Position int
	// Feature hides the item while the organization has the flag off.
	Feature dashboard.FeatureKey
}

// Config wires the dashboard service into an admin shell.
type Config struct {
	EnableDashboard bool
	MenuCode        string
	MenuBuilder     MenuBuilder
	Service         *dashboardpkg.Service
	DefaultMenuItem MenuItem
	// Items are extra feature-aware entries; defaults to the commerce
	// settings page.
	Items []MenuItem
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg Config
}

// New creates an Admin helper that can seed dashboard menus.
func New(cfg Config) (*Admin, error) {
	if cfg.EnableDashboard && cfg.Service == nil {
		return nil, errors.New("goadmin: dashboard service is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "admin.main"
	}
	if cfg.DefaultMenuItem.Label == "" {
		cfg.DefaultMenuItem.Label = "Dashboard"
	}
	if cfg.DefaultMenuItem.Route == "" {
		cfg.DefaultMenuItem.Route = "admin.dashboard"
	}
	if cfg.DefaultMenuItem.Icon == "" {
		cfg.DefaultMenuItem.Icon = "home"
	}
	if cfg.Items == nil {
		cfg.Items = []MenuItem{{
			Label:    "Commerce",
			Route:    "admin.commerce",
			Icon:     "shopping-bag",
			Position: 10,
			Feature:  dashboard.FeatureCommerce,
		}}
	}
	return &Admin{cfg: cfg}, nil
}

// Dashboard exposes the configured dashboard service when enabled.
func (a *Admin) Dashboard() *dashboardpkg.Service {
	if !a.cfg.EnableDashboard {
		return nil
	}
	return a.cfg.Service
}

// Bootstrap seeds the dashboard entry, plus every extra item whose feature
// is enabled for the admin's organization.
func (a *Admin) Bootstrap(ctx context.Context, session dashboardpkg.Session) error {
	if !a.cfg.EnableDashboard || a.cfg.MenuBuilder == nil {
		return nil
	}
	if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, a.cfg.DefaultMenuItem); err != nil {
		return err
	}
	if len(a.cfg.Items) == 0 {
		return nil
	}
	flags, err := a.cfg.Service.Features(ctx, session)
	if err != nil {
		return err
	}
	for _, item := range a.cfg.Items {
		if item.Feature != "" && !flags[item.Feature] {
			continue
		}
		if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, item); err != nil {
			return err
		}
	}
	return nil
}
