// Package dashboard re-exports the public surface of components/dashboard for
// host applications.
package dashboard

import (
	core "github.com/girlsclub/modular-dashboard/components/dashboard"
)

// Service exposes the underlying components/dashboard.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

type (
	Session        = core.Session
	LayoutView     = core.LayoutView
	WidgetInstance = core.WidgetInstance
	WidgetKey      = core.WidgetKey
	FeatureKey     = core.FeatureKey
	LayoutStore    = core.LayoutStore
	StoreOptions   = core.StoreOptions
	FeatureFlags   = core.FeatureFlags
	FeatureOptions = core.FeatureOptions
	Sources        = core.Sources
)

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// NewLayoutStore proxies to the internal constructor.
func NewLayoutStore(opts StoreOptions) *LayoutStore {
	return core.NewLayoutStore(opts)
}

// NewFeatureFlags proxies to the internal constructor.
func NewFeatureFlags(opts FeatureOptions) *FeatureFlags {
	return core.NewFeatureFlags(opts)
}
