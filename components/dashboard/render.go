package dashboard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RenderState describes how a widget resolved.
type RenderState string

const (
	RenderContent RenderState = "content"
	RenderEmpty   RenderState = "empty"
	RenderGated   RenderState = "gated"
)

var emptyMessages = map[WidgetKey]string{
	WidgetFeaturedEvent:       msgNoFeaturedEvent,
	WidgetUpcomingEvents:      msgNoUpcomingEvents,
	WidgetMiniCalendar:        msgNoUpcomingEvents,
	WidgetSteps:               msgNoSteps,
	WidgetLeaderboard:         msgNoLeaderboard,
	WidgetCommunityHighlights: msgNoHighlights,
	WidgetProductGrid:         msgConnectShopify,
	WidgetFeaturedProduct:     msgConnectShopify,
	WidgetMiniCart:            msgConnectCart,
}

const defaultEmptyMessage = "Nothing to show yet."

// EmptyMessage returns the empty-state text shown for key.
func EmptyMessage(key WidgetKey) string {
	if msg, ok := emptyMessages[key]; ok {
		return msg
	}
	return defaultEmptyMessage
}

// GatingNotice is shown to admins in edit mode in place of a gated widget.
func GatingNotice(meta WidgetMeta) string {
	return fmt.Sprintf("Enable %s feature to use “%s”.", meta.FeatureFlag, meta.Name)
}

// RenderRequest is one pass over an ordered instance sequence.
type RenderRequest struct {
	Session   Session
	Instances []WidgetInstance
	Editing   bool
}

// RenderedWidget is the view model of one instance.
type RenderedWidget struct {
	ID        string         `json:"id"`
	Key       WidgetKey      `json:"key"`
	Title     string         `json:"title"`
	Icon      string         `json:"icon,omitempty"`
	Footprint Footprint      `json:"layout"`
	Props     map[string]any `json:"props,omitempty"`
	State     RenderState    `json:"state"`
	Notice    string         `json:"notice,omitempty"`
	Data      WidgetData     `json:"data,omitempty"`
}

// RendererOptions configures a WidgetRenderer.
type RendererOptions struct {
	Catalog    *Catalog
	Features   FeatureGate
	Providers  map[WidgetKey]Provider
	Translator TranslationService
	Logger     *zap.Logger
	Telemetry  Telemetry
	Now        func() time.Time
}

// WidgetRenderer resolves instances into view models. It never writes to
// the layout store and never fails: missing data degrades to empty states.
type WidgetRenderer struct {
	catalog    *Catalog
	features   FeatureGate
	providers  map[WidgetKey]Provider
	translator TranslationService
	log        *zap.Logger
	telemetry  Telemetry
	now        func() time.Time
}

// NewWidgetRenderer builds a renderer with safe defaults.
func NewWidgetRenderer(opts RendererOptions) *WidgetRenderer {
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.Features == nil {
		opts.Features = StaticFeatureGate{}
	}
	if opts.Providers == nil {
		opts.Providers = NewProviders(Sources{})
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &WidgetRenderer{
		catalog:    opts.Catalog,
		features:   opts.Features,
		providers:  opts.Providers,
		translator: opts.Translator,
		log:        opts.Logger.Named("renderer"),
		telemetry:  normalizeTelemetry(opts.Telemetry),
		now:        opts.Now,
	}
}

// Render walks the instances in order. Gated widgets are hidden, except for
// admins in edit mode who get a notice in their place.
func (r *WidgetRenderer) Render(ctx context.Context, req RenderRequest) []RenderedWidget {
	now := r.now()
	flags := map[FeatureKey]bool{}
	enabled := func(flag FeatureKey) bool {
		v, ok := flags[flag]
		if !ok {
			v = r.features.IsEnabled(ctx, req.Session.OrganizationID, flag)
			flags[flag] = v
		}
		return v
	}

	out := make([]RenderedWidget, 0, len(req.Instances))
	for _, inst := range req.Instances {
		meta, err := r.catalog.Lookup(inst.Key)
		if err != nil {
			r.log.Warn("skipping unknown widget", zap.String("key", string(inst.Key)), zap.String("id", inst.ID))
			continue
		}
		view := RenderedWidget{
			ID:        inst.ID,
			Key:       inst.Key,
			Title:     r.title(ctx, inst, meta, req.Session.Locale),
			Icon:      meta.Icon,
			Footprint: clampFootprint(inst.Footprint()),
			Props:     cloneProps(inst.Props),
		}
		if meta.Gated() && !enabled(meta.FeatureFlag) {
			if !(req.Session.IsAdmin && req.Editing) {
				continue
			}
			view.State = RenderGated
			view.Notice = GatingNotice(meta)
			out = append(out, view)
			continue
		}
		view.State, view.Notice, view.Data = r.fetch(ctx, inst, meta, req, now)
		out = append(out, view)
	}
	return out
}

func (r *WidgetRenderer) fetch(ctx context.Context, inst WidgetInstance, meta WidgetMeta, req RenderRequest, now time.Time) (RenderState, string, WidgetData) {
	provider, ok := r.providers[inst.Key]
	if !ok {
		return RenderContent, "", WidgetData{}
	}
	cfg, err := r.catalog.InstanceConfig(inst)
	if err != nil {
		r.log.Warn("widget config unreadable, using defaults", zap.String("id", inst.ID), zap.Error(err))
		cfg = configVariants[inst.Key]()
	}
	data, err := provider.Fetch(ctx, WidgetContext{
		Instance:   inst,
		Meta:       meta,
		Config:     cfg,
		Session:    req.Session,
		Editing:    req.Editing,
		Now:        now,
		Translator: r.translator,
	})
	if err == nil {
		return RenderContent, "", data
	}
	if empty, ok := asEmptyState(err); ok {
		return RenderEmpty, empty.Message, nil
	}
	r.log.Warn("widget data fetch failed",
		zap.String("key", string(inst.Key)),
		zap.String("id", inst.ID),
		zap.Error(err),
	)
	r.telemetry.Record(ctx, "dashboard.widget.error", map[string]any{
		"key":   string(inst.Key),
		"id":    inst.ID,
		"error": err.Error(),
	})
	return RenderEmpty, EmptyMessage(inst.Key), nil
}

func (r *WidgetRenderer) title(ctx context.Context, inst WidgetInstance, meta WidgetMeta, locale string) string {
	if inst.Title != "" {
		return inst.Title
	}
	return widgetName(ctx, r.translator, meta, locale)
}

// LocalizeWidgets resolves catalog copy for locale with the renderer's
// translator.
func (r *WidgetRenderer) LocalizeWidgets(ctx context.Context, metas []WidgetMeta, locale string) []WidgetMeta {
	return LocalizeWidgets(ctx, r.translator, metas, locale)
}
