package dashboard

import (
	"context"
	"slices"
)

// Sources bundles the external collaborators renderers read from. Any field
// may be nil; widgets that need it then show their empty state.
type Sources struct {
	Events     EventSource
	Posts      PostSource
	Challenges ChallengeSource
	Points     PointsSource
	Commerce   CommerceSource
	Charts     *ChartRenderer
}

// NewProviders builds one provider per catalog key.
func NewProviders(src Sources) map[WidgetKey]Provider {
	if src.Charts == nil {
		src.Charts = NewChartRenderer()
	}
	return map[WidgetKey]Provider{
		WidgetFeaturedEvent:       featuredEventProvider(src.Events),
		WidgetUpcomingEvents:      upcomingEventsProvider(src.Events),
		WidgetMiniCalendar:        miniCalendarProvider(src.Events),
		WidgetSteps:               stepsProvider(src.Challenges, src.Charts),
		WidgetLeaderboard:         leaderboardProvider(src.Challenges, src.Charts),
		WidgetCommunityHighlights: highlightsProvider(src.Posts),
		WidgetPoints:              pointsProvider(src.Points),
		WidgetPromo:               ProviderFunc(bannerProvider),
		WidgetOfferBanner:         ProviderFunc(bannerProvider),
		WidgetQuickActions:        ProviderFunc(quickActionsProvider),
		WidgetStoreCarousel:       ProviderFunc(storeCarouselProvider),
		WidgetProductGrid:         productGridProvider(src.Commerce),
		WidgetFeaturedProduct:     featuredProductProvider(src.Commerce),
		WidgetMiniCart:            miniCartProvider(src.Commerce),
	}
}

func bannerProvider(_ context.Context, meta WidgetContext) (WidgetData, error) {
	var fields BannerFields
	switch cfg := meta.Config.(type) {
	case *PromoConfig:
		fields = cfg.BannerFields
	case *OfferBannerConfig:
		fields = cfg.BannerFields
	}
	if fields.Href == "" {
		fields.Href = "#"
	}
	return WidgetData{
		"title": fields.Title,
		"text":  fields.Text,
		"href":  fields.Href,
		"image": fields.Image,
	}, nil
}

type quickAction struct {
	id, label, route, icon string
	adminOnly              bool
}

var quickActionTable = []quickAction{
	{id: "scan-qr", label: "Scan QR", route: "/qr-scanner", icon: "qr-code"},
	{id: "events", label: "Events", route: "/events", icon: "calendar"},
	{id: "create-event", label: "Create", route: "/events", icon: "plus", adminOnly: true},
	{id: "invite", label: "Invite", route: "/admin/organization", icon: "users"},
}

func quickActionsProvider(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	items := []string{"scan-qr", "events"}
	if cfg, ok := meta.Config.(*QuickActionsConfig); ok && cfg.Items != nil {
		items = cfg.Items
	}
	actions := make([]map[string]any, 0, len(items))
	for _, action := range quickActionTable {
		if !slices.Contains(items, action.id) {
			continue
		}
		if action.adminOnly && !meta.Session.IsAdmin {
			continue
		}
		label := translateOrFallback(ctx, meta.Translator, "dashboard.quick_actions."+action.id, meta.Session.Locale, action.label, nil)
		actions = append(actions, map[string]any{
			"id":    action.id,
			"label": label,
			"route": action.route,
			"icon":  action.icon,
		})
	}
	return WidgetData{"actions": actions}, nil
}

var fallbackSlides = []string{
	"https://images.unsplash.com/photo-1512436991641-6745cdb1723f?w=1200&q=60",
	"https://images.unsplash.com/photo-1503342217505-b0a15cf70489?w=1200&q=60",
}

func storeCarouselProvider(_ context.Context, meta WidgetContext) (WidgetData, error) {
	images := fallbackSlides
	if cfg, ok := meta.Config.(*StoreCarouselConfig); ok && len(cfg.Images) > 0 {
		images = cfg.Images
	}
	return WidgetData{"images": append([]string(nil), images...)}, nil
}
