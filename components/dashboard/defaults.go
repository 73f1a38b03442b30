package dashboard

// FeatureKey names a per-organization feature flag.
type FeatureKey string

const (
	FeatureEvents     FeatureKey = "events"
	FeatureSocial     FeatureKey = "social"
	FeatureChallenges FeatureKey = "challenges"
	FeatureCommerce   FeatureKey = "commerce"
)

var allFeatures = []FeatureKey{FeatureEvents, FeatureSocial, FeatureChallenges, FeatureCommerce}

// AllFeatures returns every known feature key in display order.
func AllFeatures() []FeatureKey {
	return append([]FeatureKey(nil), allFeatures...)
}

// genericFootprint is the catalog-wide placement for a freshly added widget.
var genericFootprint = Footprint{W: 4, H: 1}

// defaultFootprints overrides the generic footprint for specific keys when a
// widget is added from the picker.
var defaultFootprints = map[WidgetKey]Footprint{
	WidgetFeaturedEvent:  {W: 4, H: 2},
	WidgetUpcomingEvents: {W: 4, H: 2},
	WidgetSteps:          {W: 4, H: 1},
	WidgetPromo:          {W: 4, H: 1},
	WidgetQuickActions:   {W: 4, H: 1},
	WidgetPoints:         {W: 2, H: 1},
}

// DefaultFootprint returns the footprint the engine assigns to a new widget.
func DefaultFootprint(key WidgetKey) Footprint {
	if fp, ok := defaultFootprints[key]; ok {
		return fp
	}
	return genericFootprint
}

// SizePreset is a named footprint offered by the configuration sheet.
type SizePreset string

const (
	SizeHero SizePreset = "hero"
	SizeWide SizePreset = "wide"
	SizeTall SizePreset = "tall"
	SizeHalf SizePreset = "half"
)

var sizePresets = map[SizePreset]Footprint{
	SizeHero: {W: 4, H: 2},
	SizeWide: {W: 4, H: 1},
	SizeTall: {W: 2, H: 2},
	SizeHalf: {W: 2, H: 1},
}

// PresetFootprint resolves a size preset.
func PresetFootprint(preset SizePreset) (Footprint, bool) {
	fp, ok := sizePresets[preset]
	return fp, ok
}

// ScaffoldInstances returns the starter layout shown when an organization has
// neither a published layout nor a user override. Identities are stable so
// repeated loads render the same sequence.
func ScaffoldInstances() []WidgetInstance {
	return []WidgetInstance{
		{ID: "default-featured", Key: WidgetFeaturedEvent, Title: "Featured Event", Layout: &Footprint{W: 4, H: 2}},
		{ID: "default-actions", Key: WidgetQuickActions, Title: "Quick Actions", Layout: &Footprint{W: 4, H: 1}},
		{ID: "default-upcoming", Key: WidgetUpcomingEvents, Title: "Upcoming Events", Layout: &Footprint{W: 4, H: 2}},
		{ID: "default-steps", Key: WidgetSteps, Title: "Steps & Activity", Layout: &Footprint{W: 4, H: 1}},
		{ID: "default-points", Key: WidgetPoints, Title: "Your Points", Layout: &Footprint{W: 2, H: 1}},
	}
}

// DefaultCatalogEntries returns the built-in widget metadata in declaration order.
func DefaultCatalogEntries() []WidgetMeta {
	return []WidgetMeta{
		{
			Key:         WidgetFeaturedEvent,
			Name:        "Featured Event",
			Icon:        "calendar",
			Description: "Highlight one event at the top",
			FeatureFlag: FeatureEvents,
			DefaultProps: map[string]any{
				"daysAhead": 14,
			},
			NameLocalized: map[string]string{"es": "Evento destacado"},
			Schema: objectSchema(map[string]any{
				"daysAhead": map[string]any{"type": "integer", "minimum": 0},
			}),
		},
		{
			Key:         WidgetUpcomingEvents,
			Name:        "Upcoming Events",
			Icon:        "calendar",
			Description: "List a few upcoming events",
			FeatureFlag: FeatureEvents,
			DefaultProps: map[string]any{
				"limit":  3,
				"filter": string(FilterThisWeek),
			},
			NameLocalized: map[string]string{"es": "Próximos eventos"},
			Schema: objectSchema(map[string]any{
				"limit":  map[string]any{"type": "integer", "minimum": 1},
				"filter": map[string]any{"type": "string", "enum": []string{string(FilterToday), string(FilterThisWeek)}},
			}),
		},
		{
			Key:         WidgetSteps,
			Name:        "Steps & Activity",
			Icon:        "heart",
			Description: "Show your recent steps and progress",
			FeatureFlag: FeatureChallenges,
			DefaultProps: map[string]any{
				"timeframe": "week",
			},
			Schema: objectSchema(map[string]any{
				"timeframe": map[string]any{"type": "string", "enum": []string{"week", "month"}},
			}),
		},
		{
			Key:         WidgetPromo,
			Name:        "Promotion",
			Icon:        "megaphone",
			Description: "Announce a sale or message",
			DefaultProps: map[string]any{
				"title": "Special Offer",
				"text":  "Tap to learn more",
				"href":  "#",
			},
			NameLocalized: map[string]string{"es": "Promoción"},
			Schema:        bannerSchema(),
		},
		{
			Key:         WidgetQuickActions,
			Name:        "Quick Actions",
			Icon:        "zap",
			Description: "Scan QR / Create Event / Invite",
			DefaultProps: map[string]any{
				"items": []string{"scan-qr", "create-event", "invite"},
			},
			NameLocalized: map[string]string{"es": "Acciones rápidas"},
			Schema: objectSchema(map[string]any{
				"items": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string", "enum": quickActionIDs()},
				},
			}),
		},
		{
			Key:           WidgetPoints,
			Name:          "Loyalty Points",
			Icon:          "gift",
			Description:   "Show your available points",
			DefaultProps:  map[string]any{},
			NameLocalized: map[string]string{"es": "Puntos de lealtad"},
			Schema:        objectSchema(map[string]any{}),
		},
		{
			Key:         WidgetCommunityHighlights,
			Name:        "Community Highlights",
			Icon:        "users",
			Description: "Top posts from your community",
			FeatureFlag: FeatureSocial,
			DefaultProps: map[string]any{
				"limit": 3,
			},
			Schema: limitSchema(),
		},
		{
			Key:         WidgetMiniCalendar,
			Name:        "Mini Calendar",
			Icon:        "calendar",
			Description: "7-day glance with event dots",
			FeatureFlag: FeatureEvents,
			DefaultProps: map[string]any{
				"days": 7,
			},
			Schema: objectSchema(map[string]any{
				"days": map[string]any{"type": "integer", "minimum": 1, "maximum": 31},
			}),
		},
		{
			Key:         WidgetLeaderboard,
			Name:        "Leaderboard",
			Icon:        "star",
			Description: "Top steps/challenge leaderboard",
			FeatureFlag: FeatureChallenges,
			DefaultProps: map[string]any{
				"limit": 5,
			},
			Schema: limitSchema(),
		},
		{
			Key:         WidgetStoreCarousel,
			Name:        "Store Carousel",
			Icon:        "store",
			Description: "Carousel of promos or items",
			FeatureFlag: FeatureCommerce,
			DefaultProps: map[string]any{
				"images": []string{},
			},
			Schema: objectSchema(map[string]any{
				"images": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			}),
		},
		{
			Key:         WidgetProductGrid,
			Name:        "Product Grid",
			Icon:        "store",
			Description: "Grid of products from a collection",
			FeatureFlag: FeatureCommerce,
			DefaultProps: map[string]any{
				"collectionHandle": "",
				"first":            6,
				"search":           "",
			},
			Schema: objectSchema(map[string]any{
				"collectionHandle": map[string]any{"type": "string"},
				"search":           map[string]any{"type": "string"},
				"first":            map[string]any{"type": "integer", "minimum": 1},
			}),
		},
		{
			Key:         WidgetFeaturedProduct,
			Name:        "Featured Product",
			Icon:        "store",
			Description: "Highlight a single product by handle",
			FeatureFlag: FeatureCommerce,
			DefaultProps: map[string]any{
				"productHandle": "",
			},
			Schema: objectSchema(map[string]any{
				"productHandle": map[string]any{"type": "string"},
			}),
		},
		{
			Key:         WidgetOfferBanner,
			Name:        "Offer Banner",
			Icon:        "megaphone",
			Description: "Big promo banner with link",
			DefaultProps: map[string]any{
				"title": "Limited Offer",
				"text":  "Tap to learn more",
				"href":  "#",
				"image": "",
			},
			Schema: bannerSchema(),
		},
		{
			Key:          WidgetMiniCart,
			Name:         "Mini Cart",
			Icon:         "store",
			Description:  "Show cart item count and checkout button",
			FeatureFlag:  FeatureCommerce,
			DefaultProps: map[string]any{},
			Schema:       objectSchema(map[string]any{}),
		},
	}
}

func objectSchema(properties map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func bannerSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"title", "text", "href"},
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"text":  map[string]any{"type": "string"},
			"href":  map[string]any{"type": "string"},
			"image": map[string]any{"type": "string"},
		},
	}
}

func limitSchema() map[string]any {
	return objectSchema(map[string]any{
		"limit": map[string]any{"type": "integer", "minimum": 1},
	})
}
