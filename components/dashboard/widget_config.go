package dashboard

import (
	"encoding/json"
	"fmt"
)

// EventFilter bounds the upcoming-events window.
type EventFilter string

const (
	FilterToday    EventFilter = "today"
	FilterThisWeek EventFilter = "this_week"
)

// WidgetConfig is the typed configuration record of one widget key.
type WidgetConfig interface {
	WidgetKey() WidgetKey
}

type FeaturedEventConfig struct {
	DaysAhead int `json:"daysAhead"`
}

type UpcomingEventsConfig struct {
	Limit  int         `json:"limit,omitempty"`
	Filter EventFilter `json:"filter"`
}

type StepsConfig struct {
	Timeframe string `json:"timeframe"`
}

// BannerFields is shared by the promo and offer-banner widgets.
type BannerFields struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Href  string `json:"href"`
	Image string `json:"image,omitempty"`
}

type PromoConfig struct {
	BannerFields
}

type OfferBannerConfig struct {
	BannerFields
}

type QuickActionsConfig struct {
	Items []string `json:"items"`
}

type PointsConfig struct{}

type CommunityHighlightsConfig struct {
	Limit int `json:"limit"`
}

type MiniCalendarConfig struct {
	Days int `json:"days"`
}

type LeaderboardConfig struct {
	Limit int `json:"limit"`
}

type StoreCarouselConfig struct {
	Images []string `json:"images"`
}

type ProductGridConfig struct {
	CollectionHandle string `json:"collectionHandle"`
	Search           string `json:"search,omitempty"`
	First            int    `json:"first"`
}

type FeaturedProductConfig struct {
	ProductHandle string `json:"productHandle"`
}

type MiniCartConfig struct{}

func (FeaturedEventConfig) WidgetKey() WidgetKey       { return WidgetFeaturedEvent }
func (UpcomingEventsConfig) WidgetKey() WidgetKey      { return WidgetUpcomingEvents }
func (StepsConfig) WidgetKey() WidgetKey               { return WidgetSteps }
func (PromoConfig) WidgetKey() WidgetKey               { return WidgetPromo }
func (OfferBannerConfig) WidgetKey() WidgetKey         { return WidgetOfferBanner }
func (QuickActionsConfig) WidgetKey() WidgetKey        { return WidgetQuickActions }
func (PointsConfig) WidgetKey() WidgetKey              { return WidgetPoints }
func (CommunityHighlightsConfig) WidgetKey() WidgetKey { return WidgetCommunityHighlights }
func (MiniCalendarConfig) WidgetKey() WidgetKey        { return WidgetMiniCalendar }
func (LeaderboardConfig) WidgetKey() WidgetKey         { return WidgetLeaderboard }
func (StoreCarouselConfig) WidgetKey() WidgetKey       { return WidgetStoreCarousel }
func (ProductGridConfig) WidgetKey() WidgetKey         { return WidgetProductGrid }
func (FeaturedProductConfig) WidgetKey() WidgetKey     { return WidgetFeaturedProduct }
func (MiniCartConfig) WidgetKey() WidgetKey            { return WidgetMiniCart }

// configVariants maps each key to a constructor for its typed record.
var configVariants = map[WidgetKey]func() WidgetConfig{
	WidgetFeaturedEvent:       func() WidgetConfig { return &FeaturedEventConfig{} },
	WidgetUpcomingEvents:      func() WidgetConfig { return &UpcomingEventsConfig{} },
	WidgetSteps:               func() WidgetConfig { return &StepsConfig{} },
	WidgetPromo:               func() WidgetConfig { return &PromoConfig{} },
	WidgetOfferBanner:         func() WidgetConfig { return &OfferBannerConfig{} },
	WidgetQuickActions:        func() WidgetConfig { return &QuickActionsConfig{} },
	WidgetPoints:              func() WidgetConfig { return &PointsConfig{} },
	WidgetCommunityHighlights: func() WidgetConfig { return &CommunityHighlightsConfig{} },
	WidgetMiniCalendar:        func() WidgetConfig { return &MiniCalendarConfig{} },
	WidgetLeaderboard:         func() WidgetConfig { return &LeaderboardConfig{} },
	WidgetStoreCarousel:       func() WidgetConfig { return &StoreCarouselConfig{} },
	WidgetProductGrid:         func() WidgetConfig { return &ProductGridConfig{} },
	WidgetFeaturedProduct:     func() WidgetConfig { return &FeaturedProductConfig{} },
	WidgetMiniCart:            func() WidgetConfig { return &MiniCartConfig{} },
}

var quickActions = []string{"scan-qr", "events", "create-event", "invite"}

func quickActionIDs() []string {
	return append([]string(nil), quickActions...)
}

// DecodeConfig converts a property bag into the typed record for key.
// Unknown fields in props are ignored.
func DecodeConfig(key WidgetKey, props map[string]any) (WidgetConfig, error) {
	factory, ok := configVariants[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, key)
	}
	cfg := factory()
	if len(props) == 0 {
		return cfg, nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("dashboard: encode props for %s: %w", key, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return cfg, nil
}

// InstanceConfig decodes an instance's props layered over the catalog
// defaults for its key.
func (c *Catalog) InstanceConfig(inst WidgetInstance) (WidgetConfig, error) {
	meta, err := c.Lookup(inst.Key)
	if err != nil {
		return nil, err
	}
	return DecodeConfig(inst.Key, mergeProps(meta.DefaultProps, inst.Props))
}

// EncodeConfig converts a typed record back into a property bag.
func EncodeConfig(cfg WidgetConfig) (map[string]any, error) {
	if cfg == nil {
		return nil, fmt.Errorf("dashboard: config is nil")
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("dashboard: encode config for %s: %w", cfg.WidgetKey(), err)
	}
	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("dashboard: decode config for %s: %w", cfg.WidgetKey(), err)
	}
	return props, nil
}

// ApplyConfig merges a typed record into an existing property bag. Fields the
// record does not know about are preserved.
func ApplyConfig(props map[string]any, cfg WidgetConfig) (map[string]any, error) {
	encoded, err := EncodeConfig(cfg)
	if err != nil {
		return nil, err
	}
	return mergeProps(props, encoded), nil
}
