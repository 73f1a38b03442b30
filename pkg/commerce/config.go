package commerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/girlsclub/modular-dashboard/pkg/postgrest"
)

const tableCommerce = "organization_commerce"

// OrgConfig is an organization's storefront connection.
type OrgConfig struct {
	OrganizationID          string  `json:"organization_id"`
	ShopDomain              string  `json:"shop_domain"`
	StorefrontAccessToken   string  `json:"storefront_access_token"`
	DefaultCollectionHandle *string `json:"default_collection_handle"`
	Currency                *string `json:"currency"`
	Enabled                 bool    `json:"enabled"`
}

// Connected reports whether the config can back a storefront.
func (c *OrgConfig) Connected() bool {
	return c != nil && c.Enabled && strings.TrimSpace(c.ShopDomain) != "" && strings.TrimSpace(c.StorefrontAccessToken) != ""
}

// ConfigRepository reads and writes organization_commerce rows.
type ConfigRepository interface {
	Get(ctx context.Context, orgID string) (*OrgConfig, error)
	Upsert(ctx context.Context, cfg OrgConfig) error
}

// NewConfigRepository stores commerce configs through PostgREST.
func NewConfigRepository(client *postgrest.Client) ConfigRepository {
	return &configRepository{client: client}
}

type configRepository struct {
	client *postgrest.Client
}

func (r *configRepository) Get(ctx context.Context, orgID string) (*OrgConfig, error) {
	var cfg OrgConfig
	err := r.client.From(tableCommerce).Select("*").Eq("organization_id", orgID).Single(ctx, &cfg)
	if errors.Is(err, postgrest.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("commerce: load config: %w", err)
	}
	return &cfg, nil
}

func (r *configRepository) Upsert(ctx context.Context, cfg OrgConfig) error {
	if strings.TrimSpace(cfg.OrganizationID) == "" {
		return fmt.Errorf("commerce: organization id is required")
	}
	return r.client.From(tableCommerce).Upsert(ctx, cfg, "organization_id")
}

// SourceOptions configures Source.
type SourceOptions struct {
	Configs    ConfigRepository
	Checkouts  CheckoutStore
	HTTPClient *http.Client
	// Endpoint maps a shop domain to its GraphQL URL; nil uses Shopify's.
	Endpoint func(shopDomain string) string
}

// Source resolves organization storefronts from their stored config.
type Source struct {
	opts SourceOptions
}

// NewSource builds a dashboard.CommerceSource.
func NewSource(opts SourceOptions) *Source {
	return &Source{opts: opts}
}

// Storefront returns nil when the organization has no enabled storefront.
func (s *Source) Storefront(ctx context.Context, orgID string) (dashboard.Storefront, error) {
	client, err := s.Client(ctx, orgID)
	if err != nil || client == nil {
		return nil, err
	}
	return client, nil
}

// Client is Storefront with the full catalog surface.
func (s *Source) Client(ctx context.Context, orgID string) (*Shopify, error) {
	if s.opts.Configs == nil {
		return nil, nil
	}
	cfg, err := s.opts.Configs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !cfg.Connected() {
		return nil, nil
	}
	shopCfg := ShopifyConfig{
		ShopDomain:        cfg.ShopDomain,
		AccessToken:       cfg.StorefrontAccessToken,
		DefaultCollection: deref(cfg.DefaultCollectionHandle),
		Currency:          deref(cfg.Currency),
		HTTPClient:        s.opts.HTTPClient,
		Checkouts:         s.opts.Checkouts,
	}
	if s.opts.Endpoint != nil {
		shopCfg.Endpoint = s.opts.Endpoint(cfg.ShopDomain)
	}
	return NewShopify(shopCfg)
}

// MemoryCheckouts keeps checkout ids in memory.
type MemoryCheckouts struct {
	mu  sync.RWMutex
	ids map[string]string
}

// NewMemoryCheckouts builds an empty checkout store.
func NewMemoryCheckouts() *MemoryCheckouts {
	return &MemoryCheckouts{ids: map[string]string{}}
}

// Remember stores the checkout id for a member of a shop.
func (m *MemoryCheckouts) Remember(shopDomain, userID, checkoutID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[shopDomain+"|"+userID] = checkoutID
}

// CheckoutID returns the stored id or "".
func (m *MemoryCheckouts) CheckoutID(_ context.Context, shopDomain, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ids[shopDomain+"|"+userID], nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

var _ dashboard.CommerceSource = (*Source)(nil)
