package commerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/girlsclub/modular-dashboard/pkg/postgrest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfigRepo(t *testing.T, body string) (ConfigRepository, *[]*http.Request) {
	t.Helper()
	var seen []*http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	client, err := postgrest.New(postgrest.Config{URL: server.URL, APIKey: "anon"})
	require.NoError(t, err)
	return NewConfigRepository(client), &seen
}

func TestConfigRepository(t *testing.T) {
	repo, seen := newConfigRepo(t, `[{"organization_id":"org-1","shop_domain":"club","storefront_access_token":"token","default_collection_handle":null,"currency":"EUR","enabled":true}]`)
	cfg, err := repo.Get(context.Background(), "org-1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.True(t, cfg.Connected())
	assert.Nil(t, cfg.DefaultCollectionHandle)

	require.NoError(t, repo.Upsert(context.Background(), *cfg))
	assert.Equal(t, "organization_id", (*seen)[1].URL.Query().Get("on_conflict"))
	require.Error(t, repo.Upsert(context.Background(), OrgConfig{}))

	empty, _ := newConfigRepo(t, `[]`)
	cfg, err = empty.Get(context.Background(), "org-2")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

type staticConfigs map[string]*OrgConfig

func (s staticConfigs) Get(_ context.Context, orgID string) (*OrgConfig, error) {
	return s[orgID], nil
}

func (s staticConfigs) Upsert(context.Context, OrgConfig) error { return nil }

func TestSourceResolvesEnabledStorefronts(t *testing.T) {
	handle := "summer"
	source := NewSource(SourceOptions{
		Configs: staticConfigs{
			"org-1": {OrganizationID: "org-1", ShopDomain: "club", StorefrontAccessToken: "token", DefaultCollectionHandle: &handle, Enabled: true},
			"org-2": {OrganizationID: "org-2", ShopDomain: "club", StorefrontAccessToken: "token", Enabled: false},
			"org-3": {OrganizationID: "org-3", ShopDomain: "", StorefrontAccessToken: "token", Enabled: true},
		},
		Endpoint: func(domain string) string { return "http://localhost/" + domain },
	})
	ctx := context.Background()

	store, err := source.Storefront(ctx, "org-1")
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, "summer", store.DefaultCollection())

	for _, org := range []string{"org-2", "org-3", "org-unknown"} {
		store, err := source.Storefront(ctx, org)
		require.NoError(t, err)
		assert.Nil(t, store, org)
	}

	empty := NewSource(SourceOptions{})
	store, err = empty.Storefront(ctx, "org-1")
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestMockStorefrontBacksCommerceWidgets(t *testing.T) {
	mock := NewMockStorefront(MockData{
		DefaultCollection: "frontpage",
		Collections: map[string][]dashboard.Product{
			"frontpage": {{ID: "1", Handle: "tee", Title: "Club Tee"}, {ID: "2", Handle: "cap", Title: "Cap"}},
			"summer":    {{ID: "2", Handle: "cap", Title: "Cap"}},
		},
		Carts: map[string]dashboard.Cart{"u1": {LineCount: 2}},
	})
	ctx := context.Background()

	products, _ := mock.ProductsByCollection(ctx, "frontpage", 1)
	assert.Len(t, products, 1)
	products[0].Title = "mutated"
	again, _ := mock.ProductsByCollection(ctx, "frontpage", 1)
	assert.Equal(t, "Club Tee", again[0].Title, "fixtures are copied")

	found, _ := mock.SearchProducts(ctx, "CAP", 0)
	assert.Len(t, found, 1)
	collections, _ := mock.Collections(ctx, 0)
	assert.Equal(t, "frontpage", collections[0].Handle)

	source := MockSource{Store: mock, Organizations: map[string]bool{"org-1": true}}
	store, err := source.Storefront(ctx, "org-1")
	require.NoError(t, err)
	cart, _ := store.Cart(ctx, "u1")
	assert.Equal(t, 2, cart.LineCount)
	missing, _ := source.Storefront(ctx, "org-2")
	assert.Nil(t, missing)
}
