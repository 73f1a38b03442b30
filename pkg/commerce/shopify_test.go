package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsPayload = `{"data":{"collectionByHandle":{"products":{"edges":[
{"node":{"id":"gid://1","title":"Club Tee","handle":"club-tee","featuredImage":{"url":"https://cdn/tee.png"},"variants":{"edges":[{"node":{"price":{"amount":"25.0","currencyCode":"EUR"}}}]}}},
{"node":{"id":"gid://2","title":"Bottle","handle":"bottle","featuredImage":null,"variants":{"edges":[]}}}
]}}}}`

func newShopifyServer(t *testing.T, handler func(req graphQLRequest) string) (*httptest.Server, *[]graphQLRequest) {
	t.Helper()
	var seen []graphQLRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Shopify-Storefront-Access-Token") != "token" {
			t.Fatalf("missing storefront token")
		}
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		seen = append(seen, req)
		_, _ = w.Write([]byte(handler(req)))
	}))
	t.Cleanup(server.Close)
	return server, &seen
}

func TestShopifyProductsByCollection(t *testing.T) {
	server, seen := newShopifyServer(t, func(graphQLRequest) string { return productsPayload })
	client, err := NewShopify(ShopifyConfig{ShopDomain: "club.myshopify.com", AccessToken: "token", Currency: "USD", Endpoint: server.URL})
	require.NoError(t, err)

	products, err := client.ProductsByCollection(context.Background(), "frontpage", 6)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "club-tee", products[0].Handle)
	assert.Equal(t, "25.0", products[0].Price)
	assert.Equal(t, "EUR", products[0].Currency)
	assert.Equal(t, "https://cdn/tee.png", products[0].ImageURL)
	assert.Equal(t, "USD", products[1].Currency, "falls back to the configured currency")

	assert.Equal(t, "frontpage", (*seen)[0].Variables["handle"])
	assert.EqualValues(t, 6, (*seen)[0].Variables["first"])
	assert.Contains(t, (*seen)[0].Query, "collectionByHandle")
}

func TestShopifyMissingCollectionAndProduct(t *testing.T) {
	server, _ := newShopifyServer(t, func(req graphQLRequest) string {
		if strings.Contains(req.Query, "productByHandle") {
			return `{"data":{"productByHandle":null}}`
		}
		return `{"data":{"collectionByHandle":null}}`
	})
	client, err := NewShopify(ShopifyConfig{ShopDomain: "club", AccessToken: "token", Endpoint: server.URL})
	require.NoError(t, err)

	products, err := client.ProductsByCollection(context.Background(), "ghost", 3)
	require.NoError(t, err)
	assert.Empty(t, products)

	product, err := client.ProductByHandle(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, product)
}

func TestShopifySearchAndCollections(t *testing.T) {
	server, seen := newShopifyServer(t, func(req graphQLRequest) string {
		if strings.Contains(req.Query, "collections(") {
			return `{"data":{"collections":{"edges":[{"node":{"handle":"summer","title":"Summer"}}]}}}`
		}
		return `{"data":{"products":{"edges":[{"node":{"id":"gid://3","title":"Cap","handle":"cap","variants":{"edges":[]}}}]}}}`
	})
	client, err := NewShopify(ShopifyConfig{ShopDomain: "club", AccessToken: "token", Endpoint: server.URL})
	require.NoError(t, err)

	found, err := client.SearchProducts(context.Background(), "cap", 5)
	require.NoError(t, err)
	assert.Equal(t, "cap", found[0].Handle)
	assert.Equal(t, "cap", (*seen)[0].Variables["query"])

	collections, err := client.Collections(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, []Collection{{Handle: "summer", Title: "Summer"}}, collections)
}

func TestShopifyCartSumsQuantities(t *testing.T) {
	server, seen := newShopifyServer(t, func(graphQLRequest) string {
		return `{"data":{"node":{"id":"ck-1","webUrl":"https://club/checkout","lineItems":{"edges":[{"node":{"quantity":2}},{"node":{"quantity":1}}]}}}}`
	})
	checkouts := NewMemoryCheckouts()
	checkouts.Remember("club", "u1", "ck-1")
	client, err := NewShopify(ShopifyConfig{ShopDomain: "club", AccessToken: "token", Endpoint: server.URL, Checkouts: checkouts})
	require.NoError(t, err)

	cart, err := client.Cart(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, cart)
	assert.Equal(t, 3, cart.LineCount)
	assert.Equal(t, "https://club/checkout", cart.CheckoutURL)
	assert.Equal(t, "ck-1", (*seen)[0].Variables["id"])

	none, err := client.Cart(context.Background(), "u2")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Len(t, *seen, 1, "members without a checkout skip the request")
}

func TestShopifyErrors(t *testing.T) {
	server, _ := newShopifyServer(t, func(graphQLRequest) string {
		return `{"errors":[{"message":"Access denied"}]}`
	})
	client, err := NewShopify(ShopifyConfig{ShopDomain: "club", AccessToken: "token", Endpoint: server.URL})
	require.NoError(t, err)
	_, err = client.Collections(context.Background(), 1)
	require.ErrorContains(t, err, "Access denied")

	_, err = NewShopify(ShopifyConfig{ShopDomain: "club"})
	require.Error(t, err)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	t.Cleanup(failing.Close)
	client, _ = NewShopify(ShopifyConfig{ShopDomain: "club", AccessToken: "token", Endpoint: failing.URL})
	_, err = client.ProductByHandle(context.Background(), "x")
	require.ErrorContains(t, err, "remote error 401")
}

func TestShopifyDefaultEndpoint(t *testing.T) {
	client, err := NewShopify(ShopifyConfig{ShopDomain: " club.myshopify.com ", AccessToken: "token", DefaultCollection: " featured "})
	require.NoError(t, err)
	assert.Equal(t, "https://club.myshopify.com/api/2024-07/graphql.json", client.endpoint)
	assert.Equal(t, "featured", client.DefaultCollection())
}
