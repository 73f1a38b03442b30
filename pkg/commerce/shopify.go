package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
)

// StorefrontAPIVersion is the Shopify Storefront API version queried.
const StorefrontAPIVersion = "2024-07"

// ShopifyConfig configures a storefront client.
type ShopifyConfig struct {
	ShopDomain        string
	AccessToken       string
	DefaultCollection string
	Currency          string
	// Endpoint overrides the GraphQL URL derived from ShopDomain.
	Endpoint   string
	HTTPClient *http.Client
	Checkouts  CheckoutStore
}

// Shopify talks to the Shopify Storefront GraphQL API.
type Shopify struct {
	endpoint          string
	shopDomain        string
	token             string
	defaultCollection string
	currency          string
	client            *http.Client
	checkouts         CheckoutStore
}

// NewShopify builds a storefront client.
func NewShopify(cfg ShopifyConfig) (*Shopify, error) {
	domain := strings.TrimSpace(cfg.ShopDomain)
	if domain == "" || strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, fmt.Errorf("commerce: shop domain and access token are required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s/api/%s/graphql.json", domain, StorefrontAPIVersion)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Shopify{
		endpoint:          endpoint,
		shopDomain:        domain,
		token:             cfg.AccessToken,
		defaultCollection: strings.TrimSpace(cfg.DefaultCollection),
		currency:          cfg.Currency,
		client:            httpClient,
		checkouts:         cfg.Checkouts,
	}, nil
}

// DefaultCollection returns the configured collection handle.
func (s *Shopify) DefaultCollection() string {
	return s.defaultCollection
}

const productFields = `id title handle featuredImage{url} variants(first:1){edges{node{price{amount currencyCode}}}}`

// ProductsByCollection lists the first products of a collection. Unknown
// collections yield no products.
func (s *Shopify) ProductsByCollection(ctx context.Context, handle string, first int) ([]dashboard.Product, error) {
	query := `query($handle:String!,$first:Int!){collectionByHandle(handle:$handle){products(first:$first){edges{node{` + productFields + `}}}}}`
	var data struct {
		CollectionByHandle *struct {
			Products productConnection `json:"products"`
		} `json:"collectionByHandle"`
	}
	if err := s.do(ctx, query, map[string]any{"handle": handle, "first": first}, &data); err != nil {
		return nil, err
	}
	if data.CollectionByHandle == nil {
		return []dashboard.Product{}, nil
	}
	return data.CollectionByHandle.Products.toProducts(s.currency), nil
}

// ProductByHandle returns a product or nil when the handle is unknown.
func (s *Shopify) ProductByHandle(ctx context.Context, handle string) (*dashboard.Product, error) {
	query := `query($handle:String!){productByHandle(handle:$handle){` + productFields + `}}`
	var data struct {
		ProductByHandle *productNode `json:"productByHandle"`
	}
	if err := s.do(ctx, query, map[string]any{"handle": handle}, &data); err != nil {
		return nil, err
	}
	if data.ProductByHandle == nil {
		return nil, nil
	}
	product := data.ProductByHandle.toProduct(s.currency)
	return &product, nil
}

// SearchProducts runs a storefront product search.
func (s *Shopify) SearchProducts(ctx context.Context, search string, first int) ([]dashboard.Product, error) {
	query := `query($query:String!,$first:Int!){products(query:$query,first:$first){edges{node{` + productFields + `}}}}`
	var data struct {
		Products productConnection `json:"products"`
	}
	if err := s.do(ctx, query, map[string]any{"query": search, "first": first}, &data); err != nil {
		return nil, err
	}
	return data.Products.toProducts(s.currency), nil
}

// Collections lists collection handles for admin pickers.
func (s *Shopify) Collections(ctx context.Context, first int) ([]Collection, error) {
	query := `query($first:Int!){collections(first:$first){edges{node{handle title}}}}`
	var data struct {
		Collections struct {
			Edges []struct {
				Node Collection `json:"node"`
			} `json:"edges"`
		} `json:"collections"`
	}
	if err := s.do(ctx, query, map[string]any{"first": first}, &data); err != nil {
		return nil, err
	}
	out := make([]Collection, len(data.Collections.Edges))
	for i, edge := range data.Collections.Edges {
		out[i] = edge.Node
	}
	return out, nil
}

// Cart sums the quantities of the member's stored checkout. Members without
// a checkout have no cart.
func (s *Shopify) Cart(ctx context.Context, userID string) (*dashboard.Cart, error) {
	if s.checkouts == nil || userID == "" {
		return nil, nil
	}
	id, err := s.checkouts.CheckoutID(ctx, s.shopDomain, userID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	query := `query($id:ID!){node(id:$id){... on Checkout{id webUrl lineItems(first:50){edges{node{quantity}}}}}}`
	var data struct {
		Node *struct {
			WebURL    string `json:"webUrl"`
			LineItems struct {
				Edges []struct {
					Node struct {
						Quantity int `json:"quantity"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"lineItems"`
		} `json:"node"`
	}
	if err := s.do(ctx, query, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.Node == nil {
		return nil, nil
	}
	cart := &dashboard.Cart{CheckoutURL: data.Node.WebURL}
	for _, edge := range data.Node.LineItems.Edges {
		cart.LineCount += edge.Node.Quantity
	}
	return cart, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (s *Shopify) do(ctx context.Context, query string, variables map[string]any, target any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("commerce: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("commerce: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", s.token)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("commerce: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("commerce: remote error %d: %s", resp.StatusCode, buf.String())
	}
	var envelope graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("commerce: decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			messages[i] = e.Message
		}
		return fmt.Errorf("commerce: graphql: %s", strings.Join(messages, "; "))
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return fmt.Errorf("commerce: decode data: %w", err)
	}
	return nil
}

type productNode struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Handle        string `json:"handle"`
	FeaturedImage *struct {
		URL string `json:"url"`
	} `json:"featuredImage"`
	Variants struct {
		Edges []struct {
			Node struct {
				Price struct {
					Amount       string `json:"amount"`
					CurrencyCode string `json:"currencyCode"`
				} `json:"price"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

func (n productNode) toProduct(currency string) dashboard.Product {
	product := dashboard.Product{ID: n.ID, Handle: n.Handle, Title: n.Title, Currency: currency}
	if n.FeaturedImage != nil {
		product.ImageURL = n.FeaturedImage.URL
	}
	if len(n.Variants.Edges) > 0 {
		price := n.Variants.Edges[0].Node.Price
		product.Price = price.Amount
		if price.CurrencyCode != "" {
			product.Currency = price.CurrencyCode
		}
	}
	return product
}

type productConnection struct {
	Edges []struct {
		Node productNode `json:"node"`
	} `json:"edges"`
}

func (c productConnection) toProducts(currency string) []dashboard.Product {
	out := make([]dashboard.Product, len(c.Edges))
	for i, edge := range c.Edges {
		out[i] = edge.Node.toProduct(currency)
	}
	return out
}

var _ Client = (*Shopify)(nil)
