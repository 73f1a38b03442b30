// Package commerce connects organizations to their Shopify storefronts.
package commerce

import (
	"context"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
)

// Collection is a storefront collection reference.
type Collection struct {
	Handle string `json:"handle"`
	Title  string `json:"title"`
}

// Catalog browses storefront products.
type Catalog interface {
	ProductsByCollection(ctx context.Context, handle string, first int) ([]dashboard.Product, error)
	ProductByHandle(ctx context.Context, handle string) (*dashboard.Product, error)
	SearchProducts(ctx context.Context, query string, first int) ([]dashboard.Product, error)
	Collections(ctx context.Context, first int) ([]Collection, error)
}

// Client is the full storefront surface used by admin tooling and widgets.
type Client interface {
	dashboard.Storefront
	Catalog
}

// CheckoutStore remembers the storefront checkout created for each member.
type CheckoutStore interface {
	CheckoutID(ctx context.Context, shopDomain, userID string) (string, error)
}
