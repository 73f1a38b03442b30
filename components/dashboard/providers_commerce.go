package dashboard

import (
	"context"
	"strings"
)

const (
	msgConnectShopify    = "Connect Shopify in Org Admin → Commerce to show products."
	msgNoProducts        = "No products found."
	msgConnectCart       = "Connect Shopify to enable cart."
	fallbackCollection   = "frontpage"
	defaultProductsLimit = 6
)

func storefrontFor(ctx context.Context, commerce CommerceSource, orgID, missing string) (Storefront, error) {
	if commerce == nil {
		return nil, emptyState(missing)
	}
	store, err := commerce.Storefront(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, emptyState(missing)
	}
	return store, nil
}

func productGridProvider(commerce CommerceSource) Provider {
	return ProviderFunc(func(ctx context.Context, meta WidgetContext) (WidgetData, error) {
		store, err := storefrontFor(ctx, commerce, meta.Session.OrganizationID, msgConnectShopify)
		if err != nil {
			return nil, err
		}
		cfg, _ := meta.Config.(*ProductGridConfig)
		if cfg == nil {
			cfg = &ProductGridConfig{}
		}
		first := cfg.First
		if first < 1 {
			first = defaultProductsLimit
		}
		handle := firstNonEmpty(cfg.CollectionHandle, store.DefaultCollection(), fallbackCollection)
		products, err := store.ProductsByCollection(ctx, handle, first)
		if err != nil {
			return nil, err
		}
		products = filterProducts(products, cfg.Search)
		if len(products) == 0 {
			return nil, emptyState(msgNoProducts)
		}
		data := WidgetData{
			"collection": handle,
			"products":   products,
		}
		if cart, err := store.Cart(ctx, meta.Session.UserID); err == nil && cart != nil {
			data["cart"] = *cart
		}
		return data, nil
	})
}

func featuredProductProvider(commerce CommerceSource) Provider {
	return ProviderFunc(func(ctx context.Context, meta WidgetContext) (WidgetData, error) {
		store, err := storefrontFor(ctx, commerce, meta.Session.OrganizationID, msgConnectShopify)
		if err != nil {
			return nil, err
		}
		handle := ""
		if cfg, ok := meta.Config.(*FeaturedProductConfig); ok {
			handle = strings.TrimSpace(cfg.ProductHandle)
		}
		var product *Product
		switch {
		case handle != "":
			product, err = store.ProductByHandle(ctx, handle)
		case store.DefaultCollection() != "":
			var items []Product
			items, err = store.ProductsByCollection(ctx, store.DefaultCollection(), 1)
			if len(items) > 0 {
				product = &items[0]
			}
		}
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, emptyState(msgNoProducts)
		}
		return WidgetData{"product": *product}, nil
	})
}

func miniCartProvider(commerce CommerceSource) Provider {
	return ProviderFunc(func(ctx context.Context, meta WidgetContext) (WidgetData, error) {
		store, err := storefrontFor(ctx, commerce, meta.Session.OrganizationID, msgConnectCart)
		if err != nil {
			return nil, err
		}
		cart, err := store.Cart(ctx, meta.Session.UserID)
		if err != nil {
			return nil, err
		}
		if cart == nil {
			cart = &Cart{}
		}
		return WidgetData{
			"count":        cart.LineCount,
			"checkout_url": cart.CheckoutURL,
		}, nil
	})
}

func filterProducts(products []Product, search string) []Product {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return products
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), search) {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
