package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWidgetNotFound is returned when a key is not part of the catalog.
	ErrWidgetNotFound = errors.New("dashboard: widget not found in catalog")
)

// WidgetMeta describes a catalog widget kind.
type WidgetMeta struct {
	Key                  WidgetKey         `json:"key" yaml:"key"`
	Name                 string            `json:"name" yaml:"name"`
	NameLocalized        map[string]string `json:"name_localized,omitempty" yaml:"name_localized,omitempty"`
	Icon                 string            `json:"icon" yaml:"icon"`
	Description          string            `json:"description,omitempty" yaml:"description,omitempty"`
	DescriptionLocalized map[string]string `json:"description_localized,omitempty" yaml:"description_localized,omitempty"`
	FeatureFlag          FeatureKey        `json:"feature_flag,omitempty" yaml:"feature_flag,omitempty"`
	DefaultProps         map[string]any    `json:"default_props,omitempty" yaml:"default_props,omitempty"`
	DefaultFootprint     Footprint         `json:"default_footprint" yaml:"default_footprint"`
	Schema               map[string]any    `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Gated reports whether the widget requires a feature flag.
func (m WidgetMeta) Gated() bool {
	return m.FeatureFlag != ""
}

func (m WidgetMeta) clone() WidgetMeta {
	m.DefaultProps = cloneProps(m.DefaultProps)
	m.NameLocalized = cloneStrings(m.NameLocalized)
	m.DescriptionLocalized = cloneStrings(m.DescriptionLocalized)
	return m
}

// Catalog is the immutable registry of widget kinds.
type Catalog struct {
	entries []WidgetMeta
	index   map[WidgetKey]int
}

var defaultCatalog = mustCatalog(DefaultCatalogEntries()...)

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// NewCatalog builds a catalog from the given entries, preserving their order.
func NewCatalog(entries ...WidgetMeta) (*Catalog, error) {
	cat := &Catalog{
		entries: make([]WidgetMeta, 0, len(entries)),
		index:   make(map[WidgetKey]int, len(entries)),
	}
	for i, meta := range entries {
		if meta.Key == "" {
			return nil, fmt.Errorf("dashboard: catalog entry at index %d is missing a key", i)
		}
		if meta.Name == "" {
			return nil, fmt.Errorf("dashboard: catalog entry %s is missing a name", meta.Key)
		}
		if _, exists := cat.index[meta.Key]; exists {
			return nil, fmt.Errorf("dashboard: catalog duplicates widget %s", meta.Key)
		}
		if meta.DefaultFootprint == (Footprint{}) {
			meta.DefaultFootprint = DefaultFootprint(meta.Key)
		}
		meta = meta.clone()
		meta.NameLocalized = normalizeLocaleMap(meta.NameLocalized)
		meta.DescriptionLocalized = normalizeLocaleMap(meta.DescriptionLocalized)
		cat.index[meta.Key] = len(cat.entries)
		cat.entries = append(cat.entries, meta)
	}
	return cat, nil
}

func mustCatalog(entries ...WidgetMeta) *Catalog {
	cat, err := NewCatalog(entries...)
	if err != nil {
		panic(err)
	}
	return cat
}

// Lookup returns the metadata for key.
func (c *Catalog) Lookup(key WidgetKey) (WidgetMeta, error) {
	if c == nil {
		return WidgetMeta{}, ErrWidgetNotFound
	}
	idx, ok := c.index[key]
	if !ok {
		return WidgetMeta{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, key)
	}
	return c.entries[idx].clone(), nil
}

// Has reports whether key resolves in the catalog.
func (c *Catalog) Has(key WidgetKey) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[key]
	return ok
}

// List returns every entry in declaration order.
func (c *Catalog) List() []WidgetMeta {
	if c == nil {
		return nil
	}
	out := make([]WidgetMeta, len(c.entries))
	for i, meta := range c.entries {
		out[i] = meta.clone()
	}
	return out
}

// Keys returns the catalog keys in declaration order.
func (c *Catalog) Keys() []WidgetKey {
	if c == nil {
		return nil
	}
	keys := make([]WidgetKey, len(c.entries))
	for i, meta := range c.entries {
		keys[i] = meta.Key
	}
	return keys
}

// ParseWidgetKey normalizes user input ("Product Grid", "product_grid") into a
// catalog key and verifies it exists.
func (c *Catalog) ParseWidgetKey(raw string) (WidgetKey, error) {
	key := WidgetKey(normalizeKey(raw))
	if !c.Has(key) {
		return "", fmt.Errorf("%w: %s", ErrWidgetNotFound, strings.TrimSpace(raw))
	}
	return key, nil
}

func cloneStrings(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func cloneProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneProps(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string{}, val...)
	default:
		return val
	}
}
