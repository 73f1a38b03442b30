package dashboard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ettle/strcase"
	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// CatalogManifest is a YAML/JSON document that customizes catalog metadata
// for a deployment. It may only refer to keys the catalog already knows.
type CatalogManifest struct {
	Version string           `json:"version" yaml:"version"`
	Name    string           `json:"name,omitempty" yaml:"name,omitempty"`
	Widgets []ManifestWidget `json:"widgets" yaml:"widgets"`
	Source  string           `json:"-" yaml:"-"`
}

// ManifestWidget overrides display metadata or defaults of a catalog entry.
type ManifestWidget struct {
	Key                  string            `json:"key" yaml:"key"`
	Name                 string            `json:"name,omitempty" yaml:"name,omitempty"`
	NameLocalized        map[string]string `json:"name_localized,omitempty" yaml:"name_localized,omitempty"`
	Icon                 string            `json:"icon,omitempty" yaml:"icon,omitempty"`
	Description          string            `json:"description,omitempty" yaml:"description,omitempty"`
	DescriptionLocalized map[string]string `json:"description_localized,omitempty" yaml:"description_localized,omitempty"`
	DefaultProps         map[string]any    `json:"default_props,omitempty" yaml:"default_props,omitempty"`
	DefaultFootprint     *Footprint        `json:"default_footprint,omitempty" yaml:"default_footprint,omitempty"`
	Tags                 []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// LoadManifestFile reads a manifest from disk and returns a catalog with the
// overrides applied. The receiver is left untouched.
func (c *Catalog) LoadManifestFile(path string) (*Catalog, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	return c.ApplyManifest(doc)
}

// ApplyManifest returns a copy of the catalog with manifest overrides merged
// in. Default props are merged field by field and re-validated against the
// widget schema.
func (c *Catalog) ApplyManifest(doc *CatalogManifest) (*Catalog, error) {
	if doc == nil {
		return nil, fmt.Errorf("dashboard: manifest document is nil")
	}
	entries := c.List()
	index := make(map[WidgetKey]int, len(entries))
	for i, meta := range entries {
		index[meta.Key] = i
	}
	validator := NewJSONSchemaValidator()
	for _, widget := range doc.Widgets {
		key := WidgetKey(normalizeKey(widget.Key))
		idx, ok := index[key]
		if !ok {
			return nil, fmt.Errorf("dashboard: manifest %s: %w: %s", doc.Source, ErrWidgetNotFound, widget.Key)
		}
		meta := entries[idx]
		if widget.Name != "" {
			meta.Name = widget.Name
		}
		if widget.Icon != "" {
			meta.Icon = widget.Icon
		}
		if widget.Description != "" {
			meta.Description = widget.Description
		}
		for locale, value := range widget.NameLocalized {
			if meta.NameLocalized == nil {
				meta.NameLocalized = map[string]string{}
			}
			meta.NameLocalized[locale] = value
		}
		for locale, value := range widget.DescriptionLocalized {
			if meta.DescriptionLocalized == nil {
				meta.DescriptionLocalized = map[string]string{}
			}
			meta.DescriptionLocalized[locale] = value
		}
		if len(widget.DefaultProps) > 0 {
			meta.DefaultProps = mergeProps(meta.DefaultProps, widget.DefaultProps)
			if err := validator.Validate(meta, meta.DefaultProps); err != nil {
				return nil, fmt.Errorf("dashboard: manifest %s: %w", doc.Source, err)
			}
		}
		if widget.DefaultFootprint != nil {
			meta.DefaultFootprint = clampFootprint(*widget.DefaultFootprint)
		}
		entries[idx] = meta
	}
	return NewCatalog(entries...)
}

// ManifestFromCatalog exports the catalog's metadata as a manifest document.
func ManifestFromCatalog(c *Catalog, name string) *CatalogManifest {
	doc := &CatalogManifest{Version: manifestVersionV1, Name: name}
	for _, meta := range c.List() {
		fp := meta.DefaultFootprint
		doc.Widgets = append(doc.Widgets, ManifestWidget{
			Key:                  string(meta.Key),
			Name:                 meta.Name,
			NameLocalized:        meta.NameLocalized,
			Icon:                 meta.Icon,
			Description:          meta.Description,
			DescriptionLocalized: meta.DescriptionLocalized,
			DefaultProps:         meta.DefaultProps,
			DefaultFootprint:     &fp,
		})
	}
	return doc
}

// ReadManifest loads a manifest file from disk without applying it.
func ReadManifest(path string) (*CatalogManifest, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*CatalogManifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc CatalogManifest
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dashboard: manifest is empty")
		}
		return nil, fmt.Errorf("dashboard: parse manifest: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// EncodeManifest writes the manifest as YAML.
func EncodeManifest(w io.Writer, doc *CatalogManifest) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("dashboard: encode manifest: %w", err)
	}
	return encoder.Close()
}

// Validate ensures the manifest satisfies required fields.
func (doc *CatalogManifest) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("dashboard: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Widgets))
	for idx, widget := range doc.Widgets {
		key := normalizeKey(widget.Key)
		if key == "" {
			return fmt.Errorf("dashboard: manifest widget at index %d is missing key", idx)
		}
		if _, exists := seen[key]; exists {
			return fmt.Errorf("dashboard: manifest duplicates widget key %s", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (doc *CatalogManifest) applyDefaults() {
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
}

func normalizeKey(raw string) string {
	return strcase.ToKebab(strings.TrimSpace(raw))
}

func mergeProps(base, overrides map[string]any) map[string]any {
	out := cloneProps(base)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range overrides {
		out[k] = cloneValue(v)
	}
	return out
}
