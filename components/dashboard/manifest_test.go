package dashboard

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeManifest(t *testing.T) {
	const payload = `
version: "1"
name: spring-campaign
widgets:
  - key: promo
    name: Spring Promo
    name_localized:
      es: Promo de primavera
    default_props:
      title: Spring sale
      text: Twenty percent off club merch
      href: /store
  - key: QuickActions
    default_footprint: {w: 2, h: 1}
`
	doc, err := DecodeManifest(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, doc.Widgets, 2)
	assert.Equal(t, "spring-campaign", doc.Name)
	assert.Equal(t, "promo", doc.Widgets[0].Key)
	assert.Equal(t, "Promo de primavera", doc.Widgets[0].NameLocalized["es"])
}

func TestDecodeManifestRejectsUnknownFields(t *testing.T) {
	_, err := DecodeManifest(strings.NewReader("version: \"1\"\nwidgets:\n  - key: promo\n    colour: red\n"))
	require.Error(t, err)
}

func TestManifestValidateDuplicates(t *testing.T) {
	doc := &CatalogManifest{Version: ManifestVersion, Widgets: []ManifestWidget{{Key: "quick-actions"}, {Key: "QuickActions"}}}
	require.ErrorContains(t, doc.Validate(), "duplicates")

	doc = &CatalogManifest{Version: "2"}
	require.ErrorContains(t, doc.Validate(), "unsupported")
}

func TestApplyManifestOverridesMetadata(t *testing.T) {
	doc := &CatalogManifest{
		Version: ManifestVersion,
		Widgets: []ManifestWidget{
			{Key: "promo", Name: "Spring Promo", DefaultProps: map[string]any{"title": "Spring", "text": "Sale", "href": "/store"}},
			{Key: "QuickActions", DefaultFootprint: &Footprint{W: 9, H: 1}},
		},
	}
	base := DefaultCatalog()
	cat, err := base.ApplyManifest(doc)
	require.NoError(t, err)

	promo, err := cat.Lookup(WidgetPromo)
	require.NoError(t, err)
	assert.Equal(t, "Spring Promo", promo.Name)
	assert.Equal(t, "Spring", promo.DefaultProps["title"])

	actions, err := cat.Lookup(WidgetQuickActions)
	require.NoError(t, err)
	assert.Equal(t, Footprint{W: 4, H: 1}, actions.DefaultFootprint)

	original, _ := base.Lookup(WidgetPromo)
	assert.Equal(t, "Promotion", original.Name, "base catalog must stay untouched")

	inst := NewInstance(promo)
	assert.Equal(t, "Spring Promo", inst.Title)
	assert.Equal(t, "Sale", inst.Props["text"])
}

func TestApplyManifestRejectsUnknownKeysAndBadDefaults(t *testing.T) {
	_, err := DefaultCatalog().ApplyManifest(&CatalogManifest{Version: ManifestVersion, Widgets: []ManifestWidget{{Key: "weather"}}})
	require.ErrorIs(t, err, ErrWidgetNotFound)

	_, err = DefaultCatalog().ApplyManifest(&CatalogManifest{
		Version: ManifestVersion,
		Widgets: []ManifestWidget{{Key: "upcoming-events", DefaultProps: map[string]any{"filter": "someday"}}},
	})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestManifestRoundTripThroughFile(t *testing.T) {
	doc := ManifestFromCatalog(DefaultCatalog(), "export")
	var buf bytes.Buffer
	require.NoError(t, EncodeManifest(&buf, doc))

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	cat, err := DefaultCatalog().LoadManifestFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog().Keys(), cat.Keys())

	points, err := cat.Lookup(WidgetPoints)
	require.NoError(t, err)
	assert.Equal(t, Footprint{W: 2, H: 1}, points.DefaultFootprint)
}
