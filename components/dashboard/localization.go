package dashboard

import (
	"context"
	"strings"
)

// TranslationService looks up copy for a locale. Widget names, picker
// descriptions, labels and empty-state copy go through it when configured.
type TranslationService interface {
	Translate(ctx context.Context, key, locale string, args map[string]any) (string, error)
}

// ResolveLocalizedValue picks values[locale], then the base language of a
// region locale ("es-mx" → "es"), then values["default"], then fallback.
// Locale keys compare case-insensitively.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	byLocale := normalizeLocaleMap(values)
	for _, candidate := range localeCandidates(locale) {
		if value := byLocale[candidate]; value != "" {
			return value
		}
	}
	return fallback
}

// NameForLocale is the catalog name for locale.
func (m WidgetMeta) NameForLocale(locale string) string {
	return ResolveLocalizedValue(m.NameLocalized, locale, m.Name)
}

// DescriptionForLocale is the catalog description for locale.
func (m WidgetMeta) DescriptionForLocale(locale string) string {
	return ResolveLocalizedValue(m.DescriptionLocalized, locale, m.Description)
}

// LocalizeWidgets returns copies of metas whose Name and Description are
// resolved for locale. Translations from svc win over the catalog maps.
func LocalizeWidgets(ctx context.Context, svc TranslationService, metas []WidgetMeta, locale string) []WidgetMeta {
	out := make([]WidgetMeta, len(metas))
	for i, meta := range metas {
		meta = meta.clone()
		meta.Name = widgetName(ctx, svc, meta, locale)
		meta.Description = translated(ctx, svc, widgetCopyKey(meta.Key, "description"), locale, meta.DescriptionForLocale(locale))
		out[i] = meta
	}
	return out
}

func widgetName(ctx context.Context, svc TranslationService, meta WidgetMeta, locale string) string {
	return translated(ctx, svc, widgetCopyKey(meta.Key, "name"), locale, meta.NameForLocale(locale))
}

func widgetCopyKey(key WidgetKey, field string) string {
	return "dashboard.widget." + string(key) + "." + field
}

// translated returns the translation for key, or fallback when there is no
// translator, it fails, or it returns nothing.
func translated(ctx context.Context, svc TranslationService, key, locale, fallback string) string {
	if svc == nil {
		return fallback
	}
	value, err := svc.Translate(ctx, key, locale, nil)
	if err != nil || value == "" {
		return fallback
	}
	return value
}

func translateOrFallback(ctx context.Context, svc TranslationService, key, locale, fallback string, params map[string]any) string {
	if svc != nil {
		if value, err := svc.Translate(ctx, key, locale, params); err == nil && value != "" {
			return value
		}
	}
	if fallback == "" {
		return key
	}
	return fallback
}

func normalizeLocaleMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for locale, value := range values {
		if locale = normalizeLocale(locale); locale != "" && value != "" {
			out[locale] = value
		}
	}
	return out
}

func localeCandidates(locale string) []string {
	locale = normalizeLocale(locale)
	if locale == "" {
		return []string{"default"}
	}
	base, _, regional := strings.Cut(locale, "-")
	if regional && base != "" {
		return []string{locale, base, "default"}
	}
	return []string{locale, "default"}
}

func normalizeLocale(locale string) string {
	return strings.ToLower(strings.TrimSpace(locale))
}
