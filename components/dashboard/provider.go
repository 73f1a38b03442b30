package dashboard

import (
	"context"
	"errors"
	"time"
)

// Provider fetches data required to render a widget instance.
type Provider interface {
	Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func(ctx context.Context, meta WidgetContext) (WidgetData, error)

// Fetch calls f.
func (f ProviderFunc) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	return f(ctx, meta)
}

// WidgetContext contains the metadata needed by providers.
type WidgetContext struct {
	Instance   WidgetInstance
	Meta       WidgetMeta
	Config     WidgetConfig
	Session    Session
	Editing    bool
	Now        time.Time
	Translator TranslationService
}

// WidgetData is an opaque payload passed to templates.
type WidgetData map[string]any

// EmptyStateError asks the renderer to show Message instead of content.
type EmptyStateError struct {
	Message string
}

func (e *EmptyStateError) Error() string {
	return "dashboard: empty state: " + e.Message
}

func emptyState(message string) error {
	return &EmptyStateError{Message: message}
}

func asEmptyState(err error) (*EmptyStateError, bool) {
	var empty *EmptyStateError
	if errors.As(err, &empty) {
		return empty, true
	}
	return nil, false
}

// Title returns the instance title or the catalog name.
func (m WidgetContext) Title() string {
	if m.Instance.Title != "" {
		return m.Instance.Title
	}
	return m.Meta.Name
}
