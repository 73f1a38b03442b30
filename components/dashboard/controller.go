package dashboard

import (
	"context"
	"io"
)

// LayoutResolver is the part of Service the controller needs.
type LayoutResolver interface {
	Layout(ctx context.Context, session Session, editing bool) (LayoutView, error)
	AvailableWidgets(ctx context.Context, session Session) []WidgetMeta
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Service  LayoutResolver
	Renderer Renderer
	Template string
}

// Controller renders the dashboard page for a session.
type Controller struct {
	service  LayoutResolver
	renderer Renderer
	template string
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Renderer == nil {
		opts.Renderer = JSONRenderer{}
	}
	if opts.Template == "" {
		opts.Template = "dashboard.html"
	}
	return &Controller{service: opts.Service, renderer: opts.Renderer, template: opts.Template}
}

// Payload builds the template data for a session. The add picker is only
// included while editing.
func (c *Controller) Payload(ctx context.Context, session Session, editing bool) (map[string]any, error) {
	if c.service == nil {
		return map[string]any{"widgets": []RenderedWidget{}}, nil
	}
	view, err := c.service.Layout(ctx, session, editing)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"source":  view.Source,
		"widgets": view.Widgets,
		"editing": editing,
		"admin":   session.IsAdmin,
	}
	if editing {
		payload["picker"] = c.service.AvailableWidgets(ctx, session)
	}
	return payload, nil
}

// RenderTemplate resolves the layout and renders it into out.
func (c *Controller) RenderTemplate(ctx context.Context, session Session, editing bool, out io.Writer) error {
	payload, err := c.Payload(ctx, session, editing)
	if err != nil {
		return err
	}
	_, err = c.renderer.Render(c.template, payload, out)
	return err
}
