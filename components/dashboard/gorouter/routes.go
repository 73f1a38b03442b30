package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/girlsclub/modular-dashboard/components/dashboard/commands"
	"github.com/girlsclub/modular-dashboard/components/dashboard/httpapi"
	"github.com/girlsclub/modular-dashboard/components/dashboard/queries"
	gocommand "github.com/goliatone/go-command"
)

// SessionResolver converts a router.Context into a dashboard.Session.
type SessionResolver func(router.Context) dashboard.Session

// Registrar is the subset of router.Router used to mount routes. Any
// go-router router (or group) satisfies it.
type Registrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	WebSocket(path string, cfg router.WebSocketConfig, handler func(router.WebSocketContext) error) router.RouteInfo
}

// API bundles the commands and queries behind the JSON endpoints.
type API struct {
	Layout   gocommand.Querier[queries.LayoutInput, dashboard.LayoutView]
	Widgets  gocommand.Querier[dashboard.Session, []dashboard.WidgetMeta]
	Versions gocommand.Querier[queries.VersionsInput, []dashboard.VersionSummary]
	Version  gocommand.Querier[queries.VersionInput, *dashboard.OrgLayout]
	Features httpapi.FeatureService

	Publish  gocommand.Commander[commands.PublishLayoutInput]
	Rollback gocommand.Commander[commands.RollbackLayoutInput]
	Override gocommand.Commander[commands.SaveOverrideInput]
	Toggle   gocommand.Commander[commands.SetFeatureInput]
}

// NewAPI wires every endpoint to a single dashboard service.
func NewAPI(service *dashboard.Service, telemetry commands.Telemetry) *API {
	return &API{
		Layout:   queries.NewLayoutQuery(service),
		Widgets:  queries.NewAvailableWidgetsQuery(service),
		Versions: queries.NewVersionsQuery(service),
		Version:  queries.NewVersionQuery(service),
		Features: service,
		Publish:  commands.NewPublishLayoutCommand(service, telemetry),
		Rollback: commands.NewRollbackLayoutCommand(service, telemetry),
		Override: commands.NewSaveOverrideCommand(service, telemetry),
		Toggle:   commands.NewSetFeatureCommand(service, telemetry),
	}
}

// Config wires go-router with the dashboard controller, API, and hooks.
type Config struct {
	Router          Registrar
	Controller      *dashboard.Controller
	API             *API
	Broadcast       *dashboard.BroadcastHook
	SessionResolver SessionResolver
	BasePath        string
	Routes          RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	HTML      string
	Layout    string
	Publish   string
	Draft     string
	Versions  string
	VersionID string
	Rollback  string
	Override  string
	Widgets   string
	Features  string
	WebSocket string
}

// Register mounts dashboard routes (HTML, JSON, WebSocket) on a go-router router.
func Register(cfg Config) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil && cfg.API == nil {
		return errors.New("gorouter: controller or api is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := strings.TrimSuffix(cfg.BasePath, "/")
	resolve := cfg.SessionResolver
	if resolve == nil {
		resolve = defaultSessionResolver
	}
	m := mount{r: cfg.Router, base: base}

	if cfg.Controller != nil {
		m.get(routes.HTML, func(ctx router.Context) error {
			var buf bytes.Buffer
			if err := cfg.Controller.RenderTemplate(ctx.Context(), resolve(ctx), editing(ctx), &buf); err != nil {
				return respondError(ctx, err)
			}
			ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
			return ctx.Send(buf.Bytes())
		})
	}
	if cfg.API != nil {
		registerAPI(m, cfg.API, resolve, routes)
	}
	if cfg.Broadcast != nil {
		registerWebSocket(m, cfg.Broadcast, resolve, routes.WebSocket)
	}
	return nil
}

type mount struct {
	r    Registrar
	base string
}

func (m mount) get(path string, h func(router.Context) error) {
	m.r.Get(m.base+path, router.WrapHandler(h))
}

func (m mount) post(path string, h func(router.Context) error) {
	m.r.Post(m.base+path, router.WrapHandler(h))
}

func (m mount) delete(path string, h func(router.Context) error) {
	m.r.Delete(m.base+path, router.WrapHandler(h))
}

func registerAPI(m mount, api *API, resolve SessionResolver, routes RouteConfig) {
	m.get(routes.Layout, func(ctx router.Context) error {
		view, err := api.Layout.Query(ctx.Context(), queries.LayoutInput{Session: resolve(ctx), Editing: editing(ctx)})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, view)
	})

	writeOrg := func(draft bool) func(router.Context) error {
		return func(ctx router.Context) error {
			var payload struct {
				Instances []dashboard.WidgetInstance `json:"instances"`
			}
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return respondStatus(ctx, http.StatusBadRequest, err)
			}
			input := commands.PublishLayoutInput{Session: resolve(ctx), Instances: payload.Instances, Draft: draft}
			if err := api.Publish.Execute(ctx.Context(), input); err != nil {
				return respondError(ctx, err)
			}
			if draft {
				return ctx.JSON(http.StatusAccepted, map[string]string{"status": "drafted"})
			}
			return ctx.JSON(http.StatusCreated, map[string]string{"status": "published"})
		}
	}
	m.post(routes.Publish, writeOrg(false))
	m.post(routes.Draft, writeOrg(true))

	m.get(routes.Versions, func(ctx router.Context) error {
		limit, _ := strconv.Atoi(ctx.Query("limit"))
		versions, err := api.Versions.Query(ctx.Context(), queries.VersionsInput{Session: resolve(ctx), Limit: limit})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]any{"versions": versions})
	})

	m.get(routes.VersionID, func(ctx router.Context) error {
		id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
		if err != nil {
			return respondStatus(ctx, http.StatusBadRequest, errors.New("invalid version id"))
		}
		layout, err := api.Version.Query(ctx.Context(), queries.VersionInput{Session: resolve(ctx), VersionID: id})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, layout)
	})

	m.post(routes.Rollback, func(ctx router.Context) error {
		id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
		if err != nil {
			return respondStatus(ctx, http.StatusBadRequest, errors.New("invalid version id"))
		}
		if err := api.Rollback.Execute(ctx.Context(), commands.RollbackLayoutInput{Session: resolve(ctx), VersionID: id}); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "rolled_back"})
	})

	m.post(routes.Override, func(ctx router.Context) error {
		var payload struct {
			Instances []dashboard.WidgetInstance `json:"instances"`
		}
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := api.Override.Execute(ctx.Context(), commands.SaveOverrideInput{Session: resolve(ctx), Instances: payload.Instances}); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
	})

	m.delete(routes.Override, func(ctx router.Context) error {
		if err := api.Override.Execute(ctx.Context(), commands.SaveOverrideInput{Session: resolve(ctx), Reset: true}); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "reset"})
	})

	m.get(routes.Widgets, func(ctx router.Context) error {
		widgets, err := api.Widgets.Query(ctx.Context(), resolve(ctx))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]any{"widgets": widgets})
	})

	if api.Features != nil {
		m.get(routes.Features, func(ctx router.Context) error {
			flags, err := api.Features.Features(ctx.Context(), resolve(ctx))
			if err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]any{"features": flags})
		})
	}

	m.post(routes.Features, func(ctx router.Context) error {
		var payload struct {
			Feature string `json:"feature"`
			Enabled bool   `json:"enabled"`
		}
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		input := commands.SetFeatureInput{Session: resolve(ctx), Feature: payload.Feature, Enabled: payload.Enabled}
		if err := api.Toggle.Execute(ctx.Context(), input); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "updated"})
	})
}

func registerWebSocket(m mount, hook *dashboard.BroadcastHook, resolve SessionResolver, path string) {
	cfg := router.DefaultWebSocketConfig()
	m.r.WebSocket(m.base+path, cfg, func(ws router.WebSocketContext) error {
		session := resolve(ws)
		events, cancel := hook.Subscribe(session.OrganizationID)
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

// defaultSessionResolver reads the session from locals populated by auth
// middleware: organization_id, user_id, is_admin and locale.
func defaultSessionResolver(ctx router.Context) dashboard.Session {
	var session dashboard.Session
	if v, ok := ctx.Locals("organization_id").(string); ok {
		session.OrganizationID = v
	}
	if v, ok := ctx.Locals("user_id").(string); ok {
		session.UserID = v
	}
	if v, ok := ctx.Locals("is_admin").(bool); ok {
		session.IsAdmin = v
	}
	session.Locale = inferLocale(ctx)
	return session
}

func editing(ctx router.Context) bool {
	v, _ := strconv.ParseBool(ctx.Query("editing"))
	return v
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	if header := ctx.Header("Accept-Language"); header != "" {
		return parseAcceptLanguage(header)
	}
	return ""
}

func parseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" {
			return strings.ToLower(token)
		}
	}
	return ""
}

func respondError(ctx router.Context, err error) error {
	return respondStatus(ctx, httpapi.StatusFor(err), err)
}

func respondStatus(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.HTML == "" {
		routes.HTML = "/dashboard"
	}
	if routes.Layout == "" {
		routes.Layout = "/dashboard/layout"
	}
	if routes.Publish == "" {
		routes.Publish = "/dashboard/layout/publish"
	}
	if routes.Draft == "" {
		routes.Draft = "/dashboard/layout/draft"
	}
	if routes.Versions == "" {
		routes.Versions = "/dashboard/layout/versions"
	}
	if routes.VersionID == "" {
		routes.VersionID = "/dashboard/layout/versions/:id"
	}
	if routes.Rollback == "" {
		routes.Rollback = "/dashboard/layout/versions/:id/rollback"
	}
	if routes.Override == "" {
		routes.Override = "/dashboard/override"
	}
	if routes.Widgets == "" {
		routes.Widgets = "/dashboard/widgets"
	}
	if routes.Features == "" {
		routes.Features = "/dashboard/features"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/dashboard/ws"
	}
	return routes
}
