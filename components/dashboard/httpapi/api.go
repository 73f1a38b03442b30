package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	dashboard "github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/girlsclub/modular-dashboard/components/dashboard/commands"
	"github.com/girlsclub/modular-dashboard/components/dashboard/queries"
	gocommand "github.com/goliatone/go-command"
)

// SessionResolver extracts the caller's dashboard session from the request.
type SessionResolver func(r *http.Request) dashboard.Session

// FeatureService lists flags for the caller's organization.
type FeatureService interface {
	Features(ctx context.Context, session dashboard.Session) (map[dashboard.FeatureKey]bool, error)
}

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Session SessionResolver

	Layout   gocommand.Querier[queries.LayoutInput, dashboard.LayoutView]
	Widgets  gocommand.Querier[dashboard.Session, []dashboard.WidgetMeta]
	Versions gocommand.Querier[queries.VersionsInput, []dashboard.VersionSummary]
	Version  gocommand.Querier[queries.VersionInput, *dashboard.OrgLayout]
	Features FeatureService

	Publish  gocommand.Commander[commands.PublishLayoutInput]
	Rollback gocommand.Commander[commands.RollbackLayoutInput]
	Override gocommand.Commander[commands.SaveOverrideInput]
	Toggle   gocommand.Commander[commands.SetFeatureInput]
}

type instancesPayload struct {
	Instances []dashboard.WidgetInstance `json:"instances"`
}

type featurePayload struct {
	Feature string `json:"feature"`
	Enabled bool   `json:"enabled"`
}

func (h *Handlers) session(r *http.Request) dashboard.Session {
	if h.Session == nil {
		return dashboard.Session{}
	}
	return h.Session(r)
}

// HandleLayout returns the effective layout; ?editing=true asks for the
// admin edit view.
func (h *Handlers) HandleLayout(w http.ResponseWriter, r *http.Request) {
	editing, _ := strconv.ParseBool(r.URL.Query().Get("editing"))
	view, err := h.Layout.Query(r.Context(), queries.LayoutInput{Session: h.session(r), Editing: editing})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) HandlePublish(w http.ResponseWriter, r *http.Request) {
	h.handleOrgWrite(w, r, false)
}

func (h *Handlers) HandleDraft(w http.ResponseWriter, r *http.Request) {
	h.handleOrgWrite(w, r, true)
}

func (h *Handlers) handleOrgWrite(w http.ResponseWriter, r *http.Request, draft bool) {
	var payload instancesPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := commands.PublishLayoutInput{Session: h.session(r), Instances: payload.Instances, Draft: draft}
	if err := h.Publish.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	if draft {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// HandleVersions lists history; ?limit=N defaults to five.
func (h *Handlers) HandleVersions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	versions, err := h.Versions.Query(r.Context(), queries.VersionsInput{Session: h.session(r), Limit: limit})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (h *Handlers) HandleVersion(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "invalid version id", http.StatusBadRequest)
		return
	}
	layout, err := h.Version.Query(r.Context(), queries.VersionInput{Session: h.session(r), VersionID: id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

func (h *Handlers) HandleRollback(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "invalid version id", http.StatusBadRequest)
		return
	}
	if err := h.Rollback.Execute(r.Context(), commands.RollbackLayoutInput{Session: h.session(r), VersionID: id}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleSaveOverride(w http.ResponseWriter, r *http.Request) {
	var payload instancesPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Override.Execute(r.Context(), commands.SaveOverrideInput{Session: h.session(r), Instances: payload.Instances}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleResetOverride(w http.ResponseWriter, r *http.Request) {
	if err := h.Override.Execute(r.Context(), commands.SaveOverrideInput{Session: h.session(r), Reset: true}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWidgets returns the add picker for the caller's organization.
func (h *Handlers) HandleWidgets(w http.ResponseWriter, r *http.Request) {
	widgets, err := h.Widgets.Query(r.Context(), h.session(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"widgets": widgets})
}

func (h *Handlers) HandleFeatures(w http.ResponseWriter, r *http.Request) {
	flags, err := h.Features.Features(r.Context(), h.session(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"features": flags})
}

func (h *Handlers) HandleSetFeature(w http.ResponseWriter, r *http.Request) {
	var payload featurePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := commands.SetFeatureInput{Session: h.session(r), Feature: payload.Feature, Enabled: payload.Enabled}
	if err := h.Toggle.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// StatusFor maps dashboard errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, dashboard.ErrVersionNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrCommitPending):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrInvalidLayout),
		errors.Is(err, dashboard.ErrInvalidConfig),
		errors.Is(err, dashboard.ErrUnknownFeature):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dashboard.ErrPersistFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
