package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotEditing       = errors.New("dashboard: not in edit mode")
	ErrInvalidState     = errors.New("dashboard: action not available in current state")
	ErrCommitPending    = errors.New("dashboard: commit already in progress")
	ErrPersistFailed    = errors.New("dashboard: layout could not be saved")
	ErrFeatureDisabled  = errors.New("dashboard: feature disabled for organization")
	ErrForbidden        = errors.New("dashboard: not allowed")
	ErrInstanceNotFound = errors.New("dashboard: widget instance not found")
	ErrPreviewActive    = errors.New("dashboard: version preview active")
	ErrNoPreview        = errors.New("dashboard: no version preview active")
	ErrVersionNotFound  = errors.New("dashboard: layout version not found")
)

// EngineState is the editing state of a dashboard.
type EngineState string

const (
	StateViewing     EngineState = "viewing"
	StateEditingOrg  EngineState = "editingOrg"
	StateEditingUser EngineState = "editingUser"
)

// EngineSnapshot is a copy of the engine state for observers.
type EngineSnapshot struct {
	State          EngineState      `json:"state"`
	Session        Session          `json:"session"`
	Source         LayoutSource     `json:"source,omitempty"`
	Instances      []WidgetInstance `json:"instances"`
	PreviewVersion int64            `json:"preview_version,omitempty"`
	Pending        bool             `json:"pending"`
	Dirty          bool             `json:"dirty"`
}

// Previewing reports whether a historical version is on screen.
func (s EngineSnapshot) Previewing() bool {
	return s.PreviewVersion != 0
}

// EngineOptions configures an Engine. Session is required; everything else
// has an in-memory default.
type EngineOptions struct {
	Session        Session
	Store          *LayoutStore
	Features       FeatureGate
	Catalog        *Catalog
	Validator      ConfigValidator
	Renderer       *WidgetRenderer
	Logger         *zap.Logger
	Telemetry      Telemetry
	Scheduler      Scheduler
	LongPressDelay time.Duration
	OnChange       func(EngineSnapshot)
}

// Engine is the dashboard state machine for one session. In-session
// mutations are synchronous against memory; only loads and commits touch
// the store, and they run outside the lock.
type Engine struct {
	store     *LayoutStore
	features  FeatureGate
	catalog   *Catalog
	validator ConfigValidator
	renderer  *WidgetRenderer
	log       *zap.Logger
	telemetry Telemetry
	onChange  func(EngineSnapshot)
	press     *PressGesture

	mu         sync.Mutex
	session    Session
	sessionSeq uint64
	epoch      uint64
	state      EngineState
	source     LayoutSource
	instances  []WidgetInstance
	preview    int64
	pending    bool
	dirty      bool
}

// NewEngine builds an engine in the viewing state. Call Load to populate it.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = NewLayoutStore(StoreOptions{Logger: opts.Logger, Telemetry: opts.Telemetry})
	}
	if opts.Features == nil {
		opts.Features = StaticFeatureGate{}
	}
	if opts.Validator == nil {
		opts.Validator = NewJSONSchemaValidator()
	}
	if opts.Renderer == nil {
		opts.Renderer = NewWidgetRenderer(RendererOptions{
			Catalog:   opts.Catalog,
			Features:  opts.Features,
			Logger:    opts.Logger,
			Telemetry: opts.Telemetry,
		})
	}
	e := &Engine{
		store:     opts.Store,
		features:  opts.Features,
		catalog:   opts.Catalog,
		validator: opts.Validator,
		renderer:  opts.Renderer,
		log:       opts.Logger.Named("engine"),
		telemetry: normalizeTelemetry(opts.Telemetry),
		onChange:  opts.OnChange,
		session:   opts.Session,
		state:     StateViewing,
	}
	e.press = NewPressGesture(opts.Scheduler, opts.LongPressDelay, func() {
		if err := e.EnterEdit(); err != nil {
			e.log.Debug("long press ignored", zap.Error(err))
		}
	})
	return e
}

// Load resolves the effective layout for the current session. A load that
// is superseded by a newer load or a commit is discarded and reports false.
func (e *Engine) Load(ctx context.Context) bool {
	e.mu.Lock()
	e.epoch++
	ticket, session := e.epoch, e.session
	e.mu.Unlock()

	resolved := ResolveEffective(ctx, e.store, session)
	return e.applyLoad(ticket, resolved)
}

// SwitchSession moves the engine to another organization or user. Any
// in-flight load or commit for the previous session is ignored.
func (e *Engine) SwitchSession(ctx context.Context, session Session) bool {
	e.press.PressLeave()
	e.mu.Lock()
	e.session = session
	e.sessionSeq++
	e.state = StateViewing
	e.preview = 0
	e.pending = false
	e.dirty = false
	e.instances = nil
	e.source = ""
	e.mu.Unlock()
	return e.Load(ctx)
}

func (e *Engine) applyLoad(ticket uint64, resolved ResolvedLayout) bool {
	e.mu.Lock()
	if ticket != e.epoch || e.pending {
		e.mu.Unlock()
		e.log.Debug("discarding stale layout load", zap.Uint64("ticket", ticket))
		return false
	}
	e.instances = CloneInstances(resolved.Instances)
	e.source = resolved.Source
	e.preview = 0
	e.dirty = false
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return true
}

// PressStart begins a long press on the dashboard surface.
func (e *Engine) PressStart() { e.press.PressStart() }

// PressEnd releases the press; before the delay it is a no-op.
func (e *Engine) PressEnd() { e.press.PressEnd() }

// PressLeave cancels the press when the pointer leaves the surface.
func (e *Engine) PressLeave() { e.press.PressLeave() }

// EnterEdit switches from viewing into the edit state matching the session:
// organization edit for admins, personal edit for signed-in members.
func (e *Engine) EnterEdit() error {
	e.mu.Lock()
	if e.state != StateViewing {
		e.mu.Unlock()
		return nil
	}
	switch {
	case e.session.IsAdmin:
		e.state = StateEditingOrg
	case e.session.SignedIn():
		e.state = StateEditingUser
	default:
		e.mu.Unlock()
		return fmt.Errorf("%w: sign in to edit the dashboard", ErrForbidden)
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.log.Debug("entered edit mode", zap.String("state", string(snap.State)))
	e.emit(snap)
	return nil
}

// EnterPersonalEdit opens personal edit mode, including for admins who want
// to arrange their own view.
func (e *Engine) EnterPersonalEdit() error {
	e.mu.Lock()
	switch {
	case !e.session.SignedIn():
		e.mu.Unlock()
		return fmt.Errorf("%w: sign in to edit the dashboard", ErrForbidden)
	case e.state == StateEditingUser:
		e.mu.Unlock()
		return nil
	case e.state != StateViewing:
		e.mu.Unlock()
		return fmt.Errorf("%w: finish the organization edit first", ErrInvalidState)
	}
	e.state = StateEditingUser
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return nil
}

// ToggleEdit enters edit mode from viewing and cancels it otherwise.
func (e *Engine) ToggleEdit(ctx context.Context) error {
	if e.State() == StateViewing {
		return e.EnterEdit()
	}
	return e.Cancel(ctx)
}

// Add appends a new instance of key with the engine default footprint and
// the catalog defaults.
func (e *Engine) Add(ctx context.Context, key WidgetKey) (WidgetInstance, error) {
	meta, err := e.catalog.Lookup(key)
	if err != nil {
		return WidgetInstance{}, err
	}
	if meta.Gated() && !e.features.IsEnabled(ctx, e.Session().OrganizationID, meta.FeatureFlag) {
		return WidgetInstance{}, fmt.Errorf("%w: %s requires %s", ErrFeatureDisabled, key, meta.FeatureFlag)
	}
	inst := NewInstance(meta)
	err = e.mutate(func() (bool, error) {
		e.instances = append(e.instances, inst)
		return true, nil
	})
	if err != nil {
		return WidgetInstance{}, err
	}
	return inst.Clone(), nil
}

// Remove drops the instance from the in-memory sequence.
func (e *Engine) Remove(id string) error {
	return e.mutate(func() (bool, error) {
		out, ok := removeInstance(e.instances, id)
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
		}
		e.instances = out
		return true, nil
	})
}

// Move relocates activeID to the position held by overID. Equal or unknown
// identities are a no-op.
func (e *Engine) Move(activeID, overID string) error {
	return e.mutate(func() (bool, error) {
		out, moved := moveInstance(e.instances, activeID, overID)
		e.instances = out
		return moved, nil
	})
}

// MoveTo relocates id to index, clamped to the sequence bounds.
func (e *Engine) MoveTo(id string, index int) error {
	return e.mutate(func() (bool, error) {
		if indexOfInstance(e.instances, id) < 0 {
			return false, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
		}
		out, moved := moveInstanceTo(e.instances, id, index)
		e.instances = out
		return moved, nil
	})
}

// Reorder applies an explicit id order; unlisted instances keep their
// relative order at the end.
func (e *Engine) Reorder(ids []string) error {
	return e.mutate(func() (bool, error) {
		e.instances = applyOrder(e.instances, ids)
		return len(ids) > 0, nil
	})
}

// Resize applies each step in turn. Steps past the bounds are clamped.
func (e *Engine) Resize(id string, steps ...ResizeDirection) error {
	return e.updateInstance(id, func(inst *WidgetInstance) (bool, error) {
		before := inst.Footprint()
		fp := clampFootprint(before)
		for _, step := range steps {
			fp = fp.Resized(step)
		}
		if fp == before {
			return false, nil
		}
		inst.Layout = &fp
		return true, nil
	})
}

// SetFootprint applies a named size preset.
func (e *Engine) SetFootprint(id string, preset SizePreset) error {
	fp, ok := PresetFootprint(preset)
	if !ok {
		return fmt.Errorf("%w: unknown size preset %q", ErrInvalidConfig, preset)
	}
	return e.updateInstance(id, func(inst *WidgetInstance) (bool, error) {
		if inst.Footprint() == fp {
			return false, nil
		}
		inst.Layout = &fp
		return true, nil
	})
}

// SetTitle overrides the display title; an empty title restores the
// catalog name.
func (e *Engine) SetTitle(id, title string) error {
	title = strings.TrimSpace(title)
	return e.updateInstance(id, func(inst *WidgetInstance) (bool, error) {
		if inst.Title == title {
			return false, nil
		}
		inst.Title = title
		return true, nil
	})
}

// SetProps merges props into the instance's property bag after validating
// the result against the widget schema.
func (e *Engine) SetProps(id string, props map[string]any) error {
	return e.updateInstance(id, func(inst *WidgetInstance) (bool, error) {
		return e.writeProps(inst, mergeProps(inst.Props, props))
	})
}

// Configure writes a typed configuration into the instance. The config must
// belong to the instance's key; fields it does not know are preserved.
func (e *Engine) Configure(id string, cfg WidgetConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	return e.updateInstance(id, func(inst *WidgetInstance) (bool, error) {
		if cfg.WidgetKey() != inst.Key {
			return false, fmt.Errorf("%w: %s config cannot apply to %s", ErrInvalidConfig, cfg.WidgetKey(), inst.Key)
		}
		props, err := ApplyConfig(inst.Props, cfg)
		if err != nil {
			return false, err
		}
		return e.writeProps(inst, props)
	})
}

func (e *Engine) writeProps(inst *WidgetInstance, props map[string]any) (bool, error) {
	meta, err := e.catalog.Lookup(inst.Key)
	if err != nil {
		return false, err
	}
	if err := e.validator.Validate(meta, mergeProps(meta.DefaultProps, props)); err != nil {
		return false, err
	}
	inst.Props = props
	return true, nil
}

func (e *Engine) updateInstance(id string, fn func(inst *WidgetInstance) (bool, error)) error {
	return e.mutate(func() (bool, error) {
		idx := indexOfInstance(e.instances, id)
		if idx < 0 {
			return false, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
		}
		inst := e.instances[idx].Clone()
		changed, err := fn(&inst)
		if err != nil || !changed {
			return false, err
		}
		e.instances[idx] = inst
		return true, nil
	})
}

func (e *Engine) mutate(fn func() (bool, error)) error {
	e.mu.Lock()
	switch {
	case e.state == StateViewing:
		e.mu.Unlock()
		return ErrNotEditing
	case e.pending:
		e.mu.Unlock()
		return ErrCommitPending
	case e.preview != 0:
		e.mu.Unlock()
		return ErrPreviewActive
	}
	changed, err := fn()
	if err != nil || !changed {
		e.mu.Unlock()
		return err
	}
	e.dirty = true
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return nil
}

type commit struct {
	sessionSeq uint64
	session    Session
	instances  []WidgetInstance
}

func (e *Engine) beginCommit(want EngineState) (commit, error) {
	e.mu.Lock()
	switch {
	case e.state == StateViewing:
		e.mu.Unlock()
		return commit{}, ErrNotEditing
	case e.state != want:
		e.mu.Unlock()
		return commit{}, fmt.Errorf("%w: requires %s", ErrInvalidState, want)
	case e.pending:
		e.mu.Unlock()
		return commit{}, ErrCommitPending
	}
	e.pending = true
	c := commit{
		sessionSeq: e.sessionSeq,
		session:    e.session,
		instances:  CloneInstances(nonNil(e.instances)),
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return c, nil
}

// finishCommit clears the pending flag and, on success, applies after and
// supersedes any in-flight load.
func (e *Engine) finishCommit(c commit, ok bool, action string, after func()) error {
	e.mu.Lock()
	if c.sessionSeq != e.sessionSeq {
		e.mu.Unlock()
		if !ok {
			return ErrPersistFailed
		}
		return nil
	}
	e.pending = false
	if ok {
		e.epoch++
		if after != nil {
			after()
		}
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)

	e.telemetry.Record(context.Background(), "dashboard.engine."+action, map[string]any{
		"organization_id": c.session.OrganizationID,
		"user_id":         c.session.UserID,
		"ok":              ok,
	})
	if !ok {
		e.log.Warn("commit failed; staying in edit mode",
			zap.String("action", action),
			zap.String("organization_id", c.session.OrganizationID),
		)
		return ErrPersistFailed
	}
	return nil
}

// Publish saves the in-memory sequence as the organization's published
// layout and returns to viewing.
func (e *Engine) Publish(ctx context.Context) error {
	c, err := e.beginCommit(StateEditingOrg)
	if err != nil {
		return err
	}
	ok := e.store.SavePublished(ctx, c.session.OrganizationID, c.instances, c.session.UserID)
	return e.finishCommit(c, ok, "publish", func() {
		e.instances = c.instances
		e.state = StateViewing
		e.source = SourcePublished
		e.preview = 0
		e.dirty = false
	})
}

// SaveDraft appends a draft version and stays in edit mode.
func (e *Engine) SaveDraft(ctx context.Context) error {
	c, err := e.beginCommit(StateEditingOrg)
	if err != nil {
		return err
	}
	ok := e.store.SaveDraft(ctx, c.session.OrganizationID, c.instances, c.session.UserID)
	return e.finishCommit(c, ok, "draft", nil)
}

// Versions lists the organization's layout history for admins.
func (e *Engine) Versions(ctx context.Context, limit int) ([]VersionSummary, error) {
	session := e.Session()
	if !session.IsAdmin {
		return nil, ErrForbidden
	}
	return e.store.ListVersions(ctx, session.OrganizationID, limit), nil
}

// Save stores the in-memory sequence as the member's override and returns
// to viewing.
func (e *Engine) Save(ctx context.Context) error {
	c, err := e.beginCommit(StateEditingUser)
	if err != nil {
		return err
	}
	ok := e.store.SaveUserOverride(ctx, c.session.OrganizationID, c.session.UserID, c.instances)
	return e.finishCommit(c, ok, "save", func() {
		e.instances = c.instances
		e.state = StateViewing
		e.source = SourceOverride
		e.dirty = false
	})
}

// Reset deletes the member's override and shows the published layout (or
// the scaffold), staying in personal edit mode.
func (e *Engine) Reset(ctx context.Context) error {
	c, err := e.beginCommit(StateEditingUser)
	if err != nil {
		return err
	}
	ok := e.store.ResetUserOverride(ctx, c.session.OrganizationID, c.session.UserID)
	var resolved ResolvedLayout
	if ok {
		resolved = resolvePublished(ctx, e.store, c.session.OrganizationID)
	}
	return e.finishCommit(c, ok, "reset", func() {
		e.instances = CloneInstances(resolved.Instances)
		e.source = resolved.Source
		e.dirty = false
	})
}

// Cancel discards in-memory changes, returns to viewing and reloads.
func (e *Engine) Cancel(ctx context.Context) error {
	e.mu.Lock()
	if e.pending {
		e.mu.Unlock()
		return ErrCommitPending
	}
	e.state = StateViewing
	e.preview = 0
	e.dirty = false
	e.mu.Unlock()
	e.Load(ctx)
	return nil
}

// PreviewVersion swaps the in-memory sequence for a historical version.
// Mutations are refused until the preview is published or exited. A preview
// that returns after a cancel, reload, commit or session switch is dropped.
func (e *Engine) PreviewVersion(ctx context.Context, versionID int64) error {
	e.mu.Lock()
	if err := e.requireOrgEditLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.epoch++
	ticket, org := e.epoch, e.session.OrganizationID
	e.mu.Unlock()

	layout := e.store.FetchVersion(ctx, org, versionID)
	if layout == nil {
		return fmt.Errorf("%w: %d", ErrVersionNotFound, versionID)
	}

	e.mu.Lock()
	if ticket != e.epoch || e.state != StateEditingOrg || e.pending {
		e.mu.Unlock()
		e.log.Debug("discarding stale version preview",
			zap.Int64("version_id", versionID),
			zap.Uint64("ticket", ticket),
		)
		return nil
	}
	e.instances = CloneInstances(layout.Instances)
	e.source = SourcePreview
	e.preview = versionID
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return nil
}

// PublishPreview publishes the previewed instances and leaves the preview.
func (e *Engine) PublishPreview(ctx context.Context) error {
	if !e.Snapshot().Previewing() {
		return ErrNoPreview
	}
	return e.Publish(ctx)
}

// ExitPreview discards the preview and shows the current published layout.
func (e *Engine) ExitPreview(ctx context.Context) error {
	e.mu.Lock()
	if e.preview == 0 {
		e.mu.Unlock()
		return ErrNoPreview
	}
	if e.pending {
		e.mu.Unlock()
		return ErrCommitPending
	}
	e.epoch++
	ticket, org := e.epoch, e.session.OrganizationID
	e.mu.Unlock()

	resolved := resolvePublished(ctx, e.store, org)
	e.applyLoad(ticket, resolved)
	return nil
}

// Rollback republishes a historical version directly from history. The
// admin stays in organization edit mode looking at the new published layout.
func (e *Engine) Rollback(ctx context.Context, versionID int64) error {
	e.mu.Lock()
	if err := e.requireOrgEditLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()
	c, err := e.beginCommit(StateEditingOrg)
	if err != nil {
		return err
	}
	ok := e.store.RollbackTo(ctx, c.session.OrganizationID, versionID, c.session.UserID)
	var resolved ResolvedLayout
	if ok {
		resolved = resolvePublished(ctx, e.store, c.session.OrganizationID)
	}
	return e.finishCommit(c, ok, "rollback", func() {
		e.instances = CloneInstances(resolved.Instances)
		e.source = resolved.Source
		e.preview = 0
		e.dirty = false
	})
}

func (e *Engine) requireOrgEditLocked() error {
	switch {
	case !e.session.IsAdmin:
		return ErrForbidden
	case e.state == StateViewing:
		return ErrNotEditing
	case e.state != StateEditingOrg:
		return fmt.Errorf("%w: requires %s", ErrInvalidState, StateEditingOrg)
	case e.pending:
		return ErrCommitPending
	}
	return nil
}

// AvailableWidgets is the add picker: catalog entries whose feature flag is
// enabled for the organization, in declaration order, with names and
// descriptions in the session locale.
func (e *Engine) AvailableWidgets(ctx context.Context) []WidgetMeta {
	session := e.Session()
	metas := AvailableWidgets(ctx, e.catalog, e.features, session.OrganizationID)
	return e.renderer.LocalizeWidgets(ctx, metas, session.Locale)
}

// AvailableWidgets filters the catalog by the organization's feature flags.
func AvailableWidgets(ctx context.Context, catalog *Catalog, gate FeatureGate, orgID string) []WidgetMeta {
	flags := map[FeatureKey]bool{}
	out := make([]WidgetMeta, 0)
	for _, meta := range catalog.List() {
		if meta.Gated() {
			enabled, seen := flags[meta.FeatureFlag]
			if !seen {
				enabled = gate.IsEnabled(ctx, orgID, meta.FeatureFlag)
				flags[meta.FeatureFlag] = enabled
			}
			if !enabled {
				continue
			}
		}
		out = append(out, meta)
	}
	return out
}

// Render resolves the current sequence into view models.
func (e *Engine) Render(ctx context.Context) []RenderedWidget {
	snap := e.Snapshot()
	return e.renderer.Render(ctx, RenderRequest{
		Session:   snap.Session,
		Instances: snap.Instances,
		Editing:   snap.State != StateViewing,
	})
}

// State returns the current editing state.
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Session returns the session the engine runs under.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Snapshot copies the current state.
func (e *Engine) Snapshot() EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() EngineSnapshot {
	return EngineSnapshot{
		State:          e.state,
		Session:        e.session,
		Source:         e.source,
		Instances:      CloneInstances(nonNil(e.instances)),
		PreviewVersion: e.preview,
		Pending:        e.pending,
		Dirty:          e.dirty,
	}
}

func (e *Engine) emit(snap EngineSnapshot) {
	if e.onChange != nil {
		e.onChange(snap)
	}
}
