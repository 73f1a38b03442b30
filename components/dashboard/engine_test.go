package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"
)

// gatedRepository blocks the chosen operation for one organization until
// release is closed, so tests can interleave loads and commits.
type gatedRepository struct {
	*MemoryRepository
	op      string
	orgID   string
	entered chan struct{}
	release chan struct{}
}

func newGatedRepository(op, orgID string) *gatedRepository {
	return &gatedRepository{
		MemoryRepository: NewMemoryRepository(),
		op:               op,
		orgID:            orgID,
		entered:          make(chan struct{}, 1),
		release:          make(chan struct{}),
	}
}

func (r *gatedRepository) wait(op, orgID string) {
	if op == r.op && orgID == r.orgID {
		r.entered <- struct{}{}
		<-r.release
	}
}

func (r *gatedRepository) LatestLayout(ctx context.Context, orgID string, status LayoutStatus) (*OrgLayout, error) {
	r.wait("latest", orgID)
	return r.MemoryRepository.LatestLayout(ctx, orgID, status)
}

func (r *gatedRepository) UpsertLayout(ctx context.Context, layout OrgLayout) error {
	r.wait("upsert", layout.OrganizationID)
	return r.MemoryRepository.UpsertLayout(ctx, layout)
}

func (r *gatedRepository) GetVersion(ctx context.Context, orgID string, versionID int64) (*LayoutVersion, error) {
	r.wait("version", orgID)
	return r.MemoryRepository.GetVersion(ctx, orgID, versionID)
}

type engineFixture struct {
	repo  LayoutRepository
	store *LayoutStore
	gate  StaticFeatureGate
}

func newEngineFixture(repo LayoutRepository) *engineFixture {
	if repo == nil {
		repo = NewMemoryRepository()
	}
	return &engineFixture{
		repo:  repo,
		store: NewLayoutStore(StoreOptions{Repository: repo, Now: steppingClock()}),
		gate:  StaticFeatureGate{FeatureEvents: true, FeatureChallenges: true},
	}
}

func (f *engineFixture) engine(session Session, opts ...func(*EngineOptions)) *Engine {
	o := EngineOptions{Session: session, Store: f.store, Features: f.gate}
	for _, opt := range opts {
		opt(&o)
	}
	return NewEngine(o)
}

var (
	adminSession  = Session{OrganizationID: "org-1", UserID: "admin-1", IsAdmin: true}
	memberSession = Session{OrganizationID: "org-1", UserID: "member-1"}
)

func instanceKeys(instances []WidgetInstance) []WidgetKey {
	keys := make([]WidgetKey, len(instances))
	for i, inst := range instances {
		keys[i] = inst.Key
	}
	return keys
}

func TestEngineLoadsScaffoldWithoutPersisting(t *testing.T) {
	f := newEngineFixture(nil)
	e := f.engine(memberSession)
	ctx := context.Background()

	if !e.Load(ctx) {
		t.Fatalf("expected load to apply")
	}
	snap := e.Snapshot()
	if snap.Source != SourceScaffold || len(snap.Instances) != len(ScaffoldInstances()) {
		t.Fatalf("expected scaffold, got %s with %d instances", snap.Source, len(snap.Instances))
	}
	_ = e.Render(ctx)
	if f.store.FetchPublished(ctx, "org-1") != nil {
		t.Fatalf("viewing the scaffold must not persist it")
	}
	if len(f.store.ListVersions(ctx, "org-1", 5)) != 0 {
		t.Fatalf("viewing the scaffold must not append versions")
	}
}

func TestEngineOverridePrecedenceAndReset(t *testing.T) {
	f := newEngineFixture(nil)
	ctx := context.Background()
	published := []WidgetInstance{{ID: "p1", Key: WidgetPromo}}
	override := []WidgetInstance{{ID: "o1", Key: WidgetPoints}, {ID: "o2", Key: WidgetQuickActions}}
	if !f.store.SavePublished(ctx, "org-1", published, "admin-1") {
		t.Fatalf("seed published")
	}
	if !f.store.SaveUserOverride(ctx, "org-1", "member-1", override) {
		t.Fatalf("seed override")
	}

	e := f.engine(memberSession)
	e.Load(ctx)
	if snap := e.Snapshot(); snap.Source != SourceOverride || snap.Instances[0].ID != "o1" {
		t.Fatalf("expected override, got %+v", snap)
	}

	if err := e.EnterEdit(); err != nil {
		t.Fatalf("enter edit: %v", err)
	}
	if e.State() != StateEditingUser {
		t.Fatalf("members edit their own layout, got %s", e.State())
	}
	if err := e.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	snap := e.Snapshot()
	if snap.State != StateEditingUser {
		t.Fatalf("reset keeps personal edit mode, got %s", snap.State)
	}
	if snap.Source != SourcePublished || snap.Instances[0].ID != "p1" {
		t.Fatalf("expected published after reset, got %+v", snap.Instances)
	}

	reloaded := f.engine(memberSession)
	reloaded.Load(ctx)
	if got := reloaded.Snapshot(); got.Source != SourcePublished {
		t.Fatalf("expected published on next load, got %s", got.Source)
	}
}

func TestEngineEmptyOverrideFallsBackToPublished(t *testing.T) {
	f := newEngineFixture(nil)
	ctx := context.Background()
	f.store.SavePublished(ctx, "org-1", []WidgetInstance{{ID: "p1", Key: WidgetPromo}}, "admin-1")
	f.store.SaveUserOverride(ctx, "org-1", "member-1", []WidgetInstance{})

	e := f.engine(memberSession)
	e.Load(ctx)
	if e.Snapshot().Source != SourcePublished {
		t.Fatalf("empty overrides must fall through to the published layout")
	}
}

func TestEnginePointsScenario(t *testing.T) {
	f := newEngineFixture(nil)
	ctx := context.Background()
	admin := f.engine(adminSession)
	admin.Load(ctx)

	if err := admin.EnterEdit(); err != nil || admin.State() != StateEditingOrg {
		t.Fatalf("admin should enter organization edit, got %s %v", admin.State(), err)
	}
	inst, err := admin.Add(ctx, WidgetPoints)
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	if inst.Footprint() != (Footprint{W: 2, H: 1}) || inst.Title != "Loyalty Points" {
		t.Fatalf("unexpected new instance %+v", inst)
	}
	if err := admin.MoveTo(inst.ID, 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := admin.Publish(ctx); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if admin.State() != StateViewing {
		t.Fatalf("publish returns to viewing, got %s", admin.State())
	}

	other := f.engine(Session{OrganizationID: "org-1", UserID: "member-9"})
	other.Load(ctx)
	rendered := other.Render(ctx)
	if len(rendered) == 0 || rendered[0].Key != WidgetPoints {
		t.Fatalf("expected points first, got %+v", rendered)
	}
	if rendered[0].Footprint != (Footprint{W: 2, H: 1}) {
		t.Fatalf("expected 2x1 footprint, got %+v", rendered[0].Footprint)
	}
}

func TestEngineAvailableWidgetsRespectFlags(t *testing.T) {
	f := newEngineFixture(nil)
	f.gate = StaticFeatureGate{FeatureEvents: true, FeatureSocial: true, FeatureChallenges: true, FeatureCommerce: false}
	e := f.engine(adminSession)

	for _, meta := range e.AvailableWidgets(context.Background()) {
		switch meta.Key {
		case WidgetProductGrid, WidgetFeaturedProduct, WidgetMiniCart, WidgetStoreCarousel:
			t.Fatalf("commerce widget %s offered with commerce disabled", meta.Key)
		}
	}

	e.Load(context.Background())
	e.EnterEdit()
	if _, err := e.Add(context.Background(), WidgetMiniCart); !errors.Is(err, ErrFeatureDisabled) {
		t.Fatalf("expected ErrFeatureDisabled, got %v", err)
	}
	if _, err := e.Add(context.Background(), WidgetKey("weather")); !errors.Is(err, ErrWidgetNotFound) {
		t.Fatalf("expected ErrWidgetNotFound, got %v", err)
	}
}

func TestEngineAvailableWidgetsUseSessionLocale(t *testing.T) {
	f := newEngineFixture(nil)
	session := adminSession
	session.Locale = "es-MX"
	e := f.engine(session)

	names := map[WidgetKey]string{}
	for _, meta := range e.AvailableWidgets(context.Background()) {
		names[meta.Key] = meta.Name
	}
	if names[WidgetUpcomingEvents] != "Próximos eventos" || names[WidgetQuickActions] != "Acciones rápidas" {
		t.Fatalf("expected spanish picker names, got %v", names)
	}
}

func TestEngineMutationsRequireEditing(t *testing.T) {
	f := newEngineFixture(nil)
	e := f.engine(memberSession)
	e.Load(context.Background())

	if _, err := e.Add(context.Background(), WidgetPromo); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing, got %v", err)
	}
	if err := e.Remove("default-points"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing, got %v", err)
	}
	if err := e.Publish(context.Background()); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing, got %v", err)
	}
}

func TestEngineAnonymousCannotEdit(t *testing.T) {
	e := newEngineFixture(nil).engine(Session{OrganizationID: "org-1"})
	if err := e.EnterEdit(); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if e.State() != StateViewing {
		t.Fatalf("state must not change")
	}
}

func TestEngineResizeClampsIdempotently(t *testing.T) {
	f := newEngineFixture(nil)
	e := f.engine(memberSession)
	e.Load(context.Background())
	e.EnterEdit()

	if err := e.Resize("default-points", ShrinkWidth, ShrinkWidth, ShrinkWidth); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if err := e.Resize("default-points", GrowHeight, GrowHeight, GrowHeight, GrowHeight); err != nil {
		t.Fatalf("resize: %v", err)
	}
	before := e.Snapshot()
	if err := e.Resize("default-points", ShrinkWidth, GrowHeight); err != nil {
		t.Fatalf("resize: %v", err)
	}
	after := e.Snapshot()
	idx := indexOfInstance(after.Instances, "default-points")
	if got := after.Instances[idx].Footprint(); got != (Footprint{W: 1, H: 3}) {
		t.Fatalf("expected clamp to 1x3, got %+v", got)
	}
	if before.Instances[idx].Footprint() != after.Instances[idx].Footprint() {
		t.Fatalf("clamped requests must not change the footprint")
	}
	if err := e.Resize("missing", GrowWidth); !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound, got %v", err)
	}
	if err := e.SetFootprint("default-points", SizeHero); err != nil {
		t.Fatalf("preset: %v", err)
	}
	idx = indexOfInstance(e.Snapshot().Instances, "default-points")
	if got := e.Snapshot().Instances[idx].Footprint(); got != (Footprint{W: 4, H: 2}) {
		t.Fatalf("expected hero preset 4x2, got %+v", got)
	}
}

func TestEngineMoveNoops(t *testing.T) {
	f := newEngineFixture(nil)
	e := f.engine(memberSession)
	e.Load(context.Background())
	e.EnterEdit()
	before := instanceKeys(e.Snapshot().Instances)

	if err := e.Move("default-points", "default-points"); err != nil {
		t.Fatalf("move same: %v", err)
	}
	if err := e.Move("default-points", "nowhere"); err != nil {
		t.Fatalf("move unknown: %v", err)
	}
	if e.Snapshot().Dirty {
		t.Fatalf("no-op moves must not dirty the layout")
	}
	if err := e.Move("default-points", "default-featured"); err != nil {
		t.Fatalf("move: %v", err)
	}
	after := instanceKeys(e.Snapshot().Instances)
	if after[0] != WidgetPoints || len(after) != len(before) {
		t.Fatalf("expected points first, got %v", after)
	}
}

func TestEngineConfigureTyped(t *testing.T) {
	f := newEngineFixture(nil)
	e := f.engine(adminSession)
	e.Load(context.Background())
	e.EnterEdit()

	if err := e.SetProps("default-upcoming", map[string]any{"accent": "pink"}); err != nil {
		t.Fatalf("set props: %v", err)
	}
	if err := e.Configure("default-upcoming", &UpcomingEventsConfig{Filter: FilterToday, Limit: 2}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	snap := e.Snapshot()
	props := snap.Instances[indexOfInstance(snap.Instances, "default-upcoming")].Props
	if props["filter"] != "today" || props["accent"] != "pink" {
		t.Fatalf("expected typed write merged with foreign props, got %v", props)
	}
	if err := e.Configure("default-upcoming", &UpcomingEventsConfig{Filter: "tomorrow"}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for bad filter, got %v", err)
	}
	if err := e.Configure("default-upcoming", &PromoConfig{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected key mismatch to be rejected, got %v", err)
	}
	if err := e.SetTitle("default-upcoming", "  This week  "); err != nil {
		t.Fatalf("set title: %v", err)
	}
	snap = e.Snapshot()
	if got := snap.Instances[indexOfInstance(snap.Instances, "default-upcoming")].Title; got != "This week" {
		t.Fatalf("expected trimmed title, got %q", got)
	}
}

func TestEngineFailedPublishStaysEditing(t *testing.T) {
	repo := &flakyRepository{MemoryRepository: NewMemoryRepository(), failUpsert: errors.New("down")}
	f := newEngineFixture(repo)
	e := f.engine(adminSession)
	e.Load(context.Background())
	e.EnterEdit()
	e.Remove("default-points")

	if err := e.Publish(context.Background()); !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected ErrPersistFailed, got %v", err)
	}
	snap := e.Snapshot()
	if snap.State != StateEditingOrg || !snap.Dirty || snap.Pending {
		t.Fatalf("failed commit must keep the editing state, got %+v", snap)
	}
	if indexOfInstance(snap.Instances, "default-points") >= 0 {
		t.Fatalf("in-memory edits must survive a failed commit")
	}
}

func TestEngineBlocksDoubleSubmit(t *testing.T) {
	repo := newGatedRepository("upsert", "org-1")
	f := newEngineFixture(repo)
	e := f.engine(adminSession)
	e.Load(context.Background())
	e.EnterEdit()

	done := make(chan error, 1)
	go func() { done <- e.Publish(context.Background()) }()
	<-repo.entered

	if err := e.Publish(context.Background()); !errors.Is(err, ErrCommitPending) {
		t.Fatalf("expected ErrCommitPending, got %v", err)
	}
	if err := e.Remove("default-points"); !errors.Is(err, ErrCommitPending) {
		t.Fatalf("mutations wait for the commit, got %v", err)
	}
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("publish: %v", err)
	}
	if e.State() != StateViewing {
		t.Fatalf("expected viewing after publish")
	}
}

func TestEngineDiscardsStaleLoad(t *testing.T) {
	repo := newGatedRepository("latest", "org-slow")
	f := newEngineFixture(repo)
	ctx := context.Background()
	f.store.SavePublished(ctx, "org-fast", []WidgetInstance{{ID: "fast", Key: WidgetPromo}}, "admin")

	e := f.engine(Session{OrganizationID: "org-slow"})
	result := make(chan bool, 1)
	go func() { result <- e.Load(ctx) }()
	<-repo.entered

	if !e.SwitchSession(ctx, Session{OrganizationID: "org-fast"}) {
		t.Fatalf("expected the newer load to apply")
	}
	close(repo.release)
	if applied := <-result; applied {
		t.Fatalf("stale load must be discarded")
	}
	snap := e.Snapshot()
	if snap.Session.OrganizationID != "org-fast" || len(snap.Instances) != 1 || snap.Instances[0].ID != "fast" {
		t.Fatalf("stale response overwrote state: %+v", snap)
	}
}

func TestEngineDraftAndVersions(t *testing.T) {
	f := newEngineFixture(nil)
	e := f.engine(adminSession)
	ctx := context.Background()
	e.Load(ctx)
	e.EnterEdit()

	if err := e.SaveDraft(ctx); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if e.State() != StateEditingOrg {
		t.Fatalf("draft keeps edit mode")
	}
	versions, err := e.Versions(ctx, 5)
	if err != nil || len(versions) != 1 || versions[0].Status != StatusDraft {
		t.Fatalf("expected one draft version, got %v %v", versions, err)
	}
	if f.store.FetchPublished(ctx, "org-1") != nil {
		t.Fatalf("drafts must not publish")
	}
	if err := e.Save(ctx); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("personal save is not available in organization edit, got %v", err)
	}

	member := f.engine(memberSession)
	if _, err := member.Versions(ctx, 5); !errors.Is(err, ErrForbidden) {
		t.Fatalf("members cannot list versions, got %v", err)
	}
}

func TestEnginePreviewFlow(t *testing.T) {
	f := newEngineFixture(nil)
	ctx := context.Background()
	f.store.SavePublished(ctx, "org-1", []WidgetInstance{{ID: "v1", Key: WidgetPromo}}, "admin-1")
	f.store.SavePublished(ctx, "org-1", []WidgetInstance{{ID: "v2", Key: WidgetPoints}}, "admin-1")
	versions := f.store.ListVersions(ctx, "org-1", 5)
	oldest := versions[len(versions)-1].ID

	e := f.engine(adminSession)
	e.Load(ctx)
	e.EnterEdit()

	if err := e.PreviewVersion(ctx, 12345); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
	if err := e.PreviewVersion(ctx, oldest); err != nil {
		t.Fatalf("preview: %v", err)
	}
	snap := e.Snapshot()
	if !snap.Previewing() || snap.Instances[0].ID != "v1" {
		t.Fatalf("expected preview of v1, got %+v", snap)
	}
	if err := e.Remove("v1"); !errors.Is(err, ErrPreviewActive) {
		t.Fatalf("expected ErrPreviewActive, got %v", err)
	}

	if err := e.ExitPreview(ctx); err != nil {
		t.Fatalf("exit preview: %v", err)
	}
	snap = e.Snapshot()
	if snap.Previewing() || snap.Instances[0].ID != "v2" || snap.State != StateEditingOrg {
		t.Fatalf("expected current published layout, got %+v", snap)
	}
	if err := e.ExitPreview(ctx); !errors.Is(err, ErrNoPreview) {
		t.Fatalf("expected ErrNoPreview, got %v", err)
	}

	e.PreviewVersion(ctx, oldest)
	if err := e.PublishPreview(ctx); err != nil {
		t.Fatalf("publish preview: %v", err)
	}
	if e.State() != StateViewing || e.Snapshot().Previewing() {
		t.Fatalf("publishing a preview exits it")
	}
	if got := f.store.FetchPublished(ctx, "org-1").Instances[0].ID; got != "v1" {
		t.Fatalf("expected v1 published, got %s", got)
	}
	if n := len(f.store.ListVersions(ctx, "org-1", 10)); n != 3 {
		t.Fatalf("expected three versions, got %d", n)
	}
}

func TestEngineRollback(t *testing.T) {
	f := newEngineFixture(nil)
	ctx := context.Background()
	f.store.SavePublished(ctx, "org-1", []WidgetInstance{{ID: "v1", Key: WidgetPromo}}, "admin-1")
	f.store.SavePublished(ctx, "org-1", []WidgetInstance{{ID: "v2", Key: WidgetPoints}}, "admin-1")
	oldest := f.store.ListVersions(ctx, "org-1", 5)[1].ID

	e := f.engine(adminSession)
	e.Load(ctx)
	e.EnterEdit()
	if err := e.Rollback(ctx, oldest); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	snap := e.Snapshot()
	if snap.State != StateEditingOrg || snap.Source != SourcePublished || snap.Instances[0].ID != "v1" {
		t.Fatalf("expected rolled back layout in organization edit, got %+v", snap)
	}
	if err := e.Remove("v1"); err != nil {
		t.Fatalf("editing continues after rollback: %v", err)
	}
}

func TestEngineCancelDiscardsEdits(t *testing.T) {
	f := newEngineFixture(nil)
	e := f.engine(memberSession)
	ctx := context.Background()
	e.Load(ctx)
	e.EnterEdit()
	e.Remove("default-points")

	if err := e.Cancel(ctx); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	snap := e.Snapshot()
	if snap.State != StateViewing || snap.Dirty || indexOfInstance(snap.Instances, "default-points") < 0 {
		t.Fatalf("cancel must restore the persisted layout, got %+v", snap)
	}
}

func TestEngineSaveOverride(t *testing.T) {
	f := newEngineFixture(nil)
	e := f.engine(memberSession)
	ctx := context.Background()
	e.Load(ctx)
	e.EnterEdit()
	e.Remove("default-steps")

	if err := e.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if e.State() != StateViewing || e.Snapshot().Source != SourceOverride {
		t.Fatalf("save returns to viewing with the override")
	}
	override := f.store.FetchUserOverride(ctx, "org-1", "member-1")
	if override == nil || len(override.Instances) != len(ScaffoldInstances())-1 {
		t.Fatalf("expected override persisted, got %+v", override)
	}
	if f.store.FetchPublished(ctx, "org-1") != nil {
		t.Fatalf("personal saves must not publish")
	}
}

func TestEngineAdminPersonalEdit(t *testing.T) {
	f := newEngineFixture(nil)
	e := f.engine(adminSession)
	e.Load(context.Background())
	if err := e.EnterPersonalEdit(); err != nil {
		t.Fatalf("personal edit: %v", err)
	}
	if e.State() != StateEditingUser {
		t.Fatalf("expected personal edit, got %s", e.State())
	}
	if err := e.Publish(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("publish is not available in personal edit, got %v", err)
	}
}

func TestEngineLongPressEntersEdit(t *testing.T) {
	clock := &manualScheduler{}
	f := newEngineFixture(nil)
	var states []EngineState
	e := f.engine(adminSession, func(o *EngineOptions) {
		o.Scheduler = clock
		o.OnChange = func(s EngineSnapshot) { states = append(states, s.State) }
	})
	e.Load(context.Background())

	e.PressStart()
	clock.Advance(200 * time.Millisecond)
	e.PressEnd()
	clock.Advance(time.Second)
	if e.State() != StateViewing {
		t.Fatalf("short press must not enter edit")
	}

	e.PressStart()
	clock.Advance(LongPressDelay)
	if e.State() != StateEditingOrg {
		t.Fatalf("long press should enter edit, got %s", e.State())
	}
	if states[len(states)-1] != StateEditingOrg {
		t.Fatalf("observers should see the transition, got %v", states)
	}
}

func TestEngineToggleEdit(t *testing.T) {
	e := newEngineFixture(nil).engine(memberSession)
	ctx := context.Background()
	e.Load(ctx)
	if err := e.ToggleEdit(ctx); err != nil || e.State() != StateEditingUser {
		t.Fatalf("toggle on: %s %v", e.State(), err)
	}
	if err := e.ToggleEdit(ctx); err != nil || e.State() != StateViewing {
		t.Fatalf("toggle off: %s %v", e.State(), err)
	}
}

func TestEngineRenderGating(t *testing.T) {
	f := newEngineFixture(nil)
	f.gate = StaticFeatureGate{}
	ctx := context.Background()

	member := f.engine(memberSession)
	member.Load(ctx)
	for _, w := range member.Render(ctx) {
		if w.Key == WidgetFeaturedEvent || w.Key == WidgetSteps {
			t.Fatalf("gated widget %s visible to a member", w.Key)
		}
	}

	admin := f.engine(adminSession)
	admin.Load(ctx)
	admin.EnterEdit()
	var notice string
	for _, w := range admin.Render(ctx) {
		if w.Key == WidgetFeaturedEvent {
			notice = w.Notice
			if w.State != RenderGated {
				t.Fatalf("expected gated state, got %s", w.State)
			}
		}
	}
	if notice != "Enable events feature to use “Featured Event”." {
		t.Fatalf("unexpected notice %q", notice)
	}
}

func TestEngineLoadDuringCommitIsDiscarded(t *testing.T) {
	repo := newGatedRepository("upsert", "org-1")
	f := newEngineFixture(repo)
	ctx := context.Background()
	e := f.engine(adminSession)
	e.Load(ctx)
	e.EnterEdit()
	if err := e.Remove("default-points"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Publish(ctx) }()
	<-repo.entered

	if e.Load(ctx) {
		t.Fatalf("a load during a pending commit must not apply")
	}
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("publish: %v", err)
	}

	snap := e.Snapshot()
	published := f.store.FetchPublished(ctx, "org-1")
	if published == nil || len(snap.Instances) != len(published.Instances) {
		t.Fatalf("engine shows %d instances, store published %v", len(snap.Instances), published)
	}
	for i := range snap.Instances {
		if snap.Instances[i].ID != published.Instances[i].ID {
			t.Fatalf("instance %d: engine %s, published %s", i, snap.Instances[i].ID, published.Instances[i].ID)
		}
	}
	if snap.Source != SourcePublished || snap.State != StateViewing {
		t.Fatalf("expected published view, got %s in %s", snap.Source, snap.State)
	}
}

func seedTwoVersions(t *testing.T, f *engineFixture) (oldest int64) {
	t.Helper()
	ctx := context.Background()
	f.store.SavePublished(ctx, "org-1", []WidgetInstance{{ID: "v1", Key: WidgetPromo}}, "admin-1")
	f.store.SavePublished(ctx, "org-1", []WidgetInstance{{ID: "v2", Key: WidgetPoints}}, "admin-1")
	versions := f.store.ListVersions(ctx, "org-1", 5)
	if len(versions) != 2 {
		t.Fatalf("expected two versions, got %d", len(versions))
	}
	return versions[1].ID
}

func TestEngineDropsPreviewAfterCancel(t *testing.T) {
	repo := newGatedRepository("version", "org-1")
	f := newEngineFixture(repo)
	oldest := seedTwoVersions(t, f)
	ctx := context.Background()
	e := f.engine(adminSession)
	e.Load(ctx)
	e.EnterEdit()

	done := make(chan error, 1)
	go func() { done <- e.PreviewVersion(ctx, oldest) }()
	<-repo.entered

	if err := e.Cancel(ctx); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("preview: %v", err)
	}

	snap := e.Snapshot()
	if snap.Previewing() || snap.Source != SourcePublished || snap.State != StateViewing {
		t.Fatalf("late preview landed after cancel: %+v", snap)
	}
	if len(snap.Instances) != 1 || snap.Instances[0].ID != "v2" {
		t.Fatalf("expected current published layout, got %v", instanceKeys(snap.Instances))
	}
	if err := e.EnterEdit(); err != nil {
		t.Fatalf("enter edit: %v", err)
	}
	if err := e.Remove("v2"); err != nil {
		t.Fatalf("mutations must not be blocked by a dropped preview: %v", err)
	}
}

func TestEngineDropsPreviewAfterSessionSwitch(t *testing.T) {
	repo := newGatedRepository("version", "org-1")
	f := newEngineFixture(repo)
	oldest := seedTwoVersions(t, f)
	ctx := context.Background()
	e := f.engine(adminSession)
	e.Load(ctx)
	e.EnterEdit()

	done := make(chan error, 1)
	go func() { done <- e.PreviewVersion(ctx, oldest) }()
	<-repo.entered

	e.SwitchSession(ctx, Session{OrganizationID: "org-2", UserID: "admin-2", IsAdmin: true})
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("preview: %v", err)
	}

	snap := e.Snapshot()
	if snap.Session.OrganizationID != "org-2" || snap.Previewing() || snap.Source != SourceScaffold {
		t.Fatalf("preview for the previous organization leaked: %+v", snap)
	}
}

func TestEngineRollbackIgnoredAfterSessionSwitch(t *testing.T) {
	repo := newGatedRepository("version", "org-1")
	f := newEngineFixture(repo)
	oldest := seedTwoVersions(t, f)
	ctx := context.Background()
	e := f.engine(adminSession)
	e.Load(ctx)
	e.EnterEdit()

	done := make(chan error, 1)
	go func() { done <- e.Rollback(ctx, oldest) }()
	<-repo.entered

	e.SwitchSession(ctx, Session{OrganizationID: "org-2", UserID: "admin-2", IsAdmin: true})
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("rollback: %v", err)
	}

	snap := e.Snapshot()
	if snap.Session.OrganizationID != "org-2" || snap.State != StateViewing || snap.Source != SourceScaffold {
		t.Fatalf("rollback for the previous organization changed the view: %+v", snap)
	}
	for _, inst := range snap.Instances {
		if inst.ID == "v1" {
			t.Fatalf("rolled back instances leaked into org-2")
		}
	}
}
