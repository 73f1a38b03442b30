package dashboard

import (
	"context"
	"errors"
	"testing"
)

func newTestService(repo LayoutRepository) (*Service, *MemoryRepository) {
	mem := NewMemoryRepository()
	if repo == nil {
		repo = mem
	}
	store := NewLayoutStore(StoreOptions{Repository: repo, Now: steppingClock()})
	flags := NewFeatureFlags(FeatureOptions{Repository: mem})
	return NewService(Options{Store: store, Features: flags}), mem
}

func TestServiceLayoutFallsBackToScaffold(t *testing.T) {
	svc, _ := newTestService(nil)
	view, err := svc.Layout(context.Background(), memberSession, false)
	if err != nil {
		t.Fatalf("Layout returned error: %v", err)
	}
	if view.Source != SourceScaffold || len(view.Instances) != len(ScaffoldInstances()) {
		t.Fatalf("expected scaffold, got %s", view.Source)
	}
	for _, w := range view.Widgets {
		if w.State == RenderGated {
			t.Fatalf("members never see gated placeholders")
		}
	}
	if _, err := svc.Layout(context.Background(), Session{}, false); !errors.Is(err, errMissingOrganization) {
		t.Fatalf("expected missing organization, got %v", err)
	}
}

func TestServiceGatedNoticeOnlyForEditingAdmins(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	view, _ := svc.Layout(ctx, adminSession, true)
	gated := 0
	for _, w := range view.Widgets {
		if w.State == RenderGated {
			gated++
		}
	}
	if gated == 0 {
		t.Fatalf("expected gated placeholders for an editing admin")
	}

	view, _ = svc.Layout(ctx, memberSession, true)
	for _, w := range view.Widgets {
		if w.State == RenderGated {
			t.Fatalf("editing flag must not grant members the admin view")
		}
	}
}

func TestServicePublishRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(nil)
	instances := []WidgetInstance{{ID: "a", Key: WidgetPoints}}
	if err := svc.Publish(context.Background(), memberSession, instances); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Publish(context.Background(), adminSession, instances); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	view, _ := svc.Layout(context.Background(), memberSession, false)
	if view.Source != SourcePublished || view.Instances[0].ID != "a" {
		t.Fatalf("expected published layout, got %+v", view)
	}
}

func TestServiceNormalizeInstances(t *testing.T) {
	svc, _ := newTestService(nil)

	out, err := svc.NormalizeInstances([]WidgetInstance{
		{Key: WidgetPoints, Title: "  Points ", Layout: &Footprint{W: 9, H: 0}},
	})
	if err != nil {
		t.Fatalf("NormalizeInstances returned error: %v", err)
	}
	if out[0].ID == "" || out[0].Title != "Points" {
		t.Fatalf("expected generated id and trimmed title, got %+v", out[0])
	}
	if *out[0].Layout != (Footprint{W: 4, H: 1}) {
		t.Fatalf("expected clamped footprint, got %+v", *out[0].Layout)
	}

	cases := map[string][]WidgetInstance{
		"unknown key": {{ID: "x", Key: WidgetKey("weather")}},
		"duplicate":   {{ID: "x", Key: WidgetPoints}, {ID: "x", Key: WidgetPromo}},
		"bad props":   {{ID: "x", Key: WidgetUpcomingEvents, Props: map[string]any{"filter": "someday"}}},
	}
	for name, instances := range cases {
		if _, err := svc.NormalizeInstances(instances); !errors.Is(err, ErrInvalidLayout) {
			t.Fatalf("%s: expected ErrInvalidLayout, got %v", name, err)
		}
	}
}

func TestServicePublishPersistFailure(t *testing.T) {
	repo := &flakyRepository{MemoryRepository: NewMemoryRepository(), failUpsert: errors.New("down")}
	svc, _ := newTestService(repo)
	err := svc.Publish(context.Background(), adminSession, []WidgetInstance{{ID: "a", Key: WidgetPoints}})
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected ErrPersistFailed, got %v", err)
	}
}

func TestServiceVersionsAndRollback(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	svc.Publish(ctx, adminSession, []WidgetInstance{{ID: "v1", Key: WidgetPromo}})
	svc.Publish(ctx, adminSession, []WidgetInstance{{ID: "v2", Key: WidgetPoints}})

	versions, err := svc.Versions(ctx, adminSession, 0)
	if err != nil || len(versions) != 2 {
		t.Fatalf("expected two versions, got %v %v", versions, err)
	}
	oldest := versions[1].ID
	layout, err := svc.Version(ctx, adminSession, oldest)
	if err != nil || layout.Instances[0].ID != "v1" {
		t.Fatalf("expected v1 snapshot, got %+v %v", layout, err)
	}
	if _, err := svc.Version(ctx, adminSession, 999); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
	if err := svc.Rollback(ctx, adminSession, 999); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
	if err := svc.Rollback(ctx, adminSession, oldest); err != nil {
		t.Fatalf("Rollback returned error: %v", err)
	}
	versions, _ = svc.Versions(ctx, adminSession, 10)
	if len(versions) != 3 {
		t.Fatalf("rollback should append a version, got %d", len(versions))
	}
	if _, err := svc.Versions(ctx, memberSession, 5); !errors.Is(err, ErrForbidden) {
		t.Fatalf("members cannot list versions, got %v", err)
	}
}

func TestServiceOverrideLifecycle(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	mine := []WidgetInstance{{ID: "m1", Key: WidgetQuickActions}}

	if err := svc.SaveOverride(ctx, Session{OrganizationID: "org-1"}, mine); !errors.Is(err, ErrForbidden) {
		t.Fatalf("anonymous overrides must be refused, got %v", err)
	}
	if err := svc.SaveOverride(ctx, memberSession, mine); err != nil {
		t.Fatalf("SaveOverride returned error: %v", err)
	}
	view, _ := svc.Layout(ctx, memberSession, false)
	if view.Source != SourceOverride {
		t.Fatalf("expected override, got %s", view.Source)
	}
	if err := svc.ResetOverride(ctx, memberSession); err != nil {
		t.Fatalf("ResetOverride returned error: %v", err)
	}
	view, _ = svc.Layout(ctx, memberSession, false)
	if view.Source != SourceScaffold {
		t.Fatalf("expected scaffold after reset, got %s", view.Source)
	}
}

func TestServiceFeatures(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if err := svc.SetFeature(ctx, memberSession, FeatureCommerce, true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	for _, meta := range svc.AvailableWidgets(ctx, adminSession) {
		if meta.FeatureFlag == FeatureCommerce {
			t.Fatalf("commerce widgets offered before the flag is on")
		}
	}
	if err := svc.SetFeature(ctx, adminSession, FeatureCommerce, true); err != nil {
		t.Fatalf("SetFeature returned error: %v", err)
	}
	flags, err := svc.Features(ctx, memberSession)
	if err != nil || !flags[FeatureCommerce] || flags[FeatureEvents] {
		t.Fatalf("unexpected flags %v %v", flags, err)
	}
	found := false
	for _, meta := range svc.AvailableWidgets(ctx, adminSession) {
		if meta.Key == WidgetMiniCart {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected mini cart in picker once commerce is enabled")
	}
}

func TestServicePickerTranslatesCopy(t *testing.T) {
	svc := NewService(Options{
		Renderer: NewWidgetRenderer(RendererOptions{
			Translator: keyedTranslations{"es:dashboard.widget.quick-actions.description": "Atajos para tus miembros."},
		}),
	})
	session := memberSession
	session.Locale = "es"

	for _, meta := range svc.AvailableWidgets(context.Background(), session) {
		if meta.Key != WidgetQuickActions {
			continue
		}
		if meta.Name != "Acciones rápidas" || meta.Description != "Atajos para tus miembros." {
			t.Fatalf("expected localized picker entry, got %q / %q", meta.Name, meta.Description)
		}
		return
	}
	t.Fatalf("quick actions missing from the picker")
}

func TestServiceActorFromActivityContext(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := ContextWithActivity(context.Background(), ActivityContext{ActorID: "ops-bot"})
	if err := svc.Publish(ctx, adminSession, []WidgetInstance{{ID: "a", Key: WidgetPromo}}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	versions, _ := svc.Versions(ctx, adminSession, 1)
	if versions[0].CreatedBy != "ops-bot" {
		t.Fatalf("expected actor from context, got %q", versions[0].CreatedBy)
	}
}
