package queries

import (
	"context"
	"errors"
	"testing"

	dashboard "github.com/girlsclub/modular-dashboard/components/dashboard"
)

type stubService struct {
	layoutCalls   int
	widgetCalls   int
	versionsLimit int
	editing       bool
}

func (s *stubService) Layout(_ context.Context, _ dashboard.Session, editing bool) (dashboard.LayoutView, error) {
	s.layoutCalls++
	s.editing = editing
	return dashboard.LayoutView{Source: dashboard.SourceScaffold}, nil
}

func (s *stubService) AvailableWidgets(context.Context, dashboard.Session) []dashboard.WidgetMeta {
	s.widgetCalls++
	return []dashboard.WidgetMeta{{Key: dashboard.WidgetPoints}}
}

func (s *stubService) Versions(_ context.Context, _ dashboard.Session, limit int) ([]dashboard.VersionSummary, error) {
	s.versionsLimit = limit
	return []dashboard.VersionSummary{{ID: 2}, {ID: 1}}, nil
}

func (s *stubService) Version(_ context.Context, _ dashboard.Session, id int64) (*dashboard.OrgLayout, error) {
	if id != 1 {
		return nil, dashboard.ErrVersionNotFound
	}
	return &dashboard.OrgLayout{OrganizationID: "org-1"}, nil
}

func TestLayoutQuery(t *testing.T) {
	service := &stubService{}
	query := NewLayoutQuery(service)
	view, err := query.Query(context.Background(), LayoutInput{Editing: true})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if service.layoutCalls != 1 || !service.editing || view.Source != dashboard.SourceScaffold {
		t.Fatalf("unexpected layout call %+v %+v", service, view)
	}
	if _, err := NewLayoutQuery(nil).Query(context.Background(), LayoutInput{}); err == nil {
		t.Fatalf("expected error without service")
	}
}

func TestAvailableWidgetsQuery(t *testing.T) {
	service := &stubService{}
	widgets, err := NewAvailableWidgetsQuery(service).Query(context.Background(), dashboard.Session{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(widgets) != 1 || service.widgetCalls != 1 {
		t.Fatalf("expected one widget, got %v", widgets)
	}
}

func TestVersionQueries(t *testing.T) {
	service := &stubService{}
	ctx := context.Background()
	versions, err := NewVersionsQuery(service).Query(ctx, VersionsInput{Limit: 5})
	if err != nil || len(versions) != 2 || service.versionsLimit != 5 {
		t.Fatalf("unexpected versions %v %v", versions, err)
	}
	if _, err := NewVersionQuery(service).Query(ctx, VersionInput{VersionID: 9}); !errors.Is(err, dashboard.ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
	layout, err := NewVersionQuery(service).Query(ctx, VersionInput{VersionID: 1})
	if err != nil || layout.OrganizationID != "org-1" {
		t.Fatalf("unexpected snapshot %+v %v", layout, err)
	}
}
