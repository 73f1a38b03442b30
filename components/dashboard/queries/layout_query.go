package queries

import (
	"context"
	"errors"

	dashboard "github.com/girlsclub/modular-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// LayoutInput identifies the viewer and whether they are editing.
type LayoutInput struct {
	Session dashboard.Session
	Editing bool
}

type layoutService interface {
	Layout(ctx context.Context, session dashboard.Session, editing bool) (dashboard.LayoutView, error)
}

// LayoutQuery executes read-only layout resolution.
type LayoutQuery struct {
	service layoutService
}

// NewLayoutQuery builds the query.
func NewLayoutQuery(service layoutService) *LayoutQuery {
	return &LayoutQuery{service: service}
}

var _ gocommand.Querier[LayoutInput, dashboard.LayoutView] = (*LayoutQuery)(nil)

// Query resolves and renders the effective layout for the viewer.
func (q *LayoutQuery) Query(ctx context.Context, input LayoutInput) (dashboard.LayoutView, error) {
	if q.service == nil {
		return dashboard.LayoutView{}, errors.New("layout query requires service")
	}
	return q.service.Layout(ctx, input.Session, input.Editing)
}
