package queries

import (
	"context"
	"errors"

	dashboard "github.com/girlsclub/modular-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

type pickerService interface {
	AvailableWidgets(ctx context.Context, session dashboard.Session) []dashboard.WidgetMeta
}

// AvailableWidgetsQuery lists the catalog entries the picker may offer.
type AvailableWidgetsQuery struct {
	service pickerService
}

// NewAvailableWidgetsQuery builds the query.
func NewAvailableWidgetsQuery(service pickerService) *AvailableWidgetsQuery {
	return &AvailableWidgetsQuery{service: service}
}

var _ gocommand.Querier[dashboard.Session, []dashboard.WidgetMeta] = (*AvailableWidgetsQuery)(nil)

// Query filters the catalog by the organization's feature flags.
func (q *AvailableWidgetsQuery) Query(ctx context.Context, session dashboard.Session) ([]dashboard.WidgetMeta, error) {
	if q.service == nil {
		return nil, errors.New("widgets query requires service")
	}
	return q.service.AvailableWidgets(ctx, session), nil
}
