package queries

import (
	"context"
	"errors"

	dashboard "github.com/girlsclub/modular-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// VersionsInput pages through published history.
type VersionsInput struct {
	Session dashboard.Session
	Limit   int
}

// VersionInput identifies a single snapshot.
type VersionInput struct {
	Session   dashboard.Session
	VersionID int64
}

type versionService interface {
	Versions(ctx context.Context, session dashboard.Session, limit int) ([]dashboard.VersionSummary, error)
	Version(ctx context.Context, session dashboard.Session, versionID int64) (*dashboard.OrgLayout, error)
}

// VersionsQuery lists version summaries, newest first.
type VersionsQuery struct {
	service versionService
}

// NewVersionsQuery builds the query.
func NewVersionsQuery(service versionService) *VersionsQuery {
	return &VersionsQuery{service: service}
}

var _ gocommand.Querier[VersionsInput, []dashboard.VersionSummary] = (*VersionsQuery)(nil)

// Query returns up to Limit summaries.
func (q *VersionsQuery) Query(ctx context.Context, input VersionsInput) ([]dashboard.VersionSummary, error) {
	if q.service == nil {
		return nil, errors.New("versions query requires service")
	}
	return q.service.Versions(ctx, input.Session, input.Limit)
}

// VersionQuery loads one snapshot for preview.
type VersionQuery struct {
	service versionService
}

// NewVersionQuery builds the query.
func NewVersionQuery(service versionService) *VersionQuery {
	return &VersionQuery{service: service}
}

var _ gocommand.Querier[VersionInput, *dashboard.OrgLayout] = (*VersionQuery)(nil)

// Query returns the snapshot or dashboard.ErrVersionNotFound.
func (q *VersionQuery) Query(ctx context.Context, input VersionInput) (*dashboard.OrgLayout, error) {
	if q.service == nil {
		return nil, errors.New("version query requires service")
	}
	return q.service.Version(ctx, input.Session, input.VersionID)
}
