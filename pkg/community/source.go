// Package community reads the club data shown by the community widgets
// (events, posts, walking challenges and loyalty points) from Supabase.
package community

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/girlsclub/modular-dashboard/pkg/postgrest"
)

const (
	eventColumns       = "id,title,start_time,location,image_url,price_cents,loyalty_points_price"
	postColumns        = "id,title,content,cover_url,likes_count,created_at"
	leaderboardColumns = "user_full_name,total_steps"
	stepsColumns       = "day,steps"
)

// Source implements the dashboard community collaborators on PostgREST.
type Source struct {
	client *postgrest.Client
	now    func() time.Time
}

// Option customizes a Source.
type Option func(*Source)

// WithClock overrides the clock used to resolve step timeframes.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Source.
func New(client *postgrest.Client, opts ...Option) *Source {
	s := &Source{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type eventRow struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	StartTime          time.Time `json:"start_time"`
	Location           *string   `json:"location"`
	ImageURL           *string   `json:"image_url"`
	PriceCents         *int      `json:"price_cents"`
	LoyaltyPointsPrice *int      `json:"loyalty_points_price"`
}

// Events lists events starting within [from, to], soonest first.
func (s *Source) Events(ctx context.Context, orgID string, from, to time.Time, limit int) ([]dashboard.Event, error) {
	q := s.client.From("events").
		Select(eventColumns).
		Eq("organization_id", orgID).
		Gte("start_time", from)
	if !to.IsZero() {
		q = q.Lte("start_time", to)
	}
	var rows []eventRow
	if err := q.Order("start_time", true).Limit(limit).Rows(ctx, &rows); err != nil {
		return nil, fmt.Errorf("community: events: %w", err)
	}
	out := make([]dashboard.Event, len(rows))
	for i, row := range rows {
		out[i] = dashboard.Event{
			ID:                 row.ID,
			Title:              row.Title,
			StartTime:          row.StartTime,
			Location:           str(row.Location),
			ImageURL:           str(row.ImageURL),
			PriceCents:         row.PriceCents,
			LoyaltyPointsPrice: row.LoyaltyPointsPrice,
		}
	}
	return out, nil
}

type postRow struct {
	ID         string    `json:"id"`
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	CoverURL   *string   `json:"cover_url"`
	LikesCount *int      `json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// TopPosts lists the most liked posts.
func (s *Source) TopPosts(ctx context.Context, orgID string, limit int) ([]dashboard.Post, error) {
	var rows []postRow
	err := s.client.From("posts").
		Select(postColumns).
		Eq("organization_id", orgID).
		Order("likes_count", false).
		Limit(limit).
		Rows(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("community: posts: %w", err)
	}
	out := make([]dashboard.Post, len(rows))
	for i, row := range rows {
		likes := 0
		if row.LikesCount != nil {
			likes = *row.LikesCount
		}
		out[i] = dashboard.Post{
			ID:         row.ID,
			Title:      str(row.Title),
			Content:    str(row.Content),
			CoverURL:   str(row.CoverURL),
			LikesCount: likes,
			CreatedAt:  row.CreatedAt,
		}
	}
	return out, nil
}

// Leaderboard lists walking challenge participants by total steps.
func (s *Source) Leaderboard(ctx context.Context, orgID string, limit int) ([]dashboard.LeaderboardEntry, error) {
	var rows []dashboard.LeaderboardEntry
	err := s.client.From("walking_leaderboards").
		Select(leaderboardColumns).
		Eq("organization_id", orgID).
		Order("total_steps", false).
		Limit(limit).
		Rows(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("community: leaderboard: %w", err)
	}
	return rows, nil
}

// Steps returns the member's daily steps for the trailing week or month.
func (s *Source) Steps(ctx context.Context, orgID, userID, timeframe string) ([]dashboard.StepsDay, error) {
	if userID == "" {
		return []dashboard.StepsDay{}, nil
	}
	since := Since(s.now(), timeframe)
	var rows []dashboard.StepsDay
	err := s.client.From("walking_daily_steps").
		Select(stepsColumns).
		Eq("organization_id", orgID).
		Eq("user_id", userID).
		Gte("day", since.Format(time.DateOnly)).
		Order("day", true).
		Rows(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("community: steps: %w", err)
	}
	return rows, nil
}

// Since returns the first day covered by a timeframe: six days back for
// "week" (the default) and twenty nine for "month".
func Since(now time.Time, timeframe string) time.Time {
	days := 6
	if timeframe == "month" {
		days = 29
	}
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}

type profileRow struct {
	AvailableLoyaltyPoints *int `json:"available_loyalty_points"`
}

// AvailablePoints reads the member's loyalty balance. Unknown members have
// zero points.
func (s *Source) AvailablePoints(ctx context.Context, _ string, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	var row profileRow
	err := s.client.From("profiles").
		Select("available_loyalty_points").
		Eq("id", userID).
		Single(ctx, &row)
	if errors.Is(err, postgrest.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("community: points: %w", err)
	}
	if row.AvailableLoyaltyPoints == nil {
		return 0, nil
	}
	return *row.AvailableLoyaltyPoints, nil
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

var (
	_ dashboard.EventSource     = (*Source)(nil)
	_ dashboard.PostSource      = (*Source)(nil)
	_ dashboard.ChallengeSource = (*Source)(nil)
	_ dashboard.PointsSource    = (*Source)(nil)
)
