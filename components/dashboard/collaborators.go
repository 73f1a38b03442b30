package dashboard

import (
	"context"
	"time"
)

// Event is an organization event shown by the event widgets.
type Event struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	StartTime          time.Time `json:"start_time"`
	Location           string    `json:"location,omitempty"`
	ImageURL           string    `json:"image_url,omitempty"`
	PriceCents         *int      `json:"price_cents,omitempty"`
	LoyaltyPointsPrice *int      `json:"loyalty_points_price,omitempty"`
}

// EventSource lists events starting within [from, to], soonest first. A
// non-positive limit returns every match.
type EventSource interface {
	Events(ctx context.Context, orgID string, from, to time.Time, limit int) ([]Event, error)
}

// Post is a community post ranked by likes.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content,omitempty"`
	CoverURL   string    `json:"cover_url,omitempty"`
	LikesCount int       `json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// PostSource lists the most liked posts.
type PostSource interface {
	TopPosts(ctx context.Context, orgID string, limit int) ([]Post, error)
}

// LeaderboardEntry is one walking challenge participant.
type LeaderboardEntry struct {
	Name       string `json:"user_full_name"`
	TotalSteps int    `json:"total_steps"`
}

// StepsDay is a member's step count for one day.
type StepsDay struct {
	Day   string `json:"day"`
	Steps int    `json:"steps"`
}

// ChallengeSource reads walking challenge data.
type ChallengeSource interface {
	Leaderboard(ctx context.Context, orgID string, limit int) ([]LeaderboardEntry, error)
	Steps(ctx context.Context, orgID, userID, timeframe string) ([]StepsDay, error)
}

// PointsSource reads a member's available loyalty points.
type PointsSource interface {
	AvailablePoints(ctx context.Context, orgID, userID string) (int, error)
}

// Product is a storefront product.
type Product struct {
	ID       string `json:"id"`
	Handle   string `json:"handle"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url,omitempty"`
	Price    string `json:"price,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// Cart summarizes the member's storefront cart.
type Cart struct {
	LineCount   int    `json:"line_count"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// Storefront is a connected commerce backend for one organization.
type Storefront interface {
	DefaultCollection() string
	ProductsByCollection(ctx context.Context, handle string, first int) ([]Product, error)
	ProductByHandle(ctx context.Context, handle string) (*Product, error)
	Cart(ctx context.Context, userID string) (*Cart, error)
}

// CommerceSource resolves an organization's storefront. It returns nil when
// commerce is not configured or disabled.
type CommerceSource interface {
	Storefront(ctx context.Context, orgID string) (Storefront, error)
}
