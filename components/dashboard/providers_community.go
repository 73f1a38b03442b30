package dashboard

import (
	"context"
	"fmt"
)

const (
	msgNoHighlights  = "Highlights will appear here once your community posts."
	msgNoLeaderboard = "Connect challenges to show a leaderboard."
	msgNoSteps       = "Connect challenges to track your steps."
)

func highlightsProvider(posts PostSource) Provider {
	return ProviderFunc(func(ctx context.Context, meta WidgetContext) (WidgetData, error) {
		if posts == nil {
			return nil, emptyState(msgNoHighlights)
		}
		limit := 3
		if cfg, ok := meta.Config.(*CommunityHighlightsConfig); ok && cfg.Limit > 0 {
			limit = cfg.Limit
		}
		list, err := posts.TopPosts(ctx, meta.Session.OrganizationID, limit)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, emptyState(msgNoHighlights)
		}
		views := make([]map[string]any, len(list))
		for i, p := range list {
			views[i] = map[string]any{
				"id":          p.ID,
				"title":       p.Title,
				"content":     p.Content,
				"cover_url":   p.CoverURL,
				"likes_count": p.LikesCount,
				"created_at":  p.CreatedAt,
			}
		}
		return WidgetData{"posts": views}, nil
	})
}

func pointsProvider(points PointsSource) Provider {
	return ProviderFunc(func(ctx context.Context, meta WidgetContext) (WidgetData, error) {
		available := 0
		if points != nil && meta.Session.SignedIn() {
			// Unreadable balances show as zero.
			if v, err := points.AvailablePoints(ctx, meta.Session.OrganizationID, meta.Session.UserID); err == nil {
				available = v
			}
		}
		label := translateOrFallback(ctx, meta.Translator, "dashboard.points.available", meta.Session.Locale, "Available Points", nil)
		return WidgetData{"label": label, "points": available}, nil
	})
}

func leaderboardProvider(challenges ChallengeSource, charts *ChartRenderer) Provider {
	return ProviderFunc(func(ctx context.Context, meta WidgetContext) (WidgetData, error) {
		if challenges == nil {
			return nil, emptyState(msgNoLeaderboard)
		}
		limit := 5
		if cfg, ok := meta.Config.(*LeaderboardConfig); ok && cfg.Limit > 0 {
			limit = cfg.Limit
		}
		rows, err := challenges.Leaderboard(ctx, meta.Session.OrganizationID, limit)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, emptyState(msgNoLeaderboard)
		}
		views := make([]map[string]any, len(rows))
		points := make([]ChartPoint, len(rows))
		for i, row := range rows {
			name := row.Name
			if name == "" {
				name = "Member"
			}
			views[i] = map[string]any{
				"rank":        i + 1,
				"name":        name,
				"total_steps": row.TotalSteps,
			}
			points[i] = ChartPoint{Label: name, Value: float64(row.TotalSteps)}
		}
		data := WidgetData{"rows": views}
		if html, err := charts.Bar(meta.Instance, meta.Title(), "Steps", points); err == nil {
			data["chart_html"] = html
		}
		return data, nil
	})
}

func stepsProvider(challenges ChallengeSource, charts *ChartRenderer) Provider {
	return ProviderFunc(func(ctx context.Context, meta WidgetContext) (WidgetData, error) {
		if challenges == nil || !meta.Session.SignedIn() {
			return nil, emptyState(msgNoSteps)
		}
		timeframe := "week"
		if cfg, ok := meta.Config.(*StepsConfig); ok && cfg.Timeframe != "" {
			timeframe = cfg.Timeframe
		}
		days, err := challenges.Steps(ctx, meta.Session.OrganizationID, meta.Session.UserID, timeframe)
		if err != nil {
			return nil, err
		}
		if len(days) == 0 {
			return nil, emptyState(msgNoSteps)
		}
		total := 0
		points := make([]ChartPoint, len(days))
		for i, d := range days {
			total += d.Steps
			points[i] = ChartPoint{Label: d.Day, Value: float64(d.Steps)}
		}
		data := WidgetData{
			"timeframe": timeframe,
			"total":     total,
			"summary":   fmt.Sprintf("%d steps this %s", total, timeframe),
		}
		if html, err := charts.Line(meta.Instance, meta.Title(), "Steps", points); err == nil {
			data["chart_html"] = html
		}
		return data, nil
	})
}
