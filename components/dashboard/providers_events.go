package dashboard

import (
	"context"
	"fmt"
	"time"
)

const (
	msgNoUpcomingEvents = "No upcoming events."
	msgNoFeaturedEvent  = "No upcoming event found."
)

func featuredEventProvider(events EventSource) Provider {
	return ProviderFunc(func(ctx context.Context, meta WidgetContext) (WidgetData, error) {
		if events == nil {
			return nil, emptyState(msgNoFeaturedEvent)
		}
		days := 14
		if cfg, ok := meta.Config.(*FeaturedEventConfig); ok && cfg.DaysAhead >= 0 {
			days = cfg.DaysAhead
		}
		until := meta.Now.Add(time.Duration(days) * 24 * time.Hour)
		list, err := events.Events(ctx, meta.Session.OrganizationID, meta.Now, until, 1)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, emptyState(msgNoFeaturedEvent)
		}
		return WidgetData{"event": eventView(list[0])}, nil
	})
}

func upcomingEventsProvider(events EventSource) Provider {
	return ProviderFunc(func(ctx context.Context, meta WidgetContext) (WidgetData, error) {
		if events == nil {
			return nil, emptyState(msgNoUpcomingEvents)
		}
		limit, filter := 3, FilterThisWeek
		if cfg, ok := meta.Config.(*UpcomingEventsConfig); ok {
			if cfg.Limit > 0 {
				limit = cfg.Limit
			}
			if cfg.Filter != "" {
				filter = cfg.Filter
			}
		}
		from, to := upcomingWindow(meta.Now, filter)
		list, err := events.Events(ctx, meta.Session.OrganizationID, from, to, limit)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, emptyState(msgNoUpcomingEvents)
		}
		views := make([]map[string]any, len(list))
		for i, e := range list {
			views[i] = eventView(e)
		}
		return WidgetData{"events": views, "filter": string(filter)}, nil
	})
}

func miniCalendarProvider(events EventSource) Provider {
	return ProviderFunc(func(ctx context.Context, meta WidgetContext) (WidgetData, error) {
		days := 7
		if cfg, ok := meta.Config.(*MiniCalendarConfig); ok && cfg.Days > 0 {
			days = cfg.Days
		}
		marks := map[string]int{}
		if events != nil {
			end := meta.Now.Add(time.Duration(days-1) * 24 * time.Hour)
			// A failed read renders an unmarked calendar.
			if list, err := events.Events(ctx, meta.Session.OrganizationID, meta.Now, end, 0); err == nil {
				marks = countByDay(list)
			}
		}
		cells := make([]map[string]any, days)
		for i := range cells {
			day := meta.Now.Add(time.Duration(i) * 24 * time.Hour)
			key := day.UTC().Format(time.DateOnly)
			cells[i] = map[string]any{
				"date":    key,
				"weekday": day.Weekday().String()[:2],
				"day":     day.Day(),
				"count":   marks[key],
			}
		}
		return WidgetData{"days": cells}, nil
	})
}

// upcomingWindow returns [now, end] where end is the end of today for the
// today filter and otherwise the end of the day (7 - weekday) days ahead.
func upcomingWindow(now time.Time, filter EventFilter) (time.Time, time.Time) {
	if filter == FilterToday {
		return now, endOfDay(now)
	}
	ahead := 7 - int(now.Weekday())
	return now, endOfDay(now.AddDate(0, 0, ahead))
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func countByDay(events []Event) map[string]int {
	out := make(map[string]int, len(events))
	for _, e := range events {
		out[e.StartTime.UTC().Format(time.DateOnly)]++
	}
	return out
}

func eventView(e Event) map[string]any {
	return map[string]any{
		"id":         e.ID,
		"title":      e.Title,
		"start_time": e.StartTime,
		"location":   e.Location,
		"image_url":  e.ImageURL,
		"price":      eventPrice(e),
		"href":       "/events/" + e.ID,
	}
}

func eventPrice(e Event) string {
	if e.LoyaltyPointsPrice != nil && *e.LoyaltyPointsPrice > 0 {
		return fmt.Sprintf("%d pts", *e.LoyaltyPointsPrice)
	}
	if e.PriceCents != nil && *e.PriceCents > 0 {
		return fmt.Sprintf("€%.2f", float64(*e.PriceCents)/100)
	}
	return "Free"
}
