package dashboard

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"
)

// RenderCache memoizes rendered chart HTML so repeated renders are cheap.
type RenderCache interface {
	GetOrRender(key string, render func() (string, error)) (string, error)
}

// ChartCache is an in-memory TTL cache for rendered charts.
type ChartCache struct {
	entries *ttlCache[string]
}

// NewChartCache builds a cache with the provided TTL.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{entries: newTTLCache[string](ttl)}
}

// GetOrRender returns a cached entry or renders and stores a new one.
// Render errors are not cached.
func (c *ChartCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if html, ok := c.entries.get(key); ok {
		return html, nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	c.entries.set(key, html)
	return html, nil
}

// chartKey identifies a chart by widget and the data it plots.
func chartKey(inst WidgetInstance, data any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return inst.ID + ":invalid"
	}
	sum := sha1.Sum(b)
	return string(inst.Key) + ":" + inst.ID + ":" + hex.EncodeToString(sum[:])
}
