package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Feed payloads are refreshed every few minutes; older copies only serve
	// as a fallback while the feed is down
	TTLFeedResponse = 24 * time.Hour

	// Brush selections outlive restarts but not abandoned dashboards
	TTLChartRange = 30 * 24 * time.Hour
)
