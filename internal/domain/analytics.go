package domain

// ============================================================
// Dashboard analytics
// ============================================================

// DashboardSummary aggregates stored engagements and visits for the
// read-only dashboard.
type DashboardSummary struct {
	Engagements EngagementStats `json:"engagements"`
	Visits      VisitStats      `json:"visits"`
	GeneratedAt string          `json:"generated_at"`
}

// EngagementStats summarizes the engagements table.
type EngagementStats struct {
	Total           int            `json:"total"`
	UniqueCustomers int            `json:"unique_customers"`
	Answered        int            `json:"answered"`
	AnsweredRate    float64        `json:"answered_rate"`
	ByStatus        map[string]int `json:"by_status"`
	TopTags         []CountBy      `json:"top_tags"`
}

// VisitStats summarizes the visits table.
type VisitStats struct {
	Total           int       `json:"total"`
	Conversions     int       `json:"conversions"`
	ConversionRate  float64   `json:"conversion_rate"`
	AvgDwellSeconds float64   `json:"avg_dwell_seconds"`
	BySource        []CountBy `json:"by_source"`
	ByDevice        []CountBy `json:"by_device"`
	TopPages        []CountBy `json:"top_pages"`
}

// CountBy is one bucket of a grouped count, sorted by Count descending.
type CountBy struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// IngestionMetrics is returned by GET /v1/metrics/ingestion.
type IngestionMetrics struct {
	Accepted   map[string]int64 `json:"accepted"`
	Duplicates map[string]int64 `json:"duplicates"`
	Rejected   map[string]int64 `json:"rejected"`
	Malformed  map[string]int64 `json:"malformed"`
	Failed     map[string]int64 `json:"failed"`
	Sentinels  map[string]int64 `json:"sentinels"`
	Period     string           `json:"period"`
}
