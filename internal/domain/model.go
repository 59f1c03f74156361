package domain

import (
	"time"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/database"
)

// SearchAnalyticsModel is the GORM model for the search_analytics table.
// Rows are only ever inserted.
type SearchAnalyticsModel struct {
	ID            string               `gorm:"primaryKey;type:varchar(36)"`
	Query         string               `gorm:"column:query;type:varchar(256);not null"`
	Category      string               `gorm:"column:category;type:varchar(16);not null;index"`
	Timestamp     time.Time            `gorm:"column:timestamp;not null;index"`
	ResultCount   int                  `gorm:"column:result_count;not null"`
	Caller        string               `gorm:"column:caller;type:varchar(128);index"`
	UserAgent     string               `gorm:"column:user_agent;type:varchar(512)"`
	DurationMs    int64                `gorm:"column:duration_ms"`
	CacheHit      bool                 `gorm:"column:cache_hit"`
	Partial       bool                 `gorm:"column:partial"`
	FailedSources database.StringArray `gorm:"column:failed_sources"`
}

func (SearchAnalyticsModel) TableName() string { return "search_analytics" }

// ToModel converts a record to its row.
func (a *SearchAnalytics) ToModel() *SearchAnalyticsModel {
	return &SearchAnalyticsModel{
		ID:            a.ID,
		Query:         a.Query,
		Category:      string(a.Category),
		Timestamp:     a.Timestamp.UTC(),
		ResultCount:   a.ResultCount,
		Caller:        a.Caller,
		UserAgent:     a.UserAgent,
		DurationMs:    a.DurationMs,
		CacheHit:      a.CacheHit,
		Partial:       a.Partial,
		FailedSources: database.StringArray(a.FailedSources),
	}
}

// ToSearchAnalytics converts a row back to a record.
func (m *SearchAnalyticsModel) ToSearchAnalytics() SearchAnalytics {
	return SearchAnalytics{
		ID:            m.ID,
		Query:         m.Query,
		Category:      Category(m.Category),
		Timestamp:     m.Timestamp,
		ResultCount:   m.ResultCount,
		Caller:        m.Caller,
		UserAgent:     m.UserAgent,
		DurationMs:    m.DurationMs,
		CacheHit:      m.CacheHit,
		Partial:       m.Partial,
		FailedSources: []string(m.FailedSources),
	}
}
