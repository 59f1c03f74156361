package analytics

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/database"
)

const maxReadLimit = 1000

// DatabaseSink appends records to the search_analytics table.
type DatabaseSink struct {
	db *gorm.DB
}

// NewDatabaseSink creates a GORM-backed sink.
func NewDatabaseSink(db *gorm.DB) *DatabaseSink {
	return &DatabaseSink{db: db}
}

// Migrate creates or updates the table.
func (s *DatabaseSink) Migrate(ctx context.Context) error {
	return database.AutoMigrate(s.db.WithContext(ctx), &domain.SearchAnalyticsModel{})
}

func (s *DatabaseSink) Write(ctx context.Context, rec *domain.SearchAnalytics) error {
	if err := s.db.WithContext(ctx).Create(rec.ToModel()).Error; err != nil {
		return fmt.Errorf("insert search analytics: %w", err)
	}
	return nil
}

// Between returns records with from <= timestamp < to, oldest first. A zero
// bound is open.
func (s *DatabaseSink) Between(ctx context.Context, from, to time.Time, limit int) ([]domain.SearchAnalytics, error) {
	if limit <= 0 || limit > maxReadLimit {
		limit = maxReadLimit
	}

	q := s.db.WithContext(ctx).Model(&domain.SearchAnalyticsModel{})
	if !from.IsZero() {
		q = q.Where("timestamp >= ?", from.UTC())
	}
	if !to.IsZero() {
		q = q.Where("timestamp < ?", to.UTC())
	}

	var rows []domain.SearchAnalyticsModel
	if err := q.Order("timestamp ASC").Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query search analytics: %w", err)
	}

	out := make([]domain.SearchAnalytics, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToSearchAnalytics())
	}
	return out, nil
}
