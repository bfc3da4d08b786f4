package repository

import (
	"context"
	"fmt"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"gorm.io/gorm"
)

// ReportRepository stores weekly reports.
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository returns a report store over db.
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// SaveReport always inserts; repeated reports for one week are kept.
func (r *ReportRepository) SaveReport(ctx context.Context, report *domain.WeeklyReport) error {
	report.WeekStart = report.WeekStart.UTC()
	report.WeekEnd = report.WeekEnd.UTC()
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to save weekly report: %w", err)
	}
	return nil
}

func (r *ReportRepository) ListReports(ctx context.Context, userID uint, limit int) ([]domain.WeeklyReport, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var reports []domain.WeeklyReport
	if err := q.Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list weekly reports: %w", err)
	}
	return reports, nil
}
