package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/public_alert_system/internal/models"
)

// ReportRepository - журнал отчетов в PostgreSQL, только добавление
type ReportRepository struct {
	db *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// SaveReport сохраняет отчет в бд
func (r *ReportRepository) SaveReport(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (id, title, type, description, lat, lng, evidence_url, source, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.db.Exec(ctx, query,
		report.ID,
		report.Title,
		string(report.Type),
		nullableString(report.Description),
		report.Location.Lat,
		report.Location.Lng,
		nullableString(report.EvidenceURL),
		string(report.EffectiveSource()),
		nullableString(report.UserID),
		report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
