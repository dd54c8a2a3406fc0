package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/public_alert_system/internal/models"
)

const incidentColumns = `
	id,
	title,
	type,
	confidence,
	lat,
	lng,
	reports_count,
	source,
	last_reported_at,
	version,
	created_at,
	updated_at`

// IncidentRepository - хранилище инцидентов в PostgreSQL.
// Конкурентные изменения защищены столбцом version (compare-and-swap).
type IncidentRepository struct {
	db *pgxpool.Pool
}

func NewIncidentRepository(db *pgxpool.Pool) *IncidentRepository {
	return &IncidentRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*models.Incident, error) {
	var (
		incident   models.Incident
		typ        string
		confidence string
		source     string
	)
	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&typ,
		&confidence,
		&incident.Location.Lat,
		&incident.Location.Lng,
		&incident.ReportsCount,
		&source,
		&incident.LastReportedAt,
		&incident.Version,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	incident.Type = models.IncidentType(typ)
	incident.Confidence = models.ConfidenceLevel(confidence)
	incident.Source = models.Source(source)
	return &incident, nil
}

func collectIncidents(rows pgx.Rows) ([]*models.Incident, error) {
	defer rows.Close()
	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (title, type, confidence, lat, lng, reports_count, source, last_reported_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, version;
	`
	err := r.db.QueryRow(ctx, query,
		incident.Title,
		string(incident.Type),
		string(incident.Confidence),
		incident.Location.Lat,
		incident.Location.Lng,
		incident.ReportsCount,
		string(incident.Source),
		incident.LastReportedAt,
		incident.CreatedAt,
		incident.UpdatedAt,
	).Scan(&incident.ID, &incident.Version)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// FindCandidates находит незакрытые инциденты типа t внутри прямоугольника, самые свежие первыми
func (r *IncidentRepository) FindCandidates(ctx context.Context, t models.IncidentType, box models.BoundingBox) ([]*models.Incident, error) {
	query := `
		SELECT` + incidentColumns + `
		FROM incidents
		WHERE
			type = $1
			AND confidence <> 'dismissed'
			AND lat BETWEEN $2 AND $3
			AND lng BETWEEN $4 AND $5
		ORDER BY updated_at DESC;
	`
	rows, err := r.db.Query(ctx, query, string(t), box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate incidents: %w", err)
	}
	return collectIncidents(rows)
}

// CompareAndUpdate обновляет изменяемые поля инцидента, если версия не изменилась
func (r *IncidentRepository) CompareAndUpdate(ctx context.Context, incident *models.Incident, expectedVersion int64) error {
	query := `
		UPDATE incidents SET
			confidence = $1,
			reports_count = $2,
			source = $3,
			last_reported_at = $4,
			updated_at = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING version;
	`
	var version int64
	err := r.db.QueryRow(ctx, query,
		string(incident.Confidence),
		incident.ReportsCount,
		string(incident.Source),
		incident.LastReportedAt,
		incident.UpdatedAt,
		incident.ID,
		expectedVersion,
	).Scan(&version)
	if err != nil {
		// Ни одна строка не обновлена: версия устарела или запись исчезла
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("incident %s at version %d: %w", incident.ID, expectedVersion, models.ErrVersionConflict)
		}
		return fmt.Errorf("failed to update incident: %w", err)
	}
	incident.Version = version
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `
		SELECT` + incidentColumns + `
		FROM incidents
		WHERE id = $1;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, models.ErrIncidentNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// ListIncidents возвращает инциденты по фильтру, самые свежие первыми
func (r *IncidentRepository) ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Type != "" {
		conditions = append(conditions, "type = "+arg(string(filter.Type)))
	}
	if len(filter.Confidences) > 0 {
		values := make([]string, len(filter.Confidences))
		for i, c := range filter.Confidences {
			values[i] = string(c)
		}
		conditions = append(conditions, "confidence = ANY("+arg(values)+")")
	}
	if filter.Box != nil {
		conditions = append(conditions,
			fmt.Sprintf("lat BETWEEN %s AND %s", arg(filter.Box.MinLat), arg(filter.Box.MaxLat)),
			fmt.Sprintf("lng BETWEEN %s AND %s", arg(filter.Box.MinLng), arg(filter.Box.MaxLng)),
		)
	}

	query := "SELECT" + incidentColumns + "\nFROM incidents"
	if len(conditions) > 0 {
		query += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\nORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += "\nLIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += "\nOFFSET " + arg(filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	return collectIncidents(rows)
}
