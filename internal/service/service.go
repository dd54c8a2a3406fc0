package service

//go:generate mockgen -source=service.go -destination=mocks/mock_service.go -package=mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shenikar/public_alert_system/internal/models"
)

// ReportService определяет контракт приема отчетов
type ReportService interface {
	SubmitReport(ctx context.Context, report *models.Report) (*models.Submission, error)
}

// IncidentService определяет контракт для чтения и модерации инцидентов
type IncidentService interface {
	ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	DismissIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
}

// AlertService строит список тревог: инциденты высокого доверия с прогнозом риска
type AlertService interface {
	ListAlerts(ctx context.Context) ([]models.Alert, error)
}
