package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shenikar/public_alert_system/internal/models"
)

// IncidentRepository определяет контракт для чтения и модерации инцидентов
type IncidentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error)
	CompareAndUpdate(ctx context.Context, incident *models.Incident, expectedVersion int64) error
}

// IncidentCache определяет контракт кэша снимков инцидентов; промах - (nil, nil).
// SetIncidentCache не заменяет снимок той же или более новой версии.
type IncidentCache interface {
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// ReportRepository сохраняет исходные отчеты
type ReportRepository interface {
	SaveReport(ctx context.Context, report *models.Report) error
}

// Correlator сопоставляет отчет с инцидентом
type Correlator interface {
	Upsert(ctx context.Context, report *models.Report) (*models.Incident, error)
}

// Broadcaster рассылает снимки инцидентов подписчикам, не блокируясь
type Broadcaster interface {
	Publish(incident models.Incident)
}

// Predictor запрашивает оценку риска у внешнего сервиса
type Predictor interface {
	Predict(ctx context.Context, incident *models.Incident) (models.Prediction, error)
}

// noopCache используется, когда Redis не настроен
type noopCache struct{}

func (noopCache) GetIncidentFromCache(context.Context, uuid.UUID) (*models.Incident, error) {
	return nil, nil
}

func (noopCache) SetIncidentCache(context.Context, *models.Incident) error { return nil }

func (noopCache) InvalidateIncidentCache(context.Context, uuid.UUID) error { return nil }
