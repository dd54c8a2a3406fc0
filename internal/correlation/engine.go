// Package correlation сопоставляет входящие отчеты с открытыми инцидентами.
package correlation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shenikar/public_alert_system/internal/confidence"
	"github.com/shenikar/public_alert_system/internal/metrics"
	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultRadius        = 1.0
	DefaultRecencyWindow = 3 * time.Hour
	DefaultMaxAttempts   = 5
)

// Значения метки result для metrics.UpsertsTotal
const (
	upsertResultCreated   = "created"
	upsertResultMatched   = "matched"
	upsertResultReset     = "reset"
	upsertResultConflict  = "conflict"
	upsertResultFailed    = "failed"
	upsertResultCancelled = "cancelled"
)

//go:generate mockgen -source=engine.go -destination=mocks/mock_store.go -package=mocks

// IncidentStore определяет контракт хранилища инцидентов, нужный движку
type IncidentStore interface {
	// FindCandidates возвращает незакрытые инциденты типа t, точка которых лежит в box
	FindCandidates(ctx context.Context, t models.IncidentType, box models.BoundingBox) ([]*models.Incident, error)
	// Create сохраняет новый инцидент и заполняет ID и Version
	Create(ctx context.Context, incident *models.Incident) error
	// CompareAndUpdate сохраняет изменения, если версия в хранилище равна expectedVersion,
	// иначе возвращает models.ErrVersionConflict
	CompareAndUpdate(ctx context.Context, incident *models.Incident, expectedVersion int64) error
}

// Options - параметры движка
type Options struct {
	// Radius - полуразмер прямоугольника поиска в километрах
	Radius float64
	// RecencyWindow - после такого перерыва счетчик отчетов сбрасывается в 1
	RecencyWindow time.Duration
	// MaxAttempts - число попыток при конфликте версий
	MaxAttempts int
	// Now - источник времени, по умолчанию time.Now
	Now func() time.Time
}

// Engine выполняет протокол upsert: найти подходящий инцидент или создать новый
type Engine struct {
	store  IncidentStore
	logger *logrus.Logger
	opts   Options
	locks  *keyLocks
}

// NewEngine создает движок корреляции
func NewEngine(store IncidentStore, logger *logrus.Logger, opts Options) *Engine {
	if opts.Radius <= 0 {
		opts.Radius = DefaultRadius
	}
	if opts.RecencyWindow <= 0 {
		opts.RecencyWindow = DefaultRecencyWindow
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:  store,
		logger: logger,
		opts:   opts,
		locks:  newKeyLocks(),
	}
}

// Key возвращает ключ корреляции отчета: тип и ячейка сетки
func (e *Engine) Key(report *models.Report) string {
	return fmt.Sprintf("%s:%s", report.Type, models.CellOf(*report.Location, e.opts.Radius))
}

// Upsert присоединяет отчет к самому свежему подходящему инциденту или создает новый.
// Доменных ошибок, кроме models.ErrInvalidReport, нет; сбои хранилища
// возвращаются как models.ErrStorageUnavailable.
func (e *Engine) Upsert(ctx context.Context, report *models.Report) (*models.Incident, error) {
	if err := report.Validate(); err != nil {
		return nil, err
	}

	key := e.Key(report)
	log := e.logger.WithFields(logrus.Fields{
		"component":       "correlation",
		"method":          "Upsert",
		"incident_type":   report.Type,
		"correlation_key": key,
	})

	start := time.Now()
	defer func() {
		metrics.UpsertDuration.Observe(time.Since(start).Seconds())
	}()

	unlock, err := e.locks.acquire(ctx, key)
	if err != nil {
		metrics.UpsertsTotal.WithLabelValues(upsertResultCancelled).Inc()
		log.WithError(err).Debug("Upsert cancelled while waiting for correlation key")
		return nil, err
	}
	defer unlock()

	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			metrics.UpsertsTotal.WithLabelValues(upsertResultCancelled).Inc()
			return nil, err
		}

		incident, result, err := e.upsertOnce(ctx, report)
		if err == nil {
			metrics.UpsertsTotal.WithLabelValues(result).Inc()
			log.WithFields(logrus.Fields{
				"incident_id":   incident.ID,
				"result":        result,
				"reports_count": incident.ReportsCount,
				"confidence":    incident.Confidence,
				"attempt":       attempt,
			}).Debug("Report correlated")
			return incident, nil
		}

		if !errors.Is(err, models.ErrVersionConflict) {
			metrics.UpsertsTotal.WithLabelValues(upsertResultFailed).Inc()
			log.WithError(err).Error("Incident store failed during upsert")
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("correlation: %w: %w", models.ErrStorageUnavailable, err)
		}

		metrics.VersionConflictsTotal.Inc()
		log.WithField("attempt", attempt).Warn("Version conflict, retrying upsert")
	}

	metrics.UpsertsTotal.WithLabelValues(upsertResultConflict).Inc()
	log.Errorf("Upsert gave up after %d conflicting attempts", e.opts.MaxAttempts)
	return nil, fmt.Errorf("correlation: %w: %d attempts ended in version conflict",
		models.ErrStorageUnavailable, e.opts.MaxAttempts)
}

// upsertOnce - один проход чтение-изменение-запись
func (e *Engine) upsertOnce(ctx context.Context, report *models.Report) (*models.Incident, string, error) {
	point := *report.Location
	source := report.EffectiveSource()

	candidates, err := e.store.FindCandidates(ctx, report.Type, models.BoxAround(point, e.opts.Radius))
	if err != nil {
		return nil, "", fmt.Errorf("find candidates: %w", err)
	}

	now := e.opts.Now()
	match := mostRecentlyUpdated(candidates)
	if match == nil {
		incident := &models.Incident{
			Title:          report.Title,
			Type:           report.Type,
			Confidence:     confidence.Next(source, 1),
			Location:       point,
			ReportsCount:   1,
			Source:         source,
			LastReportedAt: now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := e.store.Create(ctx, incident); err != nil {
			return nil, "", fmt.Errorf("create incident: %w", err)
		}
		return incident, upsertResultCreated, nil
	}

	updated := match.Clone()
	result := upsertResultMatched
	if now.Sub(match.LastReportedAt) > e.opts.RecencyWindow {
		updated.ReportsCount = 1
		result = upsertResultReset
	} else {
		updated.ReportsCount++
	}
	updated.LastReportedAt = latest(match.LastReportedAt, now)
	updated.UpdatedAt = latest(match.UpdatedAt, now)
	updated.Source = source
	updated.Confidence = confidence.Next(source, updated.ReportsCount)

	if err := e.store.CompareAndUpdate(ctx, updated, match.Version); err != nil {
		if errors.Is(err, models.ErrVersionConflict) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("update incident %s: %w", match.ID, err)
	}
	return updated, result, nil
}

// mostRecentlyUpdated выбирает кандидата с наибольшим UpdatedAt, а не ближайшего
func mostRecentlyUpdated(candidates []*models.Incident) *models.Incident {
	var best *models.Incident
	for _, c := range candidates {
		if c == nil || c.Confidence == models.ConfidenceDismissed {
			continue
		}
		if best == nil || c.UpdatedAt.After(best.UpdatedAt) {
			best = c
		}
	}
	return best
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
