package service

import (
	"context"
	"time"

	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultAlertConcurrency = 8

// AlertOptions - параметры Alert View
type AlertOptions struct {
	MinConfidence     models.ConfidenceLevel
	Concurrency       int
	PredictionTimeout time.Duration
}

type alertService struct {
	repo      IncidentRepository
	predictor Predictor
	opts      AlertOptions
	logger    *logrus.Logger
}

func NewAlertService(repo IncidentRepository, predictor Predictor, opts AlertOptions, logger *logrus.Logger) AlertService {
	if !opts.MinConfidence.Valid() || opts.MinConfidence == models.ConfidenceDismissed {
		opts.MinConfidence = models.ConfidenceHighProbability
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultAlertConcurrency
	}
	if opts.PredictionTimeout <= 0 {
		opts.PredictionTimeout = defaultPredictionTimeout
	}
	return &alertService{
		repo:      repo,
		predictor: predictor,
		opts:      opts,
		logger:    logger,
	}
}

// levelsAtLeast перечисляет уровни доверия не ниже min, кроме dismissed
func levelsAtLeast(min models.ConfidenceLevel) []models.ConfidenceLevel {
	var levels []models.ConfidenceLevel
	for _, c := range []models.ConfidenceLevel{
		models.ConfidenceConfirmed,
		models.ConfidenceHighProbability,
		models.ConfidenceUnderObservation,
	} {
		if c.AtLeast(min) {
			levels = append(levels, c)
		}
	}
	return levels
}

// ListAlerts возвращает тревоги; сбой прогноза для одного инцидента
// заменяется значением по умолчанию и не влияет на остальные
func (s *alertService) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":        "alert",
		"method":         "ListAlerts",
		"min_confidence": s.opts.MinConfidence,
	})

	incidents, err := s.repo.ListIncidents(ctx, models.IncidentFilter{
		Confidences: levelsAtLeast(s.opts.MinConfidence),
	})
	if err != nil {
		log.WithError(err).Error("Failed to list alert incidents")
		return nil, storageError("could not list alerts", err)
	}

	alerts := make([]models.Alert, len(incidents))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, incident := range incidents {
		g.Go(func() error {
			alerts[i] = models.Alert{
				Incident:   incident,
				Prediction: predictOrDefault(ctx, s.predictor, s.opts.PredictionTimeout, incident, log),
			}
			return nil
		})
	}
	// Горутины не возвращают ошибок: сбой прогноза уже заменен значением по умолчанию
	_ = g.Wait()

	log.WithField("count", len(alerts)).Info("Alerts listed successfully")
	return alerts, nil
}
