package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize    = 20
	maxPageSize        = 100
	maxDismissAttempts = 5
)

type incidentService struct {
	repo        IncidentRepository
	cache       IncidentCache
	broadcaster Broadcaster
	logger      *logrus.Logger
	now         func() time.Time
}

func NewIncidentService(repo IncidentRepository, cache IncidentCache, broadcaster Broadcaster, logger *logrus.Logger) IncidentService {
	if cache == nil {
		cache = noopCache{}
	}
	return &incidentService{
		repo:        repo,
		cache:       cache,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// storageError помечает сбой хранилища, сохраняя "не найдено" как есть
func storageError(op string, err error) error {
	if errors.Is(err, models.ErrIncidentNotFound) || errors.Is(err, models.ErrStorageUnavailable) {
		return fmt.Errorf("service: %s: %w", op, err)
	}
	return fmt.Errorf("service: %s: %w: %w", op, models.ErrStorageUnavailable, err)
}

// ListIncidents возвращает список инцидентов по фильтру с пагинацией
func (s *incidentService) ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	if filter.Limit < 1 || filter.Limit > maxPageSize {
		filter.Limit = defaultPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "ListIncidents",
		"type":    filter.Type,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
	log.Info("Listing incidents")

	incidents, err := s.repo.ListIncidents(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, storageError("could not list incidents", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// GetIncident получает инцидент по ID, сначала из кэша
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})
	log.Info("Fetching incident by ID")

	cached, err := s.cache.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if cached != nil {
		log.Debug("Incident served from cache")
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to get incident in repository")
		return nil, storageError("could not get incident", err)
	}

	if err := s.cache.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}

	log.Info("Incident fetched successfully")
	return incident, nil
}

// DismissIncident переводит инцидент в dismissed через ту же проверку версии,
// что и движок корреляции. Повторный вызов для отклоненного инцидента ничего не меняет.
func (s *incidentService) DismissIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "DismissIncident",
		"incident_id": id,
	})
	log.Info("Attempting to dismiss incident")

	for attempt := 1; attempt <= maxDismissAttempts; attempt++ {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			log.WithError(err).Warn("Failed to load incident for dismissal")
			return nil, storageError("could not dismiss incident", err)
		}
		if current.Confidence == models.ConfidenceDismissed {
			log.Info("Incident already dismissed")
			return current, nil
		}

		next := current.Clone()
		next.Confidence = models.ConfidenceDismissed
		if now := s.now().UTC(); now.After(next.UpdatedAt) {
			next.UpdatedAt = now
		}

		err = s.repo.CompareAndUpdate(ctx, next, current.Version)
		if err == nil {
			if s.broadcaster != nil {
				s.broadcaster.Publish(*next.Clone())
			}
			// Кэш получает снимок с новой версией: более старые снимки уже не смогут его вытеснить
			if err := s.cache.SetIncidentCache(ctx, next); err != nil {
				log.WithError(err).Warn("Failed to cache dismissed incident, invalidating")
				if err := s.cache.InvalidateIncidentCache(ctx, id); err != nil {
					log.WithError(err).Warn("Failed to invalidate incident cache")
				}
			}
			log.Info("Incident dismissed successfully")
			return next, nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			log.WithError(err).Error("Failed to dismiss incident in repository")
			return nil, storageError("could not dismiss incident", err)
		}
		log.WithField("attempt", attempt).Warn("Version conflict while dismissing, retrying")
	}

	return nil, fmt.Errorf("service: could not dismiss incident: %w: %d attempts ended in version conflict",
		models.ErrStorageUnavailable, maxDismissAttempts)
}
