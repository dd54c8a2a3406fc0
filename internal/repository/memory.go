package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shenikar/public_alert_system/internal/models"
)

// MemoryStore - хранилище инцидентов и отчетов в памяти процесса.
// Наружу отдаются только копии, поэтому вызывающий код не может изменить
// состояние в обход CompareAndUpdate.
type MemoryStore struct {
	mu        sync.RWMutex
	incidents map[uuid.UUID]*models.Incident
	reports   []*models.Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		incidents: make(map[uuid.UUID]*models.Incident),
	}
}

// Create сохраняет новый инцидент с версией 1
func (s *MemoryStore) Create(_ context.Context, incident *models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if incident.ID == uuid.Nil {
		incident.ID = uuid.New()
	}
	if _, exists := s.incidents[incident.ID]; exists {
		return fmt.Errorf("incident with id %s already exists", incident.ID)
	}
	incident.Version = 1
	s.incidents[incident.ID] = incident.Clone()
	return nil
}

// FindCandidates находит незакрытые инциденты типа t внутри прямоугольника, самые свежие первыми
func (s *MemoryStore) FindCandidates(_ context.Context, t models.IncidentType, box models.BoundingBox) ([]*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]*models.Incident, 0)
	for _, incident := range s.incidents {
		if incident.Type != t || incident.Confidence == models.ConfidenceDismissed {
			continue
		}
		if !box.Contains(incident.Location) {
			continue
		}
		candidates = append(candidates, incident.Clone())
	}
	sortByUpdatedDesc(candidates)
	return candidates, nil
}

// CompareAndUpdate заменяет изменяемые поля, если версия совпадает
func (s *MemoryStore) CompareAndUpdate(_ context.Context, incident *models.Incident, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.incidents[incident.ID]
	if !ok || current.Version != expectedVersion {
		return fmt.Errorf("incident %s at version %d: %w", incident.ID, expectedVersion, models.ErrVersionConflict)
	}

	next := current.Clone()
	next.Confidence = incident.Confidence
	next.ReportsCount = incident.ReportsCount
	next.Source = incident.Source
	next.LastReportedAt = incident.LastReportedAt
	next.UpdatedAt = incident.UpdatedAt
	next.Version = expectedVersion + 1
	s.incidents[incident.ID] = next

	incident.Version = next.Version
	return nil
}

// GetByID возвращает копию инцидента
func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	incident, ok := s.incidents[id]
	if !ok {
		return nil, fmt.Errorf("incident with id %s: %w", id, models.ErrIncidentNotFound)
	}
	return incident.Clone(), nil
}

// ListIncidents возвращает инциденты по фильтру, самые свежие первыми
func (s *MemoryStore) ListIncidents(_ context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	s.mu.RLock()
	matched := make([]*models.Incident, 0)
	for _, incident := range s.incidents {
		if filter.Matches(incident) {
			matched = append(matched, incident.Clone())
		}
	}
	s.mu.RUnlock()

	sortByUpdatedDesc(matched)

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*models.Incident{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// SaveReport добавляет отчет в журнал
func (s *MemoryStore) SaveReport(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *report
	if report.Location != nil {
		loc := *report.Location
		saved.Location = &loc
	}
	s.reports = append(s.reports, &saved)
	return nil
}

// Reports возвращает число сохраненных отчетов
func (s *MemoryStore) Reports() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

func sortByUpdatedDesc(incidents []*models.Incident) {
	sort.SliceStable(incidents, func(i, j int) bool {
		return incidents[i].UpdatedAt.After(incidents[j].UpdatedAt)
	})
}
