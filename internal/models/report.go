package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source - происхождение отчета
type Source string

const (
	SourceCitizen  Source = "citizen"
	SourceOfficial Source = "official"
	SourceSocial   Source = "social"
)

// Valid сообщает, является ли источник известным
func (s Source) Valid() bool {
	switch s {
	case SourceCitizen, SourceOfficial, SourceSocial:
		return true
	}
	return false
}

// Report - неизменяемое сообщение о наблюдаемом событии
type Report struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Type        IncidentType `json:"type"`
	Description string       `json:"description,omitempty"`
	Location    *GeoPoint    `json:"location"`
	EvidenceURL string       `json:"evidenceUrl,omitempty"`
	Source      Source       `json:"source"`
	UserID      string       `json:"userId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Validate проверяет, что отчет пригоден для корреляции.
// Пустой источник допустим: его заменит значение по умолчанию.
func (r *Report) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: report is nil", ErrInvalidReport)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown incident type %q", ErrInvalidReport, r.Type)
	}
	if r.Location == nil {
		return fmt.Errorf("%w: location is required", ErrInvalidReport)
	}
	if err := r.Location.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if r.Source != "" && !r.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidReport, r.Source)
	}
	return nil
}

// EffectiveSource возвращает источник с учетом значения по умолчанию
func (r *Report) EffectiveSource() Source {
	if r == nil || r.Source == "" {
		return SourceCitizen
	}
	return r.Source
}

// Submission - результат приема отчета: сам отчет, итоговый инцидент и прогноз риска
type Submission struct {
	Report     *Report    `json:"report"`
	Incident   *Incident  `json:"incident"`
	Prediction Prediction `json:"prediction"`
}
