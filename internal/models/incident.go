package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentType - категория инцидента
type IncidentType string

const (
	IncidentTypePowerOutage IncidentType = "power_outage"
	IncidentTypeWaterOutage IncidentType = "water_outage"
	IncidentTypeFire        IncidentType = "fire"
	IncidentTypeTransport   IncidentType = "transport"
	IncidentTypeProtest     IncidentType = "protest"
	IncidentTypeWeather     IncidentType = "weather"
	IncidentTypeOther       IncidentType = "other"
)

// IncidentTypes перечисляет все допустимые категории
var IncidentTypes = []IncidentType{
	IncidentTypePowerOutage,
	IncidentTypeWaterOutage,
	IncidentTypeFire,
	IncidentTypeTransport,
	IncidentTypeProtest,
	IncidentTypeWeather,
	IncidentTypeOther,
}

// Valid сообщает, входит ли тип в перечисление
func (t IncidentType) Valid() bool {
	for _, known := range IncidentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ConfidenceLevel - уровень доверия к инциденту
type ConfidenceLevel string

const (
	ConfidenceConfirmed        ConfidenceLevel = "confirmed"
	ConfidenceHighProbability  ConfidenceLevel = "high_probability"
	ConfidenceUnderObservation ConfidenceLevel = "under_observation"
	ConfidenceDismissed        ConfidenceLevel = "dismissed"
)

// Rank возвращает порядковый вес уровня: confirmed > high_probability > under_observation > dismissed.
// Для неизвестного значения возвращает -1.
func (c ConfidenceLevel) Rank() int {
	switch c {
	case ConfidenceConfirmed:
		return 3
	case ConfidenceHighProbability:
		return 2
	case ConfidenceUnderObservation:
		return 1
	case ConfidenceDismissed:
		return 0
	}
	return -1
}

// Valid сообщает, является ли уровень известным
func (c ConfidenceLevel) Valid() bool {
	return c.Rank() >= 0
}

// AtLeast сообщает, что уровень не ниже min
func (c ConfidenceLevel) AtLeast(min ConfidenceLevel) bool {
	return c.Rank() >= min.Rank()
}

// Incident - агрегат, собранный из одного или нескольких отчетов.
// Title и Location фиксируются при создании и больше не меняются.
type Incident struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Type           IncidentType    `json:"type"`
	Confidence     ConfidenceLevel `json:"confidence"`
	Location       GeoPoint        `json:"location"`
	ReportsCount   int             `json:"reportsCount"`
	Source         Source          `json:"source"`
	LastReportedAt time.Time       `json:"lastReportedAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	// Version используется для оптимистичной блокировки и наружу не отдается
	Version int64 `json:"-"`
}

// Clone возвращает независимую копию
func (i *Incident) Clone() *Incident {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// IncidentFilter - параметры выборки инцидентов
type IncidentFilter struct {
	Type        IncidentType
	Confidences []ConfidenceLevel
	Box         *BoundingBox
	Limit       int
	Offset      int
}

// Matches проверяет инцидент на соответствие фильтру (без учета пагинации)
func (f IncidentFilter) Matches(incident *Incident) bool {
	if f.Type != "" && incident.Type != f.Type {
		return false
	}
	if len(f.Confidences) > 0 {
		found := false
		for _, c := range f.Confidences {
			if incident.Confidence == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Box != nil && !f.Box.Contains(incident.Location) {
		return false
	}
	return true
}
