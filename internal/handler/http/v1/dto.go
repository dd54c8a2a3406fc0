package v1

import (
	"time"

	"github.com/google/uuid"
)

// LocationDTO - координаты точки
// @Description Координаты точки
type LocationDTO struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

// CreateReportRequest DTO для отправки отчета
// @Description DTO для отправки отчета
type CreateReportRequest struct {
	Title       string       `json:"title" validate:"required,max=255"`
	Type        string       `json:"type" validate:"required,oneof=power_outage water_outage fire transport protest weather other"`
	Description string       `json:"description,omitempty" validate:"max=2000"`
	Location    *LocationDTO `json:"location" validate:"required"`
	EvidenceURL string       `json:"evidenceUrl,omitempty" validate:"omitempty,url"`
	Source      string       `json:"source,omitempty" validate:"omitempty,oneof=citizen official social"`
	UserID      string       `json:"userId,omitempty" validate:"max=128"`
}

// ListIncidentsQuery - параметры выборки инцидентов
type ListIncidentsQuery struct {
	Type       string   `form:"type" validate:"omitempty,oneof=power_outage water_outage fire transport protest weather other"`
	Confidence string   `form:"confidence"`
	MinLat     *float64 `form:"minLat" validate:"omitempty,latitude"`
	MaxLat     *float64 `form:"maxLat" validate:"omitempty,latitude"`
	MinLng     *float64 `form:"minLng" validate:"omitempty,longitude"`
	MaxLng     *float64 `form:"maxLng" validate:"omitempty,longitude"`
	Page       int      `form:"page" validate:"omitempty,min=1"`
	PageSize   int      `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// PointResponse - координаты в ответе
type PointResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID             uuid.UUID     `json:"id"`
	Title          string        `json:"title"`
	Type           string        `json:"type"`
	Confidence     string        `json:"confidence"`
	Location       PointResponse `json:"location"`
	ReportsCount   int           `json:"reportsCount"`
	Source         string        `json:"source"`
	LastReportedAt time.Time     `json:"lastReportedAt"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// ReportResponse DTO для ответа с информацией об отчете
// @Description DTO для ответа с информацией об отчете
type ReportResponse struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Type        string        `json:"type"`
	Description string        `json:"description,omitempty"`
	Location    PointResponse `json:"location"`
	EvidenceURL string        `json:"evidenceUrl,omitempty"`
	Source      string        `json:"source"`
	UserID      string        `json:"userId,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// PredictionResponse - оценка риска
type PredictionResponse struct {
	Risk       string  `json:"risk"`
	Confidence float64 `json:"confidence"`
}

// SubmitReportResponse DTO для ответа на отправку отчета
// @Description Отчет, инцидент, к которому он присоединен, и прогноз риска
type SubmitReportResponse struct {
	Report     ReportResponse     `json:"report"`
	Incident   IncidentResponse   `json:"incident"`
	Prediction PredictionResponse `json:"prediction"`
}

// AlertResponse DTO для элемента списка тревог
// @Description Инцидент высокого доверия с прогнозом риска
type AlertResponse struct {
	Incident   IncidentResponse   `json:"incident"`
	Prediction PredictionResponse `json:"prediction"`
}

// HealthResponse - состояние сервиса
type HealthResponse struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
}
