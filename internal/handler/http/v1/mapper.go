package v1

import (
	"strings"

	"github.com/shenikar/public_alert_system/internal/models"
)

// DTOToReportModel преобразует запрос в доменный отчет
func DTOToReportModel(dto CreateReportRequest) *models.Report {
	report := &models.Report{
		Title:       dto.Title,
		Type:        models.IncidentType(dto.Type),
		Description: dto.Description,
		EvidenceURL: dto.EvidenceURL,
		Source:      models.Source(dto.Source),
		UserID:      dto.UserID,
	}
	if dto.Location != nil && dto.Location.Lat != nil && dto.Location.Lng != nil {
		report.Location = &models.GeoPoint{Lat: *dto.Location.Lat, Lng: *dto.Location.Lng}
	}
	return report
}

// QueryToIncidentFilter преобразует параметры запроса в фильтр.
// Возвращает false, если прямоугольник задан не полностью или уровень доверия неизвестен.
func QueryToIncidentFilter(q ListIncidentsQuery) (models.IncidentFilter, bool) {
	filter := models.IncidentFilter{Type: models.IncidentType(q.Type)}

	if q.Confidence != "" {
		for _, raw := range strings.Split(q.Confidence, ",") {
			level := models.ConfidenceLevel(strings.TrimSpace(raw))
			if !level.Valid() {
				return filter, false
			}
			filter.Confidences = append(filter.Confidences, level)
		}
	}

	bounds := []*float64{q.MinLat, q.MaxLat, q.MinLng, q.MaxLng}
	set := 0
	for _, b := range bounds {
		if b != nil {
			set++
		}
	}
	switch set {
	case 0:
	case len(bounds):
		if *q.MinLat > *q.MaxLat || *q.MinLng > *q.MaxLng {
			return filter, false
		}
		filter.Box = &models.BoundingBox{MinLat: *q.MinLat, MaxLat: *q.MaxLat, MinLng: *q.MinLng, MaxLng: *q.MaxLng}
	default:
		return filter, false
	}

	page, pageSize := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	return filter, true
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) IncidentResponse {
	return IncidentResponse{
		ID:             model.ID,
		Title:          model.Title,
		Type:           string(model.Type),
		Confidence:     string(model.Confidence),
		Location:       PointResponse{Lat: model.Location.Lat, Lng: model.Location.Lng},
		ReportsCount:   model.ReportsCount,
		Source:         string(model.Source),
		LastReportedAt: model.LastReportedAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []IncidentResponse {
	responses := make([]IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

func modelToReportResponse(model *models.Report) ReportResponse {
	resp := ReportResponse{
		ID:          model.ID,
		Title:       model.Title,
		Type:        string(model.Type),
		Description: model.Description,
		EvidenceURL: model.EvidenceURL,
		Source:      string(model.Source),
		UserID:      model.UserID,
		CreatedAt:   model.CreatedAt,
	}
	if model.Location != nil {
		resp.Location = PointResponse{Lat: model.Location.Lat, Lng: model.Location.Lng}
	}
	return resp
}

func modelToPredictionResponse(p models.Prediction) PredictionResponse {
	return PredictionResponse{Risk: string(p.Risk), Confidence: p.Confidence}
}

// ModelToSubmitReportResponse преобразует результат приема отчета в DTO
func ModelToSubmitReportResponse(s *models.Submission) SubmitReportResponse {
	return SubmitReportResponse{
		Report:     modelToReportResponse(s.Report),
		Incident:   ModelToIncidentResponse(s.Incident),
		Prediction: modelToPredictionResponse(s.Prediction),
	}
}

// ModelsToAlertResponses преобразует список тревог в DTO
func ModelsToAlertResponses(alerts []models.Alert) []AlertResponse {
	responses := make([]AlertResponse, len(alerts))
	for i, alert := range alerts {
		responses[i] = AlertResponse{
			Incident:   ModelToIncidentResponse(alert.Incident),
			Prediction: modelToPredictionResponse(alert.Prediction),
		}
	}
	return responses
}
