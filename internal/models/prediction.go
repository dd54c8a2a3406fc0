package models

// RiskLevel - оценка риска от внешнего сервиса предсказаний
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PredictionRequest - запрос к сервису предсказаний
type PredictionRequest struct {
	Type IncidentType `json:"type"`
	Lat  float64      `json:"lat"`
	Lng  float64      `json:"lng"`
}

// Prediction - ответ сервиса предсказаний
type Prediction struct {
	Risk       RiskLevel `json:"risk"`
	Confidence float64   `json:"confidence"`
}

// DefaultPrediction подставляется, когда сервис предсказаний недоступен
var DefaultPrediction = Prediction{Risk: RiskMedium, Confidence: 0.5}

// Alert - инцидент высокого уровня доверия вместе с прогнозом риска
type Alert struct {
	Incident   *Incident  `json:"incident"`
	Prediction Prediction `json:"prediction"`
}
