package service

import (
	"context"
	"time"

	"github.com/shenikar/public_alert_system/internal/metrics"
	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/sirupsen/logrus"
)

const defaultPredictionTimeout = 2 * time.Second

// predictOrDefault вызывает Predictor с ограничением по времени. Любая ошибка
// заменяется на models.DefaultPrediction и дальше не передается.
func predictOrDefault(ctx context.Context, predictor Predictor, timeout time.Duration, incident *models.Incident, log *logrus.Entry) models.Prediction {
	if predictor == nil {
		metrics.PredictionFallbacks.Inc()
		return models.DefaultPrediction
	}
	if timeout <= 0 {
		timeout = defaultPredictionTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prediction, err := predictor.Predict(pctx, incident)
	if err != nil {
		metrics.PredictionFallbacks.Inc()
		log.WithError(err).WithField("incident_id", incident.ID).Warn("Prediction unavailable, using default")
		return models.DefaultPrediction
	}
	return prediction
}
