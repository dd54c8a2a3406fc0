// Package prediction - клиент внешнего сервиса оценки риска.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shenikar/public_alert_system/internal/models"
)

const DefaultTimeout = 2 * time.Second

// Client отправляет POST {type,lat,lng} и ожидает {risk,confidence}.
// Любой ответ кроме 2xx, сетевая ошибка или неразборчивое тело дают ErrPredictionUnavailable.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Predict запрашивает оценку риска для инцидента
func (c *Client) Predict(ctx context.Context, incident *models.Incident) (models.Prediction, error) {
	if c.url == "" {
		return models.Prediction{}, fmt.Errorf("%w: prediction url is not configured", models.ErrPredictionUnavailable)
	}

	body, err := json.Marshal(models.PredictionRequest{
		Type: incident.Type,
		Lat:  incident.Location.Lat,
		Lng:  incident.Location.Lng,
	})
	if err != nil {
		return models.Prediction{}, fmt.Errorf("%w: %w", models.ErrPredictionUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return models.Prediction{}, fmt.Errorf("%w: %w", models.ErrPredictionUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("%w: %w", models.ErrPredictionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return models.Prediction{}, fmt.Errorf("%w: status %d", models.ErrPredictionUnavailable, resp.StatusCode)
	}

	var prediction models.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return models.Prediction{}, fmt.Errorf("%w: decode response: %w", models.ErrPredictionUnavailable, err)
	}
	switch prediction.Risk {
	case models.RiskLow, models.RiskMedium, models.RiskHigh:
	default:
		return models.Prediction{}, fmt.Errorf("%w: unknown risk %q", models.ErrPredictionUnavailable, prediction.Risk)
	}
	return prediction, nil
}
