package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/public_alert_system/internal/broadcast"
	"github.com/shenikar/public_alert_system/internal/config"
	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/shenikar/public_alert_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type serviceMocks struct {
	reports   *mocks.MockReportService
	incidents *mocks.MockIncidentService
	alerts    *mocks.MockAlertService
}

// newTestHandler создает новый экземпляр Handler с мокированными сервисами
func newTestHandler(t *testing.T, apiKeys ...string) (*Handler, serviceMocks, *gin.Engine) {
	ctrl := gomock.NewController(t)
	m := serviceMocks{
		reports:   mocks.NewMockReportService(ctrl),
		incidents: mocks.NewMockIncidentService(ctrl),
		alerts:    mocks.NewMockAlertService(ctrl),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	hub := broadcast.NewHub(logger, 8)
	t.Cleanup(hub.Close)

	cfg := &config.Config{APIKeys: apiKeys}
	handler := NewHandler(Services{Reports: m.reports, Incidents: m.incidents, Alerts: m.alerts}, hub, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return handler, m, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sampleIncident() *models.Incident {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Incident{
		ID:             uuid.New(),
		Title:          "Corte de luz en Providencia",
		Type:           models.IncidentTypePowerOutage,
		Confidence:     models.ConfidenceHighProbability,
		Location:       models.GeoPoint{Lat: -33.45, Lng: -70.66},
		ReportsCount:   3,
		Source:         models.SourceCitizen,
		LastReportedAt: ts,
		CreatedAt:      ts.Add(-time.Hour),
		UpdatedAt:      ts,
		Version:        7,
	}
}

const validReportBody = `{
	"title": "Corte de luz",
	"type": "power_outage",
	"description": "Todo el barrio sin luz",
	"location": {"lat": -33.45, "lng": -70.66},
	"evidenceUrl": "https://example.com/photo.jpg"
}`

func TestCreateReport_Success(t *testing.T) {
	_, m, router := newTestHandler(t)
	incident := sampleIncident()

	m.reports.EXPECT().SubmitReport(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, report *models.Report) (*models.Submission, error) {
			assert.Equal(t, models.IncidentTypePowerOutage, report.Type)
			assert.Equal(t, models.Source(""), report.Source)
			require.NotNil(t, report.Location)
			assert.Equal(t, -33.45, report.Location.Lat)
			report.ID = uuid.New()
			report.Source = models.SourceCitizen
			return &models.Submission{
				Report:     report,
				Incident:   incident,
				Prediction: models.Prediction{Risk: models.RiskHigh, Confidence: 0.9},
			}, nil
		})

	w := makeRequest(router, http.MethodPost, "/api/v1/reports", strings.NewReader(validReportBody))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp SubmitReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "citizen", resp.Report.Source)
	assert.Equal(t, "https://example.com/photo.jpg", resp.Report.EvidenceURL)
	assert.Equal(t, incident.ID, resp.Incident.ID)
	assert.Equal(t, 3, resp.Incident.ReportsCount)
	assert.Equal(t, "high_probability", resp.Incident.Confidence)
	assert.Equal(t, "high", resp.Prediction.Risk)

	// Внутренняя версия наружу не отдается
	assert.NotContains(t, w.Body.String(), "version")
}

func TestCreateReport_ZeroCoordinatesAreValid(t *testing.T) {
	_, m, router := newTestHandler(t)

	m.reports.EXPECT().SubmitReport(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, report *models.Report) (*models.Submission, error) {
			assert.Equal(t, models.GeoPoint{}, *report.Location)
			return &models.Submission{Report: report, Incident: sampleIncident(), Prediction: models.DefaultPrediction}, nil
		})

	body := `{"title":"Null Island","type":"weather","location":{"lat":0,"lng":0}}`
	w := makeRequest(router, http.MethodPost, "/api/v1/reports", strings.NewReader(body))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateReport_InvalidJSON(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, http.MethodPost, "/api/v1/reports", strings.NewReader(`{"title":`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateReport_ValidationError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing location", body: `{"title":"x","type":"fire"}`},
		{name: "missing latitude", body: `{"title":"x","type":"fire","location":{"lng":1}}`},
		{name: "latitude out of range", body: `{"title":"x","type":"fire","location":{"lat":95,"lng":1}}`},
		{name: "unknown type", body: `{"title":"x","type":"meteor","location":{"lat":1,"lng":1}}`},
		{name: "unknown source", body: `{"title":"x","type":"fire","source":"rumor","location":{"lat":1,"lng":1}}`},
		{name: "bad evidence url", body: `{"title":"x","type":"fire","evidenceUrl":"not a url","location":{"lat":1,"lng":1}}`},
		{name: "missing title", body: `{"type":"fire","location":{"lat":1,"lng":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, router := newTestHandler(t)

			w := makeRequest(router, http.MethodPost, "/api/v1/reports", strings.NewReader(tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateReport_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "invalid", err: fmt.Errorf("%w: location is required", models.ErrInvalidReport), status: http.StatusBadRequest},
		{name: "storage unavailable", err: fmt.Errorf("correlation: %w", models.ErrStorageUnavailable), status: http.StatusServiceUnavailable},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, m, router := newTestHandler(t)
			m.reports.EXPECT().SubmitReport(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			w := makeRequest(router, http.MethodPost, "/api/v1/reports", strings.NewReader(validReportBody))

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCreateReport_RequiresAPIKeyWhenConfigured(t *testing.T) {
	_, m, router := newTestHandler(t, "test-api-key")

	w := makeRequest(router, http.MethodPost, "/api/v1/reports", strings.NewReader(validReportBody))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = makeRequest(router, http.MethodPost, "/api/v1/reports", strings.NewReader(validReportBody),
		map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	m.reports.EXPECT().SubmitReport(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, report *models.Report) (*models.Submission, error) {
			return &models.Submission{Report: report, Incident: sampleIncident()}, nil
		})
	w = makeRequest(router, http.MethodPost, "/api/v1/reports", strings.NewReader(validReportBody),
		map[string]string{"Authorization": "Bearer test-api-key"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestGetIncident_Success(t *testing.T) {
	_, m, router := newTestHandler(t)
	incident := sampleIncident()

	m.incidents.EXPECT().GetIncident(gomock.Any(), incident.ID).Return(incident, nil)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/"+incident.ID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ModelToIncidentResponse(incident), resp)
}

func TestGetIncident_InvalidID(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIncident_NotFound(t *testing.T) {
	_, m, router := newTestHandler(t)
	id := uuid.New()

	m.incidents.EXPECT().GetIncident(gomock.Any(), id).Return(nil, fmt.Errorf("service: %w", models.ErrIncidentNotFound))

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListIncidents_Success(t *testing.T) {
	_, m, router := newTestHandler(t)
	incidents := []*models.Incident{sampleIncident(), sampleIncident()}

	m.incidents.EXPECT().
		ListIncidents(gomock.Any(), models.IncidentFilter{
			Type:        models.IncidentTypePowerOutage,
			Confidences: []models.ConfidenceLevel{models.ConfidenceConfirmed, models.ConfidenceHighProbability},
			Box:         &models.BoundingBox{MinLat: -34, MaxLat: -33, MinLng: -71, MaxLng: -70},
			Limit:       10,
			Offset:      10,
		}).
		Return(incidents, nil)

	url := "/api/v1/incidents?type=power_outage&confidence=confirmed,high_probability" +
		"&minLat=-34&maxLat=-33&minLng=-71&maxLng=-70&page=2&pageSize=10"
	w := makeRequest(router, http.MethodGet, url, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestListIncidents_InvalidQuery(t *testing.T) {
	urls := []string{
		"/api/v1/incidents?confidence=certain",
		"/api/v1/incidents?minLat=-34&maxLat=-33",
		"/api/v1/incidents?minLat=-33&maxLat=-34&minLng=-71&maxLng=-70",
		"/api/v1/incidents?minLat=abc",
		"/api/v1/incidents?type=meteor",
		"/api/v1/incidents?pageSize=1000",
	}

	for _, url := range urls {
		t.Run(url, func(t *testing.T) {
			_, _, router := newTestHandler(t)

			w := makeRequest(router, http.MethodGet, url, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListIncidents_ServiceError(t *testing.T) {
	_, m, router := newTestHandler(t)

	m.incidents.EXPECT().ListIncidents(gomock.Any(), gomock.Any()).Return(nil, models.ErrStorageUnavailable)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDismissIncident_Success(t *testing.T) {
	_, m, router := newTestHandler(t, "test-api-key")
	incident := sampleIncident()
	incident.Confidence = models.ConfidenceDismissed

	m.incidents.EXPECT().DismissIncident(gomock.Any(), incident.ID).Return(incident, nil)

	w := makeRequest(router, http.MethodDelete, "/api/v1/incidents/"+incident.ID.String(), nil,
		map[string]string{"X-API-Key": "test-api-key"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "dismissed", resp.Confidence)
}

func TestDismissIncident_Unauthorized(t *testing.T) {
	_, _, router := newTestHandler(t, "test-api-key")

	w := makeRequest(router, http.MethodDelete, "/api/v1/incidents/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDismissIncident_NotFound(t *testing.T) {
	_, m, router := newTestHandler(t)
	id := uuid.New()

	m.incidents.EXPECT().DismissIncident(gomock.Any(), id).Return(nil, models.ErrIncidentNotFound)

	w := makeRequest(router, http.MethodDelete, "/api/v1/incidents/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAlerts_Success(t *testing.T) {
	_, m, router := newTestHandler(t)
	incident := sampleIncident()

	m.alerts.EXPECT().ListAlerts(gomock.Any()).Return([]models.Alert{
		{Incident: incident, Prediction: models.DefaultPrediction},
	}, nil)

	w := makeRequest(router, http.MethodGet, "/api/v1/alerts", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp []AlertResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, incident.ID, resp[0].Incident.ID)
	assert.Equal(t, PredictionResponse{Risk: "medium", Confidence: 0.5}, resp[0].Prediction)
}

func TestListAlerts_ServiceError(t *testing.T) {
	_, m, router := newTestHandler(t)

	m.alerts.EXPECT().ListAlerts(gomock.Any()).Return(nil, errors.New("boom"))

	w := makeRequest(router, http.MethodGet, "/api/v1/alerts", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthCheck(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, http.MethodGet, "/api/v1/system/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
