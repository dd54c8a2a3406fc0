package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var incident = &models.Incident{
	Type:     models.IncidentTypeFire,
	Location: models.GeoPoint{Lat: -33.45, Lng: -70.66},
}

func TestClient_Predict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req models.PredictionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.IncidentTypeFire, req.Type)
		assert.Equal(t, -33.45, req.Lat)
		assert.Equal(t, -70.66, req.Lng)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"risk":"high","confidence":0.87}`))
	}))
	defer server.Close()

	got, err := NewClient(server.URL, time.Second).Predict(context.Background(), incident)
	require.NoError(t, err)
	assert.Equal(t, models.Prediction{Risk: models.RiskHigh, Confidence: 0.87}, got)
}

func TestClient_PredictFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"risk":`))
			},
		},
		{
			name: "unknown risk",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"risk":"extreme","confidence":1}`))
			},
		},
		{
			name: "too slow",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(500 * time.Millisecond):
				case <-r.Context().Done():
				}
				_, _ = w.Write([]byte(`{"risk":"low","confidence":0.1}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewClient(server.URL, 50*time.Millisecond).Predict(context.Background(), incident)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrPredictionUnavailable)
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	_, err := NewClient("", 0).Predict(context.Background(), incident)
	assert.ErrorIs(t, err, models.ErrPredictionUnavailable)
}
