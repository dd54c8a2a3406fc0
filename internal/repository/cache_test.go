package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestIncidentCache_SetGetInvalidate(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewIncidentCache(client, time.Minute)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	incident := &models.Incident{
		ID:             uuid.New(),
		Title:          "Corte de luz",
		Type:           models.IncidentTypePowerOutage,
		Confidence:     models.ConfidenceHighProbability,
		Location:       models.GeoPoint{Lat: -33.45, Lng: -70.66},
		ReportsCount:   3,
		Source:         models.SourceCitizen,
		LastReportedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        7,
	}

	miss, err := cache.GetIncidentFromCache(ctx, incident.ID)
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, cache.SetIncidentCache(ctx, incident))

	got, err := cache.GetIncidentFromCache(ctx, incident.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, incident.Title, got.Title)
	assert.Equal(t, incident.ReportsCount, got.ReportsCount)
	assert.Equal(t, int64(7), got.Version)
	assert.True(t, incident.UpdatedAt.Equal(got.UpdatedAt))

	require.NoError(t, cache.InvalidateIncidentCache(ctx, incident.ID))
	miss, err = cache.GetIncidentFromCache(ctx, incident.ID)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestIncidentCache_Expires(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewIncidentCache(client, time.Second)
	ctx := context.Background()
	incident := &models.Incident{ID: uuid.New(), Title: "x"}

	require.NoError(t, cache.SetIncidentCache(ctx, incident))
	mr.FastForward(2 * time.Second)

	got, err := cache.GetIncidentFromCache(ctx, incident.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIncidentCache_CorruptedEntry(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewIncidentCache(client, time.Minute)
	id := uuid.New()
	mr.HSet(incidentCacheKey(id), "version", "1", "data", "{not json")

	_, err := cache.GetIncidentFromCache(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal incident from cache")
}

func TestIncidentCache_OlderSnapshotDoesNotOverwrite(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewIncidentCache(client, time.Minute)
	ctx := context.Background()

	id := uuid.New()
	active := &models.Incident{ID: id, Title: "Incendio", Confidence: models.ConfidenceUnderObservation, ReportsCount: 1, Version: 1}
	dismissed := &models.Incident{ID: id, Title: "Incendio", Confidence: models.ConfidenceDismissed, ReportsCount: 1, Version: 2}

	// Снимок модерации записан раньше, чем запоздавший снимок версии 1
	require.NoError(t, cache.SetIncidentCache(ctx, dismissed))
	require.NoError(t, cache.SetIncidentCache(ctx, active))

	got, err := cache.GetIncidentFromCache(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.ConfidenceDismissed, got.Confidence)
	assert.Equal(t, int64(2), got.Version)
}

func TestIncidentCache_NewerSnapshotReplaces(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewIncidentCache(client, time.Minute)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, cache.SetIncidentCache(ctx, &models.Incident{ID: id, ReportsCount: 1, Version: 1}))
	require.NoError(t, cache.SetIncidentCache(ctx, &models.Incident{ID: id, ReportsCount: 2, Version: 2}))

	got, err := cache.GetIncidentFromCache(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ReportsCount)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, time.Minute, mr.TTL(incidentCacheKey(id)))
}
