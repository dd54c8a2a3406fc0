package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/public_alert_system/internal/models"
)

const defaultIncidentCacheTTL = 5 * time.Minute

// IncidentCache - кэш снимков инцидентов в Redis
type IncidentCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewIncidentCache(redisClient *redis.Client, ttl time.Duration) *IncidentCache {
	if ttl <= 0 {
		ttl = defaultIncidentCacheTTL
	}
	return &IncidentCache{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func incidentCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("incident:%s", id.String())
}

// Снимок хранится в хэше: поле version сравнивается скриптом, поле data отдается читателям.
// Запись со старой или той же версией пропускается.
var setIfNewerScript = redis.NewScript(`
local cached = redis.call('HGET', KEYS[1], 'version')
if cached and tonumber(cached) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// cachedIncident хранит версию, которую json-представление инцидента скрывает
type cachedIncident struct {
	*models.Incident
	Version int64 `json:"version"`
}

// GetIncidentFromCache пытается получить инцидент из Redis; промах - (nil, nil)
func (c *IncidentCache) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	val, err := c.redisClient.HGet(ctx, incidentCacheKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	cached := cachedIncident{Incident: &models.Incident{}}
	if err := json.Unmarshal(val, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	cached.Incident.Version = cached.Version
	return cached.Incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis, если в кэше нет снимка той же или более новой версии
func (c *IncidentCache) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	val, err := json.Marshal(cachedIncident{Incident: incident, Version: incident.Version})
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	err = setIfNewerScript.Run(ctx, c.redisClient,
		[]string{incidentCacheKey(incident.ID)},
		incident.Version, val, c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (c *IncidentCache) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	if err := c.redisClient.Del(ctx, incidentCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
