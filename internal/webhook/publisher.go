package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/public_alert_system/internal/models"
)

const (
	webhookQueueKey = "incident_webhook_events"

	// EventIncidentUpdate - тип события об изменении инцидента
	EventIncidentUpdate = "incident_update"
)

// IncidentEvent - структура для данных вебхука
type IncidentEvent struct {
	Event     string          `json:"event"`
	Incident  models.Incident `json:"incident"`
	Timestamp time.Time       `json:"timestamp"`
}

// RedisWebhookPublisher ставит события в очередь Redis, откуда их забирает WebhookWorker
type RedisWebhookPublisher struct {
	redisClient *redis.Client
	now         func() time.Time
}

// NewRedisWebhookPublisher создает новый RedisWebhookPublisher
func NewRedisWebhookPublisher(client *redis.Client) *RedisWebhookPublisher {
	return &RedisWebhookPublisher{
		redisClient: client,
		now:         time.Now,
	}
}

// Publish публикует снимок инцидента в очередь вебхуков
func (p *RedisWebhookPublisher) Publish(ctx context.Context, incident models.Incident) error {
	event := IncidentEvent{
		Event:     EventIncidentUpdate,
		Incident:  incident,
		Timestamp: p.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	// LPUSH в голову списка, воркер забирает с хвоста (BRPOP)
	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to Redis: %w", err)
	}
	return nil
}
