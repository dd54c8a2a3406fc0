// Package realtime пересылает снимки инцидентов из Hub во внешние транспорты.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/shenikar/public_alert_system/internal/broadcast"
	"github.com/shenikar/public_alert_system/internal/metrics"
	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/sirupsen/logrus"
)

const defaultSinkTimeout = 5 * time.Second

// Sink - внешний получатель снимков инцидентов
type Sink interface {
	Publish(ctx context.Context, incident models.Incident) error
}

type namedSink struct {
	name string
	sink Sink
}

// Relay - подписчик Hub, доставляющий каждый снимок во все зарегистрированные Sink.
// Ошибки доставки логируются и считаются, но не прерывают работу.
type Relay struct {
	hub         *broadcast.Hub
	logger      *logrus.Logger
	sinkTimeout time.Duration

	mu    sync.Mutex
	sinks []namedSink
}

func NewRelay(hub *broadcast.Hub, logger *logrus.Logger) *Relay {
	return &Relay{
		hub:         hub,
		logger:      logger,
		sinkTimeout: defaultSinkTimeout,
	}
}

// AddSink регистрирует получателя под именем, используемым в логах и метриках
func (r *Relay) AddSink(name string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, namedSink{name: name, sink: sink})
}

// SinkCount возвращает число зарегистрированных получателей
func (r *Relay) SinkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sinks)
}

// Run подписывается на Hub и блокируется до отмены ctx или закрытия Hub
func (r *Relay) Run(ctx context.Context) {
	sub := r.hub.Subscribe()
	defer sub.Close()

	r.logger.WithFields(logrus.Fields{
		"component": "realtime_relay",
		"sinks":     r.SinkCount(),
	}).Info("Realtime relay started")

	for {
		select {
		case <-ctx.Done():
			r.logger.WithField("component", "realtime_relay").Info("Realtime relay stopped")
			return
		case incident, ok := <-sub.Updates():
			if !ok {
				return
			}
			r.deliver(ctx, incident)
		}
	}
}

func (r *Relay) deliver(ctx context.Context, incident models.Incident) {
	r.mu.Lock()
	sinks := append([]namedSink(nil), r.sinks...)
	r.mu.Unlock()

	for _, s := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, r.sinkTimeout)
		err := s.sink.Publish(sinkCtx, incident)
		cancel()
		if err != nil {
			metrics.SinkErrors.WithLabelValues(s.name).Inc()
			r.logger.WithFields(logrus.Fields{
				"component":   "realtime_relay",
				"sink":        s.name,
				"incident_id": incident.ID,
			}).WithError(err).Warn("Failed to deliver incident update")
		}
	}
}
