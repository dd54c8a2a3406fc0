// Package broadcast рассылает снимки инцидентов всем подписчикам процесса.
//
// Publish никогда не блокируется: у каждого подписчика своя ограниченная
// очередь, при переполнении из нее вытесняется самый старый снимок.
// Для одного и того же инцидента подписчик получает снимки в порядке
// неубывания UpdatedAt. Пропущенные до подписки обновления не повторяются.
// Инциденты, не обновлявшиеся дольше DefaultRetention относительно самого
// свежего снимка, подписка забывает.
package broadcast

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/public_alert_system/internal/metrics"
	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBufferSize = 64
	// DefaultRetention совпадает с окном актуальности корреляции
	DefaultRetention = 3 * time.Hour

	pruneEvery = 6 // очистка не чаще чем раз в retention/pruneEvery
)

// Hub - координатор рассылки
type Hub struct {
	logger    *logrus.Logger
	bufSize   int
	retention time.Duration

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

// NewHub создает координатор с очередью bufSize на подписчика
func NewHub(logger *logrus.Logger, bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Hub{
		logger:    logger,
		bufSize:   bufSize,
		retention: DefaultRetention,
		subs:      make(map[uint64]*Subscription),
	}
}

// Subscription - подписка одного наблюдателя
type Subscription struct {
	id  uint64
	hub *Hub

	mu       sync.Mutex
	queue    []models.Incident
	last     map[uuid.UUID]time.Time
	newest   time.Time
	prunedAt time.Time
	dropped  int

	wake    chan struct{}
	updates chan models.Incident
	done    chan struct{}
	once    sync.Once
}

// Subscribe регистрирует нового подписчика. После закрытия Hub канал
// Updates возвращенной подписки сразу закрыт.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		hub:     h,
		last:    make(map[uuid.UUID]time.Time),
		wake:    make(chan struct{}, 1),
		updates: make(chan models.Incident),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.stop()
		go sub.pump()
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	h.mu.Unlock()

	metrics.Subscribers.Inc()
	h.logger.WithFields(logrus.Fields{
		"component":       "broadcast",
		"subscription_id": sub.id,
	}).Debug("Subscriber connected")

	go sub.pump()
	return sub
}

// Unsubscribe отключает подписчика; повторный вызов безопасен
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.subs[sub.id]
	delete(h.subs, sub.id)
	h.mu.Unlock()

	if ok {
		metrics.Subscribers.Dec()
		h.logger.WithFields(logrus.Fields{
			"component":       "broadcast",
			"subscription_id": sub.id,
			"dropped":         sub.Dropped(),
		}).Debug("Subscriber disconnected")
	}
	sub.stop()
}

// Publish ставит снимок в очередь каждого текущего подписчика и сразу возвращается
func (h *Hub) Publish(incident models.Incident) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	metrics.BroadcastPublished.Inc()
	for _, sub := range h.subs {
		sub.enqueue(incident, h.bufSize)
	}
}

// SubscriberCount возвращает число активных подписчиков
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close отключает всех подписчиков, дальнейшие Publish игнорируются
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[uint64]*Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		metrics.Subscribers.Dec()
		sub.stop()
	}
}

// Updates возвращает канал снимков; он закрывается после отписки
func (s *Subscription) Updates() <-chan models.Incident {
	return s.updates
}

// Close - синоним Hub.Unsubscribe
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// Dropped возвращает число снимков, вытесненных из-за переполнения
func (s *Subscription) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Subscription) enqueue(incident models.Incident, capacity int) {
	s.mu.Lock()
	if last, ok := s.last[incident.ID]; ok && incident.UpdatedAt.Before(last) {
		s.mu.Unlock()
		metrics.BroadcastDropped.WithLabelValues("stale").Inc()
		return
	}
	s.last[incident.ID] = incident.UpdatedAt
	if incident.UpdatedAt.After(s.newest) {
		s.newest = incident.UpdatedAt
	}
	s.pruneLocked(s.hub.retention)

	if len(s.queue) >= capacity {
		// Вытесняем самый старый снимок, а не блокируем издателя
		s.queue[0] = models.Incident{}
		s.queue = s.queue[1:]
		s.dropped++
		metrics.BroadcastDropped.WithLabelValues("overflow").Inc()
	}
	s.queue = append(s.queue, incident)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pruneLocked забывает инциденты, последний снимок которых старше newest-retention
func (s *Subscription) pruneLocked(retention time.Duration) {
	if retention <= 0 || s.newest.Sub(s.prunedAt) < retention/pruneEvery {
		return
	}
	cutoff := s.newest.Add(-retention)
	for id, updated := range s.last {
		if updated.Before(cutoff) {
			delete(s.last, id)
		}
	}
	s.prunedAt = s.newest
}

func (s *Subscription) dequeue() (models.Incident, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return models.Incident{}, false
	}
	next := s.queue[0]
	s.queue[0] = models.Incident{}
	s.queue = s.queue[1:]
	return next, true
}

// pump перекладывает очередь в канал Updates в порядке поступления
func (s *Subscription) pump() {
	defer close(s.updates)
	for {
		next, ok := s.dequeue()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		select {
		case s.updates <- next:
		case <-s.done:
			return
		}
	}
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.done) })
}
