package broadcast

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(bufSize int) *Hub {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return NewHub(logger, bufSize)
}

func snapshot(id uuid.UUID, count int, updated time.Time) models.Incident {
	return models.Incident{
		ID:           id,
		Type:         models.IncidentTypeFire,
		Confidence:   models.ConfidenceUnderObservation,
		ReportsCount: count,
		UpdatedAt:    updated,
	}
}

func receive(t *testing.T, sub *Subscription) models.Incident {
	t.Helper()
	select {
	case inc, ok := <-sub.Updates():
		require.True(t, ok, "updates channel closed")
		return inc
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}
	return models.Incident{}
}

func assertNoUpdate(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case inc, ok := <-sub.Updates():
		if ok {
			t.Fatalf("unexpected update: %+v", inc)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DeliversToEverySubscriber(t *testing.T) {
	hub := newTestHub(8)
	defer hub.Close()
	a := hub.Subscribe()
	b := hub.Subscribe()
	inc := snapshot(uuid.New(), 1, time.Now())

	hub.Publish(inc)

	assert.Equal(t, inc, receive(t, a))
	assert.Equal(t, inc, receive(t, b))
	assert.Equal(t, 2, hub.SubscriberCount())
}

func TestHub_LateSubscriberGetsNoReplay(t *testing.T) {
	hub := newTestHub(8)
	defer hub.Close()
	hub.Publish(snapshot(uuid.New(), 1, time.Now()))

	late := hub.Subscribe()
	assertNoUpdate(t, late)
}

func TestHub_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	hub := newTestHub(4)
	defer hub.Close()
	slow := hub.Subscribe()
	fast := hub.Subscribe()
	base := time.Now()

	var fastGot []int
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for inc := range fast.Updates() {
			fastGot = append(fastGot, inc.ReportsCount)
			if inc.ReportsCount == 100 {
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 100; i++ {
			hub.Publish(snapshot(uuid.New(), i, base.Add(time.Duration(i)*time.Millisecond)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked by a slow subscriber")
	}
	wg.Wait()
	require.NotEmpty(t, fastGot)
	assert.Equal(t, 100, fastGot[len(fastGot)-1])

	// Медленный подписчик теряет самые старые снимки и получает самые новые
	assert.Greater(t, slow.Dropped(), 0)
	var slowGot []int
	for len(slowGot) == 0 || slowGot[len(slowGot)-1] != 100 {
		slowGot = append(slowGot, receive(t, slow).ReportsCount)
	}
	assert.LessOrEqual(t, len(slowGot), 5)
	for i := 1; i < len(slowGot); i++ {
		assert.Less(t, slowGot[i-1], slowGot[i])
	}
}

func TestHub_StaleSnapshotForSameIncidentIsDiscarded(t *testing.T) {
	hub := newTestHub(8)
	defer hub.Close()
	sub := hub.Subscribe()
	id := uuid.New()
	base := time.Now()

	hub.Publish(snapshot(id, 2, base.Add(2*time.Second)))
	hub.Publish(snapshot(id, 1, base.Add(time.Second)))
	hub.Publish(snapshot(id, 3, base.Add(3*time.Second)))

	assert.Equal(t, 2, receive(t, sub).ReportsCount)
	assert.Equal(t, 3, receive(t, sub).ReportsCount)
	assertNoUpdate(t, sub)
}

func trackedIncidents(sub *Subscription) int {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return len(sub.last)
}

func TestHub_ForgetsIncidentsOutsideRetention(t *testing.T) {
	hub := newTestHub(16)
	hub.retention = time.Hour
	sub := hub.Subscribe()
	defer sub.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	quiet := uuid.New()
	busy := uuid.New()

	hub.Publish(snapshot(quiet, 1, base))
	hub.Publish(snapshot(busy, 1, base.Add(30*time.Minute)))
	assert.Equal(t, 2, trackedIncidents(sub))

	// Прошло больше часа с последнего снимка quiet
	hub.Publish(snapshot(busy, 2, base.Add(2*time.Hour)))
	assert.Equal(t, 1, trackedIncidents(sub))

	// Внутри окна устаревший снимок по-прежнему отбрасывается
	hub.Publish(snapshot(busy, 1, base.Add(90*time.Minute)))

	for _, want := range []int{1, 1, 2} {
		assert.Equal(t, want, receive(t, sub).ReportsCount)
	}
	assertNoUpdate(t, sub)
}

func TestHub_EqualTimestampsAreDelivered(t *testing.T) {
	hub := newTestHub(8)
	defer hub.Close()
	sub := hub.Subscribe()
	id := uuid.New()
	ts := time.Now()

	hub.Publish(snapshot(id, 1, ts))
	hub.Publish(snapshot(id, 2, ts))

	assert.Equal(t, 1, receive(t, sub).ReportsCount)
	assert.Equal(t, 2, receive(t, sub).ReportsCount)
}

func TestHub_PerIncidentOrderUnderConcurrentPublishers(t *testing.T) {
	hub := newTestHub(16)
	defer hub.Close()
	sub := hub.Subscribe()
	id := uuid.New()
	base := time.Now()
	const k = 200

	order := rand.Perm(k)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < k; i += 4 {
				n := order[i]
				hub.Publish(snapshot(id, n, base.Add(time.Duration(n)*time.Millisecond)))
			}
		}(w)
	}

	received := make(chan []time.Time, 1)
	go func() {
		var got []time.Time
		for {
			select {
			case inc := <-sub.Updates():
				got = append(got, inc.UpdatedAt)
			case <-time.After(200 * time.Millisecond):
				received <- got
				return
			}
		}
	}()
	wg.Wait()

	got := <-received
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Before(got[i-1]), "update %d went backwards", i)
	}
}

func TestHub_UnsubscribeClosesUpdates(t *testing.T) {
	hub := newTestHub(8)
	defer hub.Close()
	sub := hub.Subscribe()

	sub.Close()
	sub.Close()

	select {
	case _, ok := <-sub.Updates():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("updates channel not closed")
	}
	assert.Equal(t, 0, hub.SubscriberCount())
	hub.Publish(snapshot(uuid.New(), 1, time.Now()))
}

func TestHub_CloseDisconnectsEveryone(t *testing.T) {
	hub := newTestHub(8)
	sub := hub.Subscribe()

	hub.Close()
	hub.Close()
	hub.Publish(snapshot(uuid.New(), 1, time.Now()))

	_, ok := <-sub.Updates()
	assert.False(t, ok)

	after := hub.Subscribe()
	_, ok = <-after.Updates()
	assert.False(t, ok)
}
