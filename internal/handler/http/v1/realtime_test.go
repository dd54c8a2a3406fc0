package v1

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamIncidents_DeliversSnapshots(t *testing.T) {
	handler, _, router := newTestHandler(t)
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/realtime", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return handler.hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	incident := sampleIncident()
	handler.hub.Publish(*incident)

	lines := make(chan string, 64)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var event, data string
	timeout := time.After(2 * time.Second)
	for data == "" {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed early")
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			}
		case <-timeout:
			t.Fatal("no event received")
		}
	}

	assert.Equal(t, incidentUpdateEvent, event)
	var snapshot IncidentResponse
	require.NoError(t, json.Unmarshal([]byte(data), &snapshot))
	assert.Equal(t, incident.ID, snapshot.ID)
	assert.Equal(t, incident.ReportsCount, snapshot.ReportsCount)

	// Отключение клиента снимает подписку
	cancel()
	assert.Eventually(t, func() bool { return handler.hub.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
