package v1

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	incidentUpdateEvent = "incident_update"
	keepAliveInterval   = 15 * time.Second
)

// @Summary Stream incident updates
// @Description Server-Sent Events stream. Every event "incident_update" carries one incident snapshot as JSON. Missed updates are not replayed; pull /incidents on connect.
// @Tags Realtime
// @Produce text/event-stream
// @Success 200 {object} IncidentResponse "One snapshot per event"
// @Router /realtime [get]
func (h *Handler) streamIncidents(c *gin.Context) {
	sub := h.hub.Subscribe()
	defer sub.Close()

	log := h.logger.WithFields(logrus.Fields{
		"method":      "streamIncidents",
		"remote_addr": c.ClientIP(),
	})
	log.Info("Realtime client connected")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case incident, ok := <-sub.Updates():
			if !ok {
				return false
			}
			c.SSEvent(incidentUpdateEvent, ModelToIncidentResponse(&incident))
			return true
		case <-keepAlive.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		}
	})

	log.WithField("dropped", sub.Dropped()).Info("Realtime client disconnected")
}
