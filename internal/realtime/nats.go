package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shenikar/public_alert_system/internal/models"
)

// natsPublisher - часть *nats.Conn, нужная для публикации
type natsPublisher interface {
	Publish(subj string, data []byte) error
}

// NATSSink публикует каждый снимок инцидента в subject NATS в виде JSON
type NATSSink struct {
	conn    natsPublisher
	subject string
}

func NewNATSSink(conn natsPublisher, subject string) *NATSSink {
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) Publish(ctx context.Context, incident models.Incident) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", s.subject, err)
	}
	return nil
}
