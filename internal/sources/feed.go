// Package sources периодически отправляет отчеты от официальных источников.
package sources

import (
	"context"
	"time"

	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/shenikar/public_alert_system/internal/service"
	"github.com/sirupsen/logrus"
)

const (
	DefaultInterval = 30 * time.Minute

	officialTitle = "Reporte oficial simulado"
)

// officialLocation - точка, о которой сообщает имитируемый официальный источник
var officialLocation = models.GeoPoint{Lat: -33.45, Lng: -70.66}

// Feed - имитация официального источника. Отчеты идут через тот же
// ReportService, что и пользовательские, и конкурируют с ними на общих правилах.
type Feed struct {
	reports  service.ReportService
	interval time.Duration
	logger   *logrus.Logger
}

func NewFeed(reports service.ReportService, interval time.Duration, logger *logrus.Logger) *Feed {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Feed{
		reports:  reports,
		interval: interval,
		logger:   logger,
	}
}

// Run отправляет отчет раз в interval до отмены ctx
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.WithFields(logrus.Fields{
		"component": "sources",
		"interval":  f.interval.String(),
	}).Info("Official source feed started")

	for {
		select {
		case <-ctx.Done():
			f.logger.WithField("component", "sources").Info("Official source feed stopped")
			return
		case <-ticker.C:
			f.ingest(ctx)
		}
	}
}

func (f *Feed) ingest(ctx context.Context) {
	log := f.logger.WithFields(logrus.Fields{
		"component": "sources",
		"method":    "ingest",
	})

	location := officialLocation
	result, err := f.reports.SubmitReport(ctx, &models.Report{
		Title:    officialTitle,
		Type:     models.IncidentTypePowerOutage,
		Location: &location,
		Source:   models.SourceOfficial,
	})
	if err != nil {
		log.WithError(err).Error("Failed to ingest official report")
		return
	}
	log.WithField("incident_id", result.Incident.ID).Info("Official report ingested")
}
