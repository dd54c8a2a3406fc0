package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/public_alert_system/internal/metrics"
	"github.com/shenikar/public_alert_system/internal/models"
	"github.com/sirupsen/logrus"
)

// ReportServiceDeps - зависимости сервиса приема отчетов
type ReportServiceDeps struct {
	Reports           ReportRepository
	Correlator        Correlator
	Cache             IncidentCache
	Broadcaster       Broadcaster
	Predictor         Predictor
	PredictionTimeout time.Duration
	Now               func() time.Time
}

type reportService struct {
	deps   ReportServiceDeps
	logger *logrus.Logger
}

func NewReportService(deps ReportServiceDeps, logger *logrus.Logger) ReportService {
	if deps.Cache == nil {
		deps.Cache = noopCache{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &reportService{
		deps:   deps,
		logger: logger,
	}
}

// SubmitReport сохраняет отчет, присоединяет его к инциденту и рассылает результат
func (s *reportService) SubmitReport(ctx context.Context, report *models.Report) (*models.Submission, error) {
	if err := report.Validate(); err != nil {
		metrics.ReportsTotal.WithLabelValues(sourceLabel(report), "invalid").Inc()
		return nil, err
	}

	report.Source = report.EffectiveSource()
	report.ID = uuid.New()
	report.CreatedAt = s.deps.Now().UTC()

	log := s.logger.WithFields(logrus.Fields{
		"service":       "report",
		"method":        "SubmitReport",
		"report_id":     report.ID,
		"incident_type": report.Type,
		"source":        report.Source,
	})
	log.Info("Report received")

	// Отчет вторичен по отношению к инциденту: сбой сохранения не прерывает корреляцию
	if s.deps.Reports != nil {
		if err := s.deps.Reports.SaveReport(ctx, report); err != nil {
			metrics.ReportSaveErrors.Inc()
			log.WithError(err).Error("Failed to save report")
		}
	}

	incident, err := s.deps.Correlator.Upsert(ctx, report)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, models.ErrInvalidReport) {
			outcome = "invalid"
		}
		metrics.ReportsTotal.WithLabelValues(string(report.Source), outcome).Inc()
		log.WithError(err).Error("Failed to correlate report")
		return nil, err
	}

	if s.deps.Broadcaster != nil {
		s.deps.Broadcaster.Publish(*incident.Clone())
	}
	if err := s.deps.Cache.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to refresh incident cache")
	}

	prediction := predictOrDefault(ctx, s.deps.Predictor, s.deps.PredictionTimeout, incident, log)

	metrics.ReportsTotal.WithLabelValues(string(report.Source), "accepted").Inc()
	log.WithFields(logrus.Fields{
		"incident_id":   incident.ID,
		"reports_count": incident.ReportsCount,
		"confidence":    incident.Confidence,
	}).Info("Report correlated successfully")

	return &models.Submission{
		Report:     report,
		Incident:   incident,
		Prediction: prediction,
	}, nil
}

// sourceLabel ограничивает значения метки известными источниками
func sourceLabel(report *models.Report) string {
	source := report.EffectiveSource()
	if !source.Valid() {
		return "unknown"
	}
	return string(source)
}
