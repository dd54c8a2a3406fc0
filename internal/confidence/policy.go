// Package confidence вычисляет уровень доверия инцидента по источнику
// последнего отчета и текущему числу отчетов.
package confidence

import "github.com/shenikar/public_alert_system/internal/models"

// HighProbabilityThreshold - число отчетов, начиная с которого инцидент считается весьма вероятным
const HighProbabilityThreshold = 3

// Next возвращает уровень доверия для инцидента после применения отчета.
//
// Правило смотрит только на источник текущего отчета и счетчик, поэтому
// подтвержденный официально инцидент может опуститься после отчета гражданина.
// Уровень dismissed отсюда не выдается никогда.
func Next(source models.Source, reportsCount int) models.ConfidenceLevel {
	switch {
	case source == models.SourceOfficial:
		return models.ConfidenceConfirmed
	case reportsCount >= HighProbabilityThreshold:
		return models.ConfidenceHighProbability
	default:
		return models.ConfidenceUnderObservation
	}
}
