package models

import "errors"

var (
	// ErrInvalidReport - отчет отклонен до начала сопоставления
	ErrInvalidReport = errors.New("invalid report")
	// ErrStorageUnavailable - хранилище недоступно, повтор запроса безопасен
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrVersionConflict - запись изменилась между чтением и записью
	ErrVersionConflict = errors.New("version conflict")
	// ErrIncidentNotFound - инцидент не найден
	ErrIncidentNotFound = errors.New("incident not found")
	// ErrPredictionUnavailable - сервис предсказаний не ответил успешно
	ErrPredictionUnavailable = errors.New("prediction unavailable")
)
