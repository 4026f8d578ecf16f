package appointments

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("appointments service: appointment not found")

	// ErrCannotCancel возвращается, когда запись нельзя отменить в текущем статусе
	ErrCannotCancel = errors.New("appointments service: appointment cannot be cancelled")

	// ErrInvalidTransition возвращается при недопустимом переходе статусов
	ErrInvalidTransition = errors.New("appointments service: invalid status transition")

	// ErrStatusChanged возвращается, когда статус записи изменился конкурентно
	ErrStatusChanged = errors.New("appointments service: appointment status changed concurrently")

	// ErrReactivationConflict возвращается, когда слот записи занят при реактивации
	ErrReactivationConflict = errors.New("appointments service: appointment slot is no longer free")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("appointments service: invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("appointments service: internal error")
)
