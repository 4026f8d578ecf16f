package reschedule_appointment

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("reschedule_appointment: appointment not found")

	// ErrNotReschedulable возвращается, когда запись нельзя перенести (статус не scheduled/confirmed)
	ErrNotReschedulable = errors.New("reschedule_appointment: appointment cannot be rescheduled")

	// ErrDateInPast возвращается, когда новая дата уже прошла
	ErrDateInPast = errors.New("reschedule_appointment: date is in the past")

	// ErrOutsideWorkingHours возвращается, когда новый интервал вне рабочих часов мастера
	ErrOutsideWorkingHours = errors.New("reschedule_appointment: requested interval is outside working hours")

	// ErrSlotConflict возвращается, когда новый интервал пересекается с другой записью
	ErrSlotConflict = errors.New("reschedule_appointment: requested interval conflicts with an existing appointment")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("reschedule_appointment: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("reschedule_appointment: internal error")
)
