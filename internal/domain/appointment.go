package domain

import (
	"errors"
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

// AppointmentStatus represents the lifecycle status of an appointment
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusCheckedIn  AppointmentStatus = "checked_in"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// Appointment represents a booked service appointment for one staff member
type Appointment struct {
	ID              int64
	Number          string // человекочитаемый номер записи, например "APT-9F3A21C4"
	StaffID         int64
	CustomerID      int64
	Date            time.Time
	StartTime       types.TimeString
	DurationMinutes int
	Status          AppointmentStatus

	// Снимок данных услуги на момент записи
	ServiceName  string
	ServicePrice float64
	Notes        *string

	CancellationReason *string
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive returns true if the appointment occupies its time interval
// Отменённые и no-show записи интервал не занимают
func (a *Appointment) IsActive() bool {
	return a.Status != StatusCancelled && a.Status != StatusNoShow
}

// IsTerminal returns true if no further transitions except reactivation are possible
func (a *Appointment) IsTerminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusCancelled || a.Status == StatusNoShow
}

// CanBeCancelled returns true if the appointment can still be cancelled
func (a *Appointment) CanBeCancelled() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed || a.Status == StatusCheckedIn
}

// CanBeRescheduled returns true if the appointment can be moved to another slot
func (a *Appointment) CanBeRescheduled() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}

// EndTime returns the exclusive end of the appointment interval
func (a *Appointment) EndTime() (types.TimeString, error) {
	return a.StartTime.AddMinutes(a.DurationMinutes)
}

// Interval returns the appointment as a half-open interval in minutes of day
func (a *Appointment) Interval() (Interval, error) {
	start, err := a.StartTime.MinutesOfDay()
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: start + a.DurationMinutes}, nil
}

// transitions допустимые переходы статусов
// Реактивация cancelled/no_show -> scheduled разрешена, но требует повторной
// проверки конфликтов на уровне сервиса: интервал мог быть занят заново
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled:  {StatusConfirmed, StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusCheckedIn, StatusInProgress, StatusCancelled, StatusNoShow},
	StatusCheckedIn:  {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {StatusScheduled},
	StatusNoShow:     {StatusScheduled},
}

// CanTransitionTo returns true if the status change is allowed by the state machine
func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range transitions[a.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsReactivation returns true if the transition revives a cancelled or no-show appointment
func IsReactivation(from, to AppointmentStatus) bool {
	return (from == StatusCancelled || from == StatusNoShow) && to == StatusScheduled
}

// ErrInvalidStatus возвращается при неизвестном статусе записи
var ErrInvalidStatus = errors.New("invalid appointment status")

// ParseAppointmentStatus validates and converts a raw status string
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	status := AppointmentStatus(s)
	switch status {
	case StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return status, nil
	default:
		return "", ErrInvalidStatus
	}
}

// StaffAppointmentsFilter фильтр для выборки записей мастера
type StaffAppointmentsFilter struct {
	StaffID         int64              // Обязательный параметр
	StartDate       *time.Time         // Начало периода (опционально)
	EndDate         *time.Time         // Конец периода (опционально)
	Status          *AppointmentStatus // Фильтр по статусу (опционально)
	IncludeInactive bool               // Включать ли отменённые и no-show записи
}

// SingleDate возвращает true, если фильтр ограничен одной датой
// Для выборки на одну дату репозиторий добавляет FOR UPDATE внутри транзакции
func (f *StaffAppointmentsFilter) SingleDate() bool {
	return f.StartDate != nil && f.EndDate != nil && f.StartDate.Equal(*f.EndDate)
}
