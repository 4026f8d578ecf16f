package reschedule_appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	appointmentRepo "github.com/d-okhotin/SPA-BookingEngine/internal/infra/storage/appointment"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

// Request модель запроса на перенос записи
type Request struct {
	AppointmentID   int64            // ID переносимой записи
	Date            time.Time        // Новая дата
	StartTime       types.TimeString // Новое время начала
	DurationMinutes int              // Новая длительность (0 = оставить прежнюю)
}

// Response модель ответа с перенесённой записью
type Response struct {
	ID              int64
	Number          string
	StaffID         int64
	Date            time.Time
	StartTime       types.TimeString
	DurationMinutes int
	Status          string
}

// UseCase use case переноса записи на другой слот
//
// Перенос идёт под тем же сериализуемым конфликт-чеком, что и создание,
// с одним отличием: собственный интервал записи не считается занятым
type UseCase struct {
	appointmentRepo  AppointmentRepository
	availabilityRepo AvailabilityRepository
	txManager        TransactionManager
	timeProvider     TimeProvider
	logger           Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	availabilityRepo AvailabilityRepository,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo:  appointmentRepo,
		availabilityRepo: availabilityRepo,
		txManager:        txManager,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// Execute выполняет use case переноса записи
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("RescheduleAppointment: appointment=%d, date=%s, time=%s",
		req.AppointmentID, req.Date.Format(domain.DateFormat), req.StartTime)

	if err := validateRequest(req); err != nil {
		uc.logger.Warn("RescheduleAppointment: validation failed: %v", err)
		return nil, err
	}

	now := uc.timeProvider.Now()
	if isDateInPast(req.Date, now) {
		uc.logger.Warn("RescheduleAppointment: date %s is in the past", req.Date.Format(domain.DateFormat))
		return nil, ErrDateInPast
	}

	var result *domain.Appointment

	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 1. Читаем запись и проверяем, что её можно переносить
		appt, err := uc.appointmentRepo.GetByID(txCtx, req.AppointmentID)
		if err != nil {
			if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
				uc.logger.Warn("RescheduleAppointment: appointment id=%d not found", req.AppointmentID)
				return ErrAppointmentNotFound
			}
			uc.logger.Error("RescheduleAppointment: failed to get appointment id=%d: %v", req.AppointmentID, err)
			return fmt.Errorf("%w: failed to get appointment: %v", ErrInternal, err)
		}

		if !appt.CanBeRescheduled() {
			uc.logger.Warn("RescheduleAppointment: appointment id=%d has status %s", appt.ID, appt.Status)
			return ErrNotReschedulable
		}

		duration := req.DurationMinutes
		if duration == 0 {
			duration = appt.DurationMinutes
		}

		start, err := req.StartTime.MinutesOfDay()
		if err != nil {
			return fmt.Errorf("%w: invalid startTime: %v", ErrInvalidInput, err)
		}
		interval := domain.Interval{Start: start, End: start + duration}

		// 2. Новый интервал должен попадать в рабочие часы мастера
		rules, err := uc.availabilityRepo.GetRulesForDate(txCtx, appt.StaffID, req.Date)
		if err != nil {
			uc.logger.Error("RescheduleAppointment: failed to get availability rules: %v", err)
			return fmt.Errorf("%w: failed to get availability rules: %v", ErrInternal, err)
		}

		ok, err := withinWorkingIntervals(rules, req.Date, interval)
		if err != nil {
			return fmt.Errorf("%w: failed to check working hours: %v", ErrInternal, err)
		}
		if !ok {
			uc.logger.Warn("RescheduleAppointment: interval %s+%dm is outside working hours for staff=%d",
				req.StartTime, duration, appt.StaffID)
			return ErrOutsideWorkingHours
		}

		// 3. Конфликт-чек на новой дате с блокировкой, исключая саму запись
		filter := domain.StaffAppointmentsFilter{
			StaffID:         appt.StaffID,
			StartDate:       &req.Date,
			EndDate:         &req.Date,
			IncludeInactive: false,
		}

		appointments, err := uc.appointmentRepo.GetByStaffWithFilter(txCtx, filter)
		if err != nil {
			uc.logger.Error("RescheduleAppointment: failed to get appointments: %v", err)
			return fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
		}

		conflict, err := findConflict(appointments, interval, appt.ID)
		if err != nil {
			return fmt.Errorf("%w: failed to check conflicts: %v", ErrInternal, err)
		}
		if conflict != nil {
			uc.logger.Warn("RescheduleAppointment: interval %s+%dm conflicts with appointment id=%d",
				req.StartTime, duration, conflict.ID)
			return ErrSlotConflict
		}

		// 4. Обновляем дату и время
		appt.Date = req.Date
		appt.StartTime = req.StartTime
		appt.DurationMinutes = duration

		if err := uc.appointmentRepo.UpdateSchedule(txCtx, appt.ID, appt); err != nil {
			uc.logger.Error("RescheduleAppointment: failed to update schedule: %v", err)
			return fmt.Errorf("%w: failed to update schedule: %v", ErrInternal, err)
		}

		result = appt
		return nil
	})

	if err != nil {
		return nil, err
	}

	uc.logger.Info("RescheduleAppointment: appointment id=%d moved to %s %s",
		result.ID, result.Date.Format(domain.DateFormat), result.StartTime)

	return &Response{
		ID:              result.ID,
		Number:          result.Number,
		StaffID:         result.StaffID,
		Date:            result.Date,
		StartTime:       result.StartTime,
		DurationMinutes: result.DurationMinutes,
		Status:          string(result.Status),
	}, nil
}

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.AppointmentID <= 0 {
		return fmt.Errorf("%w: appointmentID must be positive", ErrInvalidInput)
	}
	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if req.StartTime.IsZero() {
		return fmt.Errorf("%w: startTime is required", ErrInvalidInput)
	}
	if err := req.StartTime.Validate(); err != nil {
		return fmt.Errorf("%w: invalid startTime format: %v", ErrInvalidInput, err)
	}
	if req.DurationMinutes < 0 || req.DurationMinutes > domain.MaxDurationMinutes {
		return fmt.Errorf("%w: durationMinutes out of range", ErrInvalidInput)
	}
	return nil
}

// withinWorkingIntervals проверяет, что интервал целиком помещается в один из
// рабочих интервалов действующих правил (за вычетом перерыва)
func withinWorkingIntervals(rules []*domain.AvailabilityRule, date time.Time, interval domain.Interval) (bool, error) {
	for _, rule := range domain.ResolveRulesForDate(rules, date) {
		work, err := rule.WorkingIntervals()
		if err != nil {
			return false, err
		}
		for _, w := range work {
			if interval.Start >= w.Start && interval.End <= w.End {
				return true, nil
			}
		}
	}
	return false, nil
}

// findConflict возвращает первую активную запись, пересекающуюся с интервалом
func findConflict(appointments []*domain.Appointment, interval domain.Interval, excludeID int64) (*domain.Appointment, error) {
	for _, appt := range appointments {
		if !appt.IsActive() {
			continue
		}
		if appt.ID == excludeID {
			continue
		}

		existing, err := appt.Interval()
		if err != nil {
			return nil, err
		}
		if interval.Overlaps(existing) {
			return appt, nil
		}
	}
	return nil, nil
}

// isDateInPast проверяет, что дата в прошлом (раньше сегодняшнего дня)
func isDateInPast(date, now time.Time) bool {
	dateOnly := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	nowOnly := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return dateOnly.Before(nowOnly)
}
