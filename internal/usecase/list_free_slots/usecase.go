package list_free_slots

import (
	"context"
	"errors"
	"fmt"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	directoryClient "github.com/d-okhotin/SPA-BookingEngine/internal/integrations/directoryservice"
)

// UseCase use case получения свободных слотов мастера на дату
//
// Чистое чтение без побочных эффектов: безопасно вызывать конкурентно и
// повторно. Состояние не кешируется - каждый вызов заново читает хранилище
type UseCase struct {
	appointmentRepo  AppointmentRepository
	availabilityRepo AvailabilityRepository
	directoryClient  DirectoryClient
	timeProvider     TimeProvider
	logger           Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	availabilityRepo AvailabilityRepository,
	directoryClient DirectoryClient,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo:  appointmentRepo,
		availabilityRepo: availabilityRepo,
		directoryClient:  directoryClient,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// Execute выполняет use case получения свободных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("ListFreeSlots: staff=%d, date=%s, duration=%d, granularity=%d",
		req.StaffID, req.Date.Format(domain.DateFormat), req.DurationMinutes, req.GranularityMinutes)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("ListFreeSlots: validation failed: %v", err)
		return nil, err
	}

	granularity := req.GranularityMinutes
	if granularity == 0 {
		granularity = domain.DefaultSlotGranularityMinutes
	}

	// 2. Проверяем, что дата не в прошлом
	now := uc.timeProvider.Now()
	if isDateInPast(req.Date, now) {
		uc.logger.Warn("ListFreeSlots: date %s is in the past", req.Date.Format(domain.DateFormat))
		return nil, ErrDateInPast
	}

	// 3. Проверяем, что мастер существует и активен
	staff, err := uc.directoryClient.GetStaff(ctx, req.StaffID)
	if err != nil {
		if errors.Is(err, directoryClient.ErrStaffNotFound) {
			uc.logger.Warn("ListFreeSlots: staff id=%d not found", req.StaffID)
			return nil, ErrStaffNotFound
		}
		uc.logger.Error("ListFreeSlots: failed to get staff id=%d: %v", req.StaffID, err)
		return nil, fmt.Errorf("%w: failed to get staff: %v", ErrInternal, err)
	}
	if !staff.IsActive {
		uc.logger.Warn("ListFreeSlots: staff id=%d is inactive", req.StaffID)
		return nil, ErrStaffNotFound
	}

	// 4. Получаем правила доступности на дату
	rules, err := uc.availabilityRepo.GetRulesForDate(ctx, req.StaffID, req.Date)
	if err != nil {
		uc.logger.Error("ListFreeSlots: failed to get availability rules: %v", err)
		return nil, fmt.Errorf("%w: failed to get availability rules: %v", ErrInternal, err)
	}

	// 5. Получаем активные записи мастера на эту дату
	filter := domain.StaffAppointmentsFilter{
		StaffID:         req.StaffID,
		StartDate:       &req.Date,
		EndDate:         &req.Date,
		IncludeInactive: false, // Отменённые и no-show интервал не занимают
	}

	appointments, err := uc.appointmentRepo.GetByStaffWithFilter(ctx, filter)
	if err != nil {
		uc.logger.Error("ListFreeSlots: failed to get appointments: %v", err)
		return nil, fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
	}

	// 6. Строим последовательность свободных слотов
	slots, err := buildSlotSeq(
		req.StaffID,
		req.Date,
		rules,
		appointments,
		req.DurationMinutes,
		granularity,
		req.ExcludeAppointmentID,
	)
	if err != nil {
		uc.logger.Error("ListFreeSlots: failed to build slot sequence: %v", err)
		return nil, fmt.Errorf("%w: failed to build slot sequence: %v", ErrInternal, err)
	}

	uc.logger.Info("ListFreeSlots: computed slots for staff=%d, date=%s (%d rules, %d appointments)",
		req.StaffID, req.Date.Format(domain.DateFormat), len(rules), len(appointments))

	return &Response{
		StaffID:            req.StaffID,
		Date:               req.Date,
		DurationMinutes:    req.DurationMinutes,
		GranularityMinutes: granularity,
		Slots:              slots,
	}, nil
}
