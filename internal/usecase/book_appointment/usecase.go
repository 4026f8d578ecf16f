package book_appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	directoryClient "github.com/d-okhotin/SPA-BookingEngine/internal/integrations/directoryservice"
)

// UseCase use case создания записи
//
// Классическая гонка check-then-insert закрывается сериализуемой транзакцией:
// повторное чтение записей на (staff, date) идёт с блокировкой FOR UPDATE,
// поэтому два конкурентных бронирования пересекающихся интервалов не могут
// оба пройти проверку по устаревшему снимку. Бронирования разных мастеров
// или разных дат друг друга не блокируют
type UseCase struct {
	appointmentRepo  AppointmentRepository
	availabilityRepo AvailabilityRepository
	directoryClient  DirectoryClient
	txManager        TransactionManager
	timeProvider     TimeProvider
	logger           Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	availabilityRepo AvailabilityRepository,
	directoryClient DirectoryClient,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo:  appointmentRepo,
		availabilityRepo: availabilityRepo,
		directoryClient:  directoryClient,
		txManager:        txManager,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// Execute выполняет use case создания записи
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("BookAppointment: staff=%d, customer=%d, date=%s, time=%s, duration=%d",
		req.StaffID, req.CustomerID, req.Date.Format(domain.DateFormat), req.StartTime, req.DurationMinutes)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("BookAppointment: validation failed: %v", err)
		return nil, err
	}

	// 2. Проверяем, что дата не в прошлом
	now := uc.timeProvider.Now()
	if isDateInPast(req.Date, now) {
		uc.logger.Warn("BookAppointment: date %s is in the past", req.Date.Format(domain.DateFormat))
		return nil, ErrDateInPast
	}

	// 3. Проверяем мастера
	staff, err := uc.directoryClient.GetStaff(ctx, req.StaffID)
	if err != nil {
		if errors.Is(err, directoryClient.ErrStaffNotFound) {
			uc.logger.Warn("BookAppointment: staff id=%d not found", req.StaffID)
			return nil, ErrStaffNotFound
		}
		uc.logger.Error("BookAppointment: failed to get staff id=%d: %v", req.StaffID, err)
		return nil, fmt.Errorf("%w: failed to get staff: %v", ErrInternal, err)
	}
	if !staff.IsActive {
		uc.logger.Warn("BookAppointment: staff id=%d is inactive", req.StaffID)
		return nil, ErrStaffNotFound
	}

	// 4. Проверяем клиента
	customer, err := uc.directoryClient.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, directoryClient.ErrCustomerNotFound) {
			uc.logger.Warn("BookAppointment: customer id=%d not found", req.CustomerID)
			return nil, ErrCustomerNotFound
		}
		uc.logger.Error("BookAppointment: failed to get customer id=%d: %v", req.CustomerID, err)
		return nil, fmt.Errorf("%w: failed to get customer: %v", ErrInternal, err)
	}
	if !customer.IsActive {
		uc.logger.Warn("BookAppointment: customer id=%d is inactive", req.CustomerID)
		return nil, ErrCustomerNotFound
	}

	interval, err := requestInterval(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to compute interval: %v", ErrInternal, err)
	}

	// Переменная для хранения результата
	var result *domain.Appointment

	// 5. Проверка конфликтов и вставка атомарно, в сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 5.1. Правила доступности на дату
		rules, err := uc.availabilityRepo.GetRulesForDate(txCtx, req.StaffID, req.Date)
		if err != nil {
			uc.logger.Error("BookAppointment: failed to get availability rules: %v", err)
			return fmt.Errorf("%w: failed to get availability rules: %v", ErrInternal, err)
		}

		// 5.2. Интервал должен попадать в рабочие часы (за вычетом перерыва)
		ok, err := withinWorkingIntervals(rules, req.Date, interval)
		if err != nil {
			uc.logger.Error("BookAppointment: failed to check working hours: %v", err)
			return fmt.Errorf("%w: failed to check working hours: %v", ErrInternal, err)
		}
		if !ok {
			uc.logger.Warn("BookAppointment: interval %s+%dm is outside working hours for staff=%d",
				req.StartTime, req.DurationMinutes, req.StaffID)
			return ErrOutsideWorkingHours
		}

		// 5.3. Повторно читаем активные записи на (staff, date) с блокировкой FOR UPDATE
		filter := domain.StaffAppointmentsFilter{
			StaffID:         req.StaffID,
			StartDate:       &req.Date,
			EndDate:         &req.Date,
			IncludeInactive: false,
		}

		appointments, err := uc.appointmentRepo.GetByStaffWithFilter(txCtx, filter)
		if err != nil {
			uc.logger.Error("BookAppointment: failed to get appointments: %v", err)
			return fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
		}

		// 5.4. Строгая проверка пересечения: new.start < ex.end && ex.start < new.end
		conflict, err := findConflict(appointments, interval, 0)
		if err != nil {
			uc.logger.Error("BookAppointment: failed to check conflicts: %v", err)
			return fmt.Errorf("%w: failed to check conflicts: %v", ErrInternal, err)
		}
		if conflict != nil {
			uc.logger.Warn("BookAppointment: interval %s+%dm conflicts with appointment id=%d (%s+%dm)",
				req.StartTime, req.DurationMinutes, conflict.ID, conflict.StartTime, conflict.DurationMinutes)
			return ErrSlotConflict
		}

		// 5.5. Вставляем запись в статусе scheduled
		appt := &domain.Appointment{
			Number:          newAppointmentNumber(),
			StaffID:         req.StaffID,
			CustomerID:      req.CustomerID,
			Date:            req.Date,
			StartTime:       req.StartTime,
			DurationMinutes: req.DurationMinutes,
			Status:          domain.StatusScheduled,
			ServiceName:     req.ServiceName,
			ServicePrice:    req.ServicePrice,
			Notes:           req.Notes,
		}

		created, err := uc.appointmentRepo.Create(txCtx, appt)
		if err != nil {
			uc.logger.Error("BookAppointment: failed to create appointment: %v", err)
			return fmt.Errorf("%w: failed to create appointment: %v", ErrInternal, err)
		}

		result = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	uc.logger.Info("BookAppointment: successfully created appointment id=%d number=%s", result.ID, result.Number)

	endTime, err := result.EndTime()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to compute end time: %v", ErrInternal, err)
	}

	return &Response{
		ID:              result.ID,
		Number:          result.Number,
		StaffID:         result.StaffID,
		CustomerID:      result.CustomerID,
		Date:            result.Date,
		StartTime:       result.StartTime,
		EndTime:         endTime,
		DurationMinutes: result.DurationMinutes,
		Status:          string(result.Status),
		ServiceName:     result.ServiceName,
		ServicePrice:    result.ServicePrice,
		Notes:           result.Notes,
		CreatedAt:       result.CreatedAt,
		UpdatedAt:       result.UpdatedAt,
	}, nil
}

// newAppointmentNumber генерирует человекочитаемый номер записи, например "APT-9F3A21C4"
func newAppointmentNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "APT-" + strings.ToUpper(raw[:8])
}
