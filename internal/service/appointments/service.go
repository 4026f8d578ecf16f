package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	"github.com/d-okhotin/SPA-BookingEngine/internal/infra/events"
	appointmentRepo "github.com/d-okhotin/SPA-BookingEngine/internal/infra/storage/appointment"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/appointments/models"
)

// Service сервис для работы с записями: чтение, отмена, смена статусов
type Service struct {
	appointmentRepo AppointmentRepository
	txManager       TransactionManager
	publisher       EventPublisher
	timeProvider    TimeProvider
	logger          Logger
}

// NewService создает новый экземпляр сервиса записей
func NewService(
	appointmentRepo AppointmentRepository,
	txManager TransactionManager,
	publisher EventPublisher,
	logger Logger,
) *Service {
	return &Service{
		appointmentRepo: appointmentRepo,
		txManager:       txManager,
		publisher:       publisher,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// GetByID получает запись по ID
func (s *Service) GetByID(ctx context.Context, id int64) (*models.AppointmentResponse, error) {
	s.logger.Info("GetByID: fetching appointment id=%d", id)

	appt, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("GetByID: appointment id=%d not found", id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("GetByID: repository error for appointment id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainAppointment(appt), nil
}

// GetByNumber получает запись по человекочитаемому номеру, например "APT-9F3A21C4"
func (s *Service) GetByNumber(ctx context.Context, number string) (*models.AppointmentResponse, error) {
	s.logger.Info("GetByNumber: fetching appointment number=%s", number)

	appt, err := s.appointmentRepo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("GetByNumber: appointment number=%s not found", number)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("GetByNumber: repository error for number=%s: %v", number, err)
		return nil, fmt.Errorf("%w: GetByNumber - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainAppointment(appt), nil
}

// GetCustomerAppointments получает историю записей клиента
// Опционально фильтрует по статусу
func (s *Service) GetCustomerAppointments(ctx context.Context, req *models.GetCustomerAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("GetCustomerAppointments: fetching appointments for customer=%d, status=%v", req.CustomerID, req.Status)

	var domainStatus *domain.AppointmentStatus
	if req.Status != nil {
		status, err := domain.ParseAppointmentStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetCustomerAppointments: invalid status=%s for customer=%d", *req.Status, req.CustomerID)
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		domainStatus = &status
	}

	appts, err := s.appointmentRepo.GetByCustomerID(ctx, req.CustomerID, domainStatus)
	if err != nil {
		s.logger.Error("GetCustomerAppointments: repository error for customer=%d: %v", req.CustomerID, err)
		return nil, fmt.Errorf("%w: GetCustomerAppointments - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetCustomerAppointments: fetched %d appointments for customer=%d", len(appts), req.CustomerID)
	return models.FromDomainAppointmentList(appts), nil
}

// GetStaffAppointments получает записи мастера с гибкой фильтрацией
// Поддерживает фильтрацию по периоду, статусу и включению отменённых записей
func (s *Service) GetStaffAppointments(ctx context.Context, req *models.GetStaffAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("GetStaffAppointments: fetching appointments for staff=%d", req.StaffID)

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("GetStaffAppointments: invalid filter for staff=%d: %v", req.StaffID, err)
		return nil, fmt.Errorf("%w: invalid filter", ErrInvalidInput)
	}

	appts, err := s.appointmentRepo.GetByStaffWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("GetStaffAppointments: repository error for staff=%d: %v", req.StaffID, err)
		return nil, fmt.Errorf("%w: GetStaffAppointments - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetStaffAppointments: fetched %d appointments for staff=%d", len(appts), req.StaffID)
	return models.FromDomainAppointmentList(appts), nil
}

// Cancel отменяет запись с указанием причины
// Отменить можно только запись в статусе scheduled, confirmed или checked_in
func (s *Service) Cancel(ctx context.Context, appointmentID int64, req *models.CancelAppointmentRequest) error {
	s.logger.Info("Cancel: cancelling appointment id=%d", appointmentID)

	if len(req.CancellationReason) > domain.MaxCancellationReasonLength {
		return fmt.Errorf("%w: cancellation reason too long", ErrInvalidInput)
	}

	appt, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("Cancel: appointment id=%d not found", appointmentID)
			return ErrAppointmentNotFound
		}
		s.logger.Error("Cancel: repository error for appointment id=%d: %v", appointmentID, err)
		return fmt.Errorf("%w: Cancel - repository error: %v", ErrInternal, err)
	}

	if !appt.CanBeCancelled() {
		s.logger.Warn("Cancel: appointment id=%d cannot be cancelled, status=%s", appointmentID, appt.Status)
		return ErrCannotCancel
	}

	if err := s.appointmentRepo.Cancel(ctx, appointmentID, req.CancellationReason); err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("Cancel: appointment id=%d not found during cancellation", appointmentID)
			return ErrAppointmentNotFound
		}
		s.logger.Error("Cancel: repository error for appointment id=%d: %v", appointmentID, err)
		return fmt.Errorf("%w: Cancel - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Cancel: successfully cancelled appointment id=%d", appointmentID)
	return nil
}

// UpdateStatus переводит запись в новый статус по машине состояний
//
// Переход в completed публикует событие AppointmentCompleted ровно один раз:
// сам перевод выполняется условным UPDATE по паре (id, старый статус), так что
// из двух конкурентных запросов выигрывает только один. Реактивация отменённой
// записи или неявки идёт отдельным путём с повторной проверкой конфликтов
func (s *Service) UpdateStatus(ctx context.Context, appointmentID int64, req *models.UpdateStatusRequest) error {
	s.logger.Info("UpdateStatus: updating appointment id=%d to status=%s", appointmentID, req.Status)

	newStatus, err := domain.ParseAppointmentStatus(req.Status)
	if err != nil {
		s.logger.Warn("UpdateStatus: invalid status=%s for appointment id=%d", req.Status, appointmentID)
		return fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}

	appt, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("UpdateStatus: appointment id=%d not found", appointmentID)
			return ErrAppointmentNotFound
		}
		s.logger.Error("UpdateStatus: repository error for appointment id=%d: %v", appointmentID, err)
		return fmt.Errorf("%w: UpdateStatus - repository error: %v", ErrInternal, err)
	}

	if !appt.CanTransitionTo(newStatus) {
		s.logger.Warn("UpdateStatus: transition %s -> %s is not allowed for appointment id=%d",
			appt.Status, newStatus, appointmentID)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, newStatus)
	}

	if domain.IsReactivation(appt.Status, newStatus) {
		return s.reactivate(ctx, appt, newStatus)
	}

	if err := s.applyStatus(ctx, appt, newStatus); err != nil {
		return err
	}

	if newStatus == domain.StatusCompleted {
		s.publishCompleted(ctx, appt)
	}

	s.logger.Info("UpdateStatus: successfully updated appointment id=%d to status=%s", appointmentID, newStatus)
	return nil
}

// applyStatus выполняет условный перевод статуса от текущего к новому
func (s *Service) applyStatus(ctx context.Context, appt *domain.Appointment, newStatus domain.AppointmentStatus) error {
	err := s.appointmentRepo.UpdateStatus(ctx, appt.ID, appt.Status, newStatus)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrStaleStatus) {
			s.logger.Warn("applyStatus: appointment id=%d left status %s concurrently", appt.ID, appt.Status)
			return ErrStatusChanged
		}
		s.logger.Error("applyStatus: repository error for appointment id=%d: %v", appt.ID, err)
		return fmt.Errorf("%w: applyStatus - repository error: %v", ErrInternal, err)
	}
	return nil
}

// reactivate возвращает отменённую запись или неявку в scheduled
// Слот за время простоя могли занять, поэтому конфликт-чек повторяется
// в сериализуемой транзакции с блокировкой записей на (staff, date)
func (s *Service) reactivate(ctx context.Context, appt *domain.Appointment, newStatus domain.AppointmentStatus) error {
	s.logger.Info("reactivate: reactivating appointment id=%d from status=%s", appt.ID, appt.Status)

	interval, err := appt.Interval()
	if err != nil {
		return fmt.Errorf("%w: reactivate - invalid interval: %v", ErrInternal, err)
	}

	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		filter := domain.StaffAppointmentsFilter{
			StaffID:         appt.StaffID,
			StartDate:       &appt.Date,
			EndDate:         &appt.Date,
			IncludeInactive: false,
		}

		others, err := s.appointmentRepo.GetByStaffWithFilter(txCtx, filter)
		if err != nil {
			s.logger.Error("reactivate: repository error for appointment id=%d: %v", appt.ID, err)
			return fmt.Errorf("%w: reactivate - repository error: %v", ErrInternal, err)
		}

		for _, other := range others {
			if other.ID == appt.ID || !other.IsActive() {
				continue
			}
			existing, err := other.Interval()
			if err != nil {
				return fmt.Errorf("%w: reactivate - invalid interval: %v", ErrInternal, err)
			}
			if interval.Overlaps(existing) {
				s.logger.Warn("reactivate: appointment id=%d conflicts with appointment id=%d", appt.ID, other.ID)
				return ErrReactivationConflict
			}
		}

		if err := s.appointmentRepo.UpdateStatus(txCtx, appt.ID, appt.Status, newStatus); err != nil {
			if errors.Is(err, appointmentRepo.ErrStaleStatus) {
				s.logger.Warn("reactivate: appointment id=%d left status %s concurrently", appt.ID, appt.Status)
				return ErrStatusChanged
			}
			s.logger.Error("reactivate: repository error for appointment id=%d: %v", appt.ID, err)
			return fmt.Errorf("%w: reactivate - repository error: %v", ErrInternal, err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("reactivate: successfully reactivated appointment id=%d to status=%s", appt.ID, newStatus)
	return nil
}

// publishCompleted публикует событие завершения записи
// Ошибка публикации не откатывает смену статуса: переход уже зафиксирован
func (s *Service) publishCompleted(ctx context.Context, appt *domain.Appointment) {
	event := events.AppointmentCompletedEvent{
		AppointmentID:     appt.ID,
		AppointmentNumber: appt.Number,
		StaffID:           appt.StaffID,
		CustomerID:        appt.CustomerID,
		Date:              appt.Date.Format(domain.DateFormat),
		ServiceName:       appt.ServiceName,
		ServicePrice:      appt.ServicePrice,
		CompletedAt:       s.timeProvider.Now(),
	}

	if err := s.publisher.AppointmentCompleted(ctx, event); err != nil {
		s.logger.Error("publishCompleted: failed to publish event for appointment id=%d: %v", appt.ID, err)
		return
	}

	s.logger.Info("publishCompleted: published AppointmentCompleted for appointment id=%d", appt.ID)
}
