package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	directoryClient "github.com/d-okhotin/SPA-BookingEngine/internal/integrations/directoryservice"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/schedule/models"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

// Service сервис чтения расписаний мастеров
type Service struct {
	availabilityRepo AvailabilityRepository
	directoryClient  DirectoryClient
	logger           Logger
}

// NewService создает новый экземпляр сервиса расписаний
func NewService(
	availabilityRepo AvailabilityRepository,
	directoryClient DirectoryClient,
	logger Logger,
) *Service {
	return &Service{
		availabilityRepo: availabilityRepo,
		directoryClient:  directoryClient,
		logger:           logger,
	}
}

// GetStaffSchedule возвращает правила доступности мастера за период:
// недельные правила плюс override-правила, попадающие в [from, to]
func (s *Service) GetStaffSchedule(ctx context.Context, req *models.GetStaffScheduleRequest) (*models.StaffScheduleResponse, error) {
	s.logger.Info("GetStaffSchedule: fetching schedule for staff=%d, period=%s to %s",
		req.StaffID, req.From.Format(domain.DateFormat), req.To.Format(domain.DateFormat))

	if req.StaffID <= 0 {
		return nil, fmt.Errorf("%w: staffID must be positive", ErrInvalidInput)
	}
	if req.To.Before(req.From) {
		return nil, fmt.Errorf("%w: to must not be before from", ErrInvalidInput)
	}

	if err := s.checkStaff(ctx, req.StaffID); err != nil {
		return nil, err
	}

	rules, err := s.availabilityRepo.ListByStaff(ctx, req.StaffID, req.From, req.To)
	if err != nil {
		s.logger.Error("GetStaffSchedule: repository error for staff=%d: %v", req.StaffID, err)
		return nil, fmt.Errorf("%w: GetStaffSchedule - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetStaffSchedule: fetched %d rules for staff=%d", len(rules), req.StaffID)
	return models.FromDomainRuleList(req.StaffID, rules), nil
}

// GetDaySchedule возвращает разрешённое расписание мастера на конкретную дату:
// override-правила на дату полностью заменяют недельные, перерывы вычтены
func (s *Service) GetDaySchedule(ctx context.Context, staffID int64, date time.Time) (*models.DayScheduleResponse, error) {
	s.logger.Info("GetDaySchedule: fetching day schedule for staff=%d, date=%s", staffID, date.Format(domain.DateFormat))

	if staffID <= 0 {
		return nil, fmt.Errorf("%w: staffID must be positive", ErrInvalidInput)
	}

	if err := s.checkStaff(ctx, staffID); err != nil {
		return nil, err
	}

	rules, err := s.availabilityRepo.GetRulesForDate(ctx, staffID, date)
	if err != nil {
		s.logger.Error("GetDaySchedule: repository error for staff=%d: %v", staffID, err)
		return nil, fmt.Errorf("%w: GetDaySchedule - repository error: %v", ErrInternal, err)
	}

	resp := &models.DayScheduleResponse{
		StaffID:          staffID,
		Date:             date.Format(domain.DateFormat),
		IsDayOff:         true,
		WorkingIntervals: []models.IntervalResponse{},
	}

	for _, rule := range domain.ResolveRulesForDate(rules, date) {
		work, err := rule.WorkingIntervals()
		if err != nil {
			s.logger.Error("GetDaySchedule: invalid rule id=%d for staff=%d: %v", rule.ID, staffID, err)
			return nil, fmt.Errorf("%w: GetDaySchedule - invalid rule: %v", ErrInternal, err)
		}
		for _, w := range work {
			start, err := types.NewTimeStringFromMinutes(w.Start)
			if err != nil {
				return nil, fmt.Errorf("%w: GetDaySchedule - invalid interval: %v", ErrInternal, err)
			}
			end, err := types.NewTimeStringFromMinutes(w.End)
			if err != nil {
				return nil, fmt.Errorf("%w: GetDaySchedule - invalid interval: %v", ErrInternal, err)
			}
			resp.WorkingIntervals = append(resp.WorkingIntervals, models.IntervalResponse{
				Start: start.String(),
				End:   end.String(),
			})
		}
		if len(work) > 0 {
			resp.IsDayOff = false
		}
	}

	return resp, nil
}

// checkStaff проверяет, что мастер существует и активен
func (s *Service) checkStaff(ctx context.Context, staffID int64) error {
	staff, err := s.directoryClient.GetStaff(ctx, staffID)
	if err != nil {
		if errors.Is(err, directoryClient.ErrStaffNotFound) {
			s.logger.Warn("checkStaff: staff id=%d not found", staffID)
			return ErrStaffNotFound
		}
		s.logger.Error("checkStaff: failed to get staff id=%d: %v", staffID, err)
		return fmt.Errorf("%w: checkStaff - failed to get staff: %v", ErrInternal, err)
	}
	if !staff.IsActive {
		s.logger.Warn("checkStaff: staff id=%d is inactive", staffID)
		return ErrStaffNotFound
	}
	return nil
}
