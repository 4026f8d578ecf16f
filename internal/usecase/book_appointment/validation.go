package book_appointment

import (
	"fmt"
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.StaffID <= 0 {
		return fmt.Errorf("%w: staffID must be positive", ErrInvalidInput)
	}

	if req.CustomerID <= 0 {
		return fmt.Errorf("%w: customerID must be positive", ErrInvalidInput)
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

	if req.DurationMinutes <= 0 {
		return fmt.Errorf("%w: durationMinutes must be positive", ErrInvalidInput)
	}
	if req.DurationMinutes > domain.MaxDurationMinutes {
		return fmt.Errorf("%w: durationMinutes must not exceed %d", ErrInvalidInput, domain.MaxDurationMinutes)
	}

	if req.ServiceName == "" {
		return fmt.Errorf("%w: serviceName is required", ErrInvalidInput)
	}
	if len(req.ServiceName) > domain.MaxServiceNameLength {
		return fmt.Errorf("%w: serviceName too long", ErrInvalidInput)
	}

	if req.ServicePrice < 0 {
		return fmt.Errorf("%w: servicePrice must not be negative", ErrInvalidInput)
	}

	if req.Notes != nil && len(*req.Notes) > domain.MaxNotesLength {
		return fmt.Errorf("%w: notes too long (max %d)", ErrInvalidInput, domain.MaxNotesLength)
	}

	return nil
}

// requestInterval возвращает запрошенный интервал в минутах с начала суток
func requestInterval(req *Request) (domain.Interval, error) {
	start, err := req.StartTime.MinutesOfDay()
	if err != nil {
		return domain.Interval{}, err
	}
	return domain.Interval{Start: start, End: start + req.DurationMinutes}, nil
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
// Пересечение строгое: граничащие интервалы (back-to-back записи) не конфликтуют
func findConflict(appointments []*domain.Appointment, interval domain.Interval, excludeID int64) (*domain.Appointment, error) {
	for _, appt := range appointments {
		if !appt.IsActive() {
			continue
		}
		if excludeID != 0 && appt.ID == excludeID {
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
