package list_free_slots

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

	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if req.DurationMinutes <= 0 {
		return fmt.Errorf("%w: durationMinutes must be positive", ErrInvalidInput)
	}
	if req.DurationMinutes > domain.MaxDurationMinutes {
		return fmt.Errorf("%w: durationMinutes must not exceed %d", ErrInvalidInput, domain.MaxDurationMinutes)
	}

	if req.GranularityMinutes < 0 {
		return fmt.Errorf("%w: granularityMinutes must not be negative", ErrInvalidInput)
	}
	if req.GranularityMinutes > domain.MaxGranularityMinutes {
		return fmt.Errorf("%w: granularityMinutes must not exceed %d", ErrInvalidInput, domain.MaxGranularityMinutes)
	}

	if req.ExcludeAppointmentID != nil && *req.ExcludeAppointmentID <= 0 {
		return fmt.Errorf("%w: excludeAppointmentID must be positive", ErrInvalidInput)
	}

	return nil
}

// isDateInPast проверяет, что дата в прошлом (раньше сегодняшнего дня)
func isDateInPast(date, now time.Time) bool {
	// Обнуляем время, чтобы сравнивать только даты
	dateOnly := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	nowOnly := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return dateOnly.Before(nowOnly)
}
