package reschedule_appointment

import (
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	rescheduleAppointment "github.com/d-okhotin/SPA-BookingEngine/internal/usecase/reschedule_appointment"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

// RescheduleAppointmentRequest HTTP request model
type RescheduleAppointmentRequest struct {
	Date            string `json:"date"`      // "2026-08-23"
	StartTime       string `json:"startTime"` // "10:00"
	DurationMinutes int    `json:"durationMinutes,omitempty"` // 0 = оставить прежнюю
}

// AppointmentResponse HTTP response model
type AppointmentResponse struct {
	ID              int64  `json:"id"`
	Number          string `json:"number"`
	StaffID         int64  `json:"staffId"`
	Date            string `json:"date"`
	StartTime       string `json:"startTime"`
	DurationMinutes int    `json:"durationMinutes"`
	Status          string `json:"status"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *RescheduleAppointmentRequest) ToUseCaseRequest(appointmentID int64) (*rescheduleAppointment.Request, error) {
	date, err := time.Parse(domain.DateFormat, r.Date)
	if err != nil {
		return nil, err
	}

	startTime, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, err
	}

	return &rescheduleAppointment.Request{
		AppointmentID:   appointmentID,
		Date:            date,
		StartTime:       startTime,
		DurationMinutes: r.DurationMinutes,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *rescheduleAppointment.Response) *AppointmentResponse {
	return &AppointmentResponse{
		ID:              resp.ID,
		Number:          resp.Number,
		StaffID:         resp.StaffID,
		Date:            resp.Date.Format(domain.DateFormat),
		StartTime:       resp.StartTime.String(),
		DurationMinutes: resp.DurationMinutes,
		Status:          resp.Status,
	}
}
