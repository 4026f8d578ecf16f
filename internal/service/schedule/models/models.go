package models

import (
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
)

// GetStaffScheduleRequest запрос расписания мастера за период
type GetStaffScheduleRequest struct {
	StaffID int64     `json:"staffId"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
}

// AvailabilityRuleResponse правило доступности в ответе API
type AvailabilityRuleResponse struct {
	ID        int64  `json:"id"`
	StaffID   int64  `json:"staffId"`
	DayOfWeek int    `json:"dayOfWeek"` // 0 = воскресенье ... 6 = суббота
	WorkStart string `json:"workStart"` // "09:00"
	WorkEnd   string `json:"workEnd"`   // "18:00"

	BreakStart *string `json:"breakStart,omitempty"`
	BreakEnd   *string `json:"breakEnd,omitempty"`

	EffectiveDate *string `json:"effectiveDate,omitempty"` // "2026-08-23", только у override-правил
	IsDayOff      bool    `json:"isDayOff,omitempty"`
}

// StaffScheduleResponse ответ с расписанием мастера
type StaffScheduleResponse struct {
	StaffID int64                      `json:"staffId"`
	Rules   []AvailabilityRuleResponse `json:"rules"`
}

// DayScheduleResponse разрешённое расписание мастера на конкретную дату
type DayScheduleResponse struct {
	StaffID          int64              `json:"staffId"`
	Date             string             `json:"date"`
	IsDayOff         bool               `json:"isDayOff"`
	WorkingIntervals []IntervalResponse `json:"workingIntervals"`
}

// IntervalResponse рабочий интервал в формате "HH:MM"
type IntervalResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FromDomainRule конвертирует domain правило в DTO
func FromDomainRule(r *domain.AvailabilityRule) AvailabilityRuleResponse {
	resp := AvailabilityRuleResponse{
		ID:        r.ID,
		StaffID:   r.StaffID,
		DayOfWeek: r.DayOfWeek,
		WorkStart: r.WorkStart.String(),
		WorkEnd:   r.WorkEnd.String(),
		IsDayOff:  r.IsDayOff,
	}

	if r.BreakStart != nil {
		breakStart := r.BreakStart.String()
		resp.BreakStart = &breakStart
	}
	if r.BreakEnd != nil {
		breakEnd := r.BreakEnd.String()
		resp.BreakEnd = &breakEnd
	}
	if r.EffectiveDate != nil {
		effective := r.EffectiveDate.Format(domain.DateFormat)
		resp.EffectiveDate = &effective
	}

	return resp
}

// FromDomainRuleList конвертирует список domain правил в DTO
func FromDomainRuleList(staffID int64, rules []*domain.AvailabilityRule) *StaffScheduleResponse {
	resp := &StaffScheduleResponse{
		StaffID: staffID,
		Rules:   make([]AvailabilityRuleResponse, 0, len(rules)),
	}
	for _, rule := range rules {
		resp.Rules = append(resp.Rules, FromDomainRule(rule))
	}
	return resp
}
