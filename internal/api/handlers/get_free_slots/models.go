package get_free_slots

import (
	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	listFreeSlots "github.com/d-okhotin/SPA-BookingEngine/internal/usecase/list_free_slots"
)

// SlotResponse свободный слот в HTTP ответе
type SlotResponse struct {
	StartTime       string `json:"startTime"` // "10:00"
	EndTime         string `json:"endTime"`   // "11:00"
	DurationMinutes int    `json:"durationMinutes"`
}

// FreeSlotsResponse HTTP response model
type FreeSlotsResponse struct {
	StaffID            int64          `json:"staffId"`
	Date               string         `json:"date"`
	DurationMinutes    int            `json:"durationMinutes"`
	GranularityMinutes int            `json:"granularityMinutes"`
	Slots              []SlotResponse `json:"slots"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response,
// материализуя ленивую последовательность слотов
func FromUseCaseResponse(resp *listFreeSlots.Response) (*FreeSlotsResponse, error) {
	out := &FreeSlotsResponse{
		StaffID:            resp.StaffID,
		Date:               resp.Date.Format(domain.DateFormat),
		DurationMinutes:    resp.DurationMinutes,
		GranularityMinutes: resp.GranularityMinutes,
		Slots:              []SlotResponse{},
	}

	for _, slot := range resp.Collect() {
		end, err := slot.StartTime.AddMinutes(slot.DurationMinutes)
		if err != nil {
			return nil, err
		}
		out.Slots = append(out.Slots, SlotResponse{
			StartTime:       slot.StartTime.String(),
			EndTime:         end.String(),
			DurationMinutes: slot.DurationMinutes,
		})
	}

	return out, nil
}
