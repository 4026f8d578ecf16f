package list_free_slots

import (
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
)

// Request модель запроса свободных слотов
type Request struct {
	StaffID            int64     // ID мастера
	Date               time.Time // Дата, на которую запрашиваются слоты (без времени)
	DurationMinutes    int       // Желаемая длительность услуги в минутах
	GranularityMinutes int       // Шаг кандидатов слотов (0 = дефолтные 15 минут)

	// ExcludeAppointmentID исключает запись из занятых интервалов
	// Используется при переносе: собственный интервал записи считается свободным
	ExcludeAppointmentID *int64
}

// Response модель ответа со свободными слотами
type Response struct {
	StaffID            int64
	Date               time.Time
	DurationMinutes    int
	GranularityMinutes int

	// Slots ленивая перезапускаемая последовательность свободных слотов,
	// отсортированная по времени начала. Каждый range начинается с первого слота
	Slots domain.SlotSeq
}

// Collect материализует последовательность слотов в слайс
func (r *Response) Collect() []domain.TimeSlot {
	return domain.CollectSlots(r.Slots)
}
