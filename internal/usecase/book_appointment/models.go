package book_appointment

import (
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

// Request модель запроса на создание записи
type Request struct {
	StaffID         int64            // ID мастера
	CustomerID      int64            // ID клиента
	Date            time.Time        // Дата записи (без времени)
	StartTime       types.TimeString // Время начала, выравнивание по granularity не требуется
	DurationMinutes int              // Длительность услуги в минутах
	ServiceName     string           // Название услуги (снимок на момент записи)
	ServicePrice    float64          // Цена услуги (снимок на момент записи)
	Notes           *string          // Дополнительные заметки (опционально)
}

// Response модель ответа с созданной записью
type Response struct {
	ID              int64            // ID созданной записи
	Number          string           // Человекочитаемый номер записи
	StaffID         int64            // ID мастера
	CustomerID      int64            // ID клиента
	Date            time.Time        // Дата записи
	StartTime       types.TimeString // Время начала
	EndTime         types.TimeString // Время окончания (исключительно)
	DurationMinutes int              // Длительность в минутах
	Status          string           // Статус записи (всегда scheduled при создании)
	ServiceName     string           // Название услуги
	ServicePrice    float64          // Цена услуги
	Notes           *string          // Заметки

	CreatedAt time.Time // Время создания
	UpdatedAt time.Time // Время обновления
}
