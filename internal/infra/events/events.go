// Package events публикация доменных событий движка бронирования
//
// Единственное событие - AppointmentCompleted. Обновление агрегатов клиента
// (lifetime totals и т.п.) делает отдельный обработчик-коллаборатор,
// подписанный на канал: движок бронирования сам агрегаты не трогает
package events

import (
	"context"
	"time"
)

// AppointmentCompletedEvent публикуется ровно один раз при переходе записи в completed
type AppointmentCompletedEvent struct {
	AppointmentID     int64     `json:"appointmentId"`
	AppointmentNumber string    `json:"appointmentNumber"`
	StaffID           int64     `json:"staffId"`
	CustomerID        int64     `json:"customerId"`
	Date              string    `json:"date"` // YYYY-MM-DD
	ServiceName       string    `json:"serviceName"`
	ServicePrice      float64   `json:"servicePrice"`
	CompletedAt       time.Time `json:"completedAt"`
}

// Publisher интерфейс публикации событий
type Publisher interface {
	AppointmentCompleted(ctx context.Context, event AppointmentCompletedEvent) error
}
