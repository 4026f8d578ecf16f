package events

import "context"

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
}

// LogPublisher публикует события только в лог
// Используется, когда публикация событий выключена в конфигурации
type LogPublisher struct {
	log Logger
}

// NewLogPublisher создает log-only publisher
func NewLogPublisher(log Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// AppointmentCompleted пишет событие в лог
func (p *LogPublisher) AppointmentCompleted(_ context.Context, event AppointmentCompletedEvent) error {
	p.log.Info("Event AppointmentCompleted: appointment=%d number=%s staff=%d customer=%d price=%.2f",
		event.AppointmentID, event.AppointmentNumber, event.StaffID, event.CustomerID, event.ServicePrice)
	return nil
}
