package list_free_slots

import (
	"context"
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	"github.com/d-okhotin/SPA-BookingEngine/internal/integrations/directoryservice"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	// GetByStaffWithFilter получает записи мастера по фильтру
	GetByStaffWithFilter(ctx context.Context, filter domain.StaffAppointmentsFilter) ([]*domain.Appointment, error)
}

// AvailabilityRepository интерфейс репозитория правил доступности
type AvailabilityRepository interface {
	// GetRulesForDate получает правила мастера, применимые к дате
	GetRulesForDate(ctx context.Context, staffID int64, date time.Time) ([]*domain.AvailabilityRule, error)
}

// DirectoryClient интерфейс клиента справочника мастеров
type DirectoryClient interface {
	GetStaff(ctx context.Context, staffID int64) (*directoryservice.Staff, error)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
