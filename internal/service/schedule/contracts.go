package schedule

import (
	"context"
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	directoryClient "github.com/d-okhotin/SPA-BookingEngine/internal/integrations/directoryservice"
)

// AvailabilityRepository интерфейс репозитория правил доступности
type AvailabilityRepository interface {
	ListByStaff(ctx context.Context, staffID int64, from, to time.Time) ([]*domain.AvailabilityRule, error)
	GetRulesForDate(ctx context.Context, staffID int64, date time.Time) ([]*domain.AvailabilityRule, error)
}

// DirectoryClient интерфейс клиента справочника мастеров
type DirectoryClient interface {
	GetStaff(ctx context.Context, staffID int64) (*directoryClient.Staff, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
