package get_staff_schedule

import (
	"context"
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/internal/service/schedule/models"
)

type ScheduleService interface {
	GetStaffSchedule(ctx context.Context, req *models.GetStaffScheduleRequest) (*models.StaffScheduleResponse, error)
	GetDaySchedule(ctx context.Context, staffID int64, date time.Time) (*models.DayScheduleResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
