package domain

// Default configuration values
const (
	DefaultSlotGranularityMinutes = 15
)

// Business validation constants
const (
	MinDurationMinutes          = 5
	MaxDurationMinutes          = 480 // 8 часов
	MinGranularityMinutes       = 5
	MaxGranularityMinutes       = 120
	MaxNotesLength              = 500
	MaxCancellationReasonLength = 500
	MaxServiceNameLength        = 200
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// InactiveStatuses статусы записей, не занимающих временной интервал
// Используются при подсчёте свободных слотов и проверке конфликтов
var InactiveStatuses = []AppointmentStatus{
	StatusCancelled,
	StatusNoShow,
}

// ActiveStatuses статусы записей, занимающих временной интервал
var ActiveStatuses = []AppointmentStatus{
	StatusScheduled,
	StatusConfirmed,
	StatusCheckedIn,
	StatusInProgress,
	StatusCompleted,
}
