package list_free_slots

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	"github.com/d-okhotin/SPA-BookingEngine/internal/integrations/directoryservice"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

// Тестовые фейки

type fakeAppointmentRepo struct {
	appointments []*domain.Appointment
	err          error
}

func (f *fakeAppointmentRepo) GetByStaffWithFilter(_ context.Context, _ domain.StaffAppointmentsFilter) ([]*domain.Appointment, error) {
	return f.appointments, f.err
}

type fakeAvailabilityRepo struct {
	rules []*domain.AvailabilityRule
	err   error
}

func (f *fakeAvailabilityRepo) GetRulesForDate(_ context.Context, _ int64, _ time.Time) ([]*domain.AvailabilityRule, error) {
	return f.rules, f.err
}

type fakeDirectoryClient struct {
	staff *directoryservice.Staff
	err   error
}

func (f *fakeDirectoryClient) GetStaff(_ context.Context, _ int64) (*directoryservice.Staff, error) {
	return f.staff, f.err
}

type fixedTimeProvider struct {
	now time.Time
}

func (f *fixedTimeProvider) Now() time.Time {
	return f.now
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func timeStringPtr(s string) *types.TimeString {
	ts := types.TimeString(s)
	return &ts
}

func newTestUseCase(
	apptRepo AppointmentRepository,
	availRepo AvailabilityRepository,
	directory DirectoryClient,
	now time.Time,
) *UseCase {
	return &UseCase{
		appointmentRepo:  apptRepo,
		availabilityRepo: availRepo,
		directoryClient:  directory,
		timeProvider:     &fixedTimeProvider{now: now},
		logger:           nopLogger{},
	}
}

func slotStarts(t *testing.T, resp *Response) []string {
	t.Helper()
	starts := make([]string, 0)
	for _, slot := range resp.Collect() {
		starts = append(starts, slot.StartTime.String())
	}
	return starts
}

func TestExecute_FullDayScenario(t *testing.T) {
	// Смена 09:00-18:00 с перерывом 13:00-14:00, занято 10:00-11:00.
	// Часовая услуга с шагом 15 минут
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	rules := []*domain.AvailabilityRule{{
		ID:         1,
		StaffID:    7,
		DayOfWeek:  int(date.Weekday()),
		WorkStart:  "09:00",
		WorkEnd:    "18:00",
		BreakStart: timeStringPtr("13:00"),
		BreakEnd:   timeStringPtr("14:00"),
	}}

	appointments := []*domain.Appointment{{
		ID:              100,
		StaffID:         7,
		Date:            date,
		StartTime:       "10:00",
		DurationMinutes: 60,
		Status:          domain.StatusScheduled,
	}}

	uc := newTestUseCase(
		&fakeAppointmentRepo{appointments: appointments},
		&fakeAvailabilityRepo{rules: rules},
		&fakeDirectoryClient{staff: &directoryservice.Staff{ID: 7, IsActive: true}},
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		StaffID:         7,
		Date:            date,
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSlotGranularityMinutes, resp.GranularityMinutes)

	want := []string{
		"09:00",
		"11:00", "11:15", "11:30", "11:45", "12:00",
		"14:00", "14:15", "14:30", "14:45",
		"15:00", "15:15", "15:30", "15:45",
		"16:00", "16:15", "16:30", "16:45",
		"17:00",
	}
	assert.Equal(t, want, slotStarts(t, resp))
}

func TestExecute_SequenceIsRestartable(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	rules := []*domain.AvailabilityRule{{
		ID: 1, StaffID: 7, DayOfWeek: int(date.Weekday()),
		WorkStart: "09:00", WorkEnd: "12:00",
	}}

	uc := newTestUseCase(
		&fakeAppointmentRepo{},
		&fakeAvailabilityRepo{rules: rules},
		&fakeDirectoryClient{staff: &directoryservice.Staff{ID: 7, IsActive: true}},
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		StaffID:            7,
		Date:               date,
		DurationMinutes:    60,
		GranularityMinutes: 30,
	})
	require.NoError(t, err)

	first := slotStarts(t, resp)
	second := slotStarts(t, resp)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestExecute_CancelledAppointmentsFreeTheSlot(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	rules := []*domain.AvailabilityRule{{
		ID: 1, StaffID: 7, DayOfWeek: int(date.Weekday()),
		WorkStart: "09:00", WorkEnd: "11:00",
	}}

	appointments := []*domain.Appointment{{
		ID: 100, StaffID: 7, Date: date,
		StartTime: "09:00", DurationMinutes: 60,
		Status: domain.StatusCancelled,
	}}

	uc := newTestUseCase(
		&fakeAppointmentRepo{appointments: appointments},
		&fakeAvailabilityRepo{rules: rules},
		&fakeDirectoryClient{staff: &directoryservice.Staff{ID: 7, IsActive: true}},
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		StaffID:            7,
		Date:               date,
		DurationMinutes:    60,
		GranularityMinutes: 60,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"09:00", "10:00"}, slotStarts(t, resp))
}

func TestExecute_ExcludeAppointment(t *testing.T) {
	// Интервал собственной записи при переносе считается свободным
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	rules := []*domain.AvailabilityRule{{
		ID: 1, StaffID: 7, DayOfWeek: int(date.Weekday()),
		WorkStart: "09:00", WorkEnd: "11:00",
	}}

	appointments := []*domain.Appointment{{
		ID: 100, StaffID: 7, Date: date,
		StartTime: "09:00", DurationMinutes: 60,
		Status: domain.StatusScheduled,
	}}

	uc := newTestUseCase(
		&fakeAppointmentRepo{appointments: appointments},
		&fakeAvailabilityRepo{rules: rules},
		&fakeDirectoryClient{staff: &directoryservice.Staff{ID: 7, IsActive: true}},
		now,
	)

	excludeID := int64(100)
	resp, err := uc.Execute(context.Background(), &Request{
		StaffID:              7,
		Date:                 date,
		DurationMinutes:      60,
		GranularityMinutes:   60,
		ExcludeAppointmentID: &excludeID,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"09:00", "10:00"}, slotStarts(t, resp))
}

func TestExecute_NoRulesMeansNoSlots(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	uc := newTestUseCase(
		&fakeAppointmentRepo{},
		&fakeAvailabilityRepo{},
		&fakeDirectoryClient{staff: &directoryservice.Staff{ID: 7, IsActive: true}},
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		StaffID:         7,
		Date:            date,
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Collect())
}

func TestExecute_Errors(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	activeStaff := &directoryservice.Staff{ID: 7, IsActive: true}

	t.Run("мастер не найден", func(t *testing.T) {
		uc := newTestUseCase(
			&fakeAppointmentRepo{},
			&fakeAvailabilityRepo{},
			&fakeDirectoryClient{err: directoryservice.ErrStaffNotFound},
			now,
		)

		_, err := uc.Execute(context.Background(), &Request{StaffID: 7, Date: date, DurationMinutes: 60})
		assert.ErrorIs(t, err, ErrStaffNotFound)
	})

	t.Run("неактивный мастер", func(t *testing.T) {
		uc := newTestUseCase(
			&fakeAppointmentRepo{},
			&fakeAvailabilityRepo{},
			&fakeDirectoryClient{staff: &directoryservice.Staff{ID: 7, IsActive: false}},
			now,
		)

		_, err := uc.Execute(context.Background(), &Request{StaffID: 7, Date: date, DurationMinutes: 60})
		assert.ErrorIs(t, err, ErrStaffNotFound)
	})

	t.Run("дата в прошлом", func(t *testing.T) {
		uc := newTestUseCase(&fakeAppointmentRepo{}, &fakeAvailabilityRepo{}, &fakeDirectoryClient{staff: activeStaff}, now)

		past := now.AddDate(0, 0, -1)
		_, err := uc.Execute(context.Background(), &Request{StaffID: 7, Date: past, DurationMinutes: 60})
		assert.ErrorIs(t, err, ErrDateInPast)
	})

	t.Run("сегодня не считается прошлым", func(t *testing.T) {
		rules := []*domain.AvailabilityRule{{
			ID: 1, StaffID: 7, DayOfWeek: int(now.Weekday()),
			WorkStart: "09:00", WorkEnd: "18:00",
		}}
		uc := newTestUseCase(&fakeAppointmentRepo{}, &fakeAvailabilityRepo{rules: rules}, &fakeDirectoryClient{staff: activeStaff}, now)

		_, err := uc.Execute(context.Background(), &Request{StaffID: 7, Date: now, DurationMinutes: 60})
		assert.NoError(t, err)
	})

	t.Run("некорректная длительность", func(t *testing.T) {
		uc := newTestUseCase(&fakeAppointmentRepo{}, &fakeAvailabilityRepo{}, &fakeDirectoryClient{staff: activeStaff}, now)

		_, err := uc.Execute(context.Background(), &Request{StaffID: 7, Date: date, DurationMinutes: 0})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = uc.Execute(context.Background(), &Request{StaffID: 7, Date: date, DurationMinutes: domain.MaxDurationMinutes + 1})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
