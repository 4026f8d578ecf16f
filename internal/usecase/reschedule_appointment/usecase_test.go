package reschedule_appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	appointmentRepo "github.com/d-okhotin/SPA-BookingEngine/internal/infra/storage/appointment"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

// Тестовые фейки

type memAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[int64]*domain.Appointment
}

func newMemRepo(appts ...*domain.Appointment) *memAppointmentRepo {
	repo := &memAppointmentRepo{appointments: make(map[int64]*domain.Appointment)}
	for _, appt := range appts {
		copied := *appt
		repo.appointments[appt.ID] = &copied
	}
	return repo
}

func (r *memAppointmentRepo) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, appointmentRepo.ErrAppointmentNotFound
	}
	copied := *appt
	return &copied, nil
}

func (r *memAppointmentRepo) GetByStaffWithFilter(_ context.Context, filter domain.StaffAppointmentsFilter) ([]*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*domain.Appointment, 0)
	for _, appt := range r.appointments {
		if appt.StaffID != filter.StaffID {
			continue
		}
		if filter.StartDate != nil && appt.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && appt.Date.After(*filter.EndDate) {
			continue
		}
		if !filter.IncludeInactive && !appt.IsActive() {
			continue
		}
		copied := *appt
		result = append(result, &copied)
	}
	return result, nil
}

func (r *memAppointmentRepo) UpdateSchedule(_ context.Context, id int64, appt *domain.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.appointments[id]
	if !ok {
		return appointmentRepo.ErrAppointmentNotFound
	}
	stored.Date = appt.Date
	stored.StartTime = appt.StartTime
	stored.DurationMinutes = appt.DurationMinutes
	return nil
}

type fakeAvailabilityRepo struct {
	rules []*domain.AvailabilityRule
}

func (f *fakeAvailabilityRepo) GetRulesForDate(_ context.Context, _ int64, _ time.Time) ([]*domain.AvailabilityRule, error) {
	return f.rules, nil
}

type serialTxManager struct {
	mu sync.Mutex
}

func (m *serialTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
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

var (
	testNow  = time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	testDate = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
)

func newTestUseCase(repo *memAppointmentRepo) *UseCase {
	rules := []*domain.AvailabilityRule{{
		ID:        1,
		StaffID:   7,
		DayOfWeek: int(testDate.Weekday()),
		WorkStart: "09:00",
		WorkEnd:   "18:00",
	}}
	return &UseCase{
		appointmentRepo:  repo,
		availabilityRepo: &fakeAvailabilityRepo{rules: rules},
		txManager:        &serialTxManager{},
		timeProvider:     &fixedTimeProvider{now: testNow},
		logger:           nopLogger{},
	}
}

func scheduledAppointment(id int64, startTime string) *domain.Appointment {
	return &domain.Appointment{
		ID:              id,
		Number:          "APT-TEST0001",
		StaffID:         7,
		CustomerID:      21,
		Date:            testDate,
		StartTime:       types.TimeString(startTime),
		DurationMinutes: 60,
		Status:          domain.StatusScheduled,
	}
}

func TestExecute_MoveToFreeSlot(t *testing.T) {
	repo := newMemRepo(scheduledAppointment(1, "10:00"))
	uc := newTestUseCase(repo)

	resp, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 1,
		Date:          testDate,
		StartTime:     "15:00",
	})
	require.NoError(t, err)

	assert.Equal(t, "15:00", resp.StartTime.String())
	assert.Equal(t, 60, resp.DurationMinutes)

	stored, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, types.TimeString("15:00"), stored.StartTime)
}

func TestExecute_OwnIntervalDoesNotConflict(t *testing.T) {
	// Сдвиг записи на полчаса внутрь собственного интервала
	repo := newMemRepo(scheduledAppointment(1, "10:00"))
	uc := newTestUseCase(repo)

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 1,
		Date:          testDate,
		StartTime:     "10:30",
	})
	assert.NoError(t, err)
}

func TestExecute_ConflictWithOtherAppointment(t *testing.T) {
	repo := newMemRepo(
		scheduledAppointment(1, "10:00"),
		scheduledAppointment(2, "15:00"),
	)
	uc := newTestUseCase(repo)

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 1,
		Date:          testDate,
		StartTime:     "14:30",
	})
	assert.ErrorIs(t, err, ErrSlotConflict)

	// Запись осталась на месте
	stored, getErr := repo.GetByID(context.Background(), 1)
	require.NoError(t, getErr)
	assert.Equal(t, types.TimeString("10:00"), stored.StartTime)
}

func TestExecute_BackToBackWithOtherAppointment(t *testing.T) {
	repo := newMemRepo(
		scheduledAppointment(1, "10:00"),
		scheduledAppointment(2, "15:00"),
	)
	uc := newTestUseCase(repo)

	// 14:00-15:00 граничит с 15:00-16:00
	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 1,
		Date:          testDate,
		StartTime:     "14:00",
	})
	assert.NoError(t, err)
}

func TestExecute_ChangeDuration(t *testing.T) {
	repo := newMemRepo(scheduledAppointment(1, "10:00"))
	uc := newTestUseCase(repo)

	resp, err := uc.Execute(context.Background(), &Request{
		AppointmentID:   1,
		Date:            testDate,
		StartTime:       "10:00",
		DurationMinutes: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, 90, resp.DurationMinutes)
}

func TestExecute_Errors(t *testing.T) {
	t.Run("запись не найдена", func(t *testing.T) {
		uc := newTestUseCase(newMemRepo())

		_, err := uc.Execute(context.Background(), &Request{
			AppointmentID: 99,
			Date:          testDate,
			StartTime:     "15:00",
		})
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})

	t.Run("завершённую запись нельзя перенести", func(t *testing.T) {
		appt := scheduledAppointment(1, "10:00")
		appt.Status = domain.StatusCompleted
		uc := newTestUseCase(newMemRepo(appt))

		_, err := uc.Execute(context.Background(), &Request{
			AppointmentID: 1,
			Date:          testDate,
			StartTime:     "15:00",
		})
		assert.ErrorIs(t, err, ErrNotReschedulable)
	})

	t.Run("отменённую запись нельзя перенести", func(t *testing.T) {
		appt := scheduledAppointment(1, "10:00")
		appt.Status = domain.StatusCancelled
		uc := newTestUseCase(newMemRepo(appt))

		_, err := uc.Execute(context.Background(), &Request{
			AppointmentID: 1,
			Date:          testDate,
			StartTime:     "15:00",
		})
		assert.ErrorIs(t, err, ErrNotReschedulable)
	})

	t.Run("новая дата в прошлом", func(t *testing.T) {
		uc := newTestUseCase(newMemRepo(scheduledAppointment(1, "10:00")))

		_, err := uc.Execute(context.Background(), &Request{
			AppointmentID: 1,
			Date:          testNow.AddDate(0, 0, -1),
			StartTime:     "15:00",
		})
		assert.ErrorIs(t, err, ErrDateInPast)
	})

	t.Run("вне рабочих часов", func(t *testing.T) {
		uc := newTestUseCase(newMemRepo(scheduledAppointment(1, "10:00")))

		_, err := uc.Execute(context.Background(), &Request{
			AppointmentID: 1,
			Date:          testDate,
			StartTime:     "17:30",
		})
		assert.ErrorIs(t, err, ErrOutsideWorkingHours)
	})
}
