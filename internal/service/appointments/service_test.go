package appointments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	"github.com/d-okhotin/SPA-BookingEngine/internal/infra/events"
	appointmentRepo "github.com/d-okhotin/SPA-BookingEngine/internal/infra/storage/appointment"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/appointments/models"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

// Тестовые фейки

// memAppointmentRepo реализует репозиторий в памяти с CAS-семантикой
// UpdateStatus, как у реального хранилища
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

func (r *memAppointmentRepo) GetByNumber(_ context.Context, number string) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, appt := range r.appointments {
		if appt.Number == number {
			copied := *appt
			return &copied, nil
		}
	}
	return nil, appointmentRepo.ErrAppointmentNotFound
}

func (r *memAppointmentRepo) GetByCustomerID(_ context.Context, customerID int64, status *domain.AppointmentStatus) ([]*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*domain.Appointment, 0)
	for _, appt := range r.appointments {
		if appt.CustomerID != customerID {
			continue
		}
		if status != nil && appt.Status != *status {
			continue
		}
		copied := *appt
		result = append(result, &copied)
	}
	return result, nil
}

func (r *memAppointmentRepo) GetByStaffWithFilter(_ context.Context, filter domain.StaffAppointmentsFilter) ([]*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*domain.Appointment, 0)
	for _, appt := range r.appointments {
		if appt.StaffID != filter.StaffID {
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

func (r *memAppointmentRepo) UpdateStatus(_ context.Context, id int64, from, to domain.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return appointmentRepo.ErrAppointmentNotFound
	}
	if appt.Status != from {
		return appointmentRepo.ErrStaleStatus
	}
	appt.Status = to
	return nil
}

func (r *memAppointmentRepo) Cancel(_ context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return appointmentRepo.ErrAppointmentNotFound
	}
	now := time.Now()
	appt.Status = domain.StatusCancelled
	appt.CancellationReason = &reason
	appt.CancelledAt = &now
	return nil
}

// countingPublisher считает публикации, чтобы проверять "ровно один раз"
type countingPublisher struct {
	mu     sync.Mutex
	events []events.AppointmentCompletedEvent
	err    error
}

func (p *countingPublisher) AppointmentCompleted(_ context.Context, event events.AppointmentCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type serialTxManager struct {
	mu sync.Mutex
}

func (m *serialTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

var testDate = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func testAppointment(id int64, status domain.AppointmentStatus) *domain.Appointment {
	return &domain.Appointment{
		ID:              id,
		Number:          "APT-9F3A21C4",
		StaffID:         7,
		CustomerID:      21,
		Date:            testDate,
		StartTime:       types.TimeString("10:00"),
		DurationMinutes: 60,
		ServiceName:     "Массаж спины",
		ServicePrice:    3500,
		Status:          status,
	}
}

func newTestService(repo *memAppointmentRepo, publisher *countingPublisher) *Service {
	return &Service{
		appointmentRepo: repo,
		txManager:       &serialTxManager{},
		publisher:       publisher,
		timeProvider:    &RealTimeProvider{},
		logger:          nopLogger{},
	}
}

func TestService_GetByID(t *testing.T) {
	repo := newMemRepo(testAppointment(1, domain.StatusScheduled))
	svc := newTestService(repo, &countingPublisher{})

	resp, err := svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, "APT-9F3A21C4", resp.Number)
	assert.Equal(t, "11:00", resp.EndTime)

	_, err = svc.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestService_GetByNumber(t *testing.T) {
	repo := newMemRepo(testAppointment(1, domain.StatusScheduled))
	svc := newTestService(repo, &countingPublisher{})

	resp, err := svc.GetByNumber(context.Background(), "APT-9F3A21C4")
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.ID)

	_, err = svc.GetByNumber(context.Background(), "APT-00000000")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestService_Cancel(t *testing.T) {
	t.Run("отмена scheduled", func(t *testing.T) {
		repo := newMemRepo(testAppointment(1, domain.StatusScheduled))
		svc := newTestService(repo, &countingPublisher{})

		err := svc.Cancel(context.Background(), 1, &models.CancelAppointmentRequest{
			CancellationReason: "клиент попросил перенести визит",
		})
		require.NoError(t, err)

		stored, err := repo.GetByID(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, stored.Status)
		require.NotNil(t, stored.CancellationReason)
		assert.Equal(t, "клиент попросил перенести визит", *stored.CancellationReason)
		assert.NotNil(t, stored.CancelledAt)
	})

	t.Run("завершённую не отменить", func(t *testing.T) {
		repo := newMemRepo(testAppointment(1, domain.StatusCompleted))
		svc := newTestService(repo, &countingPublisher{})

		err := svc.Cancel(context.Background(), 1, &models.CancelAppointmentRequest{})
		assert.ErrorIs(t, err, ErrCannotCancel)
	})

	t.Run("запись не найдена", func(t *testing.T) {
		svc := newTestService(newMemRepo(), &countingPublisher{})

		err := svc.Cancel(context.Background(), 99, &models.CancelAppointmentRequest{})
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})
}

func TestService_UpdateStatus_Transitions(t *testing.T) {
	t.Run("scheduled -> confirmed", func(t *testing.T) {
		repo := newMemRepo(testAppointment(1, domain.StatusScheduled))
		svc := newTestService(repo, &countingPublisher{})

		err := svc.UpdateStatus(context.Background(), 1, &models.UpdateStatusRequest{Status: "confirmed"})
		require.NoError(t, err)

		stored, _ := repo.GetByID(context.Background(), 1)
		assert.Equal(t, domain.StatusConfirmed, stored.Status)
	})

	t.Run("недопустимый переход", func(t *testing.T) {
		repo := newMemRepo(testAppointment(1, domain.StatusScheduled))
		svc := newTestService(repo, &countingPublisher{})

		err := svc.UpdateStatus(context.Background(), 1, &models.UpdateStatusRequest{Status: "completed"})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("неизвестный статус", func(t *testing.T) {
		repo := newMemRepo(testAppointment(1, domain.StatusScheduled))
		svc := newTestService(repo, &countingPublisher{})

		err := svc.UpdateStatus(context.Background(), 1, &models.UpdateStatusRequest{Status: "pending"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestService_UpdateStatus_CompletedPublishesOnce(t *testing.T) {
	repo := newMemRepo(testAppointment(1, domain.StatusInProgress))
	publisher := &countingPublisher{}
	svc := newTestService(repo, publisher)

	err := svc.UpdateStatus(context.Background(), 1, &models.UpdateStatusRequest{Status: "completed"})
	require.NoError(t, err)

	require.Equal(t, 1, publisher.count())
	event := publisher.events[0]
	assert.Equal(t, int64(1), event.AppointmentID)
	assert.Equal(t, "APT-9F3A21C4", event.AppointmentNumber)
	assert.Equal(t, "Массаж спины", event.ServiceName)
	assert.Equal(t, float64(3500), event.ServicePrice)

	// Повторный перевод в completed проигрывает условному UPDATE
	err = svc.UpdateStatus(context.Background(), 1, &models.UpdateStatusRequest{Status: "completed"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, publisher.count())
}

func TestService_UpdateStatus_ConcurrentCompleteLosesRace(t *testing.T) {
	// Эмуляция гонки: статус меняется после чтения, условный UPDATE
	// возвращает ErrStaleStatus, событие не публикуется второй раз
	repo := newMemRepo(testAppointment(1, domain.StatusInProgress))
	publisher := &countingPublisher{}
	svc := newTestService(repo, publisher)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.UpdateStatus(context.Background(), 1, &models.UpdateStatusRequest{Status: "completed"})
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			errors.Is(err, ErrStatusChanged) || errors.Is(err, ErrInvalidTransition),
			"unexpected error: %v", err)
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, publisher.count())
}

func TestService_UpdateStatus_PublishFailureDoesNotFailTransition(t *testing.T) {
	repo := newMemRepo(testAppointment(1, domain.StatusInProgress))
	publisher := &countingPublisher{err: errors.New("redis: connection refused")}
	svc := newTestService(repo, publisher)

	err := svc.UpdateStatus(context.Background(), 1, &models.UpdateStatusRequest{Status: "completed"})
	require.NoError(t, err)

	stored, _ := repo.GetByID(context.Background(), 1)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestService_UpdateStatus_Reactivation(t *testing.T) {
	t.Run("слот свободен", func(t *testing.T) {
		repo := newMemRepo(testAppointment(1, domain.StatusCancelled))
		svc := newTestService(repo, &countingPublisher{})

		err := svc.UpdateStatus(context.Background(), 1, &models.UpdateStatusRequest{Status: "scheduled"})
		require.NoError(t, err)

		stored, _ := repo.GetByID(context.Background(), 1)
		assert.Equal(t, domain.StatusScheduled, stored.Status)
	})

	t.Run("слот занят другой записью", func(t *testing.T) {
		cancelled := testAppointment(1, domain.StatusCancelled)
		competitor := testAppointment(2, domain.StatusScheduled)
		competitor.StartTime = "10:30"

		repo := newMemRepo(cancelled, competitor)
		svc := newTestService(repo, &countingPublisher{})

		err := svc.UpdateStatus(context.Background(), 1, &models.UpdateStatusRequest{Status: "scheduled"})
		assert.ErrorIs(t, err, ErrReactivationConflict)

		stored, _ := repo.GetByID(context.Background(), 1)
		assert.Equal(t, domain.StatusCancelled, stored.Status)
	})

	t.Run("соседний слот не мешает", func(t *testing.T) {
		noShow := testAppointment(1, domain.StatusNoShow)
		neighbour := testAppointment(2, domain.StatusScheduled)
		neighbour.StartTime = "11:00"

		repo := newMemRepo(noShow, neighbour)
		svc := newTestService(repo, &countingPublisher{})

		err := svc.UpdateStatus(context.Background(), 1, &models.UpdateStatusRequest{Status: "scheduled"})
		assert.NoError(t, err)
	})
}

func TestService_GetCustomerAppointments(t *testing.T) {
	scheduled := testAppointment(1, domain.StatusScheduled)
	completed := testAppointment(2, domain.StatusCompleted)
	otherCustomer := testAppointment(3, domain.StatusScheduled)
	otherCustomer.CustomerID = 99

	repo := newMemRepo(scheduled, completed, otherCustomer)
	svc := newTestService(repo, &countingPublisher{})

	resp, err := svc.GetCustomerAppointments(context.Background(), &models.GetCustomerAppointmentsRequest{CustomerID: 21})
	require.NoError(t, err)
	assert.Len(t, resp.Appointments, 2)

	status := "completed"
	resp, err = svc.GetCustomerAppointments(context.Background(), &models.GetCustomerAppointmentsRequest{
		CustomerID: 21,
		Status:     &status,
	})
	require.NoError(t, err)
	require.Len(t, resp.Appointments, 1)
	assert.Equal(t, int64(2), resp.Appointments[0].ID)

	bad := "pending"
	_, err = svc.GetCustomerAppointments(context.Background(), &models.GetCustomerAppointmentsRequest{
		CustomerID: 21,
		Status:     &bad,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_GetStaffAppointments(t *testing.T) {
	active := testAppointment(1, domain.StatusScheduled)
	cancelled := testAppointment(2, domain.StatusCancelled)

	repo := newMemRepo(active, cancelled)
	svc := newTestService(repo, &countingPublisher{})

	resp, err := svc.GetStaffAppointments(context.Background(), &models.GetStaffAppointmentsRequest{StaffID: 7})
	require.NoError(t, err)
	assert.Len(t, resp.Appointments, 1)

	resp, err = svc.GetStaffAppointments(context.Background(), &models.GetStaffAppointmentsRequest{
		StaffID:         7,
		IncludeInactive: true,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Appointments, 2)
}
