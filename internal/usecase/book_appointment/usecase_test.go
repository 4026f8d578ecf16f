package book_appointment

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	"github.com/d-okhotin/SPA-BookingEngine/internal/integrations/directoryservice"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

// Тестовые фейки

// memAppointmentRepo хранит записи в памяти
// Потокобезопасен, чтобы проверять конкурентные бронирования
type memAppointmentRepo struct {
	mu           sync.Mutex
	nextID       int64
	appointments []*domain.Appointment
}

func (r *memAppointmentRepo) Create(_ context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	created := *appt
	created.ID = r.nextID
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	r.appointments = append(r.appointments, &created)
	return &created, nil
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

func (r *memAppointmentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.appointments)
}

type fakeAvailabilityRepo struct {
	rules []*domain.AvailabilityRule
}

func (f *fakeAvailabilityRepo) GetRulesForDate(_ context.Context, _ int64, _ time.Time) ([]*domain.AvailabilityRule, error) {
	return f.rules, nil
}

type fakeDirectoryClient struct {
	staff    *directoryservice.Staff
	customer *directoryservice.Customer
}

func (f *fakeDirectoryClient) GetStaff(_ context.Context, _ int64) (*directoryservice.Staff, error) {
	if f.staff == nil {
		return nil, directoryservice.ErrStaffNotFound
	}
	return f.staff, nil
}

func (f *fakeDirectoryClient) GetCustomer(_ context.Context, _ int64) (*directoryservice.Customer, error) {
	if f.customer == nil {
		return nil, directoryservice.ErrCustomerNotFound
	}
	return f.customer, nil
}

// serialTxManager сериализует транзакции глобальным мьютексом, имитируя
// взаимное исключение конкурентных бронирований одного мастера
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

func workdayRules() []*domain.AvailabilityRule {
	breakStart := types.TimeString("13:00")
	breakEnd := types.TimeString("14:00")
	return []*domain.AvailabilityRule{{
		ID:         1,
		StaffID:    7,
		DayOfWeek:  int(testDate.Weekday()),
		WorkStart:  "09:00",
		WorkEnd:    "18:00",
		BreakStart: &breakStart,
		BreakEnd:   &breakEnd,
	}}
}

func newTestUseCase(repo *memAppointmentRepo) *UseCase {
	return &UseCase{
		appointmentRepo:  repo,
		availabilityRepo: &fakeAvailabilityRepo{rules: workdayRules()},
		directoryClient: &fakeDirectoryClient{
			staff:    &directoryservice.Staff{ID: 7, IsActive: true},
			customer: &directoryservice.Customer{ID: 21, IsActive: true},
		},
		txManager:    &serialTxManager{},
		timeProvider: &fixedTimeProvider{now: testNow},
		logger:       nopLogger{},
	}
}

func bookRequest(startTime string, duration int) *Request {
	return &Request{
		StaffID:         7,
		CustomerID:      21,
		Date:            testDate,
		StartTime:       types.TimeString(startTime),
		DurationMinutes: duration,
		ServiceName:     "Массаж спины",
		ServicePrice:    3500,
	}
}

func TestExecute_Success(t *testing.T) {
	repo := &memAppointmentRepo{}
	uc := newTestUseCase(repo)

	resp, err := uc.Execute(context.Background(), bookRequest("10:00", 60))
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, "scheduled", resp.Status)
	assert.Equal(t, "11:00", resp.EndTime.String())
	assert.True(t, strings.HasPrefix(resp.Number, "APT-"), "number %s", resp.Number)
	assert.Len(t, resp.Number, len("APT-")+8)
	assert.Equal(t, 1, repo.count())
}

func TestExecute_ConflictOnOverlap(t *testing.T) {
	repo := &memAppointmentRepo{}
	uc := newTestUseCase(repo)

	_, err := uc.Execute(context.Background(), bookRequest("10:00", 60))
	require.NoError(t, err)

	// 10:30-11:30 пересекается с 10:00-11:00
	_, err = uc.Execute(context.Background(), bookRequest("10:30", 60))
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.Equal(t, 1, repo.count())
}

func TestExecute_BackToBackIsAllowed(t *testing.T) {
	repo := &memAppointmentRepo{}
	uc := newTestUseCase(repo)

	_, err := uc.Execute(context.Background(), bookRequest("10:00", 60))
	require.NoError(t, err)

	// 11:00-12:00 начинается ровно в момент окончания 10:00-11:00
	_, err = uc.Execute(context.Background(), bookRequest("11:00", 60))
	require.NoError(t, err)
	assert.Equal(t, 2, repo.count())
}

func TestExecute_CancelledAppointmentDoesNotBlock(t *testing.T) {
	repo := &memAppointmentRepo{}
	repo.appointments = []*domain.Appointment{{
		ID: 50, StaffID: 7, CustomerID: 22, Date: testDate,
		StartTime: "10:00", DurationMinutes: 60,
		Status: domain.StatusCancelled,
	}}
	repo.nextID = 50
	uc := newTestUseCase(repo)

	_, err := uc.Execute(context.Background(), bookRequest("10:00", 60))
	assert.NoError(t, err)
}

func TestExecute_OutsideWorkingHours(t *testing.T) {
	repo := &memAppointmentRepo{}
	uc := newTestUseCase(repo)

	tests := []struct {
		name      string
		startTime string
		duration  int
	}{
		{"до начала смены", "08:00", 60},
		{"конец выходит за смену", "17:30", 60},
		{"попадает на перерыв", "12:30", 60},
		{"целиком в перерыве", "13:00", 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), bookRequest(tt.startTime, tt.duration))
			assert.ErrorIs(t, err, ErrOutsideWorkingHours)
		})
	}

	assert.Equal(t, 0, repo.count())
}

func TestExecute_EndOfShiftFits(t *testing.T) {
	repo := &memAppointmentRepo{}
	uc := newTestUseCase(repo)

	// 17:00-18:00 заканчивается ровно в конец смены
	_, err := uc.Execute(context.Background(), bookRequest("17:00", 60))
	assert.NoError(t, err)
}

func TestExecute_ValidationAndDirectoryErrors(t *testing.T) {
	t.Run("дата в прошлом", func(t *testing.T) {
		uc := newTestUseCase(&memAppointmentRepo{})
		req := bookRequest("10:00", 60)
		req.Date = testNow.AddDate(0, 0, -1)

		_, err := uc.Execute(context.Background(), req)
		assert.ErrorIs(t, err, ErrDateInPast)
	})

	t.Run("мастер не найден", func(t *testing.T) {
		uc := newTestUseCase(&memAppointmentRepo{})
		uc.directoryClient = &fakeDirectoryClient{customer: &directoryservice.Customer{ID: 21, IsActive: true}}

		_, err := uc.Execute(context.Background(), bookRequest("10:00", 60))
		assert.ErrorIs(t, err, ErrStaffNotFound)
	})

	t.Run("клиент не найден", func(t *testing.T) {
		uc := newTestUseCase(&memAppointmentRepo{})
		uc.directoryClient = &fakeDirectoryClient{staff: &directoryservice.Staff{ID: 7, IsActive: true}}

		_, err := uc.Execute(context.Background(), bookRequest("10:00", 60))
		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})

	t.Run("пустое название услуги", func(t *testing.T) {
		uc := newTestUseCase(&memAppointmentRepo{})
		req := bookRequest("10:00", 60)
		req.ServiceName = ""

		_, err := uc.Execute(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("отрицательная цена", func(t *testing.T) {
		uc := newTestUseCase(&memAppointmentRepo{})
		req := bookRequest("10:00", 60)
		req.ServicePrice = -1

		_, err := uc.Execute(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestExecute_ConcurrentBookingsOnlyOneWins(t *testing.T) {
	// N конкурентных бронирований одного и того же слота:
	// ровно одно должно пройти, остальные получить конфликт
	const workers = 16

	repo := &memAppointmentRepo{}
	uc := newTestUseCase(repo)

	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Execute(context.Background(), bookRequest("10:00", 60))
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, ErrSlotConflict):
			conflicted++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicted)
	assert.Equal(t, 1, repo.count())
}

func TestExecute_ConcurrentDisjointSlotsAllSucceed(t *testing.T) {
	repo := &memAppointmentRepo{}
	uc := newTestUseCase(repo)

	starts := []string{"09:00", "10:00", "11:00", "12:00", "14:00", "15:00", "16:00", "17:00"}

	var wg sync.WaitGroup
	errs := make([]error, len(starts))

	for i, start := range starts {
		wg.Add(1)
		go func(i int, start string) {
			defer wg.Done()
			_, errs[i] = uc.Execute(context.Background(), bookRequest(start, 60))
		}(i, start)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "slot %s", starts[i])
	}
	assert.Equal(t, len(starts), repo.count())
}
