package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

func TestAppointment_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from AppointmentStatus
		to   AppointmentStatus
		want bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusCheckedIn, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusNoShow, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusScheduled, StatusInProgress, false},

		{StatusConfirmed, StatusInProgress, true},
		{StatusConfirmed, StatusCompleted, false},

		{StatusCheckedIn, StatusCompleted, true},
		{StatusCheckedIn, StatusNoShow, false},

		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusNoShow, false},

		// Терминальный completed
		{StatusCompleted, StatusScheduled, false},
		{StatusCompleted, StatusCancelled, false},

		// Реактивация
		{StatusCancelled, StatusScheduled, true},
		{StatusNoShow, StatusScheduled, true},
		{StatusCancelled, StatusConfirmed, false},
	}

	for _, tt := range tests {
		appt := &Appointment{Status: tt.from}
		assert.Equal(t, tt.want, appt.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIsReactivation(t *testing.T) {
	assert.True(t, IsReactivation(StatusCancelled, StatusScheduled))
	assert.True(t, IsReactivation(StatusNoShow, StatusScheduled))
	assert.False(t, IsReactivation(StatusScheduled, StatusConfirmed))
	assert.False(t, IsReactivation(StatusCompleted, StatusScheduled))
	assert.False(t, IsReactivation(StatusCancelled, StatusConfirmed))
}

func TestAppointment_IsActive(t *testing.T) {
	active := []AppointmentStatus{StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusInProgress, StatusCompleted}
	for _, status := range active {
		appt := &Appointment{Status: status}
		assert.True(t, appt.IsActive(), "status %s", status)
	}

	inactive := []AppointmentStatus{StatusCancelled, StatusNoShow}
	for _, status := range inactive {
		appt := &Appointment{Status: status}
		assert.False(t, appt.IsActive(), "status %s", status)
	}
}

func TestAppointment_CanBeCancelled(t *testing.T) {
	cancellable := []AppointmentStatus{StatusScheduled, StatusConfirmed, StatusCheckedIn}
	for _, status := range cancellable {
		appt := &Appointment{Status: status}
		assert.True(t, appt.CanBeCancelled(), "status %s", status)
	}

	notCancellable := []AppointmentStatus{StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow}
	for _, status := range notCancellable {
		appt := &Appointment{Status: status}
		assert.False(t, appt.CanBeCancelled(), "status %s", status)
	}
}

func TestAppointment_Interval(t *testing.T) {
	appt := &Appointment{
		StartTime:       types.TimeString("10:30"),
		DurationMinutes: 60,
	}

	interval, err := appt.Interval()
	require.NoError(t, err)
	assert.Equal(t, Interval{Start: 630, End: 690}, interval)

	end, err := appt.EndTime()
	require.NoError(t, err)
	assert.Equal(t, "11:30", end.String())
}

func TestParseAppointmentStatus(t *testing.T) {
	for _, valid := range []string{"scheduled", "confirmed", "checked_in", "in_progress", "completed", "cancelled", "no_show"} {
		status, err := ParseAppointmentStatus(valid)
		require.NoError(t, err, valid)
		assert.Equal(t, AppointmentStatus(valid), status)
	}

	_, err := ParseAppointmentStatus("pending")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseAppointmentStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStaffAppointmentsFilter_SingleDate(t *testing.T) {
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	other := date.AddDate(0, 0, 1)

	assert.True(t, (&StaffAppointmentsFilter{StartDate: &date, EndDate: &date}).SingleDate())
	assert.False(t, (&StaffAppointmentsFilter{StartDate: &date, EndDate: &other}).SingleDate())
	assert.False(t, (&StaffAppointmentsFilter{StartDate: &date}).SingleDate())
	assert.False(t, (&StaffAppointmentsFilter{}).SingleDate())
}
