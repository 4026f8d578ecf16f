package reschedule_appointment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers"
	rescheduleAppointment "github.com/d-okhotin/SPA-BookingEngine/internal/usecase/reschedule_appointment"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/txmanager"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgInvalidDateTime      = "некорректный формат даты или времени"
	msgAppointmentNotFound  = "запись не найдена"
	msgNotReschedulable     = "запись нельзя перенести в текущем статусе"
	msgSlotConflict         = "новый интервал пересекается с существующей записью"
	msgDateInPast           = "дата уже прошла"
	msgOutsideWorkingHours  = "интервал вне рабочих часов мастера"
	msgInvalidRequest       = "некорректные параметры переноса"
	msgTemporaryUnavailable = "сервис временно недоступен, повторите запрос"
)

type Handler struct {
	useCase RescheduleAppointmentUseCase
	logger  Logger
}

func NewHandler(useCase RescheduleAppointmentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments/{id}/reschedule
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	appointmentID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		h.logger.Warn("POST /appointments/{id}/reschedule - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	var req RescheduleAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments/{id}/reschedule - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(appointmentID)
	if err != nil {
		h.logger.Warn("POST /appointments/{id}/reschedule - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDateTime)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, rescheduleAppointment.ErrAppointmentNotFound):
			h.logger.Warn("POST /appointments/{id}/reschedule - Appointment not found: id=%d", appointmentID)
			handlers.RespondNotFound(w, msgAppointmentNotFound)

		case errors.Is(err, rescheduleAppointment.ErrNotReschedulable):
			h.logger.Warn("POST /appointments/{id}/reschedule - Not reschedulable: id=%d", appointmentID)
			handlers.RespondConflict(w, msgNotReschedulable)

		case errors.Is(err, rescheduleAppointment.ErrSlotConflict):
			h.logger.Warn("POST /appointments/{id}/reschedule - Slot conflict: id=%d, date=%s, time=%s",
				appointmentID, req.Date, req.StartTime)
			handlers.RespondConflict(w, msgSlotConflict)

		case errors.Is(err, rescheduleAppointment.ErrDateInPast):
			h.logger.Warn("POST /appointments/{id}/reschedule - Date in past: id=%d, date=%s", appointmentID, req.Date)
			handlers.RespondBadRequest(w, msgDateInPast)

		case errors.Is(err, rescheduleAppointment.ErrOutsideWorkingHours):
			h.logger.Warn("POST /appointments/{id}/reschedule - Outside working hours: id=%d, date=%s, time=%s",
				appointmentID, req.Date, req.StartTime)
			handlers.RespondBadRequest(w, msgOutsideWorkingHours)

		case errors.Is(err, rescheduleAppointment.ErrInvalidInput):
			h.logger.Warn("POST /appointments/{id}/reschedule - Invalid request: id=%d, error=%v", appointmentID, err)
			handlers.RespondBadRequest(w, msgInvalidRequest)

		case errors.Is(err, txmanager.ErrLockTimeout), errors.Is(err, txmanager.ErrStorageUnavailable):
			h.logger.Error("POST /appointments/{id}/reschedule - Storage unavailable: id=%d, error=%v", appointmentID, err)
			handlers.RespondServiceUnavailable(w, msgTemporaryUnavailable)

		default:
			h.logger.Error("POST /appointments/{id}/reschedule - Failed to reschedule: id=%d, error=%v", appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	response := FromUseCaseResponse(result)

	h.logger.Info("POST /appointments/{id}/reschedule - Appointment rescheduled successfully: id=%d, date=%s, time=%s",
		appointmentID, req.Date, req.StartTime)
	handlers.RespondJSON(w, http.StatusOK, response)
}
