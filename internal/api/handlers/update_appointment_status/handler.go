package update_appointment_status

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/appointments"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/appointments/models"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/txmanager"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgAppointmentNotFound  = "запись не найдена"
	msgInvalidTransition    = "недопустимый переход статусов"
	msgStatusChanged        = "статус записи изменился, обновите данные и повторите"
	msgReactivationConflict = "слот записи уже занят, реактивация невозможна"
	msgInvalidRequest       = "некорректные параметры запроса"
	msgTemporaryUnavailable = "сервис временно недоступен, повторите запрос"
)

type Handler struct {
	service AppointmentService
	logger  Logger
}

func NewHandler(service AppointmentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/appointments/{id}/status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	appointmentID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		h.logger.Warn("PATCH /appointments/{id}/status - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	var req models.UpdateStatusRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /appointments/{id}/status - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	if err := h.service.UpdateStatus(r.Context(), appointmentID, &req); err != nil {
		switch {
		case errors.Is(err, appointments.ErrAppointmentNotFound):
			h.logger.Warn("PATCH /appointments/{id}/status - Appointment not found: id=%d", appointmentID)
			handlers.RespondNotFound(w, msgAppointmentNotFound)

		case errors.Is(err, appointments.ErrInvalidTransition):
			h.logger.Warn("PATCH /appointments/{id}/status - Invalid transition: id=%d, status=%s", appointmentID, req.Status)
			handlers.RespondConflict(w, msgInvalidTransition)

		case errors.Is(err, appointments.ErrStatusChanged):
			h.logger.Warn("PATCH /appointments/{id}/status - Status changed concurrently: id=%d", appointmentID)
			handlers.RespondConflict(w, msgStatusChanged)

		case errors.Is(err, appointments.ErrReactivationConflict):
			h.logger.Warn("PATCH /appointments/{id}/status - Reactivation conflict: id=%d", appointmentID)
			handlers.RespondConflict(w, msgReactivationConflict)

		case errors.Is(err, appointments.ErrInvalidInput):
			h.logger.Warn("PATCH /appointments/{id}/status - Invalid request: id=%d, status=%s", appointmentID, req.Status)
			handlers.RespondBadRequest(w, msgInvalidRequest)

		case errors.Is(err, txmanager.ErrLockTimeout), errors.Is(err, txmanager.ErrStorageUnavailable):
			h.logger.Error("PATCH /appointments/{id}/status - Storage unavailable: id=%d, error=%v", appointmentID, err)
			handlers.RespondServiceUnavailable(w, msgTemporaryUnavailable)

		default:
			h.logger.Error("PATCH /appointments/{id}/status - Failed to update status: id=%d, error=%v", appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /appointments/{id}/status - Status updated successfully: id=%d, status=%s", appointmentID, req.Status)
	handlers.RespondJSON(w, http.StatusNoContent, nil)
}
