package get_appointment

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/appointments"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
	msgAppointmentNotFound  = "запись не найдена"
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

// Handle GET /api/v1/appointments/{id}
// Вместо числового ID принимается и номер записи вида "APT-9F3A21C4"
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idStr := vars["id"]

	var (
		result interface{}
		err    error
	)

	if strings.HasPrefix(idStr, "APT-") {
		result, err = h.service.GetByNumber(r.Context(), idStr)
	} else {
		var id int64
		id, err = strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			h.logger.Warn("GET /appointments/{id} - Invalid appointment ID: %v", err)
			handlers.RespondBadRequest(w, msgInvalidAppointmentID)
			return
		}
		result, err = h.service.GetByID(r.Context(), id)
	}

	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrAppointmentNotFound):
			h.logger.Warn("GET /appointments/{id} - Appointment not found: id=%s", idStr)
			handlers.RespondNotFound(w, msgAppointmentNotFound)

		default:
			h.logger.Error("GET /appointments/{id} - Failed to get appointment: id=%s, error=%v", idStr, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /appointments/{id} - Appointment retrieved successfully: id=%s", idStr)
	handlers.RespondJSON(w, http.StatusOK, result)
}
