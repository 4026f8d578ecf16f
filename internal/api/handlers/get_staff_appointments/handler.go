package get_staff_appointments

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers"
	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/appointments"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/appointments/models"
)

const (
	msgInvalidStaffID = "некорректный ID мастера"
	msgInvalidDate    = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgInvalidFilter  = "некорректные параметры фильтрации"
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

// Handle GET /api/v1/staff/{staffId}/appointments
// Query params: startDate, endDate (YYYY-MM-DD), status, includeInactive
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	staffID, err := strconv.ParseInt(vars["staffId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /staff/{staffId}/appointments - Invalid staff ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidStaffID)
		return
	}

	query := r.URL.Query()

	serviceReq := &models.GetStaffAppointmentsRequest{
		StaffID:         staffID,
		IncludeInactive: query.Get("includeInactive") == "true",
	}

	if startDateStr := query.Get("startDate"); startDateStr != "" {
		startDate, err := time.Parse(domain.DateFormat, startDateStr)
		if err != nil {
			h.logger.Warn("GET /staff/{staffId}/appointments - Invalid start date: %v", err)
			handlers.RespondBadRequest(w, msgInvalidDate)
			return
		}
		serviceReq.StartDate = &startDate
	}

	if endDateStr := query.Get("endDate"); endDateStr != "" {
		endDate, err := time.Parse(domain.DateFormat, endDateStr)
		if err != nil {
			h.logger.Warn("GET /staff/{staffId}/appointments - Invalid end date: %v", err)
			handlers.RespondBadRequest(w, msgInvalidDate)
			return
		}
		serviceReq.EndDate = &endDate
	}

	if status := query.Get("status"); status != "" {
		serviceReq.Status = &status
	}

	result, err := h.service.GetStaffAppointments(r.Context(), serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrInvalidInput):
			h.logger.Warn("GET /staff/{staffId}/appointments - Invalid filter: staff_id=%d, error=%v", staffID, err)
			handlers.RespondBadRequest(w, msgInvalidFilter)

		default:
			h.logger.Error("GET /staff/{staffId}/appointments - Failed to get appointments: staff_id=%d, error=%v",
				staffID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /staff/{staffId}/appointments - Appointments retrieved successfully: staff_id=%d, count=%d",
		staffID, len(result.Appointments))
	handlers.RespondJSON(w, http.StatusOK, result)
}
