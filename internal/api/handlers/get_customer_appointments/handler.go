package get_customer_appointments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/appointments"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/appointments/models"
)

const (
	msgInvalidCustomerID = "некорректный ID клиента"
	msgInvalidStatus     = "некорректный статус записи"
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

// Handle GET /api/v1/customers/{customerId}/appointments
// Query params: status (optional)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	customerID, err := strconv.ParseInt(vars["customerId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /customers/{customerId}/appointments - Invalid customer ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidCustomerID)
		return
	}

	var statusPtr *string
	if status := r.URL.Query().Get("status"); status != "" {
		statusPtr = &status
	}

	serviceReq := &models.GetCustomerAppointmentsRequest{
		CustomerID: customerID,
		Status:     statusPtr,
	}

	result, err := h.service.GetCustomerAppointments(r.Context(), serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrInvalidInput):
			h.logger.Warn("GET /customers/{customerId}/appointments - Invalid status: customer_id=%d", customerID)
			handlers.RespondBadRequest(w, msgInvalidStatus)

		default:
			h.logger.Error("GET /customers/{customerId}/appointments - Failed to get appointments: customer_id=%d, error=%v",
				customerID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /customers/{customerId}/appointments - Appointments retrieved successfully: customer_id=%d, count=%d",
		customerID, len(result.Appointments))
	handlers.RespondJSON(w, http.StatusOK, result)
}
