package create_appointment

import (
	"errors"
	"net/http"

	"github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers"
	bookAppointment "github.com/d-okhotin/SPA-BookingEngine/internal/usecase/book_appointment"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/txmanager"
)

const (
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgInvalidDate          = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgInvalidTime          = "некорректный формат времени начала, ожидается HH:MM"
	msgSlotConflict         = "выбранный интервал пересекается с существующей записью"
	msgStaffNotFound        = "мастер не найден"
	msgCustomerNotFound     = "клиент не найден"
	msgDateInPast           = "дата уже прошла"
	msgOutsideWorkingHours  = "интервал вне рабочих часов мастера"
	msgInvalidRequest       = "некорректные параметры записи"
	msgTemporaryUnavailable = "сервис временно недоступен, повторите запрос"
)

type Handler struct {
	useCase BookAppointmentUseCase
	logger  Logger
}

func NewHandler(useCase BookAppointmentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest()
	if err != nil {
		h.logger.Warn("POST /appointments - Failed to parse request: %v", err)
		if req.Date == "" || len(req.Date) == len("2006-01-02") {
			handlers.RespondBadRequest(w, msgInvalidTime)
		} else {
			handlers.RespondBadRequest(w, msgInvalidDate)
		}
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, bookAppointment.ErrSlotConflict):
			// Штатный исход конкуренции за слот, не ошибка сервиса
			h.logger.Warn("POST /appointments - Slot conflict: staff_id=%d, date=%s, time=%s",
				req.StaffID, req.Date, req.StartTime)
			handlers.RespondConflict(w, msgSlotConflict)

		case errors.Is(err, bookAppointment.ErrStaffNotFound):
			h.logger.Warn("POST /appointments - Staff not found: staff_id=%d", req.StaffID)
			handlers.RespondNotFound(w, msgStaffNotFound)

		case errors.Is(err, bookAppointment.ErrCustomerNotFound):
			h.logger.Warn("POST /appointments - Customer not found: customer_id=%d", req.CustomerID)
			handlers.RespondNotFound(w, msgCustomerNotFound)

		case errors.Is(err, bookAppointment.ErrDateInPast):
			h.logger.Warn("POST /appointments - Date in past: staff_id=%d, date=%s", req.StaffID, req.Date)
			handlers.RespondBadRequest(w, msgDateInPast)

		case errors.Is(err, bookAppointment.ErrOutsideWorkingHours):
			h.logger.Warn("POST /appointments - Outside working hours: staff_id=%d, date=%s, time=%s",
				req.StaffID, req.Date, req.StartTime)
			handlers.RespondBadRequest(w, msgOutsideWorkingHours)

		case errors.Is(err, bookAppointment.ErrInvalidInput):
			h.logger.Warn("POST /appointments - Invalid request: %v", err)
			handlers.RespondBadRequest(w, msgInvalidRequest)

		case errors.Is(err, txmanager.ErrLockTimeout), errors.Is(err, txmanager.ErrStorageUnavailable):
			h.logger.Error("POST /appointments - Storage unavailable: staff_id=%d, error=%v", req.StaffID, err)
			handlers.RespondServiceUnavailable(w, msgTemporaryUnavailable)

		default:
			h.logger.Error("POST /appointments - Failed to create appointment: staff_id=%d, customer_id=%d, error=%v",
				req.StaffID, req.CustomerID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	response := FromUseCaseResponse(result)

	h.logger.Info("POST /appointments - Appointment created successfully: id=%d, number=%s, staff_id=%d",
		result.ID, result.Number, req.StaffID)
	handlers.RespondJSON(w, http.StatusCreated, response)
}
