package get_free_slots

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers"
	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	listFreeSlots "github.com/d-okhotin/SPA-BookingEngine/internal/usecase/list_free_slots"
)

const (
	msgInvalidStaffID     = "некорректный ID мастера"
	msgMissingDate        = "дата обязательна"
	msgInvalidDate        = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgMissingDuration    = "длительность услуги обязательна"
	msgInvalidDuration    = "некорректная длительность услуги"
	msgInvalidGranularity = "некорректный шаг слотов"
	msgInvalidExcludeID   = "некорректный ID исключаемой записи"
	msgStaffNotFound      = "мастер не найден"
	msgDateInPast         = "дата уже прошла"
	msgInvalidRequest     = "некорректные параметры запроса"
)

type Handler struct {
	useCase ListFreeSlotsUseCase
	logger  Logger
}

func NewHandler(useCase ListFreeSlotsUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/staff/{staffId}/free-slots
// Query params: date (required, YYYY-MM-DD), durationMinutes (required),
// granularityMinutes (optional, default 15), excludeAppointmentId (optional,
// при подборе слота для переноса собственная запись не считается занятой)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	staffID, err := strconv.ParseInt(vars["staffId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /staff/{staffId}/free-slots - Invalid staff ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidStaffID)
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		h.logger.Warn("GET /staff/{staffId}/free-slots - Missing date")
		handlers.RespondBadRequest(w, msgMissingDate)
		return
	}

	date, err := time.Parse(domain.DateFormat, dateStr)
	if err != nil {
		h.logger.Warn("GET /staff/{staffId}/free-slots - Invalid date format: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDate)
		return
	}

	durationStr := r.URL.Query().Get("durationMinutes")
	if durationStr == "" {
		h.logger.Warn("GET /staff/{staffId}/free-slots - Missing duration")
		handlers.RespondBadRequest(w, msgMissingDuration)
		return
	}

	duration, err := strconv.Atoi(durationStr)
	if err != nil {
		h.logger.Warn("GET /staff/{staffId}/free-slots - Invalid duration: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDuration)
		return
	}

	granularity := 0
	if granularityStr := r.URL.Query().Get("granularityMinutes"); granularityStr != "" {
		granularity, err = strconv.Atoi(granularityStr)
		if err != nil {
			h.logger.Warn("GET /staff/{staffId}/free-slots - Invalid granularity: %v", err)
			handlers.RespondBadRequest(w, msgInvalidGranularity)
			return
		}
	}

	useCaseReq := &listFreeSlots.Request{
		StaffID:            staffID,
		Date:               date,
		DurationMinutes:    duration,
		GranularityMinutes: granularity,
	}

	if excludeStr := r.URL.Query().Get("excludeAppointmentId"); excludeStr != "" {
		excludeID, err := strconv.ParseInt(excludeStr, 10, 64)
		if err != nil {
			h.logger.Warn("GET /staff/{staffId}/free-slots - Invalid exclude appointment ID: %v", err)
			handlers.RespondBadRequest(w, msgInvalidExcludeID)
			return
		}
		useCaseReq.ExcludeAppointmentID = &excludeID
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, listFreeSlots.ErrStaffNotFound):
			h.logger.Warn("GET /staff/{staffId}/free-slots - Staff not found: staff_id=%d", staffID)
			handlers.RespondNotFound(w, msgStaffNotFound)

		case errors.Is(err, listFreeSlots.ErrDateInPast):
			h.logger.Warn("GET /staff/{staffId}/free-slots - Date in past: staff_id=%d, date=%s", staffID, dateStr)
			handlers.RespondBadRequest(w, msgDateInPast)

		case errors.Is(err, listFreeSlots.ErrInvalidInput):
			h.logger.Warn("GET /staff/{staffId}/free-slots - Invalid request: staff_id=%d, error=%v", staffID, err)
			handlers.RespondBadRequest(w, msgInvalidRequest)

		default:
			h.logger.Error("GET /staff/{staffId}/free-slots - Failed to get slots: staff_id=%d, date=%s, error=%v",
				staffID, dateStr, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	response, err := FromUseCaseResponse(result)
	if err != nil {
		h.logger.Error("GET /staff/{staffId}/free-slots - Failed to build response: staff_id=%d, error=%v", staffID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /staff/{staffId}/free-slots - Slots retrieved successfully: staff_id=%d, date=%s, slots_count=%d",
		staffID, dateStr, len(response.Slots))
	handlers.RespondJSON(w, http.StatusOK, response)
}
