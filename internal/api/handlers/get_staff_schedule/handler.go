package get_staff_schedule

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/d-okhotin/SPA-BookingEngine/internal/api/handlers"
	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/schedule"
	"github.com/d-okhotin/SPA-BookingEngine/internal/service/schedule/models"
)

const (
	msgInvalidStaffID = "некорректный ID мастера"
	msgInvalidDate    = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgInvalidPeriod  = "некорректный период"
	msgStaffNotFound  = "мастер не найден"
)

type Handler struct {
	service ScheduleService
	logger  Logger
}

func NewHandler(service ScheduleService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/staff/{staffId}/schedule
// Query params: from, to (YYYY-MM-DD) для периода, либо date для одного дня.
// С параметром date возвращается разрешённое расписание на дату
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	staffID, err := strconv.ParseInt(vars["staffId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /staff/{staffId}/schedule - Invalid staff ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidStaffID)
		return
	}

	query := r.URL.Query()

	if dateStr := query.Get("date"); dateStr != "" {
		date, err := time.Parse(domain.DateFormat, dateStr)
		if err != nil {
			h.logger.Warn("GET /staff/{staffId}/schedule - Invalid date: %v", err)
			handlers.RespondBadRequest(w, msgInvalidDate)
			return
		}

		result, err := h.service.GetDaySchedule(r.Context(), staffID, date)
		if err != nil {
			h.respondServiceError(w, staffID, err)
			return
		}

		h.logger.Info("GET /staff/{staffId}/schedule - Day schedule retrieved: staff_id=%d, date=%s", staffID, dateStr)
		handlers.RespondJSON(w, http.StatusOK, result)
		return
	}

	// Без date отдаём правила за период, по умолчанию ближайшие 4 недели
	now := time.Now()
	from := now
	to := now.AddDate(0, 0, 28)

	if fromStr := query.Get("from"); fromStr != "" {
		from, err = time.Parse(domain.DateFormat, fromStr)
		if err != nil {
			h.logger.Warn("GET /staff/{staffId}/schedule - Invalid from date: %v", err)
			handlers.RespondBadRequest(w, msgInvalidDate)
			return
		}
	}
	if toStr := query.Get("to"); toStr != "" {
		to, err = time.Parse(domain.DateFormat, toStr)
		if err != nil {
			h.logger.Warn("GET /staff/{staffId}/schedule - Invalid to date: %v", err)
			handlers.RespondBadRequest(w, msgInvalidDate)
			return
		}
	}

	serviceReq := &models.GetStaffScheduleRequest{
		StaffID: staffID,
		From:    from,
		To:      to,
	}

	result, err := h.service.GetStaffSchedule(r.Context(), serviceReq)
	if err != nil {
		h.respondServiceError(w, staffID, err)
		return
	}

	h.logger.Info("GET /staff/{staffId}/schedule - Schedule retrieved: staff_id=%d, rules_count=%d",
		staffID, len(result.Rules))
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, staffID int64, err error) {
	switch {
	case errors.Is(err, schedule.ErrStaffNotFound):
		h.logger.Warn("GET /staff/{staffId}/schedule - Staff not found: staff_id=%d", staffID)
		handlers.RespondNotFound(w, msgStaffNotFound)

	case errors.Is(err, schedule.ErrInvalidInput):
		h.logger.Warn("GET /staff/{staffId}/schedule - Invalid request: staff_id=%d, error=%v", staffID, err)
		handlers.RespondBadRequest(w, msgInvalidPeriod)

	default:
		h.logger.Error("GET /staff/{staffId}/schedule - Failed to get schedule: staff_id=%d, error=%v", staffID, err)
		handlers.RespondInternalError(w)
	}
}
