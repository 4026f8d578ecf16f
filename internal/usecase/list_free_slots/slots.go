package list_free_slots

import (
	"sort"
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
)

// buildSlotSeq строит последовательность свободных слотов мастера на дату
//
// Для каждого действующего правила доступности (override вытесняет недельное
// правило в domain.ResolveRulesForDate):
//  1. берём рабочие интервалы за вычетом перерыва;
//  2. вычитаем интервалы активных записей (merge-and-punch);
//  3. обходим кандидатов, выровненных по granularity от начала рабочего
//     интервала правила.
//
// Слоты выдаются в хронологическом порядке. Если duration не помещается ни в
// один свободный интервал, последовательность пуста - это не ошибка
func buildSlotSeq(
	staffID int64,
	date time.Time,
	rules []*domain.AvailabilityRule,
	appointments []*domain.Appointment,
	duration int,
	granularity int,
	excludeAppointmentID *int64,
) (domain.SlotSeq, error) {
	active := domain.ResolveRulesForDate(rules, date)
	sort.Slice(active, func(i, j int) bool { return active[i].WorkStart.IsBefore(active[j].WorkStart) })

	busy, err := busyIntervals(appointments, excludeAppointmentID)
	if err != nil {
		return nil, err
	}

	// Подготавливаем обходы заранее, чтобы ошибка разбора правила всплыла
	// до первого range по последовательности
	walks := make([]domain.SlotSeq, 0, len(active))
	for _, rule := range active {
		work, err := rule.WorkingIntervals()
		if err != nil {
			return nil, err
		}
		if len(work) == 0 {
			continue
		}

		free := domain.SubtractIntervals(work, busy)

		alignBase, err := rule.WorkStart.MinutesOfDay()
		if err != nil {
			return nil, err
		}

		walks = append(walks, domain.WalkSlots(staffID, date, free, alignBase, duration, granularity))
	}

	return concat(walks), nil
}

// busyIntervals собирает интервалы активных записей
// Запись с ID равным excludeAppointmentID пропускается
func busyIntervals(appointments []*domain.Appointment, excludeAppointmentID *int64) ([]domain.Interval, error) {
	busy := make([]domain.Interval, 0, len(appointments))

	for _, appt := range appointments {
		if !appt.IsActive() {
			continue
		}
		if excludeAppointmentID != nil && appt.ID == *excludeAppointmentID {
			continue
		}

		interval, err := appt.Interval()
		if err != nil {
			return nil, err
		}
		busy = append(busy, interval)
	}

	return busy, nil
}

// concat объединяет последовательности слотов в одну
func concat(seqs []domain.SlotSeq) domain.SlotSeq {
	return func(yield func(domain.TimeSlot) bool) {
		for _, seq := range seqs {
			for slot := range seq {
				if !yield(slot) {
					return
				}
			}
		}
	}
}
