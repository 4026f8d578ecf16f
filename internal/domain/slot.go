package domain

import (
	"iter"
	"sort"
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

// Interval полуинтервал [Start, End) в минутах с начала суток
type Interval struct {
	Start int
	End   int
}

// Overlaps returns true if the two half-open intervals truly intersect
// Граничащие интервалы (end одного == start другого) пересечением не считаются
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Duration returns the interval length in minutes
func (i Interval) Duration() int {
	return i.End - i.Start
}

// SubtractIntervals вычитает busy-интервалы из free-интервалов (merge-and-punch)
// Оба списка могут быть неотсортированными, busy-интервалы могут пересекаться
// между собой. Результат отсортирован, без пустых интервалов
func SubtractIntervals(free []Interval, busy []Interval) []Interval {
	if len(free) == 0 {
		return nil
	}

	sorted := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if b.End > b.Start {
			sorted = append(sorted, b)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	result := make([]Interval, 0, len(free))
	for _, f := range free {
		cursor := f.Start
		for _, b := range sorted {
			if b.End <= cursor || b.Start >= f.End {
				continue
			}
			if b.Start > cursor {
				result = append(result, Interval{Start: cursor, End: b.Start})
			}
			if b.End > cursor {
				cursor = b.End
			}
		}
		if cursor < f.End {
			result = append(result, Interval{Start: cursor, End: f.End})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Start < result[j].Start })
	return result
}

// TimeSlot кандидат для записи: интервал [StartTime, StartTime+Duration) у мастера на дату
// Производный тип, в базе не хранится
type TimeSlot struct {
	StaffID         int64
	Date            time.Time
	StartTime       types.TimeString
	DurationMinutes int
}

// SlotSeq ленивая конечная последовательность слотов, отсортированная по времени начала
// Перезапускаемая: каждый range по ней начинается с первого слота
type SlotSeq = iter.Seq[TimeSlot]

// WalkSlots строит последовательность слотов по свободным интервалам
//
// Кандидаты выравниваются по granularity от начала рабочего интервала мастера
// (alignBase), и слот попадает в выдачу, только если [c, c+duration) целиком
// помещается в один свободный интервал. free должен быть отсортирован
func WalkSlots(staffID int64, date time.Time, free []Interval, alignBase, duration, granularity int) SlotSeq {
	return func(yield func(TimeSlot) bool) {
		if duration <= 0 || granularity <= 0 {
			return
		}
		for _, f := range free {
			candidate := alignUp(f.Start, alignBase, granularity)
			for candidate+duration <= f.End {
				start, err := types.NewTimeStringFromMinutes(candidate)
				if err != nil {
					return
				}
				slot := TimeSlot{
					StaffID:         staffID,
					Date:            date,
					StartTime:       start,
					DurationMinutes: duration,
				}
				if !yield(slot) {
					return
				}
				candidate += granularity
			}
		}
	}
}

// CollectSlots материализует последовательность слотов в слайс
func CollectSlots(seq SlotSeq) []TimeSlot {
	slots := make([]TimeSlot, 0)
	for slot := range seq {
		slots = append(slots, slot)
	}
	return slots
}

// alignUp возвращает минимальное значение >= v, выровненное по step от base
func alignUp(v, base, step int) int {
	offset := v - base
	if offset <= 0 {
		return base
	}
	remainder := offset % step
	if remainder == 0 {
		return v
	}
	return v + step - remainder
}
