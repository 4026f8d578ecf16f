package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

var (
	// ErrInvalidRule возвращается при нарушении инвариантов правила доступности
	ErrInvalidRule = errors.New("domain: invalid availability rule")
)

// AvailabilityRule represents a staff member's working window for one weekday
//
// Обычное правило действует каждую неделю по DayOfWeek. Правило с заполненным
// EffectiveDate точечно заменяет недельное правило на эту дату (override wins).
// Движок бронирования правила только читает
type AvailabilityRule struct {
	ID        int64
	StaffID   int64
	DayOfWeek int // 0 = воскресенье ... 6 = суббота, совпадает с time.Weekday
	WorkStart types.TimeString
	WorkEnd   types.TimeString

	// Перерыв опционален, оба поля либо заполнены, либо пусты
	BreakStart *types.TimeString
	BreakEnd   *types.TimeString

	// EffectiveDate точечная замена недельного правила на конкретную дату
	EffectiveDate *time.Time

	// IsDayOff выходной: правило не даёт рабочих интервалов
	// Используется в override-правилах, чтобы закрыть конкретную дату
	IsDayOff bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOverride returns true if the rule replaces the weekly rule for a specific date
func (r *AvailabilityRule) IsOverride() bool {
	return r.EffectiveDate != nil
}

// HasBreak returns true if the rule contains a break interval
func (r *AvailabilityRule) HasBreak() bool {
	return r.BreakStart != nil && r.BreakEnd != nil
}

// Validate проверяет инварианты: start < end, перерыв целиком внутри рабочего интервала
func (r *AvailabilityRule) Validate() error {
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week must be 0..6, got %d", ErrInvalidRule, r.DayOfWeek)
	}
	if r.IsDayOff {
		return nil
	}
	if err := r.WorkStart.Validate(); err != nil {
		return fmt.Errorf("%w: work_start: %v", ErrInvalidRule, err)
	}
	if err := r.WorkEnd.Validate(); err != nil {
		return fmt.Errorf("%w: work_end: %v", ErrInvalidRule, err)
	}
	if !r.WorkStart.IsBefore(r.WorkEnd) {
		return fmt.Errorf("%w: work_start %s must be before work_end %s", ErrInvalidRule, r.WorkStart, r.WorkEnd)
	}

	if (r.BreakStart == nil) != (r.BreakEnd == nil) {
		return fmt.Errorf("%w: break_start and break_end must be set together", ErrInvalidRule)
	}
	if r.HasBreak() {
		if !r.BreakStart.IsBefore(*r.BreakEnd) {
			return fmt.Errorf("%w: break_start %s must be before break_end %s", ErrInvalidRule, *r.BreakStart, *r.BreakEnd)
		}
		if r.BreakStart.IsBefore(r.WorkStart) || r.BreakEnd.IsAfter(r.WorkEnd) {
			return fmt.Errorf("%w: break must lie within working hours", ErrInvalidRule)
		}
	}

	return nil
}

// WorkingIntervals возвращает рабочие интервалы правила за вычетом перерыва
// Результат отсортирован по времени начала
func (r *AvailabilityRule) WorkingIntervals() ([]Interval, error) {
	if r.IsDayOff {
		return nil, nil
	}

	workStart, err := r.WorkStart.MinutesOfDay()
	if err != nil {
		return nil, err
	}
	workEnd, err := r.WorkEnd.MinutesOfDay()
	if err != nil {
		return nil, err
	}

	work := Interval{Start: workStart, End: workEnd}
	if !r.HasBreak() {
		return []Interval{work}, nil
	}

	breakStart, err := r.BreakStart.MinutesOfDay()
	if err != nil {
		return nil, err
	}
	breakEnd, err := r.BreakEnd.MinutesOfDay()
	if err != nil {
		return nil, err
	}

	return SubtractIntervals([]Interval{work}, []Interval{{Start: breakStart, End: breakEnd}}), nil
}

// ResolveRulesForDate выбирает правила, действующие на конкретную дату
// Override-правила на эту дату полностью замещают недельные правила дня
func ResolveRulesForDate(rules []*AvailabilityRule, date time.Time) []*AvailabilityRule {
	overrides := make([]*AvailabilityRule, 0)
	weekly := make([]*AvailabilityRule, 0)

	weekday := int(date.Weekday())
	for _, rule := range rules {
		if rule.IsOverride() {
			if sameDate(*rule.EffectiveDate, date) {
				overrides = append(overrides, rule)
			}
			continue
		}
		if rule.DayOfWeek == weekday {
			weekly = append(weekly, rule)
		}
	}

	if len(overrides) > 0 {
		return overrides
	}
	return weekly
}

func sameDate(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
