package availability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/d-okhotin/SPA-BookingEngine/internal/domain"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/dbmetrics"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/psqlbuilder"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/types"
)

// Переиспользуем интерфейс из dbmetrics для работы с БД
type DBExecutor = dbmetrics.DBExecutor

var ruleColumns = []string{
	"id",
	"staff_id",
	"day_of_week",
	"work_start",
	"work_end",
	"break_start",
	"break_end",
	"effective_date",
	"is_day_off",
	"created_at",
	"updated_at",
}

// Repository репозиторий правил доступности мастеров
// Движок бронирования правила только читает, записью владеет админ-коллаборатор
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория правил доступности
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetRulesForDate получает правила мастера, применимые к дате:
// недельные правила на день недели этой даты плюс override-правила на саму дату.
// Приоритет override над недельным правилом разрешается в domain.ResolveRulesForDate
func (r *Repository) GetRulesForDate(ctx context.Context, staffID int64, date time.Time) ([]*domain.AvailabilityRule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(ruleColumns...).
		From("staff_availability").
		Where(squirrel.Eq{"staff_id": staffID}).
		Where(squirrel.Or{
			squirrel.And{
				squirrel.Eq{"effective_date": nil},
				squirrel.Eq{"day_of_week": int(date.Weekday())},
			},
			squirrel.Eq{"effective_date": date},
		}).
		OrderBy("work_start ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetRulesForDate - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetRulesForDate - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// ListByStaff получает все правила мастера: недельную сетку и overrides
// периода [from, to] (overrides вне периода не интересны для расписания)
func (r *Repository) ListByStaff(ctx context.Context, staffID int64, from, to time.Time) ([]*domain.AvailabilityRule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(ruleColumns...).
		From("staff_availability").
		Where(squirrel.Eq{"staff_id": staffID}).
		Where(squirrel.Or{
			squirrel.Eq{"effective_date": nil},
			squirrel.And{
				squirrel.GtOrEq{"effective_date": from},
				squirrel.LtOrEq{"effective_date": to},
			},
		}).
		OrderBy("day_of_week ASC, work_start ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListByStaff - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByStaff - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]*domain.AvailabilityRule, error) {
	rules := make([]*domain.AvailabilityRule, 0)

	for rows.Next() {
		var rule domain.AvailabilityRule
		var createdAt, updatedAt sql.NullTime
		var effectiveDate sql.NullTime
		var breakStart, breakEnd types.TimeString

		err := rows.Scan(
			&rule.ID,
			&rule.StaffID,
			&rule.DayOfWeek,
			&rule.WorkStart,
			&rule.WorkEnd,
			&breakStart,
			&breakEnd,
			&effectiveDate,
			&rule.IsDayOff,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanRules - scan row: %w", ErrScanRow, err)
		}

		if !breakStart.IsZero() {
			rule.BreakStart = &breakStart
		}
		if !breakEnd.IsZero() {
			rule.BreakEnd = &breakEnd
		}
		if effectiveDate.Valid {
			d := effectiveDate.Time
			rule.EffectiveDate = &d
		}
		rule.CreatedAt = createdAt.Time
		rule.UpdatedAt = updatedAt.Time

		rules = append(rules, &rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanRules - rows error: %w", ErrScanRow, err)
	}

	return rules, nil
}
