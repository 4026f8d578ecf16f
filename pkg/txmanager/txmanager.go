// Package txmanager управление транзакциями с прокидыванием через context
//
// DoSerializable используется для критических секций бронирования: изоляция
// SERIALIZABLE плюс повтор при serialization failure. Бизнес-ошибки из fn
// возвращаются как есть и не повторяются.
package txmanager

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"

	"github.com/d-okhotin/SPA-BookingEngine/pkg/dbmetrics"
)

var (
	// ErrLockTimeout возвращается, когда блокировка или транзакция не получена за отведённое время
	ErrLockTimeout = errors.New("txmanager: lock acquisition timed out")

	// ErrStorageUnavailable возвращается после исчерпания повторов при недоступности базы
	ErrStorageUnavailable = errors.New("txmanager: storage unavailable")
)

// Коды ошибок PostgreSQL, см. https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

const (
	maxSerializationRetries = 3
	maxTransientRetries     = 2
	retryBackoffBase        = 50 * time.Millisecond

	// defaultLockTimeout ограничивает ожидание FOR UPDATE внутри транзакции
	defaultLockTimeout = 3 * time.Second
)

// TxBeginner интерфейс для начала транзакций
// Реализуется *dbmetrics.DB и адаптером в simpletxmanager
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error)
}

// TransactionManager выполняет функции внутри транзакций базы данных
type TransactionManager struct {
	db          TxBeginner
	lockTimeout time.Duration
}

// NewTransactionManager создает transaction manager с дефолтным lock timeout
func NewTransactionManager(db TxBeginner) *TransactionManager {
	return &TransactionManager{
		db:          db,
		lockTimeout: defaultLockTimeout,
	}
}

// WithLockTimeout задает максимальное ожидание блокировок внутри транзакции
func (m *TransactionManager) WithLockTimeout(d time.Duration) *TransactionManager {
	m.lockTimeout = d
	return m
}

// Do выполняет fn внутри транзакции с изоляцией по умолчанию
func (m *TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.withTransientRetry(ctx, func() error {
		return m.runInTx(ctx, &sql.TxOptions{}, fn)
	})
}

// DoReadOnly выполняет fn внутри read-only транзакции
func (m *TransactionManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.withTransientRetry(ctx, func() error {
		return m.runInTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
	})
}

// DoSerializable выполняет fn внутри SERIALIZABLE транзакции
// Serialization failure и deadlock повторяются с backoff до maxSerializationRetries раз:
// это штатные исходы конкурентных бронирований, а не ошибки вызывающего кода
func (m *TransactionManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxSerializationRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
			}
		}

		err := m.withTransientRetry(ctx, func() error {
			return m.runInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
		})
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: serialization retries exhausted: %v", ErrStorageUnavailable, lastErr)
}

// runInTx одна попытка: begin, fn, commit
func (m *TransactionManager) runInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}

	txCtx := dbmetrics.WithTransaction(ctx, tx)

	// Ограничиваем ожидание row-level блокировок (FOR UPDATE), чтобы
	// конкурирующее бронирование не висело дольше lockTimeout
	if !opts.ReadOnly {
		timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, timeout); err != nil {
			_ = tx.Rollback()
			return classify(fmt.Errorf("set lock_timeout: %w", err))
		}
	}

	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}

	return nil
}

// withTransientRetry повторяет op при кратковременной недоступности базы
func (m *TransactionManager) withTransientRetry(ctx context.Context, op func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxTransientRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: %v", ErrStorageUnavailable, lastErr)
}

// classify переводит низкоуровневые ошибки в sentinel-ошибки движка
// Бизнес-ошибки и ошибки, требующие повтора, проходят без изменений
func classify(err error) error {
	if errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgLockNotAvailable {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}

	return err
}

// isSerializationFailure проверяет, что ошибка вызвана конфликтом сериализации или deadlock
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	code := string(pqErr.Code)
	return code == pgSerializationFailure || code == pgDeadlockDetected
}

// isTransient проверяет, что ошибка связана с потерей соединения
func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Класс 08 - connection exception
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && len(pqErr.Code) >= 2 && pqErr.Code[:2] == "08" {
		return true
	}

	return false
}

func backoff(attempt int) time.Duration {
	return retryBackoffBase << (attempt - 1)
}
