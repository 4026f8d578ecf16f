// Package simpletxmanager transaction manager поверх чистого *sql.DB (без метрик)
//
// Используется, когда сбор метрик выключен в конфигурации. Вся логика
// повторов и классификации ошибок переиспользуется из txmanager.
package simpletxmanager

import (
	"context"
	"database/sql"

	"github.com/d-okhotin/SPA-BookingEngine/pkg/dbmetrics"
	"github.com/d-okhotin/SPA-BookingEngine/pkg/txmanager"
)

// TransactionManager transaction manager без обёртки метрик
type TransactionManager struct {
	*txmanager.TransactionManager
}

// NewTransactionManager создает transaction manager поверх *sql.DB
func NewTransactionManager(db *sql.DB) *TransactionManager {
	return &TransactionManager{
		TransactionManager: txmanager.NewTransactionManager(sqlBeginner{db: db}),
	}
}

// sqlBeginner адаптирует *sql.DB к интерфейсу txmanager.TxBeginner
type sqlBeginner struct {
	db *sql.DB
}

func (b sqlBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error) {
	tx, err := b.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
