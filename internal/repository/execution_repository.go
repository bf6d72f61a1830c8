package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"solver/internal/models"
)

// Ошибки репозитория истории исполнений
var (
	ErrExecutionNotFound = errors.New("execution record not found")
)

// ExecutionRepository - работа с таблицей executions
//
// История опциональна: процесс полностью работоспособен без БД,
// репозиторий подключается только при заданном DATABASE_URL.
type ExecutionRepository struct {
	db *sql.DB
}

// NewExecutionRepository создаёт репозиторий поверх открытого соединения
func NewExecutionRepository(db *sql.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// Open открывает соединение с Postgres и проверяет его
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// SaveExecution сохраняет запись о попытке исполнения
func (r *ExecutionRepository) SaveExecution(ctx context.Context, record *models.ExecutionRecord) error {
	query := `
		INSERT INTO executions (
			id, order_hash, chain_id, taker_asset, execution_price,
			profit_usd, gas_cost_usd, status, error_message, created_at, confirmed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.OrderHash,
		record.ChainID,
		record.TakerAsset,
		record.ExecutionPrice,
		record.ProfitUSD,
		record.GasCostUSD,
		record.Status,
		record.ErrorMessage,
		record.CreatedAt,
		record.ConfirmedAt,
	)
	return err
}

// GetByOrderHash возвращает запись по хэшу ордера
func (r *ExecutionRepository) GetByOrderHash(ctx context.Context, orderHash string) (*models.ExecutionRecord, error) {
	query := `
		SELECT id, order_hash, chain_id, taker_asset, execution_price,
		       profit_usd, gas_cost_usd, status, error_message, created_at, confirmed_at
		FROM executions
		WHERE order_hash = $1
		ORDER BY created_at DESC
		LIMIT 1`

	record := &models.ExecutionRecord{}
	err := r.db.QueryRowContext(ctx, query, orderHash).Scan(
		&record.ID,
		&record.OrderHash,
		&record.ChainID,
		&record.TakerAsset,
		&record.ExecutionPrice,
		&record.ProfitUSD,
		&record.GasCostUSD,
		&record.Status,
		&record.ErrorMessage,
		&record.CreatedAt,
		&record.ConfirmedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExecutionNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetRecent возвращает последние записи
func (r *ExecutionRepository) GetRecent(ctx context.Context, limit int) ([]*models.ExecutionRecord, error) {
	query := `
		SELECT id, order_hash, chain_id, taker_asset, execution_price,
		       profit_usd, gas_cost_usd, status, error_message, created_at, confirmed_at
		FROM executions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ExecutionRecord
	for rows.Next() {
		record := &models.ExecutionRecord{}
		err := rows.Scan(
			&record.ID,
			&record.OrderHash,
			&record.ChainID,
			&record.TakerAsset,
			&record.ExecutionPrice,
			&record.ProfitUSD,
			&record.GasCostUSD,
			&record.Status,
			&record.ErrorMessage,
			&record.CreatedAt,
			&record.ConfirmedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ProfitSince возвращает суммарный профит подтверждённых исполнений с момента since
func (r *ExecutionRepository) ProfitSince(ctx context.Context, since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(profit_usd), 0)
		FROM executions
		WHERE status = $1 AND created_at >= $2`

	var total float64
	err := r.db.QueryRowContext(ctx, query, models.ExecutionStatusConfirmed, since).Scan(&total)
	return total, err
}
