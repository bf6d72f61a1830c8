package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"solver/internal/models"
)

// ============================================================
// ExecutionRepository Tests
// ============================================================

func newMockRepo(t *testing.T) (*ExecutionRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewExecutionRepository(db), mock, db
}

func TestSaveExecution(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		record      *models.ExecutionRecord
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "confirmed запись",
			record: &models.ExecutionRecord{
				OrderHash:      "0xabc",
				ChainID:        1,
				TakerAsset:     "0xusdt",
				ExecutionPrice: "1004.5",
				ProfitUSD:      12.5,
				GasCostUSD:     2.1,
				Status:         models.ExecutionStatusConfirmed,
				CreatedAt:      now,
				ConfirmedAt:    &now,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO executions`).
					WithArgs(sqlmock.AnyArg(), "0xabc", int64(1), "0xusdt", "1004.5",
						12.5, 2.1, models.ExecutionStatusConfirmed, "", now, &now).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "failed запись с ошибкой",
			record: &models.ExecutionRecord{
				OrderHash:      "0xdef",
				ChainID:        137,
				TakerAsset:     "0xusdc",
				ExecutionPrice: "500",
				Status:         models.ExecutionStatusFailed,
				ErrorMessage:   "submission: relayer rejected",
				CreatedAt:      now,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO executions`).
					WithArgs(sqlmock.AnyArg(), "0xdef", int64(137), "0xusdc", "500",
						0.0, 0.0, models.ExecutionStatusFailed, "submission: relayer rejected",
						now, sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "ошибка базы",
			record: &models.ExecutionRecord{
				OrderHash: "0xghi",
				CreatedAt: now,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO executions`).
					WillReturnError(errors.New("connection lost"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newMockRepo(t)
			tt.mockSetup(mock)

			err := repo.SaveExecution(context.Background(), tt.record)
			if (err != nil) != tt.expectError {
				t.Errorf("err=%v, expectError=%v", err, tt.expectError)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("невыполненные ожидания: %v", err)
			}
		})
	}
}

func TestSaveExecutionGeneratesID(t *testing.T) {
	repo, mock, _ := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO executions`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := &models.ExecutionRecord{OrderHash: "0xabc", CreatedAt: time.Now()}
	if err := repo.SaveExecution(context.Background(), record); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if record.ID == "" {
		t.Error("пустой ID должен генерироваться при сохранении")
	}
}

func TestGetByOrderHash(t *testing.T) {
	repo, mock, _ := newMockRepo(t)
	now := time.Now()

	columns := []string{
		"id", "order_hash", "chain_id", "taker_asset", "execution_price",
		"profit_usd", "gas_cost_usd", "status", "error_message", "created_at", "confirmed_at",
	}
	mock.ExpectQuery(`SELECT .+ FROM executions`).
		WithArgs("0xabc").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("id-1", "0xabc", int64(1), "0xusdt", "1004.5",
				12.5, 2.1, models.ExecutionStatusConfirmed, "", now, &now))

	record, err := repo.GetByOrderHash(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if record.ProfitUSD != 12.5 {
		t.Errorf("profit: ожидали 12.5, получили %v", record.ProfitUSD)
	}
	if record.ConfirmedAt == nil {
		t.Error("confirmed_at должен быть заполнен")
	}
}

func TestGetByOrderHashNotFound(t *testing.T) {
	repo, mock, _ := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM executions`).
		WithArgs("0xmissing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByOrderHash(context.Background(), "0xmissing")
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("ожидали ErrExecutionNotFound, получили %v", err)
	}
}

func TestGetRecent(t *testing.T) {
	repo, mock, _ := newMockRepo(t)
	now := time.Now()

	columns := []string{
		"id", "order_hash", "chain_id", "taker_asset", "execution_price",
		"profit_usd", "gas_cost_usd", "status", "error_message", "created_at", "confirmed_at",
	}
	mock.ExpectQuery(`SELECT .+ FROM executions`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("id-1", "0xabc", int64(1), "0xusdt", "1000", 5.0, 1.0,
				models.ExecutionStatusConfirmed, "", now, &now).
			AddRow("id-2", "0xdef", int64(137), "0xusdc", "500", 0.0, 0.0,
				models.ExecutionStatusFailed, "timeout", now, nil))

	records, err := repo.GetRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ожидали 2 записи, получили %d", len(records))
	}
	if records[1].Status != models.ExecutionStatusFailed {
		t.Errorf("вторая запись: ожидали failed, получили %s", records[1].Status)
	}
}

func TestProfitSince(t *testing.T) {
	repo, mock, _ := newMockRepo(t)
	since := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery(`SELECT COALESCE`).
		WithArgs(models.ExecutionStatusConfirmed, since).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(142.5))

	total, err := repo.ProfitSince(context.Background(), since)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if total != 142.5 {
		t.Errorf("ожидали 142.5, получили %v", total)
	}
}
