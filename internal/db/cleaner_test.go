package db

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestPurgeDeleted_AllTables(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM files").WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM notes").WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM credentials").WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 1))

	if got := PurgeDeleted(context.Background(), dbMock, cutoff, zap.NewNop()); got != 3 {
		t.Errorf("PurgeDeleted = %d; want 3", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPurgeDeleted_ErrorLoggedAndSkipped(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	mock.ExpectExec("DELETE FROM files").WithArgs(sqlmock.AnyArg()).WillReturnError(fmt.Errorf("db fail"))
	mock.ExpectExec("DELETE FROM notes").WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM credentials").WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	var buf bytes.Buffer
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(&buf),
		zapcore.InfoLevel,
	)

	if got := PurgeDeleted(context.Background(), dbMock, time.Now(), zap.New(core)); got != 4 {
		t.Errorf("PurgeDeleted = %d; want 4", got)
	}

	out := buf.String()
	if !strings.Contains(out, "failed to clean soft-deleted rows") {
		t.Errorf("expected error log, got:\n%s", out)
	}
	if !strings.Contains(out, "cleaned soft-deleted rows") {
		t.Errorf("expected info log, got:\n%s", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStartSoftDeleteCleaner_Ticks(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	for _, table := range resourceTables {
		mock.ExpectExec("DELETE FROM " + table).
			WithArgs(sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartSoftDeleteCleaner(ctx, dbMock, 10*time.Millisecond, time.Hour, zap.NewNop())

	time.Sleep(200 * time.Millisecond)
	cancel()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStartSoftDeleteCleaner_CancelBeforeTicker(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	ctx, cancel := context.WithCancel(context.Background())

	StartSoftDeleteCleaner(ctx, dbMock, 100*time.Millisecond, time.Hour, zap.NewNop())
	cancel()

	time.Sleep(50 * time.Millisecond)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected sql calls: %v", err)
	}
}
