// Package db открывает соединение с PostgreSQL через драйвер pgx.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

var retryIntervals = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// DataBaseConnection открывает пул соединений и проверяет его пингом.
// При ошибке пинга пул закрывается.
func DataBaseConnection(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// ConnectDB вызывает DataBaseConnection и повторяет попытку через 1, 3 и 5
// секунд, пока ошибка похожа на временную недоступность сервера.
func ConnectDB(ctx context.Context, dsn string, sugar *zap.SugaredLogger) (*sql.DB, error) {
	db, err := DataBaseConnection(ctx, dsn)

	for i, interval := range retryIntervals {
		if err == nil || !IsRetriable(err) {
			break
		}
		sugar.Infow("Retrying database connection", "attempt", i+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		db, err = DataBaseConnection(ctx, dsn)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// IsRetriable сообщает, стоит ли повторить операцию: сервер отказал
// в соединении или вернул ошибку класса 08 (connection exception).
func IsRetriable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code)
}
