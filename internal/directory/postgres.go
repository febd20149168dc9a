package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"k8s.io/utils/clock"

	"github.com/levinOo/go-logstats-project/internal/identity"
	"github.com/levinOo/go-logstats-project/internal/stats"
)

// DefaultQueryTimeout ограничивает время одного запроса к каталогу.
const DefaultQueryTimeout = 5 * time.Second

// Postgres ведёт список опубликованных метрик в таблице published_metrics.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
	clock   clock.PassiveClock
}

// NewPostgres создаёт каталог поверх открытого соединения.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:      db,
		timeout: DefaultQueryTimeout,
		clock:   clock.RealClock{},
	}
}

// Register добавляет строку для id. Нарушение уникальности имени
// возвращается как ErrAlreadyRegistered.
func (p *Postgres) Register(id identity.ID, s *stats.Stats) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO published_metrics (name, domain, description, registered_at)
		VALUES ($1, $2, $3, $4)
	`, id.String(), id.Domain(), s.Bucket().Description(), p.clock.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
		}
		return fmt.Errorf("failed to insert %s: %w", id, err)
	}

	return nil
}

// Unregister удаляет строку id. Если строки не было, возвращается ErrNotFound.
func (p *Postgres) Unregister(id identity.ID) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	res, err := p.db.ExecContext(ctx, `DELETE FROM published_metrics WHERE name = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return nil
}

// Reset удаляет все строки. Вызывается при запуске, чтобы записи
// предыдущего процесса не конфликтовали с новыми регистрациями.
func (p *Postgres) Reset(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM published_metrics`); err != nil {
		return fmt.Errorf("failed to reset published metrics: %w", err)
	}
	return nil
}

// Names возвращает имена опубликованных метрик в алфавитном порядке.
func (p *Postgres) Names(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name FROM published_metrics ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// Ping проверяет соединение с базой.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
