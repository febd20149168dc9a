// Package directory содержит реализации внешнего каталога, в котором
// публикуются метрики: реестр Prometheus, таблица PostgreSQL и
// объединение нескольких каталогов.
package directory

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/levinOo/go-logstats-project/internal/identity"
	"github.com/levinOo/go-logstats-project/internal/publisher"
	"github.com/levinOo/go-logstats-project/internal/stats"
)

var (
	// ErrAlreadyRegistered возвращается, если имя уже опубликовано в каталоге.
	ErrAlreadyRegistered = publisher.ErrAlreadyRegistered

	// ErrNotFound возвращается, если имя не опубликовано в каталоге.
	ErrNotFound = publisher.ErrNotFound
)

var (
	_ publisher.Directory = (*Prometheus)(nil)
	_ publisher.Directory = (*Postgres)(nil)
	_ publisher.Directory = Fanout(nil)
)

// Fanout публикует метрику во всех вложенных каталогах.
type Fanout []publisher.Directory

// Register регистрирует id во всех каталогах. Если часть каталогов вернула
// ошибку, успешные регистрации откатываются.
func (f Fanout) Register(id identity.ID, s *stats.Stats) error {
	var result *multierror.Error
	done := make([]publisher.Directory, 0, len(f))

	for _, d := range f {
		if err := d.Register(id, s); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		done = append(done, d)
	}

	if result == nil {
		return nil
	}

	for _, d := range done {
		if err := d.Unregister(id); err != nil {
			result = multierror.Append(result, fmt.Errorf("rollback: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// Unregister снимает id во всех каталогах. ErrNotFound возвращается только
// если имя не было известно ни одному каталогу.
func (f Fanout) Unregister(id identity.ID) error {
	var result *multierror.Error
	notFound := 0

	for _, d := range f {
		err := d.Unregister(id)
		switch {
		case err == nil:
		case isNotFound(err):
			notFound++
		default:
			result = multierror.Append(result, err)
		}
	}

	if result != nil {
		return result.ErrorOrNil()
	}
	if len(f) > 0 && notFound == len(f) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
