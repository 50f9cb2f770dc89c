package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// isUniqueViolation распознаёт нарушение уникального ограничения.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// classify переводит низкоуровневую ошибку драйвера в StorageError
// с классом для retry-логики. Неизвестные ошибки БД считаются internal:
// этот класс входит в повторяемый набор.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewStorageError(domain.StorageDeadlineExceeded, op, err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.NewStorageError(domain.StorageCancelled, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		// Класс 08 — ошибки соединения.
		case strings.HasPrefix(pgErr.Code, "08"):
			return domain.NewStorageError(domain.StorageUnavailable, op, err)
		// serialization_failure / deadlock_detected.
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			return domain.NewStorageError(domain.StorageAborted, op, err)
		// Класс 53 — нехватка ресурсов (too_many_connections и т.п.).
		case strings.HasPrefix(pgErr.Code, "53"):
			return domain.NewStorageError(domain.StorageResourceExhausted, op, err)
		// query_canceled.
		case pgErr.Code == "57014":
			return domain.NewStorageError(domain.StorageCancelled, op, err)
		// Класс 57 — вмешательство оператора, shutdown.
		case strings.HasPrefix(pgErr.Code, "57"):
			return domain.NewStorageError(domain.StorageUnavailable, op, err)
		}
	}

	return domain.NewStorageError(domain.StorageInternal, op, err)
}
