package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrQueryFailed помечает ошибку выполнения агрегирующего запроса.
var ErrQueryFailed = errors.New("не удалось выполнить запрос")

// QueryFailedError хранит текст запроса, который завершился ошибкой.
type QueryFailedError struct {
	Statement string
	Err       error
}

func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("%v: %q: %v", ErrQueryFailed, e.Statement, e.Err)
}

func (e *QueryFailedError) Unwrap() error { return e.Err }

func (e *QueryFailedError) Is(target error) bool { return target == ErrQueryFailed }

// CountQuery строит запрос количества строк таблицы.
// Имя таблицы не экранируется: передавайте только константы.
func CountQuery(table string) string {
	return fmt.Sprintf("SELECT count(1) FROM %s", table)
}

// CountWhereQuery строит запрос количества строк таблицы по условию.
func CountWhereQuery(table, condition string) string {
	return fmt.Sprintf("SELECT count(1) FROM %s WHERE %s", table, condition)
}

// Count выполняет запрос, возвращающий одну строку с одним целым числом.
// Пустой результат считается нулём, из нескольких строк берётся первая.
func (db *DB) Count(ctx context.Context, statement string) (int64, error) {
	var n int64
	err := db.Conn.GetContext(ctx, &n, statement)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, &QueryFailedError{Statement: statement, Err: err}
	}
	return n, nil
}

// SQLState возвращает код ошибки PostgreSQL, если он есть в цепочке ошибок.
func SQLState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
