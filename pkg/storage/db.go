package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrConnectionFailed возвращается, если не удалось установить соединение с PostgreSQL.
var ErrConnectionFailed = errors.New("не удалось подключиться к базе данных")

type DB struct {
	Conn *sqlx.DB
}

func NewDB(conn *sqlx.DB) *DB {
	return &DB{Conn: conn}
}

// Open подключается к PostgreSQL и проверяет соединение.
// Пул ограничен одним соединением: все запросы сбора идут последовательно через него.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	return NewDB(conn), nil
}

// Close освобождает соединение.
func (db *DB) Close() error {
	if db == nil || db.Conn == nil {
		return nil
	}
	return db.Conn.Close()
}
