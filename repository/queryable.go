package repository

import (
	"context"
	"errors"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Queryable is implemented by both *pgxpool.Pool and pgx.Tx
type Queryable interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique constraint failure
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// toDB stores an unsigned snowflake in a signed BIGINT column by
// reinterpreting its bits. fromDB is its exact inverse.
func toDB(id snowflake.ID) int64 {
	return int64(id)
}

func fromDB(v int64) snowflake.ID {
	return snowflake.ID(uint64(v))
}

func toDBNullable(id *snowflake.ID) *int64 {
	if id == nil {
		return nil
	}
	v := toDB(*id)
	return &v
}

func fromDBNullable(v *int64) *snowflake.ID {
	if v == nil {
		return nil
	}
	id := fromDB(*v)
	return &id
}
