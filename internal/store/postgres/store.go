// Package postgres persists employees and leave requests with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrleave/internal/domain/employee"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Store struct {
	DB *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func (s *Store) Close() {
	s.DB.Close()
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var balanceColumns = map[employee.BalanceKey]string{
	employee.BalanceAnnual: "annual",
	employee.BalanceFR:     "fr",
	employee.BalanceSick:   "sick",
}

func balanceColumn(key employee.BalanceKey, suffix string) (string, error) {
	prefix, ok := balanceColumns[key]
	if !ok {
		return "", fmt.Errorf("unknown balance key %q", key)
	}
	return prefix + "_" + suffix, nil
}

// setList builds "col = $n" fragments with positional args.
type setList struct {
	clauses []string
	args    []any
}

func (s *setList) add(column string, value any) {
	s.args = append(s.args, value)
	s.clauses = append(s.clauses, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func (s *setList) arg(value any) string {
	s.args = append(s.args, value)
	return fmt.Sprintf("$%d", len(s.args))
}
