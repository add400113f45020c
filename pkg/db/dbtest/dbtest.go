// Package dbtest provides in-memory stand-ins for the pgx pool and
// transaction so transactional code can be unit tested without Postgres.
package dbtest

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// FakePool hands out FakeTx values and records them. ExecFunc, when set, is
// installed on every transaction it creates.
type FakePool struct {
	BeginErr error
	ExecFunc func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Txs      []*FakeTx
}

func (p *FakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	if p.BeginErr != nil {
		return nil, p.BeginErr
	}

	tx := &FakeTx{ExecFunc: p.ExecFunc}
	p.Txs = append(p.Txs, tx)

	return tx, nil
}

// FakeTx implements pgx.Tx. Exec calls are delegated to ExecFunc when set;
// Commit and Rollback outcomes are recorded so tests can assert atomicity.
type FakeTx struct {
	ExecFunc   func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CommitErr  error
	Committed  bool
	RolledBack bool
	ExecCalls  []string
}

func (t *FakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return t, nil
}

func (t *FakeTx) Commit(ctx context.Context) error {
	if t.CommitErr != nil {
		return t.CommitErr
	}

	t.Committed = true
	return nil
}

func (t *FakeTx) Rollback(ctx context.Context) error {
	if t.Committed {
		return pgx.ErrTxClosed
	}

	t.RolledBack = true
	return nil
}

func (t *FakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.ExecCalls = append(t.ExecCalls, sql)

	if t.ExecFunc != nil {
		return t.ExecFunc(ctx, sql, args...)
	}

	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *FakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("dbtest: Query not supported")
}

func (t *FakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{}
}

func (t *FakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("dbtest: CopyFrom not supported")
}

func (t *FakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (t *FakeTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (t *FakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("dbtest: Prepare not supported")
}

func (t *FakeTx) Conn() *pgx.Conn {
	return nil
}

type errRow struct{}

func (errRow) Scan(dest ...any) error {
	return errors.New("dbtest: QueryRow not supported")
}
