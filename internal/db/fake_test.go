package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mauv0809/symbol-loader/internal/models"
)

// fakeDB stages writes per transaction and publishes them on commit, so tests
// can check what a reader outside the transaction would see.
type fakeDB struct {
	committed [][]any
	beginErr  error
	truncErr  error
	// failInsert fails the n-th INSERT (1-based) with insertErr.
	failInsert int
	insertErr  error
	commitErr  error

	begins    int
	commits   int
	rollbacks int
	stmts     []string
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	f.begins++
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	staged := make([][]any, len(f.committed))
	copy(staged, f.committed)
	return &fakeTx{db: f, staged: staged}, nil
}

type fakeTx struct {
	pgx.Tx
	db      *fakeDB
	staged  [][]any
	inserts int
	done    bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.done {
		return pgconn.CommandTag{}, pgx.ErrTxClosed
	}
	t.db.stmts = append(t.db.stmts, sql)

	switch {
	case strings.HasPrefix(sql, "TRUNCATE"):
		if t.db.truncErr != nil {
			return pgconn.CommandTag{}, t.db.truncErr
		}
		t.staged = nil
		return pgconn.NewCommandTag("TRUNCATE TABLE"), nil
	case strings.HasPrefix(sql, "INSERT"):
		t.inserts++
		if t.inserts == t.db.failInsert {
			return pgconn.CommandTag{}, t.db.insertErr
		}
		n := len(models.Columns)
		if len(args)%n != 0 {
			return pgconn.CommandTag{}, fmt.Errorf("got %d args, not a multiple of %d", len(args), n)
		}
		for i := 0; i < len(args); i += n {
			t.staged = append(t.staged, args[i:i+n])
		}
		return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", len(args)/n)), nil
	}
	return pgconn.CommandTag{}, errors.New("unexpected statement: " + sql)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	if t.db.commitErr != nil {
		t.db.rollbacks++
		return t.db.commitErr
	}
	t.db.commits++
	t.db.committed = t.staged
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.rollbacks++
	return nil
}
