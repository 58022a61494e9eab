package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestWithTx_Commits(t *testing.T) {
	f := &fakeDB{}
	err := WithTx(context.Background(), f, func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(), "TRUNCATE TABLE t")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.commits)
	require.Equal(t, 0, f.rollbacks)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	f := &fakeDB{committed: [][]any{{"OLD"}}}
	boom := errors.New("boom")

	err := WithTx(context.Background(), f, func(tx pgx.Tx) error {
		if _, err := tx.Exec(context.Background(), "TRUNCATE TABLE t"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, f.commits)
	require.Equal(t, 1, f.rollbacks)
	require.Equal(t, [][]any{{"OLD"}}, f.committed)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	f := &fakeDB{}
	require.Panics(t, func() {
		_ = WithTx(context.Background(), f, func(tx pgx.Tx) error {
			panic("bad")
		})
	})
	require.Equal(t, 1, f.rollbacks)
	require.Equal(t, 0, f.commits)
}

func TestWithTx_BeginAndCommitErrors(t *testing.T) {
	f := &fakeDB{beginErr: errors.New("no connection")}
	called := false
	err := WithTx(context.Background(), f, func(tx pgx.Tx) error {
		called = true
		return nil
	})
	require.ErrorContains(t, err, "beginning transaction")
	require.False(t, called)

	f = &fakeDB{commitErr: errors.New("serialization failure")}
	err = WithTx(context.Background(), f, func(tx pgx.Tx) error { return nil })
	require.ErrorContains(t, err, "committing transaction: serialization failure")
	require.Equal(t, 0, f.commits)
}
