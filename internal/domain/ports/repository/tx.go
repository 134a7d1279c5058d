package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying transaction handle via `tx`.
//
// Repositories accept the same handle and detect a transactional context
// implementation-side, so use-case interfaces stay free of storage types.
// The concrete type of `tx` is infra-defined (pgx.Tx for Postgres), and
// repositories gracefully accept a nil handle for the non-transactional path.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
