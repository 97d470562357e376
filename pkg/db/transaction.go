package db

import "context"

// TransactionFunc runs inside a transaction. The ctx it receives carries the
// transaction and must be used for every store call that should join it.
type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}
