package repository

import "context"

// TxManager runs fn as a single commit/rollback unit. Repositories called with
// the ctx handed to fn take part in the same transaction; any error returned by
// fn rolls everything back.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
