package domain

import "context"

// TxManager runs fn inside a single atomic unit. Repositories called with the
// context passed to fn take part in the transaction. Nested calls join the
// outer transaction. If fn returns an error every write is discarded.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
