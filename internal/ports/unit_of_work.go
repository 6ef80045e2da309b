package ports

import "context"

// Tx is the store's transaction handle; the persistence adapter owns the concrete type.
type Tx any

// UnitOfWork runs fn atomically. A non-nil return rolls back.
// Nested calls join the outer transaction.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns nil outside WithTx.
func TxFromContext(ctx context.Context) Tx {
	if ctx == nil {
		return nil
	}
	return ctx.Value(txKey{})
}
