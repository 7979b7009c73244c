package service

import "context"

// TransactionManager runs a function inside one database transaction.
// The checkout service uses it so an attempt row and any sibling writes
// commit or roll back together; fn receives a context carrying the open
// transaction for the repositories to pick up.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
