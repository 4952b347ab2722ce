package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
)

const (
	txAttempts = 5
	txTimeout  = 15 * time.Second
)

// RunTransaction executes fn inside a Firestore transaction with a
// bounded number of retries and an overall deadline.
func RunTransaction(ctx context.Context, client *firestore.Client, fn func(ctx context.Context, tx *firestore.Transaction) error) error {
	if client == nil {
		return errors.New("firestore: client is required")
	}
	if fn == nil {
		return errors.New("firestore: transaction func is required")
	}

	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	err := client.RunTransaction(ctx, func(txCtx context.Context, tx *firestore.Transaction) error {
		return fn(txCtx, tx)
	}, firestore.MaxAttempts(txAttempts))
	if err != nil {
		return WrapError("transaction.run", err)
	}
	return nil
}
