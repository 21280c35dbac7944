package sheets

import (
	"context"

	"kakeibo/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	TransactionDeleter interface {
		Delete(ctx context.Context, id string) error
	}
)
