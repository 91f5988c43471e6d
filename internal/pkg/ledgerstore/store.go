package ledgerstore

import (
	"context"
	"errors"

	"github.com/inktoons/inktoons/app/models"
)

// ErrNotFound reports that no remote snapshot exists for the user.
var ErrNotFound = errors.New("ledgerstore: snapshot not found")

// RemoteStore mirrors per-user ledger snapshots outside the local database.
// Get returns ErrNotFound for absent users. Put overwrites unconditionally;
// the ledger service resolves conflicts by mutation timestamp before writing.
type RemoteStore interface {
	Get(ctx context.Context, userID uint) (*models.LedgerState, error)
	Put(ctx context.Context, state *models.LedgerState) error
}
