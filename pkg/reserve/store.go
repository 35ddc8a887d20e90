package reserve

import (
	"context"
	"errors"

	"github.com/code-payments/token-wrapper/pkg/database/query"
)

var (
	ErrNotFound = errors.New("snapshot not found")
	ErrExists   = errors.New("snapshot for mint already exists in run")
)

type Store interface {
	// Put saves a snapshot. The Id is assigned by the store.
	//
	// ErrExists is returned if the run already has a snapshot for the
	// underlying mint.
	Put(ctx context.Context, snapshot *Snapshot) error

	// GetLatest returns the most recent snapshot of the vault for an
	// underlying mint.
	//
	// ErrNotFound is returned if the mint was never audited.
	GetLatest(ctx context.Context, underlyingMint string) (*Snapshot, error)

	// GetAllByMint returns up to limit snapshots for an underlying mint,
	// ordered by creation time.
	//
	// ErrNotFound is returned if the mint was never audited.
	GetAllByMint(ctx context.Context, underlyingMint string, ordering query.Ordering, limit uint64) ([]*Snapshot, error)

	// GetByRun returns every snapshot taken in a run, ordered by underlying
	// mint.
	//
	// ErrNotFound is returned if the run doesn't exist.
	GetByRun(ctx context.Context, runId string) ([]*Snapshot, error)
}
