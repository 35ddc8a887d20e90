package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/token-wrapper/pkg/database/query"
	"github.com/code-payments/token-wrapper/pkg/reserve"

	pg "github.com/code-payments/token-wrapper/pkg/database/postgres"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres backed reserve.Store
func New(db *sql.DB) reserve.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements reserve.Store.Put
func (s *store) Put(ctx context.Context, snapshot *reserve.Snapshot) error {
	m, err := toModel(snapshot)
	if err != nil {
		return err
	}

	err = pg.ExecuteInTx(ctx, s.db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		return m.txPut(ctx, tx)
	})
	if err != nil {
		return err
	}

	fromModel(m).CopyTo(snapshot)
	return nil
}

// GetLatest implements reserve.Store.GetLatest
func (s *store) GetLatest(ctx context.Context, underlyingMint string) (*reserve.Snapshot, error) {
	var m *model
	err := pg.ExecuteRetryable(func() (err error) {
		m, err = dbGetLatest(ctx, s.db, underlyingMint)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fromModel(m), nil
}

// GetAllByMint implements reserve.Store.GetAllByMint
func (s *store) GetAllByMint(ctx context.Context, underlyingMint string, ordering query.Ordering, limit uint64) ([]*reserve.Snapshot, error) {
	var models []*model
	err := pg.ExecuteRetryable(func() (err error) {
		models, err = dbGetAllByMint(ctx, s.db, underlyingMint, ordering, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// GetByRun implements reserve.Store.GetByRun
func (s *store) GetByRun(ctx context.Context, runId string) ([]*reserve.Snapshot, error) {
	var models []*model
	err := pg.ExecuteRetryable(func() (err error) {
		models, err = dbGetByRun(ctx, s.db, runId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

func fromModels(models []*model) []*reserve.Snapshot {
	res := make([]*reserve.Snapshot, len(models))
	for i, m := range models {
		res[i] = fromModel(m)
	}
	return res
}
