package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	q "github.com/code-payments/token-wrapper/pkg/database/query"
	"github.com/code-payments/token-wrapper/pkg/reserve"

	pgutil "github.com/code-payments/token-wrapper/pkg/database/postgres"
)

const (
	tableName = "tokenwrapper__core_reservesnapshot"
)

type model struct {
	Id    sql.NullInt64 `db:"id"`
	RunId string        `db:"run_id"`

	UnderlyingMint      string `db:"underlying_mint"`
	WrapperMint         string `db:"wrapper_mint"`
	ReserveTokenAccount string `db:"reserve_token_account"`
	Decimals            uint   `db:"decimals"`

	WrapperSupply  int64 `db:"wrapper_supply"`
	ReserveBalance int64 `db:"reserve_balance"`
	Status         uint  `db:"status"`

	Slot      int64     `db:"slot"`
	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *reserve.Snapshot) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Id:    sql.NullInt64{Int64: int64(obj.Id), Valid: obj.Id > 0},
		RunId: obj.RunId,

		UnderlyingMint:      obj.UnderlyingMint,
		WrapperMint:         obj.WrapperMint,
		ReserveTokenAccount: obj.ReserveTokenAccount,
		Decimals:            uint(obj.Decimals),

		WrapperSupply:  int64(obj.WrapperSupply),
		ReserveBalance: int64(obj.ReserveBalance),
		Status:         uint(obj.Status),

		Slot:      int64(obj.Slot),
		CreatedAt: obj.CreatedAt.UTC(),
	}, nil
}

func fromModel(obj *model) *reserve.Snapshot {
	return &reserve.Snapshot{
		Id:    uint64(obj.Id.Int64),
		RunId: obj.RunId,

		UnderlyingMint:      obj.UnderlyingMint,
		WrapperMint:         obj.WrapperMint,
		ReserveTokenAccount: obj.ReserveTokenAccount,
		Decimals:            uint8(obj.Decimals),

		WrapperSupply:  uint64(obj.WrapperSupply),
		ReserveBalance: uint64(obj.ReserveBalance),
		Status:         reserve.Status(obj.Status),

		Slot:      uint64(obj.Slot),
		CreatedAt: obj.CreatedAt.UTC(),
	}
}

func (m *model) txPut(ctx context.Context, tx *sqlx.Tx) error {
	query := `INSERT INTO ` + tableName + `
		(run_id, underlying_mint, wrapper_mint, reserve_token_account, decimals, wrapper_supply, reserve_balance, status, slot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, run_id, underlying_mint, wrapper_mint, reserve_token_account, decimals, wrapper_supply, reserve_balance, status, slot, created_at`

	err := tx.QueryRowxContext(
		ctx,
		query,
		m.RunId,
		m.UnderlyingMint,
		m.WrapperMint,
		m.ReserveTokenAccount,
		m.Decimals,
		m.WrapperSupply,
		m.ReserveBalance,
		m.Status,
		m.Slot,
		m.CreatedAt,
	).StructScan(m)

	return pgutil.CheckUniqueViolation(err, reserve.ErrExists)
}

func dbGetLatest(ctx context.Context, db *sqlx.DB, underlyingMint string) (*model, error) {
	res := &model{}

	query := `SELECT id, run_id, underlying_mint, wrapper_mint, reserve_token_account, decimals, wrapper_supply, reserve_balance, status, slot, created_at FROM ` + tableName + `
		WHERE underlying_mint = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	err := db.GetContext(ctx, res, query, underlyingMint)
	return res, pgutil.CheckNoRows(err, reserve.ErrNotFound)
}

func dbGetAllByMint(ctx context.Context, db *sqlx.DB, underlyingMint string, ordering q.Ordering, limit uint64) ([]*model, error) {
	res := []*model{}

	direction := ordering.SQLOrDefault()
	query := `SELECT id, run_id, underlying_mint, wrapper_mint, reserve_token_account, decimals, wrapper_supply, reserve_balance, status, slot, created_at FROM ` + tableName + `
		WHERE underlying_mint = $1
		ORDER BY created_at ` + direction + `, id ` + direction

	var err error
	if limit > 0 {
		err = db.SelectContext(ctx, &res, query+` LIMIT $2`, underlyingMint, int64(limit))
	} else {
		err = db.SelectContext(ctx, &res, query, underlyingMint)
	}
	if err != nil {
		return nil, pgutil.CheckNoRows(err, reserve.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, reserve.ErrNotFound
	}
	return res, nil
}

func dbGetByRun(ctx context.Context, db *sqlx.DB, runId string) ([]*model, error) {
	res := []*model{}

	query := `SELECT id, run_id, underlying_mint, wrapper_mint, reserve_token_account, decimals, wrapper_supply, reserve_balance, status, slot, created_at FROM ` + tableName + `
		WHERE run_id = $1
		ORDER BY underlying_mint ASC`

	err := db.SelectContext(ctx, &res, query, runId)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, reserve.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, reserve.ErrNotFound
	}
	return res, nil
}
