// Package reserve audits that every wrapper token in circulation is backed by
// an underlying token held in its vault's reserve.
package reserve

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/token-wrapper/pkg/cache"
	"github.com/code-payments/token-wrapper/pkg/metrics"
	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/token"
	"github.com/code-payments/token-wrapper/pkg/solana/token2022"
	"github.com/code-payments/token-wrapper/pkg/solana/tokenwrapper"
)

const (
	metricsStructName = "reserve.auditor"

	// Each cached entry holds the derived addresses of one vault
	maxCachedVaults = 1_000
)

// ErrVaultNotFound indicates the vault for an underlying mint hasn't been
// initialized.
var ErrVaultNotFound = errors.New("vault not found")

// AccountReader is the subset of solana.Client an audit reads through. It is
// satisfied by both the RPC client and the in-memory ledger.
// The wrapper mint and the reserve are read in one call so the supply and the
// balance are from the same slot.
type AccountReader interface {
	GetMultipleAccounts([]ed25519.PublicKey, solana.Commitment) (uint64, []*solana.AccountInfo, error)
}

// Auditor compares the supply of a wrapper mint against the balance of the
// reserve backing it.
type Auditor struct {
	log        *logrus.Entry
	reader     AccountReader
	program    ed25519.PublicKey
	commitment solana.Commitment

	vaults cache.Cache
}

// NewAuditor returns an Auditor for vaults of the wrapper program deployed at
// program. A nil program uses tokenwrapper.PROGRAM_ID.
func NewAuditor(reader AccountReader, program ed25519.PublicKey) *Auditor {
	if program == nil {
		program = tokenwrapper.PROGRAM_ID
	}

	return &Auditor{
		log:        logrus.StandardLogger().WithField("type", "reserve/auditor"),
		reader:     reader,
		program:    program,
		commitment: solana.CommitmentFinalized,
		vaults:     cache.NewCache(maxCachedVaults),
	}
}

// Audit snapshots the vault of underlyingMint. The returned snapshot has no
// RunId.
func (a *Auditor) Audit(ctx context.Context, underlyingMint ed25519.PublicKey) (*Snapshot, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Audit")
	defer tracer.End()

	tracer.AddAttribute("underlying_mint", base58.Encode(underlyingMint))

	snapshot, err := a.audit(ctx, underlyingMint)
	switch err {
	case nil:
		tracer.AddAttribute("status", snapshot.Status.String())
	case ErrVaultNotFound:
	default:
		tracer.OnError(err)
	}
	return snapshot, err
}

func (a *Auditor) audit(ctx context.Context, underlyingMint ed25519.PublicKey) (*Snapshot, error) {
	log := a.log.WithField("underlying_mint", base58.Encode(underlyingMint))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addresses, err := a.getVaultAddresses(underlyingMint)
	if err != nil {
		return nil, err
	}

	slot, infos, err := a.reader.GetMultipleAccounts(
		[]ed25519.PublicKey{addresses.WrapperMint, addresses.ReserveTokenAccount},
		a.commitment,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get vault accounts")
	}
	if len(infos) != 2 {
		return nil, errors.Errorf("expected 2 vault accounts, got %d", len(infos))
	}
	if infos[0] == nil || infos[1] == nil {
		return nil, ErrVaultNotFound
	}

	wrapperMint, err := token.ParseMint(*infos[0], token.ProgramKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wrapper mint")
	}

	reserve, err := token.ParseAccount(*infos[1], underlyingMint, token2022.ProgramKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid reserve token account")
	}

	snapshot := &Snapshot{
		UnderlyingMint:      base58.Encode(underlyingMint),
		WrapperMint:         base58.Encode(addresses.WrapperMint),
		ReserveTokenAccount: base58.Encode(addresses.ReserveTokenAccount),
		Decimals:            wrapperMint.Decimals,

		WrapperSupply:  wrapperMint.Supply,
		ReserveBalance: reserve.Amount,
		Status:         StatusFor(wrapperMint.Supply, reserve.Amount),

		Slot:      slot,
		CreatedAt: time.Now(),
	}

	log.WithFields(logrus.Fields{
		"slot":    slot,
		"supply":  snapshot.SupplyQuantity().String(),
		"reserve": snapshot.ReserveQuantity().String(),
		"status":  snapshot.Status.String(),
	}).Debug("vault audited")

	return snapshot, nil
}

// getVaultAddresses derives the vault of underlyingMint, reusing addresses
// derived for earlier audits.
func (a *Auditor) getVaultAddresses(underlyingMint ed25519.PublicKey) (*tokenwrapper.VaultAddresses, error) {
	key := string(underlyingMint)
	if cached, ok := a.vaults.Retrieve(key); ok {
		return cached.(*tokenwrapper.VaultAddresses), nil
	}

	addresses, err := tokenwrapper.GetVaultAddresses(underlyingMint, a.program)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive vault addresses")
	}

	// Concurrent audits of one mint may both derive it
	if err := a.vaults.Insert(key, addresses, 1); err != nil && err != cache.ErrExists {
		return nil, err
	}

	return addresses, nil
}
