package reserve

import (
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Status is the collateralization state of a vault at the time of an audit.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusCollateralized
	StatusOverCollateralized
	StatusUnderCollateralized
)

func (s Status) String() string {
	switch s {
	case StatusCollateralized:
		return "collateralized"
	case StatusOverCollateralized:
		return "over_collateralized"
	case StatusUnderCollateralized:
		return "under_collateralized"
	default:
		return "unknown"
	}
}

// StatusFor compares the wrapper supply against the reserve balance. Tokens
// sent to the reserve outside of a deposit leave it overcollateralized.
func StatusFor(wrapperSupply, reserveBalance uint64) Status {
	switch {
	case wrapperSupply == reserveBalance:
		return StatusCollateralized
	case reserveBalance > wrapperSupply:
		return StatusOverCollateralized
	default:
		return StatusUnderCollateralized
	}
}

// Snapshot is the result of auditing a single vault.
type Snapshot struct {
	Id uint64

	// RunId groups the snapshots taken within one pass of the auditor.
	RunId string

	UnderlyingMint      string
	WrapperMint         string
	ReserveTokenAccount string
	Decimals            uint8

	WrapperSupply  uint64
	ReserveBalance uint64
	Status         Status

	Slot      uint64
	CreatedAt time.Time
}

func (s *Snapshot) Validate() error {
	if _, err := uuid.Parse(s.RunId); err != nil {
		return errors.Wrap(err, "run id is invalid")
	}

	if len(s.UnderlyingMint) == 0 {
		return errors.New("underlying mint is required")
	}

	if len(s.WrapperMint) == 0 {
		return errors.New("wrapper mint is required")
	}

	if len(s.ReserveTokenAccount) == 0 {
		return errors.New("reserve token account is required")
	}

	if s.Status != StatusFor(s.WrapperSupply, s.ReserveBalance) {
		return errors.Errorf("status %s doesn't match supply %d and reserve %d", s.Status, s.WrapperSupply, s.ReserveBalance)
	}

	if s.CreatedAt.IsZero() {
		return errors.New("creation timestamp is required")
	}

	return nil
}

// Surplus is the reserve balance in excess of the wrapper supply, in whole
// units of the underlying mint. It is negative when the vault is
// undercollateralized.
func (s *Snapshot) Surplus() decimal.Decimal {
	return s.ReserveQuantity().Sub(s.SupplyQuantity())
}

func (s *Snapshot) SupplyQuantity() decimal.Decimal {
	return toQuantity(s.WrapperSupply, s.Decimals)
}

func (s *Snapshot) ReserveQuantity() decimal.Decimal {
	return toQuantity(s.ReserveBalance, s.Decimals)
}

func (s *Snapshot) Clone() *Snapshot {
	return &Snapshot{
		Id: s.Id,

		RunId: s.RunId,

		UnderlyingMint:      s.UnderlyingMint,
		WrapperMint:         s.WrapperMint,
		ReserveTokenAccount: s.ReserveTokenAccount,
		Decimals:            s.Decimals,

		WrapperSupply:  s.WrapperSupply,
		ReserveBalance: s.ReserveBalance,
		Status:         s.Status,

		Slot:      s.Slot,
		CreatedAt: s.CreatedAt,
	}
}

func (s *Snapshot) CopyTo(dst *Snapshot) {
	dst.Id = s.Id

	dst.RunId = s.RunId

	dst.UnderlyingMint = s.UnderlyingMint
	dst.WrapperMint = s.WrapperMint
	dst.ReserveTokenAccount = s.ReserveTokenAccount
	dst.Decimals = s.Decimals

	dst.WrapperSupply = s.WrapperSupply
	dst.ReserveBalance = s.ReserveBalance
	dst.Status = s.Status

	dst.Slot = s.Slot
	dst.CreatedAt = s.CreatedAt
}

func toQuantity(quarks uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(quarks), -int32(decimals))
}
