package token2022

import (
	"crypto/ed25519"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/code-payments/token-wrapper/pkg/solana/binary"
)

const (
	TransferFeeSize       = 8 + 8 + 2
	TransferFeeConfigSize = 2*ed25519.PublicKeySize + 8 + 2*TransferFeeSize
	TransferFeeAmountSize = 8

	// MaxFeeBasisPoints is 100%.
	MaxFeeBasisPoints = 10_000
)

var ErrInvalidTransferFeeData = errors.New("invalid transfer fee extension data")

// TransferFee is a fee schedule that takes effect at Epoch.
type TransferFee struct {
	Epoch       uint64
	MaximumFee  uint64
	BasisPoints uint16
}

// Fee is floor(amount * BasisPoints / 10000), capped at MaximumFee.
func (f TransferFee) Fee(amount uint64) uint64 {
	if f.BasisPoints == 0 || amount == 0 {
		return 0
	}

	hi, lo := bits.Mul64(amount, uint64(f.BasisPoints))
	if hi >= MaxFeeBasisPoints {
		return f.MaximumFee
	}

	fee, _ := bits.Div64(hi, lo, MaxFeeBasisPoints)
	if fee > f.MaximumFee {
		return f.MaximumFee
	}
	return fee
}

// TransferFeeConfig is the mint side of the transfer fee extension.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/token-2022-v1.0.0/token/program-2022/src/extension/transfer_fee/mod.rs#L72
type TransferFeeConfig struct {
	// Optional authority to set the fee.
	ConfigAuthority ed25519.PublicKey
	// Optional authority that can withdraw withheld fees.
	WithdrawWithheldAuthority ed25519.PublicKey
	// Fees harvested to the mint.
	WithheldAmount   uint64
	OlderTransferFee TransferFee
	NewerTransferFee TransferFee
}

// GetEpochFee returns the schedule in effect during epoch.
func (c *TransferFeeConfig) GetEpochFee(epoch uint64) TransferFee {
	if epoch >= c.NewerTransferFee.Epoch {
		return c.NewerTransferFee
	}
	return c.OlderTransferFee
}

// Fee returns the fee withheld from a transfer of amount during epoch.
func (c *TransferFeeConfig) Fee(epoch, amount uint64) uint64 {
	return c.GetEpochFee(epoch).Fee(amount)
}

func (c *TransferFeeConfig) Marshal() []byte {
	b := make([]byte, TransferFeeConfigSize)

	var offset int
	putNonZeroKey(b[offset:], c.ConfigAuthority, &offset)
	putNonZeroKey(b[offset:], c.WithdrawWithheldAuthority, &offset)
	binary.PutUint64(b[offset:], c.WithheldAmount, &offset)
	putTransferFee(b[offset:], c.OlderTransferFee, &offset)
	putTransferFee(b[offset:], c.NewerTransferFee, &offset)

	return b
}

func (c *TransferFeeConfig) Unmarshal(b []byte) error {
	if len(b) != TransferFeeConfigSize {
		return ErrInvalidTransferFeeData
	}

	var offset int
	getNonZeroKey(b[offset:], &c.ConfigAuthority, &offset)
	getNonZeroKey(b[offset:], &c.WithdrawWithheldAuthority, &offset)
	binary.GetUint64(b[offset:], &c.WithheldAmount, &offset)
	getTransferFee(b[offset:], &c.OlderTransferFee, &offset)
	getTransferFee(b[offset:], &c.NewerTransferFee, &offset)

	return nil
}

// TransferFeeAmount is the account side of the transfer fee extension.
type TransferFeeAmount struct {
	// Fees withheld on transfers into this account.
	WithheldAmount uint64
}

func (a *TransferFeeAmount) Marshal() []byte {
	b := make([]byte, TransferFeeAmountSize)

	var offset int
	binary.PutUint64(b, a.WithheldAmount, &offset)
	return b
}

func (a *TransferFeeAmount) Unmarshal(b []byte) error {
	if len(b) != TransferFeeAmountSize {
		return ErrInvalidTransferFeeData
	}

	var offset int
	binary.GetUint64(b, &a.WithheldAmount, &offset)
	return nil
}

func putTransferFee(dst []byte, fee TransferFee, offset *int) {
	var local int
	binary.PutUint64(dst[local:], fee.Epoch, &local)
	binary.PutUint64(dst[local:], fee.MaximumFee, &local)
	binary.PutUint16(dst[local:], fee.BasisPoints, &local)
	*offset += local
}

func getTransferFee(src []byte, fee *TransferFee, offset *int) {
	var local int
	binary.GetUint64(src[local:], &fee.Epoch, &local)
	binary.GetUint64(src[local:], &fee.MaximumFee, &local)
	binary.GetUint16(src[local:], &fee.BasisPoints, &local)
	*offset += local
}

// Extension state encodes an absent key as 32 zero bytes rather than with an
// option tag.
func putNonZeroKey(dst []byte, key ed25519.PublicKey, offset *int) {
	copy(dst, key)
	*offset += ed25519.PublicKeySize
}

func getNonZeroKey(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = nil
	for _, v := range src[:ed25519.PublicKeySize] {
		if v != 0 {
			*dst = make(ed25519.PublicKey, ed25519.PublicKeySize)
			copy(*dst, src)
			break
		}
	}
	*offset += ed25519.PublicKeySize
}
