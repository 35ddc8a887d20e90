package system

import (
	"crypto/ed25519"
	"math"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/token-wrapper/pkg/solana/binary"
)

// https://explorer.solana.com/address/11111111111111111111111111111111
var SystemAccount ed25519.PublicKey

// RentSysVar points to the system variable "Rent"
//
// Source: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/sysvar/rent.rs#L11
var RentSysVar ed25519.PublicKey

// SysvarOwner owns every sysvar account.
var SysvarOwner ed25519.PublicKey

func init() {
	var err error

	RentSysVar, err = base58.Decode("SysvarRent111111111111111111111111111111111")
	if err != nil {
		panic(err)
	}

	SysvarOwner, err = base58.Decode("Sysvar1111111111111111111111111111111111111")
	if err != nil {
		panic(err)
	}

	SystemAccount, err = base58.Decode("11111111111111111111111111111111")
	if err != nil {
		panic(err)
	}
}

const (
	RentSize = 8 + 8 + 1

	// AccountStorageOverhead is charged on top of the data length of every
	// account when computing rent.
	AccountStorageOverhead = 128
)

var ErrInvalidRentSize = errors.New("invalid rent sysvar size")

// Rent is the layout of the rent sysvar.
//
// Source: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/rent.rs#L11
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
	BurnPercent         uint8
}

// DefaultRent matches the cluster defaults.
var DefaultRent = Rent{
	LamportsPerByteYear: 3480,
	ExemptionThreshold:  2.0,
	BurnPercent:         50,
}

// MinimumBalance is the lamport balance an account of dataLen bytes needs to
// be exempt from rent collection.
func (r Rent) MinimumBalance(dataLen uint64) uint64 {
	bytes := AccountStorageOverhead + dataLen
	return uint64(math.Floor(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold))
}

// IsExempt reports whether lamports cover the exemption minimum.
func (r Rent) IsExempt(lamports, dataLen uint64) bool {
	return lamports >= r.MinimumBalance(dataLen)
}

func (r Rent) Marshal() []byte {
	b := make([]byte, RentSize)

	var offset int
	binary.PutUint64(b[offset:], r.LamportsPerByteYear, &offset)
	binary.PutFloat64(b[offset:], r.ExemptionThreshold, &offset)
	binary.PutUint8(b[offset:], r.BurnPercent, &offset)

	return b
}

func (r *Rent) Unmarshal(data []byte) error {
	if len(data) != RentSize {
		return ErrInvalidRentSize
	}

	var offset int
	binary.GetUint64(data[offset:], &r.LamportsPerByteYear, &offset)
	binary.GetFloat64(data[offset:], &r.ExemptionThreshold, &offset)
	binary.GetUint8(data[offset:], &r.BurnPercent, &offset)

	return nil
}
