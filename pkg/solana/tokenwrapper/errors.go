package tokenwrapper

import (
	"github.com/pkg/errors"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
)

// Error codes returned by the wrapper program. They start past the range used
// by the token programs.
const (
	ErrorUnexpectedWrapperMint solana.CustomError = iota + 0x1770
	ErrorUnexpectedTokenProgram
	ErrorUnexpectedToken2022Program
	ErrorUnexpectedSystemProgram
	ErrorUnexpectedRent
	ErrorUnexpectedInitializedAccount
	ErrorExpectedInitializedAccount
	ErrorUnexpectedUserTokenAccountOwner
	ErrorUnexpectedReserveTokenAccountOwner
	ErrorUnexpectedReserveAuthority
	ErrorUnexpectedMintAuthority
	ErrorUnexpectedFreezeAuthority
	ErrorUnexpectedReserveTokenAccount
	ErrorInvalidTokenAccount
	ErrorInvalidTokenMint
	ErrorUnexpectedAssociatedTokenProgram
)

var errorNames = map[solana.CustomError]string{
	ErrorUnexpectedWrapperMint:              "UnexpectedWrapperMint",
	ErrorUnexpectedTokenProgram:             "UnexpectedTokenProgram",
	ErrorUnexpectedToken2022Program:         "UnexpectedToken2022Program",
	ErrorUnexpectedSystemProgram:            "UnexpectedSystemProgram",
	ErrorUnexpectedRent:                     "UnexpectedRent",
	ErrorUnexpectedInitializedAccount:       "UnexpectedInitializedAccount",
	ErrorExpectedInitializedAccount:         "ExpectedInitializedAccount",
	ErrorUnexpectedUserTokenAccountOwner:    "UnexpectedUserTokenAccountOwner",
	ErrorUnexpectedReserveTokenAccountOwner: "UnexpectedReserveTokenAccountOwner",
	ErrorUnexpectedReserveAuthority:         "UnexpectedReserveAuthority",
	ErrorUnexpectedMintAuthority:            "UnexpectedMintAuthority",
	ErrorUnexpectedFreezeAuthority:          "UnexpectedFreezeAuthority",
	ErrorUnexpectedReserveTokenAccount:      "UnexpectedReserveTokenAccount",
	ErrorInvalidTokenAccount:                "InvalidTokenAccount",
	ErrorInvalidTokenMint:                   "InvalidTokenMint",
	ErrorUnexpectedAssociatedTokenProgram:   "UnexpectedAssociatedTokenProgram",
}

// ErrorName returns the name of a wrapper error code, or an empty string if
// code is not one.
func ErrorName(code solana.CustomError) string {
	return errorNames[code]
}

type ErrorKind uint8

const (
	ErrorKindNone ErrorKind = iota
	ErrorKindAddressMismatch
	ErrorKindOwnershipMismatch
	ErrorKindLifecycleViolation
	ErrorKindAuthorityMissing
	ErrorKindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNone:
		return "none"
	case ErrorKindAddressMismatch:
		return "address_mismatch"
	case ErrorKindOwnershipMismatch:
		return "ownership_mismatch"
	case ErrorKindLifecycleViolation:
		return "lifecycle_violation"
	case ErrorKindAuthorityMissing:
		return "authority_missing"
	default:
		return "upstream"
	}
}

// KindOf classifies an error returned by the wrapper program. It accepts the
// bare error, an instruction error or a transaction error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	var ixErr *solana.InstructionError
	switch e := err.(type) {
	case *solana.TransactionError:
		ixErr = e.InstructionError()
	case solana.TransactionError:
		ixErr = e.InstructionError()
	case *solana.InstructionError:
		ixErr = e
	case solana.InstructionError:
		ixErr = &e
	case solana.CustomError:
		return kindOfCode(e)
	case *solana.CustomError:
		return kindOfCode(*e)
	default:
		if errors.Is(err, runtime.ErrMissingRequiredSignature) {
			return ErrorKindAuthorityMissing
		}
		return ErrorKindUpstream
	}

	if ixErr == nil {
		return ErrorKindUpstream
	}
	if ixErr.ErrorKey() == solana.InstructionErrorMissingRequiredSignature {
		return ErrorKindAuthorityMissing
	}
	if code := ixErr.CustomError(); code != nil {
		return kindOfCode(*code)
	}
	return ErrorKindUpstream
}

func kindOfCode(code solana.CustomError) ErrorKind {
	switch code {
	case ErrorUnexpectedWrapperMint,
		ErrorUnexpectedReserveAuthority,
		ErrorUnexpectedReserveTokenAccount,
		ErrorUnexpectedTokenProgram,
		ErrorUnexpectedToken2022Program,
		ErrorUnexpectedSystemProgram,
		ErrorUnexpectedAssociatedTokenProgram,
		ErrorUnexpectedRent:
		return ErrorKindAddressMismatch
	case ErrorUnexpectedUserTokenAccountOwner,
		ErrorUnexpectedReserveTokenAccountOwner,
		ErrorUnexpectedMintAuthority,
		ErrorUnexpectedFreezeAuthority,
		ErrorInvalidTokenAccount,
		ErrorInvalidTokenMint:
		return ErrorKindOwnershipMismatch
	case ErrorUnexpectedInitializedAccount,
		ErrorExpectedInitializedAccount:
		return ErrorKindLifecycleViolation
	default:
		return ErrorKindUpstream
	}
}
