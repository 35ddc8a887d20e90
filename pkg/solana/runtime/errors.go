package runtime

import (
	"github.com/pkg/errors"

	"github.com/code-payments/token-wrapper/pkg/solana"
)

// Programs return these errors, or a solana.CustomError, to fail an
// instruction. The message of each is its solana.InstructionErrorKey so that
// ledger errors read the same as the ones returned by an RPC node.
var (
	ErrGenericError                = newInstructionError(solana.InstructionErrorGenericError)
	ErrInvalidArgument             = newInstructionError(solana.InstructionErrorInvalidArgument)
	ErrInvalidInstructionData      = newInstructionError(solana.InstructionErrorInvalidInstructionData)
	ErrInvalidAccountData          = newInstructionError(solana.InstructionErrorInvalidAccountData)
	ErrAccountDataTooSmall         = newInstructionError(solana.InstructionErrorAccountDataTooSmall)
	ErrInsufficientFunds           = newInstructionError(solana.InstructionErrorInsufficientFunds)
	ErrIncorrectProgramID          = newInstructionError(solana.InstructionErrorIncorrectProgramID)
	ErrMissingRequiredSignature    = newInstructionError(solana.InstructionErrorMissingRequiredSignature)
	ErrAccountAlreadyInitialized   = newInstructionError(solana.InstructionErrorAccountAlreadyInitialized)
	ErrUninitializedAccount        = newInstructionError(solana.InstructionErrorUninitializedAccount)
	ErrUnbalancedInstruction       = newInstructionError(solana.InstructionErrorUnbalancedInstruction)
	ErrModifiedProgramID           = newInstructionError(solana.InstructionErrorModifiedProgramID)
	ErrExternalAccountLamportSpend = newInstructionError(solana.InstructionErrorExternalAccountLamportSpend)
	ErrExternalAccountDataModified = newInstructionError(solana.InstructionErrorExternalAccountDataModified)
	ErrReadonlyLamportChange       = newInstructionError(solana.InstructionErrorReadonlyLamportChange)
	ErrReadonlyDataModified        = newInstructionError(solana.InstructionErrorReadonlyDataModified)
	ErrNotEnoughAccountKeys        = newInstructionError(solana.InstructionErrorNotEnoughAccountKeys)
	ErrAccountDataSizeChanged      = newInstructionError(solana.InstructionErrorAccountDataSizeChanged)
	ErrAccountNotExecutable        = newInstructionError(solana.InstructionErrorAccountNotExecutable)
	ErrUnsupportedProgramID        = newInstructionError(solana.InstructionErrorUnsupportedProgramID)
	ErrCallDepth                   = newInstructionError(solana.InstructionErrorCallDepth)
	ErrMissingAccount              = newInstructionError(solana.InstructionErrorMissingAccount)
	ErrReentrancyNotAllowed        = newInstructionError(solana.InstructionErrorReentrancyNotAllowed)
	ErrPrivilegeEscalation         = newInstructionError(solana.InstructionErrorPrivilegeEscalation)
	ErrMaxSeedLengthExceeded       = newInstructionError(solana.InstructionErrorMaxSeedLengthExceeded)
	ErrInvalidSeeds                = newInstructionError(solana.InstructionErrorInvalidSeeds)
	ErrIllegalOwner                = newInstructionError(solana.InstructionErrorIllegalOwner)
)

var knownErrors = map[string]error{}

func newInstructionError(key solana.InstructionErrorKey) error {
	err := errors.New(string(key))
	knownErrors[string(key)] = err
	return err
}

// Normalize unwraps err to the value a ledger reports for a failed
// instruction: a solana.CustomError or one of the errors above. Anything
// else becomes ErrGenericError.
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	cause := errors.Cause(err)
	if code, ok := cause.(solana.CustomError); ok {
		return code
	}
	if known, ok := knownErrors[cause.Error()]; ok {
		return known
	}
	return ErrGenericError
}

// Is reports whether err is the instruction error identified by key.
func Is(err error, key solana.InstructionErrorKey) bool {
	if err == nil {
		return false
	}

	switch t := errors.Cause(err).(type) {
	case solana.TransactionError:
		return t.InstructionError() != nil && Is(t.InstructionError(), key)
	case *solana.TransactionError:
		return t.InstructionError() != nil && Is(t.InstructionError(), key)
	case solana.InstructionError:
		return t.ErrorKey() == key
	case *solana.InstructionError:
		return t.ErrorKey() == key
	default:
		return errors.Cause(err).Error() == string(key)
	}
}
