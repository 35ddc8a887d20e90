// Package token2022 covers the parts of the Token-2022 program that differ
// from the SPL Token program: the extension account layout, the transfer fee
// and immutable owner extensions, and the additional error codes. The base
// instruction set is shared with package token.
package token2022

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/token"
)

// ProgramKey is the address of the Token-2022 program.
//
// Current key: TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 238, 117, 143, 222, 24, 66, 93, 188, 228, 108, 205, 218, 182, 26, 252, 77, 131, 185, 13, 39, 254, 189, 249, 40, 216, 161, 139, 252}

// Instructions builds base token instructions addressed to Token-2022.
var Instructions = token.NewInstructionBuilder(ProgramKey)

const (
	CommandTransferFeeExtension token.Command = 26
)

type TransferFeeCommand byte

const (
	TransferFeeCommandInitializeTransferFeeConfig TransferFeeCommand = iota
)

// Token-2022 shares token error codes 0 through 18 and extends the list.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/token-2022-v1.0.0/token/program-2022/src/error.rs
const (
	ErrorNonNativeNotSupported solana.CustomError = iota + 19
	ErrorExtensionTypeMismatch
	ErrorExtensionBaseMismatch
	ErrorExtensionAlreadyInitialized
)

const (
	ErrorTransferFeeExceedsMaximum solana.CustomError = iota + 30
	ErrorMintRequiredForTransfer
	ErrorFeeMismatch
	ErrorFeeParametersMismatch
	ErrorImmutableOwner
)

var ErrInvalidExtensionInstructionData = errors.New("invalid transfer fee instruction data")

// InitializeTransferFeeConfig must run on an uninitialized mint whose account
// was sized for the TransferFeeConfig extension.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/token-2022-v1.0.0/token/program-2022/src/extension/transfer_fee/instruction.rs#L32
func InitializeTransferFeeConfig(mint, configAuthority, withdrawAuthority ed25519.PublicKey, basisPoints uint16, maximumFee uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint to initialize.
	data := []byte{byte(CommandTransferFeeExtension), byte(TransferFeeCommandInitializeTransferFeeConfig)}
	data = appendOptionalKey(data, configAuthority)
	data = appendOptionalKey(data, withdrawAuthority)
	data = binary.LittleEndian.AppendUint16(data, basisPoints)
	data = binary.LittleEndian.AppendUint64(data, maximumFee)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
	)
}

type InitializeTransferFeeConfigArgs struct {
	ConfigAuthority   ed25519.PublicKey
	WithdrawAuthority ed25519.PublicKey
	BasisPoints       uint16
	MaximumFee        uint64
}

// DecodeTransferFeeInstruction parses the payload following the
// CommandTransferFeeExtension byte.
func DecodeTransferFeeInstruction(payload []byte) (TransferFeeCommand, *InitializeTransferFeeConfigArgs, error) {
	if len(payload) == 0 {
		return 0, nil, ErrInvalidExtensionInstructionData
	}

	command := TransferFeeCommand(payload[0])
	if command != TransferFeeCommandInitializeTransferFeeConfig {
		return command, nil, ErrInvalidExtensionInstructionData
	}

	var args InitializeTransferFeeConfigArgs
	var ok bool

	rest := payload[1:]
	if args.ConfigAuthority, rest, ok = readOptionalKey(rest); !ok {
		return command, nil, ErrInvalidExtensionInstructionData
	}
	if args.WithdrawAuthority, rest, ok = readOptionalKey(rest); !ok {
		return command, nil, ErrInvalidExtensionInstructionData
	}
	if len(rest) < 2+8 {
		return command, nil, ErrInvalidExtensionInstructionData
	}
	args.BasisPoints = binary.LittleEndian.Uint16(rest)
	args.MaximumFee = binary.LittleEndian.Uint64(rest[2:])

	return command, &args, nil
}

func appendOptionalKey(data []byte, key ed25519.PublicKey) []byte {
	if len(key) == 0 {
		return append(data, 0)
	}
	data = append(data, 1)
	return append(data, key...)
}

func readOptionalKey(data []byte) (ed25519.PublicKey, []byte, bool) {
	if len(data) == 0 {
		return nil, nil, false
	}

	switch data[0] {
	case 0:
		return nil, data[1:], true
	case 1:
		if len(data) < 1+ed25519.PublicKeySize {
			return nil, nil, false
		}
		key := make(ed25519.PublicKey, ed25519.PublicKeySize)
		copy(key, data[1:])
		return key, data[1+ed25519.PublicKeySize:], true
	default:
		return nil, nil, false
	}
}
