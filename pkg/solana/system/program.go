package system

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/token-wrapper/pkg/solana"
)

// ProgramKey is the system program, which is the all zero key.
var ProgramKey [32]byte

type Command uint32

const (
	CommandCreateAccount Command = iota
	CommandAssign
	CommandTransfer
)

const (
	createAccountDataSize = 4 + 2*8 + ed25519.PublicKeySize
	transferDataSize      = 4 + 8
)

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/system_instruction.rs#L20
const (
	ErrorAccountAlreadyInUse solana.CustomError = iota
	ErrorResultWithNegativeLamports
	ErrorInvalidProgramID
	ErrorInvalidAccountDataLength
)

// MaxPermittedDataLength is the largest account CreateAccount will allocate.
const MaxPermittedDataLength = 10 * 1024 * 1024

var (
	ErrInvalidInstructionData = errors.New("invalid system instruction data")
)

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE, SIGNER] New account
	data := make([]byte, createAccountDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandCreateAccount))
	binary.LittleEndian.PutUint64(data[4:], lamports)
	binary.LittleEndian.PutUint64(data[4+8:], size)
	copy(data[4+2*8:], owner)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L82-L87
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE] Recipient account
	data := make([]byte, transferDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandTransfer))
	binary.LittleEndian.PutUint64(data[4:], lamports)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

type CreateAccountArgs struct {
	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

// DecodeCommand returns the command encoded in the instruction data.
func DecodeCommand(data []byte) (Command, error) {
	if len(data) < 4 {
		return 0, ErrInvalidInstructionData
	}
	return Command(binary.LittleEndian.Uint32(data)), nil
}

func DecodeCreateAccountArgs(data []byte) (*CreateAccountArgs, error) {
	if len(data) != createAccountDataSize {
		return nil, ErrInvalidInstructionData
	}

	command, err := DecodeCommand(data)
	if err != nil {
		return nil, err
	}
	if command != CommandCreateAccount {
		return nil, solana.ErrIncorrectInstruction
	}

	args := &CreateAccountArgs{
		Lamports: binary.LittleEndian.Uint64(data[4:]),
		Size:     binary.LittleEndian.Uint64(data[4+8:]),
		Owner:    make(ed25519.PublicKey, ed25519.PublicKeySize),
	}
	copy(args.Owner, data[4+2*8:])
	return args, nil
}

func DecodeTransferArgs(data []byte) (lamports uint64, err error) {
	if len(data) != transferDataSize {
		return 0, ErrInvalidInstructionData
	}

	command, err := DecodeCommand(data)
	if err != nil {
		return 0, err
	}
	if command != CommandTransfer {
		return 0, solana.ErrIncorrectInstruction
	}

	return binary.LittleEndian.Uint64(data[4:]), nil
}
