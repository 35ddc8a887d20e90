package token

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"
)

var ErrInvalidInstructionData = errors.New("invalid token instruction data")

// DecodedInstruction holds the arguments of a token program instruction.
// Only the fields relevant to Command are populated.
type DecodedInstruction struct {
	Command Command

	Amount   uint64
	Decimals uint8

	MintAuthority   ed25519.PublicKey
	FreezeAuthority ed25519.PublicKey
	Owner           ed25519.PublicKey

	// Payload is everything after the command byte. Extension instructions
	// are decoded by the program that owns them.
	Payload []byte
}

// DecodeInstruction parses the instruction data of the base token
// instruction set. Unknown commands are returned with only Payload set.
func DecodeInstruction(data []byte) (*DecodedInstruction, error) {
	if len(data) == 0 {
		return nil, ErrInvalidInstructionData
	}

	decoded := &DecodedInstruction{
		Command: Command(data[0]),
		Payload: data[1:],
	}
	rest := data[1:]

	switch decoded.Command {
	case CommandInitializeMint, CommandInitializeMint2:
		if len(rest) < 1+ed25519.PublicKeySize+1 {
			return nil, ErrInvalidInstructionData
		}

		decoded.Decimals = rest[0]
		decoded.MintAuthority = copyKey(rest[1:])

		tag := rest[1+ed25519.PublicKeySize]
		switch tag {
		case 0:
		case 1:
			if len(rest) < 1+ed25519.PublicKeySize+1+ed25519.PublicKeySize {
				return nil, ErrInvalidInstructionData
			}
			decoded.FreezeAuthority = copyKey(rest[2+ed25519.PublicKeySize:])
		default:
			return nil, ErrInvalidInstructionData
		}
	case CommandInitializeAccount3:
		if len(rest) < ed25519.PublicKeySize {
			return nil, ErrInvalidInstructionData
		}
		decoded.Owner = copyKey(rest)
	case CommandTransfer, CommandMintTo, CommandBurn:
		if len(rest) < 8 {
			return nil, ErrInvalidInstructionData
		}
		decoded.Amount = binary.LittleEndian.Uint64(rest)
	case CommandTransferChecked, CommandMintToChecked, CommandBurnChecked:
		if len(rest) < 8+1 {
			return nil, ErrInvalidInstructionData
		}
		decoded.Amount = binary.LittleEndian.Uint64(rest)
		decoded.Decimals = rest[8]
	}

	return decoded, nil
}

func copyKey(src []byte) ed25519.PublicKey {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, src)
	return key
}
