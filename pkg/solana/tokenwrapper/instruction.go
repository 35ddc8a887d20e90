package tokenwrapper

// Instruction is a decoded wrapper program payload.
type Instruction struct {
	Type InstructionType

	// Amount and UseMax are only set for DepositAndMint and WithdrawAndBurn.
	Amount uint64
	UseMax bool
}

// DecodeInstruction parses the payload of a wrapper program instruction.
//
// The use-max flag at byte 9 is optional and defaults to false. Bytes past it
// are ignored.
func DecodeInstruction(data []byte) (*Instruction, error) {
	if len(data) < 1 {
		return nil, ErrInvalidInstructionData
	}

	var offset int
	var ix Instruction
	getInstructionType(data, &ix.Type, &offset)

	switch ix.Type {
	case InstructionTypeInitialize:
		return &ix, nil
	case InstructionTypeDepositAndMint, InstructionTypeWithdrawAndBurn:
	default:
		return nil, ErrInvalidInstructionData
	}

	if len(data) < offset+8 {
		return nil, ErrInvalidInstructionData
	}
	getUint64(data, &ix.Amount, &offset)

	if len(data) > offset {
		getBool(data, &ix.UseMax, &offset)
	}

	return &ix, nil
}
