package tokenwrapper

type InstructionType uint8

const (
	InstructionTypeInitialize InstructionType = iota
	InstructionTypeDepositAndMint
	InstructionTypeWithdrawAndBurn
)

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeInitialize:
		return "initialize"
	case InstructionTypeDepositAndMint:
		return "deposit_and_mint"
	case InstructionTypeWithdrawAndBurn:
		return "withdraw_and_burn"
	default:
		return "unknown"
	}
}

func putInstructionType(dst []byte, v InstructionType, offset *int) {
	dst[*offset] = uint8(v)
	*offset += 1
}
func getInstructionType(src []byte, dst *InstructionType, offset *int) {
	*dst = InstructionType(src[*offset])
	*offset += 1
}
