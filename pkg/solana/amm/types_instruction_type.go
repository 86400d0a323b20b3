package amm

import "fmt"

type InstructionType uint8

const (
	InstructionTypeInitialize InstructionType = iota
	InstructionTypeDeposit
	InstructionTypeWithdraw
	InstructionTypeSwap
)

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeInitialize:
		return "Initialize"
	case InstructionTypeDeposit:
		return "Deposit"
	case InstructionTypeWithdraw:
		return "Withdraw"
	case InstructionTypeSwap:
		return "Swap"
	}
	return fmt.Sprintf("Unknown(%d)", uint8(t))
}
