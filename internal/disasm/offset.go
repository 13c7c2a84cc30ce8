package disasm

import (
	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/retrogolib/arch/cpu/m6502"
)

// offsetInfo contains the analysis state of one offset in the mapped address
// space.
type offsetInfo struct {
	program.Offset

	opcode m6502.Opcode // opcode of the instruction starting at this offset

	branchFrom  []uint16 // addresses of instructions branching to this offset
	branchingTo string   // label name the instruction operand is replaced with
}
