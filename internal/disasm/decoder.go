package disasm

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/m6502"
	"github.com/retroenv/retrogolib/arch/system/nes/parameter"
)

// errInvalidOpcode is returned when a byte does not decode to an official
// instruction. Unofficial opcodes are not decoded as their mnemonics do not
// reassemble to the same bytes with all supported assemblers.
var errInvalidOpcode = errors.New("invalid opcode")

// decodedInstruction is the result of decoding a single instruction.
type decodedInstruction struct {
	opcode m6502.Opcode
	data   []byte // all bytes that are part of the instruction
	params string // formatted parameter, empty for implied addressing

	target    uint16 // address that the instruction parameter refers to
	hasTarget bool
}

// code returns the assembler representation of the instruction.
func (inst decodedInstruction) code() string {
	if inst.params == "" {
		return inst.opcode.Instruction.Name
	}
	return fmt.Sprintf("%s %s", inst.opcode.Instruction.Name, inst.params)
}

// decodeInstructionAt decodes the instruction at the given address. It fails
// if the opcode has no official encoding or if the instruction would extend
// beyond the decodable window of the bank.
func (a *analysis) decodeInstructionAt(address uint16) (decodedInstruction, error) {
	b, err := a.readMemory(address)
	if err != nil {
		return decodedInstruction{}, err
	}

	opcode := m6502.Opcodes[b]
	if opcode.Instruction == nil || opcode.Instruction.Unofficial {
		return decodedInstruction{}, fmt.Errorf("%w: $%02x", errInvalidOpcode, b)
	}

	inst := decodedInstruction{
		opcode: opcode,
		data:   append(make([]byte, 0, m6502.MaxOpcodeSize), b),
	}

	if opcode.Addressing != m6502.ImpliedAddressing {
		param, opcodes, err := a.readOpParam(opcode.Addressing, address)
		if err != nil {
			return decodedInstruction{}, fmt.Errorf("reading opcode parameter: %w", err)
		}
		inst.data = append(inst.data, opcodes...)
		inst.target, inst.hasTarget = addressingParam(param)

		paramString, err := parameter.String(a.dis.converter, opcode.Addressing, param)
		if err != nil {
			return decodedInstruction{}, fmt.Errorf("getting parameter as string: %w", err)
		}
		inst.params = paramString
	}

	if int(address)+len(inst.data) > a.decodeLimit() {
		return decodedInstruction{}, fmt.Errorf("%w: instruction at $%04X exceeds the decodable window",
			errInvalidOpcode, address)
	}
	return inst, nil
}

// decodeLimit returns the exclusive upper bound for instruction bytes. The
// vector table of a bank that maps the vector window is never decoded as
// part of an instruction.
func (a *analysis) decodeLimit() int {
	end := int(a.bank.base) + len(a.bank.data)
	if a.mapsVectors() && int(a.dis.vectorsStartAddress) < end {
		return int(a.dis.vectorsStartAddress)
	}
	return end
}

// mapsVectors returns whether the bank of the analysis maps the interrupt
// vector window.
func (a *analysis) mapsVectors() bool {
	return a.bank.fixed || a.dis.layout.FixedBanks == 0
}

// readMemory reads a byte from the analyzed bank window, falling back to the
// frozen fixed bank view for always mapped addresses.
func (a *analysis) readMemory(address uint16) (byte, error) {
	if a.bank.contains(address) {
		return a.bank.data[a.bank.index(address)], nil
	}
	if a.fixedContains(address) {
		return a.fixed.bank.data[a.fixed.bank.index(address)], nil
	}
	return 0, fmt.Errorf("reading outside of mapped ROM at $%04X", address)
}

// addressingParam returns the address that an instruction parameter refers
// to, if any.
func addressingParam(param any) (uint16, bool) {
	switch val := param.(type) {
	case m6502.Absolute:
		return uint16(val), true
	case m6502.AbsoluteX:
		return uint16(val), true
	case m6502.AbsoluteY:
		return uint16(val), true
	case m6502.Indirect:
		return uint16(val), true
	case m6502.IndirectX:
		return uint16(val), true
	case m6502.IndirectY:
		return uint16(val), true
	case m6502.ZeroPage:
		return uint16(val), true
	case m6502.ZeroPageX:
		return uint16(val), true
	case m6502.ZeroPageY:
		return uint16(val), true
	default:
		return 0, false
	}
}
