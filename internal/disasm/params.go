package disasm

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/m6502"
)

type paramReaderFunc func(a *analysis, address uint16) (any, []byte, error)

var paramReader = map[m6502.AddressingMode]paramReaderFunc{
	m6502.ImpliedAddressing:     paramReaderImplied,
	m6502.ImmediateAddressing:   paramReaderImmediate,
	m6502.AccumulatorAddressing: paramReaderAccumulator,
	m6502.AbsoluteAddressing:    paramReaderAbsolute,
	m6502.AbsoluteXAddressing:   paramReaderAbsoluteX,
	m6502.AbsoluteYAddressing:   paramReaderAbsoluteY,
	m6502.ZeroPageAddressing:    paramReaderZeroPage,
	m6502.ZeroPageXAddressing:   paramReaderZeroPageX,
	m6502.ZeroPageYAddressing:   paramReaderZeroPageY,
	m6502.RelativeAddressing:    paramReaderRelative,
	m6502.IndirectAddressing:    paramReaderIndirect,
	m6502.IndirectXAddressing:   paramReaderIndirectX,
	m6502.IndirectYAddressing:   paramReaderIndirectY,
}

// readOpParam reads the parameter bytes following the first opcode byte and
// translates them into the addressing mode specific parameter type.
func (a *analysis) readOpParam(addressing m6502.AddressingMode, address uint16) (any, []byte, error) {
	fun, ok := paramReader[addressing]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported addressing mode %v", addressing)
	}
	return fun(a, address)
}

func paramReaderImplied(*analysis, uint16) (any, []byte, error) {
	return nil, nil, nil
}

func paramReaderImmediate(a *analysis, address uint16) (any, []byte, error) {
	b, err := a.readMemory(address + 1)
	if err != nil {
		return nil, nil, err
	}
	return int(b), []byte{b}, nil
}

func paramReaderAccumulator(*analysis, uint16) (any, []byte, error) {
	return m6502.Accumulator(0), nil, nil
}

func paramReaderAbsolute(a *analysis, address uint16) (any, []byte, error) {
	w, opcodes, err := paramReadWord(a, address)
	if err != nil {
		return nil, nil, err
	}
	return m6502.Absolute(w), opcodes, nil
}

func paramReaderAbsoluteX(a *analysis, address uint16) (any, []byte, error) {
	w, opcodes, err := paramReadWord(a, address)
	if err != nil {
		return nil, nil, err
	}
	return m6502.AbsoluteX(w), opcodes, nil
}

func paramReaderAbsoluteY(a *analysis, address uint16) (any, []byte, error) {
	w, opcodes, err := paramReadWord(a, address)
	if err != nil {
		return nil, nil, err
	}
	return m6502.AbsoluteY(w), opcodes, nil
}

func paramReaderZeroPage(a *analysis, address uint16) (any, []byte, error) {
	b, err := a.readMemory(address + 1)
	if err != nil {
		return nil, nil, err
	}
	return m6502.ZeroPage(b), []byte{b}, nil
}

func paramReaderZeroPageX(a *analysis, address uint16) (any, []byte, error) {
	b, err := a.readMemory(address + 1)
	if err != nil {
		return nil, nil, err
	}
	return m6502.ZeroPageX(b), []byte{b}, nil
}

func paramReaderZeroPageY(a *analysis, address uint16) (any, []byte, error) {
	b, err := a.readMemory(address + 1)
	if err != nil {
		return nil, nil, err
	}
	return m6502.ZeroPageY(b), []byte{b}, nil
}

func paramReaderRelative(a *analysis, address uint16) (any, []byte, error) {
	b, err := a.readMemory(address + 1)
	if err != nil {
		return nil, nil, err
	}

	offset := uint16(b)
	if offset < 0x80 {
		address += 2 + offset
	} else {
		address += 2 + offset - 0x100
	}
	return m6502.Absolute(address), []byte{b}, nil
}

func paramReaderIndirect(a *analysis, address uint16) (any, []byte, error) {
	// the pointer target is not read, its value is only known at runtime
	w, opcodes, err := paramReadWord(a, address)
	if err != nil {
		return nil, nil, err
	}
	return m6502.Indirect(w), opcodes, nil
}

func paramReaderIndirectX(a *analysis, address uint16) (any, []byte, error) {
	b, err := a.readMemory(address + 1)
	if err != nil {
		return nil, nil, err
	}
	return m6502.IndirectX(b), []byte{b}, nil
}

func paramReaderIndirectY(a *analysis, address uint16) (any, []byte, error) {
	b, err := a.readMemory(address + 1)
	if err != nil {
		return nil, nil, err
	}
	return m6502.IndirectY(b), []byte{b}, nil
}

func paramReadWord(a *analysis, address uint16) (uint16, []byte, error) {
	b1, err := a.readMemory(address + 1)
	if err != nil {
		return 0, nil, err
	}
	b2, err := a.readMemory(address + 2)
	if err != nil {
		return 0, nil, err
	}
	w := uint16(b2)<<8 | uint16(b1)
	return w, []byte{b1, b2}, nil
}
