package program

import (
	"github.com/retroenv/nesrevasm/internal/options"
)

// PRGBank defines a PRG bank of the program.
type PRGBank struct {
	Name        string
	Number      int
	BaseAddress uint16

	Offsets []Offset

	// Vectors contains the NMI, Reset and IRQ vector values of the bank,
	// VectorsAddress is 0 if the bank does not map the vector window.
	Vectors        [3]uint16
	VectorsAddress uint16

	// Handlers is set for the power-on bank, its vectors are emitted using
	// the handler names instead of address literals.
	Handlers Handlers
}

// NewPRGBank creates a new PRG bank with the given number of offsets.
func NewPRGBank(number, size int, baseAddress uint16) *PRGBank {
	return &PRGBank{
		Number:      number,
		BaseAddress: baseAddress,
		Offsets:     make([]Offset, size),
	}
}

// HasVectors returns whether the bank maps the interrupt vector window and
// emits its own vector table.
func (bank *PRGBank) HasVectors() bool {
	return bank.VectorsAddress != 0
}

// GetLastNonZeroByte searches for the last byte of the bank that is not zero.
// Bytes that have a label assigned are always kept. The trailing zero bytes
// are not emitted and restored by assembler padding directives, banks that
// map the vector window reserve the last 6 bytes for the vector table.
func (bank *PRGBank) GetLastNonZeroByte(options options.Disassembler) int {
	endIndex := len(bank.Offsets)
	if bank.HasVectors() {
		endIndex -= 6
	}
	if options.ZeroBytes {
		return endIndex
	}

	for i := endIndex - 1; i >= 0; i-- {
		offset := bank.Offsets[i]
		if allZero(offset.Data) && offset.Label == "" {
			continue
		}
		return i + 1
	}
	return 0
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
