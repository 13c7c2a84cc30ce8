// Package program represents the disassembled program.
package program

import (
	"io"

	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
)

// Offset defines the content of an offset in a program that can represent
// code or data.
type Offset struct {
	Data []byte // data byte or all opcode bytes that are part of the instruction

	Type OffsetType

	Address           uint16 // CPU address of the offset
	HasAddressComment bool

	Label        string // name of the label if the offset is a branch or data reference target
	Code         string // asm output of the instruction
	Comment      string
	LabelComment string

	// WriteCallback is called before the offset is written, it lets the
	// assembler output writers emit directives like bank selectors.
	WriteCallback func(writer io.Writer) error
}

// Handlers defines the interrupt handlers of the program.
type Handlers struct {
	NMI   string
	Reset string
	IRQ   string
}

// Checksums contains the CRC32 checksums that identify the ROM parts.
type Checksums struct {
	PRG     uint32
	CHR     uint32
	Overall uint32
}

// Program defines a disassembled NES program.
type Program struct {
	PRG     []*PRGBank
	CHR     CHR
	RAM     byte
	Trainer []byte

	CodeBaseAddress     uint16
	VectorsStartAddress uint16

	Checksums   Checksums
	Handlers    Handlers
	Battery     byte
	Mirror      cartridge.MirrorMode
	Mapper      byte
	VideoFormat byte

	// ChrFile is the name of the extracted CHR file, the CHR content is
	// referenced by an include directive instead of inlined when set.
	ChrFile string
}

// New creates a new program for the given cartridge.
func New(cart *cartridge.Cartridge) *Program {
	return &Program{
		CHR:         CHR(cart.CHR),
		RAM:         cart.RAM,
		Battery:     cart.Battery,
		Mapper:      byte(cart.Mapper),
		Mirror:      cart.Mirror,
		Trainer:     cart.Trainer,
		VideoFormat: cart.VideoFormat,
	}
}

// PrgSize returns the size of all PRG banks combined.
func (app *Program) PrgSize() int {
	size := 0
	for _, bank := range app.PRG {
		size += len(bank.Offsets)
	}
	return size
}
