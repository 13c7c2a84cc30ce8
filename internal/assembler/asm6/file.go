package asm6

import (
	"fmt"
	"io"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/nesrevasm/internal/writer"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
)

var iNESHeader = `.db "NES", $1a                 ; Magic string that always begins an iNES header`

var headerByte = ".db $%02x %-22s ; %s\n"

var vectors = ".dw %s, %s, %s\n"

// FileWriter writes the assembly file content.
type FileWriter struct {
	app           *program.Program
	options       options.Disassembler
	mainWriter    io.Writer
	newBankWriter assembler.NewBankWriter
	writer        *writer.Writer
}

type headerByteWrite struct {
	value   byte
	comment string
}

type prgBankWrite struct {
	bank *program.PRGBank
}

type customWrite func() error

type lineWrite string

// New creates a new file writer.
// nolint: ireturn
func New(app *program.Program, options options.Disassembler, mainWriter io.Writer,
	newBankWriter assembler.NewBankWriter) writer.AssemblerWriter {

	opts := writer.Options{
		OffsetComments: options.OffsetComments,
	}
	return FileWriter{
		app:           app,
		options:       options,
		mainWriter:    mainWriter,
		newBankWriter: newBankWriter,
		writer:        writer.New(app, mainWriter, opts),
	}
}

// Write writes the assembly file content including the iNES header, the PRG
// banks with their vector tables and the CHR content.
func (f FileWriter) Write() error {
	control1, control2 := cartridge.ControlBytes(f.app.Battery, byte(f.app.Mirror), f.app.Mapper, len(f.app.Trainer) > 0)

	var writes []any // nolint:prealloc

	if !f.options.CodeOnly {
		writes = []any{
			customWrite(f.writer.WriteCommentHeader),
			lineWrite(iNESHeader),
			headerByteWrite{value: byte(f.app.PrgSize() / 16384), comment: "Number of 16KB PRG-ROM banks"},
			headerByteWrite{value: byte(len(f.app.CHR) / 8192), comment: "Number of 8KB CHR-ROM banks"},
			headerByteWrite{value: control1, comment: "Control bits 1"},
			headerByteWrite{value: control2, comment: "Control bits 2"},
			headerByteWrite{value: f.app.RAM, comment: "Number of 8KB PRG-RAM banks"},
			headerByteWrite{value: f.app.VideoFormat, comment: "Video format NTSC/PAL"},
			lineWrite(".dsb 6"),
		}
	}

	for _, bank := range f.app.PRG {
		writes = append(writes,
			prgBankWrite{bank: bank},
		)
	}

	if !f.options.CodeOnly {
		writes = append(writes, customWrite(f.writeCHR))
	}

	for _, write := range writes {
		switch t := write.(type) {
		case headerByteWrite:
			if _, err := fmt.Fprintf(f.mainWriter, headerByte, t.value, "", t.comment); err != nil {
				return fmt.Errorf("writing header: %w", err)
			}

		case lineWrite:
			if _, err := fmt.Fprintln(f.mainWriter, t); err != nil {
				return fmt.Errorf("writing line: %w", err)
			}

		case customWrite:
			if err := t(); err != nil {
				return err
			}

		case prgBankWrite:
			if err := f.writeCode(t.bank); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeCode writes the code of a bank to the output, followed by the vector
// table or the padding that restores the trimmed zero bytes of the bank.
func (f FileWriter) writeCode(bank *program.PRGBank) error {
	if err := f.writeBankStart(bank); err != nil {
		return err
	}

	endIndex := bank.GetLastNonZeroByte(f.options)

	if f.options.SplitBanks {
		if err := f.writeBankFile(bank, endIndex); err != nil {
			return err
		}
	} else if err := f.writer.ProcessPRG(bank, endIndex); err != nil {
		return fmt.Errorf("writing PRG: %w", err)
	}

	if f.options.CodeOnly {
		return nil
	}
	if bank.HasVectors() {
		return f.writeVectors(bank)
	}

	// pad the bank to its full size, the program counter directive of the
	// following bank does not advance the output position
	remaining := len(bank.Offsets) - endIndex
	if remaining > 0 {
		if _, err := fmt.Fprintf(f.mainWriter, "\n.dsb %d\n", remaining); err != nil {
			return fmt.Errorf("writing bank padding: %w", err)
		}
	}
	return nil
}

// writeBankStart writes the directive that positions the bank content in the
// CPU address space.
func (f FileWriter) writeBankStart(bank *program.PRGBank) error {
	if f.options.CodeOnly && len(f.app.PRG) == 1 {
		return nil
	}

	// the first bank advances the output beyond the header bytes, all other
	// banks only change the program counter
	directive := ".base"
	if !f.options.CodeOnly && bank.Number == 0 {
		directive = ".org"
	}
	if _, err := fmt.Fprintf(f.mainWriter, "\n%s $%04x\n\n", directive, bank.BaseAddress); err != nil {
		return fmt.Errorf("writing bank start: %w", err)
	}
	return nil
}

// writeBankFile writes the code of the bank to its own file that the main
// file references with an include directive.
func (f FileWriter) writeBankFile(bank *program.PRGBank, endIndex int) error {
	bankFile, name, err := f.newBankWriter(bank.Name)
	if err != nil {
		return fmt.Errorf("creating bank writer: %w", err)
	}

	opts := writer.Options{
		OffsetComments: f.options.OffsetComments,
	}
	bankWriter := writer.New(f.app, bankFile, opts)
	if err := bankWriter.ProcessPRG(bank, endIndex); err != nil {
		return fmt.Errorf("writing PRG bank: %w", err)
	}
	if err := bankFile.Close(); err != nil {
		return fmt.Errorf("closing bank writer: %w", err)
	}

	if _, err := fmt.Fprintf(f.mainWriter, ".include \"%s\"\n", name); err != nil {
		return fmt.Errorf("writing bank include: %w", err)
	}
	return nil
}

// writeVectors writes the vector table of the bank. Positioning it at the
// vector window address restores the trimmed zero bytes of the bank.
func (f FileWriter) writeVectors(bank *program.PRGBank) error {
	if _, err := fmt.Fprintf(f.mainWriter, "\n.org $%04x\n\n", bank.VectorsAddress); err != nil {
		return fmt.Errorf("writing vector segment: %w", err)
	}

	nmi, reset, irq := vectorValues(bank)
	if bank.Handlers.Reset != "" {
		nmi, reset, irq = bank.Handlers.NMI, bank.Handlers.Reset, bank.Handlers.IRQ
	}
	if _, err := fmt.Fprintf(f.mainWriter, vectors, nmi, reset, irq); err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}
	return nil
}

func vectorValues(bank *program.PRGBank) (string, string, string) {
	return fmt.Sprintf("$%04X", bank.Vectors[0]),
		fmt.Sprintf("$%04X", bank.Vectors[1]),
		fmt.Sprintf("$%04X", bank.Vectors[2])
}

// writeCHR writes the CHR content to the output, extracted CHR data is
// referenced by an include directive instead.
func (f FileWriter) writeCHR() error {
	if len(f.app.CHR) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(f.mainWriter); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}

	if f.app.ChrFile != "" {
		if _, err := fmt.Fprintf(f.mainWriter, ".incbin \"%s\"\n", f.app.ChrFile); err != nil {
			return fmt.Errorf("writing CHR include: %w", err)
		}
		return nil
	}

	if f.options.ZeroBytes {
		if err := f.writer.BundleDataWrites(f.app.CHR, nil); err != nil {
			return fmt.Errorf("writing CHR data: %w", err)
		}
		return nil
	}

	lastNonZeroByte := f.app.CHR.GetLastNonZeroByte()
	if err := f.writer.BundleDataWrites(f.app.CHR[:lastNonZeroByte], nil); err != nil {
		return fmt.Errorf("writing CHR data: %w", err)
	}

	remaining := len(f.app.CHR) - lastNonZeroByte
	if remaining > 0 {
		if _, err := fmt.Fprintf(f.mainWriter, "\n.dsb %d\n", remaining); err != nil {
			return fmt.Errorf("writing CHR remainder: %w", err)
		}
	}
	return nil
}
