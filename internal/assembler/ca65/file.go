package ca65

import (
	"fmt"
	"io"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/nesrevasm/internal/writer"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
)

var cpuSelector = `.setcpu "6502"`

var iNESHeader = `.byte "NES", $1a                 ; Magic string that always begins an iNES header`

var headerByte = ".byte $%02x %-22s ; %s\n"

var vectors = ".addr %s, %s, %s\n"

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

type segmentWrite struct {
	name string
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
// bank segments, the CHR content and the vector tables.
// nolint:funlen, cyclop
func (f FileWriter) Write() error {
	control1, control2 := cartridge.ControlBytes(f.app.Battery, byte(f.app.Mirror), f.app.Mapper, len(f.app.Trainer) > 0)

	var writes []any // nolint:prealloc

	if !f.options.CodeOnly {
		writes = []any{
			customWrite(f.writer.WriteCommentHeader),
			lineWrite(cpuSelector),
			segmentWrite{name: "HEADER"},
			lineWrite(iNESHeader),
			headerByteWrite{value: byte(f.app.PrgSize() / 16384), comment: "Number of 16KB PRG-ROM banks"},
			headerByteWrite{value: byte(len(f.app.CHR) / 8192), comment: "Number of 8KB CHR-ROM banks"},
			headerByteWrite{value: control1, comment: "Control bits 1"},
			headerByteWrite{value: control2, comment: "Control bits 2"},
			headerByteWrite{value: f.app.RAM, comment: "Number of 8KB PRG-RAM banks"},
			headerByteWrite{value: f.app.VideoFormat, comment: "Video format NTSC/PAL"},
		}
	}

	for _, bank := range f.app.PRG {
		writes = append(writes,
			prgBankWrite{bank: bank},
		)
	}

	if !f.options.CodeOnly {
		writes = append(writes, customWrite(f.writeCHR))
		if f.vectorTables() == 1 {
			writes = append(writes, customWrite(f.writePowerOnVectors))
		}
	}

	for _, write := range writes {
		switch t := write.(type) {
		case headerByteWrite:
			if _, err := fmt.Fprintf(f.mainWriter, headerByte, t.value, "", t.comment); err != nil {
				return fmt.Errorf("writing header: %w", err)
			}

		case segmentWrite:
			if err := f.writeSegment(t.name); err != nil {
				return err
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
			if !f.options.CodeOnly && f.vectorTables() > 1 && t.bank.HasVectors() {
				if err := f.writeBankVectors(t.bank); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// vectorTables returns the number of banks that emit their own vector table.
// Bank layouts without fixed banks map the vector window in every bank.
func (f FileWriter) vectorTables() int {
	count := 0
	for _, bank := range f.app.PRG {
		if bank.HasVectors() {
			count++
		}
	}
	return count
}

// writeSegment writes a segment header to the output.
func (f FileWriter) writeSegment(name string) error {
	if name != "HEADER" {
		if _, err := fmt.Fprintln(f.mainWriter); err != nil {
			return fmt.Errorf("writing segment: %w", err)
		}
	}

	_, err := fmt.Fprintf(f.mainWriter, ".segment \"%s\"\n\n", name)
	if err != nil {
		return fmt.Errorf("writing segment footer: %w", err)
	}
	return nil
}

// writeCHR writes the CHR content to the output, extracted CHR data is
// referenced by an include directive instead.
func (f FileWriter) writeCHR() error {
	if len(f.app.CHR) == 0 {
		return nil
	}
	if err := f.writeSegment("TILES"); err != nil {
		return err
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

	// the linker config fills the trimmed zero bytes
	lastNonZeroByte := f.app.CHR.GetLastNonZeroByte()
	if err := f.writer.BundleDataWrites(f.app.CHR[:lastNonZeroByte], nil); err != nil {
		return fmt.Errorf("writing CHR data: %w", err)
	}
	return nil
}

// writePowerOnVectors writes the vector table of ROMs that map the vector
// window from a single bank.
func (f FileWriter) writePowerOnVectors() error {
	if err := f.writeSegment("VECTORS"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f.mainWriter, vectors, f.app.Handlers.NMI, f.app.Handlers.Reset, f.app.Handlers.IRQ); err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}
	return nil
}

// writeBankVectors writes the vector table of one bank. Only the vectors of
// the bank selected at power on reference the handler labels, all other banks
// emit their vectors as address literals.
func (f FileWriter) writeBankVectors(bank *program.PRGBank) error {
	nmi, reset, irq := vectorValues(bank)
	if bank.Handlers.Reset != "" {
		nmi, reset, irq = bank.Handlers.NMI, bank.Handlers.Reset, bank.Handlers.IRQ
	}

	if err := f.writeSegment(vectorSegmentName(bank)); err != nil {
		return err
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

// writeCode writes the code of a bank to the output. With bank splitting
// enabled the code is written to a new bank file that the main file includes.
func (f FileWriter) writeCode(bank *program.PRGBank) error {
	if !f.options.CodeOnly || len(f.app.PRG) > 1 {
		if err := f.writeSegment(bank.Name); err != nil {
			return err
		}
	}

	endIndex := bank.GetLastNonZeroByte(f.options)

	if f.options.SplitBanks {
		return f.writeBankFile(bank, endIndex)
	}

	if err := f.writer.ProcessPRG(bank, endIndex); err != nil {
		return fmt.Errorf("writing PRG: %w", err)
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
