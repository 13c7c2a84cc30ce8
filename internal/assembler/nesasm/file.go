package nesasm

import (
	"fmt"
	"io"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/nesrevasm/internal/writer"
)

var headerByte = " .%s %d %-22s ; %s\n"

var vectors = " .dw %s, %s, %s\n"

// FileWriter writes the assembly file content.
type FileWriter struct {
	app           *program.Program
	options       options.Disassembler
	mainWriter    io.Writer
	newBankWriter assembler.NewBankWriter
	writer        *writer.Writer
}

type customWrite func() error

// New creates a new file writer.
// nolint: ireturn
func New(app *program.Program, options options.Disassembler, mainWriter io.Writer,
	newBankWriter assembler.NewBankWriter) writer.AssemblerWriter {

	opts := writer.Options{
		DirectivePrefix: " ",
		OffsetComments:  options.OffsetComments,
	}
	return FileWriter{
		app:           app,
		options:       options,
		mainWriter:    mainWriter,
		newBankWriter: newBankWriter,
		writer:        writer.New(app, mainWriter, opts),
	}
}

// Write writes the assembly file content including the ROM header settings,
// the PRG pages with their vector tables and the CHR content.
func (f FileWriter) Write() error {
	var writes []any // nolint:prealloc

	if !f.options.CodeOnly {
		writes = []any{
			customWrite(f.writer.WriteCommentHeader),
			customWrite(f.writeROMHeader),
		}
	}

	writes = append(writes, customWrite(f.writeCode))

	if !f.options.CodeOnly {
		writes = append(writes, customWrite(f.writeCHR))
	}

	for _, write := range writes {
		if t, ok := write.(customWrite); ok {
			if err := t(); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeROMHeader writes the ROM header configuration to the output.
func (f FileWriter) writeROMHeader() error {
	if _, err := fmt.Fprintf(f.mainWriter, headerByte, "inesprg", f.app.PrgSize()/16384, " ", "Number of 16KB PRG-ROM banks"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := fmt.Fprintf(f.mainWriter, headerByte, "ineschr", len(f.app.CHR)/8192, " ", "Number of 8KB CHR-ROM banks"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := fmt.Fprintf(f.mainWriter, headerByte, "inesmap", f.app.Mapper, " ", "Mapper"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := fmt.Fprintf(f.mainWriter, headerByte, "inesmir", f.app.Mirror, " ", "Mirror mode"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}

// writeCode writes the code of all banks to the output. The bank selector
// directives are emitted by offset callbacks, a bank larger than the page
// size is written as multiple pages.
func (f FileWriter) writeCode() error {
	if !f.options.CodeOnly {
		addBankSelectors(f.app.PRG)
	}

	pages := 0
	for _, bank := range f.app.PRG {
		endIndex := bank.GetLastNonZeroByte(f.options)

		if f.options.SplitBanks {
			if err := f.writeBankFile(bank, endIndex); err != nil {
				return err
			}
		} else if err := f.writer.ProcessPRG(bank, endIndex); err != nil {
			return fmt.Errorf("writing PRG: %w", err)
		}

		pages += len(bank.Offsets) / pageSize

		if !f.options.CodeOnly && bank.HasVectors() {
			if err := f.writeVectors(bank, pages-1); err != nil {
				return err
			}
		}
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
		DirectivePrefix: " ",
		OffsetComments:  f.options.OffsetComments,
	}
	bankWriter := writer.New(f.app, bankFile, opts)
	if err := bankWriter.ProcessPRG(bank, endIndex); err != nil {
		return fmt.Errorf("writing PRG bank: %w", err)
	}
	if err := bankFile.Close(); err != nil {
		return fmt.Errorf("closing bank writer: %w", err)
	}

	if _, err := fmt.Fprintf(f.mainWriter, " .include \"%s\"\n", name); err != nil {
		return fmt.Errorf("writing bank include: %w", err)
	}
	return nil
}

// writeVectors writes the vector table of the bank, it lies in the last page
// of the bank. Only the vectors of the bank selected at power on reference
// the handler labels.
func (f FileWriter) writeVectors(bank *program.PRGBank, page int) error {
	if _, err := fmt.Fprintf(f.mainWriter, "\n .bank %d\n .org $%04x\n\n", page, bank.VectorsAddress); err != nil {
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

// writeCHR writes the CHR content to the output as pages following the PRG
// pages, extracted CHR data is referenced by an include directive instead.
func (f FileWriter) writeCHR() error {
	if len(f.app.CHR) == 0 {
		return nil
	}
	page := f.app.PrgSize() / pageSize

	if f.app.ChrFile != "" {
		if err := f.writeCHRPageStart(page); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(f.mainWriter, " .incbin \"%s\"\n", f.app.ChrFile); err != nil {
			return fmt.Errorf("writing CHR include: %w", err)
		}
		return nil
	}

	for start := 0; start < len(f.app.CHR); start += pageSize {
		if err := f.writeCHRPageStart(page); err != nil {
			return err
		}
		page++

		end := min(start+pageSize, len(f.app.CHR))
		data := f.app.CHR[start:end]
		if !f.options.ZeroBytes {
			// nesasm fills the unwritten page tail with zero bytes
			data = data[:program.CHR(data).GetLastNonZeroByte()]
		}
		if err := f.writer.BundleDataWrites(data, nil); err != nil {
			return fmt.Errorf("writing CHR data: %w", err)
		}
	}
	return nil
}

func (f FileWriter) writeCHRPageStart(page int) error {
	if _, err := fmt.Fprintf(f.mainWriter, "\n .bank %d\n .org $0000\n\n", page); err != nil {
		return fmt.Errorf("writing CHR bank: %w", err)
	}
	return nil
}
