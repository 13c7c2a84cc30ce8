// Package disasm implements the disassembler engine that reconstructs
// assembler source from a NES cartridge ROM.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/mapper"
	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/nesrevasm/internal/writer"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/arch/system/nes/parameter"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/sync/errgroup"
)

// FileWriterConstructor creates an assembler file writer for the given
// program.
type FileWriterConstructor func(app *program.Program, options options.Disassembler,
	mainWriter io.Writer, newBankWriter assembler.NewBankWriter) writer.AssemblerWriter

// Disasm implements a NES ROM disassembler.
type Disasm struct {
	logger  *log.Logger
	options options.Disassembler

	cart   *cartridge.Cartridge
	layout mapper.Layout

	converter      parameter.Converter
	allowedEndings map[string]struct{}

	fileWriterConstructor FileWriterConstructor
	handlers              program.Handlers

	codeBaseAddress     uint16 // base address of the fixed window, not always 0x8000
	vectorsStartAddress uint16

	fixed      *analysis   // the fixed banks form one always mapped address space
	switchable []*analysis // one analysis per switchable bank
}

// New creates a new disassembler that uses the given file writer constructor
// for its output.
func New(logger *log.Logger, cart *cartridge.Cartridge, layout mapper.Layout,
	opts options.Disassembler, fileWriterConstructor FileWriterConstructor) (*Disasm, error) {

	dis := &Disasm{
		logger:                logger,
		options:               opts,
		cart:                  cart,
		layout:                layout,
		converter:             parameter.New(opts.ParamConfig),
		allowedEndings:        subroutineEndings(opts.SubroutineEndings),
		fileWriterConstructor: fileWriterConstructor,
	}

	if err := dis.initializeBanks(); err != nil {
		return nil, fmt.Errorf("initializing banks: %w", err)
	}
	return dis, nil
}

// Process disassembles the cartridge and writes the output to the main
// writer, bank content is written to files created by the new bank writer
// when bank splitting is enabled.
func (dis *Disasm) Process(mainWriter io.Writer, newBankWriter assembler.NewBankWriter) (*program.Program, error) {
	if err := dis.analyzeFixed(); err != nil {
		return nil, err
	}
	if err := dis.analyzeSwitchable(); err != nil {
		return nil, err
	}

	app, err := dis.convertToProgram()
	if err != nil {
		return nil, fmt.Errorf("converting to program: %w", err)
	}

	fileWriter := dis.fileWriterConstructor(app, dis.options, mainWriter, newBankWriter)
	if err := fileWriter.Write(); err != nil {
		return nil, fmt.Errorf("writing program: %w", err)
	}
	return app, nil
}

// analyzeFixed analyzes the address space of the fixed banks. It runs before
// the switchable bank analyses which consult its frozen results read-only.
func (dis *Disasm) analyzeFixed() error {
	if dis.fixed == nil {
		return nil
	}
	if err := dis.fixed.run(); err != nil {
		return fmt.Errorf("analyzing fixed banks: %w", err)
	}
	return nil
}

// analyzeSwitchable analyzes all switchable banks, each bank is mapped at the
// switchable base address. The banks are independent of each other and can be
// analyzed in parallel, the result is identical to the sequential analysis.
func (dis *Disasm) analyzeSwitchable() error {
	if dis.options.Parallel {
		g := errgroup.Group{}
		for _, bnk := range dis.switchable {
			g.Go(bnk.run)
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("analyzing switchable banks: %w", err)
		}
		return nil
	}

	for _, bnk := range dis.switchable {
		if err := bnk.run(); err != nil {
			return fmt.Errorf("analyzing switchable bank %d: %w", bnk.bank.number, err)
		}
	}
	return nil
}

// CodeBaseAddress returns the code base address of the fixed window.
func (dis *Disasm) CodeBaseAddress() uint16 {
	return dis.codeBaseAddress
}

// subroutineEndings returns the set of instructions that are valid as the
// last instruction of a subroutine.
func subroutineEndings(extra string) map[string]struct{} {
	endings := map[string]struct{}{
		"jmp": {},
		"rti": {},
		"rts": {},
	}
	for _, name := range strings.Split(extra, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			endings[name] = struct{}{}
		}
	}
	return endings
}
