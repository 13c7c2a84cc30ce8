// Package fileprocessor handles the disassembling workflow of a ROM file.
package fileprocessor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/assembler/ca65"
	"github.com/retroenv/nesrevasm/internal/config"
	"github.com/retroenv/nesrevasm/internal/disasm"
	"github.com/retroenv/nesrevasm/internal/mapper"
	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/nesrevasm/internal/verification"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

// ProcessFile disassembles a single ROM file and writes the output.
func ProcessFile(ctx context.Context, logger *log.Logger, opts options.Program,
	disasmOptions options.Disassembler) error {

	cart, err := loadCartridge(opts)
	if err != nil {
		return fmt.Errorf("loading cartridge: %w", err)
	}

	layout, err := mapper.ResolveLayout(cart, mapper.Override{
		BankSize:   disasmOptions.BankSize,
		FixedBanks: disasmOptions.FixedBanks,
	})
	if err != nil {
		return fmt.Errorf("resolving bank layout: %w", err)
	}

	if opts.Info {
		printInfo(logger, opts, cart, layout)
		return nil
	}

	if !opts.Quiet {
		logger.Info("Disassembling", log.String("file", opts.Input),
			log.Stringer("layout", layout))
	}

	if disasmOptions.ExtractCHR && len(cart.CHR) > 0 {
		chrFile, err := extractCHR(opts, cart)
		if err != nil {
			return fmt.Errorf("extracting CHR: %w", err)
		}
		disasmOptions.ChrFile = chrFile
	}

	if opts.Binary {
		// a headerless input has no NES header or CHR segments to emit
		disasmOptions.CodeOnly = true
	}
	disasmOptions.SplitBanks = opts.Output != "" && layout.Banks > 1

	app, err := runDisassembler(logger, opts, disasmOptions, cart, layout)
	if err != nil {
		return err
	}

	if opts.Config != "" {
		if err := writeLinkerConfig(opts.Config, app); err != nil {
			return fmt.Errorf("writing linker config: %w", err)
		}
	}

	if opts.Verify {
		if err := verification.VerifyOutput(ctx, logger, opts, app); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		if !opts.Quiet {
			logger.Info("Verification successful")
		}
	}
	return nil
}

// GetFilesToProcess returns the list of files to process based on the batch
// option.
func GetFilesToProcess(opts options.Program) ([]string, error) {
	if opts.Batch == "" {
		return []string{opts.Input}, nil
	}

	matches, err := filepath.Glob(opts.Batch)
	if err != nil {
		return nil, fmt.Errorf("globbing batch pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files matched the batch pattern '%s'", opts.Batch)
	}
	return matches, nil
}

// GenerateOutputFilename generates the .asm output filename for an input
// file.
func GenerateOutputFilename(inputFile string) string {
	ext := filepath.Ext(inputFile)
	return inputFile[:len(inputFile)-len(ext)] + ".asm"
}

// PrintBanner prints the application version information.
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}
	logger.Info("nesrevasm", log.String("version", buildinfo.Version(version, commit, date)))
}

func loadCartridge(opts options.Program) (*cartridge.Cartridge, error) {
	file, err := os.Open(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", opts.Input, err)
	}
	defer func() {
		_ = file.Close()
	}()

	var cart *cartridge.Cartridge
	if opts.Binary {
		cart, err = cartridge.LoadBuffer(file)
	} else {
		cart, err = cartridge.LoadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("loading cartridge: %w", err)
	}
	return cart, nil
}

func runDisassembler(logger *log.Logger, opts options.Program,
	disasmOptions options.Disassembler, cart *cartridge.Cartridge,
	layout mapper.Layout) (*program.Program, error) {

	fileWriterConstructor, paramConfig, err := config.InitializeAssemblerCompatibleMode(opts.Assembler)
	if err != nil {
		return nil, fmt.Errorf("initializing assembler compatible mode: %w", err)
	}
	disasmOptions.ParamConfig = paramConfig

	dis, err := disasm.New(logger, cart, layout, disasmOptions, fileWriterConstructor)
	if err != nil {
		return nil, fmt.Errorf("initializing disassembler: %w", err)
	}

	mainWriter, err := createWriter(opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closer, ok := mainWriter.(io.Closer); ok {
			_ = closer.Close()
		}
	}()

	app, err := dis.Process(mainWriter, newBankWriter(opts))
	if err != nil {
		return nil, fmt.Errorf("disassembling: %w", err)
	}
	return app, nil
}

func createWriter(opts options.Program) (io.Writer, error) {
	if opts.Output == "" {
		return os.Stdout, nil
	}

	file, err := os.Create(opts.Output)
	if err != nil {
		return nil, fmt.Errorf("creating output file %s: %w", opts.Output, err)
	}
	return file, nil
}

// newBankWriter returns the callback that creates one output file per PRG
// bank, the returned name is referenced by an include in the main file.
func newBankWriter(opts options.Program) assembler.NewBankWriter {
	base := strings.TrimSuffix(opts.Output, filepath.Ext(opts.Output))

	return func(bankName string) (io.WriteCloser, string, error) {
		name := fmt.Sprintf("%s.%s.asm", base, strings.ToLower(bankName))

		file, err := os.Create(name)
		if err != nil {
			return nil, "", fmt.Errorf("creating bank output file %s: %w", name, err)
		}
		return file, filepath.Base(name), nil
	}
}

// extractCHR writes the CHR content to a sibling .chr file, a byte-exact
// copy of the graphics data of the cartridge.
func extractCHR(opts options.Program, cart *cartridge.Cartridge) (string, error) {
	base := opts.Input
	if opts.Output != "" {
		base = opts.Output
	}
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".chr"

	if err := os.WriteFile(name, cart.CHR, 0o644); err != nil {
		return "", fmt.Errorf("writing CHR file %s: %w", name, err)
	}
	return filepath.Base(name), nil
}

// writeLinkerConfig writes the generated ca65 linker config that restores
// the bank layout of the ROM.
func writeLinkerConfig(name string, app *program.Program) error {
	mapperConfig, err := ca65.GenerateMapperConfig(app)
	if err != nil {
		return fmt.Errorf("generating linker config: %w", err)
	}
	if err := os.WriteFile(name, []byte(mapperConfig), 0o644); err != nil {
		return fmt.Errorf("writing linker config %s: %w", name, err)
	}
	return nil
}

// printInfo prints the header and bank layout details of the cartridge
// instead of disassembling it.
func printInfo(logger *log.Logger, opts options.Program, cart *cartridge.Cartridge,
	layout mapper.Layout) {

	logger.Info("ROM info", log.String("file", opts.Input))
	logger.Info("Header",
		log.Uint8("mapper", cart.Mapper),
		log.Uint8("mirror", byte(cart.Mirror)),
		log.Uint8("battery", cart.Battery),
		log.Int("trainer_bytes", len(cart.Trainer)))
	logger.Info("Layout", log.Stringer("board", layout))
	logger.Info("Sizes",
		log.Int("prg", len(cart.PRG)),
		log.Int("chr", len(cart.CHR)))
}
