// Package verification verifies that the generated output file recreates the
// input file.
package verification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/assembler/asm6"
	"github.com/retroenv/nesrevasm/internal/assembler/ca65"
	"github.com/retroenv/nesrevasm/internal/assembler/nesasm"
	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/log"
)

// VerifyOutput verifies that the output file recreates the exact input file
// by assembling it with the chosen external assembler and comparing the
// results.
func VerifyOutput(ctx context.Context, logger *log.Logger, opts options.Program,
	app *program.Program) error {

	if opts.Output == "" {
		return errors.New("can not verify console output")
	}

	filePart := filepath.Ext(opts.Output)
	var (
		err        error
		outputFile *os.File
	)

	if opts.Debug {
		// keep the reassembled ROM for inspection
		outputFile, err = os.Create("debug.nes")
		if err != nil {
			return fmt.Errorf("creating debug file: %w", err)
		}
		defer func() {
			_ = outputFile.Close()
		}()
	} else {
		outputFile, err = os.CreateTemp("", filePart+".*.nes")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		defer func() {
			_ = os.Remove(outputFile.Name())
		}()
	}

	if err := assembleFile(ctx, opts, app, filePart, outputFile.Name()); err != nil {
		return err
	}

	source, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("reading source file for comparison: %w", err)
	}

	destination, err := os.ReadFile(outputFile.Name())
	if err != nil {
		return fmt.Errorf("reading destination file for comparison: %w", err)
	}

	if opts.Binary {
		// a headerless input is compared byte by byte
		if err := checkBufferEqual(logger, source, destination); err != nil {
			return fmt.Errorf("data mismatch: %w", err)
		}
		return nil
	}

	if err = compareCartridgeDetails(logger, source, destination); err != nil {
		return fmt.Errorf("comparing cartridge details: %w", err)
	}
	return nil
}

// assembleFile reassembles the generated output file into a ROM using the
// external assembler matching the chosen compatibility mode.
func assembleFile(ctx context.Context, opts options.Program, app *program.Program,
	filePart, outputFile string) error {

	switch opts.Assembler {
	case assembler.Asm6:
		if err := asm6.AssembleUsingExternalApp(ctx, opts.Output, outputFile); err != nil {
			return fmt.Errorf("reassembling .nes file using asm6 failed: %w", err)
		}

	case assembler.Ca65:
		objectFile, err := os.CreateTemp("", filePart+".*.o")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		defer func() {
			_ = os.Remove(objectFile.Name())
		}()

		if err = ca65.AssembleUsingExternalApp(ctx, opts.Output, objectFile.Name(), outputFile, app); err != nil {
			return fmt.Errorf("reassembling .nes file using ca65 failed: %w", err)
		}

	case assembler.Nesasm:
		if err := nesasm.AssembleUsingExternalApp(ctx, opts.Output, outputFile); err != nil {
			return fmt.Errorf("reassembling .nes file using nesasm failed: %w", err)
		}

	default:
		return fmt.Errorf("unsupported assembler '%s'", opts.Assembler)
	}

	return nil
}

func checkBufferEqual(logger *log.Logger, input, output []byte) error {
	if len(input) != len(output) {
		return fmt.Errorf("mismatched lengths, %d != %d", len(input), len(output))
	}

	var diffs uint64
	for i := range input {
		if input[i] == output[i] {
			continue
		}

		diffs++
		if diffs < 10 {
			logger.Error("Offset mismatch",
				log.Hex("offset", i),
				log.Hex("expected", input[i]),
				log.Hex("got", output[i]))
		}
	}
	if diffs == 0 {
		return nil
	}
	return fmt.Errorf("%d offset mismatches", diffs)
}

func compareCartridgeDetails(logger *log.Logger, input, output []byte) error {
	inputReader := bytes.NewReader(input)
	outputReader := bytes.NewReader(output)

	cart1, err := cartridge.LoadFile(inputReader)
	if err != nil {
		return fmt.Errorf("loading cartridge file: %w", err)
	}
	cart2, err := cartridge.LoadFile(outputReader)
	if err != nil {
		return fmt.Errorf("loading cartridge file: %w", err)
	}

	if err := checkBufferEqual(logger, cart1.PRG, cart2.PRG); err != nil {
		return fmt.Errorf("segment PRG mismatch: %w", err)
	}
	if err := checkBufferEqual(logger, cart1.CHR, cart2.CHR); err != nil {
		return fmt.Errorf("segment CHR mismatch: %w", err)
	}
	if err := checkBufferEqual(logger, cart1.Trainer, cart2.Trainer); err != nil {
		return fmt.Errorf("trainer mismatch: %w", err)
	}
	if cart1.Mapper != cart2.Mapper {
		return fmt.Errorf("mapper mismatch, expected %d but got %d", cart1.Mapper, cart2.Mapper)
	}
	if cart1.Mirror != cart2.Mirror {
		return fmt.Errorf("mirror mismatch, expected %d but got %d", cart1.Mirror, cart2.Mirror)
	}
	if cart1.Battery != cart2.Battery {
		return fmt.Errorf("battery mismatch, expected %d but got %d", cart1.Battery, cart2.Battery)
	}
	return nil
}
