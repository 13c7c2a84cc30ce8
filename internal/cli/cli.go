// Package cli handles command line interface logic.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/options"
)

// ParseFlags parses command line flags and returns program and disassembler
// options.
func ParseFlags() (options.Program, options.Disassembler, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var opts options.Program
	var disasmFlags disassemblerFlags
	readOptionFlags(flags, &opts)
	readDisasmOptionFlags(flags, &disasmFlags)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || (len(args) == 0 && opts.Batch == "" && !opts.Version) {
		usageErr := &UsageError{flags: flags}
		if err != nil && !errors.Is(err, flag.ErrHelp) {
			usageErr.msg = err.Error()
		}
		return opts, options.Disassembler{}, usageErr
	}

	if err := validateArgs(args); err != nil {
		return opts, options.Disassembler{}, err
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, options.Disassembler{}, err
	}

	if opts.Batch == "" && len(args) > 0 {
		opts.Input = args[0]
	}

	disasmOptions, err := createDisasmOptions(opts, disasmFlags)
	if err != nil {
		return opts, options.Disassembler{}, err
	}

	return opts, disasmOptions, nil
}

// UsageError represents an error that should show usage information.
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	if e.msg != "" {
		fmt.Printf("%s\n\n", e.msg)
	}
	fmt.Printf("usage: nesrevasm [options] <file to disassemble>\n\n")
	if e.flags != nil {
		e.flags.SetOutput(os.Stdout)
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// disassemblerFlags collects the raw disassembler flag values, they are
// converted to disassembler options after parsing.
type disassemblerFlags struct {
	bankSize          string
	fixedBanks        int
	minSubroutineSize int
	subroutineEndings string
	noSubroutineCheck bool

	extractCHR bool
	parallel   bool

	noHexComments bool
	noOffsets     bool
	zeroBytes     bool
}

// validateArgs checks if arguments are in correct order.
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after file to disassemble, "+
					"please pass the file to disassemble as last argument", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values.
func normalizeOptions(opts *options.Program) error {
	opts.Assembler = strings.ToLower(opts.Assembler)
	if opts.Assembler == "asm6f" {
		opts.Assembler = assembler.Asm6
	}

	validAssemblers := []string{assembler.Asm6, assembler.Ca65, assembler.Nesasm}
	for _, valid := range validAssemblers {
		if opts.Assembler == valid {
			return nil
		}
	}

	return fmt.Errorf("unsupported assembler: %s. Valid options: %s",
		opts.Assembler, strings.Join(validAssemblers, ", "))
}

// createDisasmOptions creates disassembler options based on the program
// options and the parsed disassembler flags.
func createDisasmOptions(opts options.Program, flags disassemblerFlags) (options.Disassembler, error) {
	disasmOptions := options.NewDisassembler(opts.Assembler)
	disasmOptions.Binary = opts.Binary

	disasmOptions.HexComments = !flags.noHexComments
	disasmOptions.OffsetComments = !flags.noOffsets
	disasmOptions.ZeroBytes = flags.zeroBytes
	disasmOptions.Parallel = flags.parallel
	disasmOptions.ExtractCHR = flags.extractCHR

	disasmOptions.NoSubroutineCheck = flags.noSubroutineCheck
	disasmOptions.MinSubroutineSize = flags.minSubroutineSize
	disasmOptions.SubroutineEndings = flags.subroutineEndings
	disasmOptions.FixedBanks = flags.fixedBanks

	bankSize, err := parseBankSize(flags.bankSize)
	if err != nil {
		return disasmOptions, err
	}
	disasmOptions.BankSize = bankSize

	return disasmOptions, nil
}

// parseBankSize converts the bank size flag value in KB to bytes.
func parseBankSize(value string) (int, error) {
	if value == "" {
		return 0, nil
	}

	size, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid bank size '%s': %w", value, err)
	}

	switch size {
	case 8, 16, 32:
		return size * 1024, nil
	default:
		return 0, fmt.Errorf("unsupported bank size %d KB, supported sizes: 8, 16, 32", size)
	}
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Output, "o", "", "name of the output .asm file, printed on console if no name given")
	flags.StringVar(&opts.Assembler, "a", assembler.Ca65, "assembler compatibility of the generated .asm file (asm6/ca65/nesasm)")
	flags.StringVar(&opts.Config, "c", "", "config file name to write for the ca65 linker")
	flags.StringVar(&opts.Batch, "batch", "", "process a batch of given path and file mask and automatically .asm file naming, for example *.nes")
	flags.BoolVar(&opts.Binary, "binary", false, "read input file as raw binary file without any header")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Info, "info", false, "print ROM header and bank layout info instead of disassembling")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
	flags.BoolVar(&opts.Verify, "verify", false, "verify the generated output by assembling with the chosen assembler and check if it matches the input")
	flags.BoolVar(&opts.Version, "version", false, "print version")
}

func readDisasmOptionFlags(flags *flag.FlagSet, disasmFlags *disassemblerFlags) {
	flags.StringVar(&disasmFlags.bankSize, "bank-size", "", "switchable PRG bank size in KB (8/16/32), auto-detected from the mapper if not set")
	flags.IntVar(&disasmFlags.fixedBanks, "fixed-banks", -1, "number of fixed banks at the top of the address space, auto-detected from the mapper if negative")
	flags.IntVar(&disasmFlags.minSubroutineSize, "min-sub", 2, "minimum number of instructions for a subroutine to be valid")
	flags.StringVar(&disasmFlags.subroutineEndings, "sub-endings", "", "extra valid subroutine ending mnemonics, comma separated")
	flags.BoolVar(&disasmFlags.noSubroutineCheck, "no-sub-check", false, "disable the subroutine validation")
	flags.BoolVar(&disasmFlags.extractCHR, "chr", false, "extract the CHR ROM into a separate file")
	flags.BoolVar(&disasmFlags.parallel, "parallel", false, "analyze the switchable banks in parallel")
	flags.BoolVar(&disasmFlags.noHexComments, "nohexcomments", false, "do not output opcode bytes as hex values in comments")
	flags.BoolVar(&disasmFlags.noOffsets, "nooffsets", false, "do not output offsets in comments")
	flags.BoolVar(&disasmFlags.zeroBytes, "z", false, "output the trailing zero bytes of banks")
}
