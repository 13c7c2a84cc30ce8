// Package options contains the program options.
package options

import (
	"strings"

	"github.com/retroenv/retrogolib/arch/system/nes/parameter"
)

// Program options of the command line interface.
type Program struct {
	Input  string
	Output string
	Batch  string

	Assembler string // what assembler format to generate
	Config    string // ca65 linker config file to write

	Binary  bool
	Debug   bool
	Info    bool
	Quiet   bool
	Verify  bool
	Version bool
}

// Disassembler defines options to control the disassembler.
type Disassembler struct {
	Assembler string // what assembler format to generate

	Binary         bool
	CodeOnly       bool
	HexComments    bool
	OffsetComments bool
	Parallel       bool
	ZeroBytes      bool

	BankSize   int // switchable PRG bank size in bytes, 0 = mapper default
	FixedBanks int // fixed banks at the top of the address space, -1 = mapper default

	NoSubroutineCheck bool   // keep the explorer classification as final
	MinSubroutineSize int    // minimum instructions for a valid subroutine
	SubroutineEndings string // extra valid subroutine ending mnemonics, comma separated

	ExtractCHR bool   // write CHR content to a separate file
	ChrFile    string // name of the extracted CHR file, referenced by an include

	SplitBanks bool // write each PRG bank to its own output file

	ParamConfig parameter.Config // assembler specific parameter syntax
}

// NewDisassembler returns a new options instance with default options.
func NewDisassembler(assemblerName string) Disassembler {
	return Disassembler{
		Assembler:         strings.ToLower(assemblerName),
		HexComments:       true,
		OffsetComments:    true,
		FixedBanks:        -1,
		MinSubroutineSize: 2,
	}
}
