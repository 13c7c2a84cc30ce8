// Package assembler defines the available assembler output formats.
package assembler

import (
	"io"
)

const (
	Asm6   = "asm6"
	Ca65   = "ca65"
	Nesasm = "nesasm"
)

// NewBankWriter is a callback that creates a new output file for a bank of
// ROMs that have multiple PRG banks. It returns the writer and the file name
// that the main output file references in an include directive.
type NewBankWriter func(bankName string) (io.WriteCloser, string, error)
