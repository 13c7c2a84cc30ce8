package ca65

import (
	"fmt"
	"strings"

	"github.com/retroenv/nesrevasm/internal/program"
)

const (
	memoryConfigPart1 = `
MEMORY {
    ZP:          start = $00,    size = $100,    type = rw, file = "";
    RAM:         start = $0200,  size = $600,    type = rw, file = "";
    HDR:         start = $0000,  size = $10,     type = ro, file = %O, fill = yes;
`

	memoryPrgBankTemplate = `    %-12s start = $%04X,  size = $%04X,   type = ro, file = %%O, fill = yes;
`

	memoryChrTemplate = `    CHR:         start = $0000,  size = $%04X,   type = ro, file = %%O, fill = yes;
`

	memoryConfigPart2 = `}

`

	segmentsConfigPart1 = `
SEGMENTS {
    ZEROPAGE:    load = ZP,  type = zp;
    OAM:         load = RAM, type = bss, start = $200, optional = yes;
    BSS:         load = RAM, type = bss;
    HEADER:      load = HDR, type = ro;
`

	segmentsPrgBankTemplate = `    %-12s load = %s, type = ro, start = $%04X;
`

	segmentsChr = `    TILES:       load = CHR, type = ro;
`

	segmentsConfigPart2 = `}
`
)

// GenerateMapperConfig generates a ca65 linker config based on the bank
// layout of the program. Every PRG bank becomes its own memory area and
// segment, filled up to the full bank size to restore trimmed zero bytes.
func GenerateMapperConfig(app *program.Program) (string, error) {
	buf := &strings.Builder{}
	buf.WriteString(memoryConfigPart1)

	for _, bank := range app.PRG {
		if _, err := fmt.Fprintf(buf, memoryPrgBankTemplate, bank.Name+":",
			bank.BaseAddress, len(bank.Offsets)); err != nil {

			return "", fmt.Errorf("writing memory bank line: %w", err)
		}
	}

	if len(app.CHR) > 0 {
		if _, err := fmt.Fprintf(buf, memoryChrTemplate, len(app.CHR)); err != nil {
			return "", fmt.Errorf("writing memory CHR line: %w", err)
		}
	}
	buf.WriteString(memoryConfigPart2)

	buf.WriteString(segmentsConfigPart1)

	for _, bank := range app.PRG {
		if _, err := fmt.Fprintf(buf, segmentsPrgBankTemplate, bank.Name+":",
			bank.Name, bank.BaseAddress); err != nil {

			return "", fmt.Errorf("writing segment bank line: %w", err)
		}
	}

	for _, bank := range app.PRG {
		if !bank.HasVectors() {
			continue
		}
		if _, err := fmt.Fprintf(buf, segmentsPrgBankTemplate, vectorSegmentName(bank)+":",
			bank.Name, bank.VectorsAddress); err != nil {

			return "", fmt.Errorf("writing vector segment line: %w", err)
		}
	}

	if len(app.CHR) > 0 {
		buf.WriteString(segmentsChr)
	}
	buf.WriteString(segmentsConfigPart2)

	return buf.String(), nil
}

// vectorSegmentName returns the name of the vector table segment of a bank,
// matching the segment names that the assembly file writer emits.
func vectorSegmentName(bank *program.PRGBank) string {
	if bank.Handlers.Reset != "" {
		return "VECTORS"
	}
	return fmt.Sprintf("VECTORS_%d", bank.Number)
}
