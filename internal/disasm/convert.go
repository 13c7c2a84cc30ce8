package disasm

import (
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/nesrevasm/internal/program"
)

// convertToProgram converts the analysis results of all banks to a program
// that the assembler file writers can process. The banks appear in ROM order,
// the switchable banks first and the fixed banks at the top.
func (dis *Disasm) convertToProgram() (*program.Program, error) {
	app := program.New(dis.cart)
	app.CodeBaseAddress = dis.codeBaseAddress
	app.VectorsStartAddress = dis.vectorsStartAddress
	app.Handlers = dis.handlers
	app.ChrFile = dis.options.ChrFile

	for _, bnk := range dis.switchable {
		prgBank := program.NewPRGBank(bnk.bank.number, len(bnk.bank.offsets), bnk.bank.base)
		if dis.layout.FixedBanks == 0 {
			prgBank.VectorsAddress = dis.vectorsStartAddress
			nmi, reset, irq := readVectors(bnk.bank.data)
			prgBank.Vectors = [3]uint16{nmi, reset, irq}
			prgBank.Handlers = bnk.handlers
		}
		if err := dis.convertBankOffsets(prgBank, bnk.bank.offsets, bnk.bank.base); err != nil {
			return nil, err
		}
		app.PRG = append(app.PRG, prgBank)
	}

	if dis.fixed != nil {
		if err := dis.convertFixedBanks(app); err != nil {
			return nil, err
		}
	}

	for _, prgBank := range app.PRG {
		prgBank.Name = bankName(prgBank.Number, dis.layout.Banks)
	}

	setChecksums(app, dis.cart.PRG, dis.cart.CHR)
	return app, nil
}

// convertFixedBanks splits the fixed bank address space into output banks of
// the layout bank size, the last one maps the vector window.
func (dis *Disasm) convertFixedBanks(app *program.Program) error {
	bankSize := dis.layout.BankSize
	view := dis.fixed.bank

	for i := 1; i < dis.layout.FixedBanks; i++ {
		splitAtBankBoundary(view.offsets, i*bankSize)
	}

	for i := range dis.layout.FixedBanks {
		number := dis.layout.SwitchableBanks() + i
		base := view.base + uint16(i*bankSize)
		prgBank := program.NewPRGBank(number, bankSize, base)

		offsets := view.offsets[i*bankSize : (i+1)*bankSize]
		if err := dis.convertBankOffsets(prgBank, offsets, base); err != nil {
			return err
		}

		if i == dis.layout.FixedBanks-1 {
			prgBank.VectorsAddress = dis.vectorsStartAddress
			nmi, reset, irq := readVectors(view.data)
			prgBank.Vectors = [3]uint16{nmi, reset, irq}
			prgBank.Handlers = dis.handlers
		}
		app.PRG = append(app.PRG, prgBank)
	}
	return nil
}

// splitAtBankBoundary converts an instruction or combined data range that
// spans the boundary between two output banks to single data bytes, the
// banks are emitted as separate segments that cannot share an instruction.
func splitAtBankBoundary(offsets []offsetInfo, boundary int) {
	if len(offsets[boundary].Data) != 0 {
		return
	}

	start := boundary - 1
	for len(offsets[start].Data) == 0 {
		start--
	}

	first := &offsets[start]
	if first.Code != "" {
		first.Comment = fmt.Sprintf("bank boundary in instruction detected: %s", first.Code)
		first.branchingTo = ""
	}

	data := first.Data
	for i := range data {
		offsetInfo := &offsets[start+i]
		offsetInfo.Data = data[i : i+1]
		offsetInfo.Code = ""
		offsetInfo.ClearType(program.CodeOffset)
		offsetInfo.SetType(program.CodeAsData | program.DataOffset)
	}
}

// convertBankOffsets converts the analyzed offsets of one bank.
func (dis *Disasm) convertBankOffsets(prgBank *program.PRGBank, offsets []offsetInfo, base uint16) error {
	for i := range offsets {
		offsetInfo := &offsets[i]
		address := base + uint16(i)

		programOffset := offsetInfo.Offset
		programOffset.Address = address

		if offsetInfo.branchingTo != "" {
			programOffset.Code = fmt.Sprintf("%s %s", programOffset.Code, offsetInfo.branchingTo)
		}

		if offsetInfo.IsType(program.CodeOffset | program.CodeAsData) {
			if len(programOffset.Data) > 0 || programOffset.Label != "" {
				if err := setComment(address, &programOffset, dis.options); err != nil {
					return err
				}
			}
		} else {
			programOffset.SetType(program.DataOffset)
		}

		prgBank.Offsets[i] = programOffset
	}
	return nil
}

// setComment sets the address and hex comment of the offset, an existing
// comment is appended.
func setComment(address uint16, programOffset *program.Offset, opts options.Disassembler) error {
	var comments []string
	if opts.OffsetComments {
		programOffset.HasAddressComment = true
		comments = []string{fmt.Sprintf("$%04X", address)}
	}

	if opts.HexComments {
		hexCodeComment, err := programOffset.HexCodeComment()
		if err != nil {
			return fmt.Errorf("getting hex code comment: %w", err)
		}
		if hexCodeComment != "" {
			comments = append(comments, hexCodeComment)
		}
	}

	if programOffset.Comment != "" {
		comments = append(comments, programOffset.Comment)
	}
	programOffset.Comment = strings.Join(comments, "  ")
	return nil
}

// bankName returns the name of a bank segment in the output.
func bankName(number, banks int) string {
	if banks == 1 {
		return "CODE"
	}
	return fmt.Sprintf("PRG_BANK_%d", number)
}

// setChecksums calculates the CRC32 checksums that identify the ROM.
func setChecksums(app *program.Program, prg, chr []byte) {
	crc32q := crc32.MakeTable(crc32.IEEE)
	app.Checksums.PRG = crc32.Checksum(prg, crc32q)
	app.Checksums.CHR = crc32.Checksum(chr, crc32q)

	overall := make([]byte, 0, len(prg)+len(chr))
	overall = append(overall, prg...)
	overall = append(overall, chr...)
	app.Checksums.Overall = crc32.Checksum(overall, crc32q)
}
