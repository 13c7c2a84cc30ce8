package nesasm

import (
	"fmt"
	"io"

	"github.com/retroenv/nesrevasm/internal/program"
)

// pageSize is the size of a nesasm bank page, larger PRG banks are written
// as multiple pages to avoid the error "Bank overflow, offset > $1FFF".
const pageSize = 0x2000

// addBankSelectors assigns a bank selector directive to every page boundary
// offset. The selectors are emitted by a write callback before the offset
// content, it returns the number of pages used by the PRG banks.
func addBankSelectors(prg []*program.PRGBank) int {
	page := 0

	for _, bank := range prg {
		for index := 0; index < len(bank.Offsets); index += pageSize {
			setBankSelector(bank, index, page)
			page++
		}
	}
	return page
}

// setBankSelector sets the bank selector callback on the offset at the given
// index. A page boundary in the middle of an instruction or a combined data
// range converts it to single data bytes, the following page needs to start
// at a new output line.
func setBankSelector(bank *program.PRGBank, index, page int) {
	offset := &bank.Offsets[index]

	if len(offset.Data) == 0 {
		splitAtIndex(bank, index)
	}

	address := int(bank.BaseAddress) + index
	offset.WriteCallback = writeBankSelector(page, address)
}

// splitAtIndex converts the instruction or combined data range that contains
// the index to single data bytes.
func splitAtIndex(bank *program.PRGBank, index int) {
	start := index - 1
	for len(bank.Offsets[start].Data) == 0 {
		start--
	}

	first := &bank.Offsets[start]
	if first.Code != "" {
		first.Comment = fmt.Sprintf("bank switch in instruction detected: %s  %s",
			first.Comment, first.Code)
	}

	data := first.Data
	for i := range data {
		offset := &bank.Offsets[start+i]
		offset.Data = data[i : i+1]
		offset.Code = ""
		offset.ClearType(program.CodeOffset)
		offset.SetType(program.CodeAsData | program.DataOffset)
	}
}

// writeBankSelector returns a callback that writes the bank selector and
// origin directives of a page.
func writeBankSelector(page, address int) func(writer io.Writer) error {
	return func(writer io.Writer) error {
		if _, err := fmt.Fprintf(writer, "\n .bank %d\n", page); err != nil {
			return fmt.Errorf("writing bank selector: %w", err)
		}
		if _, err := fmt.Fprintf(writer, " .org $%04x\n\n", address); err != nil {
			return fmt.Errorf("writing bank origin: %w", err)
		}
		return nil
	}
}
