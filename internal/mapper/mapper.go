// Package mapper resolves the PRG bank layout of iNES mappers.
package mapper

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/arch/system/nes"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
)

// ErrUnsupportedMapper is returned when no bank layout default exists for the
// mapper of the cartridge and no explicit overrides are given.
var ErrUnsupportedMapper = errors.New("unsupported mapper configuration")

const addressSpaceEnd = 0x10000

// Layout describes the PRG bank layout of a cartridge.
type Layout struct {
	Mapper byte
	Name   string

	BankSize   int // PRG bank size in bytes
	Banks      int // total number of PRG banks
	FixedBanks int // banks fixed at the top of the address space
}

// Override contains explicit bank layout settings that take precedence over
// the mapper defaults.
type Override struct {
	BankSize   int // bank size in bytes, 0 = use mapper default
	FixedBanks int // number of fixed banks, -1 = use mapper default
}

// boardInfo describes the default bank layout of a mapper board.
type boardInfo struct {
	name       string
	bankSize   int
	fixedBanks int
	wholePRG   bool // PRG is not switchable, all banks are fixed
}

// boards maps iNES mapper numbers to their default bank layout.
var boards = map[byte]boardInfo{
	0:  {name: "NROM", wholePRG: true},
	1:  {name: "MMC1", bankSize: 0x4000, fixedBanks: 1},
	2:  {name: "UxROM", bankSize: 0x4000, fixedBanks: 1},
	3:  {name: "CNROM", wholePRG: true},
	4:  {name: "MMC3", bankSize: 0x2000, fixedBanks: 2},
	7:  {name: "AxROM", bankSize: 0x8000},
	11: {name: "Color Dreams", bankSize: 0x8000},
	30: {name: "UNROM 512", bankSize: 0x4000, fixedBanks: 1},
	34: {name: "BNROM", bankSize: 0x8000},
	66: {name: "GxROM", bankSize: 0x8000},
	69: {name: "FME-7", bankSize: 0x2000, fixedBanks: 1},
}

// ResolveLayout resolves the PRG bank layout of the cartridge from the board
// defaults of its mapper, applying the given overrides. It only interprets
// the header values and never inspects the PRG content.
func ResolveLayout(cart *cartridge.Cartridge, override Override) (Layout, error) {
	prgSize := len(cart.PRG)
	if prgSize == 0 {
		return Layout{}, errors.New("cartridge contains no PRG data")
	}

	board, known := boards[byte(cart.Mapper)]
	layout := Layout{
		Mapper: byte(cart.Mapper),
		Name:   board.name,
	}
	if !known {
		layout.Name = fmt.Sprintf("mapper %d", cart.Mapper)
	}

	switch {
	case override.BankSize > 0:
		layout.BankSize = override.BankSize
	case !known:
		return Layout{}, fmt.Errorf("%w: no bank size known for mapper %d, "+
			"set the bank size and fixed banks explicitly", ErrUnsupportedMapper, cart.Mapper)
	case board.wholePRG:
		layout.BankSize = wholeBankSize(prgSize)
	default:
		layout.BankSize = board.bankSize
	}

	switch layout.BankSize {
	case 0x2000, 0x4000, 0x8000:
	default:
		return Layout{}, fmt.Errorf("invalid bank size %d", layout.BankSize)
	}
	if prgSize%layout.BankSize != 0 {
		return Layout{}, fmt.Errorf("PRG size %d is not a multiple of the bank size %d",
			prgSize, layout.BankSize)
	}
	layout.Banks = prgSize / layout.BankSize

	switch {
	case override.FixedBanks >= 0:
		layout.FixedBanks = override.FixedBanks
	case !known:
		return Layout{}, fmt.Errorf("%w: fixed bank count for mapper %d unknown",
			ErrUnsupportedMapper, cart.Mapper)
	case board.wholePRG:
		layout.FixedBanks = layout.Banks
	default:
		layout.FixedBanks = board.fixedBanks
	}

	if layout.FixedBanks > layout.Banks {
		return Layout{}, fmt.Errorf("%d fixed banks exceed the %d banks of the ROM",
			layout.FixedBanks, layout.Banks)
	}
	if layout.FixedBanks*layout.BankSize > addressSpaceEnd-int(nes.CodeBaseAddress) {
		return Layout{}, fmt.Errorf("%d fixed banks of size %d exceed the addressable window",
			layout.FixedBanks, layout.BankSize)
	}
	return layout, nil
}

// wholeBankSize returns the largest valid bank size that divides the PRG
// evenly, boards without bank switching map the whole PRG as fixed banks.
func wholeBankSize(prgSize int) int {
	for _, size := range []int{0x8000, 0x4000, 0x2000} {
		if prgSize%size == 0 {
			return size
		}
	}
	return prgSize
}

// SwitchableBanks returns the number of switchable banks of the layout.
func (l Layout) SwitchableBanks() int {
	return l.Banks - l.FixedBanks
}

// FixedBase returns the base CPU address of the fixed bank window.
func (l Layout) FixedBase() uint16 {
	return uint16(addressSpaceEnd - l.FixedBanks*l.BankSize)
}

// SwitchableBase returns the base CPU address at which switchable banks are
// analyzed. Layouts without fixed banks map every bank at the top window so
// that each bank carries its own interrupt vectors.
func (l Layout) SwitchableBase() uint16 {
	if l.FixedBanks == 0 {
		return uint16(addressSpaceEnd - l.BankSize)
	}
	return nes.CodeBaseAddress
}

// String implements the fmt.Stringer interface.
func (l Layout) String() string {
	return fmt.Sprintf("%s: %d x %d KB PRG banks, %d fixed",
		l.Name, l.Banks, l.BankSize/1024, l.FixedBanks)
}
