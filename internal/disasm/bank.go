package disasm

import (
	"fmt"

	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/retrogolib/arch/system/nes"
)

const vectorTableSize = 6

// bankView is the view of a bank mapped into the CPU address space.
type bankView struct {
	number int
	fixed  bool
	base   uint16

	data    []byte
	offsets []offsetInfo
}

// contains returns whether the address is mapped by the bank.
func (b *bankView) contains(address uint16) bool {
	return address >= b.base && int(address) < int(b.base)+len(b.data)
}

// index returns the bank internal index of the address.
func (b *bankView) index(address uint16) int {
	return int(address - b.base)
}

// offsetInfo returns the offset info of the address.
func (b *bankView) offsetInfo(address uint16) *offsetInfo {
	return &b.offsets[address-b.base]
}

// initializeBanks builds the analysis for the fixed bank address space and
// for every switchable bank. The interrupt vectors are read from the top of
// the last PRG bank which is mapped at power on.
func (dis *Disasm) initializeBanks() error {
	prg := dis.cart.PRG
	bankSize := dis.layout.BankSize
	switchableBanks := dis.layout.SwitchableBanks()

	nmi, reset, irq := readVectors(prg)
	if dis.options.Binary {
		reset = nes.CodeBaseAddress
	}

	if dis.layout.FixedBanks > 0 {
		size := dis.layout.FixedBanks * bankSize
		base := dis.layout.FixedBase()

		// some ROMs mirror a PRG smaller than the fixed window and use the
		// lower mirror as code base, for example "M.U.S.C.L.E."
		if switchableBanks == 0 && reset < base && reset >= nes.CodeBaseAddress {
			base = nes.CodeBaseAddress
		}

		view := &bankView{
			number:  switchableBanks,
			fixed:   true,
			base:    base,
			data:    prg[len(prg)-size:],
			offsets: make([]offsetInfo, size),
		}
		dis.fixed = newAnalysis(dis, view, nil)
		dis.codeBaseAddress = base
		dis.vectorsStartAddress = base + uint16(size) - vectorTableSize

		dis.fixed.initializeVectors(nmi, reset, irq)
	} else {
		dis.codeBaseAddress = dis.layout.SwitchableBase()
		dis.vectorsStartAddress = dis.codeBaseAddress + uint16(bankSize) - vectorTableSize
	}

	base := dis.layout.SwitchableBase()
	for i := range switchableBanks {
		view := &bankView{
			number:  i,
			base:    base,
			data:    prg[i*bankSize : (i+1)*bankSize],
			offsets: make([]offsetInfo, bankSize),
		}
		bnk := newAnalysis(dis, view, dis.fixed)

		if dis.layout.FixedBanks == 0 {
			// every bank maps the vector window and carries its own vectors
			bankNmi, bankReset, bankIrq := readVectors(view.data)
			if i == switchableBanks-1 {
				bnk.initializeVectors(bankNmi, bankReset, bankIrq)
			} else {
				bnk.seedVectors(bankNmi, bankReset, bankIrq)
			}
		}
		bnk.addAddressToParse(base)

		dis.switchable = append(dis.switchable, bnk)
	}
	return nil
}

// readVectors reads the NMI, reset and IRQ vectors from the end of the data.
func readVectors(data []byte) (nmi, reset, irq uint16) {
	start := len(data) - vectorTableSize
	nmi = uint16(data[start]) | uint16(data[start+1])<<8
	reset = uint16(data[start+2]) | uint16(data[start+3])<<8
	irq = uint16(data[start+4]) | uint16(data[start+5])<<8
	return nmi, reset, irq
}

// initializeVectors sets the handler labels for the vectors of the power-on
// bank and queues the handler addresses.
func (a *analysis) initializeVectors(nmi, reset, irq uint16) {
	handlers := program.Handlers{
		NMI:   "0",
		Reset: "Reset",
		IRQ:   "0",
	}

	if nmi != 0 {
		if a.bank.contains(nmi) {
			offsetInfo := a.bank.offsetInfo(nmi)
			offsetInfo.Label = "NMI"
			offsetInfo.SetType(program.CallDestination)
			handlers.NMI = "NMI"
		} else {
			// the NMI handler lies outside of the mapped ROM window, for
			// example a RAM trampoline, the vector is emitted as an address
			// literal to keep the vector table bytes intact
			handlers.NMI = fmt.Sprintf("$%04X", nmi)
		}
	}

	if a.bank.contains(reset) {
		offsetInfo := a.bank.offsetInfo(reset)
		if offsetInfo.Label != "" {
			// reset and NMI use the same handler
			handlers.NMI = "Reset"
		}
		offsetInfo.Label = "Reset"
		offsetInfo.SetType(program.CallDestination)
	} else {
		// the reset handler lies outside of the mapped ROM window and is
		// emitted as an address literal
		handlers.Reset = fmt.Sprintf("$%04X", reset)
	}

	if irq != 0 {
		if a.bank.contains(irq) {
			offsetInfo := a.bank.offsetInfo(irq)
			if offsetInfo.Label != "" {
				handlers.IRQ = offsetInfo.Label
			} else {
				offsetInfo.Label = "IRQ"
				offsetInfo.SetType(program.CallDestination)
				handlers.IRQ = "IRQ"
			}
		} else {
			// same fallback as for the reset handler
			handlers.IRQ = fmt.Sprintf("$%04X", irq)
		}
	}

	a.handlerAddresses = [3]uint16{nmi, reset, irq}
	a.handlers = handlers
	a.dis.handlers = handlers

	a.addAddressToParse(nmi)
	a.addAddressToParse(reset)
	a.addAddressToParse(irq)
}

// seedVectors queues the vector handler addresses of a bank that maps the
// vector window but is not selected at power on. The handlers get regular
// code labels assigned, the vector table of the bank is emitted with address
// literals.
func (a *analysis) seedVectors(nmi, reset, irq uint16) {
	a.handlerAddresses = [3]uint16{nmi, reset, irq}

	for _, address := range []uint16{nmi, reset, irq} {
		if address == 0 || !a.bank.contains(address) {
			continue
		}
		a.branchDestinations[address] = struct{}{}
		a.addAddressToParse(address)
	}
}

// isVectorHandler returns whether the address is one of the interrupt
// handler addresses of the analyzed bank.
func (a *analysis) isVectorHandler(address uint16) bool {
	for _, handler := range a.handlerAddresses {
		if handler != 0 && handler == address {
			return true
		}
	}
	return false
}
