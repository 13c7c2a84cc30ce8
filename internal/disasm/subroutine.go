package disasm

import (
	"fmt"
	"slices"

	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/retrogolib/log"
)

// validateSubroutines checks all call destinations for whether they look like
// real code and demotes the ones that do not back to data. It is a single
// finalization pass over the explorer results, a demotion never triggers a
// new exploration.
func (a *analysis) validateSubroutines() {
	entries := a.subroutineEntryList()
	if len(entries) == 0 {
		return
	}

	entrySet := make(map[uint16]struct{}, len(entries))
	for _, entry := range entries {
		entrySet[entry] = struct{}{}
	}

	// count the owners of every instruction, instructions reachable from
	// multiple entries are shared and belong to no subroutine exclusively
	owned := make(map[uint16][]uint16, len(entries))
	ownerCount := map[uint16]int{}
	for _, entry := range entries {
		instructions := a.collectSubroutine(entry, entrySet)
		owned[entry] = instructions
		for _, address := range instructions {
			ownerCount[address]++
		}
	}

	for _, entry := range entries {
		instructions := owned[entry][:0]
		for _, address := range owned[entry] {
			if ownerCount[address] == 1 {
				instructions = append(instructions, address)
			}
		}

		terminal := a.subroutineTerminal(instructions)
		if len(instructions) >= a.dis.options.MinSubroutineSize && a.endingAllowed(terminal) {
			continue
		}

		a.dis.logger.Debug("Demoting subroutine",
			log.String("entry", fmt.Sprintf("0x%04X", entry)),
			log.Int("instructions", len(instructions)),
			log.String("terminal", terminal))
		a.demoteSubroutine(instructions)
	}
}

// subroutineEntryList returns all call destinations in ascending address
// order. The interrupt handlers are not validated, they are entered by the
// hardware instead of a call instruction.
func (a *analysis) subroutineEntryList() []uint16 {
	entries := make([]uint16, 0, len(a.subroutineEntries))
	for entry := range a.subroutineEntries {
		if a.isVectorHandler(entry) {
			continue
		}
		entries = append(entries, entry)
	}
	slices.Sort(entries)
	return entries
}

// collectSubroutine returns all instruction addresses reachable from the
// entry without crossing the entry of another subroutine, in ascending
// address order. Call edges are not followed, the callee is its own
// subroutine.
func (a *analysis) collectSubroutine(entry uint16, entries map[uint16]struct{}) []uint16 {
	visited := map[uint16]struct{}{}
	queue := []uint16{entry}

	for len(queue) > 0 {
		address := queue[0]
		queue = queue[1:]

		if _, ok := visited[address]; ok {
			continue
		}
		offsetInfo := a.bank.offsetInfo(address)
		if !offsetInfo.IsType(program.CodeOffset) || len(offsetInfo.Data) == 0 {
			continue
		}
		visited[address] = struct{}{}

		for _, edge := range a.outgoing[address] {
			if edge.kind == edgeCall || edge.kind == edgeIndirectUnresolved {
				continue
			}
			if !a.bank.contains(edge.to) {
				continue
			}
			if _, other := entries[edge.to]; other && edge.to != entry {
				continue
			}
			queue = append(queue, edge.to)
		}
	}

	instructions := make([]uint16, 0, len(visited))
	for address := range visited {
		instructions = append(instructions, address)
	}
	slices.Sort(instructions)
	return instructions
}

// subroutineTerminal returns the mnemonic of the terminal instruction of the
// subroutine, the first owned instruction in ascending address order that has
// no outgoing edge leading back into the owned instruction set. Subroutines
// that loop over all of their instructions use the last instruction as
// terminal.
func (a *analysis) subroutineTerminal(instructions []uint16) string {
	if len(instructions) == 0 {
		return ""
	}

	ownedSet := make(map[uint16]struct{}, len(instructions))
	for _, address := range instructions {
		ownedSet[address] = struct{}{}
	}

	for _, address := range instructions {
		internal := false
		for _, edge := range a.outgoing[address] {
			if edge.kind == edgeCall || edge.kind == edgeIndirectUnresolved {
				continue
			}
			if _, ok := ownedSet[edge.to]; ok {
				internal = true
				break
			}
		}
		if !internal {
			return a.bank.offsetInfo(address).opcode.Instruction.Name
		}
	}
	return a.bank.offsetInfo(instructions[len(instructions)-1]).opcode.Instruction.Name
}

// endingAllowed returns whether the mnemonic is a valid subroutine ending.
func (a *analysis) endingAllowed(terminal string) bool {
	_, ok := a.dis.allowedEndings[terminal]
	return ok
}

// demoteSubroutine reverts the instruction bytes that the invalid subroutine
// exclusively owns back to data.
func (a *analysis) demoteSubroutine(instructions []uint16) {
	for _, address := range instructions {
		offsetInfo := a.bank.offsetInfo(address)
		data := offsetInfo.Data

		offsetInfo.Code = ""
		offsetInfo.ClearType(program.CodeOffset | program.CallDestination)
		delete(a.outgoing, address)

		a.changeAddressRangeToData(address, data)
	}
}
