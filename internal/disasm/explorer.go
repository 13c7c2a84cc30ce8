package disasm

import (
	"fmt"

	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/retrogolib/arch/cpu/m6502"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
)

// edgeKind classifies a control flow edge.
type edgeKind uint8

const (
	edgeFallthrough edgeKind = iota
	edgeBranchTaken
	edgeJump
	edgeCall
	edgeIndirectUnresolved // indirect jump, the target is only known at runtime
)

// controlFlowEdge describes one control transfer between two instructions.
type controlFlowEdge struct {
	from uint16
	to   uint16 // 0 for unresolved indirect jumps
	kind edgeKind
}

// crossReference is an instruction referencing an address in the frozen
// fixed bank view.
type crossReference struct {
	from   uint16
	target uint16
}

// analysis owns the disassembly state of one address window, either the
// always mapped fixed banks or one switchable bank.
type analysis struct {
	dis  *Disasm
	bank *bankView

	// frozen fixed bank analysis consulted read-only for cross bank
	// references, nil when analyzing the fixed banks themselves
	fixed *analysis

	offsetsToParse      []uint16
	offsetsToParseAdded set.Set[uint16]

	outgoing map[uint16][]controlFlowEdge

	subroutineEntries  map[uint16]struct{}
	branchDestinations map[uint16]struct{}
	dataReferences     map[uint16][]uint16
	crossReferences    []crossReference

	handlerAddresses [3]uint16
	handlers         program.Handlers
}

// newAnalysis creates the analysis state for one bank view.
func newAnalysis(dis *Disasm, bank *bankView, fixed *analysis) *analysis {
	return &analysis{
		dis:                 dis,
		bank:                bank,
		fixed:               fixed,
		offsetsToParseAdded: set.New[uint16](),
		outgoing:            map[uint16][]controlFlowEdge{},
		subroutineEntries:   map[uint16]struct{}{},
		branchDestinations:  map[uint16]struct{}{},
		dataReferences:      map[uint16][]uint16{},
	}
}

// run executes all analysis passes of the bank in order: the execution flow
// exploration, the conversion of instructions that are branched into, the
// subroutine validation, the data fill and finally the label assignment.
func (a *analysis) run() error {
	if err := a.followExecutionFlow(); err != nil {
		return fmt.Errorf("following execution flow: %w", err)
	}
	a.handleJumpsIntoInstructions()

	if !a.dis.options.NoSubroutineCheck {
		a.validateSubroutines()
	}

	a.processData()
	a.processJumpDestinations()
	if err := a.processDataReferences(); err != nil {
		return fmt.Errorf("processing data references: %w", err)
	}
	a.processCrossReferences()
	return nil
}

// followExecutionFlow parses instructions and follows their execution flow
// to classify all reachable code. Every address is classified at most once,
// the first classification wins and also terminates cyclic flows.
func (a *analysis) followExecutionFlow() error {
	for address, ok := a.addressToDisassemble(); ok; address, ok = a.addressToDisassemble() {
		offsetInfo := a.bank.offsetInfo(address)
		if offsetInfo.IsType(program.CodeOffset | program.DataOffset) {
			continue
		}

		inst, err := a.decodeInstructionAt(address)
		if err != nil {
			// an invalid opcode ends this execution path, the bytes stay
			// unclassified and are later emitted as data
			a.dis.logger.Debug("Invalid instruction",
				log.String("address", fmt.Sprintf("0x%04X", address)),
				log.Err(err))
			continue
		}

		if a.checkInstructionOverlap(offsetInfo, address, inst) {
			continue
		}

		offsetInfo.opcode = inst.opcode
		offsetInfo.Data = inst.data
		offsetInfo.Code = inst.code()

		a.processSuccessors(address, inst)
		a.changeAddressRangeToCode(address, inst.data)
	}
	return nil
}

// addressToDisassemble returns the next address of the worklist.
func (a *analysis) addressToDisassemble() (uint16, bool) {
	if len(a.offsetsToParse) == 0 {
		return 0, false
	}
	address := a.offsetsToParse[0]
	a.offsetsToParse = a.offsetsToParse[1:]
	return address, true
}

// addAddressToParse queues an address, addresses outside of the bank window
// or already queued ones are skipped.
func (a *analysis) addAddressToParse(address uint16) {
	if !a.bank.contains(address) {
		return
	}
	if a.offsetsToParseAdded.Contains(address) {
		return
	}
	a.offsetsToParseAdded.Add(address)
	a.offsetsToParse = append(a.offsetsToParse, address)
}

// processSuccessors records the control flow edges of the instruction and
// queues the successor addresses.
func (a *analysis) processSuccessors(address uint16, inst decodedInstruction) {
	name := inst.opcode.Instruction.Name
	followingAddress := address + uint16(len(inst.data))

	switch {
	case name == m6502.Jsr.Name:
		a.addEdge(address, inst.target, edgeCall)
		a.markSubroutineEntry(inst.target)
		a.addReferencedTarget(address, inst.target)
		a.addEdge(address, followingAddress, edgeFallthrough)
		a.addAddressToParse(followingAddress)

	case name == m6502.Jmp.Name && inst.opcode.Addressing == m6502.IndirectAddressing:
		// the jump target is read from memory at runtime, the execution
		// flow ends here and the pointer location is treated as data
		a.addEdge(address, 0, edgeIndirectUnresolved)
		a.addDataReference(inst.target, address)

	case name == m6502.Jmp.Name:
		a.addEdge(address, inst.target, edgeJump)
		a.addReferencedTarget(address, inst.target)

	case inst.opcode.Addressing == m6502.RelativeAddressing:
		a.addEdge(address, inst.target, edgeBranchTaken)
		a.addReferencedTarget(address, inst.target)
		a.addEdge(address, followingAddress, edgeFallthrough)
		a.addAddressToParse(followingAddress)

	case isFlowTerminating(name):

	default:
		a.addEdge(address, followingAddress, edgeFallthrough)
		a.addAddressToParse(followingAddress)
		if inst.hasTarget && accessesMemory(inst.opcode) {
			a.addDataReference(inst.target, address)
		}
	}
}

// addEdge records a control flow edge of an instruction. Targets that are
// neither mapped by the bank nor by the frozen fixed banks are dropped, the
// explorer never follows them.
func (a *analysis) addEdge(from, to uint16, kind edgeKind) {
	if kind != edgeIndirectUnresolved && !a.bank.contains(to) && !a.fixedContains(to) {
		a.dis.logger.Debug("Control flow target out of range",
			log.String("from", fmt.Sprintf("0x%04X", from)),
			log.String("to", fmt.Sprintf("0x%04X", to)))
		return
	}
	a.outgoing[from] = append(a.outgoing[from], controlFlowEdge{from: from, to: to, kind: kind})
}

// addReferencedTarget registers a branch, jump or call target. Targets inside
// the bank are queued for exploration, targets in the frozen fixed bank view
// are remembered for the label substitution pass.
func (a *analysis) addReferencedTarget(from, target uint16) {
	switch {
	case a.bank.contains(target):
		offsetInfo := a.bank.offsetInfo(target)
		offsetInfo.branchFrom = append(offsetInfo.branchFrom, from)
		a.branchDestinations[target] = struct{}{}
		a.addAddressToParse(target)

	case a.fixedContains(target):
		a.crossReferences = append(a.crossReferences, crossReference{from: from, target: target})
	}
}

// markSubroutineEntry flags a call target as subroutine entry.
func (a *analysis) markSubroutineEntry(target uint16) {
	if !a.bank.contains(target) {
		return
	}
	a.bank.offsetInfo(target).SetType(program.CallDestination)
	a.subroutineEntries[target] = struct{}{}
}

// addDataReference remembers that an instruction operand references the
// address. Only addresses inside of the mapped ROM windows are referenced by
// label, everything else stays an address literal.
func (a *analysis) addDataReference(target, from uint16) {
	if !a.bank.contains(target) && !a.fixedContains(target) {
		return
	}
	a.dataReferences[target] = append(a.dataReferences[target], from)
}

// fixedContains returns whether the address is mapped by the frozen fixed
// bank view.
func (a *analysis) fixedContains(address uint16) bool {
	return a.fixed != nil && a.fixed.bank.contains(address)
}

// checkInstructionOverlap cuts an instruction short if it overlaps with bytes
// that an earlier execution path already classified, the first classification
// wins. The remaining instruction bytes are converted to data.
func (a *analysis) checkInstructionOverlap(offsetInfo *offsetInfo, address uint16, inst decodedInstruction) bool {
	for i := 1; i < len(inst.data); i++ {
		following := a.bank.offsetInfo(address + uint16(i))
		if !following.IsType(program.CodeOffset) {
			continue
		}

		following.Comment = "branch into instruction detected"
		offsetInfo.Comment = inst.code()
		offsetInfo.Data = inst.data[:i]
		a.changeAddressRangeToData(address, offsetInfo.Data)
		return true
	}
	return false
}

// handleJumpsIntoInstructions converts instructions that have a branch
// destination pointing into their second or third opcode byte to data, the
// destination needs to start a new output line.
func (a *analysis) handleJumpsIntoInstructions() {
	for _, address := range sortedKeys(a.branchDestinations) {
		offsetInfo := a.bank.offsetInfo(address)
		if !offsetInfo.IsType(program.CodeOffset) || len(offsetInfo.Data) != 0 {
			continue
		}
		a.handleJumpIntoInstruction(address)
	}
}

// handleJumpIntoInstruction converts the instruction surrounding the branch
// destination to data.
func (a *analysis) handleJumpIntoInstruction(address uint16) {
	// look backwards for the instruction start
	start := address - 1
	for len(a.bank.offsetInfo(start).Data) == 0 {
		start--
	}

	offsetInfo := a.bank.offsetInfo(start)
	offsetInfo.Comment = fmt.Sprintf("branch into instruction detected: %s", offsetInfo.Code)
	offsetInfo.Code = ""
	delete(a.outgoing, start)

	data := offsetInfo.Data
	a.changeAddressRangeToData(start, data)
}

// changeAddressRangeToCode sets a range of offsets to code types.
func (a *analysis) changeAddressRangeToCode(address uint16, data []byte) {
	for i := range data {
		a.bank.offsetInfo(address + uint16(i)).SetType(program.CodeOffset)
	}
}

// changeAddressRangeToData sets a range of offsets to data types. It combines
// all data bytes into the first offset, ranges are split at offsets that have
// a label assigned or are a branch destination to let them start a new line.
func (a *analysis) changeAddressRangeToData(address uint16, data []byte) {
	for i := 0; i < len(data); {
		offsetInfo := a.bank.offsetInfo(address + uint16(i))

		bytes := []byte{data[i]}
		for j := i + 1; j < len(data); j++ {
			followingAddress := address + uint16(j)
			following := a.bank.offsetInfo(followingAddress)
			if following.Label != "" {
				break
			}
			if _, ok := a.branchDestinations[followingAddress]; ok {
				break
			}
			bytes = append(bytes, data[j])
		}

		offsetInfo.Data = bytes
		offsetInfo.ClearType(program.CodeOffset)
		offsetInfo.SetType(program.CodeAsData | program.DataOffset)

		for j := 1; j < len(bytes); j++ {
			following := a.bank.offsetInfo(address + uint16(i+j))
			following.Data = nil
			following.Code = ""
			following.ClearType(program.CodeOffset)
			following.SetType(program.CodeAsData | program.DataOffset)
		}

		i += len(bytes)
	}
}

// processData fills all unclassified offsets with their ROM byte as data, the
// program conversion later types them as data offsets.
func (a *analysis) processData() {
	for i := range a.bank.offsets {
		offsetInfo := &a.bank.offsets[i]
		if offsetInfo.IsType(program.CodeOffset | program.DataOffset) {
			continue
		}
		offsetInfo.Data = []byte{a.bank.data[i]}
	}
}

// isFlowTerminating returns whether the instruction stops the linear
// execution flow, the following bytes are not reachable through it.
func isFlowTerminating(name string) bool {
	_, ok := m6502.NotExecutingFollowingOpcodeInstructions[name]
	return ok
}

// accessesMemory returns whether the instruction reads or writes the memory
// location of its parameter.
func accessesMemory(opcode m6502.Opcode) bool {
	if opcode.ReadsMemory(m6502.MemoryReadInstructions) {
		return true
	}
	if opcode.WritesMemory(m6502.MemoryWriteInstructions) {
		return true
	}
	return opcode.ReadWritesMemory(m6502.MemoryReadWriteInstructions)
}
