package disasm

import (
	"fmt"
	"slices"

	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/retrogolib/arch/cpu/m6502"
	"github.com/retroenv/retrogolib/arch/system/nes/parameter"
)

const (
	funcNaming  = "func"
	labelNaming = "label"
	dataNaming  = "data"

	indexedSuffix = "_indexed"
)

// labelName builds a deterministic label name from the bank and address of
// the labeled offset. Fixed bank addresses are unique in the address space
// and carry no bank qualifier, switchable banks share their window and do.
func (a *analysis) labelName(kind string, address uint16) string {
	if a.bank.fixed {
		return fmt.Sprintf("_%s_%04x", kind, address)
	}
	return fmt.Sprintf("_%s_%d_%04x", kind, a.bank.number, address)
}

// processJumpDestinations assigns label names to all branch, jump and call
// targets and updates the referencing instructions to use them. The name
// depends on the final classification of the target, demoted call targets
// are labeled as data.
func (a *analysis) processJumpDestinations() {
	for _, address := range sortedKeys(a.branchDestinations) {
		offsetInfo := a.bank.offsetInfo(address)

		name := offsetInfo.Label
		if name == "" {
			switch {
			case offsetInfo.IsType(program.CodeOffset) && offsetInfo.IsType(program.CallDestination):
				name = a.labelName(funcNaming, address)
			case offsetInfo.IsType(program.CodeOffset):
				name = a.labelName(labelNaming, address)
			default:
				name = a.labelName(dataNaming, address)
			}
			offsetInfo.Label = name
		}

		for _, from := range offsetInfo.branchFrom {
			fromInfo := a.bank.offsetInfo(from)
			if !fromInfo.IsType(program.CodeOffset) || len(fromInfo.Data) == 0 {
				continue // the referencing instruction was converted to data
			}
			fromInfo.branchingTo = name
			fromInfo.Code = fromInfo.opcode.Instruction.Name
		}
	}
}

// processDataReferences assigns labels to all addresses that instruction
// operands reference and rewrites the operands to use them. References into
// the middle of an instruction or a data bundle are resolved to its start
// plus an address adjustment.
func (a *analysis) processDataReferences() error {
	for _, address := range sortedKeys(a.dataReferences) {
		usages := a.dataReferences[address]

		indexed := false
		for _, from := range usages {
			if isIndexedAddressing(a.bank.offsetInfo(from).opcode.Addressing) {
				indexed = true
				break
			}
		}

		reference, ok := a.resolveReference(address, indexed)
		if !ok {
			continue // no label available, the operand stays a literal
		}

		for _, from := range usages {
			if err := a.rewriteOperand(from, reference); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveReference returns the label reference for the given address,
// assigning a new data label if needed. References into the frozen fixed
// bank view only use already existing labels.
func (a *analysis) resolveReference(address uint16, indexed bool) (string, bool) {
	if a.fixedContains(address) {
		target, _, adjustment := a.fixed.getOpcodeStart(address)
		if target.Label == "" {
			return "", false
		}
		return adjustedReference(target.Label, adjustment), true
	}

	target, resolved, adjustment := a.getOpcodeStart(address)
	name := target.Label
	if name == "" {
		kind := dataNaming
		if target.IsType(program.CodeOffset) {
			kind = labelNaming
		}
		name = a.labelName(kind, resolved)
		if indexed && !target.IsType(program.CodeOffset) {
			name += indexedSuffix
		}
		target.Label = name
	}
	return adjustedReference(name, adjustment), true
}

// getOpcodeStart returns the offset that the address belongs to. References
// into the middle of an instruction or a combined data range are resolved to
// its start and an address adjustment.
func (a *analysis) getOpcodeStart(address uint16) (*offsetInfo, uint16, uint16) {
	var adjustment uint16
	for {
		offsetInfo := a.bank.offsetInfo(address)
		if len(offsetInfo.Data) == 0 && address > a.bank.base {
			address--
			adjustment++
			continue
		}
		return offsetInfo, address, adjustment
	}
}

// adjustedReference returns the label reference with the address adjustment
// applied.
func adjustedReference(name string, adjustment uint16) string {
	if adjustment == 0 {
		return name
	}
	return fmt.Sprintf("%s+%d", name, adjustment)
}

// rewriteOperand replaces the address literal in the instruction operand
// with the label reference.
func (a *analysis) rewriteOperand(from uint16, reference string) error {
	fromInfo := a.bank.offsetInfo(from)
	if !fromInfo.IsType(program.CodeOffset) || len(fromInfo.Data) == 0 {
		return nil // the referencing instruction was converted to data
	}

	converted, err := parameter.String(a.dis.converter, fromInfo.opcode.Addressing, reference)
	if err != nil {
		return fmt.Errorf("getting parameter as string: %w", err)
	}

	name := fromInfo.opcode.Instruction.Name
	switch fromInfo.opcode.Addressing {
	case m6502.AbsoluteAddressing, m6502.AbsoluteXAddressing, m6502.AbsoluteYAddressing:
		fromInfo.Code = fmt.Sprintf("%s %s%s", name, a.dis.options.ParamConfig.AbsolutePrefix, converted)
	default:
		fromInfo.Code = fmt.Sprintf("%s %s", name, converted)
	}
	return nil
}

// processCrossReferences updates instructions referencing the frozen fixed
// bank view with the labels that the fixed bank analysis assigned. Targets
// without a label stay address literals.
func (a *analysis) processCrossReferences() {
	if a.fixed == nil {
		return
	}

	for _, ref := range a.crossReferences {
		target := a.fixed.bank.offsetInfo(ref.target)
		if target.Label == "" {
			continue
		}
		fromInfo := a.bank.offsetInfo(ref.from)
		if !fromInfo.IsType(program.CodeOffset) || len(fromInfo.Data) == 0 {
			continue
		}
		fromInfo.branchingTo = target.Label
		fromInfo.Code = fromInfo.opcode.Instruction.Name
	}
}

// isIndexedAddressing returns whether the addressing mode uses an index
// register.
func isIndexedAddressing(addressing m6502.AddressingMode) bool {
	switch addressing {
	case m6502.AbsoluteXAddressing, m6502.AbsoluteYAddressing,
		m6502.ZeroPageXAddressing, m6502.ZeroPageYAddressing:
		return true
	default:
		return false
	}
}

// sortedKeys returns the keys of the map in ascending order, iterating maps
// in key order keeps the analysis results deterministic.
func sortedKeys[V any](m map[uint16]V) []uint16 {
	keys := make([]uint16, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
