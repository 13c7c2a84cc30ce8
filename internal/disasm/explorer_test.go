package disasm

import (
	"testing"

	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/retrogolib/assert"
)

func TestFollowExecutionFlowCycle(t *testing.T) {
	a := testAnalysis(t, []byte{
		0x4C, 0x00, 0x80, // jmp $8000
	})

	assert.NoError(t, a.followExecutionFlow())

	offsetInfo := a.bank.offsetInfo(0x8000)
	assert.True(t, offsetInfo.IsType(program.CodeOffset))
	assert.Equal(t, "jmp a:$8000", offsetInfo.Code)

	// the opcode bytes are classified as code but carry no data
	assert.True(t, a.bank.offsetInfo(0x8001).IsType(program.CodeOffset))
	assert.Equal(t, 0, len(a.bank.offsetInfo(0x8001).Data))
}

func TestInstructionOverlap(t *testing.T) {
	a := testAnalysis(t, []byte{
		0x4C, 0x04, 0x80, // jmp $8004
		0xAD,             // $8003: lda, operand bytes overlap the nop
		0xEA,             // $8004: nop
		0x4C, 0x03, 0x80, // jmp $8003
	})

	assert.NoError(t, a.followExecutionFlow())

	// the first classification of $8004 wins, the lda is cut short
	cut := a.bank.offsetInfo(0x8003)
	assert.True(t, cut.IsType(program.CodeAsData))
	assert.Equal(t, []byte{0xAD}, cut.Data)
	assert.Equal(t, "", cut.Code)
	assert.Equal(t, "lda a:$4CEA", cut.Comment)

	nop := a.bank.offsetInfo(0x8004)
	assert.True(t, nop.IsType(program.CodeOffset))
	assert.Equal(t, "nop", nop.Code)
	assert.Equal(t, "branch into instruction detected", nop.Comment)
}

func TestJumpIntoInstruction(t *testing.T) {
	a := testAnalysis(t, []byte{
		0xA9, 0x01, // lda #$01
		0x4C, 0x01, 0x80, // jmp $8001, into the lda operand
	})

	assert.NoError(t, a.followExecutionFlow())
	a.handleJumpsIntoInstructions()

	// the lda is converted to data, split at the branch destination
	first := a.bank.offsetInfo(0x8000)
	assert.True(t, first.IsType(program.CodeAsData))
	assert.Equal(t, []byte{0xA9}, first.Data)
	assert.Equal(t, "branch into instruction detected: lda #$01", first.Comment)

	second := a.bank.offsetInfo(0x8001)
	assert.True(t, second.IsType(program.CodeAsData))
	assert.Equal(t, []byte{0x01}, second.Data)
}

func TestJumpTargetOutsideROM(t *testing.T) {
	a := testAnalysis(t, []byte{
		0x4C, 0x00, 0x40, // jmp $4000
	})

	assert.NoError(t, a.followExecutionFlow())

	// the edge is dropped and the operand stays an address literal
	offsetInfo := a.bank.offsetInfo(0x8000)
	assert.Equal(t, "jmp a:$4000", offsetInfo.Code)
	assert.Equal(t, 0, len(a.outgoing[0x8000]))
	assert.Equal(t, 0, len(a.crossReferences))
}

func TestDataReferenceOutsideROM(t *testing.T) {
	a := testAnalysis(t, []byte{
		0xAD, 0x42, 0x42, // lda a:$4242
		0x40, // rti
	})

	assert.NoError(t, a.followExecutionFlow())

	assert.Equal(t, 0, len(a.dataReferences))
	assert.Equal(t, "lda a:$4242", a.bank.offsetInfo(0x8000).Code)
}
