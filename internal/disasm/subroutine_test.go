package disasm

import (
	"testing"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/assembler/ca65"
	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/nesrevasm/internal/program"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/assert"
)

// two subroutines jumping to a shared tail, the shared instructions belong
// to neither of them exclusively
var testCodeSharedTail = []byte{
	0x20, 0x10, 0x80, // jsr $8010
	0x20, 0x16, 0x80, // jsr $8016
	0x40, // rti
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xE8,             // $8010: inx
	0x4C, 0x20, 0x80, // jmp $8020
	0x00, 0x00,
	0xC8,             // $8016: iny
	0x4C, 0x20, 0x80, // jmp $8020
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xCA, // $8020: dex
	0x60, // rts
}

func TestValidateSubroutinesSharedTail(t *testing.T) {
	a := testAnalysis(t, testCodeSharedTail)
	assert.NoError(t, a.run())

	// both subroutines end with an allowed jmp and stay code
	assert.Equal(t, "_func_8010", a.bank.offsetInfo(0x8010).Label)
	assert.Equal(t, "_func_8016", a.bank.offsetInfo(0x8016).Label)

	// the shared tail is owned by neither and stays code as well
	tail := a.bank.offsetInfo(0x8020)
	assert.True(t, tail.IsType(program.CodeOffset))
	assert.Equal(t, "_label_8020", tail.Label)
}

func TestValidateSubroutinesDemotion(t *testing.T) {
	a := testAnalysis(t, []byte{
		0x20, 0x04, 0x80, // jsr $8004
		0x40, // rti
		0xE8, // inx, neither long enough nor an allowed ending
		0x02, // unofficial opcode, ends the flow
	})
	assert.NoError(t, a.run())

	entry := a.bank.offsetInfo(0x8004)
	assert.False(t, entry.IsType(program.CodeOffset))
	assert.False(t, entry.IsType(program.CallDestination))
	assert.True(t, entry.IsType(program.CodeAsData))
	assert.Equal(t, "_data_8004", entry.Label)
}

func TestValidateSubroutinesMinimumSize(t *testing.T) {
	a := testAnalysis(t, []byte{
		0x20, 0x04, 0x80, // jsr $8004
		0x40, // rti
		0x60, // rts, allowed ending but below the default minimum size
	})
	assert.NoError(t, a.run())

	entry := a.bank.offsetInfo(0x8004)
	assert.False(t, entry.IsType(program.CodeOffset))
	assert.True(t, entry.IsType(program.CodeAsData))
	assert.Equal(t, "_data_8004", entry.Label)
}

func TestValidateSubroutinesDisabled(t *testing.T) {
	opts := options.NewDisassembler(assembler.Ca65)
	opts.ParamConfig = ca65.ParamConfig
	opts.NoSubroutineCheck = true

	cart := cartridge.New()
	disasm := testProgram(t, &opts, cart, []byte{
		0x20, 0x04, 0x80, // jsr $8004
		0x40, // rti
		0xE8, // inx
		0x02, // unofficial opcode, ends the flow
	})

	a := disasm.fixed
	assert.NoError(t, a.run())

	entry := a.bank.offsetInfo(0x8004)
	assert.True(t, entry.IsType(program.CodeOffset))
	assert.Equal(t, "_func_8004", entry.Label)
}

func TestSubroutineEndings(t *testing.T) {
	endings := subroutineEndings("")
	assert.Equal(t, 3, len(endings))

	endings = subroutineEndings("INX, brk")
	assert.Equal(t, 5, len(endings))

	_, ok := endings["inx"]
	assert.True(t, ok)
	_, ok = endings["brk"]
	assert.True(t, ok)
	_, ok = endings["rts"]
	assert.True(t, ok)
}
