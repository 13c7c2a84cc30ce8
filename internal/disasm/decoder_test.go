package disasm

import (
	"errors"
	"testing"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/assembler/ca65"
	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/assert"
)

func testAnalysis(t *testing.T, code []byte) *analysis {
	t.Helper()

	opts := options.NewDisassembler(assembler.Ca65)
	opts.ParamConfig = ca65.ParamConfig

	cart := cartridge.New()
	disasm := testProgram(t, &opts, cart, code)
	return disasm.fixed
}

func TestDecodeInstruction(t *testing.T) {
	tests := []struct {
		Name      string
		Input     []byte
		Code      string
		Target    uint16
		HasTarget bool
		Size      int
	}{
		{
			Name:      "absolute",
			Input:     []byte{0xAD, 0x34, 0x12},
			Code:      "lda a:$1234",
			Target:    0x1234,
			HasTarget: true,
			Size:      3,
		},
		{
			Name:  "implied",
			Input: []byte{0xEA},
			Code:  "nop",
			Size:  1,
		},
		{
			Name:  "immediate",
			Input: []byte{0xA9, 0x01},
			Code:  "lda #$01",
			Size:  2,
		},
		{
			Name:      "relative backwards",
			Input:     []byte{0xD0, 0xFE},
			Target:    0x8000,
			HasTarget: true,
			Size:      2,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			a := testAnalysis(t, test.Input)

			inst, err := a.decodeInstructionAt(0x8000)
			assert.NoError(t, err)

			if test.Code != "" {
				assert.Equal(t, test.Code, inst.code())
			}
			assert.Equal(t, test.Target, inst.target)
			assert.Equal(t, test.HasTarget, inst.hasTarget)
			assert.Equal(t, test.Size, len(inst.data))
		})
	}
}

func TestDecodeUnofficialInstruction(t *testing.T) {
	a := testAnalysis(t, []byte{0xDC, 0xAE, 0x8B})

	_, err := a.decodeInstructionAt(0x8000)
	assert.True(t, errors.Is(err, errInvalidOpcode))
}

func TestDecodeVectorWindow(t *testing.T) {
	a := testAnalysis(t, nil)
	copy(a.bank.data[0x7FF9:], []byte{0xAD, 0x34, 0x12})

	// an instruction must not extend into the vector table
	_, err := a.decodeInstructionAt(0xFFF9)
	assert.True(t, errors.Is(err, errInvalidOpcode))

	a.bank.data[0x7FF9] = 0xEA
	inst, err := a.decodeInstructionAt(0xFFF9)
	assert.NoError(t, err)
	assert.Equal(t, "nop", inst.code())
}

func TestReadMemoryOutsideROM(t *testing.T) {
	a := testAnalysis(t, nil)

	_, err := a.readMemory(0x4242)
	assert.True(t, err != nil)

	b, err := a.readMemory(0x8000)
	assert.NoError(t, err)
	assert.Equal(t, byte(0), b)
}
