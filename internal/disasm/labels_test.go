package disasm

import (
	"testing"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/assembler/ca65"
	"github.com/retroenv/nesrevasm/internal/mapper"
	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestLabelNames(t *testing.T) {
	cart := cartridge.New()
	cart.Mapper = 2 // UxROM
	cart.PRG[0x7FFD] = 0xC0

	layout, err := mapper.ResolveLayout(cart, mapper.Override{FixedBanks: -1})
	assert.NoError(t, err)

	opts := options.NewDisassembler(assembler.Ca65)
	opts.ParamConfig = ca65.ParamConfig

	dis, err := New(log.NewTestLogger(t), cart, layout, opts, ca65.New)
	assert.NoError(t, err)

	// fixed bank addresses are unique and carry no bank qualifier
	assert.Equal(t, "_func_c123", dis.fixed.labelName(funcNaming, 0xC123))
	assert.Equal(t, "_label_c123", dis.fixed.labelName(labelNaming, 0xC123))

	// switchable banks share the address window and are qualified
	assert.Equal(t, "_data_0_8000", dis.switchable[0].labelName(dataNaming, 0x8000))
}

func TestAdjustedReference(t *testing.T) {
	assert.Equal(t, "_data_8000", adjustedReference("_data_8000", 0))
	assert.Equal(t, "_data_8000+2", adjustedReference("_data_8000", 2))
}

func TestReferenceIntoInstruction(t *testing.T) {
	a := testAnalysis(t, []byte{
		0xAD, 0x04, 0x80, // lda a:$8004, reads the jmp operand byte
		0x4C, 0x00, 0x80, // jmp $8000
	})
	assert.NoError(t, a.run())

	// the reference resolves to the instruction start plus an adjustment
	assert.Equal(t, "_label_8003", a.bank.offsetInfo(0x8003).Label)
	assert.Equal(t, "lda a:_label_8003+1", a.bank.offsetInfo(0x8000).Code)
}
