package disasm

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/assembler/ca65"
	"github.com/retroenv/nesrevasm/internal/mapper"
	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

var testCodeDefault = []byte{
	0x78,             // sei
	0x4C, 0x04, 0x80, // jmp + 3
	0xAD, 0x30, 0x80, // lda a:$8030
	0xBD, 0x20, 0x80, // lda a:$8020,X
	0xea,       // nop
	0x90, 0x01, // bcc +1
	0xdc,             // unofficial opcode, not followed
	0xae, 0x8b, 0x78, // ldx a:$788B
	0x40, // rti
}

var expectedDefault = `Reset:
  sei                            ; $8000  78
  jmp _label_8004                ; $8001  4C 04 80

_label_8004:
  lda a:_data_8030               ; $8004  AD 30 80
  lda a:_data_8020_indexed,X     ; $8007  BD 20 80
  nop                            ; $800A  EA
  bcc _label_800e                ; $800B  90 01

.byte $dc                        ; $800D

_label_800e:
  ldx a:$788B                    ; $800E  AE 8B 78
  rti                            ; $8011  40

.byte $00, $00, $00, $00, $00, $00, $00, $00, $00, $00, $00, $00, $00, $00 ; $8012

_data_8020_indexed:
.byte $12, $00, $00, $00, $00, $00, $00, $00, $00, $00, $00, $00, $00, $00, $00, $00 ; $8020

_data_8030:
.byte $34                        ; $8030
`

var testCodeNoHexNoAddress = []byte{
	0x78,             // sei
	0x4C, 0x05, 0x80, // jmp + 3
	0x1a, // unofficial nop
	0x40, // rti
}

var expectedNoOffsetNoHex = `Reset:
  sei
  jmp _label_8005

.byte $1a

_label_8005:
  rti
`

var testCodeJumpToSelf = []byte{
	0x4C, 0x00, 0x80, // jmp Reset
}

var expectedJumpToSelf = `Reset:
  jmp Reset                      ; $8000  4C 00 80
`

var testCodeInvalidSubroutine = []byte{
	0x20, 0x04, 0x80, // jsr $8004
	0x40, // rti
	0xe8, // inx
	0x02, // unofficial opcode, ends the flow
}

var expectedInvalidSubroutine = `Reset:
  jsr _data_8004                 ; $8000  20 04 80
  rti                            ; $8003  40

_data_8004:
.byte $e8, $02                   ; $8004  E8
`

var testCodeShortSubroutine = []byte{
	0x20, 0x04, 0x80, // jsr $8004
	0x40, // rti
	0x60, // rts
}

var expectedShortSubroutine = `Reset:
  jsr _func_8004                 ; $8000  20 04 80
  rti                            ; $8003  40

_func_8004:
  rts                            ; $8004  60
`

var expectedShortSubroutineDemoted = `Reset:
  jsr _data_8004                 ; $8000  20 04 80
  rti                            ; $8003  40

_data_8004:
.byte $60                        ; $8004  60
`

var expectedCustomEnding = `Reset:
  jsr _func_8004                 ; $8000  20 04 80
  rti                            ; $8003  40

_func_8004:
  inx                            ; $8004  E8

.byte $02                        ; $8005
`

func testProgram(t *testing.T, opts *options.Disassembler, cart *cartridge.Cartridge, code []byte) *Disasm {
	t.Helper()

	// point reset handler to offset 0 of PRG buffer, aka 0x8000 address
	cart.PRG[0x7FFD] = 0x80

	copy(cart.PRG, code)

	layout, err := mapper.ResolveLayout(cart, mapper.Override{
		BankSize:   opts.BankSize,
		FixedBanks: opts.FixedBanks,
	})
	assert.NoError(t, err)

	disasm, err := New(log.NewTestLogger(t), cart, layout, *opts, ca65.New)
	assert.NoError(t, err)

	return disasm
}

func runDisasm(t *testing.T, disasm *Disasm) string {
	t.Helper()

	var buffer bytes.Buffer
	writer := bufio.NewWriter(&buffer)

	_, err := disasm.Process(writer, nil)
	assert.NoError(t, err)
	assert.NoError(t, writer.Flush())

	return buffer.String()
}

func TestDisasm(t *testing.T) {
	tests := []struct {
		Name     string
		Setup    func(opts *options.Disassembler, cart *cartridge.Cartridge)
		Input    []byte
		Expected string
	}{
		{
			Name: "default",
			Setup: func(opts *options.Disassembler, cart *cartridge.Cartridge) {
				cart.PRG[0x0020] = 0x12
				cart.PRG[0x0030] = 0x34
			},
			Input:    testCodeDefault,
			Expected: expectedDefault,
		},
		{
			Name: "no hex no address",
			Setup: func(opts *options.Disassembler, cart *cartridge.Cartridge) {
				opts.OffsetComments = false
				opts.HexComments = false
			},
			Input:    testCodeNoHexNoAddress,
			Expected: expectedNoOffsetNoHex,
		},
		{
			Name:     "jump to self",
			Input:    testCodeJumpToSelf,
			Expected: expectedJumpToSelf,
		},
		{
			Name:     "invalid subroutine demoted",
			Input:    testCodeInvalidSubroutine,
			Expected: expectedInvalidSubroutine,
		},
		{
			Name: "short subroutine accepted",
			Setup: func(opts *options.Disassembler, cart *cartridge.Cartridge) {
				opts.MinSubroutineSize = 1
			},
			Input:    testCodeShortSubroutine,
			Expected: expectedShortSubroutine,
		},
		{
			Name:     "short subroutine demoted",
			Input:    testCodeShortSubroutine,
			Expected: expectedShortSubroutineDemoted,
		},
		{
			Name: "custom subroutine ending",
			Setup: func(opts *options.Disassembler, cart *cartridge.Cartridge) {
				opts.MinSubroutineSize = 1
				opts.SubroutineEndings = "inx"
			},
			Input:    testCodeInvalidSubroutine,
			Expected: expectedCustomEnding,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			opts := options.NewDisassembler(assembler.Ca65)
			opts.CodeOnly = true
			opts.ParamConfig = ca65.ParamConfig

			cart := cartridge.New()
			if test.Setup != nil {
				test.Setup(&opts, cart)
			}

			disasm := testProgram(t, &opts, cart, test.Input)

			assert.Equal(t, test.Expected, runDisasm(t, disasm))
		})
	}
}

func TestDisasmVectorsOutsideROM(t *testing.T) {
	opts := options.NewDisassembler(assembler.Ca65)
	opts.CodeOnly = true
	opts.ParamConfig = ca65.ParamConfig

	cart := cartridge.New()
	// NMI and IRQ point at RAM trampolines below the ROM window
	cart.PRG[0x7FFA] = 0x00
	cart.PRG[0x7FFB] = 0x07
	cart.PRG[0x7FFE] = 0x12
	cart.PRG[0x7FFF] = 0x07

	disasm := testProgram(t, &opts, cart, []byte{0x40})

	assert.Equal(t, "$0700", disasm.handlers.NMI)
	assert.Equal(t, "Reset", disasm.handlers.Reset)
	assert.Equal(t, "$0712", disasm.handlers.IRQ)
}

var expectedMultiBank = `
.segment "PRG_BANK_0"

  lda #$01                       ; $8000  A9 01
  sta a:_label_0_8005            ; $8002  8D 05 80

_label_0_8005:
  jmp Reset                      ; $8005  4C 00 C0

.segment "PRG_BANK_1"

Reset:
  sei                            ; $C000  78
  jmp Reset                      ; $C001  4C 00 C0
`

func TestDisasmMultiBank(t *testing.T) {
	cart := cartridge.New()
	cart.Mapper = 2 // UxROM, 16K switchable + 16K fixed

	// switchable bank 0 mapped at 0x8000
	copy(cart.PRG, []byte{
		0xA9, 0x01, // lda #$01
		0x8D, 0x05, 0x80, // sta $8005
		0x4C, 0x00, 0xC0, // jmp $C000
	})
	// fixed bank mapped at 0xC000
	copy(cart.PRG[0x4000:], []byte{
		0x78,             // sei
		0x4C, 0x00, 0xC0, // jmp Reset
	})
	// point reset handler to the start of the fixed bank
	cart.PRG[0x7FFD] = 0xC0

	layout, err := mapper.ResolveLayout(cart, mapper.Override{FixedBanks: -1})
	assert.NoError(t, err)
	assert.Equal(t, 2, layout.Banks)
	assert.Equal(t, 1, layout.FixedBanks)

	opts := options.NewDisassembler(assembler.Ca65)
	opts.CodeOnly = true
	opts.ParamConfig = ca65.ParamConfig

	disasm, err := New(log.NewTestLogger(t), cart, layout, opts, ca65.New)
	assert.NoError(t, err)

	assert.Equal(t, expectedMultiBank, runDisasm(t, disasm))
}

func TestDisasmParallel(t *testing.T) {
	setup := func(parallel bool) *Disasm {
		cart := cartridge.New()
		cart.PRG = make([]byte, 0x10000)
		cart.Mapper = 2

		// 3 switchable banks with distinct code, 1 fixed bank
		for bank := range 3 {
			prg := cart.PRG[bank*0x4000:]
			copy(prg, []byte{
				0xA9, byte(bank), // lda #bank
				0x4C, 0x00, 0x80, // jmp to bank start
			})
		}
		copy(cart.PRG[0xC000:], []byte{
			0x78,             // sei
			0x4C, 0x00, 0xC0, // jmp Reset
		})
		cart.PRG[0xFFFD] = 0xC0

		layout, err := mapper.ResolveLayout(cart, mapper.Override{FixedBanks: -1})
		assert.NoError(t, err)
		assert.Equal(t, 3, layout.SwitchableBanks())

		opts := options.NewDisassembler(assembler.Ca65)
		opts.CodeOnly = true
		opts.ParamConfig = ca65.ParamConfig
		opts.Parallel = parallel

		disasm, err := New(log.NewTestLogger(t), cart, layout, opts, ca65.New)
		assert.NoError(t, err)
		return disasm
	}

	sequential := runDisasm(t, setup(false))
	parallel := runDisasm(t, setup(true))

	assert.Equal(t, sequential, parallel)
}
