package mapper

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/assert"
)

func TestResolveLayout(t *testing.T) {
	tests := []struct {
		name     string
		mapper   byte
		prgSize  int
		override Override
		expected Layout
	}{
		{
			name:     "nrom 32k",
			mapper:   0,
			prgSize:  0x8000,
			override: Override{FixedBanks: -1},
			expected: Layout{
				Mapper: 0, Name: "NROM",
				BankSize: 0x8000, Banks: 1, FixedBanks: 1,
			},
		},
		{
			name:     "nrom 16k",
			mapper:   0,
			prgSize:  0x4000,
			override: Override{FixedBanks: -1},
			expected: Layout{
				Mapper: 0, Name: "NROM",
				BankSize: 0x4000, Banks: 1, FixedBanks: 1,
			},
		},
		{
			name:     "uxrom 128k",
			mapper:   2,
			prgSize:  0x20000,
			override: Override{FixedBanks: -1},
			expected: Layout{
				Mapper: 2, Name: "UxROM",
				BankSize: 0x4000, Banks: 8, FixedBanks: 1,
			},
		},
		{
			name:     "mmc3 128k",
			mapper:   4,
			prgSize:  0x20000,
			override: Override{FixedBanks: -1},
			expected: Layout{
				Mapper: 4, Name: "MMC3",
				BankSize: 0x2000, Banks: 16, FixedBanks: 2,
			},
		},
		{
			name:     "axrom 256k",
			mapper:   7,
			prgSize:  0x40000,
			override: Override{FixedBanks: -1},
			expected: Layout{
				Mapper: 7, Name: "AxROM",
				BankSize: 0x8000, Banks: 8, FixedBanks: 0,
			},
		},
		{
			name:     "unknown mapper with overrides",
			mapper:   210,
			prgSize:  0x20000,
			override: Override{BankSize: 0x4000, FixedBanks: 1},
			expected: Layout{
				Mapper: 210, Name: "mapper 210",
				BankSize: 0x4000, Banks: 8, FixedBanks: 1,
			},
		},
		{
			name:     "override bank size",
			mapper:   2,
			prgSize:  0x20000,
			override: Override{BankSize: 0x2000, FixedBanks: -1},
			expected: Layout{
				Mapper: 2, Name: "UxROM",
				BankSize: 0x2000, Banks: 16, FixedBanks: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := cartridge.New()
			cart.Mapper = tt.mapper
			cart.PRG = make([]byte, tt.prgSize)

			layout, err := ResolveLayout(cart, tt.override)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, layout)
		})
	}
}

func TestResolveLayoutUnsupportedMapper(t *testing.T) {
	cart := cartridge.New()
	cart.Mapper = 210
	cart.PRG = make([]byte, 0x20000)

	_, err := ResolveLayout(cart, Override{FixedBanks: -1})
	assert.True(t, errors.Is(err, ErrUnsupportedMapper))
}

func TestResolveLayoutInvalidSizes(t *testing.T) {
	cart := cartridge.New()
	cart.Mapper = 2
	cart.PRG = make([]byte, 0x20000)

	_, err := ResolveLayout(cart, Override{BankSize: 0x3000, FixedBanks: -1})
	assert.True(t, err != nil)

	cart.PRG = make([]byte, 0x20000+0x100)
	_, err = ResolveLayout(cart, Override{FixedBanks: -1})
	assert.True(t, err != nil)
}

func TestLayoutAddresses(t *testing.T) {
	layout := Layout{BankSize: 0x4000, Banks: 8, FixedBanks: 1}
	assert.Equal(t, 7, layout.SwitchableBanks())
	assert.Equal(t, uint16(0xC000), layout.FixedBase())
	assert.Equal(t, uint16(0x8000), layout.SwitchableBase())

	layout = Layout{BankSize: 0x8000, Banks: 8, FixedBanks: 0}
	assert.Equal(t, uint16(0x8000), layout.SwitchableBase())

	layout = Layout{BankSize: 0x2000, Banks: 16, FixedBanks: 2}
	assert.Equal(t, uint16(0xC000), layout.FixedBase())
}
