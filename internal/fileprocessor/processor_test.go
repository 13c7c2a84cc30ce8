package fileprocessor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/options"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

// writeTestROM writes a minimal NROM image with 16K PRG and 8K CHR, the
// reset vector points to the start of the PRG at $C000.
func writeTestROM(t *testing.T, name string) string {
	t.Helper()

	header := make([]byte, 16)
	copy(header, "NES\x1a")
	header[4] = 1 // 16K PRG
	header[5] = 1 // 8K CHR

	prg := make([]byte, 0x4000)
	copy(prg, []byte{
		0x78,             // sei
		0x4C, 0x00, 0xC0, // jmp Reset
	})
	prg[0x3FFC] = 0x00
	prg[0x3FFD] = 0xC0

	chr := make([]byte, 0x2000)
	for i := range chr {
		chr[i] = byte(i)
	}

	rom := append(header, prg...)
	rom = append(rom, chr...)

	file := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(file, rom, 0o644))
	return file
}

func TestProcessFile(t *testing.T) {
	input := writeTestROM(t, "game.nes")
	output := GenerateOutputFilename(input)

	opts := options.Program{
		Input:     input,
		Output:    output,
		Assembler: assembler.Ca65,
	}
	disasmOptions := options.NewDisassembler(assembler.Ca65)

	err := ProcessFile(context.Background(), log.NewTestLogger(t), opts, disasmOptions)
	assert.NoError(t, err)

	content, err := os.ReadFile(output)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(content), "Reset:"))
}

func TestProcessFileExtractCHR(t *testing.T) {
	input := writeTestROM(t, "game.nes")
	output := GenerateOutputFilename(input)

	opts := options.Program{
		Input:     input,
		Output:    output,
		Assembler: assembler.Ca65,
	}
	disasmOptions := options.NewDisassembler(assembler.Ca65)
	disasmOptions.ExtractCHR = true

	err := ProcessFile(context.Background(), log.NewTestLogger(t), opts, disasmOptions)
	assert.NoError(t, err)

	chr, err := os.ReadFile(strings.TrimSuffix(output, ".asm") + ".chr")
	assert.NoError(t, err)
	assert.Equal(t, 0x2000, len(chr))

	content, err := os.ReadFile(output)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(content), ".incbin \"game.chr\""))
}

func TestProcessFileInfoMode(t *testing.T) {
	input := writeTestROM(t, "game.nes")

	opts := options.Program{
		Input:     input,
		Assembler: assembler.Ca65,
		Info:      true,
	}
	disasmOptions := options.NewDisassembler(assembler.Ca65)

	err := ProcessFile(context.Background(), log.NewTestLogger(t), opts, disasmOptions)
	assert.NoError(t, err)

	// info mode does not write any output file
	_, err = os.Stat(GenerateOutputFilename(input))
	assert.True(t, os.IsNotExist(err))
}

func TestGetFilesToProcess(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.nes", "b.nes", "c.bin"} {
		assert.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{0}, 0o644))
	}

	files, err := GetFilesToProcess(options.Program{Batch: filepath.Join(dir, "*.nes")})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(files))

	_, err = GetFilesToProcess(options.Program{Batch: filepath.Join(dir, "*.rom")})
	assert.True(t, err != nil)

	files, err = GetFilesToProcess(options.Program{Input: "game.nes"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"game.nes"}, files)
}

func TestGenerateOutputFilename(t *testing.T) {
	assert.Equal(t, "game.asm", GenerateOutputFilename("game.nes"))
	assert.Equal(t, filepath.Join("dir", "game.asm"),
		GenerateOutputFilename(filepath.Join("dir", "game.nes")))
}
