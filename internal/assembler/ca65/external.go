// Package ca65 provides helpers to create ca65 assembler compatible asm output.
package ca65

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/retroenv/nesrevasm/internal/program"
)

const (
	assemblerName = "ca65"
	linkerName    = "ld65"
)

// AssembleUsingExternalApp calls the external assembler and linker to
// generate a .nes ROM from the given asm file.
func AssembleUsingExternalApp(ctx context.Context, asmFile, objectFile, outputFile string,
	app *program.Program) error {

	if _, err := exec.LookPath(assemblerName); err != nil {
		return fmt.Errorf("%s is not installed", assemblerName)
	}
	if _, err := exec.LookPath(linkerName); err != nil {
		return fmt.Errorf("%s is not installed", linkerName)
	}

	cmd := exec.CommandContext(ctx, assemblerName, asmFile, "-o", objectFile)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("assembling file: %s: %w", strings.TrimSpace(string(out)), err)
	}

	configFile, err := os.CreateTemp("", "rom.*.cfg")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(configFile.Name())
	}()

	mapperConfig, err := GenerateMapperConfig(app)
	if err != nil {
		return fmt.Errorf("generating linker config: %w", err)
	}
	if err := os.WriteFile(configFile.Name(), []byte(mapperConfig), 0o666); err != nil {
		return fmt.Errorf("writing linker config: %w", err)
	}

	cmd = exec.CommandContext(ctx, linkerName, "-C", configFile.Name(), "-o", outputFile, objectFile)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("linking file: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}
