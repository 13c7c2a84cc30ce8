// Package config handles application configuration and setup.
package config

import (
	"fmt"
	"strings"

	"github.com/retroenv/nesrevasm/internal/assembler"
	"github.com/retroenv/nesrevasm/internal/assembler/asm6"
	"github.com/retroenv/nesrevasm/internal/assembler/ca65"
	"github.com/retroenv/nesrevasm/internal/assembler/nesasm"
	"github.com/retroenv/nesrevasm/internal/disasm"
	"github.com/retroenv/retrogolib/arch/system/nes/parameter"
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger creates a logger with appropriate settings.
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// InitializeAssemblerCompatibleMode returns the file writer constructor and
// the parameter syntax configuration for the chosen assembler.
func InitializeAssemblerCompatibleMode(assemblerName string) (disasm.FileWriterConstructor, parameter.Config, error) {
	switch strings.ToLower(assemblerName) {
	case assembler.Asm6:
		return asm6.New, asm6.ParamConfig, nil

	case assembler.Ca65:
		return ca65.New, ca65.ParamConfig, nil

	case assembler.Nesasm:
		return nesasm.New, nesasm.ParamConfig, nil

	default:
		return nil, parameter.Config{}, fmt.Errorf("unsupported assembler '%s'", assemblerName)
	}
}
