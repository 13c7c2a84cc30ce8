package program

import (
	"fmt"
	"strings"
)

// OffsetType defines the type of a program offset, it can be multiple types
// combined.
type OffsetType uint8

const (
	UnknownOffset OffsetType = 0
	CodeOffset    OffsetType = 1 << iota
	DataOffset
	CodeAsData // instruction bytes that are emitted as data

	CallDestination // target of a call instruction
)

// IsType returns whether the offset is of the given type.
func (offset *Offset) IsType(typ OffsetType) bool {
	return offset.Type&typ != 0
}

// SetType sets the type of the offset, existing type bits are kept.
func (offset *Offset) SetType(typ OffsetType) {
	offset.Type |= typ
}

// ClearType clears the given type bits of the offset.
func (offset *Offset) ClearType(typ OffsetType) {
	offset.Type &^= typ
}

// HexCodeComment returns the data bytes of the offset formatted as hex to be
// used in a comment.
func (offset *Offset) HexCodeComment() (string, error) {
	buf := &strings.Builder{}
	for _, b := range offset.Data {
		if _, err := fmt.Fprintf(buf, "%02X ", b); err != nil {
			return "", fmt.Errorf("writing hex comment: %w", err)
		}
	}
	return strings.TrimRight(buf.String(), " "), nil
}
