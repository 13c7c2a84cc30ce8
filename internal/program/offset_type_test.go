package program

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestOffsetIsType(t *testing.T) {
	offset := &Offset{}

	offset.SetType(CodeOffset)
	assert.True(t, offset.IsType(CodeOffset))
	assert.False(t, offset.IsType(DataOffset))

	offset.SetType(DataOffset)
	assert.True(t, offset.IsType(CodeOffset))
	assert.True(t, offset.IsType(DataOffset))
}

func TestOffsetClearType(t *testing.T) {
	offset := &Offset{}
	offset.SetType(CodeOffset | CallDestination)

	offset.ClearType(CallDestination)
	assert.True(t, offset.IsType(CodeOffset))
	assert.False(t, offset.IsType(CallDestination))

	offset.ClearType(CodeOffset)
	assert.False(t, offset.IsType(CodeOffset))
}

func TestOffsetHexCodeComment(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{
			name:     "single byte",
			data:     []byte{0xA9},
			expected: "A9",
		},
		{
			name:     "three bytes",
			data:     []byte{0x4C, 0x00, 0x80},
			expected: "4C 00 80",
		},
		{
			name:     "empty data",
			data:     []byte{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset := &Offset{
				Data: tt.data,
			}
			comment, err := offset.HexCodeComment()
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, comment)
		})
	}
}
