package program

// CHR defines the CHR ROM data of the program.
type CHR []byte

// GetLastNonZeroByte searches for the last byte in the CHR data that is not
// zero.
func (chr CHR) GetLastNonZeroByte() int {
	for i := len(chr) - 1; i >= 0; i-- {
		if chr[i] != 0 {
			return i + 1
		}
	}
	return 0
}
