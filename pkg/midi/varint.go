package midi

import "fmt"

// DecodeVLQ decodes a MIDI variable length quantity from the start of buf and
// returns the value with the number of bytes consumed. Each byte carries 7
// bits, most significant group first; a byte with the top bit clear ends the
// value.
func DecodeVLQ(buf []byte) (x uint64, n int, err error) {
	for _, b := range buf {
		if x>>57 != 0 {
			return 0, 0, ErrVLQOverflow
		}
		x = x<<7 | uint64(b&0x7f)
		n++
		if b&0x80 == 0 {
			return x, n, nil
		}
	}

	return 0, 0, fmt.Errorf("%w: unterminated variable length quantity", ErrTruncatedData)
}
