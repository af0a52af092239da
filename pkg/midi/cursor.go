package midi

import "fmt"

// cursor reads big endian fields from a byte slice. A failed read leaves the
// position unchanged.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) need(n int) error {
	if n < 0 || c.remaining() < n {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedData, n, c.remaining())
	}
	return nil
}

func (c *cursor) peekU8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	return c.buf[c.pos], nil
}

func (c *cursor) readU8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// dataByte reads one MIDI data byte. A byte with its top bit set is a status
// byte and is rejected without consuming it.
func (c *cursor) dataByte() (uint8, error) {
	b, err := c.peekU8()
	if err != nil {
		return 0, err
	}
	if b&0x80 != 0 {
		return 0, fmt.Errorf("%w: status byte %#02x in place of a data byte", ErrUnsupportedEvent, b)
	}
	c.pos++
	return b, nil
}

func (c *cursor) readU16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	b := c.buf[c.pos : c.pos+2]
	c.pos += 2
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (c *cursor) readU32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	b := c.buf[c.pos : c.pos+4]
	c.pos += 4
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// readBytes returns a sub slice of the underlying buffer, not a copy.
func (c *cursor) readBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// readID reads a 4 byte chunk id.
func (c *cursor) readID() ([4]byte, error) {
	var id [4]byte
	b, err := c.readBytes(4)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// readVLQ returns the variable length value at the exact cursor location.
func (c *cursor) readVLQ() (uint64, error) {
	val, n, err := DecodeVLQ(c.buf[c.pos:])
	if err != nil {
		return 0, err
	}
	c.pos += n
	return val, nil
}
