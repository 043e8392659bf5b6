// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package der

import (
	"golang.org/x/xerrors"
)

// UnmarshalContext is a cursor over a DER encoded buffer.
//
// A negative size indicates that the context is poisoned. Once poisoned, all methods fail and the first error is
// available from Err.
type UnmarshalContext struct {
	buf    []byte
	size   int
	offset int
	tag    byte
	err    error
}

// NewUnmarshalContext returns a new context that reads from buf.
func NewUnmarshalContext(buf []byte) (*UnmarshalContext, error) {
	c := new(UnmarshalContext)
	if err := c.Initialize(buf); err != nil {
		return nil, err
	}
	return c, nil
}

// Initialize resets this context to read from the start of buf. It fails if buf is empty or is longer than
// MaxSize.
func (c *UnmarshalContext) Initialize(buf []byte) error {
	*c = UnmarshalContext{}
	if len(buf) == 0 || len(buf) > MaxSize {
		c.fail(ErrInvalidBuffer)
		return c.err
	}
	c.buf = buf
	c.size = len(buf)
	return nil
}

func (c *UnmarshalContext) fail(err error) {
	if c.err == nil {
		c.err = xerrors.Errorf("cannot decode at offset %d: %w", c.offset, err)
	}
	c.size = -1
	c.tag = 0xff
}

func (c *UnmarshalContext) readByte() byte {
	b := c.buf[c.offset]
	c.offset++
	return b
}

// Valid indicates whether this context has not been poisoned.
func (c *UnmarshalContext) Valid() bool {
	return c.size >= 0 && c.offset <= c.size
}

// Err returns the first error encountered by this context, or nil.
func (c *UnmarshalContext) Err() error {
	return c.err
}

// Tag returns the last tag read by NextTag.
func (c *UnmarshalContext) Tag() byte {
	return c.tag
}

// Offset returns the current read position.
func (c *UnmarshalContext) Offset() int {
	return c.offset
}

// Size returns the size of the readable window, or -1 if the context is poisoned.
func (c *UnmarshalContext) Size() int {
	return c.size
}

// Remaining returns the number of unread bytes in the window.
func (c *UnmarshalContext) Remaining() int {
	if !c.Valid() {
		return 0
	}
	return c.size - c.offset
}

// DecodeLength reads a DER length at the current position. Only the short form and the 1 and 2 octet long forms
// are accepted, and the decoded length must fit within the remaining part of the window. On failure, the context
// is poisoned and -1 is returned.
func (c *UnmarshalContext) DecodeLength() int {
	if !c.Valid() {
		return -1
	}
	if c.Remaining() < 1 {
		c.fail(ErrTruncated)
		return -1
	}

	var length int
	switch first := c.readByte(); {
	case first < 0x80:
		length = int(first)
	case first == 0x81:
		if c.Remaining() < 1 {
			c.fail(ErrTruncated)
			return -1
		}
		length = int(c.readByte())
	case first == 0x82:
		if c.Remaining() < 2 {
			c.fail(ErrTruncated)
			return -1
		}
		hi := c.readByte()
		if hi >= 0x80 {
			c.fail(ErrInvalidLength)
			return -1
		}
		length = int(hi)<<8 | int(c.readByte())
	default:
		c.fail(ErrInvalidLength)
		return -1
	}

	if length > c.Remaining() {
		c.fail(ErrTruncated)
		return -1
	}
	return length
}

// NextTag reads a tag and its length at the current position, leaving the context positioned at the start of
// the element's contents. The tag is available from Tag. On failure, the context is poisoned and -1 is
// returned.
func (c *UnmarshalContext) NextTag() int {
	if !c.Valid() {
		return -1
	}
	if c.Remaining() < 1 {
		c.fail(ErrTruncated)
		return -1
	}
	c.tag = c.readByte()
	if c.tag&0x1f == 0x1f {
		c.fail(ErrHighTagNumber)
		return -1
	}
	return c.DecodeLength()
}

// GetBitStringValue reads a BIT STRING at the current position and returns its value as a 32-bit quantity, with
// the first bit of the string in the most significant bit of the result. Bits beyond the end of the string are
// zero. Strings with more than 32 significant bits are rejected.
func (c *UnmarshalContext) GetBitStringValue() (uint32, bool) {
	length := c.NextTag()
	switch {
	case length < 0:
		return 0, false
	case c.tag != TagBitString || length < 1:
		c.fail(ErrInvalidBitString)
		return 0, false
	}

	unused := int(c.readByte())
	length--
	switch {
	case unused > 7:
		c.fail(ErrInvalidBitString)
		return 0, false
	case length == 0 && unused != 0:
		c.fail(ErrInvalidBitString)
		return 0, false
	}

	bits := length*8 - unused
	if bits > 32 {
		c.fail(ErrInvalidBitString)
		return 0, false
	}

	var value uint32
	for ; length > 1; length-- {
		value = value<<8 | uint32(c.readByte())
	}
	if length == 1 {
		value = value<<uint(8-unused) | uint32(c.readByte()>>uint(unused))
	}
	if bits > 0 {
		value <<= uint(32 - bits)
	}
	return value, true
}

// Bytes returns the next n bytes from the window and advances past them. It returns nil and poisons the context
// if there are fewer than n bytes remaining. The returned slice aliases the context's buffer.
func (c *UnmarshalContext) Bytes(n int) []byte {
	if !c.Skip(n) {
		return nil
	}
	return c.buf[c.offset-n : c.offset]
}

// Peek returns the next n bytes from the window without advancing, or nil if there are fewer than n bytes
// remaining. It does not poison the context.
func (c *UnmarshalContext) Peek(n int) []byte {
	if n < 0 || n > c.Remaining() {
		return nil
	}
	return c.buf[c.offset : c.offset+n]
}

// Skip advances the read position by n bytes.
func (c *UnmarshalContext) Skip(n int) bool {
	if !c.Valid() {
		return false
	}
	if n < 0 || n > c.Remaining() {
		c.fail(ErrTruncated)
		return false
	}
	c.offset += n
	return true
}

// Since returns the bytes between the supplied position and the current read position. It is used to take a view
// of a complete element, including its tag and length, after it has been read.
func (c *UnmarshalContext) Since(start int) []byte {
	if !c.Valid() || start < 0 || start > c.offset {
		return nil
	}
	return c.buf[start:c.offset]
}

// Window makes out a context over the next n bytes of this context, and advances this context past them. If out is
// nil, this context is narrowed to those n bytes instead.
func (c *UnmarshalContext) Window(n int, out *UnmarshalContext) bool {
	if out == nil {
		out = c
	}
	if !c.Valid() {
		out.fail(ErrTruncated)
		return false
	}
	if n < 0 || n > c.Remaining() {
		c.fail(ErrTruncated)
		if out != c {
			out.err = c.err
			out.size = -1
		}
		return false
	}
	start := c.offset
	c.offset += n
	*out = UnmarshalContext{buf: c.buf[start : start+n], size: n}
	return true
}

// Poison marks this context as failed with the supplied error, if it is not already.
func (c *UnmarshalContext) Poison(err error) {
	c.fail(err)
}
