// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package der

import (
	"encoding/binary"
)

// MarshalContext builds DER encoded data from the end of a buffer towards its start.
//
// The bytes that have been pushed so far are buf[offset:end] for the innermost open element. ends holds the end
// offsets of the enclosing open elements. A negative offset indicates that the context is poisoned.
type MarshalContext struct {
	buf    []byte
	offset int
	end    int
	depth  int
	ends   [MaxDepth]int
	err    error
}

// NewMarshalContext returns a new context that builds into buf.
func NewMarshalContext(buf []byte) *MarshalContext {
	c := new(MarshalContext)
	c.Initialize(buf)
	return c
}

// Initialize resets this context to build into buf. Nothing is open.
func (c *MarshalContext) Initialize(buf []byte) {
	*c = MarshalContext{
		buf:    buf,
		offset: len(buf),
		end:    len(buf),
		depth:  -1}
}

func (c *MarshalContext) fail(err error) {
	if c.err == nil {
		c.err = err
	}
	c.offset = -1
}

// Valid indicates whether this context has not been poisoned.
func (c *MarshalContext) Valid() bool {
	return c.offset >= 0
}

// Err returns the first error encountered by this context, or nil.
func (c *MarshalContext) Err() error {
	return c.err
}

// Offset returns the current write position. The next byte pushed will be written immediately before it.
func (c *MarshalContext) Offset() int {
	return c.offset
}

// Depth returns the number of open elements.
func (c *MarshalContext) Depth() int {
	return c.depth + 1
}

// Top returns a view of the n most recently pushed bytes. It returns nil if fewer than n bytes have been pushed.
// The view is only valid until the outermost element is closed.
func (c *MarshalContext) Top(n int) []byte {
	if !c.Valid() || n < 0 || c.offset+n > len(c.buf) {
		return nil
	}
	return c.buf[c.offset : c.offset+n]
}

// Discard drops the n most recently pushed bytes from the open element.
func (c *MarshalContext) Discard(n int) bool {
	if !c.Valid() {
		return false
	}
	if n < 0 || c.offset+n > c.end {
		c.fail(ErrBufferFull)
		return false
	}
	c.offset += n
	return true
}

// Bytes returns the data built by this context. Once the outermost element has been closed, this is at the start
// of the buffer. It returns nil if the context is poisoned or an element is still open.
func (c *MarshalContext) Bytes() []byte {
	if !c.Valid() || c.depth >= 0 {
		return nil
	}
	return c.buf[c.offset:c.end]
}

// StartMarshalContext opens a new element. Everything pushed until the matching EndMarshalContext or
// EndEncapsulation is its contents.
func (c *MarshalContext) StartMarshalContext() {
	if !c.Valid() {
		return
	}
	if c.depth+1 >= MaxDepth {
		c.fail(ErrNestingTooDeep)
		return
	}
	c.depth++
	c.ends[c.depth] = c.end
	c.end = c.offset
}

// EndMarshalContext closes the innermost element and returns the number of bytes pushed since it was opened. When
// the outermost element is closed, the built data is moved to the start of the buffer. It returns 0 if the context
// is poisoned.
func (c *MarshalContext) EndMarshalContext() int {
	if c.depth < 0 {
		c.fail(ErrNoOpenContext)
		return 0
	}
	length := c.end - c.offset
	c.end = c.ends[c.depth]
	c.depth--
	if !c.Valid() {
		return 0
	}
	if c.depth == -1 {
		copy(c.buf, c.buf[c.offset:c.end])
		c.offset = 0
		c.end = length
	}
	return length
}

// EndEncapsulation prepends the supplied tag and the length of the contents to the innermost element and then
// closes it. For a BIT STRING, the unused bits octet (always zero) is prepended first. It returns the total
// length of the element, or 0 if the context is poisoned.
func (c *MarshalContext) EndEncapsulation(tag byte) int {
	if tag == TagBitString {
		c.PushByte(0)
	}
	if c.Valid() {
		c.PushTagAndLength(tag, c.end-c.offset)
	}
	return c.EndMarshalContext()
}

// PushByte prepends a single byte.
func (c *MarshalContext) PushByte(b byte) bool {
	if !c.Valid() {
		return false
	}
	if c.offset == 0 {
		c.fail(ErrBufferFull)
		return false
	}
	c.offset--
	c.buf[c.offset] = b
	return true
}

// PushBytes prepends data and returns the number of bytes pushed, or 0 if the context is poisoned.
func (c *MarshalContext) PushBytes(data []byte) int {
	if !c.Valid() {
		return 0
	}
	if len(data) > c.offset {
		c.fail(ErrBufferFull)
		return 0
	}
	c.offset -= len(data)
	copy(c.buf[c.offset:], data)
	return len(data)
}

// PushLength prepends a DER length and returns the number of bytes it occupies, or 0 if the context is poisoned.
func (c *MarshalContext) PushLength(length int) int {
	if !c.Valid() {
		return 0
	}
	if length < 0 || length > MaxSize {
		c.fail(ErrInvalidLength)
		return 0
	}

	start := c.offset
	switch {
	case length < 0x80:
		c.PushByte(byte(length))
	case length < 0x100:
		c.PushByte(byte(length))
		c.PushByte(0x81)
	default:
		c.PushByte(byte(length))
		c.PushByte(byte(length >> 8))
		c.PushByte(0x82)
	}
	if !c.Valid() {
		return 0
	}
	return start - c.offset
}

// PushTagAndLength prepends a tag and a DER length and returns the number of bytes they occupy, or 0 if the context
// is poisoned.
func (c *MarshalContext) PushTagAndLength(tag byte, length int) int {
	n := c.PushLength(length)
	if !c.PushByte(tag) {
		return 0
	}
	return n + 1
}

// PushTaggedOctetString prepends data wrapped in the supplied tag and returns the total length of the element, or 0
// if the context is poisoned.
func (c *MarshalContext) PushTaggedOctetString(data []byte, tag byte) int {
	n := c.PushBytes(data)
	n += c.PushTagAndLength(tag, len(data))
	if !c.Valid() {
		return 0
	}
	return n
}

// PushInteger prepends a DER INTEGER with the big-endian magnitude in data. Leading zero octets are removed, keeping
// at least one, and a zero octet is added if the most significant bit is set so that the value is positive. It
// returns the total length of the element, or 0 if the context is poisoned.
func (c *MarshalContext) PushInteger(data []byte) int {
	for len(data) > 1 && data[0] == 0 {
		data = data[1:]
	}
	if len(data) == 0 {
		data = []byte{0}
	}

	n := c.PushBytes(data)
	if data[0]&0x80 != 0 && c.PushByte(0) {
		n++
	}
	n += c.PushTagAndLength(TagInteger, n)
	if !c.Valid() {
		return 0
	}
	return n
}

// PushUINT prepends a DER INTEGER with the supplied value.
func (c *MarshalContext) PushUINT(v uint32) int {
	var data [4]byte
	binary.BigEndian.PutUint32(data[:], v)
	return c.PushInteger(data[:])
}

// PushOID prepends an OID that is already DER encoded, including its tag and single octet length. It returns the
// number of bytes pushed, or 0 if the context is poisoned or oid is not a valid encoding.
func (c *MarshalContext) PushOID(oid []byte) int {
	if !c.Valid() {
		return 0
	}
	if len(oid) < 2 || oid[0] != TagOID || oid[1]&0x80 != 0 || len(oid) < int(oid[1])+2 {
		c.fail(ErrInvalidOID)
		return 0
	}
	return c.PushBytes(oid[:oid[1]+2])
}

// PushNull prepends a DER NULL.
func (c *MarshalContext) PushNull() int {
	c.PushByte(0)
	c.PushByte(TagNull)
	if !c.Valid() {
		return 0
	}
	return 2
}
