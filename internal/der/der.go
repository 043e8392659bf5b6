// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

/*
Package der implements the small subset of DER needed to read a caller supplied partial TBSCertificate and to build the
fields that are added to it by the TPM.

It is not a general purpose ASN.1 library. Only single octet tags, definite lengths up to 0x7fff and the handful of
universal types that appear in a TBSCertificate are supported.

Both UnmarshalContext and MarshalContext carry a sticky error. Once an operation fails, the context is poisoned and every
subsequent operation is a no-op that reports failure, so that a sequence of calls can be checked once at the end with
Valid or Err.

MarshalContext builds output back to front. The innermost element of a structure is pushed first and the enclosing
tag and length are prepended when the element is closed, so that no lengths need to be patched up afterwards.
*/
package der

import (
	"errors"
)

// MaxSize is the largest buffer that the codec will read or build. Lengths are limited to 15 bits.
const MaxSize = 0x7fff

// MaxDepth is the maximum number of nested elements that can be open on a MarshalContext at once.
const MaxDepth = 10

// Tag values used by the codec.
const (
	TagInteger     byte = 0x02
	TagBitString   byte = 0x03
	TagOctetString byte = 0x04
	TagNull        byte = 0x05
	TagOID         byte = 0x06
	TagSequence    byte = 0x30

	// TagConstructed is the bit set in the tag of a constructed element.
	TagConstructed byte = 0x20

	// TagContextSpecific is the class bits of a context-specific tag.
	TagContextSpecific byte = 0x80
)

// ExplicitTag returns the tag of a constructed, context-specific element with the specified tag number. It is
// used for EXPLICIT tagging, eg, ExplicitTag(0) is the [0] wrapper of a TBSCertificate's version field and
// ExplicitTag(3) is the [3] wrapper of its extensions.
func ExplicitTag(n byte) byte {
	return TagContextSpecific | TagConstructed | (n & 0x1f)
}

var (
	// ErrTruncated is returned when a read would go beyond the end of the buffer.
	ErrTruncated = errors.New("truncated input")

	// ErrInvalidLength is returned when a length field uses an unsupported form or has an unsupported value.
	ErrInvalidLength = errors.New("invalid or unsupported length")

	// ErrHighTagNumber is returned when a tag uses the high-tag-number form.
	ErrHighTagNumber = errors.New("high-tag-number form is not supported")

	// ErrInvalidBitString is returned when a BIT STRING is malformed or is longer than 32 bits.
	ErrInvalidBitString = errors.New("invalid BIT STRING")

	// ErrInvalidBuffer is returned when a context is initialized with an empty or oversized buffer.
	ErrInvalidBuffer = errors.New("invalid buffer")

	// ErrBufferFull is returned when there is no more space to push data to a MarshalContext.
	ErrBufferFull = errors.New("insufficient space in buffer")

	// ErrNestingTooDeep is returned when more than MaxDepth elements are opened on a MarshalContext.
	ErrNestingTooDeep = errors.New("elements nested too deeply")

	// ErrNoOpenContext is returned when an element is closed on a MarshalContext that has none open.
	ErrNoOpenContext = errors.New("no open element")

	// ErrInvalidOID is returned when PushOID is supplied something that isn't a short encoded OID.
	ErrInvalidOID = errors.New("invalid encoded OID")
)
