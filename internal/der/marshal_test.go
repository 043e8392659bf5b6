// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package der_test

import (
	"encoding/asn1"
	"math/big"
	"math/rand"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	. "gopkg.in/check.v1"

	. "github.com/canonical/go-tpmx509/internal/der"
	. "github.com/canonical/go-tpmx509/internal/testutil"
)

type marshalSuite struct{}

var _ = Suite(&marshalSuite{})

var oidSHA256 = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01}

func (s *marshalSuite) TestLengthRoundTrip(c *C) {
	scratch := make([]byte, MaxSize)
	var lenBuf [3]byte

	for n := 0; n <= MaxSize; n++ {
		ctx := NewMarshalContext(lenBuf[:])
		ctx.StartMarshalContext()
		l := ctx.PushLength(n)
		c.Assert(ctx.EndMarshalContext(), Equals, l)
		enc := ctx.Bytes()

		var expected []byte
		switch {
		case n < 0x80:
			expected = []byte{byte(n)}
		case n < 0x100:
			expected = []byte{0x81, byte(n)}
		default:
			expected = []byte{0x82, byte(n >> 8), byte(n)}
		}
		c.Assert(enc, DEREquals, expected, Commentf("length: %d", n))

		if len(enc)+n > MaxSize {
			continue
		}
		copy(scratch, enc)
		var u UnmarshalContext
		c.Assert(u.Initialize(scratch[:len(enc)+n]), IsNil)
		c.Assert(u.DecodeLength(), Equals, n, Commentf("length: %d", n))
		c.Assert(u.Remaining(), Equals, n)
	}
}

func (s *marshalSuite) TestPushLengthTooLarge(c *C) {
	ctx := NewMarshalContext(make([]byte, 10))
	c.Check(ctx.PushLength(MaxSize+1), Equals, 0)
	c.Check(ctx.Valid(), IsFalse)
	c.Check(ctx.Err(), Equals, ErrInvalidLength)
}

type testPushIntegerData struct {
	data     []byte
	expected []byte
}

func (s *marshalSuite) testPushInteger(c *C, data *testPushIntegerData) {
	ctx := NewMarshalContext(make([]byte, 64))
	ctx.StartMarshalContext()
	n := ctx.PushInteger(data.data)
	c.Check(ctx.EndMarshalContext(), Equals, n)
	c.Check(ctx.Bytes(), DEREquals, data.expected)
}

func (s *marshalSuite) TestPushIntegerLeadingZeros(c *C) {
	s.testPushInteger(c, &testPushIntegerData{
		data:     []byte{0x00, 0x00, 0x01},
		expected: []byte{0x02, 0x01, 0x01}})
}

func (s *marshalSuite) TestPushIntegerMSBSet(c *C) {
	s.testPushInteger(c, &testPushIntegerData{
		data:     []byte{0x80},
		expected: []byte{0x02, 0x02, 0x00, 0x80}})
}

func (s *marshalSuite) TestPushIntegerZeroThenMSBSet(c *C) {
	s.testPushInteger(c, &testPushIntegerData{
		data:     []byte{0x00, 0x00, 0xff, 0x01},
		expected: []byte{0x02, 0x03, 0x00, 0xff, 0x01}})
}

func (s *marshalSuite) TestPushIntegerAllZero(c *C) {
	s.testPushInteger(c, &testPushIntegerData{
		data:     []byte{0x00, 0x00, 0x00},
		expected: []byte{0x02, 0x01, 0x00}})
}

func (s *marshalSuite) TestPushIntegerEmpty(c *C) {
	s.testPushInteger(c, &testPushIntegerData{
		data:     nil,
		expected: []byte{0x02, 0x01, 0x00}})
}

func (s *marshalSuite) TestPushIntegerMatchesEncodingASN1(c *C) {
	rng := rand.New(rand.NewSource(0x1234))
	for i := 0; i < 200; i++ {
		data := make([]byte, 1+rng.Intn(40))
		rng.Read(data)
		for j := 0; j < rng.Intn(4) && j < len(data); j++ {
			data[j] = 0
		}

		expected, err := asn1.Marshal(new(big.Int).SetBytes(data))
		c.Assert(err, IsNil)

		ctx := NewMarshalContext(make([]byte, 64))
		ctx.StartMarshalContext()
		ctx.PushInteger(data)
		ctx.EndMarshalContext()
		c.Check(ctx.Bytes(), DEREquals, expected)
	}
}

func (s *marshalSuite) TestPushUINT(c *C) {
	ctx := NewMarshalContext(make([]byte, 16))
	ctx.StartMarshalContext()
	c.Check(ctx.PushUINT(0x80000000), Equals, 7)
	c.Check(ctx.PushUINT(2), Equals, 3)
	c.Check(ctx.EndMarshalContext(), Equals, 10)
	c.Check(ctx.Bytes(), DEREquals, []byte{0x02, 0x01, 0x02, 0x02, 0x05, 0x00, 0x80, 0x00, 0x00, 0x00})
}

func (s *marshalSuite) TestNesting(c *C) {
	ctx := NewMarshalContext(make([]byte, 128))
	ctx.StartMarshalContext()
	ctx.StartMarshalContext()
	c.Check(ctx.PushOID(oidSHA256), Equals, len(oidSHA256))
	c.Check(ctx.PushNull(), Equals, 2)
	c.Check(ctx.EndEncapsulation(TagSequence), Equals, 15)
	c.Check(ctx.PushUINT(1), Equals, 3)
	c.Check(ctx.Depth(), Equals, 1)
	c.Check(ctx.EndEncapsulation(TagSequence), Equals, 20)
	c.Check(ctx.Depth(), Equals, 0)
	c.Assert(ctx.Err(), IsNil)

	expected := DecodeHexString(c, "30120201013"+"00d050006096086480165030402"+"01")
	c.Check(ctx.Bytes(), DEREquals, expected)

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(1)
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1NULL()
			b.AddASN1ObjectIdentifier(asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1})
		})
	})
	c.Check(ctx.Bytes(), DEREquals, b.BytesOrPanic())
}

func (s *marshalSuite) TestNestingLongForm(c *C) {
	content := make([]byte, 300)
	for i := range content {
		content[i] = byte(i)
	}

	ctx := NewMarshalContext(make([]byte, 512))
	ctx.StartMarshalContext()
	ctx.StartMarshalContext()
	c.Check(ctx.PushTaggedOctetString(content, TagOctetString), Equals, 304)
	c.Check(ctx.EndEncapsulation(TagBitString), Equals, 309)
	c.Check(ctx.EndEncapsulation(TagSequence), Equals, 313)

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cryptobyte_asn1.BIT_STRING, func(b *cryptobyte.Builder) {
			b.AddUint8(0)
			b.AddASN1OctetString(content)
		})
	})
	c.Check(ctx.Bytes(), DEREquals, b.BytesOrPanic())
}

func (s *marshalSuite) TestEndEncapsulationBitString(c *C) {
	ctx := NewMarshalContext(make([]byte, 16))
	ctx.StartMarshalContext()
	ctx.PushBytes([]byte{0xaa, 0xbb})
	c.Check(ctx.EndEncapsulation(TagBitString), Equals, 5)
	c.Check(ctx.Bytes(), DEREquals, []byte{0x03, 0x03, 0x00, 0xaa, 0xbb})
}

func (s *marshalSuite) TestExplicitTag(c *C) {
	c.Check(ExplicitTag(0), Equals, byte(0xa0))
	c.Check(ExplicitTag(3), Equals, byte(0xa3))

	ctx := NewMarshalContext(make([]byte, 16))
	ctx.StartMarshalContext()
	ctx.PushUINT(2)
	c.Check(ctx.EndEncapsulation(ExplicitTag(0)), Equals, 5)
	c.Check(ctx.Bytes(), DEREquals, []byte{0xa0, 0x03, 0x02, 0x01, 0x02})
}

func (s *marshalSuite) TestNestingTooDeep(c *C) {
	ctx := NewMarshalContext(make([]byte, 64))
	for i := 0; i < MaxDepth; i++ {
		ctx.StartMarshalContext()
	}
	c.Check(ctx.Valid(), IsTrue)
	c.Check(ctx.Depth(), Equals, MaxDepth)

	ctx.StartMarshalContext()
	c.Check(ctx.Valid(), IsFalse)
	c.Check(ctx.Err(), Equals, ErrNestingTooDeep)
}

func (s *marshalSuite) TestEndWithoutStart(c *C) {
	ctx := NewMarshalContext(make([]byte, 64))
	c.Check(ctx.EndMarshalContext(), Equals, 0)
	c.Check(ctx.Valid(), IsFalse)
	c.Check(ctx.Err(), Equals, ErrNoOpenContext)
}

func (s *marshalSuite) TestBufferFull(c *C) {
	ctx := NewMarshalContext(make([]byte, 3))
	ctx.StartMarshalContext()
	c.Check(ctx.PushUINT(0x100), Equals, 0)
	c.Check(ctx.Valid(), IsFalse)
	c.Check(ctx.Err(), Equals, ErrBufferFull)
	c.Check(ctx.EndMarshalContext(), Equals, 0)
	c.Check(ctx.Bytes(), IsNil)
}

func (s *marshalSuite) TestPoisonIsSticky(c *C) {
	ctx := NewMarshalContext(make([]byte, 64))
	ctx.StartMarshalContext()
	c.Check(ctx.PushOID([]byte{0x06, 0x81, 0x01, 0x00}), Equals, 0)
	c.Check(ctx.Err(), Equals, ErrInvalidOID)

	c.Check(ctx.PushByte(0), IsFalse)
	c.Check(ctx.PushBytes([]byte{1, 2}), Equals, 0)
	c.Check(ctx.PushNull(), Equals, 0)
	c.Check(ctx.PushUINT(1), Equals, 0)
	c.Check(ctx.PushOID(oidSHA256), Equals, 0)
	c.Check(ctx.PushTaggedOctetString([]byte{1}, TagOctetString), Equals, 0)
	c.Check(ctx.EndEncapsulation(TagSequence), Equals, 0)
	c.Check(ctx.Err(), Equals, ErrInvalidOID)
}

func (s *marshalSuite) TestPushOIDInvalid(c *C) {
	for _, oid := range [][]byte{
		nil,
		{0x06},
		{0x04, 0x01, 0x00},
		{0x06, 0x05, 0x2b, 0x0e},
	} {
		ctx := NewMarshalContext(make([]byte, 64))
		c.Check(ctx.PushOID(oid), Equals, 0)
		c.Check(ctx.Err(), Equals, ErrInvalidOID)
	}
}

func (s *marshalSuite) TestTopAndDiscard(c *C) {
	ctx := NewMarshalContext(make([]byte, 16))
	ctx.StartMarshalContext()
	c.Check(ctx.PushUINT(5), Equals, 3)
	c.Check(ctx.Top(3), DEREquals, []byte{0x02, 0x01, 0x05})
	c.Check(ctx.PushTagAndLength(TagSequence, 3), Equals, 2)
	c.Check(ctx.Top(5), DEREquals, []byte{0x30, 0x03, 0x02, 0x01, 0x05})
	c.Check(ctx.Discard(2), IsTrue)
	c.Check(ctx.Top(3), DEREquals, []byte{0x02, 0x01, 0x05})
	c.Check(ctx.Discard(4), IsFalse)
	c.Check(ctx.Err(), Equals, ErrBufferFull)
}

func (s *marshalSuite) TestBytesWhileOpen(c *C) {
	ctx := NewMarshalContext(make([]byte, 16))
	ctx.StartMarshalContext()
	ctx.PushNull()
	c.Check(ctx.Bytes(), IsNil)
	c.Check(ctx.EndMarshalContext(), Equals, 2)
	c.Check(ctx.Bytes(), DEREquals, []byte{0x05, 0x00})
}
