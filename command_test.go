// Copyright 2022 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509_test

import (
	. "gopkg.in/check.v1"

	. "github.com/canonical/go-tpmx509"
	"github.com/canonical/go-tpmx509/internal/testutil"
	"github.com/canonical/go-tpmx509/mu"
)

type commandSuite struct{}

var _ = Suite(&commandSuite{})

func (s *commandSuite) TestMarshalCommandPacketNoSessions(c *C) {
	p := MarshalCommandPacket(CommandFlushContext, nil, nil, mu.MustMarshalToBytes(Handle(0x80000000)))

	expected := testutil.DecodeHexString(c, "80010000000e0000016580000000")
	c.Check(p, DeepEquals, CommandPacket(expected))
}

func (s *commandSuite) certifyX509Packet(c *C) CommandPacket {
	return CommandPacket(testutil.DecodeHexString(c, "80020000002d00000197800000008000000100000015"+
		"400000090000010003666f6f"+"400000090000010000"+"a5a5"))
}

func (s *commandSuite) TestMarshalCommandPacketWithSessions(c *C) {
	authArea := []AuthCommand{
		{
			SessionHandle:     HandlePW,
			SessionAttributes: AttrContinueSession,
			HMAC:              []byte("foo"),
		},
		{
			SessionHandle:     HandlePW,
			SessionAttributes: AttrContinueSession,
		}}
	p := MarshalCommandPacket(CommandCertifyX509, HandleList{0x80000000, 0x80000001}, authArea, []byte{0xa5, 0xa5})
	c.Check(p, DeepEquals, s.certifyX509Packet(c))
}

func (s *commandSuite) TestGetCommandCode(c *C) {
	code, err := s.certifyX509Packet(c).GetCommandCode()
	c.Check(err, IsNil)
	c.Check(code, Equals, CommandCertifyX509)
}

func (s *commandSuite) TestGetCommandCodeTooShort(c *C) {
	_, err := CommandPacket{0x80, 0x01}.GetCommandCode()
	c.Check(err, ErrorMatches, "cannot unmarshal header: .*")
}

func (s *commandSuite) TestUnmarshalCommandPacketWithSessions(c *C) {
	handles, authArea, parameters, err := s.certifyX509Packet(c).Unmarshal(2)
	c.Check(err, IsNil)
	c.Check(handles, DeepEquals, HandleList{0x80000000, 0x80000001})
	c.Check(authArea, DeepEquals, []AuthCommand{
		{SessionHandle: HandlePW, Nonce: Nonce{}, SessionAttributes: AttrContinueSession, HMAC: Auth("foo")},
		{SessionHandle: HandlePW, Nonce: Nonce{}, SessionAttributes: AttrContinueSession, HMAC: Auth{}}})
	c.Check(parameters, DeepEquals, []byte{0xa5, 0xa5})
}

func (s *commandSuite) TestUnmarshalCommandPacketNoSessions(c *C) {
	p := CommandPacket(testutil.DecodeHexString(c, "80010000000e0000016580000000"))
	handles, authArea, parameters, err := p.Unmarshal(0)
	c.Check(err, IsNil)
	c.Check(handles, HasLen, 0)
	c.Check(authArea, HasLen, 0)
	c.Check(parameters, DeepEquals, []byte{0x80, 0x00, 0x00, 0x00})
}

func (s *commandSuite) TestUnmarshalCommandPacketInvalidSize(c *C) {
	p := CommandPacket(testutil.DecodeHexString(c, "80010000001000000165"))
	_, _, _, err := p.Unmarshal(0)
	c.Check(err, ErrorMatches, `invalid commandSize value \(got 16, packet length 10\)`)
}

func (s *commandSuite) TestUnmarshalCommandPacketTooFewHandles(c *C) {
	p := CommandPacket(testutil.DecodeHexString(c, "80010000000a00000165"))
	_, _, _, err := p.Unmarshal(1)
	c.Check(err, ErrorMatches, "cannot unmarshal handles: .*")

	var e *mu.Error
	c.Check(err, testutil.ErrorAs, &e)
}

func (s *commandSuite) TestUnmarshalCommandPacketInvalidTag(c *C) {
	p := CommandPacket(testutil.DecodeHexString(c, "00010000000a00000165"))
	_, _, _, err := p.Unmarshal(0)
	c.Check(err, ErrorMatches, "invalid tag: 0x0001")
}

func (s *commandSuite) TestUnmarshalCommandPacketInvalidAuthSize(c *C) {
	p := CommandPacket(testutil.DecodeHexString(c, "80020000000e0000016500000010"))
	_, _, _, err := p.Unmarshal(0)
	c.Check(err, ErrorMatches, `auth area size is larger than the remaining bytes \(16\)`)
}

func (s *commandSuite) TestUnmarshalCommandPacketInvalidAuth(c *C) {
	p := CommandPacket(testutil.DecodeHexString(c, "800200000015000001650000000740000009000001"))
	_, _, _, err := p.Unmarshal(0)
	c.Check(err, ErrorMatches, "cannot unmarshal auth: .*")
}

func (s *commandSuite) TestMarshalResponsePacketNoSessions(c *C) {
	p := MarshalResponsePacket(ResponseSuccess, []byte{0xa5}, nil)
	c.Check(p, DeepEquals, ResponsePacket(testutil.DecodeHexString(c, "80010000000b00000000a5")))
}

func (s *commandSuite) TestMarshalResponsePacketWithSessions(c *C) {
	p := MarshalResponsePacket(ResponseSuccess, []byte{0x01, 0x02}, []AuthResponse{{SessionAttributes: AttrContinueSession}})
	c.Check(p, DeepEquals, ResponsePacket(testutil.DecodeHexString(c, "80020000001500000000000000020102000001"+"0000")))
}

func (s *commandSuite) TestMarshalResponsePacketError(c *C) {
	// Parameters and sessions are omitted from unsuccessful responses.
	p := MarshalResponsePacket(ResponseCode(0x18b), []byte{0x01}, []AuthResponse{{}})
	c.Check(p, DeepEquals, ResponsePacket(testutil.DecodeHexString(c, "80010000000a0000018b")))
}

func (s *commandSuite) TestMarshalResponsePacketBadTag(c *C) {
	p := MarshalResponsePacket(ResponseBadTag, nil, nil)
	c.Check(p, DeepEquals, ResponsePacket(testutil.DecodeHexString(c, "00c40000000a0000001e")))
}

func (s *commandSuite) TestUnmarshalResponsePacketNoSessions(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "80010000000b00000000a5"))
	rc, params, authArea, err := p.Unmarshal()
	c.Check(err, IsNil)
	c.Check(rc, Equals, ResponseSuccess)
	c.Check(params, DeepEquals, []byte{0xa5})
	c.Check(authArea, HasLen, 0)
}

func (s *commandSuite) TestUnmarshalResponsePacketWithSessions(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "80020000002800000000000000070005a5a5a5a5a500000100000004010203040000050506070809"))
	rc, params, authArea, err := p.Unmarshal()
	c.Check(err, IsNil)
	c.Check(params, DeepEquals, testutil.DecodeHexString(c, "0005a5a5a5a5a5"))
	c.Check(authArea, DeepEquals, []AuthResponse{
		{Nonce: Nonce{}, SessionAttributes: AttrContinueSession, HMAC: Auth{}},
		{Nonce: Nonce{1, 2, 3, 4}, HMAC: Auth{5, 6, 7, 8, 9}}})
	c.Check(rc, Equals, ResponseSuccess)
}

func (s *commandSuite) TestUnmarshalResponsePacketTPM12(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "00c40000000a0000001e"))
	rc, params, authArea, err := p.Unmarshal()
	c.Check(err, IsNil)
	c.Check(params, HasLen, 0)
	c.Check(authArea, HasLen, 0)
	c.Check(rc, Equals, ResponseBadTag)
}

func (s *commandSuite) TestUnmarshalUnsuccessfulResponse(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "80010000000a0000009a"))
	rc, _, _, err := p.Unmarshal()
	c.Check(err, IsNil)
	c.Check(rc, Equals, ResponseCode(0x9a))
}

func (s *commandSuite) TestUnmarshalResponsePacketTooSmall(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "80010000000a000000"))
	_, _, _, err := p.Unmarshal()
	c.Check(err, ErrorMatches, "cannot unmarshal header: .*")

	var e *mu.Error
	c.Check(err, testutil.ErrorAs, &e)
}

func (s *commandSuite) TestUnmarshalResponsePacketTooLarge(c *C) {
	p := make(ResponsePacket, 4097)
	_, _, _, err := p.Unmarshal()
	c.Check(err, ErrorMatches, `packet too large \(4097 bytes\)`)
}

func (s *commandSuite) TestUnmarshalResponsePacketInvalidSize(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "80010000001000000000"))
	_, _, _, err := p.Unmarshal()
	c.Check(err, ErrorMatches, `invalid responseSize value \(got 16, packet length 10\)`)
}

func (s *commandSuite) TestUnmarshalResponsePacketUnsuccessfulWithExtraBytes(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "80010000000c0000018ba5a5"))
	rc, _, _, err := p.Unmarshal()
	c.Check(err, ErrorMatches, `2 trailing byte\(s\) in unsuccessful response`)
	c.Check(rc, Equals, ResponseCode(0x18b))
}

func (s *commandSuite) TestUnmarshalResponsePacketUnexpectedTPM1(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "00c40000000a00000000"))
	_, _, _, err := p.Unmarshal()
	c.Check(err, ErrorMatches, "unexpected TPM1.2 response code 0x00000000")
}

func (s *commandSuite) TestUnmarshalResponsePacketUnsuccessfulWithSessions(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "80020000000a0000088e"))
	_, _, _, err := p.Unmarshal()
	c.Check(err, ErrorMatches, "unexpected response code 0x0000088e for TPM_ST_SESSIONS response")
}

func (s *commandSuite) TestUnmarshalResponsePacketInvalidParamSize(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "80020000001000000000000010070005"))
	_, _, _, err := p.Unmarshal()
	c.Check(err, ErrorMatches, `parameterSize is larger than the remaining bytes \(4103\)`)
}

func (s *commandSuite) TestUnmarshalResponsePacketInvalidAuthArea(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "800200000012000000000000000000000000"))
	_, _, _, err := p.Unmarshal()
	c.Check(err, ErrorMatches, "cannot unmarshal auth: .*")

	var e *mu.Error
	c.Check(err, testutil.ErrorAs, &e)
}

func (s *commandSuite) TestUnmarshalResponsePacketInvalidTag(c *C) {
	p := ResponsePacket(testutil.DecodeHexString(c, "00010000000a00000000"))
	_, _, _, err := p.Unmarshal()
	c.Check(err, ErrorMatches, "invalid tag: 0x0001")
}
