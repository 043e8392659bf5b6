// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509_test

import (
	"crypto/elliptic"
	"crypto/x509/pkix"
	"encoding/asn1"

	. "gopkg.in/check.v1"

	. "github.com/canonical/go-tpmx509"
	"github.com/canonical/go-tpmx509/internal/der"
	"github.com/canonical/go-tpmx509/internal/testutil"
)

type extensionsSuite struct{}

var _ = Suite(&extensionsSuite{})

func (s *extensionsSuite) newObject(c *C, attrs ObjectAttributes) *Object {
	key := testutil.ECCKey(c, elliptic.P256())
	return NewTestObject(NewECCPublic(HashAlgorithmSHA256, attrs, ECCSchemeNull, HashAlgorithmNull, &key.PublicKey), nil)
}

// extensionsContext returns a context positioned at the first extension in a SEQUENCE OF Extension.
func (s *extensionsSuite) extensionsContext(c *C, exts ...pkix.Extension) *der.UnmarshalContext {
	ctx, err := der.NewUnmarshalContext(mustMarshalASN1(c, exts))
	c.Assert(err, IsNil)
	c.Assert(ctx.NextTag() >= 0, testutil.IsTrue)
	return ctx
}

func (s *extensionsSuite) checkExtensionError(c *C, err error, code ErrorCode, comment ...interface{}) {
	var e *ExtensionError
	c.Assert(err, testutil.ErrorAs, append([]interface{}{&e}, comment...)...)
	c.Check(e.Code(), Equals, append([]interface{}{code}, comment...)...)
}

func (s *extensionsSuite) TestFindExtensionByOID(c *C) {
	ctx := s.extensionsContext(c,
		pkix.Extension{Id: asn1.ObjectIdentifier{2, 5, 29, 19}, Critical: true, Value: []byte{0x30, 0x00}},
		makeKeyUsageExtension(c, KeyUsageDigitalSignature))
	offset := ctx.Offset()

	var ext der.UnmarshalContext
	c.Check(FindExtensionByOID(ctx, &ext, OIDKeyUsageExtension), testutil.IsTrue)
	c.Check(ext.Valid(), testutil.IsTrue)
	c.Check(ext.Bytes(ext.Remaining()), DeepEquals, testutil.DecodeHexString(c, "0603551d0f0101ff040403020080"))

	// The searched context is not modified.
	c.Check(ctx.Offset(), Equals, offset)
	c.Check(ctx.Valid(), testutil.IsTrue)
}

func (s *extensionsSuite) TestFindExtensionByOIDInPlace(c *C) {
	ctx := s.extensionsContext(c, makeTPMAObjectExtension(c, AttrSign), makeKeyUsageExtension(c, KeyUsageDigitalSignature))

	c.Check(FindExtensionByOID(ctx, nil, OIDTCGTPMAObject), testutil.IsTrue)
	c.Check(ctx.Valid(), testutil.IsTrue)
	c.Check(ctx.Remaining(), Equals, 18)
}

func (s *extensionsSuite) TestFindExtensionByOIDNotFound(c *C) {
	ctx := s.extensionsContext(c, makeKeyUsageExtension(c, KeyUsageDigitalSignature))

	var ext der.UnmarshalContext
	c.Check(FindExtensionByOID(ctx, &ext, OIDTCGTPMAObject), testutil.IsFalse)
	c.Check(ext.Valid(), testutil.IsTrue)
	c.Check(ext.Remaining(), Equals, 0)
	c.Check(ctx.Valid(), testutil.IsTrue)
}

func (s *extensionsSuite) TestFindExtensionByOIDMalformed(c *C) {
	ctx, err := der.NewUnmarshalContext(testutil.DecodeHexString(c, "3005020101"+"0500"))
	c.Assert(err, IsNil)
	c.Assert(ctx.NextTag(), Equals, 5)

	var ext der.UnmarshalContext
	c.Check(FindExtensionByOID(ctx, &ext, OIDKeyUsageExtension), testutil.IsFalse)
	c.Check(ext.Valid(), testutil.IsFalse)
	c.Check(ctx.Valid(), testutil.IsFalse)
	c.Check(ctx.Err(), ErrorMatches, ".*: extension is not a SEQUENCE")
}

func (s *extensionsSuite) TestFindExtensionByOIDTruncated(c *C) {
	ctx, err := der.NewUnmarshalContext(testutil.DecodeHexString(c, "300530060603551d"))
	c.Assert(err, IsNil)
	c.Assert(ctx.NextTag(), Equals, 5)

	var ext der.UnmarshalContext
	c.Check(FindExtensionByOID(ctx, &ext, OIDKeyUsageExtension), testutil.IsFalse)
	c.Check(ctx.Err(), testutil.ErrorIs, der.ErrTruncated)
}

func (s *extensionsSuite) TestGetExtensionBits(c *C) {
	ctx := s.extensionsContext(c, makeKeyUsageExtension(c, KeyUsageDigitalSignature|KeyUsageDecipherOnly))

	var ext der.UnmarshalContext
	c.Assert(FindExtensionByOID(ctx, &ext, OIDKeyUsageExtension), testutil.IsTrue)
	value, ok := GetExtensionBits(&ext)
	c.Check(ok, testutil.IsTrue)
	c.Check(X509KeyUsage(value), Equals, KeyUsageDigitalSignature|KeyUsageDecipherOnly)
}

func (s *extensionsSuite) TestGetExtensionBitsNoCritical(c *C) {
	ctx := s.extensionsContext(c, makeTPMAObjectExtension(c, AttrSign|AttrFixedTPM|AttrRestricted))

	var ext der.UnmarshalContext
	c.Assert(FindExtensionByOID(ctx, &ext, OIDTCGTPMAObject), testutil.IsTrue)
	value, ok := GetExtensionBits(&ext)
	c.Check(ok, testutil.IsTrue)
	c.Check(ObjectAttributes(value), Equals, AttrSign|AttrFixedTPM|AttrRestricted)
}

func (s *extensionsSuite) TestGetExtensionBitsNoValue(c *C) {
	ctx, err := der.NewUnmarshalContext(testutil.DecodeHexString(c, "0603551d0f0101ff"))
	c.Assert(err, IsNil)

	_, ok := GetExtensionBits(ctx)
	c.Check(ok, testutil.IsFalse)
	c.Check(ctx.Err(), ErrorMatches, ".*extension has no OCTET STRING value")
}

func (s *extensionsSuite) TestGetExtensionBitsNotBitString(c *C) {
	ctx, err := der.NewUnmarshalContext(testutil.DecodeHexString(c, "0603551d0f0403020180"))
	c.Assert(err, IsNil)

	_, ok := GetExtensionBits(ctx)
	c.Check(ok, testutil.IsFalse)
	c.Check(ctx.Err(), testutil.ErrorIs, der.ErrInvalidBitString)
}

func (s *extensionsSuite) TestProcessExtensionsKeyUsageMatrix(c *C) {
	attrBits := []ObjectAttributes{AttrSign, AttrDecrypt, AttrFixedTPM, AttrRestricted}
	usages := []struct {
		usage    X509KeyUsage
		required ObjectAttributes
	}{
		{usage: KeyUsageDigitalSignature, required: AttrSign},
		{usage: KeyUsageKeyEncipherment, required: AttrDecrypt},
		{usage: KeyUsageNonRepudiation, required: AttrFixedTPM},
		{usage: KeyUsageKeyAgreement, required: AttrDecrypt | AttrRestricted},
	}

	for i := 0; i < 1<<len(attrBits); i++ {
		var attrs ObjectAttributes
		for j, attr := range attrBits {
			if i&(1<<uint(j)) != 0 {
				attrs |= attr
			}
		}
		obj := s.newObject(c, attrs)

		for _, u := range usages {
			comment := Commentf("attrs: 0x%08x, usage: 0x%08x", uint32(attrs), uint32(u.usage))
			err := ProcessExtensions(obj, makeExtensions(c, makeKeyUsageExtension(c, u.usage)))
			if attrs&u.required == u.required {
				c.Check(err, IsNil, comment)
			} else {
				s.checkExtensionError(c, err, ErrorValue, comment)
			}
		}
	}
}

func (s *extensionsSuite) TestProcessExtensionsSigningUsages(c *C) {
	for _, usage := range []X509KeyUsage{KeyUsageDigitalSignature, KeyUsageKeyCertSign, KeyUsageCRLSign} {
		comment := Commentf("usage: 0x%08x", uint32(usage))
		ext := makeExtensions(c, makeKeyUsageExtension(c, usage))
		c.Check(ProcessExtensions(s.newObject(c, AttrSign), ext), IsNil, comment)
		s.checkExtensionError(c, ProcessExtensions(s.newObject(c, AttrDecrypt), ext), ErrorValue, comment)
	}
}

func (s *extensionsSuite) TestProcessExtensionsDecryptingUsages(c *C) {
	for _, usage := range []X509KeyUsage{KeyUsageDecipherOnly, KeyUsageDataEncipherment, KeyUsageKeyEncipherment} {
		comment := Commentf("usage: 0x%08x", uint32(usage))
		ext := makeExtensions(c, makeKeyUsageExtension(c, usage))
		c.Check(ProcessExtensions(s.newObject(c, AttrDecrypt), ext), IsNil, comment)
		s.checkExtensionError(c, ProcessExtensions(s.newObject(c, AttrSign), ext), ErrorValue, comment)
	}
}

func (s *extensionsSuite) TestProcessExtensionsNoDeclaredUsage(c *C) {
	ext := makeExtensions(c, makeKeyUsageExtension(c, KeyUsageEncipherOnly))
	c.Check(ProcessExtensions(s.newObject(c, 0), ext), IsNil)
}

func (s *extensionsSuite) TestProcessExtensionsTPMAObjectMatch(c *C) {
	attrs := AttrFixedTPM | AttrFixedParent | AttrSensitiveDataOrigin | AttrUserWithAuth | AttrSign
	ext := makeExtensions(c,
		pkix.Extension{Id: asn1.ObjectIdentifier{2, 5, 29, 19}, Value: []byte{0x30, 0x00}},
		makeTPMAObjectExtension(c, attrs),
		makeKeyUsageExtension(c, KeyUsageDigitalSignature))
	c.Check(ProcessExtensions(s.newObject(c, attrs), ext), IsNil)
}

func (s *extensionsSuite) TestProcessExtensionsTPMAObjectMismatch(c *C) {
	attrs := AttrFixedTPM | AttrSign
	ext := makeExtensions(c,
		makeKeyUsageExtension(c, KeyUsageDigitalSignature),
		makeTPMAObjectExtension(c, attrs|AttrRestricted))
	err := ProcessExtensions(s.newObject(c, attrs), ext)
	s.checkExtensionError(c, err, ErrorAttributes)
	c.Check(err, ErrorMatches, `invalid extensions \(TPM_RC_ATTRIBUTES\): TPMA_OBJECT extension \(0x00050002\) does not match the object attributes \(0x00040002\)`)
}

func (s *extensionsSuite) TestProcessExtensionsTPMAObjectMismatchIsCheckedFirst(c *C) {
	// The TPMA_OBJECT extension is checked before the KeyUsage extension, even though the KeyUsage extension is
	// also inconsistent.
	ext := makeExtensions(c,
		makeKeyUsageExtension(c, KeyUsageKeyEncipherment),
		makeTPMAObjectExtension(c, AttrDecrypt))
	s.checkExtensionError(c, ProcessExtensions(s.newObject(c, AttrSign), ext), ErrorAttributes)
}

func (s *extensionsSuite) TestProcessExtensionsTPMAObjectMalformed(c *C) {
	ext := makeExtensions(c,
		pkix.Extension{Id: asn1.ObjectIdentifier{2, 23, 133, 10, 1, 1, 1}, Value: []byte{0x02, 0x01, 0x00}},
		makeKeyUsageExtension(c, KeyUsageDigitalSignature))
	s.checkExtensionError(c, ProcessExtensions(s.newObject(c, AttrSign), ext), ErrorValue)
}

func (s *extensionsSuite) TestProcessExtensionsTPMAObjectTooLong(c *C) {
	ext := makeExtensions(c,
		makeBitStringExtension(c, asn1.ObjectIdentifier{2, 23, 133, 10, 1, 1, 1}, false, []byte{0, 4, 0, 0, 0}, 40),
		makeKeyUsageExtension(c, KeyUsageDigitalSignature))
	s.checkExtensionError(c, ProcessExtensions(s.newObject(c, AttrSign), ext), ErrorValue)
}

func (s *extensionsSuite) TestProcessExtensionsMissingKeyUsage(c *C) {
	ext := makeExtensions(c, makeTPMAObjectExtension(c, AttrSign))
	err := ProcessExtensions(s.newObject(c, AttrSign), ext)
	s.checkExtensionError(c, err, ErrorValue)
	c.Check(err, ErrorMatches, `invalid extensions \(TPM_RC_VALUE\): missing KeyUsage extension`)
}

func (s *extensionsSuite) TestProcessExtensionsEmpty(c *C) {
	s.checkExtensionError(c, ProcessExtensions(s.newObject(c, AttrSign), nil), ErrorValue)
}

func (s *extensionsSuite) TestProcessExtensionsWrongTag(c *C) {
	ext := mustMarshalASN1(c, []pkix.Extension{makeKeyUsageExtension(c, KeyUsageDigitalSignature)})
	err := ProcessExtensions(s.newObject(c, AttrSign), ext)
	s.checkExtensionError(c, err, ErrorValue)
	c.Check(err, ErrorMatches, `invalid extensions \(TPM_RC_VALUE\): missing \[3\] tag`)
}

func (s *extensionsSuite) TestProcessExtensionsNotSequence(c *C) {
	err := ProcessExtensions(s.newObject(c, AttrSign), testutil.DecodeHexString(c, "a303020100"))
	s.checkExtensionError(c, err, ErrorValue)
	c.Check(err, ErrorMatches, `invalid extensions \(TPM_RC_VALUE\): extensions are not a SEQUENCE`)
}

func (s *extensionsSuite) TestProcessExtensionsMalformedExtension(c *C) {
	err := ProcessExtensions(s.newObject(c, AttrSign), testutil.DecodeHexString(c, "a305300302010a"))
	s.checkExtensionError(c, err, ErrorValue)
	c.Check(err, ErrorMatches, `invalid extensions \(TPM_RC_VALUE\): cannot search extensions: .*`)
}
