// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509_test

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"math/big"

	. "gopkg.in/check.v1"

	. "github.com/canonical/go-tpmx509"
	"github.com/canonical/go-tpmx509/internal/testutil"
)

type cryptoSuite struct{}

var _ = Suite(&cryptoSuite{})

func (s *cryptoSuite) TestCryptRsaPssSaltSize(c *C) {
	for _, data := range []struct {
		hashSize int
		outSize  int
		expected int
	}{
		{hashSize: 32, outSize: 256, expected: 32},
		{hashSize: 64, outSize: 256, expected: 64},
		{hashSize: 64, outSize: 128, expected: 62},
		{hashSize: 20, outSize: 23, expected: 1},
		{hashSize: 20, outSize: 22, expected: 0},
		{hashSize: 64, outSize: 64, expected: 0},
	} {
		c.Check(CryptRsaPssSaltSize(data.hashSize, data.outSize), Equals, data.expected, Commentf("data: %+v", data))
	}
}

func (s *cryptoSuite) rsaObject(c *C, scheme RSASchemeId, hashAlg HashAlgorithmId) *Object {
	key := testutil.RSAKey(c, 2048)
	return NewTestObject(NewRSAPublic(HashAlgorithmSHA256, AttrSign, scheme, hashAlg, &key.PublicKey), key)
}

func (s *cryptoSuite) eccObject(c *C, scheme ECCSchemeId, hashAlg HashAlgorithmId) *Object {
	key := testutil.ECCKey(c, elliptic.P256())
	return NewTestObject(NewECCPublic(HashAlgorithmSHA256, AttrSign, scheme, hashAlg, &key.PublicKey), key)
}

type testCryptSelectSignSchemeData struct {
	signKey  *Object
	scheme   SigScheme
	ok       bool
	expected SigScheme
}

func (s *cryptoSuite) testCryptSelectSignScheme(c *C, data *testCryptSelectSignSchemeData) {
	scheme := data.scheme
	c.Check(CryptSelectSignScheme(data.signKey, &scheme), Equals, data.ok)
	if data.ok {
		c.Check(scheme, DeepEquals, data.expected)
	}
}

func (s *cryptoSuite) TestCryptSelectSignSchemeFromKey(c *C) {
	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey:  s.rsaObject(c, RSASchemeRSASSA, HashAlgorithmSHA256),
		scheme:   SigScheme{Scheme: SigSchemeAlgNull},
		ok:       true,
		expected: MakeSigScheme(SigSchemeAlgRSASSA, HashAlgorithmSHA256)})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeFromKeyECC(c *C) {
	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey:  s.eccObject(c, ECCSchemeECDSA, HashAlgorithmSHA384),
		scheme:   SigScheme{Scheme: SigSchemeAlgNull},
		ok:       true,
		expected: MakeSigScheme(SigSchemeAlgECDSA, HashAlgorithmSHA384)})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeMatchesKey(c *C) {
	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey:  s.rsaObject(c, RSASchemeRSAPSS, HashAlgorithmSHA384),
		scheme:   MakeSigScheme(SigSchemeAlgRSAPSS, HashAlgorithmSHA384),
		ok:       true,
		expected: MakeSigScheme(SigSchemeAlgRSAPSS, HashAlgorithmSHA384)})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeFromInput(c *C) {
	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey:  s.rsaObject(c, RSASchemeNull, HashAlgorithmNull),
		scheme:   MakeSigScheme(SigSchemeAlgRSAPSS, HashAlgorithmSHA512),
		ok:       true,
		expected: MakeSigScheme(SigSchemeAlgRSAPSS, HashAlgorithmSHA512)})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeNone(c *C) {
	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey: s.eccObject(c, ECCSchemeNull, HashAlgorithmNull),
		scheme:  SigScheme{Scheme: SigSchemeAlgNull}})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeDifferentScheme(c *C) {
	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey: s.rsaObject(c, RSASchemeRSASSA, HashAlgorithmSHA256),
		scheme:  MakeSigScheme(SigSchemeAlgRSAPSS, HashAlgorithmSHA256)})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeDifferentHash(c *C) {
	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey: s.eccObject(c, ECCSchemeECDSA, HashAlgorithmSHA256),
		scheme:  MakeSigScheme(SigSchemeAlgECDSA, HashAlgorithmSHA384)})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeUnavailableHash(c *C) {
	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey: s.eccObject(c, ECCSchemeNull, HashAlgorithmNull),
		scheme:  MakeSigScheme(SigSchemeAlgECDSA, HashAlgorithmSM3_256)})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeWrongKeyType(c *C) {
	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey: s.rsaObject(c, RSASchemeNull, HashAlgorithmNull),
		scheme:  MakeSigScheme(SigSchemeAlgECDSA, HashAlgorithmSHA256)})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeWrongKeyTypeECC(c *C) {
	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey: s.eccObject(c, ECCSchemeNull, HashAlgorithmNull),
		scheme:  MakeSigScheme(SigSchemeAlgRSASSA, HashAlgorithmSHA256)})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeECDAAFromInput(c *C) {
	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey:  s.eccObject(c, ECCSchemeNull, HashAlgorithmNull),
		scheme:   MakeSigScheme(SigSchemeAlgECDAA, HashAlgorithmSHA256),
		ok:       true,
		expected: MakeSigScheme(SigSchemeAlgECDAA, HashAlgorithmSHA256)})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeECDAA(c *C) {
	key := testutil.ECCKey(c, elliptic.P256())
	pub := NewECCPublic(HashAlgorithmSHA256, AttrSign, ECCSchemeECDAA, HashAlgorithmNull, &key.PublicKey)
	pub.Params.ECCDetail.Scheme.Details.ECDAA = &SchemeECDAA{HashAlg: HashAlgorithmSHA256}

	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey: NewTestObject(pub, key),
		scheme:  SigScheme{Scheme: SigSchemeAlgNull}})
}

func (s *cryptoSuite) TestCryptSelectSignSchemeSymCipher(c *C) {
	pub := &Public{
		Type:    ObjectTypeSymCipher,
		NameAlg: HashAlgorithmSHA256,
		Attrs:   AttrDecrypt | AttrSign,
		Params: &PublicParamsU{
			SymDetail: &SymCipherParams{
				Sym: SymDefObject{
					Algorithm: SymObjectAlgorithmAES,
					KeyBits:   &SymKeyBitsU{Sym: 128},
					Mode:      &SymModeU{Sym: SymModeCFB}}}},
		Unique: &PublicIDU{Sym: make(Digest, 32)}}

	s.testCryptSelectSignScheme(c, &testCryptSelectSignSchemeData{
		signKey: NewTestObject(pub, nil),
		scheme:  MakeSigScheme(SigSchemeAlgHMAC, HashAlgorithmSHA256)})
}

func (s *cryptoSuite) TestIsSigningObject(c *C) {
	key := testutil.ECCKey(c, elliptic.P256())
	c.Check(IsSigningObject(NewTestObject(NewECCPublic(HashAlgorithmSHA256, AttrSign, ECCSchemeNull, HashAlgorithmNull, &key.PublicKey), key)), testutil.IsTrue)
	c.Check(IsSigningObject(NewTestObject(NewECCPublic(HashAlgorithmSHA256, AttrSign, ECCSchemeNull, HashAlgorithmNull, &key.PublicKey), nil)), testutil.IsFalse)
	c.Check(IsSigningObject(NewTestObject(NewECCPublic(HashAlgorithmSHA256, AttrDecrypt, ECCSchemeNull, HashAlgorithmNull, &key.PublicKey), key)), testutil.IsFalse)
}

func (s *cryptoSuite) digest(alg HashAlgorithmId, data string) []byte {
	h := alg.NewHash()
	h.Write([]byte(data))
	return h.Sum(nil)
}

func (s *cryptoSuite) TestCryptSignRSASSA(c *C) {
	key := testutil.RSAKey(c, 2048)
	obj := s.rsaObject(c, RSASchemeNull, HashAlgorithmNull)
	scheme := MakeSigScheme(SigSchemeAlgRSASSA, HashAlgorithmSHA384)
	digest := s.digest(HashAlgorithmSHA384, "foo")

	sig, err := CryptSign(rand.Reader, obj, &scheme, digest)
	c.Assert(err, IsNil)
	c.Check(sig.SigAlg, Equals, SigSchemeAlgRSASSA)
	c.Assert(sig.Signature.RSASSA, NotNil)
	c.Check(sig.Signature.RSASSA.Hash, Equals, HashAlgorithmSHA384)
	c.Check(rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA384, digest, sig.Signature.RSASSA.Sig), IsNil)
}

func (s *cryptoSuite) TestCryptSignRSAPSS(c *C) {
	key := testutil.RSAKey(c, 2048)
	obj := s.rsaObject(c, RSASchemeNull, HashAlgorithmNull)
	scheme := MakeSigScheme(SigSchemeAlgRSAPSS, HashAlgorithmSHA256)
	digest := s.digest(HashAlgorithmSHA256, "bar")

	sig, err := CryptSign(rand.Reader, obj, &scheme, digest)
	c.Assert(err, IsNil)
	c.Check(sig.SigAlg, Equals, SigSchemeAlgRSAPSS)
	c.Assert(sig.Signature.RSAPSS, NotNil)
	c.Check(sig.Signature.RSAPSS.Hash, Equals, HashAlgorithmSHA256)
	// The salt size is fixed, so verification must succeed with it specified explicitly.
	c.Check(rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, digest, sig.Signature.RSAPSS.Sig, &rsa.PSSOptions{SaltLength: 32}), IsNil)
}

func (s *cryptoSuite) TestCryptSignECDSA(c *C) {
	key := testutil.ECCKey(c, elliptic.P256())
	obj := s.eccObject(c, ECCSchemeNull, HashAlgorithmNull)
	scheme := MakeSigScheme(SigSchemeAlgECDSA, HashAlgorithmSHA256)
	digest := s.digest(HashAlgorithmSHA256, "foo")

	sig, err := CryptSign(rand.Reader, obj, &scheme, digest)
	c.Assert(err, IsNil)
	c.Check(sig.SigAlg, Equals, SigSchemeAlgECDSA)
	c.Assert(sig.Signature.ECDSA, NotNil)
	c.Check(sig.Signature.ECDSA.Hash, Equals, HashAlgorithmSHA256)
	c.Check(sig.Signature.ECDSA.SignatureR, testutil.LenEquals, 32)
	c.Check(sig.Signature.ECDSA.SignatureS, testutil.LenEquals, 32)

	r := new(big.Int).SetBytes(sig.Signature.ECDSA.SignatureR)
	ss := new(big.Int).SetBytes(sig.Signature.ECDSA.SignatureS)
	c.Check(ecdsa.Verify(&key.PublicKey, digest, r, ss), testutil.IsTrue)
}

func (s *cryptoSuite) TestCryptSignInvalidDigestLength(c *C) {
	obj := s.eccObject(c, ECCSchemeNull, HashAlgorithmNull)
	scheme := MakeSigScheme(SigSchemeAlgECDSA, HashAlgorithmSHA256)

	_, err := CryptSign(rand.Reader, obj, &scheme, make([]byte, 20))
	c.Check(err, ErrorMatches, "invalid digest length")
}

func (s *cryptoSuite) TestCryptSignUnsupportedScheme(c *C) {
	obj := s.rsaObject(c, RSASchemeNull, HashAlgorithmNull)
	scheme := MakeSigScheme(SigSchemeAlgECDSA, HashAlgorithmSHA256)

	_, err := CryptSign(rand.Reader, obj, &scheme, make([]byte, 32))
	c.Check(err, ErrorMatches, "cannot use TPM_ALG_ECDSA with RSA key: unsupported signature scheme")
}

func (s *cryptoSuite) TestCryptSignUnsupportedSchemeECC(c *C) {
	obj := s.eccObject(c, ECCSchemeNull, HashAlgorithmNull)
	scheme := MakeSigScheme(SigSchemeAlgECDAA, HashAlgorithmSHA256)

	_, err := CryptSign(rand.Reader, obj, &scheme, make([]byte, 32))
	c.Check(err, ErrorMatches, "cannot use TPM_ALG_ECDAA with ECC key: unsupported signature scheme")
}

func (s *cryptoSuite) TestCryptSignPublicOnly(c *C) {
	key := testutil.ECCKey(c, elliptic.P256())
	obj := NewTestObject(NewECCPublic(HashAlgorithmSHA256, AttrSign, ECCSchemeNull, HashAlgorithmNull, &key.PublicKey), nil)
	scheme := MakeSigScheme(SigSchemeAlgECDSA, HashAlgorithmSHA256)

	_, err := CryptSign(rand.Reader, obj, &scheme, make([]byte, 32))
	c.Check(err, ErrorMatches, "unsupported private key type")
}

func (s *cryptoSuite) TestNewDefaultRandom(c *C) {
	rng, err := NewDefaultRandom()
	c.Assert(err, IsNil)

	a := make([]byte, 32)
	b := make([]byte, 32)
	_, err = rng.Read(a)
	c.Check(err, IsNil)
	_, err = rng.Read(b)
	c.Check(err, IsNil)
	c.Check(a, Not(DeepEquals), b)
}
