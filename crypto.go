// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"

	drbg "github.com/canonical/go-sp800.90a-drbg"
	"golang.org/x/xerrors"
)

// newDefaultRandom returns the engine's default random number generator, which is a SP800-90A HASH_DRBG seeded
// from the platform's entropy source.
func newDefaultRandom() (io.Reader, error) {
	rng, err := drbg.NewHash(crypto.SHA256, []byte("go-tpmx509"), rand.Reader)
	if err != nil {
		return nil, xerrors.Errorf("cannot instantiate DRBG: %w", err)
	}
	return rng, nil
}

// isSigningObject indicates whether the object can be used to create signatures. Public-only objects cannot.
func isSigningObject(obj *object) bool {
	return obj.public.Attrs&AttrSign != 0 && obj.priv != nil
}

// errUnsupportedSignScheme is returned from cryptSign for valid asymmetric signing schemes that this
// implementation cannot create signatures with.
var errUnsupportedSignScheme = errors.New("unsupported signature scheme")

// cryptIsAsymSignScheme indicates whether scheme is a signing scheme for keys of the specified type.
func cryptIsAsymSignScheme(keyType ObjectTypeId, scheme SigSchemeId) bool {
	switch keyType {
	case ObjectTypeRSA:
		switch scheme {
		case SigSchemeAlgRSASSA, SigSchemeAlgRSAPSS:
			return true
		}
	case ObjectTypeECC:
		switch scheme {
		case SigSchemeAlgECDSA, SigSchemeAlgECDAA, SigSchemeAlgSM2, SigSchemeAlgECSCHNORR:
			return true
		}
	}
	return false
}

// cryptSelectSignScheme selects the scheme used to create a signature with the supplied key. If the key has a
// scheme, the input scheme must either be null or identical to it, and the key's scheme is copied to scheme. If
// the key has no scheme, the input scheme is used and must not be null. It returns false if no scheme can be
// selected.
func cryptSelectSignScheme(signKey *object, scheme *SigScheme) bool {
	if signKey.public.Type == ObjectTypeSymCipher {
		return false
	}

	objectScheme := signKey.public.signScheme()
	switch {
	case objectScheme.Scheme == SigSchemeAlgNull:
		if scheme.Scheme == SigSchemeAlgNull {
			return false
		}
	case scheme.Scheme == SigSchemeAlgNull:
		if objectScheme.Scheme == SigSchemeAlgECDAA {
			// ECDAA signatures require a commit counter from the caller.
			return false
		}
		*scheme = objectScheme
	default:
		if objectScheme.Scheme != scheme.Scheme || objectScheme.HashAlg() != scheme.HashAlg() {
			return false
		}
	}

	if !cryptIsAsymSignScheme(signKey.public.Type, scheme.Scheme) {
		return false
	}
	return scheme.HashAlg().Available()
}

// cryptRsaPssSaltSize returns the salt size used for RSA-PSS signatures with the specified digest and modulus
// sizes. This is the largest salt permitted by FIPS 186-4, which is no larger than the digest.
func cryptRsaPssSaltSize(hashSize, outSize int) int {
	saltSize := outSize - hashSize - 2
	switch {
	case saltSize > hashSize:
		return hashSize
	case saltSize < 0:
		return 0
	default:
		return saltSize
	}
}

// cryptSign signs digest with the supplied key using the supplied scheme, which must already have been validated by
// cryptSelectSignScheme.
func cryptSign(rng io.Reader, signKey *object, scheme *SigScheme, digest []byte) (*Signature, error) {
	hashAlg := scheme.HashAlg()
	if !hashAlg.Available() {
		return nil, errors.New("digest algorithm is not available")
	}
	if len(digest) != hashAlg.Size() {
		return nil, errors.New("invalid digest length")
	}

	switch k := signKey.priv.(type) {
	case *rsa.PrivateKey:
		switch scheme.Scheme {
		case SigSchemeAlgRSASSA:
			sig, err := rsa.SignPKCS1v15(rng, k, hashAlg.GetHash(), digest)
			if err != nil {
				return nil, err
			}
			return &Signature{
				SigAlg: SigSchemeAlgRSASSA,
				Signature: &SignatureU{
					RSASSA: &SignatureRSA{
						Hash: hashAlg,
						Sig:  sig}}}, nil
		case SigSchemeAlgRSAPSS:
			options := rsa.PSSOptions{SaltLength: cryptRsaPssSaltSize(hashAlg.Size(), k.Size())}
			sig, err := rsa.SignPSS(rng, k, hashAlg.GetHash(), digest, &options)
			if err != nil {
				return nil, err
			}
			return &Signature{
				SigAlg: SigSchemeAlgRSAPSS,
				Signature: &SignatureU{
					RSAPSS: &SignatureRSA{
						Hash: hashAlg,
						Sig:  sig}}}, nil
		default:
			return nil, xerrors.Errorf("cannot use %v with RSA key: %w", scheme.Scheme, errUnsupportedSignScheme)
		}
	case *ecdsa.PrivateKey:
		switch scheme.Scheme {
		case SigSchemeAlgECDSA:
			r, s, err := ecdsa.Sign(rng, k, digest)
			if err != nil {
				return nil, err
			}
			size := (k.Curve.Params().BitSize + 7) / 8
			return &Signature{
				SigAlg: SigSchemeAlgECDSA,
				Signature: &SignatureU{
					ECDSA: &SignatureECC{
						Hash:       hashAlg,
						SignatureR: r.FillBytes(make([]byte, size)),
						SignatureS: s.FillBytes(make([]byte, size))}}}, nil
		default:
			return nil, xerrors.Errorf("cannot use %v with ECC key: %w", scheme.Scheme, errUnsupportedSignScheme)
		}
	default:
		return nil, errors.New("unsupported private key type")
	}
}
