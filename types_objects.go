// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"math/big"
	"reflect"

	"golang.org/x/xerrors"

	"github.com/canonical/go-tpmx509/mu"
)

// This file contains types defined in section 12 (Key/Object Complex)
// in part 2 of the library spec.

// DefaultRSAExponent is the public exponent of a RSA key with an Exponent of zero.
const DefaultRSAExponent = 65537

// PublicIDU is a union type that corresponds to the TPMU_PUBLIC_ID type.
type PublicIDU struct {
	KeyedHash Digest
	Sym       Digest
	RSA       PublicKeyRSA
	ECC       *ECCPoint
}

func (p *PublicIDU) Select(selector reflect.Value) interface{} {
	switch ObjectTypeId(selector.Uint()) {
	case ObjectTypeRSA:
		return &p.RSA
	case ObjectTypeKeyedHash:
		return &p.KeyedHash
	case ObjectTypeECC:
		return &p.ECC
	case ObjectTypeSymCipher:
		return &p.Sym
	default:
		return nil
	}
}

// KeyedHashParams corresponds to the TPMS_KEYEDHASH_PARMS type, and defines the public parameters for a keyedhash
// object.
type KeyedHashParams struct {
	Scheme KeyedHashScheme // Signing method for a keyed hash signing object
}

// RSAParams corresponds to the TPMS_RSA_PARMS type, and defines the public parameters for a RSA key.
type RSAParams struct {
	Symmetric SymDefObject // Symmetric algorithm for a restricted decrypt key.
	// Scheme is the signing or decrypt scheme. For an unrestricted signing key, this may be null to allow the
	// scheme to be selected when the key is used.
	Scheme   RSAScheme
	KeyBits  uint16 // Number of bits in the public modulus
	Exponent uint32 // Public exponent. When zero, the exponent is 65537
}

// ECCParams corresponds to the TPMS_ECC_PARMS type, and defines the public parameters for an ECC key.
type ECCParams struct {
	Symmetric SymDefObject // Symmetric algorithm for a restricted decrypt key.
	// Scheme is the signing or key exchange scheme. For an unrestricted signing key, this may be null to allow the
	// scheme to be selected when the key is used.
	Scheme  ECCScheme
	CurveID ECCCurve  // ECC curve ID
	KDF     KDFScheme // Unused - always KDFAlgorithmNull
}

// PublicParamsU is a union type that corresponds to the TPMU_PUBLIC_PARMS type.
type PublicParamsU struct {
	KeyedHashDetail *KeyedHashParams
	SymDetail       *SymCipherParams
	RSADetail       *RSAParams
	ECCDetail       *ECCParams
}

func (p *PublicParamsU) Select(selector reflect.Value) interface{} {
	switch ObjectTypeId(selector.Uint()) {
	case ObjectTypeRSA:
		return &p.RSADetail
	case ObjectTypeKeyedHash:
		return &p.KeyedHashDetail
	case ObjectTypeECC:
		return &p.ECCDetail
	case ObjectTypeSymCipher:
		return &p.SymDetail
	default:
		return nil
	}
}

// Public corresponds to the TPMT_PUBLIC type, and defines the public area for an object.
type Public struct {
	Type       ObjectTypeId     // Type of this object
	NameAlg    HashAlgorithmId  // NameAlg is the algorithm used to compute the name of this object
	Attrs      ObjectAttributes // Object attributes
	AuthPolicy Digest           // Authorization policy for this object
	Params     *PublicParamsU   `tpm2:"selector:Type"` // Type specific parameters
	Unique     *PublicIDU       `tpm2:"selector:Type"` // Type specific unique identifier
}

// ComputeName computes the name of this object, which is the name algorithm followed by the digest of the
// marshalled public area.
func (p *Public) ComputeName() (Name, error) {
	if !p.NameAlg.Available() {
		return nil, xerrors.Errorf("unsupported name algorithm or algorithm not linked into binary: %v", p.NameAlg)
	}
	h := p.NameAlg.NewHash()
	if _, err := mu.MarshalToWriter(h, p); err != nil {
		return nil, xerrors.Errorf("cannot marshal public object: %w", err)
	}
	return mu.MustMarshalToBytes(p.NameAlg, mu.RawBytes(h.Sum(nil))), nil
}

// IsAsymmetric indicates that this public area is associated with an asymmetric key.
func (p *Public) IsAsymmetric() bool {
	return p.Type.IsAsymmetric()
}

// Public returns a corresponding public key for the TPM public area. This will panic if the public area does not
// correspond to an asymmetric key.
func (p *Public) Public() crypto.PublicKey {
	switch p.Type {
	case ObjectTypeRSA:
		exp := int(p.Params.RSADetail.Exponent)
		if exp == 0 {
			exp = DefaultRSAExponent
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(p.Unique.RSA),
			E: exp}
	case ObjectTypeECC:
		return &ecdsa.PublicKey{
			Curve: p.Params.ECCDetail.CurveID.GoCurve(),
			X:     new(big.Int).SetBytes(p.Unique.ECC.X),
			Y:     new(big.Int).SetBytes(p.Unique.ECC.Y)}
	default:
		panic("object is not a public key")
	}
}

// signScheme returns the signing scheme of this object's public area as a SigScheme. It returns a scheme with
// SigSchemeAlgNull if the object has no signing scheme.
func (p *Public) signScheme() SigScheme {
	null := SigScheme{Scheme: SigSchemeAlgNull}
	if p.Params == nil {
		return null
	}
	switch p.Type {
	case ObjectTypeRSA:
		if p.Params.RSADetail == nil || p.Params.RSADetail.Scheme.Details == nil {
			return null
		}
		s := p.Params.RSADetail.Scheme
		switch s.Scheme {
		case RSASchemeRSASSA:
			return MakeSigScheme(SigSchemeAlgRSASSA, schemeHashAlg(s.Details.RSASSA))
		case RSASchemeRSAPSS:
			return MakeSigScheme(SigSchemeAlgRSAPSS, schemeHashAlg(s.Details.RSAPSS))
		}
	case ObjectTypeECC:
		if p.Params.ECCDetail == nil || p.Params.ECCDetail.Scheme.Details == nil {
			return null
		}
		s := p.Params.ECCDetail.Scheme
		switch s.Scheme {
		case ECCSchemeECDSA:
			return MakeSigScheme(SigSchemeAlgECDSA, schemeHashAlg(s.Details.ECDSA))
		case ECCSchemeECDAA:
			scheme := MakeSigScheme(SigSchemeAlgECDAA, HashAlgorithmNull)
			if s.Details.ECDAA != nil {
				scheme.Details.ECDAA = &SchemeECDAA{HashAlg: s.Details.ECDAA.HashAlg, Count: s.Details.ECDAA.Count}
			}
			return scheme
		case ECCSchemeSM2:
			return MakeSigScheme(SigSchemeAlgSM2, schemeHashAlg(s.Details.SM2))
		case ECCSchemeECSCHNORR:
			return MakeSigScheme(SigSchemeAlgECSCHNORR, schemeHashAlg(s.Details.ECSchnorr))
		}
	case ObjectTypeKeyedHash:
		if p.Params.KeyedHashDetail == nil || p.Params.KeyedHashDetail.Scheme.Details == nil {
			return null
		}
		s := p.Params.KeyedHashDetail.Scheme
		if s.Scheme == KeyedHashSchemeHMAC {
			return MakeSigScheme(SigSchemeAlgHMAC, schemeHashAlg(s.Details.HMAC))
		}
	}
	return null
}

// NewRSAPublic returns the public area for an unrestricted RSA key with the specified attributes and scheme.
func NewRSAPublic(nameAlg HashAlgorithmId, attrs ObjectAttributes, scheme RSASchemeId, schemeHash HashAlgorithmId, key *rsa.PublicKey) *Public {
	exp := uint32(key.E)
	if exp == DefaultRSAExponent {
		exp = 0
	}
	details := new(AsymSchemeU)
	switch scheme {
	case RSASchemeRSASSA:
		details.RSASSA = &SchemeHash{HashAlg: schemeHash}
	case RSASchemeRSAPSS:
		details.RSAPSS = &SchemeHash{HashAlg: schemeHash}
	case RSASchemeOAEP:
		details.OAEP = &SchemeHash{HashAlg: schemeHash}
	}
	return &Public{
		Type:    ObjectTypeRSA,
		NameAlg: nameAlg,
		Attrs:   attrs,
		Params: &PublicParamsU{
			RSADetail: &RSAParams{
				Symmetric: SymDefObject{Algorithm: SymObjectAlgorithmNull},
				Scheme:    RSAScheme{Scheme: scheme, Details: details},
				KeyBits:   uint16(key.N.BitLen()),
				Exponent:  exp}},
		Unique: &PublicIDU{RSA: key.N.Bytes()}}
}

// NewECCPublic returns the public area for an unrestricted ECC key with the specified attributes and scheme. It
// returns nil if the key's curve is not supported.
func NewECCPublic(nameAlg HashAlgorithmId, attrs ObjectAttributes, scheme ECCSchemeId, schemeHash HashAlgorithmId, key *ecdsa.PublicKey) *Public {
	var curve ECCCurve
	for id, c := range eccCurves {
		if c == key.Curve {
			curve = id
			break
		}
	}
	if curve == 0 {
		return nil
	}
	details := new(AsymSchemeU)
	switch scheme {
	case ECCSchemeECDSA:
		details.ECDSA = &SchemeHash{HashAlg: schemeHash}
	case ECCSchemeECDH:
		details.ECDH = &SchemeHash{HashAlg: schemeHash}
	}
	size := (key.Curve.Params().BitSize + 7) / 8
	return &Public{
		Type:    ObjectTypeECC,
		NameAlg: nameAlg,
		Attrs:   attrs,
		Params: &PublicParamsU{
			ECCDetail: &ECCParams{
				Symmetric: SymDefObject{Algorithm: SymObjectAlgorithmNull},
				Scheme:    ECCScheme{Scheme: scheme, Details: details},
				CurveID:   curve,
				KDF:       KDFScheme{Scheme: KDFAlgorithmNull}}},
		Unique: &PublicIDU{
			ECC: &ECCPoint{
				X: key.X.FillBytes(make([]byte, size)),
				Y: key.Y.FillBytes(make([]byte, size))}}}
}
