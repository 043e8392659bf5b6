// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"reflect"

	"github.com/canonical/go-tpmx509/mu"
)

// This file contains types defined in section 11 (Algorithm Parameters
// and Structures) in part 2 of the library spec.

// SymKeyBitsU is a union type that corresponds to the TPMU_SYM_KEY_BITS type.
type SymKeyBitsU struct {
	Sym uint16
	XOR HashAlgorithmId
}

func (b *SymKeyBitsU) Select(selector reflect.Value) interface{} {
	switch AlgorithmId(selector.Uint()) {
	case AlgorithmAES, AlgorithmSM4, AlgorithmCamellia:
		return &b.Sym
	case AlgorithmXOR:
		return &b.XOR
	case AlgorithmNull:
		return mu.NilUnionValue
	default:
		return nil
	}
}

// SymModeU is a union type that corresponds to the TPMU_SYM_MODE type.
type SymModeU struct {
	Sym SymModeId
}

func (m *SymModeU) Select(selector reflect.Value) interface{} {
	switch AlgorithmId(selector.Uint()) {
	case AlgorithmAES, AlgorithmSM4, AlgorithmCamellia:
		return &m.Sym
	case AlgorithmXOR, AlgorithmNull:
		return mu.NilUnionValue
	default:
		return nil
	}
}

// SymDefObject corresponds to the TPMT_SYM_DEF_OBJECT type, and is used to define an object's symmetric algorithm.
type SymDefObject struct {
	Algorithm SymObjectAlgorithmId // Symmetric algorithm
	KeyBits   *SymKeyBitsU         `tpm2:"selector:Algorithm"` // Symmetric key size
	Mode      *SymModeU            `tpm2:"selector:Algorithm"` // Symmetric mode
}

// SymCipherParams corresponds to the TPMS_SYMCIPHER_PARMS type, and contains the parameters for a symmetric object.
type SymCipherParams struct {
	Sym SymDefObject
}

// SchemeKeyedHashU is a union type that corresponds to the TPMU_SCHEME_KEYED_HASH type.
type SchemeKeyedHashU struct {
	HMAC *SchemeHash
	XOR  *SchemeXOR
}

func (d *SchemeKeyedHashU) Select(selector reflect.Value) interface{} {
	switch AlgorithmId(selector.Uint()) {
	case AlgorithmHMAC:
		return &d.HMAC
	case AlgorithmXOR:
		return &d.XOR
	case AlgorithmNull:
		return mu.NilUnionValue
	default:
		return nil
	}
}

// KeyedHashScheme corresponds to the TPMT_KEYEDHASH_SCHEME type.
type KeyedHashScheme struct {
	Scheme  KeyedHashSchemeId // Scheme selector
	Details *SchemeKeyedHashU `tpm2:"selector:Scheme"` // Scheme specific parameters
}

// SigSchemeU is a union type that corresponds to the TPMU_SIG_SCHEME type.
type SigSchemeU struct {
	RSASSA    *SchemeHash
	RSAPSS    *SchemeHash
	ECDSA     *SchemeHash
	ECDAA     *SchemeECDAA
	SM2       *SchemeHash
	ECSchnorr *SchemeHash
	HMAC      *SchemeHash
}

func (s *SigSchemeU) Select(selector reflect.Value) interface{} {
	switch AlgorithmId(selector.Uint()) {
	case AlgorithmRSASSA:
		return &s.RSASSA
	case AlgorithmRSAPSS:
		return &s.RSAPSS
	case AlgorithmECDSA:
		return &s.ECDSA
	case AlgorithmECDAA:
		return &s.ECDAA
	case AlgorithmSM2:
		return &s.SM2
	case AlgorithmECSCHNORR:
		return &s.ECSchnorr
	case AlgorithmHMAC:
		return &s.HMAC
	case AlgorithmNull:
		return mu.NilUnionValue
	default:
		return nil
	}
}

// SigScheme corresponds to the TPMT_SIG_SCHEME type.
type SigScheme struct {
	Scheme  SigSchemeId // Scheme selector
	Details *SigSchemeU `tpm2:"selector:Scheme"` // Scheme specific parameters
}

// HashAlg returns the digest algorithm associated with this scheme, or HashAlgorithmNull if there isn't one.
func (s *SigScheme) HashAlg() HashAlgorithmId {
	if s == nil || s.Details == nil {
		return HashAlgorithmNull
	}
	switch s.Scheme {
	case SigSchemeAlgRSASSA:
		return schemeHashAlg(s.Details.RSASSA)
	case SigSchemeAlgRSAPSS:
		return schemeHashAlg(s.Details.RSAPSS)
	case SigSchemeAlgECDSA:
		return schemeHashAlg(s.Details.ECDSA)
	case SigSchemeAlgECDAA:
		if s.Details.ECDAA == nil {
			return HashAlgorithmNull
		}
		return s.Details.ECDAA.HashAlg
	case SigSchemeAlgSM2:
		return schemeHashAlg(s.Details.SM2)
	case SigSchemeAlgECSCHNORR:
		return schemeHashAlg(s.Details.ECSchnorr)
	case SigSchemeAlgHMAC:
		return schemeHashAlg(s.Details.HMAC)
	default:
		return HashAlgorithmNull
	}
}

func schemeHashAlg(s *SchemeHash) HashAlgorithmId {
	if s == nil {
		return HashAlgorithmNull
	}
	return s.HashAlg
}

// MakeSigScheme returns a signature scheme with the specified scheme and digest algorithm.
func MakeSigScheme(scheme SigSchemeId, hashAlg HashAlgorithmId) SigScheme {
	details := new(SigSchemeU)
	switch scheme {
	case SigSchemeAlgRSASSA:
		details.RSASSA = &SchemeHash{HashAlg: hashAlg}
	case SigSchemeAlgRSAPSS:
		details.RSAPSS = &SchemeHash{HashAlg: hashAlg}
	case SigSchemeAlgECDSA:
		details.ECDSA = &SchemeHash{HashAlg: hashAlg}
	case SigSchemeAlgECDAA:
		details.ECDAA = &SchemeECDAA{HashAlg: hashAlg}
	case SigSchemeAlgSM2:
		details.SM2 = &SchemeHash{HashAlg: hashAlg}
	case SigSchemeAlgECSCHNORR:
		details.ECSchnorr = &SchemeHash{HashAlg: hashAlg}
	case SigSchemeAlgHMAC:
		details.HMAC = &SchemeHash{HashAlg: hashAlg}
	default:
		return SigScheme{Scheme: SigSchemeAlgNull}
	}
	return SigScheme{Scheme: scheme, Details: details}
}

// KDFSchemeU is a union type that corresponds to the TPMU_KDF_SCHEME type.
type KDFSchemeU struct {
	MGF1           *SchemeHash
	KDF1_SP800_56A *SchemeHash
	KDF2           *SchemeHash
	KDF1_SP800_108 *SchemeHash
}

func (s *KDFSchemeU) Select(selector reflect.Value) interface{} {
	switch AlgorithmId(selector.Uint()) {
	case AlgorithmMGF1:
		return &s.MGF1
	case AlgorithmKDF1_SP800_56A:
		return &s.KDF1_SP800_56A
	case AlgorithmKDF2:
		return &s.KDF2
	case AlgorithmKDF1_SP800_108:
		return &s.KDF1_SP800_108
	case AlgorithmNull:
		return mu.NilUnionValue
	default:
		return nil
	}
}

// KDFScheme corresponds to the TPMT_KDF_SCHEME type.
type KDFScheme struct {
	Scheme  KDFAlgorithmId // Scheme selector
	Details *KDFSchemeU    `tpm2:"selector:Scheme"` // Scheme specific parameters.
}

// AsymSchemeU is a union type that corresponds to the TPMU_ASYM_SCHEME type.
type AsymSchemeU struct {
	RSASSA    *SchemeHash
	RSAPSS    *SchemeHash
	OAEP      *SchemeHash
	ECDSA     *SchemeHash
	ECDH      *SchemeHash
	ECDAA     *SchemeECDAA
	SM2       *SchemeHash
	ECSchnorr *SchemeHash
	ECMQV     *SchemeHash
}

func (s *AsymSchemeU) Select(selector reflect.Value) interface{} {
	switch AlgorithmId(selector.Uint()) {
	case AlgorithmRSASSA:
		return &s.RSASSA
	case AlgorithmRSAES, AlgorithmNull:
		return mu.NilUnionValue
	case AlgorithmRSAPSS:
		return &s.RSAPSS
	case AlgorithmOAEP:
		return &s.OAEP
	case AlgorithmECDSA:
		return &s.ECDSA
	case AlgorithmECDH:
		return &s.ECDH
	case AlgorithmECDAA:
		return &s.ECDAA
	case AlgorithmSM2:
		return &s.SM2
	case AlgorithmECSCHNORR:
		return &s.ECSchnorr
	case AlgorithmECMQV:
		return &s.ECMQV
	default:
		return nil
	}
}

// RSAScheme corresponds to the TPMT_RSA_SCHEME type.
type RSAScheme struct {
	Scheme  RSASchemeId  // Scheme selector
	Details *AsymSchemeU `tpm2:"selector:Scheme"` // Scheme specific parameters.
}

// ECCScheme corresponds to the TPMT_ECC_SCHEME type.
type ECCScheme struct {
	Scheme  ECCSchemeId  // Scheme selector
	Details *AsymSchemeU `tpm2:"selector:Scheme"` // Scheme specific parameters.
}

// PublicKeyRSA corresponds to the TPM2B_PUBLIC_KEY_RSA type.
type PublicKeyRSA []byte

// ECCParameter corresponds to the TPM2B_ECC_PARAMETER type.
type ECCParameter []byte

// ECCPoint corresponds to the TPMS_ECC_POINT type, and contains the coordinates for an elliptic curve point.
type ECCPoint struct {
	X ECCParameter // X coordinate
	Y ECCParameter // Y coordinate
}

// SignatureRSA corresponds to the TPMS_SIGNATURE_RSA type.
type SignatureRSA struct {
	Hash HashAlgorithmId // Hash algorithm used to digest the message
	Sig  PublicKeyRSA    // Signature, which is the same size as the public key
}

// SignatureECC corresponds to the TPMS_SIGNATURE_ECC type.
type SignatureECC struct {
	Hash       HashAlgorithmId // Hash is the digest algorithm used in the signature process
	SignatureR ECCParameter
	SignatureS ECCParameter
}

// SignatureU is a union type that corresponds to TPMU_SIGNATURE.
type SignatureU struct {
	RSASSA    *SignatureRSA
	RSAPSS    *SignatureRSA
	ECDSA     *SignatureECC
	ECDAA     *SignatureECC
	SM2       *SignatureECC
	ECSchnorr *SignatureECC
}

func (s *SignatureU) Select(selector reflect.Value) interface{} {
	switch AlgorithmId(selector.Uint()) {
	case AlgorithmRSASSA:
		return &s.RSASSA
	case AlgorithmRSAPSS:
		return &s.RSAPSS
	case AlgorithmECDSA:
		return &s.ECDSA
	case AlgorithmECDAA:
		return &s.ECDAA
	case AlgorithmSM2:
		return &s.SM2
	case AlgorithmECSCHNORR:
		return &s.ECSchnorr
	case AlgorithmNull:
		return mu.NilUnionValue
	default:
		return nil
	}
}

// Signature corresponds to the TPMT_SIGNATURE type. It is returned by the attestation commands.
type Signature struct {
	SigAlg    SigSchemeId // Signature algorithm
	Signature *SignatureU `tpm2:"selector:SigAlg"` // Actual signature
}
