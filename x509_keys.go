// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"github.com/canonical/go-tpmx509/internal/der"
)

// The encoders in this file prepend their output to a marshal context. When called with a nil context, nothing is
// encoded and they return 1 if a real call with the same arguments would encode something, or 0 if it would not.
// Otherwise, they return the number of bytes encoded, or 0 on failure.

// pushAlgorithmIdentifier prepends SEQUENCE { oid, NULL }.
func pushAlgorithmIdentifier(ctx *der.MarshalContext, oid []byte) int {
	ctx.StartMarshalContext()
	ctx.PushNull()
	ctx.PushOID(oid)
	return ctx.EndEncapsulation(der.TagSequence)
}

// addPublicKey prepends the SubjectPublicKeyInfo for the supplied object.
func addPublicKey(ctx *der.MarshalContext, obj *object) int {
	switch obj.public.Type {
	case ObjectTypeRSA:
		return addPublicRSA(ctx, obj.public)
	case ObjectTypeECC:
		return addPublicECC(ctx, obj.public)
	default:
		// There is no SubjectPublicKeyInfo encoding for symmetric objects, and none is defined yet for SM2.
		return 0
	}
}

func addPublicRSA(ctx *der.MarshalContext, pub *Public) int {
	if pub.Params == nil || pub.Params.RSADetail == nil || pub.Unique == nil {
		return 0
	}
	if ctx == nil {
		return 1
	}

	exp := pub.Params.RSADetail.Exponent
	if exp == 0 {
		exp = DefaultRSAExponent
	}

	ctx.StartMarshalContext() // SubjectPublicKeyInfo
	{
		ctx.StartMarshalContext() // subjectPublicKey
		{
			ctx.StartMarshalContext() // RSAPublicKey
			{
				ctx.PushUINT(exp)
				ctx.PushInteger(pub.Unique.RSA)
			}
			ctx.EndEncapsulation(der.TagSequence)
		}
		ctx.EndEncapsulation(der.TagBitString)
		pushAlgorithmIdentifier(ctx, oidRSAEncryption)
	}
	return ctx.EndEncapsulation(der.TagSequence)
}

func addPublicECC(ctx *der.MarshalContext, pub *Public) int {
	if pub.Params == nil || pub.Params.ECCDetail == nil || pub.Unique == nil || pub.Unique.ECC == nil {
		return 0
	}
	curveID := pub.Params.ECCDetail.CurveID
	curveOID := cryptEccGetOID(curveID)
	curve := curveID.GoCurve()
	if len(curveOID) == 0 || curveOID[0] != der.TagOID || curve == nil {
		return 0
	}
	if ctx == nil {
		return 1
	}

	size := (curve.Params().BitSize + 7) / 8

	ctx.StartMarshalContext() // SubjectPublicKeyInfo
	{
		ctx.StartMarshalContext() // subjectPublicKey
		{
			pushPaddedBytes(ctx, pub.Unique.ECC.Y, size)
			pushPaddedBytes(ctx, pub.Unique.ECC.X, size)
			ctx.PushByte(0x04) // uncompressed point
		}
		ctx.EndEncapsulation(der.TagBitString)
		ctx.StartMarshalContext() // AlgorithmIdentifier
		{
			ctx.PushOID(curveOID)
			ctx.PushOID(oidECCPublicKey)
		}
		ctx.EndEncapsulation(der.TagSequence)
	}
	return ctx.EndEncapsulation(der.TagSequence)
}

// pushPaddedBytes prepends data, left padded with zeroes to size bytes.
func pushPaddedBytes(ctx *der.MarshalContext, data []byte, size int) {
	for len(data) > size && data[0] == 0 {
		data = data[1:]
	}
	ctx.PushBytes(data)
	for i := len(data); i < size; i++ {
		ctx.PushByte(0)
	}
}

// addSigningAlgorithm prepends the AlgorithmIdentifier describing signatures made with the supplied key and scheme.
func addSigningAlgorithm(ctx *der.MarshalContext, signKey *object, scheme *SigScheme) int {
	switch signKey.public.Type {
	case ObjectTypeRSA:
		return addSigningAlgorithmRSA(ctx, signKey.public, scheme)
	case ObjectTypeECC:
		return addSigningAlgorithmECC(ctx, scheme)
	default:
		return 0
	}
}

func addSigningAlgorithmRSA(ctx *der.MarshalContext, signKey *Public, scheme *SigScheme) int {
	hashAlg := scheme.HashAlg()
	oids, ok := lookupHashOIDs(hashAlg)
	if !ok {
		return 0
	}

	switch scheme.Scheme {
	case SigSchemeAlgRSASSA:
		if len(oids.pkcs1) == 0 {
			return 0
		}
		if ctx == nil {
			return 1
		}
		return pushAlgorithmIdentifier(ctx, oids.pkcs1)
	case SigSchemeAlgRSAPSS:
		if len(oids.digest) == 0 {
			return 0
		}
		if ctx == nil {
			return 1
		}
		if hashAlg == HashAlgorithmSHA1 {
			// All of the RSASSA-PSS-params are the defaults, which must be omitted.
			ctx.StartMarshalContext()
			ctx.PushOID(oidRSAPSS)
			return ctx.EndEncapsulation(der.TagSequence)
		}

		ctx.StartMarshalContext() // AlgorithmIdentifier
		{
			ctx.StartMarshalContext() // RSASSA-PSS-params
			{
				ctx.StartMarshalContext() // [2] saltLength
				{
					ctx.PushUINT(uint32(cryptRsaPssSaltSize(hashAlg.Size(), len(signKey.Unique.RSA))))
				}
				ctx.EndEncapsulation(der.ExplicitTag(2))
				ctx.StartMarshalContext() // [1] maskGenAlgorithm
				{
					ctx.StartMarshalContext()
					{
						pushAlgorithmIdentifier(ctx, oids.digest)
						ctx.PushOID(oidMGF1)
					}
					ctx.EndEncapsulation(der.TagSequence)
				}
				ctx.EndEncapsulation(der.ExplicitTag(1))
				ctx.StartMarshalContext() // [0] hashAlgorithm
				{
					pushAlgorithmIdentifier(ctx, oids.digest)
				}
				ctx.EndEncapsulation(der.ExplicitTag(0))
			}
			ctx.EndEncapsulation(der.TagSequence)
			ctx.PushOID(oidRSAPSS)
		}
		return ctx.EndEncapsulation(der.TagSequence)
	default:
		return 0
	}
}

func addSigningAlgorithmECC(ctx *der.MarshalContext, scheme *SigScheme) int {
	oids, ok := lookupHashOIDs(scheme.HashAlg())
	if !ok {
		return 0
	}

	switch scheme.Scheme {
	case SigSchemeAlgECDSA:
		if len(oids.ecdsa) == 0 {
			return 0
		}
		if ctx == nil {
			return 1
		}
		ctx.StartMarshalContext()
		ctx.PushOID(oids.ecdsa)
		return ctx.EndEncapsulation(der.TagSequence)
	default:
		return 0
	}
}
