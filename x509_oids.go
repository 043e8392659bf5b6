// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

// DER encoded object identifiers, including the tag and length octets.
var (
	oidSHA1     = []byte{0x06, 0x05, 0x2b, 0x0e, 0x03, 0x02, 0x1a}
	oidSHA256   = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01}
	oidSHA384   = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x02}
	oidSHA512   = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x03}
	oidSHA3_256 = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x08}
	oidSHA3_384 = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x09}
	oidSHA3_512 = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x0a}

	oidPKCS1SHA1     = []byte{0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x05}
	oidPKCS1SHA256   = []byte{0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x0b}
	oidPKCS1SHA384   = []byte{0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x0c}
	oidPKCS1SHA512   = []byte{0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x0d}
	oidPKCS1SHA3_256 = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x03, 0x0e}
	oidPKCS1SHA3_384 = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x03, 0x0f}
	oidPKCS1SHA3_512 = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x03, 0x10}

	oidECDSASHA1     = []byte{0x06, 0x07, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x04, 0x01}
	oidECDSASHA256   = []byte{0x06, 0x08, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x04, 0x03, 0x02}
	oidECDSASHA384   = []byte{0x06, 0x08, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x04, 0x03, 0x03}
	oidECDSASHA512   = []byte{0x06, 0x08, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x04, 0x03, 0x04}
	oidECDSASHA3_256 = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x03, 0x0a}
	oidECDSASHA3_384 = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x03, 0x0b}
	oidECDSASHA3_512 = []byte{0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x03, 0x0c}

	oidRSAEncryption = []byte{0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x01}
	oidRSAPSS        = []byte{0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x0a}
	oidMGF1          = []byte{0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x08}
	oidECCPublicKey  = []byte{0x06, 0x07, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x02, 0x01}

	oidNISTP224 = []byte{0x06, 0x05, 0x2b, 0x81, 0x04, 0x00, 0x21}
	oidNISTP256 = []byte{0x06, 0x08, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x03, 0x01, 0x07}
	oidNISTP384 = []byte{0x06, 0x05, 0x2b, 0x81, 0x04, 0x00, 0x22}
	oidNISTP521 = []byte{0x06, 0x05, 0x2b, 0x81, 0x04, 0x00, 0x23}

	// id-ce-keyUsage, 2.5.29.15
	oidKeyUsageExtension = []byte{0x06, 0x03, 0x55, 0x1d, 0x0f}

	// tcg-tpmaObject, 2.23.133.10.1.1.1
	oidTCGTPMAObject = []byte{0x06, 0x07, 0x67, 0x81, 0x05, 0x0a, 0x01, 0x01, 0x01}
)

// hashOIDInfo contains the object identifiers associated with a digest algorithm. Any of these may be nil if
// there is no identifier for the combination.
type hashOIDInfo struct {
	digest []byte // The identifier of the digest algorithm itself
	pkcs1  []byte // The identifier of RSASSA-PKCS1-v1_5 with this digest
	ecdsa  []byte // The identifier of ECDSA with this digest
}

var (
	hashOIDs  = make(map[HashAlgorithmId]hashOIDInfo)
	curveOIDs = make(map[ECCCurve][]byte)
)

func addHashOIDs(alg HashAlgorithmId, digest, pkcs1, ecdsa []byte) {
	hashOIDs[alg] = hashOIDInfo{digest: digest, pkcs1: pkcs1, ecdsa: ecdsa}
}

func init() {
	addHashOIDs(HashAlgorithmSHA1, oidSHA1, oidPKCS1SHA1, oidECDSASHA1)
	addHashOIDs(HashAlgorithmSHA256, oidSHA256, oidPKCS1SHA256, oidECDSASHA256)
	addHashOIDs(HashAlgorithmSHA384, oidSHA384, oidPKCS1SHA384, oidECDSASHA384)
	addHashOIDs(HashAlgorithmSHA512, oidSHA512, oidPKCS1SHA512, oidECDSASHA512)
	addHashOIDs(HashAlgorithmSHA3_256, oidSHA3_256, oidPKCS1SHA3_256, oidECDSASHA3_256)
	addHashOIDs(HashAlgorithmSHA3_384, oidSHA3_384, oidPKCS1SHA3_384, oidECDSASHA3_384)
	addHashOIDs(HashAlgorithmSHA3_512, oidSHA3_512, oidPKCS1SHA3_512, oidECDSASHA3_512)

	curveOIDs[ECCCurveNIST_P224] = oidNISTP224
	curveOIDs[ECCCurveNIST_P256] = oidNISTP256
	curveOIDs[ECCCurveNIST_P384] = oidNISTP384
	curveOIDs[ECCCurveNIST_P521] = oidNISTP521
}

// lookupHashOIDs returns the object identifiers for the specified digest algorithm. Digests that are not linked
// in to the current binary have no identifiers, because nothing can be signed with them.
func lookupHashOIDs(alg HashAlgorithmId) (hashOIDInfo, bool) {
	if !alg.Available() {
		return hashOIDInfo{}, false
	}
	info, ok := hashOIDs[alg]
	return info, ok
}

// cryptEccGetOID returns the DER encoded object identifier for the specified curve, or nil if there isn't one.
func cryptEccGetOID(curve ECCCurve) []byte {
	return curveOIDs[curve]
}
