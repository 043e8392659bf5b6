// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

// This file contains types defined in section 8 (Attributes) in
// part 2 of the library spec.

// ObjectAttributes corresponds to the TPMA_OBJECT type, and represents
// the attributes for an object.
type ObjectAttributes uint32

const (
	AttrFixedTPM             ObjectAttributes = 1 << 1
	AttrStClear              ObjectAttributes = 1 << 2
	AttrFixedParent          ObjectAttributes = 1 << 4
	AttrSensitiveDataOrigin  ObjectAttributes = 1 << 5
	AttrUserWithAuth         ObjectAttributes = 1 << 6
	AttrAdminWithPolicy      ObjectAttributes = 1 << 7
	AttrNoDA                 ObjectAttributes = 1 << 10
	AttrEncryptedDuplication ObjectAttributes = 1 << 11
	AttrRestricted           ObjectAttributes = 1 << 16
	AttrDecrypt              ObjectAttributes = 1 << 17
	AttrSign                 ObjectAttributes = 1 << 18
	AttrX509Sign             ObjectAttributes = 1 << 19
)

// X509KeyUsage is the value of a X.509 KeyUsage extension, as returned from
// a BIT STRING decoder that places the first bit of the string in the most
// significant bit of a 32-bit value.
type X509KeyUsage uint32

const (
	KeyUsageDigitalSignature X509KeyUsage = 1 << 31
	KeyUsageNonRepudiation   X509KeyUsage = 1 << 30
	KeyUsageKeyEncipherment  X509KeyUsage = 1 << 29
	KeyUsageDataEncipherment X509KeyUsage = 1 << 28
	KeyUsageKeyAgreement     X509KeyUsage = 1 << 27
	KeyUsageKeyCertSign      X509KeyUsage = 1 << 26
	KeyUsageCRLSign          X509KeyUsage = 1 << 25
	KeyUsageEncipherOnly     X509KeyUsage = 1 << 24
	KeyUsageDecipherOnly     X509KeyUsage = 1 << 23

	// KeyUsageSigning is the set of usages that require the sign attribute.
	KeyUsageSigning = KeyUsageDigitalSignature | KeyUsageKeyCertSign | KeyUsageCRLSign

	// KeyUsageDecrypting is the set of usages that require the decrypt attribute.
	KeyUsageDecrypting = KeyUsageDecipherOnly | KeyUsageKeyAgreement | KeyUsageDataEncipherment |
		KeyUsageKeyEncipherment
)
