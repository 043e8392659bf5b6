// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"encoding/binary"
)

// This file contains types defined in section 10 (Structures) in
// part 2 of the library spec.

// Digest corresponds to the TPM2B_DIGEST type.
type Digest []byte

// Data corresponds to the TPM2B_DATA type.
type Data []byte

// MaxBuffer corresponds to the TPM2B_MAX_BUFFER type.
type MaxBuffer []byte

// Auth corresponds to the TPM2B_AUTH type.
type Auth Digest

// Nonce corresponds to the TPM2B_NONCE type.
type Nonce Digest

// Name corresponds to the TPM2B_NAME type.
type Name []byte

// Algorithm returns the digest algorithm of this name, or HashAlgorithmNull if it isn't a digest.
func (n Name) Algorithm() HashAlgorithmId {
	if len(n) < 2 {
		return HashAlgorithmNull
	}
	alg := HashAlgorithmId(binary.BigEndian.Uint16(n))
	if !alg.IsValid() || len(n) != alg.Size()+2 {
		return HashAlgorithmNull
	}
	return alg
}

// Digest returns the digest part of this name, or nil if it isn't a digest.
func (n Name) Digest() Digest {
	if n.Algorithm() == HashAlgorithmNull {
		return nil
	}
	return Digest(n[2:])
}

// SchemeHash corresponds to the TPMS_SCHEME_HASH type, and is used
// for schemes that only take a hash algorithm.
type SchemeHash struct {
	HashAlg HashAlgorithmId // Hash algorithm used to digest the message
}

// SchemeECDAA corresponds to the TPMS_SCHEME_ECDAA type.
type SchemeECDAA struct {
	HashAlg HashAlgorithmId // Hash algorithm used to digest the message
	Count   uint16
}

// SchemeXOR corresponds to the TPMS_SCHEME_XOR type.
type SchemeXOR struct {
	HashAlg HashAlgorithmId // Hash algorithm used to generate the mask
	KDF     KDFAlgorithmId  // Key derivation function
}
