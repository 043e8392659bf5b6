// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package x509util

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/canonical/go-tpmx509"
)

// MarshalSignatureValue returns the encoding of the supplied signature that is used for the signatureValue field of a
// certificate. This is the raw signature for RSA signatures, and a DER encoded Ecdsa-Sig-Value for ECDSA signatures.
func MarshalSignatureValue(sig *tpmx509.Signature) ([]byte, error) {
	if sig == nil || sig.Signature == nil {
		return nil, errors.New("no signature")
	}

	switch sig.SigAlg {
	case tpmx509.SigSchemeAlgRSASSA:
		if sig.Signature.RSASSA == nil {
			return nil, errors.New("no RSASSA signature")
		}
		return sig.Signature.RSASSA.Sig, nil
	case tpmx509.SigSchemeAlgRSAPSS:
		if sig.Signature.RSAPSS == nil {
			return nil, errors.New("no RSAPSS signature")
		}
		return sig.Signature.RSAPSS.Sig, nil
	case tpmx509.SigSchemeAlgECDSA:
		if sig.Signature.ECDSA == nil {
			return nil, errors.New("no ECDSA signature")
		}
		var b cryptobyte.Builder
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1BigInt(new(big.Int).SetBytes(sig.Signature.ECDSA.SignatureR))
			b.AddASN1BigInt(new(big.Int).SetBytes(sig.Signature.ECDSA.SignatureS))
		})
		return b.Bytes()
	default:
		return nil, errors.New("unsupported signature algorithm")
	}
}

// VerifySignature verifies a signature created by TPM2_CertifyX509 using the supplied public key. Note that only
// RSA-SSA, RSA-PSS and ECDSA signatures are supported.
func VerifySignature(key interface{}, digest []byte, signature *tpmx509.Signature) (ok bool, err error) {
	if signature == nil || signature.Signature == nil {
		return false, errors.New("no signature")
	}

	switch k := key.(type) {
	case *rsa.PublicKey:
		var sig *tpmx509.SignatureRSA
		switch signature.SigAlg {
		case tpmx509.SigSchemeAlgRSASSA:
			sig = signature.Signature.RSASSA
		case tpmx509.SigSchemeAlgRSAPSS:
			sig = signature.Signature.RSAPSS
		default:
			return false, errors.New("unsupported RSA signature algorithm")
		}
		if sig == nil || !sig.Hash.Available() {
			return false, errors.New("digest algorithm is not available")
		}

		switch signature.SigAlg {
		case tpmx509.SigSchemeAlgRSASSA:
			err = rsa.VerifyPKCS1v15(k, sig.Hash.GetHash(), digest, sig.Sig)
		default:
			options := rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto}
			err = rsa.VerifyPSS(k, sig.Hash.GetHash(), digest, sig.Sig, &options)
		}
		switch {
		case err == rsa.ErrVerification:
			return false, nil
		case err != nil:
			return false, err
		}
		return true, nil
	case *ecdsa.PublicKey:
		switch signature.SigAlg {
		case tpmx509.SigSchemeAlgECDSA:
			sig := signature.Signature.ECDSA
			if sig == nil {
				return false, errors.New("no ECDSA signature")
			}
			ok = ecdsa.Verify(k, digest, new(big.Int).SetBytes(sig.SignatureR), new(big.Int).SetBytes(sig.SignatureS))
			return ok, nil
		default:
			return false, errors.New("unsupported ECC signature algorithm")
		}
	default:
		return false, errors.New("invalid public key type")
	}
}
