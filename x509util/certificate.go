// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package x509util

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/xerrors"

	"github.com/canonical/go-tpmx509"
)

type partialCertificate struct {
	signature  []byte // nil if the TPM adds it
	issuer     []byte
	validity   []byte
	subject    []byte
	extensions []byte
}

func parsePartialCertificate(data []byte) (*partialCertificate, error) {
	in := cryptobyte.String(data)
	var contents cryptobyte.String
	if !in.ReadASN1(&contents, cryptobyte_asn1.SEQUENCE) || !in.Empty() {
		return nil, errors.New("not a single SEQUENCE")
	}

	var sequences [][]byte
	var extensions []byte
	for !contents.Empty() {
		var elem cryptobyte.String
		var tag cryptobyte_asn1.Tag
		if !contents.ReadAnyASN1Element(&elem, &tag) {
			return nil, errors.New("malformed element")
		}
		switch tag {
		case cryptobyte_asn1.SEQUENCE:
			sequences = append(sequences, elem)
		case tagExtensions:
			if extensions != nil {
				return nil, errors.New("more than one extensions element")
			}
			extensions = elem
		default:
			return nil, fmt.Errorf("unexpected element with tag 0x%02x", uint8(tag))
		}
	}
	if len(sequences) < 3 || len(sequences) > 4 {
		return nil, fmt.Errorf("unexpected number of SEQUENCE elements (%d)", len(sequences))
	}
	if extensions == nil {
		return nil, errors.New("no extensions element")
	}

	out := &partialCertificate{extensions: extensions}
	if len(sequences) == 4 {
		out.signature = sequences[0]
		sequences = sequences[1:]
	}
	out.issuer = sequences[0]
	out.validity = sequences[1]
	out.subject = sequences[2]
	return out, nil
}

type addedToCertificate struct {
	version              []byte
	serialNumber         []byte
	signature            []byte // nil if the caller supplied it
	subjectPublicKeyInfo []byte
}

func parseAddedToCertificate(data []byte, expectSignature bool) (*addedToCertificate, error) {
	in := cryptobyte.String(data)
	var contents cryptobyte.String
	if !in.ReadASN1(&contents, cryptobyte_asn1.SEQUENCE) || !in.Empty() {
		return nil, errors.New("not a single SEQUENCE")
	}

	var version, serial, signature, spki cryptobyte.String
	if !contents.ReadASN1Element(&version, tagVersion) {
		return nil, errors.New("cannot read version")
	}
	if !contents.ReadASN1Element(&serial, cryptobyte_asn1.INTEGER) {
		return nil, errors.New("cannot read serial number")
	}
	if expectSignature && !contents.ReadASN1Element(&signature, cryptobyte_asn1.SEQUENCE) {
		return nil, errors.New("cannot read signature algorithm")
	}
	if !contents.ReadASN1Element(&spki, cryptobyte_asn1.SEQUENCE) {
		return nil, errors.New("cannot read subject public key info")
	}
	if !contents.Empty() {
		return nil, errors.New("trailing bytes")
	}

	return &addedToCertificate{
		version:              version,
		serialNumber:         serial,
		signature:            signature,
		subjectPublicKeyInfo: spki}, nil
}

// AssembleTBSCertificate returns the DER encoded TBSCertificate created from the partial certificate supplied to
// TPM2_CertifyX509 and the addedToCertificate field of its response.
func AssembleTBSCertificate(partial, added []byte) ([]byte, error) {
	tbs, _, err := assembleTBSCertificate(partial, added)
	return tbs, err
}

func assembleTBSCertificate(partial, added []byte) (tbs, signatureAlgorithm []byte, err error) {
	p, err := parsePartialCertificate(partial)
	if err != nil {
		return nil, nil, xerrors.Errorf("cannot parse partial certificate: %w", err)
	}
	a, err := parseAddedToCertificate(added, p.signature == nil)
	if err != nil {
		return nil, nil, xerrors.Errorf("cannot parse addedToCertificate: %w", err)
	}

	signatureAlgorithm = p.signature
	if signatureAlgorithm == nil {
		signatureAlgorithm = a.signature
	}

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(a.version)
		b.AddBytes(a.serialNumber)
		b.AddBytes(signatureAlgorithm)
		b.AddBytes(p.issuer)
		b.AddBytes(p.validity)
		b.AddBytes(p.subject)
		b.AddBytes(a.subjectPublicKeyInfo)
		b.AddBytes(p.extensions)
	})
	tbs, err = b.Bytes()
	if err != nil {
		return nil, nil, xerrors.Errorf("cannot marshal TBSCertificate: %w", err)
	}
	return tbs, signatureAlgorithm, nil
}

// AssembleCertificate returns the DER encoded certificate created from the partial certificate supplied to
// TPM2_CertifyX509 and the addedToCertificate and signature fields of its response.
func AssembleCertificate(partial, added []byte, sig *tpmx509.Signature) ([]byte, error) {
	tbs, signatureAlgorithm, err := assembleTBSCertificate(partial, added)
	if err != nil {
		return nil, err
	}
	sigValue, err := MarshalSignatureValue(sig)
	if err != nil {
		return nil, xerrors.Errorf("cannot marshal signature: %w", err)
	}

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(tbs)
		b.AddBytes(signatureAlgorithm)
		b.AddASN1(cryptobyte_asn1.BIT_STRING, func(b *cryptobyte.Builder) {
			b.AddUint8(0)
			b.AddBytes(sigValue)
		})
	})
	return b.Bytes()
}
