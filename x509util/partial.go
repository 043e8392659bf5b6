// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package x509util

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/binary"
	"errors"
	"math/bits"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/xerrors"

	"github.com/canonical/go-tpmx509"
)

var (
	oidExtensionKeyUsage   = asn1.ObjectIdentifier{2, 5, 29, 15}
	oidExtensionTPMAObject = asn1.ObjectIdentifier{2, 23, 133, 10, 1, 1, 1}

	tagExtensions = cryptobyte_asn1.Tag(3).ContextSpecific().Constructed()
	tagVersion    = cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()
)

// PartialTemplate describes the fields of a certificate that are supplied to TPM2_CertifyX509.
type PartialTemplate struct {
	// SignatureAlgorithm is an optional DER encoded AlgorithmIdentifier. If it is not supplied, the TPM adds one
	// that is appropriate for the signing key and scheme.
	SignatureAlgorithm []byte

	Issuer    pkix.Name
	NotBefore time.Time
	NotAfter  time.Time
	Subject   pkix.Name

	// KeyUsage is encoded in the mandatory KeyUsage extension. The TPM checks it against the attributes of the
	// certified object.
	KeyUsage tpmx509.X509KeyUsage

	// ObjectAttributes is encoded in the optional TCG TPMA_OBJECT extension if it is not nil. The TPM requires it to
	// match the attributes of the certified object.
	ObjectAttributes *tpmx509.ObjectAttributes

	ExtraExtensions []pkix.Extension
}

// marshalBitString returns the DER encoding of a BIT STRING containing the bits of v, where the most significant bit
// of v is the first bit. Trailing zero bits are removed.
func marshalBitString(v uint32) ([]byte, error) {
	var data [4]byte
	binary.BigEndian.PutUint32(data[:], v)
	n := len(data)
	for n > 0 && data[n-1] == 0 {
		n--
	}
	unused := 0
	if n > 0 {
		unused = bits.TrailingZeros8(data[n-1])
	}

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.BIT_STRING, func(b *cryptobyte.Builder) {
		b.AddUint8(uint8(unused))
		b.AddBytes(data[:n])
	})
	return b.Bytes()
}

func addExtension(b *cryptobyte.Builder, id asn1.ObjectIdentifier, critical bool, value []byte) {
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(id)
		if critical {
			b.AddASN1Boolean(true)
		}
		b.AddASN1OctetString(value)
	})
}

func marshalTime(t time.Time) ([]byte, error) {
	// encoding/asn1 picks UTCTime or GeneralizedTime depending on the year, as RFC5280 requires.
	return asn1.Marshal(t.UTC().Truncate(time.Second))
}

// NewPartialCertificate returns the DER encoded partial certificate described by template, for use as the
// partialCertificate parameter of TPM2_CertifyX509.
func NewPartialCertificate(template *PartialTemplate) ([]byte, error) {
	if len(template.SignatureAlgorithm) > 0 {
		s := cryptobyte.String(template.SignatureAlgorithm)
		var alg cryptobyte.String
		if !s.ReadASN1Element(&alg, cryptobyte_asn1.SEQUENCE) || !s.Empty() {
			return nil, errors.New("invalid signature algorithm")
		}
	}
	if template.NotAfter.Before(template.NotBefore) {
		return nil, errors.New("certificate expires before it is valid")
	}

	issuer, err := asn1.Marshal(template.Issuer.ToRDNSequence())
	if err != nil {
		return nil, xerrors.Errorf("cannot marshal issuer: %w", err)
	}
	subject, err := asn1.Marshal(template.Subject.ToRDNSequence())
	if err != nil {
		return nil, xerrors.Errorf("cannot marshal subject: %w", err)
	}
	notBefore, err := marshalTime(template.NotBefore)
	if err != nil {
		return nil, xerrors.Errorf("cannot marshal notBefore: %w", err)
	}
	notAfter, err := marshalTime(template.NotAfter)
	if err != nil {
		return nil, xerrors.Errorf("cannot marshal notAfter: %w", err)
	}

	keyUsage, err := marshalBitString(uint32(template.KeyUsage))
	if err != nil {
		return nil, xerrors.Errorf("cannot marshal key usage: %w", err)
	}
	var attrs []byte
	if template.ObjectAttributes != nil {
		attrs, err = marshalBitString(uint32(*template.ObjectAttributes))
		if err != nil {
			return nil, xerrors.Errorf("cannot marshal object attributes: %w", err)
		}
	}

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(template.SignatureAlgorithm)
		b.AddBytes(issuer)
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddBytes(notBefore)
			b.AddBytes(notAfter)
		})
		b.AddBytes(subject)
		b.AddASN1(tagExtensions, func(b *cryptobyte.Builder) {
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
				addExtension(b, oidExtensionKeyUsage, true, keyUsage)
				if attrs != nil {
					addExtension(b, oidExtensionTPMAObject, false, attrs)
				}
				for _, ext := range template.ExtraExtensions {
					addExtension(b, ext.Id, ext.Critical, ext.Value)
				}
			})
		})
	})
	return b.Bytes()
}
