// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package main

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/pem"
	"io/ioutil"
	"strings"

	"github.com/google/certificate-transparency-go/x509"
	"golang.org/x/xerrors"

	"github.com/canonical/go-tpmx509"
)

var hashAlgs = map[string]tpmx509.HashAlgorithmId{
	"sha1":     tpmx509.HashAlgorithmSHA1,
	"sha256":   tpmx509.HashAlgorithmSHA256,
	"sha384":   tpmx509.HashAlgorithmSHA384,
	"sha512":   tpmx509.HashAlgorithmSHA512,
	"sha3-256": tpmx509.HashAlgorithmSHA3_256,
	"sha3-384": tpmx509.HashAlgorithmSHA3_384,
	"sha3-512": tpmx509.HashAlgorithmSHA3_512,
}

var keyUsages = map[string]tpmx509.X509KeyUsage{
	"digitalSignature": tpmx509.KeyUsageDigitalSignature,
	"nonRepudiation":   tpmx509.KeyUsageNonRepudiation,
	"keyEncipherment":  tpmx509.KeyUsageKeyEncipherment,
	"dataEncipherment": tpmx509.KeyUsageDataEncipherment,
	"keyAgreement":     tpmx509.KeyUsageKeyAgreement,
	"keyCertSign":      tpmx509.KeyUsageKeyCertSign,
	"cRLSign":          tpmx509.KeyUsageCRLSign,
	"encipherOnly":     tpmx509.KeyUsageEncipherOnly,
	"decipherOnly":     tpmx509.KeyUsageDecipherOnly,
}

func parseHashAlg(name string) (tpmx509.HashAlgorithmId, error) {
	alg, ok := hashAlgs[strings.ToLower(name)]
	if !ok {
		return tpmx509.HashAlgorithmNull, xerrors.Errorf("unsupported digest algorithm %q", name)
	}
	return alg, nil
}

func parseKeyUsage(s string) (tpmx509.X509KeyUsage, error) {
	var usage tpmx509.X509KeyUsage
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		u, ok := keyUsages[name]
		if !ok {
			return 0, xerrors.Errorf("unknown key usage %q", name)
		}
		usage |= u
	}
	if usage == 0 {
		return 0, xerrors.New("no key usage specified")
	}
	return usage, nil
}

// objectAttributes returns the attributes of a certified object that are consistent with the supplied key usage.
func objectAttributes(usage tpmx509.X509KeyUsage) tpmx509.ObjectAttributes {
	var attrs tpmx509.ObjectAttributes
	if usage&tpmx509.KeyUsageSigning != 0 {
		attrs |= tpmx509.AttrSign
	}
	if usage&tpmx509.KeyUsageDecrypting != 0 {
		attrs |= tpmx509.AttrDecrypt
	}
	if usage&tpmx509.KeyUsageNonRepudiation != 0 {
		attrs |= tpmx509.AttrFixedTPM
	}
	if usage&tpmx509.KeyUsageKeyAgreement != 0 {
		attrs |= tpmx509.AttrRestricted
	}
	return attrs
}

func readPEMBlock(path string) (*pem.Block, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, xerrors.New("no PEM data found")
	}
	return block, nil
}

func parsePrivateKey(block *pem.Block) (crypto.Signer, error) {
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, xerrors.Errorf("unsupported key type %T", key)
		}
		return signer, nil
	default:
		return nil, xerrors.Errorf("unexpected PEM block type %q", block.Type)
	}
}

func readPrivateKey(path string) (crypto.Signer, error) {
	block, err := readPEMBlock(path)
	if err != nil {
		return nil, err
	}
	return parsePrivateKey(block)
}

// readKey returns the public key from the PEM file at the specified path, which may contain a public key or a
// private key.
func readKey(path string) (crypto.PublicKey, error) {
	block, err := readPEMBlock(path)
	if err != nil {
		return nil, err
	}
	if block.Type == "PUBLIC KEY" {
		return x509.ParsePKIXPublicKey(block.Bytes)
	}
	key, err := parsePrivateKey(block)
	if err != nil {
		return nil, err
	}
	return key.Public(), nil
}

// newSigningPublic returns the public area of a signing key with the named scheme. If no scheme is specified, RSA keys
// use RSASSA and ECC keys use ECDSA.
func newSigningPublic(key crypto.Signer, scheme string, hashAlg tpmx509.HashAlgorithmId) (*tpmx509.Public, error) {
	switch k := key.Public().(type) {
	case *rsa.PublicKey:
		var rsaScheme tpmx509.RSASchemeId
		switch scheme {
		case "", "rsassa":
			rsaScheme = tpmx509.RSASchemeRSASSA
		case "rsapss":
			rsaScheme = tpmx509.RSASchemeRSAPSS
		default:
			return nil, xerrors.Errorf("invalid scheme %q for RSA key", scheme)
		}
		return tpmx509.NewRSAPublic(tpmx509.HashAlgorithmSHA256, tpmx509.AttrSign, rsaScheme, hashAlg, k), nil
	case *ecdsa.PublicKey:
		if scheme != "" && scheme != "ecdsa" {
			return nil, xerrors.Errorf("invalid scheme %q for ECC key", scheme)
		}
		pub := tpmx509.NewECCPublic(tpmx509.HashAlgorithmSHA256, tpmx509.AttrSign, tpmx509.ECCSchemeECDSA, hashAlg, k)
		if pub == nil {
			return nil, xerrors.New("unsupported curve")
		}
		return pub, nil
	default:
		return nil, xerrors.Errorf("unsupported key type %T", k)
	}
}

func newObjectPublic(key crypto.PublicKey, attrs tpmx509.ObjectAttributes) (*tpmx509.Public, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		return tpmx509.NewRSAPublic(tpmx509.HashAlgorithmSHA256, attrs, tpmx509.RSASchemeNull, tpmx509.HashAlgorithmNull, k), nil
	case *ecdsa.PublicKey:
		pub := tpmx509.NewECCPublic(tpmx509.HashAlgorithmSHA256, attrs, tpmx509.ECCSchemeNull, tpmx509.HashAlgorithmNull, k)
		if pub == nil {
			return nil, xerrors.New("unsupported curve")
		}
		return pub, nil
	default:
		return nil, xerrors.Errorf("unsupported key type %T", k)
	}
}
