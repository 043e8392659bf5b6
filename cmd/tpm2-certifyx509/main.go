// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

// Binary tpm2-certifyx509 creates a X.509 certificate for a key with TPM2_CertifyX509, using an in-process TPM
// with the signing key and the certified key loaded in to it.
package main

import (
	"crypto/x509/pkix"
	"encoding/pem"
	"flag"
	"io/ioutil"
	"os"
	"time"

	"github.com/golang/glog"
	"golang.org/x/xerrors"

	"github.com/canonical/go-tpmx509"
	"github.com/canonical/go-tpmx509/x509util"
)

var (
	signKeyPath = flag.String("sign-key", "", "Path to the PEM encoded private key used to sign the certificate")
	keyPath     = flag.String("key", "", "Path to the PEM encoded private or public key to certify")
	issuer      = flag.String("issuer", "", "Common name of the issuer")
	subject     = flag.String("subject", "", "Common name of the subject")
	days        = flag.Int("days", 365, "Number of days that the certificate is valid for")
	schemeName  = flag.String("scheme", "", "Signing scheme (rsassa, rsapss or ecdsa). The default depends on the signing key")
	hashName    = flag.String("hash", "sha256", "Digest algorithm for the signing scheme")
	keyUsage    = flag.String("key-usage", "digitalSignature", "Comma separated list of key usages")
	tpmaObject  = flag.Bool("tpma-object", false, "Add the TCG TPMA_OBJECT extension")
	outPath     = flag.String("out", "", "Path to write the PEM encoded certificate to. The default is stdout")
)

type options struct {
	signKeyPath string
	keyPath     string
	issuer      string
	subject     string
	days        int
	scheme      string
	hash        string
	keyUsage    string
	tpmaObject  bool
}

// certify creates a certificate for the key at opts.keyPath, valid from now. It returns the DER encoded
// certificate.
func certify(opts *options, now time.Time) ([]byte, error) {
	switch {
	case opts.signKeyPath == "":
		return nil, xerrors.New("no signing key specified")
	case opts.keyPath == "":
		return nil, xerrors.New("no key specified")
	case opts.days < 1:
		return nil, xerrors.Errorf("invalid number of days %d", opts.days)
	}

	hashAlg, err := parseHashAlg(opts.hash)
	if err != nil {
		return nil, err
	}
	usage, err := parseKeyUsage(opts.keyUsage)
	if err != nil {
		return nil, err
	}

	signKey, err := readPrivateKey(opts.signKeyPath)
	if err != nil {
		return nil, xerrors.Errorf("cannot load signing key: %w", err)
	}
	signPub, err := newSigningPublic(signKey, opts.scheme, hashAlg)
	if err != nil {
		return nil, err
	}

	key, err := readKey(opts.keyPath)
	if err != nil {
		return nil, xerrors.Errorf("cannot load key: %w", err)
	}
	objectPub, err := newObjectPublic(key, objectAttributes(usage))
	if err != nil {
		return nil, err
	}

	tpm, err := tpmx509.NewTPM()
	if err != nil {
		return nil, xerrors.Errorf("cannot create TPM: %w", err)
	}
	signHandle, err := tpm.LoadExternal(signPub, signKey)
	if err != nil {
		return nil, xerrors.Errorf("cannot load signing key in to TPM: %w", err)
	}
	objectHandle, err := tpm.LoadExternal(objectPub, nil)
	if err != nil {
		return nil, xerrors.Errorf("cannot load key in to TPM: %w", err)
	}

	template := &x509util.PartialTemplate{
		Issuer:    pkix.Name{CommonName: opts.issuer},
		NotBefore: now.UTC().Truncate(time.Second),
		NotAfter:  now.UTC().Truncate(time.Second).AddDate(0, 0, opts.days),
		Subject:   pkix.Name{CommonName: opts.subject},
		KeyUsage:  usage}
	if opts.tpmaObject {
		template.ObjectAttributes = &objectPub.Attrs
	}
	partial, err := x509util.NewPartialCertificate(template)
	if err != nil {
		return nil, xerrors.Errorf("cannot create partial certificate: %w", err)
	}
	glog.V(2).Infof("partial certificate: %x", partial)

	tcti := tpmx509.NewTCTI(tpm)
	defer tcti.Close()

	out, err := x509util.CertifyX509(tcti, objectHandle, signHandle, &tpmx509.CertifyX509Params{
		InScheme:           tpmx509.SigScheme{Scheme: tpmx509.SigSchemeAlgNull},
		PartialCertificate: partial})
	if err != nil {
		return nil, xerrors.Errorf("cannot certify key: %w", err)
	}

	cert, err := x509util.AssembleCertificate(partial, out.AddedToCertificate, out.Signature)
	if err != nil {
		return nil, xerrors.Errorf("cannot assemble certificate: %w", err)
	}
	return cert, nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	cert, err := certify(&options{
		signKeyPath: *signKeyPath,
		keyPath:     *keyPath,
		issuer:      *issuer,
		subject:     *subject,
		days:        *days,
		scheme:      *schemeName,
		hash:        *hashName,
		keyUsage:    *keyUsage,
		tpmaObject:  *tpmaObject}, time.Now())
	if err != nil {
		glog.Exitf("%v", err)
	}

	block := &pem.Block{Type: "CERTIFICATE", Bytes: cert}
	if *outPath == "" {
		if err := pem.Encode(os.Stdout, block); err != nil {
			glog.Exitf("cannot write certificate: %v", err)
		}
		return
	}
	if err := ioutil.WriteFile(*outPath, pem.EncodeToMemory(block), 0644); err != nil {
		glog.Exitf("cannot write certificate: %v", err)
	}
	glog.V(1).Infof("wrote certificate to %s", *outPath)
}
