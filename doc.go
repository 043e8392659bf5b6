// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

/*
Package tpmx509 implements the TPM side of the TPM2_CertifyX509 command: an in-process TPM engine that
completes and signs a caller supplied partial X.509 certificate with a loaded signing key.

This documentation refers to TPM commands and types that are described in more detail in the TPM 2.0 Library
Specification, which can be found at https://trustedcomputinggroup.org/resource/tpm-library-specification/.
Knowledge of this specification is assumed in this documentation.

Quick start

In order to create a new TPM and load a signing key and the key to be certified:
 tpm, err := tpmx509.NewTPM()
 if err != nil {
	return err
 }

 signPub := tpmx509.NewECCPublic(tpmx509.HashAlgorithmSHA256, tpmx509.AttrSign|tpmx509.AttrX509Sign,
	tpmx509.ECCSchemeECDSA, tpmx509.HashAlgorithmSHA256, &caKey.PublicKey)
 signHandle, err := tpm.LoadExternal(signPub, caKey)
 if err != nil {
	return err
 }

 pub := tpmx509.NewRSAPublic(tpmx509.HashAlgorithmSHA256, tpmx509.AttrSign|tpmx509.AttrFixedTPM,
	tpmx509.RSASchemeNull, tpmx509.HashAlgorithmNull, &key.PublicKey)
 objectHandle, err := tpm.LoadExternal(pub, nil)
 if err != nil {
	return err
 }

The partial certificate is a DER encoded SEQUENCE containing an optional signature AlgorithmIdentifier, the
issuer, the validity, the subject and the extensions. The x509util package can create one:
 partial, err := x509util.NewPartialCertificate(&x509util.PartialTemplate{...})
 if err != nil {
	return err
 }

 out, err := tpm.CertifyX509(objectHandle, signHandle, &tpmx509.CertifyX509Params{
	InScheme:           tpmx509.SigScheme{Scheme: tpmx509.SigSchemeAlgNull},
	PartialCertificate: partial})
 if err != nil {
	return err
 }

 cert, err := x509util.AssembleCertificate(partial, out.AddedToCertificate, out.Signature)

The TPM adds the version, the serial number, the signature AlgorithmIdentifier when the caller omitted it, and the
subject public key. The serial number is derived from a digest of the certificate contents and the names of both
keys.

Commands can also be submitted as serialized command packets, either directly with TPM.ExecuteCommand or with
the TCTI returned from NewTCTI.
*/
package tpmx509
