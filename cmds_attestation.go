// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"github.com/golang/glog"
	"golang.org/x/xerrors"

	"github.com/canonical/go-tpmx509/internal/der"
)

// Section 18 - Attestation Commands

// tbsRef identifies a component of a TBSCertificate, in the order that the components are encoded.
type tbsRef int

const (
	tbsEncodedSize tbsRef = iota // The tag and length of the TBSCertificate SEQUENCE
	tbsVersion
	tbsSerialNumber
	tbsSignature
	tbsIssuer
	tbsValidity
	tbsSubject
	tbsSubjectPublicKey
	tbsExtensions

	tbsRefCount
)

// CertifyX509Params contains the parameters of the TPM2_CertifyX509 command.
type CertifyX509Params struct {
	// Reserved must be empty. It occupies the position of the qualifyingData parameter from earlier revisions of
	// the command.
	Reserved Data

	// InScheme is the signing scheme. It may be null if the signing key has a scheme.
	InScheme SigScheme

	// PartialCertificate is a DER encoded SEQUENCE containing the signature AlgorithmIdentifier (optional),
	// issuer, validity, subject and [3] EXPLICIT extensions fields of a TBSCertificate, in that order.
	PartialCertificate MaxBuffer
}

// CertifyX509Result contains the response parameters of the TPM2_CertifyX509 command.
type CertifyX509Result struct {
	// AddedToCertificate is a DER encoded SEQUENCE containing the version, serialNumber, signature
	// AlgorithmIdentifier (if it wasn't supplied by the caller) and subjectPublicKeyInfo fields of the
	// TBSCertificate, in that order.
	AddedToCertificate MaxBuffer

	TbsDigest Digest     // The digest of the complete TBSCertificate
	Signature *Signature // The signature of TbsDigest
}

// CertifyX509 executes the TPM2_CertifyX509 command, which creates a X.509 certificate for the object at
// objectHandle, signed by the key at signHandle. The caller supplies the fields of the TBSCertificate that it
// controls in a partial certificate, and the engine adds the fields that it controls.
//
// If in.Reserved is not empty, a *TPMParameterError error with an error code of ErrorSize will be returned for
// parameter index 1.
//
// If the object at signHandle is not a signing key, or is a public-only object, a *TPMHandleError error with an
// error code of ErrorKey will be returned for handle index 2.
//
// If the signing key has no scheme, in.InScheme must specify a valid scheme for the key. If the signing key does
// have a scheme, in.InScheme must either be null or match it exactly. If these conditions aren't met, a
// *TPMParameterError error with an error code of ErrorScheme will be returned for parameter index 2.
//
// If there is no SubjectPublicKeyInfo encoding for the object at objectHandle, a *TPMHandleError error with an error
// code of ErrorAsymmetric will be returned for handle index 1.
//
// If in.PartialCertificate is not a single SEQUENCE that consumes all of the parameter, a *TPMParameterError error
// with an error code of ErrorSize will be returned for parameter index 3. If the SEQUENCE does not contain 3 or 4
// SEQUENCE elements and exactly one [3] element, a *TPMParameterError error with an error code of ErrorValue will be
// returned for parameter index 3.
//
// If in.PartialCertificate contains only 3 SEQUENCE elements, the engine adds the signature AlgorithmIdentifier. If
// there is no encoding for the signing key and scheme, a *TPMHandleError error with an error code of ErrorScheme will
// be returned for handle index 2. If there are 4 SEQUENCE elements, the first one is the signature
// AlgorithmIdentifier and it is used as supplied.
//
// If the extensions contain a TCG TPMA_OBJECT extension that does not match the attributes of the object at
// objectHandle, a *TPMHandleError error with an error code of ErrorAttributes will be returned for handle index 1.
// If the extensions don't contain a KeyUsage extension, or the KeyUsage extension is not consistent with the
// attributes of the object, a *TPMParameterError error with an error code of ErrorValue will be returned for
// parameter index 3.
//
// On success, the fields added by the engine are returned along with the digest of the complete TBSCertificate and
// the signature of it.
func (t *TPM) CertifyX509(objectHandle, signHandle Handle, in *CertifyX509Params) (*CertifyX509Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.certifyX509(objectHandle, signHandle, in)
}

func (t *TPM) certifyX509(objectHandle, signHandle Handle, in *CertifyX509Params) (*CertifyX509Result, error) {
	handleErr := func(code ErrorCode, index int, reason string) error {
		glog.V(2).Infof("TPM2_CertifyX509 failed for handle %d: %s", index, reason)
		return &TPMHandleError{TPMError: &TPMError{Command: CommandCertifyX509, Code: code}, Index: index}
	}
	paramErr := func(code ErrorCode, index int, reason string) error {
		glog.V(2).Infof("TPM2_CertifyX509 failed for parameter %d: %s", index, reason)
		return &TPMParameterError{TPMError: &TPMError{Command: CommandCertifyX509, Code: code}, Index: index}
	}

	obj, err := t.handleToObject(CommandCertifyX509, objectHandle, 1)
	if err != nil {
		return nil, err
	}
	signKey, err := t.handleToObject(CommandCertifyX509, signHandle, 2)
	if err != nil {
		return nil, err
	}

	if len(in.Reserved) != 0 {
		return nil, paramErr(ErrorSize, 1, "reserved parameter is not empty")
	}
	if !isSigningObject(signKey) {
		return nil, handleErr(ErrorKey, 2, "not a signing key")
	}
	scheme := in.InScheme
	if !cryptSelectSignScheme(signKey, &scheme) {
		return nil, paramErr(ErrorScheme, 2, "no valid signing scheme")
	}
	if addPublicKey(nil, obj) == 0 {
		return nil, handleErr(ErrorAsymmetric, 1, "no SubjectPublicKeyInfo encoding for object")
	}

	partialCert := []byte(in.PartialCertificate)
	if len(partialCert) > t.maxBufferSize {
		return nil, paramErr(ErrorSize, 3, "partial certificate is too large")
	}
	if glog.V(4) {
		glog.Infof("TPM2_CertifyX509 partialCertificate: %x", partialCert)
	}

	var certTBS [tbsRefCount][]byte

	// Split the partial certificate in to its components.
	ctx, err := der.NewUnmarshalContext(partialCert)
	if err != nil {
		return nil, paramErr(ErrorValue, 3, err.Error())
	}
	length := ctx.NextTag()
	if length < 0 || ctx.Tag() != der.TagSequence || ctx.Offset()+length != len(partialCert) {
		return nil, paramErr(ErrorSize, 3, "partial certificate is not a single SEQUENCE")
	}

	var sequences [4][]byte
	count := 0
	for ctx.Valid() && ctx.Remaining() > 0 {
		start := ctx.Offset()
		length := ctx.NextTag()
		if length < 0 {
			break
		}
		switch ctx.Tag() {
		case der.ExplicitTag(3):
			if certTBS[tbsExtensions] != nil {
				return nil, paramErr(ErrorValue, 3, "more than one extensions element")
			}
			ctx.Skip(length)
			certTBS[tbsExtensions] = ctx.Since(start)
		case der.TagSequence:
			if count == len(sequences) {
				return nil, paramErr(ErrorValue, 3, "too many SEQUENCE elements")
			}
			ctx.Skip(length)
			sequences[count] = ctx.Since(start)
			count++
		default:
			return nil, paramErr(ErrorValue, 3, "unexpected element")
		}
	}
	switch {
	case !ctx.Valid():
		return nil, paramErr(ErrorValue, 3, ctx.Err().Error())
	case count < 3:
		return nil, paramErr(ErrorValue, 3, "too few SEQUENCE elements")
	case certTBS[tbsExtensions] == nil:
		return nil, paramErr(ErrorValue, 3, "missing extensions element")
	}

	// The issuer is always the first SEQUENCE after the optional signature AlgorithmIdentifier, and the subject
	// is always the last.
	for i := 0; i < count; i++ {
		certTBS[tbsSubject-tbsRef(i)] = sequences[count-1-i]
	}

	if count == 3 && addSigningAlgorithm(nil, signKey, &scheme) == 0 {
		return nil, handleErr(ErrorScheme, 2, "no signature AlgorithmIdentifier encoding for signing key and scheme")
	}

	if err := processExtensions(obj, certTBS[tbsExtensions]); err != nil {
		var e *extensionError
		if !xerrors.As(err, &e) {
			return nil, paramErr(ErrorValue, 3, err.Error())
		}
		if e.code == ErrorAttributes {
			return nil, handleErr(e.code, 1, e.Error())
		}
		return nil, paramErr(e.code, 3, e.Error())
	}

	// Build addedToCertificate from the end.
	out := der.NewMarshalContext(make([]byte, t.maxBufferSize))
	out.StartMarshalContext()

	n := addPublicKey(out, obj)
	certTBS[tbsSubjectPublicKey] = out.Top(n)

	if certTBS[tbsSignature] == nil {
		n = addSigningAlgorithm(out, signKey, &scheme)
		certTBS[tbsSignature] = out.Top(n)
	}

	// The serial number is derived from the rest of the certificate and the names of both keys.
	h := signKey.public.NameAlg.NewHash()
	for i := tbsSignature; i <= tbsExtensions; i++ {
		h.Write(certTBS[i])
	}
	h.Write(signKey.Name())
	h.Write(obj.Name())
	serial := h.Sum(nil)
	if len(serial) > t.serialNumberSize {
		serial = serial[:t.serialNumberSize]
	}
	n = out.PushInteger(serial)
	certTBS[tbsSerialNumber] = out.Top(n)

	out.StartMarshalContext()
	out.PushUINT(2) // v3
	n = out.EndEncapsulation(der.ExplicitTag(0))
	certTBS[tbsVersion] = out.Top(n)

	// Add the tag and length of the TBSCertificate for computing the digest, then remove it again.
	length = 0
	for _, ref := range certTBS {
		length += len(ref)
	}
	n = out.PushTagAndLength(der.TagSequence, length)
	certTBS[tbsEncodedSize] = out.Top(n)
	out.Discard(n)

	if !out.Valid() {
		glog.V(2).Infof("TPM2_CertifyX509 failed to encode addedToCertificate: %v", out.Err())
		return nil, &TPMError{Command: CommandCertifyX509, Code: ErrorFailure}
	}

	h = scheme.HashAlg().NewHash()
	for _, ref := range certTBS {
		h.Write(ref)
	}
	tbsDigest := h.Sum(nil)

	if glog.V(4) {
		var tbs []byte
		for _, ref := range certTBS {
			tbs = append(tbs, ref...)
		}
		glog.Infof("TPM2_CertifyX509 TBSCertificate: %x", tbs)
	}

	out.EndEncapsulation(der.TagSequence)
	added := out.Bytes()
	if added == nil {
		glog.V(2).Infof("TPM2_CertifyX509 failed to encode addedToCertificate: %v", out.Err())
		return nil, &TPMError{Command: CommandCertifyX509, Code: ErrorFailure}
	}
	if glog.V(4) {
		glog.Infof("TPM2_CertifyX509 addedToCertificate: %x", added)
	}

	sig, err := cryptSign(t.rand, signKey, &scheme, tbsDigest)
	switch {
	case xerrors.Is(err, errUnsupportedSignScheme):
		return nil, paramErr(ErrorScheme, 2, err.Error())
	case err != nil:
		glog.V(2).Infof("TPM2_CertifyX509 cannot sign digest: %v", err)
		return nil, &TPMError{Command: CommandCertifyX509, Code: ErrorFailure}
	}

	return &CertifyX509Result{
		AddedToCertificate: added,
		TbsDigest:          tbsDigest,
		Signature:          sig}, nil
}
