// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package x509util

import (
	"fmt"
	"io/ioutil"

	"golang.org/x/xerrors"

	"github.com/canonical/go-tpmx509"
	"github.com/canonical/go-tpmx509/mu"
)

// MarshalCertifyX509Command returns a TPM2_CertifyX509 command packet. Both handles are authorized with empty
// password sessions.
func MarshalCertifyX509Command(objectHandle, signHandle tpmx509.Handle, in *tpmx509.CertifyX509Params) (tpmx509.CommandPacket, error) {
	params, err := mu.MarshalToBytes(in.Reserved, in.InScheme, in.PartialCertificate)
	if err != nil {
		return nil, xerrors.Errorf("cannot marshal parameters: %w", err)
	}

	auth := tpmx509.AuthCommand{SessionHandle: tpmx509.HandlePW, SessionAttributes: tpmx509.AttrContinueSession}
	return tpmx509.MarshalCommandPacket(tpmx509.CommandCertifyX509,
		tpmx509.HandleList{objectHandle, signHandle},
		[]tpmx509.AuthCommand{auth, auth}, params), nil
}

// UnmarshalCertifyX509Response decodes a TPM2_CertifyX509 response packet. If the TPM returned an error, it is
// returned as one of the error types from the tpmx509 package.
func UnmarshalCertifyX509Response(rsp tpmx509.ResponsePacket) (*tpmx509.CertifyX509Result, error) {
	rc, params, _, err := rsp.Unmarshal()
	if err != nil {
		return nil, &tpmx509.InvalidResponseError{Command: tpmx509.CommandCertifyX509, Msg: fmt.Sprintf("cannot unmarshal response packet: %v", err)}
	}
	if err := tpmx509.DecodeResponseCode(tpmx509.CommandCertifyX509, rc); err != nil {
		return nil, err
	}

	var out tpmx509.CertifyX509Result
	n, err := mu.UnmarshalFromBytes(params, &out.AddedToCertificate, &out.TbsDigest, &out.Signature)
	if err != nil {
		return nil, &tpmx509.InvalidResponseError{Command: tpmx509.CommandCertifyX509, Msg: fmt.Sprintf("cannot unmarshal response parameters: %v", err)}
	}
	if n < len(params) {
		return nil, &tpmx509.InvalidResponseError{Command: tpmx509.CommandCertifyX509, Msg: fmt.Sprintf("%d trailing byte(s) in response parameters", len(params)-n)}
	}
	return &out, nil
}

// CertifyX509 executes TPM2_CertifyX509 using the supplied TCTI.
func CertifyX509(tcti tpmx509.TCTI, objectHandle, signHandle tpmx509.Handle, in *tpmx509.CertifyX509Params) (*tpmx509.CertifyX509Result, error) {
	cmd, err := MarshalCertifyX509Command(objectHandle, signHandle, in)
	if err != nil {
		return nil, err
	}
	if _, err := tcti.Write(cmd); err != nil {
		return nil, xerrors.Errorf("cannot send command: %w", err)
	}
	rsp, err := ioutil.ReadAll(tcti)
	if err != nil {
		return nil, xerrors.Errorf("cannot read response: %w", err)
	}
	return UnmarshalCertifyX509Response(rsp)
}
