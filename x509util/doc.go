// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

/*
Package x509util contains helpers for clients of TPM2_CertifyX509. It can create the partial certificate that is
supplied to the TPM, assemble the final certificate from the partial certificate and the TPM's response, and
serialize the command and response for use with a TCTI.
*/
package x509util
