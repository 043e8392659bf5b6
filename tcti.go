// Copyright 2020 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"bytes"
	"errors"
	"io"
)

// TCTI represents a communication channel to a TPM implementation.
type TCTI interface {
	// Read is used to receive a response to a previously transmitted command. The implementation
	// must support partial reading of a response, and must return io.EOF when there are no more
	// bytes of a response left to read.
	Read(p []byte) (int, error)

	// Write is used to transmit a serialized command to the TPM implementation. A command must be
	// transmitted in a single write.
	Write(p []byte) (int, error)

	Close() error

	// MakeSticky requests that the underlying resource manager does not unload the resource
	// associated with the supplied handle between commands.
	MakeSticky(handle Handle, sticky bool) error
}

var (
	errClosed          = errors.New("transport already closed")
	errResponsePending = errors.New("unread response")
)

type localTCTI struct {
	tpm    *TPM
	rsp    *bytes.Reader
	closed bool
}

// NewTCTI returns a TCTI that executes commands on the supplied in-process TPM. Each Write must contain exactly one
// command packet, and its response must be read to io.EOF before the next command is written.
func NewTCTI(tpm *TPM) TCTI {
	return &localTCTI{tpm: tpm}
}

func (t *localTCTI) Read(p []byte) (int, error) {
	if t.closed {
		return 0, errClosed
	}
	if t.rsp == nil {
		return 0, io.EOF
	}
	n, err := t.rsp.Read(p)
	if err == io.EOF {
		t.rsp = nil
	}
	return n, err
}

func (t *localTCTI) Write(p []byte) (int, error) {
	if t.closed {
		return 0, errClosed
	}
	if t.rsp != nil && t.rsp.Len() > 0 {
		return 0, errResponsePending
	}
	cmd := make(CommandPacket, len(p))
	copy(cmd, p)
	t.rsp = bytes.NewReader(t.tpm.ExecuteCommand(cmd))
	return len(p), nil
}

func (t *localTCTI) Close() error {
	if t.closed {
		return errClosed
	}
	t.closed = true
	t.rsp = nil
	return nil
}

// MakeSticky is a no-op, as the in-process TPM never evicts loaded objects.
func (t *localTCTI) MakeSticky(handle Handle, sticky bool) error {
	return nil
}
