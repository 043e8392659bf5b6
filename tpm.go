// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/xerrors"

	"github.com/canonical/go-tpmx509/mu"
)

const (
	// MaxSerialNumberSize is the largest number of octets that a serial number created by the engine can have.
	MaxSerialNumberSize = 20

	// DefaultMaxBufferSize is the default size of the TPM2B_MAX_BUFFER type, which limits the size of a
	// partial certificate and the size of the data added to it.
	DefaultMaxBufferSize = 1024
)

// TPM is an in-process TPM engine that implements TPM2_CertifyX509 for objects loaded with LoadExternal. Commands
// are executed one at a time, and a TPM can be shared between goroutines.
type TPM struct {
	mu sync.Mutex

	rand             io.Reader
	serialNumberSize int
	maxBufferSize    int

	objects    map[Handle]*object
	nextHandle Handle
}

// Option is used to customize a TPM created by NewTPM.
type Option func(*TPM) error

// WithRandom sets the random number generator used for creating signatures. By default, a SP800-90A HASH_DRBG
// seeded from crypto/rand is used.
func WithRandom(r io.Reader) Option {
	return func(t *TPM) error {
		if r == nil {
			return errors.New("nil random source")
		}
		t.rand = r
		return nil
	}
}

// WithSerialNumberSize sets the maximum number of octets in serial numbers created by TPM2_CertifyX509. The serial
// number is also limited by the digest size of the signing key's name algorithm. The default and maximum is
// MaxSerialNumberSize.
func WithSerialNumberSize(n int) Option {
	return func(t *TPM) error {
		if n < 1 || n > MaxSerialNumberSize {
			return fmt.Errorf("invalid serial number size %d", n)
		}
		t.serialNumberSize = n
		return nil
	}
}

// WithMaxBufferSize sets the maximum size of a partial certificate, and of the data returned as
// addedToCertificate. The default is DefaultMaxBufferSize.
func WithMaxBufferSize(n int) Option {
	return func(t *TPM) error {
		if n < 1 || n > 0x7fff {
			return fmt.Errorf("invalid buffer size %d", n)
		}
		t.maxBufferSize = n
		return nil
	}
}

// NewTPM returns a new engine with no objects loaded.
func NewTPM(opts ...Option) (*TPM, error) {
	t := &TPM{
		serialNumberSize: MaxSerialNumberSize,
		maxBufferSize:    DefaultMaxBufferSize,
		objects:          make(map[Handle]*object),
		nextHandle:       HandleTypeTransientFirst}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	if t.rand == nil {
		rng, err := newDefaultRandom()
		if err != nil {
			return nil, err
		}
		t.rand = rng
	}
	return t, nil
}

type commandInfo struct {
	numHandles int
	numAuths   int // Number of handles that require authorization
	run        func(t *TPM, handles HandleList, parameters []byte) ([]byte, error)
}

var commands = map[CommandCode]commandInfo{
	CommandFlushContext: {0, 0, (*TPM).runFlushContext},
	CommandCertifyX509:  {2, 2, (*TPM).runCertifyX509},
}

// parameterError converts an error from unmarshalling command parameters in to a response error. Each command
// parameter is unmarshalled by a separate argument, so the argument index identifies the parameter.
func parameterError(command CommandCode, err error) error {
	var muErr *mu.Error
	if !xerrors.As(err, &muErr) {
		return &TPMError{Command: command, Code: ErrorInsufficient}
	}
	code := ErrorInsufficient
	var selErr *mu.InvalidSelectorError
	switch {
	case xerrors.As(err, &selErr):
		code = ErrorSelector
	case !xerrors.Is(err, io.EOF) && !xerrors.Is(err, io.ErrUnexpectedEOF):
		code = ErrorSize
	}
	return &TPMParameterError{TPMError: &TPMError{Command: command, Code: code}, Index: muErr.Index + 1}
}

func (t *TPM) runFlushContext(handles HandleList, parameters []byte) ([]byte, error) {
	var flushHandle Handle
	if _, err := mu.UnmarshalFromBytes(parameters, &flushHandle); err != nil {
		return nil, parameterError(CommandFlushContext, err)
	}
	if err := t.flushContext(flushHandle); err != nil {
		return nil, err
	}
	return nil, nil
}

func (t *TPM) runCertifyX509(handles HandleList, parameters []byte) ([]byte, error) {
	// Handles are validated before the parameter area is unmarshalled.
	for i, handle := range handles[:2] {
		if _, err := t.handleToObject(CommandCertifyX509, handle, i+1); err != nil {
			return nil, err
		}
	}

	var in CertifyX509Params
	r := bytes.NewReader(parameters)
	if _, err := mu.UnmarshalFromReader(r, &in.Reserved, &in.InScheme, &in.PartialCertificate); err != nil {
		return nil, parameterError(CommandCertifyX509, err)
	}
	if r.Len() > 0 {
		return nil, &TPMError{Command: CommandCertifyX509, Code: ErrorSize}
	}

	out, err := t.certifyX509(handles[0], handles[1], &in)
	if err != nil {
		return nil, err
	}
	return mu.MarshalToBytes(out.AddedToCertificate, out.TbsDigest, out.Signature)
}

func (t *TPM) executeCommand(cmd CommandPacket) ([]byte, []AuthResponse, error) {
	if len(cmd) > maxCommandSize {
		return nil, nil, &TPMError{Code: ErrorCommandSize}
	}

	var header CommandHeader
	if _, err := mu.UnmarshalFromBytes(cmd, &header); err != nil {
		return nil, nil, &TPMError{Code: ErrorCommandSize}
	}
	switch {
	case header.Tag != TagSessions && header.Tag != TagNoSessions:
		return nil, nil, &TPM1Error{Command: header.CommandCode, Code: ResponseBadTag}
	case int(header.CommandSize) != len(cmd):
		return nil, nil, &TPMError{Command: header.CommandCode, Code: ErrorCommandSize}
	}

	info, ok := commands[header.CommandCode]
	if !ok {
		return nil, nil, &TPMError{Command: header.CommandCode, Code: ErrorCommandCode}
	}

	handles, authArea, parameters, err := cmd.Unmarshal(info.numHandles)
	if err != nil {
		glog.V(2).Infof("cannot unmarshal command %s: %v", header.CommandCode, err)
		return nil, nil, &TPMError{Command: header.CommandCode, Code: ErrorInsufficient}
	}
	switch {
	case len(authArea) < info.numAuths:
		return nil, nil, &TPMError{Command: header.CommandCode, Code: ErrorAuthMissing}
	case info.numAuths == 0 && len(authArea) > 0:
		return nil, nil, &TPMError{Command: header.CommandCode, Code: ErrorAuthContext}
	}

	// Only password sessions are supported. Authorization values aren't checked.
	for i, auth := range authArea {
		if auth.SessionHandle != HandlePW {
			glog.V(2).Infof("unsupported session 0x%08x at index %d for command %s", auth.SessionHandle, i+1, header.CommandCode)
			return nil, nil, &TPMError{Command: header.CommandCode, Code: ErrorValue}
		}
	}

	rpBytes, err := info.run(t, handles, parameters)
	if err != nil {
		return nil, nil, err
	}

	var rAuthArea []AuthResponse
	for _, auth := range authArea {
		rAuthArea = append(rAuthArea, AuthResponse{SessionAttributes: auth.SessionAttributes & AttrContinueSession})
	}
	return rpBytes, rAuthArea, nil
}

// ExecuteCommand executes the supplied command packet and returns a response packet. Errors are returned as
// response codes in the response packet.
func (t *TPM) ExecuteCommand(cmd CommandPacket) ResponsePacket {
	t.mu.Lock()
	defer t.mu.Unlock()

	code, _ := cmd.GetCommandCode()
	glog.V(1).Infof("executing command %s (%d bytes)", code, len(cmd))

	rpBytes, authArea, err := t.executeCommand(cmd)
	if err != nil {
		rc := ResponseCode(ErrorFailure.ResponseCode())
		var coder responseCoder
		if xerrors.As(err, &coder) {
			rc = coder.ResponseCode()
		}
		glog.V(1).Infof("command %s failed with response code 0x%08x: %v", code, rc, err)
		return MarshalResponsePacket(rc, nil, nil)
	}
	return MarshalResponsePacket(ResponseSuccess, rpBytes, authArea)
}
