// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"bytes"
	"fmt"

	"golang.org/x/xerrors"
)

const (
	// AnyCommandCode is used to match any command code when using {As,Is}TPMError, {As,Is}TPMHandleError and
	// {As,Is}TPMParameterError.
	AnyCommandCode CommandCode = 0xc0000000

	// AnyErrorCode is used to match any error code when using {As,Is}TPMError, {As,Is}TPMHandleError and
	// {As,Is}TPMParameterError.
	AnyErrorCode ErrorCode = 0x100

	// AnyHandleIndex is used to match any handle when using {As,Is}TPMHandleError.
	AnyHandleIndex int = -1

	// AnyParameterIndex is used to match any parameter when using {As,Is}TPMParameterError.
	AnyParameterIndex int = -1
)

// InvalidResponseError is returned by clients if a response packet is shorter than the response header, has an
// invalid responseSize field or a payload that does not unmarshal correctly.
type InvalidResponseError struct {
	Command CommandCode
	Msg     string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("TPM returned an invalid response for command %s: %v", e.Command, e.Msg)
}

// TPM1Error is returned from DecodeResponseCode if the response code indicates an error from a TPM 1.2 device. The
// engine returns ResponseBadTag in this format.
type TPM1Error struct {
	Command CommandCode  // Command code associated with this error
	Code    ResponseCode // Response code
}

func (e *TPM1Error) Error() string {
	return fmt.Sprintf("TPM returned a 1.2 error whilst executing command %s: 0x%08x", e.Command, e.Code)
}

func (e *TPM1Error) ResponseCode() ResponseCode {
	return e.Code
}

// TPMVendorError is returned from DecodeResponseCode if the response code indicates a vendor-specific error.
type TPMVendorError struct {
	Command CommandCode  // Command code associated with this error
	Code    ResponseCode // Response code
}

func (e *TPMVendorError) Error() string {
	return fmt.Sprintf("TPM returned a vendor defined error whilst executing command %s: 0x%08x", e.Command, e.Code)
}

// TPMWarning is returned from DecodeResponseCode if the response code indicates a condition that is not
// necessarily an error. The engine itself never returns warnings.
type TPMWarning struct {
	Command CommandCode  // Command code associated with this warning
	Code    ResponseCode // Response code
}

func (e *TPMWarning) Error() string {
	return fmt.Sprintf("TPM returned a warning whilst executing command %s: 0x%08x", e.Command, e.Code)
}

// ErrorCode represents an error code from the TPM. Format-zero codes are represented by their 7-bit error number,
// and format-one codes by their 6-bit error number plus 0x80.
type ErrorCode uint16

// ResponseCode returns the response code for this error code when it is not associated with a handle or parameter.
func (e ErrorCode) ResponseCode() ResponseCode {
	if e >= errorCode1Start {
		return responseCodeF | ResponseCode(e-errorCode1Start)
	}
	return responseCodeV | ResponseCode(e)
}

// TPMError is returned from DecodeResponseCode and from any engine command if the response code indicates an error
// that is not associated with a handle or parameter.
type TPMError struct {
	Command CommandCode // Command code associated with this error
	Code    ErrorCode   // Error code
}

func (e *TPMError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error whilst executing command %s: %s", e.Command, e.Code)
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

// ResponseCode returns the response code that encodes this error.
func (e *TPMError) ResponseCode() ResponseCode {
	return e.Code.ResponseCode()
}

// TPMParameterError is returned from DecodeResponseCode and from any engine command if the response code indicates
// an error that is associated with a command parameter. It wraps a *TPMError.
type TPMParameterError struct {
	*TPMError
	Index int // Index of the parameter associated with this error in the command parameter area, starting from 1
}

func (e *TPMParameterError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error for parameter %d whilst executing command %s: %s", e.Index, e.Command, e.Code)
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

func (e *TPMParameterError) Unwrap() error {
	return e.TPMError
}

// ResponseCode returns the response code that encodes this error. Format-zero error codes cannot be associated with
// a parameter, so the index is dropped for those.
func (e *TPMParameterError) ResponseCode() ResponseCode {
	rc := e.Code.ResponseCode()
	if !rc.F() {
		return rc
	}
	return rc | responseCodeP | (ResponseCode(e.Index)<<responseCodeIndexShift)&responseCodeN
}

// TPMHandleError is returned from DecodeResponseCode and from any engine command if the response code indicates an
// error that is associated with a command handle. It wraps a *TPMError.
type TPMHandleError struct {
	*TPMError
	// Index is the index of the handle associated with this error in the command handle area, starting from 1. An
	// index of 0 corresponds to an unspecified handle
	Index int
}

func (e *TPMHandleError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error for handle %d whilst executing command %s: %s", e.Index, e.Command, e.Code)
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

func (e *TPMHandleError) Unwrap() error {
	return e.TPMError
}

// ResponseCode returns the response code that encodes this error.
func (e *TPMHandleError) ResponseCode() ResponseCode {
	rc := e.Code.ResponseCode()
	if !rc.F() {
		return rc
	}
	return rc | (ResponseCode(e.Index&0x7) << responseCodeIndexShift)
}

// responseCoder is implemented by errors that can be converted back in to a response code.
type responseCoder interface {
	ResponseCode() ResponseCode
}

// AsTPMError indicates whether the error or any error within its chain is a *TPMError with the specified ErrorCode
// and CommandCode, and sets out to the value of error if it is. To test for any error code, use AnyErrorCode. To
// test for any command code, use AnyCommandCode. This will panic if out is nil.
func AsTPMError(err error, code ErrorCode, command CommandCode, out **TPMError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command)
}

// IsTPMError indicates whether the error or any error within its chain is a *TPMError with the specified ErrorCode
// and CommandCode. To test for any error code, use AnyErrorCode. To test for any command code, use AnyCommandCode.
func IsTPMError(err error, code ErrorCode, command CommandCode) bool {
	var e *TPMError
	return AsTPMError(err, code, command, &e)
}

// AsTPMHandleError indicates whether the error or any error within its chain is a *TPMHandleError with the
// specified ErrorCode, CommandCode and handle index, and sets out to the value of error if it is. To test for any
// error code, use AnyErrorCode. To test for any command code, use AnyCommandCode. To test for any handle index, use
// AnyHandleIndex. This will panic if out is nil.
func AsTPMHandleError(err error, code ErrorCode, command CommandCode, handle int, out **TPMHandleError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command) && (handle == AnyHandleIndex || (*out).Index == handle)
}

// IsTPMHandleError indicates whether the error or any error within its chain is a *TPMHandleError with the
// specified ErrorCode, CommandCode and handle index.
func IsTPMHandleError(err error, code ErrorCode, command CommandCode, handle int) bool {
	var e *TPMHandleError
	return AsTPMHandleError(err, code, command, handle, &e)
}

// AsTPMParameterError indicates whether the error or any error within its chain is a *TPMParameterError with the
// specified ErrorCode, CommandCode and parameter index, and sets out to the value of error if it is. To test for
// any error code, use AnyErrorCode. To test for any command code, use AnyCommandCode. To test for any parameter
// index, use AnyParameterIndex. This will panic if out is nil.
func AsTPMParameterError(err error, code ErrorCode, command CommandCode, param int, out **TPMParameterError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command) && (param == AnyParameterIndex || (*out).Index == param)
}

// IsTPMParameterError indicates whether the error or any error within its chain is a *TPMParameterError with the
// specified ErrorCode, CommandCode and parameter index.
func IsTPMParameterError(err error, code ErrorCode, command CommandCode, param int) bool {
	var e *TPMParameterError
	return AsTPMParameterError(err, code, command, param, &e)
}

// DecodeResponseCode decodes the ResponseCode provided via resp. If the specified response code is ResponseSuccess,
// it returns no error, else it returns an error that is appropriate for the response code. The command code is used
// for adding context to the returned error.
func DecodeResponseCode(command CommandCode, resp ResponseCode) error {
	switch {
	case resp == ResponseSuccess:
		return nil
	case !resp.F():
		// Format 0 error codes
		switch {
		case !resp.V():
			return &TPM1Error{command, resp}
		case resp.T():
			return &TPMVendorError{command, resp}
		case resp.S():
			return &TPMWarning{command, resp}
		default:
			return &TPMError{command, ErrorCode(resp.E())}
		}
	default:
		// Format 1 error codes
		err := &TPMError{command, ErrorCode(resp.E()) + errorCode1Start}
		switch {
		case resp.P():
			return &TPMParameterError{err, int(resp.N())}
		case resp&responseCodeSession != 0:
			// Sessions are never associated with an error by the engine.
			return err
		case resp.N() > 0:
			return &TPMHandleError{err, int(resp.N())}
		default:
			return err
		}
	}
}
