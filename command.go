// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"

	"golang.org/x/xerrors"

	"github.com/canonical/go-tpmx509/mu"
)

const (
	maxCommandSize  int = 4096
	maxResponseSize int = 4096
)

// HandleList is a list of handles.
type HandleList []Handle

// SessionAttributes corresponds to the TPMA_SESSION type.
type SessionAttributes uint8

const (
	AttrContinueSession SessionAttributes = 1 << 0
)

// AuthCommand corresponds to the TPMS_AUTH_COMMAND type, and represents an authorization for a command resource.
type AuthCommand struct {
	SessionHandle     Handle
	Nonce             Nonce
	SessionAttributes SessionAttributes
	HMAC              Auth
}

// AuthResponse corresponds to the TPMS_AUTH_RESPONSE type, and represents an authorization response for a session.
type AuthResponse struct {
	Nonce             Nonce
	SessionAttributes SessionAttributes
	HMAC              Auth
}

// CommandHeader is the header for a TPM command.
type CommandHeader struct {
	Tag         StructTag
	CommandSize uint32
	CommandCode CommandCode
}

// CommandPacket corresponds to a complete command packet including header and payload.
type CommandPacket []byte

// GetCommandCode returns the command code contained within this packet.
func (p CommandPacket) GetCommandCode() (CommandCode, error) {
	var header CommandHeader
	if _, err := mu.UnmarshalFromBytes(p, &header); err != nil {
		return 0, xerrors.Errorf("cannot unmarshal header: %w", err)
	}
	return header.CommandCode, nil
}

// Unmarshal unmarshals this command packet, returning the handles, auth area and parameters. The parameters will
// still be in the TPM wire format. The number of command handles associated with the command must be supplied by
// the caller.
func (p CommandPacket) Unmarshal(numHandles int) (handles HandleList, authArea []AuthCommand, parameters []byte, err error) {
	buf := bytes.NewReader(p)

	var header CommandHeader
	if _, err := mu.UnmarshalFromReader(buf, &header); err != nil {
		return nil, nil, nil, xerrors.Errorf("cannot unmarshal header: %w", err)
	}

	if header.CommandSize != uint32(len(p)) {
		return nil, nil, nil, fmt.Errorf("invalid commandSize value (got %d, packet length %d)", header.CommandSize, len(p))
	}

	handles = make(HandleList, numHandles)
	for i := range handles {
		if _, err := mu.UnmarshalFromReader(buf, &handles[i]); err != nil {
			return nil, nil, nil, xerrors.Errorf("cannot unmarshal handles: %w", err)
		}
	}

	switch header.Tag {
	case TagSessions:
		var authSize uint32
		if _, err := mu.UnmarshalFromReader(buf, &authSize); err != nil {
			return nil, nil, nil, xerrors.Errorf("cannot unmarshal auth area size: %w", err)
		}
		if int64(authSize) > int64(buf.Len()) {
			return nil, nil, nil, fmt.Errorf("auth area size is larger than the remaining bytes (%d)", authSize)
		}
		authBytes := make([]byte, authSize)
		if _, err := io.ReadFull(buf, authBytes); err != nil {
			return nil, nil, nil, xerrors.Errorf("cannot read auth area: %w", err)
		}
		r := bytes.NewReader(authBytes)
		for r.Len() > 0 {
			if len(authArea) >= 3 {
				return nil, nil, nil, fmt.Errorf("%d trailing byte(s) in auth area", r.Len())
			}

			var auth AuthCommand
			if _, err := mu.UnmarshalFromReader(r, &auth); err != nil {
				return nil, nil, nil, xerrors.Errorf("cannot unmarshal auth: %w", err)
			}

			authArea = append(authArea, auth)
		}
	case TagNoSessions:
	default:
		return nil, nil, nil, fmt.Errorf("invalid tag: 0x%04x", uint16(header.Tag))
	}

	parameters, err = ioutil.ReadAll(buf)
	if err != nil {
		return nil, nil, nil, xerrors.Errorf("cannot read parameters: %w", err)
	}

	return handles, authArea, parameters, nil
}

// MarshalCommandPacket serializes a complete TPM packet from the provided arguments. The parameters argument must
// already be serialized to the TPM wire format.
func MarshalCommandPacket(command CommandCode, handles HandleList, authArea []AuthCommand, parameters []byte) CommandPacket {
	header := CommandHeader{CommandCode: command}
	var payload []byte

	switch {
	case len(authArea) > 0:
		header.Tag = TagSessions

		aBytes := new(bytes.Buffer)
		for _, auth := range authArea {
			mu.MarshalToWriter(aBytes, auth)
		}
		payload = mu.MustMarshalToBytes(mu.RawBytes(handlesToBytes(handles)), uint32(aBytes.Len()), mu.RawBytes(aBytes.Bytes()), mu.RawBytes(parameters))
	default:
		header.Tag = TagNoSessions

		payload = mu.MustMarshalToBytes(mu.RawBytes(handlesToBytes(handles)), mu.RawBytes(parameters))
	}

	header.CommandSize = uint32(binary.Size(header) + len(payload))

	return mu.MustMarshalToBytes(header, mu.RawBytes(payload))
}

func handlesToBytes(handles HandleList) []byte {
	b := make([]byte, 4*len(handles))
	for i, h := range handles {
		binary.BigEndian.PutUint32(b[4*i:], uint32(h))
	}
	return b
}

// ResponseHeader is the header for the TPM's response to a command.
type ResponseHeader struct {
	Tag          StructTag
	ResponseSize uint32
	ResponseCode ResponseCode
}

// ResponsePacket corresponds to a complete response packet including header and payload.
type ResponsePacket []byte

// Unmarshal deserializes the response packet and returns the response code, parameters and auth area. The
// parameters will still be in the TPM wire format. None of the commands implemented by the engine return a handle.
func (p ResponsePacket) Unmarshal() (rc ResponseCode, parameters []byte, authArea []AuthResponse, err error) {
	if len(p) > maxResponseSize {
		return 0, nil, nil, fmt.Errorf("packet too large (%d bytes)", len(p))
	}

	buf := bytes.NewReader(p)

	var header ResponseHeader
	if _, err := mu.UnmarshalFromReader(buf, &header); err != nil {
		return 0, nil, nil, xerrors.Errorf("cannot unmarshal header: %w", err)
	}

	if header.ResponseSize != uint32(buf.Size()) {
		return 0, nil, nil, fmt.Errorf("invalid responseSize value (got %d, packet length %d)", header.ResponseSize, len(p))
	}

	if header.ResponseCode != ResponseSuccess && buf.Len() != 0 {
		return header.ResponseCode, nil, nil, fmt.Errorf("%d trailing byte(s) in unsuccessful response", buf.Len())
	}

	switch header.Tag {
	case TagRspCommand:
		if header.ResponseCode != ResponseBadTag {
			return 0, nil, nil, fmt.Errorf("unexpected TPM1.2 response code 0x%08x", header.ResponseCode)
		}
	case TagSessions:
		if header.ResponseCode != ResponseSuccess {
			return 0, nil, nil, fmt.Errorf("unexpected response code 0x%08x for TPM_ST_SESSIONS response", header.ResponseCode)
		}

		var parameterSize uint32
		if _, err := mu.UnmarshalFromReader(buf, &parameterSize); err != nil {
			return 0, nil, nil, xerrors.Errorf("cannot unmarshal parameterSize: %w", err)
		}
		if int64(parameterSize) > int64(buf.Len()) {
			return 0, nil, nil, fmt.Errorf("parameterSize is larger than the remaining bytes (%d)", parameterSize)
		}

		parameters = make([]byte, parameterSize)
		if _, err := io.ReadFull(buf, parameters); err != nil {
			return 0, nil, nil, xerrors.Errorf("cannot read parameters: %w", err)
		}

		for buf.Len() > 0 {
			if len(authArea) >= 3 {
				return 0, nil, nil, fmt.Errorf("%d trailing byte(s)", buf.Len())
			}

			var auth AuthResponse
			if _, err := mu.UnmarshalFromReader(buf, &auth); err != nil {
				return 0, nil, nil, xerrors.Errorf("cannot unmarshal auth: %w", err)
			}

			authArea = append(authArea, auth)
		}
	case TagNoSessions:
		parameters, err = ioutil.ReadAll(buf)
		if err != nil {
			return 0, nil, nil, xerrors.Errorf("cannot read parameters: %w", err)
		}
	default:
		return 0, nil, nil, fmt.Errorf("invalid tag: 0x%04x", uint16(header.Tag))
	}

	return header.ResponseCode, parameters, authArea, nil
}

// MarshalResponsePacket serializes a complete response packet. If authArea is not empty, a TPM_ST_SESSIONS
// response is created.
func MarshalResponsePacket(rc ResponseCode, parameters []byte, authArea []AuthResponse) ResponsePacket {
	header := ResponseHeader{ResponseCode: rc}
	var payload []byte

	switch {
	case rc == ResponseBadTag:
		header.Tag = TagRspCommand
	case rc != ResponseSuccess:
		header.Tag = TagNoSessions
	case len(authArea) > 0:
		header.Tag = TagSessions

		aBytes := new(bytes.Buffer)
		for _, auth := range authArea {
			mu.MarshalToWriter(aBytes, auth)
		}
		payload = mu.MustMarshalToBytes(uint32(len(parameters)), mu.RawBytes(parameters), mu.RawBytes(aBytes.Bytes()))
	default:
		header.Tag = TagNoSessions
		payload = parameters
	}

	header.ResponseSize = uint32(binary.Size(header) + len(payload))

	return mu.MustMarshalToBytes(header, mu.RawBytes(payload))
}
