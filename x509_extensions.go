// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/canonical/go-tpmx509/internal/der"
)

var (
	errNotAnExtension        = errors.New("extension is not a SEQUENCE")
	errExtensionValueMissing = errors.New("extension has no OCTET STRING value")
)

// extensionError is returned from processExtensions. The caller decides which handle or parameter the error is
// reported against.
type extensionError struct {
	code ErrorCode
	msg  string
}

func (e *extensionError) Error() string {
	return fmt.Sprintf("invalid extensions (%s): %s", e.code, e.msg)
}

// findExtensionByOID searches a SEQUENCE OF Extension for the entry identified by the supplied DER encoded object
// identifier. If out is not nil, the search is performed on a copy of in and in is not modified. On a match, out
// (or in if out is nil) is re-windowed to the contents of the matching entry.
//
// It returns false without poisoning the searched context if no entry matches. If the sequence is malformed, it
// returns false and the searched context is poisoned, as is in if it wasn't the context being searched.
func findExtensionByOID(in, out *der.UnmarshalContext, oid []byte) bool {
	if out != nil {
		*out = *in
	} else {
		out = in
	}

	for out.Valid() && out.Remaining() > 0 {
		length := out.NextTag()
		switch {
		case length < 0:
		case out.Tag() != der.TagSequence:
			out.Poison(errNotAnExtension)
		case bytes.Equal(out.Peek(len(oid)), oid) && len(oid) <= length:
			return out.Window(length, nil)
		default:
			out.Skip(length)
		}
	}

	if !out.Valid() && out != in {
		in.Poison(out.Err())
	}
	return false
}

// getExtensionBits returns the value of the BIT STRING contained in the OCTET STRING of an extension. The supplied
// context must be windowed to the contents of the extension, as it is on return from findExtensionByOID.
func getExtensionBits(ctx *der.UnmarshalContext) (uint32, bool) {
	for ctx.Valid() && ctx.Remaining() > 0 {
		length := ctx.NextTag()
		if length < 0 {
			break
		}
		if ctx.Tag() == der.TagOctetString {
			return ctx.GetBitStringValue()
		}
		ctx.Skip(length)
	}
	ctx.Poison(errExtensionValueMissing)
	return 0, false
}

// processExtensions checks the [3] EXPLICIT Extensions element of a partial certificate against the attributes of
// the object being certified. The TCG TPMA_OBJECT extension is optional, but if present its 32-bit value must match
// the object's attributes exactly. The KeyUsage extension is required, and every declared usage must be permitted by the
// object's attributes.
func processExtensions(obj *object, extensions []byte) error {
	attrs := obj.public.Attrs

	ctx, err := der.NewUnmarshalContext(extensions)
	if err != nil {
		return &extensionError{ErrorValue, err.Error()}
	}
	if ctx.NextTag() < 0 || ctx.Tag() != der.ExplicitTag(3) {
		return &extensionError{ErrorValue, "missing [3] tag"}
	}
	if ctx.NextTag() < 0 || ctx.Tag() != der.TagSequence {
		return &extensionError{ErrorValue, "extensions are not a SEQUENCE"}
	}

	var extCtx der.UnmarshalContext
	if findExtensionByOID(ctx, &extCtx, oidTCGTPMAObject) {
		value, ok := getExtensionBits(&extCtx)
		switch {
		case !ok:
			return &extensionError{ErrorValue, fmt.Sprintf("cannot decode TPMA_OBJECT extension: %v", extCtx.Err())}
		case ObjectAttributes(value) != attrs:
			return &extensionError{ErrorAttributes,
				fmt.Sprintf("TPMA_OBJECT extension (0x%08x) does not match the object attributes (0x%08x)", value, uint32(attrs))}
		}
	} else if !extCtx.Valid() {
		return &extensionError{ErrorValue, fmt.Sprintf("cannot search extensions: %v", extCtx.Err())}
	}

	if !findExtensionByOID(ctx, &extCtx, oidKeyUsageExtension) {
		if !extCtx.Valid() {
			return &extensionError{ErrorValue, fmt.Sprintf("cannot search extensions: %v", extCtx.Err())}
		}
		return &extensionError{ErrorValue, "missing KeyUsage extension"}
	}
	value, ok := getExtensionBits(&extCtx)
	if !ok {
		return &extensionError{ErrorValue, fmt.Sprintf("cannot decode KeyUsage extension: %v", extCtx.Err())}
	}
	keyUsage := X509KeyUsage(value)

	switch {
	case keyUsage&KeyUsageSigning != 0 && attrs&AttrSign == 0:
		return &extensionError{ErrorValue, "signing usage declared for a key without the sign attribute"}
	case keyUsage&KeyUsageDecrypting != 0 && attrs&AttrDecrypt == 0:
		return &extensionError{ErrorValue, "decrypting usage declared for a key without the decrypt attribute"}
	case keyUsage&KeyUsageNonRepudiation != 0 && attrs&AttrFixedTPM == 0:
		return &extensionError{ErrorValue, "nonRepudiation declared for a key without the fixedTPM attribute"}
	case keyUsage&KeyUsageKeyAgreement != 0 && attrs&AttrRestricted == 0:
		return &extensionError{ErrorValue, "keyAgreement declared for a key without the restricted attribute"}
	}
	return nil
}
