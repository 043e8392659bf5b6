// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"

	"github.com/golang/glog"
)

// object corresponds to an object loaded in to the engine.
type object struct {
	handle Handle
	public *Public
	name   Name
	priv   crypto.Signer // nil for public-only objects
}

// Name returns the name of the object.
func (o *object) Name() Name {
	return o.name
}

func publicKeyEqual(a, b crypto.PublicKey) bool {
	switch k := a.(type) {
	case *rsa.PublicKey:
		return k.Equal(b)
	case *ecdsa.PublicKey:
		return k.Equal(b)
	default:
		return false
	}
}

// checkPublic returns an error that is appropriate to return from LoadExternal if the supplied public area cannot
// be loaded. It is reported against parameter 2.
func checkPublic(pub *Public) *TPMParameterError {
	paramErr := func(code ErrorCode) *TPMParameterError {
		return &TPMParameterError{TPMError: &TPMError{Command: CommandLoadExternal, Code: code}, Index: 2}
	}

	if !pub.NameAlg.Available() {
		return paramErr(ErrorHash)
	}
	if pub.Params == nil || pub.Unique == nil {
		return paramErr(ErrorSize)
	}

	switch pub.Type {
	case ObjectTypeRSA:
		if pub.Params.RSADetail == nil {
			return paramErr(ErrorSelector)
		}
		keyBits := int(pub.Params.RSADetail.KeyBits)
		if keyBits < 1024 || keyBits%8 != 0 {
			return paramErr(ErrorKeySize)
		}
		if len(pub.Unique.RSA) != keyBits/8 {
			return paramErr(ErrorKey)
		}
	case ObjectTypeECC:
		if pub.Params.ECCDetail == nil || pub.Unique.ECC == nil {
			return paramErr(ErrorSelector)
		}
		curve := pub.Params.ECCDetail.CurveID.GoCurve()
		if curve == nil {
			return paramErr(ErrorCurve)
		}
		size := (curve.Params().BitSize + 7) / 8
		if len(pub.Unique.ECC.X) > size || len(pub.Unique.ECC.Y) > size {
			return paramErr(ErrorKey)
		}
		k := pub.Public().(*ecdsa.PublicKey)
		if !curve.IsOnCurve(k.X, k.Y) {
			return paramErr(ErrorECCPoint)
		}
	default:
		return paramErr(ErrorType)
	}
	return nil
}

// LoadExternal loads the supplied public area and optional private key in to the engine, and returns the handle of
// the new object. If key is nil, a public-only object is loaded, which can be certified but cannot sign.
//
// If key is not nil, it must be a *rsa.PrivateKey or *ecdsa.PrivateKey that corresponds to the public area, else a
// *TPMError with an error code of ErrorBinding will be returned.
//
// If the public area is invalid, a *TPMParameterError error for parameter index 2 will be returned.
func (t *TPM) LoadExternal(pub *Public, key crypto.PrivateKey) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := checkPublic(pub); err != nil {
		return HandleNull, err
	}

	var priv crypto.Signer
	if key != nil {
		signer, ok := key.(crypto.Signer)
		if !ok || !publicKeyEqual(pub.Public(), signer.Public()) {
			return HandleNull, &TPMError{Command: CommandLoadExternal, Code: ErrorBinding}
		}
		priv = signer
	}

	name, err := pub.ComputeName()
	if err != nil {
		return HandleNull, &TPMParameterError{TPMError: &TPMError{Command: CommandLoadExternal, Code: ErrorHash}, Index: 2}
	}

	handle := t.nextHandle
	for {
		if _, exists := t.objects[handle]; !exists {
			break
		}
		handle++
		if handle.Type() != HandleTypeTransient {
			handle = HandleTypeTransientFirst
		}
	}
	t.nextHandle = handle + 1

	t.objects[handle] = &object{handle: handle, public: pub, name: name, priv: priv}
	glog.V(1).Infof("loaded object %x at handle 0x%08x", []byte(name), handle)
	return handle, nil
}

// FlushContext removes the object with the specified handle from the engine. If there is no object loaded at the
// handle, a *TPMParameterError error with an error code of ErrorHandle will be returned.
func (t *TPM) FlushContext(handle Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushContext(handle)
}

func (t *TPM) flushContext(handle Handle) error {
	if _, exists := t.objects[handle]; !exists {
		return &TPMParameterError{TPMError: &TPMError{Command: CommandFlushContext, Code: ErrorHandle}, Index: 1}
	}
	delete(t.objects, handle)
	glog.V(1).Infof("flushed handle 0x%08x", handle)
	return nil
}

// handleToObject returns the object loaded at the specified handle. The index of the handle in the command handle
// area is used to construct an error if there is no such object.
func (t *TPM) handleToObject(command CommandCode, handle Handle, index int) (*object, error) {
	if handle.Type() != HandleTypeTransient {
		return nil, &TPMHandleError{TPMError: &TPMError{Command: command, Code: ErrorValue}, Index: index}
	}
	obj, exists := t.objects[handle]
	if !exists {
		return nil, &TPMHandleError{TPMError: &TPMError{Command: command, Code: ErrorHandle}, Index: index}
	}
	return obj, nil
}
