// Copyright 2020 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"sync"

	. "gopkg.in/check.v1"
)

// DecodeHexString decodes the supplied hex string in to a byte slice.
func DecodeHexString(c *C, s string) []byte {
	b, err := hex.DecodeString(s)
	c.Assert(err, IsNil)
	return b
}

var (
	keysMu  sync.Mutex
	rsaKeys = make(map[int]*rsa.PrivateKey)
	eccKeys = make(map[string]*ecdsa.PrivateKey)
)

// RSAKey returns a RSA key of the specified size. Keys are generated once per
// size and shared between tests, as generating them is slow.
func RSAKey(c *C, bits int) *rsa.PrivateKey {
	keysMu.Lock()
	defer keysMu.Unlock()

	if key, ok := rsaKeys[bits]; ok {
		return key
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	c.Assert(err, IsNil)
	rsaKeys[bits] = key
	return key
}

// ECCKey returns an ECC key on the specified curve. Keys are generated once per
// curve and shared between tests.
func ECCKey(c *C, curve elliptic.Curve) *ecdsa.PrivateKey {
	keysMu.Lock()
	defer keysMu.Unlock()

	name := curve.Params().Name
	if key, ok := eccKeys[name]; ok {
		return key
	}
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	c.Assert(err, IsNil)
	eccKeys[name] = key
	return key
}
