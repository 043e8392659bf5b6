// Copyright 2020 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package testutil

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"reflect"

	"golang.org/x/xerrors"

	. "gopkg.in/check.v1"
)

type isTrueChecker struct {
	*CheckerInfo
}

// IsTrue determines whether a boolean value is true.
var IsTrue Checker = &isTrueChecker{
	&CheckerInfo{Name: "IsTrue", Params: []string{"value"}}}

func (checker *isTrueChecker) Check(params []interface{}, names []string) (result bool, error string) {
	value, ok := params[0].(bool)
	if !ok {
		return false, names[0] + " is not a bool"
	}
	return value, ""
}

type isFalseChecker struct {
	*CheckerInfo
}

// IsFalse determines whether a boolean value is false.
var IsFalse Checker = &isFalseChecker{
	&CheckerInfo{Name: "IsFalse", Params: []string{"value"}}}

func (checker *isFalseChecker) Check(params []interface{}, names []string) (result bool, error string) {
	value, ok := params[0].(bool)
	if !ok {
		return false, names[0] + " is not a bool"
	}
	return !value, ""
}

type errorIsChecker struct {
	*CheckerInfo
}

// ErrorIs determines whether any error in a chain has a specific
// value, using xerrors.Is
//
// For example:
//
//	c.Check(err, ErrorIs, der.ErrTruncated)
var ErrorIs Checker = &errorIsChecker{
	&CheckerInfo{Name: "ErrorIs", Params: []string{"value", "expected"}}}

func (checker *errorIsChecker) Check(params []interface{}, names []string) (result bool, errStr string) {
	err, ok := params[0].(error)
	if !ok {
		return false, "value is not an error"
	}

	expected, ok := params[1].(error)
	if !ok {
		return false, "expected is not an error"
	}

	return xerrors.Is(err, expected), ""
}

type errorAsChecker struct {
	*CheckerInfo
}

// ErrorAs determines whether any error in a chain has a specific
// type, using xerrors.As.
//
// For example:
//
//	var e *tpmx509.TPMParameterError
//	c.Check(err, ErrorAs, &e)
//	c.Check(e.Index, Equals, 3)
var ErrorAs Checker = &errorAsChecker{
	&CheckerInfo{Name: "ErrorAs", Params: []string{"value", "target"}}}

func (checker *errorAsChecker) Check(params []interface{}, names []string) (result bool, errStr string) {
	err, ok := params[0].(error)
	if !ok {
		return false, "value is not an error"
	}

	return xerrors.As(err, params[1]), ""
}

type lenEqualsChecker struct {
	*CheckerInfo
}

// LenEquals checks that the value has the specified length. This differs from
// check.HasLen in that it returns an error string containing the actual length
// if the check fails.
//
// For example:
//
//	c.Check(value, LenEquals, 5)
var LenEquals Checker = &lenEqualsChecker{
	&CheckerInfo{Name: "LenEquals", Params: []string{"value", "n"}}}

func (checker *lenEqualsChecker) Check(params []interface{}, names []string) (result bool, error string) {
	value := reflect.ValueOf(params[0])
	switch value.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
	default:
		return false, "value doesn't have a length"
	}

	n, ok := params[1].(int)
	if !ok {
		return false, names[1] + " is not an int"
	}

	if value.Len() != n {
		return false, fmt.Sprintf("actual length: %d", value.Len())
	}
	return true, ""
}

type derEqualsChecker struct {
	*CheckerInfo
}

// DEREquals checks that two byte slices are identical. On failure, the
// error string contains the offset of the first difference and both values
// encoded as hex, which is easier to read than the output of DeepEquals for
// DER encoded data.
//
// For example:
//
//	c.Check(ctx.Bytes(), DEREquals, DecodeHexString(c, "020101"))
var DEREquals Checker = &derEqualsChecker{
	&CheckerInfo{Name: "DEREquals", Params: []string{"obtained", "expected"}}}

func (checker *derEqualsChecker) Check(params []interface{}, names []string) (result bool, error string) {
	obtained, ok := params[0].([]byte)
	if !ok {
		return false, names[0] + " is not a byte slice"
	}
	expected, ok := params[1].([]byte)
	if !ok {
		return false, names[1] + " is not a byte slice"
	}

	if bytes.Equal(obtained, expected) {
		return true, ""
	}

	i := 0
	for ; i < len(obtained) && i < len(expected); i++ {
		if obtained[i] != expected[i] {
			break
		}
	}
	return false, fmt.Sprintf("first difference at offset %d\nobtained: %s\nexpected: %s",
		i, hex.EncodeToString(obtained), hex.EncodeToString(expected))
}
