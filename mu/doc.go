// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

/*
Package mu marshals Go values to and from the TPM wire format.

Go types map to TPM types as follows:
  - UINT8, BYTE, INT8, BOOL, UINT16, INT16, UINT32, INT32, UINT64 and INT64 <-> the Go type of the same size.
  - TPM2B sized buffers <-> []byte, or any type with []byte as its underlying type.
  - TPM2B sized structures <-> a pointer to a struct, from a field with the `tpm2:"sized"` tag. A nil pointer is a
    zero sized structure.
  - TPML lists <-> slices of any other type, with a 4-byte length prefix.
  - TPMS and TPMT structures <-> struct.
  - TPMU unions <-> struct that implements Union, from a field with the `tpm2:"selector:<field_name>"` tag that names
    the selector field in the enclosing struct.
  - Anything else <-> a type that implements CustomMarshaller and CustomUnmarshaller.

Pointers are dereferenced, and nil pointers are marshalled as the zero value of the type they point to.

A field with the `tpm2:"raw"` tag, or a value of the RawBytes type, is a slice that is marshalled without its size
or length prefix.
*/
package mu
