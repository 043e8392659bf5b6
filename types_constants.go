// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"crypto/elliptic"
)

// This file contains types defined in section 6 (Constants) in
// part 2 of the library spec.

// AlgorithmId corresponds to the TPM_ALG_ID type.
type AlgorithmId uint16

const (
	AlgorithmError          AlgorithmId = 0x0000 // TPM_ALG_ERROR
	AlgorithmRSA            AlgorithmId = 0x0001 // TPM_ALG_RSA
	AlgorithmSHA1           AlgorithmId = 0x0004 // TPM_ALG_SHA1
	AlgorithmHMAC           AlgorithmId = 0x0005 // TPM_ALG_HMAC
	AlgorithmAES            AlgorithmId = 0x0006 // TPM_ALG_AES
	AlgorithmMGF1           AlgorithmId = 0x0007 // TPM_ALG_MGF1
	AlgorithmKeyedHash      AlgorithmId = 0x0008 // TPM_ALG_KEYEDHASH
	AlgorithmXOR            AlgorithmId = 0x000a // TPM_ALG_XOR
	AlgorithmSHA256         AlgorithmId = 0x000b // TPM_ALG_SHA256
	AlgorithmSHA384         AlgorithmId = 0x000c // TPM_ALG_SHA384
	AlgorithmSHA512         AlgorithmId = 0x000d // TPM_ALG_SHA512
	AlgorithmNull           AlgorithmId = 0x0010 // TPM_ALG_NULL
	AlgorithmSM3_256        AlgorithmId = 0x0012 // TPM_ALG_SM3_256
	AlgorithmSM4            AlgorithmId = 0x0013 // TPM_ALG_SM4
	AlgorithmRSASSA         AlgorithmId = 0x0014 // TPM_ALG_RSASSA
	AlgorithmRSAES          AlgorithmId = 0x0015 // TPM_ALG_RSAES
	AlgorithmRSAPSS         AlgorithmId = 0x0016 // TPM_ALG_RSAPSS
	AlgorithmOAEP           AlgorithmId = 0x0017 // TPM_ALG_OAEP
	AlgorithmECDSA          AlgorithmId = 0x0018 // TPM_ALG_ECDSA
	AlgorithmECDH           AlgorithmId = 0x0019 // TPM_ALG_ECDH
	AlgorithmECDAA          AlgorithmId = 0x001a // TPM_ALG_ECDAA
	AlgorithmSM2            AlgorithmId = 0x001b // TPM_ALG_SM2
	AlgorithmECSCHNORR      AlgorithmId = 0x001c // TPM_ALG_ECSCHNORR
	AlgorithmECMQV          AlgorithmId = 0x001d // TPM_ALG_ECMQV
	AlgorithmKDF1_SP800_56A AlgorithmId = 0x0020 // TPM_ALG_KDF1_SP800_56A
	AlgorithmKDF2           AlgorithmId = 0x0021 // TPM_ALG_KDF2
	AlgorithmKDF1_SP800_108 AlgorithmId = 0x0022 // TPM_ALG_KDF1_SP800_108
	AlgorithmECC            AlgorithmId = 0x0023 // TPM_ALG_ECC
	AlgorithmSymCipher      AlgorithmId = 0x0025 // TPM_ALG_SYMCIPHER
	AlgorithmCamellia       AlgorithmId = 0x0026 // TPM_ALG_CAMELLIA
	AlgorithmSHA3_256       AlgorithmId = 0x0027 // TPM_ALG_SHA3_256
	AlgorithmSHA3_384       AlgorithmId = 0x0028 // TPM_ALG_SHA3_384
	AlgorithmSHA3_512       AlgorithmId = 0x0029 // TPM_ALG_SHA3_512
	AlgorithmCTR            AlgorithmId = 0x0040 // TPM_ALG_CTR
	AlgorithmOFB            AlgorithmId = 0x0041 // TPM_ALG_OFB
	AlgorithmCBC            AlgorithmId = 0x0042 // TPM_ALG_CBC
	AlgorithmCFB            AlgorithmId = 0x0043 // TPM_ALG_CFB
	AlgorithmECB            AlgorithmId = 0x0044 // TPM_ALG_ECB
)

// ECCCurve corresponds to the TPM_ECC_CURVE type.
type ECCCurve uint16

const (
	ECCCurveNIST_P192 ECCCurve = 0x0001 // TPM_ECC_NIST_P192
	ECCCurveNIST_P224 ECCCurve = 0x0002 // TPM_ECC_NIST_P224
	ECCCurveNIST_P256 ECCCurve = 0x0003 // TPM_ECC_NIST_P256
	ECCCurveNIST_P384 ECCCurve = 0x0004 // TPM_ECC_NIST_P384
	ECCCurveNIST_P521 ECCCurve = 0x0005 // TPM_ECC_NIST_P521
	ECCCurveBN_P256   ECCCurve = 0x0010 // TPM_ECC_BN_P256
	ECCCurveBN_P638   ECCCurve = 0x0011 // TPM_ECC_BN_P638
	ECCCurveSM2_P256  ECCCurve = 0x0020 // TPM_ECC_SM2_P256
)

var eccCurves = map[ECCCurve]elliptic.Curve{
	ECCCurveNIST_P224: elliptic.P224(),
	ECCCurveNIST_P256: elliptic.P256(),
	ECCCurveNIST_P384: elliptic.P384(),
	ECCCurveNIST_P521: elliptic.P521(),
}

// GoCurve returns the equivalent elliptic.Curve for this ECC curve, or nil if there isn't one.
func (c ECCCurve) GoCurve() elliptic.Curve {
	return eccCurves[c]
}

// CommandCode corresponds to the TPM_CC type.
type CommandCode uint32

const (
	CommandFlushContext CommandCode = 0x00000165 // TPM_CC_FlushContext
	CommandLoadExternal CommandCode = 0x00000167 // TPM_CC_LoadExternal
	CommandCertifyX509  CommandCode = 0x00000197 // TPM_CC_CertifyX509
)

// ResponseCode corresponds to the TPM_RC type.
type ResponseCode uint32

const (
	// ResponseSuccess is TPM_RC_SUCCESS.
	ResponseSuccess ResponseCode = 0

	// ResponseBadTag is TPM_RC_BAD_TAG. It is returned when a command has an unrecognized tag, and has the same
	// encoding as a TPM 1.2 error so that it is understood by both.
	ResponseBadTag ResponseCode = 0x01e
)

const (
	// The lower 7-bits of format-zero error codes are the error number.
	responseCodeE0 ResponseCode = 0x7f

	// The lower 6-bits of format-one error codes are the error number.
	responseCodeE1 ResponseCode = 0x3f

	// Bit 6 of format-one errors is zero for errors associated with a handle
	// or session, or one for errors associated with a parameter.
	responseCodeP ResponseCode = 1 << 6

	// Bit 7 indicates whether the error is a format-zero (0) or format-one code (1)
	responseCodeF ResponseCode = 1 << 7

	// Bit 8 of format-zero errors is zero for TPM1.2 errors and one for TPM2 errors.
	responseCodeV ResponseCode = 1 << 8

	// Bit 10 of format-zero errors is zero for TCG defined errors and one for vendor
	// defined error.
	responseCodeT ResponseCode = 1 << 10

	// Bit 11 of format-zero errors is zero for errors and one for warnings.
	responseCodeS ResponseCode = 1 << 11

	responseCodeIndexShift = 8

	// Bits 8 to 11 of format-one errors represent the parameter number if P is set
	// or the handle or session number otherwise.
	responseCodeN ResponseCode = 0xf << responseCodeIndexShift

	// Bit 11 of format-one errors that aren't associated with a parameter is set for
	// session errors.
	responseCodeSession ResponseCode = 1 << 11
)

// E returns the E field of the response code, corresponding to the error number.
func (rc ResponseCode) E() uint8 {
	if rc.F() {
		return uint8(rc & responseCodeE1)
	}
	return uint8(rc & responseCodeE0)
}

// F returns the F field of the response code, corresponding to the format.
// If it is set, this is a format-one response code. If it is not set, this
// is a format-zero response code.
func (rc ResponseCode) F() bool {
	return rc&responseCodeF != 0
}

// V returns the V field of the response code. If this is set in a format-zero
// response code, then it is a TPM2 code returned when the response tag is
// TPM_ST_NO_SESSIONS. If it is not set in a format-zero response code, then
// it is a TPM1.2 code returned when the response tag is TPM_TAG_RSP_COMMAND.
//
// This will panic if the F field is set.
func (rc ResponseCode) V() bool {
	if rc.F() {
		panic("not a format-zero response code")
	}
	return rc&responseCodeV != 0
}

// T returns the T field of the response code. If this is set in a format-zero
// response code, then the code is defined by the TPM vendor.
//
// This will panic if the F field is set.
func (rc ResponseCode) T() bool {
	if rc.F() {
		panic("not a format-zero response code")
	}
	return rc&responseCodeT != 0
}

// S returns the S field of the response code. If this is set in a format-zero
// response code, then the code indicates a warning.
//
// This will panic if the F field is set.
func (rc ResponseCode) S() bool {
	if rc.F() {
		panic("not a format-zero response code")
	}
	return rc&responseCodeS != 0
}

// P returns the P field of the response code. If this is set in a format-one
// response code, then the code is associated with a command parameter.
//
// This will panic if the F field is not set.
func (rc ResponseCode) P() bool {
	if !rc.F() {
		panic("not a format-one response code")
	}
	return rc&responseCodeP != 0
}

// N returns the N field of the response code. If the P field is set in a
// format-one response code, then this indicates the parameter number from 1
// to 15. If the P field is not set in a format-one response code, then the
// lower 3 bits indicate the handle or session number (0 to 7 for handles and
// 8 to 15 for sessions).
//
// This will panic if the F field is not set.
func (rc ResponseCode) N() uint8 {
	if !rc.F() {
		panic("not a format-one response code")
	}
	return uint8((rc & responseCodeN) >> responseCodeIndexShift)
}

// StructTag corresponds to the TPM_ST type.
type StructTag uint16

const (
	TagRspCommand StructTag = 0x00c4 // TPM_ST_RSP_COMMAND
	TagNoSessions StructTag = 0x8001 // TPM_ST_NO_SESSIONS
	TagSessions   StructTag = 0x8002 // TPM_ST_SESSIONS
)

// Handle corresponds to the TPM_HANDLE type.
type Handle uint32

const (
	HandleOwner Handle = 0x40000001 // TPM_RH_OWNER
	HandleNull  Handle = 0x40000007 // TPM_RH_NULL
	HandlePW    Handle = 0x40000009 // TPM_RS_PW

	// HandleTypeTransientFirst is the first handle assigned to objects loaded in to the engine.
	HandleTypeTransientFirst Handle = 0x80000000
	handleTypeMask           Handle = 0xff000000
)

// HandleType corresponds to the TPM_HT type.
type HandleType uint8

const (
	HandleTypePCR           HandleType = 0x00 // TPM_HT_PCR
	HandleTypeNVIndex       HandleType = 0x01 // TPM_HT_NV_INDEX
	HandleTypeHMACSession   HandleType = 0x02 // TPM_HT_HMAC_SESSION
	HandleTypePolicySession HandleType = 0x03 // TPM_HT_POLICY_SESSION
	HandleTypePermanent     HandleType = 0x40 // TPM_HT_PERMANENT
	HandleTypeTransient     HandleType = 0x80 // TPM_HT_TRANSIENT
	HandleTypePersistent    HandleType = 0x81 // TPM_HT_PERSISTENT
)

// Type returns the type of the handle.
func (h Handle) Type() HandleType {
	return HandleType(h >> 24)
}

const (
	errorCode1Start ErrorCode = 0x80
)

const (
	ErrorInitialize  ErrorCode = 0x00 // TPM_RC_INITIALIZE
	ErrorFailure     ErrorCode = 0x01 // TPM_RC_FAILURE
	ErrorSequence    ErrorCode = 0x03 // TPM_RC_SEQUENCE
	ErrorDisabled    ErrorCode = 0x20 // TPM_RC_DISABLED
	ErrorAuthMissing ErrorCode = 0x25 // TPM_RC_AUTH_MISSING
	ErrorCommandSize ErrorCode = 0x42 // TPM_RC_COMMAND_SIZE
	ErrorCommandCode ErrorCode = 0x43 // TPM_RC_COMMAND_CODE
	ErrorAuthsize    ErrorCode = 0x44 // TPM_RC_AUTHSIZE
	ErrorAuthContext ErrorCode = 0x45 // TPM_RC_AUTH_CONTEXT
	ErrorSensitive   ErrorCode = 0x55 // TPM_RC_SENSITIVE
)

const (
	ErrorAsymmetric   ErrorCode = errorCode1Start + 0x01 // TPM_RC_ASYMMETRIC
	ErrorAttributes   ErrorCode = errorCode1Start + 0x02 // TPM_RC_ATTRIBUTES
	ErrorHash         ErrorCode = errorCode1Start + 0x03 // TPM_RC_HASH
	ErrorValue        ErrorCode = errorCode1Start + 0x04 // TPM_RC_VALUE
	ErrorHierarchy    ErrorCode = errorCode1Start + 0x05 // TPM_RC_HIERARCHY
	ErrorKeySize      ErrorCode = errorCode1Start + 0x07 // TPM_RC_KEY_SIZE
	ErrorMGF          ErrorCode = errorCode1Start + 0x08 // TPM_RC_MGF
	ErrorMode         ErrorCode = errorCode1Start + 0x09 // TPM_RC_MODE
	ErrorType         ErrorCode = errorCode1Start + 0x0a // TPM_RC_TYPE
	ErrorHandle       ErrorCode = errorCode1Start + 0x0b // TPM_RC_HANDLE
	ErrorKDF          ErrorCode = errorCode1Start + 0x0c // TPM_RC_KDF
	ErrorRange        ErrorCode = errorCode1Start + 0x0d // TPM_RC_RANGE
	ErrorAuthFail     ErrorCode = errorCode1Start + 0x0e // TPM_RC_AUTH_FAIL
	ErrorNonce        ErrorCode = errorCode1Start + 0x0f // TPM_RC_NONCE
	ErrorPP           ErrorCode = errorCode1Start + 0x10 // TPM_RC_PP
	ErrorScheme       ErrorCode = errorCode1Start + 0x12 // TPM_RC_SCHEME
	ErrorSize         ErrorCode = errorCode1Start + 0x15 // TPM_RC_SIZE
	ErrorSymmetric    ErrorCode = errorCode1Start + 0x16 // TPM_RC_SYMMETRIC
	ErrorTag          ErrorCode = errorCode1Start + 0x17 // TPM_RC_TAG
	ErrorSelector     ErrorCode = errorCode1Start + 0x18 // TPM_RC_SELECTOR
	ErrorInsufficient ErrorCode = errorCode1Start + 0x1a // TPM_RC_INSUFFICIENT
	ErrorSignature    ErrorCode = errorCode1Start + 0x1b // TPM_RC_SIGNATURE
	ErrorKey          ErrorCode = errorCode1Start + 0x1c // TPM_RC_KEY
	ErrorPolicyFail   ErrorCode = errorCode1Start + 0x1d // TPM_RC_POLICY_FAIL
	ErrorIntegrity    ErrorCode = errorCode1Start + 0x1f // TPM_RC_INTEGRITY
	ErrorTicket       ErrorCode = errorCode1Start + 0x20 // TPM_RC_TICKET
	ErrorReservedBits ErrorCode = errorCode1Start + 0x21 // TPM_RC_RESERVED_BITS
	ErrorBadAuth      ErrorCode = errorCode1Start + 0x22 // TPM_RC_BAD_AUTH
	ErrorExpired      ErrorCode = errorCode1Start + 0x23 // TPM_RC_EXPIRED
	ErrorPolicyCC     ErrorCode = errorCode1Start + 0x24 // TPM_RC_POLICY_CC
	ErrorBinding      ErrorCode = errorCode1Start + 0x25 // TPM_RC_BINDING
	ErrorCurve        ErrorCode = errorCode1Start + 0x26 // TPM_RC_CURVE
	ErrorECCPoint     ErrorCode = errorCode1Start + 0x27 // TPM_RC_ECC_POINT
)
