// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmx509

import (
	"fmt"
	"strings"
)

func makeDefaultFormatter(s fmt.State, f rune) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%%")
	for _, flag := range [...]int{'+', '-', '#', ' ', '0'} {
		if s.Flag(flag) {
			fmt.Fprintf(&builder, "%c", flag)
		}
	}
	if width, ok := s.Width(); ok {
		fmt.Fprintf(&builder, "%d", width)
	}
	if prec, ok := s.Precision(); ok {
		fmt.Fprintf(&builder, ".%d", prec)
	}
	fmt.Fprintf(&builder, "%c", f)
	return builder.String()
}

func (c CommandCode) String() string {
	switch c {
	case CommandFlushContext:
		return "TPM_CC_FlushContext"
	case CommandLoadExternal:
		return "TPM_CC_LoadExternal"
	case CommandCertifyX509:
		return "TPM_CC_CertifyX509"
	default:
		return fmt.Sprintf("0x%08x", uint32(c))
	}
}

func (c CommandCode) Format(s fmt.State, f rune) {
	switch f {
	case 's', 'v':
		fmt.Fprintf(s, "%s", c.String())
	default:
		fmt.Fprintf(s, makeDefaultFormatter(s, f), uint32(c))
	}
}

func (e ErrorCode) String() string {
	switch e {
	case ErrorInitialize:
		return "TPM_RC_INITIALIZE"
	case ErrorFailure:
		return "TPM_RC_FAILURE"
	case ErrorSequence:
		return "TPM_RC_SEQUENCE"
	case ErrorDisabled:
		return "TPM_RC_DISABLED"
	case ErrorAuthMissing:
		return "TPM_RC_AUTH_MISSING"
	case ErrorCommandSize:
		return "TPM_RC_COMMAND_SIZE"
	case ErrorCommandCode:
		return "TPM_RC_COMMAND_CODE"
	case ErrorAuthsize:
		return "TPM_RC_AUTHSIZE"
	case ErrorAuthContext:
		return "TPM_RC_AUTH_CONTEXT"
	case ErrorSensitive:
		return "TPM_RC_SENSITIVE"
	case ErrorAsymmetric:
		return "TPM_RC_ASYMMETRIC"
	case ErrorAttributes:
		return "TPM_RC_ATTRIBUTES"
	case ErrorHash:
		return "TPM_RC_HASH"
	case ErrorValue:
		return "TPM_RC_VALUE"
	case ErrorHierarchy:
		return "TPM_RC_HIERARCHY"
	case ErrorKeySize:
		return "TPM_RC_KEY_SIZE"
	case ErrorMGF:
		return "TPM_RC_MGF"
	case ErrorMode:
		return "TPM_RC_MODE"
	case ErrorType:
		return "TPM_RC_TYPE"
	case ErrorHandle:
		return "TPM_RC_HANDLE"
	case ErrorKDF:
		return "TPM_RC_KDF"
	case ErrorRange:
		return "TPM_RC_RANGE"
	case ErrorAuthFail:
		return "TPM_RC_AUTH_FAIL"
	case ErrorNonce:
		return "TPM_RC_NONCE"
	case ErrorPP:
		return "TPM_RC_PP"
	case ErrorScheme:
		return "TPM_RC_SCHEME"
	case ErrorSize:
		return "TPM_RC_SIZE"
	case ErrorSymmetric:
		return "TPM_RC_SYMMETRIC"
	case ErrorTag:
		return "TPM_RC_TAG"
	case ErrorSelector:
		return "TPM_RC_SELECTOR"
	case ErrorInsufficient:
		return "TPM_RC_INSUFFICIENT"
	case ErrorSignature:
		return "TPM_RC_SIGNATURE"
	case ErrorKey:
		return "TPM_RC_KEY"
	case ErrorPolicyFail:
		return "TPM_RC_POLICY_FAIL"
	case ErrorIntegrity:
		return "TPM_RC_INTEGRITY"
	case ErrorTicket:
		return "TPM_RC_TICKET"
	case ErrorReservedBits:
		return "TPM_RC_RESERVED_BITS"
	case ErrorBadAuth:
		return "TPM_RC_BAD_AUTH"
	case ErrorExpired:
		return "TPM_RC_EXPIRED"
	case ErrorPolicyCC:
		return "TPM_RC_POLICY_CC"
	case ErrorBinding:
		return "TPM_RC_BINDING"
	case ErrorCurve:
		return "TPM_RC_CURVE"
	case ErrorECCPoint:
		return "TPM_RC_ECC_POINT"
	default:
		return fmt.Sprintf("0x%02x", uint16(e))
	}
}

func (e ErrorCode) Format(s fmt.State, f rune) {
	switch f {
	case 's', 'v':
		fmt.Fprintf(s, "%s", e.String())
	default:
		fmt.Fprintf(s, makeDefaultFormatter(s, f), uint16(e))
	}
}

func (a AlgorithmId) String() string {
	switch a {
	case AlgorithmError:
		return "TPM_ALG_ERROR"
	case AlgorithmRSA:
		return "TPM_ALG_RSA"
	case AlgorithmSHA1:
		return "TPM_ALG_SHA1"
	case AlgorithmHMAC:
		return "TPM_ALG_HMAC"
	case AlgorithmAES:
		return "TPM_ALG_AES"
	case AlgorithmMGF1:
		return "TPM_ALG_MGF1"
	case AlgorithmKeyedHash:
		return "TPM_ALG_KEYEDHASH"
	case AlgorithmXOR:
		return "TPM_ALG_XOR"
	case AlgorithmSHA256:
		return "TPM_ALG_SHA256"
	case AlgorithmSHA384:
		return "TPM_ALG_SHA384"
	case AlgorithmSHA512:
		return "TPM_ALG_SHA512"
	case AlgorithmNull:
		return "TPM_ALG_NULL"
	case AlgorithmSM3_256:
		return "TPM_ALG_SM3_256"
	case AlgorithmSM4:
		return "TPM_ALG_SM4"
	case AlgorithmRSASSA:
		return "TPM_ALG_RSASSA"
	case AlgorithmRSAES:
		return "TPM_ALG_RSAES"
	case AlgorithmRSAPSS:
		return "TPM_ALG_RSAPSS"
	case AlgorithmOAEP:
		return "TPM_ALG_OAEP"
	case AlgorithmECDSA:
		return "TPM_ALG_ECDSA"
	case AlgorithmECDH:
		return "TPM_ALG_ECDH"
	case AlgorithmECDAA:
		return "TPM_ALG_ECDAA"
	case AlgorithmSM2:
		return "TPM_ALG_SM2"
	case AlgorithmECSCHNORR:
		return "TPM_ALG_ECSCHNORR"
	case AlgorithmECMQV:
		return "TPM_ALG_ECMQV"
	case AlgorithmKDF1_SP800_56A:
		return "TPM_ALG_KDF1_SP800_56A"
	case AlgorithmKDF2:
		return "TPM_ALG_KDF2"
	case AlgorithmKDF1_SP800_108:
		return "TPM_ALG_KDF1_SP800_108"
	case AlgorithmECC:
		return "TPM_ALG_ECC"
	case AlgorithmSymCipher:
		return "TPM_ALG_SYMCIPHER"
	case AlgorithmCamellia:
		return "TPM_ALG_CAMELLIA"
	case AlgorithmSHA3_256:
		return "TPM_ALG_SHA3_256"
	case AlgorithmSHA3_384:
		return "TPM_ALG_SHA3_384"
	case AlgorithmSHA3_512:
		return "TPM_ALG_SHA3_512"
	case AlgorithmCTR:
		return "TPM_ALG_CTR"
	case AlgorithmOFB:
		return "TPM_ALG_OFB"
	case AlgorithmCBC:
		return "TPM_ALG_CBC"
	case AlgorithmCFB:
		return "TPM_ALG_CFB"
	case AlgorithmECB:
		return "TPM_ALG_ECB"
	default:
		return fmt.Sprintf("0x%04x", uint16(a))
	}
}

func (a AlgorithmId) Format(s fmt.State, f rune) {
	switch f {
	case 's', 'v':
		fmt.Fprintf(s, "%s", a.String())
	default:
		fmt.Fprintf(s, makeDefaultFormatter(s, f), uint16(a))
	}
}

func (h HashAlgorithmId) Format(s fmt.State, f rune) {
	AlgorithmId(h).Format(s, f)
}

func (t ObjectTypeId) Format(s fmt.State, f rune) {
	AlgorithmId(t).Format(s, f)
}

func (s SigSchemeId) Format(st fmt.State, f rune) {
	AlgorithmId(s).Format(st, f)
}

func (c ECCCurve) String() string {
	switch c {
	case ECCCurveNIST_P192:
		return "TPM_ECC_NIST_P192"
	case ECCCurveNIST_P224:
		return "TPM_ECC_NIST_P224"
	case ECCCurveNIST_P256:
		return "TPM_ECC_NIST_P256"
	case ECCCurveNIST_P384:
		return "TPM_ECC_NIST_P384"
	case ECCCurveNIST_P521:
		return "TPM_ECC_NIST_P521"
	case ECCCurveBN_P256:
		return "TPM_ECC_BN_P256"
	case ECCCurveBN_P638:
		return "TPM_ECC_BN_P638"
	case ECCCurveSM2_P256:
		return "TPM_ECC_SM2_P256"
	default:
		return fmt.Sprintf("0x%04x", uint16(c))
	}
}

func (c ECCCurve) Format(s fmt.State, f rune) {
	switch f {
	case 's', 'v':
		fmt.Fprintf(s, "%s", c.String())
	default:
		fmt.Fprintf(s, makeDefaultFormatter(s, f), uint16(c))
	}
}

var (
	errorCodeDescriptions = map[ErrorCode]string{
		ErrorInitialize:  "TPM not initialized by TPM2_Startup or already initialized",
		ErrorFailure:     "commands not being accepted because of a TPM failure",
		ErrorSequence:    "improper use of a sequence handle",
		ErrorDisabled:    "the command is disabled",
		ErrorAuthMissing: "command requires an authorization session for handle and it is not present",
		ErrorCommandSize: "command commandSize value is inconsistent with contents of the command " +
			"buffer; either the size is not the same as the octets loaded by the hardware " +
			"interface layer or the value is not large enough to hold a command header",
		ErrorCommandCode: "command code not supported",
		ErrorAuthsize: "the value of authorizationSize is out of range or the number of octets in the " +
			"Authorization Area is greater than required",
		ErrorAuthContext: "use of an authorization session with a context command or another command " +
			"that cannot have an authorization session",
		ErrorSensitive:  "the sensitive area did not unmarshal correctly after decryption",
		ErrorAsymmetric: "asymmetric algorithm not supported or not correct",
		ErrorAttributes: "inconsistent attributes",
		ErrorHash:       "hash algorithm not supported or not appropriate",
		ErrorValue:      "value is out of range or is not correct for the context",
		ErrorHierarchy:  "hierarchy is not enabled or is not correct for the use",
		ErrorKeySize:    "key size is not supported",
		ErrorMGF:        "mask generation function not supported",
		ErrorMode:       "mode of operation not supported",
		ErrorType:       "the type of the value is not appropriate for the use",
		ErrorHandle:     "the handle is not correct for the use",
		ErrorKDF:        "unsupported key derivation function or function not appropriate for use",
		ErrorRange:      "value was out of allowed range",
		ErrorAuthFail:   "the authorization HMAC check failed and DA counter incremented",
		ErrorNonce:      "invalid nonce size or nonce value mismatch",
		ErrorPP:         "authorization requires assertion of PP",
		ErrorScheme:     "unsupported or incompatible scheme",
		ErrorSize:       "structure is the wrong size",
		ErrorSymmetric:  "unsupported symmetric algorithm or key size, or not appropriate for instance",
		ErrorTag:        "incorrect structure tag",
		ErrorSelector:   "union selector is incorrect",
		ErrorInsufficient: "the TPM was unable to unmarshal a value because there were not enough " +
			"octets in the input buffer",
		ErrorSignature:    "the signature is not valid",
		ErrorKey:          "key fields are not compatible with the selected use",
		ErrorPolicyFail:   "a policy check failed",
		ErrorIntegrity:    "integrity check failed",
		ErrorTicket:       "invalid ticket",
		ErrorReservedBits: "reserved bits not set to zero as required",
		ErrorBadAuth:      "authorization failure without DA implications",
		ErrorExpired:      "the policy has expired",
		ErrorPolicyCC: "the commandCode in the policy is not the commandCode of the command or the " +
			"command code in a policy command references a command that is not implemented",
		ErrorBinding:  "public and sensitive portions of an object are not cryptographically bound",
		ErrorCurve:    "curve not supported",
		ErrorECCPoint: "point is not on the required curve"}
)
