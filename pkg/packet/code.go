package packet

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a RADIUS packet code as defined in RFC 2865, RFC 2866 and
// RFC 5176.
type Code uint8

const (
	CodeAccessRequest      Code = 1
	CodeAccessAccept       Code = 2
	CodeAccessReject       Code = 3
	CodeAccountingRequest  Code = 4
	CodeAccountingResponse Code = 5
	CodeAccessChallenge    Code = 11
	CodeStatusServer       Code = 12
	CodeStatusClient       Code = 13
	CodeDisconnectRequest  Code = 40
	CodeDisconnectACK      Code = 41
	CodeDisconnectNAK      Code = 42
	CodeCoARequest         Code = 43
	CodeCoAACK             Code = 44
	CodeCoANAK             Code = 45
)

// ErrUnknownCode is returned for lookups that match no defined code.
var ErrUnknownCode = errors.New("unknown packet code")

var codeNames = map[Code]string{
	CodeAccessRequest:      "Access-Request",
	CodeAccessAccept:       "Access-Accept",
	CodeAccessReject:       "Access-Reject",
	CodeAccountingRequest:  "Accounting-Request",
	CodeAccountingResponse: "Accounting-Response",
	CodeAccessChallenge:    "Access-Challenge",
	CodeStatusServer:       "Status-Server",
	CodeStatusClient:       "Status-Client",
	CodeDisconnectRequest:  "Disconnect-Request",
	CodeDisconnectACK:      "Disconnect-ACK",
	CodeDisconnectNAK:      "Disconnect-NAK",
	CodeCoARequest:         "CoA-Request",
	CodeCoAACK:             "CoA-ACK",
	CodeCoANAK:             "CoA-NAK",
}

var codesByName = func() map[string]Code {
	m := make(map[string]Code, len(codeNames))
	for code, name := range codeNames {
		m[normalizeCodeName(name)] = code
	}
	return m
}()

func normalizeCodeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// String returns the canonical name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(c))
}

// IsValid reports whether the code is part of the closed enumeration.
func (c Code) IsValid() bool {
	_, ok := codeNames[c]
	return ok
}

// IsRequest reports whether the code names a request packet.
func (c Code) IsRequest() bool {
	switch c {
	case CodeAccessRequest, CodeAccountingRequest, CodeStatusServer,
		CodeDisconnectRequest, CodeCoARequest:
		return true
	default:
		return false
	}
}

// IsResponse reports whether the code names a response packet.
func (c Code) IsResponse() bool {
	switch c {
	case CodeAccessAccept, CodeAccessReject, CodeAccessChallenge,
		CodeAccountingResponse, CodeStatusClient,
		CodeDisconnectACK, CodeDisconnectNAK, CodeCoAACK, CodeCoANAK:
		return true
	default:
		return false
	}
}

// ExpectedResponses lists the codes a well-behaved server may answer
// a request with.
func (c Code) ExpectedResponses() []Code {
	switch c {
	case CodeAccessRequest:
		return []Code{CodeAccessAccept, CodeAccessReject, CodeAccessChallenge}
	case CodeAccountingRequest:
		return []Code{CodeAccountingResponse}
	case CodeStatusServer:
		return []Code{CodeAccessAccept, CodeAccountingResponse}
	case CodeDisconnectRequest:
		return []Code{CodeDisconnectACK, CodeDisconnectNAK}
	case CodeCoARequest:
		return []Code{CodeCoAACK, CodeCoANAK}
	default:
		return nil
	}
}

// ParseCode resolves a canonical code name, case-insensitively and
// with hyphens and underscores interchangeable.
func ParseCode(name string) (Code, error) {
	if code, ok := codesByName[normalizeCodeName(name)]; ok {
		return code, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCode, name)
}

// LookupCode resolves a numeric value, a name or an existing Code to
// a member of the enumeration.
func LookupCode(ref interface{}) (Code, error) {
	switch v := ref.(type) {
	case Code:
		if !v.IsValid() {
			return 0, fmt.Errorf("%w: %d", ErrUnknownCode, uint8(v))
		}
		return v, nil
	case string:
		return ParseCode(v)
	case int:
		if v < 0 || v > 255 || !Code(v).IsValid() {
			return 0, fmt.Errorf("%w: %d", ErrUnknownCode, v)
		}
		return Code(v), nil
	case uint8:
		return LookupCode(int(v))
	case int64:
		return LookupCode(int(v))
	default:
		return 0, fmt.Errorf("%w: bad argument type %T", ErrUnknownCode, ref)
	}
}
