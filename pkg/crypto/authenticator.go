package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"fmt"
)

// AuthenticatorLength is the size of the RADIUS authenticator field.
const AuthenticatorLength = 16

// Authenticator is the 16-byte field carried in every RADIUS header.
type Authenticator [AuthenticatorLength]byte

// NewRequestAuthenticator draws a random authenticator for an
// outbound request from the system CSPRNG.
func NewRequestAuthenticator() (Authenticator, error) {
	var auth Authenticator
	if _, err := rand.Read(auth[:]); err != nil {
		return auth, fmt.Errorf("generate authenticator: %w", err)
	}
	return auth, nil
}

// ResponseAuthenticator derives the RFC 2865 response authenticator
// from a fully encoded packet whose authenticator field still holds
// the request authenticator: MD5(Code+ID+Length+RequestAuth+Attributes+Secret).
func ResponseAuthenticator(encoded, secret []byte) Authenticator {
	hash := md5.New()
	hash.Write(encoded)
	hash.Write(secret)

	var auth Authenticator
	copy(auth[:], hash.Sum(nil))
	return auth
}

// AccountingRequestAuthenticator derives the RFC 2866 request
// authenticator: MD5 over the packet with sixteen zero octets in the
// authenticator field, then the secret.
func AccountingRequestAuthenticator(encoded, secret []byte) Authenticator {
	hash := md5.New()
	hash.Write(encoded[:4])
	hash.Write(make([]byte, AuthenticatorLength))
	hash.Write(encoded[4+AuthenticatorLength:])
	hash.Write(secret)

	var auth Authenticator
	copy(auth[:], hash.Sum(nil))
	return auth
}

// VerifyResponse checks a received response datagram against the
// authenticator of the request it answers.
func VerifyResponse(response []byte, requestAuth Authenticator, secret []byte) bool {
	if len(response) < 4+AuthenticatorLength {
		return false
	}

	hash := md5.New()
	hash.Write(response[:4])
	hash.Write(requestAuth[:])
	hash.Write(response[4+AuthenticatorLength:])
	hash.Write(secret)

	return hmac.Equal(hash.Sum(nil), response[4:4+AuthenticatorLength])
}

// Equal compares two authenticators in constant time.
func (a Authenticator) Equal(other Authenticator) bool {
	return hmac.Equal(a[:], other[:])
}

// IsZero reports whether every byte of the authenticator is zero.
func (a Authenticator) IsZero() bool {
	return a.Equal(Authenticator{})
}

func (a Authenticator) String() string {
	return fmt.Sprintf("%x", a[:])
}
