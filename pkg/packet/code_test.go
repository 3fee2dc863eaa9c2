package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeIsRequest(t *testing.T) {
	tests := []struct {
		code     Code
		expected bool
	}{
		{CodeAccessRequest, true},
		{CodeAccountingRequest, true},
		{CodeStatusServer, true},
		{CodeDisconnectRequest, true},
		{CodeCoARequest, true},
		{CodeAccessAccept, false},
		{CodeAccessReject, false},
		{CodeAccessChallenge, false},
		{CodeAccountingResponse, false},
		{CodeStatusClient, false},
		{CodeDisconnectACK, false},
		{CodeDisconnectNAK, false},
		{CodeCoAACK, false},
		{CodeCoANAK, false},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code.IsRequest())
			assert.Equal(t, !tt.expected, tt.code.IsResponse())
		})
	}
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "Access-Request", CodeAccessRequest.String())
	assert.Equal(t, "CoA-NAK", CodeCoANAK.String())
	assert.Equal(t, "Unknown(99)", Code(99).String())
}

func TestCodeIsValid(t *testing.T) {
	assert.True(t, CodeAccessRequest.IsValid())
	assert.True(t, CodeCoANAK.IsValid())
	assert.False(t, Code(0).IsValid())
	assert.False(t, Code(6).IsValid())
	assert.False(t, Code(255).IsValid())
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		name     string
		expected Code
	}{
		{"Access-Request", CodeAccessRequest},
		{"access-request", CodeAccessRequest},
		{"ACCESS_REQUEST", CodeAccessRequest},
		{"Accounting-Response", CodeAccountingResponse},
		{"disconnect-ack", CodeDisconnectACK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := ParseCode(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, code)
		})
	}

	_, err := ParseCode("Not-A-Code")
	assert.ErrorIs(t, err, ErrUnknownCode)
}

func TestLookupCode(t *testing.T) {
	code, err := LookupCode(1)
	require.NoError(t, err)
	assert.Equal(t, CodeAccessRequest, code)

	code, err = LookupCode("Access-Accept")
	require.NoError(t, err)
	assert.Equal(t, CodeAccessAccept, code)

	code, err = LookupCode(CodeCoARequest)
	require.NoError(t, err)
	assert.Equal(t, CodeCoARequest, code)

	_, err = LookupCode(6)
	assert.ErrorIs(t, err, ErrUnknownCode)

	_, err = LookupCode(Code(99))
	assert.ErrorIs(t, err, ErrUnknownCode)

	_, err = LookupCode(3.5)
	assert.ErrorIs(t, err, ErrUnknownCode)
}

func TestExpectedResponses(t *testing.T) {
	assert.Equal(t,
		[]Code{CodeAccessAccept, CodeAccessReject, CodeAccessChallenge},
		CodeAccessRequest.ExpectedResponses())
	assert.Equal(t,
		[]Code{CodeAccountingResponse},
		CodeAccountingRequest.ExpectedResponses())
	assert.Nil(t, CodeAccessAccept.ExpectedResponses())
}
