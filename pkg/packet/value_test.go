package packet

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-macharia/isc-radius/pkg/dictionary"
)

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name string
		typ  dictionary.ValueType
		data []byte
		want Value
	}{
		{"string", dictionary.TypeString, []byte("alice"), StringValue("alice")},
		{"octets", dictionary.TypeOctets, []byte{1, 2, 3}, OctetsValue{1, 2, 3}},
		{"byte", dictionary.TypeByte, []byte{0x2A}, ByteValue(42)},
		{"short", dictionary.TypeShort, []byte{0x01, 0x00}, ShortValue(256)},
		{"integer", dictionary.TypeInteger, []byte{0, 0, 0, 1}, IntegerValue(1)},
		{"ipaddr", dictionary.TypeIPAddr, []byte{10, 0, 0, 1}, IPAddrValue{10, 0, 0, 1}},
		{"date", dictionary.TypeDate, []byte{0x60, 0, 0, 0}, DateValue(0x60000000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := decodeValue(tt.typ, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.data, v.Bytes())
		})
	}
}

func TestDecodeValueLengthBounds(t *testing.T) {
	tests := []struct {
		name string
		typ  dictionary.ValueType
		data []byte
	}{
		{"empty string", dictionary.TypeString, nil},
		{"long string", dictionary.TypeString, make([]byte, 254)},
		{"empty octets", dictionary.TypeOctets, nil},
		{"short integer", dictionary.TypeInteger, []byte{0, 0, 1}},
		{"long integer", dictionary.TypeInteger, []byte{0, 0, 0, 0, 1}},
		{"short ipaddr", dictionary.TypeIPAddr, []byte{10, 0, 0}},
		{"wide byte", dictionary.TypeByte, []byte{1, 2}},
		{"narrow short", dictionary.TypeShort, []byte{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeValue(tt.typ, tt.data)
			assert.ErrorIs(t, err, ErrValueLength)
		})
	}
}

func TestDecodeValueCopiesOctets(t *testing.T) {
	data := []byte{1, 2, 3}
	v, err := decodeValue(dictionary.TypeOctets, data)
	require.NoError(t, err)

	data[0] = 0xFF
	assert.Equal(t, []byte{1, 2, 3}, v.Bytes())
}

func TestNewValueNumericRanges(t *testing.T) {
	v, err := newValue(dictionary.TypeByte, 255)
	require.NoError(t, err)
	assert.Equal(t, ByteValue(255), v)

	_, err = newValue(dictionary.TypeByte, 256)
	assert.ErrorIs(t, err, ErrValueRange)

	_, err = newValue(dictionary.TypeShort, 0x10000)
	assert.ErrorIs(t, err, ErrValueRange)

	_, err = newValue(dictionary.TypeInteger, uint64(1)<<32)
	assert.ErrorIs(t, err, ErrValueRange)

	_, err = newValue(dictionary.TypeInteger, -1)
	assert.ErrorIs(t, err, ErrBadValueType)
}

func TestNewValueIPAddr(t *testing.T) {
	v, err := newValue(dictionary.TypeIPAddr, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, IPAddrValue{10, 0, 0, 1}, v)
	assert.Equal(t, "10.0.0.1", v.String())

	v, err = newValue(dictionary.TypeIPAddr, net.IPv4(192, 168, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, IPAddrValue{192, 168, 1, 1}, v)

	bad := []string{"10.0.0", "10.0.0.0.1", "10.0.0.256", "10..0.1", "ten.0.0.1", ""}
	for _, s := range bad {
		_, err := newValue(dictionary.TypeIPAddr, s)
		assert.ErrorIs(t, err, ErrBadValueType, "address %q", s)
	}
}

func TestNewValueDate(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v, err := newValue(dictionary.TypeDate, now)
	require.NoError(t, err)
	assert.Equal(t, DateValue(1700000000), v)
	assert.Equal(t, now.Unix(), v.(DateValue).Time().Unix())

	v, err = newValue(dictionary.TypeDate, 1700000000)
	require.NoError(t, err)
	assert.Equal(t, DateValue(1700000000), v)
}

func TestNewValueStringAndOctets(t *testing.T) {
	v, err := newValue(dictionary.TypeString, "hello")
	require.NoError(t, err)
	assert.Equal(t, StringValue("hello"), v)

	v, err = newValue(dictionary.TypeOctets, []byte{9, 8})
	require.NoError(t, err)
	assert.Equal(t, OctetsValue{9, 8}, v)

	v, err = newValue(dictionary.TypeOctets, "raw")
	require.NoError(t, err)
	assert.Equal(t, OctetsValue("raw"), v)

	_, err = newValue(dictionary.TypeString, 42)
	assert.ErrorIs(t, err, ErrBadValueType)

	_, err = newValue(dictionary.TypeString, "")
	assert.ErrorIs(t, err, ErrValueLength)
}
