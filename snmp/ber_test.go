package snmp

import (
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeOIDSysDescr(t *testing.T) {
	oid := MustParseOID(".1.3.6.1.2.1.1.1.0")

	payload, err := encodeOID(oid)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x01, 0x01, 0x00}, payload)

	tlv := encodeTLV(TypeObjectIdentifier, payload)
	assert.Equal(t, []byte{0x06, 0x08, 0x2B, 0x06, 0x01, 0x02, 0x01, 0x01, 0x01, 0x00}, tlv)

	decoded, err := decodeOID(payload)
	require.NoError(t, err)
	assert.Equal(t, OID{1, 3, 6, 1, 2, 1, 1, 1, 0}, decoded)
}

func TestOIDRoundTrip(t *testing.T) {
	tests := []OID{
		{1, 3, 6, 1, 2, 1},
		{0, 0},
		{0, 39},
		{1, 39},
		{2, 40},
		{2, 999},
		{2, 16383, 1},
		{1, 3, 6, 1, 4, 1, 2021, 10, 1, 3, 1},
		{1, 3, 6, 1, 2, 1, 31, 1, 1, 1, 6, 1000001},
		{},
	}

	for _, oid := range tests {
		t.Run(oid.String(), func(t *testing.T) {
			payload, err := encodeOID(oid)
			require.NoError(t, err)
			decoded, err := decodeOID(payload)
			require.NoError(t, err)
			assert.Equal(t, oid, decoded)
		})
	}
}

func TestOIDSingleSubidentifier(t *testing.T) {
	// A one-element OID collapses into the combined first octet; the
	// byte form is stable through a decode/encode cycle.
	payload, err := encodeOID(OID{1})
	require.NoError(t, err)
	assert.Equal(t, []byte{40}, payload)

	decoded, err := decodeOID(payload)
	require.NoError(t, err)
	reencoded, err := encodeOID(decoded)
	require.NoError(t, err)
	assert.Equal(t, payload, reencoded)
}

func TestEncodeOIDRejectsInvalidArcs(t *testing.T) {
	_, err := encodeOID(OID{3, 1})
	assert.ErrorIs(t, err, ErrInvalidOID)

	_, err = encodeOID(OID{1, 40})
	assert.ErrorIs(t, err, ErrInvalidOID)
}

func TestDecodeOIDTruncatedSubidentifier(t *testing.T) {
	// Continuation bit set on the final octet.
	_, err := decodeOID([]byte{0x2B, 0x86})
	assert.ErrorIs(t, err, ErrBufferTooShort)
}

func TestIntegerRoundTrip(t *testing.T) {
	tests := []struct {
		value int64
		bytes []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x00, 0x80}},
		{256, []byte{0x01, 0x00}},
		{-1, []byte{0xFF}},
		{-128, []byte{0x80}},
		{-129, []byte{0xFF, 0x7F}},
		{-256, []byte{0xFF, 0x00}},
		{math.MaxInt32, []byte{0x7F, 0xFF, 0xFF, 0xFF}},
		{math.MinInt32, []byte{0x80, 0x00, 0x00, 0x00}},
		{math.MaxInt64, []byte{0x7F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
		{math.MinInt64, []byte{0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
	}

	for _, tc := range tests {
		encoded := encodeInteger(tc.value)
		assert.Equal(t, tc.bytes, encoded, "encoding %d", tc.value)

		decoded, err := decodeInteger(encoded)
		require.NoError(t, err)
		assert.Equal(t, tc.value, decoded)
	}
}

func TestDecodeIntegerTooLong(t *testing.T) {
	_, err := decodeInteger(make([]byte, 9))
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestUnsignedRoundTrip(t *testing.T) {
	tests := []struct {
		value uint64
		bytes []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x00, 0x80}},
		{4294967295, []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF}},
		{math.MaxUint64, []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
	}

	for _, tc := range tests {
		encoded := encodeUnsigned(tc.value)
		assert.Equal(t, tc.bytes, encoded, "encoding %d", tc.value)

		decoded, err := decodeUnsigned(encoded)
		require.NoError(t, err)
		assert.Equal(t, tc.value, decoded)
	}
}

func TestEncodeLengthForms(t *testing.T) {
	assert.Equal(t, []byte{0x00}, encodeLength(0))
	assert.Equal(t, []byte{0x7F}, encodeLength(127))
	assert.Equal(t, []byte{0x81, 0x80}, encodeLength(128))
	assert.Equal(t, []byte{0x81, 0xFF}, encodeLength(255))
	assert.Equal(t, []byte{0x82, 0x01, 0x00}, encodeLength(256))
	assert.Equal(t, []byte{0x82, 0xFF, 0xFF}, encodeLength(65535))
}

func TestDecodeLength(t *testing.T) {
	length, next, err := decodeLength([]byte{0x26}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0x26, length)
	assert.Equal(t, 1, next)

	length, next, err = decodeLength([]byte{0x82, 0x01, 0x00}, 0)
	require.NoError(t, err)
	assert.Equal(t, 256, length)
	assert.Equal(t, 3, next)
}

func TestDecodeLengthRejectsIndefinite(t *testing.T) {
	_, _, err := decodeLength([]byte{0x80, 0x01, 0x02, 0x00, 0x00}, 0)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestDecodeLengthRejectsOversized(t *testing.T) {
	_, _, err := decodeLength([]byte{0x85, 0x01, 0x01, 0x01, 0x01, 0x01}, 0)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestDecodeTLV(t *testing.T) {
	buf := []byte{0x04, 0x03, 'a', 'b', 'c', 0x02, 0x01, 0x05}

	typ, value, next, err := decodeTLV(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, TypeOctetString, typ)
	assert.Equal(t, []byte("abc"), value)
	assert.Equal(t, 5, next)

	typ, value, next, err = decodeTLV(buf, next)
	require.NoError(t, err)
	assert.Equal(t, TypeInteger, typ)
	assert.Equal(t, []byte{0x05}, value)
	assert.Equal(t, len(buf), next)
}

func TestDecodeTLVNonMinimalLength(t *testing.T) {
	// Agents in the wild pad lengths; the decoder accepts them.
	typ, value, _, err := decodeTLV([]byte{0x04, 0x82, 0x00, 0x02, 'h', 'i'}, 0)
	require.NoError(t, err)
	assert.Equal(t, TypeOctetString, typ)
	assert.Equal(t, []byte("hi"), value)
}

func TestDecodeTLVRejectsHighTagNumber(t *testing.T) {
	_, _, _, err := decodeTLV([]byte{0x1F, 0x81, 0x00, 0x01, 0x00}, 0)
	assert.ErrorIs(t, err, ErrInvalidTag)
}

func TestDecodeTLVBufferOverrun(t *testing.T) {
	_, _, _, err := decodeTLV([]byte{0x04, 0x05, 'a', 'b'}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBufferTooShort)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.GreaterOrEqual(t, pe.Offset, 0)
}

func TestDecodeValueUnsupportedTag(t *testing.T) {
	_, err := decodeValue(BERType(0x47), []byte{0x01})
	require.Error(t, err)

	var ute *UnsupportedTypeError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, byte(0x47), ute.Tag)
}

func TestDecodeValueBoolean(t *testing.T) {
	v, err := decodeValue(TypeBoolean, []byte{0xFF})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = decodeValue(TypeBoolean, []byte{0x00})
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestDecodeValueIPAddress(t *testing.T) {
	v, err := decodeValue(TypeIPAddress, []byte{192, 168, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", v.(net.IP).String())

	_, err = decodeValue(TypeIPAddress, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestTagDecomposition(t *testing.T) {
	assert.Equal(t, ClassUniversal, TypeInteger.Class())
	assert.False(t, TypeInteger.IsConstructed())
	assert.Equal(t, 2, TypeInteger.Number())

	assert.Equal(t, ClassApplication, TypeCounter64.Class())
	assert.Equal(t, 6, TypeCounter64.Number())

	assert.Equal(t, ClassContext, TypeGetRequest.Class())
	assert.True(t, TypeGetRequest.IsConstructed())
	assert.Equal(t, 0, TypeGetRequest.Number())

	assert.Equal(t, ClassContext, TypeNoSuchObject.Class())
	assert.False(t, TypeNoSuchObject.IsConstructed())

	assert.True(t, TypeSequence.IsConstructed())
}
