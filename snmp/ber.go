package snmp

import (
	"fmt"
	"net"
)

// BER encoding/decoding for the restricted ASN.1 subset SNMPv2c uses.
// Decoders work on a byte slice with an explicit offset so parse failures
// can report where in the datagram they occurred.

// encodeLength encodes a BER length in the shortest definite form.
func encodeLength(length int) []byte {
	if length < 128 {
		return []byte{byte(length)}
	}

	// Long form
	buf := make([]byte, 0, 5)
	temp := length
	for temp > 0 {
		buf = append([]byte{byte(temp & 0xff)}, buf...)
		temp >>= 8
	}
	return append([]byte{byte(0x80 | len(buf))}, buf...)
}

// decodeLength decodes a definite BER length starting at off. The
// indefinite form (0x80) and long forms over 4 octets are rejected.
func decodeLength(buf []byte, off int) (int, int, error) {
	if off >= len(buf) {
		return 0, off, wrapParseError(ErrBufferTooShort, off)
	}

	b := buf[off]
	off++
	if b < 0x80 {
		return int(b), off, nil
	}

	numBytes := int(b & 0x7f)
	if numBytes == 0 {
		return 0, off, wrapParseError(fmt.Errorf("indefinite length: %w", ErrInvalidLength), off-1)
	}
	if numBytes > 4 {
		return 0, off, wrapParseError(fmt.Errorf("length of %d octets: %w", numBytes, ErrInvalidLength), off-1)
	}
	if off+numBytes > len(buf) {
		return 0, off, wrapParseError(ErrBufferTooShort, off)
	}

	length := 0
	for _, lb := range buf[off : off+numBytes] {
		length = (length << 8) | int(lb)
	}

	return length, off + numBytes, nil
}

// encodeTLV encodes a Type-Length-Value structure.
func encodeTLV(berType BERType, value []byte) []byte {
	length := encodeLength(len(value))
	result := make([]byte, 1+len(length)+len(value))
	result[0] = byte(berType)
	copy(result[1:], length)
	copy(result[1+len(length):], value)
	return result
}

// decodeTLV decodes a Type-Length-Value structure starting at off. It
// returns the identifier octet, a slice view of the content octets, and
// the offset just past the value.
func decodeTLV(buf []byte, off int) (BERType, []byte, int, error) {
	if off >= len(buf) {
		return 0, nil, off, wrapParseError(ErrBufferTooShort, off)
	}

	berType := BERType(buf[off])
	if byte(berType)&0x1f == 0x1f {
		// High-tag-number form never occurs in SNMPv2c.
		return 0, nil, off, wrapParseError(fmt.Errorf("high-tag-number form: %w", ErrInvalidTag), off)
	}
	off++

	length, off, err := decodeLength(buf, off)
	if err != nil {
		return 0, nil, off, err
	}

	if off+length > len(buf) {
		return 0, nil, off, wrapParseError(ErrBufferTooShort, off)
	}

	return berType, buf[off : off+length], off + length, nil
}

// encodeInteger encodes a signed integer in two's complement using the
// minimum number of octets.
func encodeInteger(value int64) []byte {
	var buf []byte

	if value == 0 {
		buf = []byte{0}
	} else if value > 0 {
		temp := value
		for temp > 0 {
			buf = append([]byte{byte(temp & 0xff)}, buf...)
			temp >>= 8
		}
		// Leading zero keeps the sign bit clear.
		if buf[0]&0x80 != 0 {
			buf = append([]byte{0}, buf...)
		}
	} else {
		temp := value
		for temp < -1 || (temp == -1 && len(buf) == 0) {
			buf = append([]byte{byte(temp & 0xff)}, buf...)
			temp >>= 8
		}
		// Leading 0xff keeps the sign bit set.
		if buf[0]&0x80 == 0 {
			buf = append([]byte{0xff}, buf...)
		}
	}

	return buf
}

// decodeInteger decodes a BER two's-complement integer of up to 8 octets.
func decodeInteger(data []byte) (int64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if len(data) > 8 {
		return 0, fmt.Errorf("integer of %d octets: %w", len(data), ErrInvalidLength)
	}

	var value int64
	if data[0]&0x80 != 0 {
		value = -1
	}

	for _, b := range data {
		value = (value << 8) | int64(b)
	}

	return value, nil
}

// encodeUnsigned encodes an unsigned integer with a sign-preserving
// leading octet where required.
func encodeUnsigned(value uint64) []byte {
	if value == 0 {
		return []byte{0}
	}

	var buf []byte
	temp := value
	for temp > 0 {
		buf = append([]byte{byte(temp & 0xff)}, buf...)
		temp >>= 8
	}

	if buf[0]&0x80 != 0 {
		buf = append([]byte{0}, buf...)
	}

	return buf
}

// decodeUnsigned decodes an unsigned integer of up to 64 bits. A ninth
// octet is tolerated only as the zero pad a sign-preserving encoder emits.
func decodeUnsigned(data []byte) (uint64, error) {
	if len(data) > 9 || (len(data) == 9 && data[0] != 0) {
		return 0, fmt.Errorf("unsigned integer of %d octets: %w", len(data), ErrInvalidLength)
	}

	var value uint64
	for _, b := range data {
		value = (value << 8) | uint64(b)
	}
	return value, nil
}

// encodeOID encodes an OID per X.690 8.19: the first two subidentifiers
// collapse into 40*a+b, the rest are base-128 with continuation bits.
func encodeOID(oid OID) ([]byte, error) {
	if len(oid) == 0 {
		return []byte{}, nil
	}

	first := oid[0]
	if first > 2 {
		return nil, fmt.Errorf("first subidentifier %d: %w", first, ErrInvalidOID)
	}

	combined := first * 40
	rest := oid[1:]
	if len(oid) >= 2 {
		second := oid[1]
		if first < 2 && second >= 40 {
			return nil, fmt.Errorf("second subidentifier %d under arc %d: %w", second, first, ErrInvalidOID)
		}
		combined += second
		rest = oid[2:]
	}

	buf := encodeSubidentifier(combined)
	for _, sub := range rest {
		buf = append(buf, encodeSubidentifier(sub)...)
	}

	return buf, nil
}

// encodeSubidentifier encodes a single subidentifier in base 128, high
// bit set on all but the final octet.
func encodeSubidentifier(value int) []byte {
	if value < 128 {
		return []byte{byte(value)}
	}

	var buf []byte
	temp := value
	for temp > 0 {
		buf = append([]byte{byte(temp & 0x7f)}, buf...)
		temp >>= 7
	}

	for i := 0; i < len(buf)-1; i++ {
		buf[i] |= 0x80
	}

	return buf
}

// decodeOID decodes a BER-encoded OID payload. The first encoded
// subidentifier splits back into two: a = v/40, b = v%40 when v < 80,
// else a = 2, b = v-80.
func decodeOID(data []byte) (OID, error) {
	if len(data) == 0 {
		return OID{}, nil
	}

	var subs []int
	current := 0
	pending := false
	for _, b := range data {
		current = (current << 7) | int(b&0x7f)
		pending = true
		if b&0x80 == 0 {
			subs = append(subs, current)
			current = 0
			pending = false
		}
	}
	if pending {
		return nil, fmt.Errorf("truncated subidentifier: %w", ErrBufferTooShort)
	}

	first := subs[0]
	oid := make(OID, 0, len(subs)+1)
	if first < 80 {
		oid = append(oid, first/40, first%40)
	} else {
		oid = append(oid, 2, first-80)
	}
	oid = append(oid, subs[1:]...)

	return oid, nil
}

// decodeValue maps a tag and its content octets to a Go value. Tags
// outside the SMIv2 set fail with UnsupportedTypeError.
func decodeValue(valType BERType, data []byte) (interface{}, error) {
	switch valType {
	case TypeNull:
		return nil, nil

	case TypeBoolean:
		if len(data) != 1 {
			return nil, fmt.Errorf("boolean of %d octets: %w", len(data), ErrInvalidLength)
		}
		return data[0] != 0, nil

	case TypeInteger:
		v, err := decodeInteger(data)
		if err != nil {
			return nil, err
		}
		return v, nil

	case TypeOctetString:
		return append([]byte(nil), data...), nil

	case TypeObjectIdentifier:
		return decodeOID(data)

	case TypeIPAddress:
		if len(data) != 4 {
			return nil, fmt.Errorf("IpAddress of %d octets: %w", len(data), ErrInvalidLength)
		}
		return net.IP(append([]byte(nil), data...)), nil

	case TypeCounter32, TypeGauge32, TypeTimeTicks:
		v, err := decodeUnsigned(data)
		if err != nil {
			return nil, err
		}
		return uint32(v), nil

	case TypeCounter64:
		return decodeUnsigned(data)

	case TypeOpaque:
		return append([]byte(nil), data...), nil

	case TypeNoSuchObject, TypeNoSuchInstance, TypeEndOfMibView:
		return nil, nil

	default:
		return nil, &UnsupportedTypeError{Tag: byte(valType)}
	}
}

// encodeValue encodes a typed variable value as a complete TLV.
func encodeValue(v *Variable) ([]byte, error) {
	switch v.Type {
	case TypeNull, TypeNoSuchObject, TypeNoSuchInstance, TypeEndOfMibView:
		return encodeTLV(v.Type, nil), nil

	case TypeBoolean:
		b, ok := v.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("snmp: invalid boolean value: %v", v.Value)
		}
		payload := []byte{0x00}
		if b {
			payload[0] = 0xff
		}
		return encodeTLV(TypeBoolean, payload), nil

	case TypeInteger:
		val, ok := v.AsInt()
		if !ok {
			return nil, fmt.Errorf("snmp: invalid integer value: %v", v.Value)
		}
		return encodeTLV(TypeInteger, encodeInteger(val)), nil

	case TypeOctetString:
		var data []byte
		switch val := v.Value.(type) {
		case []byte:
			data = val
		case string:
			data = []byte(val)
		default:
			return nil, fmt.Errorf("snmp: invalid octet string value: %v", v.Value)
		}
		return encodeTLV(TypeOctetString, data), nil

	case TypeObjectIdentifier:
		oid, ok := v.Value.(OID)
		if !ok {
			return nil, fmt.Errorf("snmp: invalid OID value: %v", v.Value)
		}
		payload, err := encodeOID(oid)
		if err != nil {
			return nil, err
		}
		return encodeTLV(TypeObjectIdentifier, payload), nil

	case TypeIPAddress:
		var ip net.IP
		switch val := v.Value.(type) {
		case net.IP:
			ip = val
		case string:
			ip = net.ParseIP(val)
		case []byte:
			ip = net.IP(val)
		default:
			return nil, fmt.Errorf("snmp: invalid IP address value: %v", v.Value)
		}
		ip4 := ip.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("snmp: not an IPv4 address: %v", v.Value)
		}
		return encodeTLV(TypeIPAddress, ip4), nil

	case TypeCounter32, TypeGauge32, TypeTimeTicks:
		val, ok := v.AsUint()
		if !ok {
			return nil, fmt.Errorf("snmp: invalid unsigned integer value: %v", v.Value)
		}
		return encodeTLV(v.Type, encodeUnsigned(val)), nil

	case TypeCounter64:
		val, ok := v.AsUint()
		if !ok {
			return nil, fmt.Errorf("snmp: invalid counter64 value: %v", v.Value)
		}
		return encodeTLV(TypeCounter64, encodeUnsigned(val)), nil

	case TypeOpaque:
		data, ok := v.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("snmp: invalid opaque value: %v", v.Value)
		}
		return encodeTLV(TypeOpaque, data), nil

	default:
		return nil, &UnsupportedTypeError{Tag: byte(v.Type)}
	}
}
