package snmp

import (
	"bytes"
	"errors"
	"fmt"
)

// SNMPVersion represents the SNMP protocol version on the wire.
type SNMPVersion int

// Version2c is the only version this library speaks. Its wire value is 1
// per RFC 1901.
const Version2c SNMPVersion = 1

// String returns the string representation of the SNMP version.
func (v SNMPVersion) String() string {
	if v == Version2c {
		return "SNMPv2c"
	}
	return fmt.Sprintf("version(%d)", int(v))
}

// PDU represents an SNMP Protocol Data Unit.
type PDU struct {
	Type        PDUType
	RequestID   int32
	ErrorStatus ErrorStatus
	ErrorIndex  int
	Variables   []Variable

	// GetBulk reuses the error-status and error-index slots.
	NonRepeaters   int
	MaxRepetitions int
}

// Encode encodes the PDU to bytes.
func (p *PDU) Encode() ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(p.RequestID))))

	if p.Type == PDUGetBulkRequest {
		buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(p.NonRepeaters))))
		buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(p.MaxRepetitions))))
	} else {
		buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(p.ErrorStatus))))
		buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(p.ErrorIndex))))
	}

	varbinds, err := encodeVarbindList(p.Variables)
	if err != nil {
		return nil, err
	}
	buf.Write(varbinds)

	return encodeTLV(BERType(p.Type), buf.Bytes()), nil
}

// decodePDU decodes a PDU starting at off, returning the offset just
// past it.
func decodePDU(data []byte, off int) (*PDU, int, error) {
	pduType, content, next, err := decodeTLV(data, off)
	if err != nil {
		return nil, off, err
	}
	if !validPDUType(pduType) {
		return nil, off, newParseError(fmt.Sprintf("unexpected PDU type %s", pduType), off)
	}

	pdu := &PDU{Type: PDUType(pduType)}
	pos := next - len(content)

	requestID, pos, err := decodeIntegerField(data, pos)
	if err != nil {
		return nil, pos, err
	}
	pdu.RequestID = int32(requestID)

	second, pos, err := decodeIntegerField(data, pos)
	if err != nil {
		return nil, pos, err
	}
	third, pos, err := decodeIntegerField(data, pos)
	if err != nil {
		return nil, pos, err
	}

	if pdu.Type == PDUGetBulkRequest {
		pdu.NonRepeaters = int(second)
		pdu.MaxRepetitions = int(third)
	} else {
		pdu.ErrorStatus = ErrorStatus(second)
		pdu.ErrorIndex = int(third)
	}

	pdu.Variables, pos, err = decodeVarbindList(data, pos)
	if err != nil {
		return nil, pos, err
	}

	return pdu, pos, nil
}

// decodeIntegerField decodes one INTEGER TLV at off.
func decodeIntegerField(data []byte, off int) (int64, int, error) {
	t, content, next, err := decodeTLV(data, off)
	if err != nil {
		return 0, off, err
	}
	if t != TypeInteger {
		return 0, off, newParseError(fmt.Sprintf("expected INTEGER, got %s", t), off)
	}
	v, err := decodeInteger(content)
	if err != nil {
		return 0, off, wrapParseError(err, off)
	}
	return v, next, nil
}

// decodeVarbindList decodes a SEQUENCE OF varbind starting at off.
func decodeVarbindList(data []byte, off int) ([]Variable, int, error) {
	seqType, content, next, err := decodeTLV(data, off)
	if err != nil {
		return nil, off, err
	}
	if seqType != TypeSequence {
		return nil, off, newParseError(fmt.Sprintf("expected varbind list SEQUENCE, got %s", seqType), off)
	}

	var variables []Variable
	pos := next - len(content)
	for pos < next {
		var v Variable
		v, pos, err = decodeVarbind(data, pos)
		if err != nil {
			return nil, pos, err
		}
		variables = append(variables, v)
	}

	return variables, next, nil
}

// decodeVarbind decodes a single SEQUENCE { OID, value } at off.
func decodeVarbind(data []byte, off int) (Variable, int, error) {
	vbType, content, next, err := decodeTLV(data, off)
	if err != nil {
		return Variable{}, off, err
	}
	if vbType != TypeSequence {
		return Variable{}, off, newParseError(fmt.Sprintf("expected varbind SEQUENCE, got %s", vbType), off)
	}

	oidOff := next - len(content)
	oidType, oidData, pos, err := decodeTLV(data, oidOff)
	if err != nil {
		return Variable{}, oidOff, err
	}
	if oidType != TypeObjectIdentifier {
		return Variable{}, oidOff, newParseError(fmt.Sprintf("expected OBJECT IDENTIFIER, got %s", oidType), oidOff)
	}
	oid, err := decodeOID(oidData)
	if err != nil {
		return Variable{}, oidOff, wrapParseError(err, oidOff)
	}

	valOff := pos
	valType, valData, pos, err := decodeTLV(data, pos)
	if err != nil {
		return Variable{}, pos, err
	}

	value, err := decodeValue(valType, valData)
	if err != nil {
		// Unsupported tags surface as-is so callers can tell them
		// apart from framing damage.
		var ute *UnsupportedTypeError
		if errors.As(err, &ute) {
			return Variable{}, valOff, err
		}
		return Variable{}, valOff, wrapParseError(err, valOff)
	}

	return Variable{OID: oid, Type: valType, Value: value}, next, nil
}

// encodeVarbind encodes a Variable as SEQUENCE { OID, value }.
func encodeVarbind(v *Variable) ([]byte, error) {
	var buf bytes.Buffer

	oidBytes, err := encodeOID(v.OID)
	if err != nil {
		return nil, err
	}
	buf.Write(encodeTLV(TypeObjectIdentifier, oidBytes))

	valBytes, err := encodeValue(v)
	if err != nil {
		return nil, err
	}
	buf.Write(valBytes)

	return encodeTLV(TypeSequence, buf.Bytes()), nil
}

// encodeVarbindList encodes a SEQUENCE OF varbind.
func encodeVarbindList(variables []Variable) ([]byte, error) {
	var buf bytes.Buffer

	for i := range variables {
		vb, err := encodeVarbind(&variables[i])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}

	return encodeTLV(TypeSequence, buf.Bytes()), nil
}

// Message represents a complete SNMPv2c message.
type Message struct {
	Version   SNMPVersion
	Community string
	PDU       *PDU
}

// Encode encodes the SNMP message to bytes.
func (m *Message) Encode() ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(m.Version))))
	buf.Write(encodeTLV(TypeOctetString, []byte(m.Community)))

	pduBytes, err := m.PDU.Encode()
	if err != nil {
		return nil, err
	}
	buf.Write(pduBytes)

	return encodeTLV(TypeSequence, buf.Bytes()), nil
}

// DecodeMessage decodes an SNMPv2c message from a datagram.
func DecodeMessage(data []byte) (*Message, error) {
	seqType, content, next, err := decodeTLV(data, 0)
	if err != nil {
		return nil, err
	}
	if seqType != TypeSequence {
		return nil, newParseError(fmt.Sprintf("expected message SEQUENCE, got %s", seqType), 0)
	}

	pos := next - len(content)
	version, pos, err := decodeIntegerField(data, pos)
	if err != nil {
		return nil, err
	}
	if SNMPVersion(version) != Version2c {
		return nil, fmt.Errorf("version %d: %w", version, ErrUnsupportedVersion)
	}

	commOff := pos
	commType, commData, pos, err := decodeTLV(data, pos)
	if err != nil {
		return nil, err
	}
	if commType != TypeOctetString {
		return nil, newParseError(fmt.Sprintf("expected community OCTET STRING, got %s", commType), commOff)
	}

	pdu, _, err := decodePDU(data, pos)
	if err != nil {
		return nil, err
	}

	return &Message{
		Version:   SNMPVersion(version),
		Community: string(commData),
		PDU:       pdu,
	}, nil
}

// decodeRequestID parses an inbound datagram only far enough to extract
// the PDU request-id, so the receive loop can find the waiter before
// paying for a full decode.
func decodeRequestID(data []byte) (int32, bool) {
	seqType, content, next, err := decodeTLV(data, 0)
	if err != nil || seqType != TypeSequence {
		return 0, false
	}
	pos := next - len(content)

	// version INTEGER
	if _, pos, err = decodeIntegerField(data, pos); err != nil {
		return 0, false
	}
	// community OCTET STRING
	t, _, pos, err := decodeTLV(data, pos)
	if err != nil || t != TypeOctetString {
		return 0, false
	}
	// PDU header
	pduType, pduContent, pduNext, err := decodeTLV(data, pos)
	if err != nil || !validPDUType(pduType) {
		return 0, false
	}
	id, _, err := decodeIntegerField(data, pduNext-len(pduContent))
	if err != nil {
		return 0, false
	}
	return int32(id), true
}

// NewGetRequest creates a GetRequest PDU with NULL-valued varbinds.
func NewGetRequest(requestID int32, oids ...OID) *PDU {
	return &PDU{
		Type:      PDUGetRequest,
		RequestID: requestID,
		Variables: nullVariables(oids),
	}
}

// NewGetNextRequest creates a GetNextRequest PDU.
func NewGetNextRequest(requestID int32, oids ...OID) *PDU {
	return &PDU{
		Type:      PDUGetNextRequest,
		RequestID: requestID,
		Variables: nullVariables(oids),
	}
}

// NewGetBulkRequest creates a GetBulkRequest PDU.
func NewGetBulkRequest(requestID int32, nonRepeaters, maxRepetitions int, oids ...OID) *PDU {
	return &PDU{
		Type:           PDUGetBulkRequest,
		RequestID:      requestID,
		NonRepeaters:   nonRepeaters,
		MaxRepetitions: maxRepetitions,
		Variables:      nullVariables(oids),
	}
}

// NewSetRequest creates a SetRequest PDU with typed values.
func NewSetRequest(requestID int32, variables ...Variable) *PDU {
	return &PDU{
		Type:      PDUSetRequest,
		RequestID: requestID,
		Variables: variables,
	}
}

// NewTrapV2 creates an SNMPv2-Trap PDU. sysUpTime and snmpTrapOID are
// prepended as the first two varbinds per RFC 1905.
func NewTrapV2(requestID int32, sysUpTime uint32, trapOID OID, variables ...Variable) *PDU {
	allVars := make([]Variable, 0, len(variables)+2)
	allVars = append(allVars, Variable{
		OID:   OIDSysUpTime,
		Type:  TypeTimeTicks,
		Value: sysUpTime,
	})
	allVars = append(allVars, Variable{
		OID:   OIDSnmpTrapOID,
		Type:  TypeObjectIdentifier,
		Value: trapOID,
	})
	allVars = append(allVars, variables...)

	return &PDU{
		Type:      PDUTrapV2,
		RequestID: requestID,
		Variables: allVars,
	}
}

func nullVariables(oids []OID) []Variable {
	variables := make([]Variable, len(oids))
	for i, oid := range oids {
		variables[i] = Variable{OID: oid, Type: TypeNull}
	}
	return variables
}
