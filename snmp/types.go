// Copyright 2025 The asnmp Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package snmp

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ASN.1 BER identifier octets used in SNMPv2c.
type BERType byte

const (
	// Universal primitive types
	TypeBoolean          BERType = 0x01
	TypeInteger          BERType = 0x02
	TypeOctetString      BERType = 0x04
	TypeNull             BERType = 0x05
	TypeObjectIdentifier BERType = 0x06

	// Application types (SMIv2)
	TypeIPAddress BERType = 0x40
	TypeCounter32 BERType = 0x41
	TypeGauge32   BERType = 0x42
	TypeTimeTicks BERType = 0x43
	TypeOpaque    BERType = 0x44
	TypeCounter64 BERType = 0x46

	// Constructed sequence type
	TypeSequence BERType = 0x30

	// Context-specific constructed types (PDU types)
	TypeGetRequest     BERType = 0xA0
	TypeGetNextRequest BERType = 0xA1
	TypeGetResponse    BERType = 0xA2
	TypeSetRequest     BERType = 0xA3
	TypeGetBulkRequest BERType = 0xA5
	TypeTrapV2         BERType = 0xA7

	// Context-specific primitive exception markers (SNMPv2c)
	TypeNoSuchObject   BERType = 0x80
	TypeNoSuchInstance BERType = 0x81
	TypeEndOfMibView   BERType = 0x82
)

// TagClass is the class field of a BER identifier octet.
type TagClass byte

const (
	ClassUniversal   TagClass = 0x00
	ClassApplication TagClass = 0x40
	ClassContext     TagClass = 0x80
	ClassPrivate     TagClass = 0xC0
)

// String returns the string representation of the tag class.
func (c TagClass) String() string {
	switch c {
	case ClassUniversal:
		return "UNIVERSAL"
	case ClassApplication:
		return "APPLICATION"
	case ClassContext:
		return "CONTEXT"
	case ClassPrivate:
		return "PRIVATE"
	default:
		return fmt.Sprintf("Class(0x%02X)", byte(c))
	}
}

// Class returns the tag class of the identifier octet.
func (t BERType) Class() TagClass {
	return TagClass(byte(t) & 0xC0)
}

// IsConstructed reports whether the constructed flag is set.
func (t BERType) IsConstructed() bool {
	return byte(t)&0x20 != 0
}

// Number returns the tag number within the class.
func (t BERType) Number() int {
	return int(byte(t) & 0x1F)
}

// String returns the string representation of the BER type.
func (t BERType) String() string {
	switch t {
	case TypeBoolean:
		return "BOOLEAN"
	case TypeInteger:
		return "INTEGER"
	case TypeOctetString:
		return "OCTET STRING"
	case TypeNull:
		return "NULL"
	case TypeObjectIdentifier:
		return "OBJECT IDENTIFIER"
	case TypeIPAddress:
		return "IpAddress"
	case TypeCounter32:
		return "Counter32"
	case TypeGauge32:
		return "Gauge32"
	case TypeTimeTicks:
		return "TimeTicks"
	case TypeOpaque:
		return "Opaque"
	case TypeCounter64:
		return "Counter64"
	case TypeSequence:
		return "SEQUENCE"
	case TypeGetRequest:
		return "GetRequest-PDU"
	case TypeGetNextRequest:
		return "GetNextRequest-PDU"
	case TypeGetResponse:
		return "GetResponse-PDU"
	case TypeSetRequest:
		return "SetRequest-PDU"
	case TypeGetBulkRequest:
		return "GetBulkRequest-PDU"
	case TypeTrapV2:
		return "SNMPv2-Trap-PDU"
	case TypeNoSuchObject:
		return "noSuchObject"
	case TypeNoSuchInstance:
		return "noSuchInstance"
	case TypeEndOfMibView:
		return "endOfMibView"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", byte(t))
	}
}

// IsException reports whether the type is one of the SNMPv2c exception
// markers an agent returns in place of a value.
func (t BERType) IsException() bool {
	return t == TypeNoSuchObject || t == TypeNoSuchInstance || t == TypeEndOfMibView
}

// PDUType represents SNMP PDU types.
type PDUType byte

const (
	PDUGetRequest     PDUType = 0xA0
	PDUGetNextRequest PDUType = 0xA1
	PDUGetResponse    PDUType = 0xA2
	PDUSetRequest     PDUType = 0xA3
	PDUGetBulkRequest PDUType = 0xA5
	PDUTrapV2         PDUType = 0xA7
)

// String returns the string representation of the PDU type.
func (p PDUType) String() string {
	return BERType(p).String()
}

func validPDUType(t BERType) bool {
	switch PDUType(t) {
	case PDUGetRequest, PDUGetNextRequest, PDUGetResponse, PDUSetRequest,
		PDUGetBulkRequest, PDUTrapV2:
		return true
	}
	return false
}

// ErrorStatus represents SNMP error status codes.
type ErrorStatus int

const (
	NoError             ErrorStatus = 0
	TooBig              ErrorStatus = 1
	NoSuchName          ErrorStatus = 2
	BadValue            ErrorStatus = 3
	ReadOnly            ErrorStatus = 4
	GenErr              ErrorStatus = 5
	NoAccess            ErrorStatus = 6
	WrongType           ErrorStatus = 7
	WrongLength         ErrorStatus = 8
	WrongEncoding       ErrorStatus = 9
	WrongValue          ErrorStatus = 10
	NoCreation          ErrorStatus = 11
	InconsistentValue   ErrorStatus = 12
	ResourceUnavailable ErrorStatus = 13
	CommitFailed        ErrorStatus = 14
	UndoFailed          ErrorStatus = 15
	AuthorizationError  ErrorStatus = 16
	NotWritable         ErrorStatus = 17
	InconsistentName    ErrorStatus = 18
)

// String returns the string representation of the error status.
func (e ErrorStatus) String() string {
	switch e {
	case NoError:
		return "noError"
	case TooBig:
		return "tooBig"
	case NoSuchName:
		return "noSuchName"
	case BadValue:
		return "badValue"
	case ReadOnly:
		return "readOnly"
	case GenErr:
		return "genErr"
	case NoAccess:
		return "noAccess"
	case WrongType:
		return "wrongType"
	case WrongLength:
		return "wrongLength"
	case WrongEncoding:
		return "wrongEncoding"
	case WrongValue:
		return "wrongValue"
	case NoCreation:
		return "noCreation"
	case InconsistentValue:
		return "inconsistentValue"
	case ResourceUnavailable:
		return "resourceUnavailable"
	case CommitFailed:
		return "commitFailed"
	case UndoFailed:
		return "undoFailed"
	case AuthorizationError:
		return "authorizationError"
	case NotWritable:
		return "notWritable"
	case InconsistentName:
		return "inconsistentName"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// OID represents an SNMP Object Identifier.
type OID []int

// String returns the dotted-decimal string representation.
func (o OID) String() string {
	if len(o) == 0 {
		return ""
	}
	parts := make([]string, len(o))
	for i, n := range o {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// ParseOID parses a dotted-decimal OID string. A single leading dot is
// accepted and normalized away. Symbolic forms such as "iso.3.6.1" are
// rejected.
func ParseOID(s string) (OID, error) {
	if s == "" {
		return nil, ErrInvalidOID
	}

	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return nil, ErrInvalidOID
	}

	parts := strings.Split(s, ".")
	oid := make(OID, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", p, ErrInvalidOID)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative component %d: %w", n, ErrInvalidOID)
		}
		oid[i] = n
	}

	return oid, nil
}

// MustParseOID parses an OID string and panics on error.
func MustParseOID(s string) OID {
	oid, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return oid
}

// Equal checks if two OIDs are equal.
func (o OID) Equal(other OID) bool {
	if len(o) != len(other) {
		return false
	}
	for i, n := range o {
		if n != other[i] {
			return false
		}
	}
	return true
}

// Compare orders two OIDs lexicographically over their subidentifier
// sequences. It returns -1 if o < other, 0 if equal, and 1 if o > other.
func (o OID) Compare(other OID) int {
	for i := 0; i < len(o) && i < len(other); i++ {
		switch {
		case o[i] < other[i]:
			return -1
		case o[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(o) < len(other):
		return -1
	case len(o) > len(other):
		return 1
	}
	return 0
}

// HasPrefix checks if the OID starts with the given prefix.
func (o OID) HasPrefix(prefix OID) bool {
	if len(prefix) > len(o) {
		return false
	}
	for i, n := range prefix {
		if n != o[i] {
			return false
		}
	}
	return true
}

// Copy returns a copy of the OID.
func (o OID) Copy() OID {
	c := make(OID, len(o))
	copy(c, o)
	return c
}

// Variable represents an SNMP variable binding.
type Variable struct {
	OID   OID
	Type  BERType
	Value interface{}
}

// String returns a string representation of the variable.
func (v *Variable) String() string {
	return fmt.Sprintf("%s = %s: %v", v.OID, v.Type, v.Value)
}

// AsInt returns the value as a signed integer.
func (v *Variable) AsInt() (int64, bool) {
	switch val := v.Value.(type) {
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	default:
		return 0, false
	}
}

// AsUint returns the value as an unsigned integer.
func (v *Variable) AsUint() (uint64, bool) {
	switch val := v.Value.(type) {
	case int:
		return uint64(val), true
	case int32:
		return uint64(val), true
	case int64:
		return uint64(val), true
	case uint32:
		return uint64(val), true
	case uint64:
		return val, true
	default:
		return 0, false
	}
}

// AsString returns the value as a string.
func (v *Variable) AsString() string {
	switch val := v.Value.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", v.Value)
	}
}

// AsBytes returns the value as bytes.
func (v *Variable) AsBytes() []byte {
	switch val := v.Value.(type) {
	case []byte:
		return val
	case string:
		return []byte(val)
	default:
		return nil
	}
}

// TrapMessage is an accepted SNMPv2-Trap notification delivered to a
// trap handler.
type TrapMessage struct {
	Version       SNMPVersion
	Community     string
	Variables     []Variable
	SourceAddress string
}

// SysUpTime returns the sysUpTime varbind value, if present.
func (t *TrapMessage) SysUpTime() (uint32, bool) {
	for i := range t.Variables {
		if t.Variables[i].OID.Equal(OIDSysUpTime) {
			if ticks, ok := t.Variables[i].Value.(uint32); ok {
				return ticks, true
			}
		}
	}
	return 0, false
}

// TrapOID returns the snmpTrapOID varbind value, if present.
func (t *TrapMessage) TrapOID() (OID, bool) {
	for i := range t.Variables {
		if t.Variables[i].OID.Equal(OIDSnmpTrapOID) {
			if oid, ok := t.Variables[i].Value.(OID); ok {
				return oid, true
			}
		}
	}
	return nil, false
}

// TrapHandler is a callback for received traps.
type TrapHandler func(trap *TrapMessage)

// ConnectionState represents the state of a session.
type ConnectionState int

const (
	// StateIdle indicates the session transport is not bound yet.
	StateIdle ConnectionState = iota
	// StateOpen indicates the transport is bound and ready.
	StateOpen
	// StateClosed indicates the session has been closed. A closed
	// session cannot be reopened.
	StateClosed
)

// String returns the string representation of the connection state.
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateOpen:
		return "Open"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Common OIDs.
var (
	OIDSysDescr    = MustParseOID("1.3.6.1.2.1.1.1.0")
	OIDSysObjectID = MustParseOID("1.3.6.1.2.1.1.2.0")
	OIDSysUpTime   = MustParseOID("1.3.6.1.2.1.1.3.0")
	OIDSysContact  = MustParseOID("1.3.6.1.2.1.1.4.0")
	OIDSysName     = MustParseOID("1.3.6.1.2.1.1.5.0")
	OIDSysLocation = MustParseOID("1.3.6.1.2.1.1.6.0")
	OIDSysServices = MustParseOID("1.3.6.1.2.1.1.7.0")

	// Interface table
	OIDIfNumber = MustParseOID("1.3.6.1.2.1.2.1.0")
	OIDIfTable  = MustParseOID("1.3.6.1.2.1.2.2")

	// SNMPv2-MIB trap OIDs
	OIDSnmpTrapOID        = MustParseOID("1.3.6.1.6.3.1.1.4.1.0")
	OIDSnmpTrapEnterprise = MustParseOID("1.3.6.1.6.3.1.1.4.3.0")
)

// Default values.
const (
	DefaultTimeout        = 10 * time.Second
	DefaultRetries        = 3
	DefaultPort           = 161
	DefaultTrapPort       = 162
	DefaultCommunity      = "public"
	DefaultMaxOids        = 60
	DefaultMaxRepetitions = 10
	DefaultNonRepeaters   = 0

	// maxDatagramSize is the largest payload a single UDP datagram can
	// carry (65535 minus the UDP and IP headers).
	maxDatagramSize = 65507
)

// SecondsToTimeTicks converts seconds to TimeTicks (centiseconds).
func SecondsToTimeTicks(seconds float64) uint32 {
	return uint32(seconds * 100)
}

// TimeTicksToSeconds converts TimeTicks to seconds.
func TimeTicksToSeconds(ticks uint32) float64 {
	return float64(ticks) / 100
}

// TimeTicksToString converts TimeTicks to a human-readable string.
func TimeTicksToString(ticks uint32) string {
	totalSeconds := ticks / 100
	days := totalSeconds / 86400
	hours := (totalSeconds % 86400) / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	centiseconds := ticks % 100

	if days > 0 {
		return fmt.Sprintf("%d days, %02d:%02d:%02d.%02d", days, hours, minutes, seconds, centiseconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%02d", hours, minutes, seconds, centiseconds)
}
