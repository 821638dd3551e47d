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
	"errors"
	"fmt"
)

// Standard errors.
var (
	ErrClosed             = errors.New("snmp: session closed")
	ErrTimeout            = errors.New("snmp: request timed out")
	ErrInvalidOID         = errors.New("snmp: invalid OID")
	ErrInvalidTag         = errors.New("snmp: invalid BER tag")
	ErrInvalidLength      = errors.New("snmp: invalid BER length")
	ErrBufferTooShort     = errors.New("snmp: buffer too short")
	ErrMessageTooLarge    = errors.New("snmp: message exceeds UDP payload limit")
	ErrUnsupportedVersion = errors.New("snmp: unsupported SNMP version")
	ErrNoTarget           = errors.New("snmp: no target configured")
)

// SNMPError is a non-zero error-status reported by the agent in a
// GetResponse. Status identifies the failure and Index the variable
// binding (1-based) that caused it.
type SNMPError struct {
	Status     ErrorStatus
	Index      int
	RequestOID OID
}

// Error implements the error interface.
func (e *SNMPError) Error() string {
	if e.RequestOID != nil {
		return fmt.Sprintf("snmp: %s at index %d (OID: %s)", e.Status, e.Index, e.RequestOID)
	}
	return fmt.Sprintf("snmp: %s at index %d", e.Status, e.Index)
}

// NewSNMPError creates a new agent error.
func NewSNMPError(status ErrorStatus, index int, oid OID) *SNMPError {
	return &SNMPError{
		Status:     status,
		Index:      index,
		RequestOID: oid,
	}
}

// ParseError reports bytes that did not parse as a valid SNMP message.
// Offset is the position in the datagram at which decoding failed, or -1
// when unknown. Err, when set, carries the underlying codec fault.
type ParseError struct {
	Message string
	Offset  int
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("snmp: parse error at offset %d: %s", e.Offset, e.Message)
	}
	return fmt.Sprintf("snmp: parse error: %s", e.Message)
}

// Unwrap returns the underlying codec fault, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(message string, offset int) *ParseError {
	return &ParseError{Message: message, Offset: offset}
}

func wrapParseError(err error, offset int) *ParseError {
	return &ParseError{Message: err.Error(), Offset: offset, Err: err}
}

// UnsupportedTypeError reports a decoded tag outside the SMIv2 set.
type UnsupportedTypeError struct {
	Tag byte
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("snmp: unsupported value type 0x%02X", e.Tag)
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsClosed returns true if the error indicates a closed session.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsAgentError returns the agent error if err carries one.
func IsAgentError(err error) (*SNMPError, bool) {
	var se *SNMPError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
