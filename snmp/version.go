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

// Package snmp is an asynchronous SNMPv2c client over UDP. It issues
// get, get-next, get-bulk and set requests, walks MIB subtrees, and
// receives SNMPv2 trap notifications. Many requests can be in flight on
// one session at a time, each with its own timeout and retry budget.
package snmp

// Version information for the SNMP client library.
const (
	// Version is the current version of the library.
	Version = "1.0.0"

	// ProtocolName is the SNMP protocol name.
	ProtocolName = "SNMPv2c"
)
