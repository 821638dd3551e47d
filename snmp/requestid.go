package snmp

import (
	"math/rand"
	"sync"
	"sync/atomic"
)

var (
	requestIDSeed sync.Once
	requestIDCtr  atomic.Uint32
)

// nextRequestID returns a fresh 31-bit request ID. The counter is shared
// process-wide, seeded once with a random value at first use, and wraps
// modulo 2^31. Issued IDs are never zero or negative.
func nextRequestID() int32 {
	requestIDSeed.Do(func() {
		requestIDCtr.Store(rand.Uint32() & 0x7fffffff)
	})
	for {
		id := int32(requestIDCtr.Add(1) & 0x7fffffff)
		if id != 0 {
			return id
		}
	}
}
