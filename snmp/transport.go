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
	"log/slog"
	"net"
	"sync"
)

// transport owns the UDP socket of one session. It sends encoded
// messages toward the peer and runs a receive loop that dispatches
// inbound datagrams to waiters by request ID.
type transport struct {
	conn     *net.UDPConn
	remote   *net.UDPAddr
	validate bool
	logger   *slog.Logger
	metrics  *Metrics

	mu      sync.Mutex
	pending map[int32]chan *PDU
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// newTransport binds a local UDP endpoint and starts the receive loop.
func newTransport(remote *net.UDPAddr, localAddr string, validate bool, logger *slog.Logger, metrics *Metrics) (*transport, error) {
	var laddr *net.UDPAddr
	if localAddr != "" {
		var err error
		laddr, err = net.ResolveUDPAddr("udp", localAddr)
		if err != nil {
			return nil, fmt.Errorf("snmp: resolving local address: %w", err)
		}
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("snmp: binding transport: %w", err)
	}

	t := &transport{
		conn:     conn,
		remote:   remote,
		validate: validate,
		logger:   logger,
		metrics:  metrics,
		pending:  make(map[int32]chan *PDU),
		done:     make(chan struct{}),
	}

	t.wg.Add(1)
	go t.readLoop()

	return t, nil
}

// send writes one datagram toward the peer. Payloads that cannot fit a
// single UDP datagram fail with ErrMessageTooLarge instead of being
// truncated on the wire.
func (t *transport) send(data []byte) error {
	if len(data) > maxDatagramSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrClosed
	}

	_, err := t.conn.WriteToUDP(data, t.remote)
	if err != nil {
		return fmt.Errorf("snmp: write failed: %w", err)
	}
	return nil
}

// register creates a waiter for the given request ID. The returned
// channel receives the matching response PDU, or is closed when the
// transport shuts down.
func (t *transport) register(requestID int32) (chan *PDU, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if _, dup := t.pending[requestID]; dup {
		return nil, fmt.Errorf("snmp: request ID %d already in flight", requestID)
	}

	ch := make(chan *PDU, 1)
	t.pending[requestID] = ch
	return ch, nil
}

// deregister removes a waiter. A reply arriving afterwards is dropped.
func (t *transport) deregister(requestID int32) {
	t.mu.Lock()
	delete(t.pending, requestID)
	t.mu.Unlock()
}

// close shuts the socket down and cancels all outstanding waiters. No
// datagram is processed after close returns.
func (t *transport) close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.done)
	t.mu.Unlock()

	// Stop the receive loop before cancelling waiters so no delivery
	// races a channel close.
	t.conn.Close()
	t.wg.Wait()

	t.mu.Lock()
	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}
	t.mu.Unlock()
}

// localAddr returns the bound local address.
func (t *transport) localAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *transport) readLoop() {
	defer t.wg.Done()

	buf := make([]byte, 65535)
	for {
		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
				t.logger.Warn("transport read error", "error", err)
				continue
			}
		}

		if t.validate && !t.expectedPeer(src) {
			t.metrics.SourceRejected.Add(1)
			t.logger.Debug("dropping datagram from unexpected source",
				"source", src, "expected", t.remote)
			continue
		}

		requestID, ok := decodeRequestID(buf[:n])
		if !ok {
			t.metrics.MalformedDropped.Add(1)
			t.logger.Warn("dropping malformed datagram", "source", src, "bytes", n)
			continue
		}

		t.mu.Lock()
		ch, waiting := t.pending[requestID]
		t.mu.Unlock()
		if !waiting {
			// Late reply for a cancelled or completed request.
			t.logger.Debug("dropping unmatched reply", "request_id", requestID)
			continue
		}

		msg, err := DecodeMessage(buf[:n])
		if err != nil {
			t.metrics.MalformedDropped.Add(1)
			t.logger.Warn("failed to decode response", "error", err, "source", src)
			continue
		}

		t.metrics.ResponsesReceived.Add(1)
		t.metrics.VarbindsReceived.Add(int64(len(msg.PDU.Variables)))

		select {
		case ch <- msg.PDU:
		default:
		}
	}
}

// expectedPeer reports whether src matches the configured agent
// endpoint, both address and port.
func (t *transport) expectedPeer(src *net.UDPAddr) bool {
	return src.Port == t.remote.Port && src.IP.Equal(t.remote.IP)
}
