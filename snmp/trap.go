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
	"context"
	"log/slog"
	"net"
	"sync"
)

// TrapListener receives unsolicited SNMPv2-Trap notifications on a
// bound UDP endpoint and hands accepted traps to a user callback.
// Malformed datagrams and traps that fail the community filter are
// counted and dropped; they never reach the handler.
type TrapListener struct {
	opts        *TrapListenerOptions
	handler     TrapHandler
	communities map[string]struct{}
	logger      *slog.Logger
	done        chan struct{}
	wg          sync.WaitGroup
	metrics     *Metrics

	mu   sync.Mutex
	conn *net.UDPConn
}

// NewTrapListener creates a new trap listener.
func NewTrapListener(handler TrapHandler, opts ...TrapListenerOption) *TrapListener {
	options := NewTrapListenerOptions()
	for _, opt := range opts {
		opt(options)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var communities map[string]struct{}
	if len(options.Communities) > 0 {
		communities = make(map[string]struct{}, len(options.Communities))
		for _, c := range options.Communities {
			communities[c] = struct{}{}
		}
	}

	return &TrapListener{
		opts:        options,
		handler:     handler,
		communities: communities,
		logger:      logger,
		done:        make(chan struct{}),
		metrics:     NewMetrics(),
	}
}

// Start binds the listen endpoint and starts the receive loop.
func (l *TrapListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.opts.Address)
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	l.logger.Info("trap listener started", "address", conn.LocalAddr())

	l.wg.Add(1)
	go l.listen(conn)

	return nil
}

// Stop stops the trap listener and releases the socket.
func (l *TrapListener) Stop() error {
	close(l.done)
	l.mu.Lock()
	if l.conn != nil {
		l.conn.Close()
	}
	l.mu.Unlock()
	l.wg.Wait()
	l.logger.Info("trap listener stopped")
	return nil
}

// Run starts the listener and blocks until ctx is cancelled, then stops
// it. The socket is released on all exit paths.
func (l *TrapListener) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}
	defer l.Stop()

	<-ctx.Done()
	return ctx.Err()
}

func (l *TrapListener) listen(conn *net.UDPConn) {
	defer l.wg.Done()

	buf := make([]byte, 65535)
	for {
		n, remoteAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.done:
				return
			default:
				l.logger.Warn("error reading trap", "error", err)
				continue
			}
		}

		trap, err := l.decodeTrap(buf[:n], remoteAddr)
		if err != nil {
			l.metrics.TrapsDropped.Add(1)
			l.logger.Warn("dropping malformed trap", "error", err, "source", remoteAddr)
			continue
		}

		if l.communities != nil {
			if _, ok := l.communities[trap.Community]; !ok {
				l.metrics.TrapsDropped.Add(1)
				l.logger.Debug("dropping trap with unexpected community", "source", remoteAddr)
				continue
			}
		}

		l.metrics.TrapsReceived.Add(1)

		if l.handler != nil {
			go l.handler(trap)
		}
	}
}

// decodeTrap parses a datagram as an SNMPv2c message carrying an
// SNMPv2-Trap PDU. Anything else is rejected.
func (l *TrapListener) decodeTrap(data []byte, remoteAddr *net.UDPAddr) (*TrapMessage, error) {
	msg, err := DecodeMessage(data)
	if err != nil {
		return nil, err
	}

	if msg.PDU.Type != PDUTrapV2 {
		return nil, newParseError("not an SNMPv2-Trap PDU", -1)
	}

	return &TrapMessage{
		Version:       msg.Version,
		Community:     msg.Community,
		Variables:     msg.PDU.Variables,
		SourceAddress: remoteAddr.String(),
	}, nil
}

// Metrics returns the listener metrics.
func (l *TrapListener) Metrics() *Metrics {
	return l.metrics
}

// Address returns the listen address.
func (l *TrapListener) Address() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return l.conn.LocalAddr().String()
	}
	return l.opts.Address
}
