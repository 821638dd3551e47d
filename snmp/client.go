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
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
)

// Client is an SNMPv2c session toward one agent. All operations are
// safe for concurrent use; overlapping requests share the transport and
// run in parallel on the wire under distinct request IDs.
type Client struct {
	opts    *ClientOptions
	logger  *slog.Logger
	metrics *Metrics

	mu    sync.Mutex
	state ConnectionState
	tr    *transport
}

// NewClient creates a new session. The UDP transport is bound lazily on
// the first request, or eagerly via Open.
func NewClient(opts ...Option) *Client {
	options := applyOptions(opts)

	return &Client{
		opts:    options,
		logger:  options.Logger,
		metrics: NewMetrics(),
		state:   StateIdle,
	}
}

// WithClient runs fn against a fresh session and guarantees the
// transport is released on all return paths, including panics in fn.
func WithClient(ctx context.Context, fn func(*Client) error, opts ...Option) error {
	c := NewClient(opts...)
	defer c.Close()

	if err := c.Open(ctx); err != nil {
		return err
	}
	return fn(c)
}

// Open binds the UDP transport. It is idempotent while the session is
// usable and fails with ErrClosed once the session has been closed.
func (c *Client) Open(ctx context.Context) error {
	_, err := c.ensureOpen(ctx)
	return err
}

func (c *Client) ensureOpen(_ context.Context) (*transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateOpen:
		return c.tr, nil
	case StateClosed:
		return nil, ErrClosed
	}

	if c.opts.Target == "" {
		return nil, ErrNoTarget
	}

	addr := net.JoinHostPort(c.opts.Target, strconv.Itoa(c.opts.Port))
	remote, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		c.opts.Trace.Error("resolve", c.opts, err)
		return nil, fmt.Errorf("snmp: resolving %s: %w", addr, err)
	}

	c.opts.Trace.BindStart(c.opts)
	start := time.Now()
	tr, err := newTransport(remote, c.opts.LocalAddr, c.opts.ValidateSourceAddr, c.logger, c.metrics)
	if err != nil {
		c.opts.Trace.BindDone(c.opts, "", err, time.Since(start))
		c.opts.Trace.Error("bind", c.opts, err)
		return nil, err
	}
	c.opts.Trace.BindDone(c.opts, tr.localAddr().String(), nil, time.Since(start))

	c.tr = tr
	c.state = StateOpen

	c.logger.Info("session open", "target", addr, "local", tr.localAddr())

	return tr, nil
}

// Close releases the transport and cancels all outstanding waiters with
// ErrClosed. A closed session cannot be reopened; further operations
// fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	tr := c.tr
	c.tr = nil
	c.state = StateClosed
	c.mu.Unlock()

	if tr != nil {
		tr.close()
		c.logger.Info("session closed", "target", c.opts.Target)
	}
	return nil
}

// State returns the current session state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// send issues one PDU and waits for the matching reply, retrying on
// timeout. Retries reuse the original request ID so agents that cache
// responses by request ID can deduplicate the repeated datagram.
func (c *Client) send(ctx context.Context, pdu *PDU) (*PDU, error) {
	tr, err := c.ensureOpen(ctx)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Version:   Version2c,
		Community: c.opts.Community,
		PDU:       pdu,
	}
	data, err := msg.Encode()
	if err != nil {
		return nil, fmt.Errorf("snmp: encoding message: %w", err)
	}

	respCh, err := tr.register(pdu.RequestID)
	if err != nil {
		return nil, err
	}
	defer tr.deregister(pdu.RequestID)

	start := time.Now()
	defer func() {
		c.opts.Trace.RequestDone(c.opts, pdu.RequestID, err, time.Since(start))
	}()

	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if attempt > 0 {
			c.metrics.Retries.Add(1)
			c.logger.Debug("retrying request", "attempt", attempt, "request_id", pdu.RequestID)
		}

		sendStart := time.Now()
		err = tr.send(data)
		c.opts.Trace.WriteDone(c.opts, data, err, time.Since(sendStart))
		if err != nil {
			// Encoding-size and socket failures are fatal to this
			// request only.
			return nil, err
		}

		c.metrics.RequestsSent.Add(1)
		c.metrics.VarbindsSent.Add(int64(len(pdu.Variables)))

		timer := time.NewTimer(c.opts.Timeout)
		select {
		case resp, ok := <-respCh:
			timer.Stop()
			if !ok {
				err = ErrClosed
				return nil, err
			}
			c.metrics.RequestLatency.ObserveDuration(time.Since(start))

			if resp.ErrorStatus != NoError {
				var oid OID
				if resp.ErrorIndex > 0 && resp.ErrorIndex <= len(pdu.Variables) {
					oid = pdu.Variables[resp.ErrorIndex-1].OID
				}
				err = NewSNMPError(resp.ErrorStatus, resp.ErrorIndex, oid)
				return resp, err
			}
			return resp, nil

		case <-timer.C:
			c.metrics.Timeouts.Add(1)

		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
			return nil, err
		}
	}

	err = ErrTimeout
	return nil, err
}

// Get performs an SNMP GET request. One varbind is returned per
// requested OID. Per-OID absence is reported in-band as noSuchObject or
// noSuchInstance varbinds, not as an error.
func (c *Client) Get(ctx context.Context, oids ...OID) ([]Variable, error) {
	c.metrics.GetRequests.Add(1)

	resp, err := c.send(ctx, NewGetRequest(nextRequestID(), oids...))
	if err != nil {
		c.metrics.Errors.Add(1)
		return nil, err
	}

	return resp.Variables, nil
}

// GetNext performs an SNMP GET-NEXT request, returning the next
// lexicographically ordered varbind per requested OID.
func (c *Client) GetNext(ctx context.Context, oids ...OID) ([]Variable, error) {
	c.metrics.GetNextRequests.Add(1)

	resp, err := c.send(ctx, NewGetNextRequest(nextRequestID(), oids...))
	if err != nil {
		c.metrics.Errors.Add(1)
		return nil, err
	}

	return resp.Variables, nil
}

// GetBulk performs an SNMP GET-BULK request.
func (c *Client) GetBulk(ctx context.Context, nonRepeaters, maxRepetitions int, oids ...OID) ([]Variable, error) {
	c.metrics.GetBulkRequests.Add(1)

	resp, err := c.send(ctx, NewGetBulkRequest(nextRequestID(), nonRepeaters, maxRepetitions, oids...))
	if err != nil {
		c.metrics.Errors.Add(1)
		return nil, err
	}

	return resp.Variables, nil
}

// Set performs an SNMP SET request and returns the varbinds echoed by
// the agent on success.
func (c *Client) Set(ctx context.Context, variables ...Variable) ([]Variable, error) {
	c.metrics.SetRequests.Add(1)

	resp, err := c.send(ctx, NewSetRequest(nextRequestID(), variables...))
	if err != nil {
		c.metrics.Errors.Add(1)
		return nil, err
	}

	return resp.Variables, nil
}

// LocalAddr returns the bound local address, or nil while idle.
func (c *Client) LocalAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr == nil {
		return nil
	}
	return c.tr.localAddr()
}

// Metrics returns the session metrics.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Options returns the session options.
func (c *Client) Options() *ClientOptions {
	return c.opts
}
