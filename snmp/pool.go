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
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Pool manages a set of sessions toward one agent. Sessions are handed
// out round-robin; closed sessions are replaced by the health checker.
type Pool struct {
	opts       *PoolOptions
	clients    []*poolClient
	clientOpts []Option
	mu         sync.RWMutex
	robin      uint64
	done       chan struct{}
	wg         sync.WaitGroup
	metrics    *PoolMetrics
}

type poolClient struct {
	client   *Client
	lastUsed time.Time
	inFlight int64
	mu       sync.Mutex
}

// NewPool creates a new session pool.
func NewPool(opts ...PoolOption) *Pool {
	options := NewPoolOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Pool{
		opts:       options,
		clients:    make([]*poolClient, options.Size),
		clientOpts: options.ClientOptions,
		done:       make(chan struct{}),
		metrics:    &PoolMetrics{},
	}
}

// Open binds all sessions in the pool and starts the health checker.
func (p *Pool) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	successCount := 0

	for i := 0; i < p.opts.Size; i++ {
		client := NewClient(p.clientOpts...)
		if err := client.Open(ctx); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			client.Close()
			continue
		}

		p.clients[i] = &poolClient{
			client:   client,
			lastUsed: time.Now(),
		}
		successCount++
	}

	p.metrics.TotalClients.Set(int64(successCount))
	p.metrics.HealthyClients.Set(int64(successCount))

	if successCount == 0 {
		return firstErr
	}

	p.wg.Add(1)
	go p.healthChecker()

	return nil
}

// Close closes all sessions in the pool.
func (p *Pool) Close() error {
	close(p.done)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for _, pc := range p.clients {
		if pc != nil && pc.client != nil {
			if err := pc.client.Close(); err != nil {
				lastErr = err
			}
		}
	}

	p.clients = nil
	p.metrics.TotalClients.Set(0)
	p.metrics.HealthyClients.Set(0)

	return lastErr
}

// Acquire returns a session from the pool using round-robin selection.
// Callers must pair it with Release.
func (p *Pool) Acquire() (*Client, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.clients) == 0 {
		return nil, errors.New("snmp: pool is empty")
	}

	p.metrics.TotalRequests.Add(1)

	start := atomic.AddUint64(&p.robin, 1) % uint64(len(p.clients))

	for i := 0; i < len(p.clients); i++ {
		idx := (int(start) + i) % len(p.clients)
		pc := p.clients[idx]
		if pc != nil && pc.client != nil && pc.client.State() == StateOpen {
			pc.mu.Lock()
			pc.lastUsed = time.Now()
			pc.mu.Unlock()
			atomic.AddInt64(&pc.inFlight, 1)
			return pc.client, nil
		}
	}

	p.metrics.FailedRequests.Add(1)
	return nil, errors.New("snmp: no healthy sessions available")
}

// Release returns a session to the pool.
func (p *Pool) Release(client *Client) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, pc := range p.clients {
		if pc != nil && pc.client == client {
			atomic.AddInt64(&pc.inFlight, -1)
			return
		}
	}
}

// Get performs a GET using a pooled session.
func (p *Pool) Get(ctx context.Context, oids ...OID) ([]Variable, error) {
	client, err := p.Acquire()
	if err != nil {
		return nil, err
	}
	defer p.Release(client)

	return client.Get(ctx, oids...)
}

// GetNext performs a GET-NEXT using a pooled session.
func (p *Pool) GetNext(ctx context.Context, oids ...OID) ([]Variable, error) {
	client, err := p.Acquire()
	if err != nil {
		return nil, err
	}
	defer p.Release(client)

	return client.GetNext(ctx, oids...)
}

// GetBulk performs a GET-BULK using a pooled session.
func (p *Pool) GetBulk(ctx context.Context, nonRepeaters, maxRepetitions int, oids ...OID) ([]Variable, error) {
	client, err := p.Acquire()
	if err != nil {
		return nil, err
	}
	defer p.Release(client)

	return client.GetBulk(ctx, nonRepeaters, maxRepetitions, oids...)
}

// Set performs a SET using a pooled session.
func (p *Pool) Set(ctx context.Context, variables ...Variable) ([]Variable, error) {
	client, err := p.Acquire()
	if err != nil {
		return nil, err
	}
	defer p.Release(client)

	return client.Set(ctx, variables...)
}

// Walk performs a walk using a pooled session.
func (p *Pool) Walk(ctx context.Context, rootOID OID) ([]Variable, error) {
	client, err := p.Acquire()
	if err != nil {
		return nil, err
	}
	defer p.Release(client)

	return client.Walk(ctx, rootOID)
}

// BulkWalk performs a bulk walk using a pooled session.
func (p *Pool) BulkWalk(ctx context.Context, rootOID OID) ([]Variable, error) {
	client, err := p.Acquire()
	if err != nil {
		return nil, err
	}
	defer p.Release(client)

	return client.BulkWalk(ctx, rootOID)
}

func (p *Pool) healthChecker() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.opts.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.checkHealth()
		}
	}
}

// checkHealth replaces dead slots with fresh sessions and reaps idle
// ones. Sessions are closed terminally, so recovery always means a new
// session, never a reopen.
func (p *Pool) checkHealth() {
	p.mu.Lock()
	defer p.mu.Unlock()

	healthy := int64(0)
	for i, pc := range p.clients {
		if pc == nil || pc.client == nil || pc.client.State() == StateClosed {
			client := NewClient(p.clientOpts...)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := client.Open(ctx); err == nil {
				p.clients[i] = &poolClient{
					client:   client,
					lastUsed: time.Now(),
				}
				healthy++
			} else {
				client.Close()
			}
			cancel()
			continue
		}

		pc.mu.Lock()
		idle := time.Since(pc.lastUsed)
		pc.mu.Unlock()
		inFlight := atomic.LoadInt64(&pc.inFlight)

		if idle > p.opts.MaxIdleTime && inFlight == 0 {
			pc.client.Close()
			p.clients[i] = nil
			continue
		}

		healthy++
	}

	p.metrics.HealthyClients.Set(healthy)
}

// Metrics returns the pool metrics.
func (p *Pool) Metrics() *PoolMetrics {
	return p.metrics
}

// Size returns the pool size.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// HealthyCount returns the number of open sessions.
func (p *Pool) HealthyCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	count := 0
	for _, pc := range p.clients {
		if pc != nil && pc.client != nil && pc.client.State() == StateOpen {
			count++
		}
	}
	return count
}
