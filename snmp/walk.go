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
)

// walker carries the state of one subtree traversal: the cursor, the
// set of already-yielded OIDs, and the user callback.
type walker struct {
	client  *Client
	root    OID
	current OID
	seen    map[string]struct{}
	fn      func(Variable) error
}

func newWalker(c *Client, root OID, fn func(Variable) error) *walker {
	return &walker{
		client:  c,
		root:    root,
		current: root.Copy(),
		seen:    make(map[string]struct{}),
		fn:      fn,
	}
}

// advance applies the termination rules to one varbind. It reports
// whether the walk continues. Misbehaving agents that return
// non-increasing or repeated OIDs end the walk rather than an error;
// wrapping agents must not hang the client.
func (w *walker) advance(v *Variable) (bool, error) {
	if v.Type.IsException() {
		return false, nil
	}
	if !v.OID.HasPrefix(w.root) {
		return false, nil
	}
	if v.OID.Compare(w.current) <= 0 {
		w.client.metrics.WalkTerminations.Add(1)
		w.client.logger.Warn("agent returned non-increasing OID, ending walk",
			"oid", v.OID, "current", w.current)
		return false, nil
	}
	key := v.OID.String()
	if _, dup := w.seen[key]; dup {
		w.client.metrics.WalkTerminations.Add(1)
		w.client.logger.Warn("agent returned duplicate OID, ending walk", "oid", v.OID)
		return false, nil
	}
	w.seen[key] = struct{}{}

	if err := w.fn(*v); err != nil {
		return false, err
	}
	w.current = v.OID
	return true, nil
}

// Walk traverses the subtree under rootOID using repeated GET-NEXT
// requests and returns all varbinds found.
func (c *Client) Walk(ctx context.Context, rootOID OID) ([]Variable, error) {
	var results []Variable
	err := c.WalkFunc(ctx, rootOID, func(v Variable) error {
		results = append(results, v)
		return nil
	})
	return results, err
}

// WalkFunc traverses the subtree under rootOID using repeated GET-NEXT
// requests, invoking fn for each varbind. Returning an error from fn
// stops the walk. Each round waits for the previous reply before the
// next request goes out.
func (c *Client) WalkFunc(ctx context.Context, rootOID OID, fn func(Variable) error) error {
	c.metrics.WalkRequests.Add(1)

	w := newWalker(c, rootOID, fn)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		vars, err := c.GetNext(ctx, w.current)
		if err != nil {
			return err
		}
		if len(vars) == 0 {
			return nil
		}

		cont, err := w.advance(&vars[0])
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// BulkWalk traverses the subtree under rootOID using GET-BULK requests
// with the session's max-repetitions and returns all varbinds found.
func (c *Client) BulkWalk(ctx context.Context, rootOID OID) ([]Variable, error) {
	var results []Variable
	err := c.BulkWalkFunc(ctx, rootOID, func(v Variable) error {
		results = append(results, v)
		return nil
	})
	return results, err
}

// BulkWalkFunc traverses the subtree under rootOID using GET-BULK
// requests, invoking fn for each varbind in reply order. When a
// termination rule triggers mid-batch, the rest of the batch is
// discarded.
func (c *Client) BulkWalkFunc(ctx context.Context, rootOID OID, fn func(Variable) error) error {
	c.metrics.WalkRequests.Add(1)

	w := newWalker(c, rootOID, fn)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		vars, err := c.GetBulk(ctx, 0, c.opts.MaxRepetitions, w.current)
		if err != nil {
			return err
		}
		if len(vars) == 0 {
			return nil
		}

		for i := range vars {
			cont, err := w.advance(&vars[i])
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
	}
}
