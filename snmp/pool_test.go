package snmp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message {
		return echoResponse(req, Variable{
			OID:   req.PDU.Variables[0].OID,
			Type:  TypeOctetString,
			Value: []byte("pooled"),
		})
	})

	p := NewPool(
		WithPoolSize(2),
		WithPoolClientOptions(
			WithTarget("127.0.0.1"),
			WithPort(agent.port()),
			WithTimeout(time.Second),
			WithTrace(NoOpTraceHooks),
		),
	)

	require.NoError(t, p.Open(context.Background()))
	assert.Equal(t, 2, p.Size())
	assert.Equal(t, 2, p.HealthyCount())

	vars, err := p.Get(context.Background(), OIDSysName)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "pooled", vars[0].AsString())

	// Round-robin hands out both members.
	c1, err := p.Acquire()
	require.NoError(t, err)
	c2, err := p.Acquire()
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
	p.Release(c1)
	p.Release(c2)

	require.NoError(t, p.Close())
	assert.Equal(t, 0, p.HealthyCount())

	_, err = p.Acquire()
	assert.Error(t, err)
}

func TestPoolWalk(t *testing.T) {
	agent := seededAgent(t, systemMIB)

	p := NewPool(
		WithPoolSize(1),
		WithPoolClientOptions(
			WithTarget("127.0.0.1"),
			WithPort(agent.port()),
			WithTimeout(time.Second),
			WithTrace(NoOpTraceHooks),
		),
	)
	require.NoError(t, p.Open(context.Background()))
	t.Cleanup(func() { p.Close() })

	vars, err := p.Walk(context.Background(), MustParseOID("1.3.6.1.2.1.1"))
	require.NoError(t, err)
	assert.Len(t, vars, 7)
}
