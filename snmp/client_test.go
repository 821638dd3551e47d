package snmp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent is an in-process SNMP agent bound to 127.0.0.1. The handler
// receives each decoded request and returns the reply message, or nil
// to stay silent.
type fakeAgent struct {
	conn     *net.UDPConn
	received atomic.Int64
}

func newFakeAgent(t *testing.T, handle func(req *Message) *Message) *fakeAgent {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)

	a := &fakeAgent{conn: conn}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 65535)
		for {
			n, src, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			a.received.Add(1)

			req, err := DecodeMessage(buf[:n])
			if err != nil {
				continue
			}
			resp := handle(req)
			if resp == nil {
				continue
			}
			data, err := resp.Encode()
			if err != nil {
				continue
			}
			conn.WriteToUDP(data, src)
		}
	}()

	return a
}

func (a *fakeAgent) port() int {
	return a.conn.LocalAddr().(*net.UDPAddr).Port
}

// echoResponse builds a GetResponse mirroring the request ID.
func echoResponse(req *Message, vars ...Variable) *Message {
	return &Message{
		Version:   Version2c,
		Community: req.Community,
		PDU: &PDU{
			Type:      PDUGetResponse,
			RequestID: req.PDU.RequestID,
			Variables: vars,
		},
	}
}

func testClient(t *testing.T, port int, opts ...Option) *Client {
	t.Helper()

	all := append([]Option{
		WithTarget("127.0.0.1"),
		WithPort(port),
		WithTimeout(time.Second),
		WithRetries(0),
		WithTrace(NoOpTraceHooks),
	}, opts...)

	c := NewClient(all...)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientGet(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message {
		return echoResponse(req, Variable{
			OID:   req.PDU.Variables[0].OID,
			Type:  TypeOctetString,
			Value: []byte("core-switch"),
		})
	})

	c := testClient(t, agent.port())

	vars, err := c.Get(context.Background(), OIDSysName)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, OIDSysName, vars[0].OID)
	assert.Equal(t, "core-switch", vars[0].AsString())
}

func TestClientGetMultipleOIDs(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message {
		vars := make([]Variable, len(req.PDU.Variables))
		for i, v := range req.PDU.Variables {
			vars[i] = Variable{OID: v.OID, Type: TypeInteger, Value: i}
		}
		return echoResponse(req, vars...)
	})

	c := testClient(t, agent.port())

	vars, err := c.Get(context.Background(), OIDSysDescr, OIDSysUpTime, OIDSysName)
	require.NoError(t, err)
	require.Len(t, vars, 3)
	for i, want := range []OID{OIDSysDescr, OIDSysUpTime, OIDSysName} {
		assert.Equal(t, want, vars[i].OID)
	}
}

func TestClientAgentError(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message {
		resp := echoResponse(req, req.PDU.Variables...)
		resp.PDU.ErrorStatus = NoSuchName
		resp.PDU.ErrorIndex = 1
		return resp
	})

	c := testClient(t, agent.port())

	_, err := c.Get(context.Background(), OIDSysName)
	require.Error(t, err)

	se, ok := IsAgentError(err)
	require.True(t, ok)
	assert.Equal(t, NoSuchName, se.Status)
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, OIDSysName, se.RequestOID)
}

func TestClientExceptionsAreValues(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message {
		return echoResponse(req,
			Variable{OID: req.PDU.Variables[0].OID, Type: TypeNoSuchObject},
			Variable{OID: req.PDU.Variables[1].OID, Type: TypeOctetString, Value: []byte("here")},
		)
	})

	c := testClient(t, agent.port())

	vars, err := c.Get(context.Background(), MustParseOID("1.3.6.1.4.1.9999.1.0"), OIDSysName)
	require.NoError(t, err, "per-OID absence must not fail the request")
	require.Len(t, vars, 2)
	assert.Equal(t, TypeNoSuchObject, vars[0].Type)
	assert.True(t, vars[0].Type.IsException())
	assert.Equal(t, "here", vars[1].AsString())
}

func TestClientTimeoutSendsAllRetries(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message {
		return nil // never answer
	})

	c := testClient(t, agent.port(),
		WithTimeout(100*time.Millisecond),
		WithRetries(2),
	)

	start := time.Now()
	_, err := c.Get(context.Background(), OIDSysName)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int64(3), agent.received.Load(), "one initial send plus two retries")
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, int64(3), c.Metrics().Snapshot().Timeouts)
}

func TestClientRetryReusesRequestID(t *testing.T) {
	var mu sync.Mutex
	var ids []int32

	agent := newFakeAgent(t, func(req *Message) *Message {
		mu.Lock()
		ids = append(ids, req.PDU.RequestID)
		n := len(ids)
		mu.Unlock()
		if n < 2 {
			return nil // force one retry
		}
		return echoResponse(req, Variable{OID: req.PDU.Variables[0].OID, Type: TypeNull})
	})

	c := testClient(t, agent.port(),
		WithTimeout(100*time.Millisecond),
		WithRetries(3),
	)

	_, err := c.Get(context.Background(), OIDSysName)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1], "retries reuse the original request ID")
}

func TestClientSourceAddressValidation(t *testing.T) {
	// An "agent" that receives on one socket but answers from another,
	// so replies arrive from an unexpected source port.
	recvConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { recvConn.Close() })

	sendConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { sendConn.Close() })

	go func() {
		buf := make([]byte, 65535)
		for {
			n, src, err := recvConn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			req, err := DecodeMessage(buf[:n])
			if err != nil {
				continue
			}
			resp := echoResponse(req, Variable{
				OID:   req.PDU.Variables[0].OID,
				Type:  TypeOctetString,
				Value: []byte("spoofed-or-not"),
			})
			data, _ := resp.Encode()
			sendConn.WriteToUDP(data, src)
		}
	}()

	port := recvConn.LocalAddr().(*net.UDPAddr).Port

	t.Run("enabled drops wrong source", func(t *testing.T) {
		c := testClient(t, port,
			WithTimeout(200*time.Millisecond),
			WithValidateSourceAddr(true),
		)

		_, err := c.Get(context.Background(), OIDSysName)
		require.ErrorIs(t, err, ErrTimeout)
		assert.GreaterOrEqual(t, c.Metrics().Snapshot().SourceRejected, int64(1))
	})

	t.Run("disabled accepts wrong source", func(t *testing.T) {
		c := testClient(t, port,
			WithTimeout(2*time.Second),
			WithValidateSourceAddr(false),
		)

		vars, err := c.Get(context.Background(), OIDSysName)
		require.NoError(t, err)
		require.Len(t, vars, 1)
		assert.Equal(t, "spoofed-or-not", vars[0].AsString())
	})
}

func TestClientConcurrentRequests(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message {
		return echoResponse(req, Variable{
			OID:   req.PDU.Variables[0].OID,
			Type:  TypeOctetString,
			Value: []byte(req.PDU.Variables[0].OID.String()),
		})
	})

	c := testClient(t, agent.port(), WithTimeout(2*time.Second), WithRetries(1))

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			oid := MustParseOID(fmt.Sprintf("1.3.6.1.4.1.9999.%d.0", i))
			vars, err := c.Get(context.Background(), oid)
			if err != nil {
				errs[i] = err
				return
			}
			if vars[0].AsString() != oid.String() {
				errs[i] = fmt.Errorf("reply %q delivered to waiter for %q", vars[0].AsString(), oid)
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "worker %d", i)
	}
}

func TestClientSet(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message {
		if req.PDU.Type != PDUSetRequest {
			return nil
		}
		return echoResponse(req, req.PDU.Variables...)
	})

	c := testClient(t, agent.port())

	vars, err := c.Set(context.Background(), Variable{
		OID:   OIDSysContact,
		Type:  TypeOctetString,
		Value: []byte("ops@example.com"),
	})
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "ops@example.com", vars[0].AsString())
}

func TestClientGetBulkPassesSlots(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message {
		// Stay silent on anything but a well-formed bulk request so a
		// mismatch surfaces as a timeout.
		if req.PDU.Type != PDUGetBulkRequest || req.PDU.NonRepeaters != 1 || req.PDU.MaxRepetitions != 5 {
			return nil
		}
		return echoResponse(req, Variable{OID: req.PDU.Variables[0].OID, Type: TypeNull})
	})

	c := testClient(t, agent.port())

	_, err := c.GetBulk(context.Background(), 1, 5, OIDSysUpTime, OIDIfTable)
	require.NoError(t, err)
}

func TestClientMessageTooLarge(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message { return nil })

	c := testClient(t, agent.port())

	huge := make([]byte, 70000)
	_, err := c.Set(context.Background(), Variable{
		OID:   OIDSysContact,
		Type:  TypeOctetString,
		Value: huge,
	})
	require.ErrorIs(t, err, ErrMessageTooLarge)
	assert.Equal(t, int64(0), agent.received.Load())
}

func TestClientClosed(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message { return nil })

	c := testClient(t, agent.port())
	require.NoError(t, c.Open(context.Background()))
	require.NoError(t, c.Close())

	_, err := c.Get(context.Background(), OIDSysName)
	assert.ErrorIs(t, err, ErrClosed)

	err = c.Open(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, StateClosed, c.State())
}

func TestClientCloseCancelsWaiters(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message { return nil })

	c := testClient(t, agent.port(), WithTimeout(5*time.Second))
	require.NoError(t, c.Open(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), OIDSysName)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("waiter was not cancelled by close")
	}
}

func TestClientContextCancellation(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message { return nil })

	c := testClient(t, agent.port(), WithTimeout(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.Get(ctx, OIDSysName)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientLazyBind(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message {
		return echoResponse(req, Variable{OID: req.PDU.Variables[0].OID, Type: TypeNull})
	})

	c := testClient(t, agent.port())
	assert.Equal(t, StateIdle, c.State())
	assert.Nil(t, c.LocalAddr())

	_, err := c.Get(context.Background(), OIDSysName)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, c.State())
	assert.NotNil(t, c.LocalAddr())
}

func TestClientNoTarget(t *testing.T) {
	c := NewClient(WithTrace(NoOpTraceHooks))
	t.Cleanup(func() { c.Close() })

	_, err := c.Get(context.Background(), OIDSysName)
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestWithClientScoped(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message {
		return echoResponse(req, Variable{OID: req.PDU.Variables[0].OID, Type: TypeNull})
	})

	var captured *Client
	err := WithClient(context.Background(), func(c *Client) error {
		captured = c
		_, err := c.Get(context.Background(), OIDSysName)
		return err
	},
		WithTarget("127.0.0.1"),
		WithPort(agent.port()),
		WithTimeout(time.Second),
		WithTrace(NoOpTraceHooks),
	)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, captured.State(), "socket released on scope exit")
}

func TestWithClientReleasesOnError(t *testing.T) {
	agent := newFakeAgent(t, func(req *Message) *Message { return nil })

	var captured *Client
	err := WithClient(context.Background(), func(c *Client) error {
		captured = c
		return fmt.Errorf("user failure")
	},
		WithTarget("127.0.0.1"),
		WithPort(agent.port()),
		WithTrace(NoOpTraceHooks),
	)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "user failure"))
	assert.Equal(t, StateClosed, captured.State())
}
