package snmp

import (
	"encoding/hex"
	"log/slog"
	"time"
)

// SessionTrace defines hooks invoked at session lifecycle points. Any
// hook left nil is filled with a no-op before the session starts.
type SessionTrace struct {
	// BindStart is called before the UDP transport is bound.
	BindStart func(opts *ClientOptions)

	// BindDone is called when the bind attempt completes, with err
	// indicating whether it was successful.
	BindDone func(opts *ClientOptions, localAddr string, err error, d time.Duration)

	// WriteDone is called after a datagram has been sent.
	WriteDone func(opts *ClientOptions, output []byte, err error, d time.Duration)

	// RequestDone is called after a request completes, including on
	// timeout or agent error.
	RequestDone func(opts *ClientOptions, requestID int32, err error, d time.Duration)

	// Error is called after an error condition has been detected.
	Error func(location string, opts *ClientOptions, err error)
}

// DefaultTraceHooks reports errors and nothing else.
var DefaultTraceHooks = &SessionTrace{
	Error: func(location string, opts *ClientOptions, err error) {
		slog.Default().Error("snmp session error", "location", location, "target", opts.Target, "error", err)
	},
}

// DiagnosticTraceHooks logs every event including raw datagrams.
var DiagnosticTraceHooks = &SessionTrace{
	BindStart: func(opts *ClientOptions) {
		slog.Default().Info("snmp bind start", "target", opts.Target)
	},
	BindDone: func(opts *ClientOptions, localAddr string, err error, d time.Duration) {
		slog.Default().Info("snmp bind done", "target", opts.Target, "local", localAddr, "error", err, "took", d)
	},
	WriteDone: func(opts *ClientOptions, output []byte, err error, d time.Duration) {
		slog.Default().Info("snmp write done", "target", opts.Target, "error", err, "took", d,
			"data", hex.EncodeToString(output))
	},
	RequestDone: func(opts *ClientOptions, requestID int32, err error, d time.Duration) {
		slog.Default().Info("snmp request done", "target", opts.Target, "request_id", requestID, "error", err, "took", d)
	},
	Error: DefaultTraceHooks.Error,
}

// NoOpTraceHooks provides a set of hooks that do nothing.
var NoOpTraceHooks = &SessionTrace{
	BindStart:   func(opts *ClientOptions) {},
	BindDone:    func(opts *ClientOptions, localAddr string, err error, d time.Duration) {},
	WriteDone:   func(opts *ClientOptions, output []byte, err error, d time.Duration) {},
	RequestDone: func(opts *ClientOptions, requestID int32, err error, d time.Duration) {},
	Error:       func(location string, opts *ClientOptions, err error) {},
}
