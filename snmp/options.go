package snmp

import (
	"log/slog"
	"time"

	"github.com/imdario/mergo"
)

// ClientOptions contains configuration options for an SNMP session.
type ClientOptions struct {
	// Target is the SNMP agent hostname or IP address.
	Target string
	// Port is the SNMP agent port (default 161).
	Port int
	// Community is the community string sent on every request.
	Community string
	// Timeout is the per-request wait for a reply.
	Timeout time.Duration
	// Retries is the number of additional attempts after the first
	// on timeout.
	Retries int
	// MaxOids is stored with the options but not read by any request;
	// the number of OIDs in a request is not limited.
	MaxOids int
	// MaxRepetitions is the default max-repetitions for bulk ops.
	MaxRepetitions int
	// NonRepeaters is stored with the options but not read: GetBulk
	// takes non-repeaters as an argument and BulkWalk always sends 0.
	NonRepeaters int
	// ValidateSourceAddr drops replies whose source address and port
	// do not match the agent endpoint. RFC 1901 does not require
	// this; the default is true as a hardening measure.
	ValidateSourceAddr bool
	// LocalAddr optionally pins the local UDP endpoint ("ip:port").
	LocalAddr string

	// Trace hooks
	Trace *SessionTrace

	// Logger
	Logger *slog.Logger
}

// NewClientOptions creates ClientOptions with default values.
func NewClientOptions() *ClientOptions {
	return &ClientOptions{
		Port:               DefaultPort,
		Community:          DefaultCommunity,
		Timeout:            DefaultTimeout,
		Retries:            DefaultRetries,
		MaxOids:            DefaultMaxOids,
		MaxRepetitions:     DefaultMaxRepetitions,
		NonRepeaters:       DefaultNonRepeaters,
		ValidateSourceAddr: true,
		Trace:              DefaultTraceHooks,
	}
}

// applyOptions builds the effective configuration: defaults, then user
// options, then no-op fills for any trace hook left unset.
func applyOptions(opts []Option) *ClientOptions {
	options := NewClientOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	trace := *options.Trace
	_ = mergo.Merge(&trace, NoOpTraceHooks)
	options.Trace = &trace

	return options
}

// Option is a functional option for configuring the session.
type Option func(*ClientOptions)

// WithTarget sets the agent hostname or IP address.
func WithTarget(target string) Option {
	return func(o *ClientOptions) {
		o.Target = target
	}
}

// WithPort sets the agent port.
func WithPort(port int) Option {
	return func(o *ClientOptions) {
		o.Port = port
	}
}

// WithCommunity sets the community string.
func WithCommunity(community string) Option {
	return func(o *ClientOptions) {
		o.Community = community
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *ClientOptions) {
		o.Timeout = d
	}
}

// WithRetries sets the number of retries.
func WithRetries(n int) Option {
	return func(o *ClientOptions) {
		o.Retries = n
	}
}

// WithMaxOids sets ClientOptions.MaxOids, which no request reads.
func WithMaxOids(n int) Option {
	return func(o *ClientOptions) {
		o.MaxOids = n
	}
}

// WithMaxRepetitions sets the default max-repetitions for bulk ops.
func WithMaxRepetitions(n int) Option {
	return func(o *ClientOptions) {
		o.MaxRepetitions = n
	}
}

// WithNonRepeaters sets ClientOptions.NonRepeaters, which no bulk
// operation reads.
func WithNonRepeaters(n int) Option {
	return func(o *ClientOptions) {
		o.NonRepeaters = n
	}
}

// WithValidateSourceAddr enables or disables source address validation
// on inbound replies.
func WithValidateSourceAddr(enabled bool) Option {
	return func(o *ClientOptions) {
		o.ValidateSourceAddr = enabled
	}
}

// WithLocalAddr pins the local UDP endpoint.
func WithLocalAddr(addr string) Option {
	return func(o *ClientOptions) {
		o.LocalAddr = addr
	}
}

// WithTrace sets the session trace hooks.
func WithTrace(trace *SessionTrace) Option {
	return func(o *ClientOptions) {
		o.Trace = trace
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *ClientOptions) {
		o.Logger = logger
	}
}

// PoolOptions contains configuration options for the session pool.
type PoolOptions struct {
	// Size is the number of sessions in the pool.
	Size int
	// MaxIdleTime is the maximum time a session can be idle.
	MaxIdleTime time.Duration
	// HealthCheckInterval is the interval between health checks.
	HealthCheckInterval time.Duration
	// ClientOptions are the options for each session in the pool.
	ClientOptions []Option
}

// NewPoolOptions creates PoolOptions with default values.
func NewPoolOptions() *PoolOptions {
	return &PoolOptions{
		Size:                3,
		MaxIdleTime:         5 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
	}
}

// PoolOption is a functional option for configuring the pool.
type PoolOption func(*PoolOptions)

// WithPoolSize sets the pool size.
func WithPoolSize(size int) PoolOption {
	return func(o *PoolOptions) {
		o.Size = size
	}
}

// WithPoolMaxIdleTime sets the maximum idle time.
func WithPoolMaxIdleTime(d time.Duration) PoolOption {
	return func(o *PoolOptions) {
		o.MaxIdleTime = d
	}
}

// WithPoolHealthCheckInterval sets the health check interval.
func WithPoolHealthCheckInterval(d time.Duration) PoolOption {
	return func(o *PoolOptions) {
		o.HealthCheckInterval = d
	}
}

// WithPoolClientOptions sets session options for pool members.
func WithPoolClientOptions(opts ...Option) PoolOption {
	return func(o *PoolOptions) {
		o.ClientOptions = opts
	}
}

// TrapListenerOptions contains configuration for the trap listener.
type TrapListenerOptions struct {
	// Address is the listen address (default ":162").
	Address string
	// Communities is the set of accepted community strings. Empty
	// means accept any.
	Communities []string
	// Logger is the logger.
	Logger *slog.Logger
}

// NewTrapListenerOptions creates TrapListenerOptions with defaults.
func NewTrapListenerOptions() *TrapListenerOptions {
	return &TrapListenerOptions{
		Address: ":162",
	}
}

// TrapListenerOption is a functional option for the trap listener.
type TrapListenerOption func(*TrapListenerOptions)

// WithListenAddress sets the listen address.
func WithListenAddress(addr string) TrapListenerOption {
	return func(o *TrapListenerOptions) {
		o.Address = addr
	}
}

// WithTrapCommunities sets the accepted community strings. An empty
// set accepts any community.
func WithTrapCommunities(communities ...string) TrapListenerOption {
	return func(o *TrapListenerOptions) {
		o.Communities = communities
	}
}

// WithTrapLogger sets the logger for the trap listener.
func WithTrapLogger(logger *slog.Logger) TrapListenerOption {
	return func(o *TrapListenerOptions) {
		o.Logger = logger
	}
}
