package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/asnmp/asnmp/snmp"
)

// createClient creates and opens an SNMP session with the current
// configuration.
func createClient(ctx context.Context) (*snmp.Client, error) {
	client := snmp.NewClient(buildClientOptions()...)

	openCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Open(openCtx); err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}

	return client, nil
}

// buildClientOptions builds session options from the current
// configuration.
func buildClientOptions() []snmp.Option {
	opts := []snmp.Option{
		snmp.WithTarget(target),
		snmp.WithPort(port),
		snmp.WithCommunity(community),
		snmp.WithTimeout(timeout),
		snmp.WithRetries(retries),
		snmp.WithValidateSourceAddr(validateSource),
	}

	if verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		opts = append(opts, snmp.WithLogger(logger))
		opts = append(opts, snmp.WithTrace(snmp.DiagnosticTraceHooks))
	}

	return opts
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// parseOID parses an OID string.
func parseOID(s string) (snmp.OID, error) {
	return snmp.ParseOID(s)
}

// parseOIDs parses multiple OID strings.
func parseOIDs(args []string) ([]snmp.OID, error) {
	oids := make([]snmp.OID, len(args))
	for i, arg := range args {
		oid, err := snmp.ParseOID(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid OID '%s': %w", arg, err)
		}
		oids[i] = oid
	}
	return oids, nil
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// checkTarget verifies that a target is specified.
func checkTarget() error {
	if target == "" {
		return fmt.Errorf("target is required (use -t or --target)")
	}
	return nil
}
