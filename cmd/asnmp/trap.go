package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/asnmp/asnmp/snmp"
	"github.com/spf13/cobra"
)

var trapListenCmd = &cobra.Command{
	Use:   "trap-listen",
	Short: "Listen for SNMP traps",
	Long: `Start a listener to receive SNMPv2c trap notifications.

By default, listens on port 162 (the standard SNMP trap port).
Note: Port 162 typically requires root/administrator privileges.

Examples:
  # Listen on default port (162)
  sudo asnmp trap-listen

  # Listen on alternate port
  asnmp trap-listen --listen ":1162"

  # Listen with community filter
  asnmp trap-listen --trap-community private --trap-community ops`,
	RunE: runTrapListen,
}

var (
	listenAddress   string
	trapCommunities []string
)

func init() {
	rootCmd.AddCommand(trapListenCmd)

	trapListenCmd.Flags().StringVar(&listenAddress, "listen", ":162", "listen address (host:port)")
	trapListenCmd.Flags().StringArrayVar(&trapCommunities, "trap-community", nil, "accepted community string (repeatable, empty = accept all)")
}

func runTrapListen(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting SNMP trap listener on %s\n", listenAddress)
	if len(trapCommunities) > 0 {
		fmt.Printf("Accepting communities: %v\n", trapCommunities)
	}
	fmt.Println("Press Ctrl+C to stop...")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	formatter := NewFormatter(outputFormat)

	listener := snmp.NewTrapListener(
		func(trap *snmp.TrapMessage) {
			formatter.FormatTrap(trap)
		},
		snmp.WithListenAddress(listenAddress),
		snmp.WithTrapCommunities(trapCommunities...),
	)

	err := listener.Run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}
