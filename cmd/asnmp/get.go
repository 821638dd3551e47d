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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get OID [OID...]",
	Short: "Perform SNMP GET request",
	Long: `Perform an SNMP GET request to retrieve the value of one or more OIDs.

Examples:
  # Get system description
  asnmp get -t 192.168.1.1 1.3.6.1.2.1.1.1.0

  # Get multiple OIDs
  asnmp get -t 192.168.1.1 1.3.6.1.2.1.1.1.0 1.3.6.1.2.1.1.3.0 1.3.6.1.2.1.1.5.0`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

var getNextCmd = &cobra.Command{
	Use:   "getnext OID [OID...]",
	Short: "Perform SNMP GET-NEXT request",
	Long: `Perform an SNMP GET-NEXT request to retrieve the next OID in the MIB tree.

Examples:
  # Get next OID after sysDescr
  asnmp getnext -t 192.168.1.1 1.3.6.1.2.1.1.1

  # Get next for multiple OIDs
  asnmp getnext -t 192.168.1.1 1.3.6.1.2.1.1.1 1.3.6.1.2.1.1.3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGetNext,
}

var getBulkCmd = &cobra.Command{
	Use:   "getbulk OID [OID...]",
	Short: "Perform SNMP GET-BULK request",
	Long: `Perform an SNMP GET-BULK request to efficiently retrieve multiple OIDs.

Examples:
  # Get bulk with default repetitions
  asnmp getbulk -t 192.168.1.1 1.3.6.1.2.1.2.2.1

  # Get bulk with custom repetitions
  asnmp getbulk -t 192.168.1.1 --max-repetitions 25 1.3.6.1.2.1.2.2.1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGetBulk,
}

var (
	maxRepetitions int
	nonRepeaters   int
)

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(getNextCmd)
	rootCmd.AddCommand(getBulkCmd)

	getBulkCmd.Flags().IntVar(&maxRepetitions, "max-repetitions", 10, "max-repetitions value")
	getBulkCmd.Flags().IntVar(&nonRepeaters, "non-repeaters", 0, "non-repeaters value")
}

func runGet(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	oids, err := parseOIDs(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	client, err := createClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	printVerbose("Sending GET request for %d OID(s)...", len(oids))
	start := time.Now()

	vars, err := client.Get(ctx, oids...)
	if err != nil {
		return fmt.Errorf("GET failed: %w", err)
	}

	printVerbose("Response received in %s", formatDuration(time.Since(start)))

	formatter := NewFormatter(outputFormat)
	formatter.FormatVariables(vars)

	return nil
}

func runGetNext(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	oids, err := parseOIDs(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	client, err := createClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	printVerbose("Sending GET-NEXT request for %d OID(s)...", len(oids))
	start := time.Now()

	vars, err := client.GetNext(ctx, oids...)
	if err != nil {
		return fmt.Errorf("GET-NEXT failed: %w", err)
	}

	printVerbose("Response received in %s", formatDuration(time.Since(start)))

	formatter := NewFormatter(outputFormat)
	formatter.FormatVariables(vars)

	return nil
}

func runGetBulk(cmd *cobra.Command, args []string) error {
	if err := checkTarget(); err != nil {
		return err
	}

	oids, err := parseOIDs(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	client, err := createClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	printVerbose("Sending GET-BULK request (non-repeaters=%d, max-repetitions=%d)...",
		nonRepeaters, maxRepetitions)
	start := time.Now()

	vars, err := client.GetBulk(ctx, nonRepeaters, maxRepetitions, oids...)
	if err != nil {
		return fmt.Errorf("GET-BULK failed: %w", err)
	}

	printVerbose("Response received in %s (%d variables)", formatDuration(time.Since(start)), len(vars))

	formatter := NewFormatter(outputFormat)
	formatter.FormatVariables(vars)

	return nil
}
