// asnmp is a command-line SNMPv2c client for testing, debugging, and
// monitoring network devices.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
