// Command devicecap serves the subscription and device capacity API and runs
// its maintenance jobs.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
