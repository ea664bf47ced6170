// Command seed upserts the plan catalogue and tax rates from YAML files.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
