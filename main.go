// Package main is the entry point for the parcelsight application
package main

import (
	"github.com/ethpandaops/parcelsight/cmd"
)

func main() {
	cmd.Execute()
}
