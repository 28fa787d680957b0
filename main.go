// =============================================================================
// TTC Price Export - Main Entry Point
// =============================================================================
//
// USAGE:
//   ttcexport export    - Download and convert every region
//   ttcexport convert   - Convert a price table file on disk
//   ttcexport lookup    - Convert an item lookup table file
//   ttcexport load      - Load exported CSV files into MySQL
//   ttcexport version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Conversion, download, output and storage packages
//   - pkg/utils/     : Output folder management
//
// =============================================================================

package main

import (
	"github.com/ttc-tools/ttc-price-export/cmd"
)

func main() {
	cmd.Execute()
}
