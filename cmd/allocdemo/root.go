package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose     bool
	vectorWidth int
	deviceCount int
)

var rootCmd = &cobra.Command{
	Use:   "allocdemo",
	Short: "Exercise the asyncmem allocator against a simulated driver",
	Long: `allocdemo drives github.com/arborsys/asyncmem's Allocator against an
in-process simulated driver (internal/simdriver). Each subcommand runs one
end-to-end scenario from the allocator's design and prints what happened.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable trace-level logging")
	rootCmd.PersistentFlags().IntVar(&vectorWidth, "vector-width", 8, "JIT vector width reported to the allocator")
	rootCmd.PersistentFlags().IntVar(&deviceCount, "devices", 2, "number of simulated devices")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printSection(title string) {
	fmt.Printf("\n== %s ==\n", title)
}
