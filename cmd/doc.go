// Package cmd implements the command-line interface for the rcu container
// library. It provides a small command tree around the perf subcommand,
// which benchmarks the container variants in process.
//
// The package is organized into subpackages:
//
//   - perf: Commands for benchmarking the container variants
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See rcu -help for a list of all commands.
package cmd
