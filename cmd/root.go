package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unguarded/rcu/cmd/perf"
	"github.com/unguarded/rcu/cmd/util"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "rcu",
		Short: "read-copy-update smart containers",
		Long: fmt.Sprintf(`rcu (v%s)

A library of read-copy-update containers for Go, covering eager,
version-chained and grace-period reclamation across exclusive and
shared ownership. This binary bundles the library's tooling.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of rcu",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rcu v%s\n", Version)
		},
	}
)

func init() {
	// read env files and environment variables before any command runs
	util.InitEnvConfig()

	// Add Commands
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
