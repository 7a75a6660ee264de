package main

import (
	"github.com/spf13/cobra"
)

// Environment variables that provide defaults for flags.
const (
	envMonitorPort    = "SMPSCHED_MONITOR_PORT"
	envTraceDB        = "SMPSCHED_TRACE_DB"
	envPanicPolicy    = "SMPSCHED_PANIC_POLICY"
	envClickHouseAddr = "SMPSCHED_CLICKHOUSE_ADDR"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smpsched",
	Short: "smpsched runs scheduled-event scenarios.",
	Long: `smpsched runs scenario files that describe events scheduled ` +
		`against simulation, mission, epoch and Zulu time. Flags can be ` +
		`defaulted through the environment or a .env file: ` +
		envMonitorPort + `, ` + envTraceDB + `, ` + envPanicPolicy +
		` and ` + envClickHouseAddr + `.`,
	SilenceUsage: true,
}
