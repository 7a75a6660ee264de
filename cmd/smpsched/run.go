package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/smpsched/datarecording"
	"github.com/sarchlab/smpsched/scenario"
	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/simulation"
	"github.com/sarchlab/smpsched/timing"
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario file.",
	Long: "`run` installs the events of a scenario and runs them until the " +
		"scenario's end time. Firings are logged to stderr and counted on " +
		"stdout at the end.",
	Args: cobra.ExactArgs(1),
	RunE: runScenario,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.BoolP("quiet", "q", false, "Do not log firings.")
	f.Var(new(scenario.Duration), "until", "Override the end time of the scenario.")
	f.Bool("monitor", false, "Serve the monitoring API.")
	f.Int("monitor-port", 0,
		"Port of the monitoring API. Implies --monitor. Env: "+envMonitorPort)
	f.Bool("open", false, "Open the monitoring API in a browser.")
	f.String("trace", "",
		"Trace firings into <path>.sqlite3. Env: "+envTraceDB)
	f.String("clickhouse", "",
		"Trace firings into the ClickHouse server at addr. Env: "+envClickHouseAddr)
	f.String("clickhouse-db", "default", "ClickHouse database.")
	f.String("panic-policy", "",
		"propagate or recover. Overrides the scenario. Env: "+envPanicPolicy)
	f.String("resume", "", "Restore a breakpoint file before running.")
	f.String("breakpoint", "",
		"Write a breakpoint into <path>.sqlite3 after the run.")
}

// stringFlag returns the flag value, or the environment variable if the flag
// was not given.
func stringFlag(cmd *cobra.Command, name, env string) string {
	v, _ := cmd.Flags().GetString(name)
	if !cmd.Flags().Changed(name) && env != "" {
		if e, ok := os.LookupEnv(env); ok {
			return e
		}
	}

	return v
}

func monitorPort(cmd *cobra.Command) (int, bool, error) {
	on, _ := cmd.Flags().GetBool("monitor")

	if cmd.Flags().Changed("monitor-port") {
		port, _ := cmd.Flags().GetInt("monitor-port")
		return port, true, nil
	}

	if e, ok := os.LookupEnv(envMonitorPort); ok && e != "" {
		port, err := strconv.Atoi(e)
		if err != nil {
			return 0, false, fmt.Errorf("%s: %w", envMonitorPort, err)
		}

		return port, true, nil
	}

	return 0, on, nil
}

func buildSimulation(
	cmd *cobra.Command,
	s *scenario.Scenario,
	logger *log.Logger,
) (*simulation.Simulation, error) {
	b := s.Builder(simulation.MakeBuilder())

	if policy := stringFlag(cmd, "panic-policy", envPanicPolicy); policy != "" {
		p, err := sched.ParsePanicPolicy(policy)
		if err != nil {
			return nil, err
		}

		b = b.WithPanicPolicy(p)
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	if !quiet {
		b = b.WithLogger(logger)
	}

	port, on, err := monitorPort(cmd)
	if err != nil {
		return nil, err
	}

	if on {
		b = b.WithMonitoring(port)
	}

	if addr := stringFlag(cmd, "clickhouse", envClickHouseAddr); addr != "" {
		db, _ := cmd.Flags().GetString("clickhouse-db")
		b = b.WithClickHouse(datarecording.ClickHouseOptions{
			Addr:     addr,
			Database: db,
		})
	} else if path := stringFlag(cmd, "trace", envTraceDB); path != "" {
		b = b.WithTracing(path)
	}

	return b.Build()
}

func endTime(cmd *cobra.Command, s *scenario.Scenario) (timing.Duration, error) {
	until := timing.Duration(s.Until)

	if flag := cmd.Flags().Lookup("until"); flag.Changed {
		until = timing.Duration(*flag.Value.(*scenario.Duration))
	}

	if until < 0 {
		return 0, fmt.Errorf("the end time cannot be negative")
	}

	return until, nil
}

func runScenario(cmd *cobra.Command, args []string) (err error) {
	s, err := scenario.LoadFile(args[0])
	if err != nil {
		return err
	}

	until, err := endTime(cmd, s)
	if err != nil {
		return err
	}

	logger := log.New(cmd.ErrOrStderr(), "", 0)
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		logger.SetOutput(io.Discard)
	}

	sim, err := buildSimulation(cmd, s, logger)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, sim.Terminate())
	}()

	in, err := s.Install(sim.Scheduler(), sim.TimeKeeper(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if resume, _ := cmd.Flags().GetString("resume"); resume != "" {
		err = sim.LoadBreakpointFile(ctx, resume, in.Registry())
		if err != nil {
			return err
		}

		in.Rebind(sim.Scheduler().Events())
	}

	if url := sim.MonitorURL(); url != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Monitoring simulation with %s\n", url)
	}

	if open, _ := cmd.Flags().GetBool("open"); open && sim.MonitorURL() != "" {
		if err := browser.OpenURL(sim.MonitorURL()); err != nil {
			logger.Printf("cannot open browser: %v", err)
		}
	}

	runErr := sim.RunUntil(ctx, until)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if path, _ := cmd.Flags().GetString("breakpoint"); path != "" {
		if err := sim.SaveBreakpointFile(path); err != nil {
			return err
		}
	}

	printSummary(cmd.OutOrStdout(), sim)

	return runErr
}

func printSummary(w io.Writer, sim *simulation.Simulation) {
	counter := sim.FiringCounter()
	timer := sim.ExecutionTimer()

	fmt.Fprintf(w, "simulation time %s, %d firings\n",
		sim.TimeKeeper().SimulationTime(), counter.TotalCount())

	for _, name := range counter.Names() {
		fmt.Fprintf(w, "%s\t%d\t%s\n",
			name, counter.Count(name), timer.Of(name).Average())
	}
}
