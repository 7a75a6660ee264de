// Package simulation drives a scheduler through simulation time.
//
// A Simulation owns the time keeper and the scheduler. It ticks the scheduler,
// then moves simulation time to the next event, until a given time is
// reached. Zulu events are served by looking at the Zulu clock at a fixed
// simulation-time interval whenever they are the only events pending.
package simulation

import (
	"context"
	"fmt"
	"sync"

	"github.com/sarchlab/smpsched/checkpoint"
	"github.com/sarchlab/smpsched/datarecording"
	"github.com/sarchlab/smpsched/monitoring"
	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/timing"
	"github.com/sarchlab/smpsched/tracing"
)

// A Simulation provides the services required to run scheduled events.
type Simulation struct {
	id               string
	keeper           *timing.Keeper
	scheduler        *sched.SerialScheduler
	zuluPollInterval timing.Duration

	dataRecorder datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	tracer       *tracing.DBTracer
	counter      *tracing.FiringCountTracer
	timer        *tracing.ExecutionTimeTracer
	monitor      *monitoring.Monitor
	monitorURL   string
	breakpoints  *checkpoint.Store

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	terminateOnce sync.Once
	terminateErr  error
}

// ID returns the ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// TimeKeeper returns the time keeper of the simulation.
func (s *Simulation) TimeKeeper() *timing.Keeper {
	return s.keeper
}

// Scheduler returns the scheduler of the simulation.
func (s *Simulation) Scheduler() *sched.SerialScheduler {
	return s.scheduler
}

// DataRecorder returns the recorder firings are traced into, or nil if
// tracing is off.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Tracer returns the firing tracer, or nil if tracing is off.
func (s *Simulation) Tracer() *tracing.DBTracer {
	return s.tracer
}

// FiringCounter returns the tracer that counts firings per entry point.
func (s *Simulation) FiringCounter() *tracing.FiringCountTracer {
	return s.counter
}

// ExecutionTimer returns the tracer that measures how long entry points run.
func (s *Simulation) ExecutionTimer() *tracing.ExecutionTimeTracer {
	return s.timer
}

// Monitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns where the monitor serves, or an empty string.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// Step ticks the scheduler once at the current time.
func (s *Simulation) Step() error {
	s.singleRunLock.Lock()
	defer s.singleRunLock.Unlock()

	s.pauseLock.Lock()
	defer s.pauseLock.Unlock()

	return s.scheduler.Tick()
}

// RunUntil executes events until simulation time reaches until. Events
// scheduled at until are executed. RunUntil returns early if ctx is done or
// if an entry point failed. While paused, RunUntil blocks.
func (s *Simulation) RunUntil(ctx context.Context, until timing.Duration) error {
	s.singleRunLock.Lock()
	defer s.singleRunLock.Unlock()

	start := s.keeper.SimulationTime()
	if until < start {
		return fmt.Errorf("simulation: cannot run until %d, already at %d",
			until, start)
	}

	bar := s.createProgressBar(start, until)
	defer s.completeProgressBar(bar)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := s.runOnce(until)

		if bar != nil {
			bar.SetFinished(uint64(s.keeper.SimulationTime() - start))
		}

		if err != nil || done {
			return err
		}
	}
}

func (s *Simulation) runOnce(until timing.Duration) (done bool, err error) {
	s.pauseLock.Lock()
	defer s.pauseLock.Unlock()

	err = s.scheduler.Tick()
	if err != nil {
		return true, err
	}

	return s.advance(until)
}

// advance moves simulation time to the next tick. Time stays where it is if
// something became due since the last tick, for example an event added by
// another goroutine.
func (s *Simulation) advance(until timing.Duration) (done bool, err error) {
	now := s.keeper.SimulationTime()

	target, ok := s.nextTime(now)

	switch {
	case ok && target <= now:
		return false, nil
	case !ok || target > until:
		return true, s.keeper.SetSimulationTime(until)
	default:
		return false, s.keeper.SetSimulationTime(target)
	}
}

// nextTime returns the simulation time the next tick should happen at.
func (s *Simulation) nextTime(now timing.Duration) (timing.Duration, bool) {
	next, ok := s.scheduler.NextScheduledEventTime()

	if _, zulu := s.scheduler.NextZuluEventTime(); zulu && s.zuluPollInterval > 0 {
		poll, _ := timing.AddSaturating(int64(now), int64(s.zuluPollInterval))
		if !ok || timing.Duration(poll) < next {
			next, ok = timing.Duration(poll), true
		}
	}

	return next, ok
}

func (s *Simulation) createProgressBar(
	start, until timing.Duration,
) *monitoring.ProgressBar {
	if s.monitor == nil {
		return nil
	}

	return s.monitor.CreateProgressBar(
		fmt.Sprintf("run until %s", until), uint64(until-start))
}

func (s *Simulation) completeProgressBar(bar *monitoring.ProgressBar) {
	if bar == nil {
		return
	}

	s.monitor.CompleteProgressBar(bar)
}

// Pause stops the simulation before its next tick. It must not be called from
// an entry point.
func (s *Simulation) Pause() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if s.isPaused {
		return
	}

	s.pauseLock.Lock()
	s.isPaused = true
}

// Continue resumes a paused simulation.
func (s *Simulation) Continue() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if !s.isPaused {
		return
	}

	s.pauseLock.Unlock()
	s.isPaused = false
}

// IsPaused tells if the simulation is paused.
func (s *Simulation) IsPaused() bool {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	return s.isPaused
}

// SaveBreakpoint keeps the current state in memory under name.
func (s *Simulation) SaveBreakpoint(name string) error {
	s.singleRunLock.Lock()
	defer s.singleRunLock.Unlock()

	return s.breakpoints.Save(name, checkpoint.Take(s.keeper, s.scheduler))
}

// RestoreBreakpoint goes back to a state saved with SaveBreakpoint.
func (s *Simulation) RestoreBreakpoint(
	name string,
	resolver sched.EntryPointResolver,
) error {
	s.singleRunLock.Lock()
	defer s.singleRunLock.Unlock()

	snap, err := s.breakpoints.Load(name)
	if err != nil {
		return err
	}

	return checkpoint.Apply(snap, s.keeper, s.scheduler, resolver)
}

// Breakpoints lists the names of the breakpoints kept in memory.
func (s *Simulation) Breakpoints() []string {
	return s.breakpoints.Names()
}

// SaveBreakpointFile writes the current state into path.sqlite3.
func (s *Simulation) SaveBreakpointFile(path string) error {
	s.singleRunLock.Lock()
	defer s.singleRunLock.Unlock()

	return checkpoint.SaveFile(path, checkpoint.Take(s.keeper, s.scheduler))
}

// LoadBreakpointFile restores the state stored in a breakpoint file.
func (s *Simulation) LoadBreakpointFile(
	ctx context.Context,
	filename string,
	resolver sched.EntryPointResolver,
) error {
	s.singleRunLock.Lock()
	defer s.singleRunLock.Unlock()

	snap, err := checkpoint.LoadFile(ctx, filename)
	if err != nil {
		return err
	}

	return checkpoint.Apply(snap, s.keeper, s.scheduler, resolver)
}

// Terminate ends tracing and closes the data recorder. Calling it more than
// once has no further effect.
func (s *Simulation) Terminate() error {
	s.terminateOnce.Do(func() {
		if s.dataRecorder == nil {
			return
		}

		s.tracer.Terminate()
		s.execRecorder.End()
		s.terminateErr = s.dataRecorder.Close()
	})

	return s.terminateErr
}
