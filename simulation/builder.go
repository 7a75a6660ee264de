package simulation

import (
	"log"

	"github.com/rs/xid"

	"github.com/sarchlab/smpsched/checkpoint"
	"github.com/sarchlab/smpsched/datarecording"
	"github.com/sarchlab/smpsched/monitoring"
	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/timing"
	"github.com/sarchlab/smpsched/tracing"
)

// DefaultZuluPollInterval is the simulation time that passes between two
// looks at the Zulu clock when only Zulu events are pending.
const DefaultZuluPollInterval = 100 * timing.Millisecond

// Builder can be used to build a simulation.
type Builder struct {
	epochStart       timing.DateTime
	missionStart     timing.DateTime
	missionStartSet  bool
	zuluClock        timing.ZuluClock
	zuluPollInterval timing.Duration
	panicPolicy      sched.PanicPolicy
	logger           *log.Logger

	monitorOn   bool
	monitorPort int

	tracePath  string
	clickHouse *datarecording.ClickHouseOptions
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		zuluPollInterval: DefaultZuluPollInterval,
		panicPolicy:      sched.PropagatePanics,
	}
}

// WithEpochStart sets the epoch time at simulation time 0.
func (b Builder) WithEpochStart(t timing.DateTime) Builder {
	b.epochStart = t
	return b
}

// WithMissionStart sets the epoch time at which the mission starts. By
// default the mission starts with the epoch.
func (b Builder) WithMissionStart(t timing.DateTime) Builder {
	b.missionStart = t
	b.missionStartSet = true
	return b
}

// WithZuluClock sets the clock Zulu events are scheduled against.
func (b Builder) WithZuluClock(c timing.ZuluClock) Builder {
	b.zuluClock = c
	return b
}

// WithZuluPollInterval sets how much simulation time passes between two looks
// at the Zulu clock when only Zulu events are pending. Zero disables polling.
func (b Builder) WithZuluPollInterval(d timing.Duration) Builder {
	b.zuluPollInterval = d
	return b
}

// WithPanicPolicy sets what the scheduler does with panicking entry points.
func (b Builder) WithPanicPolicy(p sched.PanicPolicy) Builder {
	b.panicPolicy = p
	return b
}

// WithLogger logs every firing and every change to the set of events.
func (b Builder) WithLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

// WithMonitoring starts the monitoring server. Port 0 picks a random port.
func (b Builder) WithMonitoring(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port
	return b
}

// WithTracing records every firing into path.sqlite3.
func (b Builder) WithTracing(path string) Builder {
	b.tracePath = path
	return b
}

// WithClickHouse records every firing into a ClickHouse database.
func (b Builder) WithClickHouse(opts datarecording.ClickHouseOptions) Builder {
	b.clickHouse = &opts
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.tracePath != "" && b.clickHouse != nil {
		panic("cannot trace into both SQLite and ClickHouse")
	}

	if b.zuluPollInterval < 0 {
		panic("zulu poll interval cannot be negative")
	}

	if _, err := sched.ParsePanicPolicy(b.panicPolicy.String()); err != nil {
		panic(err)
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id:               xid.New().String(),
		zuluPollInterval: b.zuluPollInterval,
		breakpoints:      checkpoint.NewStore(),
	}

	s.keeper = timing.NewKeeper(b.zuluClock)
	s.keeper.SetEpochTime(b.epochStart)

	missionStart := b.epochStart
	if b.missionStartSet {
		missionStart = b.missionStart
	}
	s.keeper.SetMissionStartTime(missionStart)

	s.scheduler = sched.NewSerialScheduler(s.keeper).
		WithPanicPolicy(b.panicPolicy)

	if b.logger != nil {
		s.scheduler.AcceptHook(sched.NewEventLogger(b.logger))
		s.scheduler.AcceptHook(sched.NewLifecycleLogger(b.logger))
	}

	s.counter = tracing.NewFiringCountTracer(tracing.AllTasks)
	tracing.CollectTrace(s.scheduler, s.counter)

	s.timer = tracing.NewExecutionTimeTracer(tracing.AllTasks)
	tracing.CollectTrace(s.scheduler, s.timer)

	err := b.buildRecorder(s)
	if err != nil {
		return nil, err
	}

	if b.monitorOn {
		b.buildMonitor(s)
	}

	return s, nil
}

func (b Builder) buildRecorder(s *Simulation) error {
	switch {
	case b.clickHouse != nil:
		recorder, err := datarecording.NewClickHouseRecorder(*b.clickHouse)
		if err != nil {
			return err
		}

		s.dataRecorder = recorder
	case b.tracePath != "":
		s.dataRecorder = datarecording.New(b.tracePath)
	default:
		return nil
	}

	s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
	s.execRecorder.Start()
	s.execRecorder.Note("Simulation ID", s.id)

	s.tracer = tracing.NewDBTracer(s.keeper, s.dataRecorder)
	tracing.CollectTrace(s.scheduler, s.tracer)
	s.tracer.EnableTracing()

	return nil
}

func (b Builder) buildMonitor(s *Simulation) {
	s.monitor = monitoring.NewMonitor()
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterTimeKeeper(s.keeper)
	s.monitor.RegisterEventSource(s.scheduler)
	s.monitor.RegisterController(s)
	s.monitor.RegisterFiringCounter(s.counter)

	if s.tracer != nil {
		s.monitor.RegisterTracer(s.tracer)
	}

	s.monitorURL = s.monitor.StartServer()
}
