package simulation

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/smpsched/datarecording"
	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/timing"
	"github.com/sarchlab/smpsched/tracing"
)

type firingLog struct {
	lock  sync.Mutex
	names []string
}

func (l *firingLog) entryPoint(name string) sched.EntryPoint {
	return sched.NewEntryPoint(name, func() {
		l.lock.Lock()
		l.names = append(l.names, name)
		l.lock.Unlock()
	})
}

func (l *firingLog) fired() []string {
	l.lock.Lock()
	defer l.lock.Unlock()

	return append([]string(nil), l.names...)
}

var _ = Describe("Builder", func() {
	It("should set up the time keeper", func() {
		s, err := MakeBuilder().
			WithEpochStart(1000).
			WithMissionStart(400).
			WithZuluClock(timing.NewManualClock(7)).
			Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.ID()).NotTo(BeEmpty())
		Expect(s.TimeKeeper().EpochTime()).To(Equal(timing.DateTime(1000)))
		Expect(s.TimeKeeper().MissionTime()).To(Equal(timing.Duration(600)))
		Expect(s.TimeKeeper().ZuluTime()).To(Equal(timing.DateTime(7)))
		Expect(s.DataRecorder()).To(BeNil())
		Expect(s.Monitor()).To(BeNil())
		Expect(s.Terminate()).To(Succeed())
	})

	It("should start the mission with the epoch by default", func() {
		s, err := MakeBuilder().WithEpochStart(1000).Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.TimeKeeper().MissionTime()).To(BeZero())
	})

	It("should reject conflicting recorders", func() {
		b := MakeBuilder().
			WithTracing("trace").
			WithClickHouse(datarecording.ClickHouseOptions{Addr: "localhost:9000"})

		Expect(func() { _, _ = b.Build() }).To(Panic())
	})

	It("should reject a negative poll interval", func() {
		b := MakeBuilder().WithZuluPollInterval(-1)

		Expect(func() { _, _ = b.Build() }).To(Panic())
	})

	It("should log firings", func() {
		buf := new(bytes.Buffer)
		s, err := MakeBuilder().WithLogger(log.New(buf, "", 0)).Build()
		Expect(err).NotTo(HaveOccurred())

		_, err = s.Scheduler().AddSimulationTimeEvent(
			sched.NewEntryPoint("ping", func() {}), 3, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.RunUntil(context.Background(), 10)).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("3, Simulation event 1 -> ping"))
	})
})

var _ = Describe("Simulation", func() {
	var (
		l     *firingLog
		clock *timing.ManualClock
		s     *Simulation
	)

	BeforeEach(func() {
		var err error

		l = &firingLog{}
		clock = timing.NewManualClock(0)
		s, err = MakeBuilder().
			WithZuluClock(clock).
			WithZuluPollInterval(timing.Millisecond).
			Build()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(s.Terminate()).To(Succeed())
	})

	It("should run events in time order and stop at the given time", func() {
		_, err := s.Scheduler().AddSimulationTimeEvent(l.entryPoint("b"), 20, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Scheduler().AddSimulationTimeEvent(l.entryPoint("a"), 10, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Scheduler().AddSimulationTimeEvent(l.entryPoint("late"), 31, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		s.Scheduler().AddImmediateEvent(l.entryPoint("now"))

		Expect(s.RunUntil(context.Background(), 30)).To(Succeed())

		Expect(l.fired()).To(Equal([]string{"now", "a", "b"}))
		Expect(s.TimeKeeper().SimulationTime()).To(Equal(timing.Duration(30)))
		Expect(s.FiringCounter().TotalCount()).To(Equal(uint64(3)))
	})

	It("should execute events scheduled at the end time", func() {
		_, err := s.Scheduler().AddSimulationTimeEvent(l.entryPoint("tick"), 10, 10, -1)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.RunUntil(context.Background(), 30)).To(Succeed())

		Expect(l.fired()).To(HaveLen(3))
		Expect(s.FiringCounter().Count("tick")).To(Equal(uint64(3)))
		Expect(s.ExecutionTimer().Of("tick").Count).To(Equal(uint64(3)))
	})

	It("should advance to the end time when nothing is scheduled", func() {
		Expect(s.RunUntil(context.Background(), 50)).To(Succeed())

		Expect(s.TimeKeeper().SimulationTime()).To(Equal(timing.Duration(50)))
	})

	It("should not skip events that became due after a tick", func() {
		_, err := s.Scheduler().AddSimulationTimeEvent(l.entryPoint("a"), 5, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Scheduler().AddSimulationTimeEvent(l.entryPoint("b"), 40, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.TimeKeeper().SetSimulationTime(10)).To(Succeed())

		done, err := s.advance(100)
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(BeFalse())
		Expect(s.TimeKeeper().SimulationTime()).To(Equal(timing.Duration(10)))

		Expect(s.RunUntil(context.Background(), 100)).To(Succeed())
		Expect(l.fired()).To(Equal([]string{"a", "b"}))
		Expect(s.TimeKeeper().SimulationTime()).To(Equal(timing.Duration(100)))
	})

	It("should refuse to run backwards", func() {
		Expect(s.RunUntil(context.Background(), 50)).To(Succeed())

		Expect(s.RunUntil(context.Background(), 40)).NotTo(Succeed())
	})

	It("should stop when the context is done", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(s.RunUntil(ctx, 50)).To(MatchError(context.Canceled))
		Expect(s.TimeKeeper().SimulationTime()).To(BeZero())
	})

	It("should poll the Zulu clock", func() {
		_, err := s.Scheduler().AddZuluTimeEvent(l.entryPoint("zulu"), 100, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Scheduler().AddSimulationTimeEvent(
			sched.NewEntryPoint("wall", func() { clock.Set(100) }),
			timing.Second, 0, 0)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.RunUntil(context.Background(), 2*timing.Second)).To(Succeed())

		Expect(l.fired()).To(Equal([]string{"zulu"}))
		Expect(s.TimeKeeper().SimulationTime()).To(Equal(2 * timing.Second))
	})

	It("should tick once on Step", func() {
		s.Scheduler().AddImmediateEvent(l.entryPoint("a"))

		Expect(s.Step()).To(Succeed())

		Expect(l.fired()).To(Equal([]string{"a"}))
		Expect(s.TimeKeeper().SimulationTime()).To(BeZero())
	})

	It("should hold a run while paused", func() {
		s.Scheduler().AddImmediateEvent(l.entryPoint("a"))
		s.Pause()
		s.Pause()
		Expect(s.IsPaused()).To(BeTrue())

		done := make(chan error)
		go func() {
			done <- s.RunUntil(context.Background(), 10)
		}()

		Consistently(l.fired, 50*time.Millisecond).Should(BeEmpty())

		s.Continue()
		s.Continue()

		Eventually(done).Should(Receive(BeNil()))
		Expect(l.fired()).To(Equal([]string{"a"}))
		Expect(s.IsPaused()).To(BeFalse())
	})

	It("should go back to a breakpoint", func() {
		registry := sched.NewEntryPointRegistry()
		tick := l.entryPoint("tick")
		registry.Register(tick)

		_, err := s.Scheduler().AddSimulationTimeEvent(tick, 10, 10, 2)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.SaveBreakpoint("start")).To(Succeed())
		Expect(s.Breakpoints()).To(Equal([]string{"start"}))
		Expect(s.RunUntil(context.Background(), 100)).To(Succeed())
		Expect(l.fired()).To(HaveLen(3))

		Expect(s.RestoreBreakpoint("start", registry)).To(Succeed())
		Expect(s.TimeKeeper().SimulationTime()).To(BeZero())

		Expect(s.RunUntil(context.Background(), 100)).To(Succeed())
		Expect(l.fired()).To(HaveLen(6))

		Expect(s.RestoreBreakpoint("missing", registry)).NotTo(Succeed())
	})

	It("should go back to a breakpoint file", func() {
		registry := sched.NewEntryPointRegistry()
		tick := l.entryPoint("tick")
		registry.Register(tick)

		_, err := s.Scheduler().AddSimulationTimeEvent(tick, 10, 0, 0)
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "bp")
		Expect(s.SaveBreakpointFile(path)).To(Succeed())
		Expect(s.RunUntil(context.Background(), 20)).To(Succeed())
		Expect(s.Scheduler().NumEvents()).To(BeZero())

		Expect(s.LoadBreakpointFile(context.Background(), path+".sqlite3", registry)).
			To(Succeed())
		Expect(s.Scheduler().NumEvents()).To(Equal(1))
		Expect(s.TimeKeeper().SimulationTime()).To(BeZero())
	})
})

var _ = Describe("Simulation with tracing", func() {
	It("should record firings and execution info", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		s, err := MakeBuilder().WithTracing(path).Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Tracer().IsTracing()).To(BeTrue())

		_, err = s.Scheduler().AddSimulationTimeEvent(
			sched.NewEntryPoint("tick", func() {}), 1, 1, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.RunUntil(context.Background(), 10)).To(Succeed())
		Expect(s.Terminate()).To(Succeed())
		Expect(s.Terminate()).To(Succeed())

		reader := datarecording.NewReader(path + ".sqlite3")
		defer reader.Close()

		reader.MapTable("firing1", tracing.FiringEntry{})
		_, n, err := reader.Query(context.Background(), "firing1",
			datarecording.QueryParams{Where: "What = ?", Args: []any{"tick"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(5))

		reader.MapTable(datarecording.ExecTableName, datarecording.ExecInfo{})
		_, n, err = reader.Query(context.Background(), datarecording.ExecTableName,
			datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeNumerically(">=", 4))
	})
})
