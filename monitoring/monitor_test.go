package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/timing"
	"github.com/sarchlab/smpsched/tracing"
)

var _ = Describe("Monitor", func() {
	var (
		mockCtrl   *gomock.Controller
		events     *MockEventSource
		controller *MockController
		tracer     *MockTraceController
		keeper     *timing.Keeper
		m          *Monitor
		router     *mux.Router
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		events = NewMockEventSource(mockCtrl)
		controller = NewMockController(mockCtrl)
		tracer = NewMockTraceController(mockCtrl)
		keeper = timing.NewKeeper(timing.NewManualClock(timing.DateTime(timing.Hour)))

		m = NewMonitor()
		router = m.router()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(rec, req)

		return rec
	}

	It("should fall back to a random port for reserved ports", func() {
		Expect(m.WithPortNumber(80).portNumber).To(BeZero())
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should list the endpoints", func() {
		rsp := get("/")

		var list []string
		Expect(json.Unmarshal(rsp.Body.Bytes(), &list)).To(Succeed())
		Expect(list).To(ContainElement("/api/now"))
	})

	It("should report 404 when nothing is registered", func() {
		Expect(get("/api/now").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/events").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/pause").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/trace/start").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/firings").Code).To(Equal(http.StatusNotFound))
	})

	It("should report all four times", func() {
		keeper.SetMissionStartTime(timing.DateTime(-10))
		Expect(keeper.SetSimulationTime(5)).To(Succeed())
		m.RegisterTimeKeeper(keeper)

		rsp := get("/api/now")

		var now nowRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &now)).To(Succeed())
		Expect(now.Simulation).To(Equal(int64(5)))
		Expect(now.Epoch).To(Equal(int64(5)))
		Expect(now.Mission).To(Equal(int64(15)))
		Expect(now.Zulu).To(Equal(int64(timing.Hour)))
		Expect(now.ZuluText).To(Equal("2000-01-01T13:00:00Z"))
	})

	It("should list events", func() {
		m.RegisterEventSource(events)
		events.EXPECT().Events().Return([]sched.EventRecord{
			{ID: 1, Name: "a", Base: sched.BaseSimulation, Posted: true},
		})

		rsp := get("/api/events")

		var recs []sched.EventRecord
		Expect(json.Unmarshal(rsp.Body.Bytes(), &recs)).To(Succeed())
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].Name).To(Equal("a"))
	})

	It("should serialize a single event", func() {
		m.RegisterEventSource(events)
		events.EXPECT().Event(sched.EventID(3)).
			Return(sched.EventRecord{ID: 3, Name: "tick"}, nil)

		rsp := get("/api/event/3")

		Expect(rsp.Code).To(Equal(http.StatusOK))
		Expect(rsp.Body.String()).To(ContainSubstring("tick"))
	})

	It("should reject unknown and malformed event ids", func() {
		m.RegisterEventSource(events)
		events.EXPECT().Event(sched.EventID(9)).
			Return(sched.EventRecord{}, &sched.InvalidEventIDError{ID: 9})

		Expect(get("/api/event/9").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/event/x").Code).To(Equal(http.StatusBadRequest))
	})

	It("should report the next event times", func() {
		m.RegisterEventSource(events)
		events.EXPECT().NextScheduledEventTime().Return(timing.Duration(42), true)
		events.EXPECT().NextZuluEventTime().Return(timing.DateTime(0), false)

		rsp := get("/api/next")

		var next nextRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &next)).To(Succeed())
		Expect(next).To(Equal(nextRsp{Simulation: 42, HasSimulation: true}))
	})

	It("should report the current event", func() {
		m.RegisterEventSource(events)
		events.EXPECT().CurrentEventID().Return(sched.NoEvent)

		rsp := get("/api/current")

		Expect(rsp.Body.String()).To(Equal(`{"event_id":-1}`))
	})

	It("should pause and continue", func() {
		m.RegisterController(controller)

		gomock.InOrder(
			controller.EXPECT().Pause(),
			controller.EXPECT().IsPaused().Return(true),
			controller.EXPECT().Continue(),
			controller.EXPECT().IsPaused().Return(false),
		)

		Expect(get("/api/pause").Body.String()).
			To(Equal(`{"paused":true,"tracing":false}`))
		Expect(get("/api/continue").Body.String()).
			To(Equal(`{"paused":false,"tracing":false}`))
	})

	It("should start and stop tracing", func() {
		m.RegisterTracer(tracer)

		gomock.InOrder(
			tracer.EXPECT().EnableTracing(),
			tracer.EXPECT().IsTracing().Return(true),
			tracer.EXPECT().StopTracing(),
			tracer.EXPECT().IsTracing().Return(false),
		)

		Expect(get("/api/trace/start").Body.String()).
			To(Equal(`{"paused":false,"tracing":true}`))
		Expect(get("/api/trace/stop").Body.String()).
			To(Equal(`{"paused":false,"tracing":false}`))
	})

	It("should list firing counts", func() {
		counter := tracing.NewFiringCountTracer(tracing.AllTasks)
		counter.StartTask(tracing.Task{ID: "1", What: "a"})
		counter.StartTask(tracing.Task{ID: "2", What: "a"})
		m.RegisterFiringCounter(counter)

		Expect(get("/api/firings").Body.String()).
			To(Equal(`[{"name":"a","count":2}]`))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("run", 100)
		bar.SetFinished(40)

		var bars []progressRsp
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Finished).To(Equal(uint64(40)))

		m.CompleteProgressBar(bar)

		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should report process resources", func() {
		var rsp resourceRsp
		Expect(json.Unmarshal(get("/api/resource").Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})
})

var _ = Describe("ProgressBar", func() {
	It("should clamp at the total", func() {
		bar := &ProgressBar{Total: 10}

		bar.IncrementFinished(4)
		Expect(bar.Fraction()).To(BeNumerically("~", 0.4))

		bar.SetFinished(20)
		Expect(bar.Finished).To(Equal(uint64(10)))
		Expect(bar.Fraction()).To(Equal(1.0))
	})

	It("should count an empty bar as done", func() {
		Expect((&ProgressBar{}).Fraction()).To(Equal(1.0))
	})
})
