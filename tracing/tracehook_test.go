package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/timing"
)

var _ = Describe("CollectTrace", func() {
	var (
		mockCtrl  *gomock.Controller
		tracer    *MockTracer
		keeper    *timing.Keeper
		scheduler *sched.SerialScheduler
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockTracer(mockCtrl)
		keeper = timing.NewKeeper(timing.NewManualClock(0))
		scheduler = sched.NewSerialScheduler(keeper)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should panic if the tracer is attached twice", func() {
		CollectTrace(scheduler, tracer)

		Expect(func() { CollectTrace(scheduler, tracer) }).To(Panic())
	})

	It("should start and end a task around every firing", func() {
		CollectTrace(scheduler, tracer)

		executed := false
		_, err := scheduler.AddSimulationTimeEvent(
			sched.NewEntryPoint("ping", func() { executed = true }), 5, 0, 0)
		Expect(err).NotTo(HaveOccurred())

		var started Task
		gomock.InOrder(
			tracer.EXPECT().StartTask(gomock.Any()).Do(func(task Task) {
				Expect(executed).To(BeFalse())
				started = task
			}),
			tracer.EXPECT().EndTask(gomock.Any()).Do(func(task Task) {
				Expect(executed).To(BeTrue())
				Expect(task.ID).To(Equal(started.ID))
				Expect(task.EndTime).NotTo(BeTemporally("<", task.StartTime))
			}),
		)

		Expect(keeper.SetSimulationTime(5)).To(Succeed())
		Expect(scheduler.Tick()).To(Succeed())

		Expect(started.ID).NotTo(BeEmpty())
		Expect(started.What).To(Equal("ping"))
		Expect(started.Kind).To(Equal(sched.BaseSimulation.String()))
		Expect(started.SimulationTime).To(Equal(timing.Duration(5)))
	})

	It("should give each firing of a repeating event its own task", func() {
		CollectTrace(scheduler, tracer)

		_, err := scheduler.AddSimulationTimeEvent(
			sched.NewEntryPoint("tick", func() {}), 1, 1, 1)
		Expect(err).NotTo(HaveOccurred())

		ids := map[string]bool{}
		tracer.EXPECT().StartTask(gomock.Any()).Do(func(task Task) {
			ids[task.ID] = true
		}).Times(2)
		tracer.EXPECT().EndTask(gomock.Any()).Times(2)

		for _, now := range []timing.Duration{1, 2, 3} {
			Expect(keeper.SetSimulationTime(now)).To(Succeed())
			Expect(scheduler.Tick()).To(Succeed())
		}

		Expect(ids).To(HaveLen(2))
	})
})
