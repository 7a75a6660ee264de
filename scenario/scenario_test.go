package scenario

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/simulation"
	"github.com/sarchlab/smpsched/timing"
)

const sample = `
epoch_start: "2024-01-01T00:00:00Z"
until: 5s
panic_policy: recover
events:
  - name: boot
    kind: immediate
    then:
      - log: booting
  - name: heartbeat
    kind: simulation
    time: 1s
    cycle: 1s
    repeat: -1
  - name: stop
    kind: mission
    time: 3500ms
    then:
      - remove: heartbeat
      - add: report
  - name: report
    kind: simulation
    time: 500ms
    standby: true
`

var _ = Describe("Reading", func() {
	It("should parse a scenario", func() {
		s, err := Read(strings.NewReader(sample))
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Until).To(Equal(Duration(5 * timing.Second)))
		Expect(s.Events).To(HaveLen(4))
		Expect(s.Events[1].Cycle).To(Equal(Duration(timing.Second)))
		Expect(s.Events[1].Repeat).To(Equal(int64(-1)))
		Expect(s.Events[2].Then).To(Equal([]Action{
			{Remove: "heartbeat"},
			{Add: "report"},
		}))
		Expect(s.Events[3].Standby).To(BeTrue())
	})

	It("should load a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "scenario.yaml")
		Expect(os.WriteFile(path, []byte(sample), 0o600)).To(Succeed())

		s, err := LoadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.PanicPolicy).To(Equal("recover"))

		_, err = LoadFile(path + ".missing")
		Expect(err).To(HaveOccurred())
	})

	It("should reject unknown fields", func() {
		_, err := Read(strings.NewReader("until: 1s\nevnts: []\n"))

		Expect(err).To(HaveOccurred())
	})

	It("should accept durations in nanoseconds", func() {
		var d Duration
		Expect(yaml.Unmarshal([]byte("1500"), &d)).To(Succeed())
		Expect(d).To(Equal(Duration(1500)))

		Expect(yaml.Unmarshal([]byte("soon"), &d)).NotTo(Succeed())

		out, err := yaml.Marshal(Duration(timing.Minute))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal("1m0s\n"))
	})

	DescribeTable("should reject invalid scenarios",
		func(text, problem string) {
			_, err := Read(strings.NewReader(text))

			Expect(err).To(MatchError(ErrInvalid))
			Expect(err.Error()).To(ContainSubstring(problem))
		},
		Entry("duplicate names", `
events:
  - {name: a, kind: immediate}
  - {name: a, kind: immediate}
`, "defined twice"),
		Entry("unknown kind", `
events:
  - {name: a, kind: weekly}
`, "unknown kind"),
		Entry("immediate with a time", `
events:
  - {name: a, kind: immediate, time: 1s}
`, "no time"),
		Entry("epoch without a time", `
events:
  - {name: a, kind: epoch}
`, "need a time"),
		Entry("unknown action target", `
events:
  - name: a
    kind: immediate
    then: [{remove: b}]
`, "unknown event b"),
		Entry("action with two verbs", `
events:
  - name: a
    kind: immediate
    then: [{remove: a, log: x}]
`, "exactly one"),
		Entry("bad epoch", `
epoch_start: yesterday
`, "epoch_start"),
		Entry("bad panic policy", `
panic_policy: ignore
`, "panic policy"),
		Entry("missing name", `
events:
  - {kind: immediate}
`, "no name"),
	)
})

var _ = Describe("Installation", func() {
	var (
		buf *bytes.Buffer
		s   *Scenario
		sim *simulation.Simulation
	)

	BeforeEach(func() {
		var err error

		buf = new(bytes.Buffer)
		s, err = Read(strings.NewReader(sample))
		Expect(err).NotTo(HaveOccurred())

		sim, err = s.Builder(simulation.MakeBuilder()).Build()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(sim.Terminate()).To(Succeed())
	})

	It("should apply the time settings", func() {
		epoch := timing.DateTimeFromTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

		Expect(sim.TimeKeeper().EpochTime()).To(Equal(epoch))
		Expect(sim.TimeKeeper().MissionTime()).To(BeZero())
	})

	It("should run the scenario", func() {
		in, err := s.Install(sim.Scheduler(), sim.TimeKeeper(), log.New(buf, "", 0))
		Expect(err).NotTo(HaveOccurred())
		Expect(sim.Scheduler().NumEvents()).To(Equal(3))

		_, standby := in.EventID("report")
		Expect(standby).To(BeFalse())

		Expect(sim.RunUntil(context.Background(), timing.Duration(s.Until))).
			To(Succeed())

		counter := sim.FiringCounter()
		Expect(counter.Names()).To(Equal([]string{"boot", "heartbeat", "stop", "report"}))
		Expect(counter.Count("heartbeat")).To(Equal(uint64(3)))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines[0]).To(Equal("0, fired boot (event 1)"))
		Expect(lines[1]).To(Equal("0, boot: booting"))
		Expect(lines[len(lines)-1]).To(Equal("4000000000, fired report (event 4)"))

		id, ok := in.EventID("report")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(sched.EventID(4)))
	})

	It("should log removing an event that is gone", func() {
		in, err := s.Install(sim.Scheduler(), sim.TimeKeeper(), log.New(buf, "", 0))
		Expect(err).NotTo(HaveOccurred())

		id, _ := in.EventID("heartbeat")
		Expect(sim.Scheduler().RemoveEvent(id)).To(Succeed())

		Expect(sim.RunUntil(context.Background(), 4*timing.Second)).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("stop: heartbeat was already gone"))
		Expect(in.Remove("boot")).NotTo(Succeed())
	})

	It("should rebind names to restored events", func() {
		in, err := s.Install(sim.Scheduler(), sim.TimeKeeper(), log.New(buf, "", 0))
		Expect(err).NotTo(HaveOccurred())

		in.Rebind([]sched.EventRecord{
			{ID: 9, Name: "heartbeat"},
			{ID: 7, Name: "heartbeat"},
			{ID: 8, Name: "report"},
			{ID: 3, Name: "stranger"},
		})

		id, ok := in.EventID("heartbeat")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(sched.EventID(9)))

		id, ok = in.EventID("report")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(sched.EventID(8)))

		_, ok = in.EventID("boot")
		Expect(ok).To(BeFalse())
		_, ok = in.EventID("stranger")
		Expect(ok).To(BeFalse())
	})

	It("should resolve its entry points by name", func() {
		in, err := s.Install(sim.Scheduler(), sim.TimeKeeper(), log.New(buf, "", 0))
		Expect(err).NotTo(HaveOccurred())

		Expect(in.Registry().Names()).
			To(Equal([]string{"boot", "heartbeat", "report", "stop"}))
		Expect(in.Add("missing")).NotTo(Succeed())
	})
})
