package sched

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventStore", func() {
	var store *EventStore

	BeforeEach(func() {
		store = NewEventStore()
	})

	It("should start ids at 1", func() {
		id := store.Create(EntryPointFunc(func() {}), BaseSimulation, 0, 0)

		Expect(id).To(Equal(EventID(1)))
		Expect(store.Contains(id)).To(BeTrue())
	})

	It("should create unposted events", func() {
		id := store.Create(EntryPointFunc(func() {}), BaseSimulation, 5, 2)

		e, err := store.Get(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.TriggerTime).To(Equal(Unposted))
		Expect(e.CycleTime).To(BeEquivalentTo(5))
		Expect(e.Repeat).To(Equal(int64(2)))
	})

	It("should never reuse ids", func() {
		id1 := store.Create(EntryPointFunc(func() {}), BaseSimulation, 0, 0)
		Expect(store.Remove(id1)).To(Succeed())

		id2 := store.Create(EntryPointFunc(func() {}), BaseSimulation, 0, 0)

		Expect(id2).To(BeNumerically(">", id1))
	})

	It("should stamp increasing sequence numbers", func() {
		id1 := store.Create(EntryPointFunc(func() {}), BaseSimulation, 0, 0)
		id2 := store.Create(EntryPointFunc(func() {}), BaseZulu, 0, 0)

		e1, _ := store.Get(id1)
		e2, _ := store.Get(id2)

		Expect(e2.Sequence).To(BeNumerically(">", e1.Sequence))
	})

	It("should fail on unknown ids", func() {
		_, err := store.Get(3)
		Expect(errors.Is(err, ErrInvalidEventID)).To(BeTrue())

		err = store.Remove(3)
		Expect(errors.Is(err, ErrInvalidEventID)).To(BeTrue())
	})

	It("should list events in id order", func() {
		for i := 0; i < 4; i++ {
			store.Create(EntryPointFunc(func() {}), BaseSimulation, 0, 0)
		}
		Expect(store.Remove(2)).To(Succeed())

		var ids []EventID
		for _, e := range store.All() {
			ids = append(ids, e.ID)
		}

		Expect(ids).To(Equal([]EventID{1, 3, 4}))
		Expect(store.Len()).To(Equal(3))
	})

	It("should not move counters backwards", func() {
		store.Create(EntryPointFunc(func() {}), BaseSimulation, 0, 0)
		store.Create(EntryPointFunc(func() {}), BaseSimulation, 0, 0)

		store.advanceCounters(1, 1)
		id := store.Create(EntryPointFunc(func() {}), BaseSimulation, 0, 0)

		Expect(id).To(Equal(EventID(3)))
	})

	It("should track mission and epoch events", func() {
		sim := store.Create(EntryPointFunc(func() {}), BaseSimulation, 0, 0)
		Expect(store.HasOffsetEvents()).To(BeFalse())

		mission := store.Create(EntryPointFunc(func() {}), BaseMission, 0, 0)
		epoch := store.Create(EntryPointFunc(func() {}), BaseEpoch, 0, 0)
		Expect(store.HasOffsetEvents()).To(BeTrue())

		Expect(store.Remove(mission)).To(Succeed())
		Expect(store.Remove(sim)).To(Succeed())
		Expect(store.HasOffsetEvents()).To(BeTrue())

		Expect(store.Remove(epoch)).To(Succeed())
		Expect(store.HasOffsetEvents()).To(BeFalse())
	})
})
