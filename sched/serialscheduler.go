package sched

import (
	"errors"
	"log"
	"sync"

	"github.com/sarchlab/smpsched/timing"
)

// A SerialScheduler is a Scheduler that executes due events one after
// another.
//
// All public methods may be called from entry points while a tick is running.
// The scheduler never holds its lock while an entry point or a hook executes.
type SerialScheduler struct {
	HookableBase

	lock          sync.Mutex
	singleRunLock sync.Mutex

	timeKeeper  timing.TimeKeeper
	panicPolicy PanicPolicy

	store        *EventStore
	timeline     *Timeline
	zuluTimeline *Timeline
	immediates   *ImmediateQueue

	current EventID
	offsets clockOffsets
}

// NewSerialScheduler creates a SerialScheduler that reads the current time
// from the given time keeper.
func NewSerialScheduler(timeKeeper timing.TimeKeeper) *SerialScheduler {
	if timeKeeper == nil {
		log.Panic("sched: a scheduler needs a time keeper")
	}

	return &SerialScheduler{
		timeKeeper:   timeKeeper,
		store:        NewEventStore(),
		timeline:     NewTimeline("simulation"),
		zuluTimeline: NewTimeline("zulu"),
		immediates:   NewImmediateQueue(),
		current:      NoEvent,
	}
}

// WithPanicPolicy sets how ticks deal with panicking entry points.
func (s *SerialScheduler) WithPanicPolicy(p PanicPolicy) *SerialScheduler {
	s.lock.Lock()
	s.panicPolicy = p
	s.lock.Unlock()

	return s
}

// TimeKeeper returns the time keeper the scheduler reads time from.
func (s *SerialScheduler) TimeKeeper() timing.TimeKeeper {
	return s.timeKeeper
}

type hookNote struct {
	pos    *HookPos
	rec    EventRecord
	detail any
}

func (s *SerialScheduler) fire(notes ...hookNote) {
	for _, n := range notes {
		if n.pos == nil {
			continue
		}

		s.InvokeHook(HookCtx{
			Domain: s,
			Pos:    n.pos,
			Item:   n.rec,
			Detail: n.detail,
		})
	}
}

func mustHaveEntryPoint(ep EntryPoint) {
	if ep == nil {
		log.Panic("sched: nil entry point")
	}
}

// AddImmediateEvent queues an event for the next tick.
func (s *SerialScheduler) AddImmediateEvent(entryPoint EntryPoint) EventID {
	mustHaveEntryPoint(entryPoint)

	s.lock.Lock()
	id := s.store.Create(entryPoint, BaseImmediate, 0, 0)
	e, _ := s.store.Get(id)
	e.TriggerTime = int64(s.timeKeeper.SimulationTime())
	e.key = e.TriggerTime
	s.immediates.Push(id)
	rec := s.recordOf(e)
	s.lock.Unlock()

	s.fire(hookNote{pos: HookPosEventAdded, rec: rec})

	return id
}

// AddSimulationTimeEvent registers an event relative to the current
// simulation time.
func (s *SerialScheduler) AddSimulationTimeEvent(
	entryPoint EntryPoint,
	simulationTime timing.Duration,
	cycleTime timing.Duration,
	repeat int64,
) (EventID, error) {
	return s.addTimedEvent(
		entryPoint, BaseSimulation, int64(simulationTime), cycleTime, repeat)
}

// AddMissionTimeEvent registers an event at an absolute mission time.
func (s *SerialScheduler) AddMissionTimeEvent(
	entryPoint EntryPoint,
	missionTime timing.Duration,
	cycleTime timing.Duration,
	repeat int64,
) (EventID, error) {
	return s.addTimedEvent(
		entryPoint, BaseMission, int64(missionTime), cycleTime, repeat)
}

// AddEpochTimeEvent registers an event at an absolute epoch time.
func (s *SerialScheduler) AddEpochTimeEvent(
	entryPoint EntryPoint,
	epochTime timing.DateTime,
	cycleTime timing.Duration,
	repeat int64,
) (EventID, error) {
	return s.addTimedEvent(
		entryPoint, BaseEpoch, int64(epochTime), cycleTime, repeat)
}

// AddZuluTimeEvent registers an event at an absolute Zulu time.
func (s *SerialScheduler) AddZuluTimeEvent(
	entryPoint EntryPoint,
	zuluTime timing.DateTime,
	cycleTime timing.Duration,
	repeat int64,
) (EventID, error) {
	return s.addTimedEvent(
		entryPoint, BaseZulu, int64(zuluTime), cycleTime, repeat)
}

// AddRelativeZuluTimeEvent registers an event relative to the current Zulu
// time.
func (s *SerialScheduler) AddRelativeZuluTimeEvent(
	entryPoint EntryPoint,
	delay timing.Duration,
	cycleTime timing.Duration,
	repeat int64,
) (EventID, error) {
	return s.addTimedEvent(
		entryPoint, BaseRelativeZulu, int64(delay), cycleTime, repeat)
}

// addTimedEvent creates the event before validating it. A rejected event is
// discarded right away, so its ID is used up.
func (s *SerialScheduler) addTimedEvent(
	entryPoint EntryPoint,
	base TimeBase,
	t int64,
	cycleTime timing.Duration,
	repeat int64,
) (EventID, error) {
	mustHaveEntryPoint(entryPoint)

	s.lock.Lock()

	id := s.store.Create(entryPoint, base, cycleTime, repeat)
	e, _ := s.store.Get(id)

	trigger, key, post, err := s.resolveTrigger(base, t)
	if err == nil {
		err = validateCycle(base, cycleTime, repeat)
	}

	if err != nil {
		rec := s.recordOf(e)
		_ = s.store.Remove(id)
		s.lock.Unlock()

		s.fire(hookNote{pos: HookPosEventDiscarded, rec: rec, detail: err})

		return NoEvent, err
	}

	if post {
		e.TriggerTime = trigger
		e.key = key
		s.timelineOf(base).Insert(id, key, e.Sequence)
	}

	rec := s.recordOf(e)
	s.lock.Unlock()

	s.fire(hookNote{pos: HookPosEventAdded, rec: rec})

	return id, nil
}

// resolveTrigger turns the time given at registration into an absolute
// trigger time and a timeline key. It reports post as false for a simulation
// time event that should stay unposted.
func (s *SerialScheduler) resolveTrigger(
	base TimeBase,
	t int64,
) (trigger, key int64, post bool, err error) {
	switch base {
	case BaseSimulation:
		if t == Unposted {
			return Unposted, Unposted, false, nil
		}

		trigger, err = s.relativeTrigger(base, t,
			int64(s.timeKeeper.SimulationTime()))

		return trigger, trigger, err == nil, err
	case BaseMission, BaseEpoch:
		return s.absoluteTrigger(base, t)
	case BaseZulu:
		now := int64(s.timeKeeper.ZuluTime())
		if t < now {
			return 0, 0, false,
				&InvalidEventTimeError{Base: base, Time: t, Now: now}
		}

		return t, t, true, nil
	case BaseRelativeZulu:
		trigger, err = s.relativeTrigger(base, t,
			int64(s.timeKeeper.ZuluTime()))

		return trigger, trigger, err == nil, err
	default:
		log.Panicf("sched: cannot resolve trigger time of %s event", base)
	}

	return 0, 0, false, nil
}

func (s *SerialScheduler) relativeTrigger(
	base TimeBase,
	delta, now int64,
) (int64, error) {
	if delta < 0 {
		return 0, &InvalidEventTimeError{Base: base, Time: delta, Now: now}
	}

	trigger, ok := timing.AddSaturating(now, delta)
	if !ok {
		return 0, &InvalidEventTimeError{Base: base, Time: delta, Now: now}
	}

	return trigger, nil
}

func (s *SerialScheduler) absoluteTrigger(
	base TimeBase,
	t int64,
) (trigger, key int64, post bool, err error) {
	now := s.now(base)
	if t < now {
		return 0, 0, false,
			&InvalidEventTimeError{Base: base, Time: t, Now: now}
	}

	sim, convErr := timing.ToSimulationTime(s.timeKeeper, base.TimeKind(), t)
	if convErr != nil {
		return 0, 0, false,
			&InvalidEventTimeError{Base: base, Time: t, Now: now}
	}

	return t, int64(sim), true, nil
}

func (s *SerialScheduler) now(base TimeBase) int64 {
	switch base.TimeKind() {
	case timing.MissionTime:
		return int64(s.timeKeeper.MissionTime())
	case timing.EpochTime:
		return int64(s.timeKeeper.EpochTime())
	case timing.ZuluTime:
		return int64(s.timeKeeper.ZuluTime())
	default:
		return int64(s.timeKeeper.SimulationTime())
	}
}

// validateCycle checks the cycle time of an event that is meant to repeat.
// Simulation time events also accept -1, which unposts them after each
// firing. Immediate events never repeat.
func validateCycle(base TimeBase, cycleTime timing.Duration, repeat int64) error {
	if repeat == 0 {
		return nil
	}

	switch base {
	case BaseImmediate:
	case BaseSimulation:
		if cycleTime > 0 || cycleTime == -1 {
			return nil
		}
	default:
		if cycleTime >= 1 {
			return nil
		}
	}

	return &InvalidCycleTimeError{Base: base, CycleTime: cycleTime}
}

func (s *SerialScheduler) timelineOf(base TimeBase) *Timeline {
	if base.IsZulu() {
		return s.zuluTimeline
	}

	return s.timeline
}

// SetEventSimulationTime posts a simulation time event relative to the current
// simulation time. Immediate events can be moved too and become simulation
// time events.
func (s *SerialScheduler) SetEventSimulationTime(
	id EventID,
	simulationTime timing.Duration,
) error {
	return s.modify(id, func(e *Event) (*hookNote, error) {
		if e.Base != BaseSimulation && e.Base != BaseImmediate {
			return nil, &InvalidEventIDError{ID: id}
		}

		if simulationTime < 0 {
			return s.removeLocked(e, RemovedPastTime), nil
		}

		trigger, err := s.relativeTrigger(BaseSimulation,
			int64(simulationTime), int64(s.timeKeeper.SimulationTime()))
		if err != nil {
			return nil, err
		}

		if e.Base == BaseImmediate {
			s.immediates.Remove(id)
			e.Base = BaseSimulation
		}

		s.place(e, trigger, trigger)

		return nil, nil
	})
}

// SetEventMissionTime moves a mission time event to an absolute mission time.
func (s *SerialScheduler) SetEventMissionTime(
	id EventID,
	missionTime timing.Duration,
) error {
	return s.setAbsoluteTime(id, BaseMission, int64(missionTime))
}

// SetEventEpochTime moves an epoch time event to an absolute epoch time.
func (s *SerialScheduler) SetEventEpochTime(
	id EventID,
	epochTime timing.DateTime,
) error {
	return s.setAbsoluteTime(id, BaseEpoch, int64(epochTime))
}

// SetEventZuluTime moves a Zulu time event to an absolute Zulu time. Events
// registered relative to Zulu time are accepted as well.
func (s *SerialScheduler) SetEventZuluTime(
	id EventID,
	zuluTime timing.DateTime,
) error {
	return s.setAbsoluteTime(id, BaseZulu, int64(zuluTime))
}

func (s *SerialScheduler) setAbsoluteTime(
	id EventID,
	base TimeBase,
	t int64,
) error {
	return s.modify(id, func(e *Event) (*hookNote, error) {
		if e.Base != base && !(base.IsZulu() && e.Base.IsZulu()) {
			return nil, &InvalidEventIDError{ID: id}
		}

		if t < s.now(base) {
			return s.removeLocked(e, RemovedPastTime), nil
		}

		if base.IsZulu() {
			s.place(e, t, t)
			return nil, nil
		}

		trigger, key, _, err := s.absoluteTrigger(base, t)
		if err != nil {
			return nil, err
		}

		s.place(e, trigger, key)

		return nil, nil
	})
}

// SetEventCycleTime changes the cycle time of an event. The event keeps its
// current trigger time.
func (s *SerialScheduler) SetEventCycleTime(
	id EventID,
	cycleTime timing.Duration,
) error {
	return s.modify(id, func(e *Event) (*hookNote, error) {
		if err := validateCycle(e.Base, cycleTime, e.Repeat); err != nil {
			return nil, err
		}

		e.CycleTime = cycleTime

		return nil, nil
	})
}

// SetEventRepeat changes the repeat count of an event.
func (s *SerialScheduler) SetEventRepeat(id EventID, repeat int64) error {
	return s.modify(id, func(e *Event) (*hookNote, error) {
		if err := validateCycle(e.Base, e.CycleTime, repeat); err != nil {
			return nil, err
		}

		e.Repeat = repeat

		return nil, nil
	})
}

// RemoveEvent deletes an event, wherever it is waiting.
func (s *SerialScheduler) RemoveEvent(id EventID) error {
	return s.modify(id, func(e *Event) (*hookNote, error) {
		return s.removeLocked(e, RemovedExplicitly), nil
	})
}

func (s *SerialScheduler) modify(
	id EventID,
	f func(e *Event) (*hookNote, error),
) error {
	s.lock.Lock()

	e, err := s.store.Get(id)
	if err != nil {
		s.lock.Unlock()
		return err
	}

	note, err := f(e)
	s.lock.Unlock()

	if note != nil {
		s.fire(*note)
	}

	return err
}

// place puts the event on its timeline, or moves it there if it is already
// posted.
func (s *SerialScheduler) place(e *Event, trigger, key int64) {
	e.TriggerTime = trigger
	e.key = key

	tl := s.timelineOf(e.Base)
	if !tl.Reschedule(e.ID, key) {
		tl.Insert(e.ID, key, e.Sequence)
	}
}

func (s *SerialScheduler) detach(id EventID) {
	s.timeline.Remove(id)
	s.zuluTimeline.Remove(id)
	s.immediates.Remove(id)
}

func (s *SerialScheduler) removeLocked(e *Event, reason RemoveReason) *hookNote {
	rec := s.recordOf(e)

	s.detach(e.ID)
	_ = s.store.Remove(e.ID)

	return &hookNote{pos: HookPosEventRemoved, rec: rec, detail: reason}
}

func (s *SerialScheduler) isPosted(id EventID) bool {
	return s.timeline.Contains(id) ||
		s.zuluTimeline.Contains(id) ||
		s.immediates.Contains(id)
}

func (s *SerialScheduler) recordOf(e *Event) EventRecord {
	rec := e.record()
	rec.Posted = s.isPosted(e.ID)

	return rec
}

// willRepost tells if an event that is executing goes back on a timeline
// afterwards.
func willRepost(e *Event) bool {
	if !e.isCyclic() || e.Base == BaseImmediate {
		return false
	}

	return !(e.Base == BaseSimulation && e.CycleTime == -1)
}

// CurrentEventID returns the event being executed, or NoEvent.
func (s *SerialScheduler) CurrentEventID() EventID {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.current
}

// NextScheduledEventTime returns the simulation time of the earliest event
// that is not a Zulu event. Pending immediate events are due at the current
// simulation time.
func (s *SerialScheduler) NextScheduledEventTime() (timing.Duration, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.immediates.Len() > 0 {
		return s.timeKeeper.SimulationTime(), true
	}

	s.syncOffsetsLocked()
	key, ok := s.timeline.PeekEarliestTime()

	return timing.Duration(key), ok
}

// NextZuluEventTime returns the Zulu time of the earliest Zulu event.
func (s *SerialScheduler) NextZuluEventTime() (timing.DateTime, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	key, ok := s.zuluTimeline.PeekEarliestTime()

	return timing.DateTime(key), ok
}

// IsEventScheduled tells if the event is waiting to fire. The executing event
// counts as scheduled if it will be reposted.
func (s *SerialScheduler) IsEventScheduled(id EventID) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.isPosted(id) {
		return true
	}

	if id != s.current {
		return false
	}

	e, err := s.store.Get(id)
	if err != nil {
		return false
	}

	return willRepost(e)
}

// Event returns a copy of a live event.
func (s *SerialScheduler) Event(id EventID) (EventRecord, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	e, err := s.store.Get(id)
	if err != nil {
		return EventRecord{}, err
	}

	return s.recordOf(e), nil
}

// Events returns copies of all live events in ID order.
func (s *SerialScheduler) Events() []EventRecord {
	s.lock.Lock()
	defer s.lock.Unlock()

	all := s.store.All()
	recs := make([]EventRecord, 0, len(all))

	for _, e := range all {
		recs = append(recs, s.recordOf(e))
	}

	return recs
}

// NumEvents returns the number of live events.
func (s *SerialScheduler) NumEvents() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.store.Len()
}

// Tick executes the immediate events, then every event that is due at the
// time the tick started. Events added while the tick runs fire in the same
// tick if they are due.
//
// With RecoverPanics, the errors of all panicking entry points are joined
// into the returned error.
func (s *SerialScheduler) Tick() error {
	s.singleRunLock.Lock()
	defer s.singleRunLock.Unlock()

	var errs []error

	firing := s.readNow()
	for {
		due, ok := s.popImmediate()
		if !ok {
			break
		}

		if err := s.execute(due, firing); err != nil {
			errs = append(errs, err)
		}
	}

	firing = s.readNow()
	for {
		due, ok := s.popDue(firing)
		if !ok {
			break
		}

		if err := s.execute(due, firing); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *SerialScheduler) readNow() Firing {
	return Firing{
		SimulationTime: s.timeKeeper.SimulationTime(),
		ZuluTime:       s.timeKeeper.ZuluTime(),
	}
}

// dueEvent is an event taken off its index to be executed.
type dueEvent struct {
	rec        EventRecord
	entryPoint EntryPoint
	policy     PanicPolicy
}

func (s *SerialScheduler) popImmediate() (dueEvent, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.startImmediate()
}

func (s *SerialScheduler) startImmediate() (dueEvent, bool) {
	id, ok := s.immediates.Pop()
	if !ok {
		return dueEvent{}, false
	}

	return s.start(id), true
}

// popDue takes the next event to execute. Immediate events go first. Among
// the due timed events the earliest wins, and between the two timelines the
// event registered first.
func (s *SerialScheduler) popDue(now Firing) (dueEvent, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if due, ok := s.startImmediate(); ok {
		return due, true
	}

	s.syncOffsetsLocked()

	simID, simKey, simSeq, simOK := s.timeline.Peek()
	simOK = simOK && simKey <= int64(now.SimulationTime)

	zuluID, zuluKey, zuluSeq, zuluOK := s.zuluTimeline.Peek()
	zuluOK = zuluOK && zuluKey <= int64(now.ZuluTime)

	switch {
	case simOK && (!zuluOK || simSeq < zuluSeq):
		s.timeline.Remove(simID)
		return s.start(simID), true
	case zuluOK:
		s.zuluTimeline.Remove(zuluID)
		return s.start(zuluID), true
	default:
		return dueEvent{}, false
	}
}

func (s *SerialScheduler) start(id EventID) dueEvent {
	e, err := s.store.Get(id)
	if err != nil {
		log.Panicf("sched: event %d is indexed but not stored", id)
	}

	s.current = id

	return dueEvent{
		rec:        s.recordOf(e),
		entryPoint: e.EntryPoint,
		policy:     s.panicPolicy,
	}
}

func (s *SerialScheduler) execute(due dueEvent, firing Firing) (err error) {
	rec := due.rec

	s.fire(hookNote{pos: HookPosBeforeEvent, rec: rec, detail: firing})

	defer func() {
		var recovered any
		if due.policy == RecoverPanics {
			recovered = recover()
		}

		s.finish(rec, firing)

		if recovered != nil {
			err = &EntryPointPanicError{
				ID:    rec.ID,
				Name:  rec.Name,
				Value: recovered,
			}
		}
	}()

	due.entryPoint.Execute()

	return nil
}

func (s *SerialScheduler) finish(rec EventRecord, firing Firing) {
	s.lock.Lock()
	note := s.afterExecution(rec.ID)
	s.current = NoEvent
	s.lock.Unlock()

	if note != nil {
		s.fire(*note)
	}

	s.fire(hookNote{pos: HookPosAfterEvent, rec: rec, detail: firing})
}

// afterExecution reposts or removes an event that has just fired. If the
// entry point posted its own event again, that trigger time stays and only
// the repeat count is used up.
func (s *SerialScheduler) afterExecution(id EventID) *hookNote {
	e, err := s.store.Get(id)
	if err != nil {
		return nil
	}

	if s.isPosted(id) {
		if e.Repeat > 0 {
			e.Repeat--
		}

		return nil
	}

	if !e.isCyclic() || e.Base == BaseImmediate {
		return s.removeLocked(e, RemovedExhausted)
	}

	if e.Repeat > 0 {
		e.Repeat--
	}

	if e.Base == BaseSimulation && e.CycleTime == -1 {
		e.TriggerTime = Unposted
		e.key = Unposted

		return nil
	}

	trigger, ok1 := timing.AddSaturating(e.TriggerTime, int64(e.CycleTime))
	key, ok2 := timing.AddSaturating(e.key, int64(e.CycleTime))

	if !ok1 || !ok2 {
		return s.removeLocked(e, RemovedOutOfRange)
	}

	if e.Base.hasOffset() {
		key = offsetKey(e.Base, trigger, s.readOffsets())
	}

	s.place(e, trigger, key)

	return nil
}

var _ Scheduler = (*SerialScheduler)(nil)
