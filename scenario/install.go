package scenario

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/timing"
)

// Installation is a scenario registered with a scheduler.
type Installation struct {
	scheduler  sched.Scheduler
	timeKeeper timing.TimeKeeper
	logger     *log.Logger

	lock   sync.Mutex
	events map[string]Event
	ids    map[string]sched.EventID

	registry *sched.EntryPointRegistry
	entries  map[string]*entryPoint
}

// Install creates the entry points of the scenario and registers every event
// that is not on standby. Firings and actions are written to logger.
func (s *Scenario) Install(
	scheduler sched.Scheduler,
	timeKeeper timing.TimeKeeper,
	logger *log.Logger,
) (*Installation, error) {
	in := &Installation{
		scheduler:  scheduler,
		timeKeeper: timeKeeper,
		logger:     logger,
		events:     make(map[string]Event, len(s.Events)),
		ids:        make(map[string]sched.EventID, len(s.Events)),
		registry:   sched.NewEntryPointRegistry(),
		entries:    make(map[string]*entryPoint, len(s.Events)),
	}

	for _, e := range s.Events {
		ep := &entryPoint{name: e.Name, in: in, then: e.Then}
		in.events[e.Name] = e
		in.entries[e.Name] = ep
		in.registry.Register(ep)
	}

	for _, e := range s.Events {
		if e.Standby {
			continue
		}

		if err := in.Add(e.Name); err != nil {
			return nil, err
		}
	}

	return in, nil
}

// Registry resolves the entry points of the scenario by name, for restoring
// breakpoints.
func (in *Installation) Registry() *sched.EntryPointRegistry {
	return in.registry
}

// EventID returns the ID the named event was registered with last.
func (in *Installation) EventID(name string) (sched.EventID, bool) {
	in.lock.Lock()
	defer in.lock.Unlock()

	id, ok := in.ids[name]

	return id, ok
}

// Add registers the named event with the scheduler.
func (in *Installation) Add(name string) error {
	in.lock.Lock()
	e, ok := in.events[name]
	ep := in.entries[name]
	in.lock.Unlock()

	if !ok {
		return fmt.Errorf("scenario: unknown event %s", name)
	}

	id, err := in.register(e, ep)
	if err != nil {
		return fmt.Errorf("scenario: registering %s: %w", name, err)
	}

	in.lock.Lock()
	in.ids[name] = id
	in.lock.Unlock()

	return nil
}

func (in *Installation) register(e Event, ep sched.EntryPoint) (sched.EventID, error) {
	if e.Kind == KindImmediate {
		return in.scheduler.AddImmediateEvent(ep), nil
	}

	t, err := e.trigger()
	if err != nil {
		return sched.NoEvent, err
	}

	cycle := timing.Duration(e.Cycle)

	switch e.Kind {
	case KindSimulation:
		return in.scheduler.AddSimulationTimeEvent(ep, timing.Duration(t), cycle, e.Repeat)
	case KindMission:
		return in.scheduler.AddMissionTimeEvent(ep, timing.Duration(t), cycle, e.Repeat)
	case KindEpoch:
		return in.scheduler.AddEpochTimeEvent(ep, timing.DateTime(t), cycle, e.Repeat)
	case KindZulu:
		return in.scheduler.AddZuluTimeEvent(ep, timing.DateTime(t), cycle, e.Repeat)
	default:
		return in.scheduler.AddRelativeZuluTimeEvent(ep, timing.Duration(t), cycle, e.Repeat)
	}
}

// Remove deletes the event last registered under name.
func (in *Installation) Remove(name string) error {
	in.lock.Lock()
	id, ok := in.ids[name]
	delete(in.ids, name)
	in.lock.Unlock()

	if !ok {
		return fmt.Errorf("scenario: event %s is not registered", name)
	}

	return in.scheduler.RemoveEvent(id)
}

// Rebind points the event names at the given events, replacing what Install
// and Add registered. It is called after the scheduler was restored from a
// breakpoint, so that actions find the restored events. When a name occurs
// more than once, the event with the highest ID wins.
func (in *Installation) Rebind(records []sched.EventRecord) {
	in.lock.Lock()
	defer in.lock.Unlock()

	in.ids = make(map[string]sched.EventID, len(in.events))

	for _, rec := range records {
		if _, known := in.events[rec.Name]; !known {
			continue
		}

		if id, ok := in.ids[rec.Name]; ok && id > rec.ID {
			continue
		}

		in.ids[rec.Name] = rec.ID
	}
}

// entryPoint logs its firing and runs the actions of its event.
type entryPoint struct {
	name string
	in   *Installation
	then []Action
}

func (e *entryPoint) Name() string {
	return e.name
}

func (e *entryPoint) Execute() {
	in := e.in
	in.logger.Printf("%d, fired %s (event %d)",
		in.timeKeeper.SimulationTime(), e.name, in.scheduler.CurrentEventID())

	for _, a := range e.then {
		e.run(a)
	}
}

func (e *entryPoint) run(a Action) {
	in := e.in

	switch {
	case a.Log != "":
		in.logger.Printf("%d, %s: %s", in.timeKeeper.SimulationTime(), e.name, a.Log)
	case a.Add != "":
		if err := in.Add(a.Add); err != nil {
			in.logger.Printf("%s: %v", e.name, err)
		}
	case a.Remove != "":
		err := in.Remove(a.Remove)

		var invalid *sched.InvalidEventIDError
		if errors.As(err, &invalid) {
			in.logger.Printf("%s: %s was already gone", e.name, a.Remove)
		} else if err != nil {
			in.logger.Printf("%s: %v", e.name, err)
		}
	}
}
