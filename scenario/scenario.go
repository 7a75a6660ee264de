// Package scenario reads YAML files that describe a set of scheduled events
// and installs them into a scheduler.
//
// Every event of a scenario gets an entry point that logs its firing and then
// carries out the actions listed under "then". Actions may add or remove
// other events of the scenario while the scheduler is ticking.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/simulation"
	"github.com/sarchlab/smpsched/timing"
)

// Event kinds accepted in scenario files.
const (
	KindImmediate    = "immediate"
	KindSimulation   = "simulation"
	KindMission      = "mission"
	KindEpoch        = "epoch"
	KindZulu         = "zulu"
	KindRelativeZulu = "relative_zulu"
)

// Scenario is the content of a scenario file.
type Scenario struct {
	// EpochStart is the epoch time at simulation time 0, as RFC 3339.
	EpochStart string `yaml:"epoch_start,omitempty"`

	// MissionStart is the epoch time the mission starts at, as RFC 3339.
	// It defaults to EpochStart.
	MissionStart string `yaml:"mission_start,omitempty"`

	// Until is the simulation time the run ends at.
	Until Duration `yaml:"until"`

	// ZuluPollInterval overrides how often the Zulu clock is looked at.
	ZuluPollInterval *Duration `yaml:"zulu_poll_interval,omitempty"`

	// PanicPolicy is "propagate" or "recover".
	PanicPolicy string `yaml:"panic_policy,omitempty"`

	Events []Event `yaml:"events"`
}

// Event describes one scheduled event.
type Event struct {
	// Name is the name of the entry point. Names are unique in a scenario.
	Name string `yaml:"name"`

	// Kind is the time base, one of the Kind constants.
	Kind string `yaml:"kind"`

	// Time is a duration for simulation, mission and relative Zulu events,
	// and an RFC 3339 timestamp for epoch and Zulu events. Immediate events
	// have no time.
	Time string `yaml:"time,omitempty"`

	Cycle  Duration `yaml:"cycle,omitempty"`
	Repeat int64    `yaml:"repeat,omitempty"`

	// Standby events are not registered when the scenario is installed.
	// They wait for an add action.
	Standby bool `yaml:"standby,omitempty"`

	Then []Action `yaml:"then,omitempty"`
}

// Action is something an entry point does after logging its firing. Exactly
// one field is set.
type Action struct {
	// Add registers the named event.
	Add string `yaml:"add,omitempty"`

	// Remove deletes the named event.
	Remove string `yaml:"remove,omitempty"`

	// Log writes a message.
	Log string `yaml:"log,omitempty"`
}

// ErrInvalid wraps every problem Validate finds.
var ErrInvalid = errors.New("scenario: invalid")

// Read parses a scenario and validates it. Unknown fields are rejected.
func Read(r io.Reader) (*Scenario, error) {
	var s Scenario

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("scenario: failed to parse YAML: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// LoadFile reads and validates a scenario file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: failed to read file: %w", err)
	}

	return Read(bytes.NewReader(data))
}

// Validate checks that the scenario can be installed.
func (s *Scenario) Validate() error {
	var errs []error

	if _, err := parseDateTime(s.EpochStart); err != nil {
		errs = append(errs, fmt.Errorf("epoch_start: %w", err))
	}

	if _, err := parseDateTime(s.MissionStart); err != nil {
		errs = append(errs, fmt.Errorf("mission_start: %w", err))
	}

	if s.Until < 0 {
		errs = append(errs, fmt.Errorf("until cannot be negative"))
	}

	if s.ZuluPollInterval != nil && *s.ZuluPollInterval < 0 {
		errs = append(errs, fmt.Errorf("zulu_poll_interval cannot be negative"))
	}

	if _, err := sched.ParsePanicPolicy(s.PanicPolicy); err != nil {
		errs = append(errs, err)
	}

	names := make(map[string]bool, len(s.Events))
	for i, e := range s.Events {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("event %d has no name", i))
			continue
		}

		if names[e.Name] {
			errs = append(errs, fmt.Errorf("event %s is defined twice", e.Name))
		}

		names[e.Name] = true

		if err := e.validate(); err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", e.Name, err))
		}
	}

	for _, e := range s.Events {
		for _, a := range e.Then {
			if err := a.validate(names); err != nil {
				errs = append(errs, fmt.Errorf("event %s: %w", e.Name, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}

	return nil
}

func (e Event) validate() error {
	if e.Kind == KindImmediate {
		if e.Time != "" {
			return fmt.Errorf("immediate events have no time")
		}

		if e.Repeat != 0 {
			return fmt.Errorf("immediate events cannot repeat")
		}

		return nil
	}

	_, err := e.trigger()

	return err
}

// trigger parses the time of the event for its kind.
func (e Event) trigger() (int64, error) {
	switch e.Kind {
	case KindSimulation, KindMission, KindRelativeZulu:
		d, err := parseDuration(e.Time)
		return int64(d), err
	case KindEpoch, KindZulu:
		if e.Time == "" {
			return 0, fmt.Errorf("%s events need a time", e.Kind)
		}

		t, err := parseDateTime(e.Time)

		return int64(t), err
	case KindImmediate:
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", e.Kind)
	}
}

func (a Action) validate(names map[string]bool) error {
	set := 0
	for _, f := range []string{a.Add, a.Remove, a.Log} {
		if f != "" {
			set++
		}
	}

	if set != 1 {
		return fmt.Errorf("an action needs exactly one of add, remove and log")
	}

	for _, target := range []string{a.Add, a.Remove} {
		if target != "" && !names[target] {
			return fmt.Errorf("action refers to unknown event %s", target)
		}
	}

	return nil
}

// Builder applies the time settings of the scenario to a simulation builder.
func (s *Scenario) Builder(b simulation.Builder) simulation.Builder {
	epoch, _ := parseDateTime(s.EpochStart)
	b = b.WithEpochStart(epoch)

	if s.MissionStart != "" {
		mission, _ := parseDateTime(s.MissionStart)
		b = b.WithMissionStart(mission)
	}

	if s.ZuluPollInterval != nil {
		b = b.WithZuluPollInterval(timing.Duration(*s.ZuluPollInterval))
	}

	policy, _ := sched.ParsePanicPolicy(s.PanicPolicy)

	return b.WithPanicPolicy(policy)
}

func parseDateTime(s string) (timing.DateTime, error) {
	if s == "" {
		return 0, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, err
	}

	return timing.DateTimeFromTime(t), nil
}
