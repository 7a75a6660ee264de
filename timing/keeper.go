package timing

import (
	"errors"
	"fmt"
	"sync"
)

// TimeKeeper reports the current value of every time base.
type TimeKeeper interface {
	SimulationTime() Duration
	MissionTime() Duration
	EpochTime() DateTime
	ZuluTime() DateTime
}

// ErrTimeGoesBackwards is returned when simulation time is set to a value
// earlier than its current value.
var ErrTimeGoesBackwards = errors.New("timing: simulation time cannot go backwards")

// Keeper is the time keeper of a simulation. Simulation time starts at 0 and
// is only moved forward by the driver. Epoch time is simulation time plus an
// epoch start. Mission time is epoch time minus a mission start. Zulu time is
// read from a ZuluClock.
type Keeper struct {
	lock sync.RWMutex

	simulation   Duration
	epochStart   DateTime
	missionStart DateTime
	zulu         ZuluClock
}

// KeeperState is the persistent part of a Keeper.
type KeeperState struct {
	SimulationTime   Duration
	EpochStart       DateTime
	MissionStartTime DateTime
}

// NewKeeper creates a Keeper at simulation time 0. The epoch and the mission
// both start at the reference time. A nil clock falls back to the wall clock.
func NewKeeper(zulu ZuluClock) *Keeper {
	if zulu == nil {
		zulu = WallClock{}
	}

	return &Keeper{zulu: zulu}
}

// SimulationTime returns the current simulation time.
func (k *Keeper) SimulationTime() Duration {
	k.lock.RLock()
	defer k.lock.RUnlock()

	return k.simulation
}

// EpochTime returns the current epoch time.
func (k *Keeper) EpochTime() DateTime {
	k.lock.RLock()
	defer k.lock.RUnlock()

	return k.epochStart.Add(k.simulation)
}

// MissionTime returns the time elapsed since the mission start.
func (k *Keeper) MissionTime() Duration {
	k.lock.RLock()
	defer k.lock.RUnlock()

	return k.epochStart.Add(k.simulation).Sub(k.missionStart)
}

// MissionStartTime returns the epoch time at which the mission started.
func (k *Keeper) MissionStartTime() DateTime {
	k.lock.RLock()
	defer k.lock.RUnlock()

	return k.missionStart
}

// ZuluTime returns the wall-clock time reported by the Zulu clock.
func (k *Keeper) ZuluTime() DateTime {
	return k.zulu.Now()
}

// SetSimulationTime moves simulation time forward. Epoch and mission time move
// along with it.
func (k *Keeper) SetSimulationTime(t Duration) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	if t < k.simulation {
		return fmt.Errorf("%w: now %d, requested %d",
			ErrTimeGoesBackwards, k.simulation, t)
	}

	k.simulation = t

	return nil
}

// SetEpochTime changes the current epoch time. Mission time keeps its offset
// to epoch time, so it jumps by the same amount.
func (k *Keeper) SetEpochTime(e DateTime) {
	k.lock.Lock()
	defer k.lock.Unlock()

	k.epochStart = e.Add(-k.simulation)
}

// SetMissionStartTime sets the epoch time at which the mission started.
func (k *Keeper) SetMissionStartTime(m DateTime) {
	k.lock.Lock()
	defer k.lock.Unlock()

	k.missionStart = m
}

// SetMissionTime changes the current mission time by moving the mission start.
func (k *Keeper) SetMissionTime(m Duration) {
	k.lock.Lock()
	defer k.lock.Unlock()

	k.missionStart = k.epochStart.Add(k.simulation).Add(-m)
}

// Convert turns an absolute time of a lock-stepped base into the simulation
// time at which that base reaches it. Zulu time cannot be converted.
func (k *Keeper) Convert(kind TimeKind, t int64) (Duration, error) {
	return ToSimulationTime(k, kind, t)
}

// State captures the Keeper for a breakpoint.
func (k *Keeper) State() KeeperState {
	k.lock.RLock()
	defer k.lock.RUnlock()

	return KeeperState{
		SimulationTime:   k.simulation,
		EpochStart:       k.epochStart,
		MissionStartTime: k.missionStart,
	}
}

// Restore sets the Keeper to a previously captured state. Unlike
// SetSimulationTime, Restore may move time backwards.
func (k *Keeper) Restore(s KeeperState) {
	k.lock.Lock()
	defer k.lock.Unlock()

	k.simulation = s.SimulationTime
	k.epochStart = s.EpochStart
	k.missionStart = s.MissionStartTime
}

// ToSimulationTime converts an absolute time of the given lock-stepped base
// into simulation time, using the offsets tk currently reports.
func ToSimulationTime(tk TimeKeeper, kind TimeKind, t int64) (Duration, error) {
	var now int64

	switch kind {
	case SimulationTime:
		return Duration(t), nil
	case MissionTime:
		now = int64(tk.MissionTime())
	case EpochTime:
		now = int64(tk.EpochTime())
	default:
		return 0, fmt.Errorf("timing: %s is not locked to simulation time", kind)
	}

	delta, ok := AddSaturating(t, -now)
	if !ok {
		return 0, fmt.Errorf("timing: %s %d out of range", kind, t)
	}

	sim, ok := AddSaturating(int64(tk.SimulationTime()), delta)
	if !ok {
		return 0, fmt.Errorf("timing: %s %d out of range", kind, t)
	}

	return Duration(sim), nil
}

var _ TimeKeeper = (*Keeper)(nil)
