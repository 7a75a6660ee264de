package sched

import "github.com/sarchlab/smpsched/timing"

// clockOffsets are the distances of the mission and epoch clocks from
// simulation time. The timeline keys of mission and epoch events are their
// trigger times minus these offsets.
type clockOffsets struct {
	mission int64
	epoch   int64
	valid   bool
}

func (o clockOffsets) of(base TimeBase) int64 {
	if base == BaseEpoch {
		return o.epoch
	}

	return o.mission
}

func (s *SerialScheduler) readOffsets() clockOffsets {
	sim := int64(s.timeKeeper.SimulationTime())

	return clockOffsets{
		mission: int64(s.timeKeeper.MissionTime()) - sim,
		epoch:   int64(s.timeKeeper.EpochTime()) - sim,
		valid:   true,
	}
}

// offsetKey returns the timeline key of a mission or epoch trigger time under
// the given offsets. Keys out of range saturate.
func offsetKey(base TimeBase, trigger int64, o clockOffsets) int64 {
	key, _ := timing.AddSaturating(trigger, -o.of(base))
	return key
}

// syncOffsetsLocked moves the mission and epoch events on the timeline after
// the time keeper changed the mission or the epoch clock, so that each event
// still fires when its own clock reaches its trigger time. Events whose time
// has already passed become due.
func (s *SerialScheduler) syncOffsetsLocked() {
	if !s.store.HasOffsetEvents() {
		s.offsets.valid = false
		return
	}

	now := s.readOffsets()
	if now == s.offsets {
		return
	}

	s.offsets = now

	for _, e := range s.store.All() {
		if !e.Base.hasOffset() || !s.timeline.Contains(e.ID) {
			continue
		}

		e.key = offsetKey(e.Base, e.TriggerTime, now)
		s.timeline.Reschedule(e.ID, e.key)
	}
}
