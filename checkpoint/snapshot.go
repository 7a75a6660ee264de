// Package checkpoint saves and restores the state of a scheduler together
// with its time keeper.
//
// A Snapshot can be written into a SQLite breakpoint file, or kept in memory
// in a Store. Zulu events follow the wall clock and are never part of a
// snapshot.
package checkpoint

import (
	"fmt"

	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/timing"
)

// Snapshot is the state of a scheduler and its time keeper at one point of a
// run.
type Snapshot struct {
	Keeper    timing.KeeperState `json:"keeper"`
	Scheduler sched.State        `json:"scheduler"`
}

// Take captures a snapshot. It should be called between ticks.
func Take(keeper *timing.Keeper, s *sched.SerialScheduler) Snapshot {
	return Snapshot{
		Keeper:    keeper.State(),
		Scheduler: s.State(),
	}
}

// Apply restores a snapshot. The scheduler is restored first, so that a
// snapshot the scheduler rejects leaves the keeper untouched.
func Apply(
	snap Snapshot,
	keeper *timing.Keeper,
	s *sched.SerialScheduler,
	resolver sched.EntryPointResolver,
) error {
	err := s.Restore(snap.Scheduler, resolver)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	keeper.Restore(snap.Keeper)

	return nil
}
