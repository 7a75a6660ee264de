package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/smpsched/datarecording"
	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/timing"
)

// Tables of a breakpoint file.
const (
	KeeperTable     = "keeper"
	CountersTable   = "counters"
	EventsTable     = "events"
	ImmediatesTable = "immediates"
)

// ErrMalformed is returned when a breakpoint file does not hold exactly one
// snapshot.
var ErrMalformed = errors.New("checkpoint: malformed breakpoint")

type keeperEntry struct {
	SimulationTime   int64
	EpochStart       int64
	MissionStartTime int64
}

type counterEntry struct {
	LastID       int64
	LastSequence int64
}

type eventEntry struct {
	ID          int64
	Name        string
	Base        int64
	TriggerTime int64
	Key         int64
	CycleTime   int64
	Repeat      int64
	Sequence    int64
	Posted      bool
}

type immediateEntry struct {
	Position int64
	ID       int64
}

// Write stores the snapshot through a recorder and flushes it.
func Write(recorder datarecording.DataRecorder, snap Snapshot) {
	recorder.CreateTable(KeeperTable, keeperEntry{})
	recorder.CreateTable(CountersTable, counterEntry{})
	recorder.CreateTable(EventsTable, eventEntry{})
	recorder.CreateTable(ImmediatesTable, immediateEntry{})

	recorder.InsertData(KeeperTable, keeperEntry{
		SimulationTime:   int64(snap.Keeper.SimulationTime),
		EpochStart:       int64(snap.Keeper.EpochStart),
		MissionStartTime: int64(snap.Keeper.MissionStartTime),
	})

	recorder.InsertData(CountersTable, counterEntry{
		LastID:       int64(snap.Scheduler.LastID),
		LastSequence: int64(snap.Scheduler.LastSequence),
	})

	for _, e := range snap.Scheduler.Events {
		recorder.InsertData(EventsTable, eventEntry{
			ID:          int64(e.ID),
			Name:        e.Name,
			Base:        int64(e.Base),
			TriggerTime: e.TriggerTime,
			Key:         e.Key,
			CycleTime:   int64(e.CycleTime),
			Repeat:      e.Repeat,
			Sequence:    int64(e.Sequence),
			Posted:      e.Posted,
		})
	}

	for i, id := range snap.Scheduler.Immediates {
		recorder.InsertData(ImmediatesTable, immediateEntry{
			Position: int64(i),
			ID:       int64(id),
		})
	}

	recorder.Flush()
}

// Read loads a snapshot written by Write.
func Read(ctx context.Context, reader datarecording.DataReader) (Snapshot, error) {
	reader.MapTable(KeeperTable, keeperEntry{})
	reader.MapTable(CountersTable, counterEntry{})
	reader.MapTable(EventsTable, eventEntry{})
	reader.MapTable(ImmediatesTable, immediateEntry{})

	var snap Snapshot

	k, err := readSingle[keeperEntry](ctx, reader, KeeperTable)
	if err != nil {
		return snap, err
	}

	c, err := readSingle[counterEntry](ctx, reader, CountersTable)
	if err != nil {
		return snap, err
	}

	snap.Keeper = timing.KeeperState{
		SimulationTime:   timing.Duration(k.SimulationTime),
		EpochStart:       timing.DateTime(k.EpochStart),
		MissionStartTime: timing.DateTime(k.MissionStartTime),
	}
	snap.Scheduler.LastID = sched.EventID(c.LastID)
	snap.Scheduler.LastSequence = uint64(c.LastSequence)

	events, err := datarecording.QueryAs[eventEntry](ctx, reader, EventsTable,
		datarecording.QueryParams{OrderBy: "ID ASC"})
	if err != nil {
		return snap, fmt.Errorf("checkpoint: reading %s: %w", EventsTable, err)
	}

	for _, e := range events {
		snap.Scheduler.Events = append(snap.Scheduler.Events, sched.EventRecord{
			ID:          sched.EventID(e.ID),
			Name:        e.Name,
			Base:        sched.TimeBase(e.Base),
			TriggerTime: e.TriggerTime,
			Key:         e.Key,
			CycleTime:   timing.Duration(e.CycleTime),
			Repeat:      e.Repeat,
			Sequence:    uint64(e.Sequence),
			Posted:      e.Posted,
		})
	}

	immediates, err := datarecording.QueryAs[immediateEntry](ctx, reader,
		ImmediatesTable, datarecording.QueryParams{OrderBy: "Position ASC"})
	if err != nil {
		return snap, fmt.Errorf("checkpoint: reading %s: %w", ImmediatesTable, err)
	}

	for _, e := range immediates {
		snap.Scheduler.Immediates = append(snap.Scheduler.Immediates,
			sched.EventID(e.ID))
	}

	return snap, nil
}

func readSingle[T any](
	ctx context.Context,
	reader datarecording.DataReader,
	table string,
) (*T, error) {
	rows, err := datarecording.QueryAs[T](ctx, reader, table,
		datarecording.QueryParams{})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading %s: %w", table, err)
	}

	if len(rows) != 1 {
		return nil, fmt.Errorf("%w: %d rows in %s", ErrMalformed, len(rows), table)
	}

	return rows[0], nil
}

// SaveFile writes the snapshot into path.sqlite3. The file must not exist.
func SaveFile(path string, snap Snapshot) error {
	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("checkpoint: %s already exists", filename)
	}

	recorder := datarecording.New(path)
	Write(recorder, snap)

	return recorder.Close()
}

// LoadFile reads a snapshot from a breakpoint file written by SaveFile.
func LoadFile(ctx context.Context, filename string) (Snapshot, error) {
	if _, err := os.Stat(filename); err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: %w", err)
	}

	reader := datarecording.NewReader(filename)
	defer reader.Close()

	return Read(ctx, reader)
}
