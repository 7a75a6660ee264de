// Package timing defines the time bases a scheduler works with and the time
// keeper that reports their current values.
//
// All times are int64 nanoseconds. Durations are relative. DateTimes are
// absolute and count from the reference time 2000-01-01T12:00:00 UTC
// (Modified Julian Date 2000+0.5), which makes DateTime and Duration
// arithmetic compatible.
package timing

import (
	"fmt"
	"math"
	"time"
)

// Duration is a relative time in nanoseconds.
type Duration int64

// DateTime is an absolute time in nanoseconds relative to ReferenceTime.
type DateTime int64

// MaxDuration is the largest representable Duration.
const MaxDuration Duration = math.MaxInt64

// Common durations.
const (
	Nanosecond  Duration = 1
	Microsecond          = 1000 * Nanosecond
	Millisecond          = 1000 * Microsecond
	Second               = 1000 * Millisecond
	Minute               = 60 * Second
	Hour                 = 60 * Minute
)

// ReferenceTime is the wall-clock instant DateTime(0) stands for.
var ReferenceTime = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// FromStd converts a time.Duration.
func FromStd(d time.Duration) Duration {
	return Duration(d)
}

// Std converts the duration into a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// DateTimeFromTime converts a wall-clock time into a DateTime. Times that do
// not fit into the representable range are clamped.
func DateTimeFromTime(t time.Time) DateTime {
	return DateTime(t.Sub(ReferenceTime))
}

// Time returns the wall-clock instant of the DateTime.
func (t DateTime) Time() time.Time {
	return ReferenceTime.Add(time.Duration(t))
}

// Add returns t+d.
func (t DateTime) Add(d Duration) DateTime {
	return t + DateTime(d)
}

// Sub returns t-u.
func (t DateTime) Sub(u DateTime) Duration {
	return Duration(t - u)
}

func (t DateTime) String() string {
	return t.Time().Format(time.RFC3339Nano)
}

// TimeKind enumerates the time bases.
type TimeKind int32

// The time bases. Simulation, mission and epoch time progress in lockstep with
// the simulation. Zulu time follows the wall clock.
const (
	SimulationTime TimeKind = iota
	EpochTime
	ZuluTime
	MissionTime
)

func (k TimeKind) String() string {
	switch k {
	case SimulationTime:
		return "SimulationTime"
	case EpochTime:
		return "EpochTime"
	case ZuluTime:
		return "ZuluTime"
	case MissionTime:
		return "MissionTime"
	default:
		return fmt.Sprintf("TimeKind(%d)", int32(k))
	}
}

// ParseTimeKind is the reverse of String, also accepting the short lowercase
// names used in configuration files.
func ParseTimeKind(s string) (TimeKind, error) {
	switch s {
	case "SimulationTime", "simulation":
		return SimulationTime, nil
	case "EpochTime", "epoch":
		return EpochTime, nil
	case "ZuluTime", "zulu":
		return ZuluTime, nil
	case "MissionTime", "mission":
		return MissionTime, nil
	default:
		return 0, fmt.Errorf("timing: unknown time kind %q", s)
	}
}

// AddSaturating returns a+b, or false if the result would overflow.
func AddSaturating(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64, false
	}

	if b < 0 && a < math.MinInt64-b {
		return math.MinInt64, false
	}

	return a + b, true
}
