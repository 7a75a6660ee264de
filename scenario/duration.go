package scenario

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/smpsched/timing"
)

// Duration is a timing.Duration written either as a Go duration string such
// as "1m30s" or as a plain number of nanoseconds.
type Duration timing.Duration

// UnmarshalYAML parses the duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}

	parsed, err := parseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*d = Duration(parsed)

	return nil
}

// MarshalYAML writes the duration as a Go duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func parseDuration(s string) (timing.Duration, error) {
	if s == "" {
		return 0, nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return timing.Duration(n), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}

	return timing.FromStd(d), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Set parses s, so that a Duration can serve as a command-line flag.
func (d *Duration) Set(s string) error {
	parsed, err := parseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(parsed)

	return nil
}

// Type names the flag value type.
func (d *Duration) Type() string {
	return "duration"
}
