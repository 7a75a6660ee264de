package sched

import "fmt"

// An EntryPoint is a piece of logic the scheduler calls when an event is due.
//
// The scheduler does not own entry points. The caller must keep an entry
// point usable for as long as an event refers to it.
type EntryPoint interface {
	Execute()
}

// Named is implemented by entry points that have a name. Names are used in
// logs and to find entry points again when a breakpoint is restored.
type Named interface {
	Name() string
}

// EntryPointFunc turns a plain function into an EntryPoint.
type EntryPointFunc func()

// Execute calls f.
func (f EntryPointFunc) Execute() {
	f()
}

// FuncEntryPoint is a named EntryPoint backed by a function.
type FuncEntryPoint struct {
	name string
	fn   func()
}

// NewEntryPoint creates a named entry point that calls fn.
func NewEntryPoint(name string, fn func()) *FuncEntryPoint {
	return &FuncEntryPoint{name: name, fn: fn}
}

// Name returns the name of the entry point.
func (e *FuncEntryPoint) Name() string {
	return e.name
}

// Execute calls the function.
func (e *FuncEntryPoint) Execute() {
	e.fn()
}

// EntryPointName returns the name of a Named entry point, or its type
// otherwise.
func EntryPointName(ep EntryPoint) string {
	if n, ok := ep.(Named); ok {
		return n.Name()
	}

	return fmt.Sprintf("%T", ep)
}
