package sched

import "github.com/sarchlab/smpsched/timing"

// HookPos names a place in the scheduler where hooks are invoked.
type HookPos struct {
	Name string
}

// HookCtx describes the site a hook is invoked from.
type HookCtx struct {
	// Domain is the hookable object invoking the hook.
	Domain Hookable

	// Pos is where the hook fires from.
	Pos *HookPos

	// Item is an EventRecord copy of the event concerned.
	Item any

	// Detail depends on Pos. It is a Firing for BeforeEvent and AfterEvent, a
	// RemoveReason for EventRemoved and the error for EventDiscarded.
	Detail any
}

// Hook positions invoked by the scheduler.
var (
	// HookPosBeforeEvent fires right before an entry point is executed.
	HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}

	// HookPosAfterEvent fires after an entry point returned and the event was
	// reposted or removed.
	HookPosAfterEvent = &HookPos{Name: "AfterEvent"}

	// HookPosEventAdded fires after an event was registered.
	HookPosEventAdded = &HookPos{Name: "EventAdded"}

	// HookPosEventRemoved fires after an event was deleted.
	HookPosEventRemoved = &HookPos{Name: "EventRemoved"}

	// HookPosEventDiscarded fires when a registration is rejected.
	HookPosEventDiscarded = &HookPos{Name: "EventDiscarded"}
)

// Firing is the Detail of the before and after event hooks. It carries the
// times the tick was started with.
type Firing struct {
	SimulationTime timing.Duration
	ZuluTime       timing.DateTime
}

// RemoveReason tells why an event was deleted.
type RemoveReason int

// Reasons for removing an event.
const (
	RemovedExplicitly RemoveReason = iota
	RemovedExhausted
	RemovedPastTime
	RemovedByRestore
	RemovedOutOfRange
)

func (r RemoveReason) String() string {
	switch r {
	case RemovedExplicitly:
		return "explicit"
	case RemovedExhausted:
		return "exhausted"
	case RemovedPastTime:
		return "past time"
	case RemovedByRestore:
		return "restore"
	case RemovedOutOfRange:
		return "out of range"
	default:
		return "unknown"
	}
}

// Hookable is implemented by objects that accept hooks.
type Hookable interface {
	// AcceptHook registers a hook. Hooks are registered before the scheduler
	// starts ticking and cannot be removed.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook

	// InvokeHook triggers the registered hooks.
	InvokeHook(ctx HookCtx)
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// HookableBase implements Hookable for embedding.
type HookableBase struct {
	hookList []Hook
}

// NewHookableBase creates a HookableBase object.
func NewHookableBase() *HookableBase {
	return &HookableBase{hookList: make([]Hook, 0)}
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook registers a hook. Registering the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, existing := range h.hookList {
		if existing == hook {
			panic("duplicated hook")
		}
	}

	h.hookList = append(h.hookList, hook)
}

// InvokeHook triggers the registered hooks in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}

var _ Hookable = (*HookableBase)(nil)
