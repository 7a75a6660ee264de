package tracing

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sarchlab/smpsched/sched"
)

// CollectTrace let the tracer to collect trace from a scheduler
func CollectTrace(domain sched.Hookable, tracer Tracer) {
	hooks := domain.Hooks()
	for _, hook := range hooks {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"%T already has tracer %s",
				domain, reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(newTraceHook(tracer, time.Now))
}

// A traceHook turns event firings into tasks.
type traceHook struct {
	t     Tracer
	clock func() time.Time

	lock     sync.Mutex
	inflight map[sched.EventID]Task
}

func newTraceHook(t Tracer, clock func() time.Time) *traceHook {
	return &traceHook{
		t:        t,
		clock:    clock,
		inflight: make(map[sched.EventID]Task),
	}
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx sched.HookCtx) {
	switch ctx.Pos {
	case sched.HookPosBeforeEvent:
		h.start(ctx)
	case sched.HookPosAfterEvent:
		h.end(ctx)
	}
}

func (h *traceHook) start(ctx sched.HookCtx) {
	rec := ctx.Item.(sched.EventRecord)
	firing, _ := ctx.Detail.(sched.Firing)

	task := Task{
		ID:             xid.New().String(),
		EventID:        rec.ID,
		Kind:           rec.Base.String(),
		What:           rec.Name,
		SimulationTime: firing.SimulationTime,
		ZuluTime:       firing.ZuluTime,
		StartTime:      h.clock(),
		Detail:         rec,
	}

	h.lock.Lock()
	h.inflight[rec.ID] = task
	h.lock.Unlock()

	h.t.StartTask(task)
}

func (h *traceHook) end(ctx sched.HookCtx) {
	rec := ctx.Item.(sched.EventRecord)

	h.lock.Lock()
	task, ok := h.inflight[rec.ID]
	delete(h.inflight, rec.ID)
	h.lock.Unlock()

	if !ok {
		return
	}

	task.EndTime = h.clock()
	task.Detail = rec

	h.t.EndTask(task)
}
