package host

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger/tracer"
	e "github.com/fansqz/go-tracer/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, data string) *Program {
	t.Helper()
	p, err := ParseProgram(data)
	require.NoError(t, err)
	return p
}

// scriptedHooks 每次暂停记录原因和局部变量，然后执行resume
type scriptedHooks struct {
	lock    sync.Mutex
	tracer  *tracer.Tracer
	reasons []constants.StoppedReasonType
	lines   []int
	locals  []map[string]any
	ended   int
	resume  func(tr *tracer.Tracer, p *tracer.Pause)
}

func (h *scriptedHooks) Pause(p *tracer.Pause) bool {
	h.lock.Lock()
	h.reasons = append(h.reasons, p.Reason)
	h.lines = append(h.lines, p.Frame.Line())
	locals := make(map[string]any)
	for k, v := range p.Frame.Locals() {
		locals[k] = v
	}
	h.locals = append(h.locals, locals)
	h.lock.Unlock()
	if h.resume != nil {
		h.resume(h.tracer, p)
	} else {
		h.tracer.SetContinue()
	}
	return true
}

func (h *scriptedHooks) SessionEnded(frame tracer.Frame) {
	h.lock.Lock()
	h.ended++
	h.lock.Unlock()
}

func newTracer(registry *tracer.Registry, opt tracer.Option) (*tracer.Tracer, *scriptedHooks) {
	hooks := &scriptedHooks{}
	tr := tracer.New(registry, hooks, opt)
	hooks.tracer = tr
	return tr, hooks
}

func newRegistry(p *Program) *tracer.Registry {
	return tracer.NewRegistry(tracer.NewIndex(tracer.CaseSensitive), p.Sources())
}

func TestRunWithoutTrace(t *testing.T) {
	var out bytes.Buffer
	m := NewMachine(mustParse(t, demoProgram), WithOutput(&out))
	require.NoError(t, m.Run(context.Background(), nil, nil))
	assert.Equal(t, "n = 11\nn = 12\ntotal = 5\n", out.String())
}

func TestRunStopsAtBreakpoints(t *testing.T) {
	p := mustParse(t, demoProgram)
	registry := newRegistry(p)
	_, err := registry.Set("demo.py", 12, tracer.BreakpointOption{})
	require.NoError(t, err)
	tr, hooks := newTracer(registry, tracer.Option{})

	var out bytes.Buffer
	m := NewMachine(p, WithOutput(&out))
	err = m.Run(context.Background(), nil, func(int) TraceFunc { return tr })
	require.NoError(t, err)

	assert.Equal(t, []constants.StoppedReasonType{
		constants.CallStopped, constants.BreakpointStopped, constants.BreakpointStopped,
	}, hooks.reasons)
	assert.Equal(t, []int{1, 12, 12}, hooks.lines)
	assert.Equal(t, int64(11), hooks.locals[1]["n"])
	assert.Equal(t, int64(12), hooks.locals[2]["n"])
	assert.Equal(t, 1, hooks.ended)
	assert.False(t, tr.Active())
	assert.Equal(t, "n = 11\nn = 12\ntotal = 5\n", out.String())
}

func TestRunStepping(t *testing.T) {
	p := mustParse(t, demoProgram)
	tr, hooks := newTracer(newRegistry(p), tracer.Option{})
	// 一直step
	hooks.resume = func(tr *tracer.Tracer, _ *tracer.Pause) { tr.SetStep() }

	m := NewMachine(p, WithOutput(&bytes.Buffer{}))
	require.NoError(t, m.Run(context.Background(), nil, func(int) TraceFunc { return tr }))
	assert.Equal(t, []int{1, 1, 2, 10, 11, 12, 13, 13, 3, 10, 11, 12, 13, 13, 4, 4}, hooks.lines)
	assert.Equal(t, constants.CallStopped, hooks.reasons[0])
	assert.Equal(t, constants.ReturnStopped, hooks.reasons[len(hooks.reasons)-1])
	assert.Equal(t, 1, hooks.ended)
}

func TestRunStepOverAndOut(t *testing.T) {
	p := mustParse(t, demoProgram)
	tr, hooks := newTracer(newRegistry(p), tracer.Option{IgnoreFirstCall: true})
	var steps int
	hooks.resume = func(tr *tracer.Tracer, pause *tracer.Pause) {
		steps++
		switch steps {
		case 1, 2:
			// main 第1行、第2行：next
			assert.NoError(t, tr.SetNext(pause.Frame))
		case 3:
			// main 第3行：step进入add
			tr.SetStep()
		case 4:
			// add 的call事件：return
			assert.NoError(t, tr.SetReturn(pause.Frame))
		default:
			tr.SetContinue()
		}
	}
	m := NewMachine(p, WithOutput(&bytes.Buffer{}))
	require.NoError(t, m.Run(context.Background(), nil, func(int) TraceFunc { return tr }))
	assert.Equal(t, []int{1, 2, 3, 10, 13}, hooks.lines)
	assert.Equal(t, []constants.StoppedReasonType{
		constants.StepStopped, constants.StepStopped, constants.StepStopped,
		constants.CallStopped, constants.ReturnStopped,
	}, hooks.reasons)
}

const raiseProgram = `
[[units]]
name = "main"
file = "raise.py"
statements = [
  { line = 1, call = "fail", catch = %s },
  { line = 2, print = "after" },
]

[[units]]
name = "fail"
file = "raise.py"
parent = "main"
first_line = 5
statements = [{ line = 6, raise = "ValueError" }, { line = 7, print = "unreachable" }]
`

func TestUncaughtException(t *testing.T) {
	var out bytes.Buffer
	m := NewMachine(mustParse(t, fmtProgram(raiseProgram, "false")), WithOutput(&out))
	err := m.Run(context.Background(), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrUncaughtException)
	assert.Contains(t, err.Error(), "ValueError")
	assert.Empty(t, out.String())

	out.Reset()
	m = NewMachine(mustParse(t, fmtProgram(raiseProgram, "true")), WithOutput(&out))
	require.NoError(t, m.Run(context.Background(), nil, nil))
	assert.Equal(t, "after\n", out.String())
}

func TestExceptionStopsInStepMode(t *testing.T) {
	p := mustParse(t, fmtProgram(raiseProgram, "true"))
	tr, hooks := newTracer(newRegistry(p), tracer.Option{})
	hooks.resume = func(tr *tracer.Tracer, _ *tracer.Pause) { tr.SetStep() }

	m := NewMachine(p, WithOutput(&bytes.Buffer{}))
	require.NoError(t, m.Run(context.Background(), nil, func(int) TraceFunc { return tr }))
	assert.Contains(t, hooks.reasons, constants.ExceptionStopped)
}

func TestCancelDuringPause(t *testing.T) {
	p := mustParse(t, demoProgram)
	tr, hooks := newTracer(newRegistry(p), tracer.Option{})
	ctx, cancel := context.WithCancel(context.Background())
	hooks.resume = func(tr *tracer.Tracer, _ *tracer.Pause) {
		tr.SetQuit()
		cancel()
	}

	var out bytes.Buffer
	m := NewMachine(p, WithOutput(&out))
	err := m.Run(ctx, nil, func(int) TraceFunc { return tr })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, hooks.reasons, 1)
	assert.Empty(t, out.String())
}

const trapProgram = `
[[units]]
name = "main"
file = "trap.py"
statements = [
  { line = 1, set = { x = 1 } },
  { line = 2, trap = true },
  { line = 3, set = { x = 2 } },
  { line = 4, print = "x = ${x}" },
]
`

func TestTrapStartsTracing(t *testing.T) {
	p := mustParse(t, trapProgram)
	tr, hooks := newTracer(newRegistry(p), tracer.Option{})
	// 没有断点，continue会停止追踪
	tr.SetContinue()
	require.False(t, tr.Active())

	var out bytes.Buffer
	m := NewMachine(p, WithOutput(&out))
	require.NoError(t, m.Run(context.Background(), nil, func(int) TraceFunc { return tr }))
	assert.Equal(t, []int{3}, hooks.lines)
	assert.Equal(t, int64(1), hooks.locals[0]["x"])
	assert.Equal(t, "x = 2\n", out.String())
}

func TestSetVariableDuringPause(t *testing.T) {
	p := mustParse(t, trapProgram)
	registry := newRegistry(p)
	_, err := registry.Set("trap.py", 4, tracer.BreakpointOption{})
	require.NoError(t, err)
	tr, hooks := newTracer(registry, tracer.Option{IgnoreFirstCall: true})
	tr.SetContinue()
	hooks.resume = func(tr *tracer.Tracer, pause *tracer.Pause) {
		pause.Frame.Locals()["x"] = "changed"
		tr.SetContinue()
	}

	var out bytes.Buffer
	m := NewMachine(p, WithOutput(&out))
	require.NoError(t, m.Run(context.Background(), nil, func(int) TraceFunc { return tr }))
	assert.Equal(t, "x = changed\n", out.String())
}

func TestThreadsShareRegistry(t *testing.T) {
	p := mustParse(t, demoProgram)
	registry := newRegistry(p)
	_, err := registry.Set("demo.py", 11, tracer.BreakpointOption{})
	require.NoError(t, err)

	var lock sync.Mutex
	all := map[int]*scriptedHooks{}
	newTrace := func(thread int) TraceFunc {
		tr, hooks := newTracer(registry, tracer.Option{IgnoreFirstCall: true})
		tr.SetContinue()
		lock.Lock()
		all[thread] = hooks
		lock.Unlock()
		return tr
	}
	m := NewMachine(p, WithOutput(&bytes.Buffer{}))
	require.NoError(t, m.Run(context.Background(), []string{"main", "main", "main"}, newTrace))

	require.Len(t, all, 3)
	for thread, hooks := range all {
		assert.Equal(t, []int{11, 11}, hooks.lines, "thread %d", thread)
	}
	bps := registry.All()
	require.Len(t, bps, 1)
	assert.Equal(t, 6, bps[0].Hits())
}

func TestRunUnknownEntry(t *testing.T) {
	m := NewMachine(mustParse(t, demoProgram))
	err := m.Run(context.Background(), []string{"nope"}, nil)
	assert.ErrorIs(t, err, e.ErrProgramInvalid)
}

func TestTracingFailureIsReported(t *testing.T) {
	p := mustParse(t, demoProgram)
	hooks := &panicHooks{}
	tr := tracer.New(newRegistry(p), hooks, tracer.Option{})

	var out bytes.Buffer
	m := NewMachine(p, WithOutput(&out))
	err := m.Run(context.Background(), nil, func(int) TraceFunc { return tr })
	assert.ErrorIs(t, err, e.ErrTracingFailed)
	// 追踪失效以后程序继续运行
	assert.Equal(t, "n = 11\nn = 12\ntotal = 5\n", out.String())
}

type panicHooks struct{}

func (panicHooks) Pause(*tracer.Pause) bool { panic("hook failure") }

func (panicHooks) SessionEnded(tracer.Frame) {}

func fmtProgram(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
