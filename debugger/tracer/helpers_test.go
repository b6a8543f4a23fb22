package tracer

import (
	"testing"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger/source"
	"github.com/stretchr/testify/require"
)

// demo.py
//
//	1  <module>       1, 10, 22, 30, 31
//	10 def f():       11 .. 20
//	22 def g():       23, 24
var (
	demoFile = source.Canonic("demo.py")
	modCode  = &CodeUnit{Name: "<module>", Module: "demo", File: demoFile, FirstLine: 1}
	fCode    = &CodeUnit{Name: "f", Module: "demo", File: demoFile, FirstLine: 10}
	gCode    = &CodeUnit{Name: "g", Module: "demo", File: demoFile, FirstLine: 22}
	libCode  = &CodeUnit{Name: "helper", Module: "lib.util", File: source.Canonic("lib/util.py"), FirstLine: 1}
)

func demoModule() *source.Module {
	f := &source.Code{Name: "f", FirstLine: 10, Lines: []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}}
	g := &source.Code{Name: "g", FirstLine: 22, Lines: []int{23, 24}}
	root := &source.Code{Name: "<module>", FirstLine: 1, Lines: []int{1, 10, 22, 30, 31}, Subcodes: []*source.Code{f, g}}
	return source.NewModule("demo.py", root)
}

type fakeFrame struct {
	code   *CodeUnit
	line   int
	back   *fakeFrame
	traced bool
	locals map[string]any
}

func newFrame(code *CodeUnit, line int, back *fakeFrame) *fakeFrame {
	return &fakeFrame{code: code, line: line, back: back, locals: map[string]any{}}
}

func (f *fakeFrame) Code() *CodeUnit { return f.code }

func (f *fakeFrame) Line() int { return f.line }

func (f *fakeFrame) Back() Frame {
	if f.back == nil {
		return nil
	}
	return f.back
}

func (f *fakeFrame) Traced() bool { return f.traced }

func (f *fakeFrame) SetTraced(traced bool) { f.traced = traced }

func (f *fakeFrame) Locals() map[string]any { return f.locals }

func (f *fakeFrame) at(line int) *fakeFrame {
	f.line = line
	return f
}

// recorder 记录所有暂停，onPause 可以在暂停期间设置步进参数
type recorder struct {
	pauses  []Pause
	ended   []Frame
	onPause func(p *Pause) bool
}

func (r *recorder) Pause(p *Pause) bool {
	r.pauses = append(r.pauses, *p)
	if r.onPause != nil {
		return r.onPause(p)
	}
	return true
}

func (r *recorder) SessionEnded(frame Frame) {
	r.ended = append(r.ended, frame)
}

func newTestRegistry() *Registry {
	return NewRegistry(NewIndex(CaseSensitive), source.NewSet(demoModule()))
}

func newTestTracer(registry *Registry, opt Option) (*Tracer, *recorder) {
	hooks := &recorder{}
	return New(registry, hooks, opt), hooks
}

// startInModule 模拟启动：模块栈帧成为botFrame，之后切换到continue模式
// tracer 需要设置 IgnoreFirstCall
func startInModule(t *testing.T, tr *Tracer) *fakeFrame {
	t.Helper()
	mod := newFrame(modCode, 1, nil)
	mod.traced = true
	action, err := tr.Dispatch(mod, constants.EventCall, nil)
	require.NoError(t, err)
	require.Equal(t, Continue, action)
	tr.SetContinue()
	return mod
}

func mustDispatch(t *testing.T, tr *Tracer, frame Frame, event constants.EventKind) Action {
	t.Helper()
	action, err := tr.Dispatch(frame, event, nil)
	require.NoError(t, err)
	return action
}
