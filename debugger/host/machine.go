package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger/tracer"
	e "github.com/fansqz/go-tracer/error"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TraceFunc 线程的trace函数，tracer.Tracer 实现了该接口
type TraceFunc interface {
	Dispatch(frame tracer.Frame, event constants.EventKind, arg any) (tracer.Action, error)
	// Active 为false时不再投递call事件
	Active() bool
}

// Trapper 支持在运行中途开始追踪
type Trapper interface {
	SetTrace(frame tracer.Frame)
}

// Frame 宿主运行时的栈帧
type Frame struct {
	unit   *Unit
	line   int
	back   *Frame
	traced bool
	locals map[string]any
}

func newFrame(unit *Unit, back *Frame, args map[string]any) *Frame {
	locals := make(map[string]any, len(args))
	for k, v := range args {
		locals[k] = v
	}
	return &Frame{unit: unit, line: unit.FirstLine, back: back, locals: locals}
}

func (f *Frame) Code() *tracer.CodeUnit {
	return f.unit.code
}

func (f *Frame) Line() int {
	return f.line
}

func (f *Frame) Back() tracer.Frame {
	if f.back == nil {
		return nil
	}
	return f.back
}

func (f *Frame) Traced() bool {
	return f.traced
}

func (f *Frame) SetTraced(traced bool) {
	f.traced = traced
}

// Locals 返回的是栈帧自己的变量表，修改会影响程序的执行
func (f *Frame) Locals() map[string]any {
	return f.locals
}

// Exception 程序抛出的异常
type Exception struct {
	Name string
	File string
	Line int
}

func (x *Exception) Error() string {
	return fmt.Sprintf("%s at %s:%d", x.Name, x.File, x.Line)
}

func (x *Exception) Unwrap() error {
	return e.ErrUncaughtException
}

// Machine 运行Program，向每个线程的trace函数投递事件
type Machine struct {
	program *Program
	lock    sync.Mutex
	out     io.Writer
	log     *logrus.Entry
}

type Option func(m *Machine)

// WithOutput 程序print语句的输出位置，默认为标准输出
func WithOutput(w io.Writer) Option {
	return func(m *Machine) {
		m.out = w
	}
}

func NewMachine(program *Program, opts ...Option) *Machine {
	m := &Machine{
		program: program,
		out:     os.Stdout,
		log:     logrus.WithField("component", "host"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Program() *Program {
	return m.program
}

// Run 每个入口函数一个线程，所有线程结束后返回
// entries 为空时使用程序定义的线程。newTrace 为nil时不追踪。
// 返回的错误包括未捕获的异常、ctx取消以及trace函数返回的错误。
func (m *Machine) Run(ctx context.Context, entries []string, newTrace func(thread int) TraceFunc) error {
	if len(entries) == 0 {
		entries = m.program.Entries()
	}
	units := make([]*Unit, 0, len(entries))
	for _, name := range entries {
		u, ok := m.program.Unit(name)
		if !ok {
			return invalid("entry %q is not a unit", name)
		}
		units = append(units, u)
	}

	var g errgroup.Group
	threads := make([]*Thread, len(units))
	for i, u := range units {
		th := &Thread{ID: i + 1, machine: m}
		if newTrace != nil {
			th.trace = newTrace(th.ID)
		}
		threads[i] = th
		u := u
		g.Go(func() error {
			th.err = th.start(ctx, u)
			return th.err
		})
	}
	_ = g.Wait()

	var errs []error
	for _, th := range threads {
		if th.err != nil {
			errs = append(errs, fmt.Errorf("thread %d: %w", th.ID, th.err))
		}
		errs = append(errs, th.traceErrs...)
	}
	return errors.Join(errs...)
}

func (m *Machine) print(thread int, s string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, err := fmt.Fprintln(m.out, s); err != nil {
		m.log.Warnf("[print] thread %d write output fail, err = %v", thread, err)
	}
}

// Thread 一个执行线程
type Thread struct {
	ID        int
	machine   *Machine
	trace     TraceFunc
	err       error
	traceErrs []error
}

func (t *Thread) start(ctx context.Context, entry *Unit) error {
	_, exc, err := t.call(ctx, entry, nil, nil)
	if err != nil {
		return err
	}
	if exc != nil {
		return exc
	}
	return nil
}

// dispatch 投递事件并执行trace函数返回的动作
func (t *Thread) dispatch(frame *Frame, event constants.EventKind, arg any) {
	action, err := t.trace.Dispatch(frame, event, arg)
	if err != nil {
		t.traceErrs = append(t.traceErrs, fmt.Errorf("thread %d: %w", t.ID, err))
	}
	switch action {
	case tracer.Continue:
		if event == constants.EventCall {
			frame.traced = true
		}
	case tracer.Detach:
		frame.traced = false
	case tracer.DetachAll:
		for f := frame; f != nil; f = f.back {
			f.traced = false
		}
	}
}

// call 执行一个函数，返回返回值或者未捕获的异常
func (t *Thread) call(ctx context.Context, unit *Unit, back *Frame, args map[string]any) (any, *Exception, error) {
	frame := newFrame(unit, back, args)
	if t.trace != nil && t.trace.Active() {
		t.dispatch(frame, constants.EventCall, args)
	}
	ret, exc, err := t.exec(ctx, frame)
	if err != nil {
		return nil, nil, err
	}
	if t.trace != nil && frame.traced {
		t.dispatch(frame, constants.EventReturn, ret)
	}
	return ret, exc, nil
}

func (t *Thread) exec(ctx context.Context, frame *Frame) (any, *Exception, error) {
	for _, st := range frame.unit.Statements {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		frame.line = st.Line
		if t.trace != nil && frame.traced {
			t.dispatch(frame, constants.EventLine, nil)
		}

		for k, v := range st.Set {
			frame.locals[k] = v
		}
		for k, v := range st.Add {
			frame.locals[k] = toInt(frame.locals[k]) + v
		}
		if st.Print != "" {
			t.machine.print(t.ID, os.Expand(st.Print, func(name string) string {
				return format(frame.locals[name])
			}))
		}
		if st.Trap {
			t.trap(frame)
		}
		if st.Call != "" {
			exc, err := t.callStatement(ctx, frame, st)
			if err != nil || exc != nil {
				return nil, exc, err
			}
		}
		if st.Raise != "" {
			exc := &Exception{Name: st.Raise, File: frame.unit.code.File, Line: st.Line}
			if t.trace != nil && frame.traced {
				t.dispatch(frame, constants.EventException, exc)
			}
			return nil, exc, nil
		}
		if st.Return != nil {
			return st.Return, nil, nil
		}
	}
	return nil, nil, nil
}

// callStatement 执行语句中的函数调用，被调用函数的异常会在当前栈帧产生exception事件
func (t *Thread) callStatement(ctx context.Context, frame *Frame, st *Statement) (*Exception, error) {
	callee, _ := t.machine.program.Unit(st.Call)
	times := st.Times
	if times <= 0 {
		times = 1
	}
	for i := 0; i < times; i++ {
		ret, exc, err := t.call(ctx, callee, frame, st.Args)
		if err != nil {
			return nil, err
		}
		if exc != nil {
			if t.trace != nil && frame.traced {
				t.dispatch(frame, constants.EventException, exc)
			}
			if !st.Catch {
				return exc, nil
			}
			continue
		}
		if st.Result != "" {
			frame.locals[st.Result] = ret
		}
	}
	return nil, nil
}

func (t *Thread) trap(frame *Frame) {
	trapper, ok := t.trace.(Trapper)
	if !ok {
		t.machine.log.Warnf("[trap] thread %d: trace function does not support set_trace", t.ID)
		return
	}
	trapper.SetTrace(frame)
}

func toInt(v any) int64 {
	switch v := v.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func format(v any) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprint(v)
}
