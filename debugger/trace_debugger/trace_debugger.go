package trace_debugger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/fansqz/go-tracer/constants"
	. "github.com/fansqz/go-tracer/debugger"
	"github.com/fansqz/go-tracer/debugger/host"
	"github.com/fansqz/go-tracer/debugger/tracer"
	e "github.com/fansqz/go-tracer/error"
	"github.com/fansqz/go-tracer/utils"
	"github.com/fansqz/go-tracer/utils/gosync"
	"github.com/sirupsen/logrus"
)

// TraceDebugger 基于tracer的调试器
// 被调试程序运行在host.Machine中，每个线程有自己的tracer，所有线程共享断点。
type TraceDebugger struct {
	startOption *StartOption

	// 事件产生时，触发该回调
	callback NotificationCallback

	// statusManager 调试的状态管理
	statusManager *utils.StatusManager
	// timeoutManager 暂停时间过长时结束调试
	timeoutManager *utils.TimeoutManager
	sessionID      string

	program   *host.Program
	machine   *host.Machine
	registry  *tracer.Registry
	recorder  *host.Recorder
	skip      tracer.SkipMatcher
	skipCalls []*tracer.CodeUnit

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// lock 保护paused
	lock   sync.Mutex
	paused *pausedThread
	// pauseLock 同一时刻只有一个线程暂停
	pauseLock sync.Mutex
}

// pausedThread 正在暂停的线程，resume关闭以后线程继续执行
type pausedThread struct {
	thread int
	tracer *tracer.Tracer
	pause  *tracer.Pause
	resume chan struct{}
}

type Option func(d *TraceDebugger)

// WithRecorder 记录所有事件
func WithRecorder(recorder *host.Recorder) Option {
	return func(d *TraceDebugger) {
		d.recorder = recorder
	}
}

func NewTraceDebugger(opts ...Option) *TraceDebugger {
	d := &TraceDebugger{
		statusManager:  utils.NewStatusManager(),
		timeoutManager: utils.NewTimeoutManager(),
		sessionID:      utils.GetUUID(),
		callback:       func(interface{}) {},
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SessionID 本次调试的id
func (d *TraceDebugger) SessionID() string {
	return d.sessionID
}

// Registry 断点
func (d *TraceDebugger) Registry() *tracer.Registry {
	return d.registry
}

// Done 程序运行结束以后关闭
func (d *TraceDebugger) Done() <-chan struct{} {
	return d.done
}

func (d *TraceDebugger) Start(ctx context.Context, option *StartOption) error {
	logrus.Infof("[TraceDebugger] Start, session = %s", d.sessionID)
	if !d.statusManager.Is(utils.Init) {
		return e.ErrDebuggerStarted
	}
	d.startOption = option
	if option.Callback != nil {
		d.callback = option.Callback
	}

	program, err := host.LoadProgram(option.ProgramFile)
	if err != nil {
		logrus.Errorf("[Start] load program fail, err = %v", err)
		d.callback(LaunchFailEvent)
		return err
	}
	if err = d.load(program, option); err != nil {
		d.callback(LaunchFailEvent)
		return err
	}
	d.callback(LaunchSuccessEvent)

	// 设置断点
	if err = d.AddBreakpoints(ctx, option.BreakPoints); err != nil {
		logrus.Errorf("[Start] add breakpoint fail, err = %v", err)
		return err
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.statusManager.Set(utils.Running)
	gosync.Go(d.ctx, d.run)
	return nil
}

func (d *TraceDebugger) load(program *host.Program, option *StartOption) error {
	skipCalls, err := program.CodeUnits(option.SkipFunctions...)
	if err != nil {
		return err
	}
	d.program = program
	d.skipCalls = skipCalls
	if len(option.SkipModules) > 0 {
		d.skip = tracer.NewPatternMatcher(option.SkipModules...)
	}
	index := tracer.NewIndex(tracer.NewFoldPolicy(option.CaseFold))
	d.registry = tracer.NewRegistry(index, program.Sources())
	d.machine = host.NewMachine(program, host.WithOutput(&outputWriter{callback: d.callback}))
	return nil
}

// run 运行被调试程序，直到所有线程结束
func (d *TraceDebugger) run(ctx context.Context) {
	defer close(d.done)
	err := d.machine.Run(ctx, d.startOption.Entries, d.newTrace)
	d.timeoutManager.Cancel()

	code, message := 0, ""
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		message = "terminated"
	default:
		code, message = 1, err.Error()
	}
	if errors.Is(err, e.ErrTracingFailed) {
		d.callback(NewErrorEvent(err.Error()))
	}
	d.statusManager.Set(utils.Finish)
	d.callback(NewExitedEvent(code, message))
	logrus.Infof("[TraceDebugger] session %s exited, code = %d", d.sessionID, code)
}

// newTrace 为线程创建tracer
func (d *TraceDebugger) newTrace(thread int) host.TraceFunc {
	hooks := &threadHooks{debugger: d, thread: thread}
	tr := tracer.New(d.registry, hooks, tracer.Option{
		Skip:            d.skip,
		SkipCalls:       d.skipCalls,
		IgnoreFirstCall: d.startOption.IgnoreFirstCall,
	})
	hooks.tracer = tr
	if !d.startOption.StopOnEntry {
		tr.SetContinue()
	}
	if d.recorder != nil {
		return d.recorder.Wrap(thread, tr)
	}
	return tr
}

// threadHooks 一个线程的暂停回调
type threadHooks struct {
	debugger *TraceDebugger
	thread   int
	tracer   *tracer.Tracer
}

func (h *threadHooks) Pause(p *tracer.Pause) bool {
	d := h.debugger
	d.pauseLock.Lock()
	defer d.pauseLock.Unlock()
	if d.ctx.Err() != nil {
		h.tracer.SetQuit()
		return true
	}

	pt := &pausedThread{thread: h.thread, tracer: h.tracer, pause: p, resume: make(chan struct{})}
	d.lock.Lock()
	d.paused = pt
	d.lock.Unlock()

	d.statusManager.Set(utils.Stopped)
	code := p.Frame.Code()
	event := NewStoppedEvent(p.Reason, code.File, p.Frame.Line())
	event.Thread = h.thread
	event.HitBreakpoints = p.Breakpoints
	for _, n := range p.Temporaries {
		d.callback(NewBreakpointEvent(constants.RemovedType, []*Breakpoint{{Number: n, File: code.File, Line: p.Frame.Line()}}))
	}
	d.callback(event)
	d.timeoutManager.Start(d.ctx, d.startOption.IdleTimeout, func() {
		logrus.Warnf("[TraceDebugger] session %s idle timeout", d.sessionID)
		_ = d.Terminate(context.Background())
	})

	select {
	case <-pt.resume:
	case <-d.ctx.Done():
		d.lock.Lock()
		d.paused = nil
		d.lock.Unlock()
		h.tracer.SetQuit()
	}
	return true
}

func (h *threadHooks) SessionEnded(frame tracer.Frame) {
	logrus.Infof("[TraceDebugger] thread %d session ended", h.thread)
	h.debugger.callback(NewSessionEndedEvent(h.thread))
}

// resume 在暂停的线程上设置步进参数并恢复执行
func (d *TraceDebugger) resume(name string, intent func(pt *pausedThread) error) error {
	logrus.Infof("[TraceDebugger] %s", name)
	if !d.statusManager.Is(utils.Stopped) {
		return e.ErrProgramIsRunningOptionFail
	}
	d.lock.Lock()
	pt := d.paused
	if pt == nil {
		d.lock.Unlock()
		return e.ErrProgramNotStopped
	}
	if err := intent(pt); err != nil {
		d.lock.Unlock()
		return err
	}
	d.paused = nil
	d.lock.Unlock()

	d.timeoutManager.Cancel()
	d.statusManager.Set(utils.Running)
	d.callback(NewContinuedEvent())
	close(pt.resume)
	return nil
}

func (d *TraceDebugger) StepIn(ctx context.Context) error {
	return d.resume("StepIn", func(pt *pausedThread) error {
		pt.tracer.SetStep()
		return nil
	})
}

func (d *TraceDebugger) StepOver(ctx context.Context) error {
	return d.resume("StepOver", func(pt *pausedThread) error {
		return pt.tracer.SetNext(pt.pause.Frame)
	})
}

func (d *TraceDebugger) StepOut(ctx context.Context) error {
	return d.resume("StepOut", func(pt *pausedThread) error {
		return pt.tracer.SetReturn(pt.pause.Frame)
	})
}

func (d *TraceDebugger) Until(ctx context.Context, line int) error {
	return d.resume("Until", func(pt *pausedThread) error {
		return pt.tracer.SetUntil(pt.pause.Frame, line)
	})
}

func (d *TraceDebugger) Continue(ctx context.Context) error {
	return d.resume("Continue", func(pt *pausedThread) error {
		pt.tracer.SetContinue()
		return nil
	})
}

func (d *TraceDebugger) Terminate(ctx context.Context) error {
	logrus.Infof("[TraceDebugger] Terminate")
	if d.statusManager.Is(utils.Finish) {
		return nil
	}
	if d.cancel == nil {
		return nil
	}
	d.cancel()
	d.timeoutManager.Cancel()
	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// frame 暂停线程上的第id个栈帧，0为当前栈帧
func (d *TraceDebugger) frame(frameId string) (tracer.Frame, error) {
	d.lock.Lock()
	pt := d.paused
	d.lock.Unlock()
	if pt == nil || !d.statusManager.Is(utils.Stopped) {
		return nil, e.ErrProgramNotStopped
	}
	depth := 0
	if frameId != "" {
		var err error
		if depth, err = strconv.Atoi(frameId); err != nil || depth < 0 {
			return nil, fmt.Errorf("frame %q: %w", frameId, e.ErrFrameNotFound)
		}
	}
	frame := pt.pause.Frame
	for i := 0; i < depth && frame != nil; i++ {
		frame = frame.Back()
	}
	if frame == nil {
		return nil, fmt.Errorf("frame %q: %w", frameId, e.ErrFrameNotFound)
	}
	return frame, nil
}

func (d *TraceDebugger) GetStackTrace(ctx context.Context) ([]*StackFrame, error) {
	frame, err := d.frame("")
	if err != nil {
		return nil, err
	}
	var frames []*StackFrame
	for depth := 0; frame != nil; depth++ {
		code := frame.Code()
		frames = append(frames, &StackFrame{
			ID:   strconv.Itoa(depth),
			Name: code.Name,
			Path: code.File,
			Line: frame.Line(),
		})
		frame = frame.Back()
	}
	return frames, nil
}

func (d *TraceDebugger) GetFrameVariables(ctx context.Context, frameId string) ([]*Variable, error) {
	frame, err := d.frame(frameId)
	if err != nil {
		return nil, err
	}
	return variables(frame.Locals()), nil
}

func (d *TraceDebugger) SetVariable(ctx context.Context, frameId string, name string, value string) error {
	frame, err := d.frame(frameId)
	if err != nil {
		return err
	}
	frame.Locals()[name] = parseValue(value)
	return nil
}
