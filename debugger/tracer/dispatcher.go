package tracer

import (
	"fmt"

	"github.com/emirpasic/gods/sets"
	"github.com/fansqz/go-tracer/constants"
	e "github.com/fansqz/go-tracer/error"
	"github.com/fansqz/go-tracer/utils"
	"github.com/sirupsen/logrus"
)

// Action 事件处理完成以后，宿主运行时需要执行的动作
type Action uint8

const (
	// Continue 继续为该栈帧投递行级事件
	Continue Action = iota
	// Detach 不再为该栈帧投递行级事件
	Detach
	// DetachAll 整个调用栈停止追踪
	DetachAll
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Detach:
		return "detach"
	case DetachAll:
		return "detach-all"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Pause 一次暂停的上下文
type Pause struct {
	Frame  Frame
	Event  constants.EventKind
	Reason constants.StoppedReasonType
	// Arg call事件的参数、return事件的返回值或exception事件的异常
	Arg any
	// Breakpoints 生效的断点编号
	Breakpoints []int
	// Temporaries 已经删除的临时断点编号
	Temporaries []int
}

// Hooks 由调试策略实现
type Hooks interface {
	// Pause 阻塞被调试线程直到用户恢复执行
	// 栈帧的局部变量只在回调期间可以访问和修改。
	// 返回false表示不再追踪该栈帧。
	Pause(p *Pause) bool
	// SessionEnded 最底层栈帧返回，本线程的调试会话结束
	SessionEnded(frame Frame)
}

// Option 创建Tracer的参数
type Option struct {
	// Skip 需要跳过的模块，为nil时不跳过
	Skip SkipMatcher
	// SkipCalls 不追踪这些代码单元的调用
	SkipCalls []*CodeUnit
	// IgnoreFirstCall 忽略第一个call事件（启动代码）
	IgnoreFirstCall bool
}

// Tracer 事件分发器
// 每个被调试的线程需要一个Tracer，多个Tracer可以共享一个Registry。
// Dispatch 只能在被调试线程上调用；步进参数只能在Pause回调期间修改。
type Tracer struct {
	registry *Registry
	hooks    Hooks
	state    stepState
	cache    lookupCache

	skip      SkipMatcher
	skipMemo  map[*CodeUnit]bool
	skipCalls sets.Set

	// topFrame 暂停时的栈帧
	topFrame Frame
	active   bool
	failed   error

	log *logrus.Entry
}

func New(registry *Registry, hooks Hooks, option Option) *Tracer {
	t := &Tracer{
		registry: registry,
		hooks:    hooks,
		skip:     option.Skip,
		skipMemo: make(map[*CodeUnit]bool),
		active:   true,
		log:      logrus.WithField("component", "tracer"),
	}
	if len(option.SkipCalls) > 0 {
		t.skipCalls = utils.List2set(option.SkipCalls)
	}
	t.Reset(option.IgnoreFirstCall, nil)
	return t
}

// Reset 重置步进参数，默认在第一行停止
func (t *Tracer) Reset(ignoreFirstCall bool, botFrame Frame) {
	t.state = stepState{
		botFrame:        botFrame,
		ignoreFirstCall: ignoreFirstCall,
	}
	t.topFrame = nil
	t.invalidate()
}

// Dispatch 处理一个事件
func (t *Tracer) Dispatch(frame Frame, event constants.EventKind, arg any) (action Action, err error) {
	if t.failed != nil || !t.active {
		return DetachAll, nil
	}
	if t.state.quitting {
		t.StopTracing(frame)
		return DetachAll, nil
	}
	if t.state.botFrame == nil {
		t.state.botFrame = frame
	}
	defer func() {
		if r := recover(); r != nil {
			action, err = DetachAll, t.fail(frame, fmt.Errorf("%s event: panic: %v", event, r))
		}
	}()

	switch event {
	case constants.EventLine:
		return t.dispatchLine(frame)
	case constants.EventCall:
		return t.dispatchCall(frame, arg)
	case constants.EventReturn:
		return t.dispatchReturn(frame, arg)
	case constants.EventException:
		return t.dispatchException(frame, arg)
	}
	return DetachAll, t.fail(frame, fmt.Errorf("unknown event %q", event))
}

func (t *Tracer) dispatchLine(frame Frame) (Action, error) {
	if t.StopHere(frame) {
		return t.userMethod(frame, &Pause{Event: constants.EventLine, Reason: constants.StepStopped})
	}
	bps, ok := t.BreakpointsAt(frame)
	if !ok {
		return Continue, nil
	}
	if len(bps) == 0 {
		return DetachAll, t.fail(frame, fmt.Errorf("%s:%d: %w", frame.Code().File, frame.Line(), e.ErrUnresolvedBreakpoint))
	}

	// 同一行可能有多个断点
	var effective, temporaries []int
	locals := frame.Locals()
	for _, bp := range bps {
		stop, del := bp.processHit(locals)
		if !stop {
			continue
		}
		effective = append(effective, bp.Number)
		if bp.Temporary && del {
			temporaries = append(temporaries, bp.Number)
		}
	}
	if len(effective) == 0 {
		return Continue, nil
	}
	for _, n := range temporaries {
		if err := t.registry.Clear(n); err != nil {
			t.log.Warnf("[dispatchLine] clear temporary breakpoint %d fail, err = %v", n, err)
		}
	}
	return t.userMethod(frame, &Pause{
		Event:       constants.EventLine,
		Reason:      constants.BreakpointStopped,
		Breakpoints: effective,
		Temporaries: temporaries,
	})
}

func (t *Tracer) dispatchCall(frame Frame, arg any) (Action, error) {
	if t.state.ignoreFirstCall {
		t.state.ignoreFirstCall = false
		return Continue, nil
	}
	if t.skipCalls != nil && t.skipCalls.Contains(frame.Code()) {
		return Detach, nil
	}
	stop := t.StopHere(frame)
	_, _, hasBreaks := t.Resolve(frame)
	if !stop && !hasBreaks {
		// 最底层的栈帧必须被追踪，返回时才能结束会话
		if frame == t.state.botFrame {
			return Continue, nil
		}
		// 不需要追踪这个函数
		return Detach, nil
	}
	if stop {
		return t.userMethod(frame, &Pause{Event: constants.EventCall, Reason: constants.CallStopped, Arg: arg})
	}
	// 函数中有断点，需要行事件来找到断点行
	return Continue, nil
}

func (t *Tracer) dispatchReturn(frame Frame, arg any) (Action, error) {
	if t.StopHere(frame) || frame == t.state.stopFrame {
		action, err := t.userMethod(frame, &Pause{Event: constants.EventReturn, Reason: constants.ReturnStopped, Arg: arg})
		if err != nil || action != Continue {
			return action, err
		}
		// step、next、until、return命令之后从当前栈帧返回时，调用者也需要追踪
		if frame != t.state.botFrame &&
			((t.state.stopFrame == nil && t.state.stopLine == 0) || frame == t.state.stopFrame) {
			if back := frame.Back(); back != nil && !back.Traced() {
				back.SetTraced(true)
			}
			t.state.stopFrame = nil
			t.state.stopLine = 0
		}
	}
	if frame == t.state.botFrame {
		t.StopTracing(frame)
		t.hooks.SessionEnded(frame)
		t.log.Debugf("[dispatchReturn] session ended at %s", frame.Code())
		return DetachAll, nil
	}
	return Continue, nil
}

func (t *Tracer) dispatchException(frame Frame, arg any) (Action, error) {
	if t.StopHere(frame) {
		return t.userMethod(frame, &Pause{Event: constants.EventException, Reason: constants.ExceptionStopped, Arg: arg})
	}
	return Continue, nil
}

// userMethod 调用暂停回调，并根据回调之后的状态决定是否继续追踪
func (t *Tracer) userMethod(frame Frame, p *Pause) (Action, error) {
	t.topFrame = frame
	p.Frame = frame
	t.log.Debugf("[userMethod] pause at %s line %d, reason = %s", frame.Code(), frame.Line(), p.Reason)
	keep := t.hooks.Pause(p)
	t.topFrame = nil

	if t.state.quitting {
		return DetachAll, nil
	}
	// 回调期间停止了追踪，例如没有断点时的continue
	if !t.active {
		return Detach, nil
	}
	if !keep {
		return Detach, nil
	}
	return Continue, nil
}

// fail 任何内部错误都会使整个追踪失效，不做部分恢复
func (t *Tracer) fail(frame Frame, cause error) error {
	err := fmt.Errorf("%w: %w", e.ErrTracingFailed, cause)
	t.failed = err
	t.topFrame = frame
	t.StopTracing(frame)
	t.topFrame = nil
	t.log.Errorf("[fail] tracing disabled, err = %v", err)
	return err
}

// StopTracing 停止追踪，清除从frame到botFrame所有栈帧的trace hook
func (t *Tracer) StopTracing(frame Frame) {
	t.active = false
	if frame == nil {
		frame = t.topFrame
	}
	for frame != nil {
		frame.SetTraced(false)
		if frame == t.state.botFrame {
			break
		}
		frame = frame.Back()
	}
}

// SetTrace 从frame开始追踪，用于程序运行中途进入调试
func (t *Tracer) SetTrace(frame Frame) {
	t.active = false
	frame.SetTraced(true)

	// 已经存在的botFrame保持不变
	t.Reset(false, t.state.botFrame)
	t.topFrame = frame
	f := frame
	var last Frame
	for f != nil {
		if f == t.state.botFrame {
			break
		}
		last = f
		f = f.Back()
	}
	if f == nil {
		t.state.botFrame = last
	}
	// 最底层的栈帧必须被追踪，才能在结束时停止追踪
	if !t.state.botFrame.Traced() {
		t.state.botFrame.SetTraced(true)
	}
	t.active = true
}

// Active 是否仍在追踪，宿主运行时只在Active时投递call事件
func (t *Tracer) Active() bool {
	return t.active
}

// Quitting 是否已经退出
func (t *Tracer) Quitting() bool {
	return t.state.quitting
}

// Failed 导致追踪失效的错误
func (t *Tracer) Failed() error {
	return t.failed
}

// TopFrame 当前暂停的栈帧，不在暂停中时为nil
func (t *Tracer) TopFrame() Frame {
	return t.topFrame
}

// BotFrame 本次运行最早的栈帧
func (t *Tracer) BotFrame() Frame {
	return t.state.botFrame
}

// StopInfo 当前的步进参数
func (t *Tracer) StopInfo() (Frame, int) {
	return t.state.stopFrame, t.state.stopLine
}

// Registry 断点
func (t *Tracer) Registry() *Registry {
	return t.registry
}
