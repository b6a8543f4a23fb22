package tracer

import (
	"fmt"

	e "github.com/fansqz/go-tracer/error"
	"github.com/tidwall/match"
)

// NeverStop stopLine的特殊值：匹配的栈帧不会在行事件上停止
const NeverStop = -1

// stepState 步进参数
// (stopFrame, stopLine) 的含义：
//
//	(nil, 0)   总是停止
//	(nil, -1)  从不停止
//	(F, 0)     在F的下一行停止
//	(F, -1)    从F返回时停止
//
// stopFrame 不为nil时，F的return事件总会停止，与stopLine无关。
type stepState struct {
	stopFrame Frame
	stopLine  int
	quitting  bool
	// botFrame 本次运行中最早的栈帧，它返回时会话结束
	botFrame Frame
	// ignoreFirstCall 只生效一次
	ignoreFirstCall bool
}

// SkipMatcher 判断一个代码单元是否属于需要跳过的模块
type SkipMatcher interface {
	IsSkipped(code *CodeUnit) bool
}

// PatternMatcher 使用glob模式匹配模块名，例如 "lib.*"
type PatternMatcher struct {
	patterns []string
}

func NewPatternMatcher(patterns ...string) *PatternMatcher {
	return &PatternMatcher{patterns: patterns}
}

func (m *PatternMatcher) IsSkipped(code *CodeUnit) bool {
	for _, p := range m.patterns {
		if match.Match(code.Module, p) {
			return true
		}
	}
	return false
}

// isSkipped 每个代码单元只计算一次
func (t *Tracer) isSkipped(code *CodeUnit) bool {
	if code == nil {
		return false
	}
	if skipped, ok := t.skipMemo[code]; ok {
		return skipped
	}
	skipped := t.skip.IsSkipped(code)
	t.skipMemo[code] = skipped
	return skipped
}

// StopHere 步进参数是否要求在该栈帧停止
func (t *Tracer) StopHere(frame Frame) bool {
	if t.skip != nil && t.isSkipped(frame.Code()) {
		return false
	}
	if t.state.stopFrame == nil || frame == t.state.stopFrame {
		if t.state.stopLine == NeverStop {
			return false
		}
		return frame.Line() >= t.state.stopLine
	}
	return false
}

// setStopInfo 保证stopFrame在 [botFrame, topFrame] 之间，并且设置了trace hook
func (t *Tracer) setStopInfo(stopFrame Frame, stopLine int) {
	frame := t.topFrame
	for stopFrame != nil && frame != nil && frame != stopFrame {
		if frame == t.state.botFrame {
			stopFrame = t.state.botFrame
			break
		}
		frame = frame.Back()
	}
	if stopFrame != nil && !stopFrame.Traced() {
		stopFrame.SetTraced(true)
	}
	t.state.stopFrame = stopFrame
	t.state.stopLine = stopLine
}

// SetStep 在下一行停止，不论在哪个栈帧
func (t *Tracer) SetStep() {
	t.setStopInfo(nil, 0)
}

// SetNext 在frame或其调用者的下一行停止
func (t *Tracer) SetNext(frame Frame) error {
	if frame == nil {
		return fmt.Errorf("next: %w", e.ErrNoTargetFrame)
	}
	t.setStopInfo(frame, 0)
	return nil
}

// SetUntil frame的行号大于等于line，或者frame返回时停止
// line <= 0 时使用当前行的下一行
func (t *Tracer) SetUntil(frame Frame, line int) error {
	if frame == nil {
		return fmt.Errorf("until: %w", e.ErrNoTargetFrame)
	}
	if line <= 0 {
		line = frame.Line() + 1
	}
	t.setStopInfo(frame, line)
	return nil
}

// SetReturn frame返回时停止
func (t *Tracer) SetReturn(frame Frame) error {
	if frame == nil {
		return fmt.Errorf("return: %w", e.ErrNoTargetFrame)
	}
	t.setStopInfo(frame, NeverStop)
	return nil
}

// SetContinue 只在断点处停止，没有断点时直接停止追踪
func (t *Tracer) SetContinue() {
	t.setStopInfo(nil, NeverStop)
	if !t.registry.HasBreaks() {
		t.StopTracing(nil)
	}
}

// SetQuit 退出调试，之后所有事件都返回DetachAll
func (t *Tracer) SetQuit() {
	t.state.quitting = true
	t.StopTracing(nil)
}
