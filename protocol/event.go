package protocol

import (
	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger"
)

// LaunchEvent
// 加载被调试程序事件
type LaunchEvent struct {
	Event   string `json:"event"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BreakpointEvent 断点事件
// 该event指示有关断点的某些信息已更改。
type BreakpointEvent struct {
	Event       constants.DebugEventType       `json:"event"`
	Reason      constants.BreakpointReasonType `json:"reason"`
	Breakpoints []*debugger.Breakpoint         `json:"breakpoints"`
}

// OutputEvent
// 该事件表明目标已经产生了一些输出。
type OutputEvent struct {
	Event  constants.DebugEventType `json:"event"`
	Output string                   `json:"output"` // 输出内容
}

// StoppedEvent
// 该event表明，由于某些原因，被调试程序的执行已经停止。
type StoppedEvent struct {
	Event          constants.DebugEventType    `json:"event"`
	Reason         constants.StoppedReasonType `json:"reason"` // 停止执行的原因
	File           string                      `json:"file"`
	Line           int                         `json:"line"` // 停止在某行
	Thread         int                         `json:"thread"`
	HitBreakpoints []int                       `json:"hitBreakpoints,omitempty"`
}

// ContinuedEvent
// 该event表明debug的执行已经继续。
type ContinuedEvent struct {
	Event constants.DebugEventType `json:"event"`
}

// SessionEndedEvent 线程的追踪会话结束
type SessionEndedEvent struct {
	Event  constants.DebugEventType `json:"event"`
	Thread int                      `json:"thread"`
}

// ExitedEvent
// 该event表明被调试对象已经退出并返回exit code。
type ExitedEvent struct {
	Event    constants.DebugEventType `json:"event"`
	ExitCode int                      `json:"exitCode"`
	Message  string                   `json:"message"`
}

// ErrorEvent tracer内部错误
type ErrorEvent struct {
	Event   constants.DebugEventType `json:"event"`
	Message string                   `json:"message"`
}

// NewEvent 把调试器的事件转换为带event字段的JSON结构，不认识的事件返回nil
func NewEvent(event interface{}) interface{} {
	switch event := event.(type) {
	case *debugger.LaunchEvent:
		return &LaunchEvent{Event: "launch", Success: event.Success, Message: event.Message}
	case *debugger.BreakpointEvent:
		return &BreakpointEvent{Event: constants.BreakpointEvent, Reason: event.Reason, Breakpoints: event.Breakpoints}
	case *debugger.OutputEvent:
		return &OutputEvent{Event: constants.OutputEvent, Output: event.Output}
	case *debugger.StoppedEvent:
		return &StoppedEvent{
			Event:          constants.StoppedEvent,
			Reason:         event.Reason,
			File:           event.File,
			Line:           event.Line,
			Thread:         event.Thread,
			HitBreakpoints: event.HitBreakpoints,
		}
	case *debugger.ContinuedEvent:
		return &ContinuedEvent{Event: constants.ContinuedEvent}
	case *debugger.SessionEndedEvent:
		return &SessionEndedEvent{Event: constants.SessionEndedEvent, Thread: event.Thread}
	case *debugger.ExitedEvent:
		return &ExitedEvent{Event: constants.ExitedEvent, ExitCode: event.ExitCode, Message: event.Message}
	case *debugger.ErrorEvent:
		return &ErrorEvent{Event: constants.ErrorEvent, Message: event.Message}
	}
	return nil
}
