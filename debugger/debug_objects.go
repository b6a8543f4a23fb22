package debugger

import (
	"time"

	"github.com/fansqz/go-tracer/constants"
)

// StartOption 启动调试的参数
type StartOption struct {
	// ProgramFile 被调试程序的描述文件
	ProgramFile string
	// Entries 每个线程的入口函数，为空时使用程序中定义的线程
	Entries []string
	// BreakPoints 启动前设置的断点
	BreakPoints []*Breakpoint
	// SkipModules 不在这些模块中单步停止，支持 * 和 ? 通配符
	SkipModules []string
	// SkipFunctions 不追踪这些函数的调用
	SkipFunctions []string
	// CaseFold 文件名大小写策略
	CaseFold constants.CaseFoldType
	// StopOnEntry 在第一个事件处暂停
	StopOnEntry bool
	// IgnoreFirstCall 忽略入口函数的call事件
	IgnoreFirstCall bool
	// IdleTimeout 暂停超过该时间没有操作时结束调试，0表示不限制
	IdleTimeout time.Duration
	// Callback 事件回调
	Callback NotificationCallback
}

// Breakpoint 表示断点
type Breakpoint struct {
	Number    int    `json:"number,omitempty"`
	File      string `json:"file"` // 文件名称
	Line      int    `json:"line"` // 行号
	Func      string `json:"func,omitempty"`
	Temporary bool   `json:"temporary,omitempty"`
	Condition string `json:"condition,omitempty"`
	// 以下字段只在查询时返回
	ActualLine int  `json:"actualLine,omitempty"`
	Enabled    bool `json:"enabled,omitempty"`
	Ignore     int  `json:"ignore,omitempty"`
	Hits       int  `json:"hits,omitempty"`
}

func NewBreakpoint(file string, line int) *Breakpoint {
	return &Breakpoint{File: file, Line: line}
}

// StackFrame 栈帧
type StackFrame struct {
	ID   string `json:"id"`   // 栈帧id
	Name string `json:"name"` // 函数名称
	Path string `json:"path"` // 文件路径
	Line int    `json:"line"`
}

// Variable 变量
type Variable struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Value *string `json:"value"`
}

// 定义的一些Event
var (
	LaunchSuccessEvent = NewLaunchEvent(true, "目标程序加载成功")
	LaunchFailEvent    = NewLaunchEvent(false, "目标程序加载失败")
)

// BreakpointEvent 断点事件
// 该event指示有关断点的某些信息已更改。
type BreakpointEvent struct {
	Reason      constants.BreakpointReasonType
	Breakpoints []*Breakpoint
}

func NewBreakpointEvent(reason constants.BreakpointReasonType, breakpoints []*Breakpoint) *BreakpointEvent {
	return &BreakpointEvent{
		Reason:      reason,
		Breakpoints: breakpoints,
	}
}

// OutputEvent
// 用户程序输出
type OutputEvent struct {
	Output string // 输出内容
}

func NewOutputEvent(output string) *OutputEvent {
	return &OutputEvent{
		Output: output,
	}
}

// StoppedEvent
// 该event表明，由于某些原因，被调试程序的执行已经停止。
// 这可能是由先前设置的断点、完成的步进请求、执行调试器语句等引起的。
type StoppedEvent struct {
	Reason constants.StoppedReasonType // 停止执行的原因
	File   string                      // 当前停止在哪个文件
	Line   int                         // 停止在某行
	Thread int
	// HitBreakpoints 命中的断点编号
	HitBreakpoints []int
}

func NewStoppedEvent(reason constants.StoppedReasonType, file string, line int) *StoppedEvent {
	return &StoppedEvent{
		Reason: reason,
		File:   file,
		Line:   line,
	}
}

// ContinuedEvent
// 该event表明debug的执行已经继续。
type ContinuedEvent struct {
}

func NewContinuedEvent() *ContinuedEvent {
	return &ContinuedEvent{}
}

// SessionEndedEvent
// 线程最底层的栈帧返回，该线程不再被追踪
type SessionEndedEvent struct {
	Thread int
}

func NewSessionEndedEvent(thread int) *SessionEndedEvent {
	return &SessionEndedEvent{Thread: thread}
}

// ExitedEvent
// 该event表明被调试程序已经退出并返回exit code
type ExitedEvent struct {
	ExitCode int
	Message  string
}

func NewExitedEvent(code int, message string) *ExitedEvent {
	return &ExitedEvent{
		ExitCode: code,
		Message:  message,
	}
}

// ErrorEvent
// tracer内部错误，追踪已经失效，程序会继续运行到结束
type ErrorEvent struct {
	Message string
}

func NewErrorEvent(message string) *ErrorEvent {
	return &ErrorEvent{Message: message}
}

// LaunchEvent
// 调试资源准备成功
type LaunchEvent struct {
	Success bool
	Message string
}

func NewLaunchEvent(success bool, message string) *LaunchEvent {
	return &LaunchEvent{
		Success: success,
		Message: message,
	}
}
