package constants

// EventKind 宿主运行时投递给tracer的事件类型
type EventKind string

const (
	// EventCall 进入一个新的栈帧
	EventCall EventKind = "call"
	// EventLine 即将执行某一行
	EventLine EventKind = "line"
	// EventReturn 栈帧即将返回
	EventReturn EventKind = "return"
	// EventException 栈帧内抛出异常
	EventException EventKind = "exception"
)

// DebugOptionType 调试请求操作类型
type DebugOptionType string

const (
	// Step 执行下一步操作，会进入函数内部
	Step DebugOptionType = "step"
	// Next 执行下一步操作，但不会进入函数内部
	Next DebugOptionType = "next"
	// Until 在当前栈帧中运行到行号大于等于目标行，或当前栈帧返回
	Until DebugOptionType = "until"
	// Return 运行到当前栈帧返回
	Return DebugOptionType = "return"
	// Continue 继续执行程序，直到遇到下一个断点或程序结束
	Continue DebugOptionType = "continue"
	// AddBreakpoints 添加断点
	AddBreakpoints DebugOptionType = "break"
	// AddTemporaryBreakpoints 添加临时断点，命中一次后删除
	AddTemporaryBreakpoints DebugOptionType = "tbreak"
	// RemoveBreakpoints 移除断点
	RemoveBreakpoints DebugOptionType = "clear"
	// EnableBreakpoint 启用断点
	EnableBreakpoint DebugOptionType = "enable"
	// DisableBreakpoint 禁用断点
	DisableBreakpoint DebugOptionType = "disable"
	// Condition 设置断点条件
	Condition DebugOptionType = "condition"
	// Ignore 设置断点忽略次数
	Ignore DebugOptionType = "ignore"
	// ListBreakpoints 列出断点
	ListBreakpoints DebugOptionType = "breakpoints"
	// Reload 源码变化以后重新计算断点位置
	Reload DebugOptionType = "reload"
	// StackTrace 获取栈帧
	StackTrace DebugOptionType = "where"
	// FrameVariables 获取栈帧中的变量
	FrameVariables DebugOptionType = "locals"
	// SetVariable 修改当前栈帧的变量
	SetVariable DebugOptionType = "set"
	// Terminate 终止当前的调试会话
	Terminate DebugOptionType = "quit"
	// Help 帮助
	Help DebugOptionType = "help"
)

type DebugEventType string

const (
	BreakpointEvent   DebugEventType = "breakpoint"
	OutputEvent       DebugEventType = "output"
	StoppedEvent      DebugEventType = "stopped"
	ContinuedEvent    DebugEventType = "continued"
	ExitedEvent       DebugEventType = "exited"
	TerminatedEvent   DebugEventType = "terminated"
	SessionEndedEvent DebugEventType = "sessionEnded"
	ErrorEvent        DebugEventType = "error"
)

// BreakpointReasonType 断点改变类型
type BreakpointReasonType string

const (
	ChangeType  BreakpointReasonType = "changed"
	NewType     BreakpointReasonType = "new"
	RemovedType BreakpointReasonType = "removed"
)

// StoppedReasonType 程序停止类型
type StoppedReasonType string

const (
	// CallStopped 进入函数时停止
	CallStopped StoppedReasonType = "call"
	// StepStopped 单步到某行停止
	StepStopped StoppedReasonType = "step"
	// BreakpointStopped 命中断点
	BreakpointStopped StoppedReasonType = "breakpoint"
	// ReturnStopped 函数返回时停止
	ReturnStopped StoppedReasonType = "return"
	// ExceptionStopped 异常时停止
	ExceptionStopped StoppedReasonType = "exception"
)
