package error

import "errors"

var (
	ErrProgramIsRunningOptionFail = errors.New("The program is running")
	ErrProgramNotStopped          = errors.New("The program is not stopped")
	ErrDebuggerNotStarted         = errors.New("debug not start")
	ErrDebuggerStarted            = errors.New("debug already started")
	ErrFrameNotFound              = errors.New("frame not found")

	// 步进参数错误，在设置时就拒绝
	ErrNoTargetFrame = errors.New("stepping requires a target frame")
	ErrInvalidLine   = errors.New("invalid line number")

	// 断点相关
	ErrBreakpointNotFound = errors.New("breakpoint not found")
	ErrBreakpointDeleted  = errors.New("breakpoint already deleted")
	ErrNoBreakpoints      = errors.New("there are no breakpoints")
	ErrInvalidCondition   = errors.New("invalid breakpoint condition")

	// 源码解析
	ErrSourceNotFound   = errors.New("source not found")
	ErrLineAfterLastStm = errors.New("line is after the last valid statement")
	ErrFuncNotFound     = errors.New("function not found")

	// tracer内部错误，会导致整个追踪会话失效
	ErrTracingFailed        = errors.New("tracing failed")
	ErrUnresolvedBreakpoint = errors.New("breakpoint line without breakpoints")

	// 宿主运行时
	ErrProgramInvalid    = errors.New("invalid program")
	ErrUncaughtException = errors.New("uncaught exception")

	// 控制台命令
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgument    = errors.New("bad argument")
)
