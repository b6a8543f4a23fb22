package debugger

import (
	"context"
)

type NotificationCallback func(interface{})

// Debugger
// 用户的一次调试过程处理
// 被调试程序可以有多个线程，同一时刻只有一个线程处于暂停状态
// 需要保证并发安全
type Debugger interface {
	// Start
	// 开始调试，callback用来异步处理调试事件和用户程序输出
	Start(ctx context.Context, option *StartOption) error
	// StepOver 下一步，不会进入函数内部
	StepOver(ctx context.Context) error
	// StepIn 下一步，会进入函数内部
	StepIn(ctx context.Context) error
	// StepOut 单步退出
	StepOut(ctx context.Context) error
	// Until 运行到当前栈帧中行号不小于line的行，line<=0 表示下一行
	Until(ctx context.Context, line int) error
	// Continue 忽略继续执行
	Continue(ctx context.Context) error
	// AddBreakpoints 添加断点
	AddBreakpoints(ctx context.Context, breakpoints []*Breakpoint) error
	// RemoveBreakpoints 移除断点，Number不为0时按编号删除
	RemoveBreakpoints(ctx context.Context, breakpoints []*Breakpoint) error
	// GetBreakpoints 所有断点，按编号排序
	GetBreakpoints(ctx context.Context) ([]*Breakpoint, error)
	// EnableBreakpoint 启用或禁用断点
	EnableBreakpoint(ctx context.Context, number int, enabled bool) error
	// SetBreakpointCondition 设置断点条件，空字符串表示删除条件
	SetBreakpointCondition(ctx context.Context, number int, condition string) error
	// SetBreakpointIgnore 断点接下来count次命中不停止
	SetBreakpointIgnore(ctx context.Context, number int, count int) error
	// ReloadSources 源码变化以后重新读取行号表，重新计算断点位置
	// 正在运行的代码不变，无法再解析的断点会被删除
	ReloadSources(ctx context.Context) error
	// GetStackTrace 获取栈帧
	GetStackTrace(ctx context.Context) ([]*StackFrame, error)
	// GetFrameVariables 获取某个栈帧中的变量列表
	GetFrameVariables(ctx context.Context, frameId string) ([]*Variable, error)
	// SetVariable 修改某个栈帧中的变量
	SetVariable(ctx context.Context, frameId string, name string, value string) error
	// Terminate 终止调试
	Terminate(ctx context.Context) error
}
