package tracer

import "fmt"

// CodeUnit 静态的函数定义，同一个函数的所有栈帧共享一个CodeUnit。
// CodeUnit 通过指针比较，而不是值比较。
type CodeUnit struct {
	Name string
	// Module 模块名，用于跳过模块的匹配
	Module    string
	File      string
	FirstLine int
}

func (c *CodeUnit) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%s:%d)", c.Name, c.File, c.FirstLine)
}

// Frame 宿主运行时的栈帧，tracer只持有它的引用
type Frame interface {
	// Code 栈帧正在执行的代码单元
	Code() *CodeUnit
	// Line 当前行号
	Line() int
	// Back 调用者栈帧，最底层栈帧返回nil
	Back() Frame
	// Traced 是否为该栈帧投递行级事件
	Traced() bool
	// SetTraced 设置或清除该栈帧自己的trace hook
	SetTraced(traced bool)
	// Locals 栈帧的局部变量
	Locals() map[string]any
}
