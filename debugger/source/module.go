package source

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	e "github.com/fansqz/go-tracer/error"
)

// Code 一个代码单元（函数或模块顶层代码）的行号表
type Code struct {
	Name      string
	FirstLine int
	// Lines 代码单元中可执行语句的行号，FirstLine 视为其中一行
	Lines    []int
	Subcodes []*Code
}

// lineNumbers 排序去重后的行号，第一个元素不一定是FirstLine
func (c *Code) lineNumbers() []int {
	seen := make(map[int]struct{}, len(c.Lines)+1)
	lnos := make([]int, 0, len(c.Lines)+1)
	for _, l := range append([]int{c.FirstLine}, c.Lines...) {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		lnos = append(lnos, l)
	}
	sort.Ints(lnos)
	return lnos
}

// Module 一个源文件
type Module struct {
	File string
	Root *Code

	once  sync.Once
	funcs map[string]int
}

func NewModule(file string, root *Code) *Module {
	return &Module{File: Canonic(file), Root: root}
}

// location 到下一个有效语句的距离
type location struct {
	dist   int
	first  int
	actual int
}

// ActualBreakpoint 获取实际的断点位置
// 如果line不是有效语句，选择line之后距离最近的有效语句。
// 函数定义所在行会被映射到该函数的第一条语句。
// 返回 (代码单元首行, 实际断点行)
func (m *Module) ActualBreakpoint(line int) (int, int, error) {
	if line <= 0 {
		return 0, 0, fmt.Errorf("%s:%d: %w", m.File, line, e.ErrInvalidLine)
	}
	if m.Root != nil {
		if loc, ok := distance(m.Root, line, true); ok {
			return loc.first, loc.actual, nil
		}
	}
	return 0, 0, fmt.Errorf("%s: line %d: %w", m.File, line, e.ErrLineAfterLastStm)
}

func distance(code *Code, line int, moduleLevel bool) (location, bool) {
	subcodes := make(map[int]*Code, len(code.Subcodes))
	for _, c := range code.Subcodes {
		if strings.HasPrefix(c.Name, "<") {
			continue
		}
		subcodes[c.FirstLine] = c
	}
	flnos := make([]int, 0, len(subcodes))
	for l := range subcodes {
		flnos = append(flnos, l)
	}
	sort.Ints(flnos)

	// 首行不大于line的最后一个子代码单元
	var sub location
	var subOK bool
	if idx := sort.SearchInts(flnos, line+1); idx != 0 {
		sub, subOK = distance(subcodes[flnos[idx-1]], line, false)
	}

	lnos := code.lineNumbers()
	// 不在函数定义语句处停止
	if !moduleLevel && len(lnos) > 1 {
		lnos = lnos[1:]
	}
	_, isDef := subcodes[line]
	if !isDef {
		if i := sort.SearchInts(lnos, line); i < len(lnos) && lnos[i] == line {
			return location{0, code.FirstLine, line}, true
		}
	}

	idx := sort.SearchInts(lnos, line+1)
	if idx == len(lnos) {
		return sub, subOK
	}
	actual := lnos[idx]
	dist := actual - line
	if subOK && sub.dist < dist {
		return sub, true
	}
	if next, ok := subcodes[actual]; ok {
		return distance(next, line, false)
	}
	return location{dist, code.FirstLine, actual}, true
}

// FuncFirstLine 函数定义的首行号，嵌套函数使用 outer.inner 的形式
func (m *Module) FuncFirstLine(name string) (int, error) {
	m.once.Do(func() {
		m.funcs = make(map[string]int)
		if m.Root != nil {
			for _, c := range m.Root.Subcodes {
				collectFuncs(m.funcs, "", c)
			}
		}
	})
	if l, ok := m.funcs[name]; ok {
		return l, nil
	}
	return 0, fmt.Errorf("%s: function %q: %w", m.File, name, e.ErrFuncNotFound)
}

func collectFuncs(funcs map[string]int, prefix string, c *Code) {
	name := c.Name
	if prefix != "" {
		name = prefix + "." + c.Name
	}
	funcs[name] = c.FirstLine
	for _, sub := range c.Subcodes {
		collectFuncs(funcs, name, sub)
	}
}

// Resolver 为断点提供源码信息
type Resolver interface {
	ActualBreakpoint(file string, line int) (firstLine int, actualLine int, err error)
	FuncFirstLine(file string, name string) (int, error)
}

// Set 多个源文件的集合，实现Resolver
type Set struct {
	lock    sync.RWMutex
	modules map[string]*Module
}

func NewSet(modules ...*Module) *Set {
	s := &Set{modules: make(map[string]*Module)}
	for _, m := range modules {
		s.Add(m)
	}
	return s
}

func (s *Set) Add(m *Module) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.modules[m.File] = m
}

func (s *Set) Module(file string) (*Module, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	m, ok := s.modules[Canonic(file)]
	return m, ok
}

func (s *Set) ActualBreakpoint(file string, line int) (int, int, error) {
	m, ok := s.Module(file)
	if !ok {
		return 0, 0, fmt.Errorf("%s: %w", file, e.ErrSourceNotFound)
	}
	return m.ActualBreakpoint(line)
}

func (s *Set) FuncFirstLine(file string, name string) (int, error) {
	m, ok := s.Module(file)
	if !ok {
		return 0, fmt.Errorf("%s: %w", file, e.ErrSourceNotFound)
	}
	return m.FuncFirstLine(name)
}

// Canonic 文件名的规范形式，<string> 这类名称保持不变
func Canonic(file string) string {
	if strings.HasPrefix(file, "<") && strings.HasSuffix(file, ">") {
		return file
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return filepath.Clean(file)
	}
	return filepath.Clean(abs)
}
