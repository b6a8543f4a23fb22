package tracer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/fansqz/go-tracer/debugger/source"
	e "github.com/fansqz/go-tracer/error"
	"github.com/sirupsen/logrus"
)

// BreakpointOption 设置断点的选项
type BreakpointOption struct {
	Temporary bool
	Condition string
}

// Registry 按编号管理断点，并负责维护断点索引
// 所有对Index的修改都通过Registry完成。
type Registry struct {
	lock     sync.Mutex
	index    *Index
	resolver source.Resolver
	// numbers 断点编号 -> *Breakpoint，按编号有序
	numbers *treemap.Map
	next    int
	log     *logrus.Entry
}

func NewRegistry(index *Index, resolver source.Resolver) *Registry {
	return &Registry{
		index:    index,
		resolver: resolver,
		numbers:  treemap.NewWithIntComparator(),
		log:      logrus.WithField("component", "registry"),
	}
}

// Index 断点索引，供tracer查询
func (r *Registry) Index() *Index {
	return r.index
}

// Set 在file:line设置断点
func (r *Registry) Set(file string, line int, opt BreakpointOption) (*Breakpoint, error) {
	return r.add(source.Canonic(file), line, "", opt)
}

// SetFunc 在函数的第一条语句设置断点
func (r *Registry) SetFunc(file string, funcName string, opt BreakpointOption) (*Breakpoint, error) {
	file = source.Canonic(file)
	line, err := r.lines().FuncFirstLine(file, funcName)
	if err != nil {
		return nil, err
	}
	return r.add(file, line, funcName, opt)
}

func (r *Registry) add(file string, line int, funcName string, opt BreakpointOption) (*Breakpoint, error) {
	if opt.Condition != "" {
		if err := compileCondition(opt.Condition); err != nil {
			return nil, err
		}
	}
	first, actual, err := r.lines().ActualBreakpoint(file, line)
	if err != nil {
		return nil, err
	}
	bp := &Breakpoint{
		File:       file,
		Line:       line,
		FirstLine:  first,
		ActualLine: actual,
		Temporary:  opt.Temporary,
		Func:       funcName,
		cond:       opt.Condition,
		enabled:    true,
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	r.next++
	bp.Number = r.next
	r.numbers.Put(bp.Number, bp)
	r.index.Upsert(file, first, bp)
	r.index.Alias(file, pathnames(file)...)
	r.log.Debugf("[Set] breakpoint %d at %s:%d (actual %d, code %d)", bp.Number, file, line, actual, first)
	return bp, nil
}

// lines 当前的行号表，Reload 会替换它
func (r *Registry) lines() source.Resolver {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.resolver
}

// pathnames 代码单元的文件名可能是相对路径，断点需要同时注册在这些名称下
func pathnames(abs string) []string {
	cwd, err := os.Getwd()
	if err != nil {
		return nil
	}
	prefix := cwd + string(filepath.Separator)
	if !strings.HasPrefix(abs, prefix) {
		return nil
	}
	rel := abs[len(prefix):]
	return []string{rel, "." + string(filepath.Separator) + rel}
}

// Get 根据编号获取断点
func (r *Registry) Get(number int) (*Breakpoint, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.get(number)
}

func (r *Registry) get(number int) (*Breakpoint, error) {
	if number <= 0 || number > r.next {
		return nil, fmt.Errorf("breakpoint number %d out of range: %w", number, e.ErrBreakpointNotFound)
	}
	v, ok := r.numbers.Get(number)
	if !ok {
		return nil, fmt.Errorf("breakpoint %d: %w", number, e.ErrBreakpointDeleted)
	}
	return v.(*Breakpoint), nil
}

// Clear 删除断点
func (r *Registry) Clear(number int) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	bp, err := r.get(number)
	if err != nil {
		return err
	}
	r.remove(bp)
	return nil
}

func (r *Registry) remove(bp *Breakpoint) {
	r.numbers.Remove(bp.Number)
	if !r.index.Remove(bp.File, bp.FirstLine, bp) {
		r.log.Warnf("[remove] breakpoint %d not found in index", bp.Number)
	}
}

// ClearAt 删除file:line上的所有断点
func (r *Registry) ClearAt(file string, line int) ([]*Breakpoint, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	bps := r.breaks(source.Canonic(file), line)
	if len(bps) == 0 {
		return nil, fmt.Errorf("there is no breakpoint at %s:%d: %w", file, line, e.ErrBreakpointNotFound)
	}
	for _, bp := range bps {
		r.remove(bp)
	}
	return bps, nil
}

// ClearAll 删除所有断点
func (r *Registry) ClearAll() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.numbers.Empty() {
		return e.ErrNoBreakpoints
	}
	for _, v := range r.numbers.Values() {
		r.remove(v.(*Breakpoint))
	}
	return nil
}

// Breaks file:line上由用户设置的断点，按编号排序
func (r *Registry) Breaks(file string, line int) []*Breakpoint {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.breaks(source.Canonic(file), line)
}

func (r *Registry) breaks(file string, line int) []*Breakpoint {
	var bps []*Breakpoint
	for _, v := range r.numbers.Values() {
		if bp := v.(*Breakpoint); bp.File == file && bp.Line == line {
			bps = append(bps, bp)
		}
	}
	return bps
}

// All 所有断点，按编号排序
func (r *Registry) All() []*Breakpoint {
	r.lock.Lock()
	defer r.lock.Unlock()
	values := r.numbers.Values()
	bps := make([]*Breakpoint, 0, len(values))
	for _, v := range values {
		bps = append(bps, v.(*Breakpoint))
	}
	return bps
}

func (r *Registry) HasBreaks() bool {
	return r.index.HasBreaks()
}

func (r *Registry) Enable(number int) error {
	bp, err := r.Get(number)
	if err != nil {
		return err
	}
	bp.setEnabled(true)
	return nil
}

func (r *Registry) Disable(number int) error {
	bp, err := r.Get(number)
	if err != nil {
		return err
	}
	bp.setEnabled(false)
	return nil
}

// SetCondition 设置断点条件，空字符串表示删除条件
func (r *Registry) SetCondition(number int, cond string) error {
	bp, err := r.Get(number)
	if err != nil {
		return err
	}
	if cond != "" {
		if err = compileCondition(cond); err != nil {
			return err
		}
	}
	bp.setCondition(cond)
	return nil
}

// SetIgnore 接下来count次命中不停止
func (r *Registry) SetIgnore(number int, count int) error {
	bp, err := r.Get(number)
	if err != nil {
		return err
	}
	if count < 0 {
		count = 0
	}
	bp.setIgnore(count)
	return nil
}

// Reload 源码变化以后重新计算所有断点的实际位置
// 无法再解析的断点会被删除并返回
func (r *Registry) Reload(resolver source.Resolver) []*Breakpoint {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.resolver = resolver
	var deleted []*Breakpoint
	for _, v := range r.numbers.Values() {
		bp := v.(*Breakpoint)
		r.index.Remove(bp.File, bp.FirstLine, bp)
		first, actual, err := resolver.ActualBreakpoint(bp.File, bp.Line)
		if err != nil {
			r.log.Warnf("[Reload] delete breakpoint %d, err = %v", bp.Number, err)
			r.numbers.Remove(bp.Number)
			deleted = append(deleted, bp)
			continue
		}
		bp.FirstLine, bp.ActualLine = first, actual
		r.index.Upsert(bp.File, first, bp)
		r.index.Alias(bp.File, pathnames(bp.File)...)
	}
	return deleted
}
