package tracer

import (
	"sync"
	"sync/atomic"
)

// LineSet 一个代码单元中设置了断点的行，key为实际断点行。
// LineSet 发布以后不再被修改，修改断点时会替换成新的LineSet，
// 所以缓存中持有的LineSet引用始终可以安全读取。
type LineSet map[int][]*Breakpoint

// Has 该行是否有断点
func (s LineSet) Has(line int) bool {
	_, ok := s[line]
	return ok
}

// ModuleBreakpoints 一个文件的断点，按代码单元的首行组织
type ModuleBreakpoints struct {
	File  string
	codes map[int]LineSet
	// names 该模块在索引中注册的所有名称（已fold）
	names []string
}

// Index 断点索引
// file -> (代码单元首行 -> LineSet)
// 一个代码单元首行的条目存在，当且仅当该代码单元至少有一个断点。
type Index struct {
	lock  sync.RWMutex
	fold  FoldPolicy
	files map[string]*ModuleBreakpoints

	// folded 原始文件名到fold后文件名的缓存
	folded sync.Map

	// generation 每次修改前递增，用于让Lookup缓存失效
	generation atomic.Uint64
	// lookups 统计Lookup的调用次数
	lookups atomic.Uint64
}

func NewIndex(fold FoldPolicy) *Index {
	if fold == nil {
		fold = CaseSensitive
	}
	return &Index{
		fold:  fold,
		files: make(map[string]*ModuleBreakpoints),
	}
}

func (i *Index) foldName(file string) string {
	if v, ok := i.folded.Load(file); ok {
		return v.(string)
	}
	name := i.fold.Fold(file)
	i.folded.Store(file, name)
	return name
}

// Lookup 查找代码单元的断点，不会创建任何条目
func (i *Index) Lookup(file string, firstLine int) (*ModuleBreakpoints, LineSet, bool) {
	i.lookups.Add(1)
	name := i.foldName(file)
	i.lock.RLock()
	defer i.lock.RUnlock()
	module, ok := i.files[name]
	if !ok {
		return nil, nil, false
	}
	lines, ok := module.codes[firstLine]
	if !ok {
		return nil, nil, false
	}
	return module, lines, true
}

// Upsert 在代码单元firstLine的bp.ActualLine行上添加断点
func (i *Index) Upsert(file string, firstLine int, bp *Breakpoint) {
	name := i.foldName(file)
	i.lock.Lock()
	defer i.lock.Unlock()
	i.generation.Add(1)

	module, ok := i.files[name]
	if !ok {
		module = &ModuleBreakpoints{
			File:  file,
			codes: make(map[int]LineSet),
			names: []string{name},
		}
		i.files[name] = module
	}
	old := module.codes[firstLine]
	lines := make(LineSet, len(old)+1)
	for l, bps := range old {
		lines[l] = bps
	}
	bps := make([]*Breakpoint, 0, len(old[bp.ActualLine])+1)
	bps = append(bps, old[bp.ActualLine]...)
	lines[bp.ActualLine] = append(bps, bp)
	module.codes[firstLine] = lines
}

// Remove 移除断点，变为空的条目会一并删除
func (i *Index) Remove(file string, firstLine int, bp *Breakpoint) bool {
	name := i.foldName(file)
	i.lock.Lock()
	defer i.lock.Unlock()

	module, ok := i.files[name]
	if !ok {
		return false
	}
	old, ok := module.codes[firstLine]
	if !ok {
		return false
	}
	pos := -1
	for j, b := range old[bp.ActualLine] {
		if b == bp {
			pos = j
			break
		}
	}
	if pos < 0 {
		return false
	}
	// 先让缓存失效，再修改
	i.generation.Add(1)

	lines := make(LineSet, len(old))
	for l, bps := range old {
		if l != bp.ActualLine {
			lines[l] = bps
		}
	}
	remain := make([]*Breakpoint, 0, len(old[bp.ActualLine])-1)
	remain = append(remain, old[bp.ActualLine][:pos]...)
	remain = append(remain, old[bp.ActualLine][pos+1:]...)
	if len(remain) > 0 {
		lines[bp.ActualLine] = remain
	}

	if len(lines) > 0 {
		module.codes[firstLine] = lines
		return true
	}
	delete(module.codes, firstLine)
	if len(module.codes) == 0 {
		for _, n := range module.names {
			if i.files[n] == module {
				delete(i.files, n)
			}
		}
	}
	return true
}

// Alias 把其他路径名（例如相对路径）映射到file对应的模块
func (i *Index) Alias(file string, names ...string) {
	name := i.foldName(file)
	i.lock.Lock()
	defer i.lock.Unlock()
	module, ok := i.files[name]
	if !ok {
		return
	}
	i.generation.Add(1)
	for _, n := range names {
		folded := i.foldName(n)
		if _, exists := i.files[folded]; exists {
			continue
		}
		i.files[folded] = module
		module.names = append(module.names, folded)
	}
}

// HasBreaks 是否存在任何断点
func (i *Index) HasBreaks() bool {
	i.lock.RLock()
	defer i.lock.RUnlock()
	return len(i.files) > 0
}

// Generation 当前索引的版本
func (i *Index) Generation() uint64 {
	return i.generation.Load()
}

// Lookups Lookup被调用的次数
func (i *Index) Lookups() uint64 {
	return i.lookups.Load()
}
