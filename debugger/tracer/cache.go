package tracer

// lookupCache 记录最近一次成功的断点查找结果，
// 同一个函数中连续的行事件不需要再遍历索引。
// 只有代码单元和索引版本都相同时缓存才有效，索引的任何修改都会使它失效。
type lookupCache struct {
	code       *CodeUnit
	module     *ModuleBreakpoints
	lines      LineSet
	generation uint64
}

// Resolve 查找frame所在代码单元的断点
func (t *Tracer) Resolve(frame Frame) (*ModuleBreakpoints, LineSet, bool) {
	code := frame.Code()
	if code == nil {
		return nil, nil, false
	}
	index := t.registry.Index()
	generation := index.Generation()
	c := &t.cache
	if c.code == code && c.generation == generation {
		return c.module, c.lines, true
	}
	module, lines, ok := index.Lookup(code.File, code.FirstLine)
	if !ok {
		return nil, nil, false
	}
	c.code = code
	c.module = module
	c.lines = lines
	c.generation = generation
	return module, lines, true
}

// BreakpointsAt frame当前行上的断点
func (t *Tracer) BreakpointsAt(frame Frame) ([]*Breakpoint, bool) {
	_, lines, ok := t.Resolve(frame)
	if !ok {
		return nil, false
	}
	bps, ok := lines[frame.Line()]
	return bps, ok
}

// invalidate 清空缓存
func (t *Tracer) invalidate() {
	t.cache = lookupCache{}
}
