package host

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fansqz/go-tracer/debugger/source"
	"github.com/fansqz/go-tracer/debugger/tracer"
	e "github.com/fansqz/go-tracer/error"
)

// Program 被调试程序的描述，从TOML文件加载
//
//	entry = "main"
//
//	[[units]]
//	name = "main"
//	file = "demo.py"
//	statements = [
//	  { line = 1, set = { x = 1 } },
//	  { line = 2, call = "f", args = { n = 3 }, result = "y" },
//	]
//
//	[[units]]
//	name = "f"
//	file = "demo.py"
//	parent = "main"
//	first_line = 10
//	statements = [{ line = 11, print = "n = ${n}" }, { line = 12, return = 1 }]
type Program struct {
	// Entry 入口函数，默认为第一个文件的模块代码
	Entry string `toml:"entry"`
	// Threads 每个线程的入口函数，为空时只有一个线程运行Entry
	Threads []string `toml:"threads"`
	Files   []*File  `toml:"files"`
	Units   []*Unit  `toml:"units"`

	units   map[string]*Unit
	sources *source.Set
}

// File 源文件，Module 默认为去掉扩展名的文件名
type File struct {
	Path   string `toml:"path"`
	Module string `toml:"module"`
}

// Unit 代码单元，没有parent的是文件的模块代码
type Unit struct {
	Name       string       `toml:"name"`
	File       string       `toml:"file"`
	Parent     string       `toml:"parent"`
	FirstLine  int          `toml:"first_line"`
	Statements []*Statement `toml:"statements"`

	code     *tracer.CodeUnit
	children []*Unit
}

// CodeUnit 该函数所有栈帧共享的代码单元
func (u *Unit) CodeUnit() *tracer.CodeUnit {
	return u.code
}

// Statement 一条语句，按字段顺序执行：set、add、print、trap、call、raise、return
type Statement struct {
	Line  int              `toml:"line"`
	Set   map[string]any   `toml:"set"`
	Add   map[string]int64 `toml:"add"`
	Print string           `toml:"print"`
	// Trap 从这里开始调试，相当于在代码中调用set_trace
	Trap bool `toml:"trap"`

	Call  string         `toml:"call"`
	Args  map[string]any `toml:"args"`
	Times int            `toml:"times"`
	// Result 保存返回值的局部变量
	Result string `toml:"result"`
	// Catch 捕获被调用函数抛出的异常
	Catch bool `toml:"catch"`

	Raise  string `toml:"raise"`
	Return any    `toml:"return"`
}

// LoadProgram 从文件加载程序
func LoadProgram(path string) (*Program, error) {
	p := &Program{}
	if _, err := toml.DecodeFile(path, p); err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrProgramInvalid, err)
	}
	if err := p.build(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseProgram 从TOML文本加载程序
func ParseProgram(data string) (*Program, error) {
	p := &Program{}
	if _, err := toml.Decode(data, p); err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrProgramInvalid, err)
	}
	if err := p.build(); err != nil {
		return nil, err
	}
	return p, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", e.ErrProgramInvalid, fmt.Sprintf(format, args...))
}

// build 校验程序并生成代码单元和行号表
func (p *Program) build() error {
	if len(p.Units) == 0 {
		return invalid("no units")
	}
	files := make(map[string]*File)
	var order []string
	for _, f := range p.Files {
		if f.Path == "" {
			return invalid("file without path")
		}
		files[f.Path] = f
		order = append(order, f.Path)
	}

	p.units = make(map[string]*Unit, len(p.Units))
	roots := make(map[string]*Unit)
	for _, u := range p.Units {
		if u.Name == "" || u.File == "" {
			return invalid("unit %q: name and file are required", u.Name)
		}
		if _, ok := p.units[u.Name]; ok {
			return invalid("duplicate unit %q", u.Name)
		}
		p.units[u.Name] = u
		if _, ok := files[u.File]; !ok {
			f := &File{Path: u.File}
			files[u.File] = f
			p.Files = append(p.Files, f)
			order = append(order, u.File)
		}
		if u.Parent == "" {
			if other, ok := roots[u.File]; ok {
				return invalid("file %s has two module units: %s, %s", u.File, other.Name, u.Name)
			}
			roots[u.File] = u
		}
	}

	for _, u := range p.Units {
		if err := p.checkUnit(u); err != nil {
			return err
		}
		if u.Parent != "" {
			parent := p.units[u.Parent]
			parent.children = append(parent.children, u)
		}
	}

	modules := make([]*source.Module, 0, len(order))
	for _, path := range order {
		f := files[path]
		if f.Module == "" {
			f.Module = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		root, ok := roots[path]
		if !ok {
			return invalid("file %s has no module unit", path)
		}
		modules = append(modules, source.NewModule(path, p.buildCode(root, f)))
	}
	p.sources = source.NewSet(modules...)
	for _, u := range p.Units {
		// parent形成环
		if u.code == nil {
			return invalid("unit %s is not reachable from its module", u.Name)
		}
	}

	if p.Entry == "" {
		p.Entry = roots[order[0]].Name
	}
	for _, name := range append([]string{p.Entry}, p.Threads...) {
		if _, ok := p.units[name]; !ok {
			return invalid("entry %q is not a unit", name)
		}
	}
	return nil
}

func (p *Program) checkUnit(u *Unit) error {
	if u.Parent != "" {
		parent, ok := p.units[u.Parent]
		if !ok {
			return invalid("unit %s: unknown parent %q", u.Name, u.Parent)
		}
		if parent.File != u.File {
			return invalid("unit %s: parent %s is in another file", u.Name, parent.Name)
		}
		if u.FirstLine <= 0 {
			return invalid("unit %s: first_line is required", u.Name)
		}
	}
	if u.FirstLine <= 0 {
		u.FirstLine = 1
		if len(u.Statements) > 0 {
			u.FirstLine = u.Statements[0].Line
		}
	}
	last := 0
	for _, st := range u.Statements {
		if st.Line <= last || st.Line < u.FirstLine || (u.Parent != "" && st.Line == u.FirstLine) {
			return invalid("unit %s: bad statement line %d", u.Name, st.Line)
		}
		last = st.Line
		if st.Call != "" {
			if _, ok := p.units[st.Call]; !ok {
				return invalid("unit %s line %d: unknown function %q", u.Name, st.Line, st.Call)
			}
		}
	}
	return nil
}

func (p *Program) buildCode(u *Unit, f *File) *source.Code {
	u.code = &tracer.CodeUnit{
		Name:      u.Name,
		Module:    f.Module,
		File:      source.Canonic(f.Path),
		FirstLine: u.FirstLine,
	}
	code := &source.Code{Name: u.Name, FirstLine: u.FirstLine}
	for _, st := range u.Statements {
		code.Lines = append(code.Lines, st.Line)
	}
	for _, child := range u.children {
		code.Subcodes = append(code.Subcodes, p.buildCode(child, f))
	}
	return code
}

// Unit 根据名称查找代码单元
func (p *Program) Unit(name string) (*Unit, bool) {
	u, ok := p.units[name]
	return u, ok
}

// CodeUnits 根据名称查找代码单元，不存在的名称会报错
func (p *Program) CodeUnits(names ...string) ([]*tracer.CodeUnit, error) {
	codes := make([]*tracer.CodeUnit, 0, len(names))
	for _, name := range names {
		u, ok := p.units[name]
		if !ok {
			return nil, invalid("unknown function %q", name)
		}
		codes = append(codes, u.code)
	}
	return codes, nil
}

// Entries 每个线程的入口函数
func (p *Program) Entries() []string {
	if len(p.Threads) > 0 {
		return p.Threads
	}
	return []string{p.Entry}
}

// Sources 程序的行号表，用于解析断点位置
func (p *Program) Sources() *source.Set {
	return p.sources
}
