package tracer

import (
	"fmt"
	"strings"
	"sync"
)

// Breakpoint 断点
// Line 是用户设置的行，ActualLine 是调试器实际停止的行，两者可能不同。
type Breakpoint struct {
	Number     int
	File       string
	Line       int
	FirstLine  int
	ActualLine int
	Temporary  bool
	// Func 通过函数名设置断点时的函数名
	Func string

	lock    sync.Mutex
	cond    string
	enabled bool
	ignore  int
	hits    int
}

func (b *Breakpoint) Enabled() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.enabled
}

func (b *Breakpoint) Condition() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.cond
}

func (b *Breakpoint) IgnoreCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.ignore
}

// Hits 断点启用时被命中的次数
func (b *Breakpoint) Hits() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.hits
}

func (b *Breakpoint) setEnabled(enabled bool) {
	b.lock.Lock()
	b.enabled = enabled
	b.lock.Unlock()
}

func (b *Breakpoint) setCondition(cond string) {
	b.lock.Lock()
	b.cond = cond
	b.lock.Unlock()
}

func (b *Breakpoint) setIgnore(count int) {
	b.lock.Lock()
	b.ignore = count
	b.lock.Unlock()
}

// processHit 处理一次命中
// 返回 (是否停止, 临时断点是否可以删除)
func (b *Breakpoint) processHit(locals map[string]any) (bool, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.enabled {
		return false, false
	}
	b.hits++
	if b.cond != "" {
		ok, err := evalCondition(b.cond, locals)
		if err != nil {
			// 条件求值失败时停下来，并且不删除临时断点，提示用户
			return true, false
		}
		if !ok {
			return false, false
		}
	}
	if b.ignore > 0 {
		b.ignore--
		return false, false
	}
	return true, true
}

// String 断点的描述，格式和pdb的break命令输出一致
func (b *Breakpoint) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	disp := "keep "
	if b.Temporary {
		disp = "del  "
	}
	if b.enabled {
		disp += "yes  "
	} else {
		disp += "no   "
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-4dbreakpoint   %s at %s:%d", b.Number, disp, b.File, b.Line)
	if b.cond != "" {
		fmt.Fprintf(&sb, "\n\tstop only if %s", b.cond)
	}
	if b.ignore > 0 {
		fmt.Fprintf(&sb, "\n\tignore next %d hits", b.ignore)
	}
	if b.hits > 0 {
		ss := ""
		if b.hits > 1 {
			ss = "s"
		}
		fmt.Fprintf(&sb, "\n\tbreakpoint already hit %d time%s", b.hits, ss)
	}
	return sb.String()
}
