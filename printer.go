package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger"
	"github.com/fansqz/go-tracer/protocol"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Printer 输出调试事件和命令的执行结果
// 事件来自被调试程序的线程，实现需要保证并发安全。
type Printer interface {
	Event(event interface{})
	// Response req为nil表示命令解析失败
	Response(req *protocol.Request, data interface{}, err error)
}

// NewPrinter 根据事件格式创建Printer
func NewPrinter(format constants.EventFormat, out io.Writer, useColor bool) (Printer, error) {
	switch format {
	case constants.EventFormatText:
		return newTextPrinter(out, useColor), nil
	case constants.EventFormatJSON:
		return &jsonPrinter{enc: json.NewEncoder(out)}, nil
	case constants.EventFormatDAP:
		return newDapWriter(out), nil
	}
	return nil, fmt.Errorf("unsupported event format %q", format)
}

// textPrinter 给人看的输出
type textPrinter struct {
	lock    sync.Mutex
	out     io.Writer
	stopped *color.Color
	info    *color.Color
	failed  *color.Color
}

func newTextPrinter(out io.Writer, useColor bool) *textPrinter {
	p := &textPrinter{
		out:     out,
		stopped: color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgGreen),
		failed:  color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.stopped, p.info, p.failed} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *textPrinter) Event(event interface{}) {
	p.lock.Lock()
	defer p.lock.Unlock()
	switch event := event.(type) {
	case *debugger.LaunchEvent:
		if !event.Success {
			p.failed.Fprintf(p.out, "*** %s\n", event.Message)
		}
	case *debugger.BreakpointEvent:
		for _, bp := range event.Breakpoints {
			switch event.Reason {
			case constants.NewType:
				kind := "Breakpoint"
				if bp.Temporary {
					kind = "Temporary breakpoint"
				}
				p.info.Fprintf(p.out, "%s %d at %s:%d\n", kind, bp.Number, bp.File, bp.ActualLine)
			case constants.RemovedType:
				p.info.Fprintf(p.out, "Deleted breakpoint %d at %s:%d\n", bp.Number, bp.File, bp.Line)
			default:
				p.info.Fprintf(p.out, "Breakpoint %d changed\n", bp.Number)
			}
		}
	case *debugger.OutputEvent:
		fmt.Fprintln(p.out, event.Output)
	case *debugger.StoppedEvent:
		p.stopped.Fprintf(p.out, "> %s:%d (%s)\n", event.File, event.Line, event.Reason)
	case *debugger.ExitedEvent:
		if event.Message != "" {
			fmt.Fprintf(p.out, "The program exited with code %d: %s\n", event.ExitCode, event.Message)
		} else {
			fmt.Fprintf(p.out, "The program exited with code %d\n", event.ExitCode)
		}
	case *debugger.ErrorEvent:
		p.failed.Fprintf(p.out, "*** %s\n", event.Message)
	case *debugger.ContinuedEvent, *debugger.SessionEndedEvent:
	default:
		logrus.Warnf("[textPrinter] unknown event %T", event)
	}
}

func (p *textPrinter) Response(req *protocol.Request, data interface{}, err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err != nil {
		p.failed.Fprintf(p.out, "*** %v\n", err)
		return
	}
	switch data := data.(type) {
	case []*debugger.StackFrame:
		for _, f := range data {
			fmt.Fprintf(p.out, "#%s %s at %s:%d\n", f.ID, f.Name, f.Path, f.Line)
		}
	case []*debugger.Variable:
		for _, v := range data {
			value := ""
			if v.Value != nil {
				value = *v.Value
			}
			fmt.Fprintf(p.out, "%s = %s (%s)\n", v.Name, value, v.Type)
		}
	case []*debugger.Breakpoint:
		p.breakpoints(data)
	case string:
		fmt.Fprintln(p.out, data)
	}
}

// breakpoints 和pdb的break命令一样的表格
func (p *textPrinter) breakpoints(bps []*debugger.Breakpoint) {
	if len(bps) == 0 {
		fmt.Fprintln(p.out, "No breakpoints")
		return
	}
	fmt.Fprintln(p.out, "Num Type         Disp Enb   Where")
	for _, bp := range bps {
		disp := "keep"
		if bp.Temporary {
			disp = "del "
		}
		enb := "no "
		if bp.Enabled {
			enb = "yes"
		}
		where := fmt.Sprintf("%s:%d", bp.File, bp.ActualLine)
		if bp.Func != "" {
			where += " (" + bp.Func + ")"
		}
		fmt.Fprintf(p.out, "%-3d breakpoint   %s %s   at %s\n", bp.Number, disp, enb, where)
		if bp.Condition != "" {
			fmt.Fprintf(p.out, "\tstop only if %s\n", bp.Condition)
		}
		if bp.Ignore > 0 {
			fmt.Fprintf(p.out, "\twill ignore next %d crossings of breakpoint.\n", bp.Ignore)
		}
		if bp.Hits > 0 {
			fmt.Fprintf(p.out, "\tbreakpoint already hit %d %s\n", bp.Hits, plural(bp.Hits, "time"))
		}
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// jsonPrinter 每行一个JSON对象
type jsonPrinter struct {
	lock sync.Mutex
	enc  *json.Encoder
}

func (p *jsonPrinter) Event(event interface{}) {
	data := protocol.NewEvent(event)
	if data == nil {
		logrus.Warnf("[jsonPrinter] unknown event %T", event)
		return
	}
	p.encode(data)
}

func (p *jsonPrinter) Response(req *protocol.Request, data interface{}, err error) {
	var sequence uint
	if req != nil {
		sequence = req.Sequence
	}
	p.encode(protocol.NewResponse(sequence, data, err))
}

func (p *jsonPrinter) encode(v interface{}) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.enc.Encode(v); err != nil {
		logrus.Errorf("[jsonPrinter] encode fail, err = %v", err)
	}
}

// useColor color配置为auto时只在终端中使用颜色
func useColor(mode string, isTerminal bool) bool {
	switch strings.ToLower(mode) {
	case "on":
		return true
	case "off":
		return false
	}
	return isTerminal
}
