package trace_debugger

import (
	"context"

	"github.com/fansqz/go-tracer/constants"
	. "github.com/fansqz/go-tracer/debugger"
	"github.com/fansqz/go-tracer/debugger/host"
	"github.com/fansqz/go-tracer/debugger/tracer"
	e "github.com/fansqz/go-tracer/error"
	"github.com/sirupsen/logrus"
)

func toBreakpoint(b *tracer.Breakpoint) *Breakpoint {
	return &Breakpoint{
		Number:     b.Number,
		File:       b.File,
		Line:       b.Line,
		Func:       b.Func,
		Temporary:  b.Temporary,
		Condition:  b.Condition(),
		ActualLine: b.ActualLine,
		Enabled:    b.Enabled(),
		Ignore:     b.IgnoreCount(),
		Hits:       b.Hits(),
	}
}

func (d *TraceDebugger) AddBreakpoints(ctx context.Context, breakpoints []*Breakpoint) error {
	logrus.Infof("[TraceDebugger] AddBreakpoints")
	if d.registry == nil {
		return e.ErrDebuggerNotStarted
	}
	for _, breakpoint := range breakpoints {
		opt := tracer.BreakpointOption{Temporary: breakpoint.Temporary, Condition: breakpoint.Condition}
		var b *tracer.Breakpoint
		var err error
		if breakpoint.Func != "" {
			b, err = d.registry.SetFunc(breakpoint.File, breakpoint.Func, opt)
		} else {
			b, err = d.registry.Set(breakpoint.File, breakpoint.Line, opt)
		}
		if err != nil {
			return err
		}
		// 返回断点事件
		d.callback(NewBreakpointEvent(constants.NewType, []*Breakpoint{toBreakpoint(b)}))
	}
	return nil
}

func (d *TraceDebugger) RemoveBreakpoints(ctx context.Context, breakpoints []*Breakpoint) error {
	logrus.Infof("[TraceDebugger] RemoveBreakpoints")
	if d.registry == nil {
		return e.ErrDebuggerNotStarted
	}
	for _, breakpoint := range breakpoints {
		var removed []*tracer.Breakpoint
		if breakpoint.Number > 0 {
			b, err := d.registry.Get(breakpoint.Number)
			if err != nil {
				return err
			}
			if err = d.registry.Clear(b.Number); err != nil {
				return err
			}
			removed = append(removed, b)
		} else {
			bps, err := d.registry.ClearAt(breakpoint.File, breakpoint.Line)
			if err != nil {
				return err
			}
			removed = bps
		}
		bps := make([]*Breakpoint, 0, len(removed))
		for _, b := range removed {
			bps = append(bps, toBreakpoint(b))
		}
		d.callback(NewBreakpointEvent(constants.RemovedType, bps))
	}
	return nil
}

func (d *TraceDebugger) GetBreakpoints(ctx context.Context) ([]*Breakpoint, error) {
	if d.registry == nil {
		return nil, e.ErrDebuggerNotStarted
	}
	all := d.registry.All()
	bps := make([]*Breakpoint, 0, len(all))
	for _, b := range all {
		bps = append(bps, toBreakpoint(b))
	}
	return bps, nil
}

func (d *TraceDebugger) ReloadSources(ctx context.Context) error {
	logrus.Infof("[TraceDebugger] ReloadSources")
	if d.registry == nil {
		return e.ErrDebuggerNotStarted
	}
	program, err := host.LoadProgram(d.startOption.ProgramFile)
	if err != nil {
		logrus.Errorf("[ReloadSources] load program fail, err = %v", err)
		return err
	}
	deleted := d.registry.Reload(program.Sources())
	if len(deleted) > 0 {
		bps := make([]*Breakpoint, 0, len(deleted))
		for _, b := range deleted {
			bps = append(bps, toBreakpoint(b))
		}
		d.callback(NewBreakpointEvent(constants.RemovedType, bps))
	}
	// 剩下的断点实际位置可能发生了变化
	all, _ := d.GetBreakpoints(ctx)
	if len(all) > 0 {
		d.callback(NewBreakpointEvent(constants.ChangeType, all))
	}
	return nil
}

// changed 修改断点以后发送断点事件
func (d *TraceDebugger) changed(number int, modify func(number int) error) error {
	if d.registry == nil {
		return e.ErrDebuggerNotStarted
	}
	if err := modify(number); err != nil {
		return err
	}
	b, err := d.registry.Get(number)
	if err != nil {
		return err
	}
	d.callback(NewBreakpointEvent(constants.ChangeType, []*Breakpoint{toBreakpoint(b)}))
	return nil
}

func (d *TraceDebugger) EnableBreakpoint(ctx context.Context, number int, enabled bool) error {
	logrus.Infof("[TraceDebugger] EnableBreakpoint %d %v", number, enabled)
	return d.changed(number, func(number int) error {
		if enabled {
			return d.registry.Enable(number)
		}
		return d.registry.Disable(number)
	})
}

func (d *TraceDebugger) SetBreakpointCondition(ctx context.Context, number int, condition string) error {
	logrus.Infof("[TraceDebugger] SetBreakpointCondition %d", number)
	return d.changed(number, func(number int) error {
		return d.registry.SetCondition(number, condition)
	})
}

func (d *TraceDebugger) SetBreakpointIgnore(ctx context.Context, number int, count int) error {
	logrus.Infof("[TraceDebugger] SetBreakpointIgnore %d %d", number, count)
	return d.changed(number, func(number int) error {
		return d.registry.SetIgnore(number, count)
	})
}
