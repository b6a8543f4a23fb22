package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger"
	"github.com/fansqz/go-tracer/protocol"
	"github.com/fansqz/go-tracer/utils/gosync"
	"github.com/sirupsen/logrus"
)

// Session 控制台驱动的调试会话
type Session interface {
	debugger.Debugger
	// Done 程序运行结束以后关闭
	Done() <-chan struct{}
}

// Console 从输入逐行读取命令并执行
// 只有程序暂停时才读取下一条命令，程序结束时返回。
type Console struct {
	session Session
	in      io.Reader
	printer Printer
	// promptOut 不为nil时，读取命令前输出提示符
	promptOut io.Writer

	// ready 程序暂停，可以读取下一条命令
	ready    chan struct{}
	sequence uint
	exited   *debugger.ExitedEvent
}

func NewConsole(session Session, in io.Reader, printer Printer) *Console {
	return &Console{
		session: session,
		in:      in,
		printer: printer,
		ready:   make(chan struct{}, 1),
	}
}

// WithPrompt 交互模式下输出提示符
func (c *Console) WithPrompt(out io.Writer) *Console {
	c.promptOut = out
	return c
}

// onEvent 调试器事件回调
func (c *Console) onEvent(event interface{}) {
	c.printer.Event(event)
	switch event := event.(type) {
	case *debugger.StoppedEvent:
		c.notifyReady()
	case *debugger.ExitedEvent:
		c.exited = event
	}
}

func (c *Console) notifyReady() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Run 启动调试并处理命令，直到程序结束
// 输入结束或者ctx取消时终止程序。程序以非0退出码结束时返回错误。
func (c *Console) Run(ctx context.Context, option *debugger.StartOption) error {
	option.Callback = c.onEvent
	if err := c.session.Start(ctx, option); err != nil {
		return err
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	gosync.Go(readCtx, func(ctx context.Context) {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logrus.Warnf("[Console] read command fail, err = %v", err)
		}
	})

	for {
		select {
		case <-c.ready:
		case <-c.session.Done():
			return c.result()
		case <-ctx.Done():
			return c.terminate()
		}

		if c.promptOut != nil {
			fmt.Fprint(c.promptOut, "(Tdb) ")
		}
		select {
		case line, ok := <-lines:
			if !ok {
				// 输入结束
				return c.terminate()
			}
			if !c.execute(ctx, line) {
				c.notifyReady()
			}
		case <-c.session.Done():
			return c.result()
		case <-ctx.Done():
			return c.terminate()
		}
	}
}

func (c *Console) terminate() error {
	if err := c.session.Terminate(context.Background()); err != nil {
		return err
	}
	<-c.session.Done()
	return c.result()
}

func (c *Console) result() error {
	if c.exited != nil && c.exited.ExitCode != 0 {
		return fmt.Errorf("program exited with code %d: %s", c.exited.ExitCode, c.exited.Message)
	}
	return nil
}

// execute 执行一条命令，返回程序是否恢复了执行
func (c *Console) execute(ctx context.Context, line string) bool {
	req, err := protocol.ParseRequest(line)
	if err != nil {
		c.printer.Response(nil, nil, err)
		return false
	}
	if req == nil {
		return false
	}
	c.sequence++
	req.Sequence = c.sequence

	var data interface{}
	resumed := false
	d := c.session
	switch req.Type {
	case constants.Step:
		err = d.StepIn(ctx)
		resumed = err == nil
	case constants.Next:
		err = d.StepOver(ctx)
		resumed = err == nil
	case constants.Until:
		err = d.Until(ctx, req.Line)
		resumed = err == nil
	case constants.Return:
		err = d.StepOut(ctx)
		resumed = err == nil
	case constants.Continue:
		err = d.Continue(ctx)
		resumed = err == nil
	case constants.AddBreakpoints, constants.AddTemporaryBreakpoints:
		err = d.AddBreakpoints(ctx, req.Breakpoints)
	case constants.RemoveBreakpoints:
		bps := req.Breakpoints
		if req.Number > 0 {
			bps = []*debugger.Breakpoint{{Number: req.Number}}
		}
		err = d.RemoveBreakpoints(ctx, bps)
	case constants.EnableBreakpoint:
		err = d.EnableBreakpoint(ctx, req.Number, true)
	case constants.DisableBreakpoint:
		err = d.EnableBreakpoint(ctx, req.Number, false)
	case constants.Condition:
		err = d.SetBreakpointCondition(ctx, req.Number, req.Condition)
	case constants.Ignore:
		err = d.SetBreakpointIgnore(ctx, req.Number, req.Count)
	case constants.ListBreakpoints:
		data, err = d.GetBreakpoints(ctx)
	case constants.Reload:
		err = d.ReloadSources(ctx)
	case constants.StackTrace:
		data, err = d.GetStackTrace(ctx)
	case constants.FrameVariables:
		data, err = d.GetFrameVariables(ctx, req.FrameID)
	case constants.SetVariable:
		err = d.SetVariable(ctx, "", req.Name, req.Value)
	case constants.Terminate:
		err = d.Terminate(ctx)
		resumed = true
	case constants.Help:
		data = protocol.Usage
	}
	c.printer.Response(req, data, err)
	return resumed
}
