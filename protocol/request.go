package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger"
	e "github.com/fansqz/go-tracer/error"
)

// Request 控制台的一条调试命令
type Request struct {
	Type constants.DebugOptionType `json:"type"`
	// 请求序列号
	Sequence uint `json:"sequence"`
	// Breakpoints break、tbreak、clear 的断点位置
	Breakpoints []*debugger.Breakpoint `json:"breakpoints,omitempty"`
	// Number 断点编号
	Number int `json:"number,omitempty"`
	// Condition 断点条件，为空时删除条件
	Condition string `json:"condition,omitempty"`
	// Count 忽略次数
	Count int `json:"count,omitempty"`
	// Line until的目标行，0表示下一行
	Line    int    `json:"line,omitempty"`
	FrameID string `json:"frameID,omitempty"`
	Name    string `json:"name,omitempty"`
	Value   string `json:"value,omitempty"`
}

// aliases 命令缩写
var aliases = map[string]constants.DebugOptionType{
	"s":    constants.Step,
	"n":    constants.Next,
	"unt":  constants.Until,
	"r":    constants.Return,
	"c":    constants.Continue,
	"cont": constants.Continue,
	"b":    constants.AddBreakpoints,
	"cl":   constants.RemoveBreakpoints,
	"bl":   constants.ListBreakpoints,
	"w":    constants.StackTrace,
	"bt":   constants.StackTrace,
	"q":    constants.Terminate,
	"exit": constants.Terminate,
	"h":    constants.Help,
	"?":    constants.Help,
}

var commands = []constants.DebugOptionType{
	constants.Step, constants.Next, constants.Until, constants.Return, constants.Continue,
	constants.AddBreakpoints, constants.AddTemporaryBreakpoints, constants.RemoveBreakpoints,
	constants.EnableBreakpoint, constants.DisableBreakpoint, constants.Condition, constants.Ignore,
	constants.ListBreakpoints, constants.Reload, constants.StackTrace, constants.FrameVariables,
	constants.SetVariable, constants.Terminate, constants.Help,
}

// Usage 所有命令的说明
const Usage = `step (s)                      stop at the next line, entering calls
next (n)                      stop at the next line in the current function
until (unt) [line]            continue until a line greater than or equal to line
return (r)                    continue until the current function returns
continue (c)                  continue until a breakpoint
break (b) file:line|file:func set a breakpoint
tbreak file:line|file:func    set a temporary breakpoint
clear (cl) number|file:line   remove breakpoints
enable number                 enable a breakpoint
disable number                disable a breakpoint
condition number [expr]       set or remove a breakpoint condition
ignore number count           ignore the next count hits of a breakpoint
breakpoints (bl)              list breakpoints
reload                        re-read the program and move breakpoints to the new lines
where (w, bt)                 print the stack trace
locals [frame]                print local variables of a frame
set name value                change a local variable of the current frame
quit (q)                      terminate the program
help (h)                      print this help`

// ParseRequest 解析一行命令，空行返回nil
func ParseRequest(line string) (*Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	name, args := fields[0], fields[1:]
	t, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", e.ErrUnknownCommand, name)
	}
	req := &Request{Type: t}
	var err error
	switch t {
	case constants.Step, constants.Next, constants.Return, constants.Continue,
		constants.ListBreakpoints, constants.Reload, constants.StackTrace, constants.Terminate, constants.Help:
		err = expectArgs(t, args, 0, 0)
	case constants.Until:
		if err = expectArgs(t, args, 0, 1); err == nil && len(args) == 1 {
			req.Line, err = parsePositive(t, args[0])
		}
	case constants.AddBreakpoints, constants.AddTemporaryBreakpoints:
		if err = expectArgs(t, args, 1, 1); err == nil {
			var bp *debugger.Breakpoint
			if bp, err = ParseLocation(args[0]); err == nil {
				bp.Temporary = t == constants.AddTemporaryBreakpoints
				req.Breakpoints = []*debugger.Breakpoint{bp}
			}
		}
	case constants.RemoveBreakpoints:
		if err = expectArgs(t, args, 1, 1); err == nil {
			if n, convErr := strconv.Atoi(args[0]); convErr == nil {
				req.Number = n
				break
			}
			var bp *debugger.Breakpoint
			if bp, err = ParseLocation(args[0]); err == nil {
				if bp.Func != "" {
					err = fmt.Errorf("%w: %s needs a number or file:line", e.ErrBadArgument, t)
					break
				}
				req.Breakpoints = []*debugger.Breakpoint{bp}
			}
		}
	case constants.EnableBreakpoint, constants.DisableBreakpoint:
		if err = expectArgs(t, args, 1, 1); err == nil {
			req.Number, err = parsePositive(t, args[0])
		}
	case constants.Condition:
		if len(args) == 0 {
			err = expectArgs(t, args, 1, 1)
			break
		}
		// 条件可以包含空格
		if req.Number, err = parsePositive(t, args[0]); err == nil {
			req.Condition = strings.Join(args[1:], " ")
		}
	case constants.Ignore:
		if err = expectArgs(t, args, 2, 2); err == nil {
			if req.Number, err = parsePositive(t, args[0]); err == nil {
				req.Count, err = strconv.Atoi(args[1])
				if err != nil {
					err = fmt.Errorf("%w: %s count %q", e.ErrBadArgument, t, args[1])
				}
			}
		}
	case constants.FrameVariables:
		if err = expectArgs(t, args, 0, 1); err == nil && len(args) == 1 {
			req.FrameID = args[0]
		}
	case constants.SetVariable:
		if len(args) < 2 {
			err = expectArgs(t, args, 2, 2)
			break
		}
		req.Name = args[0]
		req.Value = strings.Join(args[1:], " ")
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func lookup(name string) (constants.DebugOptionType, bool) {
	if t, ok := aliases[name]; ok {
		return t, true
	}
	for _, t := range commands {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

func expectArgs(t constants.DebugOptionType, args []string, least, most int) error {
	if len(args) < least || len(args) > most {
		return fmt.Errorf("%w: %s takes %d to %d arguments, got %d", e.ErrBadArgument, t, least, most, len(args))
	}
	return nil
}

func parsePositive(t constants.DebugOptionType, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s expects a positive number, got %q", e.ErrBadArgument, t, s)
	}
	return n, nil
}

// ParseLocation 解析 file:line 或者 file:func
func ParseLocation(location string) (*debugger.Breakpoint, error) {
	location = strings.TrimSpace(location)
	colon := strings.LastIndex(location, ":")
	if colon <= 0 || colon >= len(location)-1 {
		return nil, fmt.Errorf("%w: expected <file:line> or <file:func>, got %q", e.ErrBadArgument, location)
	}
	file, target := location[:colon], location[colon+1:]
	if n, err := strconv.Atoi(target); err == nil {
		if n <= 0 {
			return nil, fmt.Errorf("%w: invalid line %q", e.ErrBadArgument, target)
		}
		return debugger.NewBreakpoint(file, n), nil
	}
	return &debugger.Breakpoint{File: file, Func: target}, nil
}
