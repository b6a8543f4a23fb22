package main

import (
	"io"
	"strconv"
	"sync"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger"
	"github.com/fansqz/go-tracer/protocol"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
)

// dapCommands 控制台命令对应的DAP命令
var dapCommands = map[constants.DebugOptionType]string{
	constants.Step:                    "stepIn",
	constants.Next:                    "next",
	constants.Until:                   "goto",
	constants.Return:                  "stepOut",
	constants.Continue:                "continue",
	constants.AddBreakpoints:          "setBreakpoints",
	constants.AddTemporaryBreakpoints: "setBreakpoints",
	constants.RemoveBreakpoints:       "setBreakpoints",
	constants.ListBreakpoints:         "breakpointLocations",
	constants.StackTrace:              "stackTrace",
	constants.FrameVariables:          "variables",
	constants.SetVariable:             "setVariable",
	constants.Terminate:               "terminate",
}

// dapWriter 以DAP协议的格式输出事件和响应
type dapWriter struct {
	lock sync.Mutex
	out  io.Writer
	seq  int
}

func newDapWriter(out io.Writer) *dapWriter {
	return &dapWriter{out: out}
}

// send Message写到输出
func (w *dapWriter) send(message dap.Message) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.seq++
	switch m := message.(type) {
	case dap.EventMessage:
		m.GetEvent().Seq = w.seq
	case dap.ResponseMessage:
		m.GetResponse().Seq = w.seq
	}
	if err := dap.WriteProtocolMessage(w.out, message); err != nil {
		logrus.Errorf("[dapWriter] write message fail, err = %v", err)
	}
}

func (w *dapWriter) Event(event interface{}) {
	switch event := event.(type) {
	case *debugger.LaunchEvent:
		if event.Success {
			w.send(&dap.InitializedEvent{Event: *newEvent("initialized")})
		} else {
			w.output("stderr", event.Message)
		}
	case *debugger.BreakpointEvent:
		for _, bp := range event.Breakpoints {
			e := &dap.BreakpointEvent{Event: *newEvent(string(constants.BreakpointEvent))}
			e.Body.Reason = string(event.Reason)
			e.Body.Breakpoint = toDapBreakpoint(bp)
			w.send(e)
		}
	case *debugger.OutputEvent:
		w.output("stdout", event.Output)
	case *debugger.StoppedEvent:
		e := &dap.StoppedEvent{Event: *newEvent(string(constants.StoppedEvent))}
		e.Body.Reason = string(event.Reason)
		e.Body.ThreadId = event.Thread
		e.Body.HitBreakpointIds = event.HitBreakpoints
		w.send(e)
	case *debugger.ContinuedEvent:
		e := &dap.ContinuedEvent{Event: *newEvent(string(constants.ContinuedEvent))}
		e.Body.AllThreadsContinued = false
		w.send(e)
	case *debugger.SessionEndedEvent:
		e := &dap.ThreadEvent{Event: *newEvent("thread")}
		e.Body.Reason = "exited"
		e.Body.ThreadId = event.Thread
		w.send(e)
	case *debugger.ExitedEvent:
		e := &dap.ExitedEvent{Event: *newEvent(string(constants.ExitedEvent))}
		e.Body.ExitCode = event.ExitCode
		w.send(e)
		w.send(&dap.TerminatedEvent{Event: *newEvent(string(constants.TerminatedEvent))})
	case *debugger.ErrorEvent:
		w.output("stderr", event.Message)
	default:
		logrus.Warnf("[dapWriter] unknown event %T", event)
	}
}

func (w *dapWriter) output(category string, output string) {
	e := &dap.OutputEvent{Event: *newEvent(string(constants.OutputEvent))}
	e.Body.Category = category
	e.Body.Output = output + "\n"
	w.send(e)
}

func (w *dapWriter) Response(req *protocol.Request, data interface{}, err error) {
	if req == nil {
		if err != nil {
			w.output("stderr", err.Error())
		}
		return
	}
	command, ok := dapCommands[req.Type]
	if !ok {
		command = string(req.Type)
	}
	seq := int(req.Sequence)
	if err != nil {
		w.send(newErrorResponse(seq, command, err.Error()))
		return
	}

	switch data := data.(type) {
	case []*debugger.StackFrame:
		response := &dap.StackTraceResponse{}
		response.Response = *newResponse(seq, command)
		frames := make([]dap.StackFrame, 0, len(data))
		for _, f := range data {
			id, _ := strconv.Atoi(f.ID)
			frames = append(frames, dap.StackFrame{
				Id:     id,
				Name:   f.Name,
				Source: &dap.Source{Path: f.Path},
				Line:   f.Line,
			})
		}
		response.Body = dap.StackTraceResponseBody{StackFrames: frames, TotalFrames: len(frames)}
		w.send(response)
	case []*debugger.Variable:
		response := &dap.VariablesResponse{}
		response.Response = *newResponse(seq, command)
		variables := make([]dap.Variable, 0, len(data))
		for _, v := range data {
			variable := dap.Variable{Name: v.Name, Type: v.Type}
			if v.Value != nil {
				variable.Value = *v.Value
			}
			variables = append(variables, variable)
		}
		response.Body = dap.VariablesResponseBody{Variables: variables}
		w.send(response)
	case []*debugger.Breakpoint:
		response := &dap.SetBreakpointsResponse{}
		response.Response = *newResponse(seq, command)
		for _, bp := range data {
			response.Body.Breakpoints = append(response.Body.Breakpoints, toDapBreakpoint(bp))
		}
		w.send(response)
	case string:
		w.output("console", data)
		w.send(newResponse(seq, command))
	default:
		w.send(newResponse(seq, command))
	}
}

func toDapBreakpoint(bp *debugger.Breakpoint) dap.Breakpoint {
	line := bp.ActualLine
	if line == 0 {
		line = bp.Line
	}
	return dap.Breakpoint{
		Id:       bp.Number,
		Verified: true,
		Source:   &dap.Source{Path: bp.File},
		Line:     line,
	}
}

func newEvent(event string) *dap.Event {
	return &dap.Event{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: "event",
		},
		Event: event,
	}
}

func newResponse(requestSeq int, command string) *dap.Response {
	return &dap.Response{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: "response",
		},
		Command:    command,
		RequestSeq: requestSeq,
		Success:    true,
	}
}

func newErrorResponse(requestSeq int, command string, message string) *dap.ErrorResponse {
	er := &dap.ErrorResponse{}
	er.Response = *newResponse(requestSeq, command)
	er.Success = false
	er.Message = message
	er.Body.Error = &dap.ErrorMessage{}
	er.Body.Error.Format = message
	er.Body.Error.Id = 12345
	return er
}
