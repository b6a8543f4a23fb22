package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger"
	e "github.com/fansqz/go-tracer/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		line string
		want *Request
	}{
		{"s", &Request{Type: constants.Step}},
		{"next", &Request{Type: constants.Next}},
		{"until", &Request{Type: constants.Until}},
		{"unt 20", &Request{Type: constants.Until, Line: 20}},
		{"r", &Request{Type: constants.Return}},
		{"  c  ", &Request{Type: constants.Continue}},
		{"b demo.py:12", &Request{Type: constants.AddBreakpoints, Breakpoints: []*debugger.Breakpoint{{File: "demo.py", Line: 12}}}},
		{"tbreak demo.py:add", &Request{Type: constants.AddTemporaryBreakpoints, Breakpoints: []*debugger.Breakpoint{{File: "demo.py", Func: "add", Temporary: true}}}},
		{"clear 3", &Request{Type: constants.RemoveBreakpoints, Number: 3}},
		{"cl demo.py:12", &Request{Type: constants.RemoveBreakpoints, Breakpoints: []*debugger.Breakpoint{{File: "demo.py", Line: 12}}}},
		{"enable 1", &Request{Type: constants.EnableBreakpoint, Number: 1}},
		{"disable 2", &Request{Type: constants.DisableBreakpoint, Number: 2}},
		{"condition 1 n > 3 and x == 1", &Request{Type: constants.Condition, Number: 1, Condition: "n > 3 and x == 1"}},
		{"condition 1", &Request{Type: constants.Condition, Number: 1}},
		{"ignore 1 2", &Request{Type: constants.Ignore, Number: 1, Count: 2}},
		{"bl", &Request{Type: constants.ListBreakpoints}},
		{"reload", &Request{Type: constants.Reload}},
		{"bt", &Request{Type: constants.StackTrace}},
		{"locals 1", &Request{Type: constants.FrameVariables, FrameID: "1"}},
		{"set name hello world", &Request{Type: constants.SetVariable, Name: "name", Value: "hello world"}},
		{"q", &Request{Type: constants.Terminate}},
		{"help", &Request{Type: constants.Help}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			req, err := ParseRequest(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestParseRequestEmpty(t *testing.T) {
	req, err := ParseRequest("   ")
	assert.NoError(t, err)
	assert.Nil(t, req)
}

func TestParseRequestErrors(t *testing.T) {
	_, err := ParseRequest("jump 3")
	assert.ErrorIs(t, err, e.ErrUnknownCommand)

	for _, line := range []string{
		"step 1",
		"until x",
		"until 0",
		"break",
		"break demo.py",
		"break demo.py:0",
		"clear demo.py:add",
		"enable",
		"enable -1",
		"condition",
		"ignore 1",
		"ignore 1 x",
		"set x",
		"reload demo.py",
	} {
		_, err = ParseRequest(line)
		assert.ErrorIs(t, err, e.ErrBadArgument, line)
	}
}

func TestParseLocation(t *testing.T) {
	bp, err := ParseLocation(`C:\src\demo.py:7`)
	require.NoError(t, err)
	assert.Equal(t, `C:\src\demo.py`, bp.File)
	assert.Equal(t, 7, bp.Line)

	_, err = ParseLocation(":7")
	assert.True(t, errors.Is(err, e.ErrBadArgument))
}

func TestNewEvent(t *testing.T) {
	stopped := debugger.NewStoppedEvent(constants.BreakpointStopped, "/src/demo.py", 12)
	stopped.Thread = 1
	stopped.HitBreakpoints = []int{1}
	data, err := json.Marshal(NewEvent(stopped))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"stopped","reason":"breakpoint","file":"/src/demo.py","line":12,"thread":1,"hitBreakpoints":[1]}`, string(data))

	data, err = json.Marshal(NewEvent(debugger.NewExitedEvent(1, "boom")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"exited","exitCode":1,"message":"boom"}`, string(data))

	assert.Nil(t, NewEvent("unknown"))
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse(3, nil, e.ErrProgramNotStopped)
	assert.False(t, resp.Success)
	assert.Equal(t, e.ErrProgramNotStopped.Error(), resp.Message)

	resp = NewResponse(4, []int{1}, nil)
	assert.True(t, resp.Success)
	assert.Equal(t, []int{1}, resp.Data)
}
