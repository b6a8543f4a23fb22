package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger"
	"github.com/fansqz/go-tracer/debugger/source"
	"github.com/fansqz/go-tracer/debugger/trace_debugger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const consoleProgram = `
[[units]]
name = "main"
file = "demo.py"
statements = [
  { line = 1, set = { total = 0 } },
  { line = 2, call = "add", args = { n = 1 }, result = "total" },
  { line = 3, call = "add", args = { n = 2 }, result = "total" },
  { line = 4, print = "total = ${total}" },
]

[[units]]
name = "add"
file = "demo.py"
parent = "main"
first_line = 10
statements = [
  { line = 11, add = { n = 10 } },
  { line = 12, print = "n = ${n}" },
  { line = 13, return = 5 },
]
`

func saveProgram(t *testing.T, program string) string {
	file := filepath.Join(t.TempDir(), "demo.toml")
	require.NoError(t, os.WriteFile(file, []byte(program), 0644))
	return file
}

func runConsole(t *testing.T, format constants.EventFormat, script string, option *debugger.StartOption) (string, error) {
	var out bytes.Buffer
	printer, err := NewPrinter(format, &out, false)
	require.NoError(t, err)
	console := NewConsole(trace_debugger.NewTraceDebugger(), strings.NewReader(script), printer)
	err = console.Run(context.Background(), option)
	return out.String(), err
}

func TestConsoleScript(t *testing.T) {
	file := source.Canonic("demo.py")
	script := strings.Join([]string{"where", "locals", "set n 100", "bogus", "c", "bl", "c"}, "\n")
	out, err := runConsole(t, constants.EventFormatText, script, &debugger.StartOption{
		ProgramFile: saveProgram(t, consoleProgram),
		BreakPoints: []*debugger.Breakpoint{debugger.NewBreakpoint("demo.py", 12)},
	})
	require.NoError(t, err)
	want := strings.Join([]string{
		"Breakpoint 1 at " + file + ":12",
		"> " + file + ":12 (breakpoint)",
		"#0 add at " + file + ":12",
		"#1 main at " + file + ":2",
		"n = 11 (int)",
		"*** unknown command: bogus",
		"n = 100",
		"> " + file + ":12 (breakpoint)",
		"Num Type         Disp Enb   Where",
		"1   breakpoint   keep yes   at " + file + ":12",
		"\tbreakpoint already hit 2 times",
		"n = 12",
		"total = 5",
		"The program exited with code 0",
	}, "\n") + "\n"
	assert.Equal(t, want, out)
}

func TestConsoleInputEnds(t *testing.T) {
	file := source.Canonic("demo.py")
	out, err := runConsole(t, constants.EventFormatText, "where\n", &debugger.StartOption{
		ProgramFile: saveProgram(t, consoleProgram),
		StopOnEntry: true,
	})
	require.NoError(t, err)
	want := strings.Join([]string{
		"> " + file + ":1 (call)",
		"#0 main at " + file + ":1",
		"The program exited with code 0: terminated",
	}, "\n") + "\n"
	assert.Equal(t, want, out)
}

func TestConsoleQuit(t *testing.T) {
	out, err := runConsole(t, constants.EventFormatText, "until 3\nquit\nwhere\n", &debugger.StartOption{
		ProgramFile: saveProgram(t, consoleProgram),
		StopOnEntry: true,
	})
	require.NoError(t, err)
	file := source.Canonic("demo.py")
	assert.Contains(t, out, "> "+file+":3 (step)\n")
	assert.Contains(t, out, "The program exited with code 0: terminated\n")
	// quit以后不再读取命令
	assert.NotContains(t, out, "#0 main")
}

func TestConsoleUncaughtException(t *testing.T) {
	program := `
[[units]]
name = "main"
file = "demo.py"
statements = [{ line = 1, print = "start" }, { line = 2, raise = "ValueError" }]
`
	out, err := runConsole(t, constants.EventFormatText, "", &debugger.StartOption{
		ProgramFile: saveProgram(t, program),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ValueError")
	assert.True(t, strings.HasPrefix(out, "start\nThe program exited with code 1: "))
}

func TestConsoleJSONEvents(t *testing.T) {
	out, err := runConsole(t, constants.EventFormatJSON, "", &debugger.StartOption{
		ProgramFile: saveProgram(t, consoleProgram),
	})
	require.NoError(t, err)

	var events []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event["event"].(string))
	}
	assert.Equal(t, []string{"launch", "output", "output", "output", "exited"}, events)
}
