package trace_debugger

import (
	"strings"

	. "github.com/fansqz/go-tracer/debugger"
)

// outputWriter 把程序输出转换为OutputEvent
type outputWriter struct {
	callback NotificationCallback
}

func (w *outputWriter) Write(p []byte) (int, error) {
	w.callback(NewOutputEvent(strings.TrimSuffix(string(p), "\n")))
	return len(p), nil
}
