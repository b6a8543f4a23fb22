package host

import (
	"fmt"
	"io"
	"sync"

	"github.com/fansqz/go-tracer/constants"
	"github.com/fansqz/go-tracer/debugger/tracer"
	"github.com/vmihailenco/msgpack/v5"
)

// Record 一次事件投递
type Record struct {
	Thread int                 `msgpack:"thread"`
	Event  constants.EventKind `msgpack:"event"`
	Func   string              `msgpack:"func"`
	File   string              `msgpack:"file"`
	Line   int                 `msgpack:"line"`
	Action string              `msgpack:"action"`
	Err    string              `msgpack:"err,omitempty"`
}

func (r Record) String() string {
	s := fmt.Sprintf("[%d] %-9s %s %s:%d -> %s", r.Thread, r.Event, r.Func, r.File, r.Line, r.Action)
	if r.Err != "" {
		s += " (" + r.Err + ")"
	}
	return s
}

// Recorder 记录所有线程投递的事件
type Recorder struct {
	lock    sync.Mutex
	records []Record
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Wrap 包装一个线程的trace函数
func (r *Recorder) Wrap(thread int, trace TraceFunc) TraceFunc {
	return &recordingTrace{recorder: r, thread: thread, trace: trace}
}

func (r *Recorder) add(record Record) {
	r.lock.Lock()
	r.records = append(r.records, record)
	r.lock.Unlock()
}

// Records 已记录的事件
func (r *Recorder) Records() []Record {
	r.lock.Lock()
	defer r.lock.Unlock()
	records := make([]Record, len(r.records))
	copy(records, r.records)
	return records
}

// Encode 以msgpack格式写出所有事件
func (r *Recorder) Encode(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(r.Records())
}

// DecodeRecords 读取Encode写出的事件
func DecodeRecords(rd io.Reader) ([]Record, error) {
	var records []Record
	if err := msgpack.NewDecoder(rd).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

type recordingTrace struct {
	recorder *Recorder
	thread   int
	trace    TraceFunc
}

func (t *recordingTrace) Dispatch(frame tracer.Frame, event constants.EventKind, arg any) (tracer.Action, error) {
	action, err := t.trace.Dispatch(frame, event, arg)
	record := Record{
		Thread: t.thread,
		Event:  event,
		Line:   frame.Line(),
		Action: action.String(),
	}
	if code := frame.Code(); code != nil {
		record.Func, record.File = code.Name, code.File
	}
	if err != nil {
		record.Err = err.Error()
	}
	t.recorder.add(record)
	return action, err
}

func (t *recordingTrace) Active() bool {
	return t.trace.Active()
}

func (t *recordingTrace) SetTrace(frame tracer.Frame) {
	if trapper, ok := t.trace.(Trapper); ok {
		trapper.SetTrace(frame)
	}
}
