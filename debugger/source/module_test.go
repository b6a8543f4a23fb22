package source

import (
	"errors"
	"testing"

	e "github.com/fansqz/go-tracer/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1  <module>
// 3  def f():      4, 5, 7
// 10 def g():      11, 12
// 20 module statement
func newTestModule() *Module {
	f := &Code{Name: "f", FirstLine: 3, Lines: []int{4, 5, 7}}
	g := &Code{Name: "g", FirstLine: 10, Lines: []int{11, 12}}
	root := &Code{Name: "<module>", FirstLine: 1, Lines: []int{3, 10, 20}, Subcodes: []*Code{f, g}}
	return NewModule("demo.py", root)
}

func TestActualBreakpoint(t *testing.T) {
	m := newTestModule()
	tests := []struct {
		name   string
		line   int
		first  int
		actual int
	}{
		{"exact statement in function", 4, 3, 4},
		{"definition line maps to first statement", 3, 3, 4},
		{"gap inside function", 6, 3, 7},
		{"gap between functions", 8, 10, 11},
		{"module level statement", 20, 1, 20},
		{"module first line", 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, actual, err := m.ActualBreakpoint(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.actual, actual)
		})
	}
}

func TestActualBreakpointAfterLastStatement(t *testing.T) {
	m := newTestModule()
	_, _, err := m.ActualBreakpoint(25)
	assert.True(t, errors.Is(err, e.ErrLineAfterLastStm))

	_, _, err = m.ActualBreakpoint(0)
	assert.True(t, errors.Is(err, e.ErrInvalidLine))
}

func TestFuncFirstLine(t *testing.T) {
	inner := &Code{Name: "inner", FirstLine: 5, Lines: []int{6}}
	outer := &Code{Name: "outer", FirstLine: 3, Lines: []int{4, 5, 8}, Subcodes: []*Code{inner}}
	m := NewModule("nested.py", &Code{Name: "<module>", FirstLine: 1, Lines: []int{3, 9}, Subcodes: []*Code{outer}})

	l, err := m.FuncFirstLine("outer")
	require.NoError(t, err)
	assert.Equal(t, 3, l)

	l, err = m.FuncFirstLine("outer.inner")
	require.NoError(t, err)
	assert.Equal(t, 5, l)

	_, err = m.FuncFirstLine("inner")
	assert.True(t, errors.Is(err, e.ErrFuncNotFound))
}

func TestSetResolver(t *testing.T) {
	s := NewSet(newTestModule())

	first, actual, err := s.ActualBreakpoint("demo.py", 8)
	require.NoError(t, err)
	assert.Equal(t, 10, first)
	assert.Equal(t, 11, actual)

	_, _, err = s.ActualBreakpoint("missing.py", 1)
	assert.True(t, errors.Is(err, e.ErrSourceNotFound))

	assert.Equal(t, "<string>", Canonic("<string>"))
}
