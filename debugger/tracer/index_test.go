package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexUpsertAndLookup(t *testing.T) {
	idx := NewIndex(CaseSensitive)
	bp := &Breakpoint{Number: 1, File: "/src/a.py", Line: 15, FirstLine: 10, ActualLine: 15}
	gen := idx.Generation()
	idx.Upsert("/src/a.py", 10, bp)
	assert.Greater(t, idx.Generation(), gen)

	module, lines, ok := idx.Lookup("/src/a.py", 10)
	require.True(t, ok)
	assert.Equal(t, "/src/a.py", module.File)
	assert.True(t, lines.Has(15))
	assert.Equal(t, []*Breakpoint{bp}, lines[15])

	_, _, ok = idx.Lookup("/src/a.py", 22)
	assert.False(t, ok)
	_, _, ok = idx.Lookup("/src/b.py", 10)
	assert.False(t, ok)
	assert.True(t, idx.HasBreaks())
}

func TestIndexUpsertIsCopyOnWrite(t *testing.T) {
	idx := NewIndex(CaseSensitive)
	bp1 := &Breakpoint{Number: 1, ActualLine: 15}
	bp2 := &Breakpoint{Number: 2, ActualLine: 15}
	idx.Upsert("/src/a.py", 10, bp1)
	_, before, _ := idx.Lookup("/src/a.py", 10)

	idx.Upsert("/src/a.py", 10, bp2)
	_, after, _ := idx.Lookup("/src/a.py", 10)

	assert.Len(t, before[15], 1)
	assert.Equal(t, []*Breakpoint{bp1, bp2}, after[15])
}

func TestIndexRemoveDeletesEmptyEntries(t *testing.T) {
	idx := NewIndex(CaseSensitive)
	bp1 := &Breakpoint{Number: 1, ActualLine: 12}
	bp2 := &Breakpoint{Number: 2, ActualLine: 15}
	idx.Upsert("/src/a.py", 10, bp1)
	idx.Upsert("/src/a.py", 10, bp2)
	idx.Alias("/src/a.py", "a.py")

	_, _, ok := idx.Lookup("a.py", 10)
	require.True(t, ok)

	require.True(t, idx.Remove("/src/a.py", 10, bp2))
	_, lines, ok := idx.Lookup("/src/a.py", 10)
	require.True(t, ok)
	assert.False(t, lines.Has(15))
	assert.True(t, lines.Has(12))

	require.True(t, idx.Remove("/src/a.py", 10, bp1))
	_, _, ok = idx.Lookup("/src/a.py", 10)
	assert.False(t, ok)
	_, _, ok = idx.Lookup("a.py", 10)
	assert.False(t, ok)
	assert.False(t, idx.HasBreaks())

	// 重复删除
	gen := idx.Generation()
	assert.False(t, idx.Remove("/src/a.py", 10, bp1))
	assert.Equal(t, gen, idx.Generation())
}

func TestIndexLookupDoesNotCreateEntries(t *testing.T) {
	idx := NewIndex(CaseSensitive)
	for i := 0; i < 3; i++ {
		_, _, ok := idx.Lookup("/src/a.py", 10)
		assert.False(t, ok)
	}
	assert.False(t, idx.HasBreaks())
	assert.Equal(t, uint64(3), idx.Lookups())
	assert.Equal(t, uint64(0), idx.Generation())
}

func TestIndexCaseFold(t *testing.T) {
	idx := NewIndex(LowerCase)
	bp := &Breakpoint{Number: 1, ActualLine: 3}
	idx.Upsert("/Src/Demo.py", 1, bp)

	_, lines, ok := idx.Lookup("/src/demo.PY", 1)
	require.True(t, ok)
	assert.True(t, lines.Has(3))

	sensitive := NewIndex(CaseSensitive)
	sensitive.Upsert("/Src/Demo.py", 1, bp)
	_, _, ok = sensitive.Lookup("/src/demo.py", 1)
	assert.False(t, ok)
}
