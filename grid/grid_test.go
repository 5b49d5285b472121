package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridIsEmpty(t *testing.T) {
	g := New()
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 0, g.Width())
	assert.False(t, g.HasHeader())
	assert.Empty(t, g.Titles())
}

func TestGetOnFreshGridGrows(t *testing.T) {
	tests := []struct {
		column, row int
	}{
		{0, 0},
		{3, 0},
		{0, 4},
		{7, 9},
	}

	for _, tt := range tests {
		g := New()
		v, err := g.Get(tt.column, tt.row)
		require.NoError(t, err)
		assert.Equal(t, "", v)

		require.Equal(t, tt.row+1, g.Len())
		last := g.Row(tt.row)
		require.NotNil(t, last)
		assert.Len(t, last.Cells, tt.column+1)
		for i := 0; i < g.Len(); i++ {
			assert.Equal(t, i, g.Row(i).Index)
			assert.Equal(t, rowID(i), g.Row(i).ID)
		}
	}
}

func TestCellIdempotent(t *testing.T) {
	g := New()
	a, err := g.Cell(2, 3)
	require.NoError(t, err)
	b, err := g.Cell(2, 3)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 4, g.Len())
	assert.Len(t, g.Row(3).Cells, 3)
	assert.Equal(t, "row-3/col-2", a.ID())
}

func TestOrderIndependence(t *testing.T) {
	g := New()
	require.NoError(t, g.Set(5, 0, "far"))

	v, err := g.Get(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, g.Set(0, 0, "near"))
	near, _ := g.Get(0, 0)
	far, _ := g.Get(5, 0)
	assert.Equal(t, "near", near)
	assert.Equal(t, "far", far)
	assert.Len(t, g.Row(0).Cells, 6)
}

func TestSetGetRoundTrip(t *testing.T) {
	g := New()
	values := map[[2]int]string{
		{0, 0}:   "a",
		{4, 2}:   "with spaces ",
		{1, 10}:  "ünïcødé",
		{12, 1}:  "",
		{3, 100}: "line\nbreak",
	}
	for pos, v := range values {
		require.NoError(t, g.Set(pos[0], pos[1], v))
	}
	for pos, want := range values {
		got, err := g.Get(pos[0], pos[1])
		require.NoError(t, err)
		assert.Equal(t, want, got, "cell %v", pos)
	}
}

func TestRowsGrowIndependently(t *testing.T) {
	g := New()
	require.NoError(t, g.Set(1, 0, "x"))
	require.NoError(t, g.Set(6, 2, "y"))

	assert.Len(t, g.Row(0).Cells, 2)
	assert.Len(t, g.Row(1).Cells, 0)
	assert.Len(t, g.Row(2).Cells, 7)
	assert.Equal(t, 7, g.Width())

	// Addressing a lower column never shrinks a row.
	_, err := g.Cell(0, 2)
	require.NoError(t, err)
	assert.Len(t, g.Row(2).Cells, 7)
}

func TestSetTitle(t *testing.T) {
	g := New()
	require.NoError(t, g.SetTitle(2, "Temp"))
	assert.True(t, g.HasHeader())
	assert.Equal(t, []string{"", "", "Temp"}, g.Titles())

	require.NoError(t, g.SetTitle(0, "Country"))
	assert.Equal(t, []string{"Country", "", "Temp"}, g.Titles())

	// Header does not count as a data row.
	assert.Equal(t, 0, g.Len())
}

func TestNegativeIndex(t *testing.T) {
	g := New()

	_, err := g.Cell(-1, 0)
	assert.ErrorIs(t, err, ErrNegativeIndex)
	_, err = g.Get(0, -3)
	assert.ErrorIs(t, err, ErrNegativeIndex)
	assert.ErrorIs(t, g.Set(-2, -2, "x"), ErrNegativeIndex)
	assert.ErrorIs(t, g.SetTitle(-1, "x"), ErrNegativeIndex)

	assert.Equal(t, 0, g.Len())
	assert.False(t, g.HasHeader())
}

func TestIndexTooLarge(t *testing.T) {
	g := New()

	_, err := g.Cell(0, math.MaxInt)
	assert.ErrorIs(t, err, ErrIndexTooLarge)
	_, err = g.Cell(math.MaxInt, 0)
	assert.ErrorIs(t, err, ErrIndexTooLarge)
	assert.ErrorIs(t, g.Set(math.MaxInt, math.MaxInt, "x"), ErrIndexTooLarge)
	assert.ErrorIs(t, g.SetTitle(math.MaxInt, "x"), ErrIndexTooLarge)

	assert.Equal(t, 0, g.Len())
	assert.False(t, g.HasHeader())
	assert.Empty(t, g.Titles())
}

func TestValues(t *testing.T) {
	g := New()
	require.NoError(t, g.Set(1, 0, "b"))
	require.NoError(t, g.Set(0, 1, "c"))

	assert.Equal(t, [][]string{{"", "b"}, {"c"}}, g.Values())
}

func TestGrowKeepsExisting(t *testing.T) {
	s := []int{7, 8}
	s = grow(s, 5, func(i int) int { return i * 10 })
	assert.Equal(t, []int{7, 8, 20, 30, 40}, s)

	s = grow(s, 3, func(int) int { return -1 })
	assert.Len(t, s, 5)
}
