package arena

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type pair struct {
	A, B int
}

func TestChunkTracksInit(t *testing.T) {
	c := New(reflect.TypeOf(pair{}), 2)
	require.False(t, c.AllInit())

	c.MarkInit(0, nil)
	require.True(t, c.IsInit(0))
	require.False(t, c.AllInit())

	c.MarkInit(1, nil)
	require.True(t, c.AllInit())
}

func TestUnwindRunsDropsInReverseOrder(t *testing.T) {
	c := New(reflect.TypeOf(pair{}), 2)
	var order []int
	c.MarkInit(0, func() { order = append(order, 0) })
	c.MarkInit(1, func() { order = append(order, 1) })

	c.Unwind()

	require.Equal(t, []int{1, 0}, order)
	require.False(t, c.AllInit())
}
