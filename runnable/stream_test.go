package runnable

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_SingleValueFallback(t *testing.T) {
	ctx := context.Background()
	it, err := Stream(ctx, double, 4)
	require.NoError(t, err)

	out, err := Collect(ctx, it)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, out)
}

func TestStream_InvokeError(t *testing.T) {
	_, err := Stream(context.Background(), failing[int, int]("bad", errLeaf), 1)
	assert.ErrorIs(t, err, errLeaf)
}

type countdown struct{}

func (countdown) Name() string { return "countdown" }
func (countdown) Invoke(_ context.Context, n int) ([]int, error) {
	var out []int
	for i := n; i > 0; i-- {
		out = append(out, i)
	}
	return out, nil
}
func (c countdown) Stream(ctx context.Context, n int) (Iterator[[]int], error) {
	ch := make(chan []int, n)
	for i := n; i > 0; i-- {
		ch <- []int{i}
	}
	close(ch)
	return FromChannel[[]int](ch), nil
}

func TestStream_UsesStreamer(t *testing.T) {
	ctx := context.Background()
	it, err := Stream[int, []int](ctx, countdown{}, 3)
	require.NoError(t, err)

	out, err := Collect(ctx, it)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{3}, {2}, {1}}, out)
}

func TestTransform(t *testing.T) {
	ctx := context.Background()
	out, err := Collect(ctx, Transform(Then(double, addTen), FromSlice([]int{1, 2, 3})))
	require.NoError(t, err)
	assert.Equal(t, []int{12, 14, 16}, out)
}

func TestTransform_StopsOnError(t *testing.T) {
	ctx := context.Background()
	r := Func("fail_on_two", func(_ context.Context, x int) (int, error) {
		if x == 2 {
			return 0, errLeaf
		}
		return x, nil
	})
	out, err := Collect(ctx, Transform(r, FromSlice([]int{1, 2, 3})))
	assert.ErrorIs(t, err, errLeaf)
	assert.Equal(t, []int{1}, out)
}

type closeFails struct{ Iterator[int] }

func (closeFails) Close() error { return errors.New("close failed") }

func TestCollect_JoinsCloseError(t *testing.T) {
	out, err := Collect(context.Background(), closeFails{FromSlice([]int{1})})
	assert.Equal(t, []int{1}, out)
	assert.ErrorContains(t, err, "close failed")
}

func TestFromChannel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := FromChannel[int](make(chan int)).Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
