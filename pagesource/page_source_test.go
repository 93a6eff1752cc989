package pagesource

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/execution"
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
)

type submission struct {
	filters map[string]dynamicfilter.Filter
}

// fakeClient serves one scripted pull per position and stops producing after the last one.
type fakeClient struct {
	pulls    [][]*execution.Batch
	position int

	pullErr     error
	accept      bool
	submitErr   error
	closeErr    error
	submissions []submission

	pullCount    int
	advanceCount int
	closeCount   int
	calls        int
}

func (c *fakeClient) IsProducing() bool {
	c.calls++
	return c.position < len(c.pulls)
}

func (c *fakeClient) Pull() ([]*execution.Batch, error) {
	c.calls++
	c.pullCount++
	if c.pullErr != nil {
		return nil, c.pullErr
	}
	return c.pulls[c.position], nil
}

func (c *fakeClient) Advance() {
	c.calls++
	c.advanceCount++
	c.position++
}

func (c *fakeClient) SubmitFilters(filters map[string]dynamicfilter.Filter) (bool, error) {
	c.calls++
	c.submissions = append(c.submissions, submission{filters: filters})
	if c.submitErr != nil {
		return false, c.submitErr
	}
	return c.accept, nil
}

func (c *fakeClient) Close() error {
	c.calls++
	c.closeCount++
	return c.closeErr
}

var nameColumn = physical.SchemaField{Name: "name", Type: octosql.String}

// sizedBatch returns a single-row batch of a string column whose payload takes exactly size bytes.
func sizedBatch(size int) *execution.Batch {
	return execution.NewBatch([]execution.Column{{octosql.NewString(strings.Repeat("x", size))}})
}

func intBatch(values ...int) *execution.Batch {
	column := make(execution.Column, len(values))
	for i := range values {
		column[i] = octosql.NewInt(values[i])
	}
	return execution.NewBatch([]execution.Column{column})
}

func TestPageSource_EndToEnd(t *testing.T) {
	first, second := sizedBatch(100), sizedBatch(150)
	client := &fakeClient{
		pulls: [][]*execution.Batch{
			{first, second},
			{},
		},
	}
	ps := New(client, []physical.SchemaField{nameColumn})
	assert.Equal(t, StateIdle, ps.State())

	batch, err := ps.NextBatch()
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.Equal(t, StateDraining, ps.State())
	assert.Equal(t, int64(250), ps.CompletedBytes())

	batch, err = ps.NextBatch()
	require.NoError(t, err)
	assert.Same(t, first, batch)

	batch, err = ps.NextBatch()
	require.NoError(t, err)
	assert.Same(t, second, batch)
	assert.False(t, ps.IsFinished())
	assert.Equal(t, StateProducing, ps.State())

	batch, err = ps.NextBatch()
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.True(t, ps.IsFinished())
	assert.Equal(t, StateFinished, ps.State())

	assert.Equal(t, int64(250), ps.CompletedBytes())
	assert.Equal(t, 2, client.pullCount)
	assert.Equal(t, 2, client.advanceCount)
}

func TestPageSource_LocalFirstDraining(t *testing.T) {
	client := &fakeClient{
		pulls: [][]*execution.Batch{
			{intBatch(1), intBatch(2), intBatch(3)},
			{intBatch(4)},
		},
	}
	ps := New(client, []physical.SchemaField{{Name: "id", Type: octosql.Int}})

	_, err := ps.NextBatch()
	require.NoError(t, err)
	require.Equal(t, 1, client.pullCount)

	var got []int
	for i := 0; i < 3; i++ {
		batch, err := ps.NextBatch()
		require.NoError(t, err)
		require.NotNil(t, batch)
		got = append(got, batch.Columns[0][0].Int)
		assert.Equal(t, 1, client.pullCount, "no pull while the queue is non-empty")
		assert.Equal(t, 1, client.advanceCount)
	}
	assert.Equal(t, []int{1, 2, 3}, got)

	batch, err := ps.NextBatch()
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.Equal(t, 2, client.pullCount)
}

func TestPageSource_MonotonicBytes(t *testing.T) {
	client := &fakeClient{
		pulls: [][]*execution.Batch{
			{sizedBatch(10), sizedBatch(20)},
			{},
			{sizedBatch(5)},
		},
	}
	ps := New(client, []physical.SchemaField{nameColumn})

	var previous int64
	var deltas []int64
	for !ps.IsFinished() {
		_, err := ps.NextBatch()
		require.NoError(t, err)
		current := ps.CompletedBytes()
		require.GreaterOrEqual(t, current, previous)
		if current != previous {
			deltas = append(deltas, current-previous)
		}
		previous = current
	}
	assert.Equal(t, []int64{30, 5}, deltas)
	assert.Equal(t, int64(35), ps.CompletedBytes())
}

func TestPageSource_SystemMemoryUsageIsLastPullSnapshot(t *testing.T) {
	large := []*execution.Batch{sizedBatch(1000), sizedBatch(1000)}
	small := []*execution.Batch{sizedBatch(1)}
	client := &fakeClient{
		pulls: [][]*execution.Batch{large, {}, small},
	}
	ps := New(client, []physical.SchemaField{nameColumn})
	assert.Equal(t, int64(0), ps.SystemMemoryUsage())

	_, err := ps.NextBatch()
	require.NoError(t, err)
	largeRetained := large[0].RetainedSizeInBytes() + large[1].RetainedSizeInBytes()
	assert.Equal(t, largeRetained, ps.SystemMemoryUsage())

	// Drain, then an empty pull leaves the snapshot alone.
	for i := 0; i < 3; i++ {
		_, err := ps.NextBatch()
		require.NoError(t, err)
	}
	assert.Equal(t, 2, client.pullCount)
	assert.Equal(t, largeRetained, ps.SystemMemoryUsage())

	_, err = ps.NextBatch()
	require.NoError(t, err)
	assert.Equal(t, small[0].RetainedSizeInBytes(), ps.SystemMemoryUsage())
}

func TestPageSource_ZeroColumnNormalization(t *testing.T) {
	client := &fakeClient{
		pulls: [][]*execution.Batch{
			{intBatch(1, 2, 3, 4, 5)},
		},
	}
	ps := New(client, nil)

	_, err := ps.NextBatch()
	require.NoError(t, err)
	batch, err := ps.NextBatch()
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 5, batch.RowCount)
	assert.Empty(t, batch.Columns)
	assert.Equal(t, int64(5*8), ps.CompletedBytes())
}

func TestPageSource_RemoteFetchError(t *testing.T) {
	client := &fakeClient{
		pulls:   [][]*execution.Batch{{sizedBatch(10)}},
		pullErr: errors.New("connection reset"),
	}
	ps := New(client, []physical.SchemaField{nameColumn})

	batch, err := ps.NextBatch()
	assert.Nil(t, batch)
	var fetchErr *RemoteFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.EqualError(t, errors.Cause(err), "connection reset")
	assert.Equal(t, 0, client.advanceCount)
	assert.Equal(t, int64(0), ps.CompletedBytes())
	assert.Equal(t, StateIdle, ps.State())

	client.pullErr = nil
	batch, err = ps.NextBatch()
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.Equal(t, 1, client.advanceCount)
	assert.Equal(t, int64(10), ps.CompletedBytes())
}

func TestPageSource_FilterPushdown(t *testing.T) {
	idColumn := physical.SchemaField{Name: "id", Type: octosql.Int}
	producing := func() [][]*execution.Batch {
		out := make([][]*execution.Batch, 10)
		for i := range out {
			out[i] = []*execution.Batch{}
		}
		return out
	}

	t.Run("accepted filters are submitted once", func(t *testing.T) {
		client := &fakeClient{pulls: producing(), accept: true}
		supplied := 0
		supplier := func() map[physical.SchemaField]dynamicfilter.Filter {
			supplied++
			// A new, tighter filter every call.
			return map[physical.SchemaField]dynamicfilter.Filter{
				idColumn: dynamicfilter.NewHashSetFilter("", octosql.NewInt(supplied)),
			}
		}
		ps := New(client, []physical.SchemaField{idColumn}, WithFilterSupplier(supplier))

		for i := 0; i < 5; i++ {
			_, err := ps.NextBatch()
			require.NoError(t, err)
		}
		require.Len(t, client.submissions, 1)
		filter := client.submissions[0].filters["id"]
		require.NotNil(t, filter)
		assert.Equal(t, dynamicfilter.KindBloom, filter.Kind())
		assert.True(t, filter.Contains(octosql.NewInt(1)))
		assert.Equal(t, []string{"id"}, ps.AppliedFilters())
	})

	t.Run("failed submission is retried", func(t *testing.T) {
		client := &fakeClient{pulls: producing(), submitErr: errors.New("unavailable")}
		supplier := func() map[physical.SchemaField]dynamicfilter.Filter {
			return map[physical.SchemaField]dynamicfilter.Filter{
				idColumn: dynamicfilter.NewHashSetFilter("", octosql.NewInt(1)),
			}
		}
		ps := New(client, []physical.SchemaField{idColumn}, WithFilterSupplier(supplier))

		_, err := ps.NextBatch()
		require.NoError(t, err, "filter submission failures aren't fatal")
		assert.Equal(t, 1, client.pullCount)
		assert.Empty(t, ps.AppliedFilters())

		client.submitErr = nil
		client.accept = true
		_, err = ps.NextBatch()
		require.NoError(t, err)
		assert.Len(t, client.submissions, 2)
		assert.Equal(t, []string{"id"}, ps.AppliedFilters())

		_, err = ps.NextBatch()
		require.NoError(t, err)
		assert.Len(t, client.submissions, 2)
	})

	t.Run("rejected submission is retried", func(t *testing.T) {
		client := &fakeClient{pulls: producing(), accept: false}
		supplier := func() map[physical.SchemaField]dynamicfilter.Filter {
			return map[physical.SchemaField]dynamicfilter.Filter{
				idColumn: dynamicfilter.NewHashSetFilter("", octosql.NewInt(1)),
			}
		}
		ps := New(client, []physical.SchemaField{idColumn}, WithFilterSupplier(supplier))

		for i := 0; i < 3; i++ {
			_, err := ps.NextBatch()
			require.NoError(t, err)
		}
		assert.Len(t, client.submissions, 3)
		assert.Empty(t, ps.AppliedFilters())
	})

	t.Run("only new columns are submitted", func(t *testing.T) {
		client := &fakeClient{pulls: producing(), accept: true}
		collector := dynamicfilter.NewCollector()
		collector.Publish(idColumn, dynamicfilter.NewHashSetFilter("", octosql.NewInt(1)))
		ps := New(client, []physical.SchemaField{idColumn, nameColumn}, WithFilterSupplier(collector.Supplier()))

		_, err := ps.NextBatch()
		require.NoError(t, err)
		collector.Publish(nameColumn, dynamicfilter.NewHashSetFilter("", octosql.NewString("a")))
		_, err = ps.NextBatch()
		require.NoError(t, err)

		require.Len(t, client.submissions, 2)
		assert.Len(t, client.submissions[1].filters, 1)
		assert.Contains(t, client.submissions[1].filters, "name")
		assert.Equal(t, []string{"id", "name"}, ps.AppliedFilters())
	})

	t.Run("nothing to submit", func(t *testing.T) {
		client := &fakeClient{pulls: producing(), accept: true}
		supplier := func() map[physical.SchemaField]dynamicfilter.Filter {
			return nil
		}
		ps := New(client, []physical.SchemaField{idColumn}, WithFilterSupplier(supplier))

		_, err := ps.NextBatch()
		require.NoError(t, err)
		assert.Empty(t, client.submissions)
	})
}

func TestPageSource_FinishedStability(t *testing.T) {
	client := &fakeClient{
		pulls:  [][]*execution.Batch{{}},
		accept: true,
	}
	supplier := func() map[physical.SchemaField]dynamicfilter.Filter {
		return map[physical.SchemaField]dynamicfilter.Filter{
			nameColumn: dynamicfilter.NewHashSetFilter("", octosql.NewString("a")),
		}
	}
	ps := New(client, []physical.SchemaField{nameColumn}, WithFilterSupplier(supplier))
	for !ps.IsFinished() {
		_, err := ps.NextBatch()
		require.NoError(t, err)
	}
	pulls, advances, submissions := client.pullCount, client.advanceCount, len(client.submissions)

	for i := 0; i < 10; i++ {
		batch, err := ps.NextBatch()
		require.NoError(t, err)
		assert.Nil(t, batch)
		assert.True(t, ps.IsFinished())
	}
	assert.Equal(t, pulls, client.pullCount)
	assert.Equal(t, advances, client.advanceCount)
	assert.Equal(t, submissions, len(client.submissions))
}

func TestPageSource_NoPushdownAfterExhaustion(t *testing.T) {
	client := &fakeClient{
		pulls:  [][]*execution.Batch{{}},
		accept: true,
	}
	filters := map[physical.SchemaField]dynamicfilter.Filter{}
	supplier := func() map[physical.SchemaField]dynamicfilter.Filter {
		return filters
	}
	ps := New(client, []physical.SchemaField{nameColumn}, WithFilterSupplier(supplier))
	for !ps.IsFinished() {
		_, err := ps.NextBatch()
		require.NoError(t, err)
	}

	filters[nameColumn] = dynamicfilter.NewHashSetFilter("late", octosql.NewString("a"))
	batch, err := ps.NextBatch()
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.Empty(t, client.submissions)
	assert.Empty(t, ps.AppliedFilters())
}

func TestPageSource_Close(t *testing.T) {
	t.Run("error is reported once", func(t *testing.T) {
		client := &fakeClient{closeErr: errors.New("channel broken")}
		ps := New(client, nil)

		err := ps.Close()
		var terminationErr *TerminationError
		require.True(t, errors.As(err, &terminationErr))
		assert.EqualError(t, errors.Cause(err), "channel broken")

		assert.NoError(t, ps.Close())
		assert.Equal(t, 1, client.closeCount)
	})

	t.Run("closed page source", func(t *testing.T) {
		client := &fakeClient{pulls: [][]*execution.Batch{{intBatch(1)}}}
		ps := New(client, nil)
		_, err := ps.NextBatch()
		require.NoError(t, err)

		require.NoError(t, ps.Close())
		calls := client.calls

		batch, err := ps.NextBatch()
		assert.Nil(t, batch)
		assert.Equal(t, ErrClosed, err)
		assert.True(t, ps.IsFinished())
		assert.Equal(t, StateFinished, ps.State())
		assert.Equal(t, calls, client.calls)
	})
}

func TestPageSource_ReadTimeNanos(t *testing.T) {
	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ps := New(&fakeClient{}, nil, WithClock(clock))

	assert.Equal(t, int64(0), ps.ReadTimeNanos())
	now = now.Add(1500 * time.Millisecond)
	assert.Equal(t, int64(1500*time.Millisecond), ps.ReadTimeNanos())
	now = now.Add(time.Second)
	assert.Equal(t, int64(2500*time.Millisecond), ps.ReadTimeNanos())
}
