package coordinator

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBegin(t *testing.T) {
	c := New()
	s, err := c.Begin([]int{3, 1, 2})
	require.NoError(t, err)
	assert.True(t, s.InProgress)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, []int{1, 2, 3}, s.Cars)
	assert.Nil(t, s.WinnerCarID)

	_, err = c.Begin([]int{4})
	assert.ErrorIs(t, err, ErrRaceInProgress)
}

func TestClassify(t *testing.T) {
	c := New()
	_, group := c.Classify(1)
	assert.False(t, group, "no session")

	s, err := c.Begin([]int{1, 2})
	require.NoError(t, err)

	id, group := c.Classify(1)
	assert.True(t, group)
	assert.Equal(t, s.ID, id)

	_, group = c.Classify(5)
	assert.False(t, group, "not a member")

	c.Exclude(2)
	assert.False(t, c.IsMember(2))
}

func TestFinishSingleWinner(t *testing.T) {
	c := New()
	const n = 100
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	s, err := c.Begin(ids)
	require.NoError(t, err)

	var wins atomic.Int32
	var winnerID atomic.Int64
	start := make(chan struct{})
	wg := sync.WaitGroup{}
	for _, id := range ids {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			<-start
			if c.Finish(s.ID, id, float64(id)) {
				wins.Add(1)
				winnerID.Store(int64(id))
			}
		}(id)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	snap := c.Snapshot()
	require.NotNil(t, snap.WinnerCarID)
	assert.Equal(t, int(winnerID.Load()), *snap.WinnerCarID)
	assert.Equal(t, *snap.WinnerCarID, *snap.FirstFinisherCarID)
}

func TestFinishFirstWins(t *testing.T) {
	c := New()
	s, err := c.Begin([]int{1, 2})
	require.NoError(t, err)

	assert.True(t, c.Finish(s.ID, 1, 5.0))
	assert.False(t, c.Finish(s.ID, 2, 10.0))

	snap := c.Snapshot()
	assert.Equal(t, 1, *snap.WinnerCarID)
	assert.InDelta(t, 5.0, *snap.WinnerTime, 1e-9)

	rec, ok := c.Record(s.ID)
	require.True(t, ok)
	assert.Equal(t, 1, rec.WinnerCarID)
	assert.Equal(t, 2, rec.NumCars)
}

func TestFinishStaleSession(t *testing.T) {
	c := New()
	assert.False(t, c.Finish("unknown", 1, 1.0))

	old, err := c.Begin([]int{1})
	require.NoError(t, err)
	c.Reset()
	cur, err := c.Begin([]int{1})
	require.NoError(t, err)

	assert.False(t, c.Finish(old.ID, 1, 1.0))
	assert.Nil(t, c.Snapshot().WinnerCarID)
	assert.True(t, c.Finish(cur.ID, 1, 2.0))
}

func TestResetReturnsRemovedSession(t *testing.T) {
	c := New()
	first, err := c.Begin([]int{1})
	require.NoError(t, err)
	id, _ := c.Reset()
	assert.Equal(t, first.ID, id)

	second, err := c.Begin([]int{3, 4})
	require.NoError(t, err)
	id, members := c.Reset()
	assert.Equal(t, second.ID, id)
	assert.NotEqual(t, first.ID, id)
	assert.Equal(t, []int{3, 4}, members)
}

func TestReset(t *testing.T) {
	c := New()
	id, members := c.Reset()
	assert.Empty(t, id)
	assert.Nil(t, members)

	s, err := c.Begin([]int{2, 1})
	require.NoError(t, err)
	c.Finish(s.ID, 1, 3.0)

	id, members = c.Reset()
	assert.Equal(t, s.ID, id)
	assert.Equal(t, []int{1, 2}, members)
	snap := c.Snapshot()
	assert.False(t, snap.InProgress)
	assert.Nil(t, snap.WinnerCarID)
	_, ok := c.Record(s.ID)
	assert.False(t, ok)
}
