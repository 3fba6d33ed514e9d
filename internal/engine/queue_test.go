package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/envelope/internal/ir"
)

func TestRecordQueue_DrainInArrivalOrder(t *testing.T) {
	q := newRecordQueue()
	require.True(t, q.Enqueue("a", []ir.Record{{"id": 1}, {"id": 2}}))
	require.True(t, q.Enqueue("b", []ir.Record{{"id": 3}}))
	assert.Equal(t, 3, q.Len())

	files := q.Drain()
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].path)
	assert.Equal(t, "b", files[1].path)
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestRecordQueue_SignalCoalesces(t *testing.T) {
	q := newRecordQueue()
	q.Enqueue("a", nil)
	q.Enqueue("b", nil)

	<-q.Wait()
	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce into one")
	default:
	}
}

func TestRecordQueue_Close(t *testing.T) {
	q := newRecordQueue()
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue("a", nil))
	_, open := <-q.Wait()
	assert.False(t, open)
}

func TestRecordQueue_ConcurrentEnqueue(t *testing.T) {
	q := newRecordQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue("f", []ir.Record{{}})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, q.Len())
}
