package record

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/notevault/internal/eventbus"
	"github.com/kazz187/notevault/pkg/cerr"
)

func TestIDCounter_Concurrent(t *testing.T) {
	c := NewIDCounter(10)

	const n = 100
	ids := make(chan int, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- c.Next()
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		assert.Greater(t, id, 10)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, 10+n+1, c.Next())
}

func TestTaskInput_Normalize(t *testing.T) {
	_, err := TaskInput{Title: "  "}.Normalize()
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	in, err := TaskInput{Title: "Buy milk"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, StatusPending, in.Status)

	in, err = TaskInput{Title: "Buy milk", Status: StatusCompleted}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, in.Status)
}

func TestNoteInput_Normalize(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	in, err := NoteInput{Title: "Graphs"}.Normalize(now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T09:30:00.000000", in.CreatedAt)

	in, err = NoteInput{Title: "Graphs", CreatedAt: "2023-01-01T00:00:00"}.Normalize(now)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01T00:00:00", in.CreatedAt)

	_, err = NoteInput{}.Normalize(now)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []int{1, 2}, AddID([]int{1, 2}, 2))
	assert.Equal(t, []int{1, 2, 3}, AddID([]int{1, 2}, 3))

	orig := []int{1, 2, 3}
	assert.Equal(t, []int{1, 3}, RemoveID(orig, 2))
	assert.Equal(t, []int{1, 2, 3}, orig)

	exists := func(id int) bool { return id != 2 }
	assert.Equal(t, []int{1, 3}, KeepExisting([]int{1, 2, 3, 1}, exists))
	assert.Equal(t, 5, NormalizeTopK(0))
	assert.Equal(t, 3, NormalizeTopK(3))
}

func TestNotifier(t *testing.T) {
	Notifier{}.TaskDeleted(1)

	bus := eventbus.New()
	_, ch := bus.Subscribe(1)
	NewNotifier(bus).Linked(2, 5)

	ev := <-ch
	assert.Equal(t, eventbus.EventNoteLinked, ev.Type)
	assert.Equal(t, "2", ev.ResourceID)
	assert.Equal(t, "5", ev.Metadata["note_id"])
}
