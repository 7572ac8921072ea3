// Package recordtest checks record.Repository implementations against the
// shared behavior every backend must have.
package recordtest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/notevault/internal/record"
	"github.com/kazz187/notevault/pkg/cerr"
)

func noteIDs(v *record.TaskView) []int {
	ids := make([]int, len(v.Notes))
	for i, n := range v.Notes {
		ids[i] = n.ID
	}
	return ids
}

func taskIDs(v *record.NoteView) []int {
	ids := make([]int, len(v.Tasks))
	for i, t := range v.Tasks {
		ids[i] = t.ID
	}
	return ids
}

func Run(t *testing.T, newRepo func(t *testing.T) record.Repository) {
	t.Helper()

	t.Run("CreateGet", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		id, err := repo.CreateTask(ctx, record.TaskInput{Title: "Buy milk", Description: "2 litres", Status: record.StatusInProgress, Deadline: "2024-05-01"})
		require.NoError(t, err)

		got, err := repo.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "Buy milk", got.Title)
		assert.Equal(t, "2 litres", got.Description)
		assert.Equal(t, record.StatusInProgress, got.Status)
		assert.Equal(t, "2024-05-01", got.Deadline)
		assert.Empty(t, got.Notes)

		noteID, err := repo.CreateNote(ctx, record.NoteInput{Title: "Dairy", Content: "prefer oat", CreatedAt: "2024-01-01T10:00:00"})
		require.NoError(t, err)
		note, err := repo.GetNote(ctx, noteID)
		require.NoError(t, err)
		assert.Equal(t, "Dairy", note.Title)
		assert.Equal(t, "prefer oat", note.Content)
		assert.Equal(t, "2024-01-01T10:00:00", note.CreatedAt)
		assert.Empty(t, note.Tasks)
	})

	t.Run("Defaults", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		id, err := repo.CreateTask(ctx, record.TaskInput{Title: "Buy milk"})
		require.NoError(t, err)
		got, err := repo.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, record.StatusPending, got.Status)

		noteID, err := repo.CreateNote(ctx, record.NoteInput{Title: "Dairy"})
		require.NoError(t, err)
		note, err := repo.GetNote(ctx, noteID)
		require.NoError(t, err)
		assert.NotEmpty(t, note.CreatedAt)
	})

	t.Run("TitleRequired", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		_, err := repo.CreateTask(ctx, record.TaskInput{})
		assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
		_, err = repo.CreateNote(ctx, record.NoteInput{Content: "no title"})
		assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	})

	t.Run("GetMissing", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		_, err := repo.GetTask(ctx, 42)
		assert.True(t, cerr.IsCode(err, cerr.NotFound))
		_, err = repo.GetNote(ctx, 42)
		assert.True(t, cerr.IsCode(err, cerr.NotFound))
	})

	t.Run("IDsIncrease", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		first, err := repo.CreateTask(ctx, record.TaskInput{Title: "a"})
		require.NoError(t, err)
		second, err := repo.CreateTask(ctx, record.TaskInput{Title: "b"})
		require.NoError(t, err)
		assert.Greater(t, second, first)

		require.NoError(t, repo.DeleteTask(ctx, second))
		third, err := repo.CreateTask(ctx, record.TaskInput{Title: "c"})
		require.NoError(t, err)
		assert.Greater(t, third, second)
	})

	t.Run("LinkSymmetry", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		taskID, err := repo.CreateTask(ctx, record.TaskInput{Title: "Study graphs"})
		require.NoError(t, err)
		noteID, err := repo.CreateNote(ctx, record.NoteInput{Title: "Dijkstra"})
		require.NoError(t, err)

		require.NoError(t, repo.Link(ctx, taskID, noteID))

		task, err := repo.GetTask(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, []int{noteID}, noteIDs(task))
		assert.Equal(t, "Dijkstra", task.Notes[0].Title)
		note, err := repo.GetNote(ctx, noteID)
		require.NoError(t, err)
		assert.Equal(t, []int{taskID}, taskIDs(note))

		require.NoError(t, repo.Unlink(ctx, taskID, noteID))

		task, err = repo.GetTask(ctx, taskID)
		require.NoError(t, err)
		assert.Empty(t, task.Notes)
		note, err = repo.GetNote(ctx, noteID)
		require.NoError(t, err)
		assert.Empty(t, note.Tasks)

		require.NoError(t, repo.Unlink(ctx, taskID, noteID))
	})

	t.Run("LinkIdempotent", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		taskID, err := repo.CreateTask(ctx, record.TaskInput{Title: "Study graphs"})
		require.NoError(t, err)
		noteID, err := repo.CreateNote(ctx, record.NoteInput{Title: "Dijkstra"})
		require.NoError(t, err)

		require.NoError(t, repo.Link(ctx, taskID, noteID))
		require.NoError(t, repo.Link(ctx, taskID, noteID))

		task, err := repo.GetTask(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, []int{noteID}, noteIDs(task))
		note, err := repo.GetNote(ctx, noteID)
		require.NoError(t, err)
		assert.Equal(t, []int{taskID}, taskIDs(note))
	})

	t.Run("LinkMissingIsNoop", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		taskID, err := repo.CreateTask(ctx, record.TaskInput{Title: "Study graphs"})
		require.NoError(t, err)

		require.NoError(t, repo.Link(ctx, taskID, 99))
		require.NoError(t, repo.Link(ctx, 99, taskID))

		task, err := repo.GetTask(ctx, taskID)
		require.NoError(t, err)
		assert.Empty(t, task.Notes)
	})

	t.Run("DeletedNoteIsFiltered", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		taskID, err := repo.CreateTask(ctx, record.TaskInput{Title: "Study graphs"})
		require.NoError(t, err)
		keep, err := repo.CreateNote(ctx, record.NoteInput{Title: "BFS"})
		require.NoError(t, err)
		drop, err := repo.CreateNote(ctx, record.NoteInput{Title: "DFS"})
		require.NoError(t, err)
		require.NoError(t, repo.Link(ctx, taskID, keep))
		require.NoError(t, repo.Link(ctx, taskID, drop))

		require.NoError(t, repo.DeleteNote(ctx, drop))

		task, err := repo.GetTask(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, []int{keep}, noteIDs(task))
		_, err = repo.GetNote(ctx, drop)
		assert.True(t, cerr.IsCode(err, cerr.NotFound))

		tasks, err := repo.ListTasks(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, []int{keep}, noteIDs(tasks[0]))

		// a stale id must not come back after the next write
		require.NoError(t, repo.UpdateTask(ctx, taskID, record.TaskInput{Title: "Study graphs", Status: record.StatusCompleted}))
		task, err = repo.GetTask(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, []int{keep}, noteIDs(task))
	})

	t.Run("DeletedTaskIsFiltered", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		taskID, err := repo.CreateTask(ctx, record.TaskInput{Title: "Study graphs"})
		require.NoError(t, err)
		noteID, err := repo.CreateNote(ctx, record.NoteInput{Title: "BFS"})
		require.NoError(t, err)
		require.NoError(t, repo.Link(ctx, taskID, noteID))

		require.NoError(t, repo.DeleteTask(ctx, taskID))
		require.NoError(t, repo.DeleteTask(ctx, taskID))

		note, err := repo.GetNote(ctx, noteID)
		require.NoError(t, err)
		assert.Empty(t, note.Tasks)
	})

	t.Run("Update", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		taskID, err := repo.CreateTask(ctx, record.TaskInput{Title: "Buy milk", Description: "2 litres", Deadline: "2024-05-01"})
		require.NoError(t, err)
		noteID, err := repo.CreateNote(ctx, record.NoteInput{Title: "Dairy", CreatedAt: "2024-01-01T10:00:00"})
		require.NoError(t, err)
		require.NoError(t, repo.Link(ctx, taskID, noteID))

		// every field is overwritten, relations are kept
		require.NoError(t, repo.UpdateTask(ctx, taskID, record.TaskInput{Title: "Buy oat milk"}))
		task, err := repo.GetTask(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, "Buy oat milk", task.Title)
		assert.Empty(t, task.Description)
		assert.Empty(t, task.Deadline)
		assert.Equal(t, record.StatusPending, task.Status)
		assert.Equal(t, []int{noteID}, noteIDs(task))

		require.NoError(t, repo.UpdateNote(ctx, noteID, record.NoteInput{Title: "Oat", Content: "barista", CreatedAt: "2030-01-01T00:00:00"}))
		note, err := repo.GetNote(ctx, noteID)
		require.NoError(t, err)
		assert.Equal(t, "Oat", note.Title)
		assert.Equal(t, "barista", note.Content)
		assert.Equal(t, "2024-01-01T10:00:00", note.CreatedAt)
		assert.Equal(t, []int{taskID}, taskIDs(note))

		require.NoError(t, repo.UpdateTask(ctx, taskID+100, record.TaskInput{Title: "ghost"}))
		require.NoError(t, repo.UpdateNote(ctx, noteID+100, record.NoteInput{Title: "ghost"}))
		_, err = repo.GetTask(ctx, taskID+100)
		assert.True(t, cerr.IsCode(err, cerr.NotFound))

		err = repo.UpdateTask(ctx, taskID, record.TaskInput{})
		assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
		err = repo.UpdateNote(ctx, noteID, record.NoteInput{})
		assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	})

	t.Run("UpdateMissingIgnoresInput", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		assert.NoError(t, repo.UpdateTask(ctx, 7, record.TaskInput{}))
		assert.NoError(t, repo.UpdateNote(ctx, 7, record.NoteInput{}))
	})

	t.Run("ConcurrentLinks", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		taskID, err := repo.CreateTask(ctx, record.TaskInput{Title: "Study graphs"})
		require.NoError(t, err)
		const n = 20
		notes := make([]int, n)
		for i := range notes {
			notes[i], err = repo.CreateNote(ctx, record.NoteInput{Title: "note"})
			require.NoError(t, err)
		}

		var wg sync.WaitGroup
		for _, noteID := range notes {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.Link(ctx, taskID, noteID))
			}()
		}
		// an update racing the links must not drop any of them
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.UpdateTask(ctx, taskID, record.TaskInput{Title: "Study graphs", Status: record.StatusInProgress}))
		}()
		wg.Wait()

		task, err := repo.GetTask(ctx, taskID)
		require.NoError(t, err)
		assert.ElementsMatch(t, notes, noteIDs(task))
		for _, noteID := range notes {
			note, err := repo.GetNote(ctx, noteID)
			require.NoError(t, err)
			assert.Equal(t, []int{taskID}, taskIDs(note))
		}
	})

	t.Run("DeleteRacingLinkStaysDeleted", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		for range 10 {
			taskID, err := repo.CreateTask(ctx, record.TaskInput{Title: "short lived"})
			require.NoError(t, err)
			noteID, err := repo.CreateNote(ctx, record.NoteInput{Title: "note"})
			require.NoError(t, err)

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.Link(ctx, taskID, noteID))
			}()
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.DeleteTask(ctx, taskID))
			}()
			wg.Wait()

			_, err = repo.GetTask(ctx, taskID)
			assert.True(t, cerr.IsCode(err, cerr.NotFound))
			note, err := repo.GetNote(ctx, noteID)
			require.NoError(t, err)
			assert.Empty(t, note.Tasks)
		}
	})

	t.Run("ListOrdered", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		for _, title := range []string{"c", "a", "b"} {
			_, err := repo.CreateTask(ctx, record.TaskInput{Title: title})
			require.NoError(t, err)
			_, err = repo.CreateNote(ctx, record.NoteInput{Title: title})
			require.NoError(t, err)
		}
		tasks, err := repo.ListTasks(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		for i := 1; i < len(tasks); i++ {
			assert.Less(t, tasks[i-1].ID, tasks[i].ID)
		}
		assert.Equal(t, "c", tasks[0].Title)

		notes, err := repo.ListNotes(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 3)
		for i := 1; i < len(notes); i++ {
			assert.Less(t, notes[i-1].ID, notes[i].ID)
		}
	})

	t.Run("Search", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		for _, title := range []string{"Dijkstra shortest path", "Buy milk", "Bellman-Ford shortest path", "Read a book", "Call mom", "Pay rent"} {
			_, err := repo.CreateNote(ctx, record.NoteInput{Title: title})
			require.NoError(t, err)
			_, err = repo.CreateTask(ctx, record.TaskInput{Title: title})
			require.NoError(t, err)
		}

		hits, err := repo.SearchNotes(ctx, "shortest path", 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		for _, h := range hits {
			assert.Contains(t, h.Document, "shortest path")
			assert.Contains(t, h.Metadata, "title")
		}

		hits, err = repo.SearchTasks(ctx, "milk", 0)
		require.NoError(t, err)
		assert.Len(t, hits, record.DefaultTopK)
		assert.Contains(t, hits[0].Document, "Buy milk")
		assert.Contains(t, hits[0].Document, "Status: pending\nDeadline: None")
	})

	t.Run("ConcurrentCreates", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		const n = 16
		ids := make(chan int, n)
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := repo.CreateTask(ctx, record.TaskInput{Title: "parallel"})
				assert.NoError(t, err)
				ids <- id
			}()
		}
		wg.Wait()
		close(ids)

		seen := map[int]bool{}
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		tasks, err := repo.ListTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, tasks, n)
	})
}
