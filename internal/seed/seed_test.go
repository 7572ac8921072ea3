package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/notevault/internal/record"
	"github.com/kazz187/notevault/internal/record/repositoryimpl"
	"github.com/kazz187/notevault/pkg/docstore/blobstore"
	"github.com/kazz187/notevault/pkg/storage"
)

func newRepo(t *testing.T) record.Repository {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo, err := repositoryimpl.NewDocstoreRepository(context.Background(), blobstore.New(s))
	require.NoError(t, err)
	return repo
}

func TestDefaultFixture(t *testing.T) {
	f, err := DefaultFixture()
	require.NoError(t, err)
	assert.NotEmpty(t, f.Notes)
	assert.NotEmpty(t, f.Tasks)
}

func TestParseFixture_UnknownNote(t *testing.T) {
	_, err := ParseFixture([]byte(`
notes:
  - key: a
    title: A
tasks:
  - title: T
    notes: [b]
`))
	assert.ErrorContains(t, err, `unknown note "b"`)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	f, err := ParseFixture([]byte(`
notes:
  - key: go
    title: Go Tips
    content: handle errors
  - key: sql
    title: SQL JOIN Types
    content: inner, left, right
tasks:
  - title: Build API
    status: in_progress
    due_in_days: 3
    notes: [go, sql]
  - title: Old chore
    status: completed
    due_in_days: -2
`))
	require.NoError(t, err)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	seeded, err := Run(ctx, repo, f, now)
	require.NoError(t, err)
	assert.True(t, seeded)

	tasks, err := repo.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "2026-10-22", tasks[0].Deadline)
	assert.Equal(t, "in_progress", tasks[0].Status)
	assert.Len(t, tasks[0].Notes, 2)
	assert.Equal(t, "2026-10-17", tasks[1].Deadline)

	note, err := repo.GetNote(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19T09:00:00.000000", note.CreatedAt)
	require.Len(t, note.Tasks, 1)
	assert.Equal(t, "Build API", note.Tasks[0].Title)

	seeded, err = Run(ctx, repo, f, now)
	require.NoError(t, err)
	assert.False(t, seeded)
	notes, err := repo.ListNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}
