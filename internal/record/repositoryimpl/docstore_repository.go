package repositoryimpl

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/kazz187/notevault/internal/record"
	"github.com/kazz187/notevault/pkg/cerr"
	"github.com/kazz187/notevault/pkg/docstore"
)

var _ record.Repository = (*DocstoreRepository)(nil)

// DocstoreRepository keeps one document per task and note. Relations live in
// each record's metadata, so a link touches two documents. mu serializes every
// read-modify-write and delete so both sides of a relation stay in step.
type DocstoreRepository struct {
	mu       sync.Mutex
	tasks    docstore.Collection
	notes    docstore.Collection
	taskIDs  *record.IDCounter
	noteIDs  *record.IDCounter
	notifier record.Notifier
	now      func() time.Time
}

type Option func(*options)

type options struct {
	notifier record.Notifier
	now      func() time.Time
}

func WithNotifier(n record.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithClock overrides the clock used for default note timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewDocstoreRepository opens the task and note collections and seeds the id
// counters from the highest id stored in each.
func NewDocstoreRepository(ctx context.Context, store docstore.Store, opts ...Option) (*DocstoreRepository, error) {
	o := newOptions(opts)
	tasks, err := store.Collection(ctx, tasksCollection)
	if err != nil {
		return nil, unavailable("open tasks collection", err)
	}
	notes, err := store.Collection(ctx, notesCollection)
	if err != nil {
		return nil, unavailable("open notes collection", err)
	}
	maxTask, err := maxID(ctx, tasks)
	if err != nil {
		return nil, err
	}
	maxNote, err := maxID(ctx, notes)
	if err != nil {
		return nil, err
	}
	return &DocstoreRepository{
		tasks:    tasks,
		notes:    notes,
		taskIDs:  record.NewIDCounter(maxTask),
		noteIDs:  record.NewIDCounter(maxNote),
		notifier: o.notifier,
		now:      o.now,
	}, nil
}

func maxID(ctx context.Context, c docstore.Collection) (int, error) {
	docs, err := c.List(ctx)
	if err != nil {
		return 0, unavailable("list documents", err)
	}
	var highest int
	for _, d := range docs {
		if id, err := strconv.Atoi(d.ID); err == nil && id > highest {
			highest = id
		}
	}
	return highest, nil
}

func unavailable(op string, err error) error {
	return cerr.NewError(cerr.Unavailable, "store unavailable", fmt.Errorf("failed to %s: %w", op, err))
}

// ===== tasks =====

func (r *DocstoreRepository) CreateTask(ctx context.Context, in record.TaskInput) (int, error) {
	in, err := in.Normalize()
	if err != nil {
		return 0, err
	}
	t := &record.Task{
		ID:          r.taskIDs.Next(),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Deadline:    in.Deadline,
		NoteIDs:     []int{},
	}
	if err := r.putTasks(ctx, t); err != nil {
		return 0, err
	}
	r.notifier.TaskCreated(t)
	return t.ID, nil
}

func (r *DocstoreRepository) GetTask(ctx context.Context, id int) (*record.TaskView, error) {
	t, err := r.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, cerr.NewError(cerr.NotFound, "Task not found", nil)
	}
	notes, err := r.getNotes(ctx, t.NoteIDs)
	if err != nil {
		return nil, err
	}
	return taskView(t, indexNotes(notes)), nil
}

func (r *DocstoreRepository) ListTasks(ctx context.Context) ([]*record.TaskView, error) {
	tasks, err := r.listTasks(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := r.listNotes(ctx)
	if err != nil {
		return nil, err
	}
	byID := indexNotes(notes)
	views := make([]*record.TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = taskView(t, byID)
	}
	return views, nil
}

func (r *DocstoreRepository) UpdateTask(ctx context.Context, id int, in record.TaskInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.getTask(ctx, id)
	if err != nil || t == nil {
		return err
	}
	if in, err = in.Normalize(); err != nil {
		return err
	}
	if t.NoteIDs, err = r.existingNoteIDs(ctx, t.NoteIDs); err != nil {
		return err
	}
	t.Title = in.Title
	t.Description = in.Description
	t.Status = in.Status
	t.Deadline = in.Deadline
	if err := r.putTasks(ctx, t); err != nil {
		return err
	}
	r.notifier.TaskUpdated(t)
	return nil
}

func (r *DocstoreRepository) DeleteTask(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.tasks.Delete(ctx, docID(id)); err != nil {
		return unavailable(fmt.Sprintf("delete task %d", id), err)
	}
	r.notifier.TaskDeleted(id)
	return nil
}

// ===== notes =====

func (r *DocstoreRepository) CreateNote(ctx context.Context, in record.NoteInput) (int, error) {
	in, err := in.Normalize(r.now())
	if err != nil {
		return 0, err
	}
	n := &record.Note{
		ID:        r.noteIDs.Next(),
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: in.CreatedAt,
		TaskIDs:   []int{},
	}
	if err := r.putNotes(ctx, n); err != nil {
		return 0, err
	}
	r.notifier.NoteCreated(n)
	return n.ID, nil
}

func (r *DocstoreRepository) GetNote(ctx context.Context, id int) (*record.NoteView, error) {
	n, err := r.getNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, cerr.NewError(cerr.NotFound, "Note not found", nil)
	}
	tasks, err := r.getTasks(ctx, n.TaskIDs)
	if err != nil {
		return nil, err
	}
	return noteView(n, indexTasks(tasks)), nil
}

func (r *DocstoreRepository) ListNotes(ctx context.Context) ([]*record.NoteView, error) {
	notes, err := r.listNotes(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := r.listTasks(ctx)
	if err != nil {
		return nil, err
	}
	byID := indexTasks(tasks)
	views := make([]*record.NoteView, len(notes))
	for i, n := range notes {
		views[i] = noteView(n, byID)
	}
	return views, nil
}

func (r *DocstoreRepository) UpdateNote(ctx context.Context, id int, in record.NoteInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.getNote(ctx, id)
	if err != nil || n == nil {
		return err
	}
	if in, err = in.Normalize(r.now()); err != nil {
		return err
	}
	if n.TaskIDs, err = r.existingTaskIDs(ctx, n.TaskIDs); err != nil {
		return err
	}
	n.Title = in.Title
	n.Content = in.Content
	if err := r.putNotes(ctx, n); err != nil {
		return err
	}
	r.notifier.NoteUpdated(n)
	return nil
}

func (r *DocstoreRepository) DeleteNote(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.notes.Delete(ctx, docID(id)); err != nil {
		return unavailable(fmt.Sprintf("delete note %d", id), err)
	}
	r.notifier.NoteDeleted(id)
	return nil
}

// ===== relations =====

func (r *DocstoreRepository) Link(ctx context.Context, taskID, noteID int) error {
	return r.relate(ctx, taskID, noteID, record.AddID, r.notifier.Linked)
}

func (r *DocstoreRepository) Unlink(ctx context.Context, taskID, noteID int) error {
	return r.relate(ctx, taskID, noteID, record.RemoveID, r.notifier.Unlinked)
}

// relate rewrites both sides of a relation with edit applied. Nothing is
// written when either record is missing.
func (r *DocstoreRepository) relate(ctx context.Context, taskID, noteID int, edit func([]int, int) []int, notify func(int, int)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.getTask(ctx, taskID)
	if err != nil || t == nil {
		return err
	}
	n, err := r.getNote(ctx, noteID)
	if err != nil || n == nil {
		return err
	}
	if t.NoteIDs, err = r.existingNoteIDs(ctx, t.NoteIDs); err != nil {
		return err
	}
	if n.TaskIDs, err = r.existingTaskIDs(ctx, n.TaskIDs); err != nil {
		return err
	}
	t.NoteIDs = edit(t.NoteIDs, noteID)
	n.TaskIDs = edit(n.TaskIDs, taskID)
	if err := r.putTasks(ctx, t); err != nil {
		return err
	}
	if err := r.putNotes(ctx, n); err != nil {
		return err
	}
	notify(taskID, noteID)
	return nil
}

// ===== search =====

func (r *DocstoreRepository) SearchTasks(ctx context.Context, query string, topK int) ([]record.SearchHit, error) {
	matches, err := r.tasks.Query(ctx, query, record.NormalizeTopK(topK))
	if err != nil {
		return nil, unavailable("search tasks", err)
	}
	return searchHits(matches), nil
}

func (r *DocstoreRepository) SearchNotes(ctx context.Context, query string, topK int) ([]record.SearchHit, error) {
	matches, err := r.notes.Query(ctx, query, record.NormalizeTopK(topK))
	if err != nil {
		return nil, unavailable("search notes", err)
	}
	return searchHits(matches), nil
}

// ===== document access =====

func (r *DocstoreRepository) putTasks(ctx context.Context, tasks ...*record.Task) error {
	docs := make([]docstore.Document, len(tasks))
	for i, t := range tasks {
		docs[i] = taskDocument(t)
	}
	if err := r.tasks.Upsert(ctx, docs...); err != nil {
		return unavailable("write task", err)
	}
	return nil
}

func (r *DocstoreRepository) putNotes(ctx context.Context, notes ...*record.Note) error {
	docs := make([]docstore.Document, len(notes))
	for i, n := range notes {
		docs[i] = noteDocument(n)
	}
	if err := r.notes.Upsert(ctx, docs...); err != nil {
		return unavailable("write note", err)
	}
	return nil
}

// getTask returns nil without error when the task does not exist.
func (r *DocstoreRepository) getTask(ctx context.Context, id int) (*record.Task, error) {
	tasks, err := r.getTasks(ctx, []int{id})
	if err != nil || len(tasks) == 0 {
		return nil, err
	}
	return tasks[0], nil
}

func (r *DocstoreRepository) getNote(ctx context.Context, id int) (*record.Note, error) {
	notes, err := r.getNotes(ctx, []int{id})
	if err != nil || len(notes) == 0 {
		return nil, err
	}
	return notes[0], nil
}

func (r *DocstoreRepository) getTasks(ctx context.Context, ids []int) ([]*record.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	docs, err := r.tasks.Get(ctx, docIDs(ids)...)
	if err != nil {
		return nil, unavailable("read tasks", err)
	}
	return decodeAll(docs, taskFromDocument)
}

func (r *DocstoreRepository) getNotes(ctx context.Context, ids []int) ([]*record.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	docs, err := r.notes.Get(ctx, docIDs(ids)...)
	if err != nil {
		return nil, unavailable("read notes", err)
	}
	return decodeAll(docs, noteFromDocument)
}

func (r *DocstoreRepository) listTasks(ctx context.Context) ([]*record.Task, error) {
	docs, err := r.tasks.List(ctx)
	if err != nil {
		return nil, unavailable("list tasks", err)
	}
	tasks, err := decodeAll(docs, taskFromDocument)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(tasks, func(a, b *record.Task) int { return a.ID - b.ID })
	return tasks, nil
}

func (r *DocstoreRepository) listNotes(ctx context.Context) ([]*record.Note, error) {
	docs, err := r.notes.List(ctx)
	if err != nil {
		return nil, unavailable("list notes", err)
	}
	notes, err := decodeAll(docs, noteFromDocument)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(notes, func(a, b *record.Note) int { return a.ID - b.ID })
	return notes, nil
}

func (r *DocstoreRepository) existingNoteIDs(ctx context.Context, ids []int) ([]int, error) {
	notes, err := r.getNotes(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := indexNotes(notes)
	return record.KeepExisting(ids, func(id int) bool { _, ok := byID[id]; return ok }), nil
}

func (r *DocstoreRepository) existingTaskIDs(ctx context.Context, ids []int) ([]int, error) {
	tasks, err := r.getTasks(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := indexTasks(tasks)
	return record.KeepExisting(ids, func(id int) bool { _, ok := byID[id]; return ok }), nil
}

func decodeAll[T any](docs []docstore.Document, decode func(docstore.Document) (*T, error)) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, d := range docs {
		v, err := decode(d)
		if err != nil {
			return nil, cerr.NewError(cerr.Internal, "server error", err)
		}
		out = append(out, v)
	}
	return out, nil
}
