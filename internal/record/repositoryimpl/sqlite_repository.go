package repositoryimpl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kazz187/notevault/internal/record"
	"github.com/kazz187/notevault/pkg/cerr"
	"github.com/kazz187/notevault/pkg/docstore"
)

var _ record.Repository = (*SQLiteRepository)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending',
	deadline    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS notes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS task_notes (
	task_id INTEGER NOT NULL,
	note_id INTEGER NOT NULL,
	PRIMARY KEY (task_id, note_id)
);
CREATE INDEX IF NOT EXISTS task_notes_note_id ON task_notes (note_id);
`

// SQLiteRepository keeps records in SQLite with a task_notes junction table.
// SQL is the source of truth; a docstore index mirrors every record so that
// search goes through the same similarity query as the document backend.
// mu orders writes so the index always mirrors the latest SQL state.
type SQLiteRepository struct {
	mu        sync.Mutex
	db        *sql.DB
	taskIndex docstore.Collection
	noteIndex docstore.Collection
	notifier  record.Notifier
	now       func() time.Time
}

func NewSQLiteRepository(ctx context.Context, path string, index docstore.Store, opts ...Option) (*SQLiteRepository, error) {
	o := newOptions(opts)
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// one connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	taskIndex, err := index.Collection(ctx, tasksCollection)
	if err != nil {
		_ = db.Close()
		return nil, unavailable("open task index", err)
	}
	noteIndex, err := index.Collection(ctx, notesCollection)
	if err != nil {
		_ = db.Close()
		return nil, unavailable("open note index", err)
	}
	r := &SQLiteRepository{
		db:        db,
		taskIndex: taskIndex,
		noteIndex: noteIndex,
		notifier:  o.notifier,
		now:       o.now,
	}
	if err := r.Reindex(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Reindex rewrites the search index from SQL and drops index documents whose
// record no longer exists.
func (r *SQLiteRepository) Reindex(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, notes, err := r.loadAll(ctx)
	if err != nil {
		return err
	}
	taskDocs := make([]docstore.Document, len(tasks))
	for i, t := range tasks {
		taskDocs[i] = taskDocument(t)
	}
	noteDocs := make([]docstore.Document, len(notes))
	for i, n := range notes {
		noteDocs[i] = noteDocument(n)
	}
	if err := syncIndex(ctx, r.taskIndex, taskDocs); err != nil {
		return unavailable("index tasks", err)
	}
	if err := syncIndex(ctx, r.noteIndex, noteDocs); err != nil {
		return unavailable("index notes", err)
	}
	return nil
}

// syncIndex makes the collection hold exactly docs.
func syncIndex(ctx context.Context, c docstore.Collection, docs []docstore.Document) error {
	existing, err := c.List(ctx)
	if err != nil {
		return err
	}
	keep := docstore.IndexByID(docs)
	var stale []string
	for _, d := range existing {
		if _, ok := keep[d.ID]; !ok {
			stale = append(stale, d.ID)
		}
	}
	if len(stale) > 0 {
		if err := c.Delete(ctx, stale...); err != nil {
			return err
		}
	}
	if len(docs) == 0 {
		return nil
	}
	return c.Upsert(ctx, docs...)
}

func dbError(op string, err error) error {
	return unavailable(op, err)
}

// ===== tasks =====

func (r *SQLiteRepository) CreateTask(ctx context.Context, in record.TaskInput) (int, error) {
	in, err := in.Normalize()
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, status, deadline) VALUES (?, ?, ?, ?)`,
		in.Title, in.Description, in.Status, in.Deadline)
	if err != nil {
		return 0, dbError("insert task", err)
	}
	id64, err := res.LastInsertId()
	if err != nil {
		return 0, dbError("insert task", err)
	}
	t, err := r.indexTask(ctx, int(id64))
	if err != nil {
		return 0, err
	}
	r.notifier.TaskCreated(t)
	return t.ID, nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id int) (*record.TaskView, error) {
	t, err := r.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, cerr.NewError(cerr.NotFound, "Task not found", nil)
	}
	notes, err := r.queryNotes(ctx,
		`SELECT n.id, n.title, n.content, n.created_at FROM task_notes tn
		 JOIN notes n ON n.id = tn.note_id WHERE tn.task_id = ? ORDER BY tn.rowid`, id)
	if err != nil {
		return nil, err
	}
	t.NoteIDs = make([]int, len(notes))
	for i, n := range notes {
		t.NoteIDs[i] = n.ID
	}
	return taskView(t, indexNotes(notes)), nil
}

func (r *SQLiteRepository) ListTasks(ctx context.Context) ([]*record.TaskView, error) {
	tasks, notes, err := r.loadAll(ctx)
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

func (r *SQLiteRepository) UpdateTask(ctx context.Context, id int, in record.TaskInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, err := r.getTask(ctx, id); err != nil || t == nil {
		return err
	}
	in, err := in.Normalize()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, deadline = ? WHERE id = ?`,
		in.Title, in.Description, in.Status, in.Deadline, id)
	if err != nil {
		return dbError("update task", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil
	}
	t, err := r.indexTask(ctx, id)
	if err != nil {
		return err
	}
	r.notifier.TaskUpdated(t)
	return nil
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	noteIDs, err := r.relatedIDs(ctx, `SELECT note_id FROM task_notes WHERE task_id = ?`, id)
	if err != nil {
		return err
	}
	if err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_notes WHERE task_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		return err
	}); err != nil {
		return dbError("delete task", err)
	}
	if err := r.taskIndex.Delete(ctx, docID(id)); err != nil {
		return unavailable("unindex task", err)
	}
	for _, noteID := range noteIDs {
		if _, err := r.indexNote(ctx, noteID); err != nil {
			return err
		}
	}
	r.notifier.TaskDeleted(id)
	return nil
}

// ===== notes =====

func (r *SQLiteRepository) CreateNote(ctx context.Context, in record.NoteInput) (int, error) {
	in, err := in.Normalize(r.now())
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (title, content, created_at) VALUES (?, ?, ?)`,
		in.Title, in.Content, in.CreatedAt)
	if err != nil {
		return 0, dbError("insert note", err)
	}
	id64, err := res.LastInsertId()
	if err != nil {
		return 0, dbError("insert note", err)
	}
	n, err := r.indexNote(ctx, int(id64))
	if err != nil {
		return 0, err
	}
	r.notifier.NoteCreated(n)
	return n.ID, nil
}

func (r *SQLiteRepository) GetNote(ctx context.Context, id int) (*record.NoteView, error) {
	n, err := r.getNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, cerr.NewError(cerr.NotFound, "Note not found", nil)
	}
	tasks, err := r.queryTasks(ctx,
		`SELECT t.id, t.title, t.description, t.status, t.deadline FROM task_notes tn
		 JOIN tasks t ON t.id = tn.task_id WHERE tn.note_id = ? ORDER BY tn.rowid`, id)
	if err != nil {
		return nil, err
	}
	n.TaskIDs = make([]int, len(tasks))
	for i, t := range tasks {
		n.TaskIDs[i] = t.ID
	}
	return noteView(n, indexTasks(tasks)), nil
}

func (r *SQLiteRepository) ListNotes(ctx context.Context) ([]*record.NoteView, error) {
	tasks, notes, err := r.loadAll(ctx)
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

func (r *SQLiteRepository) UpdateNote(ctx context.Context, id int, in record.NoteInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, err := r.getNote(ctx, id); err != nil || n == nil {
		return err
	}
	in, err := in.Normalize(r.now())
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE notes SET title = ?, content = ? WHERE id = ?`, in.Title, in.Content, id)
	if err != nil {
		return dbError("update note", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil
	}
	n, err := r.indexNote(ctx, id)
	if err != nil {
		return err
	}
	r.notifier.NoteUpdated(n)
	return nil
}

func (r *SQLiteRepository) DeleteNote(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	taskIDs, err := r.relatedIDs(ctx, `SELECT task_id FROM task_notes WHERE note_id = ?`, id)
	if err != nil {
		return err
	}
	if err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_notes WHERE note_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
		return err
	}); err != nil {
		return dbError("delete note", err)
	}
	if err := r.noteIndex.Delete(ctx, docID(id)); err != nil {
		return unavailable("unindex note", err)
	}
	for _, taskID := range taskIDs {
		if _, err := r.indexTask(ctx, taskID); err != nil {
			return err
		}
	}
	r.notifier.NoteDeleted(id)
	return nil
}

// ===== relations =====

func (r *SQLiteRepository) Link(ctx context.Context, taskID, noteID int) error {
	return r.relate(ctx, taskID, noteID, `INSERT OR IGNORE INTO task_notes (task_id, note_id) VALUES (?, ?)`, r.notifier.Linked)
}

func (r *SQLiteRepository) Unlink(ctx context.Context, taskID, noteID int) error {
	return r.relate(ctx, taskID, noteID, `DELETE FROM task_notes WHERE task_id = ? AND note_id = ?`, r.notifier.Unlinked)
}

func (r *SQLiteRepository) relate(ctx context.Context, taskID, noteID int, stmt string, notify func(int, int)) error {
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
	if _, err := r.db.ExecContext(ctx, stmt, taskID, noteID); err != nil {
		return dbError("update relation", err)
	}
	if _, err := r.indexTask(ctx, taskID); err != nil {
		return err
	}
	if _, err := r.indexNote(ctx, noteID); err != nil {
		return err
	}
	notify(taskID, noteID)
	return nil
}

// ===== search =====

func (r *SQLiteRepository) SearchTasks(ctx context.Context, query string, topK int) ([]record.SearchHit, error) {
	matches, err := r.taskIndex.Query(ctx, query, record.NormalizeTopK(topK))
	if err != nil {
		return nil, unavailable("search tasks", err)
	}
	return searchHits(matches), nil
}

func (r *SQLiteRepository) SearchNotes(ctx context.Context, query string, topK int) ([]record.SearchHit, error) {
	matches, err := r.noteIndex.Query(ctx, query, record.NormalizeTopK(topK))
	if err != nil {
		return nil, unavailable("search notes", err)
	}
	return searchHits(matches), nil
}

// ===== sql access =====

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) getTask(ctx context.Context, id int) (*record.Task, error) {
	t := &record.Task{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, status, deadline FROM tasks WHERE id = ?`, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(fmt.Sprintf("read task %d", id), err)
	}
	return t, nil
}

func (r *SQLiteRepository) getNote(ctx context.Context, id int) (*record.Note, error) {
	n := &record.Note{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, content, created_at FROM notes WHERE id = ?`, id,
	).Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(fmt.Sprintf("read note %d", id), err)
	}
	return n, nil
}

func (r *SQLiteRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*record.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("query tasks", err)
	}
	defer rows.Close()
	var tasks []*record.Task
	for rows.Next() {
		t := &record.Task{}
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Deadline); err != nil {
			return nil, dbError("scan task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("query tasks", err)
	}
	return tasks, nil
}

func (r *SQLiteRepository) queryNotes(ctx context.Context, query string, args ...any) ([]*record.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("query notes", err)
	}
	defer rows.Close()
	var notes []*record.Note
	for rows.Next() {
		n := &record.Note{}
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt); err != nil {
			return nil, dbError("scan note", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("query notes", err)
	}
	return notes, nil
}

func (r *SQLiteRepository) relatedIDs(ctx context.Context, query string, id int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, dbError("query relations", err)
	}
	defer rows.Close()
	var ids []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, dbError("scan relation", err)
		}
		ids = append(ids, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("query relations", err)
	}
	return ids, nil
}

// loadAll reads every task and note with relation ids filled in, ordered by id.
func (r *SQLiteRepository) loadAll(ctx context.Context) ([]*record.Task, []*record.Note, error) {
	tasks, err := r.queryTasks(ctx, `SELECT id, title, description, status, deadline FROM tasks ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	notes, err := r.queryNotes(ctx, `SELECT id, title, content, created_at FROM notes ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT task_id, note_id FROM task_notes ORDER BY rowid`)
	if err != nil {
		return nil, nil, dbError("query relations", err)
	}
	defer rows.Close()
	taskByID, noteByID := indexTasks(tasks), indexNotes(notes)
	for rows.Next() {
		var taskID, noteID int
		if err := rows.Scan(&taskID, &noteID); err != nil {
			return nil, nil, dbError("scan relation", err)
		}
		t, okT := taskByID[taskID]
		n, okN := noteByID[noteID]
		if !okT || !okN {
			continue
		}
		t.NoteIDs = append(t.NoteIDs, noteID)
		n.TaskIDs = append(n.TaskIDs, taskID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, dbError("query relations", err)
	}
	return tasks, notes, nil
}

// indexTask mirrors the current SQL state of a task into the search index.
func (r *SQLiteRepository) indexTask(ctx context.Context, id int) (*record.Task, error) {
	t, err := r.getTask(ctx, id)
	if err != nil || t == nil {
		return t, err
	}
	if t.NoteIDs, err = r.relatedIDs(ctx, `SELECT note_id FROM task_notes WHERE task_id = ? ORDER BY rowid`, id); err != nil {
		return nil, err
	}
	if err := r.taskIndex.Upsert(ctx, taskDocument(t)); err != nil {
		return nil, unavailable("index task", err)
	}
	return t, nil
}

func (r *SQLiteRepository) indexNote(ctx context.Context, id int) (*record.Note, error) {
	n, err := r.getNote(ctx, id)
	if err != nil || n == nil {
		return n, err
	}
	if n.TaskIDs, err = r.relatedIDs(ctx, `SELECT task_id FROM task_notes WHERE note_id = ? ORDER BY rowid`, id); err != nil {
		return nil, err
	}
	if err := r.noteIndex.Upsert(ctx, noteDocument(n)); err != nil {
		return nil, unavailable("index note", err)
	}
	return n, nil
}
