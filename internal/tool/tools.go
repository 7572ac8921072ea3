package tool

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/kazz187/notevault/internal/record"
	"github.com/kazz187/notevault/pkg/cerr"
)

// NewRecordRegistry builds the tool set backed by repo.
func NewRecordRegistry(repo record.Repository) (*Registry, error) {
	return NewRegistry(RecordTools(repo)...)
}

func RecordTools(repo record.Repository) []Tool {
	taskID := Param{Name: "task_id", Type: TypeInteger, Description: "ID of the task.", Required: true}
	noteID := Param{Name: "note_id", Type: TypeInteger, Description: "ID of the note.", Required: true}
	query := Param{Name: "query", Description: "Free text to match by semantic similarity.", Required: true}
	topK := Param{Name: "top_k", Type: TypeInteger, Description: "Maximum number of results (default 5)."}
	title := Param{Name: "title", Description: "Title.", Required: true}
	status := Param{Name: "status", Description: "One of 'pending', 'in_progress' or 'completed'. Defaults to 'pending'."}
	deadline := Param{Name: "deadline", Description: "Deadline formatted as YYYY-MM-DD."}

	return []Tool{
		{
			Name:        "create_task",
			Description: "Create a new task. Returns the new task ID.",
			Params: []Param{
				title,
				{Name: "description", Description: "Task description."},
				status,
				deadline,
			},
			Func: func(ctx context.Context, a Args) (any, error) {
				return repo.CreateTask(ctx, taskInput(a))
			},
		},
		{
			Name:        "update_task",
			Description: "Replace every field of an existing task. Related notes are kept. Unknown IDs are ignored.",
			Params: []Param{
				taskID,
				title,
				{Name: "description", Description: "Task description."},
				status,
				deadline,
			},
			Func: func(ctx context.Context, a Args) (any, error) {
				id, err := a.Int("task_id", 0)
				if err != nil {
					return nil, err
				}
				return nil, repo.UpdateTask(ctx, id, taskInput(a))
			},
		},
		{
			Name:        "delete_task",
			Description: "Delete a task by ID.",
			Params:      []Param{taskID},
			Func: func(ctx context.Context, a Args) (any, error) {
				id, err := a.Int("task_id", 0)
				if err != nil {
					return nil, err
				}
				return nil, repo.DeleteTask(ctx, id)
			},
		},
		{
			Name:        "create_note",
			Description: "Create a new note. Returns the new note ID.",
			Params: []Param{
				title,
				{Name: "content", Description: "Note body."},
				{Name: "created_at", Description: "Creation time in ISO 8601. Defaults to now."},
			},
			Func: func(ctx context.Context, a Args) (any, error) {
				return repo.CreateNote(ctx, noteInput(a))
			},
		},
		{
			Name:        "update_note",
			Description: "Replace the title and content of an existing note. Related tasks are kept. Unknown IDs are ignored.",
			Params: []Param{
				noteID,
				title,
				{Name: "content", Description: "Note body."},
			},
			Func: func(ctx context.Context, a Args) (any, error) {
				id, err := a.Int("note_id", 0)
				if err != nil {
					return nil, err
				}
				return nil, repo.UpdateNote(ctx, id, noteInput(a))
			},
		},
		{
			Name:        "delete_note",
			Description: "Delete a note by ID.",
			Params:      []Param{noteID},
			Func: func(ctx context.Context, a Args) (any, error) {
				id, err := a.Int("note_id", 0)
				if err != nil {
					return nil, err
				}
				return nil, repo.DeleteNote(ctx, id)
			},
		},
		{
			Name:        "add_note_to_task",
			Description: "Link a note and a task to each other.",
			Params:      []Param{taskID, noteID},
			Func: func(ctx context.Context, a Args) (any, error) {
				t, n, err := pair(a)
				if err != nil {
					return nil, err
				}
				return nil, repo.Link(ctx, t, n)
			},
		},
		{
			Name:        "remove_note_from_task",
			Description: "Remove the link between a note and a task.",
			Params:      []Param{taskID, noteID},
			Func: func(ctx context.Context, a Args) (any, error) {
				t, n, err := pair(a)
				if err != nil {
					return nil, err
				}
				return nil, repo.Unlink(ctx, t, n)
			},
		},
		{
			Name:        "search_notes",
			Description: "Search notes by semantic similarity. Returns the closest notes first.",
			Params:      []Param{query, topK},
			Func: func(ctx context.Context, a Args) (any, error) {
				return search(ctx, a, repo.SearchNotes)
			},
		},
		{
			Name:        "search_tasks",
			Description: "Search tasks by semantic similarity. Returns the closest tasks first.",
			Params:      []Param{query, topK},
			Func: func(ctx context.Context, a Args) (any, error) {
				return search(ctx, a, repo.SearchTasks)
			},
		},
		{
			Name:        "get_note",
			Description: "Get a note and its related tasks by ID. Returns null when the note does not exist.",
			Params:      []Param{noteID},
			Func: func(ctx context.Context, a Args) (any, error) {
				id, err := a.Int("note_id", 0)
				if err != nil {
					return nil, err
				}
				n, err := repo.GetNote(ctx, id)
				return orNil(n, err)
			},
		},
		{
			Name:        "get_task",
			Description: "Get a task and its related notes by ID. Returns null when the task does not exist.",
			Params:      []Param{taskID},
			Func: func(ctx context.Context, a Args) (any, error) {
				id, err := a.Int("task_id", 0)
				if err != nil {
					return nil, err
				}
				t, err := repo.GetTask(ctx, id)
				return orNil(t, err)
			},
		},
		{
			Name:        "rag_context_for_query",
			Description: "Collect the notes and tasks most similar to a query as context for answering it.",
			Params:      []Param{query, topK},
			Func: func(ctx context.Context, a Args) (any, error) {
				return ragContext(ctx, repo, a)
			},
		},
	}
}

func taskInput(a Args) record.TaskInput {
	return record.TaskInput{
		Title:       a.String("title"),
		Description: a.String("description"),
		Status:      a.String("status"),
		Deadline:    a.String("deadline"),
	}
}

func noteInput(a Args) record.NoteInput {
	return record.NoteInput{
		Title:     a.String("title"),
		Content:   a.String("content"),
		CreatedAt: a.String("created_at"),
	}
}

func pair(a Args) (taskID, noteID int, err error) {
	if taskID, err = a.Int("task_id", 0); err != nil {
		return 0, 0, err
	}
	if noteID, err = a.Int("note_id", 0); err != nil {
		return 0, 0, err
	}
	return taskID, noteID, nil
}

// orNil maps a missing record to a null result instead of an error.
func orNil[T any](v *T, err error) (any, error) {
	if cerr.IsCode(err, cerr.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

type searchFunc func(ctx context.Context, query string, topK int) ([]record.SearchHit, error)

type searchResult struct {
	ID       int            `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
}

func search(ctx context.Context, a Args, fn searchFunc) ([]searchResult, error) {
	k, err := a.Int("top_k", record.DefaultTopK)
	if err != nil {
		return nil, err
	}
	hits, err := fn(ctx, a.String("query"), k)
	if err != nil {
		return nil, err
	}
	results := make([]searchResult, len(hits))
	for i, h := range hits {
		results[i] = searchResult{ID: h.ID, Document: h.Document, Metadata: expandRelations(h.Metadata)}
	}
	return results, nil
}

// expandRelations turns related_* metadata, stored as JSON array strings,
// back into lists.
func expandRelations(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		if s, ok := v.(string); ok && strings.HasPrefix(k, "related_") && gjson.Valid(s) {
			ids := []string{}
			gjson.Parse(s).ForEach(func(_, e gjson.Result) bool {
				ids = append(ids, e.String())
				return true
			})
			out[k] = ids
			continue
		}
		out[k] = v
	}
	return out
}

func ragContext(ctx context.Context, repo record.Repository, a Args) (json.RawMessage, error) {
	var notes, tasks []searchResult
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		notes, err = search(ctx, a, repo.SearchNotes)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		tasks, err = search(ctx, a, repo.SearchTasks)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	raw, err := sjson.SetBytes([]byte(`{"items":[]}`), "query", a.String("query"))
	if err != nil {
		return nil, err
	}
	add := func(source string, results []searchResult) error {
		for _, r := range results {
			item := map[string]any{"source": source, "id": r.ID, "text": r.Document, "meta": r.Metadata}
			if raw, err = sjson.SetBytes(raw, "items.-1", item); err != nil {
				return err
			}
		}
		return nil
	}
	if err := add("note", notes); err != nil {
		return nil, err
	}
	if err := add("task", tasks); err != nil {
		return nil, err
	}
	return raw, nil
}
