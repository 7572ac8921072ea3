package repositoryimpl

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/kazz187/notevault/internal/record"
	"github.com/kazz187/notevault/pkg/docstore"
)

const (
	tasksCollection = "tasks"
	notesCollection = "notes"

	relatedNotesKey = "related_notes"
	relatedTasksKey = "related_tasks"
)

// Document stores accept only primitive metadata, so relation sets are kept
// as a JSON array of decimal id strings, e.g. ["1","3"].
func encodeIDs(ids []int) string {
	raw := "[]"
	for _, id := range ids {
		// sjson only fails on malformed paths, and "-1" (append) is constant
		raw, _ = sjson.Set(raw, "-1", strconv.Itoa(id))
	}
	return raw
}

// decodeIDs accepts both string and number elements. Malformed input yields no ids.
func decodeIDs(raw string) []int {
	if !gjson.Valid(raw) {
		return nil
	}
	var ids []int
	gjson.Parse(raw).ForEach(func(_, v gjson.Result) bool {
		if n, err := strconv.Atoi(v.String()); err == nil {
			ids = append(ids, n)
		}
		return true
	})
	return ids
}

func docID(id int) string {
	return strconv.Itoa(id)
}

func docIDs(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = docID(id)
	}
	return out
}

func taskText(t *record.Task) string {
	deadline := t.Deadline
	if deadline == "" {
		deadline = "None"
	}
	return fmt.Sprintf("%s\n\n%s\n\nStatus: %s\nDeadline: %s", t.Title, t.Description, t.Status, deadline)
}

func noteText(n *record.Note) string {
	return fmt.Sprintf("%s\n\n%s", n.Title, n.Content)
}

func taskDocument(t *record.Task) docstore.Document {
	return docstore.Document{
		ID:   docID(t.ID),
		Text: taskText(t),
		Metadata: docstore.Metadata{
			"id":            t.ID,
			"title":         t.Title,
			"description":   t.Description,
			"status":        t.Status,
			"deadline":      t.Deadline,
			relatedNotesKey: encodeIDs(t.NoteIDs),
		},
	}
}

func noteDocument(n *record.Note) docstore.Document {
	return docstore.Document{
		ID:   docID(n.ID),
		Text: noteText(n),
		Metadata: docstore.Metadata{
			"id":            n.ID,
			"title":         n.Title,
			"content":       n.Content,
			"created_at":    n.CreatedAt,
			relatedTasksKey: encodeIDs(n.TaskIDs),
		},
	}
}

func taskFromDocument(d docstore.Document) (*record.Task, error) {
	id, err := strconv.Atoi(d.ID)
	if err != nil {
		return nil, fmt.Errorf("task document has non-numeric id %q", d.ID)
	}
	status := d.Metadata.String("status")
	if status == "" {
		status = record.StatusPending
	}
	return &record.Task{
		ID:          id,
		Title:       d.Metadata.String("title"),
		Description: d.Metadata.String("description"),
		Status:      status,
		Deadline:    d.Metadata.String("deadline"),
		NoteIDs:     decodeIDs(d.Metadata.String(relatedNotesKey)),
	}, nil
}

func noteFromDocument(d docstore.Document) (*record.Note, error) {
	id, err := strconv.Atoi(d.ID)
	if err != nil {
		return nil, fmt.Errorf("note document has non-numeric id %q", d.ID)
	}
	return &record.Note{
		ID:        id,
		Title:     d.Metadata.String("title"),
		Content:   d.Metadata.String("content"),
		CreatedAt: d.Metadata.String("created_at"),
		TaskIDs:   decodeIDs(d.Metadata.String(relatedTasksKey)),
	}, nil
}

func searchHits(matches []docstore.Match) []record.SearchHit {
	hits := make([]record.SearchHit, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m.ID)
		if err != nil {
			continue
		}
		hits = append(hits, record.SearchHit{
			ID:       id,
			Document: m.Text,
			Metadata: m.Metadata,
			Distance: m.Distance,
		})
	}
	return hits
}
