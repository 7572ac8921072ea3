package record

import (
	"strings"
	"time"

	"github.com/kazz187/notevault/pkg/cerr"
)

// DefaultTopK is used when a search asks for zero or fewer results.
const DefaultTopK = 5

// TaskInput is the full desired state of a task on create or update.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Deadline    string `json:"deadline"`
}

// NoteInput is the full desired state of a note. CreatedAt is only honored on create.
type NoteInput struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Normalize validates the input and fills defaults.
func (in TaskInput) Normalize() (TaskInput, error) {
	if strings.TrimSpace(in.Title) == "" {
		return in, cerr.NewError(cerr.InvalidArgument, "invalid task", nil).
			AddDetailMessageWithCode("title is required", "title.required")
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	return in, nil
}

// Normalize validates the input and fills defaults. now supplies created_at when absent.
func (in NoteInput) Normalize(now time.Time) (NoteInput, error) {
	if strings.TrimSpace(in.Title) == "" {
		return in, cerr.NewError(cerr.InvalidArgument, "invalid note", nil).
			AddDetailMessageWithCode("title is required", "title.required")
	}
	if in.CreatedAt == "" {
		in.CreatedAt = now.Format("2006-01-02T15:04:05.000000")
	}
	return in, nil
}

// NormalizeTopK applies DefaultTopK to non-positive values.
func NormalizeTopK(topK int) int {
	if topK <= 0 {
		return DefaultTopK
	}
	return topK
}
