package record

import "context"

// Repository keeps tasks and notes and the relation between them.
//
// Mutations of missing records are silent no-ops. Reads skip relation ids
// whose counterpart no longer exists, and the next write of the record drops
// them for good. Storage failures are reported as cerr.Unavailable.
type Repository interface {
	CreateTask(ctx context.Context, in TaskInput) (int, error)
	GetTask(ctx context.Context, id int) (*TaskView, error)
	ListTasks(ctx context.Context) ([]*TaskView, error)
	UpdateTask(ctx context.Context, id int, in TaskInput) error
	DeleteTask(ctx context.Context, id int) error

	CreateNote(ctx context.Context, in NoteInput) (int, error)
	GetNote(ctx context.Context, id int) (*NoteView, error)
	ListNotes(ctx context.Context) ([]*NoteView, error)
	UpdateNote(ctx context.Context, id int, in NoteInput) error
	DeleteNote(ctx context.Context, id int) error

	Link(ctx context.Context, taskID, noteID int) error
	Unlink(ctx context.Context, taskID, noteID int) error

	SearchTasks(ctx context.Context, query string, topK int) ([]SearchHit, error)
	SearchNotes(ctx context.Context, query string, topK int) ([]SearchHit, error)
}
