package record

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type Task struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Deadline    string `json:"deadline"`
	NoteIDs     []int  `json:"-"`
}

type Note struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	TaskIDs   []int  `json:"-"`
}

// TaskView is a task with its related notes resolved. Notes that no longer
// exist are left out.
type TaskView struct {
	*Task
	Notes []NoteSummary `json:"notes"`
}

type NoteView struct {
	*Note
	Tasks []TaskSummary `json:"tasks"`
}

type NoteSummary struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type TaskSummary struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Deadline string `json:"deadline"`
}

func (n *Note) Summary() NoteSummary {
	return NoteSummary{ID: n.ID, Title: n.Title, Content: n.Content, CreatedAt: n.CreatedAt}
}

func (t *Task) Summary() TaskSummary {
	return TaskSummary{ID: t.ID, Title: t.Title, Status: t.Status, Deadline: t.Deadline}
}

// SearchHit is one similarity search result as returned by the document store.
type SearchHit struct {
	ID       int            `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
	Distance float64        `json:"distance"`
}
