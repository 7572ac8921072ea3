package repositoryimpl

import "github.com/kazz187/notevault/internal/record"

func indexNotes(notes []*record.Note) map[int]*record.Note {
	m := make(map[int]*record.Note, len(notes))
	for _, n := range notes {
		m[n.ID] = n
	}
	return m
}

func indexTasks(tasks []*record.Task) map[int]*record.Task {
	m := make(map[int]*record.Task, len(tasks))
	for _, t := range tasks {
		m[t.ID] = t
	}
	return m
}

// taskView resolves the task's note ids against notes, skipping stale ones.
func taskView(t *record.Task, notes map[int]*record.Note) *record.TaskView {
	v := &record.TaskView{Task: t, Notes: []record.NoteSummary{}}
	for _, id := range record.KeepExisting(t.NoteIDs, func(id int) bool { _, ok := notes[id]; return ok }) {
		v.Notes = append(v.Notes, notes[id].Summary())
	}
	return v
}

func noteView(n *record.Note, tasks map[int]*record.Task) *record.NoteView {
	v := &record.NoteView{Note: n, Tasks: []record.TaskSummary{}}
	for _, id := range record.KeepExisting(n.TaskIDs, func(id int) bool { _, ok := tasks[id]; return ok }) {
		v.Tasks = append(v.Tasks, tasks[id].Summary())
	}
	return v
}
