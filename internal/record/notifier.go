package record

import (
	"strconv"

	"github.com/kazz187/notevault/internal/eventbus"
)

// Notifier publishes record changes. The zero value discards them.
type Notifier struct {
	bus *eventbus.Bus
}

func NewNotifier(bus *eventbus.Bus) Notifier {
	return Notifier{bus: bus}
}

func (n Notifier) publish(t eventbus.EventType, id int, metadata map[string]string) {
	if n.bus == nil {
		return
	}
	n.bus.PublishNew(t, strconv.Itoa(id), metadata)
}

func (n Notifier) TaskCreated(t *Task) {
	n.publish(eventbus.EventTaskCreated, t.ID, map[string]string{"kind": "task", "title": t.Title, "status": t.Status})
}

func (n Notifier) TaskUpdated(t *Task) {
	n.publish(eventbus.EventTaskUpdated, t.ID, map[string]string{"kind": "task", "title": t.Title, "status": t.Status})
}

func (n Notifier) TaskDeleted(id int) {
	n.publish(eventbus.EventTaskDeleted, id, map[string]string{"kind": "task"})
}

func (n Notifier) NoteCreated(note *Note) {
	n.publish(eventbus.EventNoteCreated, note.ID, map[string]string{"kind": "note", "title": note.Title})
}

func (n Notifier) NoteUpdated(note *Note) {
	n.publish(eventbus.EventNoteUpdated, note.ID, map[string]string{"kind": "note", "title": note.Title})
}

func (n Notifier) NoteDeleted(id int) {
	n.publish(eventbus.EventNoteDeleted, id, map[string]string{"kind": "note"})
}

func (n Notifier) Linked(taskID, noteID int) {
	n.publish(eventbus.EventNoteLinked, taskID, map[string]string{"kind": "task", "note_id": strconv.Itoa(noteID)})
}

func (n Notifier) Unlinked(taskID, noteID int) {
	n.publish(eventbus.EventNoteUnlinked, taskID, map[string]string{"kind": "task", "note_id": strconv.Itoa(noteID)})
}
