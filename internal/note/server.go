// Package note serves the note HTTP endpoints.
package note

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/notevault/internal/record"
	"github.com/kazz187/notevault/pkg/cerr"
)

type Server struct {
	repo record.Repository
}

func NewServer(repo record.Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) Routes(r chi.Router) {
	r.Post("/", s.CreateNote)
	r.Get("/", s.ListNotes)
	r.Get("/search", s.SearchNotes)
	r.Get("/{note_id}", s.GetNote)
	r.Put("/{note_id}", s.UpdateNote)
	r.Patch("/{note_id}", s.PatchNote)
	r.Delete("/{note_id}", s.DeleteNote)
	r.Post("/{note_id}/tasks/{task_id}", s.AddTask)
	r.Delete("/{note_id}/tasks/{task_id}", s.RemoveTask)
}

func (s *Server) CreateNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in record.NoteInput
	if err := record.DecodeJSON(w, r, &in); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	id, err := s.repo.CreateNote(ctx, in)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, record.Message{Message: "Note created", ID: id})
}

func (s *Server) ListNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notes, err := s.repo.ListNotes(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if notes == nil {
		notes = []*record.NoteView{}
	}
	cerr.SetJSONResponse(ctx, notes)
}

func (s *Server) GetNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := record.PathID(r, "note_id")
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	n, err := s.repo.GetNote(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, n)
}

func (s *Server) UpdateNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := record.PathID(r, "note_id")
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var in record.NoteInput
	if err := record.DecodeJSON(w, r, &in); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.UpdateNote(ctx, id, in); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, record.Message{Message: "Note updated"})
}

type notePatch struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// PatchNote updates only the fields present in the body. A missing note is
// a no-op, like UpdateNote.
func (s *Server) PatchNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := record.PathID(r, "note_id")
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var patch notePatch
	if err := record.DecodeJSON(w, r, &patch); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	current, err := s.repo.GetNote(ctx, id)
	switch {
	case cerr.IsCode(err, cerr.NotFound):
		cerr.SetJSONResponse(ctx, record.Message{Message: "Note updated"})
		return
	case err != nil:
		cerr.SetJSONError(ctx, err)
		return
	}
	in := record.NoteInput{Title: current.Title, Content: current.Content}
	if patch.Title != nil {
		in.Title = *patch.Title
	}
	if patch.Content != nil {
		in.Content = *patch.Content
	}
	if err := s.repo.UpdateNote(ctx, id, in); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, record.Message{Message: "Note updated"})
}

func (s *Server) DeleteNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := record.PathID(r, "note_id")
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.DeleteNote(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, record.Message{Message: "Note deleted"})
}

func (s *Server) AddTask(w http.ResponseWriter, r *http.Request) {
	s.relate(w, r, s.repo.Link, "Task added to note")
}

func (s *Server) RemoveTask(w http.ResponseWriter, r *http.Request) {
	s.relate(w, r, s.repo.Unlink, "Task removed from note")
}

func (s *Server) relate(w http.ResponseWriter, r *http.Request, op record.RelationFunc, msg string) {
	ctx := r.Context()
	taskID, noteID, err := record.RelationIDs(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := op(ctx, taskID, noteID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, record.Message{Message: msg})
}

func (s *Server) SearchNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query, topK, err := record.SearchParams(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	hits, err := s.repo.SearchNotes(ctx, query, topK)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if hits == nil {
		hits = []record.SearchHit{}
	}
	cerr.SetJSONResponse(ctx, hits)
}
