// Package task serves the task HTTP endpoints.
package task

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
	r.Post("/", s.CreateTask)
	r.Get("/", s.ListTasks)
	r.Get("/search", s.SearchTasks)
	r.Get("/{task_id}", s.GetTask)
	r.Put("/{task_id}", s.UpdateTask)
	r.Delete("/{task_id}", s.DeleteTask)
	r.Post("/{task_id}/notes/{note_id}", s.AddNote)
	r.Delete("/{task_id}/notes/{note_id}", s.RemoveNote)
}

func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in record.TaskInput
	if err := record.DecodeJSON(w, r, &in); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	id, err := s.repo.CreateTask(ctx, in)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, record.Message{Message: "Task created", ID: id})
}

func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if tasks == nil {
		tasks = []*record.TaskView{}
	}
	cerr.SetJSONResponse(ctx, tasks)
}

func (s *Server) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := record.PathID(r, "task_id")
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := record.PathID(r, "task_id")
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var in record.TaskInput
	if err := record.DecodeJSON(w, r, &in); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.UpdateTask(ctx, id, in); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, record.Message{Message: "Task updated"})
}

func (s *Server) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := record.PathID(r, "task_id")
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, record.Message{Message: "Task deleted"})
}

func (s *Server) AddNote(w http.ResponseWriter, r *http.Request) {
	s.relate(w, r, s.repo.Link, "Note added to task")
}

func (s *Server) RemoveNote(w http.ResponseWriter, r *http.Request) {
	s.relate(w, r, s.repo.Unlink, "Note removed from task")
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

func (s *Server) SearchTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query, topK, err := record.SearchParams(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	hits, err := s.repo.SearchTasks(ctx, query, topK)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if hits == nil {
		hits = []record.SearchHit{}
	}
	cerr.SetJSONResponse(ctx, hits)
}
