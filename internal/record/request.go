package record

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/notevault/pkg/cerr"
)

const maxBodyBytes = 1 << 20

// PathID reads an integer route parameter.
func PathID(r *http.Request, key string) (int, error) {
	raw := chi.URLParam(r, key)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, cerr.NewError(cerr.InvalidArgument, "invalid "+key, err)
	}
	return id, nil
}

// DecodeJSON reads the request body into v. An empty body leaves v untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return cerr.NewError(cerr.InvalidArgument, "invalid request body", err)
	}
	return nil
}

// SearchParams reads ?q= and ?top_k= from a search request.
func SearchParams(r *http.Request) (query string, topK int, err error) {
	query = r.URL.Query().Get("q")
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		if topK, err = strconv.Atoi(raw); err != nil {
			return "", 0, cerr.NewError(cerr.InvalidArgument, "invalid top_k", err)
		}
	}
	return query, NormalizeTopK(topK), nil
}

// Message is the body of mutation responses.
type Message struct {
	Message string `json:"message"`
	ID      int    `json:"id,omitempty"`
}

// RelationFunc is Repository.Link or Repository.Unlink.
type RelationFunc func(ctx context.Context, taskID, noteID int) error

// RelationIDs reads the task_id and note_id route parameters.
func RelationIDs(r *http.Request) (taskID, noteID int, err error) {
	if taskID, err = PathID(r, "task_id"); err != nil {
		return 0, 0, err
	}
	if noteID, err = PathID(r, "note_id"); err != nil {
		return 0, 0, err
	}
	return taskID, noteID, nil
}
