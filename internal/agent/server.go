package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"

	"github.com/kazz187/notevault/pkg/cerr"
)

const (
	ServiceName      = "notevault.v1.AgentService"
	RunProcedure     = "/" + ServiceName + "/Run"
	ToolsProcedure   = "/" + ServiceName + "/ListTools"
	maxRequestLength = 1 << 20
)

type RunRequest struct {
	Message string `json:"message"`
}

type RunResponse = Result

type ListToolsRequest struct{}

type ListToolsResponse struct {
	Tools []map[string]any `json:"tools"`
}

type Server struct {
	agent *Agent
}

func NewServer(a *Agent) *Server {
	return &Server{agent: a}
}

// Routes mounts the JSON endpoints under the router passed in.
func (s *Server) Routes(r chi.Router) {
	r.Post("/agent", s.handleRun)
	r.Get("/tools", s.handleListTools)
}

// Handlers returns the Connect handlers of the agent service.
func (s *Server) Handlers(opts ...connect.HandlerOption) map[string]http.Handler {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	return map[string]http.Handler{
		RunProcedure:   connect.NewUnaryHandler(RunProcedure, s.Run, opts...),
		ToolsProcedure: connect.NewUnaryHandler(ToolsProcedure, s.ListTools, opts...),
	}
}

func (s *Server) Run(ctx context.Context, req *connect.Request[RunRequest]) (*connect.Response[RunResponse], error) {
	resp, err := s.run(ctx, req.Msg.Message)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

func (s *Server) ListTools(ctx context.Context, req *connect.Request[ListToolsRequest]) (*connect.Response[ListToolsResponse], error) {
	return connect.NewResponse(&ListToolsResponse{Tools: s.agent.Tools().Schemas()}), nil
}

// run treats a round limit hit as a regular response carrying the
// iteration_limit outcome.
func (s *Server) run(ctx context.Context, message string) (*RunResponse, error) {
	res, err := s.agent.Run(ctx, message)
	if err != nil && !errors.Is(err, ErrIterationLimitExceeded) {
		return nil, err
	}
	return res, nil
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestLength)).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	resp, err := s.run(ctx, req.Message)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, resp)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), s.agent.Tools().Schemas())
}
