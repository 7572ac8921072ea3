package agent

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a remote agent service.
type Client struct {
	run   *connect.Client[RunRequest, RunResponse]
	tools *connect.Client[ListToolsRequest, ListToolsResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &Client{
		run:   connect.NewClient[RunRequest, RunResponse](httpClient, baseURL+RunProcedure, opts...),
		tools: connect.NewClient[ListToolsRequest, ListToolsResponse](httpClient, baseURL+ToolsProcedure, opts...),
	}
}

func (c *Client) Run(ctx context.Context, message string, header http.Header) (*RunResponse, error) {
	req := connect.NewRequest(&RunRequest{Message: message})
	for k, vs := range header {
		for _, v := range vs {
			req.Header().Add(k, v)
		}
	}
	resp, err := c.run.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) ListTools(ctx context.Context, header http.Header) ([]map[string]any, error) {
	req := connect.NewRequest(&ListToolsRequest{})
	for k, vs := range header {
		for _, v := range vs {
			req.Header().Add(k, v)
		}
	}
	resp, err := c.tools.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg.Tools, nil
}
