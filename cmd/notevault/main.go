package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/notevault/internal/agent"
	"github.com/kazz187/notevault/internal/record"
)

var (
	app       = kingpin.New("notevault", "Talk to a notevault server")
	serverURL = app.Flag("server", "Server base URL").Envar("NOTEVAULT_SERVER").Default("http://localhost:3100").String()
	apiKey    = app.Flag("api-key", "API key sent as X-API-Key").Envar("NOTEVAULT_API_KEY").String()
	timeout   = app.Flag("timeout", "Request timeout").Default("2m").Duration()
	rawJSON   = app.Flag("json", "Print raw JSON").Bool()
	noColor   = app.Flag("no-color", "Disable colored output").Bool()

	askCmd     = app.Command("ask", "Send a message to the agent")
	askMessage = askCmd.Arg("message", "Message for the agent").Required().Strings()

	toolsCmd = app.Command("tools", "List the tools the agent can call")
	tasksCmd = app.Command("tasks", "List all tasks")
	notesCmd = app.Command("notes", "List all notes")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	p := newPrinter(os.Stdout, !*noColor)
	var err error
	switch command {
	case askCmd.FullCommand():
		err = ask(ctx, p, strings.Join(*askMessage, " "))
	case toolsCmd.FullCommand():
		err = listTools(ctx, p)
	case tasksCmd.FullCommand():
		err = listTasks(ctx, p)
	case notesCmd.FullCommand():
		err = listNotes(ctx, p)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func authHeader() http.Header {
	h := http.Header{}
	if *apiKey != "" {
		h.Set("X-API-Key", *apiKey)
	}
	return h
}

func ask(ctx context.Context, p *printer, message string) error {
	client := agent.NewClient(http.DefaultClient, *serverURL)
	res, err := client.Run(ctx, message, authHeader())
	if err != nil {
		return err
	}
	if *rawJSON {
		return p.json(res)
	}
	p.transcript(res)
	return nil
}

func listTools(ctx context.Context, p *printer) error {
	client := agent.NewClient(http.DefaultClient, *serverURL)
	tools, err := client.ListTools(ctx, authHeader())
	if err != nil {
		return err
	}
	if *rawJSON {
		return p.json(tools)
	}
	p.tools(tools)
	return nil
}

func listTasks(ctx context.Context, p *printer) error {
	var tasks []*record.TaskView
	if err := getJSON(ctx, "/tasks", &tasks); err != nil {
		return err
	}
	if *rawJSON {
		return p.json(tasks)
	}
	p.tasks(tasks)
	return nil
}

func listNotes(ctx context.Context, p *printer) error {
	var notes []*record.NoteView
	if err := getJSON(ctx, "/notes", &notes); err != nil {
		return err
	}
	if *rawJSON {
		return p.json(notes)
	}
	p.notes(notes)
	return nil
}

func getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(*serverURL, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header = authHeader()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
